package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/fsutil"
	"github.com/specialistvlad/hclmacros/internal/templates"
)

// Build runs every phase of a build and writes the outputs. A failBuild() or a
// registry error aborts with an error and writes nothing. Template compiler
// errors do not abort: they are listed in the report, which is then Failed.
func (a *App) Build(ctx context.Context) (*Report, error) {
	ctx = a.Context(ctx)
	logger := ctxlog.FromContext(ctx)

	if err := a.Load(ctx); err != nil {
		return nil, err
	}

	pipeline, err := a.pipeline(ctx)
	if err != nil {
		return nil, err
	}
	jobs, err := a.jobs()
	if err != nil {
		return nil, err
	}
	logger.Info("Starting build.", "packages", len(a.graph.Packages()), "files", len(jobs), "mode", a.config.Mode)

	collector := &templates.Collector{}
	p := &pool{
		app:      a,
		pipeline: pipeline,
		results:  make([]FileReport, len(jobs)),
	}
	p.loader = a.templateLoader(reporters{p, collector})

	if err := p.run(ctx, jobs, a.config.WorkerCount); err != nil {
		logger.Error("Build aborted.", "error", err)
		return nil, err
	}

	report := &Report{
		BuildID: a.buildID,
		Mode:    a.config.Mode,
		Files:   p.results,
	}
	report.addTemplateErrors(collector.Errors())

	for _, f := range report.Files {
		if err := fsutil.WriteFile(f.Output, f.output); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", f.Output, err)
		}
		if a.config.ShowDiff && f.Changed && f.Kind == "source" {
			if _, err := fmt.Fprint(a.outW, unifiedDiff(f.Path, string(f.source), string(f.output))); err != nil {
				return nil, err
			}
		}
	}

	if a.config.ReportPath != "" {
		if err := report.WriteFile(a.config.ReportPath); err != nil {
			return nil, err
		}
	}

	if report.Failed {
		logger.Warn("Build finished with template errors.", "errors", len(report.Errors))
	} else {
		logger.Info("Build finished.", "files", len(report.Files))
	}
	return report, nil
}

// reporters fans a template error out to several reporters.
type reporters []templates.Reporter

func (rs reporters) EmitError(err error) {
	for _, r := range rs {
		r.EmitError(err)
	}
}

// templateError returns the compile error of err, if it is one.
func templateError(err error) (*templates.CompileError, bool) {
	var ce *templates.CompileError
	ok := errors.As(err, &ce)
	return ce, ok
}
