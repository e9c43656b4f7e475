package app

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/macro"
	"github.com/specialistvlad/hclmacros/internal/pkggraph"
	"github.com/specialistvlad/hclmacros/internal/plugin"
	"github.com/specialistvlad/hclmacros/internal/templates"
)

const (
	sourceExt   = ".hcl"
	templateExt = ".tmpl"
)

// job is one file to transform. index is its slot in the build's results.
type job struct {
	index int
	pkg   *pkggraph.Package
	path  string
}

// pool runs jobs on a fixed number of workers. The first fatal error cancels
// the remaining work.
type pool struct {
	app      *App
	pipeline *Pipeline
	loader   *templates.Loader
	results  []FileReport

	cancel  context.CancelFunc
	errOnce sync.Once
	err     error
}

func (p *pool) fail(err error) {
	p.errOnce.Do(func() {
		p.err = err
		p.cancel()
	})
}

// EmitError implements templates.Reporter. A failBuild() inside a template is
// fatal, everything else is recorded on the file.
func (p *pool) EmitError(err error) {
	if macro.IsBuildFailure(err) {
		p.fail(err)
	}
}

// run distributes jobs over workerCount workers and waits for them.
func (p *pool) run(ctx context.Context, jobs []job, workerCount int) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	p.cancel = cancel

	jobChan := make(chan job)
	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.worker(ctx, jobChan, workerID)
		}(i)
	}

feed:
	for _, j := range jobs {
		select {
		case jobChan <- j:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobChan)
	wg.Wait()

	if p.err != nil {
		return p.err
	}
	return ctx.Err()
}

// worker is the processing loop of a single concurrent worker.
func (p *pool) worker(ctx context.Context, jobChan <-chan job, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for j := range jobChan {
		if ctx.Err() != nil {
			continue
		}
		workerCtx := ctxlog.With(ctx, "workerID", workerID, "file", p.app.graph.Rel(j.path))
		workerLogger := ctxlog.FromContext(workerCtx)
		workerLogger.Debug("Worker picked up file.")

		res, err := p.process(workerCtx, j)
		if err != nil {
			workerLogger.Error("File transformation failed.", "error", err)
			p.fail(err)
			continue
		}
		p.results[j.index] = res
		workerLogger.Debug("File transformed.", "changed", res.Changed)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

func (p *pool) process(ctx context.Context, j job) (FileReport, error) {
	src, err := os.ReadFile(j.path)
	if err != nil {
		return FileReport{}, fmt.Errorf("failed to read %s: %w", j.path, err)
	}

	res := FileReport{
		Path:    p.app.graph.Rel(j.path),
		Package: j.pkg.ID.Name,
		abs:     j.path,
		source:  src,
	}
	if res.Output, err = p.app.outputPath(j.path); err != nil {
		return FileReport{}, err
	}

	switch filepath.Ext(j.path) {
	case templateExt:
		res.Kind = "template"
		res.output = []byte(p.loader.Load(ctx, j.path, string(src)))
		res.Changed = true
	default:
		res.Kind = "source"
		f := &plugin.File{Path: j.path, Package: j.pkg, Source: src}
		if err := p.pipeline.Run(ctx, f); err != nil {
			return FileReport{}, err
		}
		res.output = f.Source
		res.Changed = !bytes.Equal(src, f.Source)
	}
	return res, nil
}

// jobs lists every file of every package, skipping the output directory.
func (a *App) jobs() ([]job, error) {
	outDir := a.outDir() + string(filepath.Separator)
	var jobs []job
	for _, pkg := range a.graph.Packages() {
		files, err := a.graph.SourceFiles(pkg, sourceExt, templateExt)
		if err != nil {
			return nil, err
		}
		for _, f := range files {
			if strings.HasPrefix(f, outDir) {
				continue
			}
			if owner, ok := a.graph.Owner(f); !ok || owner != pkg {
				continue
			}
			jobs = append(jobs, job{index: len(jobs), pkg: pkg, path: f})
		}
	}
	return jobs, nil
}
