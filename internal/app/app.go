package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/specialistvlad/hclmacros/internal/ctxlog"
	"github.com/specialistvlad/hclmacros/internal/pkggraph"
	"github.com/specialistvlad/hclmacros/internal/registry"
	"github.com/specialistvlad/hclmacros/internal/rewrite"
	"github.com/specialistvlad/hclmacros/internal/shim"
	"github.com/specialistvlad/hclmacros/internal/templates"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// App encapsulates one build: its configuration, logger, registry and the
// components wired around them.
type App struct {
	outW    io.Writer
	logger  *slog.Logger
	config  *Config
	buildID string
	plugins []any

	graph    *pkggraph.Graph
	registry *registry.Registry
	rewriter *rewrite.Rewriter
	runtime  *shim.RuntimeConfig
}

// NewApp is the constructor for a build. outW receives human output such as
// diffs, logW receives the logs. Extra plugin descriptors join the transform
// pipeline after the macro rewriter.
func NewApp(outW, logW io.Writer, cfg *Config, plugins ...any) *App {
	buildID := uuid.NewString()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, logW, buildID)
	logger.Debug("Logger configured successfully.")

	return &App{
		outW:     outW,
		logger:   logger,
		config:   cfg,
		buildID:  buildID,
		plugins:  plugins,
		registry: registry.New(),
		runtime:  shim.New(),
	}
}

// Context returns ctx carrying the build's logger.
func (a *App) Context(ctx context.Context) context.Context {
	return ctxlog.WithLogger(ctx, a.logger)
}

// Load runs the phases before the build barrier: discovery, contribution and
// sealing. It is idempotent.
func (a *App) Load(ctx context.Context) error {
	ctx = a.Context(ctx)
	if a.graph != nil {
		return nil
	}

	graph, err := pkggraph.Discover(ctx, a.config.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to discover packages: %w", err)
	}
	if err := a.registry.LoadManifests(ctx, graph); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := a.registry.Seal(ctx); err != nil {
		return fmt.Errorf("failed to seal configuration: %w", err)
	}
	a.logger.Debug("Build barrier passed: configuration sealed.")

	mode, err := rewrite.ParseMode(a.config.Mode)
	if err != nil {
		return err
	}
	a.rewriter = rewrite.New(a.registry, graph, rewrite.Options{
		Mode:           mode,
		ImportFunction: a.config.ImportFunction,
		Format:         true,
	})

	if mode == rewrite.Runtime {
		if err := shim.Seed(ctx, a.runtime, graph.Packages(), a.registry); err != nil {
			return err
		}
	}

	a.graph = graph
	return nil
}

// BuildID is the unique identifier of this build.
func (a *App) BuildID() string { return a.buildID }

// Graph returns the discovered package graph. This is primarily for testing.
func (a *App) Graph() *pkggraph.Graph { return a.graph }

// Registry returns the application's config registry.
func (a *App) Registry() *registry.Registry { return a.registry }

// RuntimeConfig returns the runtime shim map of this build.
func (a *App) RuntimeConfig() *shim.RuntimeConfig { return a.runtime }

// pipeline assembles the transform pipeline for this build.
func (a *App) pipeline(ctx context.Context) (*Pipeline, error) {
	items := append([]any{a.rewriter.Plugin()}, a.plugins...)
	return NewPipeline(ctx, items...)
}

// templateLoader wires the HCL template compiler to the build-time macros of
// the package owning each template.
func (a *App) templateLoader(reporter templates.Reporter) *templates.Loader {
	module := &templates.HCLModule{
		Functions: func(resourcePath string) (map[string]function.Function, error) {
			pkg, ok := a.graph.Owner(resourcePath)
			if !ok {
				return nil, fmt.Errorf("template %s is not inside any package", resourcePath)
			}
			return a.rewriter.Functions(pkg), nil
		},
	}
	variant := templates.Variant{
		Name:                  a.config.VariantName,
		Runtime:               a.config.VariantRuntime,
		OptimizeForProduction: a.config.OptimizeForProduction,
	}
	return templates.NewLoader(variant, module, reporter)
}

// outputPath maps a source file to its location below the output directory.
func (a *App) outputPath(src string) (string, error) {
	rel, err := filepath.Rel(a.graph.ProjectRoot(), src)
	if err != nil {
		return "", err
	}
	if filepath.Ext(rel) == templateExt {
		rel = rel[:len(rel)-len(templateExt)]
	}
	return filepath.Join(a.outDir(), rel), nil
}

func (a *App) outDir() string {
	if filepath.IsAbs(a.config.OutDir) {
		return a.config.OutDir
	}
	return filepath.Join(a.graph.ProjectRoot(), a.config.OutDir)
}

// Configs returns the merged configuration of every targeted package, keyed by
// package identity.
func (a *App) Configs(ctx context.Context) (map[pkggraph.ID]cty.Value, error) {
	if err := a.Load(ctx); err != nil {
		return nil, err
	}
	out := make(map[pkggraph.ID]cty.Value)
	for _, pkg := range a.graph.Packages() {
		v, ok, err := a.registry.Resolve(pkg)
		if err != nil {
			return nil, err
		}
		if ok {
			out[pkg.ID] = v
		}
	}
	return out, nil
}
