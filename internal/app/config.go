package app

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/specialistvlad/hclmacros/internal/rewrite"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ProjectRoot string // directory holding the root package.hcl
	OutDir      string // rewritten outputs mirror the project layout here

	Mode           string // "build" or "runtime"
	ImportFunction string // target of importSync rewrites

	VariantName           string
	VariantRuntime        string
	OptimizeForProduction bool

	WorkerCount int
	LogFormat   string
	LogLevel    string

	ReportPath string // optional JSON build report
	ShowDiff   bool   // print a diff of every rewritten file
}

// NewConfig validates cfg and fills in defaults.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ProjectRoot == "" {
		return nil, errors.New("ProjectRoot is a required configuration field and cannot be empty")
	}
	if _, err := rewrite.ParseMode(cfg.Mode); err != nil {
		return nil, err
	}
	if cfg.Mode == "" {
		cfg.Mode = rewrite.BuildTime.String()
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "dist"
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("WorkerCount must not be negative, got %d", cfg.WorkerCount)
	}
	if cfg.WorkerCount == 0 {
		cfg.WorkerCount = runtime.NumCPU()
	}
	if cfg.ImportFunction == "" {
		cfg.ImportFunction = rewrite.DefaultImportFunction
	}
	if cfg.VariantName == "" {
		cfg.VariantName = "default"
	}
	if cfg.VariantRuntime == "" {
		cfg.VariantRuntime = "all"
	}

	return &cfg, nil
}
