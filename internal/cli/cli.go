// Package cli wires the hclmacros commands: flags, the optional
// hclmacros.yaml file and HCLMACROS_* environment variables all feed one
// app.Config.
package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/hclmacros/internal/app"
	"github.com/specialistvlad/hclmacros/internal/fsutil"
	"github.com/specialistvlad/hclmacros/internal/pkggraph"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// ConfigName is the base name of the optional configuration file looked up in
// the project root.
const ConfigName = "hclmacros"

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "HCLMACROS"

type options struct {
	outW, errW io.Writer
	v          *viper.Viper
	cfgFile    string
}

// NewRootCommand builds the command tree. Human output goes to outW, logs go
// to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	o := &options{outW: outW, errW: errW, v: viper.New()}

	root := &cobra.Command{
		Use:           "hclmacros",
		Short:         "Build-time macro expansion for HCL packages",
		Long:          `hclmacros resolves package configuration and rewrites macro calls in HCL sources and templates at build time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)

	root.PersistentFlags().StringVarP(&o.cfgFile, "config", "c", "",
		"config file (default: <root>/hclmacros.yaml)")
	root.PersistentFlags().String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	root.PersistentFlags().String("log-format", "text", "Log output format. Options: 'text' or 'json'.")

	root.AddCommand(o.buildCommand(), o.inspectCommand(), o.evalCommand())
	return root
}

func (o *options) buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [ROOT]",
		Short: "Rewrite every source file and template of a project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd, rootArg(args))
			if err != nil {
				return err
			}
			report, err := app.NewApp(o.outW, o.errW, cfg).Build(cmd.Context())
			if err != nil {
				return err
			}
			if report.Failed {
				return &ExitError{Code: 1, Message: fmt.Sprintf("build failed: %d template error(s)", len(report.Errors))}
			}
			return nil
		},
	}
	addBuildFlags(cmd)
	return cmd
}

func (o *options) inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect [ROOT]",
		Short: "Print the merged configuration of every package with its provenance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := o.config(cmd, rootArg(args))
			if err != nil {
				return err
			}
			targets, err := app.NewApp(o.outW, o.errW, cfg).Inspect(cmd.Context())
			if err != nil {
				return err
			}
			out, err := app.RenderInspect(targets, o.v.GetString("format"))
			if err != nil {
				return &ExitError{Code: 2, Message: err.Error()}
			}
			_, err = o.outW.Write(out)
			return err
		},
	}
	cmd.Flags().StringP("format", "o", "json", "Output format. Options: 'json' or 'yaml'.")
	return cmd
}

func (o *options) evalCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval FILE",
		Short: "Evaluate a rewritten file against the runtime shim",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, _ := cmd.Flags().GetString("root")
			if root == "" {
				root = projectRootOf(args[0])
			}
			cfg, err := o.config(cmd, root)
			if err != nil {
				return err
			}
			val, err := app.NewApp(o.outW, o.errW, cfg).Eval(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			out, err := ctyjson.Marshal(val, val.Type())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(o.outW, string(out))
			return err
		},
	}
	cmd.Flags().String("root", "", "Project root (default: the closest directory above FILE with a package.hcl).")
	cmd.Flags().String("import-function", "require", "Function importSync() calls were rewritten into.")
	return cmd
}

func addBuildFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("out", "dist", "Output directory, relative to the project root.")
	f.String("mode", "build", "Rewrite mode. Options: 'build' or 'runtime'.")
	f.String("import-function", "require", "Function importSync() calls are rewritten into.")
	f.String("variant", "default", "Name of the build variant passed to templates.")
	f.String("variant-runtime", "all", "Runtime of the build variant passed to templates.")
	f.Bool("optimize", false, "Mark the build variant as optimized for production.")
	f.Int("workers", 0, "Number of concurrent file workers. 0 uses every CPU.")
	f.String("report", "", "Write a JSON build report to this path.")
	f.Bool("diff", false, "Print a diff of every rewritten source file.")
}

// projectRootOf walks up from file to the closest directory holding a
// manifest. Built outputs live below the project root, so this finds it.
func projectRootOf(file string) string {
	abs, err := filepath.Abs(file)
	if err != nil {
		return filepath.Dir(file)
	}
	for dir := filepath.Dir(abs); ; dir = filepath.Dir(dir) {
		if fsutil.IsFile(filepath.Join(dir, pkggraph.ManifestFile)) {
			return dir
		}
		if parent := filepath.Dir(dir); parent == dir {
			return filepath.Dir(abs)
		}
	}
}

func rootArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}

// config merges flags, environment and the config file into an app.Config.
// Flags set on the command line win over the environment, which wins over
// the file.
func (o *options) config(cmd *cobra.Command, root string) (*app.Config, error) {
	v := o.v
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, err
	}
	if err := v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return nil, err
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
	} else {
		v.AddConfigPath(root)
		v.SetConfigName(ConfigName)
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, &ExitError{Code: 2, Message: fmt.Sprintf("failed to read config: %v", err)}
		}
	}

	logFormat := strings.ToLower(v.GetString("log-format"))
	if logFormat != "text" && logFormat != "json" {
		return nil, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(v.GetString("log-level"))
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg, err := app.NewConfig(app.Config{
		ProjectRoot:           absRoot,
		OutDir:                v.GetString("out"),
		Mode:                  v.GetString("mode"),
		ImportFunction:        v.GetString("import-function"),
		VariantName:           v.GetString("variant"),
		VariantRuntime:        v.GetString("variant-runtime"),
		OptimizeForProduction: v.GetBool("optimize"),
		WorkerCount:           v.GetInt("workers"),
		LogFormat:             logFormat,
		LogLevel:              logLevel,
		ReportPath:            v.GetString("report"),
		ShowDiff:              v.GetBool("diff"),
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, nil
}
