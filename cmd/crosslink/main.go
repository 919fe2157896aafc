// cmd/crosslink/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/crosslink/internal/config"
	"github.com/valpere/crosslink/internal/errors"
	"github.com/valpere/crosslink/internal/store"
	"github.com/valpere/crosslink/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

// app carries the global flags and shared services of one invocation.
type app struct {
	configPath string
	logLevel   string
	logFormat  string
	verbose    bool

	errors *errors.Service
	out    io.Writer
	errOut io.Writer
}

func newApp(out, errOut io.Writer) *app {
	return &app{
		errors: errors.NewService(),
		out:    out,
		errOut: errOut,
	}
}

func main() {
	a := newApp(os.Stdout, os.Stderr)
	if err := newRootCmd(a).Execute(); err != nil {
		fmt.Fprint(os.Stderr, a.errors.FormatErrorForCLI(err))
		os.Exit(a.errors.GetExitCode(err))
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "crosslink",
		Short: "Match pages against site rules and build cross-site links",
		Long: `crosslink recognizes which configured site a page belongs to, extracts
typed identifiers from it and builds navigation links to every other
configured site that can accept those identifiers.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, gitCommit, buildTime),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.errors.WithVerbose(a.verbose)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "configuration file (YAML)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&a.logFormat, "log-format", "", "log format: text, json, logfmt")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "show technical error details")

	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.AddCommand(
		createValidateCmd(a),
		createExportCmd(a),
		createImportCmd(a),
		createDefaultsCmd(a),
		createInspectCmd(a),
		createServeCmd(a),
	)
	return root
}

// loadConfig reads the configuration file, or the defaults when none is
// given, applies the logging flags and configures the shared logger.
func (a *app) loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if a.configPath != "" {
		loaded, err := config.LoadFromFile(a.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Log.Format = a.logFormat
	}
	if err := utils.ConfigureLogging(a.errOut, cfg.Log.Level, utils.LogFormat(cfg.Log.Format)); err != nil {
		return nil, fmt.Errorf("invalid logging configuration: %w", err)
	}
	return cfg, nil
}

func (a *app) openStore(ctx context.Context, cfg *config.Config) (*store.Store, error) {
	return store.OpenStore(ctx, cfg.Rules, store.WithRetry(a.errors))
}
