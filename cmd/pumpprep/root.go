package main

import (
	"context"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	cfgpkg "github.com/YuminosukeSato/pumpprep/internal/config"
	"github.com/YuminosukeSato/pumpprep/pkg/log"
)

// app holds state shared by subcommands for one invocation.
type app struct {
	out    io.Writer
	errOut io.Writer

	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string

	cfg    *cfgpkg.Config
	logger log.Logger
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{out: out, errOut: errOut}

	root := &cobra.Command{
		Use:           "pumpprep",
		Short:         "Prepare water-point survey data for pump status classification",
		Long:          `pumpprep cleans raw water-point records (sentinel normalization, required-field, status and population filters, column projection, categorical typing) and produces a seeded stratified train/test split with k folds.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Annotations["skip-config"] == "true" {
				return a.setupLogger("")
			}
			return a.loadConfig()
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&a.cfgFile, "config", "", "config file (default is ./"+cfgpkg.DefaultFile+")")
	f.StringVar(&a.envFile, "env-file", ".env", "dotenv file with PUMPPREP_* variables")
	f.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	f.StringVar(&a.logFormat, "log-format", "zerolog", "zerolog or slog")

	root.AddCommand(newPrepareCmd(a), newBenchCmd(a), newConfigCmd(a))
	return root
}

func (a *app) loadConfig() error {
	c, err := cfgpkg.LoadWithEnvFile(a.cfgFile, a.envFile)
	if err != nil {
		return err
	}
	a.cfg = c
	return a.setupLogger(c.LogLevel)
}

func (a *app) setupLogger(configured string) error {
	levelName := configured
	if a.logLevel != "" {
		levelName = a.logLevel
	}
	level, err := log.ParseLevel(levelName)
	if err != nil {
		return err
	}

	switch a.logFormat {
	case "slog":
		if err := log.SetupLogger(a.errOut, levelName); err != nil {
			return err
		}
		logger := log.NewSlogLogger(slog.Default())
		logger.InstallWarnings()
		a.logger = logger
	default:
		provider := log.NewZerologProviderWithWriter(a.errOut, level)
		provider.InstallWarnings()
		a.logger = provider.GetLogger()
	}
	a.logger.Debug("logger ready", "format", a.logFormat, "level", level.String())
	return nil
}

func (a *app) component(name string) log.Logger {
	return a.logger.With(log.ComponentKey, name)
}

func (a *app) context(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
