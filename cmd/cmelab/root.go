package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"halo-cme-lab/internal/config"
	"halo-cme-lab/internal/logging"
)

// app holds state shared by all subcommands.
type app struct {
	configPath string
	stdout     io.Writer
	stderr     io.Writer
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	a := &app{stdout: out, stderr: errOut}

	cmd := &cobra.Command{
		Use:           "cmelab",
		Short:         "Halo CME detection against an expected-arrival catalog",
		Long:          "cmelab scores solar-wind parameters inside catalog search windows, extracts and classifies events, and evaluates them against the catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetOut(out)
	cmd.SetErr(errOut)

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "", "path to a YAML config file")
	cmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	cmd.PersistentFlags().String("log-format", "", "log format: console or json")

	cmd.AddCommand(
		newDetectCmd(a),
		newIngestCmd(a),
		newMigrateCmd(a),
		newReportCmd(a),
	)
	return cmd
}

// commonFlags maps persistent flags to config keys.
var commonFlags = map[string]string{
	"log-level":  "logging.level",
	"log-format": "logging.format",
}

// loadConfig resolves defaults, the config file, CME_* variables and the
// flags of cmd that appear in keys, then validates the result.
func (a *app) loadConfig(cmd *cobra.Command, keys map[string]string) (*config.Config, error) {
	loader := config.NewLoader(a.configPath)
	for _, m := range []map[string]string{commonFlags, keys} {
		for name, key := range m {
			flag := cmd.Flags().Lookup(name)
			if flag == nil || !flag.Changed {
				continue
			}
			if err := loader.BindFlag(key, flag); err != nil {
				return nil, err
			}
		}
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Err(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	logger, err := logging.New(logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return logger, nil
}
