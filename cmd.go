package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"convtrace_stats/internal/collectors/convstat"
	"convtrace_stats/internal/config"
	"convtrace_stats/internal/logger"
	"convtrace_stats/internal/report"
	"convtrace_stats/internal/tracestats"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
)

// rootFlags holds the command line overrides for the configuration file.
type rootFlags struct {
	configPath      string
	format          string
	metricsFile     string
	logLevel        string
	skipInvalidSize bool
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "convtrace_stats [trace-file]",
		Short: "Count shared/private page conversions in a QEMU kvm_convert_memory trace",
		Long: `convtrace_stats reads a trace produced by

  qemu-system-x86_64 ... -trace enable=kvm_convert_memory,file=/tmp/trace.out

and reports the number of pages converted to shared, converted to private,
and how many of them were 4K and 2M pages.

The trace path is taken from the first argument, then $` + config.TracePathEnv + `,
then the configuration file, then ` + config.DefaultTracePath + `.`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAggregate(cmd, args, flags, stdout)
		},
	}

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file (optional)")
	cmd.Flags().StringVarP(&flags.format, "format", "f", config.FormatText, "Report format: text, json, yaml, prometheus")
	cmd.Flags().StringVar(&flags.metricsFile, "metrics-file", "", "Also write the counters to this Prometheus textfile")
	cmd.Flags().StringVar(&flags.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	cmd.Flags().BoolVar(&flags.skipInvalidSize, "skip-invalid-size", false,
		"Skip size values that are not valid hex instead of failing")

	cmd.AddCommand(newGenConfigCmd(stdout))
	return cmd
}

func newGenConfigCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "gen-config <path>",
		Short: "Write an example configuration file with default values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.GenerateExampleConfig(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Example configuration written to %s\n", args[0])
			return nil
		},
	}
}

// resolveConfig loads the configuration file and applies command line overrides.
// A missing configuration file is reported through notFound, not as an error.
func resolveConfig(cmd *cobra.Command, args []string, flags *rootFlags) (cfg *config.AppConfig, notFound error, err error) {
	cfg, err = config.LoadConfig(flags.configPath)
	if errors.Is(err, config.ErrConfigNotFound) {
		notFound, err = err, nil
	}
	if err != nil {
		return nil, nil, err
	}

	// Override with command line flags if provided
	if cmd.Flags().Changed("format") {
		cfg.Output.Format = flags.format
	}
	if cmd.Flags().Changed("metrics-file") {
		cfg.Output.MetricsFile = flags.metricsFile
	}
	if cmd.Flags().Changed("skip-invalid-size") {
		cfg.Trace.SkipInvalidSize = flags.skipInvalidSize
	}
	if flags.logLevel != "" {
		cfg.Logging.Defaults.Level = flags.logLevel
	}
	if len(args) == 1 {
		cfg.Trace.Path = args[0]
	}

	return cfg, notFound, nil
}

func runAggregate(cmd *cobra.Command, args []string, flags *rootFlags, stdout io.Writer) error {
	cfg, notFound, err := resolveConfig(cmd, args, flags)
	if err != nil {
		return err
	}

	if err := logger.ConfigureLogging(cfg.Logging); err != nil {
		return fmt.Errorf("failed to configure loggers: %w", err)
	}
	if notFound != nil {
		log.Warn().Err(notFound).Msg("Using default configuration")
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	log.Debug().
		Str("version", version).
		Str("trace_path", cfg.Trace.Path).
		Bool("skip_invalid_size", cfg.Trace.SkipInvalidSize).
		Str("format", cfg.Output.Format).
		Msg("Starting trace aggregation")

	rep, err := tracestats.Aggregate(cfg.Trace.Path, tracestats.Options{
		SkipInvalidSize: cfg.Trace.SkipInvalidSize,
	})
	if err != nil {
		return err
	}

	// Render first so a failure never leaves a partial report on stdout.
	var buf bytes.Buffer
	if err := report.Write(&buf, cfg.Output.Format, rep); err != nil {
		return err
	}

	if cfg.Output.MetricsFile != "" {
		if err := convstat.WriteTextfile(cfg.Output.MetricsFile, rep); err != nil {
			return err
		}
		log.Debug().Str("path", cfg.Output.MetricsFile).Msg("Metrics file written")
	}

	_, err = stdout.Write(buf.Bytes())
	return err
}
