package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"organoidcli/internal/config"
	"organoidcli/internal/infrastructure"
	"organoidcli/internal/pipeline"
	"organoidcli/pkg/contracts"
)

var Cmd = &cobra.Command{
	Use:           "organoid",
	Short:         "Organoid invasion analysis",
	Long:          "Extract per-cell measurement exports, derive invasion metrics, run group statistics and merge replicates.",
	Version:       contracts.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process one experiment",
	RunE:  run,
}

var mergeCmd = &cobra.Command{
	Use:   "merge [replicate-dir...]",
	Short: "Merge exported replicates",
	Long:  "Merge replicate result directories in the order given. Arguments replace merge.replicates from the config.",
	RunE:  mergeReplicates,
}

var args struct {
	configPath string
	inputDir   string
	outputDir  string
	logLevel   string
}

func init() {
	Cmd.PersistentFlags().StringVarP(&args.configPath, "config", "c", "", "experiment config file (YAML)")
	Cmd.PersistentFlags().StringVar(&args.logLevel, "log-level", "", "override logging.level")
	runCmd.Flags().StringVarP(&args.inputDir, "input", "i", "", "override experiment.input_dir")
	runCmd.Flags().StringVarP(&args.outputDir, "output", "o", "", "override output.dir")
	mergeCmd.Flags().StringVarP(&args.outputDir, "output", "o", "", "override merge.output_dir")
	Cmd.SetVersionTemplate(contracts.GetFullVersionString() + "\n")
	Cmd.AddCommand(runCmd, mergeCmd)
}

func main() {
	if err := Cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config, applies flag overrides and starts logging and
// telemetry. The returned function flushes telemetry and closes the log.
func setup(apply func(*config.Config)) (*config.Config, *slog.Logger, *infrastructure.Telemetry, func(), error) {
	cfg, err := config.Load(args.configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if args.logLevel != "" {
		cfg.Logging.Level = args.logLevel
	}
	apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, nil, err
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	tel, err := infrastructure.InitializeTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	cleanup := func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
		infrastructure.CloseLogFile()
	}
	return cfg, logger, tel, cleanup, nil
}

func run(cmd *cobra.Command, argv []string) error {
	cfg, logger, tel, cleanup, err := setup(func(cfg *config.Config) {
		if args.inputDir != "" {
			cfg.Experiment.InputDir = args.inputDir
		}
		if args.outputDir != "" {
			cfg.Output.Dir = args.outputDir
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := pipeline.New(cfg, tel, logger).Run(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d tables, %d files written to %s\n",
		res.RunID, res.Tables.Len(), len(res.Written), cfg.Output.Dir)
	return nil
}

func mergeReplicates(cmd *cobra.Command, argv []string) error {
	cfg, logger, tel, cleanup, err := setup(func(cfg *config.Config) {
		if len(argv) > 0 {
			cfg.Merge.Replicates = argv
		}
		if args.outputDir != "" {
			cfg.Merge.OutputDir = args.outputDir
		}
	})
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	res, err := pipeline.New(cfg, tel, logger).Merge(ctx, nil)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "merged %d replicates: %d files written to %s\n",
		res.Merged.Replicates, len(res.Written), cfg.Merge.OutputDir)
	return nil
}
