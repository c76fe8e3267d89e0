package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"survey-categorizer/internal/audit"
	"survey-categorizer/internal/categorizer"
	"survey-categorizer/internal/config"
	"survey-categorizer/internal/diag"
	"survey-categorizer/internal/helper"
	"survey-categorizer/internal/llmservice"
	"survey-categorizer/internal/processor"
)

const configFilePath = "./configs/config.yaml"

type options struct {
	configPath string
	chunkSize  int
	maxRetries int
	dryRun     bool
	verbose    bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:           "survey-categorizer <input_file> <output_file> <model_name>",
		Short:         "Process and categorize survey data",
		Long:          "Categorizes survey question/answer pairs with a language model and exports one row per answer.",
		Example:       "  survey-categorizer survey.csv categorized.csv phi4-mini:latest",
		Args:          cobra.ExactArgs(3),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := run(cmd.Context(), opts, args[0], args[1], args[2])
			if err != nil {
				log.Error().Err(err).Msg("Run failed")
			}
			return err
		},
	}
	cmd.Flags().StringVar(&opts.configPath, "config", configFilePath, "Path to the YAML config file")
	cmd.Flags().IntVar(&opts.chunkSize, "chunk-size", 0, "Rows per prompt (overrides config)")
	cmd.Flags().IntVar(&opts.maxRetries, "max-retries", 0, "Attempts per chunk (overrides config)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the prompts, do not call the model or write output")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Debug logging")
	return cmd
}

func setupLogger(level string, verbose bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()
}

func loadConfig(opts *options) (*config.Config, error) {
	var (
		cfg   *config.Config
		found bool
		err   error
	)
	if opts.configPath == configFilePath {
		cfg, found, err = config.LoadOrDefault(opts.configPath)
	} else {
		cfg, err = config.LoadConfig(opts.configPath)
		found = err == nil
	}
	if err != nil {
		return nil, err
	}
	if !found {
		log.Debug().Str("path", opts.configPath).Msg("Config file not found, using defaults")
	}

	if opts.chunkSize != 0 {
		cfg.Categorizer.ChunkSize = opts.chunkSize
	}
	if opts.maxRetries != 0 {
		cfg.Categorizer.MaxRetryCount = opts.maxRetries
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, opts *options, inputFile, outputFile, modelName string) error {
	setupLogger("", opts.verbose)

	cfg, err := loadConfig(opts)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	setupLogger(cfg.Log.Level, opts.verbose)
	log.Debug().Interface("config", cfg.Categorizer).Str("provider", cfg.LLM.Provider).Msg("Loaded config")

	runID, err := helper.NewRunID()
	if err != nil {
		return err
	}

	sinks := diag.Multi{diag.NewLogSink(log.Logger)}
	if cfg.Audit.DSN != "" && !opts.dryRun {
		store, err := audit.Open(ctx, cfg.Audit.DSN, cfg.Audit.Debug)
		if err != nil {
			return fmt.Errorf("error opening audit store: %w", err)
		}
		defer store.Close()
		sinks = append(sinks, store)
	}
	sink := diag.WithRun(sinks, runID)

	var chatter categorizer.Chatter
	if !opts.dryRun {
		client, err := llmservice.NewClient(&cfg.LLM, modelName)
		if err != nil {
			return fmt.Errorf("error initializing LLM client: %w", err)
		}
		chatter = client
	}

	cat := categorizer.New(chatter, modelName,
		categorizer.WithMaxRetries(cfg.Categorizer.MaxRetryCount),
		categorizer.WithRetryDelay(cfg.Categorizer.RetryDelay),
		categorizer.WithSink(sink),
	)
	proc := processor.New(inputFile, outputFile, cat,
		processor.WithChunkSize(cfg.Categorizer.ChunkSize),
		processor.WithChunkDelay(cfg.Categorizer.ChunkDelay),
		processor.WithDelimiter(cfg.Categorizer.Delimiter),
		processor.WithSink(sink),
		processor.WithRunID(runID),
	)

	if opts.dryRun {
		n, err := proc.DryRun(ctx, os.Stdout)
		if err != nil {
			return err
		}
		log.Info().Int("chunks", n).Msg("Dry run finished")
		return nil
	}

	summary, err := proc.Run(ctx)
	if err != nil {
		return err
	}
	log.Info().Msg("Summary: ~~~~~~~~~~~~~~~~~~~~~~~~~>>>>>")
	helper.PrettyPrint(os.Stdout, summary)
	log.Info().Msgf("✅ Output saved: %s", outputFile)
	return nil
}
