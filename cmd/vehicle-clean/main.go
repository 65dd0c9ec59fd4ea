package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/David-Botos/vehicle-cleaner/pkg/config"
	"github.com/David-Botos/vehicle-cleaner/pkg/connector"
	"github.com/David-Botos/vehicle-cleaner/pkg/logging"
	"github.com/David-Botos/vehicle-cleaner/pkg/pipeline"
	"github.com/David-Botos/vehicle-cleaner/pkg/sink"
	"github.com/David-Botos/vehicle-cleaner/pkg/source"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type flags struct {
	input   string
	url     string
	source  string
	sink    string
	preview int
}

func newRootCommand() *cobra.Command {
	var f flags
	cmd := &cobra.Command{
		Use:   "vehicle-clean",
		Short: "Clean the vehicle sales dataset and print a summary",
		Long: "Loads car_details.csv (from a file, a URL or Snowflake), normalizes year and odometer,\n" +
			"standardizes make, model, trim, transmission and body, and prints what it changed.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f)
		},
	}

	cmd.Flags().StringVar(&f.input, "input", "", "Path to the dataset CSV (overrides DATASET_PATH)")
	cmd.Flags().StringVar(&f.url, "url", "", "URL of the dataset CSV (overrides DATASET_URL)")
	cmd.Flags().StringVar(&f.source, "source", "", "Dataset source: csv, http or snowflake (overrides DATASET_SOURCE)")
	cmd.Flags().StringVar(&f.sink, "sink", "", "Where to store the cleaned table: none or postgres (overrides SINK)")
	cmd.Flags().IntVar(&f.preview, "preview", -1, "Rows to show in the preview (overrides PREVIEW_ROWS)")
	cmd.MarkFlagsMutuallyExclusive("input", "url")

	return cmd
}

// configOptions turns the flags that were set into config overrides
func configOptions(cmd *cobra.Command, f flags) []config.Option {
	var opts []config.Option
	if cmd.Flags().Changed("input") {
		opts = append(opts, func(c *config.Config) {
			c.DatasetPath = f.input
			c.Source = config.SourceCSV
		})
	}
	if cmd.Flags().Changed("url") {
		opts = append(opts, func(c *config.Config) {
			c.DatasetURL = f.url
			c.Source = config.SourceHTTP
		})
	}
	if cmd.Flags().Changed("source") {
		opts = append(opts, func(c *config.Config) { c.Source = strings.ToLower(f.source) })
	}
	if cmd.Flags().Changed("sink") {
		opts = append(opts, func(c *config.Config) { c.Sink = strings.ToLower(f.sink) })
	}
	if cmd.Flags().Changed("preview") {
		opts = append(opts, func(c *config.Config) { c.PreviewRows = f.preview })
	}
	return opts
}

func run(cmd *cobra.Command, f flags) error {
	ctx := cmd.Context()

	cfg, err := config.LoadConfig(configOptions(cmd, f)...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	factory, err := connector.NewConnectorFactory(cfg, logger)
	if err != nil {
		return err
	}

	loader, err := source.NewLoader(cfg, factory, logger)
	if err != nil {
		return err
	}

	opts := []pipeline.Option{pipeline.WithDatasetName(cfg.DatasetName)}

	if cfg.Sink == config.SinkPostgres {
		pg, err := factory.CreatePostgresConnector(ctx)
		if err != nil {
			return err
		}
		defer pg.Close()

		if err := pg.Validate(ctx); err != nil {
			return err
		}

		out, err := sink.NewPostgresSink(pg, cfg.SinkTable, cfg.BatchSize, logger)
		if err != nil {
			return err
		}
		opts = append(opts, pipeline.WithSink(out))
	}

	p, err := pipeline.NewPipeline(loader, pipeline.PlanFromConfig(cfg), logger, opts...)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx)
	if err != nil {
		logger.Error("Run failed",
			zap.String("stage", string(pipeline.StageOf(err))),
			zap.Error(err))
		return err
	}

	return pipeline.WriteReport(cmd.OutOrStdout(), result, cfg.PreviewRows)
}
