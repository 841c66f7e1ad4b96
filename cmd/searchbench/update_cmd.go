package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
	"pkt.systems/searchbench"
	"pkt.systems/searchbench/internal/metrics"
	"pkt.systems/searchbench/internal/mutator"
)

func newUpdateCommand(baseLogger pslog.Logger) *cobra.Command {
	var (
		batchSize       int
		interval        time.Duration
		jitter          float64
		seed            int64
		streamPath      string
		metricsListen   string
		hostmonInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Run the continuous bulk price-update driver (stop with Ctrl-C)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			logger := rootLogger(baseLogger)
			cl, err := newBackendClient(logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			population, err := cl.AllInstruments(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discovered %s instruments in %s\n",
				humanize.Comma(int64(len(population))), cl.Index())

			sink, err := metrics.OpenStream(streamPath)
			if err != nil {
				return err
			}
			defer sink.Close()

			env, err := startDriverEnv(ctx, "update", metricsListen, hostmonInterval, logger)
			if err != nil {
				return err
			}
			defer env.Close(logger)

			runID := uuid.NewString()
			driver, err := mutator.New(cl, sink, mutator.Config{
				Population:  population,
				BatchSize:   batchSize,
				Interval:    interval,
				PriceJitter: jitter,
				Seed:        seed,
				RunID:       runID,
				Logger:      logger,
				Metrics:     env.metrics,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: writing observations to %s\n", runID, sink.Path())
			return driver.Run(ctx)
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&batchSize, "batch-size", searchbench.DefaultBatchSize, "records updated per bulk call")
	flags.DurationVar(&interval, "interval", searchbench.DefaultUpdateInterval, "pause between batches (0 runs back-to-back)")
	flags.Float64Var(&jitter, "jitter", searchbench.DefaultPriceJitter, "maximum absolute price delta per update")
	flags.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed for batch sampling")
	flags.StringVar(&streamPath, "stream", searchbench.DefaultUpdateStream, "append-only JSONL metrics stream path")
	flags.StringVar(&metricsListen, "metrics-listen", "", "Prometheus scrape listen address (empty disables)")
	flags.DurationVar(&hostmonInterval, "hostmon-interval", 0, "host CPU/memory sampling interval (0 disables)")
	return cmd
}
