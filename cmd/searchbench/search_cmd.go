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
	"pkt.systems/searchbench/internal/querier"
)

func newSearchCommand(baseLogger pslog.Logger) *cobra.Command {
	var (
		planSpec        string
		catalogPath     string
		interval        time.Duration
		size            int
		seed            int64
		streamPath      string
		metricsListen   string
		hostmonInterval time.Duration
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Run the mixed-shape search driver (stop with Ctrl-C)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			logger := rootLogger(baseLogger)
			cl, err := newBackendClient(logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			plan, err := querier.ParsePlan(planSpec)
			if err != nil {
				return err
			}
			catalog := querier.DefaultCatalog()
			if catalogPath != "" {
				catalog, err = querier.LoadCatalog(catalogPath)
				if err != nil {
					return err
				}
			}

			stats, err := cl.PriceStats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "index %s: %s docs, price %.2f..%.2f (avg %.2f)\n",
				cl.Index(), humanize.Comma(int64(stats.Count)), stats.Min, stats.Max, stats.Avg)

			sink, err := metrics.OpenStream(streamPath)
			if err != nil {
				return err
			}
			defer sink.Close()

			env, err := startDriverEnv(ctx, "search", metricsListen, hostmonInterval, logger)
			if err != nil {
				return err
			}
			defer env.Close(logger)

			runID := uuid.NewString()
			driver, err := querier.New(cl, sink, querier.Config{
				Plan:     plan,
				Catalog:  catalog,
				Interval: interval,
				Size:     size,
				Seed:     seed,
				RunID:    runID,
				Logger:   logger,
				Metrics:  env.metrics,
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: writing observations to %s\n", runID, sink.Path())
			return driver.Run(ctx)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&planSpec, "plan", querier.DefaultPlanSpec, `query shape mix ("round-robin" or shape=weight list)`)
	flags.StringVar(&catalogPath, "catalog", "", "YAML file with price bands and search terms (empty uses built-ins)")
	flags.DurationVar(&interval, "interval", searchbench.DefaultSearchInterval, "pause between queries (0 runs back-to-back)")
	flags.IntVar(&size, "size", searchbench.DefaultSearchSize, "maximum hits returned per query")
	flags.Int64Var(&seed, "seed", 1, "random seed for shape and parameter selection")
	flags.StringVar(&streamPath, "stream", searchbench.DefaultSearchStream, "append-only JSONL metrics stream path")
	flags.StringVar(&metricsListen, "metrics-listen", "", "Prometheus scrape listen address (empty disables)")
	flags.DurationVar(&hostmonInterval, "hostmon-interval", 0, "host CPU/memory sampling interval (0 disables)")
	return cmd
}
