package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"
	"pkt.systems/searchbench"
	"pkt.systems/searchbench/internal/instrument"
	"pkt.systems/searchbench/internal/logtag"
)

func newSeedCommand(baseLogger pslog.Logger) *cobra.Command {
	var (
		count     int
		seed      int64
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate and bulk-import the instrument population",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			logger := logtag.Sys(rootLogger(baseLogger), "seed")
			cl, err := newBackendClient(rootLogger(baseLogger))
			if err != nil {
				return err
			}
			if count <= 0 {
				return fmt.Errorf("seed: --count must be > 0")
			}
			if batchSize <= 0 {
				return fmt.Errorf("seed: --batch-size must be > 0")
			}

			gen := instrument.NewGenerator(seed)
			docs, err := gen.Generate(count)
			if err != nil {
				return err
			}
			logger.Info("seed.generated", "count", len(docs), "seed", seed)

			ctx := cmd.Context()
			start := time.Now()
			var imported, failed int
			for off := 0; off < len(docs); off += batchSize {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				end := off + batchSize
				if end > len(docs) {
					end = len(docs)
				}
				res, err := cl.BulkImport(ctx, docs[off:end])
				if err != nil {
					return err
				}
				imported += res.Success
				failed += res.Errors
				logger.Debug("seed.batch.done", "offset", off, "imported", res.Success, "errors", res.Errors)
			}
			if err := cl.Refresh(ctx); err != nil {
				return err
			}
			elapsed := time.Since(start)
			logger.Info("seed.done",
				"imported", imported,
				"errors", failed,
				"elapsed", elapsed,
			)
			fmt.Fprintf(cmd.OutOrStdout(), "imported %s instruments into %s in %s (%s docs/s, %d errors)\n",
				humanize.Comma(int64(imported)), cl.Index(), elapsed.Round(time.Millisecond),
				humanize.CommafWithDigits(float64(imported)/elapsed.Seconds(), 0), failed)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&count, "count", searchbench.DefaultSeedCount, "number of instruments to generate")
	flags.Int64Var(&seed, "seed", 1, "random seed for the generator (same seed, same population)")
	flags.IntVar(&batchSize, "batch-size", searchbench.DefaultBatchSize, "documents per bulk import call")
	return cmd
}
