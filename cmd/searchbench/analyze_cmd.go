package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"pkt.systems/searchbench"
	"pkt.systems/searchbench/internal/analyze"
	"pkt.systems/searchbench/internal/metrics"
)

func newAnalyzeCommand() *cobra.Command {
	var (
		mutationsPath string
		queriesPath   string
		margin        time.Duration
		csvPath       string
		seriesPath    string
	)
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Correlate the two metric streams and report degradation per query shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			muts, err := metrics.ReadMutations(mutationsPath)
			if err != nil {
				return &analyze.AnalysisInputError{Stream: mutationsPath, Err: err}
			}
			queries, err := metrics.ReadQueries(queriesPath)
			if err != nil {
				return &analyze.AnalysisInputError{Stream: queriesPath, Err: err}
			}
			report, err := analyze.Analyze(muts, queries, margin)
			if err != nil {
				return err
			}
			if err := report.WriteTable(cmd.OutOrStdout()); err != nil {
				return err
			}
			if csvPath != "" {
				if err := writeFile(csvPath, report.WriteCSV); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote stat table to %s\n", csvPath)
			}
			if seriesPath != "" {
				write := func(w io.Writer) error { return report.WriteAlignedSeries(w, queries) }
				if err := writeFile(seriesPath, write); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote aligned series to %s\n", seriesPath)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&mutationsPath, "mutations", searchbench.DefaultUpdateStream, "mutation driver metrics stream")
	flags.StringVar(&queriesPath, "queries", searchbench.DefaultSearchStream, "query driver metrics stream")
	flags.DurationVar(&margin, "margin", searchbench.DefaultOverlapMargin, "expansion applied to each mutation interval on both sides")
	flags.StringVar(&csvPath, "csv", "", "also write the shape/label stat table as CSV to this path")
	flags.StringVar(&seriesPath, "series", "", "also write the labeled per-query series as CSV to this path")
	return cmd
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
