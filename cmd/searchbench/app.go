package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"pkt.systems/pslog"
	"pkt.systems/searchbench"
	"pkt.systems/searchbench/client"
)

func submain(ctx context.Context) int {
	baseLogger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("SEARCHBENCH_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "searchbench")
	cmd := newRootCommand(baseLogger)
	ctx = withSignalCancel(ctx)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		return 1
	}
	return 0
}

func newRootCommand(baseLogger pslog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "searchbench",
		Short:         "searchbench measures how search latency degrades under concurrent bulk price updates",
		SilenceErrors: true,
		Example: `
  # One-time setup: index with the instrument mapping, 50k generated records
  searchbench index create
  searchbench seed --count 50000

  # Terminal 1: continuous bulk price updates
  searchbench update --batch-size 1000 --interval 2s

  # Terminal 2: mixed search workload
  searchbench search --plan price-range=50,text=30,combined=20

  # After both are stopped (Ctrl-C): correlate the two metric streams
  searchbench analyze --margin 2s
`,
	}

	pf := cmd.PersistentFlags()
	pf.String("endpoint", searchbench.DefaultEndpoint, "document store base URL")
	pf.String("index", searchbench.DefaultIndex, "index name")
	pf.Duration("http-timeout", searchbench.DefaultHTTPTimeout, "per-call HTTP timeout")
	pf.String("log-level", "info", "minimum log level (trace, debug, info, warn, error)")

	viper.SetEnvPrefix("SEARCHBENCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
	bindFlag := func(flag *pflag.Flag) {
		if flag == nil {
			panic("flag not registered")
		}
		if err := viper.BindPFlag(flag.Name, flag); err != nil {
			panic(err)
		}
	}
	for _, name := range []string{"endpoint", "index", "http-timeout", "log-level"} {
		bindFlag(pf.Lookup(name))
	}

	cmd.AddCommand(
		newIndexCommand(baseLogger),
		newSeedCommand(baseLogger),
		newUpdateCommand(baseLogger),
		newSearchCommand(baseLogger),
		newAnalyzeCommand(),
		newVersionCommand(),
	)
	return cmd
}

// rootLogger applies the --log-level flag on top of the env-configured
// base logger.
func rootLogger(base pslog.Logger) pslog.Logger {
	if level, ok := pslog.ParseLevel(strings.TrimSpace(viper.GetString("log-level"))); ok {
		return base.LogLevel(level)
	}
	return base
}

func storeConfig() (searchbench.Config, error) {
	cfg := searchbench.Config{
		Endpoint:    viper.GetString("endpoint"),
		Index:       viper.GetString("index"),
		HTTPTimeout: viper.GetDuration("http-timeout"),
	}
	if err := cfg.Validate(); err != nil {
		return searchbench.Config{}, err
	}
	return cfg, nil
}

func newBackendClient(logger pslog.Logger) (*client.Client, error) {
	cfg, err := storeConfig()
	if err != nil {
		return nil, err
	}
	return client.New(cfg.Endpoint,
		client.WithIndex(cfg.Index),
		client.WithHTTPTimeout(cfg.HTTPTimeout),
		client.WithLogger(logger),
	)
}

func withSignalCancel(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-signals:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(signals)
	}()
	return ctx
}
