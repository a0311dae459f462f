package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/saberlens/internal/feeder"
	"github.com/okian/saberlens/internal/supervisor"
	"github.com/okian/saberlens/pkg/logger"
)

// Default configuration constants.
const (
	defaultPages          = 10
	defaultEntriesPerPage = 8
	defaultWorkers        = 2 // multiplier for runtime.NumCPU()
	defaultTimeout        = 30 * time.Second
	defaultPollTimeout    = 30 * time.Second
	defaultRunTimeout     = 10 * time.Minute
	readHeaderTimeout     = 5 * time.Second
)

var (
	verbose bool
	cfg     = &feeder.Config{}
)

var rootCmd = &cobra.Command{
	Use:   "feed",
	Short: "Feed synthetic score pages to a running saberlens service",
	Long: `feed posts generated score pages to a running service as response
observations, then verifies the enriched batches it stores: indices keep
their payload positions, invalid and unknown entries are dropped, and every
accuracy matches the expected value to two decimals.

Run 'feed upstream' first and point the service at it with
SABERLENS_BEATSAVER_BASE_URL and SABERLENS_BEATLEADER_BASE_URL, so that the
generated hashes resolve.

Examples:
  # Fake metadata and replay sources on :9180
  feed upstream --addr :9180

  # Feed 20 pages of 8 scores
  feed run --pages 20 --url http://localhost:9080`,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Generate, submit and verify score pages",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := initLogging(); err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(cmd.Context(), defaultRunTimeout)
		defer cancel()
		cfg.Verbose = verbose
		return feeder.Run(ctx, cfg)
	},
}

var upstreamAddr string

var upstreamCmd = &cobra.Command{
	Use:   "upstream",
	Short: "Serve fake metadata and replay sources for generated hashes",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := initLogging(); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:              upstreamAddr,
			Handler:           feeder.NewUpstream(),
			ReadHeaderTimeout: readHeaderTimeout,
		}
		logger.Get().Info(ctx, "serving fake upstream", logger.String("addr", upstreamAddr))
		err := supervisor.NewHTTPService(srv, 0).Serve(ctx)
		if ctx.Err() != nil {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	f := runCmd.Flags()
	f.StringVar(&cfg.BaseURL, "url", "http://localhost:9080", "base URL of the service")
	f.StringVar(&cfg.SiteURL, "site", "https://scoresaber.com", "origin of the observed page URLs")
	f.StringVar(&cfg.SubjectID, "subject", "", "player id (random when empty)")
	f.IntVar(&cfg.Pages, "pages", defaultPages, "number of score pages")
	f.IntVar(&cfg.EntriesPerPage, "entries", defaultEntriesPerPage, "scores per page")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "concurrent submitters")
	f.Uint64Var(&cfg.Seed, "seed", 0, "generator seed (random when 0)")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.DurationVar(&cfg.PollTimeout, "poll-timeout", defaultPollTimeout, "how long to wait for each batch")
	f.StringVar(&cfg.OutputFile, "output", "", "write generated pages to this file")

	upstreamCmd.Flags().StringVar(&upstreamAddr, "addr", ":9180", "listen address")

	rootCmd.AddCommand(runCmd, upstreamCmd)
}

func initLogging() error {
	format := logger.FormatJSON
	if verbose {
		format = logger.FormatConsole
	}
	if err := logger.InitWithWriter(os.Stdout, format); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
