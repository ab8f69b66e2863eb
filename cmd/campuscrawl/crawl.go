package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/campuscrawl/internal/config"
	"github.com/nao1215/campuscrawl/internal/crawler"
	"github.com/nao1215/campuscrawl/internal/database"
	"github.com/nao1215/campuscrawl/internal/dedup"
	"github.com/nao1215/campuscrawl/internal/fetch"
	"github.com/nao1215/campuscrawl/internal/frontier"
	"github.com/nao1215/campuscrawl/internal/log"
	"github.com/nao1215/campuscrawl/internal/metrics"
)

// defaultEnvFile is the dotenv file read for CAMPUSCRAWL_* variables.
const defaultEnvFile = ".env"

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [seed-url...]",
		Short: "Crawl the academic web starting from seed URLs",
		Long: `Crawl fetches pages of the UCI academic domains with a pool of workers.

Each worker owns one host at a time and pauses after every page. Links are
canonicalized and filtered for crawler traps, and near-duplicate pages are
skipped. The URL ledger, dedup cache and word statistics are stored in
campuscrawl.db. Running crawl again resumes the previous crawl; --restart
discards it first. Seeds are only used when the database is empty.

Settings are layered: built-in defaults, then the config file (.campuscrawl),
then CAMPUSCRAWL_* environment variables (also read from .env), then flags.

Examples:
  # Resume or start a crawl from the default seeds
  campuscrawl crawl

  # Start over with a single seed and eight workers
  campuscrawl crawl --restart -w 8 https://www.ics.uci.edu/

  # Crawl through a cache proxy and expose Prometheus metrics
  campuscrawl crawl --proxy socks5://127.0.0.1:1080 --metrics-addr :9090`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	// Crawl behavior flags
	cmd.Flags().BoolP("restart", "r", false,
		"Discard the previous crawl state and start from the seeds")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent workers")
	cmd.Flags().DurationP("delay", "d", config.DefaultDelay,
		"Politeness pause after each URL")
	cmd.Flags().Duration("idle-poll", config.DefaultIdlePoll,
		"Wait of a worker that found no host before asking again")
	cmd.Flags().Int("min-words", config.DefaultMinWords,
		"Words a page needs to feed the word statistics")
	cmd.Flags().Int("dup-threshold", config.DefaultDupThreshold,
		"Fingerprint bit difference below which pages are near-duplicates")

	// Fetch flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each request")
	cmd.Flags().Int("retries", config.DefaultRetries,
		"Extra attempts after a network error or 5xx response")
	cmd.Flags().Float64("rps", 0,
		"Global request rate limit across workers (0 disables)")
	cmd.Flags().String("proxy", "",
		"Cache proxy URL (socks5://host:port or http://host:port)")
	cmd.Flags().String("user-agent", config.DefaultUserAgent,
		"User-Agent header")

	// Storage and configuration
	cmd.Flags().String("db-dir", "",
		"Directory of campuscrawl.db (default: XDG data directory)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .campuscrawl in current or home directory)")
	cmd.Flags().String("env-file", defaultEnvFile,
		"Dotenv file with CAMPUSCRAWL_* variables")

	// Observability
	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().Bool("json-log", false,
		"Write logs as JSON")

	return cmd
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd.ErrOrStderr(), cfg)
	slog.SetDefault(logger)

	client, err := fetch.NewHTTPClient(cfg.Proxy, cfg.Timeout)
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	// Set up context with signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			logger.Info("received shutdown signal, stopping workers...")
			cancel()
		case <-ctx.Done():
		}
	}()

	return runCrawl(ctx, cfg, client, logger, cmd.OutOrStdout())
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig layers defaults, the config file, the environment, flags and
// positional seeds into a Config.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()

	var err error
	cfg.ConfigFilePath, err = cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	// If the user explicitly specified a config file path, error if not found.
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath != "" {
		file, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		file.Apply(cfg)
	} else if cfg.ConfigFilePath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", cfg.ConfigFilePath)
	}

	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	env, err := config.LoadEnv(envFile)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, env); err != nil {
		return nil, err
	}

	if err := applyFlags(cmd, cfg); err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.Seeds = args
	}
	cfg.Verbose = getVerboseFlag(cmd)

	return cfg, nil
}

// applyFlags copies every flag the user set onto cfg. Flags left at their
// default do not override the config file or the environment.
func applyFlags(cmd *cobra.Command, cfg *config.Config) error {
	fs := cmd.Flags()
	var err error
	set := func(name string, apply func() error) {
		if err == nil && fs.Changed(name) {
			err = apply()
		}
	}

	set("workers", func() (e error) { cfg.Workers, e = fs.GetInt("workers"); return })
	set("delay", func() (e error) { cfg.Delay, e = fs.GetDuration("delay"); return })
	set("idle-poll", func() (e error) { cfg.IdlePoll, e = fs.GetDuration("idle-poll"); return })
	set("min-words", func() (e error) { cfg.MinWords, e = fs.GetInt("min-words"); return })
	set("dup-threshold", func() (e error) { cfg.DupThreshold, e = fs.GetInt("dup-threshold"); return })
	set("timeout", func() (e error) { cfg.Timeout, e = fs.GetDuration("timeout"); return })
	set("retries", func() (e error) { cfg.Retries, e = fs.GetInt("retries"); return })
	set("rps", func() (e error) { cfg.RequestsPerSecond, e = fs.GetFloat64("rps"); return })
	set("proxy", func() (e error) { cfg.Proxy, e = fs.GetString("proxy"); return })
	set("user-agent", func() (e error) { cfg.UserAgent, e = fs.GetString("user-agent"); return })
	set("db-dir", func() (e error) { cfg.DBDir, e = fs.GetString("db-dir"); return })
	set("metrics-addr", func() (e error) { cfg.MetricsAddr, e = fs.GetString("metrics-addr"); return })
	if err != nil {
		return err
	}

	if cfg.Restart, err = fs.GetBool("restart"); err != nil {
		return err
	}
	if cfg.JSONLog, err = fs.GetBool("json-log"); err != nil {
		return err
	}
	return nil
}

// setupLogger creates the redacting structured logger.
func setupLogger(w io.Writer, cfg *config.Config) *slog.Logger {
	if cfg.JSONLog {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// runCrawl opens the crawl state, runs the worker pool and records the run.
// An interrupted crawl is not an error: its state is kept for the next run.
func runCrawl(ctx context.Context, cfg *config.Config, client *http.Client, logger *slog.Logger, out io.Writer) error {
	if cfg.Restart {
		if err := database.Remove(cfg.DBDir); err != nil {
			return fmt.Errorf("failed to discard previous crawl: %w", err)
		}
		logger.Info("discarded previous crawl state", "dir", cfg.DBDir)
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	runID, err := db.StartRun(ctx)
	if err != nil {
		return err
	}
	logger = logger.With("run", runID)
	logger.Info("database opened", "path", db.Path())

	var m *metrics.Metrics
	if cfg.MetricsAddr != "" {
		m = metrics.New()
		srv := startMetricsServer(cfg.MetricsAddr, m, logger)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("failed to stop metrics server", "error", err)
			}
		}()
	}

	f, err := frontier.New(ctx, db, cfg.Seeds, frontier.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to build frontier: %w", err)
	}
	links, err := dedup.New(ctx, db, dedup.NamespaceLinks, dedup.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to load link cache: %w", err)
	}
	pages, err := dedup.New(ctx, db, dedup.NamespacePages,
		dedup.WithThreshold(cfg.DupThreshold),
		dedup.WithLogger(logger),
	)
	if err != nil {
		return fmt.Errorf("failed to load page cache: %w", err)
	}
	logger.Info("dedup caches loaded", "links", links.Len(), "pages", pages.Len())

	fetcher := fetch.New(client,
		fetch.WithUserAgent(cfg.UserAgent),
		fetch.WithMaxBodySize(cfg.MaxBodySize),
		fetch.WithRetries(cfg.Retries),
		fetch.WithRateLimit(cfg.RequestsPerSecond),
	)

	pool := crawler.New(f, fetcher, db, links, pages,
		crawler.WithWorkers(cfg.Workers),
		crawler.WithDelay(cfg.Delay),
		crawler.WithIdlePoll(cfg.IdlePoll),
		crawler.WithMinWords(cfg.MinWords),
		crawler.WithLogger(logger),
		crawler.WithMetrics(m),
	)

	result, crawlErr := pool.Run(ctx)

	// The run is recorded even when ctx was cancelled.
	if err := db.FinishRun(context.WithoutCancel(ctx), runID, result.Fetched); err != nil {
		logger.Error("failed to record run", "error", err)
	}

	fmt.Fprintf(out, "Crawled %d pages (%d unique, %d duplicates, %d new URLs) in %s\n",
		result.Fetched, result.UniquePages, result.DuplicatePages, result.Enqueued,
		result.Elapsed.Round(time.Millisecond))

	if errors.Is(crawlErr, context.Canceled) {
		fmt.Fprintln(out, "Crawl interrupted; run crawl again without --restart to resume.")
		return nil
	}
	return crawlErr
}

// startMetricsServer serves m on addr in the background.
func startMetricsServer(addr string, m *metrics.Metrics, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "addr", addr, "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return srv
}
