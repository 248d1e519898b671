package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/browser"
	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/scraper"
)

func main() {
	defaultCfg := config.DefaultConfig()

	envFileDefault := ".env"
	if value, ok := config.EnvString("SCRAPER_ENV_FILE"); ok {
		envFileDefault = value
	}
	outputDirDefault := defaultCfg.OutputDir
	if value, ok := config.EnvString("SCRAPER_OUTPUT_DIR"); ok {
		outputDirDefault = value
	}
	formatDefault := defaultCfg.OutputFormat
	if value, ok := config.EnvString("SCRAPER_FORMAT"); ok {
		formatDefault = value
	}
	localeDefault := defaultCfg.Locale
	if value, ok := config.EnvString("SCRAPER_LOCALE"); ok {
		localeDefault = value
	}
	remoteDefault := defaultCfg.RemoteURL
	if value, ok := config.EnvString("SCRAPER_REMOTE_URL"); ok {
		remoteDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	headlessDefault := mustEnvBool("SCRAPER_HEADLESS", defaultCfg.Headless)
	roundsDefault := mustEnvInt("SCRAPER_STABILITY_ROUNDS", defaultCfg.StabilityRounds)
	passesDefault := mustEnvInt("SCRAPER_MAX_PASSES", defaultCfg.MaxScrollPasses)
	scrollPauseDefault := mustEnvDuration("SCRAPER_SCROLL_PAUSE", defaultCfg.ScrollPause)
	locateDefault := mustEnvDuration("SCRAPER_LOCATE_TIMEOUT", defaultCfg.LocateTimeout)
	targetTimeoutDefault := mustEnvDuration("SCRAPER_TARGET_TIMEOUT", defaultCfg.TargetTimeout)

	envFile := flag.String("env", envFileDefault, "Env file holding URLS/URL and DRIVER_LOCATION")
	outputDir := flag.String("out", outputDirDefault, "Directory for output files")
	outputFormat := flag.String("format", formatDefault, "Output format: csv, json, or dual")
	locale := flag.String("locale", localeDefault, "Browser UI and Accept-Language locale")
	remoteURL := flag.String("remote", remoteDefault, "Attach to a running Chrome DevTools endpoint instead of launching one")
	headless := flag.Bool("headless", headlessDefault, "Run Chrome headless")
	stabilityRounds := flag.Int("stability-rounds", roundsDefault, "Consecutive no-growth scroll passes before stopping")
	maxPasses := flag.Int("max-passes", passesDefault, "Hard cap on scroll passes per target")
	scrollPause := flag.Duration("scroll-pause", scrollPauseDefault, "Pause after each scroll pass")
	locateTimeout := flag.Duration("locate-timeout", locateDefault, "How long to wait for the reviews panel")
	targetTimeout := flag.Duration("target-timeout", targetTimeoutDefault, "Overall time budget per target URL")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	values, err := config.LoadEnvFile(*envFile)
	if err != nil {
		slog.Error("loading env file", slog.Any("error", err))
		os.Exit(1)
	}

	cfg := config.DefaultConfig()
	cfg.DriverPath = values[config.KeyDriverLocation]
	cfg.RemoteURL = *remoteURL
	cfg.Headless = *headless
	cfg.Locale = *locale
	cfg.StabilityRounds = *stabilityRounds
	cfg.MaxScrollPasses = *maxPasses
	cfg.ScrollPause = *scrollPause
	cfg.LocateTimeout = *locateTimeout
	cfg.TargetTimeout = *targetTimeout
	cfg.OutputDir = *outputDir
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr

	if args := config.CleanTargets(flag.Args()); len(args) > 0 {
		cfg.URLs = args
	} else if targets, err := config.TargetsFromValues(values); err == nil {
		cfg.URLs = targets
	}

	if err := cfg.Validate(); err != nil {
		if errors.Is(err, config.ErrNoTargets) {
			slog.Error("no target URLs: set URLS or URL in the env file, or pass them as arguments",
				slog.String("env_file", *envFile))
		} else {
			slog.Error("invalid configuration", slog.Any("error", err))
		}
		os.Exit(1)
	}

	targets := models.TargetList(cfg.Targets())
	slog.Info("starting scrape",
		slog.Int("targets", len(targets)),
		slog.String("locale", cfg.Locale),
		slog.String("format", cfg.OutputFormat),
		slog.Bool("remote", cfg.RemoteURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, closing the current session")
	}()

	s := scraper.NewScraper(cfg, browser.NewLauncher(cfg))

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" && s.Metrics != nil {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: s.Metrics.Handler(),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := s.Run(ctx, targets)
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result)
}

func mustEnvInt(key string, fallback int) int {
	value, ok, err := config.EnvInt(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %v\n", key, err)
		os.Exit(1)
	}
	if !ok {
		return fallback
	}
	return value
}

func mustEnvBool(key string, fallback bool) bool {
	value, ok, err := config.EnvBool(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %v\n", key, err)
		os.Exit(1)
	}
	if !ok {
		return fallback
	}
	return value
}

func mustEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok, err := config.EnvDuration(key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid %s: %v\n", key, err)
		os.Exit(1)
	}
	if !ok {
		return fallback
	}
	return value
}

func printSummary(result *models.ScraperResult) {
	separator := "--------------------------------------------------"
	duration := result.EndTime.Sub(result.StartTime)

	fmt.Println("\n" + separator)
	fmt.Println("Scrape complete")
	fmt.Printf("  Targets:       %d\n", result.Targets)
	fmt.Printf("  Reviews:       %d\n", result.ReviewCount)
	fmt.Printf("  Files:         %d\n", len(result.Files))
	for _, file := range result.Files {
		fmt.Printf("    %s\n", file)
	}
	if len(result.EmptyURLs) > 0 {
		fmt.Printf("  No reviews:    %d\n", len(result.EmptyURLs))
	}
	fmt.Printf("  Failed URLs:   %d\n", len(result.FailedURLs))
	for _, u := range result.FailedURLs {
		fmt.Printf("    %s\n", u)
	}
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	fmt.Printf("  Duration:      %v\n", duration.Round(time.Millisecond))
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
