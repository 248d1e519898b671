package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ErrNoTargets is returned when no usable target URL was configured.
var ErrNoTargets = errors.New("no target URLs configured")

// Config holds scraper configuration.
type Config struct {
	URLs []string

	DriverPath string
	RemoteURL  string
	Headless   bool
	Locale     string
	UserAgent  string

	PageLoadTimeout   time.Duration
	ReadyPollInterval time.Duration
	LocateTimeout     time.Duration
	ConsentPause      time.Duration
	TargetTimeout     time.Duration

	ScrollPause     time.Duration
	StabilityRounds int
	MaxScrollPasses int
	ExpandPause     time.Duration

	OutputDir     string
	OutputFormat  string // csv, json, or dual
	BatchSize     int
	DedupeMaxSize int

	Verbose     bool
	MetricsAddr string
}

// DefaultConfig returns the defaults used against the live site.
func DefaultConfig() *Config {
	return &Config{
		Headless:          true,
		Locale:            "es-ES",
		UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		PageLoadTimeout:   30 * time.Second,
		ReadyPollInterval: time.Second,
		LocateTimeout:     15 * time.Second,
		ConsentPause:      2 * time.Second,
		TargetTimeout:     45 * time.Minute,
		ScrollPause:       2 * time.Second,
		StabilityRounds:   10,
		MaxScrollPasses:   800,
		ExpandPause:       100 * time.Millisecond,
		OutputDir:         ".",
		OutputFormat:      "csv",
		BatchSize:         64,
		DedupeMaxSize:     10000,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if len(CleanTargets(c.URLs)) == 0 {
		return ErrNoTargets
	}
	for _, raw := range CleanTargets(c.URLs) {
		if targetHost(raw) == "" {
			return fmt.Errorf("target URL %q must include a scheme and host", raw)
		}
	}

	if c.RemoteURL != "" {
		parsed, err := url.Parse(c.RemoteURL)
		if err != nil {
			return fmt.Errorf("invalid remote URL: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("remote URL must include a host")
		}
	}
	if strings.TrimSpace(c.Locale) == "" {
		return fmt.Errorf("locale cannot be empty")
	}
	if c.PageLoadTimeout <= 0 {
		return fmt.Errorf("page load timeout must be positive")
	}
	if c.ReadyPollInterval <= 0 {
		return fmt.Errorf("ready poll interval must be positive")
	}
	if c.LocateTimeout <= 0 {
		return fmt.Errorf("locate timeout must be positive")
	}
	if c.ConsentPause < 0 {
		return fmt.Errorf("consent pause cannot be negative")
	}
	if c.TargetTimeout <= 0 {
		return fmt.Errorf("target timeout must be positive")
	}
	if c.ScrollPause < 0 {
		return fmt.Errorf("scroll pause cannot be negative")
	}
	if c.StabilityRounds <= 0 {
		return fmt.Errorf("stability rounds must be positive")
	}
	if c.MaxScrollPasses <= 0 {
		return fmt.Errorf("max scroll passes must be positive")
	}
	if c.ExpandPause < 0 {
		return fmt.Errorf("expand pause cannot be negative")
	}
	if c.OutputDir == "" {
		return fmt.Errorf("output dir cannot be empty")
	}
	if c.OutputFormat != "csv" && c.OutputFormat != "json" && c.OutputFormat != "dual" {
		return fmt.Errorf("output format must be csv, json, or dual")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.DedupeMaxSize < 0 {
		return fmt.Errorf("dedupe max size cannot be negative")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}

	return nil
}

// targetHost returns the host of an absolute http(s) URL, or "". Maps URLs
// may carry a literal '%' that url.Parse rejects but the browser loads, so
// only the scheme and host are checked here.
func targetHost(raw string) string {
	scheme, rest, found := strings.Cut(raw, "://")
	if !found {
		return ""
	}
	switch strings.ToLower(scheme) {
	case "http", "https":
	default:
		return ""
	}
	if end := strings.IndexAny(rest, "/?#"); end != -1 {
		rest = rest[:end]
	}
	return rest
}

// Targets returns the cleaned target list.
func (c *Config) Targets() []string {
	return CleanTargets(c.URLs)
}

// CleanTargets trims every URL and drops empty entries, keeping order.
func CleanTargets(urls []string) []string {
	cleaned := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u != "" {
			cleaned = append(cleaned, u)
		}
	}
	return cleaned
}
