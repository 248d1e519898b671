package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/browser"
	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/models"
	"github.com/aluiziolira/go-scrape-reviews/parser"
	"github.com/aluiziolira/go-scrape-reviews/pipeline"
)

const locatePollInterval = 500 * time.Millisecond

// Target outcomes reported in metrics.
const (
	outcomeWritten = "written"
	outcomeEmpty   = "empty"
	outcomeFailed  = "failed"
)

// Opener opens one browser session per target.
type Opener interface {
	Open(ctx context.Context) (browser.Session, error)
}

// Scraper runs the open, scroll, expand, extract and save sequence for each
// target URL, one browser session at a time.
type Scraper struct {
	cfg     *config.Config
	opener  Opener
	Metrics *Metrics

	mu           sync.Mutex
	errorsByType map[string]int
	slugs        map[string]string
}

// NewScraper builds a scraper instance configured from cfg.
func NewScraper(cfg *config.Config, opener Opener) *Scraper {
	return &Scraper{
		cfg:          cfg,
		opener:       opener,
		Metrics:      NewMetrics(),
		errorsByType: make(map[string]int),
		slugs:        make(map[string]string),
	}
}

// Run scrapes every target in order. A failing target is logged and
// skipped; only cancellation of ctx stops the run early.
func (s *Scraper) Run(ctx context.Context, targets models.TargetList) (*models.ScraperResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	result := &models.ScraperResult{
		StartTime: time.Now(),
		Targets:   len(targets),
	}

	for _, target := range targets {
		if ctx.Err() != nil {
			slog.Info("run cancelled, skipping remaining targets", slog.String("next", target))
			break
		}
		slog.Info("scraping target", slog.String("url", target))

		reviews, err := s.scrapeTarget(ctx, target)
		if err != nil {
			s.recordError(target, err)
			result.FailedURLs = append(result.FailedURLs, target)
			s.Metrics.IncTarget(outcomeFailed)
			continue
		}
		if len(reviews) == 0 {
			slog.Warn("no data written", slog.String("url", target))
			result.EmptyURLs = append(result.EmptyURLs, target)
			s.Metrics.IncTarget(outcomeEmpty)
			continue
		}

		path, written, err := s.save(target, reviews)
		if err != nil {
			s.recordError(target, err)
			result.FailedURLs = append(result.FailedURLs, target)
			s.Metrics.IncTarget(outcomeFailed)
			continue
		}
		slog.Info("file saved", slog.String("path", path), slog.Int("reviews", written))
		result.Files = append(result.Files, path)
		result.ReviewCount += written
		s.Metrics.AddReviews(written)
		s.Metrics.IncTarget(outcomeWritten)
	}

	result.EndTime = time.Now()
	result.ErrorsByType = s.snapshotErrors()
	return result, nil
}

// scrapeTarget wraps ScrapeURL so a panic while handling one target is
// reported as that target's error instead of ending the run.
func (s *Scraper) scrapeTarget(ctx context.Context, target string) (reviews []*models.Review, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while scraping: %v", r)
		}
	}()
	return s.ScrapeURL(ctx, target)
}

// ScrapeURL opens a session for target and returns its reviews in DOM
// order. The session is closed before returning, whatever the outcome.
func (s *Scraper) ScrapeURL(ctx context.Context, target string) ([]*models.Review, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.TargetTimeout)
	defer cancel()

	start := time.Now()
	session, err := s.opener.Open(ctx)
	if err != nil {
		return nil, ErrSession{Err: err}
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("closing browser session", slog.String("url", target), slog.Any("error", err))
		}
		s.Metrics.ObserveSession(time.Since(start))
	}()

	if err := session.Navigate(ctx, target); err != nil {
		return nil, ErrNavigation{URL: target, Err: err}
	}
	if err := s.waitLoaded(ctx, session); err != nil {
		return nil, err
	}
	bestEffort(ctx, "dismiss consent", func(ctx context.Context) error {
		return dismissConsent(ctx, session, s.cfg.ConsentPause)
	})
	if err := s.waitLoaded(ctx, session); err != nil {
		return nil, err
	}

	panel, err := s.locatePanel(ctx, session)
	if err != nil {
		return nil, err
	}
	bestEffort(ctx, "focus panel", panel.Focus)

	outcome, err := Scroll(ctx, panel, ScrollOptions{
		Pause:           s.cfg.ScrollPause,
		StabilityRounds: s.cfg.StabilityRounds,
		MaxPasses:       s.cfg.MaxScrollPasses,
	})
	if err != nil {
		return nil, fmt.Errorf("scroll reviews: %w", err)
	}
	s.Metrics.ObserveScroll(outcome)
	slog.Info("scroll completed",
		slog.Int("reviews_detected", outcome.Cards),
		slog.Int("passes", outcome.Passes),
		slog.String("reason", outcome.Reason),
	)

	expanded, failed := Expand(ctx, panel, s.cfg.ExpandPause)
	s.Metrics.AddExpandFailures(failed)
	slog.Debug("expanded long reviews", slog.Int("expanded", expanded), slog.Int("failed", failed))

	snapshot, err := panel.OuterHTML(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot reviews panel: %w", err)
	}
	reviews, fallbacks, err := ExtractReviews(target, snapshot)
	if err != nil {
		return nil, err
	}
	s.Metrics.AddFallbacks(fallbacks)

	for i, review := range reviews {
		slog.Debug("review extracted",
			slog.Int("index", i+1),
			slog.String("name", review.Name),
			slog.String("rating", review.Rating),
			slog.String("snippet", parser.Snippet(review.Text, 60)),
		)
	}
	return reviews, nil
}

func (s *Scraper) waitLoaded(ctx context.Context, session browser.Session) error {
	err := WaitUntil(ctx, s.cfg.ReadyPollInterval, s.cfg.PageLoadTimeout, func(ctx context.Context) (bool, error) {
		state, err := session.ReadyState(ctx)
		if err != nil {
			return false, err
		}
		return state == "complete", nil
	})
	if err != nil {
		return ErrPageLoad{Err: err}
	}
	return nil
}

func (s *Scraper) locatePanel(ctx context.Context, session browser.Session) (browser.Panel, error) {
	var panel browser.Panel
	err := WaitUntil(ctx, locatePollInterval, s.cfg.LocateTimeout, func(ctx context.Context) (bool, error) {
		found, err := session.FindPanel(ctx)
		if err != nil {
			return false, err
		}
		panel = found
		return found != nil, nil
	})
	if err != nil {
		var timeout ErrTimeout
		if errors.As(err, &timeout) {
			return nil, ErrLocateTimeout{Timeout: s.cfg.LocateTimeout, Err: err}
		}
		return nil, fmt.Errorf("locate reviews panel: %w", err)
	}
	return panel, nil
}

// save numbers reviews and writes them to the output named after target's
// business slug.
func (s *Scraper) save(target string, reviews []*models.Review) (string, int, error) {
	slug := parser.BusinessSlug(target)
	s.mu.Lock()
	if previous, ok := s.slugs[slug]; ok && previous != target {
		slog.Warn("output name reused, earlier file will be overwritten",
			slog.String("slug", slug),
			slog.String("previous_url", previous),
		)
	}
	s.slugs[slug] = target
	s.mu.Unlock()

	writer, path, err := pipeline.NewWriter(s.cfg.OutputFormat, filepath.Join(s.cfg.OutputDir, slug))
	if err != nil {
		return "", 0, fmt.Errorf("create writer: %w", err)
	}

	p, err := pipeline.NewPipeline(writer, s.cfg)
	if err != nil {
		writer.Close()
		return "", 0, err
	}
	processErr := p.Process(reviews...)
	closeErr := p.Close()
	writerErr := writer.Close()
	if err := errors.Join(processErr, closeErr, writerErr); err != nil {
		return "", 0, fmt.Errorf("write %s: %w", path, err)
	}
	if err := writer.Validate(); err != nil {
		return "", 0, fmt.Errorf("validate %s: %w", path, err)
	}
	if duplicates := p.Skipped()[pipeline.SkipDuplicate]; duplicates > 0 {
		slog.Info("repeated review cards skipped",
			slog.String("url", target),
			slog.Int("duplicates", duplicates),
		)
		s.Metrics.AddDuplicates(duplicates)
	}
	return path, p.Written(), nil
}

func (s *Scraper) recordError(target string, err error) {
	category := errorTypeLabel(err)
	s.mu.Lock()
	s.errorsByType[category]++
	s.mu.Unlock()

	slog.Error("target failed",
		slog.String("url", target),
		slog.String("category", category),
		slog.Any("error", err),
	)
	s.Metrics.IncError(category)
}

func (s *Scraper) snapshotErrors() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.errorsByType))
	for k, v := range s.errorsByType {
		out[k] = v
	}
	return out
}
