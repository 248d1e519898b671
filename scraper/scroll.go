package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/browser"
	"github.com/aluiziolira/go-scrape-reviews/models"
)

// ScrollOptions tunes the convergent scroll.
type ScrollOptions struct {
	Pause           time.Duration
	StabilityRounds int
	MaxPasses       int
}

// Scroll loads review cards by repeatedly scrolling panel to its bottom
// until the card count stops growing for StabilityRounds consecutive passes,
// or MaxPasses passes have run. Only a count equal to the previous pass's
// count counts as stagnant; any change, including a shrink, resets the
// streak.
func Scroll(ctx context.Context, panel browser.Panel, opts ScrollOptions) (models.ScrollOutcome, error) {
	state := models.ScrollState{}
	outcome := models.ScrollOutcome{Reason: models.StopMaxPasses}

	for state.Pass = 1; state.Pass <= opts.MaxPasses; state.Pass++ {
		before, err := panel.CountCards(ctx)
		if err != nil {
			return outcome, fmt.Errorf("count cards: %w", err)
		}
		outcome.Cards = before
		if before == 0 {
			outcome.Reason = models.StopEmpty
			break
		}

		if err := panel.ScrollToBottom(ctx); err != nil {
			return outcome, fmt.Errorf("scroll pass %d: %w", state.Pass, err)
		}
		outcome.Passes = state.Pass
		if err := sleepCtx(ctx, opts.Pause); err != nil {
			return outcome, err
		}

		after, err := panel.CountCards(ctx)
		if err != nil {
			return outcome, fmt.Errorf("count cards: %w", err)
		}
		outcome.Cards = after
		slog.Debug("scroll pass",
			slog.Int("pass", state.Pass),
			slog.Int("cards", after),
			slog.Int("previous", state.PreviousCount),
		)

		if after == state.PreviousCount {
			state.StagnantRounds++
			if state.StagnantRounds >= opts.StabilityRounds {
				outcome.Reason = models.StopConverged
				break
			}
			continue
		}
		state.StagnantRounds = 0
		state.PreviousCount = after
	}

	return outcome, nil
}
