package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/browser"
)

// Expand clicks every "more" control in panel so truncated review bodies
// render in full. Each click is independent; a failed one is skipped.
func Expand(ctx context.Context, panel browser.Panel, pause time.Duration) (expanded, failed int) {
	controls, err := panel.ExpandControls(ctx)
	if err != nil {
		slog.Debug("listing expand controls failed", slog.Any("error", err))
		return 0, 0
	}

	for _, control := range controls {
		if ctx.Err() != nil {
			break
		}
		if bestEffort(ctx, "expand review", control.Click) {
			expanded++
		} else {
			failed++
		}
		_ = sleepCtx(ctx, pause)
	}
	return expanded, failed
}
