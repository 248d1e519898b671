package scraper

import (
	"context"
	"strings"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/browser"
	"github.com/aluiziolira/go-scrape-reviews/markup"
)

// dismissConsent submits the consent interstitial's form when the session
// was redirected to it. It is a no-op everywhere else.
func dismissConsent(ctx context.Context, session browser.Session, pause time.Duration) error {
	current, err := session.CurrentURL(ctx)
	if err != nil {
		return err
	}
	if !strings.Contains(current, markup.ConsentHost) {
		return nil
	}
	if err := session.SubmitFirstForm(ctx); err != nil {
		return err
	}
	return sleepCtx(ctx, pause)
}
