// Package browser is the Chrome automation surface used by the scraper:
// navigation, readiness, node-scoped scripts and panel queries.
package browser

import "context"

// Session is one browser tab bound to a single target URL.
type Session interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL(ctx context.Context) (string, error)
	ReadyState(ctx context.Context) (string, error)
	// SubmitFirstForm submits document.forms[0]; it errors when the page
	// has no form.
	SubmitFirstForm(ctx context.Context) error
	// FindPanel returns the reviews panel, or nil when no candidate
	// satisfies the panel predicate yet.
	FindPanel(ctx context.Context) (Panel, error)
	Close() error
}

// Panel is the scrollable container holding the review cards.
type Panel interface {
	Focus(ctx context.Context) error
	CountCards(ctx context.Context) (int, error)
	ScrollToBottom(ctx context.Context) error
	ExpandControls(ctx context.Context) ([]Control, error)
	OuterHTML(ctx context.Context) (string, error)
}

// Control is a clickable element inside the panel.
type Control interface {
	Click(ctx context.Context) error
}
