// Package models defines data structures for the scraper.
package models

import "time"

// Fallback values substituted when a card lacks the matching sub-element.
const (
	FallbackName   = "Unknown"
	FallbackRating = "-"
	FallbackText   = ""
)

// Review represents one review card extracted from the reviews panel.
type Review struct {
	ID       int    `csv:"id" json:"id"`
	Name     string `csv:"name" json:"name"`
	Text     string `csv:"comment" json:"comment"`
	Rating   string `csv:"rating" json:"rating"`
	Date     string `csv:"review_date" json:"review_date"`
	ReviewID string `csv:"-" json:"review_id,omitempty"`
}

// ScrollState is the transient state of one convergent scroll.
type ScrollState struct {
	PreviousCount  int
	StagnantRounds int
	Pass           int
}

// Stop reasons reported by the scroller.
const (
	StopEmpty     = "empty"
	StopConverged = "converged"
	StopMaxPasses = "max_passes"
)

// ScrollOutcome summarises a finished scroll.
type ScrollOutcome struct {
	Passes int
	Cards  int
	Reason string
}

// TargetList is the ordered, read-only list of URLs to scrape.
type TargetList []string

// ScraperResult holds the overall result of a scraping run
type ScraperResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Targets      int
	Files        []string
	EmptyURLs    []string
	FailedURLs   []string
	ErrorsByType map[string]int
	ReviewCount  int
}
