package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/models"
)

func TestScrollStopCases(t *testing.T) {
	growing := make([]int, 200)
	for i := range growing {
		growing[i] = 10 * (i + 1)
	}

	tests := []struct {
		name       string
		counts     []int
		rounds     int
		maxPasses  int
		wantPasses int
		wantCards  int
		wantReason string
	}{
		{
			name:       "never grows past first batch",
			counts:     []int{10},
			rounds:     3,
			maxPasses:  50,
			wantPasses: 4,
			wantCards:  10,
			wantReason: models.StopConverged,
		},
		{
			name:       "grows then converges",
			counts:     []int{10, 20, 30, 30, 30},
			rounds:     2,
			maxPasses:  50,
			wantPasses: 4,
			wantCards:  30,
			wantReason: models.StopConverged,
		},
		{
			name:       "unbounded growth hits the cap",
			counts:     growing,
			rounds:     3,
			maxPasses:  25,
			wantPasses: 25,
			wantCards:  260,
			wantReason: models.StopMaxPasses,
		},
		{
			name:       "oscillation never counts as stagnant",
			counts:     []int{10, 20, 10, 20, 10, 20, 10, 20, 10, 20, 10, 20, 10},
			rounds:     2,
			maxPasses:  12,
			wantPasses: 12,
			wantCards:  10,
			wantReason: models.StopMaxPasses,
		},
		{
			name:       "zero cards stops before scrolling",
			counts:     []int{0},
			rounds:     3,
			maxPasses:  50,
			wantPasses: 0,
			wantCards:  0,
			wantReason: models.StopEmpty,
		},
		{
			name:       "single pass cap",
			counts:     []int{10, 20},
			rounds:     3,
			maxPasses:  1,
			wantPasses: 1,
			wantCards:  20,
			wantReason: models.StopMaxPasses,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			panel := &fakePanel{counts: tt.counts}
			outcome, err := Scroll(context.Background(), panel, ScrollOptions{
				StabilityRounds: tt.rounds,
				MaxPasses:       tt.maxPasses,
			})
			if err != nil {
				t.Fatalf("scroll: %v", err)
			}
			if outcome.Passes != tt.wantPasses || outcome.Cards != tt.wantCards || outcome.Reason != tt.wantReason {
				t.Fatalf("outcome=%+v, want passes=%d cards=%d reason=%s", outcome, tt.wantPasses, tt.wantCards, tt.wantReason)
			}
			if panel.scrolls != tt.wantPasses {
				t.Fatalf("scrolls=%d, want %d", panel.scrolls, tt.wantPasses)
			}
		})
	}
}

// A streak of no-growth passes starting at pass k stops the scroll at pass
// k+rounds-1, for any k.
func TestScrollStopsAfterStagnantStreak(t *testing.T) {
	const rounds = 4
	for k := 2; k <= 8; k++ {
		// Pass p observes counts[p]; passes 1..k-1 grow, pass k repeats.
		counts := make([]int, 0, k+rounds+2)
		for i := 0; i < k; i++ {
			counts = append(counts, 5*(i+1))
		}
		panel := &fakePanel{counts: counts}

		outcome, err := Scroll(context.Background(), panel, ScrollOptions{StabilityRounds: rounds, MaxPasses: 100})
		if err != nil {
			t.Fatalf("k=%d: scroll: %v", k, err)
		}
		if want := k + rounds - 1; outcome.Passes != want {
			t.Fatalf("k=%d: passes=%d, want %d", k, outcome.Passes, want)
		}
		if outcome.Reason != models.StopConverged {
			t.Fatalf("k=%d: reason=%s", k, outcome.Reason)
		}
	}
}

func TestScrollChangeResetsStreak(t *testing.T) {
	// Two stagnant passes, then growth, then three stagnant passes.
	panel := &fakePanel{counts: []int{10, 20, 20, 20, 30, 30, 30, 30}}
	outcome, err := Scroll(context.Background(), panel, ScrollOptions{StabilityRounds: 3, MaxPasses: 100})
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if outcome.Passes != 7 {
		t.Fatalf("passes=%d, want 7", outcome.Passes)
	}

	// A shrink resets the streak just like growth does.
	panel = &fakePanel{counts: []int{10, 20, 20, 15, 15, 15, 15}}
	outcome, err = Scroll(context.Background(), panel, ScrollOptions{StabilityRounds: 3, MaxPasses: 100})
	if err != nil {
		t.Fatalf("scroll: %v", err)
	}
	if outcome.Passes != 6 || outcome.Cards != 15 {
		t.Fatalf("outcome=%+v, want 6 passes with 15 cards", outcome)
	}
}

func TestScrollPanelErrors(t *testing.T) {
	boom := errors.New("target closed")

	_, err := Scroll(context.Background(), &fakePanel{countErr: boom}, ScrollOptions{StabilityRounds: 1, MaxPasses: 5})
	if !errors.Is(err, boom) {
		t.Fatalf("count err=%v, want %v", err, boom)
	}

	_, err = Scroll(context.Background(), &fakePanel{counts: []int{3}, scrollErr: boom}, ScrollOptions{StabilityRounds: 1, MaxPasses: 5})
	if !errors.Is(err, boom) {
		t.Fatalf("scroll err=%v, want %v", err, boom)
	}
}

func TestScrollHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	panel := &fakePanel{counts: []int{10, 20, 30}}
	outcome, err := Scroll(ctx, panel, ScrollOptions{Pause: time.Hour, StabilityRounds: 3, MaxPasses: 10})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err=%v, want context.Canceled", err)
	}
	if outcome.Passes != 1 {
		t.Fatalf("passes=%d, want 1", outcome.Passes)
	}
}
