package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/aluiziolira/go-scrape-reviews/browser"
	"github.com/aluiziolira/go-scrape-reviews/config"
)

// fakePanel reports counts[i] cards after i scrolls; the last value repeats.
type fakePanel struct {
	counts    []int
	scrolls   int
	countErr  error
	scrollErr error
	controls  []browser.Control
	html      string
	focused   bool
}

func (p *fakePanel) Focus(context.Context) error {
	p.focused = true
	return nil
}

func (p *fakePanel) CountCards(context.Context) (int, error) {
	if p.countErr != nil {
		return 0, p.countErr
	}
	if len(p.counts) == 0 {
		return 0, nil
	}
	idx := p.scrolls
	if idx >= len(p.counts) {
		idx = len(p.counts) - 1
	}
	return p.counts[idx], nil
}

func (p *fakePanel) ScrollToBottom(context.Context) error {
	if p.scrollErr != nil {
		return p.scrollErr
	}
	p.scrolls++
	return nil
}

func (p *fakePanel) ExpandControls(context.Context) ([]browser.Control, error) {
	return p.controls, nil
}

func (p *fakePanel) OuterHTML(context.Context) (string, error) {
	return p.html, nil
}

type fakeControl struct {
	err     error
	clicked int
}

func (c *fakeControl) Click(context.Context) error {
	c.clicked++
	return c.err
}

type fakeSession struct {
	mu sync.Mutex

	url         string
	navErr      error
	readyAfter  int
	readyCalls  int
	consentURL  string
	submitErr   error
	submitted   int
	panel       browser.Panel
	panelAfter  int
	findCalls   int
	navigations []string
	closed      bool
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.navigations = append(s.navigations, url)
	if s.navErr != nil {
		return s.navErr
	}
	s.url = url
	if s.consentURL != "" {
		s.url = s.consentURL
	}
	return nil
}

func (s *fakeSession) CurrentURL(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.url, nil
}

func (s *fakeSession) ReadyState(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readyCalls++
	if s.readyCalls > s.readyAfter {
		return "complete", nil
	}
	return "loading", nil
}

func (s *fakeSession) SubmitFirstForm(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted++
	if s.submitErr != nil {
		return s.submitErr
	}
	if len(s.navigations) > 0 {
		s.url = s.navigations[len(s.navigations)-1]
	}
	return nil
}

func (s *fakeSession) FindPanel(context.Context) (browser.Panel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.findCalls++
	if s.panel == nil || s.findCalls <= s.panelAfter {
		return nil, nil
	}
	return s.panel, nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// fakeOpener hands out sessions in order.
type fakeOpener struct {
	sessions []*fakeSession
	opened   int
	openErr  error
}

func (o *fakeOpener) Open(context.Context) (browser.Session, error) {
	if o.openErr != nil {
		return nil, o.openErr
	}
	if o.opened >= len(o.sessions) {
		return nil, errors.New("no more fake sessions")
	}
	s := o.sessions[o.opened]
	o.opened++
	return s, nil
}

func testConfig(dir string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.OutputDir = dir
	cfg.ScrollPause = 0
	cfg.ExpandPause = 0
	cfg.ConsentPause = 0
	cfg.ReadyPollInterval = time.Millisecond
	cfg.PageLoadTimeout = 200 * time.Millisecond
	cfg.LocateTimeout = 50 * time.Millisecond
	cfg.StabilityRounds = 3
	cfg.MaxScrollPasses = 50
	return cfg
}

type cardFields struct {
	id     string
	name   *string
	label  *string
	text   *string
	date   *string
	expand bool
}

func str(s string) *string { return &s }

func buildCard(f cardFields) string {
	var b strings.Builder
	if f.id != "" {
		fmt.Fprintf(&b, `<div class="jftiEf fontBodyMedium" data-review-id="%s">`, f.id)
	} else {
		b.WriteString(`<div class="jftiEf fontBodyMedium">`)
	}
	if f.name != nil {
		fmt.Fprintf(&b, `<button><div class="d4r55 fontTitleMedium">%s</div></button>`, *f.name)
	}
	if f.label != nil {
		fmt.Fprintf(&b, `<span class="kvMYJc" role="img" aria-label="%s"></span>`, *f.label)
	}
	if f.date != nil {
		fmt.Fprintf(&b, `<span class="rsqaWe">%s</span>`, *f.date)
	}
	if f.text != nil {
		fmt.Fprintf(&b, `<div class="MyEned"><span class="wiI7pd">%s</span></div>`, *f.text)
	}
	if f.expand {
		b.WriteString(`<button class="w8nwRe kyuRq">Más</button>`)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func buildPanel(cards ...string) string {
	return `<div class="m6QErb DxyBCb kA9KIf dS8AEf" tabindex="-1">` + strings.Join(cards, "") + `</div>`
}

func fullCard(id, name, label, text, date string) string {
	return buildCard(cardFields{id: id, name: str(name), label: str(label), text: str(text), date: str(date)})
}
