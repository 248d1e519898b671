package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/aluiziolira/go-scrape-reviews/config"
	"github.com/aluiziolira/go-scrape-reviews/markup"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// ErrNoForm is returned by SubmitFirstForm when the page has no form.
var ErrNoForm = errors.New("page has no form")

// Launcher opens Chrome sessions, either by starting a local binary or by
// attaching to a running browser's DevTools endpoint.
type Launcher struct {
	cfg *config.Config
}

// NewLauncher builds a launcher configured from cfg.
func NewLauncher(cfg *config.Config) *Launcher {
	return &Launcher{cfg: cfg}
}

// Open starts a browser tab with the configured locale applied.
func (l *Launcher) Open(ctx context.Context) (Session, error) {
	allocCtx, cancelAlloc := l.allocator(ctx)

	tabCtx, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(chromeLogf(slog.LevelDebug)),
		chromedp.WithErrorf(chromeLogf(slog.LevelDebug)),
	)
	s := &chromeSession{
		ctx: tabCtx,
		cancel: func() {
			cancelTab()
			cancelAlloc()
		},
	}

	// The first Run allocates the browser, so it must use the tab context
	// itself rather than a derived one.
	if err := chromedp.Run(tabCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": AcceptLanguage(l.cfg.Locale)}),
		emulation.SetLocaleOverride().WithLocale(ICULocale(l.cfg.Locale)),
	); err != nil {
		s.Close()
		return nil, fmt.Errorf("start browser: %w", err)
	}
	return s, nil
}

// allocator attaches to RemoteURL when set. chromedp resolves an http
// DevTools endpoint to its websocket URL through /json/version.
func (l *Launcher) allocator(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.cfg.RemoteURL != "" {
		return chromedp.NewRemoteAllocator(ctx, l.cfg.RemoteURL)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", l.cfg.Headless),
		chromedp.Flag("lang", l.cfg.Locale),
		chromedp.Flag("accept-lang", AcceptLanguage(l.cfg.Locale)),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.UserAgent(l.cfg.UserAgent),
		chromedp.WindowSize(1280, 900),
	)
	if path := strings.TrimSpace(l.cfg.DriverPath); path != "" {
		opts = append(opts, chromedp.ExecPath(path))
	}
	return chromedp.NewExecAllocator(ctx, opts...)
}

// AcceptLanguage builds an Accept-Language value preferring locale, e.g.
// "es-ES" gives "es-ES,es;q=0.9".
func AcceptLanguage(locale string) string {
	locale = strings.TrimSpace(locale)
	primary, _, found := strings.Cut(locale, "-")
	if !found || primary == "" {
		return locale
	}
	return locale + "," + primary + ";q=0.9"
}

// ICULocale converts a BCP 47 tag to the ICU form DevTools expects.
func ICULocale(locale string) string {
	return strings.ReplaceAll(strings.TrimSpace(locale), "-", "_")
}

func chromeLogf(level slog.Level) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		slog.Log(context.Background(), level, "chromedp", slog.String("detail", fmt.Sprintf(format, args...)))
	}
}

type chromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
	closeErr  error
}

// run executes actions on the tab while honouring ctx's deadline. Cancelling
// a context derived from the tab context stops the actions without closing
// the tab.
func (s *chromeSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *chromeSession) CurrentURL(ctx context.Context) (string, error) {
	var location string
	if err := s.run(ctx, chromedp.Location(&location)); err != nil {
		return "", err
	}
	return location, nil
}

func (s *chromeSession) ReadyState(ctx context.Context) (string, error) {
	var state string
	if err := s.run(ctx, chromedp.Evaluate(`document.readyState`, &state)); err != nil {
		return "", err
	}
	return state, nil
}

func (s *chromeSession) SubmitFirstForm(ctx context.Context) error {
	var submitted bool
	script := `(function() {
		const form = document.getElementsByTagName("form")[0];
		if (!form) { return false; }
		form.submit();
		return true;
	})()`
	if err := s.run(ctx, chromedp.Evaluate(script, &submitted)); err != nil {
		return err
	}
	if !submitted {
		return ErrNoForm
	}
	return nil
}

func (s *chromeSession) FindPanel(ctx context.Context) (Panel, error) {
	var candidates []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(markup.PanelSelector, &candidates, chromedp.ByQueryAll, chromedp.AtLeast(0))); err != nil {
		return nil, err
	}
	for _, candidate := range candidates {
		if candidate.AttributeValue("tabindex") != markup.PanelTabIndex {
			continue
		}
		markers, err := s.descendants(ctx, candidate.NodeID, markup.PanelCardMarker)
		if err != nil {
			return nil, err
		}
		if len(markers) > 0 {
			return &chromePanel{session: s, node: candidate.NodeID}, nil
		}
	}
	return nil, nil
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(func() {
		err := chromedp.Cancel(s.ctx)
		s.cancel()
		if err != nil && !errors.Is(err, context.Canceled) {
			s.closeErr = fmt.Errorf("close browser: %w", err)
		}
	})
	return s.closeErr
}

// descendants lists the nodes under parent matching selector with a single
// DOM.querySelectorAll. Unlike chromedp's query actions it does not retry,
// so a parent detached by a re-render fails immediately.
func (s *chromeSession) descendants(ctx context.Context, parent cdp.NodeID, selector string) ([]cdp.NodeID, error) {
	var ids []cdp.NodeID
	err := s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		found, err := dom.QuerySelectorAll(parent, selector).Do(ctx)
		if err != nil {
			return fmt.Errorf("query %q: %w", selector, err)
		}
		ids = found
		return nil
	}))
	return ids, err
}

// callOn runs fn with `this` bound to node and decodes its return value
// into res when res is non-nil.
func (s *chromeSession) callOn(ctx context.Context, node cdp.NodeID, fn string, res interface{}) error {
	return s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		obj, err := dom.ResolveNode().WithNodeID(node).Do(ctx)
		if err != nil {
			return fmt.Errorf("resolve node: %w", err)
		}
		defer runtime.ReleaseObject(obj.ObjectID).Do(ctx)

		value, exception, err := runtime.CallFunctionOn(fn).
			WithObjectID(obj.ObjectID).
			WithReturnByValue(true).
			Do(ctx)
		if err != nil {
			return fmt.Errorf("call function: %w", err)
		}
		if exception != nil {
			return fmt.Errorf("script exception: %s", exception.Text)
		}
		if res == nil || value == nil || len(value.Value) == 0 {
			return nil
		}
		return json.Unmarshal([]byte(value.Value), res)
	}))
}

type chromePanel struct {
	session *chromeSession
	node    cdp.NodeID
}

func (p *chromePanel) Focus(ctx context.Context) error {
	return p.session.callOn(ctx, p.node, `function() { this.focus(); }`, nil)
}

func (p *chromePanel) CountCards(ctx context.Context) (int, error) {
	var count int
	fn := fmt.Sprintf(`function() { return this.querySelectorAll(%s).length; }`, jsString(markup.CardSelector))
	if err := p.session.callOn(ctx, p.node, fn, &count); err != nil {
		return 0, err
	}
	return count, nil
}

func (p *chromePanel) ScrollToBottom(ctx context.Context) error {
	return p.session.callOn(ctx, p.node, `function() { this.scrollTop = this.scrollHeight; }`, nil)
}

func (p *chromePanel) ExpandControls(ctx context.Context) ([]Control, error) {
	buttons, err := p.session.descendants(ctx, p.node, markup.ExpandSelector)
	if err != nil {
		return nil, err
	}
	controls := make([]Control, 0, len(buttons))
	for _, button := range buttons {
		controls = append(controls, &chromeControl{session: p.session, node: button})
	}
	return controls, nil
}

func (p *chromePanel) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := p.session.callOn(ctx, p.node, `function() { return this.outerHTML; }`, &html); err != nil {
		return "", err
	}
	return html, nil
}

type chromeControl struct {
	session *chromeSession
	node    cdp.NodeID
}

func (c *chromeControl) Click(ctx context.Context) error {
	return c.session.callOn(ctx, c.node, `function() { this.click(); }`, nil)
}

// jsString quotes s as a JavaScript string literal.
func jsString(s string) string {
	quoted, _ := json.Marshal(s)
	return string(quoted)
}
