// Package page implements the loaded-page collaborator over a real headless
// browser and over plain HTTP for static sources.
package page

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"

	"github.com/vigia-data/registry-harvester/internal/harvest"
)

// ChromeConfig controls the headless browser session.
type ChromeConfig struct {
	Headless          bool
	UserAgent         string
	NavigationTimeout time.Duration
}

// ChromeBrowser owns one headless Chrome tab for the duration of a run. The
// harvester acquires it once per run and must Close it on every exit path.
type ChromeBrowser struct {
	cfg         ChromeConfig
	allocator   context.Context
	allocCancel context.CancelFunc
	tab         context.Context
	tabCancel   context.CancelFunc
}

// NewChrome creates a browser session backed by chromedp.
func NewChrome(cfg ChromeConfig) (*ChromeBrowser, error) {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 25 * time.Second
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-gpu", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	return &ChromeBrowser{
		cfg:         cfg,
		allocator:   allocCtx,
		allocCancel: allocCancel,
		tab:         tabCtx,
		tabCancel:   tabCancel,
	}, nil
}

// Close releases the tab and the browser process.
func (b *ChromeBrowser) Close() error {
	b.tabCancel()
	b.allocCancel()
	return nil
}

// Navigate loads the URL in the session tab and returns the live page.
func (b *ChromeBrowser) Navigate(ctx context.Context, url string) (harvest.Page, error) {
	runCtx, cancel := b.scoped(ctx)
	defer cancel()

	actions := []chromedp.Action{
		b.userAgentAction(),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	return &chromePage{browser: b}, nil
}

func (b *ChromeBrowser) userAgentAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if b.cfg.UserAgent == "" {
			return nil
		}
		if err := emulation.SetUserAgentOverride(b.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

// scoped binds the tab context to both the caller's cancellation and the
// navigation timeout.
func (b *ChromeBrowser) scoped(ctx context.Context) (context.Context, context.CancelFunc) {
	runCtx, timeoutCancel := context.WithTimeout(b.tab, b.cfg.NavigationTimeout)
	stop := context.AfterFunc(ctx, timeoutCancel)
	return runCtx, func() {
		stop()
		timeoutCancel()
	}
}

// chromePage adapts the live tab to the harvest.Page surface.
type chromePage struct {
	browser *ChromeBrowser
}

func (p *chromePage) Location() string {
	var location string
	runCtx, cancel := p.browser.scoped(context.Background())
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Location(&location)); err != nil {
		return ""
	}
	return location
}

func (p *chromePage) HTML(ctx context.Context) (string, error) {
	runCtx, cancel := p.browser.scoped(ctx)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read outer html: %w", err)
	}
	return html, nil
}

func (p *chromePage) Text(ctx context.Context, locator string) (string, error) {
	runCtx, cancel := p.browser.scoped(ctx)
	defer cancel()

	var text string
	if err := chromedp.Run(runCtx, chromedp.Text(locator, &text, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("read text of %q: %w", locator, err)
	}
	return text, nil
}

func (p *chromePage) Click(ctx context.Context, locator string) error {
	runCtx, cancel := p.browser.scoped(ctx)
	defer cancel()

	actions := []chromedp.Action{
		chromedp.WaitVisible(locator, chromedp.ByQuery),
		chromedp.Click(locator, chromedp.ByQuery),
		chromedp.WaitReady("body", chromedp.ByQuery),
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("click %q: %w", locator, err)
	}
	return nil
}

func (p *chromePage) SelectValue(ctx context.Context, locator, value string) error {
	runCtx, cancel := p.browser.scoped(ctx)
	defer cancel()

	// Setting .value alone does not notify the table widget; it re-renders on
	// the change event.
	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (!el) return false;
el.value = %q; el.dispatchEvent(new Event('change', {bubbles: true})); return true; })()`,
		locator, value,
	)
	var ok bool
	actions := []chromedp.Action{
		chromedp.WaitVisible(locator, chromedp.ByQuery),
		chromedp.Evaluate(script, &ok),
		// Give the widget a beat to redraw all rows.
		chromedp.Sleep(500 * time.Millisecond),
	}
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("select %q on %q: %w", value, locator, err)
	}
	if !ok {
		return fmt.Errorf("no element matches %q", locator)
	}
	return nil
}
