package page

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"github.com/vigia-data/registry-harvester/internal/harvest"
)

// StaticConfig controls the plain-HTTP page session.
type StaticConfig struct {
	UserAgent string
	Timeout   time.Duration
}

// StaticBrowser serves sources that render server-side. A "click" follows the
// element's href with a fresh GET; there is no script execution.
type StaticBrowser struct {
	cfg           StaticConfig
	baseCollector *colly.Collector
}

// NewStatic builds a StaticBrowser backed by a Colly collector.
func NewStatic(cfg StaticConfig) *StaticBrowser {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(cfg.Timeout)
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	return &StaticBrowser{cfg: cfg, baseCollector: c}
}

// Close is a no-op; the collector holds no long-lived resources.
func (b *StaticBrowser) Close() error {
	return nil
}

// Navigate fetches the URL and returns a static page over its markup.
func (b *StaticBrowser) Navigate(_ context.Context, pageURL string) (harvest.Page, error) {
	body, finalURL, err := b.fetch(pageURL)
	if err != nil {
		return nil, err
	}
	page := &staticPage{browser: b}
	if err := page.load(finalURL, body); err != nil {
		return nil, err
	}
	return page, nil
}

func (b *StaticBrowser) fetch(pageURL string) (body []byte, finalURL string, err error) {
	collector := b.baseCollector.Clone()
	var fetchErr error
	collector.OnResponse(func(r *colly.Response) {
		body = r.Body
		finalURL = r.Request.URL.String()
	})
	collector.OnError(func(r *colly.Response, e error) {
		fetchErr = e
	})
	if visitErr := collector.Visit(pageURL); visitErr != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", pageURL, visitErr)
	}
	collector.Wait()
	if fetchErr != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", pageURL, fetchErr)
	}
	if body == nil {
		return nil, "", fmt.Errorf("fetch %s: empty response", pageURL)
	}
	return body, finalURL, nil
}

// staticPage holds the current document; clicks replace it in place, the way
// a browser tab would navigate.
type staticPage struct {
	browser  *StaticBrowser
	location string
	markup   string
	doc      *goquery.Document
}

func (p *staticPage) load(pageURL string, body []byte) error {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return fmt.Errorf("parse %s: %w", pageURL, err)
	}
	p.location = pageURL
	p.markup = string(body)
	p.doc = doc
	return nil
}

func (p *staticPage) Location() string {
	return p.location
}

func (p *staticPage) HTML(context.Context) (string, error) {
	return p.markup, nil
}

func (p *staticPage) Text(_ context.Context, locator string) (string, error) {
	sel := p.doc.Find(locator)
	if sel.Length() == 0 {
		return "", fmt.Errorf("no element matches %q", locator)
	}
	return strings.TrimSpace(sel.First().Text()), nil
}

// Click resolves the matched element's href against the current location and
// fetches it, replacing the page content.
func (p *staticPage) Click(_ context.Context, locator string) error {
	sel := p.doc.Find(locator)
	if sel.Length() == 0 {
		return fmt.Errorf("no element matches %q", locator)
	}
	href, ok := sel.First().Attr("href")
	if !ok || strings.TrimSpace(href) == "" {
		return fmt.Errorf("element %q has no href to follow", locator)
	}
	target, err := p.resolve(href)
	if err != nil {
		return err
	}
	body, finalURL, err := p.browser.fetch(target)
	if err != nil {
		return err
	}
	return p.load(finalURL, body)
}

// SelectValue cannot work without a live widget; sources needing page
// controls must run under the browser session instead.
func (p *staticPage) SelectValue(_ context.Context, locator, _ string) error {
	return fmt.Errorf("static page cannot operate control %q", locator)
}

func (p *staticPage) resolve(href string) (string, error) {
	base, err := url.Parse(p.location)
	if err != nil {
		return "", fmt.Errorf("parse current location %q: %w", p.location, err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse href %q: %w", href, err)
	}
	return base.ResolveReference(ref).String(), nil
}
