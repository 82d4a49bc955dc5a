package extract

import (
	"context"
	"fmt"
)

// fakePage simulates a loaded source page. Clicks can swap in new markup to
// mimic navigation.
type fakePage struct {
	location   string
	html       string
	texts      map[string]string
	afterClick map[string]string
	clicks     []string
	selects    map[string]string
	clickErr   error
	selectErr  error
}

func newFakePage(location, html string) *fakePage {
	return &fakePage{
		location:   location,
		html:       html,
		texts:      map[string]string{},
		afterClick: map[string]string{},
		selects:    map[string]string{},
	}
}

func (p *fakePage) Location() string {
	return p.location
}

func (p *fakePage) HTML(context.Context) (string, error) {
	return p.html, nil
}

func (p *fakePage) Text(_ context.Context, locator string) (string, error) {
	text, ok := p.texts[locator]
	if !ok {
		return "", fmt.Errorf("no element matches %q", locator)
	}
	return text, nil
}

func (p *fakePage) Click(_ context.Context, locator string) error {
	if p.clickErr != nil {
		return p.clickErr
	}
	p.clicks = append(p.clicks, locator)
	if next, ok := p.afterClick[locator]; ok {
		p.html = next
	}
	return nil
}

func (p *fakePage) SelectValue(_ context.Context, locator, value string) error {
	if p.selectErr != nil {
		return p.selectErr
	}
	p.selects[locator] = value
	return nil
}
