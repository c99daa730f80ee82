package browser

import (
	"encoding/json"
	"errors"

	"github.com/playwright-community/playwright-go"
)

type PlaywrightEngine struct{}

func (p PlaywrightEngine) Start(opts StartOptions) (Session, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, err
	}
	bt, err := browserType(pw, opts.Browser)
	if err != nil {
		pw.Stop()
		return nil, err
	}
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args:     opts.Args,
	}
	if opts.Channel != "" {
		launchOpts.Channel = playwright.String(opts.Channel)
	}
	browser, err := bt.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, err
	}
	ctxOpts := playwright.BrowserNewContextOptions{}
	if !opts.Headless {
		// let --start-maximized size the window instead of a fixed viewport
		ctxOpts.NoViewport = playwright.Bool(true)
	}
	ctx, err := browser.NewContext(ctxOpts)
	if err != nil {
		browser.Close()
		pw.Stop()
		return nil, err
	}
	return &playwrightSession{pw: pw, browser: browser, ctx: ctx}, nil
}

type playwrightSession struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	ctx     playwright.BrowserContext
}

func (s *playwrightSession) NewPage() (Page, error) {
	page, err := s.ctx.NewPage()
	if err != nil {
		return nil, err
	}
	return &playwrightPage{page: page}, nil
}

func (s *playwrightSession) Close() error {
	if s.ctx != nil {
		_ = s.ctx.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.pw != nil {
		return s.pw.Stop()
	}
	return nil
}

type playwrightPage struct {
	page playwright.Page
}

func (p *playwrightPage) Goto(url string) error {
	_, err := p.page.Goto(url)
	return err
}

func (p *playwrightPage) Probe(selector string) (ElementState, error) {
	loc := p.page.Locator(selector)
	n, err := loc.Count()
	if err != nil {
		return ElementState{}, err
	}
	state := ElementState{Count: n}
	if n == 0 {
		return state, nil
	}
	first := loc.First()
	if state.Visible, err = first.IsVisible(); err != nil {
		return state, err
	}
	if state.Enabled, err = first.IsEnabled(); err != nil {
		return state, err
	}
	return state, nil
}

func (p *playwrightPage) Click(selector string) error {
	return p.page.Locator(selector).First().Click()
}

func (p *playwrightPage) Fill(selector string, value string) error {
	return p.page.Locator(selector).First().Fill(value)
}

func (p *playwrightPage) ScrollIntoView(selector string) error {
	return p.page.Locator(selector).First().ScrollIntoViewIfNeeded()
}

func (p *playwrightPage) Attributes(selector string, name string) ([]string, error) {
	locs, err := p.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	values := make([]string, 0, len(locs))
	for _, loc := range locs {
		v, err := loc.GetAttribute(name)
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (p *playwrightPage) Eval(js string) (json.RawMessage, error) {
	v, err := p.page.Evaluate(js)
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (p *playwrightPage) Content() (string, error) {
	return p.page.Content()
}

func (p *playwrightPage) URL() (string, error) {
	return p.page.URL(), nil
}

func (p *playwrightPage) Close() error {
	return p.page.Close()
}

func browserType(pw *playwright.Playwright, name string) (playwright.BrowserType, error) {
	switch name {
	case "chromium", "":
		return pw.Chromium, nil
	case "firefox":
		return pw.Firefox, nil
	case "webkit":
		return pw.WebKit, nil
	default:
		return nil, errors.New("unknown browser: " + name)
	}
}
