package browser

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"sync"
)

type FakeEngine struct {
	Session  *FakeSession
	StartErr error
	Started  []StartOptions
}

func (f *FakeEngine) Start(opts StartOptions) (Session, error) {
	f.Started = append(f.Started, opts)
	if f.StartErr != nil {
		return nil, f.StartErr
	}
	if f.Session == nil {
		f.Session = &FakeSession{}
	}
	return f.Session, nil
}

type FakeSession struct {
	// Page is handed out by NewPage; a blank page is created when nil.
	Page   *FakePage
	Closed bool
}

func (s *FakeSession) NewPage() (Page, error) {
	if s.Page == nil {
		s.Page = &FakePage{}
	}
	return s.Page, nil
}

func (s *FakeSession) Close() error {
	s.Closed = true
	return nil
}

// FakePage is a scripted Page. Elements are keyed by selector, HTML by URL.
// Heights are returned one per scrollHeight query and stick at the last value.
type FakePage struct {
	mu sync.Mutex

	URLValue   string
	HTML       map[string]string
	Elements   map[string]ElementState
	ProbeDelay map[string]int
	// AttrSeq holds the values returned by successive Attributes calls for a
	// selector; the last entry repeats once the sequence is exhausted.
	AttrSeq  map[string][][]string
	Heights  []int
	GotoErrs map[string]error
	ClickErr error

	Visits  []string
	Clicks  []string
	Fills   []string
	Scrolls []string
	Evals   []string
	Probes  map[string]int
	Closed  bool

	attrCalls   map[string]int
	heightCalls int
}

func (p *FakePage) Goto(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Visits = append(p.Visits, url)
	if err := p.GotoErrs[url]; err != nil {
		return err
	}
	p.URLValue = url
	return nil
}

func (p *FakePage) Probe(selector string) (ElementState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Probes == nil {
		p.Probes = map[string]int{}
	}
	p.Probes[selector]++
	if p.Probes[selector] <= p.ProbeDelay[selector] {
		return ElementState{}, nil
	}
	return p.Elements[selector], nil
}

func (p *FakePage) Click(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ClickErr != nil {
		return p.ClickErr
	}
	p.Clicks = append(p.Clicks, selector)
	return nil
}

func (p *FakePage) Fill(selector string, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Fills = append(p.Fills, selector+"="+value)
	return nil
}

func (p *FakePage) ScrollIntoView(selector string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Scrolls = append(p.Scrolls, selector)
	return nil
}

func (p *FakePage) Attributes(selector string, _ string) ([]string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	seq := p.AttrSeq[selector]
	if len(seq) == 0 {
		return nil, nil
	}
	if p.attrCalls == nil {
		p.attrCalls = map[string]int{}
	}
	i := p.attrCalls[selector]
	p.attrCalls[selector]++
	if i >= len(seq) {
		i = len(seq) - 1
	}
	return append([]string(nil), seq[i]...), nil
}

func (p *FakePage) Eval(js string) (json.RawMessage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Evals = append(p.Evals, js)
	if strings.Contains(js, "scrollTo") {
		return json.RawMessage("null"), nil
	}
	if strings.Contains(js, "scrollHeight") {
		if len(p.Heights) == 0 {
			return nil, errors.New("no heights scripted")
		}
		i := p.heightCalls
		p.heightCalls++
		if i >= len(p.Heights) {
			i = len(p.Heights) - 1
		}
		return json.RawMessage(strconv.Itoa(p.Heights[i])), nil
	}
	return json.RawMessage("null"), nil
}

func (p *FakePage) Content() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	html, ok := p.HTML[p.URLValue]
	if !ok {
		return "<html><body></body></html>", nil
	}
	return html, nil
}

func (p *FakePage) URL() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.URLValue, nil
}

func (p *FakePage) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Closed = true
	return nil
}

// HeightQueries reports how many times the page height was measured.
func (p *FakePage) HeightQueries() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.heightCalls
}
