// Package browser is the boundary between the scraper and a live rendered page.
package browser

import "encoding/json"

type StartOptions struct {
	Browser  string
	Channel  string
	Headless bool
	Args     []string
}

type Engine interface {
	Start(opts StartOptions) (Session, error)
}

type Session interface {
	NewPage() (Page, error)
	Close() error
}

// ElementState describes the first element matching a selector at the
// moment it was probed. Count is the total number of matches.
type ElementState struct {
	Count   int
	Visible bool
	Enabled bool
}

type Page interface {
	Goto(url string) error
	Probe(selector string) (ElementState, error)
	Click(selector string) error
	Fill(selector string, value string) error
	ScrollIntoView(selector string) error
	// Attributes returns the named attribute of every element matching
	// selector, in document order. Missing attributes are returned as "".
	Attributes(selector string, name string) ([]string, error)
	Eval(js string) (json.RawMessage, error)
	Content() (string, error)
	URL() (string, error)
	Close() error
}
