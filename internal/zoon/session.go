// Package zoon drives a logged-in browser over zoon.ru listings and reads
// the most recent review of each one.
package zoon

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
)

const (
	DefaultBaseURL    = "https://zoon.ru/"
	DefaultSearchURL  = "https://zoon.ru/search/?query%5B%5D=%D0%B0%D0%B2%D1%82%D0%BE%D1%81%D0%B5%D1%80%D0%B2%D0%B8%D1%81%D1%8B&city=msk&boost_category=autoservice"
	DefaultLoginPause = 2 * time.Second
)

type Credentials struct {
	Email    string
	Password string
}

type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// Result is the outcome of one listing.
type Result struct {
	URL    string  `json:"url"`
	Status Status  `json:"status"`
	Reason string  `json:"reason,omitempty"`
	Review *Review `json:"review,omitempty"`
}

type Summary struct {
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Listings   int       `json:"listings"`
	Unresolved int       `json:"unresolved"`
	Results    []Result  `json:"results"`
}

func (s Summary) Counts() (ok, skipped, failed int) {
	for _, r := range s.Results {
		switch r.Status {
		case StatusOK:
			ok++
		case StatusSkipped:
			skipped++
		case StatusFailed:
			failed++
		}
	}
	return ok, skipped, failed
}

func (s Summary) Reviews() []Review {
	reviews := make([]Review, 0, len(s.Results))
	for _, r := range s.Results {
		if r.Review != nil {
			reviews = append(reviews, *r.Review)
		}
	}
	return reviews
}

type Options struct {
	BaseURL      string
	SearchURL    string
	Locators     Locators
	WaitTimeout  time.Duration
	LoginTimeout time.Duration
	PollInterval time.Duration
	ScrollPause  time.Duration
	LoginPause   time.Duration
	MaxScrolls   int
	// Limiter paces listing visits; nil means no pacing.
	Limiter *rate.Limiter
}

// Session owns one browser for the whole run.
type Session struct {
	browser browser.Session
	page    browser.Page
	opts    Options
	log     logrus.FieldLogger

	closeOnce sync.Once
	closeErr  error
}

// Open starts a browser through engine and opens the page the session works in.
func Open(engine browser.Engine, start browser.StartOptions, opts Options, log logrus.FieldLogger) (*Session, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if opts.Locators == nil {
		locs, err := NewLocators(nil)
		if err != nil {
			return nil, err
		}
		opts.Locators = locs
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.SearchURL == "" {
		opts.SearchURL = DefaultSearchURL
	}
	bs, err := engine.Start(start)
	if err != nil {
		return nil, fmt.Errorf("start browser: %w", err)
	}
	page, err := bs.NewPage()
	if err != nil {
		_ = bs.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	return &Session{browser: bs, page: page, opts: opts, log: log}, nil
}

// Close releases the page and the browser. It is safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		perr := s.page.Close()
		berr := s.browser.Close()
		s.closeErr = errors.Join(perr, berr)
		s.log.Info("Browser closed")
	})
	return s.closeErr
}

func (s *Session) waiter(timeout time.Duration) Waiter {
	return Waiter{Page: s.page, Locators: s.opts.Locators, Timeout: timeout, Poll: s.opts.PollInterval}
}

// Login signs in through the header login dialog.
func (s *Session) Login(ctx context.Context, creds Credentials) error {
	timeout := s.opts.LoginTimeout
	if timeout <= 0 {
		timeout = DefaultLoginTimeout
	}
	w := s.waiter(timeout)
	if err := s.page.Goto(s.opts.BaseURL); err != nil {
		return stepErr("open home", err)
	}
	if err := w.Click(ctx, LoginEntry); err != nil {
		return err
	}
	if err := w.Type(ctx, LoginEmail, creds.Email); err != nil {
		return err
	}
	if err := w.Type(ctx, LoginPassword, creds.Password); err != nil {
		return err
	}
	if err := w.Click(ctx, LoginSubmit); err != nil {
		return err
	}
	if err := pause(ctx, s.opts.LoginPause); err != nil {
		return err
	}
	s.log.WithField("email", creds.Email).Info("Logged in")
	return nil
}

// Run logs in, collects listings and extracts the latest review of each.
// Only a failed login or a cancelled context ends the run early; listing
// failures are recorded in the summary.
func (s *Session) Run(ctx context.Context, creds Credentials) (Summary, error) {
	summary := Summary{StartedAt: time.Now().UTC()}
	finish := func(err error) (Summary, error) {
		summary.FinishedAt = time.Now().UTC()
		return summary, err
	}

	if err := s.Login(ctx, creds); err != nil {
		return finish(fmt.Errorf("login: %w", err))
	}

	refs, err := s.collector().Collect(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return finish(ctx.Err())
		}
		s.log.WithError(err).WithField("listings", len(refs)).Error("Collecting listings failed, continuing with what was found")
	}
	urls, unresolved := ResolveURLs(refs, s.log)
	summary.Listings = len(urls)
	summary.Unresolved = unresolved

	ex := Extractor{Page: s.page, Log: s.log}
	for _, u := range urls {
		if s.opts.Limiter != nil {
			if err := s.opts.Limiter.Wait(ctx); err != nil {
				return finish(ctx.Err())
			}
		}
		summary.Results = append(summary.Results, s.visit(ctx, ex, u))
		if ctx.Err() != nil {
			return finish(ctx.Err())
		}
	}
	return finish(nil)
}

func (s *Session) collector() Collector {
	return Collector{
		Page:       s.page,
		Waiter:     s.waiter(s.opts.WaitTimeout),
		SearchURL:  s.opts.SearchURL,
		Pause:      s.opts.ScrollPause,
		MaxScrolls: s.opts.MaxScrolls,
		Log:        s.log,
	}
}

func (s *Session) visit(ctx context.Context, ex Extractor, u string) Result {
	review, err := ex.Extract(ctx, u)
	if err == nil {
		return Result{URL: u, Status: StatusOK, Review: &review}
	}
	log := s.log.WithField("url", u).WithError(err)
	if KindOf(err) == KindNotFound {
		log.Warn("No review to extract")
		return Result{URL: u, Status: StatusSkipped, Reason: err.Error()}
	}
	log.WithField("kind", KindOf(err)).Error("Review extraction failed")
	return Result{URL: u, Status: StatusFailed, Reason: err.Error()}
}
