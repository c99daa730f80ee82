package zoon

import (
	"context"
	"fmt"
	"time"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
)

type Condition int

const (
	Present Condition = iota
	Clickable
)

func (c Condition) String() string {
	if c == Clickable {
		return "clickable"
	}
	return "present"
}

const (
	DefaultWaitTimeout  = 10 * time.Second
	DefaultLoginTimeout = 15 * time.Second
	DefaultPollInterval = 250 * time.Millisecond
)

// Waiter polls the page until a region reaches a condition, then performs at
// most one interaction with it.
type Waiter struct {
	Page     browser.Page
	Locators Locators
	Timeout  time.Duration
	Poll     time.Duration
}

type waitOptions struct {
	scroll  bool
	timeout time.Duration
}

type WaitOption func(*waitOptions)

// ScrollIntoView scrolls the element into the viewport once it is found.
func ScrollIntoView() WaitOption {
	return func(o *waitOptions) { o.scroll = true }
}

func WithTimeout(d time.Duration) WaitOption {
	return func(o *waitOptions) { o.timeout = d }
}

// Wait returns the selector of region once cond holds. It fails with a
// KindTimeout StepError when the timeout elapses first.
func (w Waiter) Wait(ctx context.Context, region Region, cond Condition, opts ...WaitOption) (string, error) {
	o := waitOptions{timeout: w.Timeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.timeout <= 0 {
		o.timeout = DefaultWaitTimeout
	}
	poll := w.Poll
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	step := string(region)
	selector, err := w.Locators.Get(region)
	if err != nil {
		return "", stepErr(step, err)
	}

	deadline := time.Now().Add(o.timeout)
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		state, err := w.Page.Probe(selector)
		if err != nil {
			return "", stepErr(step, err)
		}
		if satisfied(state, cond) {
			if o.scroll {
				if err := w.Page.ScrollIntoView(selector); err != nil {
					return "", stepErr(step, err)
				}
			}
			return selector, nil
		}
		if !time.Now().Before(deadline) {
			return "", &StepError{
				Kind: KindTimeout,
				Step: step,
				Err:  fmt.Errorf("%w: not %s after %s", ErrTimeout, cond, o.timeout),
			}
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func satisfied(state browser.ElementState, cond Condition) bool {
	if state.Count == 0 {
		return false
	}
	if cond == Clickable {
		return state.Visible && state.Enabled
	}
	return true
}

// Click waits for region to become clickable, scrolls to it and clicks it.
func (w Waiter) Click(ctx context.Context, region Region) error {
	selector, err := w.Wait(ctx, region, Clickable, ScrollIntoView())
	if err != nil {
		return err
	}
	return stepErr(string(region), w.Page.Click(selector))
}

// Type waits for region to be present and types text into it.
func (w Waiter) Type(ctx context.Context, region Region, text string) error {
	selector, err := w.Wait(ctx, region, Present)
	if err != nil {
		return err
	}
	return stepErr(string(region), w.Page.Fill(selector, text))
}

// pause sleeps for d unless ctx is cancelled first.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
