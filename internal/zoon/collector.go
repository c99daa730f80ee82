package zoon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
)

const (
	scrollToBottomJS = `window.scrollTo(0, document.body.scrollHeight)`
	pageHeightJS     = `document.body.scrollHeight`

	DefaultScrollPause = 2 * time.Second
)

// ListingRef is a listing link found on the search page. Href may be empty
// when the anchor carried none.
type ListingRef struct {
	Href string
}

// Collector walks the lazily loaded search results and gathers links to
// listings that already have reviews.
type Collector struct {
	Page       browser.Page
	Waiter     Waiter
	SearchURL  string
	Pause      time.Duration
	MaxScrolls int
	Log        logrus.FieldLogger
}

// Collect scrolls to the bottom until the page height stops growing. The
// refs gathered so far are returned along with any error.
func (c Collector) Collect(ctx context.Context) ([]ListingRef, error) {
	log := c.logger().WithField("search_url", c.SearchURL)
	if err := c.Page.Goto(c.SearchURL); err != nil {
		return nil, stepErr("open search", err)
	}
	if _, err := c.Waiter.Wait(ctx, ResultItem, Present); err != nil {
		if !errors.Is(err, ErrTimeout) {
			return nil, err
		}
		log.WithError(err).Warn("No search results rendered")
	}
	linkSelector, err := c.Waiter.Locators.Get(ResultLink)
	if err != nil {
		return nil, stepErr("collect", err)
	}

	var refs []ListingRef
	seen := make(map[string]bool)
	last, err := c.height()
	if err != nil {
		return nil, err
	}
	for i := 1; ; i++ {
		hrefs, err := c.Page.Attributes(linkSelector, "href")
		if err != nil {
			return refs, stepErr("collect", err)
		}
		for _, h := range hrefs {
			h = c.absolute(h)
			if seen[h] {
				continue
			}
			seen[h] = true
			refs = append(refs, ListingRef{Href: h})
		}

		if _, err := c.Page.Eval(scrollToBottomJS); err != nil {
			return refs, stepErr("scroll", err)
		}
		if err := pause(ctx, c.Pause); err != nil {
			return refs, err
		}
		h, err := c.height()
		if err != nil {
			return refs, err
		}
		log.WithFields(logrus.Fields{"iteration": i, "height": h, "listings": len(refs)}).Debug("Scrolled results")
		if h == last {
			break
		}
		last = h
		if c.MaxScrolls > 0 && i >= c.MaxScrolls {
			log.WithField("max_scrolls", c.MaxScrolls).Warn("Stopped scrolling before the page settled")
			break
		}
	}
	log.WithField("listings", len(refs)).Info("Collected listings with reviews")
	return refs, nil
}

func (c Collector) height() (int, error) {
	raw, err := c.Page.Eval(pageHeightJS)
	if err != nil {
		return 0, stepErr("measure height", err)
	}
	var h float64
	if err := json.Unmarshal(raw, &h); err != nil {
		return 0, stepErr("measure height", fmt.Errorf("unexpected height %s: %w", raw, err))
	}
	return int(h), nil
}

// absolute resolves a relative href against the search page.
func (c Collector) absolute(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	base, err := url.Parse(c.SearchURL)
	if err != nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func (c Collector) logger() logrus.FieldLogger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

// ResolveURLs turns refs into navigable URLs, skipping refs without one.
func ResolveURLs(refs []ListingRef, log logrus.FieldLogger) ([]string, int) {
	urls := make([]string, 0, len(refs))
	skipped := 0
	for _, ref := range refs {
		if ref.Href == "" {
			skipped++
			log.Warn("Listing element has no href")
			continue
		}
		log.WithField("url", ref.Href).Debug("Listing queued")
		urls = append(urls, ref.Href)
	}
	return urls, skipped
}
