package zoon

import (
	"context"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
)

type Shape string

const (
	ShapeSegmented Shape = "segmented"
	ShapeFlat      Shape = "flat"
)

// DefaultRating is used when a review carries no parsable star rating.
const DefaultRating = 3

// Review holds the text fields of one review. Empty strings mean the field
// was absent.
type Review struct {
	Listing       string `json:"listing"`
	Stars         string `json:"stars,omitempty"`
	Comment       string `json:"comment,omitempty"`
	Advantages    string `json:"advantages,omitempty"`
	Disadvantages string `json:"disadvantages,omitempty"`
	Shape         Shape  `json:"shape"`
}

// Rating is the leading number of Stars ("4,5" is 4), or DefaultRating.
func (r Review) Rating() int {
	token := strings.TrimSpace(strings.Split(r.Stars, ",")[0])
	n, err := strconv.Atoi(token)
	if err != nil || n < 1 || n > 5 {
		return DefaultRating
	}
	return n
}

func (r Review) Empty() bool {
	return r.Comment == "" && r.Advantages == "" && r.Disadvantages == ""
}

// ReviewsURL is the review list page of a listing.
func ReviewsURL(listing string) string {
	return strings.TrimRight(listing, "/") + "/reviews/"
}

type Extractor struct {
	Page browser.Page
	Log  logrus.FieldLogger
}

// Extract opens the review list of listing and parses its most recent review.
func (e Extractor) Extract(ctx context.Context, listing string) (Review, error) {
	if err := ctx.Err(); err != nil {
		return Review{}, err
	}
	if err := e.Page.Goto(ReviewsURL(listing)); err != nil {
		return Review{}, stepErr("open reviews", err)
	}
	html, err := e.Page.Content()
	if err != nil {
		return Review{}, stepErr("read reviews", err)
	}
	r, err := ParseLatestReview(html)
	if err != nil {
		return Review{}, err
	}
	r.Listing = listing
	if e.Log != nil {
		e.Log.WithFields(logrus.Fields{"url": listing, "shape": r.Shape, "stars": r.Stars}).Info("Extracted latest review")
	}
	return r, nil
}

// ParseLatestReview parses the first review entry of a rendered review list.
func ParseLatestReview(html string) (Review, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Review{}, stepErr("parse reviews", err)
	}
	item := doc.Find(ReviewItemSelector).First()
	if item.Length() == 0 {
		return Review{}, notFound("parse reviews", "no review entry")
	}

	var r Review
	if stars := item.Find(ReviewStarsSelector).First(); stars.Length() > 0 {
		r.Stars = strings.TrimSpace(stars.Text())
	}
	body := item.Find(ReviewBodySelector).First()
	if body.Length() == 0 {
		return Review{}, notFound("parse reviews", "no review body")
	}

	if parts := body.Find(ReviewPartsSelector).First(); parts.Length() > 0 {
		r.Shape = ShapeSegmented
		var missing string
		parts.Find(ReviewPartSelector).EachWithBreak(func(_ int, part *goquery.Selection) bool {
			title := part.Find(ReviewPartTitleSelector).First()
			content := part.Find(ReviewContentSelector).First()
			if title.Length() == 0 || content.Length() == 0 {
				missing = "review part without title or content"
				return false
			}
			value := strings.TrimSpace(content.Text())
			switch strings.TrimSpace(title.Text()) {
			case TitleAdvantages:
				r.Advantages = value
			case TitleDisadvantages:
				r.Disadvantages = value
			case TitleComment:
				r.Comment = value
			}
			return true
		})
		if missing != "" {
			return Review{}, notFound("parse reviews", missing)
		}
		return r, nil
	}

	content := body.Find(ReviewContentSelector).First()
	if content.Length() == 0 {
		return Review{}, notFound("parse reviews", "no review text")
	}
	r.Shape = ShapeFlat
	// the "show more" tail is rendered hidden right after the visible text
	r.Comment = content.Text() + body.Find(ReviewMoreSelector).First().Text()
	return r, nil
}
