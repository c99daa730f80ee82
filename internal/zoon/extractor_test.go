package zoon

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
)

func segmentedPage(stars string, parts ...[2]string) string {
	html := `<html><body><ul class="list-reset">
<li class="comment-item js-comment">`
	if stars != "" {
		html += `<div class="z-text--16 z-text--bold">` + stars + `</div>`
	}
	html += `<div class="js-comment-short-text comment-text z-text--16"><div class="z-flex z-flex--column z-gap--12">`
	for _, p := range parts {
		html += `<div class="z-flex z-flex--column z-gap--4 js-comment-part">
<div class="comment-text-subtitle"> ` + p[0] + ` </div>
<span class="js-comment-content">
 ` + p[1] + `
</span></div>`
	}
	html += `</div></div></li>
<li class="comment-item js-comment"><div class="js-comment-short-text comment-text z-text--16"><span class="js-comment-content">older review</span></div></li>
</ul></body></html>`
	return html
}

func flatPage(visible string, hidden string) string {
	html := `<html><body><ul><li class="comment-item js-comment">
<div class="z-text--16 z-text--bold">5</div>
<div class="js-comment-short-text comment-text z-text--16"><span class="js-comment-content">` + visible + `</span>`
	if hidden != "" {
		html += `<span class="js-comment-additional-text hidden">` + hidden + `</span>`
	}
	return html + `</div></li></ul></body></html>`
}

func TestParseSegmentedReview(t *testing.T) {
	html := segmentedPage("4",
		[2]string{TitleAdvantages, "fast"},
		[2]string{TitleDisadvantages, "pricey"},
		[2]string{TitleComment, "good job"},
	)
	r, err := ParseLatestReview(html)
	require.NoError(t, err)
	require.Equal(t, Review{
		Stars:         "4",
		Advantages:    "fast",
		Disadvantages: "pricey",
		Comment:       "good job",
		Shape:         ShapeSegmented,
	}, r)
}

func TestParseSegmentedIgnoresUnknownTitles(t *testing.T) {
	html := segmentedPage("",
		[2]string{"Фото", "three photos"},
		[2]string{TitleAdvantages, "friendly staff"},
	)
	r, err := ParseLatestReview(html)
	require.NoError(t, err)
	require.Equal(t, "friendly staff", r.Advantages)
	require.Empty(t, r.Comment)
	require.Empty(t, r.Disadvantages)
	require.Empty(t, r.Stars)
}

func TestParseSegmentedPartWithoutContent(t *testing.T) {
	html := `<li class="comment-item js-comment"><div class="js-comment-short-text comment-text z-text--16">
<div class="z-flex z-flex--column z-gap--12"><div class="z-flex z-flex--column z-gap--4 js-comment-part">
<div class="comment-text-subtitle">Достоинства</div></div></div></div></li>`
	_, err := ParseLatestReview(html)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestParseFlatReviewJoinsHiddenTail(t *testing.T) {
	r, err := ParseLatestReview(flatPage("Great service", " overall"))
	require.NoError(t, err)
	require.Equal(t, "Great service overall", r.Comment)
	require.Empty(t, r.Advantages)
	require.Empty(t, r.Disadvantages)
	require.Equal(t, ShapeFlat, r.Shape)
	require.Equal(t, "5", r.Stars)
}

func TestParseFlatReviewWithoutTail(t *testing.T) {
	r, err := ParseLatestReview(flatPage("Short and sweet", ""))
	require.NoError(t, err)
	require.Equal(t, "Short and sweet", r.Comment)
}

func TestParseNoReviews(t *testing.T) {
	_, err := ParseLatestReview(`<html><body><div class="empty">Отзывов пока нет</div></body></html>`)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrNotFound))
	require.Equal(t, KindNotFound, KindOf(err))
}

func TestParseReviewWithoutBody(t *testing.T) {
	_, err := ParseLatestReview(`<li class="comment-item js-comment"><div class="z-text--16 z-text--bold">2</div></li>`)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestReviewRating(t *testing.T) {
	cases := map[string]int{
		"4,5": 4,
		"5":   5,
		" 2 ": 2,
		"":    DefaultRating,
		"n/a": DefaultRating,
		"9":   DefaultRating,
	}
	for stars, want := range cases {
		require.Equal(t, want, Review{Stars: stars}.Rating(), "stars %q", stars)
	}
}

func TestReviewsURL(t *testing.T) {
	require.Equal(t, "https://zoon.ru/msk/autoservice/x/reviews/", ReviewsURL("https://zoon.ru/msk/autoservice/x/"))
	require.Equal(t, "https://zoon.ru/msk/autoservice/x/reviews/", ReviewsURL("https://zoon.ru/msk/autoservice/x"))
}

func TestExtractOpensReviewPage(t *testing.T) {
	listing := "https://zoon.ru/msk/autoservice/x/"
	page := &browser.FakePage{HTML: map[string]string{
		ReviewsURL(listing): flatPage("Fine", ""),
	}}
	logger, hook := test.NewNullLogger()

	r, err := Extractor{Page: page, Log: logger}.Extract(context.Background(), listing)
	require.NoError(t, err)
	require.Equal(t, listing, r.Listing)
	require.Equal(t, "Fine", r.Comment)
	require.Equal(t, []string{ReviewsURL(listing)}, page.Visits)
	require.Len(t, hook.AllEntries(), 1)
}

func TestExtractNavigationFailureIsGeneric(t *testing.T) {
	listing := "https://zoon.ru/msk/autoservice/x/"
	page := &browser.FakePage{GotoErrs: map[string]error{ReviewsURL(listing): errors.New("net::ERR_CONNECTION_RESET")}}

	_, err := Extractor{Page: page}.Extract(context.Background(), listing)
	require.Error(t, err)
	require.Equal(t, KindGeneric, KindOf(err))
}
