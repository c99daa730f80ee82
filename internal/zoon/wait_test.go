package zoon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
)

func testLocators(t *testing.T) Locators {
	t.Helper()
	locs, err := NewLocators(nil)
	require.NoError(t, err)
	return locs
}

func testWaiter(t *testing.T, page *browser.FakePage) Waiter {
	return Waiter{Page: page, Locators: testLocators(t), Timeout: 40 * time.Millisecond, Poll: 2 * time.Millisecond}
}

func TestWaitPresentAfterPolls(t *testing.T) {
	locs := testLocators(t)
	sel := locs[ResultItem]
	page := &browser.FakePage{
		Elements:   map[string]browser.ElementState{sel: {Count: 1}},
		ProbeDelay: map[string]int{sel: 3},
	}
	w := testWaiter(t, page)
	w.Timeout = time.Second

	got, err := w.Wait(context.Background(), ResultItem, Present)
	require.NoError(t, err)
	require.Equal(t, sel, got)
	require.Equal(t, 4, page.Probes[sel])
	require.Empty(t, page.Scrolls)
}

func TestWaitTimeout(t *testing.T) {
	page := &browser.FakePage{}
	w := testWaiter(t, page)

	_, err := w.Wait(context.Background(), LoginEntry, Present)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrTimeout))
	require.Equal(t, KindTimeout, KindOf(err))
	require.Contains(t, err.Error(), string(LoginEntry))
}

func TestWaitClickableNeedsVisibleAndEnabled(t *testing.T) {
	locs := testLocators(t)
	sel := locs[LoginSubmit]
	page := &browser.FakePage{
		Elements: map[string]browser.ElementState{sel: {Count: 1, Visible: true}},
	}
	w := testWaiter(t, page)

	_, err := w.Wait(context.Background(), LoginSubmit, Present)
	require.NoError(t, err)

	_, err = w.Wait(context.Background(), LoginSubmit, Clickable)
	require.ErrorIs(t, err, ErrTimeout)
}

func TestClickScrollsIntoViewFirst(t *testing.T) {
	locs := testLocators(t)
	sel := locs[LoginEntry]
	page := &browser.FakePage{
		Elements: map[string]browser.ElementState{sel: {Count: 1, Visible: true, Enabled: true}},
	}
	w := testWaiter(t, page)

	require.NoError(t, w.Click(context.Background(), LoginEntry))
	require.Equal(t, []string{sel}, page.Scrolls)
	require.Equal(t, []string{sel}, page.Clicks)
}

func TestClickErrorIsGeneric(t *testing.T) {
	locs := testLocators(t)
	sel := locs[LoginEntry]
	page := &browser.FakePage{
		Elements: map[string]browser.ElementState{sel: {Count: 1, Visible: true, Enabled: true}},
		ClickErr: errors.New("detached"),
	}
	err := testWaiter(t, page).Click(context.Background(), LoginEntry)
	require.Error(t, err)
	require.Equal(t, KindGeneric, KindOf(err))
}

func TestTypeFillsWhenPresent(t *testing.T) {
	locs := testLocators(t)
	sel := locs[LoginEmail]
	page := &browser.FakePage{
		Elements: map[string]browser.ElementState{sel: {Count: 1}},
	}
	require.NoError(t, testWaiter(t, page).Type(context.Background(), LoginEmail, "me@example.com"))
	require.Equal(t, []string{sel + "=me@example.com"}, page.Fills)
}

func TestWaitStopsOnCancel(t *testing.T) {
	page := &browser.FakePage{}
	w := testWaiter(t, page)
	w.Timeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := w.Wait(ctx, ResultItem, Present)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewLocatorsOverrides(t *testing.T) {
	locs, err := NewLocators(map[string]string{"result_link": "css=ul li a"})
	require.NoError(t, err)
	require.Equal(t, "css=ul li a", locs[ResultLink])
	require.Equal(t, defaultLocators[LoginEntry], locs[LoginEntry])

	_, err = NewLocators(map[string]string{"review_star": "x"})
	require.Error(t, err)

	_, err = NewLocators(map[string]string{"login_entry": " "})
	require.Error(t, err)
}
