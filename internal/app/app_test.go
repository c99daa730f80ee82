package app

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
	"github.com/Paladin4ick/ZoonParser/internal/runs"
	"github.com/Paladin4ick/ZoonParser/internal/zoon"
)

const (
	testSearch  = "https://zoon.ru/search/?query=test"
	testListing = "https://zoon.ru/msk/autoservice/garage/"
	reviewHTML  = `<ul><li class="comment-item js-comment">
<div class="z-text--16 z-text--bold">4,5</div>
<div class="js-comment-short-text comment-text z-text--16"><div class="z-flex z-flex--column z-gap--12">
<div class="z-flex z-flex--column z-gap--4 js-comment-part"><div class="comment-text-subtitle">Достоинства</div><span class="js-comment-content">fast</span></div>
<div class="z-flex z-flex--column z-gap--4 js-comment-part"><div class="comment-text-subtitle">Комментарий</div><span class="js-comment-content">good job</span></div>
</div></div></li></ul>`
)

type testEnv struct {
	dir    string
	config string
	page   *browser.FakePage
	engine *browser.FakeEngine
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := fmt.Sprintf(`
search_url = %q
wait_timeout = "30ms"
login_timeout = "30ms"
poll_interval = "2ms"
scroll_pause = "1ms"
login_pause = "1ms"
rate_per_minute = 0
log_dir = %q
data_dir = %q
`, testSearch, filepath.Join(dir, "logs"), filepath.Join(dir, "runs"))
	path := filepath.Join(dir, "zoonparser.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))

	locs, err := zoon.NewLocators(nil)
	require.NoError(t, err)
	ready := browser.ElementState{Count: 1, Visible: true, Enabled: true}
	page := &browser.FakePage{
		Elements: map[string]browser.ElementState{
			locs[zoon.LoginEntry]:    ready,
			locs[zoon.LoginEmail]:    ready,
			locs[zoon.LoginPassword]: ready,
			locs[zoon.LoginSubmit]:   ready,
			locs[zoon.ResultItem]:    ready,
		},
		AttrSeq: map[string][][]string{locs[zoon.ResultLink]: {{testListing}}},
		HTML:    map[string]string{zoon.ReviewsURL(testListing): reviewHTML},
		Heights: []int{700},
	}
	engine := &browser.FakeEngine{Session: &browser.FakeSession{Page: page}}
	return testEnv{dir: dir, config: path, page: page, engine: engine}
}

func (e testEnv) run(stdin string, args ...string) (int, string, string) {
	var out, errOut bytes.Buffer
	app := App{In: strings.NewReader(stdin), Out: &out, Err: &errOut, Engine: e.engine}
	code := execute(app, append([]string{"--config", e.config}, args...))
	return code, out.String(), errOut.String()
}

func TestRunCommandArchivesReviews(t *testing.T) {
	env := newTestEnv(t)

	code, out, errOut := env.run("me@example.com\nsecret\n", "run", "--headless")
	require.Equal(t, exitSuccess, code, errOut)
	require.Contains(t, out, "Enter your email:")
	require.Contains(t, out, testListing)
	require.Contains(t, strings.ToLower(out), "ok 1 / skipped 0 / failed 0")

	require.True(t, env.engine.Session.Closed)
	require.True(t, env.engine.Started[0].Headless)
	require.Equal(t, chromeArgs, env.engine.Started[0].Args)

	store := runs.Store{Root: filepath.Join(env.dir, "runs")}
	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	reviews := list[0].Reviews()
	require.Len(t, reviews, 1)
	require.Equal(t, "fast", reviews[0].Advantages)
	require.Equal(t, "good job", reviews[0].Comment)
	require.Equal(t, 4, reviews[0].Rating())

	info, err := os.ReadFile(filepath.Join(env.dir, "logs", "parser-info.log"))
	require.NoError(t, err)
	require.Contains(t, string(info), "Logged in")
}

func TestRunCommandLoginFailure(t *testing.T) {
	env := newTestEnv(t)
	env.page.Elements = map[string]browser.ElementState{}

	code, _, _ := env.run("me@example.com\nsecret\n", "run")
	require.Equal(t, exitFailure, code)
	require.True(t, env.engine.Session.Closed)

	errs, err := os.ReadFile(filepath.Join(env.dir, "logs", "parser-error.log"))
	require.NoError(t, err)
	require.Contains(t, string(errs), "Run aborted")
}

func TestRunCommandNeedsCredentials(t *testing.T) {
	env := newTestEnv(t)
	code, _, _ := env.run("", "run")
	require.Equal(t, exitFailure, code)
	require.Empty(t, env.engine.Started)
}

func TestRunCommandRejectsConflictingFlags(t *testing.T) {
	env := newTestEnv(t)
	code, _, errOut := env.run("", "run", "--headless", "--headed")
	require.Equal(t, exitFailure, code)
	require.Contains(t, errOut, "--headless")
}

func TestParseCommand(t *testing.T) {
	env := newTestEnv(t)
	path := filepath.Join(env.dir, "reviews.html")
	require.NoError(t, os.WriteFile(path, []byte(reviewHTML), 0o644))

	code, out, _ := env.run("", "parse", path)
	require.Equal(t, exitSuccess, code)
	require.Contains(t, out, "shape=segmented")
	require.Contains(t, out, "rating=4")
	require.Contains(t, out, "advantages=fast")
	require.Contains(t, out, "comment=good job")

	empty := filepath.Join(env.dir, "empty.html")
	require.NoError(t, os.WriteFile(empty, []byte("<html></html>"), 0o644))
	code, _, _ = env.run("", "parse", empty)
	require.Equal(t, exitNotFound, code)
}

func TestRunsListAndShow(t *testing.T) {
	env := newTestEnv(t)
	code, _, errOut := env.run("me@example.com\nsecret\n", "run", "--quiet")
	require.Equal(t, exitSuccess, code, errOut)

	code, out, _ := env.run("", "runs", "list")
	require.Equal(t, exitSuccess, code)
	require.Contains(t, out, "listings=1 ok=1")
	id := strings.Fields(out)[0]

	code, out, _ = env.run("", "--json", "runs", "show", id)
	require.Equal(t, exitSuccess, code)
	require.Contains(t, out, `"advantages": "fast"`)

	code, _, _ = env.run("", "runs", "show", "19990101-000000")
	require.Equal(t, exitNotFound, code)
}

func TestVersionFlag(t *testing.T) {
	env := newTestEnv(t)
	code, out, _ := env.run("", "--version")
	require.Equal(t, exitSuccess, code)
	require.Equal(t, Version+"\n", out)
}
