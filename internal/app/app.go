package app

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/Paladin4ick/ZoonParser/internal/browser"
	"github.com/Paladin4ick/ZoonParser/internal/config"
	"github.com/Paladin4ick/ZoonParser/internal/logging"
	"github.com/Paladin4ick/ZoonParser/internal/runs"
	"github.com/Paladin4ick/ZoonParser/internal/zoon"
)

type GlobalFlags struct {
	Config   string
	LogDir   string
	DataDir  string
	JSON     bool
	Quiet    bool
	Verbose  bool
	Headless bool
	Headed   bool
}

type App struct {
	In     io.Reader
	Out    io.Writer
	Err    io.Writer
	Engine browser.Engine
}

const (
	exitSuccess  = 0
	exitFailure  = 1
	exitUsage    = 2
	exitNotFound = 3
)

// chromeArgs mirror how the site was driven by hand: a maximised window
// without extensions.
var chromeArgs = []string{"--start-maximized", "--disable-extensions"}

func (a App) prepare(flags GlobalFlags) (config.Config, runs.Store, error) {
	overrides, err := overridesFromFlags(flags)
	if err != nil {
		return config.Config{}, runs.Store{}, err
	}
	cfg, err := config.Load(overrides)
	if err != nil {
		return config.Config{}, runs.Store{}, err
	}
	store := runs.Store{Root: cfg.DataDir, Retention: cfg.RunRetention}
	if err := store.EnsureDir(); err != nil {
		return config.Config{}, runs.Store{}, err
	}
	return cfg, store, nil
}

func (a App) runInstall(flags GlobalFlags) int {
	if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	if !flags.Quiet {
		fmt.Fprintln(a.Out, "Playwright installed")
	}
	return exitSuccess
}

func (a App) runScrape(parent context.Context, cfg config.Config, store runs.Store, flags GlobalFlags) int {
	var console io.Writer = a.Err
	if flags.Quiet {
		console = nil
	}
	logger, closer, err := logging.New(logging.Options{Dir: cfg.LogDir, Console: console, Verbose: flags.Verbose})
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	defer closer.Close()
	if cfg.Source != "" {
		logger.WithField("path", cfg.Source).Debug("Loaded config")
	}

	locs, err := zoon.NewLocators(cfg.Locators)
	if err != nil {
		logger.WithError(err).Error("Invalid locators")
		return exitUsage
	}
	creds, err := a.promptCredentials()
	if err != nil {
		logger.WithError(err).Error("Reading credentials failed")
		return exitFailure
	}

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := zoon.Options{
		BaseURL:      cfg.BaseURL,
		SearchURL:    cfg.SearchURL,
		Locators:     locs,
		WaitTimeout:  cfg.WaitTimeout,
		LoginTimeout: cfg.LoginTimeout,
		PollInterval: cfg.PollInterval,
		ScrollPause:  cfg.ScrollPause,
		LoginPause:   cfg.LoginPause,
		MaxScrolls:   cfg.MaxScrolls,
		Limiter:      listingLimiter(cfg.RatePerMinute),
	}
	logger.Info("Starting browser")
	start := browser.StartOptions{Browser: cfg.Browser, Channel: cfg.Channel, Headless: cfg.Headless, Args: chromeArgs}
	session, err := zoon.Open(a.Engine, start, opts, logger)
	if err != nil {
		logger.WithError(err).Error("Browser did not start")
		return exitFailure
	}
	defer session.Close()

	summary, runErr := session.Run(ctx, creds)
	switch {
	case runErr == nil:
	case errors.Is(runErr, context.Canceled):
		logger.Info("Interrupted, saving partial results")
	default:
		logger.WithError(runErr).Error("Run aborted")
	}

	run := runs.NewRun(summary, runErr)
	if err := store.Save(run); err != nil {
		logger.WithError(err).Error("Saving run failed")
	} else {
		logger.WithFields(logrus.Fields{"run": run.ID, "reviews": store.ReviewsPath(run.ID)}).Info("Run saved")
	}
	a.printRun(run, flags)

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return exitFailure
	}
	return exitSuccess
}

func listingLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1)
}

func (a App) promptCredentials() (zoon.Credentials, error) {
	reader := bufio.NewReader(a.In)
	fmt.Fprint(a.Out, "Enter your email: ")
	email, err := readLine(reader)
	if err != nil {
		return zoon.Credentials{}, fmt.Errorf("email: %w", err)
	}
	fmt.Fprint(a.Out, "Enter your password: ")
	var password string
	if f, ok := a.In.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.Out)
		if err != nil {
			return zoon.Credentials{}, fmt.Errorf("password: %w", err)
		}
		password = string(b)
	} else {
		password, err = readLine(reader)
		if err != nil {
			return zoon.Credentials{}, fmt.Errorf("password: %w", err)
		}
	}
	if email == "" || password == "" {
		return zoon.Credentials{}, errors.New("email and password are required")
	}
	return zoon.Credentials{Email: email, Password: password}, nil
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a App) runParse(flags GlobalFlags, path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	review, err := zoon.ParseLatestReview(string(b))
	if err != nil {
		fmt.Fprintln(a.Err, err)
		if zoon.KindOf(err) == zoon.KindNotFound {
			return exitNotFound
		}
		return exitFailure
	}
	if flags.JSON {
		b, _ := json.MarshalIndent(review, "", "  ")
		fmt.Fprintln(a.Out, string(b))
		return exitSuccess
	}
	fmt.Fprintf(a.Out, "shape=%s\n", review.Shape)
	fmt.Fprintf(a.Out, "rating=%d\n", review.Rating())
	if review.Advantages != "" {
		fmt.Fprintf(a.Out, "advantages=%s\n", review.Advantages)
	}
	if review.Disadvantages != "" {
		fmt.Fprintf(a.Out, "disadvantages=%s\n", review.Disadvantages)
	}
	if review.Comment != "" {
		fmt.Fprintf(a.Out, "comment=%s\n", review.Comment)
	}
	return exitSuccess
}

func (a App) runList(store runs.Store, flags GlobalFlags) int {
	list, err := store.List()
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	if flags.JSON {
		b, _ := json.MarshalIndent(list, "", "  ")
		fmt.Fprintln(a.Out, string(b))
		return exitSuccess
	}
	for _, r := range list {
		fmt.Fprintf(a.Out, "%s listings=%d ok=%d skipped=%d failed=%d\n", r.ID, r.Listings, r.OK, r.Skipped, r.Failed)
	}
	return exitSuccess
}

func (a App) runShow(store runs.Store, flags GlobalFlags, id string) int {
	run, err := store.Load(id)
	if err != nil {
		fmt.Fprintln(a.Err, err)
		if os.IsNotExist(err) {
			return exitNotFound
		}
		return exitFailure
	}
	a.printRun(run, flags)
	return exitSuccess
}

func (a App) runPrune(store runs.Store, flags GlobalFlags, dryRun bool) int {
	if dryRun {
		list, err := store.List()
		if err != nil {
			fmt.Fprintln(a.Err, err)
			return exitFailure
		}
		for _, r := range list {
			if store.IsExpired(r) {
				fmt.Fprintf(a.Out, "would remove %s\n", r.ID)
			}
		}
		return exitSuccess
	}
	removed, err := store.Prune()
	if err != nil {
		fmt.Fprintln(a.Err, err)
		return exitFailure
	}
	if !flags.Quiet {
		for _, r := range removed {
			fmt.Fprintf(a.Out, "removed %s\n", r.ID)
		}
	}
	return exitSuccess
}

func (a App) printRun(run runs.Run, flags GlobalFlags) {
	if flags.JSON {
		b, _ := json.MarshalIndent(run, "", "  ")
		fmt.Fprintln(a.Out, string(b))
		return
	}
	if flags.Quiet {
		return
	}
	t := table.NewWriter()
	t.SetOutputMirror(a.Out)
	t.AppendHeader(table.Row{"Listing", "Status", "Rating", "Reason"})
	for _, r := range run.Results {
		rating := ""
		if r.Review != nil {
			rating = fmt.Sprint(r.Review.Rating())
		}
		t.AppendRow(table.Row{r.URL, r.Status, rating, r.Reason})
	}
	t.AppendFooter(table.Row{
		fmt.Sprintf("run %s", run.ID),
		fmt.Sprintf("ok %d / skipped %d / failed %d", run.OK, run.Skipped, run.Failed),
		"",
		fmt.Sprintf("unresolved %d", run.Unresolved),
	})
	t.SetStyle(table.StyleRounded)
	t.Render()
	if run.Error != "" {
		fmt.Fprintf(a.Out, "error: %s\n", run.Error)
	}
}

func overridesFromFlags(flags GlobalFlags) (config.Overrides, error) {
	overrides := config.Overrides{Path: flags.Config, LogDir: flags.LogDir, DataDir: flags.DataDir}
	if flags.Headless && flags.Headed {
		return overrides, errors.New("cannot set both --headless and --headed")
	}
	if flags.Headless {
		headless := true
		overrides.Headless = &headless
	}
	if flags.Headed {
		headless := false
		overrides.Headless = &headless
	}
	return overrides, nil
}
