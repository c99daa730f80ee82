package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Paladin4ick/ZoonParser/internal/zoon"
)

type Config struct {
	BaseURL       string
	SearchURL     string
	Browser       string
	Channel       string
	Headless      bool
	WaitTimeout   time.Duration
	LoginTimeout  time.Duration
	PollInterval  time.Duration
	ScrollPause   time.Duration
	LoginPause    time.Duration
	MaxScrolls    int
	RatePerMinute int
	LogDir        string
	DataDir       string
	RunRetention  time.Duration
	Locators      map[string]string
	// Source is the file the config was read from, empty for defaults only.
	Source string
}

type rawConfig struct {
	BaseURL       string            `toml:"base_url"`
	SearchURL     string            `toml:"search_url"`
	Browser       string            `toml:"browser"`
	Channel       string            `toml:"channel"`
	Headless      *bool             `toml:"headless"`
	WaitTimeout   string            `toml:"wait_timeout"`
	LoginTimeout  string            `toml:"login_timeout"`
	PollInterval  string            `toml:"poll_interval"`
	ScrollPause   string            `toml:"scroll_pause"`
	LoginPause    string            `toml:"login_pause"`
	MaxScrolls    *int              `toml:"max_scrolls"`
	RatePerMinute *int              `toml:"rate_per_minute"`
	LogDir        string            `toml:"log_dir"`
	DataDir       string            `toml:"data_dir"`
	RunRetention  string            `toml:"run_retention"`
	Locators      map[string]string `toml:"locators"`
}

type Overrides struct {
	Path     string
	Headless *bool
	LogDir   string
	DataDir  string
}

func Default() Config {
	return Config{
		BaseURL:       zoon.DefaultBaseURL,
		SearchURL:     zoon.DefaultSearchURL,
		Browser:       "chromium",
		Channel:       "chrome",
		Headless:      false,
		WaitTimeout:   zoon.DefaultWaitTimeout,
		LoginTimeout:  zoon.DefaultLoginTimeout,
		PollInterval:  zoon.DefaultPollInterval,
		ScrollPause:   zoon.DefaultScrollPause,
		LoginPause:    zoon.DefaultLoginPause,
		RatePerMinute: 30,
		LogDir:        "logs",
		DataDir:       defaultDataDir(),
		RunRetention:  30 * 24 * time.Hour,
	}
}

func Load(o Overrides) (Config, error) {
	cfg := Default()

	path, err := findConfigFile(o.Path)
	if err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
		cfg.Source = path
	}

	if v := strings.TrimSpace(os.Getenv("ZOON_SEARCH_URL")); v != "" {
		cfg.SearchURL = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOON_HEADLESS")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Headless = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("ZOON_LOG_DIR")); v != "" {
		cfg.LogDir = v
	}
	if v := strings.TrimSpace(os.Getenv("ZOON_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}

	if o.Headless != nil {
		cfg.Headless = *o.Headless
	}
	if strings.TrimSpace(o.LogDir) != "" {
		cfg.LogDir = o.LogDir
	}
	if strings.TrimSpace(o.DataDir) != "" {
		cfg.DataDir = o.DataDir
	}
	return cfg, nil
}

// findConfigFile returns the explicit path, which must exist, or the first
// existing candidate location.
func findConfigFile(explicit string) (string, error) {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", err
		}
		return explicit, nil
	}
	candidates := []string{}
	if v := strings.TrimSpace(os.Getenv("ZOON_CONFIG")); v != "" {
		candidates = append(candidates, v)
	}
	candidates = append(candidates, "zoonparser.toml")
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "zoonparser", "config.toml"))
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

func loadFile(path string, cfg *Config) error {
	var raw rawConfig
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return err
	}
	if raw.BaseURL != "" {
		cfg.BaseURL = raw.BaseURL
	}
	if raw.SearchURL != "" {
		cfg.SearchURL = raw.SearchURL
	}
	if raw.Browser != "" {
		cfg.Browser = raw.Browser
	}
	if raw.Channel != "" {
		cfg.Channel = raw.Channel
	}
	if raw.Headless != nil {
		cfg.Headless = *raw.Headless
	}
	if raw.MaxScrolls != nil {
		cfg.MaxScrolls = *raw.MaxScrolls
	}
	if raw.RatePerMinute != nil {
		cfg.RatePerMinute = *raw.RatePerMinute
	}
	if raw.LogDir != "" {
		cfg.LogDir = raw.LogDir
	}
	if raw.DataDir != "" {
		cfg.DataDir = raw.DataDir
	}
	if len(raw.Locators) > 0 {
		cfg.Locators = raw.Locators
	}
	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"wait_timeout", raw.WaitTimeout, &cfg.WaitTimeout},
		{"login_timeout", raw.LoginTimeout, &cfg.LoginTimeout},
		{"poll_interval", raw.PollInterval, &cfg.PollInterval},
		{"scroll_pause", raw.ScrollPause, &cfg.ScrollPause},
		{"login_pause", raw.LoginPause, &cfg.LoginPause},
		{"run_retention", raw.RunRetention, &cfg.RunRetention},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if v < 0 {
			return errors.New(d.name + " must not be negative")
		}
		*d.dst = v
	}
	return nil
}

func defaultDataDir() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_DATA_HOME")); xdg != "" {
		return filepath.Join(xdg, "zoonparser")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "zoonparser")
	}
	return filepath.Join(home, ".local", "share", "zoonparser")
}
