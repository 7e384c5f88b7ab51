package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	ServerURL  string
	Username   string
	Difficulty int
	// Color is the requested side: "w", "b" or "r" (server picks).
	Color      string
	NewSession bool

	AssistEnabled bool
	AssistURL     string

	RequestTimeout time.Duration
	StallAfter     time.Duration
	HTTPRetry      int

	ScoreboardCount    int
	RedisURL           string
	ScoreboardCacheTTL time.Duration

	DatabaseURL string

	SnapshotDir string
	BoardWSURL  string
	MessagesDir string
}

// fileConfig mirrors AppConfig for the optional YAML file. Empty values keep defaults.
type fileConfig struct {
	Server     string `yaml:"server"`
	Username   string `yaml:"username"`
	Difficulty int    `yaml:"difficulty"`
	Color      string `yaml:"color"`
	NewSession *bool  `yaml:"new_session"`

	Assist struct {
		Enabled *bool  `yaml:"enabled"`
		URL     string `yaml:"url"`
	} `yaml:"assist"`

	HTTP struct {
		Timeout    string `yaml:"timeout"`
		StallAfter string `yaml:"stall_after"`
		Retry      int    `yaml:"retry"`
	} `yaml:"http"`

	Scoreboard struct {
		Count    int    `yaml:"count"`
		RedisURL string `yaml:"redis_url"`
		CacheTTL string `yaml:"cache_ttl"`
	} `yaml:"scoreboard"`

	DatabaseURL string `yaml:"database_url"`
	SnapshotDir string `yaml:"snapshot_dir"`
	BoardWSURL  string `yaml:"board_ws_url"`
	MessagesDir string `yaml:"messages_dir"`
}

const (
	DefaultServerURL = "http://localhost:8000"
	DefaultAssistURL = "https://chess-api.com/v1"
)

// DefaultFile is $XDG_CONFIG_HOME/chessdestroyer/config.yaml.
func DefaultFile() string {
	return filepath.Join(xdg.ConfigHome, "chessdestroyer", "config.yaml")
}

// Load builds the configuration from defaults, the YAML file and the environment, in that order.
func Load() (*AppConfig, error) {
	cfg := defaults()

	path := strings.TrimSpace(os.Getenv("CHESS_CONFIG_FILE"))
	explicit := path != ""
	if !explicit {
		path = DefaultFile()
	}
	if err := cfg.applyFile(path, explicit); err != nil {
		return nil, err
	}

	var errs []error
	cfg.applyEnv(&errs)
	errs = append(errs, cfg.Validate())
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *AppConfig {
	return &AppConfig{
		ServerURL:          DefaultServerURL,
		Username:           "player",
		Difficulty:         2,
		Color:              "w",
		AssistURL:          DefaultAssistURL,
		RequestTimeout:     15 * time.Second,
		StallAfter:         5 * time.Second,
		HTTPRetry:          3,
		ScoreboardCount:    1000,
		ScoreboardCacheTTL: 10 * time.Minute,
	}
}

func (c *AppConfig) applyFile(path string, required bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.ServerURL, fc.Server)
	setString(&c.Username, fc.Username)
	if fc.Difficulty != 0 {
		c.Difficulty = fc.Difficulty
	}
	setString(&c.Color, fc.Color)
	if fc.NewSession != nil {
		c.NewSession = *fc.NewSession
	}
	if fc.Assist.Enabled != nil {
		c.AssistEnabled = *fc.Assist.Enabled
	}
	setString(&c.AssistURL, fc.Assist.URL)
	if err := setDuration(&c.RequestTimeout, fc.HTTP.Timeout); err != nil {
		return fmt.Errorf("http.timeout: %w", err)
	}
	if err := setDuration(&c.StallAfter, fc.HTTP.StallAfter); err != nil {
		return fmt.Errorf("http.stall_after: %w", err)
	}
	if fc.HTTP.Retry != 0 {
		c.HTTPRetry = fc.HTTP.Retry
	}
	if fc.Scoreboard.Count != 0 {
		c.ScoreboardCount = fc.Scoreboard.Count
	}
	setString(&c.RedisURL, fc.Scoreboard.RedisURL)
	if err := setDuration(&c.ScoreboardCacheTTL, fc.Scoreboard.CacheTTL); err != nil {
		return fmt.Errorf("scoreboard.cache_ttl: %w", err)
	}
	setString(&c.DatabaseURL, fc.DatabaseURL)
	setString(&c.SnapshotDir, fc.SnapshotDir)
	setString(&c.BoardWSURL, fc.BoardWSURL)
	setString(&c.MessagesDir, fc.MessagesDir)
	return nil
}

func (c *AppConfig) applyEnv(errs *[]error) {
	setString(&c.ServerURL, os.Getenv("CHESS_SERVER_URL"))
	setString(&c.Username, os.Getenv("CHESS_USERNAME"))
	if v := strings.TrimSpace(os.Getenv("CHESS_DIFFICULTY")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("CHESS_DIFFICULTY: %w", err))
		} else {
			c.Difficulty = n
		}
	}
	setString(&c.Color, os.Getenv("CHESS_COLOR"))
	if v := strings.TrimSpace(os.Getenv("CHESS_NEW_SESSION")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.NewSession = b
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHESS_ASSIST_ENABLED")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.AssistEnabled = b
		}
	}
	setString(&c.AssistURL, os.Getenv("CHESS_ASSIST_URL"))

	if err := setDuration(&c.RequestTimeout, os.Getenv("CHESS_REQUEST_TIMEOUT")); err != nil {
		*errs = append(*errs, fmt.Errorf("CHESS_REQUEST_TIMEOUT: %w", err))
	}
	if err := setDuration(&c.StallAfter, os.Getenv("CHESS_STALL_AFTER")); err != nil {
		*errs = append(*errs, fmt.Errorf("CHESS_STALL_AFTER: %w", err))
	}
	if v := strings.TrimSpace(os.Getenv("CHESS_HTTP_RETRY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.HTTPRetry = n
		}
	}

	if v := strings.TrimSpace(os.Getenv("CHESS_SCOREBOARD_COUNT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.ScoreboardCount = n
		}
	}
	setString(&c.RedisURL, os.Getenv("REDIS_URL"))
	if err := setDuration(&c.ScoreboardCacheTTL, os.Getenv("CHESS_SCOREBOARD_CACHE_TTL")); err != nil {
		*errs = append(*errs, fmt.Errorf("CHESS_SCOREBOARD_CACHE_TTL: %w", err))
	}

	setString(&c.DatabaseURL, os.Getenv("DATABASE_URL"))
	setString(&c.SnapshotDir, os.Getenv("CHESS_SNAPSHOT_DIR"))
	setString(&c.BoardWSURL, os.Getenv("CHESS_BOARD_WS_URL"))
	setString(&c.MessagesDir, os.Getenv("CHESS_MESSAGES_DIR"))
}

// Validate reports every invalid field at once.
func (c *AppConfig) Validate() error {
	var errs []error
	if u, err := url.Parse(c.ServerURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("server url %q is not an absolute url", c.ServerURL))
	}
	if strings.TrimSpace(c.Username) == "" {
		errs = append(errs, errors.New("username is required"))
	}
	if c.Difficulty < 1 || c.Difficulty > 3 {
		errs = append(errs, fmt.Errorf("difficulty must be 1..3, got %d", c.Difficulty))
	}
	switch c.Color {
	case "w", "b", "r":
	default:
		errs = append(errs, fmt.Errorf("color must be w, b or r, got %q", c.Color))
	}
	if c.AssistEnabled && strings.TrimSpace(c.AssistURL) == "" {
		errs = append(errs, errors.New("assist url is required when assist is enabled"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.StallAfter <= 0 || c.StallAfter > c.RequestTimeout {
		errs = append(errs, errors.New("stall threshold must be positive and not exceed the request timeout"))
	}
	if c.ScoreboardCount <= 0 {
		errs = append(errs, errors.New("scoreboard count must be positive"))
	}
	return errors.Join(errs...)
}

func setString(dst *string, v string) {
	if s := strings.TrimSpace(v); s != "" {
		*dst = s
	}
}

// setDuration accepts Go durations ("15s") or plain seconds ("15").
func setDuration(dst *time.Duration, v string) error {
	s := strings.TrimSpace(v)
	if s == "" {
		return nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		*dst = time.Duration(n) * time.Second
		return nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
