// Package config handles application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Feed sources.
const (
	SourceTwitter = "twitter"
	SourceRSS     = "rss"
)

// Seen-post cache modes.
const (
	SeenOff    = "off"
	SeenMemory = "memory"
	SeenSQLite = "sqlite"
)

const (
	linuxTesseract   = "/usr/bin/tesseract"
	windowsTesseract = `C:\Program Files\Tesseract-OCR\tesseract.exe`
)

// Config holds the application configuration. It is built once at startup
// and must not be modified afterwards.
type Config struct {
	Source        string
	BearerToken   string
	TwitterAPI    string
	RSSFeedURL    string
	SourceAccount string

	SMTPUser     string
	SMTPPassword string
	SMTPHost     string
	SMTPPort     int
	MailFrom     string
	Recipients   []string

	EstateNames   []string
	TesseractPath string

	WindowStart     int
	WindowEnd       int
	WindowUTCOffset int

	PollInterval       time.Duration
	IdleInterval       time.Duration
	RateLimitBackoff   time.Duration
	ServerErrorBackoff time.Duration
	HTTPTimeout        time.Duration

	SeenCache    string
	SeenTTL      time.Duration
	DatabasePath string

	TelegramBotToken string
	TelegramChatIDs  []int64

	MetricsAddr string
	LogLevel    string
}

// Load reads configuration from environment variables. Missing required
// variables are reported together.
func Load() (*Config, error) {
	cfg := &Config{
		Source:        strings.ToLower(envOrDefault("FEED_SOURCE", SourceTwitter)),
		BearerToken:   os.Getenv("TWITTER_BEARER_TOKEN"),
		TwitterAPI:    envOrDefault("TWITTER_API_BASE", "https://api.twitter.com"),
		RSSFeedURL:    os.Getenv("RSS_FEED_URL"),
		SourceAccount: envOrDefault("SOURCE_ACCOUNT", "KenyaPower_Care"),

		SMTPUser:     os.Getenv("GMAIL_USER"),
		SMTPPassword: os.Getenv("GMAIL_PASSWORD"),
		SMTPHost:     envOrDefault("SMTP_HOST", "smtp.gmail.com"),
		Recipients:   splitList(os.Getenv("SUBSCRIBED_EMAILS")),

		EstateNames:   splitList(os.Getenv("ESTATE_NAMES")),
		TesseractPath: tesseractPath(os.Getenv("TESSERACT_PATH"), os.Getenv("DEPLOY_ENV")),

		SeenCache:    strings.ToLower(envOrDefault("SEEN_CACHE", SeenOff)),
		DatabasePath: envOrDefault("DATABASE_PATH", "./data/seen.db"),

		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
	}
	cfg.MailFrom = envOrDefault("MAIL_FROM", cfg.SMTPUser)

	var missing []string
	require := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	switch cfg.Source {
	case SourceTwitter:
		require("TWITTER_BEARER_TOKEN", cfg.BearerToken)
	case SourceRSS:
		require("RSS_FEED_URL", cfg.RSSFeedURL)
	default:
		return nil, fmt.Errorf("invalid FEED_SOURCE %q: want %q or %q", cfg.Source, SourceTwitter, SourceRSS)
	}
	require("GMAIL_USER", cfg.SMTPUser)
	require("GMAIL_PASSWORD", cfg.SMTPPassword)
	if len(cfg.Recipients) == 0 {
		missing = append(missing, "SUBSCRIBED_EMAILS")
	}
	if len(cfg.EstateNames) == 0 {
		missing = append(missing, "ESTATE_NAMES")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}

	var errs []error
	cfg.SMTPPort = intVar("SMTP_PORT", 587, &errs)
	cfg.WindowStart = intVar("WINDOW_START_HOUR", 19, &errs)
	cfg.WindowEnd = intVar("WINDOW_END_HOUR", 21, &errs)
	cfg.WindowUTCOffset = intVar("WINDOW_UTC_OFFSET", 3, &errs)
	cfg.PollInterval = durationVar("POLL_INTERVAL", 15*time.Minute, &errs)
	cfg.IdleInterval = durationVar("IDLE_INTERVAL", 5*time.Minute, &errs)
	cfg.RateLimitBackoff = durationVar("RATE_LIMIT_BACKOFF", 15*time.Minute, &errs)
	cfg.ServerErrorBackoff = durationVar("SERVER_ERROR_BACKOFF", time.Minute, &errs)
	cfg.HTTPTimeout = durationVar("HTTP_TIMEOUT", 30*time.Second, &errs)
	cfg.SeenTTL = durationVar("SEEN_TTL", 48*time.Hour, &errs)

	if raw := os.Getenv("TELEGRAM_CHAT_IDS"); raw != "" {
		for _, s := range splitList(raw) {
			id, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid chat ID %q in TELEGRAM_CHAT_IDS: %w", s, err))
				continue
			}
			cfg.TelegramChatIDs = append(cfg.TelegramChatIDs, id)
		}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.WindowStart < 0 || c.WindowStart > 23 {
		return fmt.Errorf("WINDOW_START_HOUR must be in 0..23, got %d", c.WindowStart)
	}
	if c.WindowEnd < 0 || c.WindowEnd > 23 {
		return fmt.Errorf("WINDOW_END_HOUR must be in 0..23, got %d", c.WindowEnd)
	}
	if c.WindowStart == c.WindowEnd {
		return fmt.Errorf("WINDOW_START_HOUR and WINDOW_END_HOUR must differ, both are %d", c.WindowStart)
	}
	if c.WindowUTCOffset < -12 || c.WindowUTCOffset > 14 {
		return fmt.Errorf("WINDOW_UTC_OFFSET must be in -12..14, got %d", c.WindowUTCOffset)
	}
	switch c.SeenCache {
	case SeenOff, SeenMemory, SeenSQLite:
	default:
		return fmt.Errorf("invalid SEEN_CACHE %q: want off, memory or sqlite", c.SeenCache)
	}
	if c.TelegramBotToken != "" && len(c.TelegramChatIDs) == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_IDS is required when TELEGRAM_BOT_TOKEN is set")
	}
	for _, d := range []struct {
		key string
		val time.Duration
	}{
		{"POLL_INTERVAL", c.PollInterval},
		{"IDLE_INTERVAL", c.IdleInterval},
		{"HTTP_TIMEOUT", c.HTTPTimeout},
		{"SEEN_TTL", c.SeenTTL},
	} {
		if d.val <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.key, d.val)
		}
	}
	return nil
}

// Location returns the fixed-offset zone the poll window is evaluated in.
func (c *Config) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", c.WindowUTCOffset), c.WindowUTCOffset*60*60)
}

// SMTPAddr returns host:port of the mail submission server.
func (c *Config) SMTPAddr() string {
	return fmt.Sprintf("%s:%d", c.SMTPHost, c.SMTPPort)
}

// TelegramEnabled reports whether the optional Telegram sink is configured.
func (c *Config) TelegramEnabled() bool {
	return c.TelegramBotToken != ""
}

func tesseractPath(explicit, deployEnv string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	if strings.EqualFold(strings.TrimSpace(deployEnv), "windows") {
		return windowsTesseract
	}
	return linuxTesseract
}

func splitList(raw string) []string {
	var out []string
	for _, s := range strings.Split(raw, ",") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func intVar(key string, def int, errs *[]error) int {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: %w", key, raw, err))
		return def
	}
	return v
}

func durationVar(key string, def time.Duration, errs *[]error) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		*errs = append(*errs, fmt.Errorf("invalid %s %q: %w", key, raw, err))
		return def
	}
	return v
}
