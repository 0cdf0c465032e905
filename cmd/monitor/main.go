package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"power_alert/internal/analyzer"
	"power_alert/internal/config"
	"power_alert/internal/fetcher"
	"power_alert/internal/metrics"
	"power_alert/internal/model"
	"power_alert/internal/notifier"
	"power_alert/internal/ocr"
	"power_alert/internal/poller"
	"power_alert/internal/scheduler"
	"power_alert/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.Error("monitor failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go m.Serve(ctx, cfg.MetricsAddr, log)
	}

	seen, err := storage.Open(cfg.SeenCache, cfg.DatabasePath, cfg.SeenTTL)
	if err != nil {
		return err
	}
	if seen != nil {
		defer func() { _ = seen.Close() }()
	}

	notify, err := newNotifier(cfg)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: cfg.HTTPTimeout}
	extractor := ocr.New(client, ocr.Tesseract{Path: cfg.TesseractPath}, ocr.NewHostLimiter(2, 4))
	a := analyzer.New(cfg.EstateNames, extractor, m, log)

	p := poller.New(newSource(cfg, client), a, notify, poller.Options{
		Account:            cfg.SourceAccount,
		Recipients:         cfg.Recipients,
		RateLimitBackoff:   cfg.RateLimitBackoff,
		ServerErrorBackoff: cfg.ServerErrorBackoff,
		Seen:               seen,
		Metrics:            m,
	}, log)

	window := model.PollWindow{StartHour: cfg.WindowStart, EndHour: cfg.WindowEnd, Location: cfg.Location()}
	sched := scheduler.New(p, window, cfg.PollInterval, cfg.IdleInterval, log)

	log.Info("starting monitor",
		"source", cfg.Source,
		"account", cfg.SourceAccount,
		"names", len(cfg.EstateNames),
		"recipients", len(cfg.Recipients),
		"window", window,
		"seen_cache", cfg.SeenCache,
		"tesseract", cfg.TesseractPath,
	)

	sched.Run(ctx)

	log.Info("monitor stopped")
	return nil
}

func newSource(cfg *config.Config, client fetcher.HTTPClient) poller.Source {
	if cfg.Source == config.SourceRSS {
		return fetcher.NewRSS(client, cfg.RSSFeedURL, cfg.EstateNames)
	}
	return fetcher.NewTwitter(client, cfg.TwitterAPI, cfg.BearerToken, cfg.SourceAccount, cfg.EstateNames)
}

func newNotifier(cfg *config.Config) (notifier.Notifier, error) {
	email := notifier.NewEmail(cfg.MailFrom, &notifier.SMTPSubmitter{
		Addr:     cfg.SMTPAddr(),
		Host:     cfg.SMTPHost,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		Timeout:  cfg.HTTPTimeout,
	})
	if !cfg.TelegramEnabled() {
		return email, nil
	}
	tg, err := notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatIDs)
	if err != nil {
		return nil, err
	}
	return notifier.Multi{email, tg}, nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
