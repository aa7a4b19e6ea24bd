package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port    string
	DataDir string

	// Notification channel: "discord", "telegram" or "none".
	NotifierKind      string
	DiscordWebhookURL string
	TelegramToken     string
	TelegramChatID    int64

	// NotifyLocation pins "same calendar day" checks to one timezone,
	// independent of where the server happens to run.
	NotifyTimezone string
	NotifyLocation *time.Location

	BatchSize      int
	MaxRetries     int
	RetryBaseDelay time.Duration
	BatchInterval  time.Duration
	ScanCooldown   time.Duration
	ProductTimeout time.Duration

	OfferItemTimeout time.Duration
	OfferWatchdog    time.Duration

	RetentionMaxAge time.Duration
	RetentionGrace  time.Duration
	MaxScanLogs     int

	BrowserMaxPages int
	BrowserHeadless bool
}

func Load() (*Config, error) {
	// Best-effort .env load for local development; real env vars win.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded environment from .env file")
	}

	cfg := &Config{
		Port:              envOr("PORT", "8080"),
		DataDir:           envOr("DATA_DIR", "data"),
		NotifierKind:      envOr("NOTIFIER", "discord"),
		DiscordWebhookURL: os.Getenv("DISCORD_WEBHOOK_URL"),
		TelegramToken:     os.Getenv("TELEGRAM_BOT_TOKEN"),
		NotifyTimezone:    envOr("NOTIFY_TIMEZONE", "Asia/Kolkata"),
	}

	switch cfg.NotifierKind {
	case "discord":
		if cfg.DiscordWebhookURL == "" {
			slog.Warn("DISCORD_WEBHOOK_URL not set, notifications will be skipped")
		}
	case "telegram":
		if cfg.TelegramToken == "" {
			return nil, fmt.Errorf("NOTIFIER=telegram requires TELEGRAM_BOT_TOKEN")
		}
		chatIDStr := os.Getenv("TELEGRAM_CHAT_ID")
		chatID, err := strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", chatIDStr, err)
		}
		cfg.TelegramChatID = chatID
	case "none":
	default:
		return nil, fmt.Errorf("unknown NOTIFIER %q: want discord, telegram or none", cfg.NotifierKind)
	}

	loc, err := time.LoadLocation(cfg.NotifyTimezone)
	if err != nil {
		return nil, fmt.Errorf("invalid NOTIFY_TIMEZONE %q: %w", cfg.NotifyTimezone, err)
	}
	cfg.NotifyLocation = loc

	if cfg.BatchSize, err = envInt("SCAN_BATCH_SIZE", 5); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = envInt("SCAN_MAX_RETRIES", 2); err != nil {
		return nil, err
	}
	if cfg.MaxScanLogs, err = envInt("MAX_SCAN_LOGS", 50); err != nil {
		return nil, err
	}
	if cfg.BrowserMaxPages, err = envInt("BROWSER_MAX_PAGES", 25); err != nil {
		return nil, err
	}
	cfg.BrowserHeadless = envOr("BROWSER_HEADLESS", "true") != "false"

	if cfg.RetryBaseDelay, err = envDuration("SCAN_RETRY_BASE_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.BatchInterval, err = envDuration("SCAN_BATCH_INTERVAL", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.ScanCooldown, err = envDuration("SCAN_COOLDOWN", time.Hour); err != nil {
		return nil, err
	}
	if cfg.ProductTimeout, err = envDuration("SCAN_PRODUCT_TIMEOUT", 45*time.Second); err != nil {
		return nil, err
	}
	if cfg.OfferItemTimeout, err = envDuration("OFFER_ITEM_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.OfferWatchdog, err = envDuration("OFFER_WATCHDOG_TIMEOUT", 20*time.Minute); err != nil {
		return nil, err
	}
	if cfg.RetentionMaxAge, err = envDuration("RETENTION_MAX_AGE", 30*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.RetentionGrace, err = envDuration("RETENTION_GRACE", 7*24*time.Hour); err != nil {
		return nil, err
	}

	return cfg, nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return parsed, nil
}
