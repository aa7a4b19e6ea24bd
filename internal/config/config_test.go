package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("NOTIFIER", "none")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.DataDir != "data" {
		t.Errorf("Expected default data dir, got %s", cfg.DataDir)
	}
	if cfg.BatchSize != 5 {
		t.Errorf("Expected default batch size 5, got %d", cfg.BatchSize)
	}
	if cfg.MaxRetries != 2 {
		t.Errorf("Expected default max retries 2, got %d", cfg.MaxRetries)
	}
	if cfg.ScanCooldown != time.Hour {
		t.Errorf("Expected default cooldown 1h, got %s", cfg.ScanCooldown)
	}
	if cfg.MaxScanLogs != 50 {
		t.Errorf("Expected default max scan logs 50, got %d", cfg.MaxScanLogs)
	}
	if cfg.NotifyTimezone != "Asia/Kolkata" {
		t.Errorf("Expected default timezone Asia/Kolkata, got %s", cfg.NotifyTimezone)
	}
	if cfg.NotifyLocation == nil {
		t.Error("Expected NotifyLocation to be resolved")
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("NOTIFIER", "discord")
	t.Setenv("DISCORD_WEBHOOK_URL", "https://test.webhook")
	t.Setenv("PORT", "9090")
	t.Setenv("SCAN_BATCH_SIZE", "3")
	t.Setenv("SCAN_COOLDOWN", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}

	if cfg.DiscordWebhookURL != "https://test.webhook" {
		t.Errorf("Expected https://test.webhook, got %s", cfg.DiscordWebhookURL)
	}
	if cfg.Port != "9090" {
		t.Errorf("Expected 9090, got %s", cfg.Port)
	}
	if cfg.BatchSize != 3 {
		t.Errorf("Expected batch size 3, got %d", cfg.BatchSize)
	}
	if cfg.ScanCooldown != 30*time.Minute {
		t.Errorf("Expected 30m cooldown, got %s", cfg.ScanCooldown)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("NOTIFIER", "none")
	t.Setenv("SCAN_COOLDOWN", "not-a-duration")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid SCAN_COOLDOWN")
	}
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	t.Setenv("NOTIFIER", "none")
	t.Setenv("SCAN_BATCH_SIZE", "five")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid SCAN_BATCH_SIZE")
	}
}

func TestLoad_TelegramRequiresToken(t *testing.T) {
	t.Setenv("NOTIFIER", "telegram")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error when telegram notifier has no token")
	}
}

func TestLoad_TelegramChatID(t *testing.T) {
	t.Setenv("NOTIFIER", "telegram")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	// NewBotAPI is not called at config time, so a fake token is fine here.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned unexpected error: %v", err)
	}
	if cfg.TelegramChatID != 42 {
		t.Errorf("Expected chat id 42, got %d", cfg.TelegramChatID)
	}
}

func TestLoad_UnknownNotifier(t *testing.T) {
	t.Setenv("NOTIFIER", "carrier-pigeon")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for unknown NOTIFIER")
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("NOTIFIER", "none")
	t.Setenv("NOTIFY_TIMEZONE", "Not/AZone")

	if _, err := Load(); err == nil {
		t.Error("Load() should return error for invalid NOTIFY_TIMEZONE")
	}
}
