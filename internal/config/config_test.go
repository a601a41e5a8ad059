package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.AutoReplyDailyLimit != 8 {
		t.Errorf("AutoReplyDailyLimit = %d, want 8", cfg.AutoReplyDailyLimit)
	}
	if !cfg.APIEnabled || !cfg.AutoSendEnabled {
		t.Error("API and auto-send flags should default to enabled")
	}
	if cfg.GatewayTimeout != 10*time.Second {
		t.Errorf("GatewayTimeout = %v, want 10s", cfg.GatewayTimeout)
	}
	if cfg.OpenAIModel != "gpt-4.1-mini" {
		t.Errorf("OpenAIModel = %q", cfg.OpenAIModel)
	}
}

func TestLoadWebhookTokenAliases(t *testing.T) {
	t.Setenv("CHATGURU_WEBHOOK_TOKEN", "")
	t.Setenv("CHATGURU_WEBHOOK_SECRET", "from-secret")
	if got := Load().WebhookToken; got != "from-secret" {
		t.Fatalf("WebhookToken = %q, want from-secret", got)
	}

	t.Setenv("CHATGURU_WEBHOOK_TOKEN", "from-token")
	if got := Load().WebhookToken; got != "from-token" {
		t.Fatalf("WebhookToken = %q, want from-token (primary name wins)", got)
	}
}

func TestLoadAPIKeyAlias(t *testing.T) {
	t.Setenv("CHATGURU_API_TOKEN", "")
	t.Setenv("CHATGURU_API_KEY", "legacy-key")
	if got := Load().GatewayAPIKey; got != "legacy-key" {
		t.Fatalf("GatewayAPIKey = %q, want legacy-key", got)
	}
}

func TestLoadRejectsNonPositiveLimit(t *testing.T) {
	t.Setenv("AUTO_REPLY_LIMIT_PER_CONTACT_PER_DAY", "-3")
	if got := Load().AutoReplyDailyLimit; got != 8 {
		t.Fatalf("AutoReplyDailyLimit = %d, want default 8 for invalid value", got)
	}

	t.Setenv("AUTO_REPLY_LIMIT_PER_CONTACT_PER_DAY", "12")
	if got := Load().AutoReplyDailyLimit; got != 12 {
		t.Fatalf("AutoReplyDailyLimit = %d, want 12", got)
	}
}
