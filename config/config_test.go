package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.Server.Addr != ":8080" {
		t.Fatalf("bad default addr: %q", cfg.Server.Addr)
	}
	if cfg.Billing.PremiumEntitlement != "product_a" {
		t.Fatalf("bad default premium entitlement: %q", cfg.Billing.PremiumEntitlement)
	}
	if cfg.Billing.WebhookSecret != "" {
		t.Fatal("webhook secret must default to unset")
	}
	if cfg.Sweeper.Spec != "" {
		t.Fatal("sweeper must default to disabled")
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDR", ":9999")
	t.Setenv("REVENUECAT_WEBHOOK_SECRET", "whsec-1")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("INSIGHTS_TIMEOUT_SECS", "not-a-number")

	cfg := Load()
	if cfg.Server.Addr != ":9999" {
		t.Fatalf("env override ignored: %q", cfg.Server.Addr)
	}
	if cfg.Billing.WebhookSecret != "whsec-1" {
		t.Fatalf("secret not loaded: %q", cfg.Billing.WebhookSecret)
	}
	if cfg.Redis.DB != 3 {
		t.Fatalf("int env not parsed: %d", cfg.Redis.DB)
	}
	if cfg.Insights.TimeoutSecs != 30 {
		t.Fatalf("invalid int must fall back to default: %d", cfg.Insights.TimeoutSecs)
	}
}
