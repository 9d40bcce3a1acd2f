package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FESTIVA_API_BASE_URL", "http://marketplace.test/api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !cfg.App.IsDev() {
		t.Fatalf("expected dev default, got %q", cfg.App.Env)
	}
	if cfg.Availability.DebounceDelay != 500*time.Millisecond {
		t.Fatalf("unexpected debounce default %v", cfg.Availability.DebounceDelay)
	}
	if cfg.Notifications.OrderPollInterval != 10*time.Second {
		t.Fatalf("unexpected order poll default %v", cfg.Notifications.OrderPollInterval)
	}
	if cfg.Notifications.RestockPollInterval != 30*time.Second {
		t.Fatalf("unexpected restock poll default %v", cfg.Notifications.RestockPollInterval)
	}
	if cfg.Checkout.ClearCartOnPartialFailure {
		t.Fatal("partial-failure clearing should be opt-in")
	}
}

func TestLoadRequiresBaseURL(t *testing.T) {
	t.Setenv("FESTIVA_API_BASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when base URL is missing")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("FESTIVA_API_BASE_URL", "http://marketplace.test/api")
	t.Setenv("FESTIVA_AVAILABILITY_DEBOUNCE", "200ms")
	t.Setenv("FESTIVA_CHECKOUT_CLEAR_ON_PARTIAL_FAILURE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Availability.DebounceDelay != 200*time.Millisecond {
		t.Fatalf("override not applied: %v", cfg.Availability.DebounceDelay)
	}
	if !cfg.Checkout.ClearCartOnPartialFailure {
		t.Fatal("expected legacy clearing override")
	}
}
