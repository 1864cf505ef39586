package config

import (
	"testing"
	"time"
)

func TestDefault_PricingTable(t *testing.T) {
	cfg := Default()

	if len(cfg.Pricing.Tiers) != 4 {
		t.Fatalf("expected 4 tiers, got %d", len(cfg.Pricing.Tiers))
	}
	if cfg.Pricing.Tiers[0].UpToKm != 50 || cfg.Pricing.Tiers[0].RatePerKm != 1.80 {
		t.Errorf("unexpected first tier: %+v", cfg.Pricing.Tiers[0])
	}
	if cfg.Pricing.Tiers[3].UpToKm != 0 {
		t.Errorf("last tier should be open-ended, got %+v", cfg.Pricing.Tiers[3])
	}
	if got := cfg.Pricing.VehicleMultipliers["sedan"]; got != 1.0 {
		t.Errorf("sedan multiplier = %v, want 1.0", got)
	}
	if cfg.Pricing.ReturnTripMultiplier != 1.8 {
		t.Errorf("return multiplier = %v, want 1.8", cfg.Pricing.ReturnTripMultiplier)
	}
	if cfg.Pricing.MinDistanceKm != 25 {
		t.Errorf("min distance = %v, want 25", cfg.Pricing.MinDistanceKm)
	}
	if cfg.Maps.Timeout != 8*time.Second {
		t.Errorf("maps timeout = %v, want 8s", cfg.Maps.Timeout)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("VTC_PRICING_MIN_DISTANCE_KM", "30")
	t.Setenv("VTC_MAPS_TIMEOUT", "5s")
	t.Setenv("VTC_HTTP_ADDR", ":9090")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Pricing.MinDistanceKm != 30 {
		t.Errorf("min distance = %v, want 30", cfg.Pricing.MinDistanceKm)
	}
	if cfg.Maps.Timeout != 5*time.Second {
		t.Errorf("maps timeout = %v, want 5s", cfg.Maps.Timeout)
	}
	if cfg.HTTP.Addr != ":9090" {
		t.Errorf("http addr = %q, want :9090", cfg.HTTP.Addr)
	}
	if cfg.Subscription.FreeMonthlyBookings != 3 {
		t.Errorf("free bookings = %d, want default 3", cfg.Subscription.FreeMonthlyBookings)
	}
}
