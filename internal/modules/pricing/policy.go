// README: Builds and validates the pricing policy from configuration.
package pricing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/config"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

var ErrInvalidPolicy = errors.New("invalid pricing policy")

// PolicyFromConfig converts the pricing config section into a validated Policy.
func PolicyFromConfig(cfg config.PricingConfig) (Policy, error) {
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Policy{}, fmt.Errorf("%w: timezone %q: %v", ErrInvalidPolicy, cfg.Timezone, err)
	}

	tiers := make([]Tier, 0, len(cfg.Tiers))
	for _, t := range cfg.Tiers {
		tiers = append(tiers, Tier{UpToKm: t.UpToKm, RatePerKm: t.RatePerKm})
	}
	mults := make(map[string]float64, len(cfg.VehicleMultipliers))
	for k, v := range cfg.VehicleMultipliers {
		mults[strings.ToLower(strings.TrimSpace(k))] = v
	}
	currency := cfg.Currency
	if currency == "" {
		currency = types.CurrencyTND
	}

	p := Policy{
		Currency:                currency,
		Tiers:                   tiers,
		VehicleMultipliers:      mults,
		ReturnTripMultiplier:    cfg.ReturnTripMultiplier,
		NightSurchargePercent:   cfg.NightSurchargePercent,
		WeekendSurchargePercent: cfg.WeekendSurchargePercent,
		NightStartHour:          cfg.NightStartHour,
		NightEndHour:            cfg.NightEndHour,
		Location:                loc,
		MinDistanceKm:           cfg.MinDistanceKm,
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks the tier table is ascending with exactly one open-ended last
// row and that all factors are sane.
func (p Policy) Validate() error {
	if len(p.Tiers) == 0 {
		return fmt.Errorf("%w: no tiers", ErrInvalidPolicy)
	}
	prev := 0.0
	for i, t := range p.Tiers {
		if t.RatePerKm <= 0 {
			return fmt.Errorf("%w: tier %d has non-positive rate", ErrInvalidPolicy, i)
		}
		last := i == len(p.Tiers)-1
		if t.UpToKm == 0 {
			if !last {
				return fmt.Errorf("%w: open-ended tier %d must be last", ErrInvalidPolicy, i)
			}
			continue
		}
		if last {
			return fmt.Errorf("%w: last tier must be open-ended", ErrInvalidPolicy)
		}
		if t.UpToKm <= prev {
			return fmt.Errorf("%w: tier %d breakpoint %.2f not ascending", ErrInvalidPolicy, i, t.UpToKm)
		}
		prev = t.UpToKm
	}
	if len(p.VehicleMultipliers) == 0 {
		return fmt.Errorf("%w: no vehicle multipliers", ErrInvalidPolicy)
	}
	for k, v := range p.VehicleMultipliers {
		if v < 1.0 {
			return fmt.Errorf("%w: multiplier for %s below 1.0", ErrInvalidPolicy, k)
		}
	}
	if _, ok := p.VehicleMultipliers[DefaultVehicleType]; !ok {
		return fmt.Errorf("%w: missing %s multiplier", ErrInvalidPolicy, DefaultVehicleType)
	}
	if p.ReturnTripMultiplier < 1.0 {
		return fmt.Errorf("%w: return trip multiplier below 1.0", ErrInvalidPolicy)
	}
	if p.NightSurchargePercent < 0 || p.WeekendSurchargePercent < 0 {
		return fmt.Errorf("%w: negative surcharge", ErrInvalidPolicy)
	}
	if p.NightStartHour < 0 || p.NightStartHour > 23 || p.NightEndHour < 0 || p.NightEndHour > 23 {
		return fmt.Errorf("%w: night hours out of range", ErrInvalidPolicy)
	}
	if p.Location == nil {
		return fmt.Errorf("%w: missing time zone", ErrInvalidPolicy)
	}
	return nil
}
