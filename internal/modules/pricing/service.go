// README: Pricing service computes tiered, multiplied and surcharged TND quotes.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

// DefaultVehicleType is priced when the request names no vehicle type.
const DefaultVehicleType = "sedan"

var (
	ErrInvalidDistance      = errors.New("distance must be a positive number of kilometres")
	ErrUnknownVehicleType   = errors.New("unknown vehicle type")
	ErrBelowMinimumDistance = errors.New("trips under the minimum distance are not served; please use a local taxi or VTC service")
)

type Service struct {
	policy Policy
}

func NewService(policy Policy) *Service {
	return &Service{policy: policy}
}

func (s *Service) Policy() Policy { return s.policy }

// TieredRate returns the per-km rate for a one-way distance. Breakpoints are
// inclusive upper bounds.
func (s *Service) TieredRate(distanceKm float64) float64 {
	for _, t := range s.policy.Tiers {
		if t.UpToKm == 0 || distanceKm <= t.UpToKm {
			return t.RatePerKm
		}
	}
	return s.policy.Tiers[len(s.policy.Tiers)-1].RatePerKm
}

// VehicleMultiplier resolves vehicleType case-insensitively.
func (s *Service) VehicleMultiplier(vehicleType string) (string, float64, error) {
	vt := NormalizeVehicleType(vehicleType)
	m, ok := s.policy.VehicleMultipliers[vt]
	if !ok {
		return vt, 0, fmt.Errorf("%w: %q", ErrUnknownVehicleType, vehicleType)
	}
	return vt, m, nil
}

// KnownVehicleType reports whether the policy prices vehicleType.
func (s *Service) KnownVehicleType(vehicleType string) bool {
	_, ok := s.policy.VehicleMultipliers[NormalizeVehicleType(vehicleType)]
	return ok
}

func NormalizeVehicleType(vehicleType string) string {
	vt := strings.ToLower(strings.TrimSpace(vehicleType))
	if vt == "" {
		return DefaultVehicleType
	}
	return vt
}

// Surcharges evaluates night and weekend surcharges at t in the policy's
// local time zone. TotalSurcharge is left for Quote to fill in.
func (s *Service) Surcharges(t time.Time) SurchargeBreakdown {
	local := t.In(s.policy.Location)
	b := SurchargeBreakdown{
		IsNightTime: s.isNight(local.Hour()),
		IsWeekend:   local.Weekday() == time.Saturday || local.Weekday() == time.Sunday,
	}
	if b.IsNightTime {
		b.NightSurchargePercent = s.policy.NightSurchargePercent
	}
	if b.IsWeekend {
		b.WeekendSurchargePercent = s.policy.WeekendSurchargePercent
	}
	b.TotalSurchargePercent = b.NightSurchargePercent + b.WeekendSurchargePercent
	return b
}

// isNight treats the window as [start, end) and wraps past midnight when
// start > end.
func (s *Service) isNight(hour int) bool {
	start, end := s.policy.NightStartHour, s.policy.NightEndHour
	if start == end {
		return false
	}
	if start > end {
		return hour >= start || hour < end
	}
	return hour >= start && hour < end
}

// Quote prices a trip. Surcharges stays nil unless a scheduled time triggers
// at least one surcharge. Trips below the minimum distance are still priced and
// flagged with BelowMinimum; submission paths must call ValidateMinimumDistance.
func (s *Service) Quote(req QuoteRequest) (Quote, error) {
	d := req.DistanceKm
	if d <= 0 || math.IsNaN(d) || math.IsInf(d, 0) {
		return Quote{}, ErrInvalidDistance
	}
	vt, vehicleMult, err := s.VehicleMultiplier(req.VehicleType)
	if err != nil {
		return Quote{}, err
	}

	rate := s.TieredRate(d)
	base := rate * d
	returnMult := 1.0
	display := d
	if req.ReturnTrip {
		returnMult = s.policy.ReturnTripMultiplier
		display = 2 * d
	}
	preSurcharge := base * vehicleMult * returnMult

	q := Quote{
		OneWayDistanceKm:  types.Round2(d),
		DisplayDistanceKm: types.Round2(display),
		VehicleType:       vt,
		RatePerKm:         rate,
		BasePrice:         types.Round2(base),
		VehicleMultiplier: vehicleMult,
		ReturnMultiplier:  returnMult,
		BelowMinimum:      d < s.policy.MinDistanceKm,
	}

	pct := 0.0
	if req.ScheduledAt != nil {
		b := s.Surcharges(*req.ScheduledAt)
		if b.TotalSurchargePercent > 0 {
			b.TotalSurcharge = types.Round2(preSurcharge * b.TotalSurchargePercent / 100)
			pct = b.TotalSurchargePercent
			q.Surcharges = &b
		}
	}

	q.Price = types.Money{
		Amount:   types.Round2(preSurcharge * (1 + pct/100)),
		Currency: s.policy.Currency,
	}
	return q, nil
}

// ValidateMinimumDistance is the submission-time gate on one-way distance.
func (s *Service) ValidateMinimumDistance(distanceKm float64) error {
	if distanceKm < s.policy.MinDistanceKm {
		return fmt.Errorf("%w (%.0f km minimum)", ErrBelowMinimumDistance, s.policy.MinDistanceKm)
	}
	return nil
}
