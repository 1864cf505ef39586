// README: Pricing policy table, quote request and quote result types.
package pricing

import (
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

// Tier is one row of the per-km rate table; UpToKm == 0 is open-ended.
type Tier struct {
	UpToKm    float64
	RatePerKm float64
}

// Policy is the single canonical pricing table used by both quote preview and
// booking creation.
type Policy struct {
	Currency                string
	Tiers                   []Tier
	VehicleMultipliers      map[string]float64
	ReturnTripMultiplier    float64
	NightSurchargePercent   float64
	WeekendSurchargePercent float64
	NightStartHour          int
	NightEndHour            int
	Location                *time.Location
	MinDistanceKm           float64
}

type QuoteRequest struct {
	DistanceKm  float64    // one-way
	VehicleType string     // empty means DefaultVehicleType
	ScheduledAt *time.Time // nil: no time-based surcharges
	ReturnTrip  bool
}

type SurchargeBreakdown struct {
	IsNightTime             bool    `json:"is_night_time"`
	IsWeekend               bool    `json:"is_weekend"`
	NightSurchargePercent   float64 `json:"night_surcharge_percent"`
	WeekendSurchargePercent float64 `json:"weekend_surcharge_percent"`
	TotalSurchargePercent   float64 `json:"total_surcharge_percent"`
	TotalSurcharge          float64 `json:"total_surcharge"`
}

type Quote struct {
	OneWayDistanceKm  float64             `json:"one_way_distance_km"`
	DisplayDistanceKm float64             `json:"display_distance_km"`
	VehicleType       string              `json:"vehicle_type"`
	RatePerKm         float64             `json:"rate_per_km"`
	BasePrice         float64             `json:"base_price"`
	VehicleMultiplier float64             `json:"vehicle_multiplier"`
	ReturnMultiplier  float64             `json:"return_multiplier"`
	Surcharges        *SurchargeBreakdown `json:"surcharges"`
	Price             types.Money         `json:"price"`
	BelowMinimum      bool                `json:"below_minimum"`
}
