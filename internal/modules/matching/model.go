// README: Matching driver records, vehicle records and the per-search candidate shape.
package matching

import (
	"errors"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/subscription"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

var (
	ErrStaleSearch      = errors.New("search superseded by a newer request")
	ErrInvalidSearch    = errors.New("search requires a date and a time")
	ErrClientKeyMissing = errors.New("search requires a client key")
)

const DriverStatusActive = "active"

type Vehicle struct {
	ID       types.ID `json:"id,omitempty"`
	Type     string   `json:"type"`
	Make     string   `json:"make,omitempty"`
	Model    string   `json:"model,omitempty"`
	PhotoURL string   `json:"photo_url,omitempty"`
}

func (v Vehicle) HasPhoto() bool { return v.PhotoURL != "" }

// DriverRecord is a persisted driver profile joined with its vehicles and
// aggregate rating.
type DriverRecord struct {
	ID       types.ID
	FullName string
	City     string
	Status   string
	// Vehicles are normalized vehicle rows; when non-empty they replace Legacy.
	Vehicles []Vehicle
	// Legacy is the vehicle embedded on the driver row, nil when absent.
	Legacy        *Vehicle
	AverageRating *float64
	RatingCount   int
}

// Candidate is assembled fresh for each search. Optional facts are pointers.
type Candidate struct {
	DriverID             types.ID               `json:"driver_id"`
	FullName             string                 `json:"full_name"`
	City                 string                 `json:"city,omitempty"`
	Vehicle              *Vehicle               `json:"vehicle,omitempty"`
	HasPhoto             bool                   `json:"has_photo"`
	AverageRating        *float64               `json:"average_rating"`
	RatingCount          int                    `json:"rating_count"`
	Subscription         *subscription.Snapshot `json:"subscription,omitempty"`
	QuotaDecision        string                 `json:"quota_decision"`
	DistanceFromPickupKm *float64               `json:"distance_from_pickup_km"`
}

type SearchQuery struct {
	// ClientKey scopes generation tokens, usually the caller UID.
	ClientKey     string
	Date          time.Time
	Time          string // HH:MM
	VehicleType   string
	Pickup        *types.Point
	PickupAddress string
}

type SearchResult struct {
	Generation  int64       `json:"generation"`
	PickupKnown bool        `json:"pickup_known"`
	Candidates  []Candidate `json:"candidates"`
}
