// README: Booking aggregate, status definitions and the transition table.
package booking

import (
	"errors"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type Status string

const (
	StatusNone      Status = "none"
	StatusPending   Status = "pending"
	StatusAccepted  Status = "accepted"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

type Role string

const (
	RoleClient Role = "client"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
	RoleSystem Role = "system"
)

// Actor is the authenticated caller performing an operation.
type Actor struct {
	ID   types.ID
	Role Role
}

var (
	ErrNotFound          = errors.New("booking not found")
	ErrInvalidState      = errors.New("invalid booking state transition")
	ErrConflict          = errors.New("booking was modified concurrently, retry")
	ErrForbidden         = errors.New("not allowed to act on this booking")
	ErrClientRequired    = errors.New("client is required")
	ErrDriverRequired    = errors.New("please select a driver")
	ErrScheduleRequired  = errors.New("pickup date and time are required")
	ErrScheduleInPast    = errors.New("pickup time must be in the future")
	ErrDriverUnavailable = errors.New("driver already has a booking at this time")
	ErrDriverNotFound    = errors.New("driver not found")
)

type Booking struct {
	ID                 types.ID    `json:"id"`
	ClientID           types.ID    `json:"client_id"`
	DriverID           types.ID    `json:"driver_id"`
	PickupAddress      string      `json:"pickup_address"`
	Pickup             types.Point `json:"pickup"`
	DestinationAddress string      `json:"destination_address"`
	Destination        types.Point `json:"destination"`
	DistanceKm         float64     `json:"distance_km"` // one-way
	Price              types.Money `json:"price"`
	VehicleType        string      `json:"vehicle_type"`
	ReturnTrip         bool        `json:"is_return_trip"`
	ScheduledAt        time.Time   `json:"scheduled_at"`
	ScheduledEnd       time.Time   `json:"scheduled_end"`
	Status             Status      `json:"status"`
	StatusVersion      int         `json:"status_version"`
	Notes              *string     `json:"notes,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	AcceptedAt         *time.Time  `json:"accepted_at,omitempty"`
	CompletedAt        *time.Time  `json:"completed_at,omitempty"`
	CancelledAt        *time.Time  `json:"cancelled_at,omitempty"`
	CancelReason       *string     `json:"cancellation_reason,omitempty"`
}

// DisplayDistanceKm is the distance shown to users: doubled for return trips.
func (b *Booking) DisplayDistanceKm() float64 {
	if b.ReturnTrip {
		return types.Round2(2 * b.DistanceKm)
	}
	return b.DistanceKm
}

// VisibleTo reports whether actor may read b.
func (b *Booking) VisibleTo(actor Actor) bool {
	switch actor.Role {
	case RoleAdmin, RoleSystem:
		return true
	case RoleClient:
		return actor.ID == b.ClientID
	case RoleDriver:
		return actor.ID == b.DriverID
	}
	return false
}

type Event struct {
	ID         int64
	BookingID  types.ID
	FromStatus Status
	ToStatus   Status
	ActorType  Role
	ActorID    *types.ID
	CreatedAt  time.Time
}

// AllowedTransitions is the booking lifecycle. Rejected, completed and
// cancelled are terminal.
var AllowedTransitions = map[Status][]Status{
	StatusNone:     {StatusPending},
	StatusPending:  {StatusAccepted, StatusRejected, StatusCancelled},
	StatusAccepted: {StatusCompleted, StatusCancelled},
}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

// Holding reports whether a booking in status s occupies its driver's slot.
func Holding(s Status) bool {
	return s == StatusPending || s == StatusAccepted
}

func ParseStatus(s string) (Status, bool) {
	switch st := Status(s); st {
	case StatusPending, StatusAccepted, StatusRejected, StatusCompleted, StatusCancelled:
		return st, true
	}
	return "", false
}
