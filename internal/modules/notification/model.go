// README: Notification port; events, capability object and the Notifier interface.
package notification

import (
	"context"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type Kind string

const (
	KindBookingCreated       Kind = "booking.created"
	KindBookingStatusChanged Kind = "booking.status_changed"
	KindBookingCancelled     Kind = "booking.cancelled"
)

// Event describes a booking change worth telling people about.
type Event struct {
	Kind               Kind       `json:"kind"`
	BookingID          types.ID   `json:"booking_id"`
	ClientID           types.ID   `json:"client_id"`
	DriverID           types.ID   `json:"driver_id"`
	Status             string     `json:"status"`
	PickupAddress      string     `json:"pickup_address"`
	DestinationAddress string     `json:"destination_address"`
	ScheduledAt        time.Time  `json:"scheduled_at"`
	PriceTND           float64    `json:"price_tnd"`
	Reason             string     `json:"reason,omitempty"`
	Recipients         []types.ID `json:"-"`
	OccurredAt         time.Time  `json:"occurred_at"`
}

// Capability states whether a channel exists at all (Supported) and whether
// it may reach a given recipient (Granted).
type Capability struct {
	Supported bool `json:"supported"`
	Granted   bool `json:"granted"`
}

func (c Capability) Usable() bool { return c.Supported && c.Granted }

// Notifier is one delivery channel.
type Notifier interface {
	Channel() string
	Capability(ctx context.Context, recipient types.ID) Capability
	Notify(ctx context.Context, recipient types.ID, ev Event) error
}
