// README: Subscription quota snapshot and the tri-state admission decision.
package subscription

import "errors"

// ErrQuotaExhausted is returned when a free-tier driver has no bookings left this month.
var ErrQuotaExhausted = errors.New("monthly free booking quota exhausted; a paid subscription is required")

type Type string

const (
	TypeFree    Type = "free"
	TypePremium Type = "premium"
)

// Decision is the outcome of a quota check.
type Decision int

const (
	Unknown Decision = iota
	Allowed
	Denied
)

func (d Decision) String() string {
	switch d {
	case Allowed:
		return "allowed"
	case Denied:
		return "denied"
	default:
		return "unknown"
	}
}

// UnknownQuotaPolicy is what an Unknown decision resolves to when admitting a
// driver. Matching favours availability over strictness.
const UnknownQuotaPolicy = Allowed

// Resolve maps Unknown through UnknownQuotaPolicy.
func (d Decision) Resolve() Decision {
	if d == Unknown {
		return UnknownQuotaPolicy
	}
	return d
}

// Snapshot mirrors the subscription-status payload for one driver.
type Snapshot struct {
	SubscriptionType        Type `json:"subscription_type"`
	MonthlyAcceptedBookings int  `json:"monthly_accepted_bookings"`
	CanAcceptMoreBookings   bool `json:"can_accept_more_bookings"`
	// RemainingFreeBookings is nil for paid subscriptions (unlimited).
	RemainingFreeBookings *int `json:"remaining_free_bookings"`
}

// Record is the raw persisted state the snapshot is derived from.
type Record struct {
	PaidActive              bool
	MonthlyAcceptedBookings int
}
