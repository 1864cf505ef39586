// README: Subscription oracle; monthly free-tier quota with a visible fail-open policy.
package subscription

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type RecordStore interface {
	Load(ctx context.Context, driverID types.ID, monthStart time.Time) (Record, error)
}

// Oracle answers "may this driver take one more accepted booking?".
type Oracle struct {
	store     RecordStore
	freeLimit int
	loc       *time.Location
	log       *zap.Logger
	now       func() time.Time
}

// NewOracle creates an Oracle. Months are counted in loc.
func NewOracle(store RecordStore, freeLimit int, loc *time.Location, log *zap.Logger) *Oracle {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Oracle{store: store, freeLimit: freeLimit, loc: loc, log: log, now: time.Now}
}

// MonthStart returns the first instant of the month containing t in the
// oracle's time zone. Counters reset lazily by comparing against it.
func (o *Oracle) MonthStart(t time.Time) time.Time {
	local := t.In(o.loc)
	return time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, o.loc)
}

// Snapshot derives the subscription status from a record.
func (o *Oracle) Snapshot(r Record) Snapshot {
	if r.PaidActive {
		return Snapshot{
			SubscriptionType:        TypePremium,
			MonthlyAcceptedBookings: r.MonthlyAcceptedBookings,
			CanAcceptMoreBookings:   true,
		}
	}
	remaining := o.freeLimit - r.MonthlyAcceptedBookings
	if remaining < 0 {
		remaining = 0
	}
	return Snapshot{
		SubscriptionType:        TypeFree,
		MonthlyAcceptedBookings: r.MonthlyAcceptedBookings,
		CanAcceptMoreBookings:   remaining > 0,
		RemainingFreeBookings:   &remaining,
	}
}

// Check returns Allowed or Denied with the snapshot, or Unknown when the
// lookup fails. Unknown is never silently mapped here; callers apply
// Decision.Resolve.
func (o *Oracle) Check(ctx context.Context, driverID types.ID) (Decision, *Snapshot, error) {
	rec, err := o.store.Load(ctx, driverID, o.MonthStart(o.now()))
	if err != nil {
		o.log.Warn("subscription lookup failed",
			zap.String("driver_id", driverID.String()),
			zap.String("policy", UnknownQuotaPolicy.String()),
			zap.Error(err))
		return Unknown, nil, err
	}
	snap := o.Snapshot(rec)
	if snap.CanAcceptMoreBookings {
		return Allowed, &snap, nil
	}
	return Denied, &snap, nil
}

// Status returns the snapshot for display; lookup errors are returned as is.
func (o *Oracle) Status(ctx context.Context, driverID types.ID) (*Snapshot, error) {
	_, snap, err := o.Check(ctx, driverID)
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Admit is the gate used when a driver accepts a booking: Denied yields
// ErrQuotaExhausted, Unknown follows UnknownQuotaPolicy.
func (o *Oracle) Admit(ctx context.Context, driverID types.ID) error {
	d, _, _ := o.Check(ctx, driverID)
	if d.Resolve() == Denied {
		return ErrQuotaExhausted
	}
	return nil
}
