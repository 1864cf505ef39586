// README: Booking service: server-side priced creation, guarded against double booking, plus status transitions.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hammamiayoub/vtc-new-sub000/internal/config"
	"github.com/hammamiayoub/vtc-new-sub000/internal/metrics"
	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/notification"
	"github.com/hammamiayoub/vtc-new-sub000/internal/service"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type Store interface {
	CreateGuarded(ctx context.Context, b *Booking) error
	Get(ctx context.Context, id types.ID) (*Booking, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error)
	AcceptGuarded(ctx context.Context, id, driverID types.ID, version int, admit func(context.Context) error) (bool, error)
	AppendEvent(ctx context.Context, e *Event) error
	List(ctx context.Context, f ListFilter) ([]Booking, error)
	Events(ctx context.Context, id types.ID) ([]Event, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type Planner interface {
	Plan(ctx context.Context, req service.PlanRequest) (*service.TripPlan, error)
}

type DistanceGate interface {
	ValidateMinimumDistance(distanceKm float64) error
}

type QuotaGate interface {
	Admit(ctx context.Context, driverID types.ID) error
}

// DriverEligibility applies the search inclusion rules to the chosen driver:
// an availability slot covering the local date and HH:MM, active status, a
// vehicle of the requested type and monthly quota.
type DriverEligibility interface {
	Eligible(ctx context.Context, driverID types.ID, date time.Time, at string, vehicleType string) (bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev notification.Event)
}

type Deps struct {
	Store     Store
	Planner   Planner
	Distance  DistanceGate
	Quota       QuotaGate
	Eligibility DriverEligibility
	Publisher   Publisher
	Metrics     *metrics.Metrics
	Log         *zap.Logger
	// Location is the zone availability slots are expressed in; UTC when nil.
	Location *time.Location
}

type Service struct {
	store     Store
	planner   Planner
	distance  DistanceGate
	quota       QuotaGate
	eligibility DriverEligibility
	publisher   Publisher
	metrics     *metrics.Metrics
	log         *zap.Logger
	loc         *time.Location
	slot        time.Duration
	now         func() time.Time
}

func NewService(deps Deps, cfg config.BookingConfig) *Service {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	slot := cfg.SlotDuration
	if slot <= 0 {
		slot = 2 * time.Hour
	}
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		store:       deps.Store,
		planner:     deps.Planner,
		distance:    deps.Distance,
		quota:       deps.Quota,
		eligibility: deps.Eligibility,
		publisher:   deps.Publisher,
		metrics:     deps.Metrics,
		log:         log,
		loc:         loc,
		slot:        slot,
		now:         time.Now,
	}
}

type CreateCommand struct {
	ClientID           types.ID
	DriverID           types.ID
	PickupAddress      string
	DestinationAddress string
	Pickup             *types.Point
	Destination        *types.Point
	VehicleType        string
	ScheduledAt        time.Time
	ReturnTrip         bool
	Notes              string
}

type TransitionCommand struct {
	BookingID types.ID
	Actor     Actor
	Reason    string
}

type ListFilter struct {
	ClientID *types.ID
	DriverID *types.ID
	Status   *Status
	From     *time.Time
	Limit    int
}

// Create prices the trip server-side and stores it as pending. Client-supplied
// prices are never accepted.
func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*Booking, error) {
	switch {
	case cmd.ClientID == "":
		return nil, ErrClientRequired
	case cmd.DriverID == "":
		return nil, ErrDriverRequired
	case cmd.ScheduledAt.IsZero():
		return nil, ErrScheduleRequired
	case !cmd.ScheduledAt.After(s.now()):
		return nil, ErrScheduleInPast
	}

	at := cmd.ScheduledAt
	plan, err := s.planner.Plan(ctx, service.PlanRequest{
		PickupAddress:      cmd.PickupAddress,
		DestinationAddress: cmd.DestinationAddress,
		Pickup:             cmd.Pickup,
		Destination:        cmd.Destination,
		VehicleType:        cmd.VehicleType,
		ScheduledAt:        &at,
		ReturnTrip:         cmd.ReturnTrip,
	})
	if err != nil {
		return nil, err
	}
	if err := s.distance.ValidateMinimumDistance(plan.Quote.OneWayDistanceKm); err != nil {
		return nil, err
	}
	if err := s.checkEligible(ctx, cmd.DriverID, at, cmd.VehicleType); err != nil {
		return nil, err
	}

	occupied := s.slot
	if cmd.ReturnTrip {
		occupied *= 2
	}
	now := s.now().UTC()
	b := &Booking{
		ID:                 types.ID(uuid.NewString()),
		ClientID:           cmd.ClientID,
		DriverID:           cmd.DriverID,
		PickupAddress:      plan.Pickup.FormattedAddress,
		Pickup:             plan.Pickup.Position,
		DestinationAddress: plan.Destination.FormattedAddress,
		Destination:        plan.Destination.Position,
		DistanceKm:         plan.Quote.OneWayDistanceKm,
		Price:              plan.Quote.Price,
		VehicleType:        plan.Quote.VehicleType,
		ReturnTrip:         cmd.ReturnTrip,
		ScheduledAt:        at.UTC(),
		ScheduledEnd:       at.Add(occupied).UTC(),
		Status:             StatusPending,
		CreatedAt:          now,
	}
	if notes := strings.TrimSpace(cmd.Notes); notes != "" {
		b.Notes = &notes
	}

	if err := s.store.CreateGuarded(ctx, b); err != nil {
		if errors.Is(err, ErrDriverUnavailable) {
			s.metrics.Booking("double_booking_rejected")
		}
		return nil, err
	}
	s.appendEvent(ctx, b.ID, StatusNone, StatusPending, Actor{ID: cmd.ClientID, Role: RoleClient}, now)
	s.metrics.Booking("created")

	s.publish(ctx, notification.KindBookingCreated, b, "")
	return b, nil
}

// checkEligible rejects drivers a search would not have offered for this slot.
func (s *Service) checkEligible(ctx context.Context, driverID types.ID, at time.Time, vehicleType string) error {
	if s.eligibility == nil {
		return nil
	}
	local := at.In(s.loc)
	ok, err := s.eligibility.Eligible(ctx, driverID, local, local.Format("15:04"), vehicleType)
	if err != nil {
		return fmt.Errorf("check driver eligibility: %w", err)
	}
	if !ok {
		s.metrics.Booking("ineligible_driver_rejected")
		return ErrDriverUnavailable
	}
	return nil
}

// Get returns the booking when actor may see it; others get ErrNotFound.
func (s *Service) Get(ctx context.Context, id types.ID, actor Actor) (*Booking, error) {
	b, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !b.VisibleTo(actor) {
		return nil, ErrNotFound
	}
	return b, nil
}

// History returns the status events of a booking the actor may see.
func (s *Service) History(ctx context.Context, id types.ID, actor Actor) ([]Event, error) {
	if _, err := s.Get(ctx, id, actor); err != nil {
		return nil, err
	}
	return s.store.Events(ctx, id)
}

// List scopes the filter to the actor: clients see their bookings, drivers the
// ones assigned to them.
func (s *Service) List(ctx context.Context, actor Actor, f ListFilter) ([]Booking, error) {
	switch actor.Role {
	case RoleClient:
		f.ClientID, f.DriverID = &actor.ID, nil
	case RoleDriver:
		f.DriverID, f.ClientID = &actor.ID, nil
	case RoleAdmin:
	default:
		return nil, ErrForbidden
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	return s.store.List(ctx, f)
}

// Accept requires the assigned driver and a monthly quota admission.
func (s *Service) Accept(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if cmd.Actor.Role != RoleDriver || cmd.Actor.ID != b.DriverID {
		return nil, ErrForbidden
	}
	return s.transition(ctx, b, StatusAccepted, cmd)
}

func (s *Service) Reject(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if cmd.Actor.Role != RoleDriver || cmd.Actor.ID != b.DriverID {
		return nil, ErrForbidden
	}
	return s.transition(ctx, b, StatusRejected, cmd)
}

func (s *Service) Complete(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	isDriver := cmd.Actor.Role == RoleDriver && cmd.Actor.ID == b.DriverID
	if !isDriver && cmd.Actor.Role != RoleAdmin {
		return nil, ErrForbidden
	}
	return s.transition(ctx, b, StatusCompleted, cmd)
}

// Cancel is open to the booking's client, its driver and admins.
func (s *Service) Cancel(ctx context.Context, cmd TransitionCommand) (*Booking, error) {
	b, err := s.store.Get(ctx, cmd.BookingID)
	if err != nil {
		return nil, err
	}
	if cmd.Actor.Role == RoleSystem || !b.VisibleTo(cmd.Actor) {
		return nil, ErrForbidden
	}
	return s.transition(ctx, b, StatusCancelled, cmd)
}

func (s *Service) transition(ctx context.Context, b *Booking, to Status, cmd TransitionCommand) (*Booking, error) {
	if !CanTransition(b.Status, to) {
		return nil, ErrInvalidState
	}
	var reason *string
	if r := strings.TrimSpace(cmd.Reason); r != "" && to == StatusCancelled {
		reason = &r
	}
	var ok bool
	var err error
	if to == StatusAccepted {
		ok, err = s.store.AcceptGuarded(ctx, b.ID, b.DriverID, b.StatusVersion, s.admit(b.DriverID))
	} else {
		ok, err = s.store.UpdateStatus(ctx, b.ID, b.Status, to, b.StatusVersion, reason)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConflict
	}

	from := b.Status
	now := s.now().UTC()
	s.appendEvent(ctx, b.ID, from, to, cmd.Actor, now)
	s.metrics.Booking(string(to))

	b.Status = to
	b.StatusVersion++
	switch to {
	case StatusAccepted:
		b.AcceptedAt = &now
	case StatusCompleted:
		b.CompletedAt = &now
	case StatusCancelled:
		b.CancelledAt = &now
		b.CancelReason = reason
	}

	kind := notification.KindBookingStatusChanged
	if to == StatusCancelled {
		kind = notification.KindBookingCancelled
	}
	s.publish(ctx, kind, b, cmd.Reason)
	return b, nil
}

// admit returns the quota gate run under the driver's accept lock.
func (s *Service) admit(driverID types.ID) func(context.Context) error {
	if s.quota == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return s.quota.Admit(ctx, driverID)
	}
}

func (s *Service) appendEvent(ctx context.Context, id types.ID, from, to Status, actor Actor, at time.Time) {
	var actorID *types.ID
	if actor.ID != "" {
		a := actor.ID
		actorID = &a
	}
	err := s.store.AppendEvent(ctx, &Event{
		BookingID:  id,
		FromStatus: from,
		ToStatus:   to,
		ActorType:  actor.Role,
		ActorID:    actorID,
		CreatedAt:  at,
	})
	if err != nil {
		s.log.Warn("append booking event failed",
			zap.String("booking_id", id.String()),
			zap.String("to", string(to)),
			zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, kind notification.Kind, b *Booking, reason string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, notification.Event{
		Kind:               kind,
		BookingID:          b.ID,
		ClientID:           b.ClientID,
		DriverID:           b.DriverID,
		Status:             string(b.Status),
		PickupAddress:      b.PickupAddress,
		DestinationAddress: b.DestinationAddress,
		ScheduledAt:        b.ScheduledAt,
		PriceTND:           b.Price.Amount,
		Reason:             reason,
		Recipients:         []types.ID{b.ClientID, b.DriverID},
		OccurredAt:         s.now().UTC(),
	})
}

// RunExpiryMonitor cancels pending bookings whose pickup time passed without a
// driver answer, until ctx is done.
func (s *Service) RunExpiryMonitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.store.ExpirePending(ctx, s.now())
			if err != nil {
				s.log.Warn("expire pending bookings failed", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("expired pending bookings", zap.Int64("count", n))
				s.metrics.Bookings("expired", n)
			}
		}
	}
}
