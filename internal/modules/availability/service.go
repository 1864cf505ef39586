// README: Availability service; driver slot management and the find-available filter.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type SlotStore interface {
	Insert(ctx context.Context, s *Slot) error
	ListAvailableOn(ctx context.Context, date string) ([]Slot, error)
	ListByDriver(ctx context.Context, driverID types.ID, from, to string) ([]Slot, error)
	Delete(ctx context.Context, driverID, slotID types.ID) (bool, error)
	SetAvailable(ctx context.Context, driverID, slotID types.ID, available bool) (bool, error)
}

type Service struct {
	store SlotStore
	now   func() time.Time
}

func NewService(store SlotStore) *Service {
	return &Service{store: store, now: time.Now}
}

// FindAvailable returns the drivers with at least one available slot on date
// covering at ("HH:MM"). An empty set is a valid result.
func (s *Service) FindAvailable(ctx context.Context, date time.Time, at string) (map[types.ID]struct{}, error) {
	t, err := ParseClock(at)
	if err != nil {
		return nil, err
	}
	slots, err := s.store.ListAvailableOn(ctx, date.Format(DateLayout))
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return CoveringDrivers(slots, t), nil
}

// CoveringDrivers selects drivers owning a slot that covers t. Slots are
// assumed to belong to a single date already.
func CoveringDrivers(slots []Slot, t Clock) map[types.ID]struct{} {
	out := make(map[types.ID]struct{})
	for _, sl := range slots {
		if sl.Covers(t) {
			out[sl.DriverID] = struct{}{}
		}
	}
	return out
}

func (s *Service) CreateSlot(ctx context.Context, cmd CreateSlotCommand) (*Slot, error) {
	if cmd.DriverID == "" {
		return nil, ErrDriverRequired
	}
	date, err := ParseDate(cmd.Date)
	if err != nil {
		return nil, err
	}
	start, err := ParseClock(cmd.StartTime)
	if err != nil {
		return nil, err
	}
	end, err := ParseClock(cmd.EndTime)
	if err != nil {
		return nil, err
	}
	if start >= end {
		return nil, ErrInvalidWindow
	}
	available := true
	if cmd.IsAvailable != nil {
		available = *cmd.IsAvailable
	}

	slot := &Slot{
		ID:          types.ID(uuid.NewString()),
		DriverID:    cmd.DriverID,
		Date:        date.Format(DateLayout),
		StartTime:   start,
		EndTime:     end,
		IsAvailable: available,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.store.Insert(ctx, slot); err != nil {
		return nil, fmt.Errorf("insert slot: %w", err)
	}
	return slot, nil
}

// ListSlots returns the driver's slots between from and to (inclusive dates).
func (s *Service) ListSlots(ctx context.Context, driverID types.ID, from, to time.Time) ([]Slot, error) {
	if driverID == "" {
		return nil, ErrDriverRequired
	}
	if to.Before(from) {
		from, to = to, from
	}
	return s.store.ListByDriver(ctx, driverID, from.Format(DateLayout), to.Format(DateLayout))
}

func (s *Service) DeleteSlot(ctx context.Context, driverID, slotID types.ID) error {
	ok, err := s.store.Delete(ctx, driverID, slotID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotNotFound
	}
	return nil
}

func (s *Service) SetAvailable(ctx context.Context, driverID, slotID types.ID, available bool) error {
	ok, err := s.store.SetAvailable(ctx, driverID, slotID, available)
	if err != nil {
		return err
	}
	if !ok {
		return ErrSlotNotFound
	}
	return nil
}
