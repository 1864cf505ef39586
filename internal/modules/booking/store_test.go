// README: PostgreSQL store tests for the double-booking guard, serialized accepts and optimistic transitions (run with -race).
package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/hammamiayoub/vtc-new-sub000/internal/modules/subscription"
	"github.com/hammamiayoub/vtc-new-sub000/internal/testutil"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

func setupPgStore(t *testing.T) *PgStore {
	t.Helper()
	db := testutil.NewPool(t, "booking_status_events", "bookings", "drivers")
	if _, err := db.Exec(context.Background(), `
		INSERT INTO drivers (id, full_name, status) VALUES
			('drv_a', 'Driver A', 'active'),
			('drv_b', 'Driver B', 'active')`); err != nil {
		t.Fatalf("seed drivers: %v", err)
	}
	return NewStore(db)
}

func newRow(id string, driverID types.ID, at time.Time, slot time.Duration) *Booking {
	return &Booking{
		ID:                 types.ID(id),
		ClientID:           "cli_1",
		DriverID:           driverID,
		PickupAddress:      "Tunis",
		Pickup:             types.Point{Lat: 36.8065, Lng: 10.1815},
		DestinationAddress: "Sousse",
		Destination:        types.Point{Lat: 35.8256, Lng: 10.6360},
		DistanceKm:         116.42,
		Price:              types.TND(186.27),
		VehicleType:        "sedan",
		ScheduledAt:        at,
		ScheduledEnd:       at.Add(slot),
		Status:             StatusPending,
		CreatedAt:          time.Now().UTC(),
	}
}

func TestPgStore_ConcurrentCreateSameSlot(t *testing.T) {
	store := setupPgStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Minute)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// Staggered starts that all overlap the first slot.
			start := at.Add(time.Duration(i) * 10 * time.Minute)
			errs <- store.CreateGuarded(ctx, newRow(fmt.Sprintf("bk_race_%d", i), "drv_a", start, 2*time.Hour))
		}(i)
	}
	wg.Wait()
	close(errs)

	success := 0
	for err := range errs {
		if err == nil {
			success++
			continue
		}
		if !errors.Is(err, ErrDriverUnavailable) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if success != 1 {
		t.Fatalf("expected exactly 1 booking for the slot, got %d", success)
	}
}

func TestPgStore_GuardIgnoresTerminalAndOtherDrivers(t *testing.T) {
	store := setupPgStore(t)
	ctx := context.Background()
	at := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Minute)

	first := newRow("bk_1", "drv_a", at, 2*time.Hour)
	if err := store.CreateGuarded(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateGuarded(ctx, newRow("bk_2", "drv_b", at, 2*time.Hour)); err != nil {
		t.Fatalf("other driver: %v", err)
	}
	if err := store.CreateGuarded(ctx, newRow("bk_3", "drv_a", at.Add(2*time.Hour), 2*time.Hour)); err != nil {
		t.Fatalf("adjacent slot: %v", err)
	}

	reason := "client cancelled"
	ok, err := store.UpdateStatus(ctx, first.ID, StatusPending, StatusCancelled, 0, &reason)
	if err != nil || !ok {
		t.Fatalf("cancel: ok=%v err=%v", ok, err)
	}
	if err := store.CreateGuarded(ctx, newRow("bk_4", "drv_a", at, 2*time.Hour)); err != nil {
		t.Fatalf("slot freed by cancel: %v", err)
	}

	got, err := store.Get(ctx, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusCancelled || got.StatusVersion != 1 || got.CancelledAt == nil {
		t.Fatalf("unexpected row: status=%s version=%d cancelled_at=%v", got.Status, got.StatusVersion, got.CancelledAt)
	}
	if got.CancelReason == nil || *got.CancelReason != reason {
		t.Fatalf("reason = %v", got.CancelReason)
	}
	if got.Price.Amount != 186.27 || got.Price.Currency != types.CurrencyTND {
		t.Fatalf("price = %+v", got.Price)
	}
}

func TestPgStore_ConcurrentAcceptsRespectFreeCap(t *testing.T) {
	store := setupPgStore(t)
	ctx := context.Background()
	oracle := subscription.NewOracle(subscription.NewStore(store.db), 1, time.UTC, nil)

	const attempts = 6
	base := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Minute)
	for i := 0; i < attempts; i++ {
		b := newRow(fmt.Sprintf("bk_acc_%d", i), "drv_a", base.Add(time.Duration(i)*3*time.Hour), time.Hour)
		if err := store.CreateGuarded(ctx, b); err != nil {
			t.Fatalf("seed booking %d: %v", i, err)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			admit := func(ctx context.Context) error { return oracle.Admit(ctx, "drv_a") }
			ok, err := store.AcceptGuarded(ctx, types.ID(fmt.Sprintf("bk_acc_%d", i)), "drv_a", 0, admit)
			if err == nil && !ok {
				err = ErrConflict
			}
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)

	accepted := 0
	for err := range errs {
		if err == nil {
			accepted++
			continue
		}
		if !errors.Is(err, subscription.ErrQuotaExhausted) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 {
		t.Fatalf("expected 1 accepted booking with a free cap of 1, got %d", accepted)
	}

	var n int
	if err := store.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings WHERE driver_id = 'drv_a' AND status = 'accepted'`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("accepted rows = %d, want 1", n)
	}
}

func TestPgStore_UnknownDriver(t *testing.T) {
	store := setupPgStore(t)
	err := store.CreateGuarded(context.Background(), newRow("bk_x", "drv_missing", time.Now().Add(time.Hour), time.Hour))
	if !errors.Is(err, ErrDriverNotFound) {
		t.Fatalf("expected ErrDriverNotFound, got %v", err)
	}
}

func TestPgStore_StaleVersionLoses(t *testing.T) {
	store := setupPgStore(t)
	ctx := context.Background()
	b := newRow("bk_cas", "drv_b", time.Now().UTC().Add(96*time.Hour), time.Hour)
	if err := store.CreateGuarded(ctx, b); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	results := make(chan bool, 2)
	for _, to := range []Status{StatusAccepted, StatusRejected} {
		wg.Add(1)
		go func(to Status) {
			defer wg.Done()
			ok, err := store.UpdateStatus(ctx, b.ID, StatusPending, to, 0, nil)
			if err != nil {
				t.Errorf("update: %v", err)
			}
			results <- ok
		}(to)
	}
	wg.Wait()
	close(results)

	won := 0
	for ok := range results {
		if ok {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d", won)
	}

	if err := store.AppendEvent(ctx, &Event{BookingID: b.ID, FromStatus: StatusNone, ToStatus: StatusPending, ActorType: RoleClient, CreatedAt: time.Now()}); err != nil {
		t.Fatal(err)
	}
	events, err := store.Events(ctx, b.ID)
	if err != nil || len(events) != 1 {
		t.Fatalf("events = %v err=%v", events, err)
	}

	list, err := store.List(ctx, ListFilter{DriverID: &b.DriverID, Limit: 10})
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %d err=%v", len(list), err)
	}
}
