// README: Booking store backed by PostgreSQL; creation and acceptance are serialized per driver.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammamiayoub/vtc-new-sub000/internal/infra"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

const (
	sqlStateExclusionViolation  = "23P01"
	sqlStateForeignKeyViolation = "23503"
)

type PgStore struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *PgStore {
	return &PgStore{db: db}
}

// CreateGuarded inserts b unless its driver already holds an overlapping
// pending or accepted booking. A per-driver advisory lock serializes the check
// and the insert; the bookings_driver_no_overlap constraint backs it up.
func (s *PgStore) CreateGuarded(ctx context.Context, b *Booking) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(b.DriverID)); err != nil {
		return fmt.Errorf("driver lock: %w", err)
	}

	var busy bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE driver_id = $1
			  AND status IN ('pending','accepted')
			  AND tstzrange(scheduled_at, scheduled_end) && tstzrange($2, $3)
		)`, string(b.DriverID), b.ScheduledAt, b.ScheduledEnd).Scan(&busy)
	if err != nil {
		return err
	}
	if busy {
		return ErrDriverUnavailable
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO bookings (
			id, client_id, driver_id,
			pickup_address, pickup_lat, pickup_lng,
			destination_address, destination_lat, destination_lng,
			distance_km, price_tnd, vehicle_type, is_return_trip,
			scheduled_at, scheduled_end, status, status_version, notes, created_at
		) VALUES (
			$1, $2, $3,
			$4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15, $16, $17, $18, $19
		)`,
		string(b.ID), string(b.ClientID), string(b.DriverID),
		b.PickupAddress, b.Pickup.Lat, b.Pickup.Lng,
		b.DestinationAddress, b.Destination.Lat, b.Destination.Lng,
		b.DistanceKm, b.Price.Amount, b.VehicleType, b.ReturnTrip,
		b.ScheduledAt, b.ScheduledEnd, string(b.Status), b.StatusVersion, b.Notes, b.CreatedAt,
	)
	if err != nil {
		return mapWriteError(err)
	}
	return mapWriteError(tx.Commit(ctx))
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateExclusionViolation:
			return ErrDriverUnavailable
		case sqlStateForeignKeyViolation:
			return ErrDriverNotFound
		}
	}
	return err
}

const selectBooking = `
	SELECT id, client_id, driver_id,
	       pickup_address, pickup_lat, pickup_lng,
	       destination_address, destination_lat, destination_lng,
	       distance_km::float8, price_tnd::float8, vehicle_type, is_return_trip,
	       scheduled_at, scheduled_end, status, status_version, notes,
	       created_at, accepted_at, completed_at, cancelled_at, cancellation_reason
	FROM bookings`

func scanBooking(row pgx.Row) (*Booking, error) {
	var b Booking
	var id, clientID, driverID, status string
	err := row.Scan(
		&id, &clientID, &driverID,
		&b.PickupAddress, &b.Pickup.Lat, &b.Pickup.Lng,
		&b.DestinationAddress, &b.Destination.Lat, &b.Destination.Lng,
		&b.DistanceKm, &b.Price.Amount, &b.VehicleType, &b.ReturnTrip,
		&b.ScheduledAt, &b.ScheduledEnd, &status, &b.StatusVersion, &b.Notes,
		&b.CreatedAt, &b.AcceptedAt, &b.CompletedAt, &b.CancelledAt, &b.CancelReason,
	)
	if err != nil {
		return nil, err
	}
	b.ID, b.ClientID, b.DriverID = types.ID(id), types.ID(clientID), types.ID(driverID)
	b.Status = Status(status)
	b.Price.Currency = types.CurrencyTND
	return &b, nil
}

func (s *PgStore) Get(ctx context.Context, id types.ID) (*Booking, error) {
	b, err := scanBooking(s.db.QueryRow(ctx, selectBooking+` WHERE id = $1`, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return b, err
}

func updateStatus(ctx context.Context, db infra.Querier, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	tag, err := db.Exec(ctx, `
		UPDATE bookings
		SET status = $1,
		    status_version = status_version + 1,
		    accepted_at = CASE WHEN $1 = 'accepted' THEN NOW() ELSE accepted_at END,
		    completed_at = CASE WHEN $1 = 'completed' THEN NOW() ELSE completed_at END,
		    cancelled_at = CASE WHEN $1 = 'cancelled' THEN NOW() ELSE cancelled_at END,
		    cancellation_reason = COALESCE($2, cancellation_reason)
		WHERE id = $3 AND status = $4 AND status_version = $5`,
		string(to), reason, string(id), string(from), version,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateStatus moves id from -> to only if status_version still equals
// version. It reports false when another writer got there first.
func (s *PgStore) UpdateStatus(ctx context.Context, id types.ID, from, to Status, version int, reason *string) (bool, error) {
	return updateStatus(ctx, s.db, id, from, to, version, reason)
}

// AcceptGuarded runs admit and the pending -> accepted swap in one
// transaction holding the driver's advisory lock, the same lock CreateGuarded
// takes. admit sees the transaction through infra.WithTx. The lock is released
// on commit, so a concurrent accept for the same driver counts this one.
func (s *PgStore) AcceptGuarded(ctx context.Context, id, driverID types.ID, version int, admit func(context.Context) error) (bool, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, string(driverID)); err != nil {
		return false, fmt.Errorf("driver lock: %w", err)
	}
	if admit != nil {
		if err := admit(infra.WithTx(ctx, tx)); err != nil {
			return false, err
		}
	}
	ok, err := updateStatus(ctx, tx, id, StatusPending, StatusAccepted, version, nil)
	if err != nil || !ok {
		return false, err
	}
	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PgStore) AppendEvent(ctx context.Context, e *Event) error {
	var actorID *string
	if e.ActorID != nil {
		v := string(*e.ActorID)
		actorID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO booking_status_events (
			booking_id, from_status, to_status, actor_type, actor_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		string(e.BookingID), string(e.FromStatus), string(e.ToStatus),
		string(e.ActorType), actorID, e.CreatedAt,
	)
	return err
}

func (s *PgStore) Events(ctx context.Context, id types.ID) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, booking_id, from_status, to_status, actor_type, actor_id, created_at
		FROM booking_status_events
		WHERE booking_id = $1
		ORDER BY id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		var bookingID, from, to, actorType string
		var actorID *string
		if err := rows.Scan(&e.ID, &bookingID, &from, &to, &actorType, &actorID, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.BookingID, e.FromStatus, e.ToStatus, e.ActorType = types.ID(bookingID), Status(from), Status(to), Role(actorType)
		if actorID != nil {
			a := types.ID(*actorID)
			e.ActorID = &a
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *PgStore) List(ctx context.Context, f ListFilter) ([]Booking, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.ClientID != nil {
		add("client_id = $%d", string(*f.ClientID))
	}
	if f.DriverID != nil {
		add("driver_id = $%d", string(*f.DriverID))
	}
	if f.Status != nil {
		add("status = $%d", string(*f.Status))
	}
	if f.From != nil {
		add("scheduled_at >= $%d", *f.From)
	}

	q := selectBooking
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, f.Limit)
	q += fmt.Sprintf(" ORDER BY scheduled_at DESC LIMIT $%d", len(args))

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

// ExpirePending cancels pending bookings whose pickup time has passed, freeing
// the driver's slot. It returns the number of rows changed.
func (s *PgStore) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
		    status_version = status_version + 1,
		    cancelled_at = NOW(),
		    cancellation_reason = 'expired'
		WHERE status = 'pending' AND scheduled_at < $1`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
