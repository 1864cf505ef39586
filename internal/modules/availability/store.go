// README: Availability store backed by PostgreSQL (driver_availability table).
package availability

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

const slotColumns = `id, driver_id, to_char(date, 'YYYY-MM-DD'),
	to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), is_available, created_at`

func (s *Store) Insert(ctx context.Context, sl *Slot) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO driver_availability (id, driver_id, date, start_time, end_time, is_available, created_at)
		VALUES ($1, $2, $3::date, $4::time, $5::time, $6, $7)`,
		string(sl.ID), string(sl.DriverID), sl.Date,
		sl.StartTime.String(), sl.EndTime.String(), sl.IsAvailable, sl.CreatedAt,
	)
	return err
}

func (s *Store) ListAvailableOn(ctx context.Context, date string) ([]Slot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM driver_availability
		WHERE date = $1::date AND is_available = TRUE`, date)
	if err != nil {
		return nil, err
	}
	return scanSlots(rows)
}

func (s *Store) ListByDriver(ctx context.Context, driverID types.ID, from, to string) ([]Slot, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+slotColumns+`
		FROM driver_availability
		WHERE driver_id = $1 AND date BETWEEN $2::date AND $3::date
		ORDER BY date, start_time`, string(driverID), from, to)
	if err != nil {
		return nil, err
	}
	return scanSlots(rows)
}

func (s *Store) Delete(ctx context.Context, driverID, slotID types.ID) (bool, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM driver_availability WHERE id = $1 AND driver_id = $2`,
		string(slotID), string(driverID))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) SetAvailable(ctx context.Context, driverID, slotID types.ID, available bool) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE driver_availability SET is_available = $3
		WHERE id = $1 AND driver_id = $2`,
		string(slotID), string(driverID), available)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func scanSlots(rows pgx.Rows) ([]Slot, error) {
	defer rows.Close()
	var out []Slot
	for rows.Next() {
		var sl Slot
		var start, end string
		if err := rows.Scan(&sl.ID, &sl.DriverID, &sl.Date, &start, &end, &sl.IsAvailable, &sl.CreatedAt); err != nil {
			return nil, err
		}
		var err error
		if sl.StartTime, err = ParseClock(start); err != nil {
			return nil, err
		}
		if sl.EndTime, err = ParseClock(end); err != nil {
			return nil, err
		}
		out = append(out, sl)
	}
	return out, rows.Err()
}
