// README: Subscription store; reads driver_subscriptions and counts accepted bookings this month.
package subscription

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammamiayoub/vtc-new-sub000/internal/infra"
	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

// Store handles subscription persistence reads.
type Store struct {
	db *pgxpool.Pool
}

// NewStore returns a Store backed by the given connection pool.
func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Load returns whether the driver holds an active paid plan and how many
// bookings they accepted since monthStart. Drivers without a row are free tier.
// Inside a transaction propagated with infra.WithTx the count runs on it.
func (s *Store) Load(ctx context.Context, driverID types.ID, monthStart time.Time) (Record, error) {
	var r Record
	err := infra.QuerierFrom(ctx, s.db).QueryRow(ctx, `
		SELECT
			COALESCE((
				SELECT subscription_type = 'premium' AND status = 'active'
				       AND (period_end IS NULL OR period_end > NOW())
				FROM driver_subscriptions WHERE driver_id = $1
			), FALSE),
			(SELECT COUNT(*) FROM bookings
			 WHERE driver_id = $1
			   AND status IN ('accepted','completed')
			   AND accepted_at >= $2)
	`, string(driverID), monthStart).Scan(&r.PaidActive, &r.MonthlyAcceptedBookings)
	if err != nil {
		return Record{}, err
	}
	return r, nil
}
