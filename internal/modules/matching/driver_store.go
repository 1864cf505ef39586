// README: Driver profile loader backed by PostgreSQL (drivers, vehicles, ratings).
package matching

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type DriverStore struct {
	db *pgxpool.Pool
}

func NewDriverStore(db *pgxpool.Pool) *DriverStore {
	return &DriverStore{db: db}
}

// LoadDrivers returns the profiles for ids, in no particular order. Unknown
// ids are skipped.
func (s *DriverStore) LoadDrivers(ctx context.Context, ids []types.ID) ([]DriverRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	raw := make([]string, len(ids))
	for i, id := range ids {
		raw[i] = string(id)
	}

	rows, err := s.db.Query(ctx, `
		SELECT d.id, d.full_name, COALESCE(d.city, ''), d.status,
		       d.vehicle_type, d.vehicle_photo_url, d.vehicle_make, d.vehicle_model,
		       r.avg_rating, COALESCE(r.rating_count, 0)
		FROM drivers d
		LEFT JOIN (
			SELECT driver_id, AVG(rating)::float8 AS avg_rating, COUNT(*) AS rating_count
			FROM ratings
			WHERE driver_id = ANY($1)
			GROUP BY driver_id
		) r ON r.driver_id = d.id
		WHERE d.id = ANY($1)`, raw)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[types.ID]int, len(ids))
	var out []DriverRecord
	for rows.Next() {
		var rec DriverRecord
		var vType, vPhoto, vMake, vModel sql.NullString
		var avg sql.NullFloat64
		if err := rows.Scan(&rec.ID, &rec.FullName, &rec.City, &rec.Status,
			&vType, &vPhoto, &vMake, &vModel, &avg, &rec.RatingCount); err != nil {
			return nil, err
		}
		if vType.Valid && vType.String != "" {
			rec.Legacy = &Vehicle{Type: vType.String, Make: vMake.String, Model: vModel.String, PhotoURL: vPhoto.String}
		}
		if avg.Valid {
			v := avg.Float64
			rec.AverageRating = &v
		}
		byID[rec.ID] = len(out)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	vrows, err := s.db.Query(ctx, `
		SELECT id, driver_id, type, COALESCE(make, ''), COALESCE(model, ''), COALESCE(photo_url, '')
		FROM vehicles
		WHERE driver_id = ANY($1)
		ORDER BY created_at`, raw)
	if err != nil {
		return nil, err
	}
	defer vrows.Close()
	for vrows.Next() {
		var v Vehicle
		var driverID types.ID
		if err := vrows.Scan(&v.ID, &driverID, &v.Type, &v.Make, &v.Model, &v.PhotoURL); err != nil {
			return nil, err
		}
		if i, ok := byID[driverID]; ok {
			out[i].Vehicles = append(out[i].Vehicles, v)
		}
	}
	return out, vrows.Err()
}
