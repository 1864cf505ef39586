// README: Device token store backed by PostgreSQL (device_tokens table).
package notification

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hammamiayoub/vtc-new-sub000/internal/types"
)

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) DeviceTokens(ctx context.Context, userID types.ID) ([]string, error) {
	rows, err := s.db.Query(ctx, `
		SELECT token FROM device_tokens
		WHERE user_id = $1
		ORDER BY updated_at DESC`, string(userID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var tok string
		if err := rows.Scan(&tok); err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, rows.Err()
}

// RegisterToken upserts a device token for userID.
func (s *Store) RegisterToken(ctx context.Context, userID types.ID, token, platform string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO device_tokens (user_id, token, platform, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, token) DO UPDATE SET platform = EXCLUDED.platform, updated_at = NOW()`,
		string(userID), token, platform)
	return err
}

func (s *Store) RemoveToken(ctx context.Context, userID types.ID, token string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM device_tokens WHERE user_id = $1 AND token = $2`, string(userID), token)
	return err
}
