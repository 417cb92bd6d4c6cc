package settings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-event/kirana/internal/audit"
	"github.com/kirana-event/kirana/internal/platform/db"
)

// Repository persists site settings.
type Repository interface {
	Load(ctx context.Context) (Settings, error)
	Save(ctx context.Context, actorID int64, s Settings, changed []string) error
}

// PGRepository stores settings as key/value rows.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Load reads every row; missing keys stay empty.
func (r *PGRepository) Load(ctx context.Context) (Settings, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM site_settings`)
	if err != nil {
		return Settings{}, err
	}
	defer rows.Close()
	values := make(map[string]string, len(Keys))
	var latest time.Time
	for rows.Next() {
		var key, value string
		var at time.Time
		if err := rows.Scan(&key, &value, &at); err != nil {
			return Settings{}, err
		}
		values[key] = value
		if at.After(latest) {
			latest = at
		}
	}
	if err := rows.Err(); err != nil {
		return Settings{}, err
	}
	s := FromValues(values)
	s.UpdatedAt = latest
	return s, nil
}

// Save upserts the changed keys and writes one audit entry.
func (r *PGRepository) Save(ctx context.Context, actorID int64, s Settings, changed []string) error {
	values := s.Values()
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		for _, key := range changed {
			if _, err := tx.Exec(ctx, `INSERT INTO site_settings (key, value, updated_by, updated_at) VALUES ($1, $2, $3, NOW())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_by = EXCLUDED.updated_by, updated_at = EXCLUDED.updated_at`,
				key, values[key], actorID); err != nil {
				return err
			}
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionSettingsUpdated,
			Entity:   audit.EntitySettings,
			EntityID: "site",
			Meta:     map[string]any{"keys": changed},
		})
	})
}

var _ Repository = (*PGRepository)(nil)
