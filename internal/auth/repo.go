package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error
	DeleteSession(ctx context.Context, id string) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches a user by email, case-insensitively.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	var role string
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, role, password_hash, is_active, created_at, updated_at
FROM users WHERE lower(email) = $1`, strings.ToLower(strings.TrimSpace(email))).
		Scan(&user.ID, &user.Email, &user.Name, &role, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	user.Role = access.Role(role)
	return &user, nil
}

// CreateSession persists a new login session in the database for auditing.
func (r *PGRepository) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	now := time.Now().UTC()
	_, err := r.pool.Exec(ctx, `INSERT INTO sessions (id, user_id, created_at, expires_at, ip, ua) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID,
		pgtype.Timestamptz{Time: now, Valid: true},
		pgtype.Timestamptz{Time: expiresAt.UTC(), Valid: true},
		pgtype.Text{String: ip, Valid: ip != ""},
		pgtype.Text{String: ua, Valid: ua != ""},
	)
	return err
}

// DeleteSession removes a session record from the database.
func (r *PGRepository) DeleteSession(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

var _ Repository = (*PGRepository)(nil)
