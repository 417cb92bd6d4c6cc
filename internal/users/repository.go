package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/audit"
	"github.com/kirana-event/kirana/internal/platform/db"
	"github.com/kirana-event/kirana/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func listWhere(filter ListFilter) (string, []any) {
	var conds []string
	var args []any
	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+strings.ToLower(q)+"%")
		conds = append(conds, fmt.Sprintf("(lower(u.email) LIKE $%d OR lower(u.name) LIKE $%d)", len(args), len(args)))
	}
	if filter.Role != "" {
		args = append(args, string(filter.Role))
		conds = append(conds, fmt.Sprintf("u.role = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListUsers returns one page of users with their grant count.
func (r *Repository) ListUsers(ctx context.Context, filter ListFilter, limit, offset int) ([]User, error) {
	where, args := listWhere(filter)
	args = append(args, limit, offset)
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.email, u.name, u.role, u.is_active, u.created_at, u.updated_at,
  (SELECT COUNT(*) FROM user_permissions p WHERE p.user_id = u.id)
FROM users u`+where+fmt.Sprintf(" ORDER BY u.created_at DESC, u.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt, &u.GrantCount); err != nil {
			return nil, err
		}
		u.Role = access.Role(role)
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers counts users matching filter.
func (r *Repository) CountUsers(ctx context.Context, filter ListFilter) (int, error) {
	where, args := listWhere(filter)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users u`+where, args...).Scan(&total)
	return total, err
}

// FindUser loads one user.
func (r *Repository) FindUser(ctx context.Context, id int64) (User, error) {
	var u User
	var role string
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, role, is_active, created_at, updated_at FROM users WHERE id = $1`, id).
		Scan(&u.ID, &u.Email, &u.Name, &role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, shared.ErrNotFound
		}
		return User{}, err
	}
	u.Role = access.Role(role)
	return u, nil
}

// UpdateRole changes the role and writes the audit entry.
func (r *Repository) UpdateRole(ctx context.Context, actorID, id int64, from, to access.Role) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1`, id, string(to))
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionRoleChanged,
			Entity:   audit.EntityUser,
			EntityID: fmt.Sprint(id),
			Meta:     map[string]any{"from": string(from), "to": string(to)},
		})
	})
}

// SetActive toggles the account and writes the audit entry.
func (r *Repository) SetActive(ctx context.Context, actorID, id int64, active bool) error {
	action := audit.ActionUserDeactivated
	if active {
		action = audit.ActionUserActivated
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE users SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		return audit.Write(ctx, tx, audit.Entry{ActorID: actorID, Action: action, Entity: audit.EntityUser, EntityID: fmt.Sprint(id)})
	})
}

// UpdateName changes the display name.
func (r *Repository) UpdateName(ctx context.Context, id int64, name string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET name = $2, updated_at = NOW() WHERE id = $1`, id, name)
	return err
}

// PasswordHash returns the stored bcrypt hash.
func (r *Repository) PasswordHash(ctx context.Context, id int64) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `SELECT password_hash FROM users WHERE id = $1`, id).Scan(&hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", shared.ErrNotFound
	}
	return hash, err
}

// UpdatePassword stores a new bcrypt hash.
func (r *Repository) UpdatePassword(ctx context.Context, id int64, hash string) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	return err
}

// SeedSuperadmin creates the account or promotes an existing one with the
// same email. The returned flag reports whether a new row was inserted.
func (r *Repository) SeedSuperadmin(ctx context.Context, email, name, hash string) (int64, bool, error) {
	var (
		id      int64
		created bool
	)
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role, is_active)
VALUES ($1, $2, $3, 'superadmin', TRUE)
ON CONFLICT (email) DO UPDATE
SET name = EXCLUDED.name, password_hash = EXCLUDED.password_hash, role = 'superadmin', is_active = TRUE, updated_at = NOW()
RETURNING id, (xmax = 0)`, email, name, hash).Scan(&id, &created)
		if err != nil {
			return err
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  id,
			Action:   audit.ActionSuperadminSeeded,
			Entity:   audit.EntityUser,
			EntityID: fmt.Sprint(id),
			Meta:     map[string]any{"created": created},
		})
	})
	return id, created, err
}

var _ RepositoryPort = (*Repository)(nil)
