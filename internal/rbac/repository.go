package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/audit"
	"github.com/kirana-event/kirana/internal/platform/db"
	"github.com/kirana-event/kirana/internal/shared"
)

// Repository defines persistence for principals and their grants.
type Repository interface {
	FindPrincipal(ctx context.Context, userID int64) (Principal, error)
	ListGrants(ctx context.Context, userID int64) ([]access.PermissionGrant, error)
	ListUsers(ctx context.Context) ([]UserSummary, error)
	ReplaceGrants(ctx context.Context, actorID, userID int64, grants []access.PermissionGrant, meta map[string]any) error
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindPrincipal loads a user by id.
func (r *PGRepository) FindPrincipal(ctx context.Context, userID int64) (Principal, error) {
	var p Principal
	var role string
	err := r.pool.QueryRow(ctx, `SELECT id, email, name, role, is_active FROM users WHERE id = $1`, userID).
		Scan(&p.ID, &p.Email, &p.Name, &role, &p.IsActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Principal{}, shared.ErrNotFound
		}
		return Principal{}, err
	}
	p.Role = access.Role(role)
	return p, nil
}

// ListGrants returns the user's stored grants in insertion order.
func (r *PGRepository) ListGrants(ctx context.Context, userID int64) ([]access.PermissionGrant, error) {
	rows, err := r.pool.Query(ctx, `SELECT page_key, feature_key, access_granted FROM user_permissions WHERE user_id = $1 ORDER BY id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	grants := make([]access.PermissionGrant, 0)
	for rows.Next() {
		var page, feature pgtype.Text
		var granted bool
		if err := rows.Scan(&page, &feature, &granted); err != nil {
			return nil, err
		}
		grants = append(grants, access.NewGrant(page.String, feature.String, granted))
	}
	return grants, rows.Err()
}

// ListUsers returns every user with the number of stored grants.
func (r *PGRepository) ListUsers(ctx context.Context) ([]UserSummary, error) {
	rows, err := r.pool.Query(ctx, `SELECT u.id, u.email, u.name, u.role, u.is_active, COUNT(p.id)
FROM users u LEFT JOIN user_permissions p ON p.user_id = u.id
GROUP BY u.id ORDER BY u.name, u.email`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UserSummary
	for rows.Next() {
		var u UserSummary
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &u.IsActive, &u.GrantCount); err != nil {
			return nil, err
		}
		u.Role = access.Role(role)
		out = append(out, u)
	}
	return out, rows.Err()
}

// ReplaceGrants swaps the user's grants and writes the audit entry in one transaction.
func (r *PGRepository) ReplaceGrants(ctx context.Context, actorID, userID int64, grants []access.PermissionGrant, meta map[string]any) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM user_permissions WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("rbac: clear grants: %w", err)
		}
		for _, g := range grants {
			if _, err := tx.Exec(ctx, `INSERT INTO user_permissions (user_id, page_key, feature_key, access_granted) VALUES ($1, $2, $3, $4)`,
				userID, g.PageKey, g.FeatureKey, g.AccessGranted); err != nil {
				return fmt.Errorf("rbac: insert grant %s: %w", access.GrantKey(g), err)
			}
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionGrantsReplaced,
			Entity:   audit.EntityUser,
			EntityID: fmt.Sprint(userID),
			Meta:     meta,
		})
	})
}

var _ Repository = (*PGRepository)(nil)
