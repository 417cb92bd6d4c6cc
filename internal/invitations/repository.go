package invitations

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/audit"
	"github.com/kirana-event/kirana/internal/platform/db"
	"github.com/kirana-event/kirana/internal/shared"
)

// Repository defines invitation persistence.
type Repository interface {
	Create(ctx context.Context, inv Invitation) error
	List(ctx context.Context) ([]Invitation, error)
	FindByToken(ctx context.Context, token string) (Invitation, error)
	EmailRegistered(ctx context.Context, email string) (bool, error)
	HasPending(ctx context.Context, email string, now time.Time) (bool, error)
	Revoke(ctx context.Context, actorID int64, id uuid.UUID, at time.Time) error
	Accept(ctx context.Context, token string, name, passwordHash string, at time.Time) (int64, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const selectInvitation = `SELECT id, email, token, role, invited_by, expires_at, accepted_at, revoked_at, created_at FROM invitations`

func scanInvitation(row pgx.Row) (Invitation, error) {
	var inv Invitation
	var role string
	err := row.Scan(&inv.ID, &inv.Email, &inv.Token, &role, &inv.InvitedBy, &inv.ExpiresAt, &inv.AcceptedAt, &inv.RevokedAt, &inv.CreatedAt)
	if err != nil {
		return Invitation{}, err
	}
	inv.Role = access.Role(role)
	return inv, nil
}

// Create stores the invitation and its audit entry.
func (r *PGRepository) Create(ctx context.Context, inv Invitation) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `INSERT INTO invitations (id, email, token, role, invited_by, expires_at, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			inv.ID, inv.Email, inv.Token, string(inv.Role), inv.InvitedBy, inv.ExpiresAt, inv.CreatedAt)
		if err != nil {
			return fmt.Errorf("invitations: insert: %w", err)
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  inv.InvitedBy,
			Action:   audit.ActionInvitationCreated,
			Entity:   audit.EntityInvitation,
			EntityID: inv.ID.String(),
			Meta:     map[string]any{"email": inv.Email, "role": string(inv.Role)},
		})
	})
}

// List returns invitations newest first.
func (r *PGRepository) List(ctx context.Context) ([]Invitation, error) {
	rows, err := r.pool.Query(ctx, selectInvitation+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

// FindByToken loads an invitation by its token.
func (r *PGRepository) FindByToken(ctx context.Context, token string) (Invitation, error) {
	inv, err := scanInvitation(r.pool.QueryRow(ctx, selectInvitation+` WHERE token = $1`, token))
	if errors.Is(err, pgx.ErrNoRows) {
		return Invitation{}, shared.ErrNotFound
	}
	return inv, err
}

// EmailRegistered reports whether a user exists for email.
func (r *PGRepository) EmailRegistered(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(email) = lower($1))`, email).Scan(&exists)
	return exists, err
}

// HasPending reports whether an unexpired open invitation exists for email.
func (r *PGRepository) HasPending(ctx context.Context, email string, now time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invitations WHERE lower(email) = lower($1)
AND accepted_at IS NULL AND revoked_at IS NULL AND expires_at > $2)`, email, now).Scan(&exists)
	return exists, err
}

// Revoke marks an open invitation as revoked.
func (r *PGRepository) Revoke(ctx context.Context, actorID int64, id uuid.UUID, at time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE invitations SET revoked_at = $2 WHERE id = $1 AND accepted_at IS NULL AND revoked_at IS NULL`, id, at)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrInvitationInvalid
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionInvitationRevoked,
			Entity:   audit.EntityInvitation,
			EntityID: id.String(),
		})
	})
}

// Accept redeems the token: it creates the user and marks the invitation used
// in one transaction. The invitation row is locked so a token is used once.
func (r *PGRepository) Accept(ctx context.Context, token string, name, passwordHash string, at time.Time) (int64, error) {
	var userID int64
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		inv, err := scanInvitation(tx.QueryRow(ctx, selectInvitation+` WHERE token = $1 FOR UPDATE`, token))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrInvitationInvalid
			}
			return err
		}
		if !inv.Usable(at) {
			return ErrInvitationInvalid
		}
		err = tx.QueryRow(ctx, `INSERT INTO users (email, name, password_hash, role) VALUES ($1, $2, $3, $4) RETURNING id`,
			inv.Email, name, passwordHash, string(inv.Role)).Scan(&userID)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrEmailTaken
			}
			return fmt.Errorf("invitations: create user: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE invitations SET accepted_at = $2 WHERE id = $1`, inv.ID, at); err != nil {
			return err
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  userID,
			Action:   audit.ActionInvitationUsed,
			Entity:   audit.EntityInvitation,
			EntityID: inv.ID.String(),
			Meta:     map[string]any{"email": inv.Email},
		})
	})
	return userID, err
}

var _ Repository = (*PGRepository)(nil)
