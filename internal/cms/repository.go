package cms

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kirana-event/kirana/internal/audit"
	"github.com/kirana-event/kirana/internal/platform/db"
	"github.com/kirana-event/kirana/internal/shared"
)

// Repository persists content versions.
type Repository interface {
	Versions(ctx context.Context, page Page) ([]Content, error)
	Find(ctx context.Context, id uuid.UUID) (Content, error)
	Published(ctx context.Context, page Page) (Content, error)
	CreateDraft(ctx context.Context, actorID int64, page Page, title string, body Body) (Content, error)
	UpdateDraft(ctx context.Context, actorID int64, id uuid.UUID, title string, body Body) error
	Transition(ctx context.Context, actorID int64, c Content, to Status, at time.Time) error
}

// PGRepository implements Repository on PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const contentColumns = `id, page_key, version, status, title, body, created_by, updated_by, created_at, updated_at, published_at`

func scanContent(row pgx.Row) (Content, error) {
	var c Content
	var page, status string
	var raw []byte
	if err := row.Scan(&c.ID, &page, &c.Version, &status, &c.Title, &raw, &c.CreatedBy, &c.UpdatedBy, &c.CreatedAt, &c.UpdatedAt, &c.PublishedAt); err != nil {
		return Content{}, err
	}
	c.Page = Page(page)
	c.Status = Status(status)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &c.Body); err != nil {
			return Content{}, err
		}
	}
	return c, nil
}

// Versions lists every version of page, newest first.
func (r *PGRepository) Versions(ctx context.Context, page Page) ([]Content, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+contentColumns+` FROM cms_contents WHERE page_key = $1 ORDER BY version DESC`, string(page))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Find loads one version.
func (r *PGRepository) Find(ctx context.Context, id uuid.UUID) (Content, error) {
	c, err := scanContent(r.pool.QueryRow(ctx, `SELECT `+contentColumns+` FROM cms_contents WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Content{}, shared.ErrNotFound
	}
	return c, err
}

// Published loads the live version of page.
func (r *PGRepository) Published(ctx context.Context, page Page) (Content, error) {
	c, err := scanContent(r.pool.QueryRow(ctx, `SELECT `+contentColumns+` FROM cms_contents WHERE page_key = $1 AND status = 'published'`, string(page)))
	if errors.Is(err, pgx.ErrNoRows) {
		return Content{}, ErrNothingPublished
	}
	return c, err
}

// lockPage serialises version numbering and publishing per page.
func lockPage(ctx context.Context, tx pgx.Tx, page Page) error {
	_, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, shared.ContentLockKey(string(page)))
	return err
}

// CreateDraft inserts the next version number for page as a draft.
func (r *PGRepository) CreateDraft(ctx context.Context, actorID int64, page Page, title string, body Body) (Content, error) {
	raw, err := json.Marshal(body)
	if err != nil {
		return Content{}, err
	}
	var created Content
	err = db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockPage(ctx, tx, page); err != nil {
			return err
		}
		c, err := scanContent(tx.QueryRow(ctx, `INSERT INTO cms_contents (id, page_key, version, status, title, body, created_by, updated_by)
SELECT $1, $2, COALESCE(MAX(version), 0) + 1, 'draft', $3, $4, $5, $5 FROM cms_contents WHERE page_key = $2
RETURNING `+contentColumns, uuid.New(), string(page), title, raw, actorID))
		if err != nil {
			return err
		}
		created = c
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionContentCreated,
			Entity:   audit.EntityContent,
			EntityID: c.ID.String(),
			Meta:     map[string]any{"page": string(page), "version": c.Version},
		})
	})
	return created, err
}

// UpdateDraft saves title and body when the version is still a draft.
func (r *PGRepository) UpdateDraft(ctx context.Context, actorID int64, id uuid.UUID, title string, body Body) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE cms_contents SET title = $2, body = $3, updated_by = $4, updated_at = NOW()
WHERE id = $1 AND status = 'draft'`, id, title, raw, actorID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotEditable
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:  actorID,
			Action:   audit.ActionContentUpdated,
			Entity:   audit.EntityContent,
			EntityID: id.String(),
			Meta:     map[string]any{"hero": len(body.Hero), "details": len(body.Details)},
		})
	})
}

// Transition moves c to status to. Publishing archives the page's previous
// live version in the same transaction.
func (r *PGRepository) Transition(ctx context.Context, actorID int64, c Content, to Status, at time.Time) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if err := lockPage(ctx, tx, c.Page); err != nil {
			return err
		}
		if to == StatusPublished {
			if _, err := tx.Exec(ctx, `UPDATE cms_contents SET status = 'archived', updated_by = $3, updated_at = $4
WHERE page_key = $1 AND status = 'published' AND id <> $2`, string(c.Page), c.ID, actorID, at); err != nil {
				return err
			}
		}
		var publishedAt any
		if to == StatusPublished {
			publishedAt = at
		}
		tag, err := tx.Exec(ctx, `UPDATE cms_contents SET status = $3, updated_by = $4, updated_at = $5,
  published_at = COALESCE($6::timestamptz, published_at)
WHERE id = $1 AND status = $2`, c.ID, string(c.Status), string(to), actorID, at, publishedAt)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrConflict
		}
		return audit.Write(ctx, tx, audit.Entry{
			ActorID:    actorID,
			Action:     audit.ActionContentTransition,
			Entity:     audit.EntityContent,
			EntityID:   c.ID.String(),
			Meta:       map[string]any{"page": string(c.Page), "version": c.Version, "from": string(c.Status), "to": string(to)},
			OccurredAt: at,
		})
	})
}

var _ Repository = (*PGRepository)(nil)
