package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository membaca audit_logs.
type Repository interface {
	List(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error)
	Count(ctx context.Context, filters Filters) (int, error)
}

// PGRepository mengimplementasikan Repository dengan PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository membuat PGRepository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func whereClause(filters Filters) (string, []any) {
	var conds []string
	var args []any
	if v := strings.TrimSpace(filters.Action); v != "" {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("l.action = $%d", len(args)))
	}
	if v := strings.TrimSpace(filters.Entity); v != "" {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("l.entity = $%d", len(args)))
	}
	if filters.ActorID > 0 {
		args = append(args, filters.ActorID)
		conds = append(conds, fmt.Sprintf("l.actor_id = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List mengembalikan entry terbaru lebih dulu.
func (r *PGRepository) List(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error) {
	where, args := whereClause(filters)
	args = append(args, limit, offset)
	query := `SELECT l.id, l.actor_id, COALESCE(u.email, ''), l.action, l.entity, l.entity_id, l.meta, l.occurred_at
FROM audit_logs l LEFT JOIN users u ON u.id = l.actor_id` + where +
		fmt.Sprintf(" ORDER BY l.occurred_at DESC, l.id DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		var e Entry
		var meta []byte
		if err := rows.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.Action, &e.Entity, &e.EntityID, &meta, &e.OccurredAt); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Meta); err != nil {
				return nil, fmt.Errorf("audit: decode meta %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Count menghitung entry yang cocok dengan filter.
func (r *PGRepository) Count(ctx context.Context, filters Filters) (int, error) {
	where, args := whereClause(filters)
	var total int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_logs l`+where, args...).Scan(&total)
	return total, err
}

var _ Repository = (*PGRepository)(nil)
