package audit

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/kirana-event/kirana/internal/platform/db"
)

// ErrIncomplete dikembalikan ketika entry tidak memiliki action/entity/entity_id.
var ErrIncomplete = errors.New("audit: entry requires action, entity and entity_id")

// Write menyimpan entry memakai querier yang diberikan, sehingga bisa ikut
// dalam transaksi pemanggil.
func Write(ctx context.Context, q db.Querier, e Entry) error {
	if e.Action == "" || e.Entity == "" || e.EntityID == "" {
		return ErrIncomplete
	}
	meta := e.Meta
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	var at any
	if !e.OccurredAt.IsZero() {
		at = e.OccurredAt.UTC()
	}
	_, err = q.Exec(ctx, `INSERT INTO audit_logs (actor_id, action, entity, entity_id, meta, occurred_at)
VALUES ($1, $2, $3, $4, $5, COALESCE($6::timestamptz, NOW()))`,
		e.ActorID, e.Action, e.Entity, e.EntityID, metaJSON, at)
	return err
}

// Recorder menulis entry di luar transaksi.
type Recorder struct {
	q db.Querier
}

// NewRecorder membuat Recorder di atas pool atau transaksi.
func NewRecorder(q db.Querier) *Recorder {
	return &Recorder{q: q}
}

// Record menyimpan entry.
func (r *Recorder) Record(ctx context.Context, e Entry) error {
	if r == nil || r.q == nil {
		return errors.New("audit recorder not initialised")
	}
	return Write(ctx, r.q, e)
}
