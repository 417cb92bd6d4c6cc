package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	entries    []Entry
	lastLimit  int
	lastOffset int
	lastFilter Filters
}

func (s *stubRepo) List(ctx context.Context, filters Filters, limit, offset int) ([]Entry, error) {
	s.lastFilter, s.lastLimit, s.lastOffset = filters, limit, offset
	end := offset + limit
	if offset > len(s.entries) {
		return nil, nil
	}
	if end > len(s.entries) {
		end = len(s.entries)
	}
	return s.entries[offset:end], nil
}

func (s *stubRepo) Count(ctx context.Context, filters Filters) (int, error) {
	return len(s.entries), nil
}

func TestServiceListPaginates(t *testing.T) {
	repo := &stubRepo{}
	for i := 0; i < 45; i++ {
		repo.entries = append(repo.entries, Entry{ID: int64(i + 1), Action: ActionRoleChanged})
	}
	svc := NewService(repo)

	res, err := svc.List(context.Background(), Filters{Page: 3})
	require.NoError(t, err)
	assert.Len(t, res.Entries, 5)
	assert.Equal(t, 40, repo.lastOffset)
	assert.Equal(t, 3, res.Pagination.TotalPages)
	assert.False(t, res.Pagination.HasNext())
	assert.True(t, res.Pagination.HasPrev())
}

func TestServiceListCapsPageSize(t *testing.T) {
	repo := &stubRepo{}
	_, err := NewService(repo).List(context.Background(), Filters{PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, maxPerPage, repo.lastLimit)
}

type execCall struct {
	sql  string
	args []any
}

type recordingQuerier struct {
	calls []execCall
}

func (q *recordingQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	q.calls = append(q.calls, execCall{sql: sql, args: args})
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (q *recordingQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}

func (q *recordingQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}

func TestWriteRejectsIncompleteEntry(t *testing.T) {
	q := &recordingQuerier{}
	err := Write(context.Background(), q, Entry{Action: ActionRoleChanged, Entity: EntityUser})
	assert.ErrorIs(t, err, ErrIncomplete)
	assert.Empty(t, q.calls)
}

func TestWriteEncodesMeta(t *testing.T) {
	q := &recordingQuerier{}
	at := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	err := NewRecorder(q).Record(context.Background(), Entry{
		ActorID:    1,
		Action:     ActionRoleChanged,
		Entity:     EntityUser,
		EntityID:   "7",
		Meta:       map[string]any{"from": "user", "to": "admin"},
		OccurredAt: at,
	})
	require.NoError(t, err)
	require.Len(t, q.calls, 1)

	args := q.calls[0].args
	require.Len(t, args, 6)
	var meta map[string]string
	require.NoError(t, json.Unmarshal(args[4].([]byte), &meta))
	assert.Equal(t, "admin", meta["to"])
	assert.Equal(t, at, args[5])
}

func TestWriteDefaultsEmptyMeta(t *testing.T) {
	q := &recordingQuerier{}
	require.NoError(t, Write(context.Background(), q, Entry{Action: ActionSettingsUpdated, Entity: EntitySettings, EntityID: "site"}))
	assert.Equal(t, []byte("{}"), q.calls[0].args[4])
	assert.Nil(t, q.calls[0].args[5])
}
