package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	current Settings
	saves   int
	keys    []string
}

func (s *stubRepo) Load(context.Context) (Settings, error) { return s.current, nil }

func (s *stubRepo) Save(_ context.Context, _ int64, in Settings, changed []string) error {
	s.saves++
	s.keys = changed
	s.current = in
	return nil
}

func TestUpdateStoresOnlyChangedKeys(t *testing.T) {
	repo := &stubRepo{current: Settings{ContactEmail: "halo@kirana.id", Address: "Bandung"}}
	svc := NewService(repo, nil)

	changed, err := svc.Update(context.Background(), 1, Settings{
		ContactEmail: " HALO@kirana.id ",
		Address:      "Jakarta",
		Instagram:    "@kirana.event",
		WhatsApp:     "+62 812 3456 7890",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{KeyWhatsApp, KeyAddress, KeyInstagram}, changed)
	assert.Equal(t, 1, repo.saves)
	assert.Equal(t, "kirana.event", repo.current.Instagram)
	assert.Equal(t, "+6281234567890", repo.current.WhatsApp)
}

func TestUpdateWithoutChangesSkipsSave(t *testing.T) {
	repo := &stubRepo{current: Settings{Address: "Bandung"}}
	changed, err := NewService(repo, nil).Update(context.Background(), 1, Settings{Address: " Bandung "})
	require.NoError(t, err)
	assert.Empty(t, changed)
	assert.Zero(t, repo.saves)
}

func TestUpdateReportsFieldErrors(t *testing.T) {
	repo := &stubRepo{}
	_, err := NewService(repo, nil).Update(context.Background(), 1, Settings{ContactEmail: "bukan-email", WhatsApp: "0812"})
	var fields FieldErrors
	require.ErrorAs(t, err, &fields)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.Contains(t, fields, KeyContactEmail)
	assert.Contains(t, fields, KeyWhatsApp)
	assert.Zero(t, repo.saves)
}

func TestPublicSettingsAPI(t *testing.T) {
	repo := &stubRepo{current: Settings{ContactEmail: "halo@kirana.id"}}
	rr := httptest.NewRecorder()
	NewAPIHandler(nil, NewService(repo, nil)).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))
	var got map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, "halo@kirana.id", got["contact_email"])
}
