package view

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
)

func TestNewEngine(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err, "Templates should parse without error")
	for _, page := range []string{
		"pages/login.html",
		"pages/auth/invite.html",
		"pages/dashboard/home.html",
		"pages/users/list.html",
		"pages/users/profile.html",
		"pages/permissions/list.html",
		"pages/permissions/edit.html",
		"pages/invitations/list.html",
		"pages/health/index.html",
		"pages/audit/list.html",
		"pages/cms/page.html",
		"pages/cms/edit.html",
		"pages/settings/edit.html",
	} {
		assert.True(t, engine.Has(page), page)
	}
}

func TestRenderPicksLayoutBySignedInUser(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)

	rr := httptest.NewRecorder()
	require.NoError(t, engine.Render(rr, "pages/dashboard/home.html", TemplateData{Title: "Ringkasan"}))
	assert.NotContains(t, rr.Body.String(), `class="sidebar"`)

	acc := access.DeriveAccessibleNavigation(access.RoleAdmin, nil)
	rr = httptest.NewRecorder()
	require.NoError(t, engine.RenderStatus(rr, http.StatusAccepted, "pages/dashboard/home.html", TemplateData{
		Title:       "Ringkasan",
		CurrentPath: "/dashboard",
		User:        &UserBadge{ID: 1, Name: "Sari", Role: access.RoleAdmin},
		Nav:         acc.Sections,
		Flash:       &shared.FlashMessage{Kind: "success", Message: "Tersimpan"},
	}))
	assert.Equal(t, http.StatusAccepted, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, `class="sidebar"`)
	assert.Contains(t, body, "Tersimpan")
	assert.Contains(t, body, `href="/dashboard/users"`)
	assert.Contains(t, body, "Sari")
}

func TestRenderUnknownPage(t *testing.T) {
	engine, err := NewEngine()
	require.NoError(t, err)
	assert.Error(t, engine.Render(httptest.NewRecorder(), "pages/missing.html", TemplateData{}))
}
