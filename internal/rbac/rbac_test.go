package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
)

type stubRepo struct {
	principals map[int64]Principal
	grants     map[int64][]access.PermissionGrant
	replaced   []access.PermissionGrant
	meta       map[string]any
}

func newStubRepo(ps ...Principal) *stubRepo {
	repo := &stubRepo{principals: map[int64]Principal{}, grants: map[int64][]access.PermissionGrant{}}
	for _, p := range ps {
		repo.principals[p.ID] = p
	}
	return repo
}

func (s *stubRepo) FindPrincipal(ctx context.Context, userID int64) (Principal, error) {
	p, ok := s.principals[userID]
	if !ok {
		return Principal{}, shared.ErrNotFound
	}
	return p, nil
}

func (s *stubRepo) ListGrants(ctx context.Context, userID int64) ([]access.PermissionGrant, error) {
	return s.grants[userID], nil
}

func (s *stubRepo) ListUsers(ctx context.Context) ([]UserSummary, error) {
	var out []UserSummary
	for _, p := range s.principals {
		out = append(out, UserSummary{ID: p.ID, Email: p.Email, Role: p.Role, IsActive: p.IsActive, GrantCount: len(s.grants[p.ID])})
	}
	return out, nil
}

func (s *stubRepo) ReplaceGrants(ctx context.Context, actorID, userID int64, grants []access.PermissionGrant, meta map[string]any) error {
	s.grants[userID] = grants
	s.replaced = grants
	s.meta = meta
	return nil
}

var (
	superadmin = Principal{ID: 1, Email: "root@kirana.local", Role: access.RoleSuperadmin, IsActive: true}
	admin      = Principal{ID: 2, Email: "admin@kirana.local", Role: access.RoleAdmin, IsActive: true}
	editor     = Principal{ID: 3, Email: "editor@kirana.local", Role: access.RoleUser, IsActive: true}
	disabled   = Principal{ID: 4, Email: "old@kirana.local", Role: access.RoleUser, IsActive: false}
)

func TestLoadAccessResolvesGrants(t *testing.T) {
	repo := newStubRepo(editor)
	repo.grants[editor.ID] = []access.PermissionGrant{access.NewGrant("profile", "edit", true)}
	p, acc, err := NewService(repo).LoadAccess(context.Background(), editor.ID)
	require.NoError(t, err)
	assert.Equal(t, editor.Email, p.Email)
	assert.Equal(t, []string{access.DashboardPath, "/dashboard/profile"}, acc.AllowedPaths)
}

func TestLoadAccessRejectsInactiveUser(t *testing.T) {
	_, _, err := NewService(newStubRepo(disabled)).LoadAccess(context.Background(), disabled.ID)
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestApplyTemplateMergesCustomGrants(t *testing.T) {
	repo := newStubRepo(admin, editor)
	svc := NewService(repo)
	custom := []access.PermissionGrant{access.NewGrant("cms-home", "cms-home-edit", false)}

	merged, err := svc.ApplyTemplate(context.Background(), admin, editor.ID, "content-editor", custom)
	require.NoError(t, err)
	assert.Equal(t, merged, repo.replaced)
	assert.Equal(t, "content-editor", repo.meta["template"])
	for _, g := range merged {
		if access.GrantKey(g) == "cms-home:cms-home-edit" {
			assert.False(t, g.AccessGranted)
		}
	}
}

func TestApplyTemplateRejectsUnknownTemplate(t *testing.T) {
	repo := newStubRepo(admin, editor)
	_, err := NewService(repo).ApplyTemplate(context.Background(), admin, editor.ID, "ghost", nil)
	assert.ErrorIs(t, err, ErrUnknownTemplate)
	assert.Nil(t, repo.replaced)
}

func TestApplyTemplateSelfEditOnlyForSuperadmin(t *testing.T) {
	repo := newStubRepo(superadmin, admin)
	svc := NewService(repo)

	_, err := svc.ApplyTemplate(context.Background(), admin, admin.ID, "admin", nil)
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = svc.ApplyTemplate(context.Background(), superadmin, superadmin.ID, "admin", nil)
	assert.NoError(t, err)
}

func TestApplyTemplateCannotTouchHigherRole(t *testing.T) {
	repo := newStubRepo(superadmin, admin, editor)
	_, err := NewService(repo).ApplyTemplate(context.Background(), editor, admin.ID, "viewer", nil)
	assert.ErrorIs(t, err, shared.ErrForbidden)
}

func TestCustomFromFormAndRows(t *testing.T) {
	form := map[string]string{"perm_profile-edit": StateAllow, "perm_users-manage": StateDeny, "perm_audit-view": "bogus"}
	rows, custom := CustomFromForm(func(k string) string { return form[k] })
	require.Len(t, custom, 2)
	assert.Equal(t, "profile:edit", access.GrantKey(custom[0]))
	assert.True(t, custom[0].AccessGranted)
	assert.False(t, custom[1].AccessGranted)
	assert.Len(t, rows, len(access.Definitions()))

	back := RowsFromGrants(custom)
	states := map[string]string{}
	for _, row := range back {
		states[row.Definition.ID] = row.State
	}
	assert.Equal(t, StateAllow, states["profile-edit"])
	assert.Equal(t, StateDeny, states["users-manage"])
	assert.Equal(t, StateInherit, states["audit-view"])
}

func guardedRequest(t *testing.T, path, userID string) (*http.Request, *shared.Session) {
	t.Helper()
	mr := miniredis.RunT(t)
	sm := shared.NewSessionManager(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "kirana_test", "secret", time.Hour, false)
	req := httptest.NewRequest(http.MethodGet, path, nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	sess.SetUser(userID)
	return req.WithContext(shared.ContextWithSession(req.Context(), sess)), sess
}

func TestGuardRedirectsAnonymousToLogin(t *testing.T) {
	mw := Middleware{Service: NewService(newStubRepo())}
	req, _ := guardedRequest(t, "/dashboard/users", "")
	res := httptest.NewRecorder()
	mw.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { t.Fatal("must not reach handler") })).ServeHTTP(res, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login?next=%2Fdashboard%2Fusers", res.Header().Get("Location"))
}

type reasonCounter map[string]int

func (c reasonCounter) AccessDenied(reason string) { c[reason]++ }

func TestGuardBouncesDisallowedPath(t *testing.T) {
	denials := reasonCounter{}
	mw := Middleware{Service: NewService(newStubRepo(editor)), Observer: denials}
	req, sess := guardedRequest(t, "/dashboard/settings", "3")
	res := httptest.NewRecorder()
	mw.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { t.Fatal("must not reach handler") })).ServeHTTP(res, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, access.DashboardPath, res.Header().Get("Location"))
	assert.Equal(t, 1, denials[DeniedPath])
	flash := sess.PopFlash()
	require.NotNil(t, flash)
	assert.Equal(t, "danger", flash.Kind)
}

func TestGuardStoresPrincipalAndAccess(t *testing.T) {
	repo := newStubRepo(editor)
	repo.grants[editor.ID] = []access.PermissionGrant{access.NewGrant("users", "manage-users", true)}
	mw := Middleware{Service: NewService(repo)}
	req, _ := guardedRequest(t, "/dashboard/users/3", "3")

	var reached bool
	res := httptest.NewRecorder()
	mw.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		p, ok := PrincipalFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, editor.ID, p.ID)
		acc, ok := AccessFromContext(r.Context())
		require.True(t, ok)
		assert.True(t, acc.HasItem("/dashboard/users"))

		td := PageData(r, nil, "Pengguna", nil)
		assert.Equal(t, editor.Email, td.User.Email)
		assert.NotEmpty(t, td.Nav)
	})).ServeHTTP(res, req)
	assert.True(t, reached)
}

func TestGuardLogsOutDisabledUser(t *testing.T) {
	mw := Middleware{Service: NewService(newStubRepo(disabled))}
	req, sess := guardedRequest(t, "/dashboard", "4")
	res := httptest.NewRecorder()
	mw.Guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { t.Fatal("must not reach handler") })).ServeHTTP(res, req)

	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Empty(t, sess.User())
}

func TestRequireRole(t *testing.T) {
	mw := Middleware{}
	handler := mw.RequireRole(access.RoleSuperadmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/dashboard/users/3/role", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req.WithContext(ContextWithPrincipal(req.Context(), admin)))
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req.WithContext(ContextWithPrincipal(req.Context(), superadmin)))
	assert.Equal(t, http.StatusNoContent, res.Code)
}

func TestCanEdit(t *testing.T) {
	assert.True(t, CanEdit(superadmin, superadmin))
	assert.False(t, CanEdit(admin, admin))
	assert.True(t, CanEdit(admin, editor))
	assert.False(t, CanEdit(admin, superadmin))
}
