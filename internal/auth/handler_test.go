package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/auth"
	"github.com/kirana-event/kirana/internal/invitations"
	"github.com/kirana-event/kirana/internal/shared"
	_ "github.com/kirana-event/kirana/internal/testing/guard"
	"github.com/kirana-event/kirana/internal/view"
)

type stubRepo struct {
	user     *auth.User
	sessions map[string]int64
}

func (s *stubRepo) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return s.user, nil
}

func (s *stubRepo) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	if s.sessions == nil {
		s.sessions = make(map[string]int64)
	}
	s.sessions[id] = userID
	return nil
}

func (s *stubRepo) DeleteSession(ctx context.Context, id string) error {
	delete(s.sessions, id)
	return nil
}

type stubInvites struct {
	inv      invitations.Invitation
	accepted *invitations.NewAccount
	err      error
}

func (s *stubInvites) Lookup(ctx context.Context, token string) (invitations.Invitation, error) {
	if token != s.inv.Token {
		return invitations.Invitation{}, invitations.ErrInvitationInvalid
	}
	return s.inv, nil
}

func (s *stubInvites) Accept(ctx context.Context, token string, account invitations.NewAccount) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.accepted = &account
	return 42, nil
}

type client struct {
	t        *testing.T
	router   http.Handler
	sessions *shared.SessionManager
	cookie   *http.Cookie
}

func newClient(t *testing.T, repo auth.Repository, invites auth.InvitationAcceptor) *client {
	t.Helper()
	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	sessions := shared.NewSessionManager(redisClient, "test_session", "secret", time.Hour, false)
	templates, err := view.NewEngine()
	require.NoError(t, err)

	handler := auth.NewHandler(nil, auth.NewService(repo), invites, templates, sessions, shared.NewCSRFManager("csrfsecret"))
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			sess, err := sessions.Load(req.Context(), req)
			require.NoError(t, err)
			ctx := shared.ContextWithSession(req.Context(), sess)
			rec := httptest.NewRecorder()
			next.ServeHTTP(rec, req.WithContext(ctx))
			require.NoError(t, sessions.Commit(ctx, w, req, sess))
			for k, v := range rec.Header() {
				w.Header()[k] = v
			}
			w.WriteHeader(rec.Code)
			_, _ = w.Write(rec.Body.Bytes())
		})
	})
	r.Route("/auth", handler.MountRoutes)
	return &client{t: t, router: r, sessions: sessions}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	c.t.Helper()
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	res := httptest.NewRecorder()
	c.router.ServeHTTP(res, req)
	for _, ck := range res.Result().Cookies() {
		if ck.Name == c.sessions.CookieName() {
			c.cookie = ck
		}
	}
	return res
}

func (c *client) get(path string) *httptest.ResponseRecorder {
	return c.do(httptest.NewRequest(http.MethodGet, path, nil))
}

func (c *client) post(path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *client) session() *shared.Session {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	require.NotNil(c.t, c.cookie, "no session cookie yet")
	req.AddCookie(c.cookie)
	sess, err := c.sessions.Load(context.Background(), req)
	require.NoError(c.t, err)
	return sess
}

func activeUser(t *testing.T) *auth.User {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("correctpass"), bcrypt.MinCost)
	require.NoError(t, err)
	return &auth.User{ID: 1, Email: "user@test.local", Role: access.RoleAdmin, PasswordHash: string(hashed), IsActive: true}
}

func TestLoginPage(t *testing.T) {
	c := newClient(t, &stubRepo{}, nil)
	res := c.get("/auth/login?next=/dashboard/users")

	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "<form")
	assert.Contains(t, res.Body.String(), `value="/dashboard/users"`)
	assert.NotEmpty(t, c.session().Get(shared.CSRFSessionKey))
}

func TestLoginInvalidCredentials(t *testing.T) {
	c := newClient(t, &stubRepo{user: activeUser(t)}, nil)
	c.get("/auth/login")

	res := c.post("/auth/login", url.Values{"email": {"user@test.local"}, "password": {"wrongpass"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Email atau password tidak valid")
	assert.Empty(t, c.session().User())
}

func TestLoginInactiveUserLooksLikeBadPassword(t *testing.T) {
	user := activeUser(t)
	user.IsActive = false
	c := newClient(t, &stubRepo{user: user}, nil)

	res := c.post("/auth/login", url.Values{"email": {"user@test.local"}, "password": {"correctpass"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Email atau password tidak valid")
}

func TestLoginValidationErrors(t *testing.T) {
	c := newClient(t, &stubRepo{}, nil)
	res := c.post("/auth/login", url.Values{"email": {"not-an-email"}, "password": {"short"}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Format email tidak valid")
	assert.Contains(t, res.Body.String(), "Minimal 8 karakter")
}

func TestLoginSuccessRenewsSessionAndRedirects(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	c := newClient(t, repo, nil)
	c.get("/auth/login")
	before := c.cookie.Value

	res := c.post("/auth/login", url.Values{
		"email":    {"user@test.local"},
		"password": {"correctpass"},
		"next":     {"/dashboard/settings"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/dashboard/settings", res.Header().Get("Location"))
	assert.NotEqual(t, before, c.cookie.Value, "session id must rotate on login")

	sess := c.session()
	assert.Equal(t, "1", sess.User())
	assert.Equal(t, int64(1), repo.sessions[sess.ID])
}

func TestLoginRejectsOffsiteNext(t *testing.T) {
	c := newClient(t, &stubRepo{user: activeUser(t)}, nil)
	res := c.post("/auth/login", url.Values{
		"email":    {"user@test.local"},
		"password": {"correctpass"},
		"next":     {"//evil.example/dashboard"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, access.DashboardPath, res.Header().Get("Location"))
}

func TestLogoutDestroysSession(t *testing.T) {
	repo := &stubRepo{user: activeUser(t)}
	c := newClient(t, repo, nil)
	c.post("/auth/login", url.Values{"email": {"user@test.local"}, "password": {"correctpass"}})
	require.Len(t, repo.sessions, 1)

	res := c.post("/auth/logout", nil)
	assert.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))
	assert.Empty(t, repo.sessions)
}

func TestInviteRoutesNeedAcceptor(t *testing.T) {
	c := newClient(t, &stubRepo{}, nil)
	assert.Equal(t, http.StatusNotFound, c.get("/auth/invite/abc").Code)
}

func TestInvitePageForUnknownToken(t *testing.T) {
	c := newClient(t, &stubRepo{}, &stubInvites{inv: invitations.Invitation{Token: "good"}})
	res := c.get("/auth/invite/bad")
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestInviteAcceptCreatesAccount(t *testing.T) {
	invites := &stubInvites{inv: invitations.Invitation{
		ID:        uuid.New(),
		Email:     "new@kirana.id",
		Token:     "good",
		Role:      access.RoleAdmin,
		ExpiresAt: time.Now().Add(time.Hour),
	}}
	c := newClient(t, &stubRepo{}, invites)

	res := c.get("/auth/invite/good")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "new@kirana.id")

	res = c.post("/auth/invite/good", url.Values{
		"name":             {"Dewi"},
		"password":         {"rahasia123"},
		"password_confirm": {"rahasia123"},
	})
	require.Equal(t, http.StatusSeeOther, res.Code)
	assert.Equal(t, "/auth/login", res.Header().Get("Location"))
	require.NotNil(t, invites.accepted)
	assert.Equal(t, "Dewi", invites.accepted.Name)
}

func TestInviteAcceptMismatchedPasswords(t *testing.T) {
	invites := &stubInvites{inv: invitations.Invitation{Token: "good", Email: "new@kirana.id", ExpiresAt: time.Now().Add(time.Hour)}}
	c := newClient(t, &stubRepo{}, invites)

	res := c.post("/auth/invite/good", url.Values{
		"name":             {"Dewi"},
		"password":         {"rahasia123"},
		"password_confirm": {"berbeda123"},
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Konfirmasi password tidak sama")
	assert.Nil(t, invites.accepted)
}

func TestInviteAcceptEmailTaken(t *testing.T) {
	invites := &stubInvites{inv: invitations.Invitation{Token: "good", Email: "new@kirana.id", ExpiresAt: time.Now().Add(time.Hour)}, err: invitations.ErrEmailTaken}
	c := newClient(t, &stubRepo{}, invites)

	res := c.post("/auth/invite/good", url.Values{
		"name":             {"Dewi"},
		"password":         {"rahasia123"},
		"password_confirm": {"rahasia123"},
	})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Body.String(), "Email undangan sudah terdaftar")
}
