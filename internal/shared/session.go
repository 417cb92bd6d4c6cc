package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// FlashMessage is a one-time notice shown on the next rendered page.
type FlashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// SessionManager keeps dashboard sessions in Redis behind a signed cookie.
// The cookie carries "<id>.<mac>"; a cookie with a bad MAC starts a new session.
type SessionManager struct {
	client     redis.UniversalClient
	cookieName string
	ttl        time.Duration
	secure     bool
	secret     []byte
}

// Session is the per-request view of a stored session.
type Session struct {
	ID        string
	values    map[string]string
	userID    string
	flashes   []FlashMessage
	stored    bool
	dirty     bool
	destroyed bool
}

type sessionPayload struct {
	Values  map[string]string `json:"values,omitempty"`
	UserID  string            `json:"user_id,omitempty"`
	Flashes []FlashMessage    `json:"flashes,omitempty"`
}

// NewSessionManager constructs a SessionManager.
func NewSessionManager(client redis.UniversalClient, cookieName string, secret string, ttl time.Duration, secure bool) *SessionManager {
	return &SessionManager{
		client:     client,
		cookieName: cookieName,
		ttl:        ttl,
		secure:     secure,
		secret:     []byte(secret),
	}
}

// Load returns the session named by the request cookie, or a fresh one when
// the cookie is missing, forged or expired.
func (sm *SessionManager) Load(ctx context.Context, r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(sm.cookieName)
	if err != nil {
		return sm.newSession(), nil
	}
	id, ok := sm.verify(cookie.Value)
	if !ok {
		return sm.newSession(), nil
	}

	data, err := sm.client.Get(ctx, sm.redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return sm.newSession(), nil
	}
	if err != nil {
		return nil, err
	}
	var stored sessionPayload
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, err
	}
	return &Session{
		ID:      id,
		values:  stored.Values,
		userID:  stored.UserID,
		flashes: stored.Flashes,
		stored:  true,
	}, nil
}

// Commit writes changes back to Redis and refreshes the cookie. Unchanged
// sessions only get their expiry extended.
func (sm *SessionManager) Commit(ctx context.Context, w http.ResponseWriter, r *http.Request, sess *Session) error {
	if sess == nil {
		return nil
	}
	if sess.destroyed {
		if err := sm.client.Del(ctx, sm.redisKey(sess.ID)).Err(); err != nil {
			return err
		}
		http.SetCookie(w, sm.cookie("", -1))
		return nil
	}

	key := sm.redisKey(sess.ID)
	if sess.dirty || !sess.stored {
		data, err := json.Marshal(sessionPayload{Values: sess.values, UserID: sess.userID, Flashes: sess.flashes})
		if err != nil {
			return err
		}
		if err := sm.client.Set(ctx, key, data, sm.ttl).Err(); err != nil {
			return err
		}
		sess.stored, sess.dirty = true, false
	} else if err := sm.client.Expire(ctx, key, sm.ttl).Err(); err != nil {
		return err
	}
	http.SetCookie(w, sm.cookie(sm.sign(sess.ID), int(sm.ttl.Seconds())))
	return nil
}

// Renew moves the session to a fresh ID after a privilege change such as
// login, and drops the old Redis entry.
func (sm *SessionManager) Renew(ctx context.Context, sess *Session) error {
	if sess == nil {
		return nil
	}
	oldID, wasStored := sess.ID, sess.stored
	sess.ID = newSessionID()
	sess.stored = false
	sess.dirty = true
	if !wasStored {
		return nil
	}
	return sm.client.Del(ctx, sm.redisKey(oldID)).Err()
}

// Destroy marks the session for deletion on the next Commit.
func (sm *SessionManager) Destroy(sess *Session) {
	if sess != nil {
		sess.destroyed = true
	}
}

// TTL exposes the configured session lifetime.
func (sm *SessionManager) TTL() time.Duration {
	return sm.ttl
}

// CookieName returns the cookie identifier used for sessions.
func (sm *SessionManager) CookieName() string {
	return sm.cookieName
}

type sessionContextKey struct{}

// ContextWithSession stores the session in context.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext extracts the session from context.
func SessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey{}).(*Session)
	return sess
}

// Set stores a key-value pair.
func (s *Session) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	s.values[key] = value
	s.dirty = true
}

// Get retrieves a value.
func (s *Session) Get(key string) string {
	return s.values[key]
}

// Delete removes a value.
func (s *Session) Delete(key string) {
	if _, ok := s.values[key]; ok {
		delete(s.values, key)
		s.dirty = true
	}
}

// SetUser associates the session with a user ID. An empty id signs the user out.
func (s *Session) SetUser(id string) {
	s.userID = id
	s.dirty = true
}

// User returns the current user ID.
func (s *Session) User() string {
	return s.userID
}

// AddFlash queues a flash message. It survives until a page pops it.
func (s *Session) AddFlash(msg FlashMessage) {
	s.flashes = append(s.flashes, msg)
	s.dirty = true
}

// PopFlash removes and returns the oldest flash message.
func (s *Session) PopFlash() *FlashMessage {
	if len(s.flashes) == 0 {
		return nil
	}
	msg := s.flashes[0]
	s.flashes = s.flashes[1:]
	s.dirty = true
	return &msg
}

func (sm *SessionManager) newSession() *Session {
	return &Session{ID: newSessionID(), values: make(map[string]string)}
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (sm *SessionManager) redisKey(id string) string {
	return "kirana:session:" + id
}

func (sm *SessionManager) mac(id string) string {
	h := hmac.New(sha256.New, sm.secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

func (sm *SessionManager) sign(id string) string {
	return id + "." + sm.mac(id)
}

func (sm *SessionManager) verify(value string) (string, bool) {
	id, mac, ok := strings.Cut(value, ".")
	if !ok || id == "" {
		return "", false
	}
	return id, hmac.Equal([]byte(mac), []byte(sm.mac(id)))
}

func newSessionID() string {
	b := make([]byte, 32)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
