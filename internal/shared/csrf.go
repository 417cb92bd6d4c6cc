package shared

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"strings"
)

const (
	// CSRFSessionKey holds the issued token inside the session values.
	CSRFSessionKey = "csrf_token"
	// CSRFFormField is the hidden form input rendered by the layouts.
	CSRFFormField = "csrf_token"
	// CSRFHeader carries the token for fetch-based form posts.
	CSRFHeader = "X-CSRF-Token"
)

// CSRFManager issues per-session synchronizer tokens. A token is a random
// nonce followed by its HMAC so a value planted in the store without the
// secret is rejected.
type CSRFManager struct {
	secret []byte
}

// NewCSRFManager returns a CSRFManager keyed by secret.
func NewCSRFManager(secret string) *CSRFManager {
	return &CSRFManager{secret: []byte(secret)}
}

// EnsureToken returns the session token, issuing one on first use.
func (m *CSRFManager) EnsureToken(_ context.Context, sess *Session) (string, error) {
	if sess == nil {
		return "", ErrCSRFTokenMissing
	}
	if token := sess.Get(CSRFSessionKey); token != "" {
		return token, nil
	}
	nonce := make([]byte, 24)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	encoded := base64.RawURLEncoding.EncodeToString(nonce)
	token := encoded + "." + m.mac(encoded)
	sess.Set(CSRFSessionKey, token)
	return token, nil
}

// Reset forgets the token; the next render issues a fresh one.
func (m *CSRFManager) Reset(sess *Session) {
	if sess != nil {
		sess.Delete(CSRFSessionKey)
	}
}

// VerifyToken checks a submitted token against the one held by the session.
func (m *CSRFManager) VerifyToken(_ context.Context, sess *Session, token string) error {
	if sess == nil || token == "" {
		return ErrCSRFTokenMissing
	}
	expected := sess.Get(CSRFSessionKey)
	if expected == "" {
		return ErrCSRFTokenMissing
	}
	if !hmac.Equal([]byte(expected), []byte(token)) {
		return ErrCSRFTokenMismatch
	}
	nonce, sig, ok := strings.Cut(token, ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(m.mac(nonce))) {
		return ErrCSRFTokenMismatch
	}
	return nil
}

// TokenFromRequest reads the submitted token from the form or the header.
func TokenFromRequest(r *http.Request) string {
	if token := r.PostFormValue(CSRFFormField); token != "" {
		return token
	}
	return r.Header.Get(CSRFHeader)
}

func (m *CSRFManager) mac(nonce string) string {
	h := hmac.New(sha256.New, m.secret)
	h.Write([]byte("csrf|"))
	h.Write([]byte(nonce))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
