// Package httpx writes the JSON bodies of the public /api endpoints. Errors
// use RFC 7807 problem details.
package httpx

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/kirana-event/kirana/internal/shared"
)

// ProblemDetail is an RFC 7807 body. RequestID echoes the chi request id so
// a client report can be matched with the access log.
type ProblemDetail struct {
	Type      string `json:"type,omitempty"`
	Title     string `json:"title"`
	Status    int    `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Instance  string `json:"instance,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// JSON writes data with status. Encoding happens before the header is sent,
// so a marshal failure still produces a clean 500.
func JSON(w http.ResponseWriter, status int, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		writeProblem(w, ProblemDetail{Title: http.StatusText(http.StatusInternalServerError), Status: http.StatusInternalServerError})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(body, '\n'))
}

// CachedJSON writes data for shared caches with a strong ETag and answers
// 304 when the request already holds the current representation.
func CachedJSON(w http.ResponseWriter, r *http.Request, maxAge time.Duration, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		Problem(w, r, http.StatusInternalServerError, "")
		return
	}
	sum := sha256.Sum256(body)
	etag := `"` + base64.RawURLEncoding.EncodeToString(sum[:12]) + `"`

	h := w.Header()
	h.Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
	h.Set("ETag", etag)
	if r != nil && r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(append(body, '\n'))
}

// Problem writes a problem body titled by the status text.
func Problem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	p := ProblemDetail{Title: http.StatusText(status), Status: status, Detail: detail}
	if r != nil {
		p.Instance = r.URL.Path
		p.RequestID = middleware.GetReqID(r.Context())
	}
	writeProblem(w, p)
}

func writeProblem(w http.ResponseWriter, p ProblemDetail) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes err as a problem. Server errors carry no detail so
// internal messages never reach clients.
func RespondError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	detail := ""
	if status < http.StatusInternalServerError {
		detail = err.Error()
	}
	Problem(w, r, status, detail)
}
