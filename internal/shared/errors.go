package shared

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden indicates the actor lacks the role or grant for an action.
	ErrForbidden = errors.New("forbidden")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage maps an error to text that can be shown on a page.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "Data tidak ditemukan"
	case errors.Is(err, ErrForbidden):
		return "Anda tidak memiliki akses untuk tindakan ini"
	case errors.Is(err, ErrInvalidCredentials):
		return "Email atau password tidak valid"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "Permintaan melebihi batas waktu, silakan coba lagi"
	default:
		return "Terjadi kesalahan, silakan coba lagi"
	}
}
