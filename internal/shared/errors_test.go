package shared

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserSafeMessage(t *testing.T) {
	assert.Equal(t, "", UserSafeMessage(nil))
	assert.Equal(t, "Data tidak ditemukan", UserSafeMessage(fmt.Errorf("load user: %w", ErrNotFound)))
	assert.Equal(t, "Anda tidak memiliki akses untuk tindakan ini", UserSafeMessage(ErrForbidden))
	assert.Contains(t, UserSafeMessage(context.DeadlineExceeded), "batas waktu")
	assert.Equal(t, "Terjadi kesalahan, silakan coba lagi", UserSafeMessage(errors.New("pq: boom")))
}
