package errno

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"nil", nil, 0},
		{"sentinel", ErrWalletAddressInvalid, 20102},
		{"pointer", &ErrNoSession, 30001},
		{"wrapped", fmt.Errorf("save: %w", ErrUnauthorized), 30002},
		{"plain", errors.New("boom"), 10001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _ := Decode(tt.err)
			assert.Equal(t, tt.wantCode, code)
		})
	}
}

func TestWrapKeepsIdentity(t *testing.T) {
	cause := errors.New("connection refused")
	err := ErrNetwork.Wrap(cause)

	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "Network error: connection refused", err.Error())
	assert.NotErrorIs(t, err, ErrBackend)
}

func TestIsLocalValidation(t *testing.T) {
	assert.True(t, IsLocalValidation(ErrWalletAddressInvalid))
	assert.True(t, IsLocalValidation(ErrPhraseMismatch))
	assert.False(t, IsLocalValidation(ErrBackend))
	assert.False(t, IsLocalValidation(nil))
}
