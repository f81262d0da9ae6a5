package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status int
		want   Kind
	}{
		{http.StatusBadRequest, KindInvalidInput},
		{http.StatusConflict, KindConflict},
		{http.StatusNotFound, KindNotFound},
		{http.StatusServiceUnavailable, KindTemporarilyUnavailable},
		{http.StatusGatewayTimeout, KindTemporarilyUnavailable},
		{http.StatusInternalServerError, KindUnknown},
		{http.StatusTeapot, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, FromStatus(tt.status))
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", &Error{Kind: KindConflict, Op: "create scene", Status: 409, Message: "scene number taken"})

	assert.ErrorIs(t, err, ErrConflict)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Contains(t, err.Error(), "create scene: scene number taken (status 409)")
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(Wrap("list scenes", errors.New("connection reset"))))
	assert.True(t, IsRetryable(New(KindUnknown, "op", "boom")))
	assert.False(t, IsRetryable(InvalidInput("op", "bad")))
	assert.False(t, IsRetryable(New(KindConflict, "op", "taken")))
	assert.False(t, IsRetryable(nil))
	assert.True(t, IsRetryable(errors.New("plain")))
}

func TestWrap_Unwraps(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := Wrap("list projects", cause)

	assert.ErrorIs(t, err, cause)
	assert.ErrorIs(t, err, ErrTemporarilyUnavailable)
}
