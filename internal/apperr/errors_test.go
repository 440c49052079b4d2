package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  *Error
		want int
	}{
		{Validation("BAD", "bad"), http.StatusBadRequest},
		{NotFound("Order"), http.StatusNotFound},
		{Authentication("who"), http.StatusUnauthorized},
		{Authorization("no"), http.StatusForbidden},
		{Conflict("STATE", "nope"), http.StatusConflict},
		{Internal(errors.New("boom"), "Server error"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.err.HTTPStatus(), tt.err.Code)
	}
}

func TestAs_ThroughWrapping(t *testing.T) {
	base := NotFound("Product")
	wrapped := errors.Wrap(base, "load product")

	got, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "Product not found", got.Message)
	assert.True(t, IsKind(wrapped, KindNotFound))
	assert.True(t, HasCode(wrapped, "NOT_FOUND"))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
}

func TestInternal_KeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Internal(cause, "Server error")

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "Server error", err.Message)
}
