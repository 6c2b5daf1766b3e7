package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("INVALID_QUANTITY", "bad quantity"), http.StatusBadRequest},
		{NotFound("PRODUCT_NOT_FOUND", "missing"), http.StatusNotFound},
		{Conflict("INSUFFICIENT_STOCK", "no stock"), http.StatusConflict},
		{Auth("INVALID_CREDENTIALS", "nope"), http.StatusUnauthorized},
		{Transient(errors.New("db down"), "try again"), http.StatusInternalServerError},
		{errors.New("plain error"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err))
	}
}

func TestAsThroughWrapping(t *testing.T) {
	inner := Conflict("PROMOTION_EXHAUSTED", "no uses left", "SALE10")
	wrapped := fmt.Errorf("redeeming promotion: %w", inner)

	e := As(wrapped)
	require.NotNil(t, e)
	assert.Equal(t, "PROMOTION_EXHAUSTED", e.Code)
	assert.Equal(t, []string{"SALE10"}, e.Details)
	assert.Equal(t, KindConflict, KindOf(wrapped))
}

func TestAsPlainError(t *testing.T) {
	assert.Nil(t, As(errors.New("plain")))
	assert.Equal(t, KindUnknown, KindOf(errors.New("plain")))
}

func TestErrorStringIncludesCause(t *testing.T) {
	e := Transient(errors.New("connection refused"), "database unavailable")
	assert.Contains(t, e.Error(), "TRANSIENT")
	assert.Contains(t, e.Error(), "connection refused")
	assert.Equal(t, "connection refused", errors.Unwrap(e).Error())
}
