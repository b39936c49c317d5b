package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIs_MatchesByCode(t *testing.T) {
	err := InsufficientStock("Portland Cement 50kg (Grade A)", 5)

	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrEmptyCart))
	assert.Equal(t, "not enough stock for Portland Cement 50kg (Grade A), available: 5", err.Error())
}

func TestIs_ThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("checkout failed: %w", NotFound("cart item"))

	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "NOT_FOUND", Code(wrapped))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{InvalidInput("product_id required"), http.StatusBadRequest},
		{NotFound("order"), http.StatusNotFound},
		{Conflict("sku %s already exists", "X"), http.StatusConflict},
		{ErrEmptyCart, http.StatusBadRequest},
		{InvalidTransition("delivered", "pending"), http.StatusBadRequest},
		{Unauthorized("bad credentials"), http.StatusUnauthorized},
		{ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestError_UnwrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := &Error{Kind: KindInternal, Code: "DB", Message: "failed to load cart", Err: cause}

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to load cart: connection reset", err.Error())
	assert.Equal(t, "INTERNAL_ERROR", Code(cause))
}
