package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/auth"
	"storefront/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testContext(t *testing.T, method, body string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestBindJSONValidation(t *testing.T) {
	h := &Handler{validate: validator.New()}

	type payloadT struct {
		Name  string `json:"name" validate:"required"`
		Count int    `json:"count" validate:"min=1"`
	}

	t.Run("valid", func(t *testing.T) {
		var payload payloadT
		c, _ := testContext(t, http.MethodPost, `{"name":"x","count":2}`)
		assert.True(t, h.bindJSON(c, "trace", &payload))
		assert.Equal(t, "x", payload.Name)
	})

	t.Run("missing required field", func(t *testing.T) {
		var payload payloadT
		c, w := testContext(t, http.MethodPost, `{"count":2}`)
		assert.False(t, h.bindJSON(c, "trace", &payload))
		assert.Equal(t, http.StatusBadRequest, w.Code)

		body := decodeBody(t, w)
		assert.Equal(t, "VALIDATION_FAILED", body["code"])
		assert.Contains(t, body["details"].([]any)[0], "Name")
	})

	t.Run("malformed json", func(t *testing.T) {
		var payload payloadT
		c, w := testContext(t, http.MethodPost, `{"name":`)
		assert.False(t, h.bindJSON(c, "trace", &payload))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_JSON", decodeBody(t, w)["code"])
	})
}

func TestRespondErrorMapsDomainErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", apperr.Validation("EMPTY_CART", "Cart is empty"), http.StatusBadRequest, "EMPTY_CART"},
		{"not found", apperr.NotFound("PRODUCT_NOT_FOUND", "Product not found"), http.StatusNotFound, "PRODUCT_NOT_FOUND"},
		{"conflict", apperr.Conflict("INSUFFICIENT_STOCK", "Not enough stock"), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{"auth", apperr.Auth("INVALID_CREDENTIALS", "Invalid username or password"), http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"untyped", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext(t, http.MethodGet, "")
			respondError(c, "trace", tt.err, "Request failed")
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantCode, decodeBody(t, w)["code"])
		})
	}

	t.Run("conflict details are forwarded", func(t *testing.T) {
		c, w := testContext(t, http.MethodGet, "")
		respondError(c, "trace",
			apperr.Conflict("UNAVAILABLE_ITEMS", "Some items in the cart are unavailable",
				"Sneaker - insufficient stock (available 1)"),
			"Checkout failed")
		body := decodeBody(t, w)
		require.Len(t, body["details"], 1)
	})

	t.Run("untyped errors stay opaque", func(t *testing.T) {
		c, w := testContext(t, http.MethodGet, "")
		respondError(c, "trace", errors.New("pq: duplicate key value"), "Request failed")
		assert.NotContains(t, w.Body.String(), "duplicate key")
	})
}

func TestCurrentClaims(t *testing.T) {
	t.Run("missing claims aborts with 401", func(t *testing.T) {
		c, w := testContext(t, http.MethodGet, "")
		_, _, ok := currentClaims(c, "trace")
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("claims round trip", func(t *testing.T) {
		c, _ := testContext(t, http.MethodGet, "")
		claims := auth.Claims{Username: "alice", Role: auth.RoleUser}
		claims.Subject = "42"
		ctx := context.WithValue(c.Request.Context(), auth.ClaimsKey, claims)
		c.Request = c.Request.WithContext(ctx)

		got, userID, ok := currentClaims(c, "trace")
		require.True(t, ok)
		assert.Equal(t, int64(42), userID)
		assert.Equal(t, "alice", got.Username)
	})
}

func TestPageParams(t *testing.T) {
	get := func(query string) (*gin.Context, *httptest.ResponseRecorder) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest(http.MethodGet, "/?"+query, nil)
		return c, w
	}

	c, _ := get("page=3&limit=25")
	page, limit := pageParams(c, 10)
	assert.Equal(t, 3, page)
	assert.Equal(t, 25, limit)

	c, _ = get("page=-1&limit=0")
	page, limit = pageParams(c, 10)
	assert.Equal(t, 1, page)
	assert.Equal(t, 10, limit)

	c, _ = get("limit=500")
	_, limit = pageParams(c, 10)
	assert.Equal(t, 10, limit)

	c, _ = get("")
	page, limit = pageParams(c, 12)
	assert.Equal(t, 1, page)
	assert.Equal(t, 12, limit)
}

func TestPaginationOf(t *testing.T) {
	p := paginationOf(2, 10, 35)
	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, 4, p.TotalPages)
	assert.Equal(t, 35, p.TotalItems)
	assert.Equal(t, 10, p.ItemsPerPage)

	p = paginationOf(1, 10, 0)
	assert.Equal(t, 0, p.TotalPages)
}
