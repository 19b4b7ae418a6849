package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/domain/licensing"
	"github.com/umkm/backend/internal/domain/shared"
	"github.com/umkm/backend/internal/interfaces/http/dto"
	"github.com/umkm/backend/internal/interfaces/http/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestContext(method, target string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, target, nil)
	return c, w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) dto.Response {
	t.Helper()
	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

func TestGetRequestID(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(*gin.Context)
		expected string
	}{
		{
			name:     "from context",
			setup:    func(c *gin.Context) { c.Set(middleware.RequestIDKey, "ctx-id") },
			expected: "ctx-id",
		},
		{
			name:     "from header when context empty",
			setup:    func(c *gin.Context) { c.Request.Header.Set(middleware.RequestIDHeader, "header-id") },
			expected: "header-id",
		},
		{
			name: "context wins over header",
			setup: func(c *gin.Context) {
				c.Set(middleware.RequestIDKey, "ctx-id")
				c.Request.Header.Set(middleware.RequestIDHeader, "header-id")
			},
			expected: "ctx-id",
		},
		{
			name:     "empty when unset",
			setup:    func(*gin.Context) {},
			expected: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestContext(http.MethodGet, "/")
			tt.setup(c)
			assert.Equal(t, tt.expected, getRequestID(c))
		})
	}
}

func TestHandleError(t *testing.T) {
	appID := uuid.New()
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", licensing.NewValidationError("title", "is required"), http.StatusBadRequest, dto.ErrCodeValidation},
		{"not found", licensing.NewNotFoundError("application", appID), http.StatusNotFound, dto.ErrCodeNotFound},
		{"invalid transition", &licensing.InvalidTransitionError{Current: licensing.StatusApproved, Action: licensing.ActionSubmit}, http.StatusUnprocessableEntity, dto.ErrCodeInvalidState},
		{"capacity", &licensing.CapacityError{ReviewerID: uuid.New(), Workload: 10, Limit: 10}, http.StatusUnprocessableEntity, dto.ErrCodeCapacityExceeded},
		{"conflict", &licensing.ConflictError{ApplicationID: appID, ExpectedStatus: licensing.StatusSubmitted}, http.StatusConflict, dto.ErrCodeConcurrencyConflict},
		{"not owner", licensing.ErrNotOwner, http.StatusForbidden, dto.ErrCodeForbidden},
		{"reviewer permission", licensingapp.ErrReviewerPermission, http.StatusForbidden, dto.ErrCodeForbidden},
		{"store failure", licensing.NewStoreError("load application", errors.New("connection reset")), http.StatusServiceUnavailable, dto.ErrCodeStoreFailure},
		{"wrapped domain error", fmt.Errorf("submit: %w", licensing.NewNotFoundError("application", appID)), http.StatusNotFound, dto.ErrCodeNotFound},
		{"unknown", errors.New("kaboom"), http.StatusInternalServerError, dto.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newTestContext(http.MethodPost, "/")
			c.Set(middleware.RequestIDKey, "req-1")

			var h BaseHandler
			h.HandleError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeResponse(t, w)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Equal(t, "req-1", resp.Error.RequestID)
		})
	}
}

func TestHandleError_ValidationDetail(t *testing.T) {
	c, w := newTestContext(http.MethodPost, "/")

	var h BaseHandler
	h.HandleError(c, licensing.NewValidationError("license_type", "unknown license type"))

	resp := decodeResponse(t, w)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "license_type", resp.Error.Details[0].Field)
	assert.Equal(t, "unknown license type", resp.Error.Details[0].Message)
}

func TestHandleError_StoreFailureHidesCause(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")

	var h BaseHandler
	h.HandleError(c, licensing.NewStoreError("load application", errors.New("pq: password authentication failed")))

	resp := decodeResponse(t, w)
	assert.Equal(t, "Failed to load application", resp.Error.Message)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestHandleError_Nil(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")

	var h BaseHandler
	h.HandleError(c, nil)

	assert.Zero(t, w.Body.Len())
}

func TestPathUUID(t *testing.T) {
	var h BaseHandler

	t.Run("valid", func(t *testing.T) {
		id := uuid.New()
		c, _ := newTestContext(http.MethodGet, "/")
		c.Params = gin.Params{{Key: "id", Value: id.String()}}

		got, ok := h.pathUUID(c, "id")
		assert.True(t, ok)
		assert.Equal(t, id, got)
	})

	t.Run("malformed", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		c.Params = gin.Params{{Key: "documentId", Value: "abc"}}

		_, ok := h.pathUUID(c, "documentId")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		resp := decodeResponse(t, w)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.Equal(t, "documentId", resp.Error.Details[0].Field)
	})
}

func TestActor(t *testing.T) {
	var h BaseHandler

	t.Run("missing", func(t *testing.T) {
		c, w := newTestContext(http.MethodGet, "/")
		_, ok := h.actor(c)
		assert.False(t, ok)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("present", func(t *testing.T) {
		c, _ := newTestContext(http.MethodGet, "/")
		want := licensingapp.NewActor(uuid.New(), uuid.New(), licensingapp.PermissionReview)
		c.Set(middleware.ActorKey, want)

		got, ok := h.actor(c)
		assert.True(t, ok)
		assert.Equal(t, want.UserID, got.UserID)
		assert.True(t, got.CanReview())
	})
}

func TestSuccessWithMeta(t *testing.T) {
	c, w := newTestContext(http.MethodGet, "/")

	var h BaseHandler
	h.SuccessWithMeta(c, []string{"a", "b"}, 12, 2, 5)

	resp := decodeResponse(t, w)
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Meta)
	assert.Equal(t, int64(12), resp.Meta.Total)
	assert.Equal(t, 3, resp.Meta.TotalPages)
}
