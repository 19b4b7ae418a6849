package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/interfaces/http/dto"
)

func validationRouter() *gin.Engine {
	SetupValidator()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.POST("/licenses", func(c *gin.Context) {
		var req licensingapp.CreateApplicationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})
	return r
}

func postJSON(r *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/licenses", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandleValidationError_FieldDetails(t *testing.T) {
	w := postJSON(validationRouter(), `{"title":"","contact_email":"nope","priority":"SOON"}`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	assert.NotEmpty(t, errInfo.RequestID)

	byField := map[string]string{}
	for _, d := range errInfo.Details {
		byField[d.Field] = d.Message
	}
	assert.Equal(t, "This field is required", byField["license_type"])
	assert.Equal(t, "Invalid email format", byField["contact_email"])
	assert.Equal(t, "Must be one of: URGENT HIGH NORMAL LOW", byField["priority"])
}

func TestHandleValidationError_MalformedJSON(t *testing.T) {
	w := postJSON(validationRouter(), `{"title":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, decodeError(t, w).Code)
}

func TestHandleValidationError_WrongType(t *testing.T) {
	w := postJSON(validationRouter(), `{"license_type":"NIB","title":42}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	errInfo := decodeError(t, w)
	assert.Equal(t, dto.ErrCodeValidation, errInfo.Code)
	require.Len(t, errInfo.Details, 1)
	assert.Equal(t, "title", errInfo.Details[0].Field)
}

func TestHandleValidationError_Valid(t *testing.T) {
	w := postJSON(validationRouter(), `{"license_type":"NIB","title":"Warung Sari"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}
