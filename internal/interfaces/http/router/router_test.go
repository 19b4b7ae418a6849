package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup_AppliesAPIMiddleware(t *testing.T) {
	engine := gin.New()
	var hits int
	r := NewRouter(engine, WithAPIMiddleware(func(c *gin.Context) {
		hits++
		c.Next()
	}))
	r.Register(NewDomainGroup("test", "/test").GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	}))
	r.Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, 1, hits)
}

func TestDomainGroup_SubgroupMiddlewareIsScoped(t *testing.T) {
	engine := gin.New()
	guard := func(c *gin.Context) { c.AbortWithStatus(http.StatusForbidden) }
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }

	group := NewDomainGroup("items", "/items").GET("/:id", ok).DELETE("/:id", ok)
	group.Group("admin", "/:id").Use(guard).POST("/lock", ok)
	assert.Equal(t, "items", group.Name())

	group.RegisterRoutes(engine.Group("/api"))

	tests := []struct {
		method, path string
		status       int
	}{
		{http.MethodGet, "/api/items/1", http.StatusOK},
		{http.MethodDelete, "/api/items/1", http.StatusOK},
		{http.MethodPost, "/api/items/1/lock", http.StatusForbidden},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, "%s %s", tt.method, tt.path)
	}
}
