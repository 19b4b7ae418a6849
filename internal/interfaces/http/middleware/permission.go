package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	licensingapp "github.com/umkm/backend/internal/application/licensing"
	"github.com/umkm/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// PermissionConfig holds configuration for permission middleware
type PermissionConfig struct {
	Logger *zap.Logger
	// OnDenied replaces the default 403 response when set
	OnDenied func(c *gin.Context, requiredPerms []string)
}

// RequirePermission creates middleware that requires a specific permission
func RequirePermission(permission string) gin.HandlerFunc {
	return RequireAnyPermission(permission)
}

// RequireAnyPermission creates middleware that requires any of the specified permissions
func RequireAnyPermission(permissions ...string) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(PermissionConfig{}, permissions...)
}

// RequireAnyPermissionWithConfig creates middleware that requires any of the specified permissions with custom config
func RequireAnyPermissionWithConfig(cfg PermissionConfig, permissions ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := GetActor(c)
		if !ok {
			handlePermissionDenied(c, cfg, permissions, "No authenticated actor")
			return
		}
		for _, p := range permissions {
			if actor.Has(p) {
				c.Next()
				return
			}
		}
		handlePermissionDenied(c, cfg, permissions, "Actor lacks required permission")
	}
}

// RequireReviewer admits reviewers and admins
func RequireReviewer(cfg PermissionConfig) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(cfg, licensingapp.PermissionReview, licensingapp.PermissionAdmin)
}

// RequireAdmin admits admins only
func RequireAdmin(cfg PermissionConfig) gin.HandlerFunc {
	return RequireAnyPermissionWithConfig(cfg, licensingapp.PermissionAdmin)
}

// HasPermission reports whether the authenticated actor holds permission
func HasPermission(c *gin.Context, permission string) bool {
	actor, ok := GetActor(c)
	return ok && actor.Has(permission)
}

func handlePermissionDenied(c *gin.Context, cfg PermissionConfig, requiredPerms []string, reason string) {
	if cfg.OnDenied != nil {
		cfg.OnDenied(c, requiredPerms)
		c.Abort()
		return
	}

	if cfg.Logger != nil {
		actor, _ := GetActor(c)
		cfg.Logger.Warn("Permission denied",
			zap.String("reason", reason),
			zap.String("user_id", actor.UserID.String()),
			zap.Strings("required_permissions", requiredPerms),
			zap.Strings("user_permissions", actor.Permissions),
			zap.String("path", c.Request.URL.Path),
			zap.String("method", c.Request.Method),
		)
	}

	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(
		dto.ErrCodeForbidden,
		"Access denied: insufficient permissions",
		c.GetString(RequestIDKey),
	))
}
