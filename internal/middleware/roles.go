// roles.go
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/model"
)

// RequireRoles lets the request through when the caller has any of roles.
// It must run after AuthMiddleware.
func RequireRoles(roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Actor(c).Roles.HasAny(roles...) {
			abort(c, http.StatusForbidden, "FORBIDDEN", "Access denied: insufficient role")
			return
		}
		c.Next()
	}
}
