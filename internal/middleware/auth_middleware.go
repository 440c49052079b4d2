// auth_middleware.go
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/model"
	"storefront-api/internal/service"
)

// Context keys set by AuthMiddleware.
const (
	KeyUserID    = "userID"
	KeyUserName  = "userName"
	KeyUserRoles = "userRoles"
)

// Authenticator resolves a bearer token to the current state of its account.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (service.Actor, error)
}

// AuthMiddleware validates the bearer token, loads the caller and stores it
// in the gin context. Missing or unknown accounts get 401, locked or
// inactive ones 403.
func AuthMiddleware(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		token = strings.TrimSpace(token)
		if !ok || token == "" {
			abort(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Not authorized, no token")
			return
		}

		actor, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			appErr, ok := apperr.As(err)
			if !ok {
				appErr = apperr.Authentication("Not authorized, token failed")
			}
			abort(c, appErr.HTTPStatus(), appErr.Code, appErr.Message)
			return
		}

		c.Set(KeyUserID, actor.ID)
		c.Set(KeyUserName, actor.Name)
		c.Set(KeyUserRoles, actor.Roles)
		c.Next()
	}
}

// Actor returns the authenticated caller, or the zero Actor on public
// routes.
func Actor(c *gin.Context) service.Actor {
	var a service.Actor
	if v, ok := c.Get(KeyUserID); ok {
		a.ID, _ = v.(primitive.ObjectID)
	}
	a.Name = c.GetString(KeyUserName)
	if v, ok := c.Get(KeyUserRoles); ok {
		a.Roles, _ = v.(model.Roles)
	}
	return a
}

func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message, "code": code})
}
