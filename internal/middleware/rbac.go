// rbac.go implements role-based authorization middleware.
//
// Roles are checked at request time from the user record AuthMiddleware loaded
// rather than being embedded in the JWT, so a grant or revocation takes effect
// immediately on the holder's next request without reissuing their token.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireAdmin aborts with 403 unless the authenticated user is an admin
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}
		if !user.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Administrator role required",
			})
			return
		}
		c.Next()
	}
}

// RequireSuperAdmin aborts with 403 unless the authenticated user is a super admin
func RequireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Authentication required",
			})
			return
		}
		if !user.IsSuperAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Super administrator role required",
			})
			return
		}
		c.Next()
	}
}
