package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/domain"
)

// RequireRoles only lets through callers whose role (set by Auth) is allowed.
func RequireRoles(allowedRoles ...string) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}

	return func(c *gin.Context) {
		role := c.GetString(userRoleKey)
		if role == "" {
			abortJSON(c, http.StatusUnauthorized, "unauthenticated", "unauthenticated")
			return
		}
		if _, ok := allowed[strings.ToLower(strings.TrimSpace(role))]; !ok {
			abortJSON(c, http.StatusForbidden, "forbidden", "admin access required")
			return
		}
		c.Next()
	}
}

func RequireAdmin() gin.HandlerFunc {
	return RequireRoles(domain.RoleAdmin)
}
