package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tourbackend/internal/domain"
)

const (
	identityKey = "identity"
	userRoleKey = "userRole"
)

// TokenParser turns a bearer token into the caller identity.
type TokenParser interface {
	ParseToken(raw string) (domain.Identity, error)
}

// Auth requires a valid "Authorization: Bearer <jwt>" header and stores the
// identity in the context for handlers.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			abortJSON(c, http.StatusUnauthorized, "unauthenticated", "missing bearer token")
			return
		}
		who, err := parser.ParseToken(raw)
		if err != nil {
			abortJSON(c, http.StatusUnauthorized, "unauthenticated", err.Error())
			return
		}
		c.Set(identityKey, who)
		c.Set(userRoleKey, who.Role)
		c.Next()
	}
}

// GetIdentity returns the authenticated caller or the zero identity.
func GetIdentity(c *gin.Context) domain.Identity {
	if c == nil {
		return domain.Identity{}
	}
	if v, ok := c.Get(identityKey); ok {
		if who, ok := v.(domain.Identity); ok {
			return who
		}
	}
	return domain.Identity{}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	if len(header) < 7 || !strings.EqualFold(header[:7], "bearer ") {
		return "", false
	}
	token := strings.TrimSpace(header[7:])
	return token, token != ""
}

func abortJSON(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":      message,
		"code":       code,
		"message":    message,
		"request_id": GetRequestID(c),
	})
}
