package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// UserIDHeader carries the authenticated customer, set by the edge proxy.
	UserIDHeader = "X-User-ID"
	// AdminIDHeader carries the authenticated back-office reviewer.
	AdminIDHeader = "X-Admin-ID"

	UserIDKey  = "user_id"
	AdminIDKey = "admin_id"
)

// RequireUser rejects requests without a caller identity.
func RequireUser() gin.HandlerFunc {
	return requireIdentity(UserIDHeader, UserIDKey, "missing user identity")
}

// RequireAdmin rejects requests without a reviewer identity.
func RequireAdmin() gin.HandlerFunc {
	return requireIdentity(AdminIDHeader, AdminIDKey, "missing admin identity")
}

func requireIdentity(header, key, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(header))
		if id == "" {
			response := gin.H{
				"success": false,
				"error": gin.H{
					"code":      "UNAUTHORIZED",
					"message":   message,
					"retryable": false,
				},
			}
			if correlationID := GetCorrelationID(c); correlationID != "" {
				response["correlation_id"] = correlationID
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, response)
			return
		}

		c.Set(key, id)
		c.Next()
	}
}

// GetUserID returns the caller identity stored by RequireUser.
func GetUserID(c *gin.Context) string {
	return c.GetString(UserIDKey)
}

// GetAdminID returns the reviewer identity stored by RequireAdmin.
func GetAdminID(c *gin.Context) string {
	return c.GetString(AdminIDKey)
}
