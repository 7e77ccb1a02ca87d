package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// TokenAuthMiddleware accepts the Jupyter server token either as
// "Authorization: token <t>" or as a ?token= query parameter.
// An empty expected token disables the check.
func TokenAuthMiddleware(expected string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if expected == "" {
			c.Next()
			return
		}

		key := c.Query("token")
		if auth := c.GetHeader("Authorization"); auth != "" {
			scheme, value, ok := strings.Cut(auth, " ")
			if ok && (strings.EqualFold(scheme, "token") || strings.EqualFold(scheme, "bearer")) {
				key = strings.TrimSpace(value)
			}
		}

		if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(expected)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "invalid or missing token",
			})
			return
		}

		c.Next()
	}
}
