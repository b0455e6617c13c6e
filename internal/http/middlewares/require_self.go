package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RequireSelf guards routes shaped /..../:param where the path parameter must
// be the authenticated user. There are no roles; a session only ever grants
// access to its own account.
func (m *AuthMiddleware) RequireSelf(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := UserIDFromContext(c)

		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing identity context",
				},
			})
			return
		}

		if c.Param(param) != id {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": gin.H{
					"code":    "forbidden",
					"message": "You can only act on your own account",
				},
			})
			return
		}

		c.Next()
	}
}
