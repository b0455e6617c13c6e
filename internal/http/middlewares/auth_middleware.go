package middlewares

import (
	"net/http"

	"github.com/specialsearch/specialsearch/internal/actorctx"
	"github.com/specialsearch/specialsearch/internal/auth"
	"github.com/gin-gonic/gin"
)

const SessionCookieName = "token"

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	VerifySessionToken(token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireSession reads the session from the HttpOnly cookie. No Authorization
// header fallback: browsers attach the cookie, nothing else should.
func (m *AuthMiddleware) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(SessionCookieName)

		if err != nil || raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Missing session cookie",
				},
			})
			return
		}

		claims, err := m.jwt.VerifySessionToken(raw)

		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":    "unauthorized",
					"message": "Invalid or expired session",
				},
			})
			return
		}

		c.Set(CtxUserID, claims.UserID)

		// propagate below the HTTP layer
		c.Request = c.Request.WithContext(
			actorctx.WithUserID(c.Request.Context(), claims.UserID),
		)

		c.Next()
	}
}

// UserIDFromContext lets handlers avoid the magic key.
func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}
