package httpserver

import (
	"strings"

	"github.com/gin-gonic/gin"

	"ebook-storefront/internal/domain"
)

const (
	sessionCookie = "authToken"
	userCtxKey    = "user"
)

// authMiddleware resolves the session from the authToken cookie or a bearer
// token and stores the user on the gin context.
func authMiddleware(auth authService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := sessionToken(c)
		if token == "" {
			writeError(c, domain.ErrUnauthorized)
			c.Abort()
			return
		}
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}
		c.Set(userCtxKey, *user)
		c.Next()
	}
}

// authorMiddleware rejects users without an author profile. It must run
// after authMiddleware.
func authorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok || !user.IsAuthor() {
			writeError(c, domain.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

func sessionToken(c *gin.Context) string {
	if cookie, err := c.Cookie(sessionCookie); err == nil && cookie != "" {
		return cookie
	}
	header := c.GetHeader("Authorization")
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

func currentUser(c *gin.Context) (domain.User, bool) {
	v, ok := c.Get(userCtxKey)
	if !ok {
		return domain.User{}, false
	}
	user, ok := v.(domain.User)
	return user, ok
}
