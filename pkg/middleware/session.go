package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const sessionKey = "sessionID"

// cookie lifetime in seconds (30 days)
const sessionCookieMaxAge = 30 * 24 * 60 * 60

// SessionMiddleware resolves the caller's logical session: it reads the
// session cookie, minting a fresh uuid when none is present, and exposes the
// id to downstream handlers via the gin context.
func SessionMiddleware(cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cookieName)
		if err != nil || sid == "" {
			sid = uuid.NewString()
			c.SetCookie(cookieName, sid, sessionCookieMaxAge, "/", "", false, true)
		}
		c.Set(sessionKey, sid)
		c.Next()
	}
}

// SessionID returns the session id resolved by SessionMiddleware, or "" when
// the middleware did not run.
func SessionID(c *gin.Context) string {
	v, ok := c.Get(sessionKey)
	if !ok {
		return ""
	}
	sid, _ := v.(string)
	return sid
}
