package middleware

import (
	"strings"

	"github.com/YellowFlash2012/hoaxgate/internal/models"
	"github.com/YellowFlash2012/hoaxgate/internal/session"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const bearerPrefix = "Bearer "

// currentUserKey is the gin context key the authenticated user is stored
// under.
const currentUserKey = "currentUser"

// TokenAuth attaches the authenticated user to the request context when a
// valid bearer token is presented. It never rejects a request: endpoints
// that require identity check for it themselves. Verification refreshes
// the session's sliding window even on endpoints that do not need auth,
// which keeps lightly-authenticated browsing sessions alive.
func TokenAuth(mgr *session.Manager, db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		userID, err := mgr.Verify(c.Request.Context(), token)
		if err != nil {
			// invalid, expired or store failure: proceed anonymously
			c.Next()
			return
		}

		var user models.User
		if err := db.First(&user, userID).Error; err == nil {
			c.Set(currentUserKey, &user)
		}

		c.Next()
	}
}

// BearerToken extracts the opaque token from the Authorization header,
// or returns "" when no bearer credential is present.
func BearerToken(c *gin.Context) string {
	auth := c.GetHeader("Authorization")
	if len(auth) > len(bearerPrefix) && strings.EqualFold(auth[:len(bearerPrefix)], bearerPrefix) {
		return auth[len(bearerPrefix):]
	}
	return ""
}

// CurrentUser returns the user attached by TokenAuth, or nil for an
// anonymous request.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	user, ok := v.(*models.User)
	if !ok {
		return nil
	}
	return user
}
