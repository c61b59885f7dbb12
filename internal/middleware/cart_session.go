package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/madness-store/madness-backend/config"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/pkg/util"
)

const cartSessionKey = "cart_session"

// CartSession is the anonymous visitor's identity for the current request.
// It travels in the gin context instead of a global session store.
type CartSession struct {
	ID string
}

// CartSessionMiddleware reads the signed session cookie, or issues a fresh
// one when it is missing, tampered with or expired.
func CartSessionMiddleware(cfg config.SessionConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var sessionID string
		if value, err := c.Cookie(cfg.CookieName); err == nil && value != "" {
			if id, err := util.ParseSessionID(value, cfg.Secret); err == nil {
				sessionID = id
			} else {
				GetLoggerFromContext(c).Debug("Discarding invalid session cookie", map[string]interface{}{
					"error": err.Error(),
				})
			}
		}

		if sessionID == "" {
			sessionID = uuid.NewString()
			signed, err := util.SignSessionID(sessionID, cfg.Secret, cfg.TTL)
			if err != nil {
				GetLoggerFromContext(c).Error("Failed to sign session cookie", err)
			} else {
				c.SetSameSite(http.SameSiteLaxMode)
				c.SetCookie(cfg.CookieName, signed, int(cfg.TTL.Seconds()), "/", "", cfg.Secure, true)
			}
		}

		c.Set(cartSessionKey, &CartSession{ID: sessionID})
		c.Next()
	}
}

func GetCartSession(c *gin.Context) (*CartSession, bool) {
	v, exists := c.Get(cartSessionKey)
	if !exists {
		return nil, false
	}
	s, ok := v.(*CartSession)
	return s, ok && s.ID != ""
}

// ResolveCartOwner picks the signed-in user when there is one, otherwise the
// anonymous session.
func ResolveCartOwner(c *gin.Context) (model.CartOwner, bool) {
	if userID, ok := GetUserID(c); ok && userID != 0 {
		return model.UserOwner(userID), true
	}
	if session, ok := GetCartSession(c); ok {
		return model.SessionOwner(session.ID), true
	}
	return model.CartOwner{}, false
}
