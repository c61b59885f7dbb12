package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/madness-store/madness-backend/config"
	"github.com/madness-store/madness-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSessionConfig = config.SessionConfig{
	CookieName: "sessionId",
	Secret:     "session-secret",
	TTL:        time.Hour,
}

func sessionRouter(auth *AuthMiddleware) *gin.Engine {
	router := gin.New()
	router.GET("/cart", auth.OptionalAuthenticate(), CartSessionMiddleware(testSessionConfig), func(c *gin.Context) {
		owner, ok := ResolveCartOwner(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"owner": owner.String()})
	})
	return router
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == testSessionConfig.CookieName {
			return cookie
		}
	}
	return nil
}

func TestCartSessionMiddleware_IssuesAndReusesCookie(t *testing.T) {
	router := sessionRouter(NewAuthMiddleware(testJWTSecret, nil, nil))

	w := doGet(router, "/cart", "")
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(t, w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)

	sessionID, err := util.ParseSessionID(cookie.Value, testSessionConfig.Secret)
	require.NoError(t, err)
	assert.Contains(t, w.Body.String(), "session:"+sessionID)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Contains(t, w.Body.String(), "session:"+sessionID)
	assert.Nil(t, sessionCookie(t, w), "a valid cookie is not reissued")
}

func TestCartSessionMiddleware_RejectsTamperedCookie(t *testing.T) {
	router := sessionRouter(NewAuthMiddleware(testJWTSecret, nil, nil))

	forged, err := util.SignSessionID("victim-session", "other-secret", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	req.AddCookie(&http.Cookie{Name: testSessionConfig.CookieName, Value: forged})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.NotContains(t, w.Body.String(), "victim-session")
	assert.NotNil(t, sessionCookie(t, w))
}

func TestResolveCartOwner_PrefersUser(t *testing.T) {
	router := sessionRouter(NewAuthMiddleware(testJWTSecret, nil, nil))
	token := generateTestToken(t, 42, "shopper@example.com", "user")

	w := doGet(router, "/cart", token)
	assert.JSONEq(t, `{"owner":"user:42"}`, w.Body.String())
}
