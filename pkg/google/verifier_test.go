package google

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenInfoServer(t *testing.T) *httptest.Server {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("id_token") {
		case "good":
			w.Write([]byte(`{"aud":"client-1","sub":"g-1","email":"g@example.com","email_verified":"true","given_name":"Gin"}`))
		case "other-aud":
			w.Write([]byte(`{"aud":"client-2","sub":"g-2","email":"x@example.com"}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestVerifier_Verify(t *testing.T) {
	srv := newTokenInfoServer(t)
	v := NewVerifier("client-1", srv.URL)

	id, err := v.Verify(context.Background(), "good")
	require.NoError(t, err)
	assert.Equal(t, "g-1", id.Subject)
	assert.Equal(t, "g@example.com", id.Email)
	assert.True(t, id.EmailVerified)
	assert.Equal(t, "Gin", id.GivenName)
}

func TestVerifier_Rejects(t *testing.T) {
	srv := newTokenInfoServer(t)
	v := NewVerifier("client-1", srv.URL)

	for _, token := range []string{"", "bad", "other-aud"} {
		_, err := v.Verify(context.Background(), token)
		assert.ErrorIs(t, err, ErrInvalidIDToken, token)
	}
}
