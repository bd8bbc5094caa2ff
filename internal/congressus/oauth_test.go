package congressus

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthCodeURL(t *testing.T) {
	client := NewOAuthClient(nil, OAuthConfig{
		Domain:   "https://vereniging.congressus.nl/",
		ClientID: "bot",
		Scope:    "openid",
	}, nil)

	raw := client.AuthCodeURL("state-123")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "vereniging.congressus.nl", u.Host)
	assert.Equal(t, "/oauth/authorize", u.Path)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "bot", q.Get("client_id"))
	assert.Equal(t, "openid", q.Get("scope"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.False(t, q.Has("redirect_uri"))
}

func TestExchangeReadsUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/oauth/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot", user)
		assert.Equal(t, "shh", pass)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token": "at",
			"token_type":   "Bearer",
			"user_id":      4711,
		})
	}))
	defer srv.Close()

	client := NewOAuthClient(nil, OAuthConfig{Domain: srv.URL, ClientID: "bot", ClientSecret: "shh"}, srv.Client())
	id, err := client.Exchange(context.Background(), "the-code")
	require.NoError(t, err)
	assert.Equal(t, "4711", id)
}

func TestExchangeRejectedCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer srv.Close()

	client := NewOAuthClient(nil, OAuthConfig{Domain: srv.URL, ClientID: "bot", ClientSecret: "shh"}, srv.Client())
	_, err := client.Exchange(context.Background(), "stale")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExchangeFailed))
	assert.Contains(t, err.Error(), "400")
}

func TestExchangeMissingUserID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	client := NewOAuthClient(nil, OAuthConfig{Domain: srv.URL, ClientID: "bot", ClientSecret: "shh"}, srv.Client())
	_, err := client.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrMissingUserID)
}

func TestExchangeUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	client := NewOAuthClient(nil, OAuthConfig{Domain: base, ClientID: "bot", ClientSecret: "shh"}, nil)
	_, err := client.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrExchangeFailed)
}

func TestExtraID(t *testing.T) {
	tests := []struct {
		raw  any
		want string
		ok   bool
	}{
		{float64(12), "12", true},
		{" 34 ", "34", true},
		{json.Number("56"), "56", true},
		{int64(78), "78", true},
		{"", "", false},
		{nil, "", false},
		{true, "", false},
	}
	for _, tt := range tests {
		got, ok := extraID(tt.raw)
		assert.Equal(t, tt.ok, ok, "%v", tt.raw)
		assert.Equal(t, tt.want, got, "%v", tt.raw)
	}
}
