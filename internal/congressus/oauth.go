// Package congressus talks to the association-management service: the OAuth
// authorization-code flow used for account linking and the members API used
// for birthday lookups.
package congressus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
)

// Errors returned by the OAuth client.
var (
	ErrExchangeFailed = errors.New("congressus token exchange failed")
	ErrMissingUserID  = errors.New("congressus token response has no user_id")
)

// OAuthConfig holds the registered OAuth client.
type OAuthConfig struct {
	Domain       string
	ClientID     string
	ClientSecret string
	Scope        string
	RedirectURL  string
}

// OAuthClient builds authorize URLs and exchanges authorization codes.
type OAuthClient struct {
	conf       *oauth2.Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewOAuthClient creates a client for the provider at cfg.Domain. The token
// endpoint is called with HTTP basic auth using the client id and secret.
func NewOAuthClient(log *slog.Logger, cfg OAuthConfig, httpClient *http.Client) *OAuthClient {
	if log == nil {
		log = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	domain := strings.TrimRight(strings.TrimSpace(cfg.Domain), "/")
	var scopes []string
	if scope := strings.TrimSpace(cfg.Scope); scope != "" {
		scopes = strings.Fields(scope)
	}
	return &OAuthClient{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   domain + "/oauth/authorize",
				TokenURL:  domain + "/oauth/token",
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: httpClient,
		logger:     log.With(slog.String("client", "congressus_oauth")),
	}
}

// AuthCodeURL returns the provider authorize URL carrying state. It performs no I/O.
func (c *OAuthClient) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state)
}

// Exchange trades an authorization code for the member's Congressus user id.
// Transport failures and non-2xx responses are wrapped in ErrExchangeFailed.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.conf.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			c.logger.Debug("token endpoint rejected code",
				slog.Int("status", retrieveErr.Response.StatusCode),
				slog.String("body", string(retrieveErr.Body)),
			)
			return "", fmt.Errorf("%w: status %d: %s", ErrExchangeFailed, retrieveErr.Response.StatusCode, strings.TrimSpace(string(retrieveErr.Body)))
		}
		return "", fmt.Errorf("%w: %w", ErrExchangeFailed, err)
	}
	userID, ok := extraID(token.Extra("user_id"))
	if !ok {
		return "", ErrMissingUserID
	}
	return userID, nil
}

// extraID normalises the user_id field, which arrives as a JSON number or,
// for form-encoded responses, as a string.
func extraID(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case float64:
		return strconv.FormatInt(int64(v), 10), true
	case json.Number:
		return v.String(), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case int:
		return strconv.Itoa(v), true
	default:
		return "", false
	}
}
