// Package boot provides runtime configuration derived from the validated config.
package boot

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"

	"github.com/congresbot/congresbot/internal/config"
)

// CallbackPath is the HTTP route that receives the OAuth authorization code.
const CallbackPath = "/oauth/callback"

// WebhookPathPrefix is the HTTP route prefix for Telegram push delivery.
const WebhookPathPrefix = "/telegram/webhook/"

// RuntimeConfig holds parsed runtime settings (durations, timezone, public URLs).
type RuntimeConfig struct {
	ServerAddr      string
	ShutdownTimeout time.Duration
	Location        *time.Location
	StateTTL        time.Duration
	RedirectURL     string
	WebhookURL      string
	WebhookSecret   string
}

// ProvideRuntimeConfig validates cfg and builds RuntimeConfig from it.
func ProvideRuntimeConfig(cfg config.Config) (*RuntimeConfig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	shutdown, err := time.ParseDuration(cfg.Server.ShutdownTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid server shutdown timeout: %w", err)
	}

	stateTTL, err := parseTTL(cfg.Linking.StateTTL)
	if err != nil {
		return nil, fmt.Errorf("invalid linking state ttl: %w", err)
	}

	loc, err := time.LoadLocation(strings.TrimSpace(cfg.Schedule.Timezone))
	if err != nil {
		return nil, fmt.Errorf("invalid timezone: %w", err)
	}

	ret := &RuntimeConfig{
		ServerAddr:      cfg.Server.Addr,
		ShutdownTimeout: shutdown,
		Location:        loc,
		StateTTL:        stateTTL,
	}

	publicURL := strings.TrimSpace(cfg.Server.PublicURL)
	if publicURL != "" {
		if _, err := url.Parse(publicURL); err != nil {
			return nil, fmt.Errorf("invalid server public url: %w", err)
		}
		ret.RedirectURL = strings.TrimRight(publicURL, "/") + CallbackPath
	}

	if domain := strings.TrimSpace(cfg.Telegram.WebhookDomain); domain != "" {
		secret := strings.TrimSpace(cfg.Telegram.WebhookSecret)
		if secret == "" {
			secret = strings.ReplaceAll(uuid.NewString(), "-", "")
		}
		ret.WebhookSecret = secret
		ret.WebhookURL = webhookBase(domain) + WebhookPathPrefix + secret
	}
	return ret, nil
}

// parseTTL accepts a Go duration; "0" or an empty string disables expiry.
func parseTTL(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}

func webhookBase(domain string) string {
	domain = strings.TrimRight(domain, "/")
	if strings.HasPrefix(domain, "http://") || strings.HasPrefix(domain, "https://") {
		return domain
	}
	return "https://" + domain
}
