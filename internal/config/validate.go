package config

import (
	"fmt"
	"strings"
)

// MissingError reports every required configuration field that is unset.
type MissingError struct {
	Fields []string
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Fields, ", "))
}

// Validate checks that every required field is present. All missing fields
// are collected into a single *MissingError instead of failing on the first.
func (c Config) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"telegram.token (TG_TOKEN)", c.Telegram.Token},
		{"congressus.domain (CONGRESSUS_DOMAIN)", c.Congressus.Domain},
		{"congressus.client_id (CONGRESSUS_CLIENT_ID)", c.Congressus.ClientID},
		{"congressus.client_secret (CONGRESSUS_CLIENT_SECRET)", c.Congressus.ClientSecret},
		{"congressus.api_token (CONGRESSUS_TOKEN)", c.Congressus.APIToken},
	}
	var missing []string
	for _, item := range required {
		if strings.TrimSpace(item.value) == "" {
			missing = append(missing, item.name)
		}
	}
	if len(missing) > 0 {
		return &MissingError{Fields: missing}
	}
	return nil
}
