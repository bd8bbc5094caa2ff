package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congresbot/congresbot/internal/schedule"
	"github.com/congresbot/congresbot/internal/subscriptions"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"TG_TOKEN", "CONGRESSUS_DOMAIN", "CONGRESSUS_CLIENT_ID", "CONGRESSUS_CLIENT_SECRET", "CONGRESSUS_TOKEN"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigMissingFieldsExitCode(t *testing.T) {
	clearEnv(t)
	_, _, err := loadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, exitConfigMissing, exit.code)
	assert.Contains(t, err.Error(), "telegram.token")
}

func TestLoadConfigUnreadableExitCode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[telegram\n"), 0o600))
	_, _, err := loadConfig(path)
	var exit *exitError
	require.True(t, errors.As(err, &exit))
	assert.Equal(t, exitConfigLoad, exit.code)
}

func TestLoadConfigComplete(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[telegram]
token = "123:abc"

[congressus]
domain = "https://vereniging.congressus.nl"
client_id = "id"
client_secret = "secret"
api_token = "token"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	cfg, rc, err := loadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, cfg.Server.Addr, rc.ServerAddr)
}

func TestJobFor(t *testing.T) {
	assert.Equal(t, schedule.StatusJob, jobFor(subscriptions.CategoryStatus))
	assert.Equal(t, schedule.BirthdayJob, jobFor(subscriptions.CategoryBirthday))
}

func TestVersionCommand(t *testing.T) {
	root := newRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "congresbot ")
}

func TestBroadcastRejectsUnknownCategory(t *testing.T) {
	root := newRootCommand()
	root.SetArgs([]string{"broadcast", "weather"})
	err := root.Execute()
	assert.ErrorContains(t, err, `unknown category "weather"`)
}
