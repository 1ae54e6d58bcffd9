package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"env":                       "production",
		"endpoint_addr":             "www.example:9000",
		"database_dsn":              "postgres://json-host/db",
		"secret_key":                "my_secret_key",
		"session_validity_duration": "12h",
		"frontend_url":              "https://app.example.com",
		"smtp_host":                 "mail.example.com",
		"smtp_port":                 465,
		"smtp_user":                 "mailer",
		"smtp_password":             "mailerpass",
		"smtp_from":                 "noreply@example.com",
		"google_client_id":          "client-id-1",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "production", cfg.Env)
		assert.Equal(t, "www.example:9000", cfg.EndpointAddr)
		assert.Equal(t, "postgres://json-host/db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, 12*time.Hour, cfg.SessionValidityDuration)
		assert.Equal(t, "https://app.example.com", cfg.FrontendURL)
		assert.Equal(t, "mail.example.com", cfg.SMTPHost)
		assert.Equal(t, 465, cfg.SMTPPort)
		assert.Equal(t, "mailer", cfg.SMTPUser)
		assert.Equal(t, "mailerpass", cfg.SMTPPassword)
		assert.Equal(t, "noreply@example.com", cfg.SMTPFrom)
		assert.Equal(t, "client-id-1", cfg.GoogleClientID)
	})

	t.Run("no CONFIG and no flags, no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			Env:                     "development",
			EndpointAddr:            "defaults:1234",
			DatabaseDSN:             "postgres://default-host/db",
			SecretKey:               "key",
			SessionValidityDuration: 2 * time.Hour,
		}
		parseJson(cfg)

		assert.Equal(t, "development", cfg.Env)
		assert.Equal(t, "defaults:1234", cfg.EndpointAddr)
		assert.Equal(t, "postgres://default-host/db", cfg.DatabaseDSN)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Hour, cfg.SessionValidityDuration)
	})

	t.Run("invalid JSON panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
