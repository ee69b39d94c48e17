package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var allKeys = []string{
	"PORT", "ACTIVITY_TABLE", "SQLITE_PATH", "PARAM_PREFIX", "WAQI_TOKEN", "OPENWEATHER_TOKEN",
	"DEFAULT_LOCATION", "SESSION_TTL", "REAP_INTERVAL", "MAX_MESSAGE_LENGTH", "COLLABORATOR_TIMEOUT",
}

// clearEnv unsets every key; t.Setenv restores the originals on cleanup.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	for _, k := range allKeys {
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "8080", cfg.Port)
	require.Equal(t, "./data/ecoassist.db", cfg.SQLitePath)
	require.Equal(t, "London", cfg.DefaultLocation)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	require.Equal(t, time.Hour, cfg.ReapInterval)
	require.Equal(t, 1000, cfg.MaxMessageLength)
	require.Equal(t, 5*time.Second, cfg.CollaboratorTimeout)
	require.Empty(t, cfg.ActivityTable)
	require.NoError(t, cfg.ValidateLocal())
	require.Error(t, cfg.ValidateLambda())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("ACTIVITY_TABLE", "eco-activities")
	t.Setenv("PARAM_PREFIX", "/eco-assistant/")
	t.Setenv("DEFAULT_LOCATION", " Paris ")
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("REAP_INTERVAL", "10m")
	t.Setenv("MAX_MESSAGE_LENGTH", "500")
	t.Setenv("COLLABORATOR_TIMEOUT", "0s")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Port)
	require.Equal(t, "/eco-assistant", cfg.ParamPrefix)
	require.Equal(t, "Paris", cfg.DefaultLocation)
	require.Equal(t, 2*time.Hour, cfg.SessionTTL)
	require.Equal(t, 10*time.Minute, cfg.ReapInterval)
	require.Equal(t, 500, cfg.MaxMessageLength)
	require.Zero(t, cfg.CollaboratorTimeout)
	require.NoError(t, cfg.ValidateLambda())
}

func TestLoad_MalformedValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("SESSION_TTL", "a day")
	t.Setenv("MAX_MESSAGE_LENGTH", "lots")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 24*time.Hour, cfg.SessionTTL)
	require.Equal(t, 1000, cfg.MaxMessageLength)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"PORT":                 "",
		"DEFAULT_LOCATION":     "  ",
		"SESSION_TTL":          "-1h",
		"REAP_INTERVAL":        "0s",
		"MAX_MESSAGE_LENGTH":   "0",
		"COLLABORATOR_TIMEOUT": "-5s",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), key)
		})
	}
}
