package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)

	assert.Equal(t, ":8080", values.RunAddr)
	assert.Equal(t, "http://localhost:8080", values.ShortURLBase)
	assert.Equal(t, "info", values.LogLevel)
	assert.Equal(t, "tinyapp_session", values.AuthCookieName)
	assert.Equal(t, 30*time.Second, values.SnapshotInterval)
}

func TestDefaultsAreValid(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)

	require.NoError(t, values.validate())
}

func TestValidateRejectsBadLogLevel(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)
	values.LogLevel = "loud"

	assert.Error(t, values.validate())
}

func TestValidateRejectsBadSigningKey(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)
	values.AuthCookieSigningSecretKey = "not base64!"

	assert.Error(t, values.validate())
}

func TestValidateRejectsBadTrustedSubnet(t *testing.T) {
	values := Config{}

	applyDefaults(&values, defaultConfig)
	values.TrustedSubnet = "512.0.0.1/33"

	assert.Error(t, values.validate())
}

func TestNewReadsEnvironment(t *testing.T) {
	t.Setenv("SERVER_ADDRESS", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("AUTH_COOKIE_NAME", "session_test")

	cfg, err := New(WithDisableFlagsParsing(true))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.RunAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "session_test", cfg.AuthCookieName)
	assert.Equal(t, "http://localhost:8080", cfg.ShortURLBase, "untouched fields keep defaults")
}
