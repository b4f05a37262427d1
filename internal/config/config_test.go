package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-catalog-link/internal/config"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "https://api.discogs.com", c.GetAPIBaseURL())
	require.Equal(t, 10*time.Minute, c.GetPendingTTL())
	require.Equal(t, time.Minute, c.GetSweepInterval())
	require.Equal(t, 15*time.Second, c.GetRequestTimeout())
	require.Equal(t, 1, c.GetDefaultFolderID())
	require.Equal(t, config.CredentialStoreSQLite, c.GetCredentialStore())
	require.Equal(t, "http://localhost:8080/api/catalog/callback", c.GetCallbackURL())
}

func TestNew_FromEnvironment(t *testing.T) {
	t.Setenv("PORT", ":9090")
	t.Setenv("BASE_URL", "https://crates.example.com/")
	t.Setenv("CATALOG_CONSUMER_KEY", "key")
	t.Setenv("CATALOG_REQUEST_TIMEOUT", "3s")
	t.Setenv("LINK_PENDING_TTL", "5m")
	t.Setenv("CREDENTIAL_STORE", "redis")

	c, err := config.New()
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "key", c.GetConsumerKey())
	require.Equal(t, 3*time.Second, c.GetRequestTimeout())
	require.Equal(t, 5*time.Minute, c.GetPendingTTL())
	require.Equal(t, config.CredentialStoreRedis, c.GetCredentialStore())
	require.Equal(t, "https://crates.example.com/api/catalog/callback", c.GetCallbackURL())
}

func TestNew_ExplicitCallbackURL(t *testing.T) {
	t.Setenv("LINK_CALLBACK_URL", "https://elsewhere.example.com/cb")

	c, err := config.New()
	require.NoError(t, err)
	require.Equal(t, "https://elsewhere.example.com/cb", c.GetCallbackURL())
}

func TestNew_InvalidDuration(t *testing.T) {
	t.Setenv("LINK_SWEEP_INTERVAL", "not-a-duration")

	_, err := config.New()
	require.Error(t, err)
}
