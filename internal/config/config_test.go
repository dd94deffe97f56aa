package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/surveyforge/console-auth/internal/config"
)

func TestDefaults(t *testing.T) {
	c := config.New()

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "http://localhost:8080", c.GetBaseURL())
	require.Equal(t, "default", c.GetInstanceID())
	require.Equal(t, 10*time.Second, c.GetRequestTimeout())
	require.Equal(t, "console_session", c.GetSessionCookieName())
	require.Contains(t, c.GetScopes(), "offline_access")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("IDP_SCOPES", "openid email")

	c := config.New()

	require.Equal(t, ":9999", c.GetPort())
	require.Equal(t, 2*time.Second, c.GetRequestTimeout())
	require.Equal(t, []string{"openid", "email"}, c.GetScopes())
}

func TestRedirectURLFollowsBaseURL(t *testing.T) {
	t.Setenv("BASE_URL", "https://console.example.com")

	c := config.New()

	require.Equal(t, "https://console.example.com/callback", c.GetRedirectURL())
}
