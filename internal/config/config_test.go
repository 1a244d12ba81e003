package config_test

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dcmio/dcm/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "stdio", cfg.Transport.Mode)
	require.Equal(t, "dcm", cfg.Server.Name)
	require.True(t, cfg.Maintenance.Enabled)
}

func TestEnvOverridesDefaults(t *testing.T) {
	t.Setenv("DCM_TRANSPORT", "http")
	t.Setenv("DCM_PORT", "9000")
	t.Setenv("DCM_WEBHOOK_ENABLED", "true")
	t.Setenv("DCM_WEBHOOK_URL", "https://example.test/hook")

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "http", cfg.Transport.Mode)
	require.Equal(t, "9000", cfg.Transport.Port)
	require.True(t, cfg.Webhook.Enabled)
	require.Equal(t, "https://example.test/hook", cfg.Webhook.URL)
}

func TestValidateRejectsUnknownTransportMode(t *testing.T) {
	cfg := &config.Config{Transport: config.TransportConfig{Mode: "carrier-pigeon"}}
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsWebhookEnabledWithoutURL(t *testing.T) {
	cfg := &config.Config{
		Transport: config.TransportConfig{Mode: "stdio"},
		Webhook:   config.WebhookConfig{Enabled: true},
	}
	require.Error(t, cfg.Validate())
}

func TestLoadFileIsOptional(t *testing.T) {
	_ = os.Unsetenv("DCM_CONFIG")
	_, err := config.Load("")
	require.NoError(t, err)
}
