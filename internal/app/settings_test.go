package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"mcpdeck/internal/domain"
)

func TestLoadSettingsDefaults(t *testing.T) {
	settings, err := LoadSettings("")
	require.NoError(t, err)
	require.Equal(t, domain.DefaultHealthCheckInterval, settings.HealthCheckInterval)
	require.Equal(t, domain.DefaultReconnectDelay, settings.ReconnectDelay)
	require.Equal(t, domain.DefaultRestartSettleDelay, settings.RestartSettleDelay)
	require.Equal(t, domain.DefaultProbeTimeout, settings.ProbeTimeout)
	require.Empty(t, settings.MetricsListenAddr)
	require.True(t, settings.ReloadOnChange)
}

func TestLoadSettingsMissingFileUsesDefaults(t *testing.T) {
	settings, err := LoadSettings(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, domain.DefaultHealthCheckInterval, settings.HealthCheckInterval)
}

func TestLoadSettingsFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
healthCheckSeconds: 10
reconnectDelaySeconds: 2
restartSettleMillis: 100
probeTimeoutSeconds: 3
metricsListenAddress: "127.0.0.1:9464"
reloadOnChange: false
`), 0o644))

	settings, err := LoadSettings(path)
	require.NoError(t, err)
	require.Equal(t, 10*time.Second, settings.HealthCheckInterval)
	require.Equal(t, 2*time.Second, settings.ReconnectDelay)
	require.Equal(t, 100*time.Millisecond, settings.RestartSettleDelay)
	require.Equal(t, 3*time.Second, settings.ProbeTimeout)
	require.Equal(t, "127.0.0.1:9464", settings.MetricsListenAddr)
	require.False(t, settings.ReloadOnChange)
}

func TestLoadSettingsRejectsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("healthCheckSeconds: 0\n"), 0o644))

	_, err := LoadSettings(path)
	require.True(t, domain.IsCode(err, domain.CodeInvalidConfig))
}
