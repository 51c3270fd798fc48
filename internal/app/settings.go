package app

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/spf13/viper"

	"mcpdeck/internal/domain"
)

// Settings are the daemon-level tunables, read from an optional YAML
// file. Everything has a default; a missing settings file is fine.
type Settings struct {
	HealthCheckInterval time.Duration
	ReconnectDelay      time.Duration
	RestartSettleDelay  time.Duration
	ProbeTimeout        time.Duration
	MetricsListenAddr   string
	ReloadOnChange      bool
}

type rawSettings struct {
	HealthCheckSeconds    int    `mapstructure:"healthCheckSeconds"`
	ReconnectDelaySeconds int    `mapstructure:"reconnectDelaySeconds"`
	RestartSettleMillis   int    `mapstructure:"restartSettleMillis"`
	ProbeTimeoutSeconds   int    `mapstructure:"probeTimeoutSeconds"`
	MetricsListenAddress  string `mapstructure:"metricsListenAddress"`
	ReloadOnChange        bool   `mapstructure:"reloadOnChange"`
}

func newSettingsViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetDefault("healthCheckSeconds", int(domain.DefaultHealthCheckInterval/time.Second))
	v.SetDefault("reconnectDelaySeconds", int(domain.DefaultReconnectDelay/time.Second))
	v.SetDefault("restartSettleMillis", int(domain.DefaultRestartSettleDelay/time.Millisecond))
	v.SetDefault("probeTimeoutSeconds", int(domain.DefaultProbeTimeout/time.Second))
	v.SetDefault("metricsListenAddress", "")
	v.SetDefault("reloadOnChange", true)
	return v
}

// LoadSettings reads the settings file at path. An empty path or a
// missing file yields pure defaults.
func LoadSettings(path string) (Settings, error) {
	v := newSettingsViper()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Settings{}, fmt.Errorf("read settings: %w", err)
		}
		if err == nil {
			if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
				return Settings{}, fmt.Errorf("parse settings: %w", err)
			}
		}
	}

	var raw rawSettings
	if err := v.Unmarshal(&raw); err != nil {
		return Settings{}, fmt.Errorf("decode settings: %w", err)
	}

	var errs []string
	if raw.HealthCheckSeconds <= 0 {
		errs = append(errs, "healthCheckSeconds must be > 0")
	}
	if raw.ReconnectDelaySeconds <= 0 {
		errs = append(errs, "reconnectDelaySeconds must be > 0")
	}
	if raw.RestartSettleMillis < 0 {
		errs = append(errs, "restartSettleMillis must be >= 0")
	}
	if raw.ProbeTimeoutSeconds <= 0 {
		errs = append(errs, "probeTimeoutSeconds must be > 0")
	}
	if len(errs) > 0 {
		return Settings{}, domain.EInvalid("app.LoadSettings", errs)
	}

	return Settings{
		HealthCheckInterval: time.Duration(raw.HealthCheckSeconds) * time.Second,
		ReconnectDelay:      time.Duration(raw.ReconnectDelaySeconds) * time.Second,
		RestartSettleDelay:  time.Duration(raw.RestartSettleMillis) * time.Millisecond,
		ProbeTimeout:        time.Duration(raw.ProbeTimeoutSeconds) * time.Second,
		MetricsListenAddr:   raw.MetricsListenAddress,
		ReloadOnChange:      raw.ReloadOnChange,
	}, nil
}
