package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/iot-go-sdk/simulated-device/pkg/config"
	"github.com/iot-go-sdk/simulated-device/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConnectionString = "HostName=myhub.azure-devices.net;DeviceId=sensor-01;SharedAccessKey=MDEyMzQ1Njc4OWFiY2RlZjAxMjM0NTY3ODlhYmNkZWY="

func TestLoadDefaults(t *testing.T) {
	t.Setenv("connectionString", testConnectionString)

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, testConnectionString, cfg.Device.ConnectionString)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.Interval)
	assert.Equal(t, 0, cfg.Telemetry.MaxInFlight)
	assert.Equal(t, config.DefaultShutdownTimeout, cfg.Telemetry.ShutdownTimeout)
	assert.Equal(t, 8883, cfg.MQTT.Port)
	assert.True(t, cfg.MQTT.UseTLS)
	assert.Equal(t, 60*time.Second, cfg.MQTT.KeepAlive)
	assert.Equal(t, time.Hour, cfg.Device.SASTTL)
	assert.Equal(t, config.DefaultLogLevel, cfg.Logging.Level)
	assert.Empty(t, cfg.Journal.Path)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IOT_CONNECTION_STRING", testConnectionString)
	t.Setenv("IOT_INTERVAL", "2s")
	t.Setenv("IOT_MQTT_PORT", "1883")
	t.Setenv("IOT_MQTT_USE_TLS", "false")
	t.Setenv("IOT_MAX_IN_FLIGHT", "4")
	t.Setenv("IOT_LOG_LEVEL", "debug")
	t.Setenv("IOT_JOURNAL_PATH", "/tmp/journal.db")

	cfg, err := config.Load(nil)
	require.NoError(t, err)

	assert.Equal(t, 2*time.Second, cfg.Telemetry.Interval)
	assert.Equal(t, 1883, cfg.MQTT.Port)
	assert.False(t, cfg.MQTT.UseTLS)
	assert.Equal(t, 4, cfg.Telemetry.MaxInFlight)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "/tmp/journal.db", cfg.Journal.Path)
}

func TestFlagsOverrideEnv(t *testing.T) {
	t.Setenv("connectionString", testConnectionString)
	t.Setenv("IOT_INTERVAL", "2s")
	t.Setenv("IOT_LOG_LEVEL", "warn")

	cfg, err := config.Load([]string{"--interval", "750ms", "--log-level", "error", "--max-in-flight", "2"})
	require.NoError(t, err)

	assert.Equal(t, 750*time.Millisecond, cfg.Telemetry.Interval)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Telemetry.MaxInFlight)
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.yaml")
	content := []byte(`
device:
  connection_string: "` + testConnectionString + `"
telemetry:
  interval: 10s
mqtt:
  keepalive: 30s
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	cfg, err := config.Load([]string{"--config", path})
	require.NoError(t, err)

	assert.Equal(t, testConnectionString, cfg.Device.ConnectionString)
	assert.Equal(t, 10*time.Second, cfg.Telemetry.Interval)
	assert.Equal(t, 30*time.Second, cfg.MQTT.KeepAlive)
}

func TestLoadMissingConfigFile(t *testing.T) {
	t.Setenv("connectionString", testConnectionString)

	_, err := config.Load([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml")})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrReadConfig))
}

func TestValidate(t *testing.T) {
	valid := func() *config.Config {
		cfg := config.NewConfig()
		cfg.Device.ConnectionString = testConnectionString
		return cfg
	}
	require.NoError(t, valid().Validate())

	cases := []struct {
		name   string
		mutate func(*config.Config)
		code   errors.ErrorCode
	}{
		{"missing connection string", func(c *config.Config) { c.Device.ConnectionString = "" }, errors.ErrMissingConfig},
		{"bad connection string", func(c *config.Config) { c.Device.ConnectionString = "HostName=h" }, errors.ErrInvalidConnectionString},
		{"interval too small", func(c *config.Config) { c.Telemetry.Interval = time.Millisecond }, errors.ErrInvalidInterval},
		{"negative in-flight", func(c *config.Config) { c.Telemetry.MaxInFlight = -1 }, errors.ErrInvalidConfig},
		{"bad port", func(c *config.Config) { c.MQTT.Port = 70000 }, errors.ErrInvalidConfig},
		{"zero sas ttl", func(c *config.Config) { c.Device.SASTTL = 0 }, errors.ErrInvalidConfig},
		{"bad log level", func(c *config.Config) { c.Logging.Level = "loud" }, errors.ErrInvalidLogLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tc.code), err.Error())
		})
	}
}

func TestLoadRequiresConnectionString(t *testing.T) {
	t.Setenv("connectionString", "")
	t.Setenv("IOT_CONNECTION_STRING", "")

	_, err := config.Load(nil)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingConfig))
}
