package config

import (
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/iot-go-sdk/simulated-device/pkg/auth"
	"github.com/iot-go-sdk/simulated-device/pkg/errors"
	"github.com/iot-go-sdk/simulated-device/pkg/logger"
)

const (
	DefaultInterval        = 5 * time.Second
	DefaultPort            = 8883
	DefaultKeepAlive       = 60 * time.Second
	DefaultConnectTimeout  = 30 * time.Second
	DefaultSASTTL          = time.Hour
	DefaultShutdownTimeout = 5 * time.Second
	DefaultLogLevel        = "info"

	minInterval = 100 * time.Millisecond
)

type DeviceConfig struct {
	ConnectionString string
	SASTTL           time.Duration
}

type MQTTConfig struct {
	Port           int
	UseTLS         bool
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
}

type TLSConfig struct {
	CACert     string
	SkipVerify bool
}

type TelemetryConfig struct {
	Interval        time.Duration
	MaxInFlight     int
	ShutdownTimeout time.Duration
}

type LoggingConfig struct {
	Level string
}

type JournalConfig struct {
	Path string
}

type Config struct {
	Device    DeviceConfig
	MQTT      MQTTConfig
	TLS       TLSConfig
	Telemetry TelemetryConfig
	Logging   LoggingConfig
	Journal   JournalConfig
}

func NewConfig() *Config {
	return &Config{
		Device: DeviceConfig{
			SASTTL: DefaultSASTTL,
		},
		MQTT: MQTTConfig{
			Port:           DefaultPort,
			UseTLS:         true,
			KeepAlive:      DefaultKeepAlive,
			ConnectTimeout: DefaultConnectTimeout,
		},
		Telemetry: TelemetryConfig{
			Interval:        DefaultInterval,
			ShutdownTimeout: DefaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level: DefaultLogLevel,
		},
	}
}

// env lists the environment variables bound to each key, checked in order.
var env = map[string][]string{
	"device.connection_string":   {"connectionString", "IOT_CONNECTION_STRING"},
	"device.sas_ttl":             {"IOT_SAS_TTL"},
	"mqtt.port":                  {"IOT_MQTT_PORT"},
	"mqtt.use_tls":               {"IOT_MQTT_USE_TLS"},
	"mqtt.keepalive":             {"IOT_MQTT_KEEPALIVE"},
	"mqtt.connect_timeout":       {"IOT_MQTT_CONNECT_TIMEOUT"},
	"tls.ca_cert":                {"IOT_TLS_CA_CERT"},
	"tls.skip_verify":            {"IOT_TLS_SKIP_VERIFY"},
	"telemetry.interval":         {"IOT_INTERVAL"},
	"telemetry.max_in_flight":    {"IOT_MAX_IN_FLIGHT"},
	"telemetry.shutdown_timeout": {"IOT_SHUTDOWN_TIMEOUT"},
	"logging.level":              {"IOT_LOG_LEVEL"},
	"journal.path":               {"IOT_JOURNAL_PATH"},
}

// Load reads configuration from an optional file, the environment and
// args, in increasing order of precedence.
func Load(args []string) (*Config, error) {
	defaults := NewConfig()

	fs := pflag.NewFlagSet("simulated-device", pflag.ContinueOnError)
	configFile := fs.String("config", "", "Path to a configuration file")
	fs.Duration("interval", defaults.Telemetry.Interval, "Interval between telemetry messages")
	fs.String("log-level", defaults.Logging.Level, "Log level (debug, info, warn, error)")
	fs.String("journal", "", "Path to a SQLite journal of submissions")
	fs.Int("max-in-flight", 0, "Maximum concurrent submissions (0 = unbounded)")

	if err := fs.Parse(args); err != nil {
		return nil, errors.Wrap(errors.ErrBindFlags, err)
	}

	v := viper.New()
	v.SetDefault("device.sas_ttl", defaults.Device.SASTTL)
	v.SetDefault("mqtt.port", defaults.MQTT.Port)
	v.SetDefault("mqtt.use_tls", defaults.MQTT.UseTLS)
	v.SetDefault("mqtt.keepalive", defaults.MQTT.KeepAlive)
	v.SetDefault("mqtt.connect_timeout", defaults.MQTT.ConnectTimeout)
	v.SetDefault("telemetry.interval", defaults.Telemetry.Interval)
	v.SetDefault("telemetry.shutdown_timeout", defaults.Telemetry.ShutdownTimeout)
	v.SetDefault("logging.level", defaults.Logging.Level)

	for key, names := range env {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, errors.Wrap(errors.ErrBindFlags, err)
		}
	}

	for key, flag := range map[string]string{
		"telemetry.interval":      "interval",
		"logging.level":           "log-level",
		"journal.path":            "journal",
		"telemetry.max_in_flight": "max-in-flight",
	} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, errors.Wrap(errors.ErrBindFlags, err)
		}
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(errors.ErrReadConfig, err)
		}
	}

	cfg := &Config{
		Device: DeviceConfig{
			ConnectionString: v.GetString("device.connection_string"),
			SASTTL:           v.GetDuration("device.sas_ttl"),
		},
		MQTT: MQTTConfig{
			Port:           v.GetInt("mqtt.port"),
			UseTLS:         v.GetBool("mqtt.use_tls"),
			KeepAlive:      v.GetDuration("mqtt.keepalive"),
			ConnectTimeout: v.GetDuration("mqtt.connect_timeout"),
		},
		TLS: TLSConfig{
			CACert:     v.GetString("tls.ca_cert"),
			SkipVerify: v.GetBool("tls.skip_verify"),
		},
		Telemetry: TelemetryConfig{
			Interval:        v.GetDuration("telemetry.interval"),
			MaxInFlight:     v.GetInt("telemetry.max_in_flight"),
			ShutdownTimeout: v.GetDuration("telemetry.shutdown_timeout"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("logging.level"),
		},
		Journal: JournalConfig{
			Path: v.GetString("journal.path"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Device.ConnectionString == "" {
		return errors.Newf(errors.ErrMissingConfig, "connection string is required (set connectionString or IOT_CONNECTION_STRING)")
	}
	if _, err := auth.ParseConnectionString(c.Device.ConnectionString); err != nil {
		return err
	}
	if c.Telemetry.Interval < minInterval {
		return errors.NewFactory().WithData(errors.ErrInvalidInterval, c.Telemetry.Interval)
	}
	if c.Telemetry.MaxInFlight < 0 {
		return errors.Newf(errors.ErrInvalidConfig, "max in-flight must not be negative")
	}
	if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
		return errors.Newf(errors.ErrInvalidConfig, "MQTT port must be between 1 and 65535")
	}
	if c.Device.SASTTL <= 0 {
		return errors.Newf(errors.ErrInvalidConfig, "SAS token lifetime must be positive")
	}
	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	return nil
}

// ParsedConnectionString parses the configured device connection string.
func (c *Config) ParsedConnectionString() (*auth.ConnectionString, error) {
	return auth.ParseConnectionString(c.Device.ConnectionString)
}
