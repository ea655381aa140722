package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite = "sqlite"
	DriverBolt   = "bolt"
)

// Config aggregates all runtime settings of the task tracker processes.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Store       StoreConfig
	Notify      NotifyConfig
	Redis       RedisConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type StoreConfig struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration
}

type NotifyConfig struct {
	Enabled        bool
	QueuePath      string
	Permission     string
	GrantOnRequest bool
	Device         bool
	Interval       time.Duration
	Delay          time.Duration
	Retention      time.Duration
	RelayEnabled   bool
}

type RedisConfig struct {
	URL           string
	Password      string
	DB            int
	ChannelPrefix string
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env)
// and applies defaults suitable for a single local device.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "task-tracker"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "127.0.0.1"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Store: StoreConfig{
			Driver:      strings.ToLower(getString("STORE_DRIVER", DriverSQLite)),
			Path:        getString("STORE_PATH", "./data/tasks.db"),
			BusyTimeout: getDuration("STORE_BUSY_TIMEOUT", 5*time.Second),
		},
		Notify: NotifyConfig{
			Enabled:        getBool("NOTIFY_ENABLED", true),
			QueuePath:      getString("NOTIFY_QUEUE_PATH", "./data/notifications.db"),
			Permission:     strings.ToLower(getString("NOTIFY_PERMISSION", "undetermined")),
			GrantOnRequest: getBool("NOTIFY_GRANT_ON_REQUEST", true),
			Device:         getBool("NOTIFY_DEVICE", false),
			Interval:       getDuration("NOTIFY_INTERVAL", time.Second),
			Delay:          getDuration("NOTIFY_DELAY", 2*time.Second),
			Retention:      getDuration("NOTIFY_RETENTION", 24*time.Hour),
			RelayEnabled:   getBool("NOTIFY_RELAY_ENABLED", false),
		},
		Redis: RedisConfig{
			URL:           getString("REDIS_URL", "redis://localhost:6379"),
			Password:      os.Getenv("REDIS_PASSWORD"),
			DB:            getInt("REDIS_DB", 0),
			ChannelPrefix: getString("REDIS_CHANNEL_PREFIX", "tasktracker:notifications"),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case DriverSQLite, DriverBolt:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("STORE_PATH must not be empty")
	}
	switch c.Notify.Permission {
	case "granted", "denied", "undetermined":
	default:
		return fmt.Errorf("unsupported NOTIFY_PERMISSION %q", c.Notify.Permission)
	}
	return nil
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
