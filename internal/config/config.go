package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"NetShop/internal/kvstore"
)

const EnvPrefix = "NETSHOP"

const minJWTSecretLen = 32

type Config struct {
	App      AppConfig
	Store    StoreConfig
	Session  SessionConfig
	Backend  BackendConfig
	Checkout CheckoutConfig
	Notify   NotifyConfig
	Metrics  MetricsConfig
}

type AppConfig struct {
	Env      string `envconfig:"NETSHOP_APP_ENV" default:"dev"`
	Port     string `envconfig:"NETSHOP_PORT" default:"8080"`
	LogLevel string `envconfig:"NETSHOP_LOG_LEVEL" default:"info"`
}

type StoreConfig struct {
	Driver     string `envconfig:"NETSHOP_STORE_DRIVER" default:"memory"`
	KeyPrefix  string `envconfig:"NETSHOP_STORE_KEY_PREFIX" default:"netshop"`
	QuotaBytes int    `envconfig:"NETSHOP_STORE_QUOTA_BYTES" default:"5242880"`

	RedisURL    string `envconfig:"NETSHOP_REDIS_URL"`
	PostgresDSN string `envconfig:"NETSHOP_POSTGRES_DSN"`
	SQLitePath  string `envconfig:"NETSHOP_SQLITE_PATH" default:"netshop.db"`
}

type SessionConfig struct {
	JWTSecret string        `envconfig:"NETSHOP_JWT_SECRET" required:"true"`
	TTL       time.Duration `envconfig:"NETSHOP_SESSION_TTL" default:"720h"`
}

type BackendConfig struct {
	URL     string        `envconfig:"NETSHOP_BACKEND_URL"`
	Timeout time.Duration `envconfig:"NETSHOP_BACKEND_TIMEOUT" default:"3s"`
}

type CheckoutConfig struct {
	DeliveryFee     float64       `envconfig:"NETSHOP_DELIVERY_FEE" default:"1200"`
	ProcessingDelay time.Duration `envconfig:"NETSHOP_PROCESSING_DELAY" default:"1s"`
}

type NotifyConfig struct {
	ToastTTL time.Duration `envconfig:"NETSHOP_TOAST_TTL" default:"3s"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"NETSHOP_METRICS_ENABLED" default:"true"`
	Token   string `envconfig:"NETSHOP_METRICS_TOKEN"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Session.JWTSecret) < minJWTSecretLen {
		return fmt.Errorf("%s_JWT_SECRET must be at least %d chars", EnvPrefix, minJWTSecretLen)
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
	switch c.Store.Driver {
	case kvstore.DriverMemory:
	case kvstore.DriverRedis:
		if c.Store.RedisURL == "" {
			return errors.New("redis store requires " + EnvPrefix + "_REDIS_URL")
		}
	case kvstore.DriverPostgres:
		if c.Store.PostgresDSN == "" {
			return errors.New("postgres store requires " + EnvPrefix + "_POSTGRES_DSN")
		}
	case kvstore.DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("sqlite store requires " + EnvPrefix + "_SQLITE_PATH")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}

	if c.Store.QuotaBytes < 0 {
		return errors.New("store quota must not be negative")
	}
	if c.Checkout.DeliveryFee < 0 {
		return errors.New("delivery fee must not be negative")
	}
	if c.Checkout.ProcessingDelay < 0 {
		return errors.New("processing delay must not be negative")
	}
	return nil
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, "prod")
}

// KV maps the store section onto the kvstore backend factory.
func (s StoreConfig) KV() kvstore.Config {
	return kvstore.Config{
		Driver:      s.Driver,
		QuotaBytes:  s.QuotaBytes,
		RedisURL:    s.RedisURL,
		PostgresDSN: s.PostgresDSN,
		SQLitePath:  s.SQLitePath,
	}
}
