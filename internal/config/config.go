package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix for environment overrides, nested keys joined with "__".
// e.g. BOT_WHATSAPP__ACCESS_TOKEN, BOT_ORDERS__DATABASE_URL
const EnvPrefix = "BOT_"

const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendDynamoDB = "dynamodb"
)

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		Env      string `koanf:"env"`
		HTTPAddr string `koanf:"http_addr"`
		LogLevel string `koanf:"log_level"`
		LogFile  string `koanf:"log_file"`
	} `koanf:"app"`

	HTTP struct {
		ReadTimeout     time.Duration `koanf:"read_timeout"`
		WriteTimeout    time.Duration `koanf:"write_timeout"`
		IdleTimeout     time.Duration `koanf:"idle_timeout"`
		ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	} `koanf:"http"`

	WhatsApp struct {
		APIBaseURL    string        `koanf:"api_base_url"`
		PhoneNumberID string        `koanf:"phone_number_id"`
		AccessToken   string        `koanf:"access_token"`
		VerifyToken   string        `koanf:"verify_token"`
		Timeout       time.Duration `koanf:"timeout"`
		DedupeTTL     time.Duration `koanf:"dedupe_ttl"` // how long handled message ids are kept
	} `koanf:"whatsapp"`

	Catalog struct {
		MenuURL          string        `koanf:"menu_url"`
		CacheTTL         time.Duration `koanf:"cache_ttl"`
		FetchTimeout     time.Duration `koanf:"fetch_timeout"`
		BreakerFailures  uint32        `koanf:"breaker_failures"`
		BreakerOpenDelay time.Duration `koanf:"breaker_open_delay"`
	} `koanf:"catalog"`

	Ordering struct {
		DeliveryFee   int    `koanf:"delivery_fee"` // minor units
		ETAMinutes    int    `koanf:"eta_minutes"`
		OrderIDPrefix string `koanf:"order_id_prefix"`
	} `koanf:"ordering"`

	Session struct {
		Backend string        `koanf:"backend"`
		TTL     time.Duration `koanf:"ttl"`
	} `koanf:"session"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Orders struct {
		Backend     string `koanf:"backend"`
		DatabaseURL string `koanf:"database_url"`
		DynamoTable string `koanf:"dynamo_table"`
		Migrate     bool   `koanf:"migrate"`
	} `koanf:"orders"`

	Kafka struct {
		Enabled       bool     `koanf:"enabled"`
		Brokers       []string `koanf:"brokers"`
		Topic         string   `koanf:"topic"`
		ConsumerGroup string   `koanf:"consumer_group"`
	} `koanf:"kafka"`
}

// Default returns the configuration used when neither files nor env set a key.
func Default() Config {
	var c Config
	c.App.Name = "whatsapp-bot"
	c.App.Env = "dev"
	c.App.HTTPAddr = ":5000"
	c.App.LogLevel = "info"
	c.App.LogFile = "./logs/bot.log"

	c.HTTP.ReadTimeout = 10 * time.Second
	c.HTTP.WriteTimeout = 15 * time.Second
	c.HTTP.IdleTimeout = 60 * time.Second
	c.HTTP.ShutdownTimeout = 5 * time.Second

	c.WhatsApp.APIBaseURL = "https://graph.facebook.com/v18.0"
	c.WhatsApp.Timeout = 10 * time.Second
	c.WhatsApp.DedupeTTL = 24 * time.Hour

	c.Catalog.CacheTTL = 5 * time.Minute
	c.Catalog.FetchTimeout = 5 * time.Second
	c.Catalog.BreakerFailures = 3
	c.Catalog.BreakerOpenDelay = 30 * time.Second

	c.Ordering.DeliveryFee = 2000
	c.Ordering.ETAMinutes = 45
	c.Ordering.OrderIDPrefix = "SIP-"

	c.Session.Backend = BackendMemory
	c.Session.TTL = 24 * time.Hour

	c.Redis.Addr = "localhost:6379"

	c.Orders.Backend = BackendMemory
	c.Orders.DynamoTable = "orders"

	c.Kafka.Brokers = []string{"localhost:9092"}
	c.Kafka.Topic = "order-events"
	c.Kafka.ConsumerGroup = "notifier"
	return c
}

// Load layers configuration: defaults, <dir>/base.yaml, <dir>/<env>.yaml, then BOT_* env vars.
// Missing files are skipped so the bot can run from env alone.
func Load(dir, envName string) (Config, error) {
	k := koanf.New(".")

	files := []string{"base.yaml"}
	if envName != "" {
		files = append(files, envName+".yaml")
	}
	for _, name := range files {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load %s: %w", name, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	if c.WhatsApp.VerifyToken == "" {
		errs = append(errs, errors.New("whatsapp.verify_token required"))
	}
	if c.Ordering.DeliveryFee < 0 {
		errs = append(errs, errors.New("ordering.delivery_fee must not be negative"))
	}
	if c.Ordering.ETAMinutes <= 0 {
		errs = append(errs, errors.New("ordering.eta_minutes must be positive"))
	}
	switch c.Session.Backend {
	case BackendMemory, BackendRedis:
	default:
		errs = append(errs, fmt.Errorf("session.backend %q not supported", c.Session.Backend))
	}
	switch c.Orders.Backend {
	case BackendMemory:
	case BackendPostgres:
		if c.Orders.DatabaseURL == "" {
			errs = append(errs, errors.New("orders.database_url required for postgres backend"))
		}
	case BackendDynamoDB:
		if c.Orders.DynamoTable == "" {
			errs = append(errs, errors.New("orders.dynamo_table required for dynamodb backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("orders.backend %q not supported", c.Orders.Backend))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers required when kafka is enabled"))
	}
	return errors.Join(errs...)
}
