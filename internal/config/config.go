package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Log         LogConfig         `mapstructure:"log"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Idempotency IdempotencyConfig `mapstructure:"idempotency"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Auction     AuctionDefaults   `mapstructure:"auction"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type StorageConfig struct {
	// Driver is "memory" or "postgres"
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type IdempotencyConfig struct {
	// Driver is "memory" or "redis"
	Driver   string        `mapstructure:"driver"`
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// KafkaConfig enables the Kafka event sink when Brokers is non-empty.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// AuctionDefaults fill in fields an auction creation request leaves out.
type AuctionDefaults struct {
	RoundDuration        time.Duration `mapstructure:"round_duration"`
	AntiSnipingWindow    time.Duration `mapstructure:"anti_sniping_window"`
	AntiSnipingExtension time.Duration `mapstructure:"anti_sniping_extension"`
	MaxExtensions        int           `mapstructure:"max_extensions"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("log.level", "info")
	v.SetDefault("storage.driver", "memory")
	v.SetDefault("idempotency.driver", "memory")
	v.SetDefault("idempotency.ttl", 24*time.Hour)
	v.SetDefault("kafka.topic", "gift-auction-events")
	v.SetDefault("auction.round_duration", 5*time.Minute)
	v.SetDefault("auction.anti_sniping_window", 30*time.Second)
	v.SetDefault("auction.anti_sniping_extension", time.Minute)
	v.SetDefault("auction.max_extensions", 3)
}

// Load reads the YAML file at path (optional when empty) and applies GIFTAUCTION_* env overrides,
// e.g. GIFTAUCTION_SERVER_PORT or GIFTAUCTION_STORAGE_DSN.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("GIFTAUCTION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Storage.Driver {
	case "memory":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage.driver %q", c.Storage.Driver))
	}
	switch c.Idempotency.Driver {
	case "memory":
	case "redis":
		if c.Idempotency.Address == "" {
			errs = append(errs, errors.New("idempotency.address is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown idempotency.driver %q", c.Idempotency.Driver))
	}
	if c.Idempotency.TTL <= 0 {
		errs = append(errs, errors.New("idempotency.ttl must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("kafka.topic is required when brokers are set"))
	}
	if c.Auction.RoundDuration <= 0 {
		errs = append(errs, errors.New("auction.round_duration must be positive"))
	}
	if c.Auction.AntiSnipingWindow < 0 || c.Auction.AntiSnipingExtension < 0 || c.Auction.MaxExtensions < 0 {
		errs = append(errs, errors.New("auction anti-sniping defaults must be non-negative"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Addr is the listen address for the HTTP server
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
