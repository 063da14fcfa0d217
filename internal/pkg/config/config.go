// Package config provides runtime configuration for the order service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML values like "500ms" or "5s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return errors.Wrapf(err, "invalid duration %q", value.Value)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// KafkaConfig describes the order queue.
type KafkaConfig struct {
	Brokers         []string `yaml:"brokers"`
	OrderTopic      string   `yaml:"order_topic"`
	DeadLetterTopic string   `yaml:"dead_letter_topic"`
	GroupID         string   `yaml:"group_id"`
}

// MySQLConfig describes the inventory/order store.
type MySQLConfig struct {
	DSN         string `yaml:"dsn"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// RedisConfig describes the job status store.
type RedisConfig struct {
	Addr      string   `yaml:"addr"`
	StatusTTL Duration `yaml:"status_ttl"`
}

// WorkerConfig bounds the processing side of the pipeline.
type WorkerConfig struct {
	Count        int      `yaml:"count"`
	MaxAttempts  int      `yaml:"max_attempts"`
	RetryBackoff Duration `yaml:"retry_backoff"`
}

// JaegerConfig controls trace export.
type JaegerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// SeedProduct and SeedUser preload the in-memory backend.
type SeedProduct struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Price string `yaml:"price"`
	Stock int    `yaml:"stock"`
}

type SeedUser struct {
	ID    int64  `yaml:"id"`
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

type SeedConfig struct {
	Products []SeedProduct `yaml:"products"`
	Users    []SeedUser    `yaml:"users"`
}

// Config holds every knob for the service.
type Config struct {
	HTTPAddr        string   `yaml:"http_addr"`
	LogLevel        string   `yaml:"log_level"`
	ShutdownTimeout Duration `yaml:"shutdown_timeout"`

	// Backend selects the persistence layer: "mysql" or "memory".
	Backend string `yaml:"backend"`

	Kafka  KafkaConfig  `yaml:"kafka"`
	MySQL  MySQLConfig  `yaml:"mysql"`
	Redis  RedisConfig  `yaml:"redis"`
	Worker WorkerConfig `yaml:"worker"`
	Jaeger JaegerConfig `yaml:"jaeger"`
	Seed   SeedConfig   `yaml:"seed"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		ShutdownTimeout: Duration(15 * time.Second),
		Backend:         "mysql",
		Kafka: KafkaConfig{
			Brokers:         []string{"localhost:9092"},
			OrderTopic:      "order-jobs",
			DeadLetterTopic: "order-jobs.dlt",
			GroupID:         "order-processor",
		},
		MySQL: MySQLConfig{
			DSN:         "root:root@tcp(localhost:3306)/stockpile?charset=utf8mb4&parseTime=True",
			AutoMigrate: true,
		},
		Redis: RedisConfig{
			Addr:      "localhost:6379",
			StatusTTL: Duration(24 * time.Hour),
		},
		Worker: WorkerConfig{
			Count:        3,
			MaxAttempts:  3,
			RetryBackoff: Duration(200 * time.Millisecond),
		},
		Jaeger: JaegerConfig{
			Enabled:  false,
			Endpoint: "http://localhost:14268/api/traces",
		},
	}
}

// Load builds the config from defaults, an optional YAML file, and
// environment overrides, in that order of precedence.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config file %s", path)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse config file %s", path)
		}
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogLevel = getenv("LOG_LEVEL", cfg.LogLevel)
	cfg.Backend = getenv("BACKEND", cfg.Backend)

	if v := getenv("KAFKA_BROKERS", ""); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	cfg.Kafka.OrderTopic = getenv("KAFKA_ORDER_TOPIC", cfg.Kafka.OrderTopic)
	cfg.Kafka.DeadLetterTopic = getenv("KAFKA_DLT_TOPIC", cfg.Kafka.DeadLetterTopic)
	cfg.Kafka.GroupID = getenv("KAFKA_GROUP_ID", cfg.Kafka.GroupID)

	cfg.MySQL.DSN = getenv("MYSQL_DSN", cfg.MySQL.DSN)
	cfg.Redis.Addr = getenv("REDIS_ADDR", cfg.Redis.Addr)

	cfg.Worker.Count = atoienv("WORKER_COUNT", cfg.Worker.Count)
	cfg.Worker.MaxAttempts = atoienv("WORKER_MAX_ATTEMPTS", cfg.Worker.MaxAttempts)
	cfg.Worker.RetryBackoff = durenv("WORKER_RETRY_BACKOFF", cfg.Worker.RetryBackoff)

	if v := getenv("JAEGER_ENDPOINT", ""); v != "" {
		cfg.Jaeger.Enabled = true
		cfg.Jaeger.Endpoint = v
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenv(key string, def Duration) Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return Duration(d)
}
