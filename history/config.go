package history

import (
	"fmt"
	"time"
)

type Config struct {
	Kafka     KafkaConfig     `mapstructure:"kafka"`
	Async     AsyncConfig     `mapstructure:"async"`
	Retention RetentionConfig `mapstructure:"retention"`
}

// KafkaConfig publishes every event to a topic in addition to the database.
type KafkaConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Brokers  []string      `mapstructure:"brokers"`
	Version  string        `mapstructure:"version"`
	ClientID string        `mapstructure:"client_id"`
	Topic    string        `mapstructure:"topic"`
	Timeout  time.Duration `mapstructure:"timeout"`
	RetryMax int           `mapstructure:"retry_max"`
	SASL     *SASLConfig   `mapstructure:"sasl"`
}

type SASLConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Mechanism is PLAIN, SCRAM-SHA-256 or SCRAM-SHA-512.
	Mechanism string `mapstructure:"mechanism"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
}

// AsyncConfig moves appends off the request path.
type AsyncConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	PoolSize int  `mapstructure:"pool_size"`
	// MaxBlocking bounds callers waiting for a free worker; beyond it the
	// append runs inline.
	MaxBlocking int `mapstructure:"max_blocking"`
	// DrainTimeout bounds how long Close waits for queued appends.
	DrainTimeout time.Duration `mapstructure:"drain_timeout"`
}

type RetentionConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	MaxAge  time.Duration `mapstructure:"max_age"`
	// Schedule is a five-field cron expression.
	Schedule string `mapstructure:"schedule"`
}

func DefaultConfig() Config {
	return Config{
		Kafka: KafkaConfig{
			Version:  "3.6.0",
			ClientID: "yogan-auth",
			Topic:    "auth.history",
			Timeout:  5 * time.Second,
			RetryMax: 3,
		},
		Async: AsyncConfig{
			Enabled:      true,
			PoolSize:     16,
			MaxBlocking:  1024,
			DrainTimeout: 5 * time.Second,
		},
		Retention: RetentionConfig{
			Enabled:  true,
			MaxAge:   90 * 24 * time.Hour,
			Schedule: "0 3 * * *",
		},
	}
}

func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Kafka.Version == "" {
		c.Kafka.Version = d.Kafka.Version
	}
	if c.Kafka.ClientID == "" {
		c.Kafka.ClientID = d.Kafka.ClientID
	}
	if c.Kafka.Topic == "" {
		c.Kafka.Topic = d.Kafka.Topic
	}
	if c.Kafka.Timeout == 0 {
		c.Kafka.Timeout = d.Kafka.Timeout
	}
	if c.Kafka.RetryMax == 0 {
		c.Kafka.RetryMax = d.Kafka.RetryMax
	}
	if c.Async.PoolSize == 0 {
		c.Async.PoolSize = d.Async.PoolSize
	}
	if c.Async.MaxBlocking == 0 {
		c.Async.MaxBlocking = d.Async.MaxBlocking
	}
	if c.Async.DrainTimeout == 0 {
		c.Async.DrainTimeout = d.Async.DrainTimeout
	}
	if c.Retention.MaxAge == 0 {
		c.Retention.MaxAge = d.Retention.MaxAge
	}
	if c.Retention.Schedule == "" {
		c.Retention.Schedule = d.Retention.Schedule
	}
}

func (c Config) Validate() error {
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("history.kafka.brokers cannot be empty")
		}
		if c.Kafka.Topic == "" {
			return fmt.Errorf("history.kafka.topic cannot be empty")
		}
		if s := c.Kafka.SASL; s != nil && s.Enabled {
			switch s.Mechanism {
			case "PLAIN", "SCRAM-SHA-256", "SCRAM-SHA-512":
			default:
				return fmt.Errorf("history.kafka.sasl.mechanism %q is not supported", s.Mechanism)
			}
			if s.Username == "" {
				return fmt.Errorf("history.kafka.sasl.username cannot be empty")
			}
		}
	}
	if c.Async.Enabled && c.Async.PoolSize < 1 {
		return fmt.Errorf("history.async.pool_size must be positive")
	}
	if c.Retention.Enabled && c.Retention.MaxAge < time.Hour {
		return fmt.Errorf("history.retention.max_age must be at least 1h")
	}
	return nil
}
