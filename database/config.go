// Package database opens gorm connections and provides a generic repository.
package database

import (
	"time"
)

// Config describes one named connection under database.<name>.
type Config struct {
	Driver          string        `mapstructure:"driver"` // mysql, postgres or sqlite
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	EnableLog       bool          `mapstructure:"enable_log"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
	EnableAudit     bool          `mapstructure:"enable_audit"`

	// TraceSQL puts the statement text on the span.
	TraceSQL       bool `mapstructure:"trace_sql"`
	TraceSQLMaxLen int  `mapstructure:"trace_sql_max_len"`
}

func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite",
		DSN:             "file:auth.db?_foreign_keys=on",
		MaxOpenConns:    50,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
		EnableLog:       true,
		SlowThreshold:   200 * time.Millisecond,
		TraceSQLMaxLen:  1000,
	}
}

// Validate fills defaults and rejects an empty DSN or unknown driver.
func (c *Config) Validate() error {
	if c.Driver == "" {
		c.Driver = "sqlite"
	}
	switch c.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return ErrInvalidConfig
	}
	if c.DSN == "" {
		return ErrInvalidConfig
	}
	if c.MaxOpenConns <= 0 {
		c.MaxOpenConns = 50
	}
	if c.MaxIdleConns <= 0 {
		c.MaxIdleConns = 10
	}
	if c.ConnMaxLifetime <= 0 {
		c.ConnMaxLifetime = time.Hour
	}
	if c.SlowThreshold <= 0 {
		c.SlowThreshold = 200 * time.Millisecond
	}
	if c.TraceSQLMaxLen <= 0 {
		c.TraceSQLMaxLen = 1000
	}
	return nil
}
