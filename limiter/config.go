package limiter

import (
	"sort"
	"time"
)

// Rule configures one protected route.
type Rule struct {
	// Limit is the number of requests admitted per bucket.
	Limit int64 `mapstructure:"limit"`

	Interval time.Duration `mapstructure:"interval"`

	// Shared counts every shared route of a client in one counter.
	// When false the endpoint becomes part of the key.
	Shared bool `mapstructure:"shared"`

	KeyPrefix string `mapstructure:"key_prefix"`
}

// Validate rejects rules that cannot produce a bucket.
func (r Rule) Validate(name string) error {
	if r.Limit <= 0 {
		return &ValidationError{Rule: name, Field: "limit", Message: "must be positive"}
	}
	if r.Interval < time.Second {
		return &ValidationError{Rule: name, Field: "interval", Message: "must be at least 1s"}
	}
	if r.Interval%time.Second != 0 {
		return &ValidationError{Rule: name, Field: "interval", Message: "must be whole seconds"}
	}
	if r.KeyPrefix == "" {
		return &ValidationError{Rule: name, Field: "key_prefix", Message: "is required"}
	}
	return nil
}

type Config struct {
	// Enabled false lets every request through.
	Enabled bool `mapstructure:"enabled"`

	// Default applies to routes without their own entry.
	Default Rule `mapstructure:"default"`

	// Routes is keyed by route name, e.g. "signup".
	Routes map[string]Rule `mapstructure:"routes"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DefaultConfig is the production route table.
func DefaultConfig() Config {
	return Config{
		Enabled: true,
		Default: Rule{Limit: 100, Interval: time.Minute, Shared: true, KeyPrefix: "rl"},
		Routes: map[string]Rule{
			"signup":  {Limit: 10, Interval: time.Minute, KeyPrefix: "rl"},
			"login":   {Limit: 10, Interval: time.Minute, KeyPrefix: "rl"},
			"refresh": {Limit: 20, Interval: time.Minute, KeyPrefix: "rl"},
		},
		Metrics: MetricsConfig{Enabled: true},
	}
}

// ApplyDefaults fills an empty default rule and any route fields left at zero.
func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Default.Limit == 0 && c.Default.Interval == 0 {
		c.Default = d.Default
	}
	if c.Routes == nil {
		c.Routes = d.Routes
	}
	for name, r := range c.Routes {
		if r.Interval == 0 {
			r.Interval = c.Default.Interval
		}
		if r.KeyPrefix == "" {
			r.KeyPrefix = c.Default.KeyPrefix
		}
		c.Routes[name] = r
	}
}

func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if err := c.Default.Validate("default"); err != nil {
		return err
	}
	names := make([]string, 0, len(c.Routes))
	for name := range c.Routes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.Routes[name].Validate(name); err != nil {
			return err
		}
	}
	return nil
}

// RuleFor returns the route's rule, falling back to Default.
func (c Config) RuleFor(route string) Rule {
	if r, ok := c.Routes[route]; ok {
		return r
	}
	return c.Default
}
