package token

import "time"

type Config struct {
	// Algorithm is one of HS256, HS384, HS512.
	Algorithm string `mapstructure:"algorithm"`
	Secret    string `mapstructure:"secret"`
	Issuer    string `mapstructure:"issuer"`

	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`

	// Leeway tolerates clock skew between nodes when checking exp.
	Leeway time.Duration `mapstructure:"leeway"`

	// KeyPrefix namespaces revocation and family keys in the store.
	KeyPrefix string `mapstructure:"key_prefix"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

const minSecretLength = 32

func DefaultConfig() Config {
	return Config{
		Algorithm:       "HS256",
		Issuer:          "yogan-auth",
		AccessTokenTTL:  24 * time.Hour,
		RefreshTokenTTL: 4 * 7 * 24 * time.Hour,
		KeyPrefix:       "auth:",
		Metrics:         MetricsConfig{Enabled: true},
	}
}

func (c *Config) ApplyDefaults() {
	d := DefaultConfig()
	if c.Algorithm == "" {
		c.Algorithm = d.Algorithm
	}
	if c.Issuer == "" {
		c.Issuer = d.Issuer
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = d.AccessTokenTTL
	}
	if c.RefreshTokenTTL == 0 {
		c.RefreshTokenTTL = d.RefreshTokenTTL
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = d.KeyPrefix
	}
}

func (c Config) Validate() error {
	switch c.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		return ErrInvalidConfig.WithMsgf("unsupported algorithm %q", c.Algorithm)
	}
	if len(c.Secret) < minSecretLength {
		return ErrInvalidConfig.WithMsgf("secret must be at least %d bytes", minSecretLength)
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		return ErrInvalidConfig.WithMsg("token ttl must be positive")
	}
	if c.AccessTokenTTL >= c.RefreshTokenTTL {
		return ErrInvalidConfig.WithMsg("access token ttl must be shorter than refresh token ttl")
	}
	if c.Leeway < 0 {
		return ErrInvalidConfig.WithMsg("leeway must not be negative")
	}
	return nil
}
