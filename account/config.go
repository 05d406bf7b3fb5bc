package account

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

func (c *Config) ApplyDefaults() {
	if c.BcryptCost == 0 {
		c.BcryptCost = bcrypt.DefaultCost
	}
}

func (c Config) Validate() error {
	if c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("account.bcrypt_cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}
