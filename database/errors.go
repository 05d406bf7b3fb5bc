package database

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrInvalidConfig    = errors.New("database: invalid config")
	ErrRecordNotFound   = errors.New("database: record not found")
	ErrDuplicateKey     = errors.New("database: duplicate key")
	ErrConnectionFailed = errors.New("database: connection failed")
)

// Translate maps gorm sentinels to this package's errors. Connections are
// opened with TranslateError so driver-specific unique violations arrive
// as gorm.ErrDuplicatedKey.
func Translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrRecordNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return ErrDuplicateKey
	default:
		return err
	}
}
