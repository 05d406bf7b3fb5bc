// Package account owns user records and the credential flows that mint tokens.
package account

import (
	"time"

	"github.com/KOMKZ/go-yogan-auth/token"
)

type User struct {
	ID            string    `gorm:"primaryKey;size:36"`
	Email         string    `gorm:"size:254;not null;uniqueIndex"`
	PasswordHash  string    `gorm:"size:60;not null"`
	FamilyVersion int64     `gorm:"not null;default:0"`
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) Principal() token.Principal {
	return token.Principal{UserID: u.ID, FamilyVersion: u.FamilyVersion}
}
