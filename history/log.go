// Package history records authentication events per user.
package history

import (
	"context"
	"time"
)

type Action string

const (
	ActionLogin              Action = "LogIn success"
	ActionLogout             Action = "LogOut"
	ActionRefresh            Action = "Refresh"
	ActionLogoutEverywhere   Action = "LogOut everywhere"
	ActionCredentialsChanged Action = "Credentials changed"
)

// Event is one row of auth_history.
type Event struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string    `gorm:"size:36;not null;index:idx_history_user_created,priority:1" json:"-"`
	Action    Action    `gorm:"size:32;not null" json:"action"`
	CreatedAt time.Time `gorm:"not null;index:idx_history_user_created,priority:2" json:"date"`
}

func (Event) TableName() string {
	return "auth_history"
}

// Appender is the write side used by the token and account services.
type Appender interface {
	Append(ctx context.Context, userID string, action Action, at time.Time) error
}

type Reader interface {
	// List returns one page of a user's events, newest first, and the total count.
	List(ctx context.Context, userID string, page, pageSize int) ([]Event, int64, error)
}

type Log interface {
	Appender
	Reader
}

// Nop discards events.
type Nop struct{}

func (Nop) Append(context.Context, string, Action, time.Time) error {
	return nil
}
