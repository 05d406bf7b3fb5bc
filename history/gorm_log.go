package history

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/KOMKZ/go-yogan-auth/database"
	"github.com/KOMKZ/go-yogan-auth/logger"
)

// GormLog stores events in the auth_history table.
type GormLog struct {
	repo   *database.BaseRepository[Event]
	logger *logger.CtxZapLogger
}

func NewGormLog(db *gorm.DB, log *logger.CtxZapLogger) *GormLog {
	if log == nil {
		log = logger.GetLogger("history")
	}
	return &GormLog{repo: database.NewBaseRepository[Event](db), logger: log}
}

func (l *GormLog) Append(ctx context.Context, userID string, action Action, at time.Time) error {
	e := &Event{UserID: userID, Action: action, CreatedAt: at.UTC()}
	if err := l.repo.Create(ctx, e); err != nil {
		l.logger.ErrorCtx(ctx, "failed to append history event",
			zap.String("user_id", userID),
			zap.String("action", string(action)),
			zap.Error(err))
		return err
	}
	return nil
}

func (l *GormLog) List(ctx context.Context, userID string, page, pageSize int) ([]Event, int64, error) {
	return l.repo.Paginate(ctx, page, pageSize, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID).Order("created_at DESC").Order("id DESC")
	})
}

// Prune deletes events older than before.
func (l *GormLog) Prune(ctx context.Context, before time.Time) (int64, error) {
	n, err := l.repo.DeleteWhere(ctx, "created_at < ?", before.UTC())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}
