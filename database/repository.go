package database

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// BaseRepository implements the common CRUD for a gorm model T.
// Errors come back translated: ErrRecordNotFound, ErrDuplicateKey or wrapped.
type BaseRepository[T any] struct {
	db *gorm.DB
}

func NewBaseRepository[T any](db *gorm.DB) *BaseRepository[T] {
	return &BaseRepository[T]{db: db}
}

func (r *BaseRepository[T]) DB() *gorm.DB {
	return r.db
}

func (r *BaseRepository[T]) Create(ctx context.Context, entity *T) error {
	if err := r.db.WithContext(ctx).Create(entity).Error; err != nil {
		return fmt.Errorf("create %T: %w", entity, Translate(err))
	}
	return nil
}

func (r *BaseRepository[T]) FindByID(ctx context.Context, id interface{}) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&entity).Error; err != nil {
		return nil, fmt.Errorf("find %T id=%v: %w", entity, id, Translate(err))
	}
	return &entity, nil
}

// FindOne returns the first row matching query/args.
func (r *BaseRepository[T]) FindOne(ctx context.Context, query interface{}, args ...interface{}) (*T, error) {
	var entity T
	if err := r.db.WithContext(ctx).Where(query, args...).Take(&entity).Error; err != nil {
		return nil, fmt.Errorf("find %T: %w", entity, Translate(err))
	}
	return &entity, nil
}

// UpdateColumns updates only the given columns of the row with id.
// Zero rows affected is ErrRecordNotFound.
func (r *BaseRepository[T]) UpdateColumns(ctx context.Context, id interface{}, columns map[string]interface{}) error {
	var entity T
	res := r.db.WithContext(ctx).Model(&entity).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("update %T id=%v: %w", entity, id, Translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update %T id=%v: %w", entity, id, ErrRecordNotFound)
	}
	return nil
}

// Paginate applies scopes, then returns one page plus the unpaged total.
func (r *BaseRepository[T]) Paginate(ctx context.Context, page, pageSize int, scopes ...func(*gorm.DB) *gorm.DB) ([]T, int64, error) {
	var (
		entity   T
		entities []T
		total    int64
	)

	q := r.db.WithContext(ctx).Model(&entity).Scopes(scopes...).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count %T: %w", entity, err)
	}
	if total == 0 {
		return []T{}, 0, nil
	}

	offset := (page - 1) * pageSize
	if err := q.Offset(offset).Limit(pageSize).Find(&entities).Error; err != nil {
		return nil, 0, fmt.Errorf("page %T (page=%d size=%d): %w", entity, page, pageSize, err)
	}
	return entities, total, nil
}

// DeleteWhere removes every row matching query/args and reports how many went.
func (r *BaseRepository[T]) DeleteWhere(ctx context.Context, query interface{}, args ...interface{}) (int64, error) {
	var entity T
	res := r.db.WithContext(ctx).Where(query, args...).Delete(&entity)
	if res.Error != nil {
		return 0, fmt.Errorf("delete %T: %w", entity, res.Error)
	}
	return res.RowsAffected, nil
}

// Transaction runs fn with a repository bound to the transaction.
func (r *BaseRepository[T]) Transaction(ctx context.Context, fn func(tx *BaseRepository[T]) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BaseRepository[T]{db: tx})
	})
}
