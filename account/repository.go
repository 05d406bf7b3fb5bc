package account

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/KOMKZ/go-yogan-auth/database"
)

// Repository is the persistence boundary for users.
type Repository struct {
	base *database.BaseRepository[User]
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: database.NewBaseRepository[User](db)}
}

func (r *Repository) Create(ctx context.Context, u *User) error {
	err := r.base.Create(ctx, u)
	if errors.Is(err, database.ErrDuplicateKey) {
		return ErrEmailTaken.Wrap(err)
	}
	return err
}

func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := r.base.FindOne(ctx, "email = ?", email)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrUserNotFound.Wrap(err)
	}
	return u, err
}

func (r *Repository) FindByID(ctx context.Context, id string) (*User, error) {
	u, err := r.base.FindByID(ctx, id)
	if errors.Is(err, database.ErrRecordNotFound) {
		return nil, ErrUserNotFound.Wrap(err)
	}
	return u, err
}

// UpdateCredentials writes whichever of email and passwordHash is non-empty.
func (r *Repository) UpdateCredentials(ctx context.Context, id, email, passwordHash string) error {
	columns := make(map[string]interface{}, 2)
	if email != "" {
		columns["email"] = email
	}
	if passwordHash != "" {
		columns["password_hash"] = passwordHash
	}
	if len(columns) == 0 {
		return ErrNothingToChange
	}

	err := r.base.UpdateColumns(ctx, id, columns)
	switch {
	case errors.Is(err, database.ErrDuplicateKey):
		return ErrEmailTaken.Wrap(err)
	case errors.Is(err, database.ErrRecordNotFound):
		return ErrUserNotFound.Wrap(err)
	}
	return err
}

// FamilyVersion returns the persisted version, 0 for an unknown user.
func (r *Repository) FamilyVersion(ctx context.Context, userID string) (int64, error) {
	var versions []int64
	err := r.base.DB().WithContext(ctx).Model(&User{}).
		Where("id = ?", userID).
		Limit(1).
		Pluck("family_version", &versions).Error
	if err != nil {
		return 0, fmt.Errorf("read family version: %w", database.Translate(err))
	}
	if len(versions) == 0 {
		return 0, nil
	}
	return versions[0], nil
}

// SetFamilyVersion only ever raises the stored value.
func (r *Repository) SetFamilyVersion(ctx context.Context, userID string, version int64) error {
	err := r.base.DB().WithContext(ctx).Model(&User{}).
		Where("id = ? AND family_version < ?", userID, version).
		Update("family_version", version).Error
	if err != nil {
		return fmt.Errorf("write family version: %w", database.Translate(err))
	}
	return nil
}
