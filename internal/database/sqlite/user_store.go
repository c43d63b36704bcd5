package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"gorm.io/gorm"
)

// UserStore provides access to user storage.
type UserStore struct {
	db *gorm.DB
}

var _ domain.UserRepository = (*UserStore)(nil)

// NewUserStore creates a new user repository.
func NewUserStore(db *gorm.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	var user userModel
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find user")
	}
	return user.toDomain(), nil
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := domain.Validate(user); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	model := &userModel{ID: user.ID, Username: user.Username}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, translate(err, "create user")
	}
	return model.toDomain(), nil
}

func (s *UserStore) SetPresence(ctx context.Context, id string, online bool, seen time.Time) error {
	seen = seen.UTC()
	result := s.db.WithContext(ctx).
		Model(&userModel{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_online": online, "last_seen": &seen})
	if err := result.Error; err != nil {
		return translate(err, "set user presence")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
