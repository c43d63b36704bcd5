package sqlite

import (
	"context"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"gorm.io/gorm"
)

// RoomStore provides access to room storage.
type RoomStore struct {
	db *gorm.DB
}

var _ domain.RoomRepository = (*RoomStore)(nil)

// NewRoomStore creates a new room repository.
func NewRoomStore(db *gorm.DB) *RoomStore {
	return &RoomStore{db: db}
}

func (s *RoomStore) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	var room roomModel
	if err := s.db.WithContext(ctx).Preload("Participants").First(&room, "id = ?", id).Error; err != nil {
		return nil, translate(err, "find room by id")
	}
	return room.toDomain(), nil
}

func (s *RoomStore) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	var room roomModel
	if err := s.db.WithContext(ctx).Preload("Participants").First(&room, "name = ?", name).Error; err != nil {
		return nil, translate(err, "find room by name")
	}
	return room.toDomain(), nil
}

// Create inserts the room row and its participant rows in one transaction.
func (s *RoomStore) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	model := roomFromDomain(room)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if err != nil {
		return nil, translate(err, "create room")
	}
	return model.toDomain(), nil
}

func (s *RoomStore) ListForUser(ctx context.Context, userID string) ([]*domain.Room, error) {
	var rooms []roomModel
	err := s.db.WithContext(ctx).
		Joins("JOIN room_participants rp ON rp.room_id = rooms.id").
		Where("rp.user_id = ?", userID).
		Preload("Participants").
		Order("rooms.last_activity DESC").
		Find(&rooms).Error
	if err != nil {
		return nil, translate(err, "list rooms for user")
	}

	out := make([]*domain.Room, 0, len(rooms))
	for i := range rooms {
		out = append(out, rooms[i].toDomain())
	}
	return out, nil
}

// Touch moves last_activity forward; an older timestamp is ignored.
func (s *RoomStore) Touch(ctx context.Context, id string, at time.Time) error {
	err := s.db.WithContext(ctx).
		Model(&roomModel{}).
		Where("id = ? AND last_activity < ?", id, at.UTC()).
		Update("last_activity", at.UTC()).Error
	return translate(err, "touch room")
}
