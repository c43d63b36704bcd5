package sqlite

import (
	"context"
	"slices"

	"github.com/nfrund/parley/internal/domain"
	"gorm.io/gorm"
)

// MessageStore provides access to message storage. IDs are ULIDs assigned by
// the caller, so "ORDER BY id" is append order.
type MessageStore struct {
	db *gorm.DB
}

var _ domain.MessageRepository = (*MessageStore)(nil)

// NewMessageStore creates a new message repository.
func NewMessageStore(db *gorm.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	model := &messageModel{
		ID:             msg.ID,
		RoomID:         msg.RoomID,
		SenderID:       msg.SenderID,
		SenderUsername: msg.SenderUsername,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt.UTC(),
	}
	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		return nil, translate(err, "create message")
	}
	return model.toDomain(), nil
}

func (s *MessageStore) Recent(ctx context.Context, roomID string, limit int, before string) ([]*domain.Message, error) {
	q := s.db.WithContext(ctx).Where("room_id = ?", roomID)
	if before != "" {
		q = q.Where("id < ?", before)
	}

	var rows []messageModel
	if err := q.Order("id DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, translate(err, "list recent messages")
	}

	msgs := make([]*domain.Message, 0, len(rows))
	for i := range rows {
		msgs = append(msgs, rows[i].toDomain())
	}
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, roomID, readerID string) (int, error) {
	result := s.db.WithContext(ctx).
		Model(&messageModel{}).
		Where("room_id = ? AND sender_id <> ? AND is_read = ?", roomID, readerID, false).
		Update("is_read", true)
	if err := result.Error; err != nil {
		return 0, translate(err, "mark messages read")
	}
	return int(result.RowsAffected), nil
}

func (s *MessageStore) CountUnread(ctx context.Context, userID string, roomIDs []string) (int, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).
		Model(&messageModel{}).
		Where("room_id IN ? AND sender_id <> ? AND is_read = ?", roomIDs, userID, false).
		Count(&n).Error
	if err != nil {
		return 0, translate(err, "count unread messages")
	}
	return int(n), nil
}
