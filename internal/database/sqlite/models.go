package sqlite

import (
	"time"

	"github.com/nfrund/parley/internal/domain"
)

type userModel struct {
	ID       string `gorm:"primaryKey;size:64"`
	Username string `gorm:"size:150;not null"`
	IsOnline bool   `gorm:"not null;default:false"`
	LastSeen *time.Time
}

func (userModel) TableName() string { return "users" }

type roomModel struct {
	ID           string             `gorm:"primaryKey;size:26"`
	Name         string             `gorm:"uniqueIndex;size:200;not null"`
	CreatedAt    time.Time          `gorm:"not null"`
	LastActivity time.Time          `gorm:"index;not null"`
	Participants []participantModel `gorm:"foreignKey:RoomID;constraint:OnDelete:CASCADE"`
}

func (roomModel) TableName() string { return "rooms" }

type participantModel struct {
	RoomID string `gorm:"primaryKey;size:26"`
	UserID string `gorm:"primaryKey;size:64;index"`
}

func (participantModel) TableName() string { return "room_participants" }

type messageModel struct {
	ID             string    `gorm:"primaryKey;size:26"`
	RoomID         string    `gorm:"size:26;not null;index:idx_messages_room_read,priority:1"`
	SenderID       string    `gorm:"size:64;not null"`
	SenderUsername string    `gorm:"size:150"`
	Content        string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	IsRead         bool      `gorm:"not null;default:false;index:idx_messages_room_read,priority:2"`
}

func (messageModel) TableName() string { return "messages" }

func (m *userModel) toDomain() *domain.User {
	u := &domain.User{ID: m.ID, Username: m.Username, IsOnline: m.IsOnline}
	if m.LastSeen != nil {
		u.LastSeen = m.LastSeen.UTC()
	}
	return u
}

func (m *roomModel) toDomain() *domain.Room {
	participants := make([]string, 0, len(m.Participants))
	for _, p := range m.Participants {
		participants = append(participants, p.UserID)
	}
	if len(participants) == 2 {
		lo, hi := domain.SortPair(participants[0], participants[1])
		participants[0], participants[1] = lo, hi
	}
	return &domain.Room{
		ID:           m.ID,
		Name:         m.Name,
		Participants: participants,
		CreatedAt:    m.CreatedAt.UTC(),
		LastActivity: m.LastActivity.UTC(),
	}
}

func roomFromDomain(r *domain.Room) *roomModel {
	m := &roomModel{
		ID:           r.ID,
		Name:         r.Name,
		CreatedAt:    r.CreatedAt.UTC(),
		LastActivity: r.LastActivity.UTC(),
	}
	for _, p := range r.Participants {
		m.Participants = append(m.Participants, participantModel{RoomID: r.ID, UserID: p})
	}
	return m
}

func (m *messageModel) toDomain() *domain.Message {
	return &domain.Message{
		ID:             m.ID,
		RoomID:         m.RoomID,
		SenderID:       m.SenderID,
		SenderUsername: m.SenderUsername,
		Content:        m.Content,
		CreatedAt:      m.CreatedAt.UTC(),
		IsRead:         m.IsRead,
	}
}
