package database

import (
	"fmt"
	"time"

	"github.com/nfrund/parley/internal/domain"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

const (
	tableUser    = "user"
	tableRoom    = "room"
	tableMessage = "message"
)

type userRecord struct {
	ID       *surrealmodels.RecordID       `json:"id,omitempty"`
	Username string                        `json:"username"`
	IsOnline bool                          `json:"is_online"`
	LastSeen *surrealmodels.CustomDateTime `json:"last_seen,omitempty"`
}

type roomRecord struct {
	ID           *surrealmodels.RecordID      `json:"id,omitempty"`
	Name         string                       `json:"name"`
	Participants []string                     `json:"participants"`
	CreatedAt    surrealmodels.CustomDateTime `json:"created_at"`
	LastActivity surrealmodels.CustomDateTime `json:"last_activity"`
}

type messageRecord struct {
	ID             *surrealmodels.RecordID      `json:"id,omitempty"`
	RoomID         string                       `json:"room_id"`
	SenderID       string                       `json:"sender_id"`
	SenderUsername string                       `json:"sender_username"`
	Content        string                       `json:"content"`
	CreatedAt      surrealmodels.CustomDateTime `json:"created_at"`
	IsRead         bool                         `json:"is_read"`
}

type idRow struct {
	ID *surrealmodels.RecordID `json:"id"`
}

type countRow struct {
	Total int `json:"total"`
}

// recordKey returns the id part of "table:id".
func recordKey(id *surrealmodels.RecordID) string {
	if id == nil {
		return ""
	}
	return fmt.Sprint(id.ID)
}

func dateTime(t time.Time) surrealmodels.CustomDateTime {
	return surrealmodels.CustomDateTime{Time: t.UTC()}
}

func (r *userRecord) toDomain() *domain.User {
	u := &domain.User{
		ID:       recordKey(r.ID),
		Username: r.Username,
		IsOnline: r.IsOnline,
	}
	if r.LastSeen != nil {
		u.LastSeen = r.LastSeen.Time
	}
	return u
}

func (r *roomRecord) toDomain() *domain.Room {
	return &domain.Room{
		ID:           recordKey(r.ID),
		Name:         r.Name,
		Participants: r.Participants,
		CreatedAt:    r.CreatedAt.Time,
		LastActivity: r.LastActivity.Time,
	}
}

func (r *messageRecord) toDomain() *domain.Message {
	return &domain.Message{
		ID:             recordKey(r.ID),
		RoomID:         r.RoomID,
		SenderID:       r.SenderID,
		SenderUsername: r.SenderUsername,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt.Time,
		IsRead:         r.IsRead,
	}
}
