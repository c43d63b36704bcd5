package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// RoomStore persists rooms in SurrealDB.
type RoomStore struct {
	conn *Connection
}

var _ domain.RoomRepository = (*RoomStore)(nil)

// NewRoomStore creates a RoomStore over a managed connection.
func NewRoomStore(conn *Connection) *RoomStore {
	return &RoomStore{conn: conn}
}

func (s *RoomStore) FindByID(ctx context.Context, id string) (*domain.Room, error) {
	const query = "SELECT * FROM type::thing($table, $id)"
	var rec *roomRecord
	err := s.conn.read(ctx, "find room by id", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[roomRecord](ctx, db, query, map[string]any{"table": tableRoom, "id": id})
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	return rec.toDomain(), nil
}

func (s *RoomStore) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	const query = "SELECT * FROM room WHERE name = $name"
	var rec *roomRecord
	err := s.conn.read(ctx, "find room by name", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[roomRecord](ctx, db, query, map[string]any{"name": name})
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("room %s: %w", name, domain.ErrNotFound)
	}
	return rec.toDomain(), nil
}

// Create inserts the room and its participant list in a single statement.
// The unique index on name turns a lost race into ErrAlreadyExists.
func (s *RoomStore) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	const query = "CREATE type::thing($table, $id) CONTENT $data RETURN AFTER"
	params := map[string]any{
		"table": tableRoom,
		"id":    room.ID,
		"data": map[string]any{
			"name":          room.Name,
			"participants":  room.Participants,
			"created_at":    dateTime(room.CreatedAt),
			"last_activity": dateTime(room.LastActivity),
		},
	}

	var rec *roomRecord
	err := s.conn.write(ctx, "create room", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[roomRecord](ctx, db, query, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, NewDBError(ErrQueryFailed, "create room returned no record").WithQuery(query)
	}
	return rec.toDomain(), nil
}

func (s *RoomStore) ListForUser(ctx context.Context, userID string) ([]*domain.Room, error) {
	const query = "SELECT * FROM room WHERE participants CONTAINS $user ORDER BY last_activity DESC"
	var recs []roomRecord
	err := s.conn.read(ctx, "list rooms for user", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		recs, err = Query[roomRecord](ctx, db, query, map[string]any{"user": userID})
		return err
	})
	if err != nil {
		return nil, err
	}
	rooms := make([]*domain.Room, 0, len(recs))
	for i := range recs {
		rooms = append(rooms, recs[i].toDomain())
	}
	return rooms, nil
}

func (s *RoomStore) Touch(ctx context.Context, id string, at time.Time) error {
	const query = "UPDATE type::thing($table, $id) SET last_activity = $at WHERE last_activity < $at RETURN NONE"
	return s.conn.write(ctx, "touch room", query, func(ctx context.Context, db *surrealdb.DB) error {
		return Execute(ctx, db, query, map[string]any{"table": tableRoom, "id": id, "at": dateTime(at)})
	})
}
