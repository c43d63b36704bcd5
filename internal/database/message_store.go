package database

import (
	"context"
	"slices"

	"github.com/nfrund/parley/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// MessageStore persists chat messages in SurrealDB. Record ids are the
// caller-assigned ULIDs, so ordering by id is ordering by append.
type MessageStore struct {
	conn *Connection
}

var _ domain.MessageRepository = (*MessageStore)(nil)

// NewMessageStore creates a MessageStore over a managed connection.
func NewMessageStore(conn *Connection) *MessageStore {
	return &MessageStore{conn: conn}
}

func (s *MessageStore) Create(ctx context.Context, msg *domain.Message) (*domain.Message, error) {
	const query = "CREATE type::thing($table, $id) CONTENT $data RETURN AFTER"
	params := map[string]any{
		"table": tableMessage,
		"id":    msg.ID,
		"data": map[string]any{
			"room_id":         msg.RoomID,
			"sender_id":       msg.SenderID,
			"sender_username": msg.SenderUsername,
			"content":         msg.Content,
			"created_at":      dateTime(msg.CreatedAt),
			"is_read":         false,
		},
	}

	var rec *messageRecord
	err := s.conn.write(ctx, "create message", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[messageRecord](ctx, db, query, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, NewDBError(ErrQueryFailed, "create message returned no record").WithQuery(query)
	}
	return rec.toDomain(), nil
}

func (s *MessageStore) Recent(ctx context.Context, roomID string, limit int, before string) ([]*domain.Message, error) {
	query := "SELECT * FROM message WHERE room_id = $room"
	params := map[string]any{"room": roomID, "limit": limit, "table": tableMessage}
	if before != "" {
		query += " AND id < type::thing($table, $before)"
		params["before"] = before
	}
	query += " ORDER BY id DESC LIMIT $limit"

	var recs []messageRecord
	err := s.conn.read(ctx, "list recent messages", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		recs, err = Query[messageRecord](ctx, db, query, params)
		return err
	})
	if err != nil {
		return nil, err
	}

	msgs := make([]*domain.Message, 0, len(recs))
	for i := range recs {
		msgs = append(msgs, recs[i].toDomain())
	}
	// newest-first from the query, callers want oldest-first
	slices.Reverse(msgs)
	return msgs, nil
}

func (s *MessageStore) MarkRead(ctx context.Context, roomID, readerID string) (int, error) {
	const query = "UPDATE message SET is_read = true WHERE room_id = $room AND sender_id != $reader AND is_read = false RETURN id"
	var updated []idRow
	err := s.conn.write(ctx, "mark messages read", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		updated, err = Query[idRow](ctx, db, query, map[string]any{"room": roomID, "reader": readerID})
		return err
	})
	if err != nil {
		return 0, err
	}
	return len(updated), nil
}

func (s *MessageStore) CountUnread(ctx context.Context, userID string, roomIDs []string) (int, error) {
	if len(roomIDs) == 0 {
		return 0, nil
	}
	const query = "SELECT count() AS total FROM message WHERE room_id IN $rooms AND sender_id != $user AND is_read = false GROUP ALL"
	var row *countRow
	err := s.conn.read(ctx, "count unread messages", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		row, err = QueryOne[countRow](ctx, db, query, map[string]any{"rooms": roomIDs, "user": userID})
		return err
	})
	if err != nil {
		return 0, err
	}
	if row == nil {
		return 0, nil
	}
	return row.Total, nil
}
