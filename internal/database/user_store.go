package database

import (
	"context"
	"fmt"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/surrealdb/surrealdb.go"
)

// UserStore encapsulates database operations for users using SurrealDB.
type UserStore struct {
	conn *Connection
}

var _ domain.UserRepository = (*UserStore)(nil)

// NewUserStore creates a new UserStore.
func NewUserStore(conn *Connection) *UserStore {
	return &UserStore{conn: conn}
}

func (s *UserStore) FindByID(ctx context.Context, id string) (*domain.User, error) {
	const query = "SELECT * FROM type::thing($table, $id)"
	var rec *userRecord
	err := s.conn.read(ctx, "find user", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[userRecord](ctx, db, query, map[string]any{"table": tableUser, "id": id})
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return rec.toDomain(), nil
}

func (s *UserStore) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := domain.Validate(user); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	const query = "CREATE type::thing($table, $id) CONTENT $data RETURN AFTER"
	params := map[string]any{
		"table": tableUser,
		"id":    user.ID,
		"data": map[string]any{
			"username":  user.Username,
			"is_online": false,
		},
	}

	var rec *userRecord
	err := s.conn.write(ctx, "create user", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		rec, err = QueryOne[userRecord](ctx, db, query, params)
		return err
	})
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, NewDBError(ErrQueryFailed, "create user returned no record").WithQuery(query)
	}
	return rec.toDomain(), nil
}

func (s *UserStore) SetPresence(ctx context.Context, id string, online bool, seen time.Time) error {
	const query = "UPDATE type::thing($table, $id) SET is_online = $online, last_seen = $seen RETURN AFTER"
	var updated []userRecord
	err := s.conn.write(ctx, "set user presence", query, func(ctx context.Context, db *surrealdb.DB) error {
		var err error
		updated, err = Query[userRecord](ctx, db, query, map[string]any{
			"table":  tableUser,
			"id":     id,
			"online": online,
			"seen":   dateTime(seen),
		})
		return err
	})
	if err != nil {
		return err
	}
	// UPDATE on a missing record id creates nothing and returns nothing.
	if len(updated) == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}
