package database

import (
	"context"
	"fmt"

	"github.com/nfrund/parley/internal/config"
)

// Storage bundles the SurrealDB repositories over one managed connection.
type Storage struct {
	Conn     *Connection
	Users    *UserStore
	Rooms    *RoomStore
	Messages *MessageStore
}

// Open connects, applies the schema and starts health monitoring.
func Open(ctx context.Context, cfg config.Provider) (*Storage, error) {
	conn := NewConnection(cfg)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("connect surrealdb: %w", err)
	}
	if err := Migrate(ctx, conn); err != nil {
		_ = conn.Shutdown(ctx)
		return nil, fmt.Errorf("migrate surrealdb: %w", err)
	}
	conn.StartMonitoring()

	return &Storage{
		Conn:     conn,
		Users:    NewUserStore(conn),
		Rooms:    NewRoomStore(conn),
		Messages: NewMessageStore(conn),
	}, nil
}

// HealthCheck reports whether the database answers.
func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.Conn.HealthCheck(ctx)
}

// Shutdown closes the underlying connection.
func (s *Storage) Shutdown(ctx context.Context) error {
	return s.Conn.Shutdown(ctx)
}
