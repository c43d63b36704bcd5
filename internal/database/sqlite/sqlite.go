// Package sqlite is the embedded storage backend: gorm over SQLite. It keeps the
// same repository contracts as the SurrealDB stores in the parent package.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nfrund/parley/internal/database"
	"github.com/nfrund/parley/internal/domain"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage bundles the gorm repositories over one SQLite database.
type Storage struct {
	DB       *gorm.DB
	Users    *UserStore
	Rooms    *RoomStore
	Messages *MessageStore
}

type options struct {
	logLevel logger.LogLevel
}

// Option configures Open.
type Option func(*options)

// WithLogLevel sets gorm's own SQL logging level.
func WithLogLevel(level logger.LogLevel) Option {
	return func(o *options) { o.logLevel = level }
}

// Open opens (creating if needed) the database at path and migrates the schema.
// ":memory:" gives a private in-memory database.
func Open(path string, opts ...Option) (*Storage, error) {
	o := options{logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(gormsqlite.Open(dsn(path)), &gorm.Config{
		Logger:         logger.Default.LogMode(o.logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps ":memory:" a single database.
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&userModel{}, &roomModel{}, &participantModel{}, &messageModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}

	slog.Debug("SQLite storage ready", "event", "db_sqlite_open", "path", path)

	return &Storage{
		DB:       db,
		Users:    NewUserStore(db),
		Rooms:    NewRoomStore(db),
		Messages: NewMessageStore(db),
	}, nil
}

// HealthCheck pings the database.
func (s *Storage) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Shutdown closes the database.
func (s *Storage) Shutdown(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dsn(path string) string {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path
	}
	return "file:" + path + "?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
}

// translate maps gorm errors onto the shared sentinels and wraps them with the
// operation name.
func translate(err error, op string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return database.NewDBError(fmt.Errorf("%w: %v", domain.ErrNotFound, err), op)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return database.NewDBError(fmt.Errorf("%w: %v", domain.ErrAlreadyExists, err), op)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		strings.Contains(err.Error(), "database is closed"), strings.Contains(err.Error(), "database is locked"):
		return database.NewDBError(fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err), op)
	}
	return database.NewDBError(fmt.Errorf("%w: %v", database.ErrQueryFailed, err), op)
}
