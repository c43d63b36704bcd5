package app

import (
	"context"
	"fmt"

	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/database"
	"github.com/nfrund/parley/internal/database/sqlite"
	"github.com/nfrund/parley/internal/domain"
)

type backend interface {
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Storage is the configured persistence backend seen through the domain
// repositories.
type Storage struct {
	Users    domain.UserRepository
	Rooms    domain.RoomRepository
	Messages domain.MessageRepository
	Driver   string

	backend backend
}

// OpenStorage opens the backend selected by STORAGE_DRIVER.
func OpenStorage(ctx context.Context, cfg config.Provider) (*Storage, error) {
	switch driver := cfg.GetStorageDriver(); driver {
	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.GetSQLitePath())
		if err != nil {
			return nil, err
		}
		return &Storage{Users: s.Users, Rooms: s.Rooms, Messages: s.Messages, Driver: driver, backend: s}, nil

	case config.DriverSurreal:
		s, err := database.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &Storage{Users: s.Users, Rooms: s.Rooms, Messages: s.Messages, Driver: driver, backend: s}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

func (s *Storage) HealthCheck(ctx context.Context) error {
	return s.backend.HealthCheck(ctx)
}

func (s *Storage) Shutdown(ctx context.Context) error {
	return s.backend.Shutdown(ctx)
}
