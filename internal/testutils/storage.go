package testutils

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/nfrund/parley/internal/database/sqlite"
	"github.com/nfrund/parley/internal/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

// NewSQLiteStorage opens a fresh file-backed SQLite storage in a temp dir.
func NewSQLiteStorage(t *testing.T) *sqlite.Storage {
	t.Helper()

	s, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), sqlite.WithLogLevel(logger.Silent))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

// SeedUsers creates one user per id, using the id as the username.
func SeedUsers(t *testing.T, users domain.UserRepository, ids ...string) {
	t.Helper()

	for _, id := range ids {
		_, err := users.Create(context.Background(), &domain.User{ID: id, Username: id})
		require.NoError(t, err)
	}
}
