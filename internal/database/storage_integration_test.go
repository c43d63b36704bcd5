package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nfrund/parley/internal/config"
	"github.com/nfrund/parley/internal/domain"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStorage connects to the SurrealDB named by SURREAL_URL, using a fresh
// database per test so runs do not see each other's rows.
func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	if os.Getenv("SURREAL_URL") == "" {
		t.Skip("SURREAL_URL not set, skipping SurrealDB integration test")
	}

	cfg := &config.Config{
		DBUrl:            os.Getenv("SURREAL_URL"),
		DBNs:             "parley_test",
		DBDb:             "t_" + uuid.NewString()[:8],
		DBUser:           os.Getenv("SURREAL_USER"),
		DBPass:           os.Getenv("SURREAL_PASS"),
		DBQueryTimeout:   5 * time.Second,
		DBExecuteTimeout: 5 * time.Second,
	}

	ctx := context.Background()
	storage, err := Open(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Shutdown(context.Background()) })
	return storage
}

func TestSurrealStorage_RoomsAndMessages(t *testing.T) {
	s := openTestStorage(t)
	ctx := context.Background()

	for _, u := range []*domain.User{{ID: "1", Username: "ana"}, {ID: "2", Username: "ben"}} {
		_, err := s.Users.Create(ctx, u)
		require.NoError(t, err)
	}
	_, err := s.Users.Create(ctx, &domain.User{ID: "1", Username: "again"})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	now := time.Now().UTC()
	room := &domain.Room{ID: ulid.Make().String(), Name: domain.RoomName("1", "2"), Participants: []string{"1", "2"}, CreatedAt: now, LastActivity: now}
	created, err := s.Rooms.Create(ctx, room)
	require.NoError(t, err)
	assert.Equal(t, room.ID, created.ID)

	dup := *room
	dup.ID = ulid.Make().String()
	_, err = s.Rooms.Create(ctx, &dup)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists, "unique room name must reject a second row")

	byName, err := s.Rooms.FindByName(ctx, room.Name)
	require.NoError(t, err)
	assert.Equal(t, room.ID, byName.ID)

	var ids []string
	for i, text := range []string{"hello", "hi", "how are you"} {
		sender := []string{"1", "2", "1"}[i]
		msg, err := s.Messages.Create(ctx, &domain.Message{
			ID: ulid.Make().String(), RoomID: room.ID, SenderID: sender, SenderUsername: "x", Content: text, CreatedAt: time.Now().UTC(),
		})
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	recent, err := s.Messages.Recent(ctx, room.ID, 2, "")
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, []string{ids[1], ids[2]}, []string{recent[0].ID, recent[1].ID})

	older, err := s.Messages.Recent(ctx, room.ID, 10, ids[1])
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "hello", older[0].Content)

	unread, err := s.Messages.CountUnread(ctx, "2", []string{room.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, unread)

	n, err := s.Messages.MarkRead(ctx, room.ID, "2")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	unread, err = s.Messages.CountUnread(ctx, "2", []string{room.ID})
	require.NoError(t, err)
	assert.Zero(t, unread)

	require.NoError(t, s.Users.SetPresence(ctx, "1", true, now))
	u, err := s.Users.FindByID(ctx, "1")
	require.NoError(t, err)
	assert.True(t, u.IsOnline)

	_, err = s.Rooms.FindByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
