package chat

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/nfrund/parley/internal/database/sqlite"
	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/messages"
	"github.com/nfrund/parley/internal/pubsub"
	"github.com/nfrund/parley/internal/rooms"
	"github.com/nfrund/parley/internal/testutils"
	"github.com/stretchr/testify/require"
)

// fakeSub records frames in memory. capacity 0 means unbounded.
type fakeSub struct {
	id       string
	userID   string
	capacity int

	mu     sync.Mutex
	frames [][]byte
	closed bool
}

func newFakeSub(id, userID string) *fakeSub {
	return &fakeSub{id: id, userID: userID}
}

func (f *fakeSub) ID() string     { return f.id }
func (f *fakeSub) UserID() string { return f.userID }

func (f *fakeSub) Send(payload []byte) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || (f.capacity > 0 && len(f.frames) >= f.capacity) {
		return false
	}
	f.frames = append(f.frames, payload)
	return true
}

func (f *fakeSub) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
}

func (f *fakeSub) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeSub) messages(t *testing.T) []OutboundMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []OutboundMessage
	for _, frame := range f.frames {
		var m OutboundMessage
		require.NoError(t, json.Unmarshal(frame, &m))
		if m.Type == TypeChatMessage {
			out = append(out, m)
		}
	}
	return out
}

func (f *fakeSub) errorFrames(t *testing.T) []ErrorFrame {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []ErrorFrame
	for _, frame := range f.frames {
		var e ErrorFrame
		require.NoError(t, json.Unmarshal(frame, &e))
		if e.Type == TypeError {
			out = append(out, e)
		}
	}
	return out
}

type fixture struct {
	storage *sqlite.Storage
	store   *messages.Store
	rooms   *rooms.Registry
	manager *Manager
	bus     *pubsub.WatermillBus
	router  *Router
	room    *domain.Room
	alice   *domain.User
	bob     *domain.User
}

func newFixture(t *testing.T, opts ...RouterOption) *fixture {
	t.Helper()

	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "1", "2", "3")

	f := &fixture{
		storage: storage,
		store:   messages.NewStore(storage.Messages, storage.Rooms, storage.Users),
		rooms:   rooms.NewRegistry(storage.Rooms, storage.Users),
		manager: NewManager(nil),
		bus:     pubsub.NewWatermillBus(),
		alice:   &domain.User{ID: "1", Username: "1"},
		bob:     &domain.User{ID: "2", Username: "2"},
	}
	t.Cleanup(func() { _ = f.bus.Close() })
	f.router = NewRouter(f.store, f.rooms, f.manager, f.bus, opts...)

	room, err := f.rooms.GetOrCreateRoom(context.Background(), "1", "2")
	require.NoError(t, err)
	f.room = room
	return f
}

func (f *fixture) open(t *testing.T, sub *fakeSub, user *domain.User) *Session {
	t.Helper()
	s, err := f.router.Open(context.Background(), sub, user, f.room.ID)
	require.NoError(t, err)
	require.Equal(t, StateActive, s.State())
	return s
}

func contents(msgs []OutboundMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Message)
	}
	return out
}
