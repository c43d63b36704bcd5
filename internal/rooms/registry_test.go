package rooms

import (
	"context"
	"sync"
	"testing"

	"github.com/nfrund/parley/internal/domain"
	"github.com/nfrund/parley/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_GetOrCreateRoom(t *testing.T) {
	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "alice", "bob", "carol")
	reg := NewRegistry(storage.Rooms, storage.Users)
	ctx := context.Background()

	room, err := reg.GetOrCreateRoom(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, "chat_alice_bob", room.Name)
	assert.Equal(t, []string{"alice", "bob"}, room.Participants)

	again, err := reg.GetOrCreateRoom(ctx, "alice", "bob")
	require.NoError(t, err)
	assert.Equal(t, room.ID, again.ID, "same pair must resolve to the same room")

	t.Run("rejects invalid pairs", func(t *testing.T) {
		_, err := reg.GetOrCreateRoom(ctx, "alice", "alice")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)

		_, err = reg.GetOrCreateRoom(ctx, "", "bob")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown participant", func(t *testing.T) {
		_, err := reg.GetOrCreateRoom(ctx, "alice", "mallory")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("membership queries", func(t *testing.T) {
		ok, err := reg.IsParticipant(ctx, "alice", room.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = reg.IsParticipant(ctx, "carol", room.ID)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = reg.IsParticipant(ctx, "alice", "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		participants, err := reg.ParticipantsOf(ctx, room.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"alice", "bob"}, participants)
	})

	t.Run("rooms for user", func(t *testing.T) {
		_, err := reg.GetOrCreateRoom(ctx, "carol", "alice")
		require.NoError(t, err)

		rooms, err := reg.RoomsFor(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, rooms, 2)

		rooms, err = reg.RoomsFor(ctx, "bob")
		require.NoError(t, err)
		assert.Len(t, rooms, 1)
	})
}

func TestRegistry_ConcurrentGetOrCreate(t *testing.T) {
	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "1", "2")
	reg := NewRegistry(storage.Rooms, storage.Users)

	const callers = 16
	ids := make([]string, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			a, b := "1", "2"
			if i%2 == 1 {
				a, b = b, a
			}
			room, err := reg.GetOrCreateRoom(context.Background(), a, b)
			errs[i] = err
			if err == nil {
				ids[i] = room.ID
			}
		}(i)
	}
	close(start)
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	rooms, err := reg.RoomsFor(context.Background(), "1")
	require.NoError(t, err)
	assert.Len(t, rooms, 1, "exactly one room must exist for the pair")
}

// racingRooms simulates losing the unique-name race: the first lookup misses,
// the insert conflicts, and the re-fetch finds the winner's row.
type racingRooms struct {
	domain.RoomRepository
	winner  *domain.Room
	lookups int
}

func (r *racingRooms) FindByName(ctx context.Context, name string) (*domain.Room, error) {
	r.lookups++
	if r.lookups == 1 {
		return nil, domain.ErrNotFound
	}
	return r.winner, nil
}

func (r *racingRooms) Create(ctx context.Context, room *domain.Room) (*domain.Room, error) {
	return nil, domain.ErrAlreadyExists
}

func TestRegistry_LoserRefetchesWinner(t *testing.T) {
	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "1", "2")

	winner := &domain.Room{ID: "winner", Name: "chat_1_2", Participants: []string{"1", "2"}}
	repo := &racingRooms{winner: winner}
	reg := NewRegistry(repo, storage.Users)

	room, err := reg.GetOrCreateRoom(context.Background(), "2", "1")
	require.NoError(t, err)
	assert.Equal(t, "winner", room.ID)
	assert.Equal(t, 2, repo.lookups)
}

func TestRegistry_PaddedNumericIDsShareOneRoom(t *testing.T) {
	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "7", "007")
	reg := NewRegistry(storage.Rooms, storage.Users)
	ctx := context.Background()

	first, err := reg.GetOrCreateRoom(ctx, "7", "007")
	require.NoError(t, err)
	second, err := reg.GetOrCreateRoom(ctx, "007", "7")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "chat_007_7", first.Name)

	rooms, err := reg.RoomsFor(ctx, "7")
	require.NoError(t, err)
	assert.Len(t, rooms, 1)
}

func TestRegistry_PairPolicy(t *testing.T) {
	storage := testutils.NewSQLiteStorage(t)
	testutils.SeedUsers(t, storage.Users, "1", "2", "3")

	reg := NewRegistry(storage.Rooms, storage.Users, WithAuthorizer(NewPairPolicy([2]string{"2", "1"})))
	ctx := context.Background()

	_, err := reg.GetOrCreateRoom(ctx, "1", "2")
	assert.NoError(t, err)

	_, err = reg.GetOrCreateRoom(ctx, "1", "3")
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
