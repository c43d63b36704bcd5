package chat

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplay_SendsTheMostRecentFiftyOldestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var want []string
	for i := 0; i < 75; i++ {
		msg, err := f.store.Append(ctx, f.room.ID, []string{"1", "2"}[i%2], fmt.Sprintf("message %02d", i))
		require.NoError(t, err)
		want = append(want, msg.ID)
	}
	want = want[len(want)-DefaultHistoryLimit:]

	sub := newFakeSub("late", "2")
	f.open(t, sub, f.bob)

	got := sub.messages(t)
	require.Len(t, got, DefaultHistoryLimit)
	for i, m := range got {
		assert.Equal(t, want[i], m.MessageID)
		assert.Equal(t, TypeChatMessage, m.Type)
	}
	assert.Equal(t, "message 25", got[0].Message)
	assert.Equal(t, "message 74", got[len(got)-1].Message)
}

func TestReplay_OnlyReachesTheJoiningConnection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.router.Send(ctx, f.room.ID, "1", "before anyone joined")
	require.NoError(t, err)

	first := newFakeSub("first", "1")
	f.open(t, first, f.alice)
	require.Len(t, first.messages(t), 1)

	second := newFakeSub("second", "2")
	f.open(t, second, f.bob)

	assert.Len(t, first.messages(t), 1, "an existing connection is not replayed to again")
	assert.Len(t, second.messages(t), 1)
}

func TestReplay_EmptyRoom(t *testing.T) {
	f := newFixture(t)
	sub := newFakeSub("a", "1")

	n, err := f.router.Replay(context.Background(), sub, f.room.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sub.frames)
}

func TestReplay_StopsWhenTheQueueIsFull(t *testing.T) {
	f := newFixture(t, WithHistoryLimit(10))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := f.store.Append(ctx, f.room.ID, "1", fmt.Sprintf("m%d", i))
		require.NoError(t, err)
	}

	sub := newFakeSub("tiny", "1")
	sub.capacity = 3
	n, err := f.router.Replay(ctx, sub, f.room.ID)
	assert.ErrorIs(t, err, ErrSlowConsumer)
	assert.Equal(t, 3, n)
}

func TestOpen_NoGapBetweenReplayAndLive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 30; i++ {
			_, err := f.router.Send(ctx, f.room.ID, "1", fmt.Sprintf("m%d", i))
			assert.NoError(t, err)
		}
	}()

	sub := newFakeSub("joiner", "2")
	f.open(t, sub, f.bob)
	<-done

	history, err := f.store.History(ctx, f.room.ID, 0, "")
	require.NoError(t, err)
	var want []string
	for _, m := range history {
		want = append(want, m.ID)
	}
	var got []string
	for _, m := range sub.messages(t) {
		got = append(got, m.MessageID)
	}
	assert.Equal(t, want, got, "every message exactly once, in order")
}
