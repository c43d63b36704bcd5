package chat

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Two learners open the same room, greet each other, and a third connection
// that joins later gets the whole conversation from history.
func TestScenario_HelloHi(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, b := newFakeSub("a", "1"), newFakeSub("b", "2")
	sa := f.open(t, a, f.alice)
	sb := f.open(t, b, f.bob)

	require.NoError(t, sa.Handle(ctx, []byte(`{"message":"hello","sender_id":"1"}`)))
	require.NoError(t, sb.Handle(ctx, []byte(`{"message":"hi","sender_id":"2"}`)))

	for _, sub := range []*fakeSub{a, b} {
		got := sub.messages(t)
		require.Len(t, got, 2)
		assert.Equal(t, []string{"hello", "hi"}, contents(got))
		assert.Equal(t, "1", got[0].SenderID)
		assert.Equal(t, "2", got[1].SenderID)
	}

	sa.Close(ctx)
	late := newFakeSub("a-again", "1")
	f.open(t, late, f.alice)
	assert.Equal(t, []string{"hello", "hi"}, contents(late.messages(t)))

	history, err := f.store.History(ctx, f.room.ID, 0, "")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "hello", history[0].Content)
	assert.Equal(t, "hi", history[1].Content)
}
