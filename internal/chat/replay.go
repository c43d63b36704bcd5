package chat

import (
	"context"
	"fmt"
)

// Replay pushes the room's most recent history to sub alone, oldest first,
// in the same frame shape as live messages. It returns how many frames were
// queued. Open calls it under the room lock; other callers may see a message
// both replayed and live.
func (r *Router) Replay(ctx context.Context, sub Subscriber, roomID string) (int, error) {
	history, err := r.store.History(ctx, roomID, r.historyLimit, "")
	if err != nil {
		return 0, fmt.Errorf("load history for room %s: %w", roomID, err)
	}

	sent := 0
	for _, msg := range history {
		payload, err := EncodeMessage(msg)
		if err != nil {
			return sent, fmt.Errorf("encode message %s: %w", msg.ID, err)
		}
		if !sub.Send(payload) {
			return sent, ErrSlowConsumer
		}
		sent++
	}
	return sent, nil
}
