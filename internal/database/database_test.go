package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nfrund/parley/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapError_ClassifiesDriverMessages(t *testing.T) {
	t.Run("unique index violation", func(t *testing.T) {
		err := WrapError(errors.New("Database index `room_name_unique` already contains 'chat_1_2'"), "create room")
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		assert.Contains(t, err.Error(), "create room")
	})

	t.Run("duplicate record id", func(t *testing.T) {
		err := WrapError(errors.New("Database record `user:1` already exists"), "create user")
		assert.ErrorIs(t, err, ErrAlreadyExists)
	})

	t.Run("connection loss", func(t *testing.T) {
		err := WrapError(errors.New("dial tcp: connection refused"), "find room")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	})

	t.Run("anything else", func(t *testing.T) {
		err := WrapError(errors.New("Parse error"), "find room")
		assert.ErrorIs(t, err, ErrQueryFailed)
	})

	t.Run("nested context is preserved", func(t *testing.T) {
		inner := NewDBError(ErrNotConnected, "database not connected")
		err := WrapError(inner, "find room")
		assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "find room: database not connected")
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, WrapError(nil, "noop"))
	})
}

func TestDBError_WithQuery(t *testing.T) {
	err := NewDBError(ErrQueryFailed, "list rooms").WithQuery("SELECT * FROM room").WithParams(map[string]any{"user": "1"})
	assert.Contains(t, err.Error(), "Query: SELECT * FROM room")
	assert.Contains(t, err.Error(), "Params: map[user:1]")
	assert.ErrorIs(t, err, ErrQueryFailed)
}

func TestExponentialBackoffRetryer(t *testing.T) {
	r := &ExponentialBackoffRetryer{maxRetries: 3, baseDelay: time.Millisecond, maxDelay: 5 * time.Millisecond, multiplier: 2}

	t.Run("succeeds after transient failures", func(t *testing.T) {
		calls := 0
		err := r.Retry(context.Background(), func() error {
			calls++
			if calls < 3 {
				return errors.New("transient")
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := r.Retry(context.Background(), func() error {
			calls++
			return errors.New("down")
		})
		require.Error(t, err)
		assert.Equal(t, 4, calls)
		assert.Contains(t, err.Error(), "after 4 attempts")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := r.Retry(ctx, func() error { return nil })
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("delay is capped", func(t *testing.T) {
		assert.Equal(t, 5*time.Millisecond, r.calculateDelay(10))
	})
}

func TestGetTimeoutFromContext(t *testing.T) {
	ctx := WithQueryTimeout(context.Background(), time.Hour)
	withDeadline, cancel := getTimeoutFromContext(ctx, time.Second, ContextKeyQueryTimeout)
	defer cancel()

	deadline, ok := withDeadline.Deadline()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(time.Hour), deadline, time.Minute)
}

func TestHelpers(t *testing.T) {
	assert.True(t, hasLimitClause("SELECT * FROM room LIMIT 5"))
	assert.False(t, hasLimitClause("SELECT * FROM unlimited"))
	assert.Equal(t, "ws://root:xxxxx@localhost:8000/rpc", redactDBURL("ws://root:secret@localhost:8000/rpc"))
	assert.True(t, isConnectionError(context.DeadlineExceeded))
	assert.False(t, isConnectionError(errors.New("syntax error")))
}

func TestConnection_NotConnected(t *testing.T) {
	conn := NewConnection(nil)
	err := conn.WithConnection(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, conn.IsHealthy())
	assert.NoError(t, conn.Shutdown(context.Background()))
	assert.NoError(t, conn.Shutdown(context.Background()), "shutdown must be idempotent")
}
