package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotify_DeliversToSubscriber(t *testing.T) {
	n := New(4)
	t.Cleanup(n.Close)

	require.NoError(t, n.Notify(context.Background(), 1, 2, 3))

	got := <-n.Subscribe()
	assert.Equal(t, int64(1), got.ArticleID)
	assert.Equal(t, int64(2), got.RuleID)
	assert.Equal(t, 3, got.Priority)
	assert.False(t, got.SentAt.IsZero())
}

func TestNotify_FullBufferFallsBackToLog(t *testing.T) {
	n := New(1)
	t.Cleanup(n.Close)
	ctx := context.Background()

	require.NoError(t, n.Notify(ctx, 1, 1, 0))

	// Nobody is draining; the second delivery degrades to a log entry but
	// still reports success so the rule action completes.
	assert.NoError(t, n.Notify(ctx, 2, 1, 0))

	got := <-n.Subscribe()
	assert.Equal(t, int64(1), got.ArticleID)
	assert.Empty(t, n.Subscribe())
}

func TestNotify_CanceledContext(t *testing.T) {
	n := New(1)
	t.Cleanup(n.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, n.Notify(ctx, 1, 1, 0), context.Canceled)
}

func TestClose(t *testing.T) {
	n := New(1)
	n.Close()
	n.Close() // idempotent

	assert.Error(t, n.Notify(context.Background(), 1, 1, 0))

	_, open := <-n.Subscribe()
	assert.False(t, open)
}

func TestNew_DefaultBuffer(t *testing.T) {
	n := New(0)
	t.Cleanup(n.Close)
	assert.Equal(t, DefaultBufferSize, cap(n.ch))
}
