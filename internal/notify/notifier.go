// Package notify delivers rule-match notifications to downstream
// subscribers through an explicit channel rather than in-process events,
// keeping the engine decoupled from any presentation layer.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/haldana/sift/internal/common"
)

// Notification is one rule-match delivery.
type Notification struct {
	SentAt    time.Time
	ArticleID int64
	RuleID    int64
	Priority  int
}

// ChannelNotifier buffers notifications for a subscriber. When no subscriber
// is draining the channel and the buffer fills, deliveries fall back to the
// structured log so a Notify action still completes.
type ChannelNotifier struct {
	ch     chan Notification
	mu     sync.Mutex
	closed bool
}

// DefaultBufferSize is used when New is given a non-positive buffer.
const DefaultBufferSize = 64

// New creates a channel notifier with the given buffer size.
func New(buffer int) *ChannelNotifier {
	if buffer <= 0 {
		buffer = DefaultBufferSize
	}
	return &ChannelNotifier{ch: make(chan Notification, buffer)}
}

// Notify delivers one notification. It never blocks: a full buffer degrades
// to a log entry, and only a canceled context or a closed notifier fails the
// delivery.
func (n *ChannelNotifier) Notify(ctx context.Context, articleID, ruleID int64, priority int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	notification := Notification{
		ArticleID: articleID,
		RuleID:    ruleID,
		Priority:  priority,
		SentAt:    time.Now(),
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.closed {
		return context.Canceled
	}

	select {
	case n.ch <- notification:
	default:
		common.LogWarn("notification buffer full, delivering via log", common.Fields{
			"article_id": articleID,
			"rule_id":    ruleID,
			"priority":   priority,
		})
	}
	return nil
}

// Subscribe returns the delivery channel for a downstream consumer.
func (n *ChannelNotifier) Subscribe() <-chan Notification {
	return n.ch
}

// Close stops deliveries and closes the subscriber channel.
func (n *ChannelNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.closed {
		n.closed = true
		close(n.ch)
	}
}
