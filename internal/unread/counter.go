// Package unread maintains the observable unread message count of a session.
package unread

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
)

// Source computes the current unread count.
type Source interface {
	Unread(ctx context.Context) (int, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (int, error)

// Unread calls f.
func (f SourceFunc) Unread(ctx context.Context) (int, error) {
	return f(ctx)
}

// Totaler is anything that can sum unread counts locally, such as a conversation index.
type Totaler interface {
	TotalUnread() int
}

// FromTotal counts unread messages from a local total.
func FromTotal(t Totaler) Source {
	return SourceFunc(func(context.Context) (int, error) {
		return t.TotalUnread(), nil
	})
}

// ReceivedLister lists interactions addressed to a user.
type ReceivedLister interface {
	ListReceived(ctx context.Context, userID string) ([]model.Interaction, error)
}

// FromReceived counts incoming unread messages of userID as reported by the store.
func FromReceived(l ReceivedLister, userID string) Source {
	return SourceFunc(func(ctx context.Context) (int, error) {
		received, err := l.ListReceived(ctx, userID)
		if err != nil {
			return 0, err
		}
		n := 0
		for i := range received {
			if received[i].Type == model.TypeMessage && received[i].IsIncomingUnread(userID) {
				n++
			}
		}
		return n, nil
	})
}

// Counter holds the last successfully computed unread count and notifies subscribers
// when it changes.
type Counter struct {
	source Source
	logger *logger.Logger

	mu        sync.Mutex
	value     int
	closed    bool
	observers map[int]func(int)
	nextID    int
}

// NewCounter creates a counter starting at zero.
func NewCounter(source Source, log *logger.Logger) *Counter {
	if log == nil {
		log = logger.NewNop()
	}
	return &Counter{
		source:    source,
		logger:    log.Named("unread"),
		observers: make(map[int]func(int)),
	}
}

// Refresh recomputes the count. On failure the previous value is kept and the error returned.
func (c *Counter) Refresh(ctx context.Context) error {
	n, err := c.source.Unread(ctx)
	if err != nil {
		c.logger.Warn("Failed to refresh unread count", zap.Error(err))
		return err
	}

	c.mu.Lock()
	if c.closed || n == c.value {
		c.mu.Unlock()
		return nil
	}
	c.value = n
	fns := make([]func(int), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	metrics.UnreadMessages.Set(float64(n))
	for _, fn := range fns {
		fn(n)
	}
	return nil
}

// Value returns the last computed count.
func (c *Counter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Subscribe registers fn to receive the count after every change.
func (c *Counter) Subscribe(fn func(int)) func() {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

// Close drops all subscribers and stops further updates.
func (c *Counter) Close() {
	c.mu.Lock()
	c.closed = true
	c.observers = make(map[int]func(int))
	c.mu.Unlock()
	metrics.UnreadMessages.Set(0)
}
