// Package realtime manages the live publish/subscribe channel of a signed-in user.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
)

// Transport is a live connection scoped to a single user.
type Transport interface {
	// Listen delivers every event addressed to the connected user until Close.
	Listen(deliver func(event string, payload []byte)) error
	// Publish sends an event on behalf of the connected user.
	Publish(event string, payload []byte) error
	// Connected reports whether the connection is currently usable.
	Connected() bool
	// Close tears the connection down.
	Close()
}

// Dialer opens a transport for userID.
type Dialer func(ctx context.Context, userID string) (Transport, error)

// Handler receives the raw payload of an event.
type Handler func(payload []byte)

// Channel owns at most one live connection. Changing from one user to another replaces the
// connection wholesale and drops every subscriber registered for the previous user, so a
// handler never observes another user's events. Subscribers registered before the first
// user is set are kept.
type Channel struct {
	dial   Dialer
	logger *logger.Logger

	mu        sync.Mutex
	userID    string
	transport Transport
	gen       uint64
	subGen    uint64
	nextID    uint64
	subs      map[string]map[uint64]Handler
}

// NewChannel creates a disconnected channel.
func NewChannel(dial Dialer, log *logger.Logger) *Channel {
	if log == nil {
		log = logger.NewNop()
	}
	return &Channel{
		dial:   dial,
		logger: log,
		subs:   make(map[string]map[uint64]Handler),
	}
}

// SetUser connects the channel for userID. An empty id disconnects; the same id is a no-op.
func (c *Channel) SetUser(ctx context.Context, userID string) error {
	c.mu.Lock()
	if c.userID == userID && (userID == "" || c.transport != nil) {
		c.mu.Unlock()
		return nil
	}
	old := c.resetLocked(c.userID != "" && c.userID != userID)
	c.userID = userID
	gen := c.gen
	c.mu.Unlock()

	if old != nil {
		old.Close()
		metrics.DecrementRealtimeSessions()
	}
	if userID == "" {
		return nil
	}

	t, err := c.dial(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to open realtime channel: %w", err)
	}

	c.mu.Lock()
	if c.gen != gen {
		// Replaced or closed while dialing.
		c.mu.Unlock()
		t.Close()
		return nil
	}
	c.transport = t
	c.mu.Unlock()
	metrics.IncrementRealtimeSessions()

	if err := t.Listen(func(event string, payload []byte) {
		c.dispatch(gen, event, payload)
	}); err != nil {
		c.mu.Lock()
		owned := c.gen == gen
		if owned {
			c.transport = nil
			c.gen++
		}
		c.mu.Unlock()
		if owned {
			t.Close()
			metrics.DecrementRealtimeSessions()
		}
		return fmt.Errorf("failed to listen on realtime channel: %w", err)
	}

	c.logger.Info("realtime channel open", zap.String("user_id", userID))
	return nil
}

// Close disconnects the channel and drops every subscriber.
func (c *Channel) Close() {
	c.mu.Lock()
	old := c.resetLocked(true)
	userID := c.userID
	c.userID = ""
	c.mu.Unlock()

	if old != nil {
		old.Close()
		metrics.DecrementRealtimeSessions()
		c.logger.Info("realtime channel closed", zap.String("user_id", userID))
	}
}

// resetLocked invalidates the current connection, and the subscribers when dropSubs is set.
// It returns the transport the caller must close outside the lock.
func (c *Channel) resetLocked(dropSubs bool) Transport {
	old := c.transport
	c.transport = nil
	c.gen++
	if dropSubs {
		c.subGen++
		c.subs = make(map[string]map[uint64]Handler)
	}
	return old
}

// UserID returns the user the channel is scoped to.
func (c *Channel) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

// Connected reports whether the channel currently has a usable connection.
func (c *Channel) Connected() bool {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()
	return t != nil && t.Connected()
}

// Subscribe registers handler for event. Every subscriber receives every event
// independently; the returned function removes only this subscriber.
func (c *Channel) Subscribe(event string, handler Handler) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	gen := c.subGen
	if c.subs[event] == nil {
		c.subs[event] = make(map[uint64]Handler)
	}
	c.subs[event][id] = handler

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if c.subGen != gen {
				return
			}
			delete(c.subs[event], id)
		})
	}
}

// Emit publishes payload as JSON. When the channel is not connected the event is dropped
// with a warning.
func (c *Channel) Emit(event string, payload any) {
	c.mu.Lock()
	t := c.transport
	c.mu.Unlock()

	if t == nil || !t.Connected() {
		c.logger.Warn("realtime channel not connected, dropping event", zap.String("event", event))
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("failed to encode realtime event", zap.String("event", event), zap.Error(err))
		return
	}
	if err := t.Publish(event, data); err != nil {
		c.logger.Warn("failed to publish realtime event", zap.String("event", event), zap.Error(err))
		return
	}
	metrics.RecordLiveEvent(event, "out")
}

func (c *Channel) dispatch(gen uint64, event string, payload []byte) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	handlers := make([]Handler, 0, len(c.subs[event]))
	for _, h := range c.subs[event] {
		handlers = append(handlers, h)
	}
	c.mu.Unlock()

	metrics.RecordLiveEvent(event, "in")
	for _, h := range handlers {
		h(payload)
	}
}
