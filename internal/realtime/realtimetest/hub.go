// Package realtimetest provides an in-process realtime transport for tests.
package realtimetest

import (
	"context"
	"errors"
	"sync"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/realtime"
)

// Hub routes events between transports dialed from it, keyed by user id.
type Hub struct {
	mu        sync.Mutex
	listeners map[string][]*Transport
	dials     map[string]int
	published []Published
	DialErr   error
}

// Published records an event sent by a user.
type Published struct {
	UserID  string
	Event   string
	Payload []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		listeners: make(map[string][]*Transport),
		dials:     make(map[string]int),
	}
}

// Dialer returns a realtime.Dialer backed by the hub.
func (h *Hub) Dialer() realtime.Dialer {
	return func(ctx context.Context, userID string) (realtime.Transport, error) {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.DialErr != nil {
			return nil, h.DialErr
		}
		h.dials[userID]++
		return &Transport{hub: h, userID: userID, connected: true}, nil
	}
}

// Dials returns how many times userID was dialed.
func (h *Hub) Dials(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dials[userID]
}

// Deliver pushes an event to every open transport of userID, synchronously.
func (h *Hub) Deliver(userID, event string, payload []byte) {
	h.mu.Lock()
	targets := append([]*Transport(nil), h.listeners[userID]...)
	h.mu.Unlock()

	for _, t := range targets {
		t.deliver(event, payload)
	}
}

// Published returns every event published through the hub.
func (h *Hub) Published() []Published {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Published(nil), h.published...)
}

// Open returns the number of open transports for userID.
func (h *Hub) Open(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[userID])
}

// Transport is a hub-backed realtime.Transport.
type Transport struct {
	hub       *Hub
	userID    string
	mu        sync.Mutex
	connected bool
	listen    func(event string, payload []byte)
}

// Listen registers the delivery callback.
func (t *Transport) Listen(deliver func(event string, payload []byte)) error {
	t.mu.Lock()
	t.listen = deliver
	t.mu.Unlock()

	t.hub.mu.Lock()
	t.hub.listeners[t.userID] = append(t.hub.listeners[t.userID], t)
	t.hub.mu.Unlock()
	return nil
}

// Publish records the event on the hub.
func (t *Transport) Publish(event string, payload []byte) error {
	if !t.Connected() {
		return errors.New("transport closed")
	}
	t.hub.mu.Lock()
	t.hub.published = append(t.hub.published, Published{UserID: t.userID, Event: event, Payload: payload})
	t.hub.mu.Unlock()
	return nil
}

// Connected reports whether Close has not been called.
func (t *Transport) Connected() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.connected
}

// SetConnected simulates a dropped or restored connection.
func (t *Transport) SetConnected(connected bool) {
	t.mu.Lock()
	t.connected = connected
	t.mu.Unlock()
}

// Close detaches the transport from the hub.
func (t *Transport) Close() {
	t.mu.Lock()
	t.connected = false
	t.listen = nil
	t.mu.Unlock()

	t.hub.mu.Lock()
	defer t.hub.mu.Unlock()
	list := t.hub.listeners[t.userID]
	for i, other := range list {
		if other == t {
			t.hub.listeners[t.userID] = append(list[:i], list[i+1:]...)
			break
		}
	}
}

func (t *Transport) deliver(event string, payload []byte) {
	t.mu.Lock()
	listen := t.listen
	t.mu.Unlock()
	if listen != nil {
		listen(event, payload)
	}
}
