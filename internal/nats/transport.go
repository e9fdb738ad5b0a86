package nats

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/realtime"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
)

// UserTransport is a realtime transport owning a dedicated NATS connection for one user.
type UserTransport struct {
	client *Client
	userID string

	mu  sync.Mutex
	sub *nats.Subscription
}

// Dialer returns a realtime.Dialer that opens one NATS connection per user session.
// Reconnection is handled by the NATS client.
func Dialer(cfg Config, log *logger.Logger) realtime.Dialer {
	return func(ctx context.Context, userID string) (realtime.Transport, error) {
		if !ValidUserID(userID) {
			return nil, fmt.Errorf("invalid user id %q", userID)
		}

		userCfg := cfg
		if userCfg.Name == "" {
			userCfg.Name = "session-" + userID
		}
		client, err := Connect(ctx, userCfg, log)
		if err != nil {
			return nil, err
		}
		return &UserTransport{client: client, userID: userID}, nil
	}
}

// Listen subscribes to every event subject of the user.
func (t *UserTransport) Listen(deliver func(event string, payload []byte)) error {
	sub, err := t.client.Conn().Subscribe(UserFilter(t.userID), func(msg *nats.Msg) {
		deliver(EventFromSubject(msg.Subject), msg.Data)
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	t.mu.Lock()
	t.sub = sub
	t.mu.Unlock()
	return nil
}

// Publish sends event on the user's own subject.
func (t *UserTransport) Publish(event string, payload []byte) error {
	return t.client.Conn().Publish(UserSubject(t.userID, event), payload)
}

// Connected reports whether the NATS connection is up.
func (t *UserTransport) Connected() bool {
	return t.client.IsConnected()
}

// Close unsubscribes and closes the connection.
func (t *UserTransport) Close() {
	t.mu.Lock()
	sub := t.sub
	t.sub = nil
	t.mu.Unlock()

	if sub != nil {
		_ = sub.Unsubscribe()
	}
	t.client.Close()
}
