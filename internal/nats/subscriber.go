package nats

import (
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
)

// Subscriber fans per-user events out of a shared server connection.
type Subscriber struct {
	client *Client
}

// NewSubscriber creates a subscriber on an established connection.
func NewSubscriber(client *Client) *Subscriber {
	return &Subscriber{client: client}
}

// SubscribeUser delivers every event addressed to userID until the returned function is called.
func (s *Subscriber) SubscribeUser(userID string, deliver func(event string, payload []byte)) (func(), error) {
	if !ValidUserID(userID) {
		return nil, fmt.Errorf("invalid user id %q", userID)
	}

	sub, err := s.client.Conn().Subscribe(UserFilter(userID), func(msg *nats.Msg) {
		event := EventFromSubject(msg.Subject)
		metrics.RecordLiveEvent(event, "in")
		deliver(event, msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe: %w", err)
	}

	return func() { _ = sub.Unsubscribe() }, nil
}
