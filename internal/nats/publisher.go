package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
)

// Publisher pushes interaction events to the receiving user's subject.
type Publisher struct {
	client *Client
}

// NewPublisher creates a publisher on an established connection.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// PublishNewMessage notifies receiverID that a message addressed to them was stored.
func (p *Publisher) PublishNewMessage(ctx context.Context, receiverID string, evt *model.NewMessageEvent) error {
	if !ValidUserID(receiverID) {
		return fmt.Errorf("invalid receiver id %q", receiverID)
	}

	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Conn().Publish(UserSubject(receiverID, string(model.EventNewMessage)), data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.RecordLiveEvent(string(model.EventNewMessage), "out")
	return nil
}
