package realtime

import (
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

// DecodeNewMessage parses a new_message payload. A missing interaction id is replaced by a
// client-generated live id and a missing timestamp by now.
func DecodeNewMessage(payload []byte, now time.Time) (model.NewMessageEvent, error) {
	var evt model.NewMessageEvent
	if err := json.Unmarshal(payload, &evt); err != nil {
		return evt, fmt.Errorf("failed to decode new_message: %w", err)
	}
	if evt.SenderID == "" {
		return evt, fmt.Errorf("new_message without senderId")
	}
	if evt.InteractionID == "" {
		evt.InteractionID = model.NewLiveID()
	}
	if evt.Timestamp == nil {
		at := now
		evt.Timestamp = &at
	}
	return evt, nil
}

// OnNewMessage subscribes to decoded new_message events. Malformed payloads are logged and skipped.
func (c *Channel) OnNewMessage(handler func(model.NewMessageEvent)) (unsubscribe func()) {
	return c.Subscribe(string(model.EventNewMessage), func(payload []byte) {
		evt, err := DecodeNewMessage(payload, time.Now())
		if err != nil {
			c.logger.Warn("dropping malformed live event", zap.Error(err))
			return
		}
		handler(evt)
	})
}
