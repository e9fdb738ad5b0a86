// Package inbox lists received messages and invitations and drives their status actions.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/client"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/conversation"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
)

// ErrInvalidAction is returned, without any network call, for an action the item's type or
// status does not permit.
var ErrInvalidAction = errors.New("invalid action for interaction")

// API is the part of the interaction client the inbox calls.
type API interface {
	ListReceived(ctx context.Context, userID string) ([]model.Interaction, error)
	SetStatus(ctx context.Context, interactionID string, status model.Status) error
	Send(ctx context.Context, senderID, receiverID, content string) (string, error)
}

// Refresher recomputes a derived value, typically the unread counter.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Controller holds the inbox of one user.
type Controller struct {
	selfID  string
	api     API
	index   *conversation.Index
	counter Refresher
	logger  *logger.Logger
	now     func() time.Time

	mu     sync.Mutex
	gen    uint64
	items  []model.Interaction
	loaded bool
}

// New creates an empty inbox. index and counter may be nil.
func New(selfID string, api API, index *conversation.Index, counter Refresher, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.NewNop()
	}
	return &Controller{
		selfID:  selfID,
		api:     api,
		index:   index,
		counter: counter,
		logger:  log.ForUser("inbox", selfID),
		now:     time.Now,
	}
}

// Load fetches received interactions. Reviews are left out and the rest ordered newest
// first. A failed fetch keeps the previous items.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	gen := c.gen
	c.mu.Unlock()

	received, err := c.api.ListReceived(ctx, c.selfID)
	if err != nil {
		c.logger.Warn("Failed to load inbox", zap.Error(err))
		return fmt.Errorf("failed to load inbox: %w", err)
	}

	items := make([]model.Interaction, 0, len(received))
	seen := make(map[string]struct{}, len(received))
	for _, in := range received {
		if in.Type == model.TypeReview {
			continue
		}
		if _, dup := seen[in.ID]; dup {
			continue
		}
		seen[in.ID] = struct{}{}
		items = append(items, in)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return model.Less(&items[j], &items[i])
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen != gen {
		return nil
	}
	c.items = items
	c.loaded = true
	return nil
}

// Items returns a copy of the inbox.
func (c *Controller) Items() []model.Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Interaction, len(c.items))
	copy(out, c.items)
	return out
}

// Loaded reports whether a Load has succeeded.
func (c *Controller) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// MarkRead marks an unread message read. Marking an already read message is a no-op.
func (c *Controller) MarkRead(ctx context.Context, id string) error {
	item, err := c.item(id)
	if err != nil {
		return err
	}
	if item.Type != model.TypeMessage {
		return fmt.Errorf("%w: %s cannot be marked read", ErrInvalidAction, item.Type)
	}
	if !item.Status.IsUnread() {
		return nil
	}
	return c.transition(ctx, item, model.StatusRead)
}

// Accept accepts a pending invitation.
func (c *Controller) Accept(ctx context.Context, id string) error {
	return c.decide(ctx, id, model.StatusAccepted)
}

// Decline declines a pending invitation.
func (c *Controller) Decline(ctx context.Context, id string) error {
	return c.decide(ctx, id, model.StatusDeclined)
}

func (c *Controller) decide(ctx context.Context, id string, to model.Status) error {
	item, err := c.item(id)
	if err != nil {
		return err
	}
	if item.Type != model.TypeInvitation || item.Status != model.StatusPending {
		return fmt.Errorf("%w: cannot move %s in status %q to %s", ErrInvalidAction, item.Type, item.Status, to)
	}
	return c.transition(ctx, item, to)
}

// transition applies the status locally first and reverts it if the call fails.
func (c *Controller) transition(ctx context.Context, item model.Interaction, to model.Status) error {
	c.mu.Lock()
	gen := c.gen
	c.setStatusLocked(item.ID, to)
	c.mu.Unlock()

	// The cached status may be stale: the thread view can have read the message already.
	// Only a count this call actually removed is restored on failure.
	unreadMessage := item.Type == model.TypeMessage && item.Status.IsUnread()
	counted := 0
	if unreadMessage && c.index != nil {
		counted = c.index.MarkRead(item.SenderID, item.ID)
	}

	err := c.api.SetStatus(ctx, item.ID, to)
	if err != nil {
		c.logger.Warn("Failed to update interaction status",
			zap.String("interaction_id", item.ID),
			zap.String("status", string(to)),
			zap.Error(err),
		)
		metrics.RecordRollback(rollbackAction(to))

		c.mu.Lock()
		if c.gen == gen {
			c.setStatusLocked(item.ID, item.Status)
		}
		c.mu.Unlock()
		if counted > 0 {
			c.index.MarkUnread(item.SenderID, item.ID)
		}
	}

	if unreadMessage {
		c.refreshCounter(ctx)
	}
	if err != nil {
		return fmt.Errorf("failed to set status %s: %w", to, err)
	}
	return nil
}

// Reply sends a message to the sender of the item and marks the item read if it was an
// unread message. A failed mark-read after a successful send is logged, not returned.
func (c *Controller) Reply(ctx context.Context, id, content string) (string, error) {
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("%w: message content is empty", client.ErrRejected)
	}
	item, err := c.item(id)
	if err != nil {
		return "", err
	}

	replyID, err := c.api.Send(ctx, c.selfID, item.SenderID, content)
	if err != nil {
		c.logger.Warn("Failed to send reply", zap.String("interaction_id", id), zap.Error(err))
		return "", fmt.Errorf("failed to send reply: %w", err)
	}

	if c.index != nil {
		c.index.ApplyOutgoing(c.outgoing(replyID, item.SenderID, content))
	}

	if item.Type == model.TypeMessage && item.Status.IsUnread() {
		if err := c.transition(ctx, item, model.StatusRead); err != nil {
			c.logger.Warn("Reply sent but original not marked read", zap.String("interaction_id", id), zap.Error(err))
		}
	}
	return replyID, nil
}

// outgoing is the owner's own copy of a sent message, which never counts as unread.
func (c *Controller) outgoing(id, receiverID, content string) model.Interaction {
	return model.Interaction{
		ID:         id,
		Type:       model.TypeMessage,
		SenderID:   c.selfID,
		ReceiverID: receiverID,
		Content:    content,
		Status:     model.StatusRead,
		CreatedAt:  c.now(),
	}
}

// Close drops the items. Calls still in flight will not write back.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.items = nil
	c.loaded = false
	c.mu.Unlock()
}

func (c *Controller) item(id string) (model.Interaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, in := range c.items {
		if in.ID == id {
			return in, nil
		}
	}
	return model.Interaction{}, fmt.Errorf("%w: interaction %s is not in the inbox", ErrInvalidAction, id)
}

func (c *Controller) setStatusLocked(id string, status model.Status) {
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Status = status
			return
		}
	}
}

func rollbackAction(to model.Status) string {
	switch to {
	case model.StatusRead:
		return "mark_read"
	case model.StatusAccepted:
		return "accept"
	case model.StatusDeclined:
		return "decline"
	default:
		return string(to)
	}
}

func (c *Controller) refreshCounter(ctx context.Context) {
	if c.counter == nil {
		return
	}
	_ = c.counter.Refresh(ctx)
}
