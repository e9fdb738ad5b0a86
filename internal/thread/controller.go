// Package thread drives the currently open conversation thread of a session.
package thread

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/client"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/conversation"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/metrics"
)

// ErrNotReady is returned when an operation needs a thread in the ready state.
var ErrNotReady = errors.New("thread not ready")

// maxConcurrentMarkRead bounds the mark-read calls issued when a thread opens.
const maxConcurrentMarkRead = 8

// State is the lifecycle state of the thread.
type State int

const (
	StateClosed State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "closed"
	}
}

// API is the part of the interaction client the controller calls.
type API interface {
	GetThread(ctx context.Context, userID, counterpartID string) ([]model.Interaction, error)
	Send(ctx context.Context, senderID, receiverID, content string) (string, error)
	SetStatus(ctx context.Context, interactionID string, status model.Status) error
}

// Refresher recomputes a derived value, typically the unread counter.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Controller owns the message list of one open thread at a time.
//
// Every asynchronous completion captures the generation current when it started and is
// discarded if the thread was closed or reopened since.
type Controller struct {
	selfID  string
	api     API
	index   *conversation.Index
	counter Refresher
	logger  *logger.Logger
	now     func() time.Time

	mu          sync.Mutex
	state       State
	counterpart string
	gen         uint64
	messages    []model.Interaction
	observers   map[int]func([]model.Interaction)
	nextID      int

	pending sync.WaitGroup
}

// New creates a closed controller for selfID.
func New(selfID string, api API, index *conversation.Index, counter Refresher, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.NewNop()
	}
	return &Controller{
		selfID:    selfID,
		api:       api,
		index:     index,
		counter:   counter,
		logger:    log.ForUser("thread", selfID),
		now:       time.Now,
		observers: make(map[int]func([]model.Interaction)),
	}
}

// Open loads the thread with counterpartID, marks its incoming unread messages read and
// leaves the controller ready. Mark-read calls continue in the background; Wait blocks
// until they finish.
func (c *Controller) Open(ctx context.Context, counterpartID string) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.state = StateLoading
	c.counterpart = counterpartID
	c.messages = nil
	c.mu.Unlock()
	c.notify()

	fetched, err := c.api.GetThread(ctx, c.selfID, counterpartID)

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return nil
	}
	if err != nil {
		c.state = StateClosed
		c.counterpart = ""
		c.messages = nil
		c.mu.Unlock()
		c.notify()
		c.logger.Warn("Failed to load thread", zap.String("counterpart_id", counterpartID), zap.Error(err))
		return fmt.Errorf("failed to load thread: %w", err)
	}

	c.messages = conversation.MergeThread(c.messages, fetched)
	var read, toMark []string
	for i := range c.messages {
		m := &c.messages[i]
		if !m.IsIncomingUnread(c.selfID) {
			continue
		}
		m.Status = model.StatusRead
		read = append(read, m.ID)
		if !model.IsProvisionalID(m.ID) {
			toMark = append(toMark, m.ID)
		}
	}
	c.state = StateReady
	c.mu.Unlock()

	c.index.MarkRead(counterpartID, read...)
	for _, id := range c.index.ResetUnread(counterpartID) {
		if !slices.Contains(toMark, id) {
			toMark = append(toMark, id)
		}
	}
	c.notify()
	c.refreshCounter(ctx)

	if len(toMark) > 0 {
		c.pending.Add(1)
		go c.markRead(context.WithoutCancel(ctx), gen, counterpartID, toMark)
	}
	return nil
}

// markRead issues every status update concurrently. Failed updates count as unread again.
func (c *Controller) markRead(ctx context.Context, gen uint64, counterpartID string, ids []string) {
	defer c.pending.Done()

	var (
		eg     errgroup.Group
		mu     sync.Mutex
		failed []string
	)
	eg.SetLimit(maxConcurrentMarkRead)
	for _, id := range ids {
		eg.Go(func() error {
			if err := c.api.SetStatus(ctx, id, model.StatusRead); err != nil {
				mu.Lock()
				failed = append(failed, id)
				mu.Unlock()
				return err
			}
			return nil
		})
	}
	err := eg.Wait()
	if len(failed) == 0 {
		return
	}

	c.logger.Warn("Failed to mark messages read",
		zap.String("counterpart_id", counterpartID),
		zap.Int("failed", len(failed)),
		zap.Error(err),
	)
	metrics.RecordRollback("mark_read")
	c.index.MarkUnread(counterpartID, failed...)

	c.mu.Lock()
	if c.gen == gen {
		lookup := make(map[string]struct{}, len(failed))
		for _, id := range failed {
			lookup[id] = struct{}{}
		}
		for i := range c.messages {
			if _, ok := lookup[c.messages[i].ID]; ok {
				c.messages[i].Status = model.StatusUnread
			}
		}
	}
	c.mu.Unlock()
	c.notify()
	c.refreshCounter(ctx)
}

// Close discards the open thread. Pending completions for it are ignored.
func (c *Controller) Close() {
	c.mu.Lock()
	c.gen++
	c.state = StateClosed
	c.counterpart = ""
	c.messages = nil
	c.mu.Unlock()
	c.notify()
}

// Send appends a provisional message to the ready thread and sends it in the background.
// The returned channel yields the outcome once: nil after the provisional id was replaced
// by the server id, or the send error after the append and preview update were undone.
func (c *Controller) Send(ctx context.Context, content string) (model.Interaction, <-chan error, error) {
	if strings.TrimSpace(content) == "" {
		return model.Interaction{}, nil, fmt.Errorf("%w: message content is empty", client.ErrRejected)
	}

	c.mu.Lock()
	if c.state != StateReady {
		c.mu.Unlock()
		return model.Interaction{}, nil, ErrNotReady
	}
	gen := c.gen
	provisional := model.Interaction{
		ID:         model.NewTempID(),
		Type:       model.TypeMessage,
		SenderID:   c.selfID,
		ReceiverID: c.counterpart,
		Content:    content,
		Status:     model.StatusRead,
		CreatedAt:  c.now(),
	}
	c.messages = append(c.messages, provisional)
	conversation.SortThread(c.messages)
	c.mu.Unlock()

	prev, existed := c.index.ApplyOutgoing(provisional)
	c.notify()

	done := make(chan error, 1)
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		defer close(done)
		done <- c.completeSend(context.WithoutCancel(ctx), gen, provisional, prev, existed)
	}()
	return provisional, done, nil
}

func (c *Controller) completeSend(ctx context.Context, gen uint64, p model.Interaction, prev model.Conversation, existed bool) error {
	id, err := c.api.Send(ctx, p.SenderID, p.ReceiverID, p.Content)
	if err != nil {
		c.logger.Warn("Failed to send message, rolling back",
			zap.String("counterpart_id", p.ReceiverID),
			zap.Error(err),
		)
		metrics.RecordRollback("send")
		c.index.Restore(prev, existed, p.ReceiverID, p.ID)

		c.mu.Lock()
		if c.gen == gen {
			c.messages = remove(c.messages, p.ID)
		}
		c.mu.Unlock()
		c.notify()
		return err
	}

	c.index.ReplaceMessageID(p.ReceiverID, p.ID, id)

	c.mu.Lock()
	if c.gen == gen {
		confirmed := p
		confirmed.ID = id
		c.messages = conversation.MergeThread(remove(c.messages, p.ID), []model.Interaction{confirmed})
	}
	c.mu.Unlock()
	c.notify()
	return nil
}

// HandleNewMessage applies a live new_message event. A message from the counterpart of the
// ready thread joins the thread already read. While that thread is still loading the message
// joins it unread and Open marks it. Any other message updates its conversation in the index
// as unread. Every path refreshes the unread counter.
func (c *Controller) HandleNewMessage(ctx context.Context, evt model.NewMessageEvent) {
	in := evt.Interaction(c.selfID)

	c.mu.Lock()
	open := c.state != StateClosed && c.counterpart == evt.SenderID
	ready := open && c.state == StateReady
	gen := c.gen
	if ready {
		in.Status = model.StatusRead
	}
	if open {
		c.messages = conversation.MergeThread(c.messages, []model.Interaction{in})
	}
	c.mu.Unlock()

	if ready {
		c.index.MarkRead(evt.SenderID, in.ID)
	}
	c.index.ApplyIncoming(in)
	if open {
		c.notify()
	}
	if ready && !model.IsProvisionalID(in.ID) {
		c.pending.Add(1)
		go c.markRead(context.WithoutCancel(ctx), gen, evt.SenderID, []string{in.ID})
	}
	c.refreshCounter(ctx)
}

// Messages returns a copy of the thread in display order.
func (c *Controller) Messages() []model.Interaction {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]model.Interaction, len(c.messages))
	copy(out, c.messages)
	return out
}

// State returns the lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// CounterpartID returns the counterpart of the open thread, or "" when closed.
func (c *Controller) CounterpartID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counterpart
}

// Subscribe registers fn to receive the message list after every change.
func (c *Controller) Subscribe(fn func([]model.Interaction)) func() {
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

// Wait blocks until background sends and mark-read calls have finished.
func (c *Controller) Wait() {
	c.pending.Wait()
}

func (c *Controller) notify() {
	c.mu.Lock()
	if len(c.observers) == 0 {
		c.mu.Unlock()
		return
	}
	snapshot := make([]model.Interaction, len(c.messages))
	copy(snapshot, c.messages)
	fns := make([]func([]model.Interaction), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (c *Controller) refreshCounter(ctx context.Context) {
	if c.counter == nil {
		return
	}
	// Refresh logs its own failures and keeps the previous value.
	_ = c.counter.Refresh(ctx)
}

func remove(msgs []model.Interaction, id string) []model.Interaction {
	out := msgs[:0]
	for _, m := range msgs {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}
