package thread

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/client"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/conversation"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/unread"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeAPI struct {
	mu          sync.Mutex
	thread      []model.Interaction
	threadErr   error
	sendID      string
	sendErr     error
	sendGate    chan struct{}
	statusGate  chan struct{}
	onThread    func()
	failStatus  map[string]bool
	statusCalls []string
	sendCalls   int
}

func (f *fakeAPI) GetThread(context.Context, string, string) ([]model.Interaction, error) {
	if f.onThread != nil {
		f.onThread()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Interaction, len(f.thread))
	copy(out, f.thread)
	return out, f.threadErr
}

func (f *fakeAPI) Send(context.Context, string, string, string) (string, error) {
	f.mu.Lock()
	f.sendCalls++
	gate := f.sendGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}
	return f.sendID, f.sendErr
}

func (f *fakeAPI) SetStatus(_ context.Context, id string, _ model.Status) error {
	f.mu.Lock()
	gate := f.statusGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls = append(f.statusCalls, id)
	if f.failStatus[id] {
		return client.ErrTransport
	}
	return nil
}

func (f *fakeAPI) marked() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.statusCalls...)
	sort.Strings(out)
	return out
}

func msg(id, from, to, content string, minute int, status model.Status) model.Interaction {
	return model.Interaction{
		ID:         id,
		Type:       model.TypeMessage,
		SenderID:   from,
		ReceiverID: to,
		Content:    content,
		Status:     status,
		CreatedAt:  base.Add(time.Duration(minute) * time.Minute),
	}
}

type fixture struct {
	api     *fakeAPI
	index   *conversation.Index
	counter *unread.Counter
	ctrl    *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	api := &fakeAPI{
		thread: []model.Interaction{
			msg("m3", "alice", "bob", "fine", 3, model.StatusUnread),
			msg("m1", "bob", "alice", "hi", 1, model.StatusUnread),
			msg("m2", "bob", "alice", "how are you", 2, model.StatusNone),
		},
		sendID:     "m10",
		failStatus: map[string]bool{},
	}
	index := conversation.NewIndex("alice")
	index.Replace([]model.Conversation{
		{CounterpartID: "bob", CounterpartName: "Bob", LastMessage: "fine", LastMessageID: "m3", LastAt: base.Add(3 * time.Minute)},
		{CounterpartID: "carol", CounterpartName: "Carol", LastMessage: "yo", LastMessageID: "c1", LastAt: base},
	}, received())
	counter := unread.NewCounter(unread.FromTotal(index), nil)
	require.NoError(t, counter.Refresh(context.Background()))

	ctrl := New("alice", api, index, counter, nil)
	ctrl.now = func() time.Time { return base.Add(10 * time.Minute) }
	return &fixture{api: api, index: index, counter: counter, ctrl: ctrl}
}

// received is the server-side inbox snapshot matching the fixture, before any mark-read.
func received() []model.Interaction {
	return []model.Interaction{
		msg("c1", "carol", "alice", "yo", 0, model.StatusUnread),
		msg("m1", "bob", "alice", "hi", 1, model.StatusUnread),
		msg("m2", "bob", "alice", "how are you", 2, model.StatusNone),
	}
}

func unreadOf(x *conversation.Index, counterpart string) int {
	c, _ := x.Get(counterpart)
	return c.UnreadCount
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("marks incoming unread messages read and zeroes the conversation", func(t *testing.T) {
		f := newFixture(t)
		assert.Equal(t, StateClosed, f.ctrl.State())

		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		assert.Equal(t, StateReady, f.ctrl.State())
		assert.Equal(t, 0, unreadOf(f.index, "bob"))
		assert.Equal(t, 1, f.counter.Value())

		msgs := f.ctrl.Messages()
		require.Len(t, msgs, 3)
		assert.Equal(t, []string{"m1", "m2", "m3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
		assert.Equal(t, model.StatusRead, msgs[0].Status)

		f.ctrl.Wait()
		assert.Equal(t, []string{"m1", "m2"}, f.api.marked())
	})

	t.Run("failed mark-read adds the count back", func(t *testing.T) {
		f := newFixture(t)
		f.api.failStatus["m2"] = true

		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		f.ctrl.Wait()

		assert.Equal(t, 1, unreadOf(f.index, "bob"))
		assert.Equal(t, 2, f.counter.Value())
		for _, m := range f.ctrl.Messages() {
			if m.ID == "m2" {
				assert.Equal(t, model.StatusUnread, m.Status)
			}
		}
	})

	t.Run("rebuild during mark-read keeps the thread read", func(t *testing.T) {
		f := newFixture(t)
		f.api.statusGate = make(chan struct{})

		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		f.index.Replace(f.index.Snapshot(), received())
		assert.Equal(t, 0, unreadOf(f.index, "bob"))
		assert.Equal(t, 1, unreadOf(f.index, "carol"))

		close(f.api.statusGate)
		f.ctrl.Wait()
		assert.Equal(t, 0, unreadOf(f.index, "bob"))
		assert.Equal(t, 1, f.counter.Value())
	})

	t.Run("rebuild during a failing mark-read restores only the failure", func(t *testing.T) {
		f := newFixture(t)
		f.api.statusGate = make(chan struct{})
		f.api.failStatus["m1"] = true

		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		f.index.Replace(f.index.Snapshot(), received())

		close(f.api.statusGate)
		f.ctrl.Wait()
		assert.Equal(t, 1, unreadOf(f.index, "bob"))
		assert.Equal(t, 2, f.counter.Value())
	})

	t.Run("failed fetch closes the thread and keeps unread", func(t *testing.T) {
		f := newFixture(t)
		f.api.threadErr = client.ErrTransport

		err := f.ctrl.Open(ctx, "bob")
		assert.ErrorIs(t, err, client.ErrTransport)
		assert.Equal(t, StateClosed, f.ctrl.State())
		assert.Equal(t, 2, unreadOf(f.index, "bob"))
	})
}

func TestSend(t *testing.T) {
	ctx := context.Background()

	t.Run("requires a ready thread", func(t *testing.T) {
		f := newFixture(t)
		_, _, err := f.ctrl.Send(ctx, "hello")
		assert.ErrorIs(t, err, ErrNotReady)
	})

	t.Run("blank content is rejected before any call", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		_, _, err := f.ctrl.Send(ctx, " \t\n")
		assert.ErrorIs(t, err, client.ErrRejected)
		assert.Zero(t, f.api.sendCalls)
		assert.Len(t, f.ctrl.Messages(), 3)
	})

	t.Run("success replaces the provisional id", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.Open(ctx, "bob"))

		p, done, err := f.ctrl.Send(ctx, "see you")
		require.NoError(t, err)
		assert.True(t, model.IsProvisionalID(p.ID))
		assert.Equal(t, model.StatusRead, p.Status)
		require.NoError(t, <-done)

		msgs := f.ctrl.Messages()
		require.Len(t, msgs, 4)
		assert.Equal(t, "m10", msgs[3].ID)
		assert.Equal(t, "see you", msgs[3].Content)

		c, _ := f.index.Get("bob")
		assert.Equal(t, "see you", c.LastMessage)
		assert.Equal(t, "m10", c.LastMessageID)
	})

	t.Run("failure removes the message and restores the preview", func(t *testing.T) {
		f := newFixture(t)
		f.api.sendErr = client.ErrTransport
		f.api.sendGate = make(chan struct{})
		require.NoError(t, f.ctrl.Open(ctx, "bob"))

		_, done, err := f.ctrl.Send(ctx, "lost")
		require.NoError(t, err)
		assert.Len(t, f.ctrl.Messages(), 4)
		c, _ := f.index.Get("bob")
		assert.Equal(t, "lost", c.LastMessage)

		close(f.api.sendGate)
		assert.ErrorIs(t, <-done, client.ErrTransport)

		assert.Len(t, f.ctrl.Messages(), 3)
		c, _ = f.index.Get("bob")
		assert.Equal(t, "fine", c.LastMessage)
		assert.Equal(t, "m3", c.LastMessageID)
	})

	t.Run("completion after close does not touch the new thread", func(t *testing.T) {
		f := newFixture(t)
		f.api.sendGate = make(chan struct{})
		require.NoError(t, f.ctrl.Open(ctx, "bob"))

		_, done, err := f.ctrl.Send(ctx, "late")
		require.NoError(t, err)
		f.ctrl.Close()

		close(f.api.sendGate)
		require.NoError(t, <-done)
		assert.Empty(t, f.ctrl.Messages())
		assert.Equal(t, StateClosed, f.ctrl.State())
	})
}

func TestHandleNewMessage(t *testing.T) {
	ctx := context.Background()
	at := base.Add(20 * time.Minute)

	t.Run("message for the open thread leaves unread unchanged", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		f.ctrl.Wait()
		before := f.counter.Value()

		f.ctrl.HandleNewMessage(ctx, model.NewMessageEvent{SenderID: "bob", Message: "still there?", InteractionID: "m20", Timestamp: &at})
		f.ctrl.Wait()

		assert.Equal(t, before, f.counter.Value())
		assert.Equal(t, before, f.index.TotalUnread())
		msgs := f.ctrl.Messages()
		require.Len(t, msgs, 4)
		assert.Equal(t, "m20", msgs[3].ID)
		assert.Equal(t, model.StatusRead, msgs[3].Status)
		assert.Contains(t, f.api.marked(), "m20")

		c, _ := f.index.Get("bob")
		assert.Equal(t, "still there?", c.LastMessage)
	})

	t.Run("message for another counterpart adds exactly one", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		f.ctrl.Wait()
		before := f.counter.Value()

		f.ctrl.HandleNewMessage(ctx, model.NewMessageEvent{SenderID: "carol", Message: "news", InteractionID: "c2", Timestamp: &at})

		assert.Equal(t, before+1, f.counter.Value())
		assert.Equal(t, 2, unreadOf(f.index, "carol"))
		assert.Len(t, f.ctrl.Messages(), 3)
	})

	t.Run("closed thread routes everything to the index", func(t *testing.T) {
		f := newFixture(t)
		f.ctrl.HandleNewMessage(ctx, model.NewMessageEvent{SenderID: "bob", Message: "hey", InteractionID: "m21", Timestamp: &at})

		assert.Equal(t, 3, unreadOf(f.index, "bob"))
		assert.Equal(t, 4, f.counter.Value())
		assert.Empty(t, f.ctrl.Messages())
	})

	t.Run("message arriving while the thread loads is marked by open", func(t *testing.T) {
		f := newFixture(t)
		f.api.onThread = func() {
			assert.Equal(t, StateLoading, f.ctrl.State())
			f.ctrl.HandleNewMessage(ctx, model.NewMessageEvent{SenderID: "bob", Message: "early", InteractionID: "m22", Timestamp: &at})
			assert.Equal(t, 3, unreadOf(f.index, "bob"))
		}

		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		f.ctrl.Wait()

		msgs := f.ctrl.Messages()
		require.Len(t, msgs, 4)
		assert.Equal(t, "m22", msgs[3].ID)
		assert.Equal(t, model.StatusRead, msgs[3].Status)
		assert.Equal(t, 0, unreadOf(f.index, "bob"))
		assert.Equal(t, []string{"m1", "m2", "m22"}, f.api.marked())
	})

	t.Run("live id is not marked read remotely", func(t *testing.T) {
		f := newFixture(t)
		require.NoError(t, f.ctrl.Open(ctx, "bob"))
		f.ctrl.Wait()

		f.ctrl.HandleNewMessage(ctx, model.NewMessageEvent{SenderID: "bob", Message: "x", InteractionID: model.NewLiveID(), Timestamp: &at})
		f.ctrl.Wait()
		assert.Equal(t, []string{"m1", "m2"}, f.api.marked())
	})
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t)
	var mu sync.Mutex
	var lengths []int
	cancel := f.ctrl.Subscribe(func(msgs []model.Interaction) {
		mu.Lock()
		lengths = append(lengths, len(msgs))
		mu.Unlock()
	})

	require.NoError(t, f.ctrl.Open(context.Background(), "bob"))
	f.ctrl.Wait()
	cancel()
	f.ctrl.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{0, 3}, lengths)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "loading", StateLoading.String())
	assert.Equal(t, "ready", StateReady.String())
	assert.True(t, errors.Is(ErrNotReady, ErrNotReady))
}
