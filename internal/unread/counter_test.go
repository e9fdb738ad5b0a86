package unread

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

type stubLister struct {
	items []model.Interaction
	err   error
}

func (s *stubLister) ListReceived(context.Context, string) ([]model.Interaction, error) {
	return s.items, s.err
}

type total int

func (t total) TotalUnread() int { return int(t) }

func TestCounter(t *testing.T) {
	ctx := context.Background()
	n, fail := 3, false
	c := NewCounter(SourceFunc(func(context.Context) (int, error) {
		if fail {
			return 0, errors.New("offline")
		}
		return n, nil
	}), nil)

	var seen []int
	cancel := c.Subscribe(func(v int) { seen = append(seen, v) })

	require.NoError(t, c.Refresh(ctx))
	assert.Equal(t, 3, c.Value())

	t.Run("unchanged value does not notify", func(t *testing.T) {
		require.NoError(t, c.Refresh(ctx))
		assert.Equal(t, []int{3}, seen)
	})

	t.Run("failed refresh keeps the previous value", func(t *testing.T) {
		fail = true
		assert.Error(t, c.Refresh(ctx))
		assert.Equal(t, 3, c.Value())
		fail = false
	})

	t.Run("unsubscribed observer is not called", func(t *testing.T) {
		cancel()
		n = 5
		require.NoError(t, c.Refresh(ctx))
		assert.Equal(t, 5, c.Value())
		assert.Equal(t, []int{3}, seen)
	})

	t.Run("closed counter ignores refreshes", func(t *testing.T) {
		c.Close()
		n = 9
		require.NoError(t, c.Refresh(ctx))
		assert.Equal(t, 5, c.Value())
	})
}

func TestSources(t *testing.T) {
	ctx := context.Background()

	t.Run("from received counts incoming unread messages only", func(t *testing.T) {
		lister := &stubLister{items: []model.Interaction{
			{ID: "1", Type: model.TypeMessage, SenderID: "bob", ReceiverID: "alice", Status: model.StatusUnread},
			{ID: "2", Type: model.TypeMessage, SenderID: "bob", ReceiverID: "alice"},
			{ID: "3", Type: model.TypeMessage, SenderID: "bob", ReceiverID: "alice", Status: model.StatusRead},
			{ID: "4", Type: model.TypeInvitation, SenderID: "bob", ReceiverID: "alice", Status: model.StatusPending},
			{ID: "5", Type: model.TypeReview, SenderID: "bob", TargetID: "alice", Rating: 4},
		}}
		n, err := FromReceived(lister, "alice").Unread(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})

	t.Run("from received propagates errors", func(t *testing.T) {
		_, err := FromReceived(&stubLister{err: errors.New("down")}, "alice").Unread(ctx)
		assert.Error(t, err)
	})

	t.Run("from total", func(t *testing.T) {
		n, err := FromTotal(total(4)).Unread(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})
}
