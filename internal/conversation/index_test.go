package conversation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

func seededIndex() *Index {
	x := NewIndex("alice")
	x.Replace([]model.Conversation{
		{CounterpartID: "bob", CounterpartName: "Bob", LastMessage: "hi", LastMessageID: "m1", LastAt: base.Add(time.Minute), UnreadCount: 1},
		{CounterpartID: "carol", CounterpartName: "Carol", LastMessage: "yo", LastMessageID: "m2", LastAt: base.Add(2 * time.Minute)},
	}, []model.Interaction{
		msg("m1", "bob", "alice", "hi", 1, model.StatusUnread),
		msg("m2", "carol", "alice", "yo", 2, model.StatusRead),
	})
	return x
}

func TestIndexApplyIncoming(t *testing.T) {
	t.Run("adds exactly one unread and moves the conversation to the top", func(t *testing.T) {
		x := seededIndex()
		before := x.TotalUnread()

		applied := x.ApplyIncoming(msg("m3", "bob", "alice", "news", 5, model.StatusUnread))
		assert.True(t, applied)
		assert.Equal(t, before+1, x.TotalUnread())

		convs := x.Snapshot()
		assert.Equal(t, "bob", convs[0].CounterpartID)
		assert.Equal(t, "news", convs[0].LastMessage)
		assert.Equal(t, 2, convs[0].UnreadCount)
	})

	t.Run("repeated event is ignored", func(t *testing.T) {
		x := seededIndex()
		in := msg("m3", "bob", "alice", "news", 5, model.StatusUnread)
		x.ApplyIncoming(in)
		assert.False(t, x.ApplyIncoming(in))
		assert.Equal(t, 2, x.TotalUnread())
	})

	t.Run("older message counts but keeps the preview", func(t *testing.T) {
		x := seededIndex()
		x.ApplyIncoming(msg("m0", "bob", "alice", "old", 0, model.StatusUnread))
		c, ok := x.Get("bob")
		require.True(t, ok)
		assert.Equal(t, "hi", c.LastMessage)
		assert.Equal(t, 2, c.UnreadCount)
	})

	t.Run("new counterpart gets an entry", func(t *testing.T) {
		x := seededIndex()
		x.ApplyIncoming(msg("m9", "dave", "alice", "hey", 9, model.StatusUnread))
		c, ok := x.Get("dave")
		require.True(t, ok)
		assert.Equal(t, model.UnknownUserName, c.CounterpartName)
		assert.Equal(t, 1, c.UnreadCount)
	})
}

func TestIndexOutgoingAndRestore(t *testing.T) {
	t.Run("restore brings back the previous preview", func(t *testing.T) {
		x := seededIndex()
		out := msg("temp-1", "alice", "bob", "draft", 10, model.StatusRead)
		prev, existed := x.ApplyOutgoing(out)
		require.True(t, existed)

		c, _ := x.Get("bob")
		assert.Equal(t, "draft", c.LastMessage)
		assert.Equal(t, 1, c.UnreadCount)

		x.Restore(prev, existed, "bob", "temp-1")
		c, _ = x.Get("bob")
		assert.Equal(t, "hi", c.LastMessage)
		assert.Equal(t, "m1", c.LastMessageID)
	})

	t.Run("restore removes a conversation the send created", func(t *testing.T) {
		x := seededIndex()
		prev, existed := x.ApplyOutgoing(msg("temp-2", "alice", "erin", "hello", 10, model.StatusRead))
		assert.False(t, existed)
		x.Restore(prev, existed, "erin", "temp-2")
		_, ok := x.Get("erin")
		assert.False(t, ok)
	})

	t.Run("restore is skipped when a newer message arrived", func(t *testing.T) {
		x := seededIndex()
		prev, existed := x.ApplyOutgoing(msg("temp-3", "alice", "bob", "draft", 10, model.StatusRead))
		x.ApplyIncoming(msg("m4", "bob", "alice", "reply", 11, model.StatusUnread))
		x.Restore(prev, existed, "bob", "temp-3")

		c, _ := x.Get("bob")
		assert.Equal(t, "reply", c.LastMessage)
	})

	t.Run("server id replaces the provisional preview id", func(t *testing.T) {
		x := seededIndex()
		x.ApplyOutgoing(msg("temp-4", "alice", "carol", "sure", 10, model.StatusRead))
		x.ReplaceMessageID("carol", "temp-4", "m10")
		c, _ := x.Get("carol")
		assert.Equal(t, "m10", c.LastMessageID)
	})
}

func TestIndexUnread(t *testing.T) {
	t.Run("reset marks counted ids read and returns the server ids", func(t *testing.T) {
		x := seededIndex()
		x.ApplyIncoming(msg("live-1", "bob", "alice", "ping", 5, model.StatusUnread))
		require.Equal(t, 2, x.TotalUnread())

		assert.Equal(t, []string{"m1"}, x.ResetUnread("bob"))
		assert.Equal(t, 0, x.TotalUnread())
		assert.Empty(t, x.ResetUnread("bob"))
	})

	t.Run("mark read only drops ids that were counted", func(t *testing.T) {
		x := seededIndex()
		assert.Equal(t, 0, x.MarkRead("bob", "m0"))
		assert.Equal(t, 1, x.TotalUnread())
		assert.Equal(t, 1, x.MarkRead("bob", "m1", "m0"))
		assert.Equal(t, 0, x.TotalUnread())
		assert.Equal(t, 0, x.MarkRead("bob", "m1"))
	})

	t.Run("mark unread restores the count once", func(t *testing.T) {
		x := seededIndex()
		x.MarkRead("bob", "m1")
		x.MarkUnread("bob", "m1")
		x.MarkUnread("bob", "m1")
		assert.Equal(t, 1, x.TotalUnread())

		x.MarkUnread("nobody", "z1")
		assert.Equal(t, 1, x.TotalUnread())
	})

	t.Run("read stays local until a snapshot shows it read", func(t *testing.T) {
		x := seededIndex()
		x.MarkRead("bob", "m1")
		convs := x.Snapshot()
		received := []model.Interaction{
			msg("m1", "bob", "alice", "hi", 1, model.StatusUnread),
			msg("m2", "carol", "alice", "yo", 2, model.StatusRead),
		}

		x.Replace(convs, received)
		assert.Equal(t, 0, x.TotalUnread())

		received[0].Status = model.StatusRead
		x.Replace(convs, received)
		received[0].Status = model.StatusUnread
		x.Replace(convs, received)
		assert.Equal(t, 1, x.TotalUnread())
	})

	t.Run("live event already in the snapshot is not counted again", func(t *testing.T) {
		x := NewIndex("alice")
		a1 := msg("a1", "bob", "alice", "one", 1, model.StatusUnread)
		a2 := msg("a2", "bob", "alice", "two", 2, model.StatusUnread)
		x.Replace([]model.Conversation{
			{CounterpartID: "bob", CounterpartName: "Bob", LastMessage: "two", LastMessageID: "a2", LastAt: a2.CreatedAt},
		}, []model.Interaction{a1, a2})
		require.Equal(t, 2, x.TotalUnread())

		assert.False(t, x.ApplyIncoming(a1))
		assert.False(t, x.ApplyIncoming(a2))
		assert.Equal(t, 2, x.TotalUnread())
	})

	t.Run("live event read locally is not counted", func(t *testing.T) {
		x := seededIndex()
		x.MarkRead("bob", "m7")
		assert.True(t, x.ApplyIncoming(msg("m7", "bob", "alice", "seen", 7, model.StatusUnread)))
		assert.Equal(t, 1, x.TotalUnread())
	})
}

func TestIndexSubscribe(t *testing.T) {
	x := seededIndex()
	var got [][]model.Conversation
	cancel := x.Subscribe(func(convs []model.Conversation) {
		got = append(got, convs)
	})

	x.ResetUnread("bob")
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0][1].UnreadCount)

	cancel()
	x.MarkUnread("bob", "m1")
	assert.Len(t, got, 1)
}
