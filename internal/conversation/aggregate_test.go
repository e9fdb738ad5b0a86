package conversation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

type fakeProfiles struct {
	profiles map[string]model.Profile
	calls    map[string]int
}

func (f *fakeProfiles) Profile(_ context.Context, userID string) (model.Profile, error) {
	if f.calls != nil {
		f.calls[userID]++
	}
	p, ok := f.profiles[userID]
	if !ok {
		return model.Profile{}, errors.New("profile not found")
	}
	return p, nil
}

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

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

func TestBuild(t *testing.T) {
	ctx := context.Background()
	resolver := NewResolver(&fakeProfiles{profiles: map[string]model.Profile{
		"bob":   {Name: "Bob", Image: "bob.png"},
		"carol": {Name: "Carol"},
	}})

	received := []model.Interaction{
		msg("m1", "bob", "alice", "hi alice", 1, model.StatusUnread),
		msg("m2", "bob", "alice", "are you there", 2, model.StatusNone),
		msg("m3", "carol", "alice", "ping", 5, model.StatusRead),
		msg("m4", "dave", "alice", "yo", 3, model.StatusUnread),
		{ID: "inv1", Type: model.TypeInvitation, SenderID: "erin", ReceiverID: "alice", Status: model.StatusPending, CreatedAt: base},
		{ID: "rev1", Type: model.TypeReview, SenderID: "frank", TargetID: "alice", Rating: 5, CreatedAt: base},
	}
	sent := []model.Interaction{
		msg("m5", "alice", "bob", "yes", 4, model.StatusUnread),
		msg("m1", "bob", "alice", "hi alice", 1, model.StatusUnread),
	}

	convs := Build(ctx, "alice", received, sent, resolver)
	require.Len(t, convs, 3)

	t.Run("one entry per counterpart ordered by last activity", func(t *testing.T) {
		ids := []string{convs[0].CounterpartID, convs[1].CounterpartID, convs[2].CounterpartID}
		assert.Equal(t, []string{"carol", "bob", "dave"}, ids)
		for i := 1; i < len(convs); i++ {
			assert.False(t, convs[i].LastAt.After(convs[i-1].LastAt))
		}
	})

	t.Run("last message and unread count", func(t *testing.T) {
		bob := convs[1]
		assert.Equal(t, "yes", bob.LastMessage)
		assert.Equal(t, "m5", bob.LastMessageID)
		assert.Equal(t, 2, bob.UnreadCount)
		assert.Equal(t, "Bob", bob.CounterpartName)
		assert.Equal(t, "bob.png", bob.CounterpartImage)

		assert.Equal(t, 0, convs[0].UnreadCount)
	})

	t.Run("unresolvable profile falls back to unknown user", func(t *testing.T) {
		assert.Equal(t, model.UnknownUserName, convs[2].CounterpartName)
		assert.Empty(t, convs[2].CounterpartImage)
	})

	t.Run("unread count equals incoming unread messages", func(t *testing.T) {
		total := 0
		for _, c := range convs {
			total += c.UnreadCount
		}
		assert.Equal(t, 3, total)
	})
}

func TestBuildTieBreaks(t *testing.T) {
	ctx := context.Background()

	t.Run("equal timestamps pick the larger id as last message", func(t *testing.T) {
		convs := Build(ctx, "alice", []model.Interaction{
			msg("a", "bob", "alice", "first", 1, model.StatusRead),
			msg("b", "bob", "alice", "second", 1, model.StatusRead),
		}, nil, nil)
		require.Len(t, convs, 1)
		assert.Equal(t, "second", convs[0].LastMessage)
	})

	t.Run("equal last activity orders by counterpart id", func(t *testing.T) {
		convs := Build(ctx, "alice", []model.Interaction{
			msg("a", "zed", "alice", "z", 1, model.StatusRead),
			msg("b", "amy", "alice", "a", 1, model.StatusRead),
		}, nil, nil)
		require.Len(t, convs, 2)
		assert.Equal(t, "amy", convs[0].CounterpartID)
		assert.Equal(t, "zed", convs[1].CounterpartID)
	})

	t.Run("denormalized sender name skips the lookup", func(t *testing.T) {
		profiles := &fakeProfiles{calls: map[string]int{}}
		in := msg("a", "bob", "alice", "hi", 1, model.StatusRead)
		in.SenderName = "Bobby"

		convs := Build(ctx, "alice", []model.Interaction{in}, nil, NewResolver(profiles))
		require.Len(t, convs, 1)
		assert.Equal(t, "Bobby", convs[0].CounterpartName)
		assert.Zero(t, profiles.calls["bob"])
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Build(ctx, "alice", nil, nil, nil))
	})
}

func TestResolverCachesSuccess(t *testing.T) {
	profiles := &fakeProfiles{
		profiles: map[string]model.Profile{"bob": {Name: "Bob"}},
		calls:    map[string]int{},
	}
	r := NewResolver(profiles)
	ctx := context.Background()

	assert.Equal(t, "Bob", r.Resolve(ctx, "bob").Name)
	assert.Equal(t, "Bob", r.Resolve(ctx, "bob").Name)
	assert.Equal(t, 1, profiles.calls["bob"])

	assert.Equal(t, model.UnknownUserName, r.Resolve(ctx, "ghost").Name)
	assert.Equal(t, model.UnknownUserName, r.Resolve(ctx, "ghost").Name)
	assert.Equal(t, 2, profiles.calls["ghost"])
}
