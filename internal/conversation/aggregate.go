// Package conversation aggregates message interactions into per-counterpart conversations.
package conversation

import (
	"context"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

// ProfileLookup resolves a user id to display information.
type ProfileLookup interface {
	Profile(ctx context.Context, userID string) (model.Profile, error)
}

// Resolver wraps a ProfileLookup so that it never fails and caches successful lookups.
type Resolver struct {
	lookup ProfileLookup

	mu    sync.Mutex
	cache map[string]model.Profile
}

// NewResolver creates a resolver. A nil lookup resolves every user as unknown.
func NewResolver(lookup ProfileLookup) *Resolver {
	return &Resolver{
		lookup: lookup,
		cache:  make(map[string]model.Profile),
	}
}

// Resolve returns the profile of userID, or the unknown-user placeholder on any failure.
func (r *Resolver) Resolve(ctx context.Context, userID string) model.Profile {
	if r == nil || r.lookup == nil {
		return model.UnknownProfile()
	}

	r.mu.Lock()
	p, ok := r.cache[userID]
	r.mu.Unlock()
	if ok {
		return p
	}

	p, err := r.lookup.Profile(ctx, userID)
	if err != nil || p.Name == "" {
		return model.UnknownProfile()
	}

	r.mu.Lock()
	r.cache[userID] = p
	r.mu.Unlock()
	return p
}

// Build folds the received and sent interactions of selfID into conversations, one per
// counterpart, ordered by most recent message first.
//
// The last message of a conversation is the one with the greatest createdAt; equal timestamps
// are broken by the greater interaction id. Conversations with equal lastAt are ordered by
// counterpart id.
func Build(ctx context.Context, selfID string, received, sent []model.Interaction, resolver *Resolver) []model.Conversation {
	seen := make(map[string]struct{}, len(received)+len(sent))
	groups := make(map[string]*group)
	var order []string

	for _, list := range [][]model.Interaction{received, sent} {
		for i := range list {
			in := &list[i]
			if in.Type != model.TypeMessage {
				continue
			}
			if _, dup := seen[in.ID]; dup {
				continue
			}
			seen[in.ID] = struct{}{}

			counterpart := in.Counterpart(selfID)
			g, ok := groups[counterpart]
			if !ok {
				g = &group{}
				groups[counterpart] = g
				order = append(order, counterpart)
			}
			g.add(selfID, in)
		}
	}

	convs := make([]model.Conversation, len(order))
	var eg errgroup.Group
	eg.SetLimit(8)
	for i, counterpart := range order {
		g := groups[counterpart]
		convs[i] = model.Conversation{
			CounterpartID: counterpart,
			LastMessage:   g.last.Content,
			LastMessageID: g.last.ID,
			LastAt:        g.last.CreatedAt,
			UnreadCount:   g.unread,
		}
		if g.name != "" {
			convs[i].CounterpartName = g.name
			convs[i].CounterpartImage = g.image
			continue
		}
		eg.Go(func() error {
			p := resolver.Resolve(ctx, counterpart)
			convs[i].CounterpartName = p.Name
			convs[i].CounterpartImage = p.Image
			return nil
		})
	}
	_ = eg.Wait()

	Sort(convs)
	return convs
}

// Sort orders conversations by lastAt descending, then by counterpart id.
func Sort(convs []model.Conversation) {
	sort.SliceStable(convs, func(i, j int) bool {
		if !convs[i].LastAt.Equal(convs[j].LastAt) {
			return convs[i].LastAt.After(convs[j].LastAt)
		}
		return convs[i].CounterpartID < convs[j].CounterpartID
	})
}

type group struct {
	last   *model.Interaction
	unread int
	name   string
	image  string
}

func (g *group) add(selfID string, in *model.Interaction) {
	if g.last == nil || model.Less(g.last, in) {
		g.last = in
	}
	if in.IsIncomingUnread(selfID) {
		g.unread++
	}
	if in.SenderID != selfID && in.SenderName != "" && g.name == "" {
		g.name = in.SenderName
		g.image = in.SenderImage
	}
}
