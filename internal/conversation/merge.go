package conversation

import (
	"sort"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

// SameMessage reports whether a and b describe the same message. Ids decide when both are
// server-issued; otherwise the sender, receiver, content and createdAt must all match.
func SameMessage(a, b *model.Interaction) bool {
	if a.ID == b.ID {
		return true
	}
	if !model.IsProvisionalID(a.ID) && !model.IsProvisionalID(b.ID) {
		return false
	}
	return a.SenderID == b.SenderID &&
		a.ReceiverID == b.ReceiverID &&
		a.Content == b.Content &&
		a.CreatedAt.Equal(b.CreatedAt)
}

// MergeThread reconciles incoming messages into an existing thread without duplicating any
// message. A server-issued entry replaces a provisional twin; between two entries with the
// same server id the incoming one wins. The result is ordered by createdAt, then id.
func MergeThread(existing, incoming []model.Interaction) []model.Interaction {
	out := make([]model.Interaction, len(existing), len(existing)+len(incoming))
	copy(out, existing)

	for i := range incoming {
		in := incoming[i]
		matched := false
		for j := range out {
			if !SameMessage(&out[j], &in) {
				continue
			}
			matched = true
			if !model.IsProvisionalID(in.ID) || model.IsProvisionalID(out[j].ID) {
				out[j] = in
			}
			break
		}
		if !matched {
			out = append(out, in)
		}
	}

	SortThread(out)
	return out
}

// SortThread orders messages for display: oldest first, equal timestamps by id.
func SortThread(msgs []model.Interaction) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return model.Less(&msgs[i], &msgs[j])
	})
}
