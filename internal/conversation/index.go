package conversation

import (
	"sync"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
)

// Index holds the current conversation list of one user and patches it with live events
// between snapshot rebuilds. Observers are notified after every change.
//
// Unread counts are derived from the set of message ids counted unread per counterpart.
// Ids marked read locally stay out of the count until a snapshot confirms them read, so a
// rebuild racing an in-flight mark-read does not bring the badge back.
type Index struct {
	selfID string

	mu        sync.RWMutex
	convs     []model.Conversation
	applied   map[string]struct{}
	unread    map[string]map[string]struct{}
	readLocal map[string]struct{}
	observers map[int]func([]model.Conversation)
	nextID    int
}

// NewIndex creates an empty index for selfID.
func NewIndex(selfID string) *Index {
	return &Index{
		selfID:    selfID,
		applied:   make(map[string]struct{}),
		unread:    make(map[string]map[string]struct{}),
		readLocal: make(map[string]struct{}),
		observers: make(map[int]func([]model.Conversation)),
	}
}

// SelfID returns the user the index belongs to.
func (x *Index) SelfID() string {
	return x.selfID
}

// Replace swaps in a freshly built conversation list. received is the snapshot the list was
// built from: its messages are treated as applied, and its unread messages make up the unread
// counts, minus those marked read locally that the snapshot does not show read yet.
func (x *Index) Replace(convs []model.Conversation, received []model.Interaction) {
	next := make([]model.Conversation, len(convs))
	copy(next, convs)
	Sort(next)

	x.mu.Lock()
	for id := range x.readLocal {
		if model.IsProvisionalID(id) {
			delete(x.readLocal, id)
		}
	}
	applied := make(map[string]struct{}, len(received))
	unread := make(map[string]map[string]struct{})
	for i := range received {
		in := &received[i]
		if in.Type != model.TypeMessage || in.ReceiverID != x.selfID {
			continue
		}
		applied[in.ID] = struct{}{}
		if !in.Status.IsUnread() {
			delete(x.readLocal, in.ID)
			continue
		}
		if _, read := x.readLocal[in.ID]; read {
			continue
		}
		cp := in.Counterpart(x.selfID)
		if unread[cp] == nil {
			unread[cp] = make(map[string]struct{})
		}
		unread[cp][in.ID] = struct{}{}
	}
	x.convs = next
	x.applied = applied
	x.unread = unread
	for i := range x.convs {
		x.sync(i)
	}
	x.mu.Unlock()
	x.notify()
}

// ApplyIncoming records a message received from a counterpart. The conversation preview moves
// forward when the message is newer, and an unread message joins the unread count unless it
// was marked read locally. A message already applied since the last Replace, or already shown
// as the preview, is ignored.
func (x *Index) ApplyIncoming(msg model.Interaction) bool {
	counterpart := msg.Counterpart(x.selfID)

	x.mu.Lock()
	if _, dup := x.applied[msg.ID]; dup {
		x.mu.Unlock()
		return false
	}
	i := x.find(counterpart)
	if i < 0 {
		name, image := msg.SenderName, msg.SenderImage
		if name == "" {
			name = model.UnknownUserName
		}
		x.convs = append(x.convs, model.Conversation{
			CounterpartID:    counterpart,
			CounterpartName:  name,
			CounterpartImage: image,
		})
		i = len(x.convs) - 1
	} else if x.convs[i].LastMessageID == msg.ID {
		x.mu.Unlock()
		return false
	}

	x.applied[msg.ID] = struct{}{}
	advance(&x.convs[i], &msg)
	if _, read := x.readLocal[msg.ID]; !read && msg.IsIncomingUnread(x.selfID) {
		x.addUnread(counterpart, msg.ID)
	}
	x.sync(i)
	Sort(x.convs)
	x.mu.Unlock()

	x.notify()
	return true
}

// ApplyOutgoing records a message sent by the index owner. It returns the previous state of
// the conversation and whether it existed, for use with Restore.
func (x *Index) ApplyOutgoing(msg model.Interaction) (model.Conversation, bool) {
	counterpart := msg.Counterpart(x.selfID)

	x.mu.Lock()
	var prev model.Conversation
	i := x.find(counterpart)
	existed := i >= 0
	if existed {
		prev = x.convs[i]
	} else {
		x.convs = append(x.convs, model.Conversation{
			CounterpartID:   counterpart,
			CounterpartName: model.UnknownUserName,
		})
		i = len(x.convs) - 1
	}
	advance(&x.convs[i], &msg)
	x.sync(i)
	Sort(x.convs)
	x.mu.Unlock()

	x.notify()
	return prev, existed
}

// Restore undoes an outgoing preview update, provided the preview still shows the message
// identified by provisionalID. Unread counts that changed in the meantime are kept.
func (x *Index) Restore(prev model.Conversation, existed bool, counterpartID, provisionalID string) {
	x.mu.Lock()
	i := x.find(counterpartID)
	if i < 0 || x.convs[i].LastMessageID != provisionalID {
		x.mu.Unlock()
		return
	}
	if existed {
		unread := x.convs[i].UnreadCount
		x.convs[i] = prev
		x.convs[i].UnreadCount = unread
	} else if x.convs[i].UnreadCount == 0 {
		x.convs = append(x.convs[:i], x.convs[i+1:]...)
	} else {
		x.convs[i].LastMessage = ""
		x.convs[i].LastMessageID = ""
	}
	Sort(x.convs)
	x.mu.Unlock()

	x.notify()
}

// ReplaceMessageID rewrites a provisional preview id once the server has assigned one.
func (x *Index) ReplaceMessageID(counterpartID, oldID, newID string) {
	x.mu.Lock()
	i := x.find(counterpartID)
	if i < 0 || x.convs[i].LastMessageID != oldID {
		x.mu.Unlock()
		return
	}
	x.convs[i].LastMessageID = newID
	x.mu.Unlock()
	x.notify()
}

// MarkRead records ids as read locally and drops them from the counterpart's unread count.
// It returns how many of them were counted unread.
func (x *Index) MarkRead(counterpartID string, ids ...string) int {
	x.mu.Lock()
	n := 0
	set := x.unread[counterpartID]
	for _, id := range ids {
		x.readLocal[id] = struct{}{}
		if _, ok := set[id]; ok {
			delete(set, id)
			n++
		}
	}
	if n == 0 {
		x.mu.Unlock()
		return 0
	}
	if i := x.find(counterpartID); i >= 0 {
		x.sync(i)
	}
	x.mu.Unlock()

	x.notify()
	return n
}

// MarkUnread undoes MarkRead for ids whose read was not persisted.
func (x *Index) MarkUnread(counterpartID string, ids ...string) {
	if len(ids) == 0 {
		return
	}

	x.mu.Lock()
	i := x.find(counterpartID)
	for _, id := range ids {
		delete(x.readLocal, id)
		if i >= 0 {
			x.addUnread(counterpartID, id)
		}
	}
	if i < 0 {
		x.mu.Unlock()
		return
	}
	x.sync(i)
	x.mu.Unlock()

	x.notify()
}

// ResetUnread clears the unread count of a conversation. Every id counted is marked read
// locally; the server ids among them are returned so the caller can persist the read.
func (x *Index) ResetUnread(counterpartID string) []string {
	x.mu.Lock()
	set := x.unread[counterpartID]
	if len(set) == 0 {
		x.mu.Unlock()
		return nil
	}
	var ids []string
	for id := range set {
		x.readLocal[id] = struct{}{}
		if !model.IsProvisionalID(id) {
			ids = append(ids, id)
		}
	}
	delete(x.unread, counterpartID)
	if i := x.find(counterpartID); i >= 0 {
		x.sync(i)
	}
	x.mu.Unlock()

	x.notify()
	return ids
}

// Get returns the conversation with counterpartID.
func (x *Index) Get(counterpartID string) (model.Conversation, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if i := x.find(counterpartID); i >= 0 {
		return x.convs[i], true
	}
	return model.Conversation{}, false
}

// Snapshot returns a copy of the current conversation list.
func (x *Index) Snapshot() []model.Conversation {
	x.mu.RLock()
	defer x.mu.RUnlock()

	out := make([]model.Conversation, len(x.convs))
	copy(out, x.convs)
	return out
}

// TotalUnread sums the unread counts of all conversations.
func (x *Index) TotalUnread() int {
	x.mu.RLock()
	defer x.mu.RUnlock()

	total := 0
	for _, c := range x.convs {
		total += c.UnreadCount
	}
	return total
}

// Subscribe registers fn to receive the conversation list after every change.
func (x *Index) Subscribe(fn func([]model.Conversation)) func() {
	x.mu.Lock()
	id := x.nextID
	x.nextID++
	x.observers[id] = fn
	x.mu.Unlock()

	return func() {
		x.mu.Lock()
		delete(x.observers, id)
		x.mu.Unlock()
	}
}

func (x *Index) notify() {
	x.mu.RLock()
	if len(x.observers) == 0 {
		x.mu.RUnlock()
		return
	}
	snapshot := make([]model.Conversation, len(x.convs))
	copy(snapshot, x.convs)
	fns := make([]func([]model.Conversation), 0, len(x.observers))
	for _, fn := range x.observers {
		fns = append(fns, fn)
	}
	x.mu.RUnlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

func (x *Index) find(counterpartID string) int {
	for i := range x.convs {
		if x.convs[i].CounterpartID == counterpartID {
			return i
		}
	}
	return -1
}

// advance moves the preview to msg when msg is not older than the current last message.
func advance(c *model.Conversation, msg *model.Interaction) {
	if c.LastMessageID != "" {
		last := model.Interaction{ID: c.LastMessageID, CreatedAt: c.LastAt}
		if model.Less(msg, &last) {
			return
		}
	}
	c.LastMessage = msg.Content
	c.LastMessageID = msg.ID
	c.LastAt = msg.CreatedAt
}

func (x *Index) addUnread(counterpartID, id string) {
	set := x.unread[counterpartID]
	if set == nil {
		set = make(map[string]struct{})
		x.unread[counterpartID] = set
	}
	set[id] = struct{}{}
}

// sync sets the unread count of convs[i] from its unread id set.
func (x *Index) sync(i int) {
	x.convs[i].UnreadCount = len(x.unread[x.convs[i].CounterpartID])
}
