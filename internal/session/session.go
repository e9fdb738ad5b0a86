// Package session ties the per-user conversation state to a login lifecycle.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/client"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/conversation"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/inbox"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/model"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/realtime"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/thread"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/internal/unread"
	"github.com/StudentProjectBazaar/ProjectBazaarsocketserver-sub001/pkg/logger"
)

// ErrNotLoggedIn is returned by operations that need an active user.
var ErrNotLoggedIn = errors.New("no active session")

// API is everything the session and its controllers call on the interaction client.
type API interface {
	thread.API
	ListReceived(ctx context.Context, userID string) ([]model.Interaction, error)
	ListBoth(ctx context.Context, userID string) client.Lists
	Profile(ctx context.Context, userID string) (model.Profile, error)
}

// Options tune a session.
type Options struct {
	// PresenceInterval enables periodic presence pings on the live channel when positive.
	PresenceInterval time.Duration
}

// Session holds the state of the signed-in user: the conversation index, the unread counter,
// the thread and inbox controllers, and the live channel subscription feeding them.
type Session struct {
	api      API
	channel  *realtime.Channel
	resolver *conversation.Resolver
	logger   *logger.Logger
	opts     Options

	mu           sync.Mutex
	userID       string
	index        *conversation.Index
	counter      *unread.Counter
	thread       *thread.Controller
	inbox        *inbox.Controller
	unsubscribe  func()
	stopPresence context.CancelFunc
}

// New creates a logged-out session.
func New(api API, channel *realtime.Channel, log *logger.Logger, opts Options) *Session {
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{
		api:      api,
		channel:  channel,
		resolver: conversation.NewResolver(api),
		logger:   log.Named("session"),
		opts:     opts,
	}
}

// Login makes userID the active user. Logging in as the active user is a no-op; logging in
// as someone else logs the current user out first. The live channel is best effort: a dial
// failure is logged and the session continues without live events. The returned error
// reports a failed first refresh; the session stays logged in.
func (s *Session) Login(ctx context.Context, userID string) error {
	if userID == "" {
		return fmt.Errorf("login: empty user id")
	}

	s.mu.Lock()
	if s.userID == userID {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	s.Logout()

	log := s.logger.With(zap.String("user_id", userID))
	index := conversation.NewIndex(userID)
	counter := unread.NewCounter(unread.FromTotal(index), log)
	th := thread.New(userID, s.api, index, counter, s.logger)
	ib := inbox.New(userID, s.api, index, counter, s.logger)

	s.mu.Lock()
	s.userID = userID
	s.index = index
	s.counter = counter
	s.thread = th
	s.inbox = ib
	s.mu.Unlock()

	if err := s.channel.SetUser(ctx, userID); err != nil {
		log.Warn("Live channel unavailable", zap.Error(err))
	}
	unsubscribe := s.channel.OnNewMessage(func(evt model.NewMessageEvent) {
		th.HandleNewMessage(context.Background(), evt)
	})

	presenceCtx, stop := context.WithCancel(context.Background())
	s.mu.Lock()
	s.unsubscribe = unsubscribe
	s.stopPresence = stop
	s.mu.Unlock()
	if s.opts.PresenceInterval > 0 {
		go s.presence(presenceCtx, userID)
	}

	log.Info("Session started")
	return s.Refresh(ctx)
}

// Logout tears down everything built by Login. It is safe to call when logged out.
func (s *Session) Logout() {
	s.mu.Lock()
	if s.userID == "" {
		s.mu.Unlock()
		return
	}
	userID := s.userID
	th, ib, counter := s.thread, s.inbox, s.counter
	unsubscribe, stop := s.unsubscribe, s.stopPresence
	s.userID = ""
	s.index, s.counter, s.thread, s.inbox = nil, nil, nil, nil
	s.unsubscribe, s.stopPresence = nil, nil
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if stop != nil {
		stop()
	}
	th.Close()
	ib.Close()
	counter.Close()
	s.channel.Close()

	s.logger.Info("Session ended", zap.String("user_id", userID))
}

// Refresh rebuilds the conversation list from both directions of the user's interactions
// and recomputes the unread counter. If either fetch fails, nothing is changed.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	userID, index, counter := s.userID, s.index, s.counter
	s.mu.Unlock()
	if userID == "" {
		return ErrNotLoggedIn
	}

	lists := s.api.ListBoth(ctx, userID)
	if err := errors.Join(lists.ReceivedErr, lists.SentErr); err != nil {
		s.logger.Warn("Failed to load conversations", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("failed to load conversations: %w", err)
	}

	convs := conversation.Build(ctx, userID, lists.Received, lists.Sent, s.resolver)

	s.mu.Lock()
	current := s.userID
	s.mu.Unlock()
	if current != userID {
		return nil
	}

	index.Replace(convs, lists.Received)
	return counter.Refresh(ctx)
}

func (s *Session) presence(ctx context.Context, userID string) {
	ticker := time.NewTicker(s.opts.PresenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.channel.Emit(string(model.EventPresence), model.PresenceEvent{UserID: userID, Timestamp: now.UTC()})
		}
	}
}

// UserID returns the active user, or "" when logged out.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// Conversations returns the current conversation list.
func (s *Session) Conversations() []model.Conversation {
	s.mu.Lock()
	index := s.index
	s.mu.Unlock()
	if index == nil {
		return nil
	}
	return index.Snapshot()
}

// Index returns the conversation index of the active user, or nil when logged out.
func (s *Session) Index() *conversation.Index {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

// Unread returns the unread counter of the active user, or nil when logged out.
func (s *Session) Unread() *unread.Counter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Thread returns the thread controller of the active user, or nil when logged out.
func (s *Session) Thread() *thread.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.thread
}

// Inbox returns the inbox controller of the active user, or nil when logged out.
func (s *Session) Inbox() *inbox.Controller {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inbox
}
