package matching

import (
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/mingle/chat-app/internal/chat"
	"github.com/mingle/chat-app/internal/metrics"
	"github.com/mingle/chat-app/internal/protocol"
	"github.com/mingle/chat-app/internal/registry"
	"github.com/mingle/chat-app/internal/user"
)

// DefaultSearchTimeout is how long a searcher waits in the queue before the
// server gives up and sends match_timeout.
const DefaultSearchTimeout = 30 * time.Second

// Service pairs searchers into chat sessions. It owns the waiting queue and
// collaborates with the session registry (to create matched sessions) and
// the connection registry (to push results). All queue decisions happen
// under the queue lock; pushes to clients happen after it is released so a
// slow client cannot stall matching throughput.
type Service struct {
	queue    *Queue
	sessions *chat.Registry
	conns    *registry.Registry
	timeout  time.Duration
}

// NewService creates a matching service. A non-positive timeout selects
// DefaultSearchTimeout; tests inject short timeouts.
func NewService(sessions *chat.Registry, conns *registry.Registry, timeout time.Duration) *Service {
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	return &Service{
		queue:    NewQueue(),
		sessions: sessions,
		conns:    conns,
		timeout:  timeout,
	}
}

// FindMatch handles one search request. The premium gate is checked first,
// before any queue mutation: a gated request is rejected synchronously with
// match_error and leaves the queue untouched. Otherwise the request either
// matches the longest-waiting compatible searcher (creating the session and
// notifying both sides) or joins the queue with a search timeout.
func (s *Service) FindMatch(u user.User, f user.MatchFilters) {
	if RequiresPremium(u, f) {
		s.conns.Send(u.ID, protocol.MustServerMessage(protocol.TypeMatchError, protocol.MatchErrorMsg{
			Reason: protocol.ReasonPremiumRequired,
		}))
		log.Printf("[match] rejected %s: %s", u.ID, protocol.ReasonPremiumRequired)
		return
	}

	candidate, matched := s.queue.TakeMatch(u, f, func(e *Entry) {
		e.timer = time.AfterFunc(s.timeout, func() { s.expire(e) })
	})
	metrics.MatchQueueSize.Set(float64(s.queue.Len()))

	if !matched {
		s.conns.Send(u.ID, protocol.MustServerMessage(protocol.TypeMatchingStarted, protocol.MatchingStartedMsg{
			Timeout: int(s.timeout / time.Second),
		}))
		log.Printf("[match] %s queued (queue size: %d)", u.ID, s.queue.Len())
		return
	}

	chatID := uuid.New().String()
	s.sessions.Create(chatID, u, candidate.User)

	s.conns.Send(u.ID, protocol.MustServerMessage(protocol.TypeMatchFound, protocol.MatchFoundMsg{
		ChatID: chatID,
		User:   candidate.User.Public(),
	}))
	s.conns.Send(candidate.User.ID, protocol.MustServerMessage(protocol.TypeMatchFound, protocol.MatchFoundMsg{
		ChatID: chatID,
		User:   u.Public(),
	}))

	metrics.MatchesTotal.Inc()
	metrics.MatchDuration.Observe(time.Since(candidate.EnqueuedAt).Seconds())
	log.Printf("[match] paired %s <-> %s chat=%s (waited %s)",
		u.ID, candidate.User.ID, chatID, time.Since(candidate.EnqueuedAt).Round(time.Millisecond))
}

// Cancel removes the user's queue entry, if any. Cancelling an identifier
// that is not queued is a silent no-op.
func (s *Service) Cancel(userID string) {
	if s.queue.Remove(userID) {
		metrics.MatchQueueSize.Set(float64(s.queue.Len()))
		log.Printf("[match] %s cancelled search", userID)
	}
}

// Disconnect removes any queue entry for the user. No notification is sent;
// the connection is already gone.
func (s *Service) Disconnect(userID string) {
	if s.queue.Remove(userID) {
		metrics.MatchQueueSize.Set(float64(s.queue.Len()))
		log.Printf("[match] %s removed from queue (disconnected)", userID)
	}
}

// QueueLen returns the number of waiting searchers.
func (s *Service) QueueLen() int {
	return s.queue.Len()
}

// expire runs in the timeout timer's goroutine. Queue.Expire revalidates the
// entry under the lock, so a timer firing after the entry was matched,
// cancelled, or replaced does nothing.
func (s *Service) expire(e *Entry) {
	if !s.queue.Expire(e) {
		return
	}
	metrics.MatchQueueSize.Set(float64(s.queue.Len()))
	s.conns.Send(e.User.ID, protocol.MustServerMessage(protocol.TypeMatchTimeout, protocol.MatchTimeoutMsg{}))
	log.Printf("[match] %s timed out after %s", e.User.ID, s.timeout)
}
