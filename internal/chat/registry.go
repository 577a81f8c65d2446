package chat

import (
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mingle/chat-app/internal/metrics"
	"github.com/mingle/chat-app/internal/protocol"
	"github.com/mingle/chat-app/internal/registry"
	"github.com/mingle/chat-app/internal/user"
)

// Registry owns the set of active sessions. A user belongs to at most one
// session at a time. All mutations happen under a single mutex; pushes to
// clients happen after it is released.
type Registry struct {
	mu     sync.Mutex
	byChat map[string]*Session
	byUser map[string]string // userID -> chatID

	conns  *registry.Registry
	buffer *MessageBuffer
}

// NewRegistry creates an empty session registry that pushes events through
// the given connection registry.
func NewRegistry(conns *registry.Registry) *Registry {
	return &Registry{
		byChat: make(map[string]*Session),
		byUser: make(map[string]string),
		conns:  conns,
		buffer: NewMessageBuffer(),
	}
}

// Create registers a new session between a and b. If either member is still
// in an older session (matched again before tearing the old one down), the
// older session is ended first and its partner notified with partner_left.
// A user is a member of at most one session.
func (r *Registry) Create(chatID string, a, b user.User) *Session {
	s := &Session{ID: chatID, UserA: a, UserB: b, CreatedAt: time.Now()}

	r.mu.Lock()
	displaced := make([]string, 0, 2)
	for _, member := range []string{a.ID, b.ID} {
		if partnerID, ok := r.endLocked(member); ok {
			displaced = append(displaced, partnerID)
		}
	}
	r.byChat[chatID] = s
	r.byUser[a.ID] = chatID
	r.byUser[b.ID] = chatID
	active := len(r.byChat)
	r.mu.Unlock()

	for _, partnerID := range displaced {
		r.conns.Send(partnerID, protocol.MustServerMessage(protocol.TypePartnerLeft, protocol.PartnerLeftMsg{}))
	}
	metrics.ActiveChats.Set(float64(active))
	return s
}

// Get returns the session for chatID, or nil if it does not exist.
func (r *Registry) Get(chatID string) *Session {
	r.mu.Lock()
	s := r.byChat[chatID]
	r.mu.Unlock()
	return s
}

// Relay mints a message from senderID and pushes it to the session partner.
// An unknown session, a sender that is not a member, or an absent partner
// handle all drop the message silently: the other side may have legitimately
// disappeared a moment earlier, which is a race, not a fault.
func (r *Registry) Relay(senderID, chatID, content string) (Message, bool) {
	r.mu.Lock()
	s, ok := r.byChat[chatID]
	if !ok {
		r.mu.Unlock()
		return Message{}, false
	}
	partner, ok := s.Partner(senderID)
	r.mu.Unlock()
	if !ok {
		return Message{}, false
	}

	msg := Message{
		ID:       uuid.New().String(),
		SenderID: senderID,
		Content:  content,
		SentAt:   time.Now(),
	}
	r.buffer.Add(chatID, BufferedMessage{From: senderID, Text: content, Ts: msg.SentAt.Unix()})

	delivered := r.conns.Send(partner.ID, protocol.MustServerMessage(protocol.TypeMessage, protocol.MessageMsg{
		ID:       msg.ID,
		SenderID: msg.SenderID,
		Content:  msg.Content,
		Ts:       msg.SentAt.Unix(),
	}))
	if delivered {
		metrics.MessagesTotal.WithLabelValues("relayed").Inc()
	} else {
		metrics.MessagesTotal.WithLabelValues("dropped").Inc()
	}
	return msg, delivered
}

// Leave ends the session if it exists and includes userID, notifying the
// partner with partner_left. Leaving an already-removed session is a silent
// no-op, so duplicate leave calls are safe.
func (r *Registry) Leave(userID, chatID string) {
	r.mu.Lock()
	s, ok := r.byChat[chatID]
	if !ok || !s.IsParticipant(userID) {
		r.mu.Unlock()
		return
	}
	partnerID, _ := r.endLocked(userID)
	active := len(r.byChat)
	r.mu.Unlock()

	r.conns.Send(partnerID, protocol.MustServerMessage(protocol.TypePartnerLeft, protocol.PartnerLeftMsg{}))
	metrics.ActiveChats.Set(float64(active))
	log.Printf("[chat] %s left chat=%s", userID, chatID)
}

// Disconnect tears down whatever session contains userID, notifying the
// partner. Called by the gateway exactly once per terminated connection.
func (r *Registry) Disconnect(userID string) {
	r.mu.Lock()
	partnerID, ok := r.endLocked(userID)
	active := len(r.byChat)
	r.mu.Unlock()
	if !ok {
		return
	}

	r.conns.Send(partnerID, protocol.MustServerMessage(protocol.TypePartnerLeft, protocol.PartnerLeftMsg{}))
	metrics.ActiveChats.Set(float64(active))
	log.Printf("[chat] %s disconnected from active chat", userID)
}

// Snapshot returns the buffered recent messages for a chat, oldest first.
// Used to attach conversation context to abuse reports.
func (r *Registry) Snapshot(chatID string) []BufferedMessage {
	return r.buffer.Get(chatID)
}

// Len returns the number of active sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	n := len(r.byChat)
	r.mu.Unlock()
	return n
}

// endLocked removes the session containing userID, if any, and returns the
// partner's identifier. Caller must hold r.mu.
func (r *Registry) endLocked(userID string) (partnerID string, ok bool) {
	chatID, ok := r.byUser[userID]
	if !ok {
		return "", false
	}
	s := r.byChat[chatID]
	partner, _ := s.Partner(userID)

	delete(r.byChat, chatID)
	delete(r.byUser, s.UserA.ID)
	delete(r.byUser, s.UserB.ID)
	r.buffer.Remove(chatID)
	return partner.ID, true
}
