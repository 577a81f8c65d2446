// Package friend relays the friendship handshake between the two members of
// a chat session. The relay is stateless: the durable friend list is owned
// by the clients, and the server only forwards request, accept, reject, and
// removal events. Removal alone does not require an active session, since a
// friendship outlives the chat that created it.
package friend

import (
	"log"

	"github.com/mingle/chat-app/internal/chat"
	"github.com/mingle/chat-app/internal/metrics"
	"github.com/mingle/chat-app/internal/protocol"
	"github.com/mingle/chat-app/internal/registry"
	"github.com/mingle/chat-app/internal/user"
)

// Relay forwards friendship events. Session membership is resolved through
// the session registry; removal targets are resolved directly through the
// connection registry. Every path is fail-silent: an absent session or
// offline target drops the event.
type Relay struct {
	sessions *chat.Registry
	conns    *registry.Registry
}

// NewRelay creates a friend relay over the given registries.
func NewRelay(sessions *chat.Registry, conns *registry.Registry) *Relay {
	return &Relay{sessions: sessions, conns: conns}
}

// SendRequest forwards a friend request from the sender to their session
// partner.
func (r *Relay) SendRequest(from user.User, chatID string) {
	partnerID, ok := r.partner(from.ID, chatID)
	if !ok {
		return
	}
	r.conns.Send(partnerID, protocol.MustServerMessage(protocol.TypeFriendRequestReceived, protocol.FriendRequestReceivedMsg{
		FromUserID:   from.ID,
		FromUsername: from.Username,
		ChatID:       chatID,
	}))
	metrics.FriendEventsTotal.WithLabelValues("request").Inc()
	log.Printf("[friend] request from %s in chat=%s", from.ID, chatID)
}

// Accept forwards acceptance of a pending request back to the session
// partner who sent it.
func (r *Relay) Accept(by user.User, chatID string) {
	partnerID, ok := r.partner(by.ID, chatID)
	if !ok {
		return
	}
	r.conns.Send(partnerID, protocol.MustServerMessage(protocol.TypeFriendRequestAccepted, protocol.FriendRequestAcceptedMsg{
		ByUserID:   by.ID,
		ByUsername: by.Username,
	}))
	metrics.FriendEventsTotal.WithLabelValues("accept").Inc()
	log.Printf("[friend] %s accepted request in chat=%s", by.ID, chatID)
}

// Reject forwards rejection of a pending request back to the session
// partner who sent it.
func (r *Relay) Reject(by user.User, chatID string) {
	partnerID, ok := r.partner(by.ID, chatID)
	if !ok {
		return
	}
	r.conns.Send(partnerID, protocol.MustServerMessage(protocol.TypeFriendRequestRejected, protocol.FriendRequestRejectedMsg{
		ByUserID:   by.ID,
		ByUsername: by.Username,
	}))
	metrics.FriendEventsTotal.WithLabelValues("reject").Inc()
	log.Printf("[friend] %s rejected request in chat=%s", by.ID, chatID)
}

// Remove notifies friendID that the caller dissolved the friendship. The
// target is looked up in the connection registry, not a session: offline
// targets are a silent drop.
func (r *Relay) Remove(by user.User, friendID string) {
	sent := r.conns.Send(friendID, protocol.MustServerMessage(protocol.TypeFriendRemoved, protocol.FriendRemovedMsg{
		ByUserID:   by.ID,
		ByUsername: by.Username,
	}))
	if sent {
		metrics.FriendEventsTotal.WithLabelValues("remove").Inc()
		log.Printf("[friend] %s removed friend %s", by.ID, friendID)
	}
}

// partner resolves the caller's session partner, requiring the caller to be
// a member of the session.
func (r *Relay) partner(userID, chatID string) (string, bool) {
	s := r.sessions.Get(chatID)
	if s == nil {
		return "", false
	}
	p, ok := s.Partner(userID)
	if !ok {
		return "", false
	}
	return p.ID, true
}
