// Package chat holds the active two-party sessions and relays messages and
// teardown notifications between their members. Sessions are transient: the
// server keeps no chat history beyond a small in-memory snapshot buffer used
// for abuse reports.
package chat

import (
	"time"

	"github.com/mingle/chat-app/internal/user"
)

// Session is an active conversation between exactly two distinct members.
// The members are symmetric; there is no initiator/responder distinction.
// Sessions are immutable after creation.
type Session struct {
	ID        string
	UserA     user.User
	UserB     user.User
	CreatedAt time.Time
}

// Partner returns the member of the pair that is not userID.
func (s *Session) Partner(userID string) (user.User, bool) {
	switch userID {
	case s.UserA.ID:
		return s.UserB, true
	case s.UserB.ID:
		return s.UserA, true
	}
	return user.User{}, false
}

// IsParticipant reports whether userID is one of the two members.
func (s *Session) IsParticipant(userID string) bool {
	return userID == s.UserA.ID || userID == s.UserB.ID
}

// Message is a relayed chat message. It is minted on relay and handed to the
// transport for delivery only; no copy is retained beyond the report
// snapshot buffer.
type Message struct {
	ID       string
	SenderID string
	Content  string
	SentAt   time.Time
}
