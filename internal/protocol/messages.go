// Package protocol defines the WebSocket message types and structures used
// for communication between the client and server. All messages are
// serialized as JSON and follow a consistent envelope format with a type
// discriminator.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/mingle/chat-app/internal/user"
)

// ---------------------------------------------------------------------------
// Message type constants
// ---------------------------------------------------------------------------

// Client -> Server message types.
const (
	TypeFindMatch           = "find_match"
	TypeCancelMatch         = "cancel_match"
	TypeSendMessage         = "send_message"
	TypeLeaveChat           = "leave_chat"
	TypeSendFriendRequest   = "send_friend_request"
	TypeAcceptFriendRequest = "accept_friend_request"
	TypeRejectFriendRequest = "reject_friend_request"
	TypeRemoveFriend        = "remove_friend"
	TypeReport              = "report"
	TypePing                = "ping"
)

// Server -> Client message types.
const (
	TypeConnected             = "connected"
	TypeMatchingStarted       = "matching_started"
	TypeMatchFound            = "match_found"
	TypeMatchError            = "match_error"
	TypeMatchTimeout          = "match_timeout"
	TypeMessage               = "message"
	TypePartnerLeft           = "partner_left"
	TypeFriendRequestReceived = "friend_request_received"
	TypeFriendRequestAccepted = "friend_request_accepted"
	TypeFriendRequestRejected = "friend_request_rejected"
	TypeFriendRemoved         = "friend_removed"
	TypeRateLimited           = "rate_limited"
	TypeBanned                = "banned"
	TypeError                 = "error"
	TypePong                  = "pong"
)

// ReasonPremiumRequired is the single policy-violation reason surfaced
// synchronously to a find_match caller whose own profile/filter combination
// violates the premium search gate.
const ReasonPremiumRequired = "PREMIUM_REQUIRED"

// ---------------------------------------------------------------------------
// Envelope — used for initial JSON parsing to extract the type discriminator.
// ---------------------------------------------------------------------------

// Envelope holds the message type and the raw JSON payload for deferred
// parsing into a concrete struct.
type Envelope struct {
	Type string          `json:"type"`
	Raw  json.RawMessage `json:"-"`
}

// UnmarshalJSON captures the full raw bytes and extracts only the "type"
// field so that the rest of the payload can be decoded later into the
// appropriate concrete struct.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	e.Raw = make(json.RawMessage, len(data))
	copy(e.Raw, data)

	var partial struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &partial); err != nil {
		return fmt.Errorf("protocol: failed to unmarshal envelope: %w", err)
	}
	if partial.Type == "" {
		return fmt.Errorf("protocol: missing or empty \"type\" field")
	}
	e.Type = partial.Type
	return nil
}

// ---------------------------------------------------------------------------
// Client -> Server message structs
// ---------------------------------------------------------------------------

// FindMatchMsg is sent by the client to search for a chat partner. The
// filters constrain the counterpart; the caller's own profile was supplied
// at connect time.
type FindMatchMsg struct {
	Type      string      `json:"type"`
	Gender    user.Gender `json:"gender,omitempty"`
	Interests []string    `json:"interests,omitempty"`
}

// Filters returns the search criteria carried by the message.
func (m FindMatchMsg) Filters() user.MatchFilters {
	return user.MatchFilters{Gender: m.Gender, Interests: m.Interests}
}

// CancelMatchMsg is sent by the client to leave the matching queue.
type CancelMatchMsg struct {
	Type string `json:"type"`
}

// SendMessageMsg is a text message sent by the client within a chat session.
type SendMessageMsg struct {
	Type    string `json:"type"`
	ChatID  string `json:"chat_id"`
	Content string `json:"content"`
}

// LeaveChatMsg is sent by the client to leave an active chat session.
type LeaveChatMsg struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
}

// SendFriendRequestMsg asks the server to forward a friend request to the
// caller's current session partner.
type SendFriendRequestMsg struct {
	Type           string `json:"type"`
	ChatID         string `json:"chat_id"`
	TargetUserID   string `json:"target_user_id"`
	TargetUsername string `json:"target_username"`
}

// AcceptFriendRequestMsg is the positive reply to an earlier friend request,
// correlated back to the session that spawned it.
type AcceptFriendRequestMsg struct {
	Type         string `json:"type"`
	FromUserID   string `json:"from_user_id"`
	FromUsername string `json:"from_username"`
	ChatID       string `json:"chat_id"`
}

// RejectFriendRequestMsg is the negative reply to an earlier friend request.
type RejectFriendRequestMsg struct {
	Type         string `json:"type"`
	FromUserID   string `json:"from_user_id"`
	FromUsername string `json:"from_username"`
	ChatID       string `json:"chat_id"`
}

// RemoveFriendMsg notifies a former chat partner that the friendship was
// dissolved. It does not require an active session.
type RemoveFriendMsg struct {
	Type           string `json:"type"`
	FriendID       string `json:"friend_id"`
	FriendUsername string `json:"friend_username"`
}

// ReportMsg is sent by the client to report the chat partner.
type ReportMsg struct {
	Type   string `json:"type"`
	ChatID string `json:"chat_id"`
	Reason string `json:"reason"`
}

// PingMsg is a client-initiated keepalive ping.
type PingMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Server -> Client message structs
// ---------------------------------------------------------------------------

// ConnectedMsg is sent once after a successful connect, confirming the
// identifier under which the connection was registered.
type ConnectedMsg struct {
	Type   string `json:"type"`
	UserID string `json:"user_id"`
}

// MatchingStartedMsg confirms the client has entered the matching queue.
// Timeout is the queue give-up deadline in seconds.
type MatchingStartedMsg struct {
	Type    string `json:"type"`
	Timeout int    `json:"timeout"`
}

// MatchFoundMsg is sent to both parties when a compatible partner has been
// found. User carries the counterpart's public profile; the interest list is
// intentionally not disclosed.
type MatchFoundMsg struct {
	Type   string      `json:"type"`
	ChatID string      `json:"chat_id"`
	User   user.Public `json:"user"`
}

// MatchErrorMsg is the synchronous rejection of a find_match request.
type MatchErrorMsg struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// MatchTimeoutMsg is sent when the matching queue gave up without finding a
// partner.
type MatchTimeoutMsg struct {
	Type string `json:"type"`
}

// MessageMsg is a chat message relayed from the partner.
type MessageMsg struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	SenderID string `json:"sender_id"`
	Content  string `json:"content"`
	Ts       int64  `json:"ts"`
}

// PartnerLeftMsg is sent when the chat partner has left or disconnected.
type PartnerLeftMsg struct {
	Type string `json:"type"`
}

// FriendRequestReceivedMsg is relayed to the session partner of the request
// sender.
type FriendRequestReceivedMsg struct {
	Type         string `json:"type"`
	FromUserID   string `json:"from_user_id"`
	FromUsername string `json:"from_username"`
	ChatID       string `json:"chat_id"`
}

// FriendRequestAcceptedMsg is relayed back to the original request sender.
type FriendRequestAcceptedMsg struct {
	Type       string `json:"type"`
	ByUserID   string `json:"by_user_id"`
	ByUsername string `json:"by_username"`
}

// FriendRequestRejectedMsg is relayed back to the original request sender.
type FriendRequestRejectedMsg struct {
	Type       string `json:"type"`
	ByUserID   string `json:"by_user_id"`
	ByUsername string `json:"by_username"`
}

// FriendRemovedMsg notifies a user that a former partner removed them from
// their friend list.
type FriendRemovedMsg struct {
	Type       string `json:"type"`
	ByUserID   string `json:"by_user_id"`
	ByUsername string `json:"by_username"`
}

// RateLimitedMsg is sent when the client has exceeded a rate-limit window.
type RateLimitedMsg struct {
	Type       string `json:"type"`
	RetryAfter int    `json:"retry_after"`
}

// BannedMsg is sent when the client is refused service due to an active ban.
// Duration is the remaining ban time in seconds.
type BannedMsg struct {
	Type     string `json:"type"`
	Duration int    `json:"duration"`
	Reason   string `json:"reason"`
}

// ErrorMsg communicates an error condition to the client.
type ErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// PongMsg is the server's response to a client ping.
type PongMsg struct {
	Type string `json:"type"`
}

// ---------------------------------------------------------------------------
// Helper functions
// ---------------------------------------------------------------------------

// ParseClientMessage parses raw WebSocket bytes into a typed client message.
// It returns the message type string, the decoded struct, and any error
// encountered during parsing. An error is returned for unknown or
// server-only message types.
func ParseClientMessage(data []byte) (string, interface{}, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", nil, fmt.Errorf("protocol: failed to parse message: %w", err)
	}

	var (
		msg interface{}
		err error
	)

	switch env.Type {
	case TypeFindMatch:
		var m FindMatchMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeCancelMatch:
		var m CancelMatchMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSendMessage:
		var m SendMessageMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeLeaveChat:
		var m LeaveChatMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeSendFriendRequest:
		var m SendFriendRequestMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeAcceptFriendRequest:
		var m AcceptFriendRequestMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeRejectFriendRequest:
		var m RejectFriendRequestMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeRemoveFriend:
		var m RemoveFriendMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypeReport:
		var m ReportMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	case TypePing:
		var m PingMsg
		err = json.Unmarshal(env.Raw, &m)
		msg = m
	default:
		return env.Type, nil, fmt.Errorf("protocol: unknown client message type: %q", env.Type)
	}

	if err != nil {
		return env.Type, nil, fmt.Errorf("protocol: failed to decode %q payload: %w", env.Type, err)
	}
	return env.Type, msg, nil
}

// NewServerMessage creates a JSON-encoded byte slice for a server message.
// The msgType is injected into the payload under the "type" key. The payload
// should be one of the server message structs above.
func NewServerMessage(msgType string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal payload: %w", err)
	}

	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("protocol: failed to unmarshal payload into map: %w", err)
	}

	m["type"] = msgType

	out, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("protocol: failed to marshal server message: %w", err)
	}
	return out, nil
}

// MustServerMessage is NewServerMessage for payloads that cannot fail to
// marshal (all server message structs above). It panics on error, which
// indicates a programming bug rather than a runtime condition.
func MustServerMessage(msgType string, payload interface{}) []byte {
	data, err := NewServerMessage(msgType, payload)
	if err != nil {
		panic(err)
	}
	return data
}
