package friend

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/mingle/chat-app/internal/chat"
	"github.com/mingle/chat-app/internal/protocol"
	"github.com/mingle/chat-app/internal/registry"
	"github.com/mingle/chat-app/internal/user"
)

type fakeHandle struct {
	mu     sync.Mutex
	frames []map[string]interface{}
}

func (h *fakeHandle) WriteMessage(data []byte) error {
	var m map[string]interface{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	h.mu.Lock()
	h.frames = append(h.frames, m)
	h.mu.Unlock()
	return nil
}

func (h *fakeHandle) last() map[string]interface{} {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.frames) == 0 {
		return nil
	}
	return h.frames[len(h.frames)-1]
}

func (h *fakeHandle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.frames)
}

func alice() user.User {
	return user.User{ID: "alice", Username: "Alice", Gender: user.GenderFemale}
}

func bob() user.User {
	return user.User{ID: "bob", Username: "Bob", Gender: user.GenderMale}
}

func newTestRelay(t *testing.T) (*Relay, *chat.Registry, map[string]*fakeHandle) {
	t.Helper()
	conns := registry.New()
	handles := map[string]*fakeHandle{}
	for _, id := range []string{"alice", "bob", "carol"} {
		h := &fakeHandle{}
		conns.Register(id, h)
		handles[id] = h
	}
	sessions := chat.NewRegistry(conns)
	return NewRelay(sessions, conns), sessions, handles
}

func TestSendRequest_RelayedToPartner(t *testing.T) {
	relay, sessions, handles := newTestRelay(t)
	sessions.Create("chat1", alice(), bob())

	relay.SendRequest(alice(), "chat1")

	got := handles["bob"].last()
	if got == nil || got["type"] != protocol.TypeFriendRequestReceived {
		t.Fatalf("partner did not receive friend_request_received: %v", got)
	}
	if got["from_user_id"] != "alice" || got["from_username"] != "Alice" {
		t.Errorf("wrong sender attribution: %v", got)
	}
	if got["chat_id"] != "chat1" {
		t.Errorf("chat_id = %v, want chat1", got["chat_id"])
	}
	if handles["alice"].count() != 0 {
		t.Error("sender must not receive their own request")
	}
}

func TestSendRequest_NoSessionDrops(t *testing.T) {
	relay, _, handles := newTestRelay(t)

	relay.SendRequest(alice(), "ghost-chat")

	if handles["bob"].count() != 0 {
		t.Error("no frames expected without a session")
	}
}

func TestSendRequest_NonMemberDrops(t *testing.T) {
	relay, sessions, handles := newTestRelay(t)
	sessions.Create("chat1", alice(), bob())

	carol := user.User{ID: "carol", Username: "Carol", Gender: user.GenderFemale}
	relay.SendRequest(carol, "chat1")

	if handles["alice"].count() != 0 || handles["bob"].count() != 0 {
		t.Error("a non-member must not relay into the session")
	}
}

func TestAccept(t *testing.T) {
	relay, sessions, handles := newTestRelay(t)
	sessions.Create("chat1", alice(), bob())

	relay.Accept(bob(), "chat1")

	got := handles["alice"].last()
	if got == nil || got["type"] != protocol.TypeFriendRequestAccepted {
		t.Fatalf("requester did not receive friend_request_accepted: %v", got)
	}
	if got["by_user_id"] != "bob" || got["by_username"] != "Bob" {
		t.Errorf("wrong acceptance attribution: %v", got)
	}
}

func TestReject(t *testing.T) {
	relay, sessions, handles := newTestRelay(t)
	sessions.Create("chat1", alice(), bob())

	relay.Reject(bob(), "chat1")

	got := handles["alice"].last()
	if got == nil || got["type"] != protocol.TypeFriendRequestRejected {
		t.Fatalf("requester did not receive friend_request_rejected: %v", got)
	}
	if got["by_user_id"] != "bob" {
		t.Errorf("wrong attribution: %v", got)
	}
}

func TestRemove_WithoutSession(t *testing.T) {
	relay, _, handles := newTestRelay(t)

	// No active session; removal routes directly by user id.
	relay.Remove(alice(), "bob")

	got := handles["bob"].last()
	if got == nil || got["type"] != protocol.TypeFriendRemoved {
		t.Fatalf("target did not receive friend_removed: %v", got)
	}
	if got["by_user_id"] != "alice" || got["by_username"] != "Alice" {
		t.Errorf("wrong attribution: %v", got)
	}
}

func TestRemove_OfflineTargetDrops(t *testing.T) {
	relay, _, _ := newTestRelay(t)
	relay.Remove(alice(), "offline-user") // must not panic
}
