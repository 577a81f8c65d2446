package chat

import (
	"encoding/json"
	"sync"
	"testing"

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

func testUser(id string) user.User {
	return user.User{ID: id, Username: "u_" + id, Gender: user.GenderFemale}
}

func newTestRegistry(t *testing.T, userIDs ...string) (*Registry, map[string]*fakeHandle) {
	t.Helper()
	conns := registry.New()
	handles := make(map[string]*fakeHandle, len(userIDs))
	for _, id := range userIDs {
		h := &fakeHandle{}
		conns.Register(id, h)
		handles[id] = h
	}
	return NewRegistry(conns), handles
}

func TestRelay_DeliversToPartner(t *testing.T) {
	r, handles := newTestRegistry(t, "a", "b")
	r.Create("chat1", testUser("a"), testUser("b"))

	msg, delivered := r.Relay("a", "chat1", "hello")
	if !delivered {
		t.Fatal("expected delivery")
	}
	if msg.ID == "" || msg.SenderID != "a" || msg.Content != "hello" {
		t.Errorf("unexpected minted message: %+v", msg)
	}

	got := handles["b"].last()
	if got == nil || got["type"] != protocol.TypeMessage {
		t.Fatalf("partner did not receive a message frame: %v", got)
	}
	if got["sender_id"] != "a" || got["content"] != "hello" {
		t.Errorf("wrong payload: %v", got)
	}

	// The sender must not receive an echo.
	if handles["a"].count() != 0 {
		t.Errorf("sender received %d frames, want 0", handles["a"].count())
	}
}

func TestRelay_UnknownChat(t *testing.T) {
	r, _ := newTestRegistry(t, "a")

	if _, delivered := r.Relay("a", "nope", "hello"); delivered {
		t.Error("relay into an unknown chat must drop")
	}
}

func TestRelay_NonMemberDrops(t *testing.T) {
	r, handles := newTestRegistry(t, "a", "b", "c")
	r.Create("chat1", testUser("a"), testUser("b"))

	if _, delivered := r.Relay("c", "chat1", "intruder"); delivered {
		t.Error("a non-member must not relay into the session")
	}
	if handles["a"].count() != 0 || handles["b"].count() != 0 {
		t.Error("members must not receive frames from a non-member")
	}
}

func TestRelay_OfflinePartnerDrops(t *testing.T) {
	r, _ := newTestRegistry(t, "a") // b has no handle
	r.Create("chat1", testUser("a"), testUser("b"))

	if _, delivered := r.Relay("a", "chat1", "hello"); delivered {
		t.Error("relay to an offline partner must report not delivered")
	}
}

func TestLeave_NotifiesPartnerAndEndsSession(t *testing.T) {
	r, handles := newTestRegistry(t, "a", "b")
	r.Create("chat1", testUser("a"), testUser("b"))

	r.Leave("a", "chat1")

	got := handles["b"].last()
	if got == nil || got["type"] != protocol.TypePartnerLeft {
		t.Fatalf("partner did not receive partner_left: %v", got)
	}
	if r.Len() != 0 {
		t.Errorf("active sessions = %d, want 0", r.Len())
	}

	// Subsequent sends into the ended chat drop.
	if _, delivered := r.Relay("b", "chat1", "anyone?"); delivered {
		t.Error("relay into an ended chat must drop")
	}
}

func TestLeave_Idempotent(t *testing.T) {
	r, handles := newTestRegistry(t, "a", "b")
	r.Create("chat1", testUser("a"), testUser("b"))

	r.Leave("a", "chat1")
	r.Leave("a", "chat1")
	r.Leave("b", "chat1")

	if handles["b"].count() != 1 {
		t.Errorf("partner received %d frames, want exactly 1 partner_left", handles["b"].count())
	}
}

func TestLeave_NonMemberIgnored(t *testing.T) {
	r, handles := newTestRegistry(t, "a", "b", "c")
	r.Create("chat1", testUser("a"), testUser("b"))

	r.Leave("c", "chat1")

	if r.Len() != 1 {
		t.Error("a non-member leave must not end the session")
	}
	if handles["a"].count() != 0 && handles["b"].count() != 0 {
		t.Error("no notifications expected")
	}
}

func TestDisconnect_NotifiesPartner(t *testing.T) {
	r, handles := newTestRegistry(t, "a", "b")
	r.Create("chat1", testUser("a"), testUser("b"))

	r.Disconnect("a")

	got := handles["b"].last()
	if got == nil || got["type"] != protocol.TypePartnerLeft {
		t.Fatalf("partner did not receive partner_left on disconnect: %v", got)
	}
	if r.Len() != 0 {
		t.Errorf("active sessions = %d, want 0", r.Len())
	}
}

func TestDisconnect_NoSessionIsNoOp(t *testing.T) {
	r, _ := newTestRegistry(t, "a")
	r.Disconnect("a") // must not panic
}

func TestCreate_DisplacesOlderSession(t *testing.T) {
	r, handles := newTestRegistry(t, "a", "b", "c")
	r.Create("chat1", testUser("a"), testUser("b"))

	// a gets matched again before chat1 is torn down; b must learn the
	// partner is gone and chat1 must not linger.
	r.Create("chat2", testUser("a"), testUser("c"))

	got := handles["b"].last()
	if got == nil || got["type"] != protocol.TypePartnerLeft {
		t.Fatalf("displaced partner did not receive partner_left: %v", got)
	}
	if r.Len() != 1 {
		t.Errorf("active sessions = %d, want 1", r.Len())
	}
	if r.Get("chat1") != nil {
		t.Error("displaced session must be removed")
	}

	if _, delivered := r.Relay("a", "chat2", "hi"); !delivered {
		t.Error("the new session must relay normally")
	}
}

func TestSnapshot_TracksRecentMessages(t *testing.T) {
	r, _ := newTestRegistry(t, "a", "b")
	r.Create("chat1", testUser("a"), testUser("b"))

	for _, text := range []string{"one", "two", "three", "four", "five", "six", "seven"} {
		r.Relay("a", "chat1", text)
	}

	snap := r.Snapshot("chat1")
	if len(snap) != SnapshotSize {
		t.Fatalf("snapshot length = %d, want %d", len(snap), SnapshotSize)
	}
	if snap[0].Text != "three" || snap[SnapshotSize-1].Text != "seven" {
		t.Errorf("snapshot should hold the newest %d in order, got %+v", SnapshotSize, snap)
	}
}

func TestSession_Partner(t *testing.T) {
	s := &Session{ID: "c", UserA: testUser("a"), UserB: testUser("b")}

	if p, ok := s.Partner("a"); !ok || p.ID != "b" {
		t.Errorf("Partner(a) = %v %v, want b", p.ID, ok)
	}
	if p, ok := s.Partner("b"); !ok || p.ID != "a" {
		t.Errorf("Partner(b) = %v %v, want a", p.ID, ok)
	}
	if _, ok := s.Partner("x"); ok {
		t.Error("Partner(x) should report false")
	}
}
