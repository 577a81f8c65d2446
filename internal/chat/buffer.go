package chat

import "sync"

// SnapshotSize is the number of recent messages retained per chat for abuse
// report context. Nothing else is persisted.
const SnapshotSize = 5

// BufferedMessage is one message in a chat's snapshot buffer.
type BufferedMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	Ts   int64  `json:"ts"`
}

// MessageBuffer keeps the last SnapshotSize messages per chat in a fixed
// ring. It is goroutine-safe.
type MessageBuffer struct {
	mu    sync.RWMutex
	rings map[string]*ring // chatID -> ring
}

type ring struct {
	items [SnapshotSize]BufferedMessage
	pos   int
	count int
}

// NewMessageBuffer returns an empty MessageBuffer.
func NewMessageBuffer() *MessageBuffer {
	return &MessageBuffer{rings: make(map[string]*ring)}
}

// Add appends a message to the chat's ring, overwriting the oldest entry
// once the ring is full.
func (mb *MessageBuffer) Add(chatID string, msg BufferedMessage) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	r, ok := mb.rings[chatID]
	if !ok {
		r = &ring{}
		mb.rings[chatID] = r
	}

	r.items[r.pos] = msg
	r.pos = (r.pos + 1) % SnapshotSize
	if r.count < SnapshotSize {
		r.count++
	}
}

// Get returns the chat's buffered messages in chronological order, oldest
// first. An unknown chat yields an empty slice.
func (mb *MessageBuffer) Get(chatID string) []BufferedMessage {
	mb.mu.RLock()
	defer mb.mu.RUnlock()

	r, ok := mb.rings[chatID]
	if !ok {
		return []BufferedMessage{}
	}

	out := make([]BufferedMessage, r.count)
	start := (r.pos - r.count + SnapshotSize) % SnapshotSize
	for i := 0; i < r.count; i++ {
		out[i] = r.items[(start+i)%SnapshotSize]
	}
	return out
}

// Remove drops the buffer for a chat. Called when the session ends.
func (mb *MessageBuffer) Remove(chatID string) {
	mb.mu.Lock()
	delete(mb.rings, chatID)
	mb.mu.Unlock()
}
