// Package matching implements the waiting queue and compatibility rules
// that pair two searchers into a chat session. The queue is an in-memory,
// mutex-guarded FIFO: all decisions about a given entry (match, cancel,
// timeout, disconnect) are linearized under a single lock, and the only
// deferred action is the cancellable per-entry search timeout.
package matching

import (
	"sync"
	"time"

	"github.com/mingle/chat-app/internal/user"
)

// Entry is one waiting searcher. Entries are owned exclusively by the Queue;
// callers receive copies of the profile and filters, never a live pointer
// they may mutate.
type Entry struct {
	User       user.User
	Filters    user.MatchFilters
	EnqueuedAt time.Time

	// timer fires the search timeout for this entry. It is set under the
	// queue lock immediately after insertion and stopped when the entry is
	// removed by any path.
	timer *time.Timer
}

// Queue holds waiting searchers in FIFO insertion order with an index by
// user identifier. At most one entry exists per identifier at any time.
type Queue struct {
	mu      sync.Mutex
	entries []*Entry          // FIFO order, oldest first
	byID    map[string]*Entry // userID -> entry
}

// NewQueue returns an empty queue.
func NewQueue() *Queue {
	return &Queue{byID: make(map[string]*Entry)}
}

// TakeMatch atomically performs one search pass for u: any pre-existing
// entry for u's identifier is removed first (re-search replaces, never
// duplicates), then the waiting entries are scanned in FIFO order and the
// first compatible one is removed and returned. If no waiter is compatible,
// a new entry for u is inserted and returned with matched == false; the
// onQueue callback runs inside the critical section so the caller can attach
// the timeout timer before the entry becomes reachable by concurrent
// removals.
func (q *Queue) TakeMatch(u user.User, f user.MatchFilters, onQueue func(*Entry)) (candidate *Entry, matched bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.removeLocked(u.ID)

	for _, e := range q.entries {
		if Compatible(u, f, e.User, e.Filters) {
			q.removeLocked(e.User.ID)
			return e, true
		}
	}

	entry := &Entry{User: u, Filters: f, EnqueuedAt: time.Now()}
	q.entries = append(q.entries, entry)
	q.byID[u.ID] = entry
	if onQueue != nil {
		onQueue(entry)
	}
	return entry, false
}

// Remove deletes the entry for a user identifier, if present, and stops its
// timeout timer. It reports whether an entry was removed; removing an absent
// identifier is a no-op, never an error.
func (q *Queue) Remove(userID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(userID)
}

// Expire removes the given entry only if it is still the live entry for its
// identifier. The timeout timer calls this when it fires; by re-checking
// entry identity under the lock, a timer racing a match, cancel, or
// re-search resolves to a no-op.
func (q *Queue) Expire(entry *Entry) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.byID[entry.User.ID] != entry {
		return false
	}
	return q.removeLocked(entry.User.ID)
}

// Len returns the number of waiting searchers.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// removeLocked deletes the entry for userID from both structures and stops
// its timer. Caller must hold q.mu.
func (q *Queue) removeLocked(userID string) bool {
	e, ok := q.byID[userID]
	if !ok {
		return false
	}
	delete(q.byID, userID)
	for i, other := range q.entries {
		if other == e {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			break
		}
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	return true
}
