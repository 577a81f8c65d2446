// Package registry maps stable user identifiers to their live transport
// handles. It is a pure routing table: membership in the matching queue or a
// chat session is tracked elsewhere, and only the transport gateway mutates
// the registry on connect and disconnect.
package registry

import (
	"log"
	"sync"
)

// Handle is the write side of a live client connection. The WebSocket
// gateway's Connection satisfies it; tests substitute in-memory fakes.
type Handle interface {
	WriteMessage(data []byte) error
}

// Registry is a goroutine-safe userID -> Handle table. Each identifier maps
// to at most one handle at a time; registering again overwrites.
type Registry struct {
	mu      sync.RWMutex
	handles map[string]Handle
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{handles: make(map[string]Handle)}
}

// Register associates a handle with a user identifier, replacing any prior
// handle for that identifier. Replacement is not an error; the displaced
// handle (nil if none) is returned so the gateway can close it.
func (r *Registry) Register(userID string, h Handle) Handle {
	r.mu.Lock()
	prev := r.handles[userID]
	r.handles[userID] = h
	r.mu.Unlock()
	if prev == h {
		return nil
	}
	return prev
}

// Unregister removes the handle for a user identifier. Unknown identifiers
// are a no-op.
func (r *Registry) Unregister(userID string) {
	r.mu.Lock()
	delete(r.handles, userID)
	r.mu.Unlock()
}

// Release removes the registration only if it still points at h. The gateway
// uses this on disconnect so that tearing down a superseded connection does
// not unregister the user's newer one.
func (r *Registry) Release(userID string, h Handle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if cur, ok := r.handles[userID]; ok && cur == h {
		delete(r.handles, userID)
		return true
	}
	return false
}

// Lookup returns the handle for a user identifier, or nil if the user has no
// live connection.
func (r *Registry) Lookup(userID string) Handle {
	r.mu.RLock()
	h := r.handles[userID]
	r.mu.RUnlock()
	return h
}

// Send writes data to the user's handle, if any. A missing handle is a
// benign no-op (the user may have just disconnected). A failed write evicts
// the entry, since the handle is dead; the failure is not propagated.
func (r *Registry) Send(userID string, data []byte) bool {
	h := r.Lookup(userID)
	if h == nil {
		return false
	}
	if err := h.WriteMessage(data); err != nil {
		log.Printf("[registry] write to %s failed, evicting handle: %v", userID, err)
		r.Release(userID, h)
		return false
	}
	return true
}

// Count returns the number of registered handles.
func (r *Registry) Count() int {
	r.mu.RLock()
	n := len(r.handles)
	r.mu.RUnlock()
	return n
}
