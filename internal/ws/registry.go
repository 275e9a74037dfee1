// Package ws is the real-time core: the connection registry, the message
// router, group subscriptions and the call-signaling coordinator, attached to
// clients over gorilla/websocket.
package ws

import (
	"sort"
	"sync"
)

// Registry tracks which connections belong to which username. A username has
// an entry iff it has at least one live connection: entries are created on
// the first Register and removed as soon as the last connection unregisters.
// All methods are safe for concurrent use; reads return snapshots.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]map[*Client]struct{})}
}

// Register adds c to username's connection set. Idempotent per handle.
func (r *Registry) Register(username string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[username]
	if !ok {
		set = make(map[*Client]struct{})
		r.conns[username] = set
	}
	set[c] = struct{}{}
}

// Unregister removes c from username's set, dropping the entry when the set
// empties. Unregistering an unknown username or connection is a no-op so
// disconnect races never fail. It reports whether the username went fully
// offline as a result of this call.
func (r *Registry) Unregister(username string, c *Client) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[username]
	if !ok {
		return false
	}
	if _, ok := set[c]; !ok {
		return false
	}
	delete(set, c)
	if len(set) == 0 {
		delete(r.conns, username)
		return true
	}
	return false
}

// ConnectionsOf returns a snapshot of username's live connections. Unknown
// usernames yield an empty slice, not an error.
func (r *Registry) ConnectionsOf(username string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[username]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// AllConnections returns a snapshot of every live connection across all
// usernames.
func (r *Registry) AllConnections() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Client
	for _, set := range r.conns {
		for c := range set {
			out = append(out, c)
		}
	}
	return out
}

// OnlineIdentities returns the usernames with at least one live connection,
// lexicographically sorted for deterministic presence display.
func (r *Registry) OnlineIdentities() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.conns))
	for username := range r.conns {
		out = append(out, username)
	}
	sort.Strings(out)
	return out
}
