package ws

import (
	"fmt"
	"log"
	"sync"
	"time"
)

// Subscriptions tracks which connections are attached to which group fan-out
// channel. This is connection-level, in-memory state: durable membership
// lives in the store and the two are deliberately independent: a user can be
// a durable member with zero live subscribed connections.
type Subscriptions struct {
	mu     sync.RWMutex
	byName map[string]map[*Client]struct{}
	byConn map[*Client]map[string]struct{}
}

func newSubscriptions() *Subscriptions {
	return &Subscriptions{
		byName: make(map[string]map[*Client]struct{}),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

// subscribe attaches c to the group channel. Idempotent per connection.
func (s *Subscriptions) subscribe(c *Client, groupName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, ok := s.byName[groupName]
	if !ok {
		set = make(map[*Client]struct{})
		s.byName[groupName] = set
	}
	set[c] = struct{}{}

	groups, ok := s.byConn[c]
	if !ok {
		groups = make(map[string]struct{})
		s.byConn[c] = groups
	}
	groups[groupName] = struct{}{}
}

// unsubscribe detaches c; detaching a never-subscribed connection is a no-op.
func (s *Subscriptions) unsubscribe(c *Client, groupName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if set, ok := s.byName[groupName]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(s.byName, groupName)
		}
	}
	if groups, ok := s.byConn[c]; ok {
		delete(groups, groupName)
		if len(groups) == 0 {
			delete(s.byConn, c)
		}
	}
}

func (s *Subscriptions) subscribed(c *Client, groupName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byConn[c][groupName]
	return ok
}

// connections returns a snapshot of the group channel's subscribers.
func (s *Subscriptions) connections(groupName string) []*Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := s.byName[groupName]
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// dropConn removes every subscription held by a disconnecting client.
func (s *Subscriptions) dropConn(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for groupName := range s.byConn[c] {
		set := s.byName[groupName]
		delete(set, c)
		if len(set) == 0 {
			delete(s.byName, groupName)
		}
	}
	delete(s.byConn, c)
}

// JoinGroup subscribes the connection to the group channel, ensures the group
// and the durable membership record exist (create-if-absent, both idempotent)
// and notifies current subscribers.
func (h *Hub) JoinGroup(c *Client, groupName string) {
	h.groups.subscribe(c, groupName)

	if err := h.store.EnsureGroup(groupName); err != nil {
		log.Printf("ensure group %s: %v", groupName, err)
		c.pushError("store_unavailable", "group not recorded")
		return
	}
	if err := h.store.EnsureMembership(c.Username, groupName); err != nil {
		log.Printf("ensure membership %s in %s: %v", c.Username, groupName, err)
		c.pushError("store_unavailable", "membership not recorded")
		return
	}

	h.groupNotice(groupName, fmt.Sprintf("%s joined %s", c.Username, groupName))
}

// LeaveGroup unsubscribes the connection, removes the durable membership
// record if present, and notifies remaining subscribers.
func (h *Hub) LeaveGroup(c *Client, groupName string) {
	h.groups.unsubscribe(c, groupName)

	if err := h.store.RemoveMembership(c.Username, groupName); err != nil {
		log.Printf("remove membership %s from %s: %v", c.Username, groupName, err)
		c.pushError("store_unavailable", "membership not removed")
		return
	}

	h.groupNotice(groupName, fmt.Sprintf("%s left %s", c.Username, groupName))
}

// GroupsOf lists durable memberships. This reads the store, not the live
// subscription set: offline members are included.
func (h *Hub) GroupsOf(username string) ([]string, error) {
	return h.store.GroupsOf(username)
}

func (h *Hub) groupNotice(groupName, text string) {
	payload := SystemMessagePayload{Text: text, Timestamp: time.Now().UTC()}
	for _, rc := range h.groups.connections(groupName) {
		rc.push(EventGroupSystemMessage, payload)
	}
}
