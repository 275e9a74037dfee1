package ws

import (
	"log"
	"sort"
	"time"

	"github.com/xisxus/ConnectApp/internal/models"
	"github.com/xisxus/ConnectApp/internal/store"
)

// DefaultHistoryLimit bounds history pages when the caller does not ask for a
// specific size.
const DefaultHistoryLimit = 100

// Hub routes chat traffic between live connections. Every send follows the
// same three phases: resolve recipients, persist through the store, then fan
// out over a registry snapshot taken after persistence. An offline recipient
// is not an error, it only shrinks the fan-out; store and directory failures
// are surfaced to the acting connection only.
type Hub struct {
	registry *Registry
	groups   *Subscriptions
	calls    *CallCoordinator
	store    store.Store
}

func NewHub(st store.Store) *Hub {
	h := &Hub{
		registry: NewRegistry(),
		groups:   newSubscriptions(),
		store:    st,
	}
	h.calls = newCallCoordinator(h.registry)
	return h
}

func (h *Hub) Registry() *Registry { return h.registry }

func (h *Hub) Calls() *CallCoordinator { return h.calls }

// Attach registers the connection and publishes the new presence set.
func (h *Hub) Attach(c *Client) {
	h.registry.Register(c.Username, c)
	h.publishPresence()
}

// Detach is the single disconnect path: it drops the connection's group
// subscriptions, unregisters it, and, when the username went fully offline,
// hangs up any ringing or active call it was part of.
func (h *Hub) Detach(c *Client) {
	h.groups.dropConn(c)
	offline := h.registry.Unregister(c.Username, c)
	if offline {
		h.calls.HandleOffline(c.Username)
	}
	h.publishPresence()
}

func (h *Hub) publishPresence() {
	payload := UsersUpdatedPayload{Users: h.registry.OnlineIdentities()}
	for _, c := range h.registry.AllConnections() {
		c.push(EventUsersUpdated, payload)
	}
}

// SendToAll broadcasts to every live connection. The recipient set is
// evaluated at fan-out time, after persistence; delivery to late joiners is
// best-effort.
func (h *Hub) SendToAll(c *Client, text string, att *models.Attachment) {
	msg := &models.Message{
		FromUser:     c.Username,
		Text:         text,
		Attachment:   att,
		TimestampUTC: time.Now().UTC(),
	}
	id, err := h.store.SaveMessage(msg)
	if err != nil {
		log.Printf("save broadcast from %s: %v", c.Username, err)
		c.pushError("store_unavailable", "message not sent")
		return
	}
	msg.ID = id

	payload := messagePayload(msg)
	for _, rc := range h.registry.AllConnections() {
		rc.push(EventReceiveMessage, payload)
	}
}

// SendPrivate sends a direct message. The recipient must exist in the user
// directory but need not be online: persistence succeeds with zero live
// recipients. Fan-out covers the recipient's connections plus the sender's
// own, so the sender's other tabs see the echo.
func (h *Hub) SendPrivate(c *Client, to, text string, att *models.Attachment) {
	exists, err := h.store.UserExists(to)
	if err != nil {
		log.Printf("resolve recipient %s: %v", to, err)
		c.pushError("store_unavailable", "message not sent")
		return
	}
	if !exists {
		c.pushError("unknown_recipient", "no such user "+to)
		return
	}

	msg := &models.Message{
		FromUser:     c.Username,
		ToUser:       to,
		Text:         text,
		Attachment:   att,
		TimestampUTC: time.Now().UTC(),
		IsRead:       false,
	}
	id, err := h.store.SaveMessage(msg)
	if err != nil {
		log.Printf("save private %s->%s: %v", c.Username, to, err)
		c.pushError("store_unavailable", "message not sent")
		return
	}
	msg.ID = id

	recipients := make(map[*Client]struct{})
	for _, rc := range h.registry.ConnectionsOf(to) {
		recipients[rc] = struct{}{}
	}
	for _, rc := range h.registry.ConnectionsOf(c.Username) {
		recipients[rc] = struct{}{}
	}

	payload := messagePayload(msg)
	for rc := range recipients {
		rc.push(EventReceivePrivateMessage, payload)
	}
}

// SendToGroup sends to every connection currently subscribed to the group.
// The sending connection must itself be subscribed.
func (h *Hub) SendToGroup(c *Client, groupName, text string, att *models.Attachment) {
	if !h.groups.subscribed(c, groupName) {
		c.pushError("not_subscribed", "join "+groupName+" before sending to it")
		return
	}

	msg := &models.Message{
		FromUser:     c.Username,
		GroupName:    groupName,
		Text:         text,
		Attachment:   att,
		TimestampUTC: time.Now().UTC(),
	}
	id, err := h.store.SaveMessage(msg)
	if err != nil {
		log.Printf("save group %s->%s: %v", c.Username, groupName, err)
		c.pushError("store_unavailable", "message not sent")
		return
	}
	msg.ID = id

	payload := messagePayload(msg)
	for _, rc := range h.groups.connections(groupName) {
		rc.push(EventReceiveGroupMessage, payload)
	}
}

// MarkRead flips a direct message to read exactly once and notifies the
// original sender's connections. Repeat calls and unknown ids are no-ops;
// unknown ids are logged, never surfaced.
func (h *Hub) MarkRead(c *Client, messageID int64, fromUser string) {
	changed, err := h.store.MarkMessageRead(messageID, time.Now().UTC())
	if err != nil {
		log.Printf("mark read %d: %v", messageID, err)
		c.pushError("store_unavailable", "read receipt not recorded")
		return
	}
	if !changed {
		log.Printf("mark read %d: already read or unknown", messageID)
		return
	}

	payload := MessageReadPayload{ID: messageID}
	for _, rc := range h.registry.ConnectionsOf(fromUser) {
		rc.push(EventMessageRead, payload)
	}
}

// TypingToUser is fire-and-forget: nothing is persisted and lost indicators
// are acceptable.
func (h *Hub) TypingToUser(c *Client, to string) {
	payload := TypingPayload{From: c.Username, To: to}
	for _, rc := range h.registry.ConnectionsOf(to) {
		rc.push(EventUserTyping, payload)
	}
}

func (h *Hub) TypingToGroup(c *Client, groupName string) {
	payload := TypingPayload{From: c.Username, Group: groupName}
	for _, rc := range h.groups.connections(groupName) {
		rc.push(EventGroupTyping, payload)
	}
}

// RecentBroadcast returns the most recent limit broadcast messages, reordered
// ascending by timestamp regardless of store-side ordering.
func (h *Hub) RecentBroadcast(limit int) ([]models.Message, error) {
	msgs, err := h.store.RecentBroadcastMessages(historyLimit(limit))
	if err != nil {
		return nil, err
	}
	return sortAscending(msgs), nil
}

func (h *Hub) RecentPrivate(userA, userB string, limit int) ([]models.Message, error) {
	msgs, err := h.store.RecentPrivateMessages(userA, userB, historyLimit(limit))
	if err != nil {
		return nil, err
	}
	return sortAscending(msgs), nil
}

func (h *Hub) RecentGroup(groupName string, limit int) ([]models.Message, error) {
	msgs, err := h.store.RecentGroupMessages(groupName, historyLimit(limit))
	if err != nil {
		return nil, err
	}
	return sortAscending(msgs), nil
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}

func sortAscending(msgs []models.Message) []models.Message {
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].TimestampUTC.Equal(msgs[j].TimestampUTC) {
			return msgs[i].ID < msgs[j].ID
		}
		return msgs[i].TimestampUTC.Before(msgs[j].TimestampUTC)
	})
	return msgs
}
