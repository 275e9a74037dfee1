package ws

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/xisxus/ConnectApp/internal/store/sqlstore"
)

func newTestStore(t *testing.T) *sqlstore.SQLStore {
	t.Helper()
	st, err := sqlstore.New("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// newTestClient builds a client with no transport behind it and attaches it
// to the hub. Hub operations are synchronous, so after an operation returns
// its events are already queued on the client's send channel.
func newTestClient(h *Hub, username string) *Client {
	c := &Client{
		ID:       uuid.NewString(),
		Username: username,
		hub:      h,
		send:     make(chan []byte, sendBuffer),
	}
	h.Attach(c)
	return c
}

type testEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// pending drains and decodes everything queued on c.
func pending(t *testing.T, c *Client) []testEvent {
	t.Helper()
	var out []testEvent
	for {
		select {
		case b := <-c.send:
			var ev testEvent
			if err := json.Unmarshal(b, &ev); err != nil {
				t.Fatalf("malformed envelope %q: %v", b, err)
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

// expectEvent drains c until an event with the given name appears and decodes
// its data into v. Other queued events (presence updates and the like) are
// skipped.
func expectEvent(t *testing.T, c *Client, event string, v interface{}) {
	t.Helper()
	for _, ev := range pending(t, c) {
		if ev.Event != event {
			continue
		}
		if v != nil {
			if err := json.Unmarshal(ev.Data, v); err != nil {
				t.Fatalf("decode %s payload: %v", event, err)
			}
		}
		return
	}
	t.Fatalf("no %s event queued for %s", event, c.Username)
}

// countEvents drains c and counts events with the given name.
func countEvents(t *testing.T, c *Client, event string) int {
	t.Helper()
	n := 0
	for _, ev := range pending(t, c) {
		if ev.Event == event {
			n++
		}
	}
	return n
}

// drainAll discards everything queued on the given clients, typically to
// clear presence noise before the interesting part of a test.
func drainAll(t *testing.T, clients ...*Client) {
	t.Helper()
	for _, c := range clients {
		pending(t, c)
	}
}
