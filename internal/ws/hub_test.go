package ws

import (
	"errors"
	"testing"
	"time"

	"github.com/xisxus/ConnectApp/internal/models"
	"github.com/xisxus/ConnectApp/internal/store"
)

func TestPresencePublishedOnAttachDetach(t *testing.T) {
	hub := NewHub(newTestStore(t))

	alice := newTestClient(hub, "alice")
	var p UsersUpdatedPayload
	expectEvent(t, alice, EventUsersUpdated, &p)
	if len(p.Users) != 1 || p.Users[0] != "alice" {
		t.Errorf("Expected [alice], got %v", p.Users)
	}

	bob := newTestClient(hub, "bob")
	expectEvent(t, alice, EventUsersUpdated, &p)
	if len(p.Users) != 2 || p.Users[0] != "alice" || p.Users[1] != "bob" {
		t.Errorf("Expected sorted [alice bob], got %v", p.Users)
	}

	hub.Detach(bob)
	expectEvent(t, alice, EventUsersUpdated, &p)
	if len(p.Users) != 1 || p.Users[0] != "alice" {
		t.Errorf("Expected [alice] after bob left, got %v", p.Users)
	}
}

func TestBroadcastFanOutCardinality(t *testing.T) {
	st := newTestStore(t)
	hub := NewHub(st)

	alice1 := newTestClient(hub, "alice")
	alice2 := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	drainAll(t, alice1, alice2, bob)

	hub.SendToAll(alice1, "hello everyone", nil)

	for _, c := range []*Client{alice1, alice2, bob} {
		var p MessagePayload
		expectEvent(t, c, EventReceiveMessage, &p)
		if p.From != "alice" || p.Text != "hello everyone" {
			t.Errorf("Unexpected payload at %s: %+v", c.ID, p)
		}
		if p.ID == 0 {
			t.Error("Expected a persisted message id")
		}
	}

	// Persisted before fan-out
	messages, err := st.RecentBroadcastMessages(10)
	if err != nil {
		t.Fatalf("RecentBroadcastMessages failed: %v", err)
	}
	if len(messages) != 1 {
		t.Errorf("Expected 1 persisted broadcast, got %d", len(messages))
	}
}

func TestPrivateRoundTripWithEcho(t *testing.T) {
	st := newTestStore(t)
	st.CreateUser(&models.User{Username: "alice", Password: "x"})
	st.CreateUser(&models.User{Username: "bob", Password: "x"})
	hub := NewHub(st)

	aliceTab1 := newTestClient(hub, "alice")
	aliceTab2 := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	carol := newTestClient(hub, "carol")
	drainAll(t, aliceTab1, aliceTab2, bob, carol)

	hub.SendPrivate(aliceTab1, "bob", "hi", nil)

	var got MessagePayload
	expectEvent(t, bob, EventReceivePrivateMessage, &got)
	if got.From != "alice" || got.To != "bob" || got.Text != "hi" {
		t.Errorf("Unexpected payload at bob: %+v", got)
	}
	if got.IsRead {
		t.Error("Expected is_read=false on delivery")
	}

	// Sender echo reaches both of alice's tabs, nothing reaches carol
	expectEvent(t, aliceTab1, EventReceivePrivateMessage, nil)
	expectEvent(t, aliceTab2, EventReceivePrivateMessage, nil)
	if n := countEvents(t, carol, EventReceivePrivateMessage); n != 0 {
		t.Errorf("Expected no delivery to carol, got %d", n)
	}

	// Mark read notifies the original sender and flips the stored flag once
	hub.MarkRead(bob, got.ID, "alice")
	var read MessageReadPayload
	expectEvent(t, aliceTab1, EventMessageRead, &read)
	if read.ID != got.ID {
		t.Errorf("Expected read receipt for %d, got %d", got.ID, read.ID)
	}
	expectEvent(t, aliceTab2, EventMessageRead, nil)

	hub.MarkRead(bob, got.ID, "alice")
	if n := countEvents(t, aliceTab1, EventMessageRead); n != 0 {
		t.Errorf("Expected idempotent mark-read, got %d extra receipts", n)
	}

	messages, _ := hub.RecentPrivate("alice", "bob", 0)
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(messages))
	}
	if !messages[0].IsRead || messages[0].ReadAt == nil {
		t.Error("Expected read flag and timestamp after mark-read")
	}
}

func TestPrivateSendUnknownRecipient(t *testing.T) {
	st := newTestStore(t)
	st.CreateUser(&models.User{Username: "alice", Password: "x"})
	hub := NewHub(st)

	alice := newTestClient(hub, "alice")
	drainAll(t, alice)

	hub.SendPrivate(alice, "nobody", "hello?", nil)

	var p ErrorPayload
	expectEvent(t, alice, EventError, &p)
	if p.Code != "unknown_recipient" {
		t.Errorf("Expected unknown_recipient, got %q", p.Code)
	}

	// Nothing persisted
	messages, _ := hub.RecentPrivate("alice", "nobody", 0)
	if len(messages) != 0 {
		t.Errorf("Expected no persisted message, got %d", len(messages))
	}
}

func TestPrivateSendOfflineRecipientStillPersists(t *testing.T) {
	st := newTestStore(t)
	st.CreateUser(&models.User{Username: "alice", Password: "x"})
	st.CreateUser(&models.User{Username: "bob", Password: "x"})
	hub := NewHub(st)

	alice := newTestClient(hub, "alice")
	drainAll(t, alice)

	hub.SendPrivate(alice, "bob", "read this later", nil)

	// Echo still reaches the sender; bob is offline so fan-out is smaller
	expectEvent(t, alice, EventReceivePrivateMessage, nil)

	messages, _ := hub.RecentPrivate("alice", "bob", 0)
	if len(messages) != 1 {
		t.Errorf("Expected message persisted for offline bob, got %d", len(messages))
	}
}

type failingStore struct {
	store.Store
}

func (failingStore) SaveMessage(*models.Message) (int64, error) {
	return 0, errors.New("store down")
}

func TestStoreFailureSurfacedToSenderOnly(t *testing.T) {
	st := newTestStore(t)
	st.CreateUser(&models.User{Username: "bob", Password: "x"})
	hub := NewHub(failingStore{st})

	alice := newTestClient(hub, "alice")
	bob := newTestClient(hub, "bob")
	drainAll(t, alice, bob)

	hub.SendToAll(alice, "doomed", nil)

	var p ErrorPayload
	expectEvent(t, alice, EventError, &p)
	if p.Code != "store_unavailable" {
		t.Errorf("Expected store_unavailable, got %q", p.Code)
	}
	if n := countEvents(t, bob, EventReceiveMessage); n != 0 {
		t.Errorf("Expected no partial delivery, bob got %d messages", n)
	}

	hub.SendPrivate(alice, "bob", "also doomed", nil)
	expectEvent(t, alice, EventError, &p)
	if n := countEvents(t, bob, EventReceivePrivateMessage); n != 0 {
		t.Errorf("Expected no partial delivery, bob got %d private messages", n)
	}
}

func TestTypingIndicators(t *testing.T) {
	hub := NewHub(newTestStore(t))

	alice := newTestClient(hub, "alice")
	bob1 := newTestClient(hub, "bob")
	bob2 := newTestClient(hub, "bob")
	carol := newTestClient(hub, "carol")
	drainAll(t, alice, bob1, bob2, carol)

	hub.TypingToUser(alice, "bob")

	var p TypingPayload
	expectEvent(t, bob1, EventUserTyping, &p)
	if p.From != "alice" || p.To != "bob" {
		t.Errorf("Unexpected typing payload: %+v", p)
	}
	expectEvent(t, bob2, EventUserTyping, nil)
	if n := countEvents(t, carol, EventUserTyping); n != 0 {
		t.Errorf("Expected no indicator at carol, got %d", n)
	}

	// Typing to an offline user is silently dropped
	hub.TypingToUser(alice, "nobody")
	if n := countEvents(t, alice, EventError); n != 0 {
		t.Errorf("Typing must never surface errors, got %d", n)
	}
}

func TestHistoryAscendingRegardlessOfStoreOrder(t *testing.T) {
	st := newTestStore(t)
	hub := NewHub(st)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		st.SaveMessage(&models.Message{
			FromUser:     "alice",
			Text:         string(rune('a' + i)),
			TimestampUTC: base.Add(time.Duration(i) * time.Minute),
		})
	}

	messages, err := hub.RecentBroadcast(3)
	if err != nil {
		t.Fatalf("RecentBroadcast failed: %v", err)
	}
	if len(messages) != 3 {
		t.Fatalf("Expected 3 messages, got %d", len(messages))
	}
	// Most recent 3, reordered ascending: c, d, e
	want := []string{"c", "d", "e"}
	for i, m := range messages {
		if m.Text != want[i] {
			t.Errorf("Position %d: expected %q, got %q", i, want[i], m.Text)
		}
	}
	for i := 1; i < len(messages); i++ {
		if messages[i].TimestampUTC.Before(messages[i-1].TimestampUTC) {
			t.Error("Expected ascending timestamps")
		}
	}
}

func TestHistoryDefaultLimit(t *testing.T) {
	st := newTestStore(t)
	hub := NewHub(st)

	base := time.Now().UTC()
	for i := 0; i < DefaultHistoryLimit+20; i++ {
		st.SaveMessage(&models.Message{
			FromUser:     "alice",
			Text:         "m",
			TimestampUTC: base.Add(time.Duration(i) * time.Second),
		})
	}

	messages, err := hub.RecentBroadcast(0)
	if err != nil {
		t.Fatalf("RecentBroadcast failed: %v", err)
	}
	if len(messages) != DefaultHistoryLimit {
		t.Errorf("Expected default page of %d, got %d", DefaultHistoryLimit, len(messages))
	}
}
