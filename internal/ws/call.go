package ws

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Call media kinds.
const (
	MediaAudio = "audio"
	MediaVideo = "video"
)

type CallState int

const (
	CallRinging CallState = iota + 1
	CallActive
)

// CallSession is the ephemeral record of one two-party call. It exists from
// ring to termination and is never persisted.
type CallSession struct {
	ID     string
	Caller string
	Callee string
	Media  string
	State  CallState
}

func (s *CallSession) peerOf(username string) string {
	if s.Caller == username {
		return s.Callee
	}
	return s.Caller
}

// CallCoordinator relays the call-setup handshake and WebRTC negotiation
// payloads between exactly two usernames. It enforces one session per
// identity: a call to or from a party that is already ringing or active fails
// with "busy". Negotiation payloads are opaque blobs relayed verbatim; the
// coordinator never parses them and holds no timers; disconnect handling is
// layered on the hub's Detach path.
type CallCoordinator struct {
	mu       sync.Mutex
	registry *Registry
	sessions map[string]*CallSession // indexed by both parties' usernames
}

func newCallCoordinator(registry *Registry) *CallCoordinator {
	return &CallCoordinator{
		registry: registry,
		sessions: make(map[string]*CallSession),
	}
}

// CallUser rings callee on behalf of the acting connection. An offline callee
// fails immediately with CallFailed("offline") to the caller only; a busy
// party on either side fails with CallFailed("busy").
func (cc *CallCoordinator) CallUser(c *Client, callee, media string) {
	caller := c.Username

	conns := cc.registry.ConnectionsOf(callee)
	if len(conns) == 0 {
		c.push(EventCallFailed, CallFailedPayload{Peer: callee, Reason: "offline"})
		return
	}

	cc.mu.Lock()
	if cc.sessions[caller] != nil || cc.sessions[callee] != nil {
		cc.mu.Unlock()
		c.push(EventCallFailed, CallFailedPayload{Peer: callee, Reason: "busy"})
		return
	}
	sess := &CallSession{
		ID:     uuid.NewString(),
		Caller: caller,
		Callee: callee,
		Media:  media,
		State:  CallRinging,
	}
	cc.sessions[caller] = sess
	cc.sessions[callee] = sess
	cc.mu.Unlock()

	payload := IncomingCallPayload{From: caller, Media: media}
	for _, rc := range conns {
		rc.push(EventIncomingCall, payload)
	}
}

// AcceptCall moves the session to Active and notifies the caller. A caller
// that went fully offline in the interim makes this a no-op; the implicit
// hangup on its disconnect already terminated the session.
func (cc *CallCoordinator) AcceptCall(c *Client, caller string) {
	callee := c.Username

	cc.mu.Lock()
	sess := cc.sessions[callee]
	if sess == nil || sess.Caller != caller || sess.Callee != callee || sess.State != CallRinging {
		cc.mu.Unlock()
		log.Printf("stale accept from %s for caller %s", callee, caller)
		return
	}
	sess.State = CallActive
	cc.mu.Unlock()

	payload := CallPeerPayload{From: callee}
	for _, rc := range cc.registry.ConnectionsOf(caller) {
		rc.push(EventCallAccepted, payload)
	}
}

// RejectCall discards the ringing session and notifies the caller.
func (cc *CallCoordinator) RejectCall(c *Client, caller string) {
	callee := c.Username

	cc.mu.Lock()
	sess := cc.sessions[callee]
	if sess == nil || sess.Caller != caller || sess.Callee != callee {
		cc.mu.Unlock()
		log.Printf("stale reject from %s for caller %s", callee, caller)
		return
	}
	delete(cc.sessions, sess.Caller)
	delete(cc.sessions, sess.Callee)
	cc.mu.Unlock()

	payload := CallPeerPayload{From: callee}
	for _, rc := range cc.registry.ConnectionsOf(caller) {
		rc.push(EventCallRejected, payload)
	}
}

// Hangup terminates the acting connection's session with other, if any, and
// always relays CallEnded to other's live connections: the relay is kept even
// without a recognized session because hangups may race session teardown.
func (cc *CallCoordinator) Hangup(c *Client, other string) {
	cc.mu.Lock()
	if sess := cc.sessions[c.Username]; sess != nil && sess.peerOf(c.Username) == other {
		delete(cc.sessions, sess.Caller)
		delete(cc.sessions, sess.Callee)
	}
	cc.mu.Unlock()

	payload := CallPeerPayload{From: c.Username}
	for _, rc := range cc.registry.ConnectionsOf(other) {
		rc.push(EventCallEnded, payload)
	}
}

// SendOffer relays an opaque SDP offer to every live connection of to. A
// destination with no live connections drops the payload silently: the caller
// already received CallFailed if the peer was truly offline, and payloads may
// race ahead of that determination.
func (cc *CallCoordinator) SendOffer(c *Client, to string, payload json.RawMessage) {
	cc.relay(c, to, EventReceiveOffer, payload)
}

// SendAnswer relays an opaque SDP answer. See SendOffer.
func (cc *CallCoordinator) SendAnswer(c *Client, to string, payload json.RawMessage) {
	cc.relay(c, to, EventReceiveAnswer, payload)
}

// SendIceCandidate relays an opaque ICE candidate. See SendOffer.
func (cc *CallCoordinator) SendIceCandidate(c *Client, to string, payload json.RawMessage) {
	cc.relay(c, to, EventReceiveIceCandidate, payload)
}

func (cc *CallCoordinator) relay(c *Client, to, event string, payload json.RawMessage) {
	out := SignalPayload{From: c.Username, Payload: payload}
	for _, rc := range cc.registry.ConnectionsOf(to) {
		rc.push(event, out)
	}
}

// HandleOffline is the implicit hangup: when a username loses its last
// connection while ringing or in an active call, the session is torn down and
// the peer receives CallEnded. This prevents orphaned sessions without the
// coordinator owning any timers.
func (cc *CallCoordinator) HandleOffline(username string) {
	cc.mu.Lock()
	sess := cc.sessions[username]
	if sess == nil {
		cc.mu.Unlock()
		return
	}
	delete(cc.sessions, sess.Caller)
	delete(cc.sessions, sess.Callee)
	cc.mu.Unlock()

	peer := sess.peerOf(username)
	payload := CallPeerPayload{From: username}
	for _, rc := range cc.registry.ConnectionsOf(peer) {
		rc.push(EventCallEnded, payload)
	}
}

// SessionOf returns a copy of username's current call session, if any.
func (cc *CallCoordinator) SessionOf(username string) (CallSession, bool) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	sess := cc.sessions[username]
	if sess == nil {
		return CallSession{}, false
	}
	return *sess, true
}
