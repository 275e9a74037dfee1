package ws

import (
	"encoding/json"
	"time"

	"github.com/xisxus/ConnectApp/internal/models"
)

// Outbound event names. These are the wire contract with clients.
const (
	EventUsersUpdated          = "UsersUpdated"
	EventReceiveMessage        = "ReceiveMessage"
	EventReceivePrivateMessage = "ReceivePrivateMessage"
	EventReceiveGroupMessage   = "ReceiveGroupMessage"
	EventMessageRead           = "MessageRead"
	EventUserTyping            = "UserTyping"
	EventGroupTyping           = "GroupTyping"
	EventGroupSystemMessage    = "GroupSystemMessage"
	EventIncomingCall          = "IncomingCall"
	EventCallAccepted          = "CallAccepted"
	EventCallRejected          = "CallRejected"
	EventCallEnded             = "CallEnded"
	EventCallFailed            = "CallFailed"
	EventReceiveOffer          = "ReceiveOffer"
	EventReceiveAnswer         = "ReceiveAnswer"
	EventReceiveIceCandidate   = "ReceiveIceCandidate"
	EventError                 = "Error"
)

// envelope wraps every outbound event.
type envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type UsersUpdatedPayload struct {
	Users []string `json:"users"`
}

// MessagePayload carries a routed chat message. To is set on private
// messages, Group on group messages, neither on broadcasts.
type MessagePayload struct {
	ID        int64     `json:"id"`
	From      string    `json:"from"`
	To        string    `json:"to,omitempty"`
	Group     string    `json:"group,omitempty"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	FileURL   string    `json:"file_url,omitempty"`
	FileName  string    `json:"file_name,omitempty"`
	FileType  string    `json:"file_type,omitempty"`
	FileSize  int64     `json:"file_size,omitempty"`
	IsRead    bool      `json:"is_read"`
}

func messagePayload(m *models.Message) MessagePayload {
	p := MessagePayload{
		ID:        m.ID,
		From:      m.FromUser,
		To:        m.ToUser,
		Group:     m.GroupName,
		Text:      m.Text,
		Timestamp: m.TimestampUTC,
		IsRead:    m.IsRead,
	}
	if att := m.Attachment; att != nil {
		p.FileURL = att.URL
		p.FileName = att.Name
		p.FileType = att.Type
		p.FileSize = att.Size
	}
	return p
}

type MessageReadPayload struct {
	ID int64 `json:"id"`
}

type TypingPayload struct {
	From  string `json:"from"`
	To    string `json:"to,omitempty"`
	Group string `json:"group,omitempty"`
}

type SystemMessagePayload struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

// IncomingCallPayload announces a ringing call to the callee.
type IncomingCallPayload struct {
	From  string `json:"from"`
	Media string `json:"media"`
}

// CallPeerPayload identifies the other party on accept/reject/end events.
type CallPeerPayload struct {
	From string `json:"from"`
}

type CallFailedPayload struct {
	Peer   string `json:"peer"`
	Reason string `json:"reason"`
}

// SignalPayload relays an opaque WebRTC negotiation blob. The relay never
// inspects Payload.
type SignalPayload struct {
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Inbound action names.
const (
	ActionSend         = "send"
	ActionSendPrivate  = "send_private"
	ActionSendGroup    = "send_group"
	ActionMarkRead     = "mark_read"
	ActionJoinGroup    = "join_group"
	ActionLeaveGroup   = "leave_group"
	ActionTyping       = "typing"
	ActionTypingGroup  = "typing_group"
	ActionCall         = "call"
	ActionAcceptCall   = "accept_call"
	ActionRejectCall   = "reject_call"
	ActionHangup       = "hangup"
	ActionOffer        = "offer"
	ActionAnswer       = "answer"
	ActionIceCandidate = "ice_candidate"
)

// Action is one inbound client request.
type Action struct {
	Action     string             `json:"action"`
	To         string             `json:"to,omitempty"`
	Group      string             `json:"group,omitempty"`
	Text       string             `json:"text,omitempty"`
	Attachment *models.Attachment `json:"attachment,omitempty"`
	// MessageID and From identify the message and its original sender on
	// "mark_read".
	MessageID int64  `json:"message_id,omitempty"`
	From      string `json:"from,omitempty"`
	// Peer is the other party on call actions: the callee on "call", the
	// caller on "accept_call"/"reject_call", either side on the rest.
	Peer    string          `json:"peer,omitempty"`
	Media   string          `json:"media,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}
