package models

import "time"

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Password string `json:"-"`
}

// Attachment file types.
const (
	FileTypeImage    = "image"
	FileTypeVideo    = "video"
	FileTypeDocument = "document"
)

type Attachment struct {
	URL  string `json:"file_url"`
	Name string `json:"file_name"`
	Type string `json:"file_type"`
	Size int64  `json:"file_size"`
}

// Message is one routed chat message. Exactly one addressing form applies:
// broadcast (ToUser and GroupName both empty), direct (ToUser set) or
// group (GroupName set). IsRead and ReadAt are only meaningful for direct
// messages.
type Message struct {
	ID           int64       `json:"id"`
	FromUser     string      `json:"from_user"`
	ToUser       string      `json:"to_user,omitempty"`
	GroupName    string      `json:"group_name,omitempty"`
	Text         string      `json:"text"`
	Attachment   *Attachment `json:"attachment,omitempty"`
	TimestampUTC time.Time   `json:"timestamp_utc"`
	IsRead       bool        `json:"is_read"`
	ReadAt       *time.Time  `json:"read_at,omitempty"`
}

func (m *Message) Broadcast() bool {
	return m.ToUser == "" && m.GroupName == ""
}
