package store

import (
	"time"

	"github.com/xisxus/ConnectApp/internal/models"
)

// Store is the durable collaborator behind the hub: the user directory, the
// message store and the group directory. The ws core treats it as a
// synchronous, already-correct service and never holds its own locks across
// a Store call.
type Store interface {
	// User directory
	CreateUser(user *models.User) error
	GetUserByUsername(username string) (*models.User, error)
	UserExists(username string) (bool, error)
	SearchUsers(query string) ([]models.User, error)

	// Message store
	SaveMessage(msg *models.Message) (int64, error)
	// MarkMessageRead flips is_read on the first call only. It reports
	// whether this call performed the transition; false means the message
	// is unknown or was already read.
	MarkMessageRead(id int64, readAt time.Time) (bool, error)
	// Recent* return at most limit messages, most recent first.
	RecentBroadcastMessages(limit int) ([]models.Message, error)
	RecentPrivateMessages(userA, userB string, limit int) ([]models.Message, error)
	RecentGroupMessages(groupName string, limit int) ([]models.Message, error)

	// Group directory
	EnsureGroup(name string) error
	EnsureMembership(username, groupName string) error
	RemoveMembership(username, groupName string) error
	GroupsOf(username string) ([]string, error)
	GroupMembers(groupName string) ([]string, error)
}
