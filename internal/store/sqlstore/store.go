package sqlstore

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/xisxus/ConnectApp/internal/models"
)

type SQLStore struct {
	db         *sql.DB
	driverName string
}

func New(driverName, dataSourceName string) (*SQLStore, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = db.Ping(); err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driverName: driverName}
	if err := s.createTables(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) createTables() error {
	// Simplified for brevity, ideally use migrations
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT UNIQUE NOT NULL,
		password TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS groups (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT UNIQUE NOT NULL
	);

	CREATE TABLE IF NOT EXISTS group_members (
		username TEXT NOT NULL,
		group_name TEXT NOT NULL,
		PRIMARY KEY (username, group_name)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		from_user TEXT NOT NULL,
		to_user TEXT,
		group_name TEXT,
		text TEXT NOT NULL,
		file_url TEXT,
		file_name TEXT,
		file_type TEXT,
		file_size INTEGER,
		timestamp_utc DATETIME NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		read_at DATETIME
	);
	`

	if s.driverName == "postgres" {
		// Adjust for Postgres syntax
		query = strings.ReplaceAll(query, "INTEGER PRIMARY KEY AUTOINCREMENT", "SERIAL PRIMARY KEY")
		query = strings.ReplaceAll(query, "DATETIME", "TIMESTAMP")
	}

	_, err := s.db.Exec(query)
	return err
}

// Helper to handle placeholders
func (s *SQLStore) rebind(query string) string {
	if s.driverName == "postgres" {
		// Replace ? with $1, $2, etc.
		n := strings.Count(query, "?")
		for i := 1; i <= n; i++ {
			query = strings.Replace(query, "?", fmt.Sprintf("$%d", i), 1)
		}
	}
	return query
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (s *SQLStore) CreateUser(user *models.User) error {
	query := s.rebind("INSERT INTO users (username, password) VALUES (?, ?)")
	_, err := s.db.Exec(query, user.Username, user.Password)
	return err
}

func (s *SQLStore) GetUserByUsername(username string) (*models.User, error) {
	var user models.User
	query := s.rebind("SELECT id, username, password FROM users WHERE username = ?")
	err := s.db.QueryRow(query, username).Scan(&user.ID, &user.Username, &user.Password)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *SQLStore) UserExists(username string) (bool, error) {
	var exists bool
	query := s.rebind("SELECT EXISTS(SELECT 1 FROM users WHERE username = ?)")
	err := s.db.QueryRow(query, username).Scan(&exists)
	return exists, err
}

func (s *SQLStore) SearchUsers(queryStr string) ([]models.User, error) {
	query := s.rebind("SELECT id, username FROM users WHERE username LIKE ? ORDER BY username LIMIT 10")
	rows, err := s.db.Query(query, "%"+queryStr+"%")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		var user models.User
		if err := rows.Scan(&user.ID, &user.Username); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *SQLStore) SaveMessage(msg *models.Message) (int64, error) {
	var fileURL, fileName, fileType sql.NullString
	var fileSize sql.NullInt64
	if att := msg.Attachment; att != nil {
		fileURL = nullString(att.URL)
		fileName = nullString(att.Name)
		fileType = nullString(att.Type)
		fileSize = sql.NullInt64{Int64: att.Size, Valid: true}
	}

	var id int64
	query := s.rebind(`
		INSERT INTO messages (from_user, to_user, group_name, text, file_url, file_name, file_type, file_size, timestamp_utc, is_read)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id
	`)
	err := s.db.QueryRow(query,
		msg.FromUser, nullString(msg.ToUser), nullString(msg.GroupName), msg.Text,
		fileURL, fileName, fileType, fileSize, msg.TimestampUTC, msg.IsRead,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *SQLStore) MarkMessageRead(id int64, readAt time.Time) (bool, error) {
	query := s.rebind("UPDATE messages SET is_read = TRUE, read_at = ? WHERE id = ? AND is_read = FALSE")
	result, err := s.db.Exec(query, readAt, id)
	if err != nil {
		return false, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

const messageColumns = `
	id, from_user, COALESCE(to_user, ''), COALESCE(group_name, ''), text,
	COALESCE(file_url, ''), COALESCE(file_name, ''), COALESCE(file_type, ''), COALESCE(file_size, 0),
	timestamp_utc, is_read, read_at
`

func (s *SQLStore) RecentBroadcastMessages(limit int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages
		WHERE to_user IS NULL AND group_name IS NULL
		ORDER BY timestamp_utc DESC, id DESC
		LIMIT ?
	`)
	return s.queryMessages(query, limit)
}

func (s *SQLStore) RecentPrivateMessages(userA, userB string, limit int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages
		WHERE (from_user = ? AND to_user = ?) OR (from_user = ? AND to_user = ?)
		ORDER BY timestamp_utc DESC, id DESC
		LIMIT ?
	`)
	return s.queryMessages(query, userA, userB, userB, userA, limit)
}

func (s *SQLStore) RecentGroupMessages(groupName string, limit int) ([]models.Message, error) {
	query := s.rebind(`
		SELECT ` + messageColumns + `
		FROM messages
		WHERE group_name = ?
		ORDER BY timestamp_utc DESC, id DESC
		LIMIT ?
	`)
	return s.queryMessages(query, groupName, limit)
}

func (s *SQLStore) queryMessages(query string, args ...interface{}) ([]models.Message, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var att models.Attachment
		var readAt sql.NullTime
		if err := rows.Scan(
			&m.ID, &m.FromUser, &m.ToUser, &m.GroupName, &m.Text,
			&att.URL, &att.Name, &att.Type, &att.Size,
			&m.TimestampUTC, &m.IsRead, &readAt,
		); err != nil {
			return nil, err
		}
		if att.URL != "" {
			m.Attachment = &att
		}
		if readAt.Valid {
			t := readAt.Time
			m.ReadAt = &t
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

func (s *SQLStore) EnsureGroup(name string) error {
	query := s.rebind("INSERT INTO groups (name) VALUES (?) ON CONFLICT (name) DO NOTHING")
	_, err := s.db.Exec(query, name)
	return err
}

func (s *SQLStore) EnsureMembership(username, groupName string) error {
	query := s.rebind("INSERT INTO group_members (username, group_name) VALUES (?, ?) ON CONFLICT (username, group_name) DO NOTHING")
	_, err := s.db.Exec(query, username, groupName)
	return err
}

func (s *SQLStore) RemoveMembership(username, groupName string) error {
	query := s.rebind("DELETE FROM group_members WHERE username = ? AND group_name = ?")
	_, err := s.db.Exec(query, username, groupName)
	return err
}

func (s *SQLStore) GroupsOf(username string) ([]string, error) {
	query := s.rebind("SELECT group_name FROM group_members WHERE username = ? ORDER BY group_name")
	return s.queryStrings(query, username)
}

func (s *SQLStore) GroupMembers(groupName string) ([]string, error) {
	query := s.rebind("SELECT username FROM group_members WHERE group_name = ? ORDER BY username")
	return s.queryStrings(query, groupName)
}

func (s *SQLStore) queryStrings(query string, args ...interface{}) ([]string, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
