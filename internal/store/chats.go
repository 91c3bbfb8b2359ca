package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ramavio/paperchat/internal/domain"
)

// ErrSessionNotFound is returned when a chat session id does not exist or
// does not belong to the requesting user.
var ErrSessionNotFound = errors.New("chat session not found")

// ChatStore persists chat sessions and their rows.
type ChatStore struct {
	db *DB
}

// NewChatStore creates a chat store using the given database.
func NewChatStore(db *DB) *ChatStore {
	return &ChatStore{db: db}
}

// CreateSession creates a conversation thread for a user and feature.
func (s *ChatStore) CreateSession(userID int64, feature domain.Feature, title string) (*domain.ChatSession, error) {
	now := time.Now()
	res, err := s.db.sql.Exec(
		`INSERT INTO chat_sessions (user_id, feature, title, timestamp) VALUES (?, ?, ?, ?)`,
		userID, string(feature), title, now.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading session id: %w", err)
	}
	return &domain.ChatSession{ID: id, UserID: userID, Feature: feature, Title: title, Timestamp: now}, nil
}

// GetSession returns a session owned by the user, or ErrSessionNotFound.
func (s *ChatStore) GetSession(id, userID int64) (*domain.ChatSession, error) {
	var sess domain.ChatSession
	var feature, ts string
	err := s.db.sql.QueryRow(
		`SELECT id, user_id, feature, title, timestamp FROM chat_sessions WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&sess.ID, &sess.UserID, &feature, &sess.Title, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("looking up session: %w", err)
	}
	sess.Feature = domain.Feature(feature)
	sess.Timestamp, _ = time.Parse(time.DateTime, ts)
	return &sess, nil
}

// SessionOwner returns the owning user id of a session, without an ownership
// precondition. Used by the streaming route, which starts from a chat id.
func (s *ChatStore) SessionOwner(sessionID int64) (int64, error) {
	var userID int64
	err := s.db.sql.QueryRow(
		`SELECT user_id FROM chat_sessions WHERE id = ?`, sessionID,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("looking up session owner: %w", err)
	}
	return userID, nil
}

// ListSessions returns a user's sessions for one feature, newest first.
func (s *ChatStore) ListSessions(userID int64, feature domain.Feature) ([]domain.ChatSession, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, user_id, feature, title, timestamp FROM chat_sessions
		 WHERE user_id = ? AND feature = ? ORDER BY timestamp DESC, id DESC`,
		userID, string(feature),
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.ChatSession
	for rows.Next() {
		var sess domain.ChatSession
		var f, ts string
		if err := rows.Scan(&sess.ID, &sess.UserID, &f, &sess.Title, &ts); err != nil {
			continue
		}
		sess.Feature = domain.Feature(f)
		sess.Timestamp, _ = time.Parse(time.DateTime, ts)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// DeleteSession removes a session owned by the user along with its chats.
func (s *ChatStore) DeleteSession(id, userID int64) error {
	res, err := s.db.sql.Exec(
		`DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, id, userID,
	)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrSessionNotFound
	}
	// Chats cascade via the session foreign key.
	return nil
}

// CreateChat inserts one chat row and returns it with its id and timestamp.
// userID is nil for assistant rows.
func (s *ChatStore) CreateChat(sessionID int64, userID *int64, feature domain.Feature, message, response string, steps []string) (*domain.Chat, error) {
	now := time.Now()

	var stepsJSON sql.NullString
	if steps != nil {
		data, err := json.Marshal(steps)
		if err == nil {
			stepsJSON = sql.NullString{String: string(data), Valid: true}
		}
	}

	res, err := s.db.sql.Exec(
		`INSERT INTO chats (session_id, user_id, feature, message, response, search_steps, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID, userID, string(feature),
		nullable(message), nullable(response), stepsJSON,
		now.Format(time.DateTime),
	)
	if err != nil {
		return nil, fmt.Errorf("creating chat: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("reading chat id: %w", err)
	}

	return &domain.Chat{
		ID:          id,
		SessionID:   sessionID,
		UserID:      userID,
		Feature:     feature,
		Message:     message,
		Response:    response,
		SearchSteps: steps,
		Timestamp:   now,
	}, nil
}

// GetChat returns a chat row by id, or nil if it does not exist.
func (s *ChatStore) GetChat(id int64) *domain.Chat {
	var c domain.Chat
	var feature, ts string
	var userID sql.NullInt64
	var message, response, stepsJSON sql.NullString

	err := s.db.sql.QueryRow(
		`SELECT id, session_id, user_id, feature, message, response, search_steps, timestamp
		 FROM chats WHERE id = ?`, id,
	).Scan(&c.ID, &c.SessionID, &userID, &feature, &message, &response, &stepsJSON, &ts)
	if err != nil {
		return nil
	}

	if userID.Valid {
		c.UserID = &userID.Int64
	}
	c.Feature = domain.Feature(feature)
	c.Message = message.String
	c.Response = response.String
	if stepsJSON.Valid {
		_ = json.Unmarshal([]byte(stepsJSON.String), &c.SearchSteps)
	}
	c.Timestamp, _ = time.Parse(time.DateTime, ts)
	return &c
}

// ListChats returns a session's rows in insertion order.
func (s *ChatStore) ListChats(sessionID int64) ([]domain.Chat, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, session_id, user_id, feature, message, response, search_steps, timestamp
		 FROM chats WHERE session_id = ? ORDER BY id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing chats: %w", err)
	}
	defer rows.Close()

	var out []domain.Chat
	for rows.Next() {
		var c domain.Chat
		var feature, ts string
		var userID sql.NullInt64
		var message, response, stepsJSON sql.NullString
		if err := rows.Scan(&c.ID, &c.SessionID, &userID, &feature, &message, &response, &stepsJSON, &ts); err != nil {
			continue
		}
		if userID.Valid {
			c.UserID = &userID.Int64
		}
		c.Feature = domain.Feature(feature)
		c.Message = message.String
		c.Response = response.String
		if stepsJSON.Valid {
			_ = json.Unmarshal([]byte(stepsJSON.String), &c.SearchSteps)
		}
		c.Timestamp, _ = time.Parse(time.DateTime, ts)
		out = append(out, c)
	}
	return out, rows.Err()
}

// UpdateChatResponse patches the assistant row in place once enrichment
// completes. The patch is keyed by primary id and is a no-op when the row is
// gone (session deleted mid-flight); it reports whether a row was updated.
// Response and step log change together so concurrent readers always see a
// consistent snapshot.
func (s *ChatStore) UpdateChatResponse(chatID int64, response string, steps []string) (bool, error) {
	stepsData, err := json.Marshal(steps)
	if err != nil {
		return false, fmt.Errorf("encoding steps: %w", err)
	}

	res, err := s.db.sql.Exec(
		`UPDATE chats SET response = ?, search_steps = ? WHERE id = ?`,
		response, string(stepsData), chatID,
	)
	if err != nil {
		return false, fmt.Errorf("updating chat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading rows affected: %w", err)
	}
	return n > 0, nil
}

// nullable maps "" to SQL NULL.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
