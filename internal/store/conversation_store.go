package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/soyeahso/taskdeck/internal/domain"
)

// ConversationStore persists conversations and their messages. All reads and
// deletes are owner-scoped.
type ConversationStore struct {
	db *DB
}

// NewConversationStore creates a conversation store using the given database.
func NewConversationStore(db *DB) *ConversationStore {
	return &ConversationStore{db: db}
}

// Create starts a new conversation for the owner.
func (s *ConversationStore) Create(ownerID string) (domain.Conversation, error) {
	now := storeNow()
	res, err := s.db.sql.Exec(
		`INSERT INTO conversations (owner_id, created_at, updated_at) VALUES (?, ?, ?)`,
		ownerID, now.Format(time.DateTime), now.Format(time.DateTime),
	)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("creating conversation: %w", err)
	}

	return domain.Conversation{ID: id, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now}, nil
}

// Get returns the owner's conversation with the given ID.
func (s *ConversationStore) Get(ownerID string, id int64) (domain.Conversation, error) {
	var c domain.Conversation
	var createdAt, updatedAt string

	err := s.db.sql.QueryRow(
		`SELECT id, owner_id, created_at, updated_at FROM conversations WHERE id = ? AND owner_id = ?`,
		id, ownerID,
	).Scan(&c.ID, &c.OwnerID, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, &domain.NotFoundError{Kind: "conversation", ID: id}
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("loading conversation %d: %w", id, err)
	}

	c.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
	c.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
	return c, nil
}

// GetOrCreate returns the owner's conversation with the given ID, or creates
// a new one when id is zero.
func (s *ConversationStore) GetOrCreate(ownerID string, id int64) (domain.Conversation, error) {
	if id == 0 {
		return s.Create(ownerID)
	}
	return s.Get(ownerID, id)
}

// ListByOwner returns the owner's conversations, most recently active first.
func (s *ConversationStore) ListByOwner(ownerID string) ([]domain.Conversation, error) {
	rows, err := s.db.sql.Query(
		`SELECT id, owner_id, created_at, updated_at FROM conversations
		 WHERE owner_id = ? ORDER BY updated_at DESC, id DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	defer rows.Close()

	convs := []domain.Conversation{}
	for rows.Next() {
		var c domain.Conversation
		var createdAt, updatedAt string
		if err := rows.Scan(&c.ID, &c.OwnerID, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		c.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		c.UpdatedAt, _ = time.Parse(time.DateTime, updatedAt)
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Delete removes the owner's conversation and all its messages.
func (s *ConversationStore) Delete(ownerID string, id int64) error {
	if _, err := s.Get(ownerID, id); err != nil {
		return err
	}
	if _, err := s.db.sql.Exec(`DELETE FROM conversations WHERE id = ? AND owner_id = ?`, id, ownerID); err != nil {
		return fmt.Errorf("deleting conversation %d: %w", id, err)
	}
	return nil
}

// AppendMessage stores a message in a conversation. Content beyond the stored
// limit is truncated. The conversation timestamp is bumped separately via
// Touch so one chat turn produces exactly one bump.
func (s *ConversationStore) AppendMessage(msg domain.Message) (domain.Message, error) {
	if len(msg.Content) > domain.MaxStoredContentLen {
		cut := domain.MaxStoredContentLen
		// Back up to a rune boundary so the stored text stays valid UTF-8.
		for cut > 0 && !utf8.RuneStart(msg.Content[cut]) {
			cut--
		}
		msg.Content = msg.Content[:cut]
	}

	var toolCallsJSON sql.NullString
	if len(msg.ToolCalls) > 0 {
		data, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return domain.Message{}, fmt.Errorf("encoding tool calls: %w", err)
		}
		toolCallsJSON = sql.NullString{String: string(data), Valid: true}
	}

	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = storeNow()
	}

	res, err := s.db.sql.Exec(
		`INSERT INTO messages (conversation_id, owner_id, role, content, tool_calls, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ConversationID, msg.OwnerID, msg.Role, msg.Content, toolCallsJSON,
		msg.CreatedAt.Format(time.DateTime),
	)
	if err != nil {
		return domain.Message{}, fmt.Errorf("appending message: %w", err)
	}

	msg.ID, err = res.LastInsertId()
	if err != nil {
		return domain.Message{}, fmt.Errorf("appending message: %w", err)
	}
	return msg, nil
}

// Touch bumps the conversation's updated_at to now.
func (s *ConversationStore) Touch(id int64) error {
	_, err := s.db.sql.Exec(
		`UPDATE conversations SET updated_at = ? WHERE id = ?`,
		storeNow().Format(time.DateTime), id,
	)
	if err != nil {
		return fmt.Errorf("touching conversation %d: %w", id, err)
	}
	return nil
}

// History returns the most recent limit messages of a conversation in
// chronological order. A limit of zero or less returns everything.
func (s *ConversationStore) History(conversationID int64, limit int) ([]domain.Message, error) {
	query := `SELECT id, conversation_id, owner_id, role, content, tool_calls, created_at
	          FROM messages WHERE conversation_id = ? ORDER BY id DESC`
	args := []any{conversationID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	defer rows.Close()

	msgs, err := scanMessages(rows)
	if err != nil {
		return nil, err
	}

	// Rows came back newest-first; flip to chronological.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

// Messages returns all messages of the owner's conversation in chronological
// order.
func (s *ConversationStore) Messages(ownerID string, conversationID int64) ([]domain.Message, error) {
	if _, err := s.Get(ownerID, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.db.sql.Query(
		`SELECT id, conversation_id, owner_id, role, content, tool_calls, created_at
		 FROM messages WHERE conversation_id = ? ORDER BY id`, conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages: %w", err)
	}
	defer rows.Close()

	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]domain.Message, error) {
	msgs := []domain.Message{}
	for rows.Next() {
		var m domain.Message
		var toolCallsJSON sql.NullString
		var createdAt string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.OwnerID, &m.Role, &m.Content, &toolCallsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if toolCallsJSON.Valid && toolCallsJSON.String != "" {
			_ = json.Unmarshal([]byte(toolCallsJSON.String), &m.ToolCalls)
		}
		m.CreatedAt, _ = time.Parse(time.DateTime, createdAt)
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
