// Package chat persists conversations and their messages in SQLite.
package chat

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Chative-core-poc-v1/travel-concierge/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/travel-concierge/internal/core/error"
	logx "github.com/Chative-core-poc-v1/travel-concierge/pkg/logger"
	"github.com/Chative-core-poc-v1/travel-concierge/pkg/sqlite"
)

// DefaultTitle names conversations created without a title.
const DefaultTitle = "New conversation"

//go:embed migrations/001_chat.sql
var chatSchema string

// Migrations creates the chat tables.
var Migrations = []sqlite.Migration{{Name: "chat_001_conversations_messages", SQL: chatSchema}}

// Store is the SQLite chat store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore migrates db and returns the store.
func NewStore(ctx context.Context, db *sql.DB) (*Store, error) {
	if err := sqlite.Migrate(ctx, db, Migrations); err != nil {
		return nil, err
	}
	return &Store{db: db, now: time.Now}, nil
}

func conversationNotFound(id string) error {
	return errx.New(fmt.Errorf("%w: conversation %s", errx.ErrNotFound, id), http.StatusNotFound, "Conversation not found")
}

// CreateConversation inserts a conversation. An empty title falls back to
// DefaultTitle.
func (s *Store) CreateConversation(ctx context.Context, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = DefaultTitle
	}
	now := s.now().UTC()
	c := &model.Conversation{ID: uuid.NewString(), Title: title, CreatedAt: now, UpdatedAt: now}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, now.UnixNano(), now.UnixNano(),
	); err != nil {
		logx.Error().Err(err).Msg("failed to insert conversation")
		return nil, errx.WrapSQL(err)
	}
	return c, nil
}

// GetConversation returns the conversation or an ErrNotFound AppError.
func (s *Store) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	c, err := scanConversation(s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, conversationNotFound(id)
	}
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	return c, nil
}

// ListConversations returns every conversation, most recently updated first.
func (s *Store) ListConversations(ctx context.Context) ([]model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	out := []model.Conversation{}
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, errx.WrapSQL(err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return out, nil
}

// UpdateConversation renames a conversation and bumps updated_at.
func (s *Store) UpdateConversation(ctx context.Context, id, title string) (*model.Conversation, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errx.BadRequest("title must not be empty")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer tx.Rollback()

	if _, err := s.touch(ctx, tx, id); err != nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET title = ? WHERE id = ?`, title, id); err != nil {
		return nil, errx.WrapSQL(err)
	}
	c, err := scanConversation(tx.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM conversations WHERE id = ?`, id))
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return c, nil
}

// DeleteConversation removes a conversation and, by cascade, its messages.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return errx.WrapSQL(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errx.WrapSQL(err)
	}
	if n == 0 {
		return conversationNotFound(id)
	}
	return nil
}

// AddMessage appends a message and bumps the conversation's updated_at.
// A repeated non-empty TurnKey for the same role returns the stored row
// instead of inserting a duplicate.
func (s *Store) AddMessage(ctx context.Context, conversationID string, msg model.NewMessage) (*model.StoredMessage, error) {
	if msg.Role == "" {
		return nil, errx.BadRequest("message role is required")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer tx.Rollback()

	if msg.TurnKey != "" {
		existing, err := scanMessage(tx.QueryRowContext(ctx,
			`SELECT id, conversation_id, role, content, tool_results, created_at FROM messages
			 WHERE conversation_id = ? AND role = ? AND turn_key = ?`,
			conversationID, msg.Role, msg.TurnKey))
		switch {
		case err == nil:
			logx.Debug().Str("conversation_id", conversationID).Str("turn_key", msg.TurnKey).Msg("message already stored")
			return existing, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, errx.WrapSQL(err)
		}
	}

	updated, err := s.touch(ctx, tx, conversationID)
	if err != nil {
		return nil, err
	}

	var toolResults sql.NullString
	if len(msg.ToolResults) > 0 {
		raw, err := json.Marshal(msg.ToolResults)
		if err != nil {
			return nil, fmt.Errorf("marshal tool results: %w", err)
		}
		toolResults = sql.NullString{String: string(raw), Valid: true}
	}

	stored := &model.StoredMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolResults:    msg.ToolResults,
		CreatedAt:      updated,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO messages (id, conversation_id, seq, role, content, tool_results, turn_key, created_at)
		 VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = ?), ?, ?, ?, ?, ?)`,
		stored.ID, conversationID, conversationID, msg.Role, msg.Content, toolResults, msg.TurnKey, updated.UnixNano(),
	); err != nil {
		logx.Error().Err(err).Str("conversation_id", conversationID).Msg("failed to insert message")
		return nil, errx.WrapSQL(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return stored, nil
}

// GetMessages returns the conversation's messages in the order they were
// added.
func (s *Store) GetMessages(ctx context.Context, conversationID string) ([]model.StoredMessage, error) {
	if _, err := s.GetConversation(ctx, conversationID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, role, content, tool_results, created_at FROM messages
		 WHERE conversation_id = ? ORDER BY seq`, conversationID)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	out := []model.StoredMessage{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, errx.WrapSQL(err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return out, nil
}

// touch sets updated_at to now, or one nanosecond past the previous value
// when the clock has not moved, and returns it.
func (s *Store) touch(ctx context.Context, tx *sql.Tx, id string) (time.Time, error) {
	var prev int64
	err := tx.QueryRowContext(ctx, `SELECT updated_at FROM conversations WHERE id = ?`, id).Scan(&prev)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, conversationNotFound(id)
	}
	if err != nil {
		return time.Time{}, errx.WrapSQL(err)
	}
	next := s.now().UTC().UnixNano()
	if next <= prev {
		next = prev + 1
	}
	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET updated_at = ? WHERE id = ?`, next, id); err != nil {
		return time.Time{}, errx.WrapSQL(err)
	}
	return time.Unix(0, next).UTC(), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConversation(row scanner) (*model.Conversation, error) {
	var (
		c                model.Conversation
		created, updated int64
	)
	if err := row.Scan(&c.ID, &c.Title, &created, &updated); err != nil {
		return nil, err
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return &c, nil
}

func scanMessage(row scanner) (*model.StoredMessage, error) {
	var (
		m           model.StoredMessage
		toolResults sql.NullString
		created     int64
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &toolResults, &created); err != nil {
		return nil, err
	}
	m.CreatedAt = time.Unix(0, created).UTC()
	if toolResults.Valid && toolResults.String != "" {
		if err := json.Unmarshal([]byte(toolResults.String), &m.ToolResults); err != nil {
			logx.Warn().Err(err).Str("message_id", m.ID).Msg("dropping unreadable tool results")
			m.ToolResults = nil
		}
	}
	return &m, nil
}

var _ model.MessageSink = (*Store)(nil)
