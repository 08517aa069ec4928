package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
)

// GetChatSession retrieves a session joined with the owning agent's name
// for display. Returns (nil, nil) when the session does not exist.
func (s *SQLiteStore) GetChatSession(ctx context.Context, id string) (*domain.ChatSession, error) {
	query := `
		SELECT cs.id, cs.agent_id, a.name, cs.session_source, cs.user_identifier,
		       cs.started_at, cs.ended_at, cs.message_count, cs.tool_call_count
		FROM chat_sessions cs
		LEFT JOIN agents a ON a.id = cs.agent_id
		WHERE cs.id = ?`

	row := s.db.QueryRowContext(ctx, query, id)
	session, err := scanChatSession(row.Scan)
	if err != nil {
		return nil, err
	}
	return session, nil
}

type scanFunc func(dest ...interface{}) error

func scanChatSession(scan scanFunc) (*domain.ChatSession, error) {
	var session domain.ChatSession
	var agentName, userIdentifier sql.NullString
	var startedAt int64
	var endedAt sql.NullInt64

	err := scan(
		&session.ID, &session.AgentID, &agentName, &session.SessionSource, &userIdentifier,
		&startedAt, &endedAt, &session.MessageCount, &session.ToolCallCount,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan chat session row: %w", err)
	}

	session.AgentName = agentName.String
	session.UserIdentifier = userIdentifier.String
	session.StartedAt = time.Unix(startedAt, 0)
	if endedAt.Valid {
		ts := time.Unix(endedAt.Int64, 0)
		session.EndedAt = &ts
	}
	return &session, nil
}

// ListChatSessions returns sessions newest first, optionally filtered by
// agent.
func (s *SQLiteStore) ListChatSessions(ctx context.Context, agentID string, limit, offset int) ([]domain.ChatSession, error) {
	query := `
		SELECT cs.id, cs.agent_id, a.name, cs.session_source, cs.user_identifier,
		       cs.started_at, cs.ended_at, cs.message_count, cs.tool_call_count
		FROM chat_sessions cs
		LEFT JOIN agents a ON a.id = cs.agent_id`
	args := []interface{}{}

	if agentID != "" {
		query += ` WHERE cs.agent_id = ?`
		args = append(args, agentID)
	}
	query += ` ORDER BY cs.started_at DESC, cs.rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query chat sessions: %w", err)
	}
	defer closeRows(rows, "chat sessions")

	sessions := []domain.ChatSession{}
	for rows.Next() {
		session, err := scanChatSession(rows.Scan)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat sessions: %w", err)
	}
	return sessions, nil
}

// InsertChatSession creates a new session record.
func (s *SQLiteStore) InsertChatSession(ctx context.Context, session *domain.ChatSession) error {
	query := `
	INSERT INTO chat_sessions (id, agent_id, session_source, user_identifier, started_at, message_count, tool_call_count)
	VALUES (?, ?, ?, ?, ?, 0, 0)`

	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.AgentID, session.SessionSource,
		nullable(session.UserIdentifier), session.StartedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert chat session: %w", err)
	}
	return nil
}

// EndChatSession stamps ended_at on an open session.
func (s *SQLiteStore) EndChatSession(ctx context.Context, id string, endedAt time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET ended_at = ? WHERE id = ?`, endedAt.Unix(), id)
	if err != nil {
		return fmt.Errorf("end chat session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("end chat session %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

// DeleteChatSession removes a session; its messages and tool calls
// follow via schema cascades, so the store owns the referential cleanup.
// Retries with exponential backoff to handle SQLITE_BUSY errors.
func (s *SQLiteStore) DeleteChatSession(ctx context.Context, id string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.deleteChatSessionOnce(ctx, id)
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		if i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i) // exponential backoff: 100ms, 200ms, 400ms
			slog.Debug("DeleteChatSession failed with SQLITE_BUSY, retrying",
				"session_id", id,
				"attempt", i+1,
				"delay", delay)
			time.Sleep(delay)
			continue
		}
		return fmt.Errorf("delete chat session %s after %d attempts: %w", id, maxRetries, err)
	}
	return nil
}

func (s *SQLiteStore) deleteChatSessionOnce(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete chat session %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

// CleanupEndedSessions removes sessions whose ended_at is older than the
// retention window. Open sessions are never swept.
func (s *SQLiteStore) CleanupEndedSessions(ctx context.Context, retention time.Duration) (int64, error) {
	threshold := time.Now().Add(-retention).Unix()
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM chat_sessions WHERE ended_at IS NOT NULL AND ended_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("cleanup ended sessions: %w", err)
	}
	return result.RowsAffected()
}

// ListSessionMessages returns a session's messages ordered by created_at
// ascending; ties keep insertion order via the rowid tiebreak.
func (s *SQLiteStore) ListSessionMessages(ctx context.Context, sessionID string) ([]domain.ChatMessage, error) {
	query := `
		SELECT id, session_id, role, content, thoughts, created_at
		FROM chat_messages WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer closeRows(rows, "chat messages")

	messages := []domain.ChatMessage{}
	for rows.Next() {
		var msg domain.ChatMessage
		var thoughts sql.NullString
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &thoughts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan chat message row: %w", err)
		}
		msg.Thoughts = thoughts.String
		msg.CreatedAt = time.Unix(createdAt, 0)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat messages: %w", err)
	}
	return messages, nil
}

// InsertChatMessage appends a message and bumps the session's redundant
// message counter in the same transaction.
func (s *SQLiteStore) InsertChatMessage(ctx context.Context, msg *domain.ChatMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin message insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, role, content, thoughts, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.SessionID, msg.Role, msg.Content, nullable(msg.Thoughts), msg.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert chat message: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE chat_sessions SET message_count = message_count + 1 WHERE id = ?`, msg.SessionID)
	if err != nil {
		return fmt.Errorf("bump message count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit message insert: %w", err)
	}
	return nil
}

// ListSessionToolCalls returns every tool call recorded for a session,
// ordered by created_at ascending with the rowid tiebreak. This flat
// list is authoritative for counts and telemetry; per-message attachment
// is derived from it for display.
func (s *SQLiteStore) ListSessionToolCalls(ctx context.Context, sessionID string) ([]domain.ToolCall, error) {
	query := `
		SELECT id, message_id, session_id, tool_name, tool_input, tool_output, execution_time_ms, status, created_at
		FROM tool_calls WHERE session_id = ?
		ORDER BY created_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query tool calls: %w", err)
	}
	defer closeRows(rows, "tool calls")

	calls := []domain.ToolCall{}
	for rows.Next() {
		var call domain.ToolCall
		var input, output sql.NullString
		var execMS sql.NullInt64
		var createdAt int64
		err := rows.Scan(
			&call.ID, &call.MessageID, &call.SessionID, &call.ToolName,
			&input, &output, &execMS, &call.Status, &createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan tool call row: %w", err)
		}
		call.ToolInput = input.String
		call.ToolOutput = output.String
		if execMS.Valid {
			ms := execMS.Int64
			call.ExecutionTimeMS = &ms
		}
		call.CreatedAt = time.Unix(createdAt, 0)
		calls = append(calls, call)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tool calls: %w", err)
	}
	return calls, nil
}

// InsertToolCall records a tool invocation and bumps the session's
// redundant tool-call counter in the same transaction.
func (s *SQLiteStore) InsertToolCall(ctx context.Context, call *domain.ToolCall) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tool call insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var execMS interface{}
	if call.ExecutionTimeMS != nil {
		execMS = *call.ExecutionTimeMS
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO tool_calls (id, message_id, session_id, tool_name, tool_input, tool_output, execution_time_ms, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		call.ID, call.MessageID, call.SessionID, call.ToolName,
		nullable(call.ToolInput), nullable(call.ToolOutput), execMS, call.Status, call.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert tool call: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE chat_sessions SET tool_call_count = tool_call_count + 1 WHERE id = ?`, call.SessionID)
	if err != nil {
		return fmt.Errorf("bump tool call count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tool call insert: %w", err)
	}
	return nil
}
