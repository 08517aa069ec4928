// Package chatlog records conversation sessions and reconstructs their
// transcripts for display.
package chatlog

import (
	"context"
	"fmt"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
	"github.com/ashureev/agentdeck/internal/store"
	"github.com/google/uuid"
)

// TranscriptMessage is a chat message with the tool calls it produced
// attached for display.
type TranscriptMessage struct {
	domain.ChatMessage
	ToolCalls []domain.ToolCall `json:"toolCalls"`
}

// SessionDetail is a fully reconstructed session transcript. The flat
// ToolCalls list is authoritative for counts and telemetry; per-message
// attachment is a display convenience, so a tool call whose message_id
// matches no fetched message appears only in the flat list.
type SessionDetail struct {
	Session   domain.ChatSession  `json:"session"`
	Messages  []TranscriptMessage `json:"messages"`
	ToolCalls []domain.ToolCall   `json:"toolCalls"`
}

// Aggregator owns chat session, message, and tool-call records.
type Aggregator struct {
	repo store.Repository
}

// NewAggregator creates a session aggregator backed by the repository.
func NewAggregator(repo store.Repository) *Aggregator {
	return &Aggregator{repo: repo}
}

// SessionDetail reconstructs a session's transcript: the session row
// (joined with the owning agent's name), its messages in created_at
// order, and all tool calls with each attached to its originating
// message by message_id.
func (a *Aggregator) SessionDetail(ctx context.Context, sessionID string) (*SessionDetail, error) {
	session, err := a.repo.GetChatSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session %s: %w", sessionID, shared.ErrNotFound)
	}

	messages, err := a.repo.ListSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}

	toolCalls, err := a.repo.ListSessionToolCalls(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list tool calls: %w", err)
	}

	byMessage := make(map[string][]domain.ToolCall, len(messages))
	for _, call := range toolCalls {
		byMessage[call.MessageID] = append(byMessage[call.MessageID], call)
	}

	transcript := make([]TranscriptMessage, 0, len(messages))
	for _, msg := range messages {
		attached := byMessage[msg.ID]
		if attached == nil {
			attached = []domain.ToolCall{}
		}
		transcript = append(transcript, TranscriptMessage{
			ChatMessage: msg,
			ToolCalls:   attached,
		})
	}

	return &SessionDetail{
		Session:   *session,
		Messages:  transcript,
		ToolCalls: toolCalls,
	}, nil
}

// ListSessions returns sessions newest first, optionally filtered by
// agent. Limit is clamped to a sane default when unset.
func (a *Aggregator) ListSessions(ctx context.Context, agentID string, limit, offset int) ([]domain.ChatSession, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return a.repo.ListChatSessions(ctx, agentID, limit, offset)
}

// StartSession opens a new session for an agent.
func (a *Aggregator) StartSession(ctx context.Context, agentID, source, userIdentifier string) (*domain.ChatSession, error) {
	if agentID == "" {
		return nil, fmt.Errorf("agent id is required: %w", shared.ErrInvalidInput)
	}
	if source == "" {
		source = "widget"
	}

	session := &domain.ChatSession{
		ID:             uuid.NewString(),
		AgentID:        agentID,
		SessionSource:  source,
		UserIdentifier: userIdentifier,
		StartedAt:      time.Now(),
	}
	if err := a.repo.InsertChatSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// EndSession stamps ended_at on an open session.
func (a *Aggregator) EndSession(ctx context.Context, sessionID string) error {
	return a.repo.EndChatSession(ctx, sessionID, time.Now())
}

// RecordMessage appends a message to a session transcript.
func (a *Aggregator) RecordMessage(ctx context.Context, sessionID string, role domain.MessageRole, content, thoughts string) (*domain.ChatMessage, error) {
	if sessionID == "" || content == "" {
		return nil, fmt.Errorf("session id and content are required: %w", shared.ErrInvalidInput)
	}

	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		Thoughts:  thoughts,
		CreatedAt: time.Now(),
	}
	if err := a.repo.InsertChatMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// ToolCallRecord carries the fields of one tool invocation to record.
type ToolCallRecord struct {
	MessageID       string
	SessionID       string
	ToolName        string
	ToolInput       string
	ToolOutput      string
	ExecutionTimeMS *int64
	Status          domain.ToolCallStatus
}

// RecordToolCall records a tool invocation against its originating
// message. The session id is stored redundantly alongside the
// authoritative message linkage so session-wide queries avoid a join.
func (a *Aggregator) RecordToolCall(ctx context.Context, rec ToolCallRecord) (*domain.ToolCall, error) {
	if rec.MessageID == "" || rec.SessionID == "" || rec.ToolName == "" {
		return nil, fmt.Errorf("message id, session id and tool name are required: %w", shared.ErrInvalidInput)
	}
	if rec.Status == "" {
		rec.Status = domain.ToolCallPending
	}

	call := &domain.ToolCall{
		ID:              uuid.NewString(),
		MessageID:       rec.MessageID,
		SessionID:       rec.SessionID,
		ToolName:        rec.ToolName,
		ToolInput:       rec.ToolInput,
		ToolOutput:      rec.ToolOutput,
		ExecutionTimeMS: rec.ExecutionTimeMS,
		Status:          rec.Status,
		CreatedAt:       time.Now(),
	}
	if err := a.repo.InsertToolCall(ctx, call); err != nil {
		return nil, err
	}
	return call, nil
}

// DeleteSession removes a session and, transitively, all its messages
// and tool calls. Deleting a session with zero messages is not an
// error; deleting a session that does not exist is ErrNotFound.
func (a *Aggregator) DeleteSession(ctx context.Context, sessionID string) error {
	return a.repo.DeleteChatSession(ctx, sessionID)
}
