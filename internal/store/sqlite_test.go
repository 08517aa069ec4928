package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/google/uuid"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func seedAgent(t *testing.T, repo Repository, status domain.AgentStatus) *domain.Agent {
	t.Helper()
	now := time.Now()
	agent := &domain.Agent{
		ID:         uuid.NewString(),
		Name:       "Support Bot",
		Status:     status,
		EmbedToken: "tok-" + uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.InsertAgent(context.Background(), agent); err != nil {
		t.Fatalf("InsertAgent failed: %v", err)
	}
	return agent
}

func seedSession(t *testing.T, repo Repository, agentID string) *domain.ChatSession {
	t.Helper()
	session := &domain.ChatSession{
		ID:            uuid.NewString(),
		AgentID:       agentID,
		SessionSource: "widget",
		StartedAt:     time.Now(),
	}
	if err := repo.InsertChatSession(context.Background(), session); err != nil {
		t.Fatalf("InsertChatSession failed: %v", err)
	}
	return session
}

func seedMessage(t *testing.T, repo Repository, sessionID, content string, at time.Time) *domain.ChatMessage {
	t.Helper()
	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Role:      domain.RoleAssistant,
		Content:   content,
		CreatedAt: at,
	}
	if err := repo.InsertChatMessage(context.Background(), msg); err != nil {
		t.Fatalf("InsertChatMessage failed: %v", err)
	}
	return msg
}

func seedToolCall(t *testing.T, repo Repository, sessionID, messageID, name string, at time.Time) *domain.ToolCall {
	t.Helper()
	call := &domain.ToolCall{
		ID:        uuid.NewString(),
		MessageID: messageID,
		SessionID: sessionID,
		ToolName:  name,
		Status:    domain.ToolCallSuccess,
		CreatedAt: at,
	}
	if err := repo.InsertToolCall(context.Background(), call); err != nil {
		t.Fatalf("InsertToolCall failed: %v", err)
	}
	return call
}

func TestPingAndClose(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
