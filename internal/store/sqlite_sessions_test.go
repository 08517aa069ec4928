package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
)

func TestGetChatSessionJoinsAgentName(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)
	session := seedSession(t, repo, agent.ID)

	got, err := repo.GetChatSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetChatSession failed: %v", err)
	}
	if got.AgentName != agent.Name {
		t.Errorf("expected joined agent name %q, got %q", agent.Name, got.AgentName)
	}
	if !got.IsOpen() {
		t.Error("new session must be open")
	}
}

func TestMessageOrderingStableOnEqualTimestamps(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)
	session := seedSession(t, repo, agent.ID)

	// Same created_at for all three: order must follow insertion, not
	// be re-sorted.
	at := time.Now()
	seedMessage(t, repo, session.ID, "first", at)
	seedMessage(t, repo, session.ID, "second", at)
	seedMessage(t, repo, session.ID, "third", at)

	messages, err := repo.ListSessionMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListSessionMessages failed: %v", err)
	}
	want := []string{"first", "second", "third"}
	if len(messages) != len(want) {
		t.Fatalf("expected %d messages, got %d", len(want), len(messages))
	}
	for i, content := range want {
		if messages[i].Content != content {
			t.Errorf("message[%d] = %q, want %q", i, messages[i].Content, content)
		}
	}
}

func TestInsertsBumpRedundantCounts(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)
	session := seedSession(t, repo, agent.ID)

	msg := seedMessage(t, repo, session.ID, "hello", time.Now())
	seedToolCall(t, repo, session.ID, msg.ID, "search", time.Now())
	seedToolCall(t, repo, session.ID, msg.ID, "fetch", time.Now())

	got, err := repo.GetChatSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetChatSession failed: %v", err)
	}
	if got.MessageCount != 1 {
		t.Errorf("message_count = %d, want 1", got.MessageCount)
	}
	if got.ToolCallCount != 2 {
		t.Errorf("tool_call_count = %d, want 2", got.ToolCallCount)
	}
}

func TestDeleteChatSessionCascades(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)
	session := seedSession(t, repo, agent.ID)
	msg := seedMessage(t, repo, session.ID, "hello", time.Now())
	seedToolCall(t, repo, session.ID, msg.ID, "search", time.Now())

	if err := repo.DeleteChatSession(ctx, session.ID); err != nil {
		t.Fatalf("DeleteChatSession failed: %v", err)
	}

	got, err := repo.GetChatSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetChatSession failed: %v", err)
	}
	if got != nil {
		t.Fatalf("session survived delete: %+v", got)
	}

	messages, err := repo.ListSessionMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListSessionMessages failed: %v", err)
	}
	if len(messages) != 0 {
		t.Errorf("messages survived cascade: %+v", messages)
	}
	calls, err := repo.ListSessionToolCalls(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListSessionToolCalls failed: %v", err)
	}
	if len(calls) != 0 {
		t.Errorf("tool calls survived cascade: %+v", calls)
	}
}

func TestDeleteChatSessionAbsent(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	err := repo.DeleteChatSession(context.Background(), "missing")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListChatSessionsFilterAndOrder(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	agentA := seedAgent(t, repo, domain.StatusActive)
	agentB := seedAgent(t, repo, domain.StatusActive)

	older := &domain.ChatSession{ID: "older", AgentID: agentA.ID, SessionSource: "widget", StartedAt: time.Now().Add(-time.Hour)}
	newer := &domain.ChatSession{ID: "newer", AgentID: agentA.ID, SessionSource: "widget", StartedAt: time.Now()}
	other := &domain.ChatSession{ID: "other", AgentID: agentB.ID, SessionSource: "widget", StartedAt: time.Now()}
	for _, s := range []*domain.ChatSession{older, newer, other} {
		if err := repo.InsertChatSession(ctx, s); err != nil {
			t.Fatalf("InsertChatSession failed: %v", err)
		}
	}

	sessions, err := repo.ListChatSessions(ctx, agentA.ID, 10, 0)
	if err != nil {
		t.Fatalf("ListChatSessions failed: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions for agent A, got %d", len(sessions))
	}
	if sessions[0].ID != "newer" || sessions[1].ID != "older" {
		t.Errorf("sessions not ordered newest first: %+v", sessions)
	}
}

func TestCleanupEndedSessionsSkipsOpenOnes(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)

	expired := seedSession(t, repo, agent.ID)
	if err := repo.EndChatSession(ctx, expired.ID, time.Now().Add(-48*time.Hour)); err != nil {
		t.Fatalf("EndChatSession failed: %v", err)
	}
	open := seedSession(t, repo, agent.ID)

	deleted, err := repo.CleanupEndedSessions(ctx, 24*time.Hour)
	if err != nil {
		t.Fatalf("CleanupEndedSessions failed: %v", err)
	}
	if deleted != 1 {
		t.Errorf("expected 1 deleted session, got %d", deleted)
	}

	got, err := repo.GetChatSession(ctx, open.ID)
	if err != nil {
		t.Fatalf("GetChatSession failed: %v", err)
	}
	if got == nil {
		t.Error("open session must survive retention sweep")
	}
}
