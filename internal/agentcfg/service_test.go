package agentcfg

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
	"github.com/ashureev/agentdeck/internal/store"
	"github.com/google/uuid"
)

func newTestService(t *testing.T) (*Service, store.Repository) {
	t.Helper()
	repo, err := store.NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return NewService(repo), repo
}

func seedAgent(t *testing.T, repo store.Repository, status domain.AgentStatus) *domain.Agent {
	t.Helper()
	now := time.Now()
	agent := &domain.Agent{
		ID:         uuid.NewString(),
		Name:       "Support Bot",
		Status:     status,
		EmbedToken: uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.InsertAgent(context.Background(), agent); err != nil {
		t.Fatalf("InsertAgent failed: %v", err)
	}
	return agent
}

func TestAgentAbsentIsNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t)
	_, err := svc.Agent(context.Background(), "missing")
	if !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAgentByEmbedTokenRequiresActive(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()

	active := seedAgent(t, repo, domain.StatusActive)
	inactive := seedAgent(t, repo, domain.StatusInactive)

	got, err := svc.AgentByEmbedToken(ctx, active.EmbedToken)
	if err != nil {
		t.Fatalf("AgentByEmbedToken failed: %v", err)
	}
	if got.ID != active.ID {
		t.Errorf("resolved wrong agent: %s", got.ID)
	}

	if _, err := svc.AgentByEmbedToken(ctx, inactive.EmbedToken); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("inactive agent must not resolve, got %v", err)
	}
	if _, err := svc.AgentByEmbedToken(ctx, ""); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("empty token must be invalid input, got %v", err)
	}
}

func TestUpdateAgentSparsePatch(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)

	name := "Renamed"
	updated, err := svc.UpdateAgent(ctx, agent.ID, store.AgentPatch{Name: &name})
	if err != nil {
		t.Fatalf("UpdateAgent failed: %v", err)
	}
	if updated.Name != name {
		t.Errorf("expected name %q, got %q", name, updated.Name)
	}
	if updated.Status != agent.Status {
		t.Errorf("untouched status must survive the patch, got %q", updated.Status)
	}
	if updated.EmbedToken != agent.EmbedToken {
		t.Errorf("untouched embed token must survive the patch")
	}
}

func TestUpdateConfigAppliesDefaults(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)

	cfg, err := svc.UpdateConfig(ctx, agent.ID, ConfigUpdate{
		Provider: "openai", Model: "gpt-4o", Temperature: 0.4, MaxTokens: 2048,
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if cfg.AgentMode != domain.DefaultAgentMode {
		t.Errorf("omitted agent_mode must default to %q, got %q", domain.DefaultAgentMode, cfg.AgentMode)
	}
	if cfg.MaxIterations != domain.DefaultMaxIterations {
		t.Errorf("omitted max_iterations must default to %d, got %d", domain.DefaultMaxIterations, cfg.MaxIterations)
	}
}

func TestUpdateConfigReplacesNotPatches(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)

	first, err := svc.UpdateConfig(ctx, agent.ID, ConfigUpdate{
		Provider: "openai", Model: "gpt-4o",
		AgentMode: "agentic", MaxIterations: 25,
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if first.AgentMode != domain.ModeAgentic || first.MaxIterations != 25 {
		t.Fatalf("explicit fields not stored: %+v", first)
	}

	// A second update that omits agent_mode and max_iterations resets
	// them to defaults rather than keeping the stored values.
	second, err := svc.UpdateConfig(ctx, agent.ID, ConfigUpdate{
		Provider: "anthropic", Model: "claude-sonnet-4",
	})
	if err != nil {
		t.Fatalf("UpdateConfig failed: %v", err)
	}
	if second.AgentMode != domain.DefaultAgentMode {
		t.Errorf("agent_mode must reset to default, got %q", second.AgentMode)
	}
	if second.MaxIterations != domain.DefaultMaxIterations {
		t.Errorf("max_iterations must reset to default, got %d", second.MaxIterations)
	}
	if second.ID != first.ID {
		t.Errorf("row id must survive replacement: %s != %s", second.ID, first.ID)
	}
}

func TestUpdateConfigRejectsUnknownMode(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	agent := seedAgent(t, repo, domain.StatusActive)

	_, err := svc.UpdateConfig(context.Background(), agent.ID, ConfigUpdate{
		Provider: "openai", Model: "gpt-4o", AgentMode: "react",
	})
	if !errors.Is(err, shared.ErrInvalidInput) {
		t.Fatalf("unknown agent mode must be invalid input, got %v", err)
	}
}

func TestUpsertKeyReplacesInPlace(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()
	agent := seedAgent(t, repo, domain.StatusActive)

	first, created, err := svc.UpsertKey(ctx, agent.ID, "openai", "sk-one")
	if err != nil {
		t.Fatalf("UpsertKey failed: %v", err)
	}
	if !created {
		t.Fatal("first upsert must create")
	}

	second, created, err := svc.UpsertKey(ctx, agent.ID, "openai", "sk-two")
	if err != nil {
		t.Fatalf("UpsertKey failed: %v", err)
	}
	if created {
		t.Error("second upsert for the same provider must update, not create")
	}
	if second.ID != first.ID {
		t.Errorf("row id must survive the upsert: %s != %s", second.ID, first.ID)
	}
	if second.CreatedAt.Unix() != first.CreatedAt.Unix() {
		t.Errorf("created_at must survive the upsert: %v != %v", second.CreatedAt, first.CreatedAt)
	}
	if second.APIKey != "sk-two" {
		t.Errorf("secret not replaced: %q", second.APIKey)
	}

	keys, err := svc.ListKeys(ctx, agent.ID)
	if err != nil {
		t.Fatalf("ListKeys failed: %v", err)
	}
	if len(keys) != 1 {
		t.Fatalf("expected exactly one key row, got %d", len(keys))
	}
}

func TestUpsertKeyValidatesInput(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	agent := seedAgent(t, repo, domain.StatusActive)

	if _, _, err := svc.UpsertKey(context.Background(), agent.ID, "", "sk"); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("empty provider must be invalid input, got %v", err)
	}
	if _, _, err := svc.UpsertKey(context.Background(), agent.ID, "openai", ""); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("empty key must be invalid input, got %v", err)
	}
}

func TestDeleteKeyScopedToAgent(t *testing.T) {
	t.Parallel()

	svc, repo := newTestService(t)
	ctx := context.Background()
	owner := seedAgent(t, repo, domain.StatusActive)
	other := seedAgent(t, repo, domain.StatusActive)

	key, _, err := svc.UpsertKey(ctx, owner.ID, "openai", "sk-one")
	if err != nil {
		t.Fatalf("UpsertKey failed: %v", err)
	}

	if err := svc.DeleteKey(ctx, other.ID, key.ID); !errors.Is(err, shared.ErrNotFound) {
		t.Errorf("deleting another agent's key must be ErrNotFound, got %v", err)
	}
	if err := svc.DeleteKey(ctx, owner.ID, key.ID); err != nil {
		t.Fatalf("DeleteKey failed: %v", err)
	}
	if err := svc.DeleteKey(ctx, owner.ID, ""); !errors.Is(err, shared.ErrInvalidInput) {
		t.Errorf("empty key id must be invalid input, got %v", err)
	}
}
