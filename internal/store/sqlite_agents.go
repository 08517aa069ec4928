package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
)

const agentColumns = `id, name, description, system_prompt, status, embed_token, allowed_domains, created_at, updated_at`

func scanAgent(row *sql.Row) (*domain.Agent, error) {
	var agent domain.Agent
	var description, systemPrompt, embedToken, allowedDomains sql.NullString
	var createdAt, updatedAt int64

	err := row.Scan(
		&agent.ID, &agent.Name, &description, &systemPrompt,
		&agent.Status, &embedToken, &allowedDomains,
		&createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan agent row: %w", err)
	}

	agent.Description = description.String
	agent.SystemPrompt = systemPrompt.String
	agent.EmbedToken = embedToken.String
	agent.AllowedDomains = allowedDomains.String
	agent.CreatedAt = time.Unix(createdAt, 0)
	agent.UpdatedAt = time.Unix(updatedAt, 0)

	return &agent, nil
}

// GetAgent retrieves an agent by id.
func (s *SQLiteStore) GetAgent(ctx context.Context, id string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = ?`
	return scanAgent(s.db.QueryRowContext(ctx, query, id))
}

// GetAgentByEmbedToken resolves a public embed token to its agent.
// Only active agents are resolvable; inactive and draft agents behave
// as if the token did not exist.
func (s *SQLiteStore) GetAgentByEmbedToken(ctx context.Context, token string) (*domain.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE embed_token = ? AND status = ?`
	return scanAgent(s.db.QueryRowContext(ctx, query, token, domain.StatusActive))
}

// InsertAgent creates a new agent record.
func (s *SQLiteStore) InsertAgent(ctx context.Context, agent *domain.Agent) error {
	query := `
	INSERT INTO agents (id, name, description, system_prompt, status, embed_token, allowed_domains, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		agent.ID, agent.Name, nullable(agent.Description), nullable(agent.SystemPrompt),
		agent.Status, nullable(agent.EmbedToken), nullable(agent.AllowedDomains),
		agent.CreatedAt.Unix(), agent.UpdatedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return fmt.Errorf("insert agent: %w", shared.ErrConflict)
		}
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// UpdateAgentFields applies a sparse patch: only fields present in the
// patch are included in the write. The SET clause is accumulated per
// supplied field rather than derived generically.
func (s *SQLiteStore) UpdateAgentFields(ctx context.Context, id string, patch AgentPatch) error {
	sets := make([]string, 0, 7)
	args := make([]interface{}, 0, 8)

	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.SystemPrompt != nil {
		sets = append(sets, "system_prompt = ?")
		args = append(args, *patch.SystemPrompt)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.EmbedToken != nil {
		sets = append(sets, "embed_token = ?")
		args = append(args, nullable(*patch.EmbedToken))
	}
	if patch.AllowedDomains != nil {
		sets = append(sets, "allowed_domains = ?")
		args = append(args, nullable(*patch.AllowedDomains))
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().Unix(), id)

	query := `UPDATE agents SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return fmt.Errorf("update agent: %w", shared.ErrConflict)
		}
		return fmt.Errorf("update agent: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update agent %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

// DeleteAgent removes an agent. Its config and API keys follow via
// schema cascades.
func (s *SQLiteStore) DeleteAgent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM agents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete agent: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete agent %s: %w", id, shared.ErrNotFound)
	}
	return nil
}

// GetLLMConfig retrieves the config row for an agent.
func (s *SQLiteStore) GetLLMConfig(ctx context.Context, agentID string) (*domain.LLMConfig, error) {
	query := `
		SELECT id, agent_id, provider, model, temperature, max_tokens, agent_mode, max_iterations, updated_at
		FROM llm_configs WHERE agent_id = ?`

	row := s.db.QueryRowContext(ctx, query, agentID)

	var cfg domain.LLMConfig
	var updatedAt int64
	err := row.Scan(
		&cfg.ID, &cfg.AgentID, &cfg.Provider, &cfg.Model,
		&cfg.Temperature, &cfg.MaxTokens, &cfg.AgentMode, &cfg.MaxIterations,
		&updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan llm config row: %w", err)
	}

	cfg.UpdatedAt = time.Unix(updatedAt, 0)
	return &cfg, nil
}

// PutLLMConfig writes the full config row for an agent, replacing every
// field. The existing row id is preserved on conflict so the 1:1
// agent-to-config invariant holds.
func (s *SQLiteStore) PutLLMConfig(ctx context.Context, cfg *domain.LLMConfig) error {
	query := `
	INSERT INTO llm_configs (id, agent_id, provider, model, temperature, max_tokens, agent_mode, max_iterations, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(agent_id) DO UPDATE SET
		provider = excluded.provider,
		model = excluded.model,
		temperature = excluded.temperature,
		max_tokens = excluded.max_tokens,
		agent_mode = excluded.agent_mode,
		max_iterations = excluded.max_iterations,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		cfg.ID, cfg.AgentID, cfg.Provider, cfg.Model,
		cfg.Temperature, cfg.MaxTokens, cfg.AgentMode, cfg.MaxIterations,
		cfg.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("put llm config: %w", err)
	}
	return nil
}

// ListAPIKeys returns the keys for an agent, newest first.
func (s *SQLiteStore) ListAPIKeys(ctx context.Context, agentID string) ([]domain.APIKey, error) {
	query := `
		SELECT id, agent_id, provider, api_key, created_at
		FROM api_keys WHERE agent_id = ?
		ORDER BY created_at DESC, rowid DESC`

	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, fmt.Errorf("query api keys: %w", err)
	}
	defer closeRows(rows, "api keys")

	keys := []domain.APIKey{}
	for rows.Next() {
		var key domain.APIKey
		var createdAt int64
		if err := rows.Scan(&key.ID, &key.AgentID, &key.Provider, &key.APIKey, &createdAt); err != nil {
			return nil, fmt.Errorf("scan api key row: %w", err)
		}
		key.CreatedAt = time.Unix(createdAt, 0)
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate api keys: %w", err)
	}
	return keys, nil
}

// GetAPIKeyByProvider retrieves the key for an (agent, provider) pair.
func (s *SQLiteStore) GetAPIKeyByProvider(ctx context.Context, agentID, provider string) (*domain.APIKey, error) {
	query := `
		SELECT id, agent_id, provider, api_key, created_at
		FROM api_keys WHERE agent_id = ? AND provider = ?`

	row := s.db.QueryRowContext(ctx, query, agentID, provider)

	var key domain.APIKey
	var createdAt int64
	err := row.Scan(&key.ID, &key.AgentID, &key.Provider, &key.APIKey, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan api key row: %w", err)
	}
	key.CreatedAt = time.Unix(createdAt, 0)
	return &key, nil
}

// InsertAPIKey creates a new key row. Returns shared.ErrConflict when a
// key for the (agent, provider) pair already exists, so a concurrent
// upsert race can be retried as an update.
func (s *SQLiteStore) InsertAPIKey(ctx context.Context, key *domain.APIKey) error {
	query := `
	INSERT INTO api_keys (id, agent_id, provider, api_key, created_at)
	VALUES (?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		key.ID, key.AgentID, key.Provider, key.APIKey, key.CreatedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return fmt.Errorf("insert api key: %w", shared.ErrConflict)
		}
		return fmt.Errorf("insert api key: %w", err)
	}
	return nil
}

// UpdateAPIKeyValue replaces the stored secret in place; the row id and
// created_at are untouched.
func (s *SQLiteStore) UpdateAPIKeyValue(ctx context.Context, agentID, provider, apiKey string) error {
	query := `UPDATE api_keys SET api_key = ? WHERE agent_id = ? AND provider = ?`
	result, err := s.db.ExecContext(ctx, query, apiKey, agentID, provider)
	if err != nil {
		return fmt.Errorf("update api key: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("update api key for %s/%s: %w", agentID, provider, shared.ErrNotFound)
	}
	return nil
}

// DeleteAPIKey deletes a key only when both the key id and the owning
// agent match, preventing cross-agent deletion by id guessing.
func (s *SQLiteStore) DeleteAPIKey(ctx context.Context, agentID, keyID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = ? AND agent_id = ?`, keyID, agentID)
	if err != nil {
		return fmt.Errorf("delete api key: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete api key %s: %w", keyID, shared.ErrNotFound)
	}
	return nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
