package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

// sqlStore holds the Store implementation shared by the postgres and
// sqlite backends. The SQL is restricted to the dialect subset both
// engines accept ($N placeholders, RETURNING, CURRENT_TIMESTAMP).
type sqlStore struct {
	db *sql.DB
}

// DB exposes the underlying connection for migrations.
func (s *sqlStore) DB() *sql.DB {
	return s.db
}

func (s *sqlStore) CreateProfile(ctx context.Context, profile *models.AgentProfile) error {
	if profile == nil {
		return errors.New("profile is required")
	}
	if profile.Model == "" {
		profile.Model = "gpt-4.1"
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO agent_profiles (name, owner_id, model, system_prompt, is_default)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, profile.Name, profile.OwnerID, profile.Model, profile.SystemPrompt, profile.IsDefault)
	return row.Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

func (s *sqlStore) GetProfile(ctx context.Context, id int64) (*models.AgentProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, model, system_prompt, is_default, created_at, updated_at
		FROM agent_profiles WHERE id = $1
	`, id)
	return scanProfile(row)
}

func (s *sqlStore) DefaultProfile(ctx context.Context) (*models.AgentProfile, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, model, system_prompt, is_default, created_at, updated_at
		FROM agent_profiles WHERE is_default = TRUE
		ORDER BY id LIMIT 1
	`)
	return scanProfile(row)
}

func (s *sqlStore) ListProfiles(ctx context.Context) ([]*models.AgentProfile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, owner_id, model, system_prompt, is_default, created_at, updated_at
		FROM agent_profiles ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AgentProfile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateProfile(ctx context.Context, profile *models.AgentProfile) error {
	if profile == nil {
		return errors.New("profile is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE agent_profiles
		SET name = $1, model = $2, system_prompt = $3, is_default = $4, updated_at = CURRENT_TIMESTAMP
		WHERE id = $5
	`, profile.Name, profile.Model, profile.SystemPrompt, profile.IsDefault, profile.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) DeleteProfile(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) CreateTool(ctx context.Context, tool *models.AgentTool) error {
	if tool == nil {
		return errors.New("tool is required")
	}
	params := tool.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO agent_tools (name, description, tool_type, parameters, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, tool.Name, tool.Description, string(tool.ToolType), []byte(params), tool.IsActive)
	return row.Scan(&tool.ID, &tool.CreatedAt)
}

func (s *sqlStore) GetTool(ctx context.Context, id int64) (*models.AgentTool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, tool_type, parameters, is_active, created_at
		FROM agent_tools WHERE id = $1
	`, id)
	return scanTool(row)
}

func (s *sqlStore) ListTools(ctx context.Context) ([]*models.AgentTool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description, tool_type, parameters, is_active, created_at
		FROM agent_tools ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AgentTool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateTool(ctx context.Context, tool *models.AgentTool) error {
	if tool == nil {
		return errors.New("tool is required")
	}
	params := tool.Parameters
	if len(params) == 0 {
		params = json.RawMessage(`{}`)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE agent_tools
		SET name = $1, description = $2, tool_type = $3, parameters = $4, is_active = $5
		WHERE id = $6
	`, tool.Name, tool.Description, string(tool.ToolType), []byte(params), tool.IsActive, tool.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) DeleteTool(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_tools WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) AttachTool(ctx context.Context, agentID, toolID int64, enabled bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_profile_tools (agent_id, tool_id, enabled)
		VALUES ($1, $2, $3)
		ON CONFLICT (agent_id, tool_id) DO UPDATE SET enabled = EXCLUDED.enabled
	`, agentID, toolID, enabled)
	return err
}

func (s *sqlStore) DetachTool(ctx context.Context, agentID, toolID int64) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM agent_profile_tools WHERE agent_id = $1 AND tool_id = $2
	`, agentID, toolID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) EnabledTools(ctx context.Context, agentID int64) ([]*models.AgentTool, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.description, t.tool_type, t.parameters, t.is_active, t.created_at
		FROM agent_profile_tools l
		JOIN agent_tools t ON t.id = l.tool_id
		WHERE l.agent_id = $1 AND l.enabled = TRUE AND t.is_active = TRUE
		ORDER BY l.id
	`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AgentTool
	for rows.Next() {
		t, err := scanTool(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *sqlStore) CreateSession(ctx context.Context, session *models.AgentSession) error {
	if session == nil {
		return errors.New("session is required")
	}
	lastOutput, err := encodeOutput(session.LastOutput)
	if err != nil {
		return err
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO agent_sessions (agent_id, owner_id, previous_response_id, last_output)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`, session.AgentID, session.OwnerID, session.PreviousResponseID, lastOutput)
	return row.Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
}

func (s *sqlStore) GetSession(ctx context.Context, id int64) (*models.AgentSession, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, agent_id, owner_id, previous_response_id, last_output, created_at, updated_at
		FROM agent_sessions WHERE id = $1
	`, id)

	var session models.AgentSession
	var lastOutput []byte
	err := row.Scan(&session.ID, &session.AgentID, &session.OwnerID,
		&session.PreviousResponseID, &lastOutput, &session.CreatedAt, &session.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if len(lastOutput) > 0 {
		if err := json.Unmarshal(lastOutput, &session.LastOutput); err != nil {
			return nil, fmt.Errorf("decode last_output: %w", err)
		}
	}
	return &session, nil
}

func (s *sqlStore) UpdateContinuation(ctx context.Context, sessionID int64, responseID string, lastOutput []models.OutputItem) error {
	encoded, err := encodeOutput(lastOutput)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE agent_sessions
		SET previous_response_id = $1, last_output = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, responseID, encoded, sessionID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) AppendMessage(ctx context.Context, msg *models.AgentMessage) error {
	if msg == nil {
		return errors.New("message is required")
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO agent_messages (session_id, role, content)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, msg.SessionID, string(msg.Role), msg.Content)
	return row.Scan(&msg.ID, &msg.CreatedAt)
}

func (s *sqlStore) ListMessages(ctx context.Context, sessionID int64, limit int) ([]*models.AgentMessage, error) {
	// A positive limit selects the newest messages; rows come back
	// descending and are reversed below so callers always see ascending
	// order.
	query := `
		SELECT id, session_id, role, content, created_at
		FROM agent_messages WHERE session_id = $1
		ORDER BY id
	`
	args := []any{sessionID}
	if limit > 0 {
		query = `
		SELECT id, session_id, role, content, created_at
		FROM agent_messages WHERE session_id = $1
		ORDER BY id DESC LIMIT $2
	`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AgentMessage
	for rows.Next() {
		var msg models.AgentMessage
		var role string
		if err := rows.Scan(&msg.ID, &msg.SessionID, &role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.Role = models.Role(role)
		out = append(out, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if limit > 0 {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out, nil
}

func (s *sqlStore) CreateTemplate(ctx context.Context, tpl *models.AgentPromptTemplate) error {
	if tpl == nil {
		return errors.New("template is required")
	}
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO agent_prompt_templates (name, template, owner_id, agent_id, is_default)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, tpl.Name, tpl.Template, tpl.OwnerID, tpl.AgentID, tpl.IsDefault)
	return row.Scan(&tpl.ID, &tpl.CreatedAt)
}

func (s *sqlStore) GetTemplate(ctx context.Context, id int64) (*models.AgentPromptTemplate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, template, owner_id, agent_id, is_default, created_at
		FROM agent_prompt_templates WHERE id = $1
	`, id)
	var tpl models.AgentPromptTemplate
	err := row.Scan(&tpl.ID, &tpl.Name, &tpl.Template, &tpl.OwnerID, &tpl.AgentID, &tpl.IsDefault, &tpl.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (s *sqlStore) ListTemplates(ctx context.Context) ([]*models.AgentPromptTemplate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, template, owner_id, agent_id, is_default, created_at
		FROM agent_prompt_templates ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.AgentPromptTemplate
	for rows.Next() {
		var tpl models.AgentPromptTemplate
		if err := rows.Scan(&tpl.ID, &tpl.Name, &tpl.Template, &tpl.OwnerID, &tpl.AgentID, &tpl.IsDefault, &tpl.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &tpl)
	}
	return out, rows.Err()
}

func (s *sqlStore) UpdateTemplate(ctx context.Context, tpl *models.AgentPromptTemplate) error {
	if tpl == nil {
		return errors.New("template is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE agent_prompt_templates
		SET name = $1, template = $2, agent_id = $3, is_default = $4
		WHERE id = $5
	`, tpl.Name, tpl.Template, tpl.AgentID, tpl.IsDefault, tpl.ID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *sqlStore) DeleteTemplate(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM agent_prompt_templates WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*models.AgentProfile, error) {
	var p models.AgentProfile
	err := row.Scan(&p.ID, &p.Name, &p.OwnerID, &p.Model, &p.SystemPrompt,
		&p.IsDefault, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func scanTool(row rowScanner) (*models.AgentTool, error) {
	var t models.AgentTool
	var toolType string
	var params []byte
	err := row.Scan(&t.ID, &t.Name, &t.Description, &toolType, &params, &t.IsActive, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	t.ToolType = models.ToolType(toolType)
	t.Parameters = json.RawMessage(params)
	return &t, nil
}

func encodeOutput(items []models.OutputItem) ([]byte, error) {
	if items == nil {
		items = []models.OutputItem{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode last_output: %w", err)
	}
	return encoded, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
