package store

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

// MemoryStore provides an in-memory Store implementation for testing and
// local runs.
type MemoryStore struct {
	mu        sync.RWMutex
	nextID    int64
	profiles  map[int64]*models.AgentProfile
	tools     map[int64]*models.AgentTool
	links     []*models.AgentProfileTool
	sessions  map[int64]*models.AgentSession
	messages  map[int64][]*models.AgentMessage
	templates map[int64]*models.AgentPromptTemplate
}

// NewMemoryStore creates a new in-memory ledger store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextID:    1,
		profiles:  map[int64]*models.AgentProfile{},
		tools:     map[int64]*models.AgentTool{},
		sessions:  map[int64]*models.AgentSession{},
		messages:  map[int64][]*models.AgentMessage{},
		templates: map[int64]*models.AgentPromptTemplate{},
	}
}

func (m *MemoryStore) allocID() int64 {
	id := m.nextID
	m.nextID++
	return id
}

func (m *MemoryStore) CreateProfile(ctx context.Context, profile *models.AgentProfile) error {
	if profile == nil {
		return errors.New("profile is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *profile
	clone.ID = m.allocID()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	clone.UpdatedAt = clone.CreatedAt
	m.profiles[clone.ID] = &clone
	*profile = clone
	return nil
}

func (m *MemoryStore) GetProfile(ctx context.Context, id int64) (*models.AgentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, ok := m.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *profile
	return &clone, nil
}

func (m *MemoryStore) DefaultProfile(ctx context.Context) (*models.AgentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]int64, 0, len(m.profiles))
	for id := range m.profiles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		if m.profiles[id].IsDefault {
			clone := *m.profiles[id]
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) ListProfiles(ctx context.Context) ([]*models.AgentProfile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.AgentProfile, 0, len(m.profiles))
	for _, p := range m.profiles {
		clone := *p
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateProfile(ctx context.Context, profile *models.AgentProfile) error {
	if profile == nil {
		return errors.New("profile is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.profiles[profile.ID]
	if !ok {
		return ErrNotFound
	}
	clone := *profile
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	m.profiles[clone.ID] = &clone
	*profile = clone
	return nil
}

func (m *MemoryStore) DeleteProfile(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[id]; !ok {
		return ErrNotFound
	}
	delete(m.profiles, id)
	kept := m.links[:0]
	for _, l := range m.links {
		if l.AgentID != id {
			kept = append(kept, l)
		}
	}
	m.links = kept
	return nil
}

func (m *MemoryStore) CreateTool(ctx context.Context, tool *models.AgentTool) error {
	if tool == nil {
		return errors.New("tool is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tools {
		if t.Name == tool.Name {
			return errors.New("tool name already exists: " + tool.Name)
		}
	}
	clone := *tool
	clone.ID = m.allocID()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	m.tools[clone.ID] = &clone
	*tool = clone
	return nil
}

func (m *MemoryStore) GetTool(ctx context.Context, id int64) (*models.AgentTool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tool, ok := m.tools[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *tool
	return &clone, nil
}

func (m *MemoryStore) ListTools(ctx context.Context) ([]*models.AgentTool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.AgentTool, 0, len(m.tools))
	for _, t := range m.tools {
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateTool(ctx context.Context, tool *models.AgentTool) error {
	if tool == nil {
		return errors.New("tool is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.tools[tool.ID]
	if !ok {
		return ErrNotFound
	}
	clone := *tool
	clone.CreatedAt = existing.CreatedAt
	m.tools[clone.ID] = &clone
	*tool = clone
	return nil
}

func (m *MemoryStore) DeleteTool(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tools[id]; !ok {
		return ErrNotFound
	}
	delete(m.tools, id)
	kept := m.links[:0]
	for _, l := range m.links {
		if l.ToolID != id {
			kept = append(kept, l)
		}
	}
	m.links = kept
	return nil
}

func (m *MemoryStore) AttachTool(ctx context.Context, agentID, toolID int64, enabled bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[agentID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.tools[toolID]; !ok {
		return ErrNotFound
	}
	for _, l := range m.links {
		if l.AgentID == agentID && l.ToolID == toolID {
			l.Enabled = enabled
			return nil
		}
	}
	m.links = append(m.links, &models.AgentProfileTool{
		ID:      m.allocID(),
		AgentID: agentID,
		ToolID:  toolID,
		Enabled: enabled,
	})
	return nil
}

func (m *MemoryStore) DetachTool(ctx context.Context, agentID, toolID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, l := range m.links {
		if l.AgentID == agentID && l.ToolID == toolID {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemoryStore) EnabledTools(ctx context.Context, agentID int64) ([]*models.AgentTool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*models.AgentTool
	for _, l := range m.links {
		if l.AgentID != agentID || !l.Enabled {
			continue
		}
		tool, ok := m.tools[l.ToolID]
		if !ok || !tool.IsActive {
			continue
		}
		clone := *tool
		out = append(out, &clone)
	}
	return out, nil
}

func (m *MemoryStore) CreateSession(ctx context.Context, session *models.AgentSession) error {
	if session == nil {
		return errors.New("session is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.profiles[session.AgentID]; !ok {
		return ErrNotFound
	}
	clone := *session
	clone.ID = m.allocID()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	clone.UpdatedAt = clone.CreatedAt
	m.sessions[clone.ID] = &clone
	*session = clone
	return nil
}

func (m *MemoryStore) GetSession(ctx context.Context, id int64) (*models.AgentSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *session
	clone.LastOutput = append([]models.OutputItem(nil), session.LastOutput...)
	return &clone, nil
}

func (m *MemoryStore) UpdateContinuation(ctx context.Context, sessionID int64, responseID string, lastOutput []models.OutputItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	session.PreviousResponseID = responseID
	session.LastOutput = append([]models.OutputItem(nil), lastOutput...)
	session.UpdatedAt = time.Now()
	return nil
}

func (m *MemoryStore) AppendMessage(ctx context.Context, msg *models.AgentMessage) error {
	if msg == nil {
		return errors.New("message is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[msg.SessionID]; !ok {
		return ErrNotFound
	}
	clone := *msg
	clone.ID = m.allocID()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	m.messages[clone.SessionID] = append(m.messages[clone.SessionID], &clone)
	*msg = clone
	return nil
}

func (m *MemoryStore) ListMessages(ctx context.Context, sessionID int64, limit int) ([]*models.AgentMessage, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	msgs := m.messages[sessionID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]*models.AgentMessage, 0, len(msgs))
	for _, msg := range msgs {
		clone := *msg
		out = append(out, &clone)
	}
	return out, nil
}

func (m *MemoryStore) CreateTemplate(ctx context.Context, tpl *models.AgentPromptTemplate) error {
	if tpl == nil {
		return errors.New("template is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	clone := *tpl
	clone.ID = m.allocID()
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now()
	}
	m.templates[clone.ID] = &clone
	*tpl = clone
	return nil
}

func (m *MemoryStore) GetTemplate(ctx context.Context, id int64) (*models.AgentPromptTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tpl, ok := m.templates[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *tpl
	return &clone, nil
}

func (m *MemoryStore) ListTemplates(ctx context.Context) ([]*models.AgentPromptTemplate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.AgentPromptTemplate, 0, len(m.templates))
	for _, t := range m.templates {
		clone := *t
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemoryStore) UpdateTemplate(ctx context.Context, tpl *models.AgentPromptTemplate) error {
	if tpl == nil {
		return errors.New("template is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.templates[tpl.ID]
	if !ok {
		return ErrNotFound
	}
	clone := *tpl
	clone.CreatedAt = existing.CreatedAt
	m.templates[clone.ID] = &clone
	*tpl = clone
	return nil
}

func (m *MemoryStore) DeleteTemplate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.templates[id]; !ok {
		return ErrNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }
