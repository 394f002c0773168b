// Package store persists agent profiles, tools, sessions, and the
// append-only message ledger consumed by the orchestrator.
package store

import (
	"context"
	"errors"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Store is the interface for ledger persistence.
type Store interface {
	// Agent profiles
	CreateProfile(ctx context.Context, profile *models.AgentProfile) error
	GetProfile(ctx context.Context, id int64) (*models.AgentProfile, error)
	DefaultProfile(ctx context.Context) (*models.AgentProfile, error)
	ListProfiles(ctx context.Context) ([]*models.AgentProfile, error)
	UpdateProfile(ctx context.Context, profile *models.AgentProfile) error
	DeleteProfile(ctx context.Context, id int64) error

	// Tools
	CreateTool(ctx context.Context, tool *models.AgentTool) error
	GetTool(ctx context.Context, id int64) (*models.AgentTool, error)
	ListTools(ctx context.Context) ([]*models.AgentTool, error)
	UpdateTool(ctx context.Context, tool *models.AgentTool) error
	DeleteTool(ctx context.Context, id int64) error

	// Profile-tool links. AttachTool upserts on the unique (agent, tool)
	// pair. EnabledTools returns active tools whose link is enabled, in
	// association order.
	AttachTool(ctx context.Context, agentID, toolID int64, enabled bool) error
	DetachTool(ctx context.Context, agentID, toolID int64) error
	EnabledTools(ctx context.Context, agentID int64) ([]*models.AgentTool, error)

	// Sessions. UpdateContinuation stores the continuation token and last
	// output in one statement so they can never diverge.
	CreateSession(ctx context.Context, session *models.AgentSession) error
	GetSession(ctx context.Context, id int64) (*models.AgentSession, error)
	UpdateContinuation(ctx context.Context, sessionID int64, responseID string, lastOutput []models.OutputItem) error

	// Messages (append-only)
	AppendMessage(ctx context.Context, msg *models.AgentMessage) error
	ListMessages(ctx context.Context, sessionID int64, limit int) ([]*models.AgentMessage, error)

	// Prompt templates
	CreateTemplate(ctx context.Context, tpl *models.AgentPromptTemplate) error
	GetTemplate(ctx context.Context, id int64) (*models.AgentPromptTemplate, error)
	ListTemplates(ctx context.Context) ([]*models.AgentPromptTemplate, error)
	UpdateTemplate(ctx context.Context, tpl *models.AgentPromptTemplate) error
	DeleteTemplate(ctx context.Context, id int64) error

	Close() error
}
