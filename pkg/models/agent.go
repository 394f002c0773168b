package models

import (
	"encoding/json"
	"time"
)

// ToolType classifies how a tool is presented to the completion provider.
type ToolType string

const (
	ToolTypeFunction ToolType = "function"
	ToolTypeCustom   ToolType = "custom"
)

// Role indicates the message author type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// AgentProfile is an AI persona: a model target plus system instructions.
// At most one profile should be marked default per deployment; the store
// does not hard-enforce uniqueness.
type AgentProfile struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	OwnerID      *int64    `json:"owner_id,omitempty"`
	Model        string    `json:"model"`
	SystemPrompt string    `json:"system_prompt"`
	IsDefault    bool      `json:"is_default"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AgentTool describes a callable capability. Deactivating a tool removes it
// from future tool-definition builds without deleting history.
type AgentTool struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ToolType    ToolType        `json:"tool_type"`
	Parameters  json.RawMessage `json:"parameters"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

// AgentProfileTool links a profile to a tool. (agent, tool) pairs are
// unique; only enabled links whose tool is active are offered to the
// provider.
type AgentProfileTool struct {
	ID      int64 `json:"id"`
	AgentID int64 `json:"agent_id"`
	ToolID  int64 `json:"tool_id"`
	Enabled bool  `json:"enabled"`
}

// AgentSession is a continuation context for one conversation. The
// continuation token and last output are always updated together after a
// completed provider turn, never partially.
type AgentSession struct {
	ID                 int64        `json:"id"`
	AgentID            int64        `json:"agent_id"`
	OwnerID            *int64       `json:"owner_id,omitempty"`
	PreviousResponseID string       `json:"previous_response_id"`
	LastOutput         []OutputItem `json:"last_output"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// AgentMessage is an immutable turn record. Append-only; one row per user
// submission and per finalized assistant reply.
type AgentMessage struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"session_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// AgentPromptTemplate is a reusable instruction template, optionally scoped
// to an agent and owner. Data-layer concern only; the orchestration core
// does not consume it.
type AgentPromptTemplate struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Template  string    `json:"template"`
	OwnerID   *int64    `json:"owner_id,omitempty"`
	AgentID   *int64    `json:"agent_id,omitempty"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}
