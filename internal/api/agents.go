package api

import (
	"net/http"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

type agentRequest struct {
	Name         string `json:"name"`
	OwnerID      *int64 `json:"owner_id"`
	Model        string `json:"model"`
	SystemPrompt string `json:"system_prompt"`
	IsDefault    bool   `json:"is_default"`
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := s.store.ListProfiles(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agents)
}

func (s *Server) handleCreateAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Model == "" {
		writeError(w, http.StatusBadRequest, "model is required")
		return
	}

	agent := &models.AgentProfile{
		Name:         req.Name,
		OwnerID:      req.OwnerID,
		Model:        req.Model,
		SystemPrompt: req.SystemPrompt,
		IsDefault:    req.IsDefault,
	}
	if err := s.store.CreateProfile(r.Context(), agent); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, agent)
}

func (s *Server) handleGetAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	agent, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleUpdateAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	agent, err := s.store.GetProfile(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req agentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != "" {
		agent.Name = req.Name
	}
	if req.Model != "" {
		agent.Model = req.Model
	}
	agent.SystemPrompt = req.SystemPrompt
	agent.IsDefault = req.IsDefault

	if err := s.store.UpdateProfile(r.Context(), agent); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (s *Server) handleDeleteAgent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteProfile(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleAgentTools(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tools, err := s.store.EnabledTools(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

func (s *Server) handleAttachTool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req struct {
		ToolID  int64 `json:"tool_id"`
		Enabled *bool `json:"enabled"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ToolID <= 0 {
		writeError(w, http.StatusBadRequest, "tool_id is required")
		return
	}

	// Both sides must exist before linking.
	if _, err := s.store.GetProfile(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	if _, err := s.store.GetTool(r.Context(), req.ToolID); err != nil {
		writeStoreError(w, err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	if err := s.store.AttachTool(r.Context(), id, req.ToolID, enabled); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"agent_id": id,
		"tool_id":  req.ToolID,
		"enabled":  enabled,
	})
}

func (s *Server) handleDetachTool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	toolID, ok := pathID(w, r, "toolID")
	if !ok {
		return
	}
	if err := s.store.DetachTool(r.Context(), id, toolID); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListMessages(w http.ResponseWriter, r *http.Request) {
	agentID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sessionID, ok := pathID(w, r, "sessionID")
	if !ok {
		return
	}
	session, err := s.store.GetSession(r.Context(), sessionID)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if session.AgentID != agentID {
		writeError(w, http.StatusNotFound, "session not found for agent")
		return
	}
	msgs, err := s.store.ListMessages(r.Context(), sessionID, 0)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}
