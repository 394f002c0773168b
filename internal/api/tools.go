package api

import (
	"encoding/json"
	"net/http"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

type toolRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	ToolType    models.ToolType `json:"tool_type"`
	Parameters  json.RawMessage `json:"parameters"`
	IsActive    *bool           `json:"is_active"`
}

// validateToolRequest checks the fields shared by create and update.
// Function tool parameters must themselves compile as a JSON schema;
// rejecting them here keeps malformed schemas out of provider requests.
func validateToolRequest(req *toolRequest) string {
	if req.Name == "" {
		return "name is required"
	}
	switch req.ToolType {
	case models.ToolTypeFunction, models.ToolTypeCustom:
	case "":
		return "tool_type is required"
	default:
		return "tool_type must be function or custom"
	}
	if req.ToolType == models.ToolTypeFunction && len(req.Parameters) > 0 {
		if _, err := jsonschema.CompileString("parameters.json", string(req.Parameters)); err != nil {
			return "parameters is not a valid JSON schema: " + err.Error()
		}
	}
	return ""
}

func (s *Server) handleListTools(w http.ResponseWriter, r *http.Request) {
	tools, err := s.store.ListTools(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tools)
}

func (s *Server) handleCreateTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := validateToolRequest(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	tool := &models.AgentTool{
		Name:        req.Name,
		Description: req.Description,
		ToolType:    req.ToolType,
		Parameters:  req.Parameters,
		IsActive:    active,
	}
	if err := s.store.CreateTool(r.Context(), tool); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tool)
}

func (s *Server) handleGetTool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tool, err := s.store.GetTool(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *Server) handleUpdateTool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tool, err := s.store.GetTool(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req toolRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		req.Name = tool.Name
	}
	if req.ToolType == "" {
		req.ToolType = tool.ToolType
	}
	if msg := validateToolRequest(&req); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	tool.Name = req.Name
	tool.Description = req.Description
	tool.ToolType = req.ToolType
	if req.Parameters != nil {
		tool.Parameters = req.Parameters
	}
	if req.IsActive != nil {
		tool.IsActive = *req.IsActive
	}

	if err := s.store.UpdateTool(r.Context(), tool); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tool)
}

func (s *Server) handleDeleteTool(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteTool(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
