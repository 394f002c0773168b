package api

import (
	"net/http"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

type templateRequest struct {
	Name      string `json:"name"`
	Template  string `json:"template"`
	OwnerID   *int64 `json:"owner_id"`
	AgentID   *int64 `json:"agent_id"`
	IsDefault bool   `json:"is_default"`
}

func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	tpls, err := s.store.ListTemplates(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpls)
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	if req.Template == "" {
		writeError(w, http.StatusBadRequest, "template is required")
		return
	}

	tpl := &models.AgentPromptTemplate{
		Name:      req.Name,
		Template:  req.Template,
		OwnerID:   req.OwnerID,
		AgentID:   req.AgentID,
		IsDefault: req.IsDefault,
	}
	if err := s.store.CreateTemplate(r.Context(), tpl); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tpl)
}

func (s *Server) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tpl, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleUpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tpl, err := s.store.GetTemplate(r.Context(), id)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	var req templateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name != "" {
		tpl.Name = req.Name
	}
	if req.Template != "" {
		tpl.Template = req.Template
	}
	tpl.AgentID = req.AgentID
	tpl.IsDefault = req.IsDefault

	if err := s.store.UpdateTemplate(r.Context(), tpl); err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tpl)
}

func (s *Server) handleDeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := s.store.DeleteTemplate(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
