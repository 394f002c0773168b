package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/oakenlabs/agentrelay/internal/orchestrator"
)

type chatRequest struct {
	Message   string `json:"message"`
	AgentID   int64  `json:"agent_id"`
	SessionID int64  `json:"session_id"`
	OwnerID   *int64 `json:"owner_id"`
}

func (req *chatRequest) validate() string {
	if req.Message == "" {
		return "message is required"
	}
	if len(req.Message) > maxMessageLen {
		return fmt.Sprintf("message exceeds %d characters", maxMessageLen)
	}
	return ""
}

// handleChat is the non-streaming chat endpoint. Tool calls requested by
// the model come back in the response body; they are not executed here.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	result, err := s.orch.Chat(r.Context(), &orchestrator.ChatRequest{
		Message:   req.Message,
		AgentID:   req.AgentID,
		SessionID: req.SessionID,
		OwnerID:   req.OwnerID,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type streamRequest struct {
	chatRequest
	// AutoExecuteTools defaults to true; explicit false disables
	// server-side execution for this request.
	AutoExecuteTools *bool `json:"auto_execute_tools"`
}

// handleStream is the streaming chat endpoint. Resolution errors surface as
// JSON before the SSE response commits; once streaming, failures arrive as
// an error event and the stream ends without a done frame.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req streamRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	autoExecute := true
	if req.AutoExecuteTools != nil {
		autoExecute = *req.AutoExecuteTools
	}

	events, err := s.orch.StreamChat(r.Context(), &orchestrator.StreamRequest{
		Message:          req.Message,
		AgentID:          req.AgentID,
		SessionID:        req.SessionID,
		OwnerID:          req.OwnerID,
		AutoExecuteTools: autoExecute,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.relayEvents(w, events)
}

type toolOutputRequest struct {
	SessionID int64  `json:"session_id"`
	CallID    string `json:"call_id"`
	Output    string `json:"output"`
}

// handleToolOutput accepts the result of a client-executed tool call and
// streams the model's follow-up response.
func (s *Server) handleToolOutput(w http.ResponseWriter, r *http.Request) {
	var req toolOutputRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SessionID <= 0 {
		writeError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	if req.CallID == "" {
		writeError(w, http.StatusBadRequest, "call_id is required")
		return
	}
	if len(req.CallID) > maxCallIDLen {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("call_id exceeds %d characters", maxCallIDLen))
		return
	}

	events, err := s.orch.SubmitToolOutput(r.Context(), &orchestrator.ToolOutputRequest{
		SessionID: req.SessionID,
		CallID:    req.CallID,
		Output:    req.Output,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	s.relayEvents(w, events)
}

// relayEvents drains the orchestrator's event channel onto the response as
// server-sent events, flushing after each frame.
func (s *Server) relayEvents(w http.ResponseWriter, events <-chan *orchestrator.Event) {
	// On early return the producer stops via request-context cancellation;
	// drain whatever it already queued so it is never stuck mid-send.
	defer func() {
		for range events {
		}
	}()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	for ev := range events {
		if ev.Err != nil {
			s.logger.Error("stream failed", "error", ev.Err)
			if err := writeSSE(w, "error", ev.Err.Error()); err != nil {
				slog.Warn("failed to write SSE error event", "error", err)
				return
			}
			flusher.Flush()
			return
		}

		data, err := json.Marshal(ev.Data)
		if err != nil {
			slog.Warn("failed to marshal stream event", "error", err)
			continue
		}
		if err := writeSSE(w, ev.Name, string(data)); err != nil {
			slog.Warn("failed to write SSE event", "error", err)
			return
		}
		flusher.Flush()
	}
}

func writeSSE(w io.Writer, event, data string) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
