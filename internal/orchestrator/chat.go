package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

// ChatRequest is one client request against the non-streaming entry point.
type ChatRequest struct {
	Message   string
	AgentID   int64
	SessionID int64
	OwnerID   *int64
}

// ChatResult is the non-streaming chat outcome. ToolCalls reports any
// function calls the provider requested; the non-streaming path does not
// execute them, the caller decides whether to submit outputs.
type ChatResult struct {
	SessionID int64             `json:"session_id"`
	Response  string            `json:"response"`
	ToolCalls []models.ToolCall `json:"tool_calls,omitempty"`
}

// Chat performs a single non-streaming completion round: persist the user
// message, call the provider once, persist the continuation token and the
// assistant text, and report any requested tool calls without running them.
func (o *Orchestrator) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	agent, session, err := o.resolve(ctx, req.AgentID, req.SessionID, req.OwnerID)
	if err != nil {
		return nil, err
	}

	release := o.lockSession(session.ID)
	defer release()

	if err := o.store.AppendMessage(ctx, &models.AgentMessage{
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   req.Message,
	}); err != nil {
		return nil, fmt.Errorf("persist user message: %w", err)
	}

	tools, err := o.BuildToolDefs(ctx, agent.ID)
	if err != nil {
		return nil, fmt.Errorf("build tool definitions: %w", err)
	}

	started := time.Now()
	resp, err := o.client.Create(ctx, &Request{
		Model:              agent.Model,
		Instructions:       agent.SystemPrompt,
		Input:              []InputItem{UserMessage(req.Message)},
		Tools:              tools,
		PreviousResponseID: session.PreviousResponseID,
	})
	o.metrics.ObserveRound("chat", time.Since(started))
	if err != nil {
		return nil, fmt.Errorf("completion call: %w", err)
	}

	if err := o.store.UpdateContinuation(ctx, session.ID, resp.ID, resp.Output); err != nil {
		return nil, fmt.Errorf("persist continuation: %w", err)
	}

	text := strings.TrimSpace(OutputText(resp.Output))
	if text != "" {
		if err := o.store.AppendMessage(ctx, &models.AgentMessage{
			SessionID: session.ID,
			Role:      models.RoleAssistant,
			Content:   text,
		}); err != nil {
			o.logger.Error("failed to persist assistant message",
				"error", err,
				"session_id", session.ID,
			)
		}
	}

	return &ChatResult{
		SessionID: session.ID,
		Response:  text,
		ToolCalls: FunctionCalls(resp.Output),
	}, nil
}
