package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

func TestChatReturnsTextAndPersists(t *testing.T) {
	client := &scriptedClient{createResponse: &Response{
		ID: "resp_1",
		Output: []models.OutputItem{
			{Type: "message", Content: []models.ContentPart{{Type: "output_text", Text: "  Hello back  "}}},
		},
	}}
	orch, st, agent := newTestOrchestrator(t, client, Config{})

	result, err := orch.Chat(context.Background(), &ChatRequest{Message: "Hello", AgentID: agent.ID})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if result.Response != "Hello back" {
		t.Errorf("Response = %q, want trimmed text", result.Response)
	}
	if len(result.ToolCalls) != 0 {
		t.Errorf("ToolCalls = %+v, want none", result.ToolCalls)
	}

	session, err := st.GetSession(context.Background(), result.SessionID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.PreviousResponseID != "resp_1" {
		t.Errorf("PreviousResponseID = %q", session.PreviousResponseID)
	}

	msgs, err := st.ListMessages(context.Background(), result.SessionID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content != "Hello back" {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestChatReportsToolCallsWithoutExecuting(t *testing.T) {
	client := &scriptedClient{createResponse: &Response{
		ID: "resp_1",
		Output: []models.OutputItem{
			{Type: "function_call", ID: "item_1", CallID: "call_1", Name: "echo", Arguments: `{"text":"hey"}`},
		},
	}}
	orch, _, agent := newTestOrchestrator(t, client, Config{})
	orch.Registry().Register("echo", func(ctx context.Context, args map[string]any) (any, error) {
		t.Error("non-streaming chat must not execute tools")
		return "", nil
	})

	result, err := orch.Chat(context.Background(), &ChatRequest{Message: "hi", AgentID: agent.ID})
	if err != nil {
		t.Fatalf("Chat: %v", err)
	}
	if len(result.ToolCalls) != 1 {
		t.Fatalf("ToolCalls = %+v, want 1", result.ToolCalls)
	}
	if result.ToolCalls[0].CallID != "call_1" || result.ToolCalls[0].Name != "echo" {
		t.Errorf("tool call = %+v", result.ToolCalls[0])
	}
	if result.Response != "" {
		t.Errorf("Response = %q, want empty", result.Response)
	}
}

func TestChatProviderError(t *testing.T) {
	client := &scriptedClient{createErr: errors.New("upstream down")}
	orch, st, agent := newTestOrchestrator(t, client, Config{})

	_, err := orch.Chat(context.Background(), &ChatRequest{Message: "hi", AgentID: agent.ID})
	if err == nil {
		t.Fatal("expected error")
	}

	// The user message is persisted before the provider call; the session
	// must still exist for a retry.
	profiles, _ := st.ListProfiles(context.Background())
	if len(profiles) != 1 {
		t.Errorf("profiles = %d, want 1", len(profiles))
	}
}

func TestChatUnknownAgent(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, &scriptedClient{}, Config{})

	_, err := orch.Chat(context.Background(), &ChatRequest{Message: "hi", AgentID: 42})
	if !errors.Is(err, ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}
