package orchestrator

import (
	"context"
	"errors"
	"testing"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

func TestSubmitToolOutputStreamsFollowUp(t *testing.T) {
	client := &scriptedClient{scripts: [][]string{{
		`{"type":"response.output_text.delta","delta":"Thanks"}`,
		`{"type":"response.completed","response":{"id":"resp_2","output":[{"type":"message","content":[{"type":"output_text","text":"Thanks"}]}]}}`,
	}}}
	orch, st, agent := newTestOrchestrator(t, client, Config{})

	session := &models.AgentSession{AgentID: agent.ID}
	if err := st.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := st.UpdateContinuation(context.Background(), session.ID, "resp_1", nil); err != nil {
		t.Fatalf("seed continuation: %v", err)
	}

	events, err := orch.SubmitToolOutput(context.Background(), &ToolOutputRequest{
		SessionID: session.ID,
		CallID:    "call_1",
		Output:    `{"result":"42"}`,
	})
	if err != nil {
		t.Fatalf("SubmitToolOutput: %v", err)
	}
	all := drain(t, events)

	req := client.requests[0]
	if req.PreviousResponseID != "resp_1" {
		t.Errorf("PreviousResponseID = %q, want resp_1", req.PreviousResponseID)
	}
	if len(req.Input) != 1 {
		t.Fatalf("input = %+v, want single item", req.Input)
	}
	item := req.Input[0]
	if item.Type != "function_call_output" || item.CallID != "call_1" || item.Output != `{"result":"42"}` {
		t.Errorf("input item = %+v", item)
	}

	last := all[len(all)-1]
	if last.Name != EventDone {
		t.Fatalf("last event = %q, want done", last.Name)
	}

	updated, err := st.GetSession(context.Background(), session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if updated.PreviousResponseID != "resp_2" {
		t.Errorf("PreviousResponseID = %q, want resp_2", updated.PreviousResponseID)
	}

	msgs, _ := st.ListMessages(context.Background(), session.ID, 0)
	if len(msgs) != 1 || msgs[0].Role != models.RoleAssistant || msgs[0].Content != "Thanks" {
		t.Errorf("messages = %+v, want single assistant reply", msgs)
	}
}

func TestSubmitToolOutputRequiresContinuation(t *testing.T) {
	orch, st, agent := newTestOrchestrator(t, &scriptedClient{}, Config{})

	session := &models.AgentSession{AgentID: agent.ID}
	if err := st.CreateSession(context.Background(), session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	_, err := orch.SubmitToolOutput(context.Background(), &ToolOutputRequest{
		SessionID: session.ID, CallID: "call_1", Output: "x",
	})
	if !errors.Is(err, ErrNoContinuation) {
		t.Fatalf("error = %v, want ErrNoContinuation", err)
	}
}

func TestSubmitToolOutputUnknownSession(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, &scriptedClient{}, Config{})

	_, err := orch.SubmitToolOutput(context.Background(), &ToolOutputRequest{
		SessionID: 404, CallID: "call_1", Output: "x",
	})
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
