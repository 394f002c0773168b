package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

func newSQLiteTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	st, err := NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "relay.db"))
	if err != nil {
		t.Fatalf("open sqlite store: %v", err)
	}
	t.Cleanup(func() {
		if err := st.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	return st
}

func TestSQLiteRoundTrip(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	agent := &models.AgentProfile{Name: "Helper", Model: "gpt-4.1", SystemPrompt: "Be helpful.", IsDefault: true}
	if err := st.CreateProfile(ctx, agent); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	if agent.ID == 0 || agent.CreatedAt.IsZero() {
		t.Fatalf("insert did not populate profile: %+v", agent)
	}

	def, err := st.DefaultProfile(ctx)
	if err != nil {
		t.Fatalf("default profile: %v", err)
	}
	if def.ID != agent.ID {
		t.Errorf("DefaultProfile id = %d, want %d", def.ID, agent.ID)
	}

	tool := &models.AgentTool{
		Name:        "echo",
		Description: "Echo text back",
		ToolType:    models.ToolTypeFunction,
		Parameters:  json.RawMessage(`{"type":"object","properties":{"text":{"type":"string"}}}`),
		IsActive:    true,
	}
	if err := st.CreateTool(ctx, tool); err != nil {
		t.Fatalf("create tool: %v", err)
	}

	if err := st.AttachTool(ctx, agent.ID, tool.ID, true); err != nil {
		t.Fatalf("attach tool: %v", err)
	}
	tools, err := st.EnabledTools(ctx, agent.ID)
	if err != nil {
		t.Fatalf("enabled tools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" {
		t.Fatalf("enabled tools = %+v", tools)
	}

	// Attaching again with enabled=false upserts the existing link.
	if err := st.AttachTool(ctx, agent.ID, tool.ID, false); err != nil {
		t.Fatalf("re-attach tool: %v", err)
	}
	tools, _ = st.EnabledTools(ctx, agent.ID)
	if len(tools) != 0 {
		t.Fatalf("enabled tools after disable = %+v", tools)
	}

	session := &models.AgentSession{AgentID: agent.ID}
	if err := st.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	output := []models.OutputItem{{Type: "message", Content: []models.ContentPart{{Type: "output_text", Text: "hi"}}}}
	if err := st.UpdateContinuation(ctx, session.ID, "resp_1", output); err != nil {
		t.Fatalf("update continuation: %v", err)
	}
	got, err := st.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.PreviousResponseID != "resp_1" || len(got.LastOutput) != 1 {
		t.Errorf("session = %+v", got)
	}

	for _, m := range []*models.AgentMessage{
		{SessionID: session.ID, Role: models.RoleUser, Content: "Hello"},
		{SessionID: session.ID, Role: models.RoleAssistant, Content: "Hi there"},
	} {
		if err := st.AppendMessage(ctx, m); err != nil {
			t.Fatalf("append message: %v", err)
		}
	}
	msgs, err := st.ListMessages(ctx, session.ID, 0)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(msgs) != 2 || msgs[1].Content != "Hi there" {
		t.Errorf("messages = %+v", msgs)
	}

	tpl := &models.AgentPromptTemplate{Name: "greet", Template: "Hello {{name}}", AgentID: &agent.ID}
	if err := st.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create template: %v", err)
	}
	gotTpl, err := st.GetTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get template: %v", err)
	}
	if gotTpl.AgentID == nil || *gotTpl.AgentID != agent.ID {
		t.Errorf("template agent id = %v", gotTpl.AgentID)
	}
}

func TestSQLiteListMessagesLimitKeepsNewest(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	agent := &models.AgentProfile{Name: "Helper", Model: "gpt-4.1"}
	if err := st.CreateProfile(ctx, agent); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	session := &models.AgentSession{AgentID: agent.ID}
	if err := st.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, content := range []string{"one", "two", "three"} {
		msg := &models.AgentMessage{SessionID: session.ID, Role: models.RoleUser, Content: content}
		if err := st.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("append %q: %v", content, err)
		}
	}

	tail, err := st.ListMessages(ctx, session.ID, 2)
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(tail) != 2 || tail[0].Content != "two" || tail[1].Content != "three" {
		t.Errorf("limited messages = %+v, want the newest two in order", tail)
	}
}

func TestSQLiteNotFound(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	if _, err := st.GetProfile(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetProfile = %v, want ErrNotFound", err)
	}
	if _, err := st.GetSession(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetSession = %v, want ErrNotFound", err)
	}
	if err := st.DeleteTool(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteTool = %v, want ErrNotFound", err)
	}
	if err := st.UpdateContinuation(ctx, 99, "resp", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("UpdateContinuation = %v, want ErrNotFound", err)
	}
}

func TestSQLiteDeleteCascades(t *testing.T) {
	st := newSQLiteTestStore(t)
	ctx := context.Background()

	agent := &models.AgentProfile{Name: "A", Model: "gpt-4.1"}
	if err := st.CreateProfile(ctx, agent); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	session := &models.AgentSession{AgentID: agent.ID}
	if err := st.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}
	msg := &models.AgentMessage{SessionID: session.ID, Role: models.RoleUser, Content: "x"}
	if err := st.AppendMessage(ctx, msg); err != nil {
		t.Fatalf("append message: %v", err)
	}

	if err := st.DeleteProfile(ctx, agent.ID); err != nil {
		t.Fatalf("delete profile: %v", err)
	}
	if _, err := st.GetSession(ctx, session.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("session survived profile delete: %v", err)
	}
}
