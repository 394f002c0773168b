package store

import (
	"context"
	"errors"
	"testing"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

func TestMemoryProfileLifecycle(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	profile := &models.AgentProfile{Name: "Helper", Model: "gpt-4.1", IsDefault: true}
	if err := st.CreateProfile(ctx, profile); err != nil {
		t.Fatalf("create: %v", err)
	}
	if profile.ID == 0 {
		t.Fatal("create did not assign an id")
	}

	got, err := st.GetProfile(ctx, profile.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Helper" {
		t.Errorf("Name = %q", got.Name)
	}

	// Mutating the returned copy must not leak into the store.
	got.Name = "Mutated"
	again, _ := st.GetProfile(ctx, profile.ID)
	if again.Name != "Helper" {
		t.Error("store returned a shared reference")
	}

	def, err := st.DefaultProfile(ctx)
	if err != nil {
		t.Fatalf("default: %v", err)
	}
	if def.ID != profile.ID {
		t.Errorf("DefaultProfile id = %d, want %d", def.ID, profile.ID)
	}

	profile.SystemPrompt = "Be brief."
	if err := st.UpdateProfile(ctx, profile); err != nil {
		t.Fatalf("update: %v", err)
	}
	updated, _ := st.GetProfile(ctx, profile.ID)
	if updated.SystemPrompt != "Be brief." {
		t.Errorf("SystemPrompt = %q", updated.SystemPrompt)
	}

	if err := st.DeleteProfile(ctx, profile.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetProfile(ctx, profile.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryDefaultProfileMissing(t *testing.T) {
	st := NewMemoryStore()
	if _, err := st.DefaultProfile(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryToolNameUnique(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	first := &models.AgentTool{Name: "echo", ToolType: models.ToolTypeFunction, IsActive: true}
	if err := st.CreateTool(ctx, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &models.AgentTool{Name: "echo", ToolType: models.ToolTypeFunction}
	if err := st.CreateTool(ctx, dup); err == nil {
		t.Fatal("expected duplicate name error")
	}
}

func TestMemoryEnabledTools(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	agent := &models.AgentProfile{Name: "A", Model: "gpt-4.1"}
	if err := st.CreateProfile(ctx, agent); err != nil {
		t.Fatalf("create profile: %v", err)
	}

	enabled := &models.AgentTool{Name: "on", ToolType: models.ToolTypeFunction, IsActive: true}
	disabled := &models.AgentTool{Name: "off", ToolType: models.ToolTypeFunction, IsActive: true}
	inactive := &models.AgentTool{Name: "dead", ToolType: models.ToolTypeFunction, IsActive: false}
	for _, tool := range []*models.AgentTool{enabled, disabled, inactive} {
		if err := st.CreateTool(ctx, tool); err != nil {
			t.Fatalf("create tool: %v", err)
		}
	}

	if err := st.AttachTool(ctx, agent.ID, enabled.ID, true); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := st.AttachTool(ctx, agent.ID, disabled.ID, false); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := st.AttachTool(ctx, agent.ID, inactive.ID, true); err != nil {
		t.Fatalf("attach: %v", err)
	}

	tools, err := st.EnabledTools(ctx, agent.ID)
	if err != nil {
		t.Fatalf("enabled tools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "on" {
		t.Errorf("EnabledTools = %+v, want only the enabled active tool", tools)
	}

	// Re-attaching with a new enabled flag upserts the link.
	if err := st.AttachTool(ctx, agent.ID, disabled.ID, true); err != nil {
		t.Fatalf("re-attach: %v", err)
	}
	tools, _ = st.EnabledTools(ctx, agent.ID)
	if len(tools) != 2 {
		t.Errorf("got %d tools after upsert, want 2", len(tools))
	}

	if err := st.DetachTool(ctx, agent.ID, enabled.ID); err != nil {
		t.Fatalf("detach: %v", err)
	}
	tools, _ = st.EnabledTools(ctx, agent.ID)
	if len(tools) != 1 || tools[0].Name != "off" {
		t.Errorf("EnabledTools after detach = %+v", tools)
	}
}

func TestMemorySessionContinuation(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	agent := &models.AgentProfile{Name: "A", Model: "gpt-4.1"}
	if err := st.CreateProfile(ctx, agent); err != nil {
		t.Fatalf("create profile: %v", err)
	}
	session := &models.AgentSession{AgentID: agent.ID}
	if err := st.CreateSession(ctx, session); err != nil {
		t.Fatalf("create session: %v", err)
	}

	output := []models.OutputItem{{Type: "message", Content: []models.ContentPart{{Type: "output_text", Text: "hi"}}}}
	if err := st.UpdateContinuation(ctx, session.ID, "resp_9", output); err != nil {
		t.Fatalf("update continuation: %v", err)
	}

	got, err := st.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.PreviousResponseID != "resp_9" {
		t.Errorf("PreviousResponseID = %q", got.PreviousResponseID)
	}
	if len(got.LastOutput) != 1 || got.LastOutput[0].Type != "message" {
		t.Errorf("LastOutput = %+v", got.LastOutput)
	}

	if err := st.UpdateContinuation(ctx, 999, "resp_x", nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("update of missing session = %v, want ErrNotFound", err)
	}
}

func TestMemorySessionRequiresAgent(t *testing.T) {
	st := NewMemoryStore()
	session := &models.AgentSession{AgentID: 7}
	if err := st.CreateSession(context.Background(), session); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing agent, got %v", err)
	}
}

func TestMemoryMessagesAppendOnly(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	agent := &models.AgentProfile{Name: "A", Model: "gpt-4.1"}
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

	msgs, err := st.ListMessages(ctx, session.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(msgs) != 3 || msgs[0].Content != "one" || msgs[2].Content != "three" {
		t.Errorf("messages = %+v", msgs)
	}

	tail, _ := st.ListMessages(ctx, session.ID, 2)
	if len(tail) != 2 || tail[0].Content != "two" {
		t.Errorf("limited messages = %+v, want the newest two", tail)
	}
}

func TestMemoryTemplates(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	tpl := &models.AgentPromptTemplate{Name: "greeting", Template: "Hello {{name}}"}
	if err := st.CreateTemplate(ctx, tpl); err != nil {
		t.Fatalf("create: %v", err)
	}

	tpl.Template = "Hi {{name}}"
	if err := st.UpdateTemplate(ctx, tpl); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := st.GetTemplate(ctx, tpl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Template != "Hi {{name}}" {
		t.Errorf("Template = %q", got.Template)
	}

	if err := st.DeleteTemplate(ctx, tpl.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.GetTemplate(ctx, tpl.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete = %v", err)
	}
}
