package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/oakenlabs/agentrelay/pkg/models"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewPostgresStoreFromDB(db), mock
}

func TestSQLCreateProfile(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO agent_profiles").
		WithArgs("Helper", nil, "gpt-4.1", "Be kind.", true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(5), now, now))

	profile := &models.AgentProfile{Name: "Helper", Model: "gpt-4.1", SystemPrompt: "Be kind.", IsDefault: true}
	if err := st.CreateProfile(context.Background(), profile); err != nil {
		t.Fatalf("create: %v", err)
	}
	if profile.ID != 5 {
		t.Errorf("ID = %d, want 5", profile.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLGetProfileNotFound(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM agent_profiles WHERE id").
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "owner_id", "model", "system_prompt", "is_default", "created_at", "updated_at"}))

	if _, err := st.GetProfile(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLUpdateContinuation(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE agent_sessions").
		WithArgs("resp_7", []byte(`[{"type":"message","content":[{"type":"output_text","text":"hi"}]}]`), int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	output := []models.OutputItem{{Type: "message", Content: []models.ContentPart{{Type: "output_text", Text: "hi"}}}}
	if err := st.UpdateContinuation(context.Background(), 3, "resp_7", output); err != nil {
		t.Fatalf("update continuation: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLUpdateContinuationMissingSession(t *testing.T) {
	st, mock := newMockStore(t)

	mock.ExpectExec("UPDATE agent_sessions").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := st.UpdateContinuation(context.Background(), 99, "resp_x", nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLAppendMessage(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	mock.ExpectQuery("INSERT INTO agent_messages").
		WithArgs(int64(3), "user", "Hello").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(11), now))

	msg := &models.AgentMessage{SessionID: 3, Role: models.RoleUser, Content: "Hello"}
	if err := st.AppendMessage(context.Background(), msg); err != nil {
		t.Fatalf("append: %v", err)
	}
	if msg.ID != 11 {
		t.Errorf("ID = %d, want 11", msg.ID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestSQLEnabledTools(t *testing.T) {
	st, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{"id", "name", "description", "tool_type", "parameters", "is_active", "created_at"}).
		AddRow(int64(1), "echo", "Echo text", "function", []byte(`{"type":"object"}`), true, now)
	mock.ExpectQuery("FROM agent_profile_tools").
		WithArgs(int64(2)).
		WillReturnRows(rows)

	tools, err := st.EnabledTools(context.Background(), 2)
	if err != nil {
		t.Fatalf("enabled tools: %v", err)
	}
	if len(tools) != 1 || tools[0].Name != "echo" || tools[0].ToolType != models.ToolTypeFunction {
		t.Errorf("tools = %+v", tools)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
