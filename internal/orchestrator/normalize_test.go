package orchestrator

import (
	"testing"
)

func TestDecodeEvent(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantType string
		check    func(t *testing.T, ev *StreamEvent)
	}{
		{
			name:     "output text delta",
			payload:  `{"type":"response.output_text.delta","delta":"Hi"}`,
			wantType: EventTypeOutputTextDelta,
			check: func(t *testing.T, ev *StreamEvent) {
				if ev.Delta != "Hi" {
					t.Errorf("Delta = %q, want %q", ev.Delta, "Hi")
				}
			},
		},
		{
			name:     "function call item added",
			payload:  `{"type":"response.output_item.added","item":{"type":"function_call","id":"item_1","call_id":"call_1","name":"echo","arguments":""}}`,
			wantType: EventTypeOutputItemAdded,
			check: func(t *testing.T, ev *StreamEvent) {
				if ev.Item == nil {
					t.Fatal("Item is nil")
				}
				if ev.Item.ID != "item_1" || ev.Item.CallID != "call_1" || ev.Item.Name != "echo" {
					t.Errorf("Item = %+v", ev.Item)
				}
			},
		},
		{
			name:     "arguments delta",
			payload:  `{"type":"response.function_call_arguments.delta","item_id":"item_1","delta":"{\"te"}`,
			wantType: EventTypeFuncArgsDelta,
			check: func(t *testing.T, ev *StreamEvent) {
				if ev.ItemID != "item_1" || ev.Delta != `{"te` {
					t.Errorf("ItemID = %q, Delta = %q", ev.ItemID, ev.Delta)
				}
			},
		},
		{
			name:     "arguments done",
			payload:  `{"type":"response.function_call_arguments.done","item_id":"item_1","arguments":"{\"text\":\"hey\"}"}`,
			wantType: EventTypeFuncArgsDone,
			check: func(t *testing.T, ev *StreamEvent) {
				if ev.Arguments != `{"text":"hey"}` {
					t.Errorf("Arguments = %q", ev.Arguments)
				}
			},
		},
		{
			name:     "response completed",
			payload:  `{"type":"response.completed","response":{"id":"resp_1","output":[{"type":"message","content":[{"type":"output_text","text":"done"}]}]}}`,
			wantType: EventTypeResponseCompleted,
			check: func(t *testing.T, ev *StreamEvent) {
				if ev.Response == nil {
					t.Fatal("Response is nil")
				}
				if ev.Response.ID != "resp_1" {
					t.Errorf("Response.ID = %q", ev.Response.ID)
				}
				if got := OutputText(ev.Response.Output); got != "done" {
					t.Errorf("OutputText = %q, want %q", got, "done")
				}
			},
		},
		{
			name:     "unrecognized type passes through",
			payload:  `{"type":"response.created","sequence_number":1}`,
			wantType: "response.created",
		},
		{
			name:     "missing type becomes unknown",
			payload:  `{"delta":"x"}`,
			wantType: EventTypeUnknown,
		},
		{
			name:     "non-json becomes unknown with textual data",
			payload:  "not json at all",
			wantType: EventTypeUnknown,
			check: func(t *testing.T, ev *StreamEvent) {
				if ev.Raw["data"] != "not json at all" {
					t.Errorf("Raw[data] = %v", ev.Raw["data"])
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := DecodeEvent([]byte(tt.payload))
			if ev.Type != tt.wantType {
				t.Fatalf("Type = %q, want %q", ev.Type, tt.wantType)
			}
			if ev.Raw == nil {
				t.Fatal("Raw is nil")
			}
			if tt.check != nil {
				tt.check(t, ev)
			}
		})
	}
}

func TestDecodeResponse(t *testing.T) {
	payload := `{
		"id": "resp_42",
		"output": [
			{"type": "message", "content": [{"type": "output_text", "text": "Hello"}, {"type": "output_text", "text": " world"}]},
			{"type": "function_call", "id": "item_9", "call_id": "call_9", "name": "lookup", "arguments": "{\"q\":\"go\"}"}
		]
	}`

	resp, err := DecodeResponse([]byte(payload))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.ID != "resp_42" {
		t.Errorf("ID = %q", resp.ID)
	}
	if got := OutputText(resp.Output); got != "Hello world" {
		t.Errorf("OutputText = %q, want %q", got, "Hello world")
	}

	calls := FunctionCalls(resp.Output)
	if len(calls) != 1 {
		t.Fatalf("got %d function calls, want 1", len(calls))
	}
	if calls[0].CallID != "call_9" || calls[0].Name != "lookup" || calls[0].Arguments != `{"q":"go"}` {
		t.Errorf("call = %+v", calls[0])
	}
}

func TestDecodeResponseMalformed(t *testing.T) {
	if _, err := DecodeResponse([]byte("{broken")); err == nil {
		t.Fatal("expected error for malformed response")
	}
}
