package orchestrator

import (
	"context"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

// CompletionClient is the interface the orchestrator consumes to talk to a
// completion provider. Implementations must be safe for concurrent use.
//
// See provider.Client for the OpenAI Responses API implementation.
type CompletionClient interface {
	// Stream opens a streaming completion call and returns a channel of
	// normalized events. The channel is closed when the provider stream
	// ends; transport failures mid-stream arrive as an event with Err set.
	Stream(ctx context.Context, req *Request) (<-chan *StreamEvent, error)

	// Create performs a single non-streaming completion call.
	Create(ctx context.Context, req *Request) (*Response, error)
}

// Request contains all parameters for a provider completion call.
type Request struct {
	// Model is the target model identifier.
	Model string `json:"model"`

	// Instructions is the system prompt. Omitted from the wire request
	// when empty.
	Instructions string `json:"instructions,omitempty"`

	// Input is the ordered list of input items for this turn: a user
	// message on the first round, tool outputs on continuation rounds.
	Input []InputItem `json:"input"`

	// Tools are the tool definitions offered this turn.
	Tools []ToolDef `json:"tools,omitempty"`

	// PreviousResponseID is the continuation token from the prior
	// completed turn. Omitted when empty.
	PreviousResponseID string `json:"previous_response_id,omitempty"`

	// Stream requests server-sent events instead of a single response.
	Stream bool `json:"stream,omitempty"`
}

// InputItem is one entry of a request's input array. Either a role/content
// message or a typed item such as a function_call_output.
type InputItem struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
	Type    string `json:"type,omitempty"`
	CallID  string `json:"call_id,omitempty"`
	Output  string `json:"output,omitempty"`
}

// UserMessage builds the round-one input item carrying the user's message.
func UserMessage(content string) InputItem {
	return InputItem{Role: "user", Content: content}
}

// FunctionCallOutput builds a tool-result input item for a continuation
// round.
func FunctionCallOutput(callID, output string) InputItem {
	return InputItem{Type: "function_call_output", CallID: callID, Output: output}
}

// ToolDef is a tool definition in the shape the provider's completion call
// expects.
type ToolDef struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// Response is a completed (non-streaming or end-of-stream) provider
// response.
type Response struct {
	ID     string              `json:"id"`
	Output []models.OutputItem `json:"output"`
}

// Known provider stream event types. Everything else passes through as-is
// via Raw and is otherwise ignored by the round state machine.
const (
	EventTypeOutputTextDelta   = "response.output_text.delta"
	EventTypeOutputItemAdded   = "response.output_item.added"
	EventTypeFuncArgsDelta     = "response.function_call_arguments.delta"
	EventTypeFuncArgsDone      = "response.function_call_arguments.done"
	EventTypeResponseCompleted = "response.completed"
	EventTypeUnknown           = "unknown"
)

// StreamEvent is the normalized form of one provider stream event: a closed
// set of typed fields for the shapes the orchestrator reacts to, plus the
// full canonical payload in Raw for verbatim relay to clients.
type StreamEvent struct {
	// Type is the provider event type, or "unknown" for unrecognized
	// payload shapes.
	Type string

	// Delta carries the text fragment of an output_text.delta event and
	// the argument fragment of a function_call_arguments.delta event.
	Delta string

	// ItemID identifies the output item a function_call_arguments event
	// belongs to. This is the call's streaming identity; the invocation
	// identity used for output correlation is the item's CallID.
	ItemID string

	// Item is the added output item of an output_item.added event.
	Item *models.OutputItem

	// Arguments is the final arguments string of a
	// function_call_arguments.done event.
	Arguments string

	// Response is the completed response of a response.completed event.
	Response *Response

	// Raw is the canonical map form of the event, always populated for
	// decoded events.
	Raw map[string]any

	// Err reports a transport failure; the stream terminates after an
	// event carrying it.
	Err error
}

// OutputText concatenates the output_text content parts of the first
// message-type item in output. Returns "" when there is none.
func OutputText(output []models.OutputItem) string {
	for _, item := range output {
		if item.Type != "message" {
			continue
		}
		var text string
		for _, part := range item.Content {
			if part.Type == "output_text" {
				text += part.Text
			}
		}
		return text
	}
	return ""
}

// FunctionCalls collects the function_call items in output as tool calls.
func FunctionCalls(output []models.OutputItem) []models.ToolCall {
	var calls []models.ToolCall
	for _, item := range output {
		if item.Type != "function_call" {
			continue
		}
		calls = append(calls, models.ToolCall{
			ItemID:    item.ID,
			CallID:    item.CallID,
			Name:      item.Name,
			Arguments: item.Arguments,
		})
	}
	return calls
}
