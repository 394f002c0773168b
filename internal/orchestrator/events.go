package orchestrator

import "context"

// Client-facing event names.
const (
	// EventOpenAI relays one full normalized provider event.
	EventOpenAI = "openai_event"

	// EventTextDelta carries one text fragment: {"delta": string}.
	EventTextDelta = "text_delta"

	// EventToolError reports an unexecutable tool call when the
	// unknown-tool policy is set to report: {"call_id", "name", "error"}.
	EventToolError = "tool_error"

	// EventDone closes every stream: {"session_id": int}. Always the last
	// event for every recognized stopping condition.
	EventDone = "done"
)

// Event is one entry of the client-facing event stream. Either Name/Data
// are set, or Err reports a terminal failure after which no further events
// follow (in particular, no done event).
type Event struct {
	Name string `json:"name"`
	Data any    `json:"data"`
	Err  error  `json:"-"`
}

// emitter delivers events to the client channel. Delivery races the request
// context, so a consumer that stopped reading never blocks the producing
// goroutine or pins its session lock.
type emitter struct {
	ctx    context.Context
	events chan<- *Event
}

// send reports false once ctx is done; callers stop producing.
func (e *emitter) send(ev *Event) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.ctx.Done():
		return false
	}
}
