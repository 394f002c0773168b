package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/oakenlabs/agentrelay/internal/store"
)

// ToolOutputRequest submits the output of a client-executed tool call back
// into an existing session's conversation.
type ToolOutputRequest struct {
	SessionID int64
	CallID    string
	Output    string
}

// ErrNoContinuation is returned when a tool output targets a session that
// has never completed a provider response, so there is nothing to attach
// the output to. A client-state error, not a server fault.
var ErrNoContinuation = errors.New("session has no response to attach tool output to")

// SubmitToolOutput continues a session with one function_call_output item
// and streams the provider's follow-up response. The session must already
// hold a continuation token; the provider rejects a tool output with no
// response to attach it to.
func (o *Orchestrator) SubmitToolOutput(ctx context.Context, req *ToolOutputRequest) (<-chan *Event, error) {
	session, err := o.store.GetSession(ctx, req.SessionID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", ErrSessionNotFound, req.SessionID)
	}
	if err != nil {
		return nil, err
	}
	if session.PreviousResponseID == "" {
		return nil, fmt.Errorf("%w: session %d", ErrNoContinuation, session.ID)
	}

	agent, err := o.store.GetProfile(ctx, session.AgentID)
	if err != nil {
		return nil, fmt.Errorf("load session agent: %w", err)
	}

	tools, err := o.BuildToolDefs(ctx, agent.ID)
	if err != nil {
		return nil, fmt.Errorf("build tool definitions: %w", err)
	}

	events := make(chan *Event, eventBufferSize)
	go func() {
		defer close(events)
		release := o.lockSession(session.ID)
		defer release()

		emit := &emitter{ctx: ctx, events: events}
		state := &roundState{phase: PhaseStreamingRound, round: 1}

		completed, err := o.streamRound(ctx, &Request{
			Model:              agent.Model,
			Instructions:       agent.SystemPrompt,
			Input:              []InputItem{FunctionCallOutput(req.CallID, req.Output)},
			Tools:              tools,
			PreviousResponseID: session.PreviousResponseID,
			Stream:             true,
		}, state, emit)
		if err != nil {
			emit.send(&Event{Err: err})
			return
		}

		if completed != nil {
			if err := o.store.UpdateContinuation(ctx, session.ID, completed.ID, completed.Output); err != nil {
				emit.send(&Event{Err: fmt.Errorf("persist continuation: %w", err)})
				return
			}
		}

		state.phase = PhaseFinalizing
		o.finalize(ctx, session.ID, state, emit)
		state.phase = PhaseDone
	}()
	return events, nil
}
