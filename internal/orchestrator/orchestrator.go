// Package orchestrator drives provider completion rounds for one client
// request: it relays the provider's event stream, detects tool calls
// mid-stream, executes them, and feeds the outputs back to the provider
// with a hard cap on the number of rounds.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oakenlabs/agentrelay/internal/metrics"
	"github.com/oakenlabs/agentrelay/internal/registry"
	"github.com/oakenlabs/agentrelay/internal/store"
	"github.com/oakenlabs/agentrelay/pkg/models"
)

// Sentinel errors for request resolution.
var (
	ErrAgentNotFound   = errors.New("agent not found")
	ErrSessionNotFound = errors.New("session not found")
)

// UnknownToolPolicy decides what happens to a tool call whose name has no
// registered handler.
type UnknownToolPolicy string

const (
	// UnknownToolSkip drops the call silently: not executed, not reported.
	UnknownToolSkip UnknownToolPolicy = "skip"

	// UnknownToolReport emits a tool_error event to the client and feeds
	// an inline error payload back to the provider as the call's output.
	UnknownToolReport UnknownToolPolicy = "report"
)

// eventBufferSize is the client event channel capacity. Writes block once
// the consumer falls this far behind, which keeps per-request memory
// bounded.
const eventBufferSize = 64

// Config controls orchestration behavior.
type Config struct {
	// MaxRounds caps provider calls per client request. Default: 3.
	MaxRounds int

	// UnknownTools selects the unknown-tool policy. Default: skip.
	UnknownTools UnknownToolPolicy

	// Exec configures the tool executor.
	Exec registry.ExecConfig

	// DefaultModel is used when lazily creating a default agent profile.
	DefaultModel string
}

// DefaultConfig returns the default orchestration config.
func DefaultConfig() Config {
	return Config{
		MaxRounds:    3,
		UnknownTools: UnknownToolSkip,
		Exec:         registry.DefaultExecConfig(),
		DefaultModel: "gpt-4.1",
	}
}

func sanitizeConfig(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = defaults.MaxRounds
	}
	if cfg.UnknownTools == "" {
		cfg.UnknownTools = defaults.UnknownTools
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = defaults.DefaultModel
	}
	return cfg
}

// Orchestrator is the streaming engine. Construct with New; safe for
// concurrent use across requests.
type Orchestrator struct {
	store    store.Store
	client   CompletionClient
	executor *registry.Executor
	cfg      Config
	logger   *slog.Logger
	metrics  *metrics.Metrics

	locksMu sync.Mutex
	locks   map[int64]*sessionLock
}

// New creates an orchestrator over the given collaborators. reg may be nil
// for deployments with no server-side tools. metrics may be nil.
func New(st store.Store, client CompletionClient, reg *registry.Registry, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Orchestrator {
	cfg = sanitizeConfig(cfg)
	if reg == nil {
		reg = registry.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		store:    st,
		client:   client,
		executor: registry.NewExecutor(reg, cfg.Exec, logger),
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		locks:    map[int64]*sessionLock{},
	}
}

// Registry returns the tool registry the orchestrator executes against.
func (o *Orchestrator) Registry() *registry.Registry {
	return o.executor.Registry()
}

// StreamRequest is one client request against the streaming entry point.
type StreamRequest struct {
	Message          string
	AgentID          int64 // 0 means unspecified
	SessionID        int64 // 0 means unspecified
	OwnerID          *int64
	AutoExecuteTools bool
}

// StreamChat resolves the agent and session, then drives up to MaxRounds
// provider stream rounds, emitting client events on the returned channel.
// Resolution failures are returned synchronously so callers can map them to
// HTTP status codes before committing to a stream response.
func (o *Orchestrator) StreamChat(ctx context.Context, req *StreamRequest) (<-chan *Event, error) {
	agent, session, err := o.resolve(ctx, req.AgentID, req.SessionID, req.OwnerID)
	if err != nil {
		return nil, err
	}

	events := make(chan *Event, eventBufferSize)
	go func() {
		defer close(events)
		release := o.lockSession(session.ID)
		defer release()
		defer o.metrics.StreamOpened()()

		streamID := uuid.NewString()
		o.logger.Info("stream started",
			"stream_id", streamID,
			"session_id", session.ID,
			"agent_id", agent.ID,
		)

		emit := &emitter{ctx: ctx, events: events}
		o.runRounds(ctx, agent, session, req.Message, req.AutoExecuteTools, emit)

		o.logger.Debug("stream finished", "stream_id", streamID)
	}()
	return events, nil
}

// runRounds is the round loop shared by the streaming chat entry point.
// It always finishes with either a done event or a single error event.
func (o *Orchestrator) runRounds(ctx context.Context, agent *models.AgentProfile, session *models.AgentSession, message string, autoExecute bool, emit *emitter) {
	state := &roundState{phase: PhaseStreamingRound}

	if err := o.store.AppendMessage(ctx, &models.AgentMessage{
		SessionID: session.ID,
		Role:      models.RoleUser,
		Content:   message,
	}); err != nil {
		emit.send(&Event{Err: fmt.Errorf("persist user message: %w", err)})
		return
	}

	tools, err := o.BuildToolDefs(ctx, agent.ID)
	if err != nil {
		emit.send(&Event{Err: fmt.Errorf("build tool definitions: %w", err)})
		return
	}

	input := []InputItem{UserMessage(message)}
	previousResponseID := session.PreviousResponseID

	for state.round = 1; state.round <= o.cfg.MaxRounds; state.round++ {
		state.phase = PhaseStreamingRound
		started := time.Now()

		completed, err := o.streamRound(ctx, &Request{
			Model:              agent.Model,
			Instructions:       agent.SystemPrompt,
			Input:              input,
			Tools:              tools,
			PreviousResponseID: previousResponseID,
			Stream:             true,
		}, state, emit)
		o.metrics.ObserveRound("stream", time.Since(started))
		if err != nil {
			// Provider failures in the streaming path are not wrapped
			// into a done event; the stream terminates abnormally.
			emit.send(&Event{Err: err})
			return
		}

		if completed != nil {
			if err := o.store.UpdateContinuation(ctx, session.ID, completed.ID, completed.Output); err != nil {
				emit.send(&Event{Err: fmt.Errorf("persist continuation: %w", err)})
				return
			}
			previousResponseID = completed.ID
		}

		if !autoExecute || len(state.pending) == 0 {
			break
		}

		state.phase = PhaseExecutingTools
		outputs := o.executePending(ctx, state.pending, emit)
		if len(outputs) == 0 {
			break
		}

		input = outputs
		state.resetRound()
	}

	state.phase = PhaseFinalizing
	o.finalize(ctx, session.ID, state, emit)
	state.phase = PhaseDone
}

// streamRound drives one provider stream call, relaying every event and
// folding the recognized ones into state. Returns the completed response
// when the stream produced one.
func (o *Orchestrator) streamRound(ctx context.Context, req *Request, state *roundState, emit *emitter) (*Response, error) {
	stream, err := o.client.Stream(ctx, req)
	if err != nil {
		return nil, err
	}

	for ev := range stream {
		if ev.Err != nil {
			return nil, ev.Err
		}
		o.metrics.CountStreamEvent(ev.Type)
		if !emit.send(&Event{Name: EventOpenAI, Data: ev.Raw}) {
			return nil, ctx.Err()
		}

		switch ev.Type {
		case EventTypeOutputTextDelta:
			state.roundText.WriteString(ev.Delta)
			state.allText.WriteString(ev.Delta)
			if !emit.send(&Event{Name: EventTextDelta, Data: map[string]string{"delta": ev.Delta}}) {
				return nil, ctx.Err()
			}

		case EventTypeOutputItemAdded:
			if ev.Item != nil && ev.Item.Type == "function_call" {
				state.pending = append(state.pending, &pendingCall{
					itemID: ev.Item.ID,
					callID: ev.Item.CallID,
					name:   ev.Item.Name,
					args:   ev.Item.Arguments,
				})
			}

		case EventTypeFuncArgsDelta:
			if pc := state.findPending(ev.ItemID); pc != nil {
				pc.args += ev.Delta
			}

		case EventTypeFuncArgsDone:
			// The done event carries the authoritative arguments string;
			// it replaces whatever the deltas accumulated.
			if pc := state.findPending(ev.ItemID); pc != nil {
				pc.args = ev.Arguments
			}

		case EventTypeResponseCompleted:
			state.completed = ev.Response
		}
	}
	return state.completed, nil
}

// executePending runs every pending call with a registered handler and
// builds the function_call_output items for the next round. Unregistered
// calls follow the configured unknown-tool policy.
func (o *Orchestrator) executePending(ctx context.Context, pending []*pendingCall, emit *emitter) []InputItem {
	reg := o.executor.Registry()

	var calls []models.ToolCall
	var outputs []InputItem
	for _, pc := range pending {
		if !reg.Has(pc.name) {
			o.metrics.CountToolExecution("skipped")
			if o.cfg.UnknownTools == UnknownToolReport {
				msg := "tool not registered: " + pc.name
				emit.send(&Event{Name: EventToolError, Data: map[string]string{
					"call_id": pc.callID,
					"name":    pc.name,
					"error":   msg,
				}})
				payload, _ := json.Marshal(map[string]string{"error": msg})
				outputs = append(outputs, FunctionCallOutput(pc.callID, string(payload)))
			} else {
				o.logger.Debug("skipping unregistered tool call",
					"tool", pc.name,
					"call_id", pc.callID,
				)
			}
			continue
		}
		calls = append(calls, models.ToolCall{
			ItemID:    pc.itemID,
			CallID:    pc.callID,
			Name:      pc.name,
			Arguments: pc.args,
		})
	}

	results := o.executor.ExecuteAll(ctx, calls)
	for _, res := range results {
		if res.IsError {
			o.metrics.CountToolExecution("error")
		} else {
			o.metrics.CountToolExecution("ok")
		}
		outputs = append(outputs, FunctionCallOutput(res.CallID, res.Output))
	}
	return outputs
}

// finalize persists the assembled assistant text and emits the terminal
// done event. The done event is emitted unconditionally for every
// recognized stopping condition, even when persistence fails.
func (o *Orchestrator) finalize(ctx context.Context, sessionID int64, state *roundState, emit *emitter) {
	if text := strings.TrimSpace(state.allText.String()); text != "" {
		if err := o.store.AppendMessage(ctx, &models.AgentMessage{
			SessionID: sessionID,
			Role:      models.RoleAssistant,
			Content:   text,
		}); err != nil {
			o.logger.Error("failed to persist assistant message",
				"error", err,
				"session_id", sessionID,
			)
		}
	}
	emit.send(&Event{Name: EventDone, Data: map[string]int64{"session_id": sessionID}})
}

// resolve loads or lazily creates the agent profile and session for a
// request. When a session id is supplied, the session's own agent wins.
func (o *Orchestrator) resolve(ctx context.Context, agentID, sessionID int64, ownerID *int64) (*models.AgentProfile, *models.AgentSession, error) {
	if sessionID != 0 {
		session, err := o.store.GetSession(ctx, sessionID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: %d", ErrSessionNotFound, sessionID)
		}
		if err != nil {
			return nil, nil, err
		}
		agent, err := o.store.GetProfile(ctx, session.AgentID)
		if err != nil {
			return nil, nil, fmt.Errorf("load session agent: %w", err)
		}
		return agent, session, nil
	}

	agent, err := o.resolveAgent(ctx, agentID)
	if err != nil {
		return nil, nil, err
	}

	session := &models.AgentSession{AgentID: agent.ID, OwnerID: ownerID}
	if err := o.store.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}
	return agent, session, nil
}

func (o *Orchestrator) resolveAgent(ctx context.Context, agentID int64) (*models.AgentProfile, error) {
	if agentID != 0 {
		agent, err := o.store.GetProfile(ctx, agentID)
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrAgentNotFound, agentID)
		}
		return agent, err
	}

	agent, err := o.store.DefaultProfile(ctx)
	if err == nil {
		return agent, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	// No default profile exists yet; create one so the first
	// unauthenticated request works out of the box.
	agent = &models.AgentProfile{
		Name:      "Assistant",
		Model:     o.cfg.DefaultModel,
		IsDefault: true,
	}
	if err := o.store.CreateProfile(ctx, agent); err != nil {
		return nil, fmt.Errorf("create default agent: %w", err)
	}
	o.logger.Info("created default agent profile", "agent_id", agent.ID)
	return agent, nil
}

// sessionLock serializes continuation updates for one session id across
// concurrent requests.
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (o *Orchestrator) lockSession(sessionID int64) func() {
	o.locksMu.Lock()
	lock := o.locks[sessionID]
	if lock == nil {
		lock = &sessionLock{}
		o.locks[sessionID] = lock
	}
	lock.refs++
	o.locksMu.Unlock()

	lock.mu.Lock()
	return func() {
		lock.mu.Unlock()
		o.locksMu.Lock()
		lock.refs--
		if lock.refs <= 0 {
			delete(o.locks, sessionID)
		}
		o.locksMu.Unlock()
	}
}
