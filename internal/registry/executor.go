package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

// ExecConfig configures tool execution behavior.
type ExecConfig struct {
	// Concurrency is the maximum number of concurrent tool executions.
	// Default: 4.
	Concurrency int

	// PerToolTimeout is the timeout for individual tool executions.
	// Default: 30 seconds.
	PerToolTimeout time.Duration
}

// DefaultExecConfig returns sensible defaults for tool execution.
func DefaultExecConfig() ExecConfig {
	return ExecConfig{
		Concurrency:    4,
		PerToolTimeout: 30 * time.Second,
	}
}

// Executor runs tool calls against a registry with bounded concurrency and
// per-call timeouts. Execution failures never propagate as errors; they are
// converted to inline {"error": message} payloads so a failing tool cannot
// abort the surrounding round.
type Executor struct {
	registry *Registry
	config   ExecConfig
	logger   *slog.Logger
}

// NewExecutor creates an executor over the given registry. Zero config
// fields fall back to defaults.
func NewExecutor(reg *Registry, config ExecConfig, logger *slog.Logger) *Executor {
	if config.Concurrency <= 0 {
		config.Concurrency = 4
	}
	if config.PerToolTimeout <= 0 {
		config.PerToolTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		registry: reg,
		config:   config,
		logger:   logger,
	}
}

// Registry returns the executor's underlying registry.
func (e *Executor) Registry() *Registry {
	return e.registry
}

// ExecResult is the outcome of one tool call execution.
type ExecResult struct {
	CallID  string
	Name    string
	Output  string
	IsError bool
}

// ExecuteAll runs the given tool calls with the configured concurrency
// limit. Results come back in input order. Calls whose name is not
// registered must be filtered out by the caller beforehand.
func (e *Executor) ExecuteAll(ctx context.Context, calls []models.ToolCall) []ExecResult {
	results := make([]ExecResult, len(calls))

	sem := make(chan struct{}, e.config.Concurrency)
	var wg sync.WaitGroup

	for i, tc := range calls {
		wg.Add(1)
		go func(idx int, call models.ToolCall) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[idx] = errorResult(call, "execution canceled")
				return
			}

			results[idx] = e.executeWithTimeout(ctx, call)
		}(i, tc)
	}

	wg.Wait()
	return results
}

// executeWithTimeout runs one call under the per-tool timeout, converting
// any failure into an inline error payload.
func (e *Executor) executeWithTimeout(ctx context.Context, call models.ToolCall) ExecResult {
	toolCtx, cancel := context.WithTimeout(ctx, e.config.PerToolTimeout)
	defer cancel()

	type outcome struct {
		output string
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		output, err := e.registry.Execute(toolCtx, call.Name, call.Arguments)
		select {
		case done <- outcome{output: output, err: err}:
		default:
			e.logger.Warn("tool finished after timeout, result discarded",
				"tool", call.Name,
				"call_id", call.CallID,
			)
		}
	}()

	select {
	case <-toolCtx.Done():
		if errors.Is(toolCtx.Err(), context.DeadlineExceeded) {
			return errorResult(call, fmt.Sprintf("execution timed out after %v", e.config.PerToolTimeout))
		}
		return errorResult(call, "execution canceled")
	case out := <-done:
		if out.err != nil {
			return errorResult(call, out.err.Error())
		}
		return ExecResult{CallID: call.CallID, Name: call.Name, Output: out.output}
	}
}

func errorResult(call models.ToolCall, msg string) ExecResult {
	payload, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		payload = []byte(`{"error":"tool execution failed"}`)
	}
	return ExecResult{
		CallID:  call.CallID,
		Name:    call.Name,
		Output:  string(payload),
		IsError: true,
	}
}
