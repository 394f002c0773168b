// Package registry holds the tool handlers the orchestrator may invoke on
// the model's behalf. A registry instance is constructed explicitly and
// injected into the orchestrator; there is no process-wide registry.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// ErrUnknownTool is returned by Execute when no handler is registered under
// the requested name.
var ErrUnknownTool = fmt.Errorf("tool not registered")

// Handler executes one tool call. Args is the decoded JSON argument object;
// the returned value is sent back to the provider verbatim when it is a
// string and JSON-serialized otherwise.
type Handler func(ctx context.Context, args map[string]any) (any, error)

// Registry manages tool handlers with thread-safe registration and lookup.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// New creates an empty registry ready for handler registration.
func New() *Registry {
	return &Registry{
		handlers: make(map[string]Handler),
	}
}

// Register installs a handler under name. If a handler with the same name
// already exists, it is replaced.
func (r *Registry) Register(name string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[name] = handler
}

// Unregister removes a handler by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, name)
}

// Has reports whether a handler is registered under name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.handlers[name]
	return ok
}

// Names returns the registered handler names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	return names
}

// Execute runs the named handler with the given JSON arguments and returns
// its textual result. Empty or whitespace-only arguments decode as an empty
// object. Returns ErrUnknownTool when name is not registered.
func (r *Registry) Execute(ctx context.Context, name, argumentsJSON string) (string, error) {
	r.mu.RLock()
	handler, ok := r.handlers[name]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	args := map[string]any{}
	if trimmed := strings.TrimSpace(argumentsJSON); trimmed != "" {
		if err := json.Unmarshal([]byte(trimmed), &args); err != nil {
			return "", fmt.Errorf("decode arguments for %s: %w", name, err)
		}
	}

	result, err := handler(ctx, args)
	if err != nil {
		return "", err
	}
	if s, ok := result.(string); ok {
		return s, nil
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode result for %s: %w", name, err)
	}
	return string(encoded), nil
}
