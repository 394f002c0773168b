package models

// OutputItem is one entry of a provider response's output array, reduced to
// the fields the orchestrator consumes. Raw preserves the full normalized
// payload for storage and relay.
type OutputItem struct {
	Type      string         `json:"type"`
	ID        string         `json:"id,omitempty"`
	CallID    string         `json:"call_id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Arguments string         `json:"arguments,omitempty"`
	Content   []ContentPart  `json:"content,omitempty"`
	Raw       map[string]any `json:"raw,omitempty"`
}

// ContentPart is one content fragment of a message-type output item.
type ContentPart struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// ToolCall is a function invocation requested by the provider. ItemID is
// the streaming identity; CallID correlates the eventual tool output.
type ToolCall struct {
	ItemID    string `json:"item_id,omitempty"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}
