package orchestrator

import (
	"encoding/json"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

// DecodeEvent converts one raw provider stream payload into its normalized
// form. Payloads that do not decode as a JSON object become an "unknown"
// event carrying the textual form, so downstream consumers can always rely
// on the canonical map shape.
func DecodeEvent(data []byte) *StreamEvent {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return &StreamEvent{
			Type: EventTypeUnknown,
			Raw: map[string]any{
				"type": EventTypeUnknown,
				"data": string(data),
			},
		}
	}
	return eventFromMap(raw)
}

func eventFromMap(raw map[string]any) *StreamEvent {
	ev := &StreamEvent{
		Type: stringField(raw, "type"),
		Raw:  raw,
	}
	if ev.Type == "" {
		ev.Type = EventTypeUnknown
		raw["type"] = EventTypeUnknown
	}

	switch ev.Type {
	case EventTypeOutputTextDelta:
		ev.Delta = stringField(raw, "delta")
	case EventTypeOutputItemAdded:
		if itemMap, ok := raw["item"].(map[string]any); ok {
			item := itemFromMap(itemMap)
			ev.Item = &item
		}
	case EventTypeFuncArgsDelta:
		ev.ItemID = stringField(raw, "item_id")
		ev.Delta = stringField(raw, "delta")
	case EventTypeFuncArgsDone:
		ev.ItemID = stringField(raw, "item_id")
		ev.Arguments = stringField(raw, "arguments")
	case EventTypeResponseCompleted:
		if respMap, ok := raw["response"].(map[string]any); ok {
			ev.Response = responseFromMap(respMap)
		}
	}
	return ev
}

// DecodeResponse converts a raw non-streaming provider response into its
// normalized form.
func DecodeResponse(data []byte) (*Response, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return responseFromMap(raw), nil
}

func responseFromMap(raw map[string]any) *Response {
	resp := &Response{ID: stringField(raw, "id")}
	output, ok := raw["output"].([]any)
	if !ok {
		return resp
	}
	resp.Output = make([]models.OutputItem, 0, len(output))
	for _, entry := range output {
		itemMap, ok := entry.(map[string]any)
		if !ok {
			resp.Output = append(resp.Output, models.OutputItem{
				Type: EventTypeUnknown,
				Raw: map[string]any{
					"type": EventTypeUnknown,
					"data": textualForm(entry),
				},
			})
			continue
		}
		resp.Output = append(resp.Output, itemFromMap(itemMap))
	}
	return resp
}

func itemFromMap(raw map[string]any) models.OutputItem {
	item := models.OutputItem{
		Type:      stringField(raw, "type"),
		ID:        stringField(raw, "id"),
		CallID:    stringField(raw, "call_id"),
		Name:      stringField(raw, "name"),
		Arguments: stringField(raw, "arguments"),
		Raw:       raw,
	}
	if item.Type == "" {
		item.Type = EventTypeUnknown
	}
	if parts, ok := raw["content"].([]any); ok {
		for _, entry := range parts {
			partMap, ok := entry.(map[string]any)
			if !ok {
				continue
			}
			item.Content = append(item.Content, models.ContentPart{
				Type: stringField(partMap, "type"),
				Text: stringField(partMap, "text"),
			})
		}
	}
	return item
}

func stringField(raw map[string]any, key string) string {
	s, _ := raw[key].(string)
	return s
}

func textualForm(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(encoded)
}
