package orchestrator

import (
	"context"
	"encoding/json"

	"github.com/oakenlabs/agentrelay/pkg/models"
)

// BuildToolDefs converts the agent's enabled tools into provider tool
// definitions. Function tools carry their JSON schema parameters; custom
// tools carry only name and description. Tools with an unrecognized type
// are omitted.
func (o *Orchestrator) BuildToolDefs(ctx context.Context, agentID int64) ([]ToolDef, error) {
	tools, err := o.store.EnabledTools(ctx, agentID)
	if err != nil {
		return nil, err
	}

	defs := make([]ToolDef, 0, len(tools))
	for _, tool := range tools {
		switch tool.ToolType {
		case models.ToolTypeFunction:
			params := map[string]any{"type": "object", "properties": map[string]any{}}
			if len(tool.Parameters) > 0 {
				if err := json.Unmarshal(tool.Parameters, &params); err != nil {
					o.logger.Warn("omitting tool with unparseable parameters",
						"tool", tool.Name,
						"error", err,
					)
					continue
				}
			}
			defs = append(defs, ToolDef{
				Type:        "function",
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  params,
			})
		case models.ToolTypeCustom:
			defs = append(defs, ToolDef{
				Type:        "custom",
				Name:        tool.Name,
				Description: tool.Description,
			})
		default:
			o.logger.Warn("omitting tool with unrecognized type",
				"tool", tool.Name,
				"tool_type", string(tool.ToolType),
			)
		}
	}
	return defs, nil
}
