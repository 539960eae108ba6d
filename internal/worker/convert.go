package worker

import (
	"encoding/json"

	"github.com/cloudwego/eino/schema"

	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/pkg/types"
)

// toEinoMessage renders one history entry in the shape the LLM provider
// expects, pairing an Assistant's tool_calls with their arguments encoded
// as the raw JSON text the model originally streamed.
func toEinoMessage(msg types.Message) *schema.Message {
	var role schema.RoleType
	switch msg.Role {
	case types.RoleUser:
		role = schema.User
	case types.RoleSystem:
		role = schema.System
	case types.RoleTool:
		role = schema.Tool
	default:
		role = schema.Assistant
	}

	out := &schema.Message{Role: role, Content: msg.Content}
	if msg.Role == types.RoleTool {
		out.ToolCallID = msg.ToolCallID
	}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID: tc.ID,
			Function: schema.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return out
}

// toWireHistory converts session history into the JSON-serializable shape
// carried on an interaction_request or a finished event's final_history.
func toWireHistory(history []types.Message) []ipc.HistoryMessage {
	out := make([]ipc.HistoryMessage, len(history))
	for i, m := range history {
		wm := ipc.HistoryMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
			Name:       m.Name,
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, ipc.WireToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}
		out[i] = wm
	}
	return out
}

// fromWireHistory is the inverse of toWireHistory, used when the
// Orchestrator hands the Worker its interaction_request's history.
func fromWireHistory(wire []ipc.HistoryMessage) []types.Message {
	out := make([]types.Message, len(wire))
	for i, wm := range wire {
		m := types.Message{
			Role:       types.Role(wm.Role),
			Content:    wm.Content,
			ToolCallID: wm.ToolCallID,
			Name:       wm.Name,
		}
		for _, tc := range wm.ToolCalls {
			m.ToolCalls = append(m.ToolCalls, types.ToolCall{
				ID:        tc.ID,
				Name:      tc.Name,
				Arguments: tc.Arguments,
			})
		}
		out[i] = m
	}
	return out
}

// marshalArguments renders a fragment's accumulated argument text as the
// canonical JSON the rest of the pipeline expects, treating an empty
// fragment as an empty object per the tool-call reconstruction rule.
func marshalArguments(raw string) (json.RawMessage, bool) {
	trimmed := raw
	if trimmed == "" {
		return json.RawMessage("{}"), true
	}
	var v map[string]any
	if err := json.Unmarshal([]byte(trimmed), &v); err != nil {
		return nil, false
	}
	return json.RawMessage(trimmed), true
}
