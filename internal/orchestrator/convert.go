package orchestrator

import (
	"regexp"

	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/internal/permission"
	"github.com/whirlun/emigo-go/pkg/types"
)

// environmentDetailsBlock matches a <environment_details>...</environment_details>
// block so it can be stripped from LLM-origin text before the text reaches
// the frontend or gets persisted to history.
var environmentDetailsBlock = regexp.MustCompile(`(?s)<environment_details>.*?</environment_details>`)

// stripEnvironmentDetails removes any environment-details block the model
// echoed back into its own output. Defense-in-depth: the Worker never asks
// the model to repeat that block, but nothing stops it from doing so.
func stripEnvironmentDetails(content string) string {
	return environmentDetailsBlock.ReplaceAllString(content, "")
}

// toWireHistory renders session history in the JSON-serializable shape
// carried on an interaction_request, mirroring the Worker's own conversion
// of the same wire type in the other direction.
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

// fromWireHistory is the inverse of toWireHistory, used to turn a
// finished event's final_history back into session history.
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

// policyFromConfig builds the approval policy from the default list
// (execute_command, write_to_file both ask), overridden by any tool names
// explicitly configured under the "permission" config key.
func policyFromConfig(cfg *types.Config) permission.Policy {
	policy := permission.DefaultPolicy()
	if cfg == nil {
		return policy
	}
	for toolName, action := range cfg.Permission {
		policy[toolName] = permission.PermissionAction(action)
	}
	return policy
}
