package tool

import (
	"context"
	"encoding/json"
	"fmt"

	einotool "github.com/cloudwego/eino/components/tool"
)

// CompletionSignal is the sentinel the worker's turn loop checks for in a
// tool result's Output to recognize that the agent has finished the task,
// rather than treating the call as a normal tool result to feed back to the
// model.
const CompletionSignal = "COMPLETION_SIGNALLED"

const attemptCompletionDescription = `Signal that the task is complete.

Usage:
- result is required: a summary of what was accomplished
- command is an optional CLI command that demonstrates the result
- This tool does not return content to the model; it ends the turn loop`

// AttemptCompletionTool implements attempt_completion.
type AttemptCompletionTool struct{}

// AttemptCompletionInput is the input for the attempt_completion tool.
type AttemptCompletionInput struct {
	Result  string `json:"result"`
	Command string `json:"command,omitempty"`
}

// NewAttemptCompletionTool creates a new attempt_completion tool.
func NewAttemptCompletionTool() *AttemptCompletionTool {
	return &AttemptCompletionTool{}
}

func (t *AttemptCompletionTool) ID() string          { return "attempt_completion" }
func (t *AttemptCompletionTool) Description() string { return attemptCompletionDescription }

func (t *AttemptCompletionTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"result": {
				"type": "string",
				"description": "A summary of the completed task"
			},
			"command": {
				"type": "string",
				"description": "Optional command that demonstrates the result"
			}
		},
		"required": ["result"]
	}`)
}

func (t *AttemptCompletionTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params AttemptCompletionInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	return &Result{
		Title:  "Task completed",
		Output: CompletionSignal,
		Metadata: map[string]any{
			"result":  params.Result,
			"command": params.Command,
		},
	}, nil
}

func (t *AttemptCompletionTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
