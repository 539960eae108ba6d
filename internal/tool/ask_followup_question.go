package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/oklog/ulid/v2"
	"github.com/whirlun/emigo-go/internal/event"
)

const askFollowupQuestionDescription = `Request clarification from the user when the provided information is
insufficient to proceed.

Usage:
- question is required
- options is an optional list of suggested answers, presented as a
  multiple-choice hint; the user may still answer freely
- Blocks the turn loop until the user answers or the request is cancelled`

// AskFollowupQuestionTool asks the user a question and blocks the turn loop
// until an answer arrives over the same request/response correlation
// pattern permission.Checker uses for approvals, published as its own event
// type so the frontend can render it distinctly from a permission prompt.
type AskFollowupQuestionTool struct {
	mu      sync.Mutex
	pending map[string]chan string
}

// AskFollowupQuestionInput is the input for the ask_followup_question tool.
type AskFollowupQuestionInput struct {
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
}

// NewAskFollowupQuestionTool creates a new ask_followup_question tool.
func NewAskFollowupQuestionTool() *AskFollowupQuestionTool {
	return &AskFollowupQuestionTool{pending: make(map[string]chan string)}
}

func (t *AskFollowupQuestionTool) ID() string          { return "ask_followup_question" }
func (t *AskFollowupQuestionTool) Description() string { return askFollowupQuestionDescription }

func (t *AskFollowupQuestionTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"question": {
				"type": "string",
				"description": "The question to ask the user"
			},
			"options": {
				"type": "array",
				"items": {"type": "string"},
				"description": "Optional suggested answers"
			}
		},
		"required": ["question"]
	}`)
}

func (t *AskFollowupQuestionTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params AskFollowupQuestionInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Question == "" {
		return nil, fmt.Errorf("missing required parameter 'question'")
	}

	requestID := ulid.Make().String()
	answerCh := make(chan string, 1)

	t.mu.Lock()
	t.pending[requestID] = answerCh
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		delete(t.pending, requestID)
		t.mu.Unlock()
	}()

	sessionID := ""
	if toolCtx != nil {
		sessionID = toolCtx.SessionID
	}
	event.Publish(event.Event{
		Type: event.FollowupQuestionAsked,
		Data: event.FollowupQuestionAskedData{
			ID:        requestID,
			SessionID: sessionID,
			Question:  params.Question,
			Options:   params.Options,
		},
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case answer := <-answerCh:
		if answer == "" {
			return &Result{
				Title:  "Question cancelled",
				Output: "The user did not answer the question.",
			}, nil
		}
		return &Result{
			Title:  "Question answered",
			Output: fmt.Sprintf("<answer>\n%s\n</answer>", answer),
			Metadata: map[string]any{
				"question": params.Question,
				"answer":   answer,
			},
		}, nil
	}
}

// Answer delivers a user's answer to a pending ask_followup_question
// request. An empty answer is treated as cancellation.
func (t *AskFollowupQuestionTool) Answer(requestID, answer string) {
	t.mu.Lock()
	ch, ok := t.pending[requestID]
	t.mu.Unlock()
	if ok {
		ch <- answer
	}
}

func (t *AskFollowupQuestionTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
