package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/internal/provider"
	"github.com/whirlun/emigo-go/pkg/types"
)

const defaultMaxTurns = 10

// llmClient is the subset of provider.Provider the turn loop depends on.
// Decoupling from the concrete provider.Provider interface (whose
// CreateCompletion returns the concrete *provider.CompletionStream, not
// the chunkSource interface) lets tests drive the loop with a canned
// stream of chunks instead of a real Eino stream reader.
type llmClient interface {
	CreateCompletion(ctx context.Context, req *provider.CompletionRequest) (chunkSource, error)
}

// providerClient adapts a provider.Provider to llmClient.
type providerClient struct{ provider.Provider }

func (c providerClient) CreateCompletion(ctx context.Context, req *provider.CompletionRequest) (chunkSource, error) {
	return c.Provider.CreateCompletion(ctx, req)
}

// Interaction drives a single interaction_request through the Worker's
// turn-based agent loop: IDLE -> PROMPT_BUILD -> LLM_STREAM -> TOOL_EXTRACT
// -> TOOL_EXECUTE -> ENV_REFRESH -> PROMPT_BUILD, until the model stops
// requesting tools, a terminating sentinel is returned, or MaxTurns is hit.
type Interaction struct {
	SessionPath string
	Provider    llmClient
	Model       string
	Tools       []ToolSchema

	Send func(ipc.Message) error

	// RequestTool sends a tool_request to the Orchestrator and blocks for
	// the matching tool_result, mirroring the Worker's synchronous stdin
	// wait in the single-threaded cooperative model.
	RequestTool func(ctx context.Context, toolName string, params json.RawMessage) (string, error)

	// RequestEnvironmentDetails sends get_environment_details_request and
	// blocks for the matching response.
	RequestEnvironmentDetails func(ctx context.Context) (string, error)

	MaxTurns            int
	MaxHistoryTokens    int
	MinHistoryMessages  int
}

// Outcome is what Run hands back for the Worker's "finished" event.
type Outcome struct {
	Status       ipc.Status
	Message      string
	FinalHistory []types.Message // nil when Status is llm_error or critical_error
}

// Run executes the turn loop for one interaction_request. history is the
// interaction's full message list as received from the Orchestrator
// (the triggering user prompt is already its last entry); environmentDetails
// is the initial <environment_details> block computed before the Worker
// was invoked.
func (in *Interaction) Run(ctx context.Context, history []types.Message, environmentDetails string) Outcome {
	maxTurns := in.MaxTurns
	if maxTurns <= 0 {
		maxTurns = defaultMaxTurns
	}
	maxHistoryTokens := in.MaxHistoryTokens
	if maxHistoryTokens <= 0 {
		maxHistoryTokens = defaultMaxHistoryTokens
	}
	minHistoryMessages := in.MinHistoryMessages
	if minHistoryMessages <= 0 {
		minHistoryMessages = defaultMinHistoryMessages
	}

	interactionHistory := append([]types.Message(nil), history...)
	systemPrompt := buildSystemPrompt(in.SessionPath, in.Tools)
	envDetails := environmentDetails

	turn := 0
	for ; turn < maxTurns; turn++ {
		// 1. PROMPT_BUILD
		messages := in.buildPrompt(systemPrompt, interactionHistory, envDetails, maxHistoryTokens, minHistoryMessages)

		// 2. LLM_STREAM
		stream, err := in.Provider.CreateCompletion(ctx, &provider.CompletionRequest{
			Model:    in.Model,
			Messages: messages,
			Tools:    provider.ConvertToEinoTools(toProviderToolInfos(in.Tools)),
		})
		if err != nil {
			return in.fail(ipc.StatusLLMError, fmt.Sprintf("failed to start completion: %v", err), interactionHistory, err.Error())
		}

		result := runLLMStream(ctx, stream, in.SessionPath, in.Send)
		stream.Close()
		if result.err != nil {
			return in.fail(ipc.StatusLLMError, fmt.Sprintf("LLM communication error: %v", result.err), interactionHistory, result.err.Error())
		}

		// 3. TOOL_EXTRACT
		toolCalls := reconstructToolCalls(result.fragments)
		var assistantContent string
		if result.fullText != "" {
			assistantContent = result.fullText
		}
		interactionHistory = append(interactionHistory, types.NewAssistantMessage(assistantContent, toolCalls))

		if len(toolCalls) == 0 {
			return Outcome{Status: ipc.StatusSuccess, Message: fmt.Sprintf("Interaction ended after %d turns.", turn+1), FinalHistory: interactionHistory}
		}

		// 4. TOOL_EXECUTE
		shouldContinue := true
		for _, call := range toolCalls {
			resultText, err := in.RequestTool(ctx, call.Name, json.RawMessage(call.Arguments))
			if err != nil {
				return in.fail(ipc.StatusCriticalError, fmt.Sprintf("tool execution transport error: %v", err), interactionHistory, "")
			}
			interactionHistory = append(interactionHistory, types.NewToolMessage(call.ID, call.Name, resultText))

			if resultText == ipc.ResultCompletionSignalled || resultText == ipc.ResultToolDenied || strings.HasPrefix(resultText, ipc.ResultErrorPrefix) {
				shouldContinue = false
				break
			}
		}
		if !shouldContinue {
			return Outcome{Status: ipc.StatusSuccess, Message: fmt.Sprintf("Interaction ended after %d turns.", turn+1), FinalHistory: interactionHistory}
		}

		// 5. ENV_REFRESH
		refreshed, err := in.RequestEnvironmentDetails(ctx)
		if err != nil {
			return in.fail(ipc.StatusCriticalError, fmt.Sprintf("environment details transport error: %v", err), interactionHistory, "")
		}
		envDetails = refreshed
		// 6. loop
	}

	return Outcome{Status: ipc.StatusMaxTurnsReached, Message: fmt.Sprintf("Interaction ended after %d turns.", turn), FinalHistory: interactionHistory}
}

func (in *Interaction) fail(status ipc.Status, message string, history []types.Message, streamErrText string) Outcome {
	if streamErrText != "" {
		_ = in.Send(ipc.Message{Type: ipc.TypeStream, Session: in.SessionPath, Role: ipc.RoleError, Content: fmt.Sprintf("[Agent Critical Error: %s]", streamErrText)})
	}
	return Outcome{Status: status, Message: message}
}

// buildPrompt implements PROMPT_BUILD: system prompt, truncated history,
// with the current environment details appended to the last user/tool
// message's content, or added as a trailing system message if the last
// message is from the assistant.
func (in *Interaction) buildPrompt(systemPrompt string, history []types.Message, envDetails string, maxTokens, minMessages int) []*schema.Message {
	truncated := truncateHistory(history, maxTokens, minMessages)

	messages := make([]types.Message, len(truncated))
	copy(messages, truncated)

	if len(messages) > 0 {
		last := &messages[len(messages)-1]
		if last.Role == types.RoleUser || last.Role == types.RoleTool {
			last.Content = last.Content + "\n\n" + envDetails
		} else {
			messages = append(messages, types.NewSystemMessage(envDetails))
		}
	} else {
		messages = append(messages, types.NewSystemMessage(envDetails))
	}

	out := make([]*schema.Message, 0, len(messages)+1)
	out = append(out, toEinoMessage(types.NewSystemMessage(systemPrompt)))
	for _, m := range messages {
		out = append(out, toEinoMessage(m))
	}
	return out
}
