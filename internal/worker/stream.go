package worker

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/cloudwego/eino/schema"

	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/pkg/types"
)

// chunkSource is the minimal surface the turn loop needs from a completion
// stream. provider.CompletionStream satisfies it (via providerClient, since
// Go's method-set rules don't let its concrete *CompletionStream return
// type stand in for this interface directly); tests use a fake instead of
// driving a real Eino stream reader.
type chunkSource interface {
	Recv() (*schema.Message, error)
	Close()
}

// toolFragment is one entry of the Tool-call fragment table: the
// in-progress reconstruction of a single streamed tool call, keyed by its
// stream index.
type toolFragment struct {
	index        int
	id           string
	name         string
	argumentText string
	started      bool
}

// streamResult is everything TOOL_EXTRACT needs once LLM_STREAM finishes.
type streamResult struct {
	fullText     string
	fragments    []*toolFragment // in stream-index order
	finishReason string
	err          error // set on llm_error
}

// runLLMStream drives one LLM_STREAM step: it consumes the provider's
// completion stream, forwards text deltas and tool-call-assembly markers
// to the Orchestrator via send, and returns the accumulated text plus the
// completed tool-call fragment table.
func runLLMStream(ctx context.Context, stream chunkSource, session string, send func(ipc.Message) error) streamResult {
	var result streamResult
	byIndex := make(map[int]*toolFragment)

	for {
		select {
		case <-ctx.Done():
			result.err = ctx.Err()
			return result
		default:
		}

		msg, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.err = err
			_ = send(ipc.Message{Type: ipc.TypeStream, Session: session, Role: ipc.RoleError, Content: fmt.Sprintf("[Error during LLM communication: %v]", err)})
			return result
		}

		if msg.Content != "" {
			result.fullText += msg.Content
			if err := send(ipc.Message{Type: ipc.TypeStream, Session: session, Role: ipc.RoleLLM, Content: msg.Content}); err != nil {
				result.err = err
				return result
			}
		}

		for _, tc := range msg.ToolCalls {
			idx := 0
			if tc.Index != nil {
				idx = *tc.Index
			}
			frag, exists := byIndex[idx]
			if !exists {
				frag = &toolFragment{index: idx}
				byIndex[idx] = frag
				result.fragments = append(result.fragments, frag)
			}
			if tc.ID != "" {
				frag.id = tc.ID
			}
			if tc.Function.Name != "" {
				frag.name = tc.Function.Name
			}
			if !frag.started && frag.id != "" && frag.name != "" {
				frag.started = true
				if err := send(ipc.Message{Type: ipc.TypeStream, Session: session, Role: ipc.RoleToolJSON, ToolID: frag.id, ToolName: frag.name}); err != nil {
					result.err = err
					return result
				}
			}
			if tc.Function.Arguments != "" {
				frag.argumentText += tc.Function.Arguments
				if err := send(ipc.Message{Type: ipc.TypeStream, Session: session, Role: ipc.RoleToolJSONArgs, ToolID: frag.id, Content: tc.Function.Arguments}); err != nil {
					result.err = err
					return result
				}
			}
		}

		if msg.ResponseMeta != nil && msg.ResponseMeta.FinishReason != "" {
			result.finishReason = msg.ResponseMeta.FinishReason
		}
	}

	sort.Slice(result.fragments, func(i, j int) bool { return result.fragments[i].index < result.fragments[j].index })
	for _, frag := range result.fragments {
		_ = send(ipc.Message{Type: ipc.TypeStream, Session: session, Role: ipc.RoleToolJSONEnd, ToolID: frag.id})
	}

	if result.finishReason == "" {
		if len(result.fragments) > 0 {
			result.finishReason = "tool-calls"
		} else {
			result.finishReason = "stop"
		}
	}
	return result
}

// reconstructToolCalls implements TOOL_EXTRACT's fragment-to-structured-
// call step: each fragment's accumulated argument text is parsed as JSON;
// malformed JSON or a non-object result drops that call (it is skipped,
// not executed) while leaving the others intact.
func reconstructToolCalls(fragments []*toolFragment) []types.ToolCall {
	var calls []types.ToolCall
	for _, frag := range fragments {
		if frag.id == "" || frag.name == "" {
			continue
		}
		args, ok := marshalArguments(frag.argumentText)
		if !ok {
			continue
		}
		calls = append(calls, types.ToolCall{ID: frag.id, Name: frag.name, Arguments: string(args)})
	}
	return calls
}
