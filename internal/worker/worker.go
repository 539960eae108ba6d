package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/internal/logging"
	"github.com/whirlun/emigo-go/internal/provider"
)

// Worker is the single-threaded cooperative process that owns the agent
// turn loop for one interaction_request at a time, communicating with the
// Orchestrator exclusively via line-delimited JSON on in/out.
type Worker struct {
	in        *ipc.Reader
	out       *ipc.Writer
	providers *provider.Registry
	tools     []ToolSchema
}

// New builds a Worker reading requests from in and writing events to out.
// providers resolves the model named in an interaction_request's config.
func New(in io.Reader, out io.Writer, providers *provider.Registry, tools []ToolSchema) *Worker {
	return &Worker{
		in:        ipc.NewReader(in),
		out:       ipc.NewWriter(out),
		providers: providers,
		tools:     tools,
	}
}

// Run reads requests until the Orchestrator closes the pipe (stdin EOF),
// matching the Python worker's "end of input, exit gracefully" behavior.
func (w *Worker) Run(ctx context.Context) error {
	for {
		msg, err := w.in.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			logging.Logger.Error().Err(err).Msg("worker: malformed message from orchestrator")
			continue
		}

		switch msg.Type {
		case ipc.TypeInteractionRequest:
			w.handleInteractionRequest(ctx, msg)
		case ipc.TypePing:
			_ = w.out.Send(ipc.Message{Type: ipc.TypePong, Session: msg.Session})
		default:
			// tool_result / get_environment_details_response arriving
			// outside a blocking wait is a protocol violation the
			// Orchestrator should never trigger (the Worker only reads
			// concurrently with its own blocking requests never issued).
			logging.Logger.Warn().Str("type", string(msg.Type)).Msg("worker: unexpected message type in main loop")
		}
	}
}

func (w *Worker) handleInteractionRequest(ctx context.Context, msg ipc.Message) {
	data := msg.Data
	if data == nil || data.SessionPath == "" || data.Prompt == "" {
		_ = w.out.Send(ipc.Message{Type: ipc.TypeError, Session: msg.Session, Message: "worker received incomplete request"})
		return
	}
	if data.Config.Model == "" {
		_ = w.out.Send(ipc.Message{Type: ipc.TypeError, Session: data.SessionPath, Message: "missing 'model' in config"})
		return
	}

	prov, err := resolveProvider(w.providers, data.Config.Model)
	if err != nil {
		_ = w.out.Send(ipc.Message{Type: ipc.TypeError, Session: data.SessionPath, Message: fmt.Sprintf("failed to resolve provider: %v", err)})
		return
	}

	session := data.SessionPath
	interaction := &Interaction{
		SessionPath: session,
		Provider:    providerClient{prov},
		Model:       data.Config.Model,
		Tools:       w.tools,
		Send: func(m ipc.Message) error {
			return w.out.Send(m)
		},
		RequestTool: func(ctx context.Context, toolName string, params json.RawMessage) (string, error) {
			return w.requestToolExecution(session, toolName, params)
		},
		RequestEnvironmentDetails: func(ctx context.Context) (string, error) {
			return w.requestEnvironmentDetails(session)
		},
	}

	history := fromWireHistory(data.History)
	outcome := interaction.Run(ctx, history, data.EnvironmentDetails)

	fin := ipc.Message{
		Type:    ipc.TypeFinished,
		Session: session,
		Status:  outcome.Status,
		Message: outcome.Message,
	}
	if outcome.Status == ipc.StatusSuccess || outcome.Status == ipc.StatusMaxTurnsReached {
		fin.FinalHistory = toWireHistory(outcome.FinalHistory)
	}
	_ = w.out.Send(fin)
}

// requestToolExecution implements TOOL_EXECUTE's blocking call: send
// tool_request, then read from the shared stdin stream until the matching
// tool_result arrives. The Worker is single-threaded, so no other message
// can be in flight while this blocks.
func (w *Worker) requestToolExecution(session, toolName string, params json.RawMessage) (string, error) {
	requestID := generateRequestID("tool")
	if err := w.out.Send(ipc.Message{Type: ipc.TypeToolRequest, Session: session, RequestID: requestID, ToolName: toolName, Parameters: params}); err != nil {
		return "", err
	}
	for {
		msg, err := w.in.Next()
		if err == io.EOF {
			return "", fmt.Errorf("worker: stdin closed while awaiting tool_result")
		}
		if err != nil {
			logging.Logger.Error().Err(err).Msg("worker: malformed message while awaiting tool_result")
			continue
		}
		if msg.Type == ipc.TypeToolResult && msg.RequestID == requestID {
			return msg.Result, nil
		}
	}
}

// requestEnvironmentDetails implements ENV_REFRESH's blocking call.
func (w *Worker) requestEnvironmentDetails(session string) (string, error) {
	requestID := generateRequestID("env")
	if err := w.out.Send(ipc.Message{Type: ipc.TypeEnvironmentDetailsRequest, Session: session, RequestID: requestID}); err != nil {
		return "", err
	}
	for {
		msg, err := w.in.Next()
		if err == io.EOF {
			return "", fmt.Errorf("worker: stdin closed while awaiting get_environment_details_response")
		}
		if err != nil {
			logging.Logger.Error().Err(err).Msg("worker: malformed message while awaiting get_environment_details_response")
			continue
		}
		if msg.Type == ipc.TypeEnvironmentDetailsResult && msg.RequestID == requestID {
			return msg.Details, nil
		}
	}
}
