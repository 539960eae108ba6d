package orchestrator

import (
	"context"
	"fmt"
	"io"

	"github.com/whirlun/emigo-go/internal/event"
	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/internal/logging"
	"github.com/whirlun/emigo-go/internal/permission"
	"github.com/whirlun/emigo-go/internal/tool"
)

// routeLoop reads Worker events until the pipe closes, dispatching each
// one. Protocol errors (malformed JSON) are logged and skipped without
// ending the loop; only EOF (the Worker process exited) ends it.
func (o *Orchestrator) routeLoop(proc *workerProcess) {
	for {
		msg, err := proc.reader.Next()
		if err == io.EOF {
			if !proc.intentional.Load() {
				o.handleWorkerExit(proc)
			}
			return
		}
		if err != nil {
			logging.Logger.Error().Err(err).Msg("orchestrator: malformed message from worker")
			continue
		}
		o.dispatch(proc, msg)
	}
}

func (o *Orchestrator) dispatch(proc *workerProcess, msg ipc.Message) {
	switch msg.Type {
	case ipc.TypeStream:
		o.handleStream(msg)
	case ipc.TypeToolRequest:
		o.handleToolRequest(proc, msg)
	case ipc.TypeEnvironmentDetailsRequest:
		o.handleEnvironmentDetailsRequest(proc, msg)
	case ipc.TypeFinished:
		o.handleFinished(msg)
	case ipc.TypeError:
		o.handleError(msg)
	case ipc.TypePong:
		// no-op: pong only confirms liveness, nothing to route.
	default:
		logging.Logger.Warn().Str("type", string(msg.Type)).Msg("orchestrator: unexpected message type from worker")
	}
}

// handleStream forwards one stream chunk to the frontend, stripping any
// echoed environment-details block except from raw tool argument text.
func (o *Orchestrator) handleStream(msg ipc.Message) {
	content := msg.Content
	if msg.Role != ipc.RoleToolJSONArgs {
		content = stripEnvironmentDetails(content)
	}
	o.frontend.StreamChunk(msg.Session, content, string(msg.Role), msg.ToolID, msg.ToolName)
}

// handleToolRequest resolves and executes the named tool, replying with
// tool_result. Approval-list gating already happens inside the tool's own
// Execute (via permission.Checker), so this only needs to translate the
// outcome into one of the wire result sentinels.
func (o *Orchestrator) handleToolRequest(proc *workerProcess, msg ipc.Message) {
	directory := msg.Session

	o.mu.Lock()
	o.pendingTools[msg.RequestID] = msg.ToolName
	o.mu.Unlock()

	result := o.executeTool(directory, msg)

	o.mu.Lock()
	delete(o.pendingTools, msg.RequestID)
	o.mu.Unlock()

	_ = proc.writer.Send(ipc.Message{
		Type:      ipc.TypeToolResult,
		Session:   directory,
		RequestID: msg.RequestID,
		Result:    result,
	})
}

func (o *Orchestrator) executeTool(directory string, msg ipc.Message) string {
	registry := o.toolRegistryFor(directory)
	t, ok := registry.Get(msg.ToolName)
	if !ok {
		return ipc.ResultErrorPrefix + fmt.Sprintf("unknown tool %q", msg.ToolName)
	}

	toolCtx := &tool.Context{
		SessionID: directory,
		CallID:    msg.RequestID,
		WorkDir:   directory,
	}

	result, err := t.Execute(context.Background(), msg.Parameters, toolCtx)
	switch {
	case permission.IsRejectedError(err):
		return ipc.ResultToolDenied
	case err != nil:
		return ipc.ResultErrorPrefix + err.Error()
	}

	if result.Output == tool.CompletionSignal {
		o.mu.Lock()
		if o.activeSession == directory {
			o.activeSession = ""
		}
		o.mu.Unlock()

		text, command := completionDetails(result)
		o.frontend.CompletionSignalled(directory, text, command)
	}

	switch t.ID() {
	case "read_file":
		if f, ok := result.Metadata["file"].(string); ok {
			_, _ = o.store.AddChatFile(directory, f)
		}
	case "list_repomap":
		if m, ok := result.Metadata["repomap"].(string); ok {
			o.store.SetRepomap(directory, &m)
		}
	}

	return result.Output
}

func completionDetails(result *tool.Result) (text, command string) {
	if result.Metadata == nil {
		return "", ""
	}
	if v, ok := result.Metadata["result"].(string); ok {
		text = v
	}
	if v, ok := result.Metadata["command"].(string); ok {
		command = v
	}
	return text, command
}

func (o *Orchestrator) handleEnvironmentDetailsRequest(proc *workerProcess, msg ipc.Message) {
	details := o.store.RenderEnvironmentDetails(msg.Session)
	_ = proc.writer.Send(ipc.Message{
		Type:      ipc.TypeEnvironmentDetailsResult,
		Session:   msg.Session,
		RequestID: msg.RequestID,
		Details:   details,
	})
}

// handleFinished clears active_session and, for a status that carries a
// usable final_history, replaces session history with it.
func (o *Orchestrator) handleFinished(msg ipc.Message) {
	directory := msg.Session

	o.mu.Lock()
	if o.activeSession == directory {
		o.activeSession = ""
	}
	o.mu.Unlock()

	if msg.Status == ipc.StatusSuccess || msg.Status == ipc.StatusMaxTurnsReached {
		history := fromWireHistory(msg.FinalHistory)
		for i := range history {
			history[i].Content = stripEnvironmentDetails(history[i].Content)
		}
		o.store.ReplaceHistory(directory, history)
	}

	event.PublishSync(event.Event{
		Type: event.InteractionFinished,
		Data: event.InteractionFinishedData{SessionID: directory, Status: string(msg.Status)},
	})
	o.frontend.InteractionFinished(directory)
}

// handleError forwards a Worker-reported error and clears active_session
// if it belonged to this session.
func (o *Orchestrator) handleError(msg ipc.Message) {
	directory := msg.Session

	o.mu.Lock()
	if o.activeSession == directory {
		o.activeSession = ""
	}
	o.mu.Unlock()

	o.frontend.Message(fmt.Sprintf("[%s] %s", directory, msg.Message))
}

// handleWorkerExit reacts to an unexpected Worker death: the active
// interaction (if any) is marked failed and the frontend notified, and a
// replacement Worker is spawned in the background with exponential backoff
// so a crash loop doesn't turn into a fork bomb.
func (o *Orchestrator) handleWorkerExit(proc *workerProcess) {
	o.mu.Lock()
	if o.proc != proc {
		// Already replaced by Stop or cancel-and-restart.
		o.mu.Unlock()
		return
	}
	wasActive := o.activeSession
	o.activeSession = ""
	o.proc = nil
	o.mu.Unlock()

	<-proc.exited

	event.Publish(event.Event{
		Type: event.WorkerExited,
		Data: event.WorkerExitedData{SessionID: wasActive, Crashed: true, Err: exitErrString(proc.exitErr)},
	})

	if wasActive != "" {
		o.frontend.Message(fmt.Sprintf("worker exited unexpectedly during session %s", wasActive))
		o.frontend.InteractionFinished(wasActive)
	}

	go o.respawnAfterCrash()
}
