package orchestrator

import (
	"context"
	"errors"
	"fmt"

	"github.com/whirlun/emigo-go/internal/ipc"
	"github.com/whirlun/emigo-go/pkg/types"
)

// ErrPromptDropped is returned by SubmitPrompt/SubmitRevisedHistory when
// the user declined to cancel another session's in-flight interaction;
// the caller should treat this as "nothing happened", not a failure.
var ErrPromptDropped = errors.New("orchestrator: prompt dropped, another session stayed active")

// SubmitPrompt implements submit_prompt: gate on active_session (possibly
// cancelling another session first), append the user message, extract and
// add @file mentions, then send interaction_request to the Worker.
func (o *Orchestrator) SubmitPrompt(ctx context.Context, directory, text string) error {
	if err := o.gateForSubmit(ctx, directory); err != nil {
		return err
	}

	o.store.GetOrCreate(directory)
	o.store.AppendMessage(directory, types.NewUserMessage(text))
	o.addMentionedFiles(directory, text)

	return o.dispatchInteraction(directory, text)
}

// SubmitRevisedHistory implements submit_revised_history: like
// SubmitPrompt, but replaces the session's history outright before
// building the snapshot; the last user message in messages is the nominal
// prompt.
func (o *Orchestrator) SubmitRevisedHistory(ctx context.Context, directory string, messages []types.Message) error {
	if err := o.gateForSubmit(ctx, directory); err != nil {
		return err
	}

	o.store.GetOrCreate(directory)
	o.store.ReplaceHistory(directory, messages)
	prompt := lastUserContent(messages)
	o.addMentionedFiles(directory, prompt)

	return o.dispatchInteraction(directory, prompt)
}

func lastUserContent(messages []types.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// gateForSubmit enforces the active_session_path gate: a prompt for the
// already-active session is refused outright; a prompt for a different
// session triggers a synchronous cancel confirmation. On success,
// active_session is set to directory.
func (o *Orchestrator) gateForSubmit(ctx context.Context, directory string) error {
	o.mu.Lock()
	current := o.activeSession
	if current == "" {
		o.activeSession = directory
		o.mu.Unlock()
		return nil
	}
	if current == directory {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: an interaction is already active in session %q", directory)
	}
	o.mu.Unlock()

	ok, err := o.frontend.YesOrNo(ctx, fmt.Sprintf(
		"An interaction is active in %s. Cancel it and continue?", current))
	if err != nil {
		return err
	}
	if !ok {
		return ErrPromptDropped
	}

	if err := o.Cancel(ctx, current); err != nil {
		return fmt.Errorf("orchestrator: failed to cancel %q before switching sessions: %w", current, err)
	}

	o.mu.Lock()
	o.activeSession = directory
	o.mu.Unlock()
	return nil
}

func (o *Orchestrator) dispatchInteraction(directory, prompt string) error {
	o.mu.Lock()
	proc := o.proc
	o.mu.Unlock()
	if proc == nil {
		return fmt.Errorf("orchestrator: worker is not running")
	}

	history := o.store.HistorySnapshot(directory)
	chatFiles := o.store.ListChatFiles(directory)
	envDetails := o.store.RenderEnvironmentDetails(directory)

	return proc.writer.Send(ipc.Message{
		Type:    ipc.TypeInteractionRequest,
		Session: directory,
		Data: &ipc.InteractionRequestData{
			SessionPath:        directory,
			Prompt:             prompt,
			History:            toWireHistory(history),
			ChatFiles:          chatFiles,
			EnvironmentDetails: envDetails,
			Config:             o.interactionConfig(),
		},
	})
}

// Cancel implements cancel(session): cancel-and-restart. It is only valid
// while session is the active one.
func (o *Orchestrator) Cancel(ctx context.Context, directory string) error {
	o.mu.Lock()
	if o.activeSession != directory {
		o.mu.Unlock()
		return fmt.Errorf("orchestrator: session %q is not active", directory)
	}
	proc := o.proc
	o.proc = nil
	o.mu.Unlock()

	if proc != nil {
		proc.terminate()
	}

	newProc, err := spawnWorker(ctx, o.workerCmd)
	if err != nil {
		return fmt.Errorf("orchestrator: failed to restart worker after cancel: %w", err)
	}

	o.mu.Lock()
	o.proc = newProc
	o.pendingTools = make(map[string]string)
	o.activeSession = ""
	o.mu.Unlock()

	go o.routeLoop(newProc)

	o.store.PopLastUserMessage(directory)
	o.store.InvalidateCache(directory, "")

	o.frontend.ClearLocalBuffer(directory)
	o.frontend.InteractionFinished(directory)
	return nil
}

// AddFile implements add_file: a direct, synchronous Session Store
// operation with a user-visible confirmation echoed to the frontend.
func (o *Orchestrator) AddFile(directory, filename string) error {
	o.store.GetOrCreate(directory)
	rel, err := o.store.AddChatFile(directory, filename)
	if err != nil {
		return err
	}
	o.frontend.Message(fmt.Sprintf("Added %s to chat", rel))
	return nil
}

// RemoveFile implements remove_file.
func (o *Orchestrator) RemoveFile(directory, filename string) error {
	rel, err := o.store.RemoveChatFile(directory, filename)
	if err != nil {
		return err
	}
	o.frontend.Message(fmt.Sprintf("Removed %s from chat", rel))
	return nil
}

// ListFiles implements list_files.
func (o *Orchestrator) ListFiles(directory string) []string {
	return o.store.ListChatFiles(directory)
}

// GetHistory implements history(session).
func (o *Orchestrator) GetHistory(directory string) []types.Message {
	return o.store.HistorySnapshot(directory)
}

// ClearHistory implements clear_history.
func (o *Orchestrator) ClearHistory(directory string) {
	o.store.ClearHistory(directory)
	o.frontend.Message("Chat history cleared")
}
