package orchestrator

import "context"

// Frontend is the editor-facing notification and RPC surface the
// Orchestrator calls into. Tool approval prompts do not go through this
// interface: they are bridged from permission.Checker's blocking Ask via
// the event bus, decoupling tool execution from any particular frontend
// transport. Frontend covers only what the Orchestrator itself originates:
// async notifications, plus the one synchronous question it asks on its
// own behalf (confirming a cross-session cancel).
type Frontend interface {
	// StreamChunk forwards one piece of a Worker's stream event: role is
	// one of "llm", "tool_json", "tool_json_args", "tool_json_end",
	// "error", "warning"; toolID/toolName are set only for the tool_json*
	// roles.
	StreamChunk(session, content, role, toolID, toolName string)

	// InteractionFinished notifies the frontend that session's current
	// interaction has ended (success, error, cancellation, or crash).
	InteractionFinished(session string)

	// FileWrittenExternally tells the frontend a tool changed a file on
	// disk so any open buffer can be reloaded.
	FileWrittenExternally(absPath string)

	// CompletionSignalled notifies the frontend that attempt_completion
	// fired; command is empty when the agent didn't supply one.
	CompletionSignalled(session, text, command string)

	// ClearLocalBuffer asks the frontend to discard any in-progress
	// partial rendering for session, used after a cancel-and-restart.
	ClearLocalBuffer(session string)

	// Message delivers a plain informational string not tied to a
	// specific stream chunk (errors, file add/remove confirmations).
	Message(text string)

	// YesOrNo asks a yes/no question synchronously. It is used only to
	// confirm cancelling another session's in-flight interaction before
	// submit_prompt proceeds.
	YesOrNo(ctx context.Context, question string) (bool, error)
}
