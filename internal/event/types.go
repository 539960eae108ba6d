package event

import "github.com/whirlun/emigo-go/pkg/types"

// SessionCreatedData is published when the Session Store creates a new
// session for a directory.
type SessionCreatedData struct {
	Session *types.Session `json:"session"`
}

// HistoryChangedData is published whenever a session's history gains or
// loses a message (append, cancel-and-restart pop, or history replace).
type HistoryChangedData struct {
	SessionID string `json:"sessionID"`
}

// FileContextChangedData is published when a file is added to or removed
// from a session's chat_files set.
type FileContextChangedData struct {
	SessionID string `json:"sessionID"`
	File      string `json:"file"`
	Added     bool   `json:"added"`
}

// FileEditedData is the data for file.edited events, published on a
// successful write_to_file or replace_in_file application.
type FileEditedData struct {
	SessionID string `json:"sessionID"`
	File      string `json:"file"`
}

// PermissionRequiredData is the data for permission.required events.
type PermissionRequiredData struct {
	ID             string   `json:"id"`
	SessionID      string   `json:"sessionID"`
	PermissionType string   `json:"permissionType"`
	Pattern        []string `json:"pattern,omitempty"`
	Title          string   `json:"title"`
}

// PermissionResolvedData is the data for permission.resolved events.
type PermissionResolvedData struct {
	ID      string `json:"id"`
	Granted bool   `json:"granted"`
}

// WorkerSpawnedData is published when the orchestrator spawns a worker
// subprocess for a session.
type WorkerSpawnedData struct {
	SessionID string `json:"sessionID"`
	PID       int    `json:"pid"`
}

// WorkerExitedData is published when a worker subprocess exits, whether
// cleanly, crashed, or killed for cancellation.
type WorkerExitedData struct {
	SessionID string `json:"sessionID"`
	Crashed   bool   `json:"crashed"`
	Err       string `json:"err,omitempty"`
}

// InteractionFinishedData is published for every "finished" message the
// orchestrator receives from a worker, whether or not it still matches
// active_session.
type InteractionFinishedData struct {
	SessionID string `json:"sessionID"`
	Status    string `json:"status"` // "success" | "max_turns_reached" | "llm_error" | "critical_error"
}

// FollowupQuestionAskedData is the data for followup_question.asked events,
// published by the ask_followup_question tool while it blocks waiting for
// the user's answer.
type FollowupQuestionAskedData struct {
	ID        string   `json:"id"`
	SessionID string   `json:"sessionID"`
	Question  string   `json:"question"`
	Options   []string `json:"options,omitempty"`
}
