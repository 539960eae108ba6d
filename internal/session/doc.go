// Package session implements the Session Store: the orchestrator's
// in-memory mapping from a project directory to the chat state associated
// with it.
//
// # What a Session holds
//
// Each directory lazily gets one Session on first reference, created by
// Store.GetOrCreate and kept for the orchestrator process's entire
// lifetime (there is no persistence, and no eviction):
//
//   - an ordered message history (User/Assistant/Tool/System messages)
//   - the set of project-relative file paths currently "in context"
//   - a per-file cache of content keyed to the file's last-read mtime
//   - the most recently generated repository map snapshot, if any
//
// # Concurrency
//
// Store is safe for concurrent use: a top-level RWMutex guards the
// directory→session map, and each session has its own mutex guarding its
// history/chat-files/cache fields, so operations on different directories
// never contend with each other.
//
//	store := session.NewStore()
//	sess := store.GetOrCreate("/path/to/project")
//	store.AppendMessage(sess.Directory, types.NewUserMessage("fix the bug"))
//	rel, err := store.AddChatFile(sess.Directory, "main.go")
//
// # Environment details
//
// RenderEnvironmentDetails produces the <environment_details> text block
// the Worker inserts ahead of a turn's prompt (never persisted into
// history): the session directory, the cached repository map or a
// fallback directory tree, and the content of every file currently in
// chat context.
//
// # Events
//
// Every mutation that changes visible session state publishes on
// internal/event: SessionCreated, HistoryChanged, and FileContextChanged,
// so the orchestrator's frontend-facing layer can react without polling
// the Store directly.
package session
