// Package permission implements the approval policy consulted before a
// tool call that the orchestrator's Policy marks "ask" or "deny" is
// allowed to execute.
//
// The policy is plain data — a map from tool name to action — rather than
// a hardcoded per-tool switch. Adding a tool to the approval list means
// adding a key to the map, never touching Checker's logic.
//
// Checker.Ask blocks the calling goroutine on a buffered response channel
// registered under the request's ID, publishes a PermissionRequired event
// for the frontend to render, and resumes once Checker.Respond (driven by
// the frontend's "once"/"always"/"reject" reply) or ctx cancellation
// delivers an answer. "always" memoizes the decision per session so a
// later call for the same tool and session skips the prompt.
package permission
