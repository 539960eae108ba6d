// Package orchestrator implements the Orchestrator: it supervises the
// Worker subprocess, serves the frontend's RPC surface, applies the tool
// approval policy, and routes messages between the two.
//
// Orchestrator owns three pieces of shared state behind one mutex: which
// session (if any) currently has an interaction in flight (active_session),
// the outstanding tool_request IDs awaiting a result, and the Worker
// subprocess handle itself. Session history, chat files, and caches live
// in the Session Store, not here; tool execution is bound per session to a
// cached tool.Registry keyed the same way the Session Store keys sessions
// (by absolute working directory).
//
//	orc := New(cfg, store, providers, frontend, []string{"emigo-worker"})
//	if err := orc.Start(ctx); err != nil { ... }
//	defer orc.Stop()
//	err := orc.SubmitPrompt(ctx, "/path/to/project", "fix the bug in main.go")
//
// Frontend is the only interface this package depends on for talking back
// to the editor; the concrete S-expression RPC client lives outside this
// package.
package orchestrator
