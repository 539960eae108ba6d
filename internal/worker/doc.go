// Package worker implements the Worker subprocess: a single-threaded
// cooperative agent loop that turns one interaction_request into a
// sequence of LLM calls and tool requests, communicating with the
// Orchestrator exclusively over line-delimited JSON (internal/ipc) on its
// stdin/stdout pipes.
//
// # Turn loop
//
// Interaction.Run drives the state machine described by the protocol:
// PROMPT_BUILD composes the system prompt, truncated history, and current
// environment details; LLM_STREAM consumes the provider's streaming
// response, forwarding text deltas and tool-call-assembly markers as they
// arrive; TOOL_EXTRACT reconstructs each streamed tool-call fragment into
// a structured call; TOOL_EXECUTE blocks on a tool_request/tool_result
// round trip per call; ENV_REFRESH blocks on a fresh environment-details
// snapshot before the next turn. The loop ends on a turn with no tool
// calls, a terminating result sentinel, exhausting MaxTurns, or an
// unrecoverable LLM/transport error.
//
// # Process boundary
//
// Unlike the in-process, storage-backed turn loop this package supersedes,
// the Worker never touches tool implementations, session storage, or a
// permission checker directly - every side effect crosses the wire as a
// tool_request the Orchestrator resolves. This keeps the Worker killable
// and replaceable at process granularity, per the cancellation model: the
// Orchestrator cancels an interaction by terminating the subprocess, not
// by any cooperative signal understood here.
package worker
