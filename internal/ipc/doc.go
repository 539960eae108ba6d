// Package ipc defines the wire protocol between the Orchestrator and the
// Worker subprocess: a single Message envelope, newline-delimited JSON in
// both directions, with request_id correlating a Worker-initiated
// tool_request or get_environment_details_request to the Orchestrator's
// eventual reply.
//
// The protocol is intentionally a direct port of the Python worker's
// stdin/stdout framing (send_message / request_tool_execution /
// request_environment_details): one JSON object per line, flushed
// immediately, with the Worker blocking on its next stdin read whenever it
// is awaiting a tool_result or get_environment_details_response.
package ipc
