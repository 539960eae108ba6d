// Package ipc implements the line-delimited JSON protocol the Orchestrator
// and Worker subprocess speak over the Worker's stdin/stdout pipes.
package ipc

import "encoding/json"

// MessageType discriminates the envelope's payload. The set mirrors the
// Request (Orchestrator→Worker) and Event (Worker→Orchestrator) message
// tables: a single envelope type carries both directions since the wire
// framing (one JSON object per line) is identical either way.
type MessageType string

const (
	// Orchestrator → Worker
	TypeInteractionRequest       MessageType = "interaction_request"
	TypeToolResult               MessageType = "tool_result"
	TypeEnvironmentDetailsResult MessageType = "get_environment_details_response"
	TypePing                     MessageType = "ping"

	// Worker → Orchestrator
	TypeStream                    MessageType = "stream"
	TypeToolRequest                MessageType = "tool_request"
	TypeEnvironmentDetailsRequest MessageType = "get_environment_details_request"
	TypeFinished                  MessageType = "finished"
	TypeError                     MessageType = "error"
	TypePong                      MessageType = "pong"
)

// Tool result sentinels: fixed strings the Orchestrator may return as a
// tool_result's Result instead of the tool's normal output, each of which
// ends the Worker's current interaction once recorded in history.
const (
	ResultCompletionSignalled = "COMPLETION_SIGNALLED"
	ResultToolDenied           = "TOOL_DENIED"
	ResultErrorPrefix          = "<tool_error>"
)

// Status is the terminal state reported in a "finished" event.
type Status string

const (
	StatusSuccess         Status = "success"
	StatusMaxTurnsReached Status = "max_turns_reached"
	StatusLLMError        Status = "llm_error"
	StatusCriticalError   Status = "critical_error"
)

// StreamRole distinguishes the five kinds of content multiplexed onto the
// "stream" event: plain LLM text, error text, and the three
// tool-call-assembly parts (start marker, argument fragment, end marker).
type StreamRole string

const (
	RoleLLM          StreamRole = "llm"
	RoleError        StreamRole = "error"
	RoleToolJSON     StreamRole = "tool_json"      // start marker: ToolID/ToolName set
	RoleToolJSONArgs StreamRole = "tool_json_args" // argument fragment: Content is raw JSON text
	RoleToolJSONEnd  StreamRole = "tool_json_end"  // end marker: fragment complete
)

// HistoryMessage is the wire shape of one entry in interaction_history:
// a plain role/content record, with the tool-call fields populated only
// for Assistant and Tool roles respectively.
type HistoryMessage struct {
	Role       string          `json:"role"`
	Content    string          `json:"content,omitempty"`
	ToolCalls  []WireToolCall  `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
	Name       string          `json:"name,omitempty"`
}

// WireToolCall is the reconstructed, JSON-serialized form of a completed
// tool-call fragment, as it appears inside an Assistant HistoryMessage.
type WireToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Config carries the per-interaction LLM configuration the Orchestrator
// resolves (from project/user config) before spawning or reusing a Worker.
type Config struct {
	Model         string            `json:"model"`
	APIKey        string            `json:"api_key,omitempty"`
	BaseURL       string            `json:"base_url,omitempty"`
	Verbose       bool              `json:"verbose,omitempty"`
	ExtraHeaders  map[string]string `json:"extra_headers,omitempty"`
}

// InteractionRequestData is the payload of an interaction_request message.
type InteractionRequestData struct {
	SessionPath         string           `json:"session_path"`
	Prompt              string           `json:"prompt"`
	History             []HistoryMessage `json:"history"`
	ChatFiles           []string         `json:"chat_files"`
	EnvironmentDetails  string           `json:"environment_details"`
	Config              Config           `json:"config"`
}

// Message is the single envelope type exchanged in both directions. Only
// the fields relevant to Type are populated; the rest are zero.
type Message struct {
	Type MessageType `json:"type"`
	Session string   `json:"session,omitempty"`

	// interaction_request
	Data *InteractionRequestData `json:"data,omitempty"`

	// tool_result / tool_request
	RequestID string          `json:"request_id,omitempty"`
	ToolName  string          `json:"tool_name,omitempty"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Result    string          `json:"result,omitempty"`

	// get_environment_details_response / get_environment_details_request
	Details string `json:"details,omitempty"`

	// stream
	Role    StreamRole `json:"role,omitempty"`
	Content string     `json:"content,omitempty"`
	ToolID  string     `json:"tool_id,omitempty"`

	// finished
	Status      Status           `json:"status,omitempty"`
	Message     string           `json:"message,omitempty"`
	FinalHistory []HistoryMessage `json:"final_history,omitempty"`
}
