package tool

import (
	"encoding/json"
	"sync"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/schema"
	"github.com/whirlun/emigo-go/internal/logging"
	"github.com/whirlun/emigo-go/internal/permission"
)

// Registry manages tool registration and lookup for one worker's tool set.
type Registry struct {
	mu      sync.RWMutex
	tools   map[string]Tool
	workDir string
}

// NewRegistry creates a new, empty tool registry.
func NewRegistry(workDir string) *Registry {
	return &Registry{
		tools:   make(map[string]Tool),
		workDir: workDir,
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	logging.Debug().Str("tool", tool.ID()).Msg("registering tool")
	r.tools[tool.ID()] = tool
}

// Get retrieves a tool by ID.
func (r *Registry) Get(id string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[id]
	return tool, ok
}

// List returns all registered tools.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.tools))
	for _, tool := range r.tools {
		tools = append(tools, tool)
	}
	return tools
}

// IDs returns all tool IDs.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.tools))
	for id := range r.tools {
		ids = append(ids, id)
	}
	return ids
}

// EinoTools returns Eino-compatible tools, for building the provider request.
func (r *Registry) EinoTools() []einotool.BaseTool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]einotool.BaseTool, 0, len(r.tools))
	for _, t := range r.tools {
		tools = append(tools, t.EinoTool())
	}
	return tools
}

// ToolInfos returns Eino tool infos for all tools. The worker process only
// ever needs this (and EinoTools); it never calls Execute itself.
func (r *Registry) ToolInfos() ([]*schema.ToolInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]*schema.ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		params := parseJSONSchemaToParams(t.Parameters())
		infos = append(infos, &schema.ToolInfo{
			Name:        t.ID(),
			Desc:        t.Description(),
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		})
	}
	return infos, nil
}

// ToolDescriptor is the (id, description, parameters) triple a Worker
// process needs to advertise a tool in its system prompt. It carries no
// Eino dependency, unlike ToolInfos, so the Worker binary can build its
// static tool list without linking the provider package's schema types.
type ToolDescriptor struct {
	ID          string
	Description string
	Parameters  json.RawMessage
}

// Descriptors returns the (id, description, parameters) triple for every
// registered tool, in no particular order.
func (r *Registry) Descriptors() []ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolDescriptor{
			ID:          t.ID(),
			Description: t.Description(),
			Parameters:  t.Parameters(),
		})
	}
	return out
}

// DefaultRegistry creates a registry with the nine tools an agent turn can
// call: execute_command, read_file, write_to_file, replace_in_file,
// search_files, list_files, list_repomap, ask_followup_question, and
// attempt_completion. Tool execution (as opposed to schema lookup) is only
// ever invoked orchestrator-side, bound to a session's working directory and
// permission checker.
func DefaultRegistry(workDir string, permChecker *permission.Checker, policy permission.Policy) *Registry {
	r := NewRegistry(workDir)

	r.Register(NewExecuteCommandTool(workDir, permChecker, policy))
	r.Register(NewReadFileTool(workDir))
	r.Register(NewWriteToFileTool(workDir, permChecker, policy))
	r.Register(NewReplaceInFileTool(workDir))
	r.Register(NewSearchFilesTool(workDir))
	r.Register(NewListFilesTool(workDir))
	r.Register(NewListRepomapTool(workDir))
	r.Register(NewAskFollowupQuestionTool())
	r.Register(NewAttemptCompletionTool())

	logging.Debug().Strs("tools", r.IDs()).Msg("default tool registry created")
	return r
}
