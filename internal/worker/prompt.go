package worker

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/whirlun/emigo-go/internal/provider"
)

// ToolSchema is the wire shape of one tool definition the system prompt
// embeds verbatim as JSON, so the model sees exactly the same name/
// description/parameters triple the Orchestrator will validate calls
// against.
type ToolSchema struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// buildSystemPrompt renders the fixed template: an introduction, the
// session's working environment (directory, OS, shell, home), and a JSON
// array of every tool schema the Worker is allowed to call.
func buildSystemPrompt(sessionDir string, tools []ToolSchema) string {
	var b strings.Builder

	b.WriteString("You are Emigo, an autonomous coding assistant operating inside the user's editor.\n")
	b.WriteString("You work by reasoning about the task, then calling tools to inspect and modify the project.\n")
	b.WriteString("Use at most one attempt_completion call, and only once the task is actually done.\n\n")

	b.WriteString("# Environment\n\n")
	b.WriteString(fmt.Sprintf("Working directory: %s\n", sessionDir))
	b.WriteString(fmt.Sprintf("Operating system: %s\n", runtime.GOOS))
	b.WriteString(fmt.Sprintf("Shell: %s\n", defaultShell()))
	if home, err := os.UserHomeDir(); err == nil {
		b.WriteString(fmt.Sprintf("Home directory: %s\n", home))
	}
	b.WriteString("\n")

	b.WriteString("# Tools\n\n")
	b.WriteString("The following tools are available. Call them with JSON arguments matching their parameter schema.\n\n")
	schemaJSON, err := json.MarshalIndent(tools, "", "  ")
	if err == nil {
		b.Write(schemaJSON)
		b.WriteString("\n")
	}

	return b.String()
}

func defaultShell() string {
	if runtime.GOOS == "windows" {
		if sh := os.Getenv("COMSPEC"); sh != "" {
			return sh
		}
		return "cmd.exe"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

// toolSchemasFromInfo converts the provider package's tool descriptors
// into the JSON-embeddable ToolSchema used by the system prompt template.
func toolSchemasFromInfo(infos []provider.ToolInfo) []ToolSchema {
	out := make([]ToolSchema, 0, len(infos))
	for _, info := range infos {
		out = append(out, ToolSchema{
			Name:        info.Name,
			Description: info.Description,
			Parameters:  info.Parameters,
		})
	}
	return out
}

// toProviderToolInfos is the inverse of toolSchemasFromInfo, used when
// handing the turn loop's tool list to provider.ConvertToEinoTools.
func toProviderToolInfos(tools []ToolSchema) []provider.ToolInfo {
	out := make([]provider.ToolInfo, 0, len(tools))
	for _, t := range tools {
		out = append(out, provider.ToolInfo{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  t.Parameters,
		})
	}
	return out
}
