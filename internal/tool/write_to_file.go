package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/whirlun/emigo-go/internal/permission"
)

const writeToFileDescription = `Request to write content to a file at the specified path.

Usage:
- path is resolved relative to the session's working directory
- Overwrites the file if it exists, creates it (and parent directories) if not
- Always provide the full intended content; this tool does not merge`

// WriteToFileTool implements whole-file writes.
type WriteToFileTool struct {
	workDir     string
	permChecker *permission.Checker
	policy      permission.Policy
}

// WriteToFileInput is the input for the write_to_file tool.
type WriteToFileInput struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// NewWriteToFileTool creates a new write_to_file tool.
func NewWriteToFileTool(workDir string, permChecker *permission.Checker, policy permission.Policy) *WriteToFileTool {
	return &WriteToFileTool{workDir: workDir, permChecker: permChecker, policy: policy}
}

func (t *WriteToFileTool) ID() string          { return "write_to_file" }
func (t *WriteToFileTool) Description() string { return writeToFileDescription }

func (t *WriteToFileTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The path of the file to write to, relative to the working directory"
			},
			"content": {
				"type": "string",
				"description": "The complete content to write to the file"
			}
		},
		"required": ["path", "content"]
	}`)
}

func (t *WriteToFileTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params WriteToFileInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Path == "" {
		return nil, fmt.Errorf("missing required parameter 'path'")
	}

	workDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		workDir = toolCtx.WorkDir
	}
	absPath := resolvePath(workDir, params.Path)
	posixPath := posixPath(params.Path)

	if t.permChecker != nil && toolCtx != nil {
		action := t.policy.ActionFor(t.ID())
		req := permission.Request{
			Type:      permission.PermWriteToFile,
			SessionID: toolCtx.SessionID,
			CallID:    toolCtx.CallID,
			Title:     fmt.Sprintf("Write to %s", posixPath),
			Metadata: map[string]any{
				"path": params.Path,
			},
		}
		if err := t.permChecker.Check(ctx, req, action); err != nil {
			return nil, err
		}
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(absPath, []byte(params.Content), 0644); err != nil {
		return nil, fmt.Errorf("error writing file: %w", err)
	}

	if toolCtx != nil && toolCtx.SessionID != "" {
		publishFileEdited(toolCtx.SessionID, params.Path)
	}

	return &Result{
		Title:  fmt.Sprintf("Wrote %s", filepath.Base(absPath)),
		Output: fmt.Sprintf("File '%s' written successfully.", posixPath),
		Metadata: map[string]any{
			"file":  params.Path,
			"bytes": len(params.Content),
		},
	}, nil
}

func (t *WriteToFileTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
