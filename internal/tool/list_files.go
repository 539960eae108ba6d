package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
)

const listFilesDescription = `Request to list files and directories within a path.

Usage:
- path is resolved relative to the working directory, defaults to it
- recursive defaults to false (top level only)
- Default ignore patterns (.git, node_modules, vendor, build artifacts, ...)
  are applied the same way as in search_files`

// ListFilesTool implements directory listing.
type ListFilesTool struct {
	workDir string
}

// ListFilesInput is the input for the list_files tool.
type ListFilesInput struct {
	Path      string `json:"path,omitempty"`
	Recursive bool   `json:"recursive,omitempty"`
}

// NewListFilesTool creates a new list_files tool.
func NewListFilesTool(workDir string) *ListFilesTool {
	return &ListFilesTool{workDir: workDir}
}

func (t *ListFilesTool) ID() string          { return "list_files" }
func (t *ListFilesTool) Description() string { return listFilesDescription }

func (t *ListFilesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "Directory to list, relative to the working directory. Defaults to it."
			},
			"recursive": {
				"type": "boolean",
				"description": "Whether to list files recursively (default: false)"
			}
		}
	}`)
}

func (t *ListFilesTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ListFilesInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}

	workDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		workDir = toolCtx.WorkDir
	}
	listPath := workDir
	if params.Path != "" {
		listPath = resolvePath(workDir, params.Path)
	}
	displayPath := params.Path
	if displayPath == "" {
		displayPath = "."
	}

	var entries []string
	err := filepath.WalkDir(listPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk, skip unreadable entries
		}
		if path == listPath {
			return nil
		}
		rel, relErr := filepath.Rel(workDir, path)
		if relErr != nil {
			rel = path
		}
		if shouldIgnorePath(rel, d.IsDir()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		label := filepath.ToSlash(rel)
		if d.IsDir() {
			label += "/"
		}
		entries = append(entries, label)

		if !params.Recursive && d.IsDir() && path != listPath {
			return filepath.SkipDir
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list directory: %w", err)
	}

	mode := "non-recursive"
	if params.Recursive {
		mode = "recursive"
	}

	return &Result{
		Title:  fmt.Sprintf("Listed %d items", len(entries)),
		Output: fmt.Sprintf("Files in '%s' (%s):\n%s", displayPath, mode, strings.Join(entries, "\n")),
		Metadata: map[string]any{
			"path":  params.Path,
			"count": len(entries),
		},
	}, nil
}

func (t *ListFilesTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
