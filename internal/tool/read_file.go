package tool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
)

const readFileDescription = `Request to read the contents of a file at the specified path.

Usage:
- path is resolved relative to the session's working directory
- Reading a file adds it to the session's chat_files context so subsequent
  turns see its content in the environment details
- Can read image files and return them as base64 data`

// ReadFileTool implements file reading.
type ReadFileTool struct {
	workDir string
}

// ReadFileInput is the input for the read_file tool.
type ReadFileInput struct {
	Path string `json:"path"`
}

// NewReadFileTool creates a new read_file tool.
func NewReadFileTool(workDir string) *ReadFileTool {
	return &ReadFileTool{workDir: workDir}
}

func (t *ReadFileTool) ID() string          { return "read_file" }
func (t *ReadFileTool) Description() string { return readFileDescription }

func (t *ReadFileTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The path of the file to read, relative to the working directory"
			}
		},
		"required": ["path"]
	}`)
}

func (t *ReadFileTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ReadFileInput
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

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("file not found: %s", posixPath)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("path is a directory, not a file: %s", posixPath)
	}

	if isImageFile(absPath) {
		return t.readImage(absPath, posixPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("error reading file: %w", err)
	}

	if toolCtx != nil && toolCtx.SessionID != "" {
		publishFileContextChanged(toolCtx.SessionID, params.Path, true)
	}

	return &Result{
		Title:  fmt.Sprintf("Read %s", filepath.Base(absPath)),
		Output: fmt.Sprintf("File '%s' read and added to context.", posixPath),
		Metadata: map[string]any{
			"file":    params.Path,
			"content": string(content),
		},
	}, nil
}

func (t *ReadFileTool) readImage(absPath, posixPath string) (*Result, error) {
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, err
	}

	mediaType := detectMediaType(absPath)
	dataURL := fmt.Sprintf("data:%s;base64,%s", mediaType, base64.StdEncoding.EncodeToString(data))

	return &Result{
		Title:  fmt.Sprintf("Read %s", filepath.Base(absPath)),
		Output: fmt.Sprintf("File '%s' (image) read and added to context.", posixPath),
		Attachments: []Attachment{
			{
				Filename:  filepath.Base(absPath),
				MediaType: mediaType,
				URL:       dataURL,
			},
		},
	}, nil
}

func (t *ReadFileTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}

// resolvePath resolves a path relative to a working directory, leaving
// already-absolute paths unchanged.
func resolvePath(workDir, relPath string) string {
	if filepath.IsAbs(relPath) {
		return filepath.Clean(relPath)
	}
	abs, err := filepath.Abs(filepath.Join(workDir, relPath))
	if err != nil {
		return filepath.Join(workDir, relPath)
	}
	return abs
}

// posixPath renders a path with forward slashes for display to the LLM.
func posixPath(p string) string {
	return strings.ReplaceAll(p, string(filepath.Separator), "/")
}

func isImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp":
		return true
	}
	return false
}

func detectMediaType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".bmp":
		return "image/bmp"
	case ".webp":
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}
