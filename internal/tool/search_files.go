package tool

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	einotool "github.com/cloudwego/eino/components/tool"
)

const searchFilesDescription = `Request to perform a regex search across files in a directory.

Usage:
- pattern is a regular expression (Go RE2 syntax)
- path is resolved relative to the working directory, defaults to it
- Directories and files matching the default ignore patterns (.git,
  node_modules, vendor, build artifacts, ...) are skipped`

// SearchFilesTool implements regex content search with glob-aware ignore
// matching.
type SearchFilesTool struct {
	workDir string
}

// SearchFilesInput is the input for the search_files tool.
type SearchFilesInput struct {
	Path          string `json:"path,omitempty"`
	Pattern       string `json:"pattern"`
	CaseSensitive bool   `json:"case_sensitive,omitempty"`
	MaxMatches    int    `json:"max_matches,omitempty"`
}

// NewSearchFilesTool creates a new search_files tool.
func NewSearchFilesTool(workDir string) *SearchFilesTool {
	return &SearchFilesTool{workDir: workDir}
}

func (t *SearchFilesTool) ID() string          { return "search_files" }
func (t *SearchFilesTool) Description() string { return searchFilesDescription }

func (t *SearchFilesTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "Directory to search in, relative to the working directory. Defaults to it."
			},
			"pattern": {
				"type": "string",
				"description": "The regex pattern to search for"
			},
			"case_sensitive": {
				"type": "boolean",
				"description": "Whether the search is case-sensitive (default: false)"
			},
			"max_matches": {
				"type": "integer",
				"description": "Maximum number of matches to return (default 50, capped at 200)"
			}
		},
		"required": ["pattern"]
	}`)
}

// searchMatch is one matching line.
type searchMatch struct {
	File    string
	Line    int
	Content string
}

func (t *SearchFilesTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params SearchFilesInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Pattern == "" {
		return nil, fmt.Errorf("missing required parameter 'pattern'")
	}

	maxMatches := 50
	if params.MaxMatches > 0 {
		maxMatches = params.MaxMatches
	}
	if maxMatches > 200 {
		maxMatches = 200
	}

	workDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		workDir = toolCtx.WorkDir
	}
	searchRoot := workDir
	if params.Path != "" {
		searchRoot = resolvePath(workDir, params.Path)
	}
	displayPath := params.Path
	if displayPath == "" {
		displayPath = "."
	}

	exprSrc := params.Pattern
	if !params.CaseSensitive {
		exprSrc = "(?i)" + exprSrc
	}
	re, err := regexp.Compile(exprSrc)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}

	var matches []searchMatch
	truncated := false

	walkErr := filepath.WalkDir(searchRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk, skip unreadable entries
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
		if d.IsDir() {
			return nil
		}
		if len(matches) >= maxMatches {
			truncated = true
			return filepath.SkipAll
		}

		f, openErr := os.Open(path)
		if openErr != nil {
			return nil
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
		lineNum := 0
		for scanner.Scan() {
			lineNum++
			if re.MatchString(scanner.Text()) {
				matches = append(matches, searchMatch{File: rel, Line: lineNum, Content: scanner.Text()})
				if len(matches) >= maxMatches {
					truncated = true
					break
				}
			}
		}
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("error searching files: %w", walkErr)
	}

	if len(matches) == 0 {
		return &Result{
			Title:  "Search results",
			Output: fmt.Sprintf("No matches found for pattern: %s in '%s'", params.Pattern, displayPath),
			Metadata: map[string]any{
				"pattern": params.Pattern,
				"count":   0,
			},
		}, nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found matches for pattern '%s' in '%s':\n", params.Pattern, displayPath))
	for _, m := range matches {
		sb.WriteString(fmt.Sprintf("%s:%d: %s\n", m.File, m.Line, m.Content))
	}
	if truncated {
		sb.WriteString(fmt.Sprintf("\n(Showing first %d matches)", len(matches)))
	}

	return &Result{
		Title:  fmt.Sprintf("Found %d matches", len(matches)),
		Output: sb.String(),
		Metadata: map[string]any{
			"pattern":   params.Pattern,
			"count":     len(matches),
			"truncated": truncated,
		},
	}, nil
}

func (t *SearchFilesTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}

// shouldIgnorePath reports whether a workDir-relative path matches one of
// the default ignore globs, using doublestar for ** / nested matching.
func shouldIgnorePath(relPath string, isDir bool) bool {
	relPath = filepath.ToSlash(relPath)
	for _, pattern := range defaultIgnoreGlobs {
		if ok, _ := doublestar.Match(pattern, relPath); ok {
			return true
		}
		base := filepath.Base(relPath)
		if ok, _ := doublestar.Match(pattern, base); ok {
			return true
		}
	}
	return false
}

// defaultIgnoreGlobs are directories and file patterns search_files and
// list_files both skip by default.
var defaultIgnoreGlobs = []string{
	"**/node_modules/**", "**/node_modules",
	"**/__pycache__/**", "**/__pycache__",
	"**/.git/**", "**/.git",
	"**/dist/**", "**/dist",
	"**/build/**", "**/build",
	"**/target/**", "**/target",
	"**/vendor/**", "**/vendor",
	"**/.idea/**", "**/.idea",
	"**/.vscode/**", "**/.vscode",
	"**/.cache/**", "**/.cache",
	"**/.venv/**", "**/.venv",
	"**/venv/**", "**/venv",
}
