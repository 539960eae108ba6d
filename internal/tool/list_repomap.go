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
	"sort"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
)

const listRepomapDescription = `Request a map of the repository's structure and key definitions.

Usage:
- Generates (or regenerates) a repository map and stores it in the session
  for inclusion in subsequent environment details
- Intended to be backed by an external repository-indexing service; this
  build ships a simple directory-and-identifier-grep fallback so the module
  works standalone`

// RepoMapGenerator produces a repository map for a set of chat files. A real
// deployment wires in an external indexer; fallbackRepoMapGenerator below is
// the in-process stand-in used when none is configured.
type RepoMapGenerator interface {
	Generate(workDir string, chatFiles []string) (string, error)
}

// ListRepomapTool implements list_repomap.
type ListRepomapTool struct {
	workDir   string
	generator RepoMapGenerator
}

// ListRepomapInput is the input for the list_repomap tool. It takes no
// parameters of its own; the set of chat files comes from session state via
// toolCtx.Extra.
type ListRepomapInput struct{}

// NewListRepomapTool creates a new list_repomap tool using the fallback
// generator. Pass a different RepoMapGenerator via NewListRepomapToolWith to
// delegate to an external indexer.
func NewListRepomapTool(workDir string) *ListRepomapTool {
	return &ListRepomapTool{workDir: workDir, generator: fallbackRepoMapGenerator{}}
}

// NewListRepomapToolWith creates a list_repomap tool backed by a custom
// RepoMapGenerator (e.g. an external indexing service).
func NewListRepomapToolWith(workDir string, generator RepoMapGenerator) *ListRepomapTool {
	return &ListRepomapTool{workDir: workDir, generator: generator}
}

func (t *ListRepomapTool) ID() string          { return "list_repomap" }
func (t *ListRepomapTool) Description() string { return listRepomapDescription }

func (t *ListRepomapTool) Parameters() json.RawMessage {
	return json.RawMessage(`{"type": "object", "properties": {}}`)
}

func (t *ListRepomapTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	workDir := t.workDir
	var chatFiles []string
	if toolCtx != nil {
		if toolCtx.WorkDir != "" {
			workDir = toolCtx.WorkDir
		}
		if files, ok := toolCtx.Extra["chatFiles"].([]string); ok {
			chatFiles = files
		}
	}

	mapContent, err := t.generator.Generate(workDir, chatFiles)
	if err != nil {
		return nil, fmt.Errorf("error generating repository map: %w", err)
	}
	if mapContent == "" {
		mapContent = "(No map content generated)"
	}

	return &Result{
		Title:  "Repository map",
		Output: fmt.Sprintf("Repository map generated for %s.", posixPath(workDir)),
		Metadata: map[string]any{
			"repomap": mapContent,
		},
	}, nil
}

func (t *ListRepomapTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}

// fallbackRepoMapGenerator walks the working directory and greps source
// files for top-level function/type/class-like definitions, producing a
// coarse per-file outline. It is not a replacement for a real tree-sitter-
// backed repo mapper, only a standalone fallback.
type fallbackRepoMapGenerator struct{}

var repomapDefinitionPattern = regexp.MustCompile(
	`^\s*(func|type|class|def|struct|interface)\s+([A-Za-z_][A-Za-z0-9_]*)`,
)

func (fallbackRepoMapGenerator) Generate(workDir string, chatFiles []string) (string, error) {
	var sb strings.Builder

	err := filepath.WalkDir(workDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort walk
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
		if d.IsDir() || !isSourceFile(path) {
			return nil
		}

		defs := grepDefinitions(path)
		if len(defs) == 0 {
			return nil
		}
		sb.WriteString(filepath.ToSlash(rel))
		sb.WriteString(":\n")
		for _, def := range defs {
			sb.WriteString("  ")
			sb.WriteString(def)
			sb.WriteString("\n")
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return sb.String(), nil
}

func isSourceFile(path string) bool {
	switch filepath.Ext(path) {
	case ".go", ".py", ".js", ".ts", ".tsx", ".jsx", ".java", ".rb", ".rs", ".c", ".cpp", ".h":
		return true
	}
	return false
}

func grepDefinitions(path string) []string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var defs []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		if m := repomapDefinitionPattern.FindStringSubmatch(scanner.Text()); m != nil {
			defs = append(defs, fmt.Sprintf("%s %s", m[1], m[2]))
		}
	}
	sort.Strings(defs)
	return defs
}
