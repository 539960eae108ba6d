package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	einotool "github.com/cloudwego/eino/components/tool"
)

const (
	searchMarker  = "<<<<<<< SEARCH\n"
	dividerMarker = "\n=======\n"
	replaceMarker = "\n>>>>>>> REPLACE"

	// DefaultFuzzySimilarityThreshold is the minimum per-line similarity
	// ratio (Ratcliff/Obershelp, same metric as Python's
	// difflib.SequenceMatcher.ratio()) a SEARCH line must have against a
	// file line to count as a match.
	DefaultFuzzySimilarityThreshold = 0.85
)

var searchReplacePattern = regexp.MustCompile(
	`(?s)` + regexp.QuoteMeta(searchMarker) + `(.*?)` + regexp.QuoteMeta(dividerMarker) + `(.*?)` + regexp.QuoteMeta(replaceMarker),
)

const replaceInFileDescription = `Request to replace sections of content in an existing file using one or
more SEARCH/REPLACE blocks.

Usage:
- diff contains one or more blocks of the form:
  <<<<<<< SEARCH
  (exact or near-exact existing content)
  =======
  (new content)
  >>>>>>> REPLACE
- SEARCH content doesn't need to match the file byte-for-byte: lines are
  matched after stripping leading/trailing whitespace, using a similarity
  ratio, so minor reformatting in the model's SEARCH block still matches
- Each block is matched against file lines not already consumed by an
  earlier block in the same call, in order, first match wins
- If any block fails to match, the whole call fails with no changes applied`

// ReplaceInFileTool implements fuzzy SEARCH/REPLACE block application.
type ReplaceInFileTool struct {
	workDir             string
	similarityThreshold float64
}

// ReplaceInFileInput is the input for the replace_in_file tool.
type ReplaceInFileInput struct {
	Path string `json:"path"`
	Diff string `json:"diff"`
}

// ReplaceInFileOption configures a ReplaceInFileTool.
type ReplaceInFileOption func(*ReplaceInFileTool)

// WithFuzzySimilarityThreshold overrides the default 0.85 match threshold.
func WithFuzzySimilarityThreshold(threshold float64) ReplaceInFileOption {
	return func(t *ReplaceInFileTool) {
		t.similarityThreshold = threshold
	}
}

// NewReplaceInFileTool creates a new replace_in_file tool.
func NewReplaceInFileTool(workDir string, opts ...ReplaceInFileOption) *ReplaceInFileTool {
	t := &ReplaceInFileTool{
		workDir:             workDir,
		similarityThreshold: DefaultFuzzySimilarityThreshold,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *ReplaceInFileTool) ID() string          { return "replace_in_file" }
func (t *ReplaceInFileTool) Description() string { return replaceInFileDescription }

func (t *ReplaceInFileTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"path": {
				"type": "string",
				"description": "The path of the file to modify, relative to the working directory"
			},
			"diff": {
				"type": "string",
				"description": "One or more SEARCH/REPLACE blocks defining the changes"
			}
		},
		"required": ["path", "diff"]
	}`)
}

func (t *ReplaceInFileTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ReplaceInFileInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Path == "" {
		return nil, fmt.Errorf("missing required parameter 'path'")
	}
	if params.Diff == "" {
		return nil, fmt.Errorf("missing required parameter 'diff'")
	}

	workDir := t.workDir
	if toolCtx != nil && toolCtx.WorkDir != "" {
		workDir = toolCtx.WorkDir
	}
	absPath := resolvePath(workDir, params.Path)
	posixPath := posixPath(params.Path)

	info, err := os.Stat(absPath)
	if err != nil || info.IsDir() {
		return nil, fmt.Errorf("file not found: %s. Please ensure it's added to the chat first", posixPath)
	}

	contentBytes, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("could not get content for file: %s", posixPath)
	}
	fileContent := string(contentBytes)

	blocks, err := parseSearchReplaceBlocks(params.Diff)
	if err != nil {
		return nil, err
	}

	replacements, errs := matchReplacements(fileContent, blocks, t.similarityThreshold)
	if len(errs) > 0 {
		header := fmt.Sprintf("Failed to apply replacements to '%s' due to %d error(s):\n", posixPath, len(errs))
		footer := "\nPlease use read_file to get the exact current content and try again with updated SEARCH blocks."
		return nil, fmt.Errorf("%s%s%s", header, strings.Join(errs, "\n\n"), footer)
	}
	if len(replacements) == 0 {
		return nil, fmt.Errorf("no replacements could be applied (all blocks failed matching or were empty)")
	}

	newContent := applyReplacements(fileContent, replacements)
	if err := os.WriteFile(absPath, []byte(newContent), 0644); err != nil {
		return nil, fmt.Errorf("error writing file: %w", err)
	}

	diffText, additions, deletions := buildDiffMetadata(absPath, fileContent, newContent, workDir)

	if toolCtx != nil && toolCtx.SessionID != "" {
		publishFileEdited(toolCtx.SessionID, params.Path)
	}

	return &Result{
		Title: fmt.Sprintf("Edited %s", filepath.Base(absPath)),
		Output: fmt.Sprintf("File '%s' modified successfully by applying %d block(s).",
			posixPath, len(replacements)),
		Metadata: map[string]any{
			"file":         params.Path,
			"replacements": len(replacements),
			"diff":         diffText,
			"additions":    additions,
			"deletions":    deletions,
		},
	}, nil
}

func (t *ReplaceInFileTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}

// parseSearchReplaceBlocks extracts all SEARCH/REPLACE block pairs from a
// diff string, or returns an error describing why none could be found.
func parseSearchReplaceBlocks(diffStr string) ([][2]string, error) {
	matches := searchReplacePattern.FindAllStringSubmatch(diffStr, -1)
	if len(matches) == 0 {
		if strings.Contains(diffStr, "```") && !strings.Contains(diffStr, searchMarker) {
			return nil, fmt.Errorf("diff content seems to be a markdown code block, not a SEARCH/REPLACE block")
		}
		return nil, fmt.Errorf("no valid SEARCH/REPLACE blocks found in the provided diff")
	}

	blocks := make([][2]string, 0, len(matches))
	for _, m := range matches {
		searchText, replaceText := m[1], m[2]
		if containsAnyMarker(searchText) || containsAnyMarker(replaceText) {
			return nil, fmt.Errorf("detected malformed or nested SEARCH/REPLACE markers within a block's content")
		}
		blocks = append(blocks, [2]string{searchText, replaceText})
	}
	return blocks, nil
}

func containsAnyMarker(s string) bool {
	return strings.Contains(s, searchMarker) || strings.Contains(s, dividerMarker) || strings.Contains(s, replaceMarker)
}

// lineMatch is one successfully matched SEARCH block: [startLine, endLine)
// are 1-based file line numbers, endLine exclusive, and text is the
// replacement for that range.
type lineMatch struct {
	startLine int
	endLine   int
	text      string
}

// matchReplacements attempts to find a sequential, non-overlapping match for
// each SEARCH block's lines against the file's lines, in order, first match
// wins. It returns the matches found and, for any block that couldn't be
// matched, a human-readable error describing the failure.
func matchReplacements(fileContent string, blocks [][2]string, threshold float64) ([]lineMatch, []string) {
	fileLines := splitLinesKeepEnds(fileContent)
	usedLineIndices := make(map[int]bool)

	var matches []lineMatch
	var errs []string

	for blockIndex, block := range blocks {
		searchText, replaceText := block[0], block[1]
		searchLines := splitLinesKeepEnds(searchText)
		if len(searchLines) == 0 || strings.TrimSpace(searchText) == "" {
			errs = append(errs, fmt.Sprintf("Block %d: SEARCH block is empty or contains only whitespace.", blockIndex+1))
			continue
		}

		foundMatch := false
		for start := 0; start < len(fileLines); start++ {
			if usedLineIndices[start] {
				continue
			}
			if compareStrippedLines(searchLines[0], fileLines[start]) < threshold {
				continue
			}

			matchLen := 1
			allMatched := true
			for si := 1; si < len(searchLines); si++ {
				fi := start + si
				if fi >= len(fileLines) || usedLineIndices[fi] {
					allMatched = false
					break
				}
				if compareStrippedLines(searchLines[si], fileLines[fi]) < threshold {
					allMatched = false
					break
				}
				matchLen++
			}

			if allMatched {
				startLineNum := start + 1
				endLineInclusive := startLineNum + matchLen - 1
				matches = append(matches, lineMatch{
					startLine: startLineNum,
					endLine:   endLineInclusive + 1,
					text:      replaceText,
				})
				for i := 0; i < matchLen; i++ {
					usedLineIndices[start+i] = true
				}
				foundMatch = true
				break
			}
		}

		if !foundMatch {
			errs = append(errs, fmt.Sprintf(
				"Block %d: Could not find a sequential match for the SEARCH text.\nSEARCH block:\n```\n%s```",
				blockIndex+1, searchText))
		}
	}

	return matches, errs
}

// applyReplacements rewrites fileContent, substituting each matched line
// range with its replacement text. Matches are applied in line order.
func applyReplacements(fileContent string, matches []lineMatch) string {
	fileLines := splitLinesKeepEnds(fileContent)
	sort.Slice(matches, func(i, j int) bool { return matches[i].startLine < matches[j].startLine })

	var sb strings.Builder
	cursor := 0
	for _, m := range matches {
		startIdx := m.startLine - 1
		endIdx := m.endLine - 1
		for cursor < startIdx {
			sb.WriteString(fileLines[cursor])
			cursor++
		}
		text := m.text
		if text != "" && !strings.HasSuffix(text, "\n") && endIdx > 0 && strings.HasSuffix(fileLines[endIdx-1], "\n") {
			text += "\n"
		}
		sb.WriteString(text)
		cursor = endIdx
	}
	for cursor < len(fileLines) {
		sb.WriteString(fileLines[cursor])
		cursor++
	}
	return sb.String()
}

// splitLinesKeepEnds splits s into lines, keeping the trailing "\n" on each
// line (matching Python's str.splitlines(keepends=True) for "\n"-terminated
// text), so line ranges can be spliced back together without reconstructing
// separators.
func splitLinesKeepEnds(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

// compareStrippedLines compares two lines after stripping surrounding
// whitespace and returns a Ratcliff/Obershelp similarity ratio.
func compareStrippedLines(line1, line2 string) float64 {
	s1 := strings.TrimSpace(line1)
	s2 := strings.TrimSpace(line2)
	if s1 == "" && s2 == "" {
		return 1.0
	}
	if s1 == "" || s2 == "" {
		return 0.0
	}
	return ratcliffObershelpRatio(s1, s2)
}

// ratcliffObershelpRatio computes 2*M/T, where M is the total length of the
// matching blocks found by recursively taking the longest common substring
// and recursing on the unmatched left and right remainders, and T is the
// combined length of both strings — the same algorithm and normalization as
// Python's difflib.SequenceMatcher.ratio().
func ratcliffObershelpRatio(a, b string) float64 {
	t := len(a) + len(b)
	if t == 0 {
		return 1.0
	}
	m := matchingBlocksLength(a, b)
	return 2 * float64(m) / float64(t)
}

func matchingBlocksLength(a, b string) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	ai, bi, length := longestCommonSubstring(a, b)
	if length == 0 {
		return 0
	}
	return length +
		matchingBlocksLength(a[:ai], b[:bi]) +
		matchingBlocksLength(a[ai+length:], b[bi+length:])
}

// longestCommonSubstring finds the longest common substring of a and b,
// returning its start index in a, start index in b, and length.
func longestCommonSubstring(a, b string) (int, int, int) {
	n, m := len(a), len(b)
	prev := make([]int, m+1)
	curr := make([]int, m+1)

	bestLen, bestAI, bestBI := 0, 0, 0
	for i := 1; i <= n; i++ {
		for j := 1; j <= m; j++ {
			if a[i-1] == b[j-1] {
				curr[j] = prev[j-1] + 1
				if curr[j] > bestLen {
					bestLen = curr[j]
					bestAI = i - curr[j]
					bestBI = j - curr[j]
				}
			} else {
				curr[j] = 0
			}
		}
		prev, curr = curr, prev
	}
	return bestAI, bestBI, bestLen
}
