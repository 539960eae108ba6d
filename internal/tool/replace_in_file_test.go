package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReplaceInFileTool_ExactMatch(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file.txt")
	os.WriteFile(path, []byte("line one\nline two\nline three\n"), 0644)

	diff := "<<<<<<< SEARCH\nline two\n=======\nline TWO\n>>>>>>> REPLACE"
	tool := NewReplaceInFileTool(tmpDir)
	input, _ := json.Marshal(ReplaceInFileInput{Path: "file.txt", Diff: diff})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["replacements"] != 1 {
		t.Errorf("replacements = %v, want 1", result.Metadata["replacements"])
	}

	content, _ := os.ReadFile(path)
	want := "line one\nline TWO\nline three\n"
	if string(content) != want {
		t.Errorf("content = %q, want %q", content, want)
	}
}

func TestReplaceInFileTool_FuzzyWhitespaceMatch(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file.txt")
	os.WriteFile(path, []byte("func foo() {\n    return 1\n}\n"), 0644)

	// SEARCH block has different indentation/trailing spaces than the file.
	diff := "<<<<<<< SEARCH\nfunc foo() {  \n  return 1  \n}\n=======\nfunc foo() {\n    return 2\n}\n>>>>>>> REPLACE"
	tool := NewReplaceInFileTool(tmpDir)
	input, _ := json.Marshal(ReplaceInFileInput{Path: "file.txt", Diff: diff})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["replacements"] != 1 {
		t.Errorf("replacements = %v, want 1", result.Metadata["replacements"])
	}

	content, _ := os.ReadFile(path)
	if !strings.Contains(string(content), "return 2") {
		t.Errorf("expected replaced content, got %q", content)
	}
}

func TestReplaceInFileTool_MultiBlockSequential(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file.txt")
	os.WriteFile(path, []byte("alpha\nbeta\ngamma\ndelta\n"), 0644)

	diff := "<<<<<<< SEARCH\nalpha\n=======\nALPHA\n>>>>>>> REPLACE\n" +
		"<<<<<<< SEARCH\ndelta\n=======\nDELTA\n>>>>>>> REPLACE"
	tool := NewReplaceInFileTool(tmpDir)
	input, _ := json.Marshal(ReplaceInFileInput{Path: "file.txt", Diff: diff})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["replacements"] != 2 {
		t.Errorf("replacements = %v, want 2", result.Metadata["replacements"])
	}

	content, _ := os.ReadFile(path)
	want := "ALPHA\nbeta\ngamma\nDELTA\n"
	if string(content) != want {
		t.Errorf("content = %q, want %q", content, want)
	}
}

func TestReplaceInFileTool_NestedMarkersError(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file.txt")
	os.WriteFile(path, []byte("content\n"), 0644)

	diff := "<<<<<<< SEARCH\ncontent\n<<<<<<< SEARCH\n=======\nnew\n>>>>>>> REPLACE"
	tool := NewReplaceInFileTool(tmpDir)
	input, _ := json.Marshal(ReplaceInFileInput{Path: "file.txt", Diff: diff})

	_, err := tool.Execute(context.Background(), input, testContext())
	if err == nil {
		t.Fatal("expected error for nested/malformed markers")
	}
}

func TestReplaceInFileTool_NoMatchAggregatesError(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file.txt")
	os.WriteFile(path, []byte("actual content\n"), 0644)

	diff := "<<<<<<< SEARCH\ncompletely different text that will not match\n=======\nnew\n>>>>>>> REPLACE"
	tool := NewReplaceInFileTool(tmpDir)
	input, _ := json.Marshal(ReplaceInFileInput{Path: "file.txt", Diff: diff})

	_, err := tool.Execute(context.Background(), input, testContext())
	if err == nil {
		t.Fatal("expected error when no match found")
	}
	if !strings.Contains(err.Error(), "Failed to apply replacements") {
		t.Errorf("error = %v, expected aggregated failure message", err)
	}
	if !strings.Contains(err.Error(), "read_file") {
		t.Errorf("error should suggest re-reading the file, got %v", err)
	}
}

func TestReplaceInFileTool_NoValidBlocks(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "file.txt")
	os.WriteFile(path, []byte("content\n"), 0644)

	tool := NewReplaceInFileTool(tmpDir)
	input, _ := json.Marshal(ReplaceInFileInput{Path: "file.txt", Diff: "```\nsome code\n```"})

	_, err := tool.Execute(context.Background(), input, testContext())
	if err == nil {
		t.Fatal("expected error for markdown-fenced diff with no SEARCH/REPLACE markers")
	}
}

func TestReplaceInFileTool_FileNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	tool := NewReplaceInFileTool(tmpDir)
	diff := "<<<<<<< SEARCH\nx\n=======\ny\n>>>>>>> REPLACE"
	input, _ := json.Marshal(ReplaceInFileInput{Path: "missing.txt", Diff: diff})

	_, err := tool.Execute(context.Background(), input, testContext())
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestRatcliffObershelpRatio(t *testing.T) {
	if r := ratcliffObershelpRatio("hello", "hello"); r != 1.0 {
		t.Errorf("identical strings ratio = %v, want 1.0", r)
	}
	if r := ratcliffObershelpRatio("abc", "xyz"); r != 0.0 {
		t.Errorf("disjoint strings ratio = %v, want 0.0", r)
	}
	r := ratcliffObershelpRatio("return 1", "return  1")
	if r <= 0.85 {
		t.Errorf("near-identical strings ratio = %v, want > 0.85", r)
	}
}

func TestCompareStrippedLines(t *testing.T) {
	if compareStrippedLines("", "") != 1.0 {
		t.Error("two empty lines should be a perfect match")
	}
	if compareStrippedLines("", "x") != 0.0 {
		t.Error("empty vs non-empty should not match")
	}
	if compareStrippedLines("  foo  ", "foo") != 1.0 {
		t.Error("whitespace-only differences should be a perfect match")
	}
}

func TestSplitLinesKeepEnds(t *testing.T) {
	lines := splitLinesKeepEnds("a\nb\nc")
	want := []string{"a\n", "b\n", "c"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d", len(lines), len(want))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
