package tool

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeTestTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		full := filepath.Join(root, rel)
		os.MkdirAll(filepath.Dir(full), 0755)
		if err := os.WriteFile(full, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSearchFilesTool_Execute(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestTree(t, tmpDir, map[string]string{
		"a.go": "package main\nfunc TODO() {}\n",
		"b.go": "package main\nfunc main() {}\n",
	})

	tool := NewSearchFilesTool(tmpDir)
	input, _ := json.Marshal(SearchFilesInput{Pattern: "TODO"})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["count"] != 1 {
		t.Errorf("count = %v, want 1", result.Metadata["count"])
	}
}

func TestSearchFilesTool_NoMatches(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestTree(t, tmpDir, map[string]string{"a.txt": "nothing interesting"})

	tool := NewSearchFilesTool(tmpDir)
	input, _ := json.Marshal(SearchFilesInput{Pattern: "zzz_not_present"})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["count"] != 0 {
		t.Errorf("count = %v, want 0", result.Metadata["count"])
	}
}

func TestSearchFilesTool_IgnoresVendorAndGit(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestTree(t, tmpDir, map[string]string{
		"vendor/lib.go": "package vendor\n// MATCHME\n",
		".git/HEAD":     "MATCHME",
		"src/main.go":   "package main\n// MATCHME\n",
	})

	tool := NewSearchFilesTool(tmpDir)
	input, _ := json.Marshal(SearchFilesInput{Pattern: "MATCHME"})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["count"] != 1 {
		t.Errorf("count = %v, want 1 (only src/main.go should match)", result.Metadata["count"])
	}
}

func TestSearchFilesTool_MissingPattern(t *testing.T) {
	tool := NewSearchFilesTool(t.TempDir())
	input, _ := json.Marshal(SearchFilesInput{Pattern: ""})

	_, err := tool.Execute(context.Background(), input, testContext())
	if err == nil {
		t.Fatal("expected error for missing pattern")
	}
}

func TestSearchFilesTool_CaseSensitivity(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestTree(t, tmpDir, map[string]string{"a.txt": "Hello World"})

	tool := NewSearchFilesTool(tmpDir)

	input, _ := json.Marshal(SearchFilesInput{Pattern: "hello world", CaseSensitive: true})
	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["count"] != 0 {
		t.Errorf("case-sensitive search should not match, count = %v", result.Metadata["count"])
	}

	input, _ = json.Marshal(SearchFilesInput{Pattern: "hello world", CaseSensitive: false})
	result, err = tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["count"] != 1 {
		t.Errorf("case-insensitive search should match, count = %v", result.Metadata["count"])
	}
}

func TestShouldIgnorePath(t *testing.T) {
	cases := map[string]bool{
		"node_modules/foo.js": true,
		"src/node_modules/x":  true,
		".git/HEAD":           true,
		"vendor/lib/x.go":     true,
		"src/main.go":         false,
	}
	for path, want := range cases {
		if got := shouldIgnorePath(path, false); got != want {
			t.Errorf("shouldIgnorePath(%q) = %v, want %v", path, got, want)
		}
	}
}
