package tool

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestListFilesTool_NonRecursive(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestTree(t, tmpDir, map[string]string{
		"top.txt":        "x",
		"sub/nested.txt": "y",
	})

	tool := NewListFilesTool(tmpDir)
	input, _ := json.Marshal(ListFilesInput{})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "top.txt") {
		t.Errorf("expected top.txt in output, got %q", result.Output)
	}
	if strings.Contains(result.Output, "nested.txt") {
		t.Errorf("non-recursive listing should not descend into sub/, got %q", result.Output)
	}
	if !strings.Contains(result.Output, "sub/") {
		t.Errorf("expected sub/ directory entry, got %q", result.Output)
	}
}

func TestListFilesTool_Recursive(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestTree(t, tmpDir, map[string]string{
		"top.txt":        "x",
		"sub/nested.txt": "y",
	})

	tool := NewListFilesTool(tmpDir)
	input, _ := json.Marshal(ListFilesInput{Recursive: true})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result.Output, "nested.txt") {
		t.Errorf("recursive listing should include nested.txt, got %q", result.Output)
	}
}

func TestListFilesTool_IgnoresDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestTree(t, tmpDir, map[string]string{
		"node_modules/pkg.json": "{}",
		"real.txt":              "x",
	})

	tool := NewListFilesTool(tmpDir)
	input, _ := json.Marshal(ListFilesInput{Recursive: true})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if strings.Contains(result.Output, "node_modules") {
		t.Errorf("node_modules should be ignored, got %q", result.Output)
	}
	if !strings.Contains(result.Output, "real.txt") {
		t.Errorf("expected real.txt in output, got %q", result.Output)
	}
}

func TestListFilesTool_SubPath(t *testing.T) {
	tmpDir := t.TempDir()
	writeTestTree(t, tmpDir, map[string]string{
		"sub/a.txt": "x",
		"sub/b.txt": "y",
	})

	tool := NewListFilesTool(tmpDir)
	input, _ := json.Marshal(ListFilesInput{Path: "sub"})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["count"] != 2 {
		t.Errorf("count = %v, want 2", result.Metadata["count"])
	}
}
