package tool

import (
	"context"
	"encoding/json"
	"runtime"
	"strings"
	"testing"
)

func TestExecuteCommandTool_Execute(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell command differs on windows")
	}
	tool := NewExecuteCommandTool(t.TempDir(), nil, nil)
	input, _ := json.Marshal(ExecuteCommandInput{Command: "echo hello"})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["exit"] != 0 {
		t.Errorf("exit = %v, want 0", result.Metadata["exit"])
	}
	out, _ := result.Metadata["output"].(string)
	if out == "" {
		t.Error("expected non-empty output")
	}
}

func TestExecuteCommandTool_NonZeroExit(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell command differs on windows")
	}
	tool := NewExecuteCommandTool(t.TempDir(), nil, nil)
	input, _ := json.Marshal(ExecuteCommandInput{Command: "exit 3"})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Metadata["exit"] != 3 {
		t.Errorf("exit = %v, want 3", result.Metadata["exit"])
	}
}

func TestExecuteCommandTool_MissingCommand(t *testing.T) {
	tool := NewExecuteCommandTool(t.TempDir(), nil, nil)
	input, _ := json.Marshal(ExecuteCommandInput{Command: ""})

	_, err := tool.Execute(context.Background(), input, testContext())
	if err == nil {
		t.Fatal("expected error for missing command")
	}
}

func TestExecuteCommandTool_Timeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell command differs on windows")
	}
	tool := NewExecuteCommandTool(t.TempDir(), nil, nil)
	input, _ := json.Marshal(ExecuteCommandInput{Command: "sleep 5", Timeout: 50})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	out, _ := result.Metadata["output"].(string)
	if !strings.Contains(out, "timed out") {
		t.Errorf("expected timeout note in output, got %q", out)
	}
}

func TestDetectShell(t *testing.T) {
	shell := detectShell()
	if shell == "" {
		t.Error("detectShell returned empty string")
	}
}
