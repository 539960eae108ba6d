package tool

import (
	"context"
	"encoding/json"
	"testing"
)

func TestAttemptCompletionTool_Execute(t *testing.T) {
	tool := NewAttemptCompletionTool()
	input, _ := json.Marshal(AttemptCompletionInput{Result: "Added the feature.", Command: "go test ./..."})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != CompletionSignal {
		t.Errorf("Output = %q, want %q", result.Output, CompletionSignal)
	}
	if result.Metadata["result"] != "Added the feature." {
		t.Errorf("result metadata = %v", result.Metadata["result"])
	}
	if result.Metadata["command"] != "go test ./..." {
		t.Errorf("command metadata = %v", result.Metadata["command"])
	}
}

func TestAttemptCompletionTool_NoCommand(t *testing.T) {
	tool := NewAttemptCompletionTool()
	input, _ := json.Marshal(AttemptCompletionInput{Result: "Done."})

	result, err := tool.Execute(context.Background(), input, testContext())
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result.Output != CompletionSignal {
		t.Errorf("Output = %q, want %q", result.Output, CompletionSignal)
	}
}

func TestAttemptCompletionTool_InvalidInput(t *testing.T) {
	tool := NewAttemptCompletionTool()

	_, err := tool.Execute(context.Background(), json.RawMessage(`{invalid`), testContext())
	if err == nil {
		t.Fatal("expected error for invalid JSON input")
	}
}
