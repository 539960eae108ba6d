package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"syscall"
	"time"

	einotool "github.com/cloudwego/eino/components/tool"
	"github.com/whirlun/emigo-go/internal/permission"
)

const (
	DefaultCommandTimeout = 120 * time.Second
	MaxCommandTimeout     = 10 * time.Minute
	MaxOutputLength       = 30000
	SigkillTimeout        = 200 * time.Millisecond
)

const executeCommandDescription = `Request to execute a CLI command.

Usage:
- Command is required
- Optional timeout in milliseconds (max 600000)
- Output is captured from stdout and stderr, combined
- The command runs in its own process group so timed-out or killed
  subprocesses don't leak`

// ExecuteCommandTool runs a shell command in the session's working
// directory, behind the orchestrator's approval policy.
type ExecuteCommandTool struct {
	workDir     string
	shell       string
	permChecker *permission.Checker
	policy      permission.Policy
}

// ExecuteCommandInput is the input for the execute_command tool.
type ExecuteCommandInput struct {
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"` // milliseconds
}

// NewExecuteCommandTool creates a new execute_command tool.
func NewExecuteCommandTool(workDir string, permChecker *permission.Checker, policy permission.Policy) *ExecuteCommandTool {
	return &ExecuteCommandTool{
		workDir:     workDir,
		shell:       detectShell(),
		permChecker: permChecker,
		policy:      policy,
	}
}

func detectShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		if s != "/bin/fish" && s != "/usr/bin/fish" &&
			s != "/bin/nu" && s != "/usr/bin/nu" {
			return s
		}
	}

	if runtime.GOOS == "darwin" {
		return "/bin/zsh"
	}
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec
		}
		return "cmd.exe"
	}

	if bash, err := exec.LookPath("bash"); err == nil {
		return bash
	}

	return "/bin/sh"
}

func (t *ExecuteCommandTool) ID() string          { return "execute_command" }
func (t *ExecuteCommandTool) Description() string { return executeCommandDescription }

func (t *ExecuteCommandTool) Parameters() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"command": {
				"type": "string",
				"description": "The CLI command to execute"
			},
			"timeout": {
				"type": "integer",
				"description": "Optional timeout in milliseconds (max 600000)"
			}
		},
		"required": ["command"]
	}`)
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
	var params ExecuteCommandInput
	if err := json.Unmarshal(input, &params); err != nil {
		return nil, fmt.Errorf("invalid input: %w", err)
	}
	if params.Command == "" {
		return nil, fmt.Errorf("missing required parameter 'command'")
	}

	if t.permChecker != nil && toolCtx != nil {
		action := t.policy.ActionFor(t.ID())
		req := permission.Request{
			Type:      permission.PermExecuteCommand,
			SessionID: toolCtx.SessionID,
			CallID:    toolCtx.CallID,
			Title:     params.Command,
			Metadata: map[string]any{
				"command": params.Command,
			},
		}
		if err := t.permChecker.Check(ctx, req, action); err != nil {
			return nil, err
		}
	}

	timeout := DefaultCommandTimeout
	if params.Timeout > 0 {
		timeout = time.Duration(params.Timeout) * time.Millisecond
		if timeout > MaxCommandTimeout {
			timeout = MaxCommandTimeout
		}
	}

	cmdCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(cmdCtx, t.shell, "/c", params.Command)
	} else {
		cmd = exec.CommandContext(cmdCtx, t.shell, "-c", params.Command)
	}

	if toolCtx != nil && toolCtx.WorkDir != "" {
		cmd.Dir = toolCtx.WorkDir
	} else if t.workDir != "" {
		cmd.Dir = t.workDir
	}
	cmd.Env = os.Environ()

	if runtime.GOOS != "windows" {
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	}

	output, err := cmd.CombinedOutput()
	timedOut := cmdCtx.Err() == context.DeadlineExceeded
	if timedOut {
		t.killProcess(cmd)
	}

	result := string(output)
	if len(result) > MaxOutputLength {
		result = result[:MaxOutputLength] + "\n\n(Output truncated)"
	}
	if timedOut {
		result += fmt.Sprintf("\n\n(Command timed out after %v)", timeout)
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil && !timedOut {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			result += fmt.Sprintf("\n\nError: %v", err)
		}
	}

	return &Result{
		Title:  params.Command,
		Output: fmt.Sprintf("Command output:\n%s", result),
		Metadata: map[string]any{
			"command": params.Command,
			"output":  result,
			"exit":    exitCode,
		},
	}, nil
}

func (t *ExecuteCommandTool) killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	pid := cmd.Process.Pid

	if runtime.GOOS == "windows" {
		_ = exec.Command("taskkill", "/pid", fmt.Sprint(pid), "/f", "/t").Run()
		return
	}

	_ = syscall.Kill(-pid, syscall.SIGTERM)
	time.Sleep(SigkillTimeout)
	if cmd.ProcessState == nil {
		_ = syscall.Kill(-pid, syscall.SIGKILL)
	}
}

func (t *ExecuteCommandTool) EinoTool() einotool.InvokableTool {
	return &einoToolWrapper{tool: t}
}
