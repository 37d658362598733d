package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"
)

// DefaultShellTimeout bounds a shell invocation when the model does not pass
// timeout_ms. The activity's start-to-close timeout is the hard ceiling.
const DefaultShellTimeout = 10 * time.Second

// ShellTool runs a command vector as a child process.
type ShellTool struct{}

func NewShellTool() *ShellTool { return &ShellTool{} }

func (t *ShellTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        "shell",
		Description: "Execute a shell command and return its output. The command is an argument vector, e.g. [\"ls\", \"-la\"]. Use [\"bash\", \"-lc\", \"<script>\"] for pipelines or shell syntax.",
		Parameters: []ToolParameter{
			{
				Name:        "command",
				Type:        "array",
				Items:       "string",
				Description: "The command and its arguments, executed directly without a shell",
				Required:    true,
			},
			{
				Name:        "timeout_ms",
				Type:        "number",
				Description: "Timeout in milliseconds, default 10000. Use longer timeouts for builds, installs, or test suites.",
			},
		},
	}
}

type shellArgs struct {
	Command   []string `json:"command"`
	TimeoutMs *int64   `json:"timeout_ms"`
}

// Run executes the command, waits for it to finish, and composes
// stdout/stderr into one output string. A nonzero exit or a bad argument
// shape is reported through ExitCode; the error return fires only for
// cancellation.
func (t *ShellTool) Run(ctx context.Context, call ToolCall) (ToolResult, error) {
	start := time.Now()

	var args shellArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return failedResult(fmt.Sprintf("error: invalid shell arguments: %v", err), start), nil
	}
	if len(args.Command) == 0 {
		return failedResult("error: no command provided", start), nil
	}

	timeout := DefaultShellTimeout
	if args.TimeoutMs != nil && *args.TimeoutMs > 0 {
		timeout = time.Duration(*args.TimeoutMs) * time.Millisecond
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, args.Command[0], args.Command[1:]...)
	if call.Cwd != "" {
		cmd.Dir = call.Cwd
	}
	var stdout, stderr capturedStream
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() != nil {
		// The activity was cancelled; abandon whatever the command wrote.
		return ToolResult{}, ctx.Err()
	}

	elapsed := time.Since(start).Seconds()
	output := ComposeOutput(stdout.Bytes(), stderr.Bytes())

	switch {
	case err == nil:
		return ToolResult{Output: output, ExitCode: 0, DurationSeconds: elapsed}, nil
	case runCtx.Err() == context.DeadlineExceeded:
		return ToolResult{
			Output:          output + fmt.Sprintf("\nerror: command timed out after %s", timeout),
			ExitCode:        124,
			DurationSeconds: elapsed,
		}, nil
	default:
		exitCode := 1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else if output == "" {
			// Spawn-level failure (command not found, permission denied).
			output = fmt.Sprintf("error: %v", err)
		}
		return ToolResult{Output: output, ExitCode: exitCode, DurationSeconds: elapsed}, nil
	}
}

func failedResult(msg string, start time.Time) ToolResult {
	return ToolResult{Output: msg, ExitCode: 1, DurationSeconds: time.Since(start).Seconds()}
}

// capturedStream buffers a stream up to MaxOutputBytes and drops the rest,
// so a runaway command cannot exhaust memory while it runs.
type capturedStream struct {
	buf []byte
}

func (s *capturedStream) Write(p []byte) (int, error) {
	n := len(p)
	if room := MaxOutputBytes - len(s.buf); room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		s.buf = append(s.buf, p...)
	}
	return n, nil
}

func (s *capturedStream) Bytes() []byte { return s.buf }
