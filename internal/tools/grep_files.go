package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

const (
	grepDefaultLimit = 100
	grepMaxLimit     = 2000
)

// GrepFilesTool finds files whose contents match a regex, newest first.
// It shells out to ripgrep, so the worker host needs rg on PATH.
type GrepFilesTool struct{}

func NewGrepFilesTool() *GrepFilesTool { return &GrepFilesTool{} }

func (t *GrepFilesTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        "grep_files",
		Description: "Find files whose contents match a regular expression. Returns matching file paths, most recently modified first.",
		Parameters: []ToolParameter{
			{
				Name:        "pattern",
				Type:        "string",
				Description: "The regular expression to search for",
				Required:    true,
			},
			{
				Name:        "path",
				Type:        "string",
				Description: "Directory or file to search (optional, defaults to the working directory)",
			},
			{
				Name:        "include",
				Type:        "string",
				Description: "Glob filter for file names, e.g. \"*.go\" (optional)",
			},
			{
				Name:        "limit",
				Type:        "integer",
				Description: "Maximum number of paths to return (optional, default 100)",
			},
		},
	}
}

type grepFilesArgs struct {
	Pattern string `json:"pattern"`
	Path    string `json:"path"`
	Include string `json:"include"`
	Limit   int    `json:"limit"`
}

func (t *GrepFilesTool) Run(ctx context.Context, call ToolCall) (ToolResult, error) {
	start := time.Now()

	var args grepFilesArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return failedResult(fmt.Sprintf("error: invalid grep_files arguments: %v", err), start), nil
	}
	args.Pattern = strings.TrimSpace(args.Pattern)
	if args.Pattern == "" {
		return failedResult("error: pattern cannot be empty", start), nil
	}
	if args.Limit <= 0 {
		args.Limit = grepDefaultLimit
	}
	if args.Limit > grepMaxLimit {
		args.Limit = grepMaxLimit
	}

	searchPath := strings.TrimSpace(args.Path)
	if searchPath == "" {
		searchPath = call.Cwd
	}
	if searchPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return failedResult(fmt.Sprintf("error: %v", err), start), nil
		}
		searchPath = wd
	}
	if _, err := os.Stat(searchPath); err != nil {
		return failedResult(fmt.Sprintf("error: %v", err), start), nil
	}

	paths, err := ripgrepFiles(ctx, args.Pattern, args.Include, searchPath, args.Limit)
	if err != nil {
		return failedResult(fmt.Sprintf("error: %v", err), start), nil
	}
	if len(paths) == 0 {
		return ToolResult{
			Output:          "no matches found",
			ExitCode:        1,
			DurationSeconds: time.Since(start).Seconds(),
		}, nil
	}

	return ToolResult{
		Output:          strings.Join(paths, "\n") + "\n",
		ExitCode:        0,
		DurationSeconds: time.Since(start).Seconds(),
	}, nil
}

// ripgrepFiles runs rg --files-with-matches. Exit code 1 means no matches;
// anything above that is a real failure.
func ripgrepFiles(ctx context.Context, pattern, include, searchPath string, limit int) ([]string, error) {
	rgArgs := []string{
		"--files-with-matches",
		"--sortr=modified",
		"--regexp", pattern,
		"--no-messages",
	}
	if include != "" {
		rgArgs = append(rgArgs, "--glob", include)
	}
	rgArgs = append(rgArgs, "--", searchPath)

	cmd := exec.CommandContext(ctx, "rg", rgArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if exitErr.ExitCode() == 1 {
				return nil, nil
			}
			return nil, fmt.Errorf("rg failed: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, fmt.Errorf("could not launch rg (is ripgrep installed?): %v", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		if line == "" {
			continue
		}
		paths = append(paths, line)
		if len(paths) == limit {
			break
		}
	}
	return paths, nil
}
