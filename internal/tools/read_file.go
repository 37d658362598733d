package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// maxLineLength truncates pathological single lines in read_file output.
const maxLineLength = 2000

// ReadFileTool returns file contents with line numbers, with optional
// offset/limit windowing for large files.
type ReadFileTool struct{}

func NewReadFileTool() *ReadFileTool { return &ReadFileTool{} }

func (t *ReadFileTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        "read_file",
		Description: "Read the contents of a file. Returns the file content with line numbers.",
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "The path to the file to read",
				Required:    true,
			},
			{
				Name:        "offset",
				Type:        "integer",
				Description: "Starting line number (0-indexed, optional)",
			},
			{
				Name:        "limit",
				Type:        "integer",
				Description: "Maximum number of lines to read (optional)",
			},
		},
	}
}

type readFileArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
}

func (t *ReadFileTool) Run(ctx context.Context, call ToolCall) (ToolResult, error) {
	start := time.Now()

	var args readFileArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return failedResult(fmt.Sprintf("error: invalid read_file arguments: %v", err), start), nil
	}
	if args.Path == "" {
		return failedResult("error: path cannot be empty", start), nil
	}

	path := args.Path
	if !filepath.IsAbs(path) && call.Cwd != "" {
		path = filepath.Join(call.Cwd, path)
	}

	file, err := os.Open(path)
	if err != nil {
		return failedResult(fmt.Sprintf("error: %v", err), start), nil
	}
	defer file.Close()

	var out strings.Builder
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), MaxOutputBytes)

	lineNum := 0
	for lineNum < args.Offset && scanner.Scan() {
		lineNum++
	}

	read := 0
	for scanner.Scan() {
		if args.Limit > 0 && read >= args.Limit {
			break
		}
		if out.Len() >= MaxOutputBytes {
			out.WriteString("... (output limit reached)\n")
			break
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength] + "... (truncated)"
		}
		fmt.Fprintf(&out, "%6d\t%s\n", lineNum+1, line)
		lineNum++
		read++
	}
	if err := scanner.Err(); err != nil {
		return failedResult(fmt.Sprintf("error: reading file: %v", err), start), nil
	}

	content := out.String()
	if content == "" {
		if args.Offset > 0 {
			content = fmt.Sprintf("(file has fewer than %d lines)", args.Offset)
		} else {
			content = "(empty file)"
		}
	}
	return ToolResult{Output: content, ExitCode: 0, DurationSeconds: time.Since(start).Seconds()}, nil
}
