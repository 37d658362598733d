package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	listDirDefaultLimit = 25
	listDirDefaultDepth = 2
	listDirIndent       = 2
)

// ListDirTool lists directory entries breadth-first up to a depth, sorted
// and paginated. Directories get a trailing "/", symlinks "@".
type ListDirTool struct{}

func NewListDirTool() *ListDirTool { return &ListDirTool{} }

func (t *ListDirTool) Spec() ToolSpec {
	return ToolSpec{
		Name:        "list_dir",
		Description: "List entries of a directory, recursing up to `depth` levels. Entries are sorted; directories end with '/'.",
		Parameters: []ToolParameter{
			{
				Name:        "path",
				Type:        "string",
				Description: "The directory to list",
				Required:    true,
			},
			{
				Name:        "offset",
				Type:        "integer",
				Description: "1-indexed first entry to return (optional)",
			},
			{
				Name:        "limit",
				Type:        "integer",
				Description: "Maximum number of entries to return (optional, default 25)",
			},
			{
				Name:        "depth",
				Type:        "integer",
				Description: "How many directory levels to descend (optional, default 2)",
			},
		},
	}
}

type listDirArgs struct {
	Path   string `json:"path"`
	Offset int    `json:"offset"`
	Limit  int    `json:"limit"`
	Depth  int    `json:"depth"`
}

type dirEntry struct {
	sortKey string // relative path, used for the global ordering
	name    string
	depth   int
	mode    os.FileMode
	isDir   bool
}

func (t *ListDirTool) Run(ctx context.Context, call ToolCall) (ToolResult, error) {
	start := time.Now()

	var args listDirArgs
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return failedResult(fmt.Sprintf("error: invalid list_dir arguments: %v", err), start), nil
	}
	if args.Path == "" {
		return failedResult("error: path cannot be empty", start), nil
	}
	if args.Offset == 0 {
		args.Offset = 1
	}
	if args.Offset < 1 {
		return failedResult("error: offset is 1-indexed", start), nil
	}
	if args.Limit == 0 {
		args.Limit = listDirDefaultLimit
	}
	if args.Limit < 1 {
		return failedResult("error: limit must be positive", start), nil
	}
	if args.Depth == 0 {
		args.Depth = listDirDefaultDepth
	}
	if args.Depth < 1 {
		return failedResult("error: depth must be positive", start), nil
	}

	path := args.Path
	if !filepath.IsAbs(path) && call.Cwd != "" {
		path = filepath.Join(call.Cwd, path)
	}

	entries, err := collectDirEntries(ctx, path, args.Depth)
	if err != nil {
		return failedResult(fmt.Sprintf("error: %v", err), start), nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].sortKey < entries[j].sortKey })

	first := args.Offset - 1
	if first > len(entries) {
		return failedResult(fmt.Sprintf("error: offset %d exceeds %d entries", args.Offset, len(entries)), start), nil
	}

	var out strings.Builder
	fmt.Fprintf(&out, "%s:\n", path)
	end := first + args.Limit
	if end > len(entries) {
		end = len(entries)
	}
	for _, e := range entries[first:end] {
		indent := strings.Repeat(" ", e.depth*listDirIndent)
		suffix := ""
		switch {
		case e.isDir:
			suffix = "/"
		case e.mode&os.ModeSymlink != 0:
			suffix = "@"
		}
		fmt.Fprintf(&out, "%s%s%s\n", indent, e.name, suffix)
	}
	if end < len(entries) {
		fmt.Fprintf(&out, "... (%d more entries; use offset to page)\n", len(entries)-end)
	}

	return ToolResult{Output: out.String(), ExitCode: 0, DurationSeconds: time.Since(start).Seconds()}, nil
}

// collectDirEntries walks breadth-first so shallow structure shows up even
// when a deep subtree would otherwise dominate the page.
func collectDirEntries(ctx context.Context, root string, depth int) ([]dirEntry, error) {
	type frame struct {
		abs    string
		rel    string
		remain int
	}
	queue := []frame{{abs: root, remain: depth}}

	var entries []dirEntry
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f := queue[0]
		queue = queue[1:]

		listed, err := os.ReadDir(f.abs)
		if err != nil {
			if f.rel == "" {
				return nil, err
			}
			continue // unreadable subdirectory, skip it
		}

		for _, de := range listed {
			rel := de.Name()
			if f.rel != "" {
				rel = f.rel + "/" + de.Name()
			}
			entries = append(entries, dirEntry{
				sortKey: rel,
				name:    de.Name(),
				depth:   strings.Count(rel, "/"),
				mode:    de.Type(),
				isDir:   de.IsDir(),
			})
			if de.IsDir() && f.remain > 1 {
				queue = append(queue, frame{
					abs:    filepath.Join(f.abs, de.Name()),
					rel:    rel,
					remain: f.remain - 1,
				})
			}
		}
	}
	return entries, nil
}
