package tools

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requireRipgrep(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("rg"); err != nil {
		t.Skip("ripgrep not installed")
	}
}

func runGrepFiles(t *testing.T, arguments string) ToolResult {
	t.Helper()
	result, err := NewGrepFilesTool().Run(context.Background(), ToolCall{
		CallID:    "call-1",
		Name:      "grep_files",
		Arguments: arguments,
	})
	require.NoError(t, err)
	return result
}

func TestGrepFilesFindsMatches(t *testing.T) {
	requireRipgrep(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "hit.go"), []byte("package magicmarker\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "miss.go"), []byte("package other\n"), 0o644))

	result := runGrepFiles(t, fmt.Sprintf(`{"pattern": "magicmarker", "path": %q}`, root))
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "hit.go")
	assert.NotContains(t, result.Output, "miss.go")
}

func TestGrepFilesIncludeGlob(t *testing.T) {
	requireRipgrep(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "code.go"), []byte("magicmarker\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("magicmarker\n"), 0o644))

	result := runGrepFiles(t, fmt.Sprintf(`{"pattern": "magicmarker", "path": %q, "include": "*.go"}`, root))
	assert.Equal(t, 0, result.ExitCode)
	assert.Contains(t, result.Output, "code.go")
	assert.NotContains(t, result.Output, "notes.txt")
}

func TestGrepFilesNoMatches(t *testing.T) {
	requireRipgrep(t)
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("nothing here\n"), 0o644))

	result := runGrepFiles(t, fmt.Sprintf(`{"pattern": "zzz_absent", "path": %q}`, root))
	assert.Equal(t, 1, result.ExitCode)
	assert.Equal(t, "no matches found", result.Output)
}

func TestGrepFilesLimit(t *testing.T) {
	requireRipgrep(t)
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		name := filepath.Join(root, fmt.Sprintf("f%d.txt", i))
		require.NoError(t, os.WriteFile(name, []byte("magicmarker\n"), 0o644))
	}

	result := runGrepFiles(t, fmt.Sprintf(`{"pattern": "magicmarker", "path": %q, "limit": 2}`, root))
	assert.Equal(t, 0, result.ExitCode)
	lines := 0
	for _, c := range result.Output {
		if c == '\n' {
			lines++
		}
	}
	assert.Equal(t, 2, lines)
}

func TestGrepFilesMissingPathFails(t *testing.T) {
	result := runGrepFiles(t, `{"pattern": "x", "path": "/does/not/exist"}`)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Output, "error:")
}

func TestGrepFilesEmptyPatternFails(t *testing.T) {
	result := runGrepFiles(t, `{"pattern": "  "}`)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Output, "pattern cannot be empty")
}
