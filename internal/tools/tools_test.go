package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrySpecsAreSorted(t *testing.T) {
	r := DefaultRegistry()
	specs := r.Specs()
	require.Len(t, specs, 5)
	assert.Equal(t, "grep_files", specs[0].Name)
	assert.Equal(t, "http_fetch", specs[1].Name)
	assert.Equal(t, "list_dir", specs[2].Name)
	assert.Equal(t, "read_file", specs[3].Name)
	assert.Equal(t, "shell", specs[4].Name)
}

func TestRegistryDispatchUnknownTool(t *testing.T) {
	r := DefaultRegistry()
	result, err := r.Dispatch(context.Background(), ToolCall{
		CallID:    "call-1",
		Name:      "no_such_tool",
		Arguments: "{}",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.ExitCode)
	assert.Contains(t, result.Output, "tool not found: no_such_tool")
}

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()
	h, ok := r.Lookup("shell")
	require.True(t, ok)
	assert.Equal(t, "shell", h.Spec().Name)

	_, ok = r.Lookup("bogus")
	assert.False(t, ok)
}
