package command_safety

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShellScriptCommandsSplitsOperators(t *testing.T) {
	got := ShellScriptCommands([]string{"bash", "-lc", "ls -1 && pwd || echo done ; wc -l | head"})
	want := [][]string{
		{"ls", "-1"},
		{"pwd"},
		{"echo", "done"},
		{"wc", "-l"},
		{"head"},
	}
	assert.Equal(t, want, got)
}

func TestShellScriptCommandsHandlesQuoting(t *testing.T) {
	got := ShellScriptCommands([]string{"bash", "-lc", `grep -R "hello world" -n`})
	assert.Equal(t, [][]string{{"grep", "-R", "hello world", "-n"}}, got)

	got = ShellScriptCommands([]string{"bash", "-lc", `rg -g"*.py" 'def main'`})
	assert.Equal(t, [][]string{{"rg", "-g*.py", "def main"}}, got)

	got = ShellScriptCommands([]string{"bash", "-lc", `echo "/usr"'/'"local"/bin`})
	assert.Equal(t, [][]string{{"echo", "/usr/local/bin"}}, got)
}

func TestShellScriptCommandsSkipsComments(t *testing.T) {
	got := ShellScriptCommands([]string{"bash", "-lc", "ls # trailing comment\npwd"})
	assert.Equal(t, [][]string{{"ls"}, {"pwd"}}, got)
}

func TestShellScriptCommandsRejectsUnsafeConstructs(t *testing.T) {
	rejected := []string{
		"ls > out.txt",
		"ls < in.txt",
		"(ls)",
		"ls `pwd`",
		"ls $(pwd)",
		"echo $HOME",
		`echo "$HOME"`,
		"ls &",
		"FOO=bar ls",
		"ls &&",
		"&& ls",
		"| wc",
		"echo 'unterminated",
		`echo "unterminated`,
		"",
	}
	for _, script := range rejected {
		assert.Nil(t, ShellScriptCommands([]string{"bash", "-lc", script}),
			"expected script %q to be rejected", script)
	}
}

func TestShellScriptCommandsRequiresShellShape(t *testing.T) {
	assert.Nil(t, ShellScriptCommands([]string{"ls"}))
	assert.Nil(t, ShellScriptCommands([]string{"bash", "-lc"}))
	assert.Nil(t, ShellScriptCommands([]string{"bash", "-x", "ls"}))
	assert.Nil(t, ShellScriptCommands([]string{"python", "-c", "print(1)"}))
	assert.Nil(t, ShellScriptCommands([]string{"bash", "-lc", "ls", "extra"}))

	assert.NotNil(t, ShellScriptCommands([]string{"/bin/bash", "-c", "ls"}))
	assert.NotNil(t, ShellScriptCommands([]string{"sh", "-c", "ls"}))
	assert.NotNil(t, ShellScriptCommands([]string{"zsh", "-lc", "ls"}))
}

func TestShellScriptCommandsSingleQuotesAreLiteral(t *testing.T) {
	got := ShellScriptCommands([]string{"bash", "-lc", `echo '$HOME and ` + "`pwd`'"})
	assert.Equal(t, [][]string{{"echo", "$HOME and `pwd`"}}, got)
}
