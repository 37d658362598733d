package tools

// MaxOutputBytes caps how much tool output is retained. A runaway command
// cannot blow up worker memory or the workflow history payload.
const MaxOutputBytes = 1024 * 1024 // 1 MiB

// stderrMarker separates stdout from stderr in composed output.
const stderrMarker = "\n--- stderr ---\n"

// LimitOutput truncates output to MaxOutputBytes and reports whether it did.
func LimitOutput(output []byte) ([]byte, bool) {
	if len(output) <= MaxOutputBytes {
		return output, false
	}
	return output[:MaxOutputBytes], true
}

// ComposeOutput joins stdout and stderr into the single string sent back to
// the model: stdout alone when stderr is empty, otherwise stdout, a marker
// line, then stderr. When the streams together exceed MaxOutputBytes,
// stdout is budgeted a third and stderr the rest, with unused stderr budget
// handed back to stdout. Stderr gets the bigger share since failures matter
// more than bulk output.
func ComposeOutput(stdout, stderr []byte) string {
	stdout, stderr = capStreams(stdout, stderr)
	if len(stderr) == 0 {
		return string(stdout)
	}
	return string(stdout) + stderrMarker + string(stderr)
}

func capStreams(stdout, stderr []byte) ([]byte, []byte) {
	if len(stdout)+len(stderr) <= MaxOutputBytes {
		return stdout, stderr
	}

	stdoutTake := len(stdout)
	if stdoutTake > MaxOutputBytes/3 {
		stdoutTake = MaxOutputBytes / 3
	}
	stderrTake := len(stderr)
	if remaining := MaxOutputBytes - stdoutTake; stderrTake > remaining {
		stderrTake = remaining
	}
	// Hand unused stderr budget back to stdout.
	if spare := MaxOutputBytes - stdoutTake - stderrTake; spare > 0 {
		extra := len(stdout) - stdoutTake
		if extra > spare {
			extra = spare
		}
		stdoutTake += extra
	}
	return stdout[:stdoutTake], stderr[:stderrTake]
}
