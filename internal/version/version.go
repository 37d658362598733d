// Package version provides build-time version information.
//
// Set at build time via:
//
//	go build -ldflags "-X github.com/mfateev/codex-temporal/internal/version.GitCommit=$(git rev-parse --short HEAD)"
package version

// Name identifies this program to peers (MCP servers, API user agents).
const Name = "codex-temporal"

// Version is the release version, set at build time via ldflags.
var Version = "0.1.0"

// GitCommit is the short git commit hash, set at build time via ldflags.
var GitCommit = "dev"
