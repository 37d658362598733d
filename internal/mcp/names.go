package mcp

import (
	"crypto/sha1"
	"fmt"
	"log"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// ToolNamePrefix marks a tool as MCP-backed.
	ToolNamePrefix = "mcp"

	// ToolNameDelimiter separates the prefix, server name, and tool name.
	ToolNameDelimiter = "__"

	// MaxToolNameLength is the longest qualified name the model APIs accept.
	// OpenAI requires tool names to match ^[a-zA-Z0-9_-]+$ and be <= 64 chars.
	MaxToolNameLength = 64
)

// ToolInfo pairs a discovered tool with the server and tool names needed to
// dispatch a call back to it. The qualified name handed to the model is
// sanitized, so the originals must be kept around.
type ToolInfo struct {
	ServerName string
	ToolName   string
	Tool       *gomcp.Tool
}

// IsQualifiedName reports whether a tool name routes to an MCP server.
func IsQualifiedName(name string) bool {
	return strings.HasPrefix(name, ToolNamePrefix+ToolNameDelimiter)
}

// SanitizeName replaces characters outside [a-zA-Z0-9_-] with underscores so
// the result is acceptable as a model-facing tool name. An empty input comes
// back as "_".
func SanitizeName(name string) string {
	sanitized := make([]byte, 0, len(name))
	for i := 0; i < len(name); i++ {
		c := name[i]
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			sanitized = append(sanitized, c)
		} else {
			sanitized = append(sanitized, '_')
		}
	}
	if len(sanitized) == 0 {
		return "_"
	}
	return string(sanitized)
}

func sha1Hex(s string) string {
	h := sha1.New()
	h.Write([]byte(s))
	return fmt.Sprintf("%x", h.Sum(nil))
}

// QualifyToolName builds the model-facing name mcp__<server>__<tool>. Names
// longer than MaxToolNameLength are truncated and given a SHA1 suffix of the
// raw name, which keeps them unique and stable across sessions.
func QualifyToolName(serverName, toolName string) string {
	raw := ToolNamePrefix + ToolNameDelimiter + serverName + ToolNameDelimiter + toolName
	qualified := SanitizeName(raw)

	if len(qualified) > MaxToolNameLength {
		hash := sha1Hex(raw)
		qualified = qualified[:MaxToolNameLength-len(hash)] + hash
	}

	return qualified
}

// QualifyTools qualifies every tool name, deduplicates, and returns a map
// from qualified name to ToolInfo. Duplicates are detected twice: on the raw
// name (two servers listing the same tool twice) and on the sanitized name
// (distinct raw names that collapse to the same sanitized form). Either kind
// is skipped with a warning rather than silently shadowed.
func QualifyTools(toolInfos []ToolInfo) map[string]ToolInfo {
	usedNames := make(map[string]bool)
	seenRawNames := make(map[string]bool)
	qualified := make(map[string]ToolInfo)

	for _, info := range toolInfos {
		rawName := ToolNamePrefix + ToolNameDelimiter + info.ServerName + ToolNameDelimiter + info.ToolName

		if seenRawNames[rawName] {
			log.Printf("mcp: skipping duplicated tool %s", rawName)
			continue
		}
		seenRawNames[rawName] = true

		qualifiedName := SanitizeName(rawName)
		if len(qualifiedName) > MaxToolNameLength {
			hash := sha1Hex(rawName)
			qualifiedName = qualifiedName[:MaxToolNameLength-len(hash)] + hash
		}

		if usedNames[qualifiedName] {
			log.Printf("mcp: skipping duplicated tool %s", qualifiedName)
			continue
		}

		usedNames[qualifiedName] = true
		qualified[qualifiedName] = info
	}

	return qualified
}

// FilterTools drops the tools the filter rejects.
func FilterTools(toolInfos []ToolInfo, filter ToolFilter) []ToolInfo {
	filtered := make([]ToolInfo, 0, len(toolInfos))
	for _, info := range toolInfos {
		if filter.Allows(info.ToolName) {
			filtered = append(filtered, info)
		}
	}
	return filtered
}
