package models

// ApprovalPolicy controls when tool executions require user approval.
type ApprovalPolicy string

const (
	// ApprovalNever auto-approves every tool call.
	ApprovalNever ApprovalPolicy = "never"
	// ApprovalUnlessTrusted auto-approves only known-safe read-only commands.
	ApprovalUnlessTrusted ApprovalPolicy = "untrusted"
	// ApprovalOnRequest prompts for every tool call. This is the default.
	ApprovalOnRequest ApprovalPolicy = "on-request"
	// ApprovalOnFailure prompts for every tool call.
	ApprovalOnFailure ApprovalPolicy = "on-failure"
)

// ParseApprovalPolicy maps a policy string to an ApprovalPolicy. Unknown or
// empty values fall back to on-request.
func ParseApprovalPolicy(s string) ApprovalPolicy {
	switch s {
	case "never":
		return ApprovalNever
	case "untrusted":
		return ApprovalUnlessTrusted
	case "on-failure":
		return ApprovalOnFailure
	default:
		return ApprovalOnRequest
	}
}

// WebSearchMode selects whether the model may use the provider's native web
// search tool.
type WebSearchMode string

const (
	WebSearchDisabled WebSearchMode = ""
	WebSearchCached   WebSearchMode = "cached"
	WebSearchLive     WebSearchMode = "live"
)

// ParseWebSearchMode maps a mode string to a WebSearchMode. Anything other
// than "live" or "cached" disables web search.
func ParseWebSearchMode(s string) WebSearchMode {
	switch s {
	case "live":
		return WebSearchLive
	case "cached":
		return WebSearchCached
	default:
		return WebSearchDisabled
	}
}

// Enabled reports whether the mode requests web search at all.
func (m WebSearchMode) Enabled() bool {
	return m == WebSearchCached || m == WebSearchLive
}
