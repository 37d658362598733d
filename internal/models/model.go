package models

// ModelInfo identifies the model a conversation runs on. ContextWindow is
// advisory; it flows into turn_started events so clients can display usage.
type ModelInfo struct {
	Slug          string `json:"slug"`
	ContextWindow *int   `json:"context_window,omitempty"`
}

// contextWindows holds the context sizes of commonly used models. Unknown
// slugs simply get no window; nothing downstream requires one.
var contextWindows = map[string]int{
	"gpt-4o":            128_000,
	"gpt-4o-mini":       128_000,
	"gpt-4.1":           1_047_576,
	"gpt-4.1-mini":      1_047_576,
	"gpt-5":             400_000,
	"gpt-5-mini":        400_000,
	"o3":                200_000,
	"o4-mini":           200_000,
	"claude-sonnet-4-5": 200_000,
	"claude-opus-4-1":   200_000,
	"claude-haiku-4-5":  200_000,
}

// NewModelInfo builds a ModelInfo for slug, filling the context window when
// the model is known.
func NewModelInfo(slug string) ModelInfo {
	info := ModelInfo{Slug: slug}
	if window, ok := contextWindows[slug]; ok {
		w := window
		info.ContextWindow = &w
	}
	return info
}
