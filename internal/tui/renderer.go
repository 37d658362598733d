package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/mfateev/codex-temporal/internal/models"
)

// EventRenderer renders workflow events as styled strings for the viewport.
type EventRenderer struct {
	width      int
	noColor    bool
	noMarkdown bool
	styles     Styles
	mdRenderer *glamour.TermRenderer
}

// NewEventRenderer creates a renderer for the event stream.
func NewEventRenderer(width int, noColor, noMarkdown bool, styles Styles) *EventRenderer {
	r := &EventRenderer{
		width:      width,
		noColor:    noColor,
		noMarkdown: noMarkdown,
		styles:     styles,
	}
	if !noMarkdown {
		w := width
		if w <= 0 {
			w = 80
			if tw, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && tw > 0 {
				w = tw
			}
		}
		md, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(w),
		)
		if err == nil {
			r.mdRenderer = md
		}
	}
	return r
}

// RenderTurnStarted renders a turn separator.
func (r *EventRenderer) RenderTurnStarted(msg models.EventMsg) string {
	line := fmt.Sprintf("── %s ──", msg.TurnID)
	return r.styles.TurnSeparator.Render(line) + "\n"
}

// RenderAgentMessage renders an assistant message with optional markdown.
func (r *EventRenderer) RenderAgentMessage(text string) string {
	if text == "" {
		return ""
	}
	if r.mdRenderer != nil {
		rendered, err := r.mdRenderer.Render(text)
		if err == nil {
			return rendered
		}
	}
	return "\n" + text + "\n\n"
}

// RenderApprovalRequest renders the details of a pending exec approval. The
// picker supplies the answer options, so this is context only.
func (r *EventRenderer) RenderApprovalRequest(msg models.EventMsg) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(r.styles.ApprovalHeader.Render("Approval required") + "\n")
	b.WriteString("  " + r.styles.ApprovalCommand.Render("Command:") + " " + shellCommandLine(msg.Command) + "\n")
	if msg.Cwd != "" {
		b.WriteString("  " + r.styles.ApprovalCommand.Render("Directory:") + " " + msg.Cwd + "\n")
	}
	if msg.Reason != "" {
		b.WriteString("  " + r.styles.ApprovalReason.Render("Reason:") + " " + msg.Reason + "\n")
	}
	b.WriteString("\n")
	return b.String()
}

// RenderError renders an error event.
func (r *EventRenderer) RenderError(message string) string {
	return r.styles.ErrorText.Render("Error: "+message) + "\n"
}

// RenderSystemMessage renders a session-level notice.
func (r *EventRenderer) RenderSystemMessage(text string) string {
	return r.styles.SystemMessage.Render(text) + "\n"
}

// shellCommandLine joins a command vector into a display string, quoting
// arguments that would be ambiguous unquoted.
func shellCommandLine(command []string) string {
	parts := make([]string, len(command))
	for i, arg := range command {
		if arg == "" || strings.ContainsAny(arg, " \t\n\"'") {
			parts[i] = strconv.Quote(arg)
		} else {
			parts[i] = arg
		}
	}
	return strings.Join(parts, " ")
}
