// Package tui implements the interactive terminal client for codex-temporal.
// It renders the session event stream into a scrollback viewport and turns
// key presses into session operations; all agent state lives in the workflow.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mfateev/codex-temporal/internal/models"
	"github.com/mfateev/codex-temporal/internal/version"
)

// forceQuitWindow is how quickly a second Ctrl+C must follow the first to
// skip the graceful shutdown and exit immediately.
const forceQuitWindow = 2 * time.Second

// State represents the TUI state machine state.
type State int

const (
	StateStartup State = iota
	StateInput
	StateWorking
	StateApproval
	StateShutdown
)

// Config holds TUI configuration.
type Config struct {
	Prompt     string // Initial message, submitted on startup when non-empty
	Model      string // Model name shown in the status bar
	NoMarkdown bool
	NoColor    bool
	Inline     bool // Disable alt-screen mode
}

// Model is the bubbletea model for the interactive TUI.
type Model struct {
	config  Config
	session AgentSession
	keys    KeyMap
	styles  Styles

	state State

	// Sub-models
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	// Layout
	width  int
	height int
	ready  bool

	viewportContent string
	renderer        *EventRenderer

	// Status
	turnCount  int
	spinnerMsg string

	// Approval state
	pendingApproval *models.EventMsg
	picker          *approvalPicker
	autoApprove     bool

	// Event pump
	pumpCtx     context.Context
	pumpCancel  context.CancelFunc
	pumpRunning bool

	// Ctrl+C tracking
	lastInterruptTime time.Time

	err      error
	quitting bool
}

// NewModel creates a new bubbletea model over an agent session.
func NewModel(config Config, s AgentSession) *Model {
	styles := DefaultStyles()
	if config.NoColor {
		styles = NoColorStyles()
	}

	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = "❯ "
	ta.CharLimit = 0
	ta.SetHeight(1)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline.SetEnabled(false)

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	state := StateInput
	spinnerMsg := ""
	content := ""
	if config.Prompt != "" {
		state = StateStartup
		spinnerMsg = "Starting session..."
		content = styles.UserMessage.Render("> "+config.Prompt) + "\n"
	}

	pumpCtx, pumpCancel := context.WithCancel(context.Background())

	return &Model{
		config:          config,
		session:         s,
		keys:            DefaultKeyMap(),
		styles:          styles,
		state:           state,
		textarea:        ta,
		spinner:         sp,
		viewportContent: content,
		spinnerMsg:      spinnerMsg,
		pumpCtx:         pumpCtx,
		pumpCancel:      pumpCancel,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick}
	if m.config.Prompt != "" {
		cmds = append(cmds, submitTurnCmd(m.session, m.config.Prompt))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleWindowSize(msg)

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		if m.state != StateInput && m.state != StateApproval {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case SessionEventMsg:
		return m.handleSessionEvent(msg.Event)

	case SessionClosedMsg:
		m.quitting = true
		return m, tea.Quit

	case SessionErrorMsg:
		m.appendToViewport(fmt.Sprintf("Error: event stream failed: %v\n", msg.Err))
		m.err = msg.Err
		m.quitting = true
		return m, tea.Quit

	case TurnSubmittedMsg:
		if m.state != StateShutdown {
			m.state = StateWorking
			m.spinnerMsg = "Thinking..."
		}
		if !m.pumpRunning {
			m.pumpRunning = true
			cmds = append(cmds, m.waitForEvent())
		}

	case TurnErrorMsg:
		m.appendToViewport(fmt.Sprintf("Error: %v\n", msg.Err))
		m.state = StateInput
		cmds = append(cmds, m.focusTextarea())

	case ApprovalSubmittedMsg:
		m.pendingApproval = nil
		if m.state == StateApproval {
			m.state = StateWorking
			m.spinnerMsg = "Running tool..."
		}

	case ApprovalErrorMsg:
		m.appendToViewport(fmt.Sprintf("Error: %v\n", msg.Err))
		if m.pendingApproval != nil {
			// The workflow is still waiting; re-prompt.
			m.state = StateApproval
			m.picker = newApprovalPicker(m.styles)
			m.picker.SetWidth(m.width)
		}

	case ShutdownSubmittedMsg:
		if !m.pumpRunning {
			// No workflow was ever started, so nothing will emit
			// shutdown_complete. Exit now.
			m.quitting = true
			return m, tea.Quit
		}

	case ShutdownErrorMsg:
		m.appendToViewport(fmt.Sprintf("Error: %v\n", msg.Err))
	}

	return m, tea.Batch(cmds...)
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	if !m.ready {
		return m.styles.SpinnerMessage.Render(m.spinner.View() + " Starting...")
	}

	sep := m.styles.Separator.Render(strings.Repeat("─", m.width))

	var inputView string
	switch {
	case m.state == StateInput:
		inputView = m.textarea.View()
	case m.state == StateApproval && m.picker != nil:
		inputView = m.picker.View()
	default:
		inputView = m.spinner.View() + " " + m.styles.SpinnerMessage.Render(m.spinnerMsg)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewport.View(),
		sep,
		inputView,
		sep,
		m.renderStatusBar(),
	)
}

func (m *Model) renderStatusBar() string {
	var stateLabel string
	switch m.state {
	case StateStartup:
		stateLabel = "starting"
	case StateInput:
		stateLabel = "ready"
	case StateWorking:
		stateLabel = "working"
	case StateApproval:
		stateLabel = "approval"
	case StateShutdown:
		stateLabel = "shutting down"
	}

	left := fmt.Sprintf(" %s · turn %d · %s", m.config.Model, m.turnCount, stateLabel)
	right := fmt.Sprintf("%s · tui:%s ", m.session.WorkflowID(), version.GitCommit)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return m.styles.StatusBar.Render(left + strings.Repeat(" ", gap) + right)
}

func (m *Model) handleWindowSize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	// Reserve space: separator(1) + input area + separator(1) + status(1).
	vpHeight := m.height - m.inputAreaHeight() - 3
	if vpHeight < 1 {
		vpHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(m.width, vpHeight)
		m.viewport.SetContent(m.viewportContent)
		m.viewport.GotoBottom()

		m.renderer = NewEventRenderer(m.width, m.config.NoColor, m.config.NoMarkdown, m.styles)

		m.textarea.SetWidth(m.width)
		m.ready = true

		if m.state == StateInput {
			return m, m.focusTextarea()
		}
	} else {
		m.viewport.Width = m.width
		m.viewport.Height = vpHeight
		m.textarea.SetWidth(m.width)
		if m.picker != nil {
			m.picker.SetWidth(m.width)
		}
		if m.renderer != nil {
			m.renderer.width = m.width
		}
	}

	return m, nil
}

func (m *Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m.handleCtrlC()
	case tea.KeyCtrlD:
		if m.state == StateInput {
			// Detach without shutting the session down.
			m.stopPump()
			m.quitting = true
			return m, tea.Quit
		}
	}

	switch m.state {
	case StateInput:
		return m.handleInputKey(msg)
	case StateApproval:
		return m.handleApprovalKey(msg)
	default:
		// Working/startup/shutdown: only viewport scrolling.
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Submit) {
		line := strings.TrimSpace(m.textarea.Value())
		m.textarea.Reset()

		if line == "" {
			return m, nil
		}
		if line == "/quit" || line == "/exit" {
			return m.beginShutdown()
		}

		m.appendToViewport(m.userLine(line))
		m.state = StateWorking
		m.spinnerMsg = "Sending..."
		m.textarea.Blur()
		return m, submitTurnCmd(m.session, line)
	}

	if m.isScrollKey(msg) {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *Model) handleApprovalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.picker == nil || m.isScrollKey(msg) {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if done := m.picker.Update(msg); done {
		decision := m.picker.Decision()
		if m.picker.Confirmed() && m.picker.Choice() == choiceApproveForSession {
			m.autoApprove = true
		}
		callID := m.pendingApproval.CallID
		m.picker = nil
		m.spinnerMsg = "Sending decision..."
		return m, submitApprovalCmd(m.session, callID, decision)
	}
	return m, nil
}

// isScrollKey reports whether the key should scroll the viewport rather than
// reach the focused input widget.
func (m *Model) isScrollKey(msg tea.KeyMsg) bool {
	return key.Matches(msg, m.keys.PageUp, m.keys.PageDown, m.keys.Home, m.keys.End)
}

func (m *Model) handleCtrlC() (tea.Model, tea.Cmd) {
	now := time.Now()
	if now.Sub(m.lastInterruptTime) < forceQuitWindow {
		m.stopPump()
		m.quitting = true
		return m, tea.Quit
	}
	m.lastInterruptTime = now
	return m.beginShutdown()
}

// beginShutdown asks the workflow to finish up and exit. A pending approval
// is denied first so the turn can complete.
func (m *Model) beginShutdown() (tea.Model, tea.Cmd) {
	if m.state == StateShutdown {
		return m, nil
	}

	var cmds []tea.Cmd
	if m.pendingApproval != nil {
		cmds = append(cmds, submitApprovalCmd(m.session, m.pendingApproval.CallID, models.DecisionDenied))
		m.pendingApproval = nil
		m.picker = nil
	}

	m.state = StateShutdown
	m.spinnerMsg = "Shutting down..."
	m.textarea.Blur()
	m.appendToViewport("\nShutting down... (Ctrl+C again to force quit)\n")
	cmds = append(cmds, submitShutdownCmd(m.session))
	return m, tea.Batch(cmds...)
}

func (m *Model) handleSessionEvent(ev models.Event) (tea.Model, tea.Cmd) {
	msg := ev.Msg
	switch msg.Type {
	case models.EventTurnStarted:
		m.turnCount++
		m.appendToViewport(m.renderer.RenderTurnStarted(msg))
		if m.state != StateShutdown {
			m.state = StateWorking
			m.spinnerMsg = "Thinking..."
			m.textarea.Blur()
		}

	case models.EventAgentMessage:
		m.appendToViewport(m.renderer.RenderAgentMessage(msg.Text))

	case models.EventAgentMessageDelta:
		m.appendToViewport(msg.Delta)

	case models.EventExecApprovalRequest:
		return m.handleApprovalRequest(msg)

	case models.EventError:
		m.appendToViewport(m.renderer.RenderError(msg.Message))

	case models.EventTurnComplete:
		if m.state == StateWorking {
			m.state = StateInput
			return m, tea.Batch(m.focusTextarea(), m.waitForEvent())
		}

	case models.EventShutdownComplete:
		m.appendToViewport(m.renderer.RenderSystemMessage("Session ended."))
		m.quitting = true
		return m, tea.Quit
	}

	return m, m.waitForEvent()
}

func (m *Model) handleApprovalRequest(msg models.EventMsg) (tea.Model, tea.Cmd) {
	m.pendingApproval = &msg

	if m.autoApprove {
		m.appendToViewport(m.renderer.RenderSystemMessage(
			"Auto-approved: " + shellCommandLine(msg.Command)))
		return m, tea.Batch(
			submitApprovalCmd(m.session, msg.CallID, models.DecisionApproved),
			m.waitForEvent(),
		)
	}

	if m.state == StateShutdown {
		// Deny so the turn can finish and the workflow exit.
		return m, tea.Batch(
			submitApprovalCmd(m.session, msg.CallID, models.DecisionDenied),
			m.waitForEvent(),
		)
	}

	m.state = StateApproval
	m.appendToViewport(m.renderer.RenderApprovalRequest(msg))
	m.picker = newApprovalPicker(m.styles)
	m.picker.SetWidth(m.width)
	return m, m.waitForEvent()
}

func (m *Model) userLine(text string) string {
	return m.styles.UserMessage.Render("> "+text) + "\n"
}

func (m *Model) appendToViewport(content string) {
	wasAtBottom := m.viewport.AtBottom()

	m.viewportContent += content
	m.viewport.SetContent(m.viewportContent)

	if wasAtBottom || !m.ready {
		m.viewport.GotoBottom()
	}
}

// focusTextarea focuses the textarea and returns its blink command. Focus
// panics when no cursor context exists (as under tests), so recover.
func (m *Model) focusTextarea() tea.Cmd {
	defer func() { recover() }()
	m.textarea.Focus()
	return textarea.Blink
}

func (m *Model) waitForEvent() tea.Cmd {
	return waitForEventCmd(m.pumpCtx, m.session)
}

func (m *Model) stopPump() {
	if m.pumpCancel != nil {
		m.pumpCancel()
	}
}

// inputAreaHeight returns the height of the current input area.
func (m *Model) inputAreaHeight() int {
	if m.picker != nil {
		return m.picker.Height()
	}
	return 1
}

// Run drives the TUI over the given session until the user exits.
func Run(config Config, s AgentSession) error {
	m := NewModel(config, s)

	var opts []tea.ProgramOption
	if !config.Inline {
		opts = append(opts, tea.WithAltScreen())
	}
	p := tea.NewProgram(m, opts...)

	// CSI 1007: have the terminal turn wheel events into arrow keys, so the
	// viewport scrolls without capturing the mouse (text selection still works).
	fmt.Fprint(os.Stderr, "\x1b[?1007h")
	defer fmt.Fprint(os.Stderr, "\x1b[?1007l")

	finalModel, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	fm := finalModel.(*Model)
	fm.stopPump()
	if fm.err != nil {
		return fm.err
	}
	return nil
}
