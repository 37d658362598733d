package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds all lipgloss styles for the TUI.
type Styles struct {
	// Turn separator line
	TurnSeparator lipgloss.Style
	// Echoed user message
	UserMessage lipgloss.Style
	// Approval block header
	ApprovalHeader lipgloss.Style
	// Approval field labels (Command:, Directory:)
	ApprovalCommand lipgloss.Style
	// Approval reason text
	ApprovalReason lipgloss.Style
	// Error lines
	ErrorText lipgloss.Style
	// System notices (session started/ended)
	SystemMessage lipgloss.Style
	// Separator line between viewport and input
	Separator lipgloss.Style
	// Status bar
	StatusBar lipgloss.Style
	// Spinner message
	SpinnerMessage lipgloss.Style
	// Picker chevron indicator
	PickerChevron lipgloss.Style
	// Picker highlighted item
	PickerSelected lipgloss.Style
	// Picker shortcut hint
	PickerShortcut lipgloss.Style
}

// DefaultStyles returns styles with colors enabled.
func DefaultStyles() Styles {
	return Styles{
		TurnSeparator:   lipgloss.NewStyle().Faint(true),
		UserMessage:     lipgloss.NewStyle().Bold(true),
		ApprovalHeader:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")), // yellow
		ApprovalCommand: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		ApprovalReason:  lipgloss.NewStyle().Faint(true),
		ErrorText:       lipgloss.NewStyle().Foreground(lipgloss.Color("1")), // red
		SystemMessage:   lipgloss.NewStyle().Faint(true),
		Separator:       lipgloss.NewStyle().Faint(true),
		StatusBar:       lipgloss.NewStyle().Faint(true),
		SpinnerMessage:  lipgloss.NewStyle().Faint(true),
		PickerChevron:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true), // cyan
		PickerSelected:  lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		PickerShortcut:  lipgloss.NewStyle().Faint(true),
	}
}

// NoColorStyles returns styles with no colors (plain text).
func NoColorStyles() Styles {
	return Styles{
		TurnSeparator:   lipgloss.NewStyle(),
		UserMessage:     lipgloss.NewStyle(),
		ApprovalHeader:  lipgloss.NewStyle(),
		ApprovalCommand: lipgloss.NewStyle(),
		ApprovalReason:  lipgloss.NewStyle(),
		ErrorText:       lipgloss.NewStyle(),
		SystemMessage:   lipgloss.NewStyle(),
		Separator:       lipgloss.NewStyle(),
		StatusBar:       lipgloss.NewStyle(),
		SpinnerMessage:  lipgloss.NewStyle(),
		PickerChevron:   lipgloss.NewStyle(),
		PickerSelected:  lipgloss.NewStyle(),
		PickerShortcut:  lipgloss.NewStyle(),
	}
}
