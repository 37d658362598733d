package tui

import (
	"fmt"
	"strings"
	"unicode"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mfateev/codex-temporal/internal/models"
)

// approvalChoice enumerates the answers to an exec approval prompt.
type approvalChoice int

const (
	choiceApprove approvalChoice = iota
	choiceDeny
	choiceApproveForSession
)

func (c approvalChoice) decision() models.ReviewDecision {
	switch c {
	case choiceApprove:
		return models.DecisionApproved
	case choiceApproveForSession:
		return models.DecisionApprovedForSession
	default:
		return models.DecisionDenied
	}
}

type pickerOption struct {
	label    string
	shortcut rune
	choice   approvalChoice
}

// approvalPicker is a small bubbletea sub-model for answering an exec
// approval prompt: arrow/j/k navigation, number keys, y/n/a shortcuts,
// Enter to confirm, Esc to deny.
type approvalPicker struct {
	options   []pickerOption
	cursor    int
	width     int
	styles    Styles
	confirmed bool
	cancelled bool
}

func newApprovalPicker(styles Styles) *approvalPicker {
	return &approvalPicker{
		options: []pickerOption{
			{label: "Yes, run it", shortcut: 'y', choice: choiceApprove},
			{label: "No, deny", shortcut: 'n', choice: choiceDeny},
			{label: "Yes, and auto-approve for this session", shortcut: 'a', choice: choiceApproveForSession},
		},
		styles: styles,
	}
}

// Update processes a key message and returns whether the picker is done
// (confirmed or cancelled).
func (p *approvalPicker) Update(msg tea.KeyMsg) bool {
	switch msg.Type {
	case tea.KeyUp:
		p.moveUp()
		return false
	case tea.KeyDown:
		p.moveDown()
		return false
	case tea.KeyEnter:
		p.confirmed = true
		return true
	case tea.KeyEsc:
		p.cancelled = true
		return true
	case tea.KeyRunes:
		if len(msg.Runes) != 1 {
			return false
		}
		r := msg.Runes[0]

		if r >= '1' && r <= '9' {
			idx := int(r - '1')
			if idx < len(p.options) {
				p.cursor = idx
				p.confirmed = true
				return true
			}
			return false
		}

		if r == 'j' {
			p.moveDown()
			return false
		}
		if r == 'k' {
			p.moveUp()
			return false
		}

		lower := unicode.ToLower(r)
		for i, opt := range p.options {
			if unicode.ToLower(opt.shortcut) == lower {
				p.cursor = i
				p.confirmed = true
				return true
			}
		}
	}

	return false
}

// View renders the picker as a string.
func (p *approvalPicker) View() string {
	var b strings.Builder
	for i, opt := range p.options {
		var chevron string
		if i == p.cursor {
			chevron = p.styles.PickerChevron.Render(" > ")
		} else {
			chevron = "   "
		}

		num := fmt.Sprintf("%d. ", i+1)
		var label string
		if i == p.cursor {
			label = p.styles.PickerSelected.Render(num + opt.label)
		} else {
			label = num + opt.label
		}

		shortcut := " " + p.styles.PickerShortcut.Render("("+string(opt.shortcut)+")")

		b.WriteString(chevron + label + shortcut)
		if i < len(p.options)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// Decision returns the review decision the user arrived at. Cancelling
// (Esc) counts as a denial.
func (p *approvalPicker) Decision() models.ReviewDecision {
	if p.cancelled {
		return models.DecisionDenied
	}
	return p.options[p.cursor].choice.decision()
}

// Choice returns the selected choice. Only meaningful after Confirmed.
func (p *approvalPicker) Choice() approvalChoice {
	return p.options[p.cursor].choice
}

// Confirmed returns whether the user confirmed a selection.
func (p *approvalPicker) Confirmed() bool {
	return p.confirmed
}

// SetWidth sets the available width for rendering.
func (p *approvalPicker) SetWidth(w int) {
	p.width = w
}

// Height returns the number of lines the picker occupies.
func (p *approvalPicker) Height() int {
	return len(p.options)
}

func (p *approvalPicker) moveUp() {
	p.cursor--
	if p.cursor < 0 {
		p.cursor = len(p.options) - 1
	}
}

func (p *approvalPicker) moveDown() {
	p.cursor++
	if p.cursor >= len(p.options) {
		p.cursor = 0
	}
}
