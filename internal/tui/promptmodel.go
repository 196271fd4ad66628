// Package tui implements the interactive manual-input prompt shown by
// `apitestctl run` when a suite run suspends on an unresolved #{name}
// placeholder. One Program is started per prompt; it runs to
// completion (submit or cancel) and exits.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/textinput"
)

// PromptModel collects one manual-input value.
type PromptModel struct {
	Name         string
	Default      string
	HasDefault   bool
	CachedValue  string
	HasCached    bool

	input     textinput.Model
	submitted bool
	cancelled bool
	value     string
}

// NewPromptModel builds a prompt for one manual-input field. A prior
// cached answer (a dependency being refreshed with
// reuseManualInput=false) is seeded into the input so the operator can
// just press Enter to reuse it; a declared default stays in the
// placeholder and is applied when the field is submitted empty.
func NewPromptModel(name, def string, hasDefault bool, cached string, hasCached bool) PromptModel {
	ti := textinput.New()
	ti.Placeholder = def
	ti.Focus()
	ti.CharLimit = 4096
	ti.Width = 60

	if hasCached {
		ti.SetValue(cached)
		ti.CursorEnd()
	}

	return PromptModel{
		Name: name, Default: def, HasDefault: hasDefault,
		CachedValue: cached, HasCached: hasCached,
		input: ti,
	}
}

func (m PromptModel) Init() tea.Cmd { return textinput.Blink }

func (m PromptModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyEnter:
			m.value = m.input.Value()
			if m.value == "" && m.HasDefault {
				m.value = m.Default
			}
			m.submitted = true
			return m, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			m.cancelled = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m PromptModel) View() string {
	if m.submitted || m.cancelled {
		return ""
	}

	label := promptLabelStyle.Render("Manual input required: " + m.Name)
	hint := ""
	switch {
	case m.HasCached:
		hint = hintStyle.Render("(previous answer: " + m.CachedValue + ", press Enter to reuse)")
	case m.HasDefault:
		hint = hintStyle.Render("(default: " + m.Default + ")")
	}

	return label + "\n" + m.input.View() + "\n" + hint + "\n" + footerStyle.Render("enter to submit · esc to cancel run")
}

// Submitted reports whether the prompt was completed with a value
// (as opposed to cancelled).
func (m PromptModel) Submitted() bool { return m.submitted }

// Cancelled reports whether the operator aborted the prompt (esc/ctrl-c),
// which the caller should translate into cancelling the whole run.
func (m PromptModel) Cancelled() bool { return m.cancelled }

// Value returns the submitted value; only meaningful when Submitted()
// is true.
func (m PromptModel) Value() string { return m.value }
