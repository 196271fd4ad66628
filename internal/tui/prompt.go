package tui

import tea "github.com/charmbracelet/bubbletea"

// RunPrompt starts a short-lived Bubbletea program asking the operator
// for one manual-input value and blocks until it is submitted or
// cancelled. Used by cmd/apitestctl's interactive run loop to answer an
// events.KindInputRequired event.
func RunPrompt(name, def string, hasDefault bool, cached string, hasCached bool) (value string, cancelled bool, err error) {
	m := NewPromptModel(name, def, hasDefault, cached, hasCached)
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return "", false, err
	}
	result := final.(PromptModel)
	if result.Cancelled() {
		return "", true, nil
	}
	return result.Value(), false, nil
}
