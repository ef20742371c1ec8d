package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	strategyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateSelectFunc modelState = iota
	stateInputArgs
	stateShowResult
)

type interactiveModel struct {
	err      error
	w        *workbench
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	state    modelState
}

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(w *workbench) *interactiveModel {
	return &interactiveModel{w: w, state: stateSelectFunc}
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state != stateInputArgs || msg.String() == "ctrl+c" {
				return m, tea.Quit
			}

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.w.demos)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				m.prepareInputs()
				if len(m.inputs) == 0 {
					return m, m.callFunction
				}
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.state == stateInputArgs && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.state {
			case stateInputArgs:
				m.state = stateSelectFunc
				m.inputs = nil
			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmds []tea.Cmd
		for i := range m.inputs {
			var cmd tea.Cmd
			m.inputs[i], cmd = m.inputs[i].Update(msg)
			cmds = append(cmds, cmd)
		}
		return m, tea.Batch(cmds...)
	}

	return m, nil
}

func (m *interactiveModel) prepareInputs() {
	d := m.w.demos[m.selected]
	m.inputs = make([]textinput.Model, len(d.parsers))
	for i, p := range d.parsers {
		ti := textinput.New()
		ti.Placeholder = p.hint
		ti.Prompt = fmt.Sprintf("arg%d: ", i)
		ti.Width = 40
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

func (m *interactiveModel) callFunction() tea.Msg {
	d := m.w.demos[m.selected]
	raw := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		raw[i] = input.Value()
	}
	out, err := m.w.call(context.Background(), d, raw)
	if err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: out}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("FFI Workbench"))
	b.WriteString(" ")
	b.WriteString(m.w.desc.Arch)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		for i, d := range m.w.demos {
			line := m.formatDemo(d)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		d := m.w.demos[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(d.name)))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(strategyStyle.Render(d.parsers[i].hint))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("tab next field • enter call • esc back"))

	case stateShowResult:
		d := m.w.demos[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(d.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatDemo(d *demo) string {
	return funcStyle.Render(d.name) + " " +
		d.signature[len(d.name):] + " " +
		strategyStyle.Render("["+d.callable.Strategy().String()+"]")
}

func runInteractive(w *workbench) error {
	p := tea.NewProgram(newInteractiveModel(w), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
