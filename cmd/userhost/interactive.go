package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/wippyai/userhost"
	"github.com/wippyai/userhost/errors"
	"github.com/wippyai/userhost/evm"
	"github.com/wippyai/userhost/host"
	"github.com/wippyai/userhost/memory"
	"github.com/wippyai/userhost/program"
)

type interactiveModel struct {
	err      error
	st       styles
	state    *host.State
	current  *program.Program
	result   string
	inputs   []textinput.Model
	selected int
	focusIdx int
	mode     modelState
}

type modelState int

const (
	stateSelectMethod modelState = iota
	stateInputFields
	stateShowResult
)

type callResultMsg struct {
	err    error
	result string
}

func newInteractiveModel(st styles, script *Script) (*interactiveModel, error) {
	state := host.NewState()
	if script != nil {
		if err := seedState(state, script.State); err != nil {
			_ = state.Close()
			return nil, err
		}
	}
	mem := memory.NewBuffer(1)
	programs, _ := host.NewSession(state, program.Env{
		Memory: func(uint32) userhost.LinearMemory { return mem },
	})
	return &interactiveModel{
		st:      st,
		state:   state,
		current: programs.PushNew(nil, evm.Data{}, 1, evm.Config{MaxDepth: defaultMaxDepth}),
		mode:    stateSelectMethod,
	}, nil
}

func (m *interactiveModel) Init() tea.Cmd {
	return nil
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			_ = m.state.Close()
			return m, tea.Quit

		case "q":
			if m.mode != stateInputFields {
				_ = m.state.Close()
				return m, tea.Quit
			}

		case "up", "k":
			if m.mode == stateSelectMethod && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.mode == stateSelectMethod && m.selected < len(operations)-1 {
				m.selected++
			}

		case "enter":
			switch m.mode {
			case stateSelectMethod:
				m.prepareInputs()
				m.mode = stateInputFields
				return m, nil

			case stateInputFields:
				return m, m.issue

			case stateShowResult:
				m.mode = stateSelectMethod
				m.result = ""
				m.err = nil
			}

		case "tab":
			if m.mode == stateInputFields && len(m.inputs) > 1 {
				m.inputs[m.focusIdx].Blur()
				m.focusIdx = (m.focusIdx + 1) % len(m.inputs)
				m.inputs[m.focusIdx].Focus()
			}

		case "esc":
			switch m.mode {
			case stateInputFields:
				m.mode = stateSelectMethod
				m.inputs = nil
			case stateShowResult:
				m.mode = stateSelectMethod
				m.result = ""
				m.err = nil
			}
		}

	case callResultMsg:
		m.result = msg.result
		m.err = msg.err
		m.mode = stateShowResult
	}

	if m.mode == stateInputFields {
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
	op := operations[m.selected]
	m.inputs = make([]textinput.Model, len(op.fields))
	for i, f := range op.fields {
		ti := textinput.New()
		ti.Placeholder = witTypeStr(f.typ)
		ti.Prompt = f.name + ": "
		ti.Width = 66
		if i == 0 {
			ti.Focus()
		}
		m.inputs[i] = ti
	}
	m.focusIdx = 0
}

// issue sends the selected request through the current program.
func (m *interactiveModel) issue() tea.Msg {
	op := operations[m.selected]
	values := make([]string, len(m.inputs))
	for i, input := range m.inputs {
		values[i] = input.Value()
	}
	payload, err := op.encode(values)
	if err != nil {
		return callResultMsg{err: err}
	}

	var answer []byte
	var cost uint64
	if err := errors.CatchFatal(func() {
		answer, cost = m.current.EvmAPI().HandleRequest(op.method, payload)
	}); err != nil {
		return callResultMsg{err: err}
	}
	return callResultMsg{result: fmt.Sprintf("%s\ncost %d", HexBytes(answer), cost)}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(m.st.title.Render("userhost"))
	b.WriteString(" simulated host\n\n")

	switch m.mode {
	case stateSelectMethod:
		b.WriteString("Select a request:\n\n")
		for i, op := range operations {
			line := m.formatOperation(op)
			if i == m.selected {
				b.WriteString("> " + line)
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.st.help.Render("↑/↓ select • enter choose • q quit"))

	case stateInputFields:
		op := operations[m.selected]
		fmt.Fprintf(&b, "Request %s\n\n", m.st.method.Render(op.method.String()))
		for i, input := range m.inputs {
			b.WriteString(input.View())
			b.WriteString(" ")
			b.WriteString(m.st.typ.Render(witTypeStr(op.fields[i].typ)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(m.st.help.Render("tab next field • enter issue • esc back"))

	case stateShowResult:
		op := operations[m.selected]
		fmt.Fprintf(&b, "Answer to %s:\n\n", m.st.method.Render(op.method.String()))
		if m.err != nil {
			b.WriteString(m.st.err.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(m.st.value.Render(m.result))
		}
		b.WriteString("\n\n")
		b.WriteString(m.st.help.Render("enter continue • q quit"))
	}

	return b.String()
}

func (m *interactiveModel) formatOperation(op operation) string {
	var params []string
	for _, f := range op.fields {
		params = append(params, f.name+": "+m.st.typ.Render(witTypeStr(f.typ)))
	}
	result := ""
	if op.result != "" {
		result = " -> " + m.st.typ.Render(op.result)
	}
	return m.st.method.Render(op.method.String()) + "(" + strings.Join(params, ", ") + ")" + result
}

func runInteractive(st styles, script *Script) error {
	model, err := newInteractiveModel(st, script)
	if err != nil {
		return err
	}
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
