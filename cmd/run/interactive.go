package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/gc-runtime/gcstack"
	"github.com/wippyai/gc-runtime/native"
	"github.com/wippyai/gc-runtime/native/wazerort"
	"github.com/wippyai/gc-runtime/session"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	funcStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	frameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

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
	filename   string
	stackSlots int

	sess  *session.Session
	funcs []funcInfo

	state    modelState
	selected int
	argInput textinput.Model

	result string
	frames []native.FrameInfo
	err    error
}

func newInteractiveModel(filename string, stackSlots int) *interactiveModel {
	return &interactiveModel{
		filename:   filename,
		stackSlots: stackSlots,
		state:      stateSelectFunc,
	}
}

type loadedMsg struct {
	err   error
	sess  *session.Session
	funcs []funcInfo
}

type callResultMsg struct {
	err    error
	result string
	frames []native.FrameInfo
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.loadGuest
}

func (m *interactiveModel) loadGuest() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	funcs, err := listExports(ctx, data)
	if err != nil {
		return loadedMsg{err: err}
	}

	sess, err := session.New(ctx, wazerort.New(wazerort.Config{Guest: data}),
		session.WithStackSlots(m.stackSlots))
	if err != nil {
		return loadedMsg{err: err}
	}

	return loadedMsg{sess: sess, funcs: funcs}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateInputArgs && msg.String() == "q" {
				break // plain q is valid input text
			}
			if m.sess != nil {
				m.sess.Close(context.Background()) //nolint:errcheck
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectFunc && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectFunc && m.selected < len(m.funcs)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectFunc:
				if len(m.funcs) == 0 {
					break
				}
				if m.funcs[m.selected].params == 0 {
					return m, m.callFunction
				}
				m.prepareInput()
				m.state = stateInputArgs

			case stateInputArgs:
				return m, m.callFunction

			case stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.frames = nil
				m.err = nil
			}

		case "esc":
			switch m.state {
			case stateInputArgs, stateShowResult:
				m.state = stateSelectFunc
				m.result = ""
				m.frames = nil
				m.err = nil
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.sess = msg.sess
		m.funcs = msg.funcs

	case callResultMsg:
		m.result = msg.result
		m.frames = msg.frames
		m.err = msg.err
		m.state = stateShowResult
	}

	if m.state == stateInputArgs {
		var cmd tea.Cmd
		m.argInput, cmd = m.argInput.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m *interactiveModel) prepareInput() {
	ti := textinput.New()
	ti.Placeholder = "comma-separated pointer words"
	ti.Prompt = "args: "
	ti.Width = 40
	ti.Focus()
	m.argInput = ti
}

func (m *interactiveModel) callFunction() tea.Msg {
	ctx := context.Background()

	f := m.funcs[m.selected]
	var args []gcstack.Handle
	if f.params > 0 {
		var err error
		args, err = parseArgs(m.argInput.Value())
		if err != nil {
			return callResultMsg{err: err}
		}
	}

	var result string
	var frames []native.FrameInfo
	err := m.sess.Scope(ctx, func(frame *gcstack.Frame) error {
		h, err := gcstack.Call(ctx, m.sess.Runtime(), frame, f.name, args...)
		if err != nil {
			if exc, ok := err.(*gcstack.Exception); ok {
				// Format while the exception value is still rooted.
				return fmt.Errorf("guest threw: %s", exc.Value)
			}
			return err
		}
		result = h.String()
		frames = m.sess.StackSnapshot()
		return nil
	})
	if err != nil {
		return callResultMsg{err: err}
	}

	return callResultMsg{result: result, frames: frames}
}

func (m *interactiveModel) View() string {
	if m.err != nil && m.state != stateShowResult {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.sess == nil {
		return "Loading guest..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("GC Runtime Runner"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectFunc:
		b.WriteString("Select a function to call:\n\n")
		if len(m.funcs) == 0 {
			b.WriteString(helpStyle.Render("  (guest exports no functions)"))
			b.WriteString("\n")
		}
		for i, f := range m.funcs {
			line := "  " + f.String()
			if i == m.selected {
				line = selectedStyle.Render("> " + f.String())
			}
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter call • q quit"))

	case stateInputArgs:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Calling %s\n\n", funcStyle.Render(f.String())))
		b.WriteString(m.argInput.View())
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter call • esc back"))

	case stateShowResult:
		f := m.funcs[m.selected]
		b.WriteString(fmt.Sprintf("Result of %s:\n\n", funcStyle.Render(f.name)))
		if m.err != nil {
			b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(resultStyle.Render(m.result))
			if len(m.frames) > 0 {
				b.WriteString("\n\nShadow stack at call:\n")
				for _, info := range m.frames {
					b.WriteString(frameStyle.Render(fmt.Sprintf(
						"  frame depth=%d roots=%d/%d", info.Depth, info.NRoots, info.Capacity)))
					b.WriteString("\n")
				}
			}
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}

func runInteractive(filename string, stackSlots int) error {
	p := tea.NewProgram(newInteractiveModel(filename, stackSlots), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
