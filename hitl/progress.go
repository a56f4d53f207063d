package hitl

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// StepStartedMsg marks a pipeline step as running.
type StepStartedMsg struct {
	Step string
}

// StepFinishedMsg marks a pipeline step as done.
type StepFinishedMsg struct {
	Step string
	Ok   bool
}

// DoneMsg terminates the progress display.
type DoneMsg struct{}

// ProgressModel renders a spinner plus a per-step checklist while the
// excavation pipeline runs in the background.
type ProgressModel struct {
	spinner  spinner.Model
	steps    []string
	finished map[string]bool
	failed   map[string]bool
	current  string
	done     bool
}

// NewProgressModel builds the display for the given plan steps, in order.
func NewProgressModel(steps []string) ProgressModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = headerStyle
	return ProgressModel{
		spinner:  s,
		steps:    steps,
		finished: map[string]bool{},
		failed:   map[string]bool{},
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StepStartedMsg:
		m.current = msg.Step
		return m, nil
	case StepFinishedMsg:
		m.finished[msg.Step] = true
		if !msg.Ok {
			m.failed[msg.Step] = true
		}
		if m.current == msg.Step {
			m.current = ""
		}
		return m, nil
	case DoneMsg:
		m.done = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			return m, tea.Quit
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	default:
		return m, nil
	}
}

func (m ProgressModel) View() string {
	if m.done {
		return ""
	}
	out := headerStyle.Render("Excavating") + "\n"
	for _, step := range m.steps {
		switch {
		case m.failed[step]:
			out += dangerStyle.Render("  ✗ "+step) + "\n"
		case m.finished[step]:
			out += safeStyle.Render("  ✓ "+step) + "\n"
		case step == m.current:
			out += "  " + m.spinner.View() + " " + step + "\n"
		default:
			out += dimStyle.Render("    "+step) + "\n"
		}
	}
	return out
}
