package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/v2/spinner"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"github.com/kbforge/kbforge/internal/executor"
)

var (
	labelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	barFilled  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmpty   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// progressEventMsg wraps an executor.ProgressEvent as a bubbletea message.
type progressEventMsg executor.ProgressEvent

// progressDoneMsg signals the event channel closed.
type progressDoneMsg struct{}

type progressModel struct {
	ch        <-chan executor.ProgressEvent
	total     int
	completed int
	running   int
	failed    int
	current   string
	done      bool
	spin      spinner.Model
}

func newProgressModel(ch <-chan executor.ProgressEvent, total int) progressModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = labelStyle
	return progressModel{ch: ch, total: total, spin: s}
}

func (m progressModel) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), m.spin.Tick)
}

func (m progressModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.ch
		if !ok {
			return progressDoneMsg{}
		}
		return progressEventMsg(ev)
	}
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var spinCmd tea.Cmd
	m.spin, spinCmd = m.spin.Update(msg)

	switch ev := msg.(type) {
	case progressEventMsg:
		switch ev.Phase {
		case executor.ProgressTaskStarted:
			m.running = ev.RunningCount
			m.current = string(ev.Task.Type) + " " + ev.Task.Target
		case executor.ProgressTaskFinished:
			m.completed = ev.CompletedCount
			m.running = ev.RunningCount
			if ev.Err != nil {
				m.failed++
			}
		}
		m.total = ev.TotalCount
		return m, tea.Batch(m.waitForEvent(), spinCmd)
	case progressDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, spinCmd
}

func (m progressModel) View() string {
	if m.done {
		return ""
	}
	const width = 30
	filled := 0
	if m.total > 0 {
		filled = width * m.completed / m.total
	}
	bar := barFilled.Render(repeat("#", filled)) + barEmpty.Render(repeat("-", width-filled))
	status := fmt.Sprintf("%s [%s] %d/%d running=%d", labelStyle.Render("kbforge"), bar, m.completed, m.total, m.running)
	if m.failed > 0 {
		status += " " + failStyle.Render(fmt.Sprintf("failed=%d", m.failed))
	}
	if m.current != "" && m.running > 0 {
		status += "\n" + m.spin.View() + " " + m.current
	} else if m.current != "" {
		status += "\n" + m.current
	}
	return status
}

func repeat(s string, n int) string {
	if n <= 0 {
		return ""
	}
	out := make([]byte, 0, n*len(s))
	for i := 0; i < n; i++ {
		out = append(out, s...)
	}
	return string(out)
}

// runProgressView drives a bubbletea program off progress events until the
// channel closes. run.go only calls it when stdout is a terminal and
// --no-progress wasn't passed; otherwise it just drains the channel.
func runProgressView(ctx context.Context, ch <-chan executor.ProgressEvent, total int) error {
	program := tea.NewProgram(newProgressModel(ch, total), tea.WithContext(ctx))
	_, err := program.Run()
	return err
}
