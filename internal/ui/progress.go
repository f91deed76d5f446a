// Package ui renders check progress in the terminal.
package ui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"keel/internal/pipeline"
)

type progressModel struct {
	title   string
	events  <-chan pipeline.Event
	spinner spinner.Model
	prog    progress.Model
	stages  map[pipeline.Stage]pipeline.Status
	bodies  []bodyItem
	index   map[string]int
	current pipeline.Stage
	width   int
	done    bool
}

type bodyItem struct {
	name   string
	status pipeline.Status
}

type eventMsg pipeline.Event
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that renders the passes of a
// check run and one line per body as inference reaches it. It quits when
// events is closed.
func NewProgressModel(title string, events <-chan pipeline.Event) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		prog:    prog,
		stages:  make(map[pipeline.Stage]pipeline.Status, len(pipeline.Stages)),
		index:   make(map[string]int),
		width:   80,
	}
}

// Run drives the model on out until events is closed or ctx ends.
func Run(ctx context.Context, title string, events <-chan pipeline.Event, out io.Writer) error {
	p := tea.NewProgram(NewProgressModel(title, events),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithInput(nil),
	)
	_, err := p.Run()
	return err
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listenForEvent())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case eventMsg:
		cmd := m.applyEvent(pipeline.Event(msg))
		return m, tea.Batch(cmd, m.listenForEvent())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.prog.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		model, cmd := m.prog.Update(msg)
		m.prog = model.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := m.title
	if m.current != "" {
		header = fmt.Sprintf("%s (%s)", header, m.current)
	}
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	for _, stage := range pipeline.Stages {
		status, ok := m.stages[stage]
		if !ok {
			status = pipeline.StatusQueued
		}
		fmt.Fprintf(&b, "  %s %s\n", styleStatus(status).Render(fmt.Sprintf("%9s", status)), stage)
	}

	nameWidth := max(m.width-16, 20)
	if len(m.bodies) > 0 {
		b.WriteString("\n")
	}
	for _, item := range m.bodies {
		fmt.Fprintf(&b, "    %s %s\n", styleStatus(item.status).Render(fmt.Sprintf("%9s", item.status)), truncate(item.name, nameWidth))
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.prog.ViewAs(1.0))
	} else {
		b.WriteString(m.prog.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) listenForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return eventMsg(ev)
	}
}

func (m *progressModel) applyEvent(ev pipeline.Event) tea.Cmd {
	if ev.Body == "" {
		m.stages[ev.Stage] = ev.Status
		if ev.Status == pipeline.StatusWorking {
			m.current = ev.Stage
		}
		return m.prog.SetPercent(m.percent())
	}
	idx, ok := m.index[ev.Body]
	if !ok {
		idx = len(m.bodies)
		m.index[ev.Body] = idx
		m.bodies = append(m.bodies, bodyItem{name: ev.Body})
	}
	m.bodies[idx].status = ev.Status
	return m.prog.SetPercent(m.percent())
}

// percent weighs every pass equally; inference advances by the share of
// bodies seen so far that have finished.
func (m *progressModel) percent() float64 {
	share := 1.0 / float64(len(pipeline.Stages))
	total := 0.0
	for _, stage := range pipeline.Stages {
		if isFinal(m.stages[stage]) {
			total += share
			continue
		}
		if stage != pipeline.StageInfer || len(m.bodies) == 0 {
			continue
		}
		n := 0
		for _, item := range m.bodies {
			if isFinal(item.status) {
				n++
			}
		}
		total += share * float64(n) / float64(len(m.bodies))
	}
	return total
}

func isFinal(status pipeline.Status) bool {
	return status == pipeline.StatusDone || status == pipeline.StatusError || status == pipeline.StatusCached
}

func styleStatus(status pipeline.Status) lipgloss.Style {
	switch status {
	case pipeline.StatusDone, pipeline.StatusCached:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case pipeline.StatusError:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case pipeline.StatusWorking:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}

func truncate(value string, width int) string {
	if width <= 0 || runewidth.StringWidth(value) <= width {
		return value
	}
	if width <= 3 {
		return runewidth.Truncate(value, width, "")
	}
	return runewidth.Truncate(value, width-3, "...")
}
