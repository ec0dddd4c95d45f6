package status

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var hintStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("240")).
	Padding(1, 0, 0, 2)

// reportMsg is sent when an async probe cycle completes.
type reportMsg struct {
	report Report
}

type tickMsg time.Time

type watchModel struct {
	collector *Collector
	interval  time.Duration
	spinner   spinner.Model
	report    Report
	probing   bool
	haveData  bool
}

func newWatchModel(c *Collector, interval time.Duration) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	return watchModel{
		collector: c,
		interval:  interval,
		spinner:   sp,
		probing:   true,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.probeCmd())
}

func (m watchModel) probeCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return reportMsg{report: m.collector.Collect(ctx)}
	}
}

func (m watchModel) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "r":
			if !m.probing {
				m.probing = true
				return m, m.probeCmd()
			}
		}
		return m, nil

	case reportMsg:
		m.report = msg.report
		m.probing = false
		m.haveData = true
		return m, m.scheduleTick()

	case tickMsg:
		m.probing = true
		return m, m.probeCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m watchModel) View() string {
	s := ""
	if m.haveData {
		s = Render(m.report)
	}
	if m.probing {
		s += "\n " + m.spinner.View() + " probing sources..."
	}
	s += hintStyle.Render("r refresh  q quit")
	return s
}

// RunWatch renders the dashboard in a terminal UI that re-probes on the
// given interval until the user quits.
func RunWatch(c *Collector, interval time.Duration) error {
	p := tea.NewProgram(newWatchModel(c, interval))
	_, err := p.Run()
	return err
}
