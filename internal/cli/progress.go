package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/lucasmaarin/automacoes-Mobile-Mercado/internal/automation"
)

const pollInterval = time.Second

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the run status.
type tickMsg time.Time

// statusMsg carries the polled run status.
type statusMsg struct {
	status *automation.RunStatus
	err    error
}

// runModel is the bubbletea model that follows a run to completion.
type runModel struct {
	tool     string
	status   *automation.RunStatus
	progress progress.Model
	theme    Theme
	done     bool
	quitting bool
	err      error
}

func newRunModel(tool string) runModel {
	width := 40
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 60 {
		width = w - 40
	}
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(width),
	)
	return runModel{tool: tool, progress: prog, theme: defaultTheme}
}

// Init returns the initial command (start polling).
func (m runModel) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.progress.Init())
}

// Update handles messages and returns the updated model.
func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			return m, tea.Quit
		}

	case tickMsg:
		return m, m.fetchStatus()

	case statusMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("failed to fetch run status: %w", msg.err)
			m.done = true
			return m, tea.Quit
		}
		m.status = msg.status

		if m.status == nil || m.status.State != automation.StateRunning {
			m.done = true
			return m, tea.Quit
		}
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m runModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m runModel) renderContent() string {
	if m.done {
		return m.finalView()
	}
	if m.status == nil {
		return "Loading run status...\n"
	}

	p := m.status.Progress
	var pct float64
	if p.Total > 0 {
		pct = float64(p.Processed) / float64(p.Total)
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.status.State))
	bar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d products", p.Processed, p.Total)
	current := ""
	if m.status.CurrentItem != "" {
		current = m.theme.hintStyle().Render("  " + m.status.CurrentItem)
	}
	hint := m.theme.hintStyle().Render("Press Ctrl+C to continue in background")

	return fmt.Sprintf("%s %s %s%s\n%s\n", status, bar, counts, current, hint)
}

func (m runModel) finalView() string {
	if m.quitting {
		msg := fmt.Sprintf("\nRun continues in background.\nUse 'mercado status %s' to check progress.\n", m.tool)
		return m.theme.hintStyle().Render(msg)
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ %s\n", m.err))
	}
	if m.status == nil {
		return m.theme.completedStyle().Render("✓ Done\n")
	}

	p := m.status.Progress
	var output string
	switch m.status.State {
	case automation.StateCompleted:
		output = m.theme.completedStyle().Render("✓ Completed") + "\n\n"
	case automation.StateStopped:
		output = m.theme.hintStyle().Render("■ Stopped") + "\n\n"
	default:
		output = m.theme.errorStyle().Render("✗ Aborted") + "\n\n"
	}
	output += fmt.Sprintf("  Processed: %d/%d\n", p.Processed, p.Total)
	output += fmt.Sprintf("  Updated:   %d\n", p.Updated)
	output += fmt.Sprintf("  Skipped:   %d\n", p.Skipped)
	if p.Errors > 0 {
		output += m.theme.errorStyle().Render(fmt.Sprintf("  Errors:    %d\n", p.Errors))
	}
	if p.TokensUsed > 0 {
		output += fmt.Sprintf("  Tokens:    %d (est. $%.4f)\n", p.TokensUsed, p.EstimatedCost)
	}
	return output
}

// fetchStatus polls the server in a command to avoid blocking Update.
func (m runModel) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		st, err := apiClient.Status(ctx, m.tool)
		return statusMsg{status: st, err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// followRun runs the progress UI until the run reaches a terminal state.
func followRun(tool string) error {
	p := tea.NewProgram(newRunModel(tool))
	_, err := p.Run()
	return err
}
