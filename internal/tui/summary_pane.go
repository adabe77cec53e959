package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/timeline/internal/events"
)

const maxActivity = 50

// SummaryPaneModel shows project progress and recent schedule activity.
type SummaryPaneModel struct {
	total    int
	computed int
	fallback int
	failed   int
	pending  int
	activity []string // newest last
	width    int
	height   int
	focused  bool
}

// NewSummaryPaneModel creates a new summary pane model.
func NewSummaryPaneModel() SummaryPaneModel {
	return SummaryPaneModel{}
}

// Update handles messages for the summary pane.
func (m SummaryPaneModel) Update(msg tea.Msg) (SummaryPaneModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case events.ProjectProgressEvent:
		m.total = msg.Total
		m.computed = msg.Computed
		m.fallback = msg.Fallback
		m.failed = msg.Failed
		m.pending = msg.Pending

	case events.ScheduleComputedEvent:
		m.log(fmt.Sprintf("%s %s: %s..%s via %s", StyleComputed.Render("✓"), msg.Asset, msg.ProjectStart, msg.ProjectEnd, msg.Path))

	case events.ScheduleFailedEvent:
		m.log(fmt.Sprintf("%s %s: %s", StyleFailed.Render("✗"), msg.Asset, strings.Join(msg.Errors, "; ")))

	case events.FallbackUsedEvent:
		m.log(fmt.Sprintf("%s %s: serving schedule from %s", StyleFallback.Render("↺"), msg.Asset, msg.ComputedAt.Format("2006-01-02 15:04")))

	case events.ScheduleWarningEvent:
		m.log(fmt.Sprintf("%s %s: %s", StyleWarning.Render("!"), msg.Asset, msg.Message))
	}

	return m, nil
}

func (m *SummaryPaneModel) log(line string) {
	m.activity = append(m.activity, line)
	if len(m.activity) > maxActivity {
		m.activity = m.activity[len(m.activity)-maxActivity:]
	}
}

// Reset clears the counters before a new scheduling run.
func (m *SummaryPaneModel) Reset() {
	m.total, m.computed, m.fallback, m.failed, m.pending = 0, 0, 0, 0, 0
}

// View renders the summary pane.
func (m SummaryPaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var b strings.Builder

	title := StyleTitle.Render("Project")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", lipgloss.Width(title)))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("Assets:   %d\n", m.total))
	b.WriteString(fmt.Sprintf("Computed: %s\n", StyleComputed.Render(fmt.Sprintf("%d", m.computed))))
	b.WriteString(fmt.Sprintf("Fallback: %s\n", StyleFallback.Render(fmt.Sprintf("%d", m.fallback))))
	b.WriteString(fmt.Sprintf("Failed:   %s\n", StyleFailed.Render(fmt.Sprintf("%d", m.failed))))
	b.WriteString(fmt.Sprintf("Pending:  %s\n", StylePending.Render(fmt.Sprintf("%d", m.pending))))
	b.WriteString("\n")

	if m.total > 0 {
		barWidth := min(m.width-4, 40)
		computedWidth := (m.computed * barWidth) / m.total
		fallbackWidth := (m.fallback * barWidth) / m.total
		failedWidth := (m.failed * barWidth) / m.total
		pendingWidth := barWidth - computedWidth - fallbackWidth - failedWidth

		bar := StyleComputed.Render(strings.Repeat("=", max(0, computedWidth)))
		bar += StyleFallback.Render(strings.Repeat("~", max(0, fallbackWidth)))
		bar += StyleFailed.Render(strings.Repeat("!", max(0, failedWidth)))
		bar += StylePending.Render(strings.Repeat(".", max(0, pendingWidth)))

		done := m.computed + m.fallback + m.failed
		b.WriteString(fmt.Sprintf("[%s]  %d/%d\n\n", bar, done, m.total))
	}

	// Show as much recent activity as fits.
	room := max(m.height-16, 1)
	start := max(len(m.activity)-room, 0)
	for _, line := range m.activity[start:] {
		b.WriteString(line)
		b.WriteString("\n")
	}

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(b.String())
}

// SetSize updates the pane dimensions.
func (m *SummaryPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// SetFocused updates the focus state.
func (m *SummaryPaneModel) SetFocused(focused bool) {
	m.focused = focused
}
