package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/timeline/internal/planner"
)

const assetListWidth = 22

// TimelinePaneModel lists assets and shows the selected asset's timeline in
// a scrollable viewport.
type TimelinePaneModel struct {
	results     []planner.AssetResult
	selectedIdx int
	viewport    viewport.Model
	width       int
	height      int
	focused     bool
}

// NewTimelinePaneModel creates a new timeline pane model.
func NewTimelinePaneModel() TimelinePaneModel {
	return TimelinePaneModel{
		viewport: viewport.New(0, 0),
	}
}

// SetResults replaces the displayed schedules, keeping the selected asset
// when it is still present.
func (m *TimelinePaneModel) SetResults(results []planner.AssetResult) {
	selected := m.SelectedAsset()
	m.results = results
	m.selectedIdx = 0
	for i, r := range results {
		if r.AssetID == selected {
			m.selectedIdx = i
			break
		}
	}
	m.updateViewportContent()
}

// Update handles messages for the timeline pane.
func (m TimelinePaneModel) Update(msg tea.Msg) (TimelinePaneModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeViewport()

	case tea.KeyMsg:
		if !m.focused {
			break
		}

		switch msg.String() {
		case KeyJ, KeyDown:
			if m.selectedIdx < len(m.results)-1 {
				m.selectedIdx++
				m.updateViewportContent()
			}
		case KeyK, KeyUp:
			if m.selectedIdx > 0 {
				m.selectedIdx--
				m.updateViewportContent()
			}
		default:
			m.viewport, cmd = m.viewport.Update(msg)
		}
	}

	return m, cmd
}

// View renders the timeline pane.
func (m TimelinePaneModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderAssetList(),
		lipgloss.NewStyle().
			Width(m.viewportWidth()).
			Height(m.height-2).
			Render(m.viewport.View()),
	)

	style := StyleUnfocusedBorder
	if m.focused {
		style = StyleFocusedBorder
	}

	return style.
		Width(m.width - 2).
		Height(m.height - 2).
		Render(content)
}

func (m TimelinePaneModel) renderAssetList() string {
	var b strings.Builder

	title := StyleTitle.Render("Assets")
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", min(assetListWidth, lipgloss.Width(title))))
	b.WriteString("\n\n")

	if len(m.results) == 0 {
		b.WriteString(StylePending.Render("Scheduling..."))
	}
	for i, r := range m.results {
		line := fmt.Sprintf("%s %s", StatusIcon(r.Outcome), truncate(r.AssetID, assetListWidth-3))
		if i == m.selectedIdx {
			line = lipgloss.NewStyle().
				Background(lipgloss.Color("62")).
				Foreground(lipgloss.Color("0")).
				Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	return lipgloss.NewStyle().
		Width(assetListWidth).
		Height(m.height - 2).
		Render(b.String())
}

// StatusIcon returns a styled indicator for an asset outcome.
func StatusIcon(o planner.Outcome) string {
	switch o {
	case planner.OutcomeComputed:
		return StyleComputed.Render("✓")
	case planner.OutcomeFallback:
		return StyleFallback.Render("↺")
	case planner.OutcomeFailed:
		return StyleFailed.Render("✗")
	default:
		return StylePending.Render("○")
	}
}

// SelectedAsset returns the id of the selected asset, or "".
func (m TimelinePaneModel) SelectedAsset() string {
	if m.selectedIdx >= 0 && m.selectedIdx < len(m.results) {
		return m.results[m.selectedIdx].AssetID
	}
	return ""
}

func (m *TimelinePaneModel) updateViewportContent() {
	if m.selectedIdx < 0 || m.selectedIdx >= len(m.results) {
		m.viewport.SetContent("Waiting for schedules...")
		return
	}
	m.viewport.SetContent(RenderAsset(m.results[m.selectedIdx], m.viewportWidth()))
	m.viewport.GotoTop()
}

func (m TimelinePaneModel) viewportWidth() int {
	return max(m.width-assetListWidth-4, minBarWidth)
}

func (m *TimelinePaneModel) resizeViewport() {
	m.viewport.Width = m.viewportWidth()
	m.viewport.Height = max(m.height-4, 5)
	m.updateViewportContent()
}

// SetSize updates the pane dimensions.
func (m *TimelinePaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.resizeViewport()
}

// SetFocused updates the focus state.
func (m *TimelinePaneModel) SetFocused(focused bool) {
	m.focused = focused
}
