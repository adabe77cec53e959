// Package tui is the interactive terminal viewer for asset timelines.
package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/timeline/internal/config"
	"github.com/aristath/timeline/internal/events"
	"github.com/aristath/timeline/internal/planner"
)

// PaneID identifies which pane is focused.
type PaneID int

const (
	PaneTimeline PaneID = iota
	PaneSummary
)

const paneCount = 2

// Scheduler computes every asset's schedule under cfg.
type Scheduler func(ctx context.Context, cfg *config.ScheduleConfig) ([]planner.AssetResult, error)

// scheduledMsg carries the outcome of a scheduling run.
type scheduledMsg struct {
	results []planner.AssetResult
	err     error
}

// Model is the root Bubble Tea model for the TUI.
type Model struct {
	ctx          context.Context
	run          Scheduler
	timelinePane TimelinePaneModel
	summaryPane  SummaryPaneModel
	settingsPane SettingsPaneModel
	focusedPane  PaneID
	eventSub     <-chan events.Event
	width        int
	height       int
	quitting     bool
	showSettings bool
	scheduling   bool
	err          error
	config       *config.ScheduleConfig
}

// New creates a new TUI model.
// It subscribes to all events from the event bus using SubscribeAll.
func New(ctx context.Context, eventBus *events.EventBus, run Scheduler, cfg *config.ScheduleConfig, globalPath, projectPath string) Model {
	return Model{
		ctx:          ctx,
		run:          run,
		timelinePane: NewTimelinePaneModel(),
		summaryPane:  NewSummaryPaneModel(),
		settingsPane: NewSettingsPaneModel(cfg, globalPath, projectPath),
		focusedPane:  PaneTimeline,
		eventSub:     eventBus.SubscribeAll(256),
		scheduling:   true,
		config:       cfg,
	}
}

// Init starts listening for events and runs the first schedule.
func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForEvent(m.eventSub), m.schedule())
}

// waitForEvent returns a command that waits for the next event from the event bus.
func waitForEvent(sub <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-sub
		if !ok {
			return nil // bus closed
		}
		return event
	}
}

// schedule runs the scheduler against a snapshot of the current config.
func (m Model) schedule() tea.Cmd {
	ctx, run, cfg := m.ctx, m.run, *m.config
	return func() tea.Msg {
		results, err := run(ctx, &cfg)
		return scheduledMsg{results: results, err: err}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// The settings form is modal.
		if m.showSettings {
			if msg.String() == "esc" {
				m.showSettings = false
				m.settingsPane.SetVisible(false)
				return m, nil
			}

			var cmd tea.Cmd
			m.settingsPane, cmd = m.settingsPane.Update(msg)
			cmds = append(cmds, cmd)

			if !m.settingsPane.IsVisible() {
				m.showSettings = false
				if m.settingsPane.Saved() {
					cmds = append(cmds, m.startScheduling())
				}
			}
			return m, tea.Batch(cmds...)
		}

		switch msg.String() {
		case KeyQuit, KeyCtrlC:
			m.quitting = true
			return m, tea.Quit

		case KeySettings:
			m.showSettings = true
			m.settingsPane.SetVisible(true)
			cmds = append(cmds, m.settingsPane.Init())

		case KeyReschedule:
			if !m.scheduling {
				cmds = append(cmds, m.startScheduling())
			}

		case KeyTab:
			m.focusedPane = (m.focusedPane + 1) % paneCount
			m.updateFocusStates()

		case KeyShiftTab:
			m.focusedPane = (m.focusedPane + paneCount - 1) % paneCount
			m.updateFocusStates()

		case KeyPane1:
			m.focusedPane = PaneTimeline
			m.updateFocusStates()

		case KeyPane2:
			m.focusedPane = PaneSummary
			m.updateFocusStates()

		default:
			if m.focusedPane == PaneTimeline {
				var cmd tea.Cmd
				m.timelinePane, cmd = m.timelinePane.Update(msg)
				cmds = append(cmds, cmd)
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.computeLayout()
		m.settingsPane.SetSize(msg.Width, msg.Height)

	case scheduledMsg:
		m.scheduling = false
		m.err = msg.err
		if msg.err == nil {
			m.timelinePane.SetResults(msg.results)
		}

	case events.ScheduleComputedEvent, events.ScheduleFailedEvent, events.ScheduleWarningEvent,
		events.FallbackUsedEvent, events.ProjectProgressEvent:
		var cmd tea.Cmd
		m.summaryPane, cmd = m.summaryPane.Update(msg)
		cmds = append(cmds, cmd, waitForEvent(m.eventSub))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) startScheduling() tea.Cmd {
	m.scheduling = true
	m.summaryPane.Reset()
	return m.schedule()
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Goodbye!\n"
	}

	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	if m.showSettings {
		return m.settingsPane.View()
	}

	mainContent := lipgloss.JoinHorizontal(lipgloss.Top, m.timelinePane.View(), m.summaryPane.View())

	status := HelpView()
	switch {
	case m.err != nil:
		status = StyleFailed.Render("scheduling failed: "+m.err.Error()) + "  " + status
	case m.scheduling:
		status = StylePending.Render("scheduling...") + "  " + status
	}

	return lipgloss.JoinVertical(lipgloss.Left, mainContent, status)
}

// computeLayout calculates pane dimensions and updates all child models.
func (m *Model) computeLayout() {
	leftWidth := (m.width * 70) / 100
	rightWidth := m.width - leftWidth
	availableHeight := m.height - 1 // reserve 1 line for the status bar

	m.timelinePane.SetSize(leftWidth, availableHeight)
	m.summaryPane.SetSize(rightWidth, availableHeight)

	m.updateFocusStates()
}

// updateFocusStates updates the focus state of all panes.
func (m *Model) updateFocusStates() {
	m.timelinePane.SetFocused(m.focusedPane == PaneTimeline)
	m.summaryPane.SetFocused(m.focusedPane == PaneSummary)
}
