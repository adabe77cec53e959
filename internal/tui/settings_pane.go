package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/aristath/timeline/internal/calendar"
	"github.com/aristath/timeline/internal/config"
)

// SettingsPaneModel manages the settings form overlay.
type SettingsPaneModel struct {
	form        *huh.Form
	config      *config.ScheduleConfig
	globalPath  string
	projectPath string
	width       int
	height      int
	visible     bool
	saved       bool
	err         error

	// The form writes through pointers, so its bindings live outside the
	// model value that Bubble Tea copies on every update.
	fields *settingsFields
}

type settingsFields struct {
	saveTarget        string
	liveDate          string
	holidays          string
	dagEnabled        bool
	forceDAG          bool
	anchorToLiveDate  bool
	adjustForHolidays bool
}

// NewSettingsPaneModel creates a new settings pane.
func NewSettingsPaneModel(cfg *config.ScheduleConfig, globalPath, projectPath string) SettingsPaneModel {
	m := SettingsPaneModel{
		config:      cfg,
		globalPath:  globalPath,
		projectPath: projectPath,
		fields:      &settingsFields{saveTarget: "project"},
	}
	m.loadFromConfig()
	m.buildForm()
	return m
}

// loadFromConfig initializes the form bindings from the config.
func (m *SettingsPaneModel) loadFromConfig() {
	opts := m.config.CalculatorOptions()
	m.fields.liveDate = m.config.LiveDate
	m.fields.holidays = strings.Join(m.config.Holidays, ", ")
	m.fields.dagEnabled = opts.DAGEnabled
	m.fields.forceDAG = opts.ForceDAG
	m.fields.anchorToLiveDate = opts.AnchorToLiveDate
	m.fields.adjustForHolidays = opts.AdjustForHolidays
}

func validateDate(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	_, err := calendar.ParseDate(strings.TrimSpace(s))
	return err
}

func validateHolidays(s string) error {
	_, err := calendar.NewHolidays(splitList(s)...)
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// buildForm constructs the Huh form with all settings fields.
func (m *SettingsPaneModel) buildForm() {
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Key("saveTarget").
				Title("Save To").
				Options(
					huh.NewOption("Global (~/.timeline/config.json)", "global"),
					huh.NewOption("Project (.timeline/config.json)", "project"),
				).
				Value(&m.fields.saveTarget),
		).Title("Save Target"),

		huh.NewGroup(
			huh.NewInput().
				Key("liveDate").
				Title("Live Date").
				Description("Date the last task must finish by (YYYY-MM-DD)").
				Value(&m.fields.liveDate).
				Placeholder("2025-01-31").
				Validate(validateDate),

			huh.NewInput().
				Key("holidays").
				Title("Holidays").
				Description("Comma-separated non-working dates").
				Value(&m.fields.holidays).
				Placeholder("2024-12-25, 2025-01-01").
				Validate(validateHolidays),
		).Title("Calendar"),

		huh.NewGroup(
			huh.NewConfirm().
				Key("dagEnabled").
				Title("Dependency scheduling").
				Description("Honor declared dependencies (critical path method)").
				Value(&m.fields.dagEnabled),

			huh.NewConfirm().
				Key("forceDAG").
				Title("Force dependency path").
				Description("Use the critical path method even without dependencies").
				Value(&m.fields.forceDAG),

			huh.NewConfirm().
				Key("anchorToLiveDate").
				Title("Anchor to live date").
				Description("End the last task exactly on the live date, even on a weekend").
				Value(&m.fields.anchorToLiveDate),

			huh.NewConfirm().
				Key("adjustForHolidays").
				Title("Adjust for holidays").
				Description("Move end dates off weekends and holidays").
				Value(&m.fields.adjustForHolidays),
		).Title("Calculator"),
	)
}

// Init initializes the settings pane.
func (m SettingsPaneModel) Init() tea.Cmd {
	return m.form.Init()
}

// Update handles messages for the settings pane.
func (m SettingsPaneModel) Update(msg tea.Msg) (SettingsPaneModel, tea.Cmd) {
	if !m.visible {
		return m, nil
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "esc" {
		m.visible = false
		m.saved = false
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted && !m.saved {
		m.err = m.save()
		if m.err == nil {
			m.saved = true
			m.visible = false
		}
	}

	return m, cmd
}

// save copies the form values into a copy of the config and writes it.
// The live config only changes once the file is written.
func (m *SettingsPaneModel) save() error {
	next := *m.config
	next.LiveDate = strings.TrimSpace(m.fields.liveDate)
	next.Holidays = splitList(m.fields.holidays)
	next.Calculator = config.CalculatorConfig{
		DAGEnabled:        boolPtr(m.fields.dagEnabled),
		ForceDAG:          boolPtr(m.fields.forceDAG),
		AnchorToLiveDate:  boolPtr(m.fields.anchorToLiveDate),
		AdjustForHolidays: boolPtr(m.fields.adjustForHolidays),
	}

	targetPath := m.globalPath
	if m.fields.saveTarget == "project" {
		targetPath = m.projectPath
	}
	if err := config.Save(&next, targetPath); err != nil {
		return err
	}
	*m.config = next
	return nil
}

func boolPtr(b bool) *bool { return &b }

// View renders the settings pane.
func (m SettingsPaneModel) View() string {
	if !m.visible {
		return ""
	}

	var content string
	if m.err != nil {
		content = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true).
			Render(fmt.Sprintf("✗ Error saving: %v", m.err))
	} else {
		content = m.form.View()
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2).
		Width(m.width - 4).
		Height(m.height - 4)

	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("62")).
		Render("⚙ Settings")

	return lipgloss.JoinVertical(lipgloss.Left, title, style.Render(content))
}

// SetSize updates the dimensions of the settings pane.
func (m *SettingsPaneModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	if m.form != nil {
		m.form.WithWidth(w - 8).WithHeight(h - 8)
	}
}

// SetVisible shows or hides the settings pane. Showing it rebuilds the form
// from the current config.
func (m *SettingsPaneModel) SetVisible(v bool) {
	m.visible = v
	m.saved = false
	m.err = nil

	if v {
		m.loadFromConfig()
		m.buildForm()
	}
}

// IsVisible returns whether the settings pane is currently visible.
func (m SettingsPaneModel) IsVisible() bool {
	return m.visible
}

// Saved reports whether the last form submission was written to disk.
func (m SettingsPaneModel) Saved() bool {
	return m.saved
}
