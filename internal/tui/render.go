package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/aristath/timeline/internal/calendar"
	"github.com/aristath/timeline/internal/planner"
	"github.com/aristath/timeline/internal/timeline"
)

const (
	labelWidth    = 24
	minBarWidth   = 10
	defaultWidth  = 100
	barGlyph      = "█"
	criticalGlyph = "*"
)

// RenderPlain renders every asset's schedule for non-interactive output.
func RenderPlain(results []planner.AssetResult, width int) string {
	if width <= 0 {
		width = defaultWidth
	}
	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, RenderAsset(r, width))
	}
	return strings.Join(blocks, "\n\n") + "\n"
}

// RenderAsset renders one asset: a header, the task table, a Gantt chart,
// and any diagnostics.
func RenderAsset(r planner.AssetResult, width int) string {
	var b strings.Builder
	b.WriteString(assetHeader(r))
	b.WriteString("\n")

	res := r.Result
	if res != nil && len(res.Tasks) > 0 {
		b.WriteString(taskTable(res.Tasks))
		b.WriteString("\n")
		if lines := ganttLines(res, width); len(lines) > 0 {
			b.WriteString(strings.Join(lines, "\n"))
			b.WriteString("\n")
		}
	}

	for _, e := range r.Errors {
		b.WriteString(StyleFailed.Render("error: "))
		b.WriteString(e)
		b.WriteString("\n")
	}
	if res != nil {
		for _, w := range res.Warnings {
			b.WriteString(StyleWarning.Render("warning: "))
			b.WriteString(w)
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func assetHeader(r planner.AssetResult) string {
	title := StyleHeader.Render(r.AssetID)
	outcome := OutcomeLabel(r.Outcome)
	if r.Result == nil || !r.Result.Success {
		return fmt.Sprintf("%s  %s", title, outcome)
	}
	res := r.Result
	return fmt.Sprintf("%s  %s  %s  %s .. %s  (%d working days)",
		title, outcome, res.Path, res.ProjectStart, res.ProjectEnd, res.ProjectDuration)
}

// OutcomeLabel returns the styled outcome tag for an asset.
func OutcomeLabel(o planner.Outcome) string {
	label := "[" + o.String() + "]"
	switch o {
	case planner.OutcomeComputed:
		return StyleComputed.Render(label)
	case planner.OutcomeFallback:
		return StyleFallback.Render(label)
	case planner.OutcomeFailed:
		return StyleFailed.Render(label)
	default:
		return StylePending.Render(label)
	}
}

func taskTable(tasks []timeline.TimelineTask) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(StylePending).
		Headers("ID", "NAME", "OWNER", "START", "END", "DAYS", "FLOAT", "CRIT")

	for _, task := range tasks {
		float := "-"
		if task.TotalFloat != nil {
			float = strconv.Itoa(*task.TotalFloat)
		}
		crit := ""
		if isCritical(task) {
			crit = criticalGlyph
		}
		t.Row(task.ID, task.Name, task.Owner, task.Start, task.End, strconv.Itoa(task.Duration), float, crit)
	}
	return t.String()
}

func isCritical(task timeline.TimelineTask) bool {
	return task.IsCritical != nil && *task.IsCritical
}

// ganttLines draws one bar per task, scaled so the project's calendar span
// fills the space right of the label column.
func ganttLines(res *timeline.Result, width int) []string {
	projectStart, err := calendar.ParseDate(res.ProjectStart)
	if err != nil {
		return nil
	}
	projectEnd, err := calendar.ParseDate(res.ProjectEnd)
	if err != nil {
		return nil
	}
	span := daysBetween(projectStart, projectEnd) + 1
	if span <= 0 {
		return nil
	}
	barWidth := max(width-labelWidth-1, minBarWidth)
	col := func(d time.Time) int {
		return daysBetween(projectStart, d) * barWidth / span
	}

	lines := make([]string, 0, len(res.Tasks))
	for _, task := range res.Tasks {
		start, err := calendar.ParseDate(task.Start)
		if err != nil {
			continue
		}
		end, err := calendar.ParseDate(task.End)
		if err != nil {
			continue
		}
		from := min(max(col(start), 0), barWidth-1)
		to := min(max((daysBetween(projectStart, end)+1)*barWidth/span, from+1), barWidth)

		style := StyleBarNormal
		if isCritical(task) {
			style = StyleBarCritical
		}
		lines = append(lines, ganttLabel(task)+" "+strings.Repeat(" ", from)+style.Render(strings.Repeat(barGlyph, to-from)))
	}
	return lines
}

func ganttLabel(task timeline.TimelineTask) string {
	label := task.ID
	if task.Name != "" {
		label += " " + task.Name
	}
	if isCritical(task) {
		label = criticalGlyph + label
	}
	return fmt.Sprintf("%-*s", labelWidth, truncate(label, labelWidth))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
