package timeline

import (
	"fmt"
	"time"

	"github.com/aristath/timeline/internal/calendar"
	"github.com/aristath/timeline/internal/scheduler"
)

// spanTolerance is how far, in working days, a task's calendar span may
// drift from its duration before assignment fails. It absorbs holiday
// snapping and live-date anchoring.
const spanTolerance = 2

// AssignOptions controls how offsets are anchored to the calendar.
type AssignOptions struct {
	// AnchorToLiveDate pins the terminal task's end to the exact live date
	// even when it is a weekend or holiday.
	AnchorToLiveDate bool

	// AdjustForHolidays snaps non-terminal end dates that land on a
	// non-working day back to the previous working day.
	AdjustForHolidays bool
}

type span struct {
	start, end time.Time
}

// AssignDates maps the CPM offsets of a solved graph onto calendar dates.
//
// The terminal task (first node with the greatest earliest finish) ends on
// the anchor date: the live date itself when AnchorToLiveDate is set,
// otherwise the live date or the working day before it. Every other task is
// placed relative to the project start, which is the terminal task's start
// moved back by its earliest start in working days.
func AssignDates(g *scheduler.TaskGraph, cpm *scheduler.CPMResult, liveDate time.Time, holidays calendar.Holidays, opts AssignOptions) *DateAssignmentResult {
	if !g.Valid {
		return failedAssignment([]string{"cannot assign dates to an invalid graph"}, g.Warnings)
	}
	if !cpm.Success {
		return failedAssignment(append([]string{"cannot assign dates without a critical path"}, cpm.Errors...), g.Warnings)
	}

	order, err := g.TopologicalOrder()
	if err != nil {
		return failedAssignment([]string{err.Error()}, g.Warnings)
	}

	var terminal *scheduler.Node
	for _, n := range g.NodesInOrder() {
		if terminal == nil || cpm.Timings[n.ID()].EarliestFinish > cpm.Timings[terminal.ID()].EarliestFinish {
			terminal = n
		}
	}

	anchor := calendar.Normalize(liveDate)
	if !opts.AnchorToLiveDate {
		anchor = calendar.OnOrBeforeWorkingDay(anchor, holidays)
	}
	terminalStart := calendar.SubtractWorkingDays(anchor, terminal.Duration()-1, holidays)
	// A weekend-anchored terminal task with no predecessors leaves the
	// project start on a non-working day; parallel tasks start on the
	// working day before it.
	projectStart := calendar.OnOrBeforeWorkingDay(
		calendar.SubtractWorkingDays(terminalStart, cpm.Timings[terminal.ID()].EarliestStart, holidays), holidays)

	dates := make(map[string]*span, len(g.Nodes))
	for _, n := range g.NodesInOrder() {
		if n == terminal {
			dates[n.ID()] = &span{start: terminalStart, end: anchor}
			continue
		}
		t := cpm.Timings[n.ID()]
		sp := &span{
			start: calendar.AddWorkingDays(projectStart, t.EarliestStart, holidays),
			end:   calendar.AddWorkingDays(projectStart, t.EarliestFinish, holidays),
		}
		if opts.AdjustForHolidays && calendar.IsNonWorkingDay(sp.end, holidays) {
			sp.end = calendar.PreviousWorkingDay(sp.end, holidays)
		}
		dates[n.ID()] = sp
	}

	pinned := ""
	if opts.AnchorToLiveDate {
		pinned = terminal.ID()
	}
	applyOrderingGuard(g, order, dates, holidays, pinned)

	result := &DateAssignmentResult{Warnings: append([]string(nil), g.Warnings...)}
	for _, n := range g.NodesInOrder() {
		sp := dates[n.ID()]
		t := cpm.Timings[n.ID()]
		result.Tasks = append(result.Tasks, TimelineTask{
			Task:       n.Task,
			Start:      calendar.FormatDate(sp.start),
			End:        calendar.FormatDate(sp.end),
			IsCritical: boolPtr(t.IsCritical),
			TotalFloat: intPtr(t.TotalFloat),
		})
	}

	errs, warnings := validateAssignment(g, result.Tasks, holidays, pinned)
	result.Warnings = append(result.Warnings, warnings...)
	if len(errs) > 0 {
		return failedAssignment(errs, result.Warnings)
	}

	result.ProjectStart, result.ProjectEnd = projectBounds(result.Tasks)
	result.Success = true
	return result
}

// applyOrderingGuard pushes successors of non-overlapping FS edges so that
// they start after the actual end of their predecessor, plus lag. Tasks are
// visited in dependency order so pushes cascade. Overlap edges (negative
// lag) and the pinned task are left alone.
func applyOrderingGuard(g *scheduler.TaskGraph, order []string, dates map[string]*span, holidays calendar.Holidays, pinned string) {
	for _, id := range order {
		if id == pinned {
			continue
		}
		n := g.Nodes[id]
		sp := dates[id]
		for _, d := range n.Dependencies {
			if d.Type != scheduler.FinishToStart || d.Lag < 0 {
				continue
			}
			pred := dates[d.PredecessorID]
			earliest := calendar.AddWorkingDays(calendar.NextWorkingDay(pred.end, holidays), d.Lag, holidays)
			if !sp.start.After(pred.end) || sp.start.Before(earliest) {
				sp.start = earliest
				sp.end = calendar.AddWorkingDays(earliest, n.Duration()-1, holidays)
			}
		}
	}
}

// validateAssignment checks every placed task. Hard failures are returned as
// errors; same-asset overlaps without a direct dependency are warnings.
func validateAssignment(g *scheduler.TaskGraph, tasks []TimelineTask, holidays calendar.Holidays, pinned string) (errs, warnings []string) {
	parsed := make([]span, len(tasks))

	for i, tt := range tasks {
		start, err := calendar.ParseDate(tt.Start)
		if err != nil {
			errs = append(errs, fmt.Sprintf("task %q: start: %v", tt.ID, err))
			continue
		}
		end, err := calendar.ParseDate(tt.End)
		if err != nil {
			errs = append(errs, fmt.Sprintf("task %q: end: %v", tt.ID, err))
			continue
		}
		parsed[i] = span{start: start, end: end}

		if end.Before(start) {
			errs = append(errs, fmt.Sprintf("task %q: end %s before start %s", tt.ID, tt.End, tt.Start))
			continue
		}

		worked := calendar.WorkingDaysBetween(start, end, holidays)
		if diff := worked - tt.Duration; diff > spanTolerance || diff < -spanTolerance {
			errs = append(errs, fmt.Sprintf("task %q: %s..%s spans %d working days but duration is %d", tt.ID, tt.Start, tt.End, worked, tt.Duration))
		}
	}
	if len(errs) > 0 || g == nil {
		return errs, warnings
	}

	if pinned != "" {
		idx := make(map[string]int, len(tasks))
		for i, tt := range tasks {
			idx[tt.ID] = i
		}
		for _, d := range g.Nodes[pinned].Dependencies {
			if d.Type != scheduler.FinishToStart || d.Lag < 0 {
				continue
			}
			if !parsed[idx[pinned]].start.After(parsed[idx[d.PredecessorID]].end) {
				errs = append(errs, fmt.Sprintf("task %q is anchored to the live date but starts before %q ends", pinned, d.PredecessorID))
			}
		}
	}

	for i := range tasks {
		for j := i + 1; j < len(tasks); j++ {
			a, b := tasks[i], tasks[j]
			if a.AssetID != b.AssetID {
				continue
			}
			if parsed[i].end.Before(parsed[j].start) || parsed[j].end.Before(parsed[i].start) {
				continue
			}
			if g.HasDirectRelation(a.ID, b.ID) {
				continue
			}
			warnings = append(warnings, fmt.Sprintf("tasks %q and %q of asset %q overlap without a dependency", a.ID, b.ID, a.AssetID))
		}
	}
	return errs, warnings
}

func projectBounds(tasks []TimelineTask) (start, end string) {
	for _, t := range tasks {
		if start == "" || t.Start < start {
			start = t.Start
		}
		if end == "" || t.End > end {
			end = t.End
		}
	}
	return start, end
}
