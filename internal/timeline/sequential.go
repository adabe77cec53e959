package timeline

import (
	"fmt"
	"time"

	"github.com/aristath/timeline/internal/calendar"
	"github.com/aristath/timeline/internal/scheduler"
)

// CalculateSequential chains tasks back to back, ending on the live date.
//
// Tasks are walked in reverse input order. The last task ends on the anchor
// date; each earlier task ends on the working day before its successor
// starts. Declared dependencies are ignored. For a batch without
// dependencies the dates match AssignDates exactly.
func CalculateSequential(tasks []scheduler.Task, liveDate time.Time, overrides map[string]int, holidays calendar.Holidays, opts AssignOptions) *DateAssignmentResult {
	if len(tasks) == 0 {
		return failedAssignment([]string{"no tasks to schedule"}, nil)
	}

	var errs []string
	for _, t := range tasks {
		if d := scheduler.EffectiveDuration(t, overrides); d < 1 {
			errs = append(errs, fmt.Sprintf("task %q has duration %d; durations must be at least 1 working day", t.ID, d))
		}
	}
	if len(errs) > 0 {
		return failedAssignment(errs, nil)
	}

	anchor := calendar.Normalize(liveDate)
	if !opts.AnchorToLiveDate {
		anchor = calendar.OnOrBeforeWorkingDay(anchor, holidays)
	}

	out := make([]TimelineTask, len(tasks))
	end := anchor
	for i := len(tasks) - 1; i >= 0; i-- {
		t := tasks[i]
		t.Duration = scheduler.EffectiveDuration(t, overrides)
		if i < len(tasks)-1 {
			next, _ := calendar.ParseDate(out[i+1].Start)
			end = calendar.OnOrBeforeWorkingDay(next.AddDate(0, 0, -1), holidays)
		}
		start := calendar.SubtractWorkingDays(end, t.Duration-1, holidays)
		out[i] = TimelineTask{
			Task:  t,
			Start: calendar.FormatDate(start),
			End:   calendar.FormatDate(end),
		}
	}

	errs, _ = validateAssignment(nil, out, holidays, "")
	if len(errs) > 0 {
		return failedAssignment(errs, nil)
	}

	result := &DateAssignmentResult{Tasks: out, Success: true}
	result.ProjectStart, result.ProjectEnd = projectBounds(out)
	return result
}
