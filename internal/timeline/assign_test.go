package timeline

import (
	"strings"
	"testing"

	"github.com/aristath/timeline/internal/calendar"
	"github.com/aristath/timeline/internal/scheduler"
	"github.com/google/go-cmp/cmp"
)

func fs(pred string, lag int) scheduler.Dependency {
	return scheduler.Dependency{PredecessorID: pred, Type: scheduler.FinishToStart, Lag: lag}
}

func holidays(t *testing.T, dates ...string) calendar.Holidays {
	t.Helper()
	h, err := calendar.NewHolidays(dates...)
	if err != nil {
		t.Fatalf("NewHolidays: %v", err)
	}
	return h
}

// assign runs the dependency-aware pipeline and fails the test on any error.
func assign(t *testing.T, tasks []scheduler.Task, live string, h calendar.Holidays, opts AssignOptions) *DateAssignmentResult {
	t.Helper()
	g := scheduler.BuildGraph(tasks, nil)
	if !g.Valid {
		t.Fatalf("build graph: %v", g.Errors)
	}
	cpm := scheduler.CalculateCriticalPath(g, scheduler.DefaultCPMOptions())
	if !cpm.Success {
		t.Fatalf("critical path: %v", cpm.Errors)
	}
	res := AssignDates(g, cpm, calendar.MustParseDate(live), h, opts)
	if !res.Success {
		t.Fatalf("assign dates: %v", res.Errors)
	}
	return res
}

type dates struct{ Start, End string }

func datesByID(tasks []TimelineTask) map[string]dates {
	out := make(map[string]dates, len(tasks))
	for _, t := range tasks {
		out[t.ID] = dates{t.Start, t.End}
	}
	return out
}

var anchored = AssignOptions{AnchorToLiveDate: true, AdjustForHolidays: true}

func TestAssignDates_OverlapScenario(t *testing.T) {
	tasks := []scheduler.Task{
		{ID: "A", Duration: 5, AssetID: "poster"},
		{ID: "B", Duration: 10, AssetID: "poster", Dependencies: []scheduler.Dependency{fs("A", -2)}},
		{ID: "C", Duration: 3, AssetID: "poster", Dependencies: []scheduler.Dependency{fs("B", -1)}},
	}
	res := assign(t, tasks, "2024-12-31", nil, anchored)

	want := map[string]dates{
		"A": {"2024-12-11", "2024-12-17"},
		"B": {"2024-12-16", "2024-12-27"},
		"C": {"2024-12-27", "2024-12-31"},
	}
	if diff := cmp.Diff(want, datesByID(res.Tasks)); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
	if res.ProjectStart != "2024-12-11" || res.ProjectEnd != "2024-12-31" {
		t.Errorf("project = %s..%s, want 2024-12-11..2024-12-31", res.ProjectStart, res.ProjectEnd)
	}

	span := calendar.WorkingDaysBetween(calendar.MustParseDate(res.ProjectStart), calendar.MustParseDate(res.ProjectEnd), nil)
	if span != 15 {
		t.Errorf("project spans %d working days, want 15", span)
	}
	if len(res.Warnings) != 0 {
		t.Errorf("dependency-justified overlaps must not warn, got %v", res.Warnings)
	}

	for _, tt := range res.Tasks {
		if tt.IsCritical == nil || !*tt.IsCritical {
			t.Errorf("task %s should be critical", tt.ID)
		}
		if tt.TotalFloat == nil || *tt.TotalFloat != 0 {
			t.Errorf("task %s should have zero float", tt.ID)
		}
	}
}

func TestAssignDates_WeekendLiveDate(t *testing.T) {
	tasks := []scheduler.Task{
		{ID: "A", Duration: 2, AssetID: "x"},
		{ID: "B", Duration: 1, AssetID: "x", Dependencies: []scheduler.Dependency{fs("A", 0)}},
	}

	tests := []struct {
		name string
		opts AssignOptions
		want map[string]dates
	}{
		{
			name: "anchored to saturday",
			opts: anchored,
			want: map[string]dates{
				"A": {"2024-12-26", "2024-12-27"},
				"B": {"2024-12-28", "2024-12-28"},
			},
		},
		{
			name: "snapped back to friday",
			opts: AssignOptions{AdjustForHolidays: true},
			want: map[string]dates{
				"A": {"2024-12-25", "2024-12-26"},
				"B": {"2024-12-27", "2024-12-27"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := assign(t, tasks, "2024-12-28", nil, tt.opts)
			if diff := cmp.Diff(tt.want, datesByID(res.Tasks)); diff != "" {
				t.Errorf("dates mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestAssignDates_WeekendLiveDateParallelTasks(t *testing.T) {
	tasks := []scheduler.Task{
		{ID: "A", Duration: 1, AssetID: "x"},
		{ID: "B", Duration: 1, AssetID: "x", Dependencies: []scheduler.Dependency{
			{PredecessorID: "A", Type: scheduler.StartToStart},
		}},
	}

	res := assign(t, tasks, "2024-12-28", nil, anchored)

	want := map[string]dates{
		"A": {"2024-12-28", "2024-12-28"},
		"B": {"2024-12-27", "2024-12-27"},
	}
	if diff := cmp.Diff(want, datesByID(res.Tasks)); diff != "" {
		t.Errorf("dates mismatch (-want +got):\n%s", diff)
	}
}

func TestAssignDates_FinishToStartNeverOverlaps(t *testing.T) {
	tasks := []scheduler.Task{
		{ID: "a", Duration: 3, AssetID: "x"},
		{ID: "b", Duration: 2, AssetID: "x", Dependencies: []scheduler.Dependency{fs("a", 0)}},
		{ID: "c", Duration: 4, AssetID: "x", Dependencies: []scheduler.Dependency{fs("b", 1)}},
		{ID: "d", Duration: 1, AssetID: "x", Dependencies: []scheduler.Dependency{fs("a", 0), fs("c", 0)}},
	}
	h := holidays(t, "2024-12-24", "2024-12-25", "2024-12-26")

	for _, live := range []string{"2024-12-27", "2024-12-28", "2024-12-29", "2025-01-01"} {
		for _, opts := range []AssignOptions{anchored, {AdjustForHolidays: true}, {}} {
			res := assign(t, tasks, live, h, opts)
			got := datesByID(res.Tasks)
			for _, tt := range tasks {
				for _, d := range tt.Dependencies {
					start := calendar.MustParseDate(got[tt.ID].Start)
					predEnd := calendar.MustParseDate(got[d.PredecessorID].End)
					if !start.After(predEnd) {
						t.Errorf("live %s %+v: %s starts %s, not after %s ends %s",
							live, opts, tt.ID, got[tt.ID].Start, d.PredecessorID, got[d.PredecessorID].End)
					}
				}
			}
		}
	}
}

func TestAssignDates_UnrelatedSameAssetOverlapWarns(t *testing.T) {
	ss := func(pred string) scheduler.Dependency {
		return scheduler.Dependency{PredecessorID: pred, Type: scheduler.StartToStart}
	}
	tasks := []scheduler.Task{
		{ID: "A", Duration: 5, AssetID: "x"},
		{ID: "B", Duration: 2, AssetID: "x", Dependencies: []scheduler.Dependency{ss("A")}},
		{ID: "C", Duration: 2, AssetID: "x", Dependencies: []scheduler.Dependency{ss("A")}},
	}
	res := assign(t, tasks, "2025-01-03", nil, anchored)

	if len(res.Warnings) != 1 || !strings.Contains(res.Warnings[0], `"B" and "C"`) {
		t.Errorf("warnings = %v, want one about B and C", res.Warnings)
	}
}

func TestAssignDates_RejectsFailedInputs(t *testing.T) {
	g := scheduler.BuildGraph([]scheduler.Task{
		{ID: "A", Duration: 1, AssetID: "x", Dependencies: []scheduler.Dependency{fs("B", 0)}},
		{ID: "B", Duration: 1, AssetID: "x", Dependencies: []scheduler.Dependency{fs("A", 0)}},
	}, nil)
	cpm := scheduler.CalculateCriticalPath(g, scheduler.DefaultCPMOptions())

	res := AssignDates(g, cpm, calendar.MustParseDate("2025-01-03"), nil, anchored)
	if res.Success || len(res.Tasks) != 0 {
		t.Fatalf("expected failure without tasks, got %+v", res)
	}
	if res.Err() == nil {
		t.Error("Err() returned nil for failed assignment")
	}
}

func TestValidateAssignment(t *testing.T) {
	task := func(id string, d int, start, end string) TimelineTask {
		return TimelineTask{Task: scheduler.Task{ID: id, Duration: d, AssetID: "x"}, Start: start, End: end}
	}

	tests := []struct {
		name        string
		tasks       []TimelineTask
		errContains string
	}{
		{name: "ok", tasks: []TimelineTask{task("a", 3, "2025-01-06", "2025-01-08")}},
		{name: "within tolerance", tasks: []TimelineTask{task("a", 3, "2025-01-06", "2025-01-10")}},
		{name: "unparsable", tasks: []TimelineTask{task("a", 1, "06/01/2025", "2025-01-06")}, errContains: "start"},
		{name: "end before start", tasks: []TimelineTask{task("a", 1, "2025-01-07", "2025-01-06")}, errContains: "before start"},
		{name: "span mismatch", tasks: []TimelineTask{task("a", 1, "2025-01-06", "2025-01-09")}, errContains: "spans 4 working days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, _ := validateAssignment(nil, tt.tasks, nil, "")
			if tt.errContains == "" {
				if len(errs) != 0 {
					t.Errorf("unexpected errors: %v", errs)
				}
				return
			}
			found := false
			for _, e := range errs {
				if strings.Contains(e, tt.errContains) {
					found = true
				}
			}
			if !found {
				t.Errorf("errors %v do not mention %q", errs, tt.errContains)
			}
		})
	}
}
