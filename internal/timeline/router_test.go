package timeline

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aristath/timeline/internal/scheduler"
	"github.com/google/go-cmp/cmp"
)

func TestCalculatorRouting(t *testing.T) {
	plain := []scheduler.Task{
		{ID: "a", Duration: 2, AssetID: "x"},
		{ID: "b", Duration: 1, AssetID: "x"},
	}
	linked := []scheduler.Task{
		{ID: "a", Duration: 2, AssetID: "x"},
		{ID: "b", Duration: 1, AssetID: "x", Dependencies: []scheduler.Dependency{fs("a", 0)}},
	}

	disabled := DefaultOptions()
	disabled.DAGEnabled = false
	forced := DefaultOptions()
	forced.ForceDAG = true

	tests := []struct {
		name        string
		opts        Options
		tasks       []scheduler.Task
		wantPath    Path
		wantWarning string
	}{
		{name: "no dependencies", opts: DefaultOptions(), tasks: plain, wantPath: PathSequential},
		{name: "dependencies", opts: DefaultOptions(), tasks: linked, wantPath: PathDAG},
		{name: "forced", opts: forced, tasks: plain, wantPath: PathDAG},
		{name: "disabled", opts: disabled, tasks: linked, wantPath: PathSequential, wantWarning: "ignored"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewCalculator(tt.opts).Calculate(tt.tasks, "2025-01-03", nil, nil)
			if !res.Success {
				t.Fatalf("Calculate: %v", res.Errors)
			}
			if res.Path != tt.wantPath {
				t.Errorf("Path = %s, want %s", res.Path, tt.wantPath)
			}
			if tt.wantWarning != "" && (len(res.Warnings) == 0 || !strings.Contains(res.Warnings[0], tt.wantWarning)) {
				t.Errorf("warnings = %v, want one mentioning %q", res.Warnings, tt.wantWarning)
			}
			if res.ProjectStart != "2025-01-01" || res.ProjectEnd != "2025-01-03" {
				t.Errorf("project = %s..%s, want 2025-01-01..2025-01-03", res.ProjectStart, res.ProjectEnd)
			}
			if res.ProjectDuration != 3 {
				t.Errorf("ProjectDuration = %d, want 3", res.ProjectDuration)
			}
			if res.Path == PathDAG && strings.Join(res.CriticalPath, ",") != "a,b" {
				t.Errorf("CriticalPath = %v, want [a b]", res.CriticalPath)
			}
		})
	}
}

func TestCalculatorFailures(t *testing.T) {
	calc := NewCalculator(DefaultOptions())
	cycle := []scheduler.Task{
		{ID: "A", Duration: 1, AssetID: "x", Dependencies: []scheduler.Dependency{fs("B", 0)}},
		{ID: "B", Duration: 1, AssetID: "x", Dependencies: []scheduler.Dependency{fs("A", 0)}},
	}
	one := []scheduler.Task{{ID: "a", Duration: 1, AssetID: "x"}}

	tests := []struct {
		name     string
		tasks    []scheduler.Task
		live     string
		holidays []string
		want     error
	}{
		{name: "bad live date", tasks: one, live: "31/12/2024", want: ErrInvalidInput},
		{name: "bad holiday", tasks: one, live: "2024-12-31", holidays: []string{"xmas"}, want: ErrInvalidInput},
		{name: "no tasks", live: "2024-12-31", want: ErrInvalidInput},
		{name: "mixed assets", tasks: []scheduler.Task{
			{ID: "a", Duration: 1, AssetID: "x"},
			{ID: "b", Duration: 1, AssetID: "y"},
		}, live: "2024-12-31", want: ErrInvalidInput},
		{name: "cycle", tasks: cycle, live: "2024-12-31", want: scheduler.ErrDependencyValidation},
		{name: "zero duration", tasks: []scheduler.Task{{ID: "a", Duration: 0, AssetID: "x"}}, live: "2024-12-31", want: ErrDateAssignment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := calc.Calculate(tt.tasks, tt.live, nil, tt.holidays)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Tasks == nil || len(res.Tasks) != 0 {
				t.Errorf("Tasks = %v, want empty non-nil slice", res.Tasks)
			}
			if len(res.Errors) == 0 {
				t.Error("failure carries no errors")
			}
			if !errors.Is(res.Err(), tt.want) {
				t.Errorf("Err() = %v, want %v", res.Err(), tt.want)
			}
		})
	}
}

func TestCalculatorBoundsExceeded(t *testing.T) {
	opts := DefaultOptions()
	opts.ForceDAG = true
	opts.CPM.Clock = func() func() time.Time {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		return func() time.Time {
			now = now.Add(time.Hour)
			return now
		}
	}()

	res := NewCalculator(opts).Calculate([]scheduler.Task{
		{ID: "a", Duration: 1, AssetID: "x"},
		{ID: "b", Duration: 1, AssetID: "x"},
	}, "2024-12-31", nil, nil)
	if !errors.Is(res.Err(), scheduler.ErrCPMBoundsExceeded) {
		t.Errorf("Err() = %v, want ErrCPMBoundsExceeded", res.Err())
	}
}

func TestCalculatorImportedBatch(t *testing.T) {
	data := []byte(`{
		"live_date": "2024-12-31",
		"tasks": [
			{"id": "A", "name": "Concept", "duration": 5, "asset_id": "poster"},
			{"id": "B", "name": "Artwork", "duration": 10, "asset_id": "poster",
			 "dependencies": [{"predecessorId": "A", "lag": -2}]},
			{"id": "C", "name": "Print", "duration": 3, "asset_id": "poster",
			 "dependencies": [{"predecessorId": "B", "type": "FS", "lag": -1}]}
		]
	}`)
	batch, warnings, err := scheduler.DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	calc := NewCalculator(DefaultOptions())
	first := calc.Calculate(batch.Tasks, batch.LiveDate, nil, batch.Holidays)
	if !first.Success {
		t.Fatalf("Calculate: %v", first.Errors)
	}
	if first.ProjectDuration != 15 {
		t.Errorf("ProjectDuration = %d, want 15", first.ProjectDuration)
	}
	if got := strings.Join(first.CriticalPath, ","); got != "A,B,C" {
		t.Errorf("CriticalPath = %s, want A,B,C", got)
	}

	second := calc.Calculate(batch.Tasks, batch.LiveDate, nil, batch.Holidays)
	if diff := cmp.Diff(first, second, cmp.AllowUnexported(Result{})); diff != "" {
		t.Errorf("repeated calculation differs (-first +second):\n%s", diff)
	}
}

func TestCalculatorEncodedBatchRoundTrip(t *testing.T) {
	batch := &scheduler.Batch{
		LiveDate: "2025-01-10",
		Holidays: []string{"2025-01-01"},
		Tasks: []scheduler.Task{
			{ID: "A", Name: "Concept", Duration: 3, Owner: "design", AssetID: "poster"},
			{ID: "B", Name: "Artwork", Duration: 4, AssetID: "poster", Dependencies: []scheduler.Dependency{fs("A", -1)}},
			{ID: "C", Name: "Copy", Duration: 2, AssetID: "poster", Dependencies: []scheduler.Dependency{
				{PredecessorID: "A", Type: scheduler.StartToStart, Lag: 1},
			}},
			{ID: "D", Name: "Print", Duration: 2, AssetID: "poster", Dependencies: []scheduler.Dependency{
				fs("B", 0),
				{PredecessorID: "C", Type: scheduler.FinishToFinish},
			}},
		},
	}

	data, err := scheduler.EncodeBatch(batch)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	decoded, warnings, err := scheduler.DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}

	calc := NewCalculator(DefaultOptions())
	want := calc.Calculate(batch.Tasks, batch.LiveDate, nil, batch.Holidays)
	if !want.Success {
		t.Fatalf("Calculate original: %v", want.Errors)
	}
	got := calc.Calculate(decoded.Tasks, decoded.LiveDate, nil, decoded.Holidays)
	if !got.Success {
		t.Fatalf("Calculate decoded: %v", got.Errors)
	}

	if diff := cmp.Diff(want.Tasks, got.Tasks); diff != "" {
		t.Errorf("timeline differs after round trip (-original +decoded):\n%s", diff)
	}
}
