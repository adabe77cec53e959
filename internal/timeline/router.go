package timeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/timeline/internal/calendar"
	"github.com/aristath/timeline/internal/scheduler"
)

// Path names the calculator that produced a Result.
type Path string

const (
	PathSequential Path = "sequential"
	PathDAG        Path = "dag"
)

// Options configures a Calculator.
type Options struct {
	// DAGEnabled allows the dependency-aware path. When false every batch is
	// scheduled sequentially and declared dependencies are ignored.
	DAGEnabled bool

	// ForceDAG runs the dependency-aware path even when no task declares a
	// dependency.
	ForceDAG bool

	AnchorToLiveDate  bool
	AdjustForHolidays bool

	CPM scheduler.CPMOptions
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		DAGEnabled:        true,
		AnchorToLiveDate:  true,
		AdjustForHolidays: true,
		CPM:               scheduler.DefaultCPMOptions(),
	}
}

func (o Options) assign() AssignOptions {
	return AssignOptions{
		AnchorToLiveDate:  o.AnchorToLiveDate,
		AdjustForHolidays: o.AdjustForHolidays,
	}
}

// Result is what a Calculator returns, whichever path ran.
type Result struct {
	Tasks           []TimelineTask
	Path            Path
	ProjectStart    string
	ProjectEnd      string
	CriticalPath    []string
	ProjectDuration int
	Success         bool
	Errors          []string
	Warnings        []string

	kind error
}

// Err returns nil on success. Otherwise the error wraps the sentinel of the
// stage that failed, so callers can use errors.Is.
func (r *Result) Err() error {
	if r.Success {
		return nil
	}
	kind := r.kind
	if kind == nil {
		kind = ErrDateAssignment
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(r.Errors, "; "))
}

// Calculator routes a batch to the sequential or dependency-aware path.
// It holds no state between calls and is safe for concurrent use.
type Calculator struct {
	opts Options
}

// NewCalculator returns a Calculator. A zero CPM budget falls back to the
// defaults.
func NewCalculator(opts Options) *Calculator {
	def := scheduler.DefaultCPMOptions()
	if opts.CPM.MaxIterationsPerNode <= 0 {
		opts.CPM.MaxIterationsPerNode = def.MaxIterationsPerNode
	}
	if opts.CPM.TimeBudget <= 0 {
		opts.CPM.TimeBudget = def.TimeBudget
	}
	return &Calculator{opts: opts}
}

// Options returns the calculator's effective options.
func (c *Calculator) Options() Options {
	return c.opts
}

// Calculate schedules one asset's batch so that it finishes on liveDate.
// A batch spanning several assets is rejected with ErrInvalidInput.
func (c *Calculator) Calculate(tasks []scheduler.Task, liveDate string, overrides map[string]int, holidays []string) *Result {
	live, err := calendar.ParseDate(liveDate)
	if err != nil {
		return failedResult(ErrInvalidInput, "", []string{fmt.Sprintf("live date: %v", err)}, nil)
	}
	h, err := calendar.NewHolidays(holidays...)
	if err != nil {
		return failedResult(ErrInvalidInput, "", []string{err.Error()}, nil)
	}
	if len(tasks) == 0 {
		return failedResult(ErrInvalidInput, "", []string{"no tasks to schedule"}, nil)
	}
	for _, t := range tasks[1:] {
		if t.AssetID != tasks[0].AssetID {
			return failedResult(ErrInvalidInput, "", []string{fmt.Sprintf("batch mixes assets %q and %q; schedule one asset per call", tasks[0].AssetID, t.AssetID)}, nil)
		}
	}

	hasDeps := scheduler.HasDependencies(tasks)
	if !c.opts.DAGEnabled || (!hasDeps && !c.opts.ForceDAG) {
		var warnings []string
		if hasDeps {
			warnings = append(warnings, "dependency scheduling is disabled; declared dependencies were ignored")
		}
		return c.sequential(tasks, live, overrides, h, warnings)
	}
	return c.dag(tasks, live, overrides, h)
}

func (c *Calculator) sequential(tasks []scheduler.Task, live time.Time, overrides map[string]int, h calendar.Holidays, warnings []string) *Result {
	res := CalculateSequential(tasks, live, overrides, h, c.opts.assign())
	warnings = append(warnings, res.Warnings...)
	if !res.Success {
		return failedResult(ErrDateAssignment, PathSequential, res.Errors, warnings)
	}

	duration := 0
	for _, t := range res.Tasks {
		duration += t.Duration
	}
	return &Result{
		Tasks:           res.Tasks,
		Path:            PathSequential,
		ProjectStart:    res.ProjectStart,
		ProjectEnd:      res.ProjectEnd,
		ProjectDuration: duration,
		Success:         true,
		Warnings:        warnings,
	}
}

func (c *Calculator) dag(tasks []scheduler.Task, live time.Time, overrides map[string]int, h calendar.Holidays) *Result {
	g := scheduler.BuildGraph(tasks, overrides)
	if !g.Valid {
		kind := scheduler.ErrDependencyValidation
		if len(g.Nodes) == 0 {
			kind = scheduler.ErrGraphConstruction
		}
		return failedResult(kind, PathDAG, g.Errors, g.Warnings)
	}

	cpm := scheduler.CalculateCriticalPath(g, c.opts.CPM)
	if !cpm.Success {
		kind := scheduler.ErrCPMIncomplete
		if scheduler.IsBoundsExceeded(cpm.Err()) {
			kind = scheduler.ErrCPMBoundsExceeded
		}
		return failedResult(kind, PathDAG, cpm.Errors, g.Warnings)
	}

	res := AssignDates(g, cpm, live, h, c.opts.assign())
	if !res.Success {
		return failedResult(ErrDateAssignment, PathDAG, res.Errors, res.Warnings)
	}
	return &Result{
		Tasks:           res.Tasks,
		Path:            PathDAG,
		ProjectStart:    res.ProjectStart,
		ProjectEnd:      res.ProjectEnd,
		CriticalPath:    cpm.CriticalPath,
		ProjectDuration: cpm.ProjectDuration,
		Success:         true,
		Warnings:        res.Warnings,
	}
}

func failedResult(kind error, path Path, errs, warnings []string) *Result {
	return &Result{
		Tasks:    []TimelineTask{},
		Path:     path,
		Success:  false,
		Errors:   errs,
		Warnings: warnings,
		kind:     kind,
	}
}
