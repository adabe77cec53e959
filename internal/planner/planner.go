// Package planner schedules multi-asset projects: one calculator run per
// asset, in parallel, with a last-known-good fallback for assets whose
// recomputation fails.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aristath/timeline/internal/ctxlog"
	"github.com/aristath/timeline/internal/events"
	"github.com/aristath/timeline/internal/persistence"
	"github.com/aristath/timeline/internal/scheduler"
	"github.com/aristath/timeline/internal/timeline"
)

// Outcome classifies an asset's scheduling result.
type Outcome int

const (
	OutcomeComputed Outcome = iota // Fresh schedule
	OutcomeFallback                // Recompute failed; last-known-good served
	OutcomeFailed                  // Recompute failed and nothing to fall back to
)

func (o Outcome) String() string {
	switch o {
	case OutcomeComputed:
		return "computed"
	case OutcomeFallback:
		return "fallback"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Project is everything needed to schedule a set of assets.
type Project struct {
	Tasks     []scheduler.Task
	LiveDate  string
	Holidays  []string
	Overrides map[string]int
}

// Assets returns the project's asset ids in order of first appearance.
func (p Project) Assets() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range p.Tasks {
		if _, ok := seen[t.AssetID]; ok {
			continue
		}
		seen[t.AssetID] = struct{}{}
		out = append(out, t.AssetID)
	}
	return out
}

// TasksFor returns the tasks of one asset in input order.
func (p Project) TasksFor(assetID string) []scheduler.Task {
	var out []scheduler.Task
	for _, t := range p.Tasks {
		if t.AssetID == assetID {
			out = append(out, t)
		}
	}
	return out
}

// AssetResult is the outcome of scheduling one asset.
type AssetResult struct {
	AssetID string
	Outcome Outcome

	// Result is the fresh schedule, the fallback schedule, or the failed
	// calculator result.
	Result *timeline.Result

	// SnapshotID identifies the persisted schedule that Result came from or
	// was saved as. Empty without a store.
	SnapshotID string

	// Errors explains a failed recomputation, including when a fallback is
	// being served.
	Errors   []string
	Err      error
	Duration time.Duration
}

// Config configures the planner.
type Config struct {
	ConcurrencyLimit int // Assets scheduled at once (default 4)
	Breakers         BreakerSettings
	Retry            RetryConfig
	Calculator       timeline.Options
	Store            persistence.Store // Optional; enables persisted last-known-good
	Bus              *events.EventBus  // Optional event sink
	Now              func() time.Time  // Defaults to time.Now
}

type goodSchedule struct {
	result     *timeline.Result
	snapshotID string
	computedAt time.Time
}

// Planner schedules projects asset by asset. It is safe for concurrent use.
type Planner struct {
	cfg      Config
	breakers *BreakerRegistry

	mu       sync.Mutex
	calc     *timeline.Calculator
	lastGood map[string]goodSchedule
}

// New creates a planner. logger receives breaker state changes; nil uses
// slog.Default.
func New(cfg Config, logger *slog.Logger) *Planner {
	if cfg.ConcurrencyLimit <= 0 {
		cfg.ConcurrencyLimit = 4
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Planner{
		cfg:      cfg,
		calc:     timeline.NewCalculator(cfg.Calculator),
		breakers: NewBreakerRegistry(cfg.Breakers, logger),
		lastGood: make(map[string]goodSchedule),
	}
}

// SetCalculatorOptions replaces the calculator used by later runs. Known-good
// schedules are kept.
func (p *Planner) SetCalculatorOptions(opts timeline.Options) {
	calc := timeline.NewCalculator(opts)
	p.mu.Lock()
	p.calc = calc
	p.mu.Unlock()
}

func (p *Planner) calculator() *timeline.Calculator {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calc
}

// Breakers exposes the per-asset circuit breakers.
func (p *Planner) Breakers() *BreakerRegistry {
	return p.breakers
}

type progress struct {
	mu       sync.Mutex
	total    int
	computed int
	fallback int
	failed   int
}

func (pr *progress) record(o Outcome) events.ProjectProgressEvent {
	pr.mu.Lock()
	defer pr.mu.Unlock()
	switch o {
	case OutcomeComputed:
		pr.computed++
	case OutcomeFallback:
		pr.fallback++
	case OutcomeFailed:
		pr.failed++
	}
	return events.ProjectProgressEvent{
		Total:    pr.total,
		Computed: pr.computed,
		Fallback: pr.fallback,
		Failed:   pr.failed,
		Pending:  pr.total - pr.computed - pr.fallback - pr.failed,
	}
}

// Schedule computes every asset of the project. Results are in asset order.
// A failing asset never aborts the others; only context cancellation
// returns an error.
func (p *Planner) Schedule(ctx context.Context, project Project) ([]AssetResult, error) {
	log := ctxlog.FromContext(ctx)
	assets := project.Assets()
	results := make([]AssetResult, len(assets))
	pr := &progress{total: len(assets)}

	log.Info("scheduling project", "assets", len(assets), "tasks", len(project.Tasks), "live_date", project.LiveDate)

	calc := p.calculator()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.ConcurrencyLimit)

	for i, asset := range assets {
		i, asset := i, asset
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = p.scheduleAsset(gctx, calc, asset, project)

			ev := pr.record(results[i].Outcome)
			ev.Timestamp = p.cfg.Now()
			p.publish(ev)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// ScheduleAsset computes a single asset of the project.
func (p *Planner) ScheduleAsset(ctx context.Context, assetID string, project Project) AssetResult {
	return p.scheduleAsset(ctx, p.calculator(), assetID, project)
}

func (p *Planner) scheduleAsset(ctx context.Context, calc *timeline.Calculator, assetID string, project Project) AssetResult {
	log := ctxlog.FromContext(ctx).With("asset", assetID)
	start := p.cfg.Now()
	tasks := project.TasksFor(assetID)

	var res *timeline.Result
	_, err := p.breakers.Get(assetID).Execute(func() (interface{}, error) {
		res = calc.Calculate(tasks, project.LiveDate, project.Overrides, project.Holidays)
		return res, res.Err()
	})
	elapsed := p.cfg.Now().Sub(start)

	if err == nil {
		out := AssetResult{AssetID: assetID, Outcome: OutcomeComputed, Result: res, Duration: elapsed}
		out.SnapshotID = p.remember(ctx, assetID, res)

		log.Info("schedule computed", "path", res.Path, "start", res.ProjectStart, "end", res.ProjectEnd, "warnings", len(res.Warnings))
		p.publish(events.ScheduleComputedEvent{
			Asset:        assetID,
			Path:         string(res.Path),
			ProjectStart: res.ProjectStart,
			ProjectEnd:   res.ProjectEnd,
			CriticalPath: res.CriticalPath,
			Duration:     elapsed,
			Timestamp:    p.cfg.Now(),
		})
		for _, w := range res.Warnings {
			p.publish(events.ScheduleWarningEvent{Asset: assetID, Message: w, Timestamp: p.cfg.Now()})
		}
		return out
	}

	var errs []string
	switch {
	case isBreakerRejection(err):
		errs = []string{fmt.Sprintf("recomputation skipped: %v", err)}
	case res != nil && len(res.Errors) > 0:
		errs = res.Errors
	default:
		errs = []string{err.Error()}
	}
	if res == nil {
		res = &timeline.Result{Tasks: []timeline.TimelineTask{}, Errors: errs}
	}

	log.Warn("schedule failed", "error", err)
	p.publish(events.ScheduleFailedEvent{
		Asset:     assetID,
		Err:       err,
		Errors:    errs,
		Duration:  elapsed,
		Timestamp: p.cfg.Now(),
	})

	good, ok := p.lastKnownGood(ctx, assetID)
	if !ok {
		return AssetResult{AssetID: assetID, Outcome: OutcomeFailed, Result: res, Errors: errs, Err: err, Duration: elapsed}
	}

	log.Info("serving last-known-good schedule", "snapshot", good.snapshotID, "computed_at", good.computedAt)
	p.publish(events.FallbackUsedEvent{
		Asset:      assetID,
		SnapshotID: good.snapshotID,
		ComputedAt: good.computedAt,
		Timestamp:  p.cfg.Now(),
	})
	return AssetResult{
		AssetID:    assetID,
		Outcome:    OutcomeFallback,
		Result:     good.result,
		SnapshotID: good.snapshotID,
		Errors:     errs,
		Err:        err,
		Duration:   elapsed,
	}
}

// remember records a fresh schedule as the asset's last-known-good and
// persists it when a store is configured. Persistence failures are logged,
// not returned: the fresh schedule is still valid.
func (p *Planner) remember(ctx context.Context, assetID string, res *timeline.Result) string {
	good := goodSchedule{result: res, computedAt: p.cfg.Now()}

	if p.cfg.Store != nil {
		id, err := withRetry(ctx, p.cfg.Retry, func(ctx context.Context) (string, error) {
			return p.cfg.Store.SaveSchedule(ctx, assetID, res)
		})
		if err != nil {
			ctxlog.FromContext(ctx).Error("failed to persist schedule", "asset", assetID, "error", err)
		} else {
			good.snapshotID = id
		}
	}

	p.mu.Lock()
	p.lastGood[assetID] = good
	p.mu.Unlock()
	return good.snapshotID
}

// lastKnownGood returns the in-memory schedule, falling back to the store.
func (p *Planner) lastKnownGood(ctx context.Context, assetID string) (goodSchedule, bool) {
	p.mu.Lock()
	good, ok := p.lastGood[assetID]
	p.mu.Unlock()
	if ok {
		return good, true
	}
	if p.cfg.Store == nil {
		return goodSchedule{}, false
	}

	snap, err := withRetry(ctx, p.cfg.Retry, func(ctx context.Context) (*persistence.Snapshot, error) {
		return p.cfg.Store.LatestSchedule(ctx, assetID)
	})
	if err != nil {
		if !errors.Is(err, persistence.ErrNotFound) {
			ctxlog.FromContext(ctx).Error("failed to load last-known-good schedule", "asset", assetID, "error", err)
		}
		return goodSchedule{}, false
	}

	good = goodSchedule{result: snap.Result(), snapshotID: snap.ID, computedAt: snap.ComputedAt}
	p.mu.Lock()
	p.lastGood[assetID] = good
	p.mu.Unlock()
	return good, true
}

func (p *Planner) publish(e events.Event) {
	if p.cfg.Bus != nil {
		p.cfg.Bus.Emit(e)
	}
}

// LoadProject reads every task and the holiday calendar from the store.
func LoadProject(ctx context.Context, store persistence.Store, retry RetryConfig, liveDate string, overrides map[string]int) (Project, error) {
	tasks, err := withRetry(ctx, retry, func(ctx context.Context) ([]scheduler.Task, error) {
		return store.ListTasks(ctx, "")
	})
	if err != nil {
		return Project{}, fmt.Errorf("loading tasks: %w", err)
	}
	holidays, err := withRetry(ctx, retry, func(ctx context.Context) ([]string, error) {
		return store.ListHolidays(ctx)
	})
	if err != nil {
		return Project{}, fmt.Errorf("loading holidays: %w", err)
	}
	return Project{Tasks: tasks, LiveDate: liveDate, Holidays: holidays, Overrides: overrides}, nil
}
