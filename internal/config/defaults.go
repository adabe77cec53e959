package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aristath/timeline/internal/calendar"
	"github.com/aristath/timeline/internal/timeline"
)

const (
	DefaultConcurrencyLimit = 4
	DefaultFailureThreshold = 5
	DefaultCooldownSeconds  = 30
)

// DefaultStorePath is relative to the working directory.
var DefaultStorePath = filepath.Join(".timeline", "timeline.db")

func boolPtr(b bool) *bool { return &b }

// DefaultConfig returns the configuration used when no file overrides it.
func DefaultConfig() *ScheduleConfig {
	return &ScheduleConfig{
		DurationOverrides: map[string]int{},
		Calculator: CalculatorConfig{
			DAGEnabled:        boolPtr(true),
			ForceDAG:          boolPtr(false),
			AnchorToLiveDate:  boolPtr(true),
			AdjustForHolidays: boolPtr(true),
		},
		CPM: CPMConfig{
			MaxIterationsPerNode: 500,
			TimeBudgetMS:         5000,
		},
		Planner: PlannerConfig{
			ConcurrencyLimit: DefaultConcurrencyLimit,
			FailureThreshold: DefaultFailureThreshold,
			CooldownSeconds:  DefaultCooldownSeconds,
		},
		Store: StoreConfig{Path: DefaultStorePath},
	}
}

// Validate reports every problem in the configuration as one joined error.
func (c *ScheduleConfig) Validate() error {
	var errs []error
	if c.LiveDate != "" {
		if _, err := calendar.ParseDate(c.LiveDate); err != nil {
			errs = append(errs, fmt.Errorf("live_date: %w", err))
		}
	}
	for _, h := range c.Holidays {
		if _, err := calendar.ParseDate(h); err != nil {
			errs = append(errs, fmt.Errorf("holidays: %w", err))
		}
	}
	for name, d := range c.DurationOverrides {
		if d < 1 {
			errs = append(errs, fmt.Errorf("duration_overrides: %q must be at least 1, got %d", name, d))
		}
	}
	if c.CPM.MaxIterationsPerNode < 0 {
		errs = append(errs, fmt.Errorf("cpm.max_iterations_per_node must not be negative"))
	}
	if c.CPM.TimeBudgetMS < 0 {
		errs = append(errs, fmt.Errorf("cpm.time_budget_ms must not be negative"))
	}
	if c.Planner.ConcurrencyLimit < 0 {
		errs = append(errs, fmt.Errorf("planner.concurrency_limit must not be negative"))
	}
	if c.Planner.FailureThreshold < 0 {
		errs = append(errs, fmt.Errorf("planner.failure_threshold must not be negative"))
	}
	if c.Planner.CooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("planner.cooldown_seconds must not be negative"))
	}
	return errors.Join(errs...)
}

// CalculatorOptions converts the configuration into calculator options.
// Unset toggles take their defaults.
func (c *ScheduleConfig) CalculatorOptions() timeline.Options {
	opts := timeline.DefaultOptions()
	if c.Calculator.DAGEnabled != nil {
		opts.DAGEnabled = *c.Calculator.DAGEnabled
	}
	if c.Calculator.ForceDAG != nil {
		opts.ForceDAG = *c.Calculator.ForceDAG
	}
	if c.Calculator.AnchorToLiveDate != nil {
		opts.AnchorToLiveDate = *c.Calculator.AnchorToLiveDate
	}
	if c.Calculator.AdjustForHolidays != nil {
		opts.AdjustForHolidays = *c.Calculator.AdjustForHolidays
	}
	if c.CPM.MaxIterationsPerNode > 0 {
		opts.CPM.MaxIterationsPerNode = c.CPM.MaxIterationsPerNode
	}
	if c.CPM.TimeBudgetMS > 0 {
		opts.CPM.TimeBudget = time.Duration(c.CPM.TimeBudgetMS) * time.Millisecond
	}
	return opts
}

// Cooldown returns the planner breaker cooldown as a duration.
func (c *ScheduleConfig) Cooldown() time.Duration {
	return time.Duration(c.Planner.CooldownSeconds) * time.Second
}
