package config

// CalculatorConfig holds the feature toggles read by the calculator router.
// Pointers distinguish "unset" from false so layers merge cleanly.
type CalculatorConfig struct {
	DAGEnabled        *bool `json:"dag_enabled,omitempty"`         // Allow the dependency-aware path
	ForceDAG          *bool `json:"force_dag,omitempty"`           // Use it even without dependencies
	AnchorToLiveDate  *bool `json:"anchor_to_live_date,omitempty"` // Pin the last task to the exact live date
	AdjustForHolidays *bool `json:"adjust_for_holidays,omitempty"` // Snap end dates off weekends and holidays
}

// CPMConfig bounds each critical path computation.
type CPMConfig struct {
	MaxIterationsPerNode int `json:"max_iterations_per_node,omitempty"`
	TimeBudgetMS         int `json:"time_budget_ms,omitempty"`
}

// PlannerConfig tunes multi-asset scheduling.
type PlannerConfig struct {
	ConcurrencyLimit int `json:"concurrency_limit,omitempty"` // Assets scheduled in parallel
	FailureThreshold int `json:"failure_threshold,omitempty"` // Consecutive failures before an asset's breaker opens
	CooldownSeconds  int `json:"cooldown_seconds,omitempty"`  // How long an open breaker stays open
}

// StoreConfig locates the SQLite database.
type StoreConfig struct {
	Path string `json:"path,omitempty"`
}

// ScheduleConfig is the top-level configuration.
type ScheduleConfig struct {
	LiveDate          string           `json:"live_date,omitempty"`
	Holidays          []string         `json:"holidays,omitempty"`
	DurationOverrides map[string]int   `json:"duration_overrides,omitempty"`
	Calculator        CalculatorConfig `json:"calculator"`
	CPM               CPMConfig        `json:"cpm"`
	Planner           PlannerConfig    `json:"planner"`
	Store             StoreConfig      `json:"store"`
}
