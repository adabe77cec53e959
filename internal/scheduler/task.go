package scheduler

// DependencyType is the relationship between a predecessor and its successor.
type DependencyType string

const (
	FinishToStart  DependencyType = "FS" // Successor starts after predecessor finishes
	StartToStart   DependencyType = "SS" // Successor start aligned to predecessor start
	FinishToFinish DependencyType = "FF" // Successor finish aligned to predecessor finish
)

// IsValid reports whether t is one of the supported relationship types.
func (t DependencyType) IsValid() bool {
	switch t {
	case FinishToStart, StartToStart, FinishToFinish:
		return true
	}
	return false
}

// Dependency links a task to one of its predecessors.
// Negative Lag on an FS edge is an overlap: the successor may start up to
// |Lag| working days before the predecessor finishes.
type Dependency struct {
	PredecessorID string         `json:"predecessorId"`
	Type          DependencyType `json:"type"`
	Lag           int            `json:"lag"`
	Implicit      bool           `json:"-"` // Synthesized sequential edge, never persisted
}

// Task is a unit of work scheduled in whole working days.
// Tasks are immutable inputs; the engine never writes to them.
type Task struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Duration     int          `json:"duration"`           // Working days, >= 1
	Owner        string       `json:"owner,omitempty"`    // Owner tag (team or person)
	AssetID      string       `json:"asset_id"`           // Asset the task belongs to
	Dependencies []Dependency `json:"dependencies,omitempty"`
}

// HasDependencies reports whether any task in the batch declares a dependency.
func HasDependencies(tasks []Task) bool {
	for _, t := range tasks {
		if len(t.Dependencies) > 0 {
			return true
		}
	}
	return false
}

// EffectiveDuration returns the task duration after applying a per-run
// override keyed by task name.
func EffectiveDuration(t Task, overrides map[string]int) int {
	if d, ok := overrides[t.Name]; ok {
		return d
	}
	return t.Duration
}

func cloneTask(t Task) Task {
	cp := t
	if t.Dependencies != nil {
		cp.Dependencies = append([]Dependency(nil), t.Dependencies...)
	}
	return cp
}
