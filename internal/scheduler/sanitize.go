package scheduler

import "fmt"

// SanitizeDependencies normalizes a task's declared dependency list.
// Self references, references outside the batch, and unknown relationship
// types are dropped; an empty type defaults to FS. Each dropped entry yields
// a warning. Dangling references are also reported as errors by
// ValidateDependencies, which is the authoritative gate.
func SanitizeDependencies(taskID string, deps []Dependency, batch map[string]struct{}) ([]Dependency, []string) {
	if len(deps) == 0 {
		return nil, nil
	}

	var warnings []string
	out := make([]Dependency, 0, len(deps))

	for _, dep := range deps {
		switch {
		case dep.PredecessorID == "":
			warnings = append(warnings, fmt.Sprintf("task %q: dropped dependency with empty predecessor", taskID))
			continue
		case dep.PredecessorID == taskID:
			warnings = append(warnings, fmt.Sprintf("task %q: dropped self-referencing dependency", taskID))
			continue
		}

		if _, ok := batch[dep.PredecessorID]; !ok {
			warnings = append(warnings, fmt.Sprintf("task %q: dropped dependency on unknown task %q", taskID, dep.PredecessorID))
			continue
		}

		if dep.Type == "" {
			dep.Type = FinishToStart
		}
		if !dep.Type.IsValid() {
			warnings = append(warnings, fmt.Sprintf("task %q: dropped dependency on %q with unknown type %q", taskID, dep.PredecessorID, dep.Type))
			continue
		}

		dep.Implicit = false
		out = append(out, dep)
	}

	return out, warnings
}
