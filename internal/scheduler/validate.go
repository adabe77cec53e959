package scheduler

import (
	"fmt"
	"strings"

	"github.com/gammazero/toposort"
)

// ValidationResult is the outcome of ValidateDependencies.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// ValidateDependencies checks a built graph against the batch it was built
// from. Every violation is reported; nothing is dropped silently:
//   - durations below one working day
//   - dependencies on tasks outside the batch
//   - the same predecessor listed twice (duplicate) or with different types
//     (contradictory)
//   - FS overlaps larger than the predecessor's duration
//   - cycles of any length
func ValidateDependencies(g *TaskGraph, declared []Task) ValidationResult {
	var errs []string

	batch := make(map[string]struct{}, len(declared))
	for _, t := range declared {
		batch[t.ID] = struct{}{}
	}

	for _, t := range declared {
		for _, d := range t.Dependencies {
			if d.PredecessorID == "" || d.PredecessorID == t.ID {
				continue
			}
			if _, ok := batch[d.PredecessorID]; !ok {
				errs = append(errs, fmt.Sprintf("task %q depends on task %q which is not in this batch", t.ID, d.PredecessorID))
			}
		}
	}

	for _, n := range g.NodesInOrder() {
		if n.Duration() < 1 {
			errs = append(errs, fmt.Sprintf("task %q has duration %d; durations must be at least 1 working day", n.ID(), n.Duration()))
		}

		seen := make(map[string]DependencyType, len(n.Dependencies))
		for _, d := range n.Dependencies {
			if prev, ok := seen[d.PredecessorID]; ok {
				if prev == d.Type {
					errs = append(errs, fmt.Sprintf("task %q has duplicate %s dependency on %q", n.ID(), d.Type, d.PredecessorID))
				} else {
					errs = append(errs, fmt.Sprintf("task %q has contradictory dependencies on %q (%s and %s)", n.ID(), d.PredecessorID, prev, d.Type))
				}
				continue
			}
			seen[d.PredecessorID] = d.Type

			if d.Type == FinishToStart && d.Lag < 0 {
				pred := g.Nodes[d.PredecessorID]
				if -d.Lag > pred.Duration() {
					errs = append(errs, fmt.Sprintf("task %q overlaps %q by %d working days, more than its %d-day duration", n.ID(), d.PredecessorID, -d.Lag, pred.Duration()))
				}
			}
		}
	}

	if cycle := detectCycle(g); cycle != nil {
		errs = append(errs, fmt.Sprintf("dependency cycle detected: %s", strings.Join(cycle, " -> ")))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// detectCycle returns a cycle path (first node repeated at the end) or nil.
// Acyclicity is decided by a topological sort; the explicit-stack DFS only
// runs to name the cycle members.
func detectCycle(g *TaskGraph) []string {
	edges := make([]toposort.Edge, 0, len(g.Order))
	for _, id := range g.Order {
		n := g.Nodes[id]
		if len(n.Dependencies) == 0 {
			edges = append(edges, toposort.Edge{nil, id})
			continue
		}
		for _, d := range n.Dependencies {
			edges = append(edges, toposort.Edge{d.PredecessorID, id})
		}
	}

	if _, err := toposort.Toposort(edges); err == nil {
		return nil
	}

	if cycle := findCycle(g); cycle != nil {
		return cycle
	}
	return []string{"(unresolved)"}
}

const (
	white = iota
	gray
	black
)

func findCycle(g *TaskGraph) []string {
	color := make(map[string]int, len(g.Nodes))
	parent := make(map[string]string, len(g.Nodes))

	type frame struct {
		id   string
		next int
	}

	for _, root := range g.Order {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack := []frame{{id: root}}

		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			succs := g.Nodes[top.id].Successors
			if top.next >= len(succs) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}

			next := succs[top.next].SuccessorID
			top.next++

			switch color[next] {
			case gray:
				cycle := []string{top.id}
				for cur := top.id; cur != next; {
					cur = parent[cur]
					cycle = append(cycle, cur)
				}
				for i, j := 0, len(cycle)-1; i < j; i, j = i+1, j-1 {
					cycle[i], cycle[j] = cycle[j], cycle[i]
				}
				return append(cycle, next)
			case white:
				color[next] = gray
				parent[next] = top.id
				stack = append(stack, frame{id: next})
			}
		}
	}
	return nil
}
