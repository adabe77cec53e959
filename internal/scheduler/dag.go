package scheduler

import (
	"fmt"
)

// Edge is an outgoing dependency edge, stored on the predecessor.
type Edge struct {
	SuccessorID string
	Type        DependencyType
	Lag         int
	Implicit    bool
}

// Node is one task in a TaskGraph. Nodes are built fresh for every
// computation and never shared across runs.
type Node struct {
	Task         Task         // Copy of the input task with the effective duration applied
	Index        int          // Position in the input batch
	Dependencies []Dependency // Sanitized explicit edges plus any implicit sequential edge
	Successors   []Edge       // Inverse of every node's Dependencies
}

// ID returns the node's task id.
func (n *Node) ID() string { return n.Task.ID }

// Duration returns the node's effective duration in working days.
func (n *Node) Duration() int { return n.Task.Duration }

// TaskGraph is the dependency graph of one scheduling batch.
// An invalid graph must not be scheduled; callers produce nothing for it.
type TaskGraph struct {
	Nodes      map[string]*Node
	Order      []string // Task ids in input order
	StartNodes []string // Nodes without dependencies, input order
	EndNodes   []string // Nodes without successors, input order
	Valid      bool
	Errors     []string
	Warnings   []string
}

// Err returns nil for a valid graph, otherwise an error wrapping
// ErrGraphConstruction or ErrDependencyValidation.
func (g *TaskGraph) Err() error {
	if g.Valid {
		return nil
	}
	if len(g.Nodes) == 0 && len(g.Errors) > 0 {
		return joinErrors(ErrGraphConstruction, g.Errors)
	}
	return joinErrors(ErrDependencyValidation, g.Errors)
}

// Get returns the node for id.
func (g *TaskGraph) Get(id string) (*Node, bool) {
	n, ok := g.Nodes[id]
	return n, ok
}

// NodesInOrder returns the graph's nodes in input order.
func (g *TaskGraph) NodesInOrder() []*Node {
	out := make([]*Node, 0, len(g.Order))
	for _, id := range g.Order {
		out = append(out, g.Nodes[id])
	}
	return out
}

// HasDirectRelation reports whether a depends on b or b depends on a.
func (g *TaskGraph) HasDirectRelation(a, b string) bool {
	na, okA := g.Nodes[a]
	nb, okB := g.Nodes[b]
	if !okA || !okB {
		return false
	}
	for _, d := range na.Dependencies {
		if d.PredecessorID == b {
			return true
		}
	}
	for _, d := range nb.Dependencies {
		if d.PredecessorID == a {
			return true
		}
	}
	return false
}

func invalidGraph(msgs ...string) *TaskGraph {
	return &TaskGraph{
		Nodes:  make(map[string]*Node),
		Valid:  false,
		Errors: msgs,
	}
}

// BuildGraph constructs the task graph for one batch.
//
// Declared dependencies are sanitized; a task left without dependencies that
// is not the first task of its asset receives an implicit FS edge (lag 0) on
// the preceding task of the same asset. The graph is then validated; any
// validation error marks it invalid. Duration overrides are keyed by task
// name.
func BuildGraph(tasks []Task, overrides map[string]int) (g *TaskGraph) {
	defer func() {
		if r := recover(); r != nil {
			g = invalidGraph(fmt.Sprintf("graph construction error: %v", r))
		}
	}()

	if len(tasks) == 0 {
		return invalidGraph("graph construction error: no tasks")
	}

	batch := make(map[string]struct{}, len(tasks))
	for _, t := range tasks {
		if t.ID == "" {
			return invalidGraph(fmt.Sprintf("graph construction error: task %q has no id", t.Name))
		}
		if _, dup := batch[t.ID]; dup {
			return invalidGraph(fmt.Sprintf("graph construction error: duplicate task id %q", t.ID))
		}
		batch[t.ID] = struct{}{}
	}

	g = &TaskGraph{
		Nodes: make(map[string]*Node, len(tasks)),
		Order: make([]string, 0, len(tasks)),
	}

	lastInAsset := make(map[string]string)
	for i, t := range tasks {
		task := cloneTask(t)
		task.Duration = EffectiveDuration(t, overrides)

		deps, warnings := SanitizeDependencies(t.ID, t.Dependencies, batch)
		g.Warnings = append(g.Warnings, warnings...)

		if len(deps) == 0 {
			if prev, ok := lastInAsset[t.AssetID]; ok {
				deps = []Dependency{{PredecessorID: prev, Type: FinishToStart, Implicit: true}}
			}
		}
		lastInAsset[t.AssetID] = t.ID

		g.Nodes[t.ID] = &Node{Task: task, Index: i, Dependencies: deps}
		g.Order = append(g.Order, t.ID)
	}

	for _, id := range g.Order {
		n := g.Nodes[id]
		for _, d := range n.Dependencies {
			pred := g.Nodes[d.PredecessorID]
			pred.Successors = append(pred.Successors, Edge{
				SuccessorID: id,
				Type:        d.Type,
				Lag:         d.Lag,
				Implicit:    d.Implicit,
			})
		}
	}

	if res := ValidateDependencies(g, tasks); !res.Valid {
		g.Valid = false
		g.Errors = res.Errors
		return g
	}

	for _, id := range g.Order {
		n := g.Nodes[id]
		if len(n.Dependencies) == 0 {
			g.StartNodes = append(g.StartNodes, id)
		}
		if len(n.Successors) == 0 {
			g.EndNodes = append(g.EndNodes, id)
		}
	}

	g.Valid = true
	return g
}

// readinessOrder returns node ids such that every node follows all of its
// predecessors. Ties are broken by input order. ok is false if some node
// never became ready, which only happens on a cyclic graph.
func (g *TaskGraph) readinessOrder() (order []string, ok bool) {
	pending := make(map[string]int, len(g.Nodes))
	var queue []string
	for _, id := range g.Order {
		pending[id] = len(g.Nodes[id].Dependencies)
		if pending[id] == 0 {
			queue = append(queue, id)
		}
	}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)
		for _, e := range g.Nodes[id].Successors {
			pending[e.SuccessorID]--
			if pending[e.SuccessorID] == 0 {
				queue = append(queue, e.SuccessorID)
			}
		}
	}

	return order, len(order) == len(g.Nodes)
}

// TopologicalOrder returns the graph's node ids in dependency order, ties
// broken by input order. It returns an error for a cyclic graph.
func (g *TaskGraph) TopologicalOrder() ([]string, error) {
	order, ok := g.readinessOrder()
	if !ok {
		return nil, fmt.Errorf("%w: %d of %d tasks could not be ordered", ErrDependencyValidation, len(order), len(g.Nodes))
	}
	return order, nil
}
