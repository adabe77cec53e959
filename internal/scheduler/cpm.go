package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

// Default CPM bounds.
const (
	DefaultMaxIterationsPerNode = 500
	DefaultTimeBudget           = 5 * time.Second
)

// CPMOptions bounds the forward and backward passes.
type CPMOptions struct {
	MaxIterationsPerNode int              // Queue iterations allowed per node, per pass
	TimeBudget           time.Duration    // Wall-clock budget for both passes together
	Clock                func() time.Time // Defaults to time.Now
}

// DefaultCPMOptions returns the default bounds.
func DefaultCPMOptions() CPMOptions {
	return CPMOptions{
		MaxIterationsPerNode: DefaultMaxIterationsPerNode,
		TimeBudget:           DefaultTimeBudget,
	}
}

// Timing holds the CPM figures of one node. Offsets are zero-based working
// days from project start; finishes are inclusive.
type Timing struct {
	TaskID         string
	EarliestStart  int
	EarliestFinish int
	LatestStart    int
	LatestFinish   int
	TotalFloat     int
	IsCritical     bool
}

// CPMResult is the outcome of CalculateCriticalPath. Timings live here, keyed
// by node id, rather than on the graph nodes.
type CPMResult struct {
	Timings         map[string]*Timing
	CriticalPath    []string // Zero-float task ids ordered by earliest start
	FinishOffset    int      // Maximum earliest finish over all nodes
	ProjectDuration int      // Working days spanned by the schedule
	Success         bool
	Errors          []string

	err error
}

// Err returns nil on success, otherwise an error wrapping
// ErrCPMBoundsExceeded or ErrCPMIncomplete.
func (r *CPMResult) Err() error {
	if r.Success {
		return nil
	}
	return r.err
}

type pass struct {
	name     string
	maxIter  int
	iter     int
	deadline time.Time
	now      func() time.Time
}

func (p *pass) step() error {
	p.iter++
	if p.iter > p.maxIter {
		return fmt.Errorf("%w: %s pass exceeded %d iterations", ErrCPMBoundsExceeded, p.name, p.maxIter)
	}
	if p.now().After(p.deadline) {
		return fmt.Errorf("%w: %s pass exceeded its time budget", ErrCPMBoundsExceeded, p.name)
	}
	return nil
}

type nodeStatus int

const (
	unprocessed nodeStatus = iota
	queued
	processed
)

// CalculateCriticalPath runs the forward and backward passes over a valid
// graph and derives float and the critical path. It never returns a partial
// result: any failure leaves Success false with the reason in Errors.
func CalculateCriticalPath(g *TaskGraph, opts CPMOptions) *CPMResult {
	if opts.MaxIterationsPerNode <= 0 {
		opts.MaxIterationsPerNode = DefaultMaxIterationsPerNode
	}
	if opts.TimeBudget <= 0 {
		opts.TimeBudget = DefaultTimeBudget
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	if !g.Valid {
		return failedCPM(fmt.Errorf("%w: graph is invalid", ErrCPMIncomplete))
	}

	timings := make(map[string]*Timing, len(g.Nodes))
	for _, id := range g.Order {
		timings[id] = &Timing{TaskID: id}
	}

	deadline := opts.Clock().Add(opts.TimeBudget)
	maxIter := opts.MaxIterationsPerNode * len(g.Nodes)

	fwd := &pass{name: "forward", maxIter: maxIter, deadline: deadline, now: opts.Clock}
	if err := forwardPass(g, timings, fwd); err != nil {
		return failedCPM(err)
	}

	finish := 0
	for _, t := range timings {
		if t.EarliestFinish > finish {
			finish = t.EarliestFinish
		}
	}

	bwd := &pass{name: "backward", maxIter: maxIter, deadline: deadline, now: opts.Clock}
	if err := backwardPass(g, timings, finish, bwd); err != nil {
		return failedCPM(err)
	}

	result := &CPMResult{
		Timings:         timings,
		FinishOffset:    finish,
		ProjectDuration: finish + 1,
		Success:         true,
	}

	for _, id := range g.Order {
		t := timings[id]
		t.TotalFloat = t.LatestStart - t.EarliestStart
		t.IsCritical = t.TotalFloat == 0
		if t.IsCritical {
			result.CriticalPath = append(result.CriticalPath, id)
		}
	}
	sort.SliceStable(result.CriticalPath, func(a, b int) bool {
		return timings[result.CriticalPath[a]].EarliestStart < timings[result.CriticalPath[b]].EarliestStart
	})

	return result
}

func failedCPM(err error) *CPMResult {
	return &CPMResult{Success: false, Errors: []string{err.Error()}, err: err}
}

// forwardPass computes earliest start and finish in readiness order.
func forwardPass(g *TaskGraph, timings map[string]*Timing, p *pass) error {
	status := make(map[string]nodeStatus, len(g.Nodes))
	waiting := make(map[string]int, len(g.Nodes))
	var queue []string

	for _, id := range g.Order {
		waiting[id] = len(g.Nodes[id].Dependencies)
	}
	for _, id := range g.StartNodes {
		status[id] = queued
		queue = append(queue, id)
	}

	done := 0
	for len(queue) > 0 {
		if err := p.step(); err != nil {
			return err
		}
		id := queue[0]
		queue = queue[1:]

		n := g.Nodes[id]
		es := 0
		for _, d := range n.Dependencies {
			pred := timings[d.PredecessorID]
			var c int
			switch d.Type {
			case StartToStart:
				c = pred.EarliestStart + d.Lag
			case FinishToFinish:
				c = pred.EarliestFinish + d.Lag - n.Duration() + 1
			default:
				c = pred.EarliestFinish + 1 + d.Lag
			}
			if c > es {
				es = c
			}
		}

		t := timings[id]
		t.EarliestStart = es
		t.EarliestFinish = es + n.Duration() - 1
		status[id] = processed
		done++

		for _, e := range n.Successors {
			waiting[e.SuccessorID]--
			if waiting[e.SuccessorID] == 0 && status[e.SuccessorID] == unprocessed {
				status[e.SuccessorID] = queued
				queue = append(queue, e.SuccessorID)
			}
		}
	}

	if done != len(g.Nodes) {
		return fmt.Errorf("%w: forward pass reached %d of %d tasks", ErrCPMIncomplete, done, len(g.Nodes))
	}
	return nil
}

// backwardPass computes latest start and finish in reverse readiness order.
// Latest finish never exceeds the project finish offset.
func backwardPass(g *TaskGraph, timings map[string]*Timing, finish int, p *pass) error {
	status := make(map[string]nodeStatus, len(g.Nodes))
	waiting := make(map[string]int, len(g.Nodes))
	var queue []string

	for _, id := range g.Order {
		waiting[id] = len(g.Nodes[id].Successors)
	}
	for _, id := range g.EndNodes {
		status[id] = queued
		queue = append(queue, id)
	}

	done := 0
	for len(queue) > 0 {
		if err := p.step(); err != nil {
			return err
		}
		id := queue[0]
		queue = queue[1:]

		n := g.Nodes[id]
		lf := finish
		for _, e := range n.Successors {
			succ := timings[e.SuccessorID]
			var c int
			switch e.Type {
			case StartToStart:
				c = succ.LatestStart - e.Lag + n.Duration() - 1
			case FinishToFinish:
				c = succ.LatestFinish - e.Lag
			default:
				c = succ.LatestStart - 1 - e.Lag
			}
			if c < lf {
				lf = c
			}
		}

		t := timings[id]
		t.LatestFinish = lf
		t.LatestStart = lf - n.Duration() + 1
		status[id] = processed
		done++

		for _, d := range n.Dependencies {
			waiting[d.PredecessorID]--
			if waiting[d.PredecessorID] == 0 && status[d.PredecessorID] == unprocessed {
				status[d.PredecessorID] = queued
				queue = append(queue, d.PredecessorID)
			}
		}
	}

	if done != len(g.Nodes) {
		return fmt.Errorf("%w: backward pass reached %d of %d tasks", ErrCPMIncomplete, done, len(g.Nodes))
	}
	return nil
}

// IsBoundsExceeded reports whether err came from a CPM iteration cap or
// time budget.
func IsBoundsExceeded(err error) bool {
	return errors.Is(err, ErrCPMBoundsExceeded)
}
