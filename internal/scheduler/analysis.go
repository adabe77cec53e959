package scheduler

import (
	"fmt"
	"sort"
)

// TaskTiming is one row of the per-task timing table.
type TaskTiming struct {
	TaskID         string
	Name           string
	Duration       int
	EarliestStart  int
	EarliestFinish int
	LatestStart    int
	LatestFinish   int
	TotalFloat     int
	IsCritical     bool
}

// TimingTable returns one row per node ordered by earliest start, ties by
// input order.
func TimingTable(g *TaskGraph, r *CPMResult) []TaskTiming {
	if !r.Success {
		return nil
	}
	rows := make([]TaskTiming, 0, len(g.Order))
	for _, n := range g.NodesInOrder() {
		t := r.Timings[n.ID()]
		rows = append(rows, TaskTiming{
			TaskID:         n.ID(),
			Name:           n.Task.Name,
			Duration:       n.Duration(),
			EarliestStart:  t.EarliestStart,
			EarliestFinish: t.EarliestFinish,
			LatestStart:    t.LatestStart,
			LatestFinish:   t.LatestFinish,
			TotalFloat:     t.TotalFloat,
			IsCritical:     t.IsCritical,
		})
	}
	sort.SliceStable(rows, func(a, b int) bool {
		return rows[a].EarliestStart < rows[b].EarliestStart
	})
	return rows
}

// CompressionOpportunity is a task that can slip without moving the
// project end.
type CompressionOpportunity struct {
	TaskID     string
	Name       string
	Duration   int
	TotalFloat int
}

// CompressionOpportunities lists tasks with positive float, largest float
// first.
func CompressionOpportunities(g *TaskGraph, r *CPMResult) []CompressionOpportunity {
	var out []CompressionOpportunity
	for _, row := range TimingTable(g, r) {
		if row.TotalFloat > 0 {
			out = append(out, CompressionOpportunity{
				TaskID:     row.TaskID,
				Name:       row.Name,
				Duration:   row.Duration,
				TotalFloat: row.TotalFloat,
			})
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].TotalFloat > out[b].TotalFloat
	})
	return out
}

// CheckConsistency verifies the invariants of a solved graph and returns one
// message per violation. An empty result means the schedule is consistent.
func CheckConsistency(g *TaskGraph, r *CPMResult) []string {
	if !r.Success {
		return []string{"critical path computation did not succeed"}
	}

	var issues []string
	for _, n := range g.NodesInOrder() {
		t, ok := r.Timings[n.ID()]
		if !ok {
			issues = append(issues, fmt.Sprintf("task %q has no timing", n.ID()))
			continue
		}
		d := n.Duration()
		if t.EarliestFinish != t.EarliestStart+d-1 {
			issues = append(issues, fmt.Sprintf("task %q: earliest finish %d != start %d + duration %d - 1", n.ID(), t.EarliestFinish, t.EarliestStart, d))
		}
		if t.LatestFinish != t.LatestStart+d-1 {
			issues = append(issues, fmt.Sprintf("task %q: latest finish %d != start %d + duration %d - 1", n.ID(), t.LatestFinish, t.LatestStart, d))
		}
		if t.LatestStart < t.EarliestStart {
			issues = append(issues, fmt.Sprintf("task %q: latest start %d before earliest start %d", n.ID(), t.LatestStart, t.EarliestStart))
		}
		if t.IsCritical && t.TotalFloat != 0 {
			issues = append(issues, fmt.Sprintf("task %q: critical with float %d", n.ID(), t.TotalFloat))
		}
	}

	if len(g.Nodes) > 0 && len(r.CriticalPath) == 0 {
		issues = append(issues, "critical path is empty")
	}
	return issues
}
