package scheduler

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestTimingTable(t *testing.T) {
	// c is listed before b so the tie at ES=5 keeps input order.
	tasks := []Task{
		{ID: "a", Name: "Brief", Duration: 5, AssetID: "x"},
		{ID: "c", Name: "Shoot", Duration: 10, AssetID: "x", Dependencies: []Dependency{fs("a", 0)}},
		{ID: "b", Name: "Copy", Duration: 1, AssetID: "x", Dependencies: []Dependency{fs("a", 0)}},
		{ID: "d", Name: "Deliver", Duration: 1, AssetID: "x", Dependencies: []Dependency{fs("b", 0), fs("c", 0)}},
	}
	g, res := solve(t, tasks)

	want := []TaskTiming{
		{TaskID: "a", Name: "Brief", Duration: 5, EarliestStart: 0, EarliestFinish: 4, LatestStart: 0, LatestFinish: 4, IsCritical: true},
		{TaskID: "c", Name: "Shoot", Duration: 10, EarliestStart: 5, EarliestFinish: 14, LatestStart: 5, LatestFinish: 14, IsCritical: true},
		{TaskID: "b", Name: "Copy", Duration: 1, EarliestStart: 5, EarliestFinish: 5, LatestStart: 14, LatestFinish: 14, TotalFloat: 9},
		{TaskID: "d", Name: "Deliver", Duration: 1, EarliestStart: 15, EarliestFinish: 15, LatestStart: 15, LatestFinish: 15, IsCritical: true},
	}
	if diff := cmp.Diff(want, TimingTable(g, res)); diff != "" {
		t.Errorf("timing table mismatch (-want +got):\n%s", diff)
	}
}

func TestTimingTableFailedResult(t *testing.T) {
	g := BuildGraph([]Task{{ID: "a", Duration: 1, AssetID: "x"}}, nil)
	failed := &CPMResult{Success: false}

	if rows := TimingTable(g, failed); rows != nil {
		t.Errorf("got %v, want nil", rows)
	}
	if opps := CompressionOpportunities(g, failed); opps != nil {
		t.Errorf("got %v, want nil", opps)
	}
	if issues := CheckConsistency(g, failed); len(issues) != 1 {
		t.Errorf("issues = %v, want one", issues)
	}
}
