package scheduler

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGraphConstruction reports malformed input that prevented the graph
	// from being built at all.
	ErrGraphConstruction = errors.New("graph construction failed")

	// ErrDependencyValidation reports a cycle, an excessive overlap, a
	// dangling reference, or another invalid dependency declaration.
	ErrDependencyValidation = errors.New("dependency validation failed")

	// ErrCPMBoundsExceeded reports that a CPM pass hit its iteration cap or
	// wall-clock budget.
	ErrCPMBoundsExceeded = errors.New("critical path computation exceeded bounds")

	// ErrCPMIncomplete reports that a CPM pass finished without reaching
	// every node, or was asked to run on an invalid graph.
	ErrCPMIncomplete = errors.New("critical path computation incomplete")
)

// joinErrors wraps kind with the collected messages, or returns nil when
// there are none.
func joinErrors(kind error, msgs []string) error {
	if len(msgs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", kind, strings.Join(msgs, "; "))
}
