package timeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aristath/timeline/internal/scheduler"
)

var (
	// ErrDateAssignment reports unparsable or inconsistent dates, or a date
	// range that does not match a task's duration.
	ErrDateAssignment = errors.New("date assignment failed")

	// ErrInvalidInput reports a malformed live date, holiday, or task list.
	ErrInvalidInput = errors.New("invalid scheduling input")
)

// TimelineTask is a task placed on the calendar.
type TimelineTask struct {
	scheduler.Task
	Start      string `json:"start"`
	End        string `json:"end"`
	Progress   int    `json:"progress"` // Always 0 here; owned by the viewer
	IsCritical *bool  `json:"isCritical,omitempty"`
	TotalFloat *int   `json:"totalFloat,omitempty"`
}

// DateAssignmentResult is the outcome of AssignDates or CalculateSequential.
type DateAssignmentResult struct {
	Tasks        []TimelineTask
	ProjectStart string
	ProjectEnd   string
	Success      bool
	Errors       []string
	Warnings     []string
}

// Err returns nil on success, otherwise an error wrapping ErrDateAssignment.
func (r *DateAssignmentResult) Err() error {
	if r.Success {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrDateAssignment, strings.Join(r.Errors, "; "))
}

func failedAssignment(errs []string, warnings []string) *DateAssignmentResult {
	return &DateAssignmentResult{Success: false, Errors: errs, Warnings: warnings}
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }
