package events

import (
	"time"
)

// Event is the base interface for all events.
type Event interface {
	EventType() string
	AssetID() string
}

// Topic constants
const (
	TopicSchedule = "schedule"
	TopicProject  = "project"
)

// Event type constants
const (
	EventTypeScheduleComputed = "schedule.computed"
	EventTypeScheduleFailed   = "schedule.failed"
	EventTypeScheduleWarning  = "schedule.warning"
	EventTypeFallbackUsed     = "schedule.fallback"
	EventTypeProjectProgress  = "project.progress"
)

// ScheduleComputedEvent is published when an asset's schedule is recomputed
// successfully.
type ScheduleComputedEvent struct {
	Asset        string
	Path         string
	ProjectStart string
	ProjectEnd   string
	CriticalPath []string
	Duration     time.Duration
	Timestamp    time.Time
}

func (e ScheduleComputedEvent) EventType() string { return EventTypeScheduleComputed }
func (e ScheduleComputedEvent) AssetID() string   { return e.Asset }

// ScheduleFailedEvent is published when recomputing an asset's schedule fails.
type ScheduleFailedEvent struct {
	Asset     string
	Err       error
	Errors    []string
	Duration  time.Duration
	Timestamp time.Time
}

func (e ScheduleFailedEvent) EventType() string { return EventTypeScheduleFailed }
func (e ScheduleFailedEvent) AssetID() string   { return e.Asset }

// ScheduleWarningEvent carries a non-fatal diagnostic for an asset.
type ScheduleWarningEvent struct {
	Asset     string
	Message   string
	Timestamp time.Time
}

func (e ScheduleWarningEvent) EventType() string { return EventTypeScheduleWarning }
func (e ScheduleWarningEvent) AssetID() string   { return e.Asset }

// FallbackUsedEvent is published when a failed asset is served from its
// last-known-good schedule.
type FallbackUsedEvent struct {
	Asset      string
	SnapshotID string
	ComputedAt time.Time
	Timestamp  time.Time
}

func (e FallbackUsedEvent) EventType() string { return EventTypeFallbackUsed }
func (e FallbackUsedEvent) AssetID() string   { return e.Asset }

// ProjectProgressEvent is published as assets finish scheduling.
type ProjectProgressEvent struct {
	Total     int
	Computed  int
	Fallback  int
	Failed    int
	Pending   int
	Timestamp time.Time
}

func (e ProjectProgressEvent) EventType() string { return EventTypeProjectProgress }
func (e ProjectProgressEvent) AssetID() string   { return "" }
