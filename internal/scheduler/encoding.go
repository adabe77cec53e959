package scheduler

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DependencyRecord is the persisted form of a Dependency.
type DependencyRecord struct {
	PredecessorID string `json:"predecessorId"`
	Type          string `json:"type,omitempty"`
	Lag           int    `json:"lag"`
}

// EncodeDependencies serializes explicit dependencies. Implicit sequential
// edges are engine-internal and never written.
func EncodeDependencies(deps []Dependency) ([]byte, error) {
	records := make([]DependencyRecord, 0, len(deps))
	for _, d := range deps {
		if d.Implicit {
			continue
		}
		t := d.Type
		if t == "" {
			t = FinishToStart
		}
		records = append(records, DependencyRecord{PredecessorID: d.PredecessorID, Type: string(t), Lag: d.Lag})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encoding dependencies: %w", err)
	}
	return data, nil
}

// DecodeDependencies parses persisted dependencies. A missing type defaults
// to FS; entries with an unknown type are dropped with a warning.
func DecodeDependencies(data []byte) ([]Dependency, []string, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil, nil
	}
	var records []DependencyRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil, fmt.Errorf("decoding dependencies: %w", err)
	}
	deps, warnings := fromRecords(records)
	return deps, warnings, nil
}

func fromRecords(records []DependencyRecord) ([]Dependency, []string) {
	var (
		deps     []Dependency
		warnings []string
	)
	for _, r := range records {
		t := DependencyType(strings.ToUpper(strings.TrimSpace(r.Type)))
		if t == "" {
			t = FinishToStart
		}
		if !t.IsValid() {
			warnings = append(warnings, fmt.Sprintf("dropped dependency on %q with unknown type %q", r.PredecessorID, r.Type))
			continue
		}
		deps = append(deps, Dependency{PredecessorID: r.PredecessorID, Type: t, Lag: r.Lag})
	}
	return deps, warnings
}

// TaskRecord is the import/export form of a Task.
type TaskRecord struct {
	ID           string             `json:"id"`
	Name         string             `json:"name"`
	Duration     int                `json:"duration"`
	Owner        string             `json:"owner,omitempty"`
	AssetID      string             `json:"asset_id"`
	Dependencies []DependencyRecord `json:"dependencies,omitempty"`
}

// Batch is an importable set of tasks with its calendar.
type Batch struct {
	LiveDate string   `json:"live_date,omitempty"`
	Holidays []string `json:"holidays,omitempty"`
	Tasks    []Task   `json:"-"`
}

type batchRecord struct {
	LiveDate string       `json:"live_date,omitempty"`
	Holidays []string     `json:"holidays,omitempty"`
	Tasks    []TaskRecord `json:"tasks"`
}

// DecodeBatch parses an import document. Unknown dependency types are
// dropped and reported as warnings, never as errors.
func DecodeBatch(data []byte) (*Batch, []string, error) {
	var rec batchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("decoding task batch: %w", err)
	}

	b := &Batch{LiveDate: rec.LiveDate, Holidays: rec.Holidays}
	var warnings []string
	for _, tr := range rec.Tasks {
		deps, w := fromRecords(tr.Dependencies)
		for _, msg := range w {
			warnings = append(warnings, fmt.Sprintf("task %q: %s", tr.ID, msg))
		}
		b.Tasks = append(b.Tasks, Task{
			ID:           tr.ID,
			Name:         tr.Name,
			Duration:     tr.Duration,
			Owner:        tr.Owner,
			AssetID:      tr.AssetID,
			Dependencies: deps,
		})
	}
	return b, warnings, nil
}

// EncodeBatch renders a batch as an indented import document.
func EncodeBatch(b *Batch) ([]byte, error) {
	rec := batchRecord{LiveDate: b.LiveDate, Holidays: b.Holidays, Tasks: make([]TaskRecord, 0, len(b.Tasks))}
	for _, t := range b.Tasks {
		tr := TaskRecord{ID: t.ID, Name: t.Name, Duration: t.Duration, Owner: t.Owner, AssetID: t.AssetID}
		for _, d := range t.Dependencies {
			if d.Implicit {
				continue
			}
			typ := d.Type
			if typ == "" {
				typ = FinishToStart
			}
			tr.Dependencies = append(tr.Dependencies, DependencyRecord{PredecessorID: d.PredecessorID, Type: string(typ), Lag: d.Lag})
		}
		rec.Tasks = append(rec.Tasks, tr)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding task batch: %w", err)
	}
	return data, nil
}
