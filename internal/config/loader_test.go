package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, path string, cfg any) {
	t.Helper()
	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshaling config: %v", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name           string
		globalConfig   *ScheduleConfig
		projectConfig  *ScheduleConfig
		expectHolidays []string
		expectDAG      bool
		expectAnchor   bool
		expectLimit    int
		expectOverride map[string]int
		expectStore    string
	}{
		{
			name:           "No config files - returns defaults",
			expectDAG:      true,
			expectAnchor:   true,
			expectLimit:    DefaultConcurrencyLimit,
			expectOverride: map[string]int{},
			expectStore:    DefaultStorePath,
		},
		{
			name: "Global only - disables DAG and adds holidays",
			globalConfig: &ScheduleConfig{
				Holidays:   []string{"2024-12-25", "2024-12-26"},
				Calculator: CalculatorConfig{DAGEnabled: boolPtr(false)},
			},
			expectHolidays: []string{"2024-12-25", "2024-12-26"},
			expectAnchor:   true,
			expectLimit:    DefaultConcurrencyLimit,
			expectOverride: map[string]int{},
			expectStore:    DefaultStorePath,
		},
		{
			name: "Project only - overrides limit and anchoring",
			projectConfig: &ScheduleConfig{
				Calculator: CalculatorConfig{AnchorToLiveDate: boolPtr(false)},
				Planner:    PlannerConfig{ConcurrencyLimit: 8},
				Store:      StoreConfig{Path: "/tmp/project.db"},
			},
			expectDAG:      true,
			expectLimit:    8,
			expectOverride: map[string]int{},
			expectStore:    "/tmp/project.db",
		},
		{
			name: "Both - holidays unioned, overrides merged, project wins",
			globalConfig: &ScheduleConfig{
				Holidays:          []string{"2025-01-01", "2024-12-25"},
				DurationOverrides: map[string]int{"Artwork": 8, "Print": 2},
				Planner:           PlannerConfig{ConcurrencyLimit: 2},
			},
			projectConfig: &ScheduleConfig{
				Holidays:          []string{"2024-12-25", "2024-12-24"},
				DurationOverrides: map[string]int{"Artwork": 12},
				Planner:           PlannerConfig{ConcurrencyLimit: 6},
			},
			expectHolidays: []string{"2024-12-24", "2024-12-25", "2025-01-01"},
			expectDAG:      true,
			expectAnchor:   true,
			expectLimit:    6,
			expectOverride: map[string]int{"Artwork": 12, "Print": 2},
			expectStore:    DefaultStorePath,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()

			globalPath := ""
			if tt.globalConfig != nil {
				globalPath = filepath.Join(tmpDir, "global.json")
				writeConfig(t, globalPath, tt.globalConfig)
			}

			projectPath := ""
			if tt.projectConfig != nil {
				projectPath = filepath.Join(tmpDir, "project.json")
				writeConfig(t, projectPath, tt.projectConfig)
			}

			cfg, err := Load(globalPath, projectPath)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if diff := cmp.Diff(tt.expectHolidays, cfg.Holidays); diff != "" {
				t.Errorf("holidays mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.expectOverride, cfg.DurationOverrides); diff != "" {
				t.Errorf("overrides mismatch (-want +got):\n%s", diff)
			}

			opts := cfg.CalculatorOptions()
			if opts.DAGEnabled != tt.expectDAG {
				t.Errorf("DAGEnabled = %v, want %v", opts.DAGEnabled, tt.expectDAG)
			}
			if opts.AnchorToLiveDate != tt.expectAnchor {
				t.Errorf("AnchorToLiveDate = %v, want %v", opts.AnchorToLiveDate, tt.expectAnchor)
			}
			if !opts.AdjustForHolidays {
				t.Error("AdjustForHolidays should keep its default")
			}
			if cfg.Planner.ConcurrencyLimit != tt.expectLimit {
				t.Errorf("concurrency limit = %d, want %d", cfg.Planner.ConcurrencyLimit, tt.expectLimit)
			}
			if cfg.Store.Path != tt.expectStore {
				t.Errorf("store path = %q, want %q", cfg.Store.Path, tt.expectStore)
			}
		})
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	tmpDir := t.TempDir()

	globalPath := filepath.Join(tmpDir, "global.json")
	if err := os.WriteFile(globalPath, []byte("{invalid json"), 0644); err != nil {
		t.Fatalf("writing malformed config: %v", err)
	}

	_, err := Load(globalPath, "")
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
	if !strings.Contains(err.Error(), "global.json") {
		t.Errorf("error %q should name the file", err)
	}
}

func TestLoad_MissingFilesNotError(t *testing.T) {
	cfg, err := Load("/nonexistent/global.json", "/nonexistent/project.json")
	if err != nil {
		t.Fatalf("expected no error for missing files, got: %v", err)
	}
	if diff := cmp.Diff(DefaultConfig(), cfg); diff != "" {
		t.Errorf("expected defaults (-want +got):\n%s", diff)
	}
}

func TestCalculatorOptionsCPMBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CPM = CPMConfig{MaxIterationsPerNode: 50, TimeBudgetMS: 250}
	cfg.Calculator.ForceDAG = boolPtr(true)

	opts := cfg.CalculatorOptions()
	if opts.CPM.MaxIterationsPerNode != 50 {
		t.Errorf("MaxIterationsPerNode = %d, want 50", opts.CPM.MaxIterationsPerNode)
	}
	if opts.CPM.TimeBudget != 250*time.Millisecond {
		t.Errorf("TimeBudget = %v, want 250ms", opts.CPM.TimeBudget)
	}
	if !opts.ForceDAG {
		t.Error("ForceDAG = false, want true")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}

	cfg.LiveDate = "next friday"
	cfg.Holidays = []string{"2024-12-25", "boxing day"}
	cfg.DurationOverrides = map[string]int{"Artwork": 0}
	cfg.Planner.ConcurrencyLimit = -1

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"live_date", "holidays", "Artwork", "concurrency_limit"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}
