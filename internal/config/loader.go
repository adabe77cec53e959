package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// Load reads and merges configuration from global and project paths.
// Order of precedence (highest to lowest): project config, global config, defaults.
// Missing files are not errors; malformed JSON returns an error.
func Load(globalPath, projectPath string) (*ScheduleConfig, error) {
	cfg := DefaultConfig()

	if globalPath != "" {
		if err := mergeConfigFile(cfg, globalPath); err != nil {
			return nil, fmt.Errorf("loading global config: %w", err)
		}
	}

	if projectPath != "" {
		if err := mergeConfigFile(cfg, projectPath); err != nil {
			return nil, fmt.Errorf("loading project config: %w", err)
		}
	}

	return cfg, nil
}

// GlobalPath returns ~/.timeline/config.json.
func GlobalPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".timeline", "config.json"), nil
}

// ProjectPath returns .timeline/config.json relative to the working directory.
func ProjectPath() string {
	return filepath.Join(".timeline", "config.json")
}

// LoadDefault loads configuration from the conventional paths.
func LoadDefault() (*ScheduleConfig, error) {
	globalPath, err := GlobalPath()
	if err != nil {
		return nil, err
	}
	return Load(globalPath, ProjectPath())
}

// mergeConfigFile reads a JSON config file and merges it into the base config.
// Missing files are silently skipped. Malformed JSON returns an error.
func mergeConfigFile(base *ScheduleConfig, path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	var loaded ScheduleConfig
	if err := json.Unmarshal(data, &loaded); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	merge(base, &loaded)
	return nil
}

// merge applies the set fields of layer on top of base. Holidays are
// unioned and duration overrides merged key-wise.
func merge(base, layer *ScheduleConfig) {
	if layer.LiveDate != "" {
		base.LiveDate = layer.LiveDate
	}

	if len(layer.Holidays) > 0 {
		seen := make(map[string]struct{}, len(base.Holidays)+len(layer.Holidays))
		var union []string
		for _, h := range append(append([]string(nil), base.Holidays...), layer.Holidays...) {
			if _, dup := seen[h]; dup {
				continue
			}
			seen[h] = struct{}{}
			union = append(union, h)
		}
		sort.Strings(union)
		base.Holidays = union
	}

	if base.DurationOverrides == nil {
		base.DurationOverrides = map[string]int{}
	}
	for name, d := range layer.DurationOverrides {
		base.DurationOverrides[name] = d
	}

	if layer.Calculator.DAGEnabled != nil {
		base.Calculator.DAGEnabled = layer.Calculator.DAGEnabled
	}
	if layer.Calculator.ForceDAG != nil {
		base.Calculator.ForceDAG = layer.Calculator.ForceDAG
	}
	if layer.Calculator.AnchorToLiveDate != nil {
		base.Calculator.AnchorToLiveDate = layer.Calculator.AnchorToLiveDate
	}
	if layer.Calculator.AdjustForHolidays != nil {
		base.Calculator.AdjustForHolidays = layer.Calculator.AdjustForHolidays
	}

	if layer.CPM.MaxIterationsPerNode != 0 {
		base.CPM.MaxIterationsPerNode = layer.CPM.MaxIterationsPerNode
	}
	if layer.CPM.TimeBudgetMS != 0 {
		base.CPM.TimeBudgetMS = layer.CPM.TimeBudgetMS
	}

	if layer.Planner.ConcurrencyLimit != 0 {
		base.Planner.ConcurrencyLimit = layer.Planner.ConcurrencyLimit
	}
	if layer.Planner.FailureThreshold != 0 {
		base.Planner.FailureThreshold = layer.Planner.FailureThreshold
	}
	if layer.Planner.CooldownSeconds != 0 {
		base.Planner.CooldownSeconds = layer.Planner.CooldownSeconds
	}

	if layer.Store.Path != "" {
		base.Store.Path = layer.Store.Path
	}
}
