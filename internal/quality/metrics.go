package quality

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// VariantMetrics is the persisted per-agent record of one test-plan run.
// Field names are part of the on-disk format.
type VariantMetrics struct {
	Agent           string   `json:"agent"`
	TestsPassed     bool     `json:"tests_passed"`
	CoveragePercent *float64 `json:"coverage_percent"`
	CoverageTool    string   `json:"coverage_tool"`
	TestOutput      string   `json:"test_output"`
	CoverageOutput  string   `json:"coverage_output,omitempty"`
}

// SelectionVariant is the persisted per-agent comparison record produced
// by select. Field names are part of the on-disk format.
type SelectionVariant struct {
	Agent           string   `json:"agent"`
	TestsPassed     bool     `json:"tests_passed"`
	CoveragePercent *float64 `json:"coverage_percent"`
	LinesAdded      uint64   `json:"lines_added"`
	LinesRemoved    uint64   `json:"lines_removed"`
	Notes           string   `json:"notes"`
}

// WriteJSON persists a metrics or selection record list as indented JSON.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// ReadMetrics loads a metrics.json written by a previous test-plan run.
func ReadMetrics(path string) ([]VariantMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var metrics []VariantMetrics
	if err := json.Unmarshal(data, &metrics); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return metrics, nil
}
