// Package expconf models the experiment configuration YAML consumed by
// the benchmark automation: test sets with options, matrix dimensions,
// and replica counts. Flattening a config yields the concrete replica
// runs whose IDs name every log, result tarball, and archive in the
// workspace.
package expconf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level experiment configuration.
type Config struct {
	Repo            string         `yaml:"repo"`
	Branch          string         `yaml:"branch"`
	Username        string         `yaml:"username"`
	ExperimentsPath string         `yaml:"experiments_path"`
	Options         map[string]any `yaml:"options"`
	Tests           []TestSet      `yaml:"tests"`
}

// TestSet describes one named experiment configuration, optionally
// expanded across matrix dimensions and replicated.
type TestSet struct {
	ID         string         `yaml:"id"`
	Experiment string         `yaml:"experiment"`
	Profile    string         `yaml:"profile"`
	Replicas   int            `yaml:"replicas"`
	Completed  int            `yaml:"completed"`
	Options    map[string]any `yaml:"options"`
	Matrix     []Dimension    `yaml:"matrix"`

	matrixIDs map[string]string
}

// MatrixIDs reports the matrix choice selected per dimension after
// expansion, nil for sets without a matrix.
func (s TestSet) MatrixIDs() map[string]string { return s.matrixIDs }

// Dimension is one axis of a test matrix.
type Dimension struct {
	Name   string   `yaml:"name"`
	Values []Choice `yaml:"values"`
}

// Choice is one value along a matrix dimension. Non-empty fields
// override the parent test set; options overlay key-wise.
type Choice struct {
	ID         string         `yaml:"id"`
	Experiment string         `yaml:"experiment"`
	Profile    string         `yaml:"profile"`
	Replicas   int            `yaml:"replicas"`
	Completed  int            `yaml:"completed"`
	Options    map[string]any `yaml:"options"`
}

// Replica is a single concrete run of a test set.
type Replica struct {
	ID         string
	SetID      string
	Ordinal    int
	Experiment string
	Profile    string
	Options    map[string]any
	MatrixIDs  map[string]string
}

// Load reads and validates an experiment config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read experiment config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse experiment config %q: %w", path, err)
	}
	if len(cfg.Tests) == 0 {
		return nil, fmt.Errorf("experiment config %q: no tests defined", path)
	}
	for i, set := range cfg.Tests {
		if set.ID == "" {
			return nil, fmt.Errorf("experiment config %q: tests[%d] has no id", path, i)
		}
		if set.Experiment == "" {
			return nil, fmt.Errorf("experiment config %q: test %q has no experiment", path, set.ID)
		}
	}
	return &cfg, nil
}

func overlayOptions(base, overlay map[string]any) map[string]any {
	if len(base) == 0 && len(overlay) == 0 {
		return nil
	}
	merged := make(map[string]any, len(base)+len(overlay))
	for k, v := range base {
		merged[k] = v
	}
	for k, v := range overlay {
		merged[k] = v
	}
	return merged
}
