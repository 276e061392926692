package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// StageDefinition maps a source control branch to the account it deploys into
type StageDefinition struct {
	Branch    string `yaml:"branch"`
	Alias     string `yaml:"alias"`
	Account   string `yaml:"account"`
	Region    string `yaml:"region"`
	DeployMFA bool   `yaml:"deployMfa"`
}

// Table is the static stage table for a project. The first stage is the
// default for branches that have no definition of their own.
type Table struct {
	Project              string            `yaml:"project"`
	EdgeCleanupQueueName string            `yaml:"edgeCleanupQueueName"`
	Stages               []StageDefinition `yaml:"stages"`
}

// DefaultTable is used when no stage file is present
func DefaultTable() Table {
	return Table{
		Project: "mvp",
		Stages: []StageDefinition{
			{Branch: "individual"},
			{Branch: "develop"},
			{Branch: "qa"},
			{Branch: "master"},
		},
	}
}

// Find returns the stage declared for branch or, failing that, the first stage
func (t Table) Find(branch string) (StageDefinition, bool) {
	for _, stage := range t.Stages {
		if stage.Branch == branch {
			return stage, true
		}
	}
	return t.Stages[0], false
}

// QueueName returns the edge cleanup queue name, defaulting from the project
func (t Table) QueueName() string {
	if t.EdgeCleanupQueueName != "" {
		return t.EdgeCleanupQueueName
	}
	return fmt.Sprintf("%s-edge-cleanup-queue", t.Project)
}

// Validate checks that the table can be used to resolve a branch
func (t Table) Validate() error {
	if t.Project == "" {
		return fmt.Errorf("stage table: project is required")
	}
	if len(t.Stages) == 0 {
		return fmt.Errorf("stage table: at least one stage is required")
	}

	seen := make(map[string]bool, len(t.Stages))
	for i, stage := range t.Stages {
		if stage.Branch == "" {
			return fmt.Errorf("stage table: stage %d has no branch", i)
		}
		if seen[stage.Branch] {
			return fmt.Errorf("stage table: branch %q declared more than once", stage.Branch)
		}
		seen[stage.Branch] = true
	}

	return nil
}

// LoadTable reads the stage table from path. A missing file yields DefaultTable.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return DefaultTable(), nil
	}
	if err != nil {
		return Table{}, fmt.Errorf("failed to read stage table %s: %w", path, err)
	}

	return ParseTable(data)
}

// ParseTable decodes a YAML stage table
func ParseTable(data []byte) (Table, error) {
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return Table{}, fmt.Errorf("failed to parse stage table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return Table{}, err
	}
	return table, nil
}
