// Package config holds the caller-supplied compiler configuration:
// the entity-to-table mapping and the optimization thresholds. Both
// are immutable value objects, constructed once and shared read-only
// across compile calls.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// TableMapping maps entity names to table names. Unmapped entities
// fall back to the lower-cased entity name.
type TableMapping map[string]string

// TableName returns the table for entity. The lookup is exact first,
// then case-insensitive, then falls back to strings.ToLower(entity).
func (m TableMapping) TableName(entity string) string {
	if table, ok := m[entity]; ok {
		return table
	}
	folder := cases.Fold()
	want := folder.String(entity)
	for k, table := range m {
		if folder.String(k) == want {
			return table
		}
	}
	return strings.ToLower(entity)
}

// DefaultTableMapping is the built-in mapping used when no file is
// supplied.
func DefaultTableMapping() TableMapping {
	return TableMapping{
		"Test":    "tests",
		"Run":     "test_runs",
		"Project": "projects",
		"Task":    "tasks",
		"User":    "users",
		"Issue":   "issues",
	}
}

// LoadError reports a table-mapping file that could not be read or
// decoded. Recoverable: the documented caller pattern is to fall back
// to DefaultTableMapping.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load table mapping %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// LoadTableMapping reads a mapping file: a flat object of entity name
// to table name. JSON by default; YAML for .yaml/.yml paths.
func LoadTableMapping(path string) (TableMapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}

	mapping := make(TableMapping)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &mapping)
	default:
		err = json.Unmarshal(data, &mapping)
	}
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return mapping, nil
}

// OptimizationConfig sets the optimizer's trigger thresholds.
// Immutable per compilation.
type OptimizationConfig struct {
	// MaxOrConditionsForIn is the minimum length of an all-equality
	// OR chain that gets folded into an IN list.
	MaxOrConditionsForIn int
	// MaxInValues is the largest IN list left unmarked; longer lists
	// are recorded as UNION-split candidates.
	MaxInValues int
}

// DefaultOptimizationConfig returns the standard thresholds.
func DefaultOptimizationConfig() OptimizationConfig {
	return OptimizationConfig{
		MaxOrConditionsForIn: 5,
		MaxInValues:          1000,
	}
}
