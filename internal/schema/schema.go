// Package schema resolves entity relationships into join keys.
//
// The compiler only consumes the Resolver interface; relationship data
// is owned by the caller. Registry is the in-memory implementation
// used by the CLI and tests.
package schema

import (
	"errors"
	"fmt"

	"golang.org/x/text/cases"
)

// JoinKey is one column pair joining a source entity to a target
// entity. A relationship may need several pairs for a composite key.
type JoinKey struct {
	SourceColumn string
	TargetColumn string
}

// Resolver maps an entity pair to its join keys.
type Resolver interface {
	// Resolve returns the join key pairs for the (source, target)
	// relationship, or an UnknownRelationshipError if none is
	// registered. Entity names are case-insensitive.
	Resolve(source, target string) ([]JoinKey, error)
}

// UnknownRelationshipError reports an entity pair with no registered
// relationship. Fatal to the compilation that triggered it.
type UnknownRelationshipError struct {
	Source string
	Target string
}

func (e *UnknownRelationshipError) Error() string {
	return fmt.Sprintf("no relationship registered for %s-%s", e.Source, e.Target)
}

// IsUnknownRelationship reports whether err is (or wraps) an
// UnknownRelationshipError.
func IsUnknownRelationship(err error) bool {
	var ue *UnknownRelationshipError
	return errors.As(err, &ue)
}

// Registry is an in-memory Resolver. Register all relationships
// before sharing it; lookups are then safe for concurrent use.
type Registry struct {
	rels map[string][]JoinKey
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{rels: make(map[string][]JoinKey)}
}

// Register adds a relationship. With no explicit keys the pair joins
// on "id" in both tables. Registering the same pair again replaces
// the previous keys.
func (r *Registry) Register(source, target string, keys ...JoinKey) {
	if len(keys) == 0 {
		keys = []JoinKey{{SourceColumn: "id", TargetColumn: "id"}}
	}
	r.rels[pairKey(source, target)] = keys
}

// Resolve implements Resolver.
func (r *Registry) Resolve(source, target string) ([]JoinKey, error) {
	keys, ok := r.rels[pairKey(source, target)]
	if !ok {
		return nil, &UnknownRelationshipError{Source: source, Target: target}
	}
	return keys, nil
}

func pairKey(source, target string) string {
	folder := cases.Fold()
	return folder.String(source) + "\x00" + folder.String(target)
}

// DefaultRegistry returns a Registry with the demo relationships used
// by the CLI, all joined on id.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register("Test", "Run")
	r.Register("Project", "Task")
	r.Register("Test", "Issue")
	return r
}
