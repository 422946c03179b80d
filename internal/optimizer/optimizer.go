// Package optimizer rewrites compiled boolean expressions before SQL
// emission and records what it did.
//
// Passes are pure functions over one field's expression: each returns
// a possibly-rewritten expression plus zero or more audit records.
// Passes never look across fields. New passes slot into the pipeline
// without touching existing ones.
//
// The audit trail is data, not logging: records come back from the
// compile call in application order so tests can assert on them.
package optimizer

import (
	"fmt"

	"github.com/filterlang/filterlang/internal/ast"
	"github.com/filterlang/filterlang/internal/config"
	"github.com/filterlang/filterlang/internal/sqlexpr"
)

// Optimization is one audit record. Sealed: the record kinds are
// OrToIn, InToUnion, ConditionSimplification and
// RedundantConditionRemoval.
type Optimization interface {
	optimizationRecord() // sealed
	String() string
}

// OrToIn records an all-equality OR chain folded into one IN list.
type OrToIn struct {
	Field      string
	ValueCount int
}

func (OrToIn) optimizationRecord() {}

func (o OrToIn) String() string {
	return fmt.Sprintf("or_to_in field=%q values=%d", o.Field, o.ValueCount)
}

// InToUnion marks an oversized IN list as a UNION-split candidate.
// Advisory only: the list is partitioned into UnionCount chunks on
// paper, but the statement is not rewritten, since splitting changes
// result-set semantics unless the caller also restructures pagination.
type InToUnion struct {
	Field       string
	TotalValues int
	UnionCount  int
}

func (InToUnion) optimizationRecord() {}

func (o InToUnion) String() string {
	return fmt.Sprintf("in_to_union field=%q values=%d unions=%d", o.Field, o.TotalValues, o.UnionCount)
}

// ConditionSimplification records a condition rewritten to a simpler
// equivalent. Reserved for a future simplification pass; no v1 pass
// emits it.
type ConditionSimplification struct {
	Original   string
	Simplified string
}

func (ConditionSimplification) optimizationRecord() {}

func (o ConditionSimplification) String() string {
	return fmt.Sprintf("condition_simplification original=%q simplified=%q", o.Original, o.Simplified)
}

// RedundantConditionRemoval records a dropped condition that could
// not affect the result. Reserved for a future redundancy pass; no v1
// pass emits it.
type RedundantConditionRemoval struct {
	RemovedCondition string
}

func (RedundantConditionRemoval) optimizationRecord() {}

func (o RedundantConditionRemoval) String() string {
	return fmt.Sprintf("redundant_condition_removal condition=%q", o.RemovedCondition)
}

// Pass rewrites one field's compiled expression. field is the DSL
// field name as written (used only in audit records).
type Pass func(field string, e sqlexpr.Expr, cfg config.OptimizationConfig) (sqlexpr.Expr, []Optimization)

// DefaultPasses returns the v1 pipeline in application order.
func DefaultPasses() []Pass {
	return []Pass{OrToInPass, InToUnionMarkPass}
}

// Apply runs the passes in order over one field's expression,
// threading the rewritten tree through and accumulating audit records.
func Apply(passes []Pass, field string, e sqlexpr.Expr, cfg config.OptimizationConfig) (sqlexpr.Expr, []Optimization) {
	var records []Optimization
	for _, pass := range passes {
		var applied []Optimization
		e, applied = pass(field, e, cfg)
		records = append(records, applied...)
	}
	return e, records
}

// OrToInPass folds a field's top-level OR chain of equality
// comparisons into a single IN list when the chain has at least
// MaxOrConditionsForIn branches. Value order is first-seen. Chains
// mixing equality with any other operator are left untouched.
func OrToInPass(field string, e sqlexpr.Expr, cfg config.OptimizationConfig) (sqlexpr.Expr, []Optimization) {
	or, ok := e.(sqlexpr.Logical)
	if !ok || or.Op != ast.LogicalOr {
		return e, nil
	}
	column, values, ok := collectEqualityChain(or)
	if !ok || len(values) < cfg.MaxOrConditionsForIn {
		return e, nil
	}
	folded := sqlexpr.InSet{Column: column, Values: values}
	return folded, []Optimization{OrToIn{Field: field, ValueCount: len(values)}}
}

// collectEqualityChain flattens an OR tree into its equality values.
// Nested ORs (from explicit grouping) are followed; any non-equality
// leaf aborts the fold.
func collectEqualityChain(e sqlexpr.Expr) (column string, values []ast.Value, ok bool) {
	switch node := e.(type) {
	case sqlexpr.Compare:
		if node.Op != ast.OpEq {
			return "", nil, false
		}
		return node.Column, []ast.Value{node.Value}, true
	case sqlexpr.Logical:
		if node.Op != ast.LogicalOr {
			return "", nil, false
		}
		for _, operand := range node.Operands {
			col, vals, leafOK := collectEqualityChain(operand)
			if !leafOK {
				return "", nil, false
			}
			if column == "" {
				column = col
			} else if column != col {
				return "", nil, false
			}
			values = append(values, vals...)
		}
		return column, values, true
	default:
		return "", nil, false
	}
}

// InToUnionMarkPass records a UNION-split candidate for every IN list
// longer than MaxInValues, including lists just produced by OR
// folding. The expression itself is left unchanged.
func InToUnionMarkPass(field string, e sqlexpr.Expr, cfg config.OptimizationConfig) (sqlexpr.Expr, []Optimization) {
	var records []Optimization
	markOversizedIn(field, e, cfg, &records)
	return e, records
}

func markOversizedIn(field string, e sqlexpr.Expr, cfg config.OptimizationConfig, records *[]Optimization) {
	switch node := e.(type) {
	case sqlexpr.InSet:
		total := len(node.Values)
		if total > cfg.MaxInValues {
			*records = append(*records, InToUnion{
				Field:       field,
				TotalValues: total,
				UnionCount:  (total + cfg.MaxInValues - 1) / cfg.MaxInValues,
			})
		}
	case sqlexpr.Logical:
		for _, operand := range node.Operands {
			markOversizedIn(field, operand, cfg, records)
		}
	}
}
