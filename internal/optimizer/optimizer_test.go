package optimizer

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filterlang/filterlang/internal/ast"
	"github.com/filterlang/filterlang/internal/config"
	"github.com/filterlang/filterlang/internal/sqlexpr"
)

func orOfEqualities(column string, count int) sqlexpr.Logical {
	operands := make([]sqlexpr.Expr, count)
	for i := range operands {
		operands[i] = sqlexpr.Compare{
			Column: column,
			Op:     ast.OpEq,
			Value:  ast.Str(fmt.Sprintf("v%d", i)),
		}
	}
	return sqlexpr.Logical{Op: ast.LogicalOr, Operands: operands}
}

func numbers(count int) []ast.Value {
	values := make([]ast.Value, count)
	for i := range values {
		values[i] = ast.Number(int64(i))
	}
	return values
}

func TestOrToInPass_FoldsAtThreshold(t *testing.T) {
	cfg := config.DefaultOptimizationConfig()

	rewritten, records := OrToInPass("status", orOfEqualities("status", 5), cfg)

	in, ok := rewritten.(sqlexpr.InSet)
	require.True(t, ok)
	assert.Equal(t, "status", in.Column)
	assert.False(t, in.Negated)
	assert.Len(t, in.Values, 5)
	// First-seen value order is preserved.
	assert.Equal(t, ast.Str("v0"), in.Values[0])
	assert.Equal(t, ast.Str("v4"), in.Values[4])

	require.Len(t, records, 1)
	assert.Equal(t, OrToIn{Field: "status", ValueCount: 5}, records[0])
}

func TestOrToInPass_BelowThresholdUntouched(t *testing.T) {
	cfg := config.DefaultOptimizationConfig()
	original := orOfEqualities("status", 4)

	rewritten, records := OrToInPass("status", original, cfg)

	assert.Equal(t, original, rewritten)
	assert.Empty(t, records)
}

func TestOrToInPass_MixedOperatorsAbort(t *testing.T) {
	cfg := config.DefaultOptimizationConfig()
	or := orOfEqualities("status", 5)
	or.Operands[2] = sqlexpr.Compare{Column: "status", Op: ast.OpGt, Value: ast.Number(2)}

	rewritten, records := OrToInPass("status", or, cfg)

	assert.Equal(t, or, rewritten)
	assert.Empty(t, records)
}

func TestOrToInPass_NestedGroupsFlatten(t *testing.T) {
	cfg := config.DefaultOptimizationConfig()
	nested := sqlexpr.Logical{Op: ast.LogicalOr, Operands: []sqlexpr.Expr{
		orOfEqualities("status", 2),
		sqlexpr.Compare{Column: "status", Op: ast.OpEq, Value: ast.Str("x")},
		sqlexpr.Compare{Column: "status", Op: ast.OpEq, Value: ast.Str("y")},
		sqlexpr.Compare{Column: "status", Op: ast.OpEq, Value: ast.Str("z")},
	}}

	rewritten, records := OrToInPass("status", nested, cfg)

	in, ok := rewritten.(sqlexpr.InSet)
	require.True(t, ok)
	assert.Len(t, in.Values, 5)
	require.Len(t, records, 1)
}

func TestOrToInPass_IgnoresNonOrExpressions(t *testing.T) {
	cfg := config.DefaultOptimizationConfig()
	and := sqlexpr.Logical{Op: ast.LogicalAnd, Operands: orOfEqualities("status", 5).Operands}

	rewritten, records := OrToInPass("status", and, cfg)

	assert.Equal(t, and, rewritten)
	assert.Empty(t, records)
}

func TestInToUnionMarkPass_MarksOversizedList(t *testing.T) {
	cfg := config.DefaultOptimizationConfig()
	in := sqlexpr.InSet{Column: "id", Values: numbers(1001)}

	rewritten, records := InToUnionMarkPass("id", in, cfg)

	// Advisory only: the expression is not rewritten.
	assert.Equal(t, in, rewritten)
	require.Len(t, records, 1)
	assert.Equal(t, InToUnion{Field: "id", TotalValues: 1001, UnionCount: 2}, records[0])
}

func TestInToUnionMarkPass_AtLimitUnmarked(t *testing.T) {
	cfg := config.DefaultOptimizationConfig()
	in := sqlexpr.InSet{Column: "id", Values: numbers(1000)}

	_, records := InToUnionMarkPass("id", in, cfg)
	assert.Empty(t, records)
}

func TestInToUnionMarkPass_ChunkCount(t *testing.T) {
	cfg := config.OptimizationConfig{MaxOrConditionsForIn: 5, MaxInValues: 1000}
	in := sqlexpr.InSet{Column: "id", Values: numbers(2500)}

	_, records := InToUnionMarkPass("id", in, cfg)
	require.Len(t, records, 1)
	assert.Equal(t, 3, records[0].(InToUnion).UnionCount)
}

func TestInToUnionMarkPass_FindsNestedLists(t *testing.T) {
	cfg := config.OptimizationConfig{MaxOrConditionsForIn: 5, MaxInValues: 10}
	expr := sqlexpr.Logical{Op: ast.LogicalAnd, Operands: []sqlexpr.Expr{
		sqlexpr.Compare{Column: "status", Op: ast.OpEq, Value: ast.Str("Open")},
		sqlexpr.InSet{Column: "id", Values: numbers(11)},
	}}

	_, records := InToUnionMarkPass("id", expr, cfg)
	require.Len(t, records, 1)
	assert.Equal(t, InToUnion{Field: "id", TotalValues: 11, UnionCount: 2}, records[0])
}

func TestApply_PassesChain(t *testing.T) {
	// An OR chain long enough to fold into an IN list that then exceeds
	// the IN limit triggers both records in one run.
	cfg := config.OptimizationConfig{MaxOrConditionsForIn: 5, MaxInValues: 6}

	rewritten, records := Apply(DefaultPasses(), "status", orOfEqualities("status", 7), cfg)

	in, ok := rewritten.(sqlexpr.InSet)
	require.True(t, ok)
	assert.Len(t, in.Values, 7)

	require.Len(t, records, 2)
	assert.Equal(t, OrToIn{Field: "status", ValueCount: 7}, records[0])
	assert.Equal(t, InToUnion{Field: "status", TotalValues: 7, UnionCount: 2}, records[1])
}

func TestOptimizationStrings(t *testing.T) {
	assert.Equal(t, `or_to_in field="status" values=5`,
		OrToIn{Field: "status", ValueCount: 5}.String())
	assert.Equal(t, `in_to_union field="id" values=1001 unions=2`,
		InToUnion{Field: "id", TotalValues: 1001, UnionCount: 2}.String())
	assert.Equal(t, `condition_simplification original="a" simplified="b"`,
		ConditionSimplification{Original: "a", Simplified: "b"}.String())
	assert.Equal(t, `redundant_condition_removal condition="c"`,
		RedundantConditionRemoval{RemovedCondition: "c"}.String())
}
