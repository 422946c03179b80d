// Package sqlgen compiles a Filter DSL query AST into a
// parameter-safe SQL statement.
//
// The compiler resolves cross filters into INNER JOINs through the
// schema resolver, lowers each field's condition tree into a
// sqlexpr.Expr, runs the optimizer pipeline over the compiled forest
// in field declaration order, and emits one SELECT with all
// conditions combined under a top-level AND.
//
// A Compiler's table mapping and optimization config are immutable
// after construction, so concurrent Compile calls on a shared
// instance are safe without locking. The Set* mutators exist for the
// construct-empty-then-configure surface and must not be called
// concurrently with in-flight compilations.
package sqlgen

import (
	"errors"
	"fmt"
	"strings"

	"github.com/filterlang/filterlang/internal/ast"
	"github.com/filterlang/filterlang/internal/config"
	"github.com/filterlang/filterlang/internal/lexer"
	"github.com/filterlang/filterlang/internal/optimizer"
	"github.com/filterlang/filterlang/internal/parser"
	"github.com/filterlang/filterlang/internal/schema"
	"github.com/filterlang/filterlang/internal/sqlexpr"
)

// defaultBaseTable is emitted when no base entity is configured,
// matching the demo output of the reference queries.
const defaultBaseTable = "base_table"

// ErrEmptyQuery reports a structurally valid query with no filters at
// all. Fatal: no SQL is emitted.
var ErrEmptyQuery = errors.New("empty query: no filters to compile")

// CompileResult is the outcome of one successful compilation.
type CompileResult struct {
	// SQL is the full statement. Identifiers are double-quoted;
	// values are inline literals, or $n placeholders when compiled
	// with CompileParams.
	SQL string
	// Args holds the bound values in placeholder order. Nil for
	// inline compilation.
	Args []any
	// Optimizations is the audit trail of applied rewrites, in
	// application order.
	Optimizations []optimizer.Optimization
}

// Compiler turns query ASTs into SQL. Construct with New or the
// NewFromMappingFile variants; all construction forms produce the
// same immutable state.
type Compiler struct {
	mapping    config.TableMapping
	cfg        config.OptimizationConfig
	resolver   schema.Resolver
	baseEntity string
	passes     []optimizer.Pass
}

// New returns a Compiler with the built-in table mapping and default
// optimization thresholds.
func New(resolver schema.Resolver) *Compiler {
	return &Compiler{
		mapping:  config.DefaultTableMapping(),
		cfg:      config.DefaultOptimizationConfig(),
		resolver: resolver,
		passes:   optimizer.DefaultPasses(),
	}
}

// NewFromMappingFile returns a Compiler whose table mapping is loaded
// from path. The load error is recoverable: callers typically fall
// back to New.
func NewFromMappingFile(path string, resolver schema.Resolver) (*Compiler, error) {
	mapping, err := config.LoadTableMapping(path)
	if err != nil {
		return nil, err
	}
	c := New(resolver)
	c.mapping = mapping
	return c, nil
}

// NewFromMappingFileWithConfig is NewFromMappingFile with explicit
// optimization thresholds.
func NewFromMappingFileWithConfig(path string, cfg config.OptimizationConfig, resolver schema.Resolver) (*Compiler, error) {
	c, err := NewFromMappingFile(path, resolver)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return c, nil
}

// SetTableMapping replaces the table mapping. Not safe to call
// concurrently with Compile.
func (c *Compiler) SetTableMapping(mapping config.TableMapping) {
	c.mapping = mapping
}

// SetConfig replaces the optimization thresholds. Not safe to call
// concurrently with Compile.
func (c *Compiler) SetConfig(cfg config.OptimizationConfig) {
	c.cfg = cfg
}

// SetBaseEntity names the entity the base table is resolved from.
// When unset, the emitted base table is the literal "base_table".
// Not safe to call concurrently with Compile.
func (c *Compiler) SetBaseEntity(entity string) {
	c.baseEntity = entity
}

// Compile emits SQL with inline literals.
func (c *Compiler) Compile(q *ast.Query) (*CompileResult, error) {
	return c.compile(q, false)
}

// CompileParams emits SQL with $n placeholders and returns the bound
// values in Args. Special values are still substituted as SQL text.
func (c *Compiler) CompileParams(q *ast.Query) (*CompileResult, error) {
	return c.compile(q, true)
}

// CompileText lexes, parses and compiles raw DSL text in one call.
// Lex and parse errors are returned as-is for positional reporting.
func (c *Compiler) CompileText(text string) (*CompileResult, error) {
	tokens, err := lexer.Tokenize(text)
	if err != nil {
		return nil, err
	}
	query, err := parser.Parse(tokens)
	if err != nil {
		return nil, err
	}
	return c.Compile(query)
}

// fieldExpr is one field's compiled condition, tagged with the DSL
// field name for the optimizer's audit records.
type fieldExpr struct {
	field string
	expr  sqlexpr.Expr
}

func (c *Compiler) compile(q *ast.Query, placeholders bool) (*CompileResult, error) {
	if q == nil || q.Empty() {
		return nil, ErrEmptyQuery
	}

	baseTable := defaultBaseTable
	if c.baseEntity != "" {
		baseTable = c.mapping.TableName(c.baseEntity)
	}

	var exprs []fieldExpr
	for _, filter := range q.BaseFilters {
		e, err := compileCondition(filter.Field, filter.Condition)
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, fieldExpr{field: filter.Field, expr: e})
	}

	// Joins are assigned sequential aliases in declaration order so
	// output is deterministic.
	var joins []string
	for i, cf := range q.CrossFilters {
		keys, err := c.resolver.Resolve(cf.SourceEntity, cf.TargetEntity)
		if err != nil {
			return nil, err
		}
		alias := fmt.Sprintf("joined_table_%d", i+1)
		table := c.mapping.TableName(cf.TargetEntity)

		onParts := make([]string, len(keys))
		for j, key := range keys {
			onParts[j] = sqlexpr.QuoteIdent(baseTable) + "." + sqlexpr.QuoteIdent(key.SourceColumn) +
				" = " + sqlexpr.QuoteIdent(alias) + "." + sqlexpr.QuoteIdent(key.TargetColumn)
		}
		joins = append(joins, "INNER JOIN "+sqlexpr.QuoteIdent(table)+" AS "+sqlexpr.QuoteIdent(alias)+
			" ON "+strings.Join(onParts, " AND "))

		for _, filter := range cf.Filters {
			e, err := compileCondition(alias+"."+filter.Field, filter.Condition)
			if err != nil {
				return nil, err
			}
			exprs = append(exprs, fieldExpr{field: filter.Field, expr: e})
		}
	}

	var optimizations []optimizer.Optimization
	for i := range exprs {
		rewritten, records := optimizer.Apply(c.passes, exprs[i].field, exprs[i].expr, c.cfg)
		exprs[i].expr = rewritten
		optimizations = append(optimizations, records...)
	}

	renderer := &sqlexpr.Renderer{Placeholders: placeholders}
	where, err := renderWhere(renderer, exprs)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	b.WriteString("SELECT * FROM ")
	b.WriteString(sqlexpr.QuoteIdent(baseTable))
	for _, join := range joins {
		b.WriteString(" ")
		b.WriteString(join)
	}
	if where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(where)
	}

	result := &CompileResult{SQL: b.String(), Optimizations: optimizations}
	if placeholders {
		result.Args = renderer.Args()
	}
	return result, nil
}

// renderWhere combines the per-field conditions under one top-level
// AND. A query with only a condition-free cross filter has no WHERE
// clause at all.
func renderWhere(renderer *sqlexpr.Renderer, exprs []fieldExpr) (string, error) {
	switch len(exprs) {
	case 0:
		return "", nil
	case 1:
		return renderer.Render(exprs[0].expr)
	default:
		operands := make([]sqlexpr.Expr, len(exprs))
		for i, fe := range exprs {
			operands[i] = fe.expr
		}
		return renderer.Render(sqlexpr.Logical{Op: ast.LogicalAnd, Operands: operands})
	}
}

// compileCondition lowers one condition tree, resolving the field to
// its (possibly alias-qualified) column.
func compileCondition(column string, cond ast.Condition) (sqlexpr.Expr, error) {
	switch node := cond.(type) {
	case ast.Compare:
		return sqlexpr.Compare{Column: column, Op: node.Op, Value: node.Value}, nil
	case ast.InSet:
		return sqlexpr.InSet{Column: column, Negated: node.Negated, Values: node.Values}, nil
	case ast.NullCheck:
		return sqlexpr.NullCheck{Column: column, Negated: node.Negated}, nil
	case ast.Logical:
		operands := make([]sqlexpr.Expr, len(node.Operands))
		for i, operand := range node.Operands {
			compiled, err := compileCondition(column, operand)
			if err != nil {
				return nil, err
			}
			operands[i] = compiled
		}
		return sqlexpr.Logical{Op: node.Op, Operands: operands}, nil
	default:
		return nil, fmt.Errorf("unsupported condition type: %T", cond)
	}
}
