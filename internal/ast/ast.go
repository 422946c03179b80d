// Package ast defines the abstract syntax tree produced by the Filter
// DSL parser.
//
// Condition and Value are sealed interfaces using the marker method
// pattern: only types in this package implement them. This keeps type
// switches in the SQL compiler exhaustive and prevents external node
// kinds from entering the tree.
//
// Trees are finite and immutable after construction. Precedence is
// baked in at parse time (NOT binds tighter than AND, which binds
// tighter than OR); parenthesized grouping is captured by tree shape
// and never by a dedicated node kind.
package ast

// Query is the parse result: an ordered list of field filters on the
// base entity plus zero or more cross-entity filter sections.
//
// Invariant: at most one CrossFilter per distinct (source, target)
// relationship, and at most one FieldFilter per field within a
// section. The parser rejects duplicates; it never merges them.
type Query struct {
	BaseFilters  []FieldFilter
	CrossFilters []CrossFilter
}

// Empty reports whether the query carries no filters at all.
func (q *Query) Empty() bool {
	return len(q.BaseFilters) == 0 && len(q.CrossFilters) == 0
}

// FieldFilter binds exactly one condition tree to one field.
// Field names are case-insensitive and may contain internal spaces.
type FieldFilter struct {
	Field     string
	Condition Condition
}

// CrossFilter applies field filters to an entity reachable from the
// base entity via a registered relationship. The parser only records
// the entity names as written; join resolution happens in the
// compiler.
type CrossFilter struct {
	SourceEntity string
	TargetEntity string
	Filters      []FieldFilter
}

// Condition is a node in a per-field condition tree.
//
// Condition kinds:
//   - Compare: operator + value ("Open" is shorthand for ="Open")
//   - Logical: AND/OR (n-ary) or NOT (exactly one operand)
//   - InSet: IN (...) / NOT IN (...)
//   - NullCheck: IS NULL / IS NOT NULL
type Condition interface {
	conditionNode() // sealed
}

// CompareOp is a comparison operator in a Compare condition.
type CompareOp int

const (
	OpEq CompareOp = iota // =
	OpNe                  // !=
	OpGt                  // >
	OpLt                  // <
	OpGe                  // >=
	OpLe                  // <=
)

var compareOpNames = [...]string{"=", "!=", ">", "<", ">=", "<="}

func (op CompareOp) String() string {
	if int(op) < len(compareOpNames) {
		return compareOpNames[op]
	}
	return "CompareOp(?)"
}

// LogicalOp is the operator of a Logical condition.
type LogicalOp int

const (
	LogicalAnd LogicalOp = iota
	LogicalOr
	LogicalNot
)

var logicalOpNames = [...]string{"AND", "OR", "NOT"}

func (op LogicalOp) String() string {
	if int(op) < len(logicalOpNames) {
		return logicalOpNames[op]
	}
	return "LogicalOp(?)"
}

// Compare is a leaf condition: a comparison of the filter's field
// against a single value.
type Compare struct {
	Op    CompareOp
	Value Value
}

func (Compare) conditionNode() {}

// Logical combines child conditions with AND, OR or NOT.
//
// Unparenthesized chains are flattened at parse time, so
// `a OR b OR c` has three operands; `(a OR b) OR c` keeps the nested
// shape. Not has exactly one operand.
type Logical struct {
	Op       LogicalOp
	Operands []Condition
}

func (Logical) conditionNode() {}

// InSet is an IN (...) membership test, negated for NOT IN.
type InSet struct {
	Negated bool
	Values  []Value
}

func (InSet) conditionNode() {}

// NullCheck is IS NULL, or IS NOT NULL when negated.
type NullCheck struct {
	Negated bool
}

func (NullCheck) conditionNode() {}

// Value is a literal operand in a condition.
//
// Value kinds: Str, Number, Date (canonical ISO form), Special.
// A Special value stands alone in its comparison position: the parser
// forbids combining it with another condition through AND/OR/NOT,
// while comparison operators (`>yesterday`) remain legal.
type Value interface {
	valueNode() // sealed
}

// Str is a string value, quoted or bare in the source.
type Str string

func (Str) valueNode() {}

// Number is an integer value. Always int64; the DSL has no floats.
type Number int64

func (Number) valueNode() {}

// Date is a date value normalized to 2006-01-02 by the lexer.
type Date string

func (Date) valueNode() {}

// Special is a keyword value substituted into the SQL text rather
// than bound as a parameter.
type Special int

const (
	SpecialToday Special = iota
	SpecialYesterday
	SpecialTomorrow
	SpecialCurrentUser
)

func (Special) valueNode() {}

var specialNames = [...]string{"today", "yesterday", "tomorrow", "current_user"}

func (s Special) String() string {
	if int(s) < len(specialNames) {
		return specialNames[s]
	}
	return "Special(?)"
}
