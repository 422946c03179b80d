// Package parser builds a Filter DSL query AST from the lexer's token
// stream.
//
// The condition grammar is parsed by recursive descent with precedence
// climbing, lowest to highest: OR, AND, NOT, primary. Parentheses
// reset precedence; grouping is captured by tree shape, not by a node
// kind. A bare value is shorthand for an equality comparison.
//
// Beyond the grammar, the parser enforces the section-level semantic
// rules: one condition tree per field per section, one cross filter
// per (source, target) relationship, and no combination of a special
// value with other conditions through AND/OR/NOT.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/filterlang/filterlang/internal/ast"
	"github.com/filterlang/filterlang/internal/token"
)

// Error is a fatal grammar or section-semantic violation. It carries
// the offending token's span so callers can render a caret pointer
// into the original text.
type Error struct {
	Span     token.Span
	Expected string
	Found    string
	// Message is set for semantic errors (duplicate field, duplicate
	// relationship, illegal special-value combination) where an
	// expected/found pair would be misleading.
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("parse error at offset %d: %s", e.Span.Start, e.Message)
	}
	return fmt.Sprintf("parse error at offset %d: expected %s, found %s", e.Span.Start, e.Expected, e.Found)
}

// DefaultMaxDepth caps parenthesis nesting so adversarial input cannot
// exhaust the stack. Callers embedding the parser in a service can
// lower it with WithMaxDepth.
const DefaultMaxDepth = 200

// Option configures a parse call.
type Option func(*parser)

// WithMaxDepth overrides the parenthesis nesting cap.
func WithMaxDepth(n int) Option {
	return func(p *parser) { p.maxDepth = n }
}

type parser struct {
	tokens   []token.Token
	pos      int
	depth    int
	maxDepth int

	baseSeen map[string]struct{} // folded field names in the base section
	relSeen  map[string]struct{} // folded source\x00target pairs
}

// Parse consumes a token stream (as produced by lexer.Tokenize,
// terminated by EOF) and returns the query AST.
func Parse(tokens []token.Token, opts ...Option) (*ast.Query, error) {
	p := &parser{
		tokens:   tokens,
		maxDepth: DefaultMaxDepth,
		baseSeen: make(map[string]struct{}),
		relSeen:  make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}

	query := &ast.Query{}
	for {
		t := p.peek()
		switch t.Kind {
		case token.KindEOF:
			return query, nil
		case token.KindFilter:
			p.next()
			filters, err := p.parseFieldFilters(p.baseSeen)
			if err != nil {
				return nil, err
			}
			query.BaseFilters = append(query.BaseFilters, filters...)
		case token.KindCrossFilter:
			p.next()
			cf, err := p.parseCrossFilter()
			if err != nil {
				return nil, err
			}
			query.CrossFilters = append(query.CrossFilters, cf)
		default:
			return nil, &Error{Span: t.Span, Expected: `"Filter:" or "CrossFilter:"`, Found: describe(t)}
		}
	}
}

func (p *parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Kind: token.KindEOF}
	}
	return p.tokens[p.pos]
}

func (p *parser) next() token.Token {
	t := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return t
}

func (p *parser) expect(kind token.Kind, what string) (token.Token, error) {
	t := p.peek()
	if t.Kind != kind {
		return token.Token{}, &Error{Span: t.Span, Expected: what, Found: describe(t)}
	}
	return p.next(), nil
}

func describe(t token.Token) string {
	if t.Kind == token.KindEOF {
		return "end of input"
	}
	if t.Text != "" {
		return fmt.Sprintf("%q", t.Text)
	}
	return fmt.Sprintf("%q", t.Kind.String())
}

// fold normalizes a name for case-insensitive comparison.
func fold(s string) string {
	return cases.Fold().String(s)
}

// parseFieldFilters consumes semicolon-separated field filters until
// the section ends at a new section marker or end of input. Empty
// segments ("Filter: ;") are allowed and contribute nothing.
func (p *parser) parseFieldFilters(seen map[string]struct{}) ([]ast.FieldFilter, error) {
	var filters []ast.FieldFilter
	for {
		t := p.peek()
		switch t.Kind {
		case token.KindEOF, token.KindFilter, token.KindCrossFilter:
			return filters, nil
		case token.KindSemicolon:
			p.next()
			continue
		}

		filter, err := p.parseFieldFilter(seen)
		if err != nil {
			return nil, err
		}
		filters = append(filters, filter)

		t = p.peek()
		switch t.Kind {
		case token.KindSemicolon:
			p.next()
		case token.KindEOF, token.KindFilter, token.KindCrossFilter:
			// section ends without a trailing semicolon
		default:
			return nil, &Error{Span: t.Span, Expected: `";"`, Found: describe(t)}
		}
	}
}

// parseFieldFilter parses `field [ condition ]`. Consecutive
// identifier tokens before the bracket form one multi-word field name
// joined by single spaces.
func (p *parser) parseFieldFilter(seen map[string]struct{}) (ast.FieldFilter, error) {
	nameTok, err := p.expect(token.KindIdent, "field name")
	if err != nil {
		return ast.FieldFilter{}, err
	}
	name := nameTok.Text
	span := nameTok.Span
	for p.peek().Kind == token.KindIdent {
		t := p.next()
		name += " " + t.Text
		span.End = t.Span.End
	}

	key := fold(name)
	if _, dup := seen[key]; dup {
		return ast.FieldFilter{}, &Error{
			Span:    span,
			Message: fmt.Sprintf("duplicate condition for field %q in this section", name),
		}
	}
	seen[key] = struct{}{}

	if _, err := p.expect(token.KindLBracket, `"["`); err != nil {
		return ast.FieldFilter{}, err
	}
	cond, err := p.parseCondition()
	if err != nil {
		return ast.FieldFilter{}, err
	}
	if _, err := p.expect(token.KindRBracket, `"]"`); err != nil {
		return ast.FieldFilter{}, err
	}
	return ast.FieldFilter{Field: name, Condition: cond}, nil
}

// parseCrossFilter parses `<Source-Target>` followed by the section's
// field filters. Entity names are letters only; the pair must not have
// appeared before in this query.
func (p *parser) parseCrossFilter() (ast.CrossFilter, error) {
	if _, err := p.expect(token.KindLt, `"<"`); err != nil {
		return ast.CrossFilter{}, err
	}
	entTok, err := p.expect(token.KindIdent, "entity pair")
	if err != nil {
		return ast.CrossFilter{}, err
	}
	parts := strings.Split(entTok.Text, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ast.CrossFilter{}, &Error{
			Span:    entTok.Span,
			Message: fmt.Sprintf("entity pair %q must have the form Source-Target", entTok.Text),
		}
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsLetter(r) {
				return ast.CrossFilter{}, &Error{
					Span:    entTok.Span,
					Message: fmt.Sprintf("entity name %q must contain only letters", part),
				}
			}
		}
	}
	if _, err := p.expect(token.KindGt, `">"`); err != nil {
		return ast.CrossFilter{}, err
	}

	key := fold(parts[0]) + "\x00" + fold(parts[1])
	if _, dup := p.relSeen[key]; dup {
		return ast.CrossFilter{}, &Error{
			Span:    entTok.Span,
			Message: fmt.Sprintf("duplicate cross filter for relationship %s-%s", parts[0], parts[1]),
		}
	}
	p.relSeen[key] = struct{}{}

	seen := make(map[string]struct{})
	filters, err := p.parseFieldFilters(seen)
	if err != nil {
		return ast.CrossFilter{}, err
	}
	return ast.CrossFilter{
		SourceEntity: parts[0],
		TargetEntity: parts[1],
		Filters:      filters,
	}, nil
}

func (p *parser) parseCondition() (ast.Condition, error) {
	return p.parseOr()
}

// parseOr parses `and_expr (OR and_expr)*` into an n-ary Logical node.
func (p *parser) parseOr() (ast.Condition, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.KindOr {
		return left, nil
	}

	operands := []ast.Condition{left}
	for p.peek().Kind == token.KindOr {
		opTok := p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		if err := checkCombinable(opTok, left, right); err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	return ast.Logical{Op: ast.LogicalOr, Operands: operands}, nil
}

// parseAnd parses `not_expr (AND not_expr)*` into an n-ary Logical node.
func (p *parser) parseAnd() (ast.Condition, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != token.KindAnd {
		return left, nil
	}

	operands := []ast.Condition{left}
	for p.peek().Kind == token.KindAnd {
		opTok := p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		if err := checkCombinable(opTok, left, right); err != nil {
			return nil, err
		}
		operands = append(operands, right)
	}
	return ast.Logical{Op: ast.LogicalAnd, Operands: operands}, nil
}

// parseNot parses `NOT* primary`. `NOT IN (...)` is a negated set
// membership test, not a Logical node.
func (p *parser) parseNot() (ast.Condition, error) {
	if p.peek().Kind != token.KindNot {
		return p.parsePrimary()
	}
	notTok := p.next()
	if p.peek().Kind == token.KindIn {
		return p.parseInSet(true)
	}
	operand, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	if err := checkCombinable(notTok, operand); err != nil {
		return nil, err
	}
	return ast.Logical{Op: ast.LogicalNot, Operands: []ast.Condition{operand}}, nil
}

// parsePrimary parses the highest-precedence forms: grouping, null
// checks, IN lists, operator comparisons, and bare values (implicit
// equality).
func (p *parser) parsePrimary() (ast.Condition, error) {
	t := p.peek()
	switch t.Kind {
	case token.KindLParen:
		p.next()
		p.depth++
		if p.depth > p.maxDepth {
			return nil, &Error{Span: t.Span, Message: "expression nesting too deep"}
		}
		cond, err := p.parseCondition()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.KindRParen, `")"`); err != nil {
			return nil, err
		}
		p.depth--
		return cond, nil

	case token.KindIs:
		p.next()
		negated := false
		if p.peek().Kind == token.KindNot {
			p.next()
			negated = true
		}
		if _, err := p.expect(token.KindNull, "NULL"); err != nil {
			return nil, err
		}
		return ast.NullCheck{Negated: negated}, nil

	case token.KindIn:
		return p.parseInSet(false)

	case token.KindEq, token.KindNotEq, token.KindGt, token.KindLt, token.KindGte, token.KindLte:
		op := compareOp(p.next().Kind)
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return ast.Compare{Op: op, Value: value}, nil

	default:
		value, err := p.parseValue()
		if err != nil {
			return nil, err
		}
		return ast.Compare{Op: ast.OpEq, Value: value}, nil
	}
}

func (p *parser) parseInSet(negated bool) (ast.Condition, error) {
	if _, err := p.expect(token.KindIn, "IN"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.KindLParen, `"("`); err != nil {
		return nil, err
	}
	var values []ast.Value
	if p.peek().Kind != token.KindRParen {
		for {
			v, err := p.parseValue()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
			if p.peek().Kind == token.KindRParen {
				break
			}
			if _, err := p.expect(token.KindComma, `","`); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(token.KindRParen, `")"`); err != nil {
		return nil, err
	}
	return ast.InSet{Negated: negated, Values: values}, nil
}

func (p *parser) parseValue() (ast.Value, error) {
	t := p.next()
	switch t.Kind {
	case token.KindString, token.KindIdent:
		return ast.Str(t.Text), nil
	case token.KindNumber:
		n, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, &Error{Span: t.Span, Message: fmt.Sprintf("number %s out of range", t.Text)}
		}
		return ast.Number(n), nil
	case token.KindDate:
		return ast.Date(t.Text), nil
	case token.KindToday:
		return ast.SpecialToday, nil
	case token.KindYesterday:
		return ast.SpecialYesterday, nil
	case token.KindTomorrow:
		return ast.SpecialTomorrow, nil
	case token.KindCurrentUser:
		return ast.SpecialCurrentUser, nil
	default:
		return nil, &Error{Span: t.Span, Expected: "a value", Found: describe(t)}
	}
}

func compareOp(kind token.Kind) ast.CompareOp {
	switch kind {
	case token.KindEq:
		return ast.OpEq
	case token.KindNotEq:
		return ast.OpNe
	case token.KindGt:
		return ast.OpGt
	case token.KindLt:
		return ast.OpLt
	case token.KindGte:
		return ast.OpGe
	default:
		return ast.OpLe
	}
}

// checkCombinable rejects AND/OR/NOT combinations involving a special
// value. `assignee[current_user]` and `dueDate[>today]` are legal;
// `assignee[current_user OR "bob"]` is not.
func checkCombinable(opTok token.Token, conds ...ast.Condition) error {
	for _, cond := range conds {
		if s, found := findSpecial(cond); found {
			return &Error{
				Span:    opTok.Span,
				Message: fmt.Sprintf("special value %q cannot be combined with %s", s, opTok.Kind),
			}
		}
	}
	return nil
}

// findSpecial locates a special value used in a comparison position
// anywhere under cond. Specials inside IN lists are not combination
// operands and are left alone.
func findSpecial(cond ast.Condition) (ast.Special, bool) {
	switch c := cond.(type) {
	case ast.Compare:
		if s, ok := c.Value.(ast.Special); ok {
			return s, true
		}
	case ast.Logical:
		for _, operand := range c.Operands {
			if s, ok := findSpecial(operand); ok {
				return s, true
			}
		}
	}
	return 0, false
}
