package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/filterlang/filterlang/internal/ast"
	"github.com/filterlang/filterlang/internal/lexer"
	"github.com/filterlang/filterlang/internal/parser"
	"github.com/filterlang/filterlang/internal/token"
)

// lexAndParse runs the front half of the pipeline.
func lexAndParse(input string) ([]token.Token, *ast.Query, error) {
	tokens, err := lexer.Tokenize(input)
	if err != nil {
		return nil, nil, err
	}
	query, err := parser.Parse(tokens)
	if err != nil {
		return tokens, nil, err
	}
	return tokens, query, nil
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse [query]",
		Short: "Parse a Filter DSL query and print its AST",
		Long: `Parse a Filter DSL query and print the resulting AST without
compiling it to SQL. Useful for inspecting precedence and grouping.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runParse(opts *RootOptions, cmd *cobra.Command, args []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	query, err := readQuery(cmd, args)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading query", err)
	}

	_, parsed, err := lexAndParse(query)
	if err != nil {
		return reportQueryError(formatter, query, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(queryToMap(parsed))
	}
	fmt.Fprint(formatter.Writer, renderQueryText(parsed))
	return nil
}

// queryToMap converts the AST to a plain map for JSON output, with an
// explicit "type" discriminator on every node.
func queryToMap(q *ast.Query) map[string]any {
	baseFilters := make([]any, 0, len(q.BaseFilters))
	for _, f := range q.BaseFilters {
		baseFilters = append(baseFilters, fieldFilterToMap(f))
	}
	crossFilters := make([]any, 0, len(q.CrossFilters))
	for _, cf := range q.CrossFilters {
		filters := make([]any, 0, len(cf.Filters))
		for _, f := range cf.Filters {
			filters = append(filters, fieldFilterToMap(f))
		}
		crossFilters = append(crossFilters, map[string]any{
			"source":  cf.SourceEntity,
			"target":  cf.TargetEntity,
			"filters": filters,
		})
	}
	return map[string]any{
		"base_filters":  baseFilters,
		"cross_filters": crossFilters,
	}
}

func fieldFilterToMap(f ast.FieldFilter) map[string]any {
	return map[string]any{
		"field":     f.Field,
		"condition": conditionToMap(f.Condition),
	}
}

func conditionToMap(cond ast.Condition) map[string]any {
	switch node := cond.(type) {
	case ast.Compare:
		return map[string]any{
			"type":  "compare",
			"op":    node.Op.String(),
			"value": valueToMap(node.Value),
		}
	case ast.InSet:
		values := make([]any, 0, len(node.Values))
		for _, v := range node.Values {
			values = append(values, valueToMap(v))
		}
		return map[string]any{
			"type":    "in",
			"negated": node.Negated,
			"values":  values,
		}
	case ast.NullCheck:
		return map[string]any{
			"type":    "null_check",
			"negated": node.Negated,
		}
	case ast.Logical:
		operands := make([]any, 0, len(node.Operands))
		for _, operand := range node.Operands {
			operands = append(operands, conditionToMap(operand))
		}
		return map[string]any{
			"type":     "logical",
			"op":       node.Op.String(),
			"operands": operands,
		}
	default:
		return map[string]any{"type": fmt.Sprintf("%T", cond)}
	}
}

func valueToMap(v ast.Value) map[string]any {
	switch val := v.(type) {
	case ast.Str:
		return map[string]any{"type": "string", "value": string(val)}
	case ast.Number:
		return map[string]any{"type": "number", "value": int64(val)}
	case ast.Date:
		return map[string]any{"type": "date", "value": string(val)}
	case ast.Special:
		return map[string]any{"type": "special", "value": val.String()}
	default:
		return map[string]any{"type": fmt.Sprintf("%T", v)}
	}
}

// renderQueryText renders the AST back into readable DSL-like text,
// one filter per line.
func renderQueryText(q *ast.Query) string {
	var b strings.Builder
	if len(q.BaseFilters) > 0 {
		b.WriteString("Filter:\n")
		for _, f := range q.BaseFilters {
			fmt.Fprintf(&b, "  %s %s\n", f.Field, conditionText(f.Condition))
		}
	}
	for _, cf := range q.CrossFilters {
		fmt.Fprintf(&b, "CrossFilter: %s-%s\n", cf.SourceEntity, cf.TargetEntity)
		for _, f := range cf.Filters {
			fmt.Fprintf(&b, "  %s %s\n", f.Field, conditionText(f.Condition))
		}
	}
	if b.Len() == 0 {
		b.WriteString("(empty query)\n")
	}
	return b.String()
}

func conditionText(cond ast.Condition) string {
	switch node := cond.(type) {
	case ast.Compare:
		return node.Op.String() + " " + valueText(node.Value)
	case ast.InSet:
		values := make([]string, len(node.Values))
		for i, v := range node.Values {
			values[i] = valueText(v)
		}
		op := "IN"
		if node.Negated {
			op = "NOT IN"
		}
		return op + " (" + strings.Join(values, ", ") + ")"
	case ast.NullCheck:
		if node.Negated {
			return "IS NOT NULL"
		}
		return "IS NULL"
	case ast.Logical:
		if node.Op == ast.LogicalNot && len(node.Operands) == 1 {
			return "NOT (" + conditionText(node.Operands[0]) + ")"
		}
		operands := make([]string, len(node.Operands))
		for i, operand := range node.Operands {
			operands[i] = conditionText(operand)
		}
		return "(" + strings.Join(operands, " "+node.Op.String()+" ") + ")"
	default:
		return fmt.Sprintf("%T", cond)
	}
}

func valueText(v ast.Value) string {
	switch val := v.(type) {
	case ast.Str:
		return strconv.Quote(string(val))
	case ast.Number:
		return strconv.FormatInt(int64(val), 10)
	case ast.Date:
		return string(val)
	case ast.Special:
		return val.String()
	default:
		return fmt.Sprintf("%T", v)
	}
}
