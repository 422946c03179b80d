package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filterlang/filterlang/internal/ast"
	"github.com/filterlang/filterlang/internal/config"
	"github.com/filterlang/filterlang/internal/schema"
	"github.com/filterlang/filterlang/internal/sqlgen"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Mapping string // table mapping file path
	Base    string // base entity name
	Params  bool   // emit $n placeholders instead of inline literals
	OrToIn  int    // minimum OR chain length folded into IN
	MaxIn   int    // largest IN list left unmarked
}

// CompileResponse is the success payload of the compile command.
type CompileResponse struct {
	SQL           string   `json:"sql"`
	Args          []any    `json:"args,omitempty"`
	Optimizations []string `json:"optimizations,omitempty"`
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	defaults := config.DefaultOptimizationConfig()
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile [query]",
		Short: "Compile a Filter DSL query to SQL",
		Long: `Compile a Filter DSL query to a SQL SELECT statement.

The query is taken from the argument, or from stdin when the argument
is absent or "-". Cross filters are resolved against the built-in
relationship registry and joined with sequential aliases.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, cmd, args)
		},
	}

	cmd.Flags().StringVarP(&opts.Mapping, "mapping", "m", "", "table mapping file (JSON, or YAML for .yaml/.yml)")
	cmd.Flags().StringVarP(&opts.Base, "base", "b", "", "base entity name (default: literal base_table)")
	cmd.Flags().BoolVarP(&opts.Params, "params", "p", false, "emit $n placeholders and print bound args")
	cmd.Flags().IntVar(&opts.OrToIn, "or-to-in", defaults.MaxOrConditionsForIn, "minimum OR chain length folded into IN")
	cmd.Flags().IntVar(&opts.MaxIn, "max-in", defaults.MaxInValues, "largest IN list not marked for UNION splitting")

	return cmd
}

func runCompile(opts *CompileOptions, cmd *cobra.Command, args []string) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	query, err := readQuery(cmd, args)
	if err != nil {
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "reading query", err)
	}

	compiler, err := newCompiler(opts, formatter)
	if err != nil {
		return err
	}

	tokens, parsed, err := lexAndParse(query)
	if err != nil {
		return reportQueryError(formatter, query, err)
	}
	formatter.VerboseLog("lexed %d token(s)", len(tokens))
	formatter.VerboseLog("parsed %d base filter(s), %d cross filter(s)",
		len(parsed.BaseFilters), len(parsed.CrossFilters))

	result, err := compileQuery(compiler, parsed, opts.Params)
	if err != nil {
		return reportQueryError(formatter, query, err)
	}

	return outputCompileSuccess(formatter, result)
}

// newCompiler builds the compiler from the command flags. An
// unreadable mapping file is recoverable: the built-in mapping is used
// and the problem is reported on stderr.
func newCompiler(opts *CompileOptions, formatter *OutputFormatter) (*sqlgen.Compiler, error) {
	compiler := sqlgen.New(schema.DefaultRegistry())

	if opts.Mapping != "" {
		mapping, err := config.LoadTableMapping(opts.Mapping)
		if err != nil {
			var loadErr *config.LoadError
			if !errors.As(err, &loadErr) {
				return nil, WrapExitError(ExitCommandError, "loading table mapping", err)
			}
			fmt.Fprintf(formatter.GetErrWriter(), "warning: %v; using built-in mapping\n", err)
		} else {
			compiler.SetTableMapping(mapping)
		}
	}

	if opts.OrToIn < 2 || opts.MaxIn < 1 {
		return nil, NewExitError(ExitCommandError, "--or-to-in must be >= 2 and --max-in must be >= 1")
	}
	compiler.SetConfig(config.OptimizationConfig{
		MaxOrConditionsForIn: opts.OrToIn,
		MaxInValues:          opts.MaxIn,
	})

	if opts.Base != "" {
		compiler.SetBaseEntity(opts.Base)
	}
	return compiler, nil
}

func compileQuery(compiler *sqlgen.Compiler, query *ast.Query, params bool) (*sqlgen.CompileResult, error) {
	if params {
		return compiler.CompileParams(query)
	}
	return compiler.Compile(query)
}

// outputCompileSuccess outputs a successful compilation.
func outputCompileSuccess(formatter *OutputFormatter, result *sqlgen.CompileResult) error {
	response := CompileResponse{SQL: result.SQL, Args: result.Args}
	for _, opt := range result.Optimizations {
		response.Optimizations = append(response.Optimizations, opt.String())
	}

	if formatter.Format == "json" {
		return formatter.Success(response)
	}

	// Human-readable text output
	fmt.Fprintln(formatter.Writer, response.SQL)
	for i, arg := range response.Args {
		fmt.Fprintf(formatter.Writer, "  $%d = %v\n", i+1, arg)
	}
	if len(response.Optimizations) > 0 {
		fmt.Fprintln(formatter.Writer, "Optimizations:")
		for _, opt := range response.Optimizations {
			fmt.Fprintf(formatter.Writer, "  %s\n", opt)
		}
	}
	return nil
}
