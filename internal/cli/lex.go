package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/filterlang/filterlang/internal/lexer"
)

// LexedToken is one token in the lex command's JSON output.
type LexedToken struct {
	Kind  string `json:"kind"`
	Text  string `json:"text,omitempty"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// NewLexCommand creates the lex command.
func NewLexCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lex [query]",
		Short: "Tokenize a Filter DSL query",
		Long:  "Tokenize a Filter DSL query and print each token with its byte span.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLex(rootOpts, cmd, args)
		},
	}
	return cmd
}

func runLex(opts *RootOptions, cmd *cobra.Command, args []string) error {
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

	tokens, err := lexer.Tokenize(query)
	if err != nil {
		return reportQueryError(formatter, query, err)
	}

	if formatter.Format == "json" {
		out := make([]LexedToken, len(tokens))
		for i, t := range tokens {
			out[i] = LexedToken{
				Kind:  t.Kind.String(),
				Text:  t.Text,
				Start: t.Span.Start,
				End:   t.Span.End,
			}
		}
		return formatter.Success(out)
	}

	for _, t := range tokens {
		fmt.Fprintln(formatter.Writer, t.String())
	}
	return nil
}
