package cli

import (
	"errors"

	"github.com/filterlang/filterlang/internal/lexer"
	"github.com/filterlang/filterlang/internal/parser"
	"github.com/filterlang/filterlang/internal/schema"
	"github.com/filterlang/filterlang/internal/sqlgen"
	"github.com/filterlang/filterlang/internal/token"
)

// reportQueryError renders a lex, parse or compile error through the
// formatter (with a caret into the source where the error carries a
// position) and returns the ExitError with the matching exit code.
func reportQueryError(formatter *OutputFormatter, input string, err error) error {
	var lexErr *lexer.Error
	if errors.As(err, &lexErr) {
		caret := token.Caret(input, token.Span{Start: lexErr.Offset, End: lexErr.Offset + 1})
		_ = formatter.Error(ErrCodeLex, lexErr.Error(), caret)
		return WrapExitError(ExitFailure, "lexing failed", err)
	}

	var parseErr *parser.Error
	if errors.As(err, &parseErr) {
		caret := token.Caret(input, parseErr.Span)
		_ = formatter.Error(ErrCodeParse, parseErr.Error(), caret)
		return WrapExitError(ExitFailure, "parsing failed", err)
	}

	if schema.IsUnknownRelationship(err) {
		_ = formatter.Error(ErrCodeSchema, err.Error(), nil)
		return WrapExitError(ExitFailure, "schema resolution failed", err)
	}

	if errors.Is(err, sqlgen.ErrEmptyQuery) {
		_ = formatter.Error(ErrCodeEmpty, err.Error(), nil)
		return WrapExitError(ExitFailure, "nothing to compile", err)
	}

	_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
	return WrapExitError(ExitCommandError, "compilation failed", err)
}
