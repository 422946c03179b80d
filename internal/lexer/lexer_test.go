package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/filterlang/filterlang/internal/token"
)

func kinds(tokens []token.Token) []token.Kind {
	out := make([]token.Kind, len(tokens))
	for i, t := range tokens {
		out[i] = t.Kind
	}
	return out
}

func TestTokenize_BasicFilter(t *testing.T) {
	tokens, err := Tokenize(`Filter: status["Open"]; priority[>2]`)
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.KindFilter,
		token.KindIdent, token.KindLBracket, token.KindString, token.KindRBracket,
		token.KindSemicolon,
		token.KindIdent, token.KindLBracket, token.KindGt, token.KindNumber, token.KindRBracket,
		token.KindEOF,
	}, kinds(tokens))

	assert.Equal(t, "status", tokens[1].Text)
	assert.Equal(t, "Open", tokens[3].Text)
	assert.Equal(t, "priority", tokens[6].Text)
	assert.Equal(t, "2", tokens[9].Text)

	// Byte spans are half-open and cover the quotes of string literals.
	assert.Equal(t, token.Span{Start: 0, End: 7}, tokens[0].Span)
	assert.Equal(t, token.Span{Start: 8, End: 14}, tokens[1].Span)
	assert.Equal(t, token.Span{Start: 15, End: 21}, tokens[3].Span)
	assert.Equal(t, token.Span{Start: 36, End: 36}, tokens[len(tokens)-1].Span)
}

func TestTokenize_CrossFilterHeader(t *testing.T) {
	tokens, err := Tokenize(`CrossFilter: <Test-Run> status["PASS"]`)
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.KindCrossFilter,
		token.KindLt, token.KindIdent, token.KindGt,
		token.KindIdent, token.KindLBracket, token.KindString, token.KindRBracket,
		token.KindEOF,
	}, kinds(tokens))

	// The entity pair lexes as one identifier; the parser splits it.
	assert.Equal(t, "Test-Run", tokens[2].Text)
}

func TestTokenize_KeywordsCaseInsensitive(t *testing.T) {
	tokens, err := Tokenize("and OR Not in IS null TODAY yesterday tomorrow current_user")
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.KindAnd, token.KindOr, token.KindNot, token.KindIn, token.KindIs, token.KindNull,
		token.KindToday, token.KindYesterday, token.KindTomorrow, token.KindCurrentUser,
		token.KindEOF,
	}, kinds(tokens))
}

func TestTokenize_Operators(t *testing.T) {
	tokens, err := Tokenize("= != > < >= <= ( ) ; ,")
	require.NoError(t, err)

	assert.Equal(t, []token.Kind{
		token.KindEq, token.KindNotEq, token.KindGt, token.KindLt, token.KindGte, token.KindLte,
		token.KindLParen, token.KindRParen, token.KindSemicolon, token.KindComma,
		token.KindEOF,
	}, kinds(tokens))
}

func TestTokenize_FilterWithoutColonIsIdent(t *testing.T) {
	tokens, err := Tokenize("Filter")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.KindIdent, tokens[0].Kind)
	assert.Equal(t, "Filter", tokens[0].Text)
}

func TestTokenize_Dates(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{name: "iso", input: "2024-01-15", want: "2024-01-15"},
		{name: "slash", input: "2024/01/15", want: "2024-01-15"},
		{name: "european dotted", input: "15.01.2024", want: "2024-01-15"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tokens, err := Tokenize(tc.input)
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, token.KindDate, tokens[0].Kind)
			assert.Equal(t, tc.want, tokens[0].Text)
			assert.Equal(t, token.Span{Start: 0, End: len(tc.input)}, tokens[0].Span)
		})
	}
}

func TestTokenize_InvalidDates(t *testing.T) {
	testCases := []struct {
		name  string
		input string
	}{
		{name: "month out of range", input: "2024-13-40"},
		{name: "unpadded", input: "2024-1-5"},
		{name: "truncated", input: "2024-01"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Tokenize(tc.input)
			require.Error(t, err)
			var lexErr *Error
			require.ErrorAs(t, err, &lexErr)
			assert.Equal(t, 0, lexErr.Offset)
			assert.Contains(t, lexErr.Message, "invalid date literal")
		})
	}
}

func TestTokenize_Number(t *testing.T) {
	tokens, err := Tokenize("12345")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.KindNumber, tokens[0].Kind)
	assert.Equal(t, "12345", tokens[0].Text)
}

func TestTokenize_StringPreservesNewlines(t *testing.T) {
	tokens, err := Tokenize("\"line one\nline two\"")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.KindString, tokens[0].Kind)
	assert.Equal(t, "line one\nline two", tokens[0].Text)
}

func TestTokenize_UnterminatedString(t *testing.T) {
	_, err := Tokenize(`Filter: status["Open`)
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 15, lexErr.Offset)
	assert.Equal(t, "unterminated string", lexErr.Message)
}

func TestTokenize_BareBang(t *testing.T) {
	_, err := Tokenize(`status[!Open]`)
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 7, lexErr.Offset)
	assert.Contains(t, lexErr.Message, `did you mean "!="`)
}

func TestTokenize_UnexpectedCharacter(t *testing.T) {
	_, err := Tokenize("status @ 2")
	require.Error(t, err)
	var lexErr *Error
	require.ErrorAs(t, err, &lexErr)
	assert.Equal(t, 7, lexErr.Offset)
}

func TestTokenize_EmptyInput(t *testing.T) {
	tokens, err := Tokenize("")
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, token.KindEOF, tokens[0].Kind)
}

func TestTokenize_IdentifierWithDashesAndUnderscores(t *testing.T) {
	tokens, err := Tokenize("test_run-count")
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, token.KindIdent, tokens[0].Kind)
	assert.Equal(t, "test_run-count", tokens[0].Text)
}
