// Package token defines the lexical tokens of the Filter DSL and the
// source spans used for positional error reporting.
package token

import "fmt"

// Kind identifies the type of a lexical token.
type Kind int

const (
	// Section markers
	KindFilter      Kind = iota // "Filter:"
	KindCrossFilter             // "CrossFilter:"

	// Keywords
	KindAnd  // AND
	KindOr   // OR
	KindNot  // NOT
	KindIn   // IN
	KindIs   // IS
	KindNull // NULL

	// Special values
	KindToday       // today
	KindYesterday   // yesterday
	KindTomorrow    // tomorrow
	KindCurrentUser // current_user

	// Literals
	KindIdent  // bare identifier (field/entity name, unquoted string value)
	KindString // double-quoted string, quotes stripped
	KindNumber // integer literal
	KindDate   // date literal, normalized to 2006-01-02

	// Punctuation
	KindLParen    // (
	KindRParen    // )
	KindLBracket  // [
	KindRBracket  // ]
	KindSemicolon // ;
	KindComma     // ,
	KindDash      // -

	// Comparison operators. Lt/Gt double as the <...> entity marker
	// brackets in cross-filter headers.
	KindEq    // =
	KindNotEq // !=
	KindGt    // >
	KindLt    // <
	KindGte   // >=
	KindLte   // <=

	KindEOF
)

var kindNames = map[Kind]string{
	KindFilter: "Filter:", KindCrossFilter: "CrossFilter:",
	KindAnd: "AND", KindOr: "OR", KindNot: "NOT", KindIn: "IN", KindIs: "IS", KindNull: "NULL",
	KindToday: "today", KindYesterday: "yesterday", KindTomorrow: "tomorrow", KindCurrentUser: "current_user",
	KindIdent: "IDENT", KindString: "STRING", KindNumber: "NUMBER", KindDate: "DATE",
	KindLParen: "(", KindRParen: ")", KindLBracket: "[", KindRBracket: "]",
	KindSemicolon: ";", KindComma: ",", KindDash: "-",
	KindEq: "=", KindNotEq: "!=", KindGt: ">", KindLt: "<", KindGte: ">=", KindLte: "<=",
	KindEOF: "EOF",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Span is a half-open byte range [Start, End) in the original input.
type Span struct {
	Start int
	End   int
}

// Token is a single lexical unit. Tokens are produced once by the lexer
// and never mutated.
type Token struct {
	Kind Kind
	// Text is the token's value: the identifier or string content,
	// the raw digits of a number, or the normalized date. Empty for
	// punctuation and keywords.
	Text string
	Span Span
}

func (t Token) String() string {
	if t.Text != "" {
		return fmt.Sprintf("%s(%q)@%d", t.Kind, t.Text, t.Span.Start)
	}
	return fmt.Sprintf("%s@%d", t.Kind, t.Span.Start)
}
