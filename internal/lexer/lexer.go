// Package lexer turns Filter DSL text into a flat token stream.
//
// The lexer is purely lexical: it accepts both quoted and unquoted
// string forms and leaves the rules about when quoting is mandatory to
// the parser. Every token carries its byte span in the original input.
package lexer

import (
	"fmt"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/filterlang/filterlang/internal/token"
)

// Error is a fatal lexical error: an unterminated string, a malformed
// date literal, or an unrecognized character.
type Error struct {
	Offset  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Offset, e.Message)
}

var keywords = map[string]token.Kind{
	"and":          token.KindAnd,
	"or":           token.KindOr,
	"not":          token.KindNot,
	"in":           token.KindIn,
	"is":           token.KindIs,
	"null":         token.KindNull,
	"today":        token.KindToday,
	"yesterday":    token.KindYesterday,
	"tomorrow":     token.KindTomorrow,
	"current_user": token.KindCurrentUser,
}

// dateLayouts are the accepted date literal formats. Whatever the
// input form, the emitted token text is normalized to 2006-01-02.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"02.01.2006",
}

type lexer struct {
	input string
	pos   int
}

// Tokenize scans the whole input and returns the token stream,
// terminated by an EOF token.
func Tokenize(input string) ([]token.Token, error) {
	l := &lexer{input: input}
	var tokens []token.Token

	for {
		l.skipWhitespace()
		start := l.pos
		c, ok := l.bump()
		if !ok {
			tokens = append(tokens, token.Token{Kind: token.KindEOF, Span: token.Span{Start: start, End: start}})
			return tokens, nil
		}

		var tok token.Token
		var err error
		switch {
		case c == '=':
			tok = l.punct(token.KindEq, start)
		case c == '(':
			tok = l.punct(token.KindLParen, start)
		case c == ')':
			tok = l.punct(token.KindRParen, start)
		case c == '[':
			tok = l.punct(token.KindLBracket, start)
		case c == ']':
			tok = l.punct(token.KindRBracket, start)
		case c == ';':
			tok = l.punct(token.KindSemicolon, start)
		case c == ',':
			tok = l.punct(token.KindComma, start)
		case c == '-':
			tok = l.punct(token.KindDash, start)
		case c == '<':
			if l.peek() == '=' {
				l.bump()
				tok = l.punct(token.KindLte, start)
			} else {
				tok = l.punct(token.KindLt, start)
			}
		case c == '>':
			if l.peek() == '=' {
				l.bump()
				tok = l.punct(token.KindGte, start)
			} else {
				tok = l.punct(token.KindGt, start)
			}
		case c == '!':
			if l.peek() == '=' {
				l.bump()
				tok = l.punct(token.KindNotEq, start)
			} else {
				err = &Error{Offset: start, Message: `unexpected character '!' (did you mean "!="?)`}
			}
		case c == '"':
			tok, err = l.readString(start)
		case c >= '0' && c <= '9':
			tok, err = l.readNumberOrDate(start)
		case unicode.IsLetter(c):
			tok = l.readIdentifier(start)
		default:
			err = &Error{Offset: start, Message: fmt.Sprintf("unexpected character %q", c)}
		}
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
	}
}

func (l *lexer) punct(kind token.Kind, start int) token.Token {
	return token.Token{Kind: kind, Span: token.Span{Start: start, End: l.pos}}
}

// peek returns the current rune without advancing, or utf8.RuneError
// at end of input.
func (l *lexer) peek() rune {
	if l.pos >= len(l.input) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
	return r
}

func (l *lexer) peekAt(offset int) rune {
	if l.pos+offset >= len(l.input) {
		return utf8.RuneError
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.pos+offset:])
	return r
}

func (l *lexer) bump() (rune, bool) {
	if l.pos >= len(l.input) {
		return 0, false
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	return r, true
}

func (l *lexer) skipWhitespace() {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsSpace(r) {
			break
		}
		l.pos += size
	}
}

// readString consumes a double-quoted string. The opening quote was
// already consumed by the caller. Embedded newlines are preserved
// verbatim; there are no escape sequences in the DSL.
func (l *lexer) readString(start int) (token.Token, error) {
	contentStart := l.pos
	for l.pos < len(l.input) {
		if l.input[l.pos] == '"' {
			content := l.input[contentStart:l.pos]
			l.pos++ // closing quote
			return token.Token{
				Kind: token.KindString,
				Text: content,
				Span: token.Span{Start: start, End: l.pos},
			}, nil
		}
		_, size := utf8.DecodeRuneInString(l.input[l.pos:])
		l.pos += size
	}
	return token.Token{}, &Error{Offset: start, Message: "unterminated string"}
}

// readNumberOrDate consumes an integer literal, or a date literal when
// the digit run continues with a date separator. Dates are validated
// against dateLayouts and normalized to ISO form.
func (l *lexer) readNumberOrDate(start int) (token.Token, error) {
	for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
		l.pos++
	}

	if isDateSeparator(l.peek()) && isDigitRune(l.peekAt(1)) {
		for l.pos < len(l.input) && (isDigit(l.input[l.pos]) || isDateSeparator(rune(l.input[l.pos]))) {
			l.pos++
		}
		text := l.input[start:l.pos]
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return token.Token{
					Kind: token.KindDate,
					Text: t.Format("2006-01-02"),
					Span: token.Span{Start: start, End: l.pos},
				}, nil
			}
		}
		return token.Token{}, &Error{Offset: start, Message: fmt.Sprintf("invalid date literal %q", text)}
	}

	return token.Token{
		Kind: token.KindNumber,
		Text: l.input[start:l.pos],
		Span: token.Span{Start: start, End: l.pos},
	}, nil
}

// readIdentifier consumes an identifier or keyword. Identifiers may
// contain letters, digits, dashes and underscores; "Test-Run" is a
// single identifier that the parser splits at the cross-filter header.
// "Filter" and "CrossFilter" immediately followed by ':' become
// section markers. Keyword matching is case-insensitive.
func (l *lexer) readIdentifier(start int) token.Token {
	for l.pos < len(l.input) {
		r, size := utf8.DecodeRuneInString(l.input[l.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_' {
			break
		}
		l.pos += size
	}
	literal := l.input[start:l.pos]

	if l.peek() == ':' {
		if strings.EqualFold(literal, "Filter") {
			l.pos++ // ':'
			return token.Token{Kind: token.KindFilter, Span: token.Span{Start: start, End: l.pos}}
		}
		if strings.EqualFold(literal, "CrossFilter") {
			l.pos++
			return token.Token{Kind: token.KindCrossFilter, Span: token.Span{Start: start, End: l.pos}}
		}
	}

	if kind, ok := keywords[strings.ToLower(literal)]; ok {
		return token.Token{Kind: kind, Span: token.Span{Start: start, End: l.pos}}
	}
	return token.Token{
		Kind: token.KindIdent,
		Text: literal,
		Span: token.Span{Start: start, End: l.pos},
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isDigitRune(r rune) bool { return r >= '0' && r <= '9' }

func isDateSeparator(r rune) bool { return r == '-' || r == '/' || r == '.' }
