package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToken_String(t *testing.T) {
	assert.Equal(t, `IDENT("status")@8`,
		Token{Kind: KindIdent, Text: "status", Span: Span{Start: 8, End: 14}}.String())
	assert.Equal(t, "Filter:@0",
		Token{Kind: KindFilter, Span: Span{Start: 0, End: 7}}.String())
	assert.Equal(t, ">=@3",
		Token{Kind: KindGte, Span: Span{Start: 3, End: 5}}.String())
}

func TestCaret(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		span  Span
		want  string
	}{
		{
			name:  "single line",
			input: "Filter: status[",
			span:  Span{Start: 8, End: 14},
			want:  "Filter: status[\n        ^^^^^^",
		},
		{
			name:  "second line",
			input: "abc\ndef",
			span:  Span{Start: 4, End: 5},
			want:  "def\n^",
		},
		{
			name:  "span past end of input",
			input: "abc\ndef",
			span:  Span{Start: 7, End: 8},
			want:  "def\n   ^",
		},
		{
			name:  "zero width gets one caret",
			input: "abc",
			span:  Span{Start: 1, End: 1},
			want:  "abc\n ^",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Caret(tc.input, tc.span))
		})
	}
}
