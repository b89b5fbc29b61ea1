package shelldata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tokenTypes(tokens []Token) []TokenType {
	types := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		types[i] = tok.Type
	}
	return types
}

func TestLexer_BasicTokens(t *testing.T) {
	tokens, err := Tokenize(`{a: [1, 'x', "y"], b: (null) true false undefined}`)
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenLBrace,
		TokenIdent, TokenColon,
		TokenLBracket, TokenNumber, TokenComma, TokenString, TokenComma, TokenString, TokenRBracket,
		TokenComma,
		TokenIdent, TokenColon,
		TokenLParen, TokenNull, TokenRParen, TokenTrue, TokenFalse, TokenUndefined,
		TokenRBrace,
		TokenEOF,
	}, tokenTypes(tokens))

	assert.Equal(t, "x", tokens[6].Value)
	assert.Equal(t, `'x'`, tokens[6].Raw)
	assert.Equal(t, "y", tokens[8].Value)
}

func TestLexer_Positions(t *testing.T) {
	tokens, err := Tokenize("{\n  ab: 12\n}")
	require.NoError(t, err)
	require.Len(t, tokens, 6)

	assert.Equal(t, Position{Offset: 0, Line: 1, Column: 1}, tokens[0].Pos)
	assert.Equal(t, Position{Offset: 4, Line: 2, Column: 3}, tokens[1].Pos)
	assert.Equal(t, Position{Offset: 6, Line: 2, Column: 5}, tokens[2].Pos)
	assert.Equal(t, Position{Offset: 8, Line: 2, Column: 7}, tokens[3].Pos)
	assert.Equal(t, Position{Offset: 11, Line: 3, Column: 1}, tokens[4].Pos)
	assert.Equal(t, Position{Offset: 12, Line: 3, Column: 2}, tokens[5].Pos)
}

func TestLexer_Comments(t *testing.T) {
	tokens, err := Tokenize("// leading\n[1, /* inner */ 2] // trailing")
	require.NoError(t, err)

	assert.Equal(t, []TokenType{
		TokenLBracket, TokenNumber, TokenComma, TokenNumber, TokenRBracket, TokenEOF,
	}, tokenTypes(tokens))

	_, err = Tokenize("[1 /* open")
	var lerr *LexError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, "unterminated comment", lerr.Message)
	assert.Equal(t, 3, lerr.Pos.Offset)
}

func TestLexer_Strings(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`"plain"`, "plain"},
		{`'single "inner"'`, `single "inner"`},
		{`"it\'s"`, "it's"},
		{`"a\nb\tc\\d"`, "a\nb\tc\\d"},
		{`"\x41B"`, "AB"},
		{`"\uD83D\uDE00"`, "\U0001F600"},
		{`"\u00e9"`, "é"},
		{"\"line\\\ncontinued\"", "linecontinued"},
		{`"a\u0000b"`, "a\x00b"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			tokens, err := Tokenize(tc.in)
			require.NoError(t, err)
			require.Equal(t, TokenString, tokens[0].Type)
			assert.Equal(t, tc.want, tokens[0].Value)
		})
	}
}

func TestLexer_StringErrors(t *testing.T) {
	for _, in := range []string{`"open`, `'open`, "\"line\nbreak\"", `"bad \u12"`, `"bad \xZZ"`, `"end\`} {
		t.Run(in, func(t *testing.T) {
			_, err := Tokenize(in)

			var lerr *LexError
			require.ErrorAs(t, err, &lerr)
		})
	}
}

func TestLexer_Numbers(t *testing.T) {
	tests := []string{"0", "-1", "+2", "3.25", ".5", "1e10", "-2.5E-3", "NaN", "Infinity", "-Infinity"}

	for _, in := range tests {
		t.Run(in, func(t *testing.T) {
			tokens, err := Tokenize(in)
			require.NoError(t, err)
			require.Len(t, tokens, 2)
			assert.Equal(t, TokenNumber, tokens[0].Type)
			assert.Equal(t, in, tokens[0].Value)
		})
	}

	for _, in := range []string{"1e", "-", "12abc", "1.5e+"} {
		t.Run("bad "+in, func(t *testing.T) {
			_, err := Tokenize(in)

			var lerr *LexError
			require.ErrorAs(t, err, &lerr)
			assert.Equal(t, 0, lerr.Pos.Offset)
		})
	}
}

func TestLexer_NaNPrefixIsIdent(t *testing.T) {
	tokens, err := Tokenize("NaNa Infinityx")
	require.NoError(t, err)

	assert.Equal(t, []TokenType{TokenIdent, TokenIdent, TokenEOF}, tokenTypes(tokens))
	assert.Equal(t, "NaNa", tokens[0].Value)
}

func TestLexer_Regex(t *testing.T) {
	tests := []struct {
		in      string
		pattern string
		flags   string
	}{
		{`/^Index Build/`, `^Index Build`, ""},
		{`/abc/im`, "abc", "im"},
		{`/a\/b/`, "a/b", ""},
		{`/a\.b\\/`, `a\.b\\`, ""},
		{`/[/]x/`, "[/]x", ""},
		{`/[\]/]/`, `[\]/]`, ""},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			tokens, err := Tokenize(tc.in)
			require.NoError(t, err)
			require.Equal(t, TokenRegex, tokens[0].Type)
			assert.Equal(t, tc.pattern, tokens[0].Value)
			assert.Equal(t, tc.flags, tokens[0].Flags)
			assert.Equal(t, TokenEOF, tokens[1].Type)
		})
	}

	_, err := Tokenize("/open")
	var lerr *LexError
	require.ErrorAs(t, err, &lerr)
}

func TestLexer_UnexpectedCharacter(t *testing.T) {
	_, err := Tokenize("{a: #}")

	var lerr *LexError
	require.ErrorAs(t, err, &lerr)
	assert.Equal(t, Position{Offset: 4, Line: 1, Column: 5}, lerr.Pos)
	assert.Contains(t, lerr.Error(), "'#'")
}

func TestTokenStream_PeekAdvanceReset(t *testing.T) {
	ts := NewTokenStream(NewLexer("[true]"))

	tok, err := ts.Peek()
	require.NoError(t, err)
	assert.Equal(t, TokenLBracket, tok.Type)

	tok, err = ts.Peek()
	require.NoError(t, err)
	assert.Equal(t, TokenLBracket, tok.Type)

	tok, err = ts.Advance()
	require.NoError(t, err)
	assert.Equal(t, TokenLBracket, tok.Type)

	tok, err = ts.Advance()
	require.NoError(t, err)
	assert.Equal(t, TokenTrue, tok.Type)

	ts.Reset()

	tok, err = ts.Advance()
	require.NoError(t, err)
	assert.Equal(t, TokenLBracket, tok.Type)
}
