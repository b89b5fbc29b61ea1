package shelldata

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// TokenType represents the type of a lexer token.
type TokenType uint8

const (
	TokenEOF TokenType = iota

	// Literals
	TokenNull      // null
	TokenUndefined // undefined
	TokenTrue      // true
	TokenFalse     // false
	TokenNumber    // 123, -4.5e6, NaN, Infinity, -Infinity
	TokenString    // "double" or 'single' quoted
	TokenRegex     // /pattern/flags
	TokenIdent     // bare word: key or constructor name

	// Structural
	TokenLBrace   // {
	TokenRBrace   // }
	TokenLBracket // [
	TokenRBracket // ]
	TokenLParen   // (
	TokenRParen   // )
	TokenColon    // :
	TokenComma    // ,
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of input"
	case TokenNull:
		return "null"
	case TokenUndefined:
		return "undefined"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenRegex:
		return "regex"
	case TokenIdent:
		return "identifier"
	case TokenLBrace:
		return "'{'"
	case TokenRBrace:
		return "'}'"
	case TokenLBracket:
		return "'['"
	case TokenRBracket:
		return "']'"
	case TokenLParen:
		return "'('"
	case TokenRParen:
		return "')'"
	case TokenColon:
		return "':'"
	case TokenComma:
		return "','"
	default:
		return "unknown"
	}
}

// Token represents a lexer token.
type Token struct {
	Type  TokenType
	Value string // decoded text: string contents, regex pattern, number or word
	Flags string // regex flags
	Raw   string // source text of the token
	Pos   Position
}

// String returns a debug representation of the token.
func (t Token) String() string {
	if t.Raw == "" {
		return t.Type.String()
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Raw)
}

// Lexer tokenizes literal text lazily.
// It holds no state besides its cursor and can be rewound with Reset.
type Lexer struct {
	input string
	pos   int // Current position in input
	line  int // Current line number (1-based)
	col   int // Current column number (1-based)
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{input: input}
	l.Reset()
	return l
}

// Reset rewinds the lexer to the start of input.
func (l *Lexer) Reset() {
	l.pos = 0
	l.line = 1
	l.col = 1
}

// Tokenize returns all tokens of text up to and including EOF.
func Tokenize(text string) ([]Token, error) {
	return NewLexer(text).Tokenize()
}

// Tokenize returns all remaining tokens up to and including EOF.
func (l *Lexer) Tokenize() ([]Token, error) {
	var tokens []Token
	for {
		tok, err := l.Next()
		if err != nil {
			return tokens, err
		}

		tokens = append(tokens, tok)

		if tok.Type == TokenEOF {
			return tokens, nil
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() (Token, error) {
	if err := l.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	startPos := l.currentPos()

	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: startPos}, nil
	}

	ch := l.peek()

	// Single character tokens
	var typ TokenType
	switch ch {
	case '{':
		typ = TokenLBrace
	case '}':
		typ = TokenRBrace
	case '[':
		typ = TokenLBracket
	case ']':
		typ = TokenRBracket
	case '(':
		typ = TokenLParen
	case ')':
		typ = TokenRParen
	case ':':
		typ = TokenColon
	case ',':
		typ = TokenComma
	case '"', '\'':
		return l.scanString()
	case '/':
		return l.scanRegex()
	}

	if typ != TokenEOF {
		l.advance()
		return Token{Type: typ, Value: string(ch), Raw: string(ch), Pos: startPos}, nil
	}

	if isNumberStart(l.input, l.pos) {
		return l.scanNumber()
	}

	if isIdentStart(ch) {
		return l.scanIdentOrKeyword(), nil
	}

	r, _ := utf8.DecodeRuneInString(l.input[l.pos:])

	return Token{}, &LexError{Message: fmt.Sprintf("unexpected character %q", r), Pos: startPos}
}

// scanString scans a single or double quoted string.
func (l *Lexer) scanString() (Token, error) {
	startPos := l.currentPos()
	start := l.pos
	quote := l.peek()
	l.advance() // consume opening quote

	var sb strings.Builder
	for {
		if l.pos >= len(l.input) {
			return Token{}, &LexError{Message: "unterminated string", Pos: startPos}
		}

		ch := l.peek()
		if ch == quote {
			l.advance() // consume closing quote
			break
		}

		if ch == '\n' || ch == '\r' {
			return Token{}, &LexError{Message: "unterminated string", Pos: startPos}
		}

		if ch != '\\' {
			sb.WriteByte(ch)
			l.advance()
			continue
		}

		escPos := l.currentPos()
		l.advance()
		if l.pos >= len(l.input) {
			return Token{}, &LexError{Message: "unterminated string", Pos: startPos}
		}

		escaped := l.peek()
		l.advance()

		switch escaped {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b':
			sb.WriteByte('\b')
		case 'f':
			sb.WriteByte('\f')
		case 'v':
			sb.WriteByte('\v')
		case '0':
			sb.WriteByte(0)
		case 'x':
			n, ok := l.scanHex(2)
			if !ok {
				return Token{}, &LexError{Message: "invalid \\x escape", Pos: escPos}
			}
			sb.WriteRune(rune(n))
		case 'u':
			r, ok := l.scanUnicodeEscape()
			if !ok {
				return Token{}, &LexError{Message: "invalid \\u escape", Pos: escPos}
			}
			sb.WriteRune(r)
		case '\n':
			// line continuation
		default:
			sb.WriteByte(escaped)
		}
	}

	return Token{Type: TokenString, Value: sb.String(), Raw: l.input[start:l.pos], Pos: startPos}, nil
}

// scanUnicodeEscape scans XXXX after \u, joining surrogate pairs.
func (l *Lexer) scanUnicodeEscape() (rune, bool) {
	hi, ok := l.scanHex(4)
	if !ok {
		return 0, false
	}

	if hi < 0xd800 || hi > 0xdbff {
		return rune(hi), true
	}

	// high surrogate: try to pair with a following \uXXXX
	if !strings.HasPrefix(l.input[l.pos:], `\u`) {
		return utf8.RuneError, true
	}

	save, line, col := l.pos, l.line, l.col
	l.advance()
	l.advance()

	lo, ok := l.scanHex(4)
	if !ok || lo < 0xdc00 || lo > 0xdfff {
		l.pos, l.line, l.col = save, line, col
		return utf8.RuneError, true
	}

	return rune((hi-0xd800)<<10|(lo-0xdc00)) + 0x10000, true
}

func (l *Lexer) scanHex(n int) (int, bool) {
	if l.pos+n > len(l.input) {
		return 0, false
	}

	v := 0
	for i := 0; i < n; i++ {
		d := hexDigit(l.peek())
		if d < 0 {
			return 0, false
		}
		v = v<<4 | d
		l.advance()
	}

	return v, true
}

// scanRegex scans a bare /pattern/flags literal.
// Inside the pattern \/ stands for a slash; every other escape is kept verbatim.
// A slash inside a [...] class does not terminate the pattern.
func (l *Lexer) scanRegex() (Token, error) {
	startPos := l.currentPos()
	start := l.pos
	l.advance() // consume opening /

	var sb strings.Builder
	inClass := false
	for {
		if l.pos >= len(l.input) {
			return Token{}, &LexError{Message: "unterminated regular expression", Pos: startPos}
		}

		ch := l.peek()
		if ch == '\n' || ch == '\r' {
			return Token{}, &LexError{Message: "unterminated regular expression", Pos: startPos}
		}

		if ch == '/' && !inClass {
			l.advance() // consume closing /
			break
		}

		l.advance()

		switch ch {
		case '\\':
			if l.pos >= len(l.input) {
				return Token{}, &LexError{Message: "unterminated regular expression", Pos: startPos}
			}

			next := l.peek()
			if next == '\n' || next == '\r' {
				return Token{}, &LexError{Message: "unterminated regular expression", Pos: startPos}
			}

			l.advance()

			if next != '/' {
				sb.WriteByte('\\')
			}
			sb.WriteByte(next)

			continue
		case '[':
			inClass = true
		case ']':
			inClass = false
		}

		sb.WriteByte(ch)
	}

	flagsStart := l.pos
	for l.pos < len(l.input) && isLetter(l.peek()) {
		l.advance()
	}

	return Token{
		Type:  TokenRegex,
		Value: sb.String(),
		Flags: l.input[flagsStart:l.pos],
		Raw:   l.input[start:l.pos],
		Pos:   startPos,
	}, nil
}

// scanNumber scans a numeric literal including NaN and signed Infinity.
func (l *Lexer) scanNumber() (Token, error) {
	startPos := l.currentPos()
	start := l.pos

	// Optional sign
	if ch := l.peek(); ch == '-' || ch == '+' {
		l.advance()
	}

	for _, word := range []string{"Infinity", "NaN"} {
		if hasWord(l.input, l.pos, word) {
			end := l.pos + len(word)
			for l.pos < end {
				l.advance()
			}

			return l.numberToken(start, startPos), nil
		}
	}

	digits := 0

	// Integer part
	for l.pos < len(l.input) && isDigit(l.peek()) {
		l.advance()
		digits++
	}

	// Fractional part
	if l.pos < len(l.input) && l.peek() == '.' {
		l.advance()
		for l.pos < len(l.input) && isDigit(l.peek()) {
			l.advance()
			digits++
		}
	}

	if digits == 0 {
		return Token{}, &LexError{Message: "malformed number", Pos: startPos}
	}

	// Exponent part
	if l.pos < len(l.input) && (l.peek() == 'e' || l.peek() == 'E') {
		l.advance()
		if l.pos < len(l.input) && (l.peek() == '+' || l.peek() == '-') {
			l.advance()
		}

		exp := 0
		for l.pos < len(l.input) && isDigit(l.peek()) {
			l.advance()
			exp++
		}

		if exp == 0 {
			return Token{}, &LexError{Message: "malformed number exponent", Pos: startPos}
		}
	}

	if l.pos < len(l.input) && isIdentContinue(l.peek()) {
		return Token{}, &LexError{Message: "malformed number", Pos: startPos}
	}

	return l.numberToken(start, startPos), nil
}

func (l *Lexer) numberToken(start int, pos Position) Token {
	raw := l.input[start:l.pos]
	return Token{Type: TokenNumber, Value: raw, Raw: raw, Pos: pos}
}

// scanIdentOrKeyword scans an identifier or keyword.
func (l *Lexer) scanIdentOrKeyword() Token {
	startPos := l.currentPos()
	start := l.pos

	for l.pos < len(l.input) && isIdentContinue(l.peek()) {
		l.advance()
	}

	value := l.input[start:l.pos]

	typ := TokenIdent
	switch value {
	case "null":
		typ = TokenNull
	case "undefined":
		typ = TokenUndefined
	case "true":
		typ = TokenTrue
	case "false":
		typ = TokenFalse
	}

	return Token{Type: typ, Value: value, Raw: value, Pos: startPos}
}

// skipWhitespaceAndComments skips whitespace, // and /* */ comments.
func (l *Lexer) skipWhitespaceAndComments() error {
	for l.pos < len(l.input) {
		ch := l.peek()

		switch ch {
		case ' ', '\t', '\r', '\n', '\f', '\v':
			l.advance()
			continue
		}

		// UTF-8 BOM and no-break space
		if r, size := utf8.DecodeRuneInString(l.input[l.pos:]); r == '\ufeff' || r == '\u00a0' {
			l.pos += size
			l.col += size
			continue
		}

		if ch != '/' || l.pos+1 >= len(l.input) {
			return nil
		}

		switch l.input[l.pos+1] {
		case '/':
			for l.pos < len(l.input) && l.peek() != '\n' {
				l.advance()
			}
		case '*':
			startPos := l.currentPos()
			end := strings.Index(l.input[l.pos+2:], "*/")
			if end < 0 {
				return &LexError{Message: "unterminated comment", Pos: startPos}
			}

			stop := l.pos + 2 + end + 2
			for l.pos < stop {
				l.advance()
			}
		default:
			return nil
		}
	}

	return nil
}

// Helper methods

func (l *Lexer) peek() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) advance() {
	if l.pos < len(l.input) {
		if l.input[l.pos] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.pos++
	}
}

func (l *Lexer) currentPos() Position {
	return Position{Line: l.line, Column: l.col, Offset: l.pos}
}

// Character classification

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isLetter(ch byte) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentStart(ch byte) bool {
	return isLetter(ch) || ch == '_' || ch == '$'
}

func isIdentContinue(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

// isNumberStart reports whether a number literal starts at s[i].
func isNumberStart(s string, i int) bool {
	ch := s[i]
	if ch == '-' || ch == '+' {
		i++
		if i >= len(s) {
			return false
		}
		ch = s[i]
	}

	if isDigit(ch) {
		return true
	}

	if ch == '.' && i+1 < len(s) && isDigit(s[i+1]) {
		return true
	}

	return hasWord(s, i, "NaN") || hasWord(s, i, "Infinity")
}

// hasWord reports whether word starts at s[i] and is not followed by an identifier character.
func hasWord(s string, i int, word string) bool {
	if !strings.HasPrefix(s[i:], word) {
		return false
	}

	end := i + len(word)

	return end == len(s) || !isIdentContinue(s[end])
}

// TokenStream provides one-token lookahead over a Lexer.
type TokenStream struct {
	lexer  *Lexer
	peeked *Token
}

// NewTokenStream creates a token stream reading from l.
func NewTokenStream(l *Lexer) *TokenStream {
	return &TokenStream{lexer: l}
}

// Peek returns the current token without advancing.
func (ts *TokenStream) Peek() (Token, error) {
	if ts.peeked == nil {
		tok, err := ts.lexer.Next()
		if err != nil {
			return Token{}, err
		}
		ts.peeked = &tok
	}

	return *ts.peeked, nil
}

// Advance moves to the next token and returns the current one.
func (ts *TokenStream) Advance() (Token, error) {
	tok, err := ts.Peek()
	if err != nil {
		return tok, err
	}

	ts.peeked = nil

	return tok, nil
}

// Reset rewinds the stream to the start of input.
func (ts *TokenStream) Reset() {
	ts.lexer.Reset()
	ts.peeked = nil
}
