package shelldata

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// DefaultMaxDepth is the nesting limit used when ParseOptions.MaxDepth is zero.
const DefaultMaxDepth = 200

// ParseOptions configures the parser behavior.
type ParseOptions struct {
	// AllowEmpty makes empty input (or input of only comments) parse as an empty document.
	AllowEmpty bool

	// MaxDepth limits nesting of documents, arrays and constructor arguments.
	MaxDepth int
}

// Parser parses literal text into Values.
// A Parser is not safe for concurrent use; create one per input.
type Parser struct {
	stream *TokenStream
	opts   ParseOptions
	depth  int
}

// NewParser creates a parser over input.
func NewParser(input string, opts ParseOptions) *Parser {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}

	return &Parser{
		stream: NewTokenStream(NewLexer(input)),
		opts:   opts,
	}
}

// Parse parses a single value from text.
func Parse(text string) (*Value, error) {
	return ParseWithOptions(text, ParseOptions{})
}

// ParseWithOptions parses a single value with custom options.
// The whole input must be consumed; anything after the value is an error.
func ParseWithOptions(text string, opts ParseOptions) (*Value, error) {
	p := NewParser(text, opts)

	tok, err := p.stream.Peek()
	if err != nil {
		return nil, err
	}

	if tok.Type == TokenEOF {
		if p.opts.AllowEmpty {
			v := Document()
			v.pos = tok.Pos

			return v, nil
		}

		return nil, &SyntaxError{
			Message:  "empty input",
			Pos:      tok.Pos,
			Expected: "value",
			Found:    tok.Type.String(),
			Err:      ErrEmptyInput,
		}
	}

	v, err := p.parseValue()
	if err != nil {
		return nil, err
	}

	tok, err = p.stream.Peek()
	if err != nil {
		return nil, err
	}

	if tok.Type != TokenEOF {
		return nil, &SyntaxError{
			Message:  "unexpected trailing input",
			Pos:      tok.Pos,
			Expected: TokenEOF.String(),
			Found:    tok.Raw,
		}
	}

	return v, nil
}

// Next parses the next top-level value of a whitespace separated sequence.
// It returns io.EOF when the input is exhausted.
func (p *Parser) Next() (*Value, error) {
	tok, err := p.stream.Peek()
	if err != nil {
		return nil, err
	}

	if tok.Type == TokenEOF {
		return nil, io.EOF
	}

	return p.parseValue()
}

// parseValue parses any value.
func (p *Parser) parseValue() (v *Value, err error) {
	tok, err := p.stream.Peek()
	if err != nil {
		return nil, err
	}

	switch tok.Type {
	case TokenNull:
		v = Null()
	case TokenUndefined:
		v = Undefined()
	case TokenTrue:
		v = Bool(true)
	case TokenFalse:
		v = Bool(false)
	case TokenNumber:
		v, err = parseNumber(tok)
	case TokenString:
		v = Text(tok.Value)
	case TokenRegex:
		if err := checkRegexFlags(tok.Flags); err != nil {
			return nil, &ValidationError{Message: err.Error(), Pos: tok.Pos, Err: err}
		}

		v = &Value{kind: KindRegex, strVal: tok.Value, flags: tok.Flags}
	case TokenLBrace:
		return p.parseDocument()
	case TokenLBracket:
		return p.parseArray()
	case TokenIdent:
		return p.parseIdentValue()
	default:
		return nil, unexpected(tok, "value")
	}

	if err != nil {
		return nil, err
	}

	if _, err = p.stream.Advance(); err != nil {
		return nil, err
	}

	v.pos = tok.Pos

	return v, nil
}

// parseNumber converts a number token to Int32, Int64 or Double.
func parseNumber(tok Token) (*Value, error) {
	s := strings.TrimPrefix(tok.Value, "+")

	switch s {
	case "NaN", "-NaN":
		return Double(math.NaN()), nil
	case "Infinity":
		return Double(math.Inf(1)), nil
	case "-Infinity":
		return Double(math.Inf(-1)), nil
	}

	if !strings.ContainsAny(s, ".eE") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			// -0 keeps its sign as a double
			if n == 0 && s[0] == '-' {
				return Double(math.Copysign(0, -1)), nil
			}

			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return Int32(int32(n)), nil
			}

			return Int64(n), nil
		}
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !isRangeError(err) {
		return nil, &ValidationError{Message: fmt.Sprintf("invalid number %q", tok.Raw), Pos: tok.Pos, Err: err}
	}

	return Double(f), nil
}

func isRangeError(err error) bool {
	ne, ok := err.(*strconv.NumError)
	return ok && ne.Err == strconv.ErrRange
}

// parseDocument parses { key: value, ... }.
func (p *Parser) parseDocument() (*Value, error) {
	open, err := p.enter()
	if err != nil {
		return nil, err
	}
	defer p.leave()

	var b docBuilder

	for {
		tok, err := p.stream.Advance()
		if err != nil {
			return nil, err
		}

		if tok.Type == TokenRBrace {
			break
		}

		key, ok := memberKey(tok)
		if !ok {
			return nil, unexpected(tok, "key or '}'")
		}

		if _, err := p.expect(TokenColon); err != nil {
			return nil, err
		}

		val, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		b.set(key, val)

		tok, err = p.stream.Advance()
		if err != nil {
			return nil, err
		}

		if tok.Type == TokenRBrace {
			break
		}

		if tok.Type != TokenComma {
			return nil, unexpected(tok, "',' or '}'")
		}
	}

	v := b.value()
	v.pos = open.Pos

	return v, nil
}

// memberKey returns the key text of a token in key position.
func memberKey(tok Token) (string, bool) {
	switch tok.Type {
	case TokenIdent, TokenString, TokenNull, TokenUndefined, TokenTrue, TokenFalse:
		return tok.Value, true
	case TokenNumber:
		if tok.Raw == "NaN" || tok.Raw == "Infinity" {
			return tok.Raw, true
		}
	}

	return "", false
}

// parseArray parses [ value, ... ].
func (p *Parser) parseArray() (*Value, error) {
	open, err := p.enter()
	if err != nil {
		return nil, err
	}
	defer p.leave()

	items, err := p.parseList(TokenRBracket)
	if err != nil {
		return nil, err
	}

	v := Array(items...)
	v.pos = open.Pos

	return v, nil
}

// parseList parses comma separated values up to and including the closing token.
// A trailing comma is accepted.
func (p *Parser) parseList(closing TokenType) ([]*Value, error) {
	var items []*Value

	for {
		tok, err := p.stream.Peek()
		if err != nil {
			return nil, err
		}

		if tok.Type == closing {
			_, err = p.stream.Advance()
			return items, err
		}

		v, err := p.parseValue()
		if err != nil {
			return nil, err
		}

		items = append(items, v)

		tok, err = p.stream.Advance()
		if err != nil {
			return nil, err
		}

		if tok.Type == closing {
			return items, nil
		}

		if tok.Type != TokenComma {
			return nil, unexpected(tok, fmt.Sprintf("',' or %s", closing))
		}
	}
}

// parseIdentValue parses a constructor call, an optional `new` prefix included,
// or one of the bare sentinel words.
func (p *Parser) parseIdentValue() (*Value, error) {
	start, err := p.stream.Advance()
	if err != nil {
		return nil, err
	}

	name := start
	isNew := start.Value == "new"

	if isNew {
		name, err = p.stream.Advance()
		if err != nil {
			return nil, err
		}

		if name.Type != TokenIdent {
			return nil, unexpected(name, "constructor name")
		}
	}

	next, err := p.stream.Peek()
	if err != nil {
		return nil, err
	}

	var v *Value

	switch {
	case next.Type == TokenLParen:
		v, err = p.parseCall(name)
		if err != nil {
			return nil, err
		}
	case isNew:
		return nil, unexpected(next, "'('")
	case name.Value == "MinKey":
		v = MinKey()
	case name.Value == "MaxKey":
		v = MaxKey()
	default:
		return nil, &SyntaxError{
			Message:  fmt.Sprintf("unexpected identifier %q: quote it as a string or call a known constructor", name.Value),
			Pos:      name.Pos,
			Expected: "value",
			Found:    name.Raw,
		}
	}

	v.pos = start.Pos

	return v, nil
}

// parseCall parses Name(args...) and builds the value through the constructor table.
func (p *Parser) parseCall(name Token) (*Value, error) {
	ctor, ok := constructors[name.Value]
	if !ok {
		return nil, &SyntaxError{
			Message:  fmt.Sprintf("unknown constructor %q", name.Value),
			Pos:      name.Pos,
			Expected: "constructor name",
			Found:    name.Raw,
		}
	}

	if _, err := p.enter(); err != nil {
		return nil, err
	}
	defer p.leave()

	args, err := p.parseList(TokenRParen)
	if err != nil {
		return nil, err
	}

	c := &call{name: name.Value, pos: name.Pos, args: args}

	if err := c.checkArity(ctor.minArgs, ctor.maxArgs); err != nil {
		return nil, err
	}

	return ctor.build(c)
}

// enter consumes an opening token and applies the depth limit.
func (p *Parser) enter() (Token, error) {
	tok, err := p.stream.Advance()
	if err != nil {
		return tok, err
	}

	if p.depth >= p.opts.MaxDepth {
		return tok, &SyntaxError{
			Message: fmt.Sprintf("nesting deeper than %d levels", p.opts.MaxDepth),
			Pos:     tok.Pos,
			Found:   tok.Raw,
			Err:     ErrTooDeep,
		}
	}

	p.depth++

	return tok, nil
}

func (p *Parser) leave() {
	p.depth--
}

// expect consumes a token of the given type.
func (p *Parser) expect(typ TokenType) (Token, error) {
	tok, err := p.stream.Advance()
	if err != nil {
		return tok, err
	}

	if tok.Type != typ {
		return tok, unexpected(tok, typ.String())
	}

	return tok, nil
}

func unexpected(tok Token, expected string) *SyntaxError {
	found := tok.Raw
	desc := strconv.Quote(tok.Raw)

	if tok.Type == TokenEOF {
		found = tok.Type.String()
		desc = found
	}

	return &SyntaxError{
		Message:  fmt.Sprintf("expected %s, found %s", expected, desc),
		Pos:      tok.Pos,
		Expected: expected,
		Found:    found,
	}
}
