package shelldata

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// constructor describes one typed constructor call.
type constructor struct {
	minArgs, maxArgs int
	build            func(c *call) (*Value, error)
}

// constructors maps surface names to builders.
var constructors = map[string]*constructor{
	"ObjectId":      {1, 1, buildObjectID},
	"NumberInt":     {0, 1, buildInt32},
	"Int32":         {0, 1, buildInt32},
	"NumberLong":    {0, 1, buildInt64},
	"Long":          {0, 1, buildInt64},
	"NumberDecimal": {0, 1, buildDecimal},
	"Decimal128":    {0, 1, buildDecimal},
	"ISODate":       {0, 1, buildDate},
	"Date":          {0, 1, buildDate},
	"Timestamp":     {2, 2, buildTimestamp},
	"BinData":       {2, 2, buildBinData},
	"HexData":       {2, 2, buildHexData},
	"UUID":          {1, 1, buildUUID},
	"RegExp":        {1, 2, buildRegExp},
	"MinKey":        {0, 0, func(*call) (*Value, error) { return MinKey(), nil }},
	"MaxKey":        {0, 0, func(*call) (*Value, error) { return MaxKey(), nil }},
}

// call is a parsed constructor call awaiting validation.
type call struct {
	name string
	pos  Position
	args []*Value
}

func (c *call) checkArity(lo, hi int) error {
	n := len(c.args)
	if n >= lo && n <= hi {
		return nil
	}

	var want string
	switch {
	case lo == hi && lo == 1:
		want = "1 argument"
	case lo == hi:
		want = fmt.Sprintf("%d arguments", lo)
	default:
		want = fmt.Sprintf("%d to %d arguments", lo, hi)
	}

	pos := c.pos
	if n > hi {
		pos = c.args[hi].Pos()
	}

	return &SyntaxError{
		Message:     fmt.Sprintf("expected %s, got %d", want, n),
		Pos:         pos,
		Expected:    want,
		Found:       strconv.Itoa(n),
		Constructor: c.name,
	}
}

// typeError reports an argument of the wrong variant.
func (c *call) typeError(i int, want string) error {
	return &SyntaxError{
		Message:     fmt.Sprintf("argument %d must be %s, got %s", i+1, want, c.args[i].Kind()),
		Pos:         c.args[i].Pos(),
		Expected:    want,
		Found:       c.args[i].Kind().String(),
		Constructor: c.name,
	}
}

// invalid reports bad argument content.
func (c *call) invalid(i int, err error, format string, args ...any) error {
	pos := c.pos
	if i < len(c.args) {
		pos = c.args[i].Pos()
	}

	return &ValidationError{
		Message:     fmt.Sprintf(format, args...),
		Pos:         pos,
		Constructor: c.name,
		Err:         err,
	}
}

func (c *call) text(i int) (string, error) {
	a := c.args[i]
	if a.Kind() != KindText {
		return "", c.typeError(i, "a string")
	}

	return a.strVal, nil
}

// integer accepts int32, int64 and integral doubles.
func (c *call) integer(i int) (int64, error) {
	a := c.args[i]

	switch a.Kind() {
	case KindInt32, KindInt64:
		return a.intVal, nil
	case KindDouble:
		f := a.floatVal
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, c.invalid(i, nil, "%s is not a 64-bit integer", formatDouble(f))
		}

		return int64(f), nil
	}

	return 0, c.typeError(i, "an integer")
}

func (c *call) uint32Arg(i int) (uint32, error) {
	n, err := c.integer(i)
	if err != nil {
		return 0, err
	}

	if n < 0 || n > math.MaxUint32 {
		return 0, c.invalid(i, nil, "%d is out of unsigned 32-bit range", n)
	}

	return uint32(n), nil
}

func (c *call) subtype(i int) (byte, error) {
	n, err := c.integer(i)
	if err != nil {
		return 0, err
	}

	if n < 0 || n > 255 {
		return 0, c.invalid(i, nil, "subtype %d is out of range 0..255", n)
	}

	return byte(n), nil
}

func buildObjectID(c *call) (*Value, error) {
	s, err := c.text(0)
	if err != nil {
		return nil, err
	}

	if err := checkObjectID(s); err != nil {
		return nil, c.invalid(0, err, "%v", err)
	}

	return &Value{kind: KindObjectID, strVal: strings.ToLower(s)}, nil
}

func buildInt32(c *call) (*Value, error) {
	if len(c.args) == 0 {
		return Int32(0), nil
	}

	var n int64

	if c.args[0].Kind() == KindText {
		s := strings.TrimSpace(c.args[0].strVal)

		v, err := strconv.ParseInt(s, 10, 32)
		if err != nil {
			return nil, c.invalid(0, err, "invalid 32-bit integer %q", s)
		}

		n = v
	} else {
		v, err := c.integer(0)
		if err != nil {
			return nil, err
		}

		n = v
	}

	if n < math.MinInt32 || n > math.MaxInt32 {
		return nil, c.invalid(0, nil, "%d is out of 32-bit range", n)
	}

	return Int32(int32(n)), nil
}

func buildInt64(c *call) (*Value, error) {
	if len(c.args) == 0 {
		return Int64(0), nil
	}

	if c.args[0].Kind() == KindText {
		s := strings.TrimSpace(c.args[0].strVal)

		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, c.invalid(0, err, "invalid 64-bit integer %q", s)
		}

		return Int64(n), nil
	}

	n, err := c.integer(0)
	if err != nil {
		return nil, err
	}

	return Int64(n), nil
}

func buildDecimal(c *call) (*Value, error) {
	if len(c.args) == 0 {
		return &Value{kind: KindDecimal, strVal: "0"}, nil
	}

	s, err := c.text(0)
	if err != nil {
		return nil, err
	}

	d, err := ParseDecimal128(strings.TrimSpace(s))
	if err != nil {
		return nil, c.invalid(0, err, "invalid decimal %q", s)
	}

	return &Value{kind: KindDecimal, strVal: d.String()}, nil
}

func buildDate(c *call) (*Value, error) {
	if len(c.args) == 0 {
		return nil, c.invalid(0, nil, "current time is not available, pass a date")
	}

	if c.args[0].Kind() == KindText {
		ms, err := parseISODate(c.args[0].strVal)
		if err != nil {
			return nil, c.invalid(0, err, "invalid date %q", c.args[0].strVal)
		}

		return DateTime(ms), nil
	}

	ms, err := c.integer(0)
	if err != nil {
		return nil, err
	}

	return DateTime(ms), nil
}

func buildTimestamp(c *call) (*Value, error) {
	t, err := c.uint32Arg(0)
	if err != nil {
		return nil, err
	}

	i, err := c.uint32Arg(1)
	if err != nil {
		return nil, err
	}

	return Timestamp(t, i), nil
}

func buildBinData(c *call) (*Value, error) {
	sub, err := c.subtype(0)
	if err != nil {
		return nil, err
	}

	s, err := c.text(1)
	if err != nil {
		return nil, err
	}

	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		data, err = base64.RawStdEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, c.invalid(1, err, "invalid base64 payload")
	}

	return &Value{kind: KindBinary, subtype: sub, binVal: data}, nil
}

func buildHexData(c *call) (*Value, error) {
	sub, err := c.subtype(0)
	if err != nil {
		return nil, err
	}

	s, err := c.text(1)
	if err != nil {
		return nil, err
	}

	data, err := hex.DecodeString(s)
	if err != nil {
		return nil, c.invalid(1, err, "invalid hex payload")
	}

	return &Value{kind: KindBinary, subtype: sub, binVal: data}, nil
}

func buildUUID(c *call) (*Value, error) {
	s, err := c.text(0)
	if err != nil {
		return nil, err
	}

	h := strings.ReplaceAll(s, "-", "")

	data, err := hex.DecodeString(h)
	if err != nil || len(data) != 16 {
		return nil, c.invalid(0, err, "invalid UUID %q", s)
	}

	return &Value{kind: KindBinary, subtype: 4, binVal: data}, nil
}

func buildRegExp(c *call) (*Value, error) {
	pattern, err := c.text(0)
	if err != nil {
		return nil, err
	}

	var flags string
	if len(c.args) > 1 {
		if flags, err = c.text(1); err != nil {
			return nil, err
		}
	}

	if err := checkRegexFlags(flags); err != nil {
		return nil, c.invalid(1, err, "%v", err)
	}

	return &Value{kind: KindRegex, strVal: pattern, flags: flags}, nil
}
