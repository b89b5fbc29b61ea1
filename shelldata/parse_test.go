package shelldata

import (
	"io"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, text string) *Value {
	t.Helper()

	v, err := Parse(text)
	require.NoError(t, err, "parse %q", text)

	return v
}

func mustValue(t *testing.T) func(*Value, error) *Value {
	return func(v *Value, err error) *Value {
		t.Helper()
		require.NoError(t, err)
		return v
	}
}

func TestParse_Scalars(t *testing.T) {
	tests := []struct {
		in   string
		want *Value
	}{
		{"null", Null()},
		{"undefined", Undefined()},
		{"true", Bool(true)},
		{"false", Bool(false)},
		{"42", Int32(42)},
		{"-7", Int32(-7)},
		{"+3", Int32(3)},
		{"2147483648", Int64(2147483648)},
		{"-9223372036854775808", Int64(math.MinInt64)},
		{"9223372036854775808", Double(9223372036854775808)},
		{"1.5", Double(1.5)},
		{"-0.0", Double(math.Copysign(0, -1))},
		{"-0", Double(math.Copysign(0, -1))},
		{"+0", Int32(0)},
		{"1e3", Double(1000)},
		{".25", Double(0.25)},
		{"NaN", Double(math.NaN())},
		{"Infinity", Double(math.Inf(1))},
		{"-Infinity", Double(math.Inf(-1))},
		{`"text"`, Text("text")},
		{`'single'`, Text("single")},
		{"MinKey", MinKey()},
		{"MaxKey", MaxKey()},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			v := mustParse(t, tc.in)
			assert.True(t, Equal(tc.want, v), "want %v, got %v", tc.want, v)
		})
	}
}

func TestParse_Document(t *testing.T) {
	v := mustParse(t, `{b: 1, "a": 'two', $gte: null, 'with space': [true]}`)

	members, err := v.Members()
	require.NoError(t, err)
	require.Len(t, members, 4)

	assert.Equal(t, "b", members[0].Key)
	assert.Equal(t, "a", members[1].Key)
	assert.Equal(t, "$gte", members[2].Key)
	assert.Equal(t, "with space", members[3].Key)

	assert.True(t, Equal(Int32(1), v.Get("b")))
	assert.True(t, Equal(Text("two"), v.Get("a")))
	assert.True(t, v.Get("$gte").IsNull())
	assert.True(t, Equal(Array(Bool(true)), v.Get("with space")))
}

func TestParse_KeywordKeys(t *testing.T) {
	v := mustParse(t, `{null: 1, true: 2, undefined: 3, NaN: 4, Infinity: 5, new: 6}`)

	var keys []string
	for _, m := range v.members {
		keys = append(keys, m.Key)
	}

	assert.Equal(t, []string{"null", "true", "undefined", "NaN", "Infinity", "new"}, keys)
}

func TestParse_KeyOrderPreserved(t *testing.T) {
	v := mustParse(t, `{"b":1,"a":2}`)

	assert.Equal(t, `{b:1,a:2}`, Serialize(v, CompactOptions()))
}

func TestParse_DuplicateKeyOverwrites(t *testing.T) {
	v := mustParse(t, `{"a":1,"a":2}`)

	require.Equal(t, 1, v.Len())
	assert.True(t, Equal(Int32(2), v.Get("a")))

	v = mustParse(t, `{a: 1, b: 2, a: 3}`)
	assert.Equal(t, `{a:3,b:2}`, v.String())
}

func TestParse_DuplicateKeyManyMembers(t *testing.T) {
	v := mustParse(t, `{k0:0,k1:1,k2:2,k3:3,k4:4,k5:5,k6:6,k7:7,k8:8,k9:9,k3:33,k9:99}`)

	require.Equal(t, 10, v.Len())
	assert.Equal(t, "k3", v.members[3].Key)
	assert.True(t, Equal(Int32(33), v.members[3].Value))
	assert.True(t, Equal(Int32(99), v.members[9].Value))
}

func TestParse_TrailingCommas(t *testing.T) {
	assert.True(t, Equal(mustParse(t, `{"a":1}`), mustParse(t, `{"a":1,}`)))
	assert.True(t, Equal(mustParse(t, `[1,2]`), mustParse(t, `[1,2,]`)))
	assert.True(t, Equal(mustParse(t, `Timestamp(1,2)`), mustParse(t, `Timestamp(1,2,)`)))

	for _, in := range []string{`{,}`, `[,]`, `{a:1,,}`, `[1,,2]`} {
		_, err := Parse(in)
		var serr *SyntaxError
		assert.ErrorAs(t, err, &serr, in)
	}
}

func TestParse_Comments(t *testing.T) {
	v := mustParse(t, "{\n  // running operations\n  active: true, /* only */ secs_running: {$gt: 5}\n}")

	assert.Equal(t, `{active:true,secs_running:{"$gt":5}}`, v.String())
}

func TestParse_Regex(t *testing.T) {
	v := mustParse(t, `/^Index Build/`)

	pattern, flags, err := v.AsRegex()
	require.NoError(t, err)
	assert.Equal(t, "^Index Build", pattern)
	assert.Equal(t, "", flags)
	assert.Equal(t, `/^Index Build/`, v.String())

	v = mustParse(t, `{msg: /build/xi}`)
	_, flags, err = v.Get("msg").AsRegex()
	require.NoError(t, err)
	assert.Equal(t, "xi", flags)
	assert.Equal(t, `{msg:/build/ix}`, v.String())

	_, err = Parse(`/abc/g`)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Message, "illegal regex flag")
	assert.Equal(t, 0, verr.Pos.Offset)
}

func TestParse_Constructors(t *testing.T) {
	must := mustValue(t)

	tests := []struct {
		in   string
		want *Value
	}{
		{`ObjectId("5F0C5E3B2A1D4C0012345678")`, must(ObjectID("5f0c5e3b2a1d4c0012345678"))},
		{`new ObjectId('5f0c5e3b2a1d4c0012345678')`, must(ObjectID("5f0c5e3b2a1d4c0012345678"))},
		{`NumberInt(7)`, Int32(7)},
		{`NumberInt("-12")`, Int32(-12)},
		{`NumberInt(-0)`, Int32(0)},
		{`Int32(3.0)`, Int32(3)},
		{`NumberLong(1)`, Int64(1)},
		{`NumberLong("9223372036854775807")`, Int64(math.MaxInt64)},
		{`Long(-5)`, Int64(-5)},
		{`NumberLong()`, Int64(0)},
		{`NumberDecimal("1.50")`, must(Decimal("1.50"))},
		{`Decimal128("-1e3")`, must(Decimal("-1E+3"))},
		{`ISODate("2020-01-02T03:04:05.678Z")`, DateTime(1577934245678)},
		{`ISODate("2020-01-02")`, DateTime(1577923200000)},
		{`ISODate("2020-01-02T03:04:05+01:00")`, DateTime(1577930645000)},
		{`new Date(0)`, DateTime(0)},
		{`Date(-1)`, DateTime(-1)},
		{`Timestamp(1700000000, 3)`, Timestamp(1700000000, 3)},
		{`Timestamp(4294967295, 0)`, Timestamp(math.MaxUint32, 0)},
		{`BinData(0, "aGVsbG8=")`, Binary(0, []byte("hello"))},
		{`BinData(128, "aGVsbG8")`, Binary(128, []byte("hello"))},
		{`HexData(5, "00ff")`, Binary(5, []byte{0x00, 0xff})},
		{`UUID("0123456789abcdef-0123-456789ABCDEF")`, Binary(4, []byte{
			0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef,
			0x01, 0x23, 0x45, 0x67, 0x89, 0xab, 0xcd, 0xef,
		})},
		{`RegExp("a/b")`, must(Regex("a/b", ""))},
		{`RegExp("^x", "mi")`, must(Regex("^x", "im"))},
		{`MinKey()`, MinKey()},
		{`MaxKey()`, MaxKey()},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			v := mustParse(t, tc.in)
			assert.True(t, Equal(tc.want, v), "want %v, got %v", tc.want, v)
		})
	}
}

func TestParse_ConstructorValidation(t *testing.T) {
	tests := []struct {
		in     string
		ctor   string
		offset int
	}{
		{`ObjectId("5f0c5e3b2a1d4c001234567")`, "ObjectId", 9},
		{`ObjectId("5f0c5e3b2a1d4c001234567z")`, "ObjectId", 9},
		{`NumberLong("12x")`, "NumberLong", 11},
		{`NumberLong(1.5)`, "NumberLong", 11},
		{`NumberInt(2147483648)`, "NumberInt", 10},
		{`NumberDecimal("abc")`, "NumberDecimal", 14},
		{`ISODate("yesterday")`, "ISODate", 8},
		{`ISODate()`, "ISODate", 0},
		{`Timestamp(-1, 0)`, "Timestamp", 10},
		{`BinData(256, "")`, "BinData", 8},
		{`BinData(0, "!!")`, "BinData", 11},
		{`HexData(0, "abc")`, "HexData", 11},
		{`UUID("1234")`, "UUID", 5},
		{`RegExp("a", "q")`, "RegExp", 12},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			_, err := Parse(tc.in)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.ctor, verr.Constructor)
			assert.Equal(t, tc.offset, verr.Pos.Offset)
			assert.Contains(t, verr.Error(), tc.ctor)
		})
	}
}

func TestParse_ConstructorSyntax(t *testing.T) {
	tests := []struct {
		in     string
		ctor   string
		offset int
	}{
		{`Timestamp(1)`, "Timestamp", 0},
		{`Timestamp(1, 2, 3)`, "Timestamp", 16},
		{`ObjectId()`, "ObjectId", 0},
		{`ObjectId(1)`, "ObjectId", 9},
		{`NumberDecimal(1.5)`, "NumberDecimal", 14},
		{`Timestamp("1", 2)`, "Timestamp", 10},
		{`MinKey(1)`, "MinKey", 7},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			_, err := Parse(tc.in)

			var serr *SyntaxError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tc.ctor, serr.Constructor)
			assert.Equal(t, tc.offset, serr.Pos.Offset)
		})
	}
}

func TestParse_UnknownConstructor(t *testing.T) {
	_, err := Parse(`{a: Foo(1)}`)

	var serr *SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Error(), "Foo")
	assert.Equal(t, "Foo", serr.Found)
	assert.Equal(t, 4, serr.Pos.Offset)

	_, err = Parse(`{a: Foo}`)
	require.ErrorAs(t, err, &serr)
	assert.Contains(t, serr.Error(), `"Foo": quote it as a string or call a known constructor`)
	assert.Equal(t, 4, serr.Pos.Offset)
}

func TestParse_ErrorLocality(t *testing.T) {
	_, err := Parse(`{"a": tru}`)

	var serr *SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, Position{Offset: 6, Line: 1, Column: 7}, serr.Pos)
	assert.Equal(t, "tru", serr.Found)

	pos, ok := ErrorPosition(err)
	require.True(t, ok)
	assert.Equal(t, 6, pos.Offset)
}

func TestParse_SyntaxErrors(t *testing.T) {
	tests := []struct {
		in       string
		offset   int
		expected string
	}{
		{`{a 1}`, 3, "':'"},
		{`{a: 1 b: 2}`, 6, "',' or '}'"},
		{`[1 2]`, 3, "',' or ']'"},
		{`{a: 1`, 5, "',' or '}'"},
		{`{1: 2}`, 1, "key or '}'"},
		{`}`, 0, "value"},
		{`new 5`, 4, "constructor name"},
		{`new Foo`, 7, "'('"},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			_, err := Parse(tc.in)

			var serr *SyntaxError
			require.ErrorAs(t, err, &serr)
			assert.Equal(t, tc.offset, serr.Pos.Offset)
			assert.Equal(t, tc.expected, serr.Expected)
		})
	}
}

func TestParse_TrailingInput(t *testing.T) {
	_, err := Parse(`{a: 1} {b: 2}`)

	var serr *SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "unexpected trailing input", serr.Message)
	assert.Equal(t, 7, serr.Pos.Offset)

	v := mustParse(t, "{a: 1} // done\n")
	assert.Equal(t, 1, v.Len())
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   ", "// only a comment"} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrEmptyInput, "%q", in)

		var serr *SyntaxError
		assert.ErrorAs(t, err, &serr)

		v, err := ParseWithOptions(in, ParseOptions{AllowEmpty: true})
		require.NoError(t, err)
		assert.True(t, Equal(Document(), v))
	}
}

func TestParse_MaxDepth(t *testing.T) {
	deep := strings.Repeat("[", 10) + strings.Repeat("]", 10)

	_, err := ParseWithOptions(deep, ParseOptions{MaxDepth: 10})
	require.NoError(t, err)

	_, err = ParseWithOptions(deep, ParseOptions{MaxDepth: 9})
	assert.ErrorIs(t, err, ErrTooDeep)

	var serr *SyntaxError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, 9, serr.Pos.Offset)

	huge := strings.Repeat("{a:", 100000)

	_, err = Parse(huge)
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestParse_Positions(t *testing.T) {
	v := mustParse(t, "{\n  id: ObjectId('5f0c5e3b2a1d4c0012345678'),\n  n: [1, 2]\n}")

	assert.Equal(t, Position{Offset: 0, Line: 1, Column: 1}, v.Pos())
	assert.Equal(t, Position{Offset: 8, Line: 2, Column: 7}, v.Get("id").Pos())

	n := v.Get("n")
	assert.Equal(t, 3, n.Pos().Line)

	second, err := n.Index(1)
	require.NoError(t, err)
	assert.Equal(t, Position{Offset: 55, Line: 3, Column: 10}, second.Pos())
}

func TestParser_Next(t *testing.T) {
	p := NewParser("{a: 1}\n[2]\n'three' // end", ParseOptions{})

	var got []string
	for {
		v, err := p.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)

		got = append(got, v.String())
	}

	assert.Equal(t, []string{`{a:1}`, `[2]`, `"three"`}, got)
}

func TestParse_NoEvaluation(t *testing.T) {
	_, err := Parse(`1 + 2`)
	assert.Error(t, err)

	_, err = Parse(`{a: Math.max(1)}`)
	assert.Error(t, err)
}
