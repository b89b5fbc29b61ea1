package shelldata

import (
	"fmt"
	"strings"
	"time"

	"tlog.app/go/errors"
)

// Kind represents the variant of a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindUndefined
	KindBool
	KindInt32
	KindInt64
	KindDouble
	KindDecimal
	KindText
	KindObjectID
	KindDateTime
	KindRegex
	KindBinary
	KindTimestamp
	KindMinKey
	KindMaxKey
	KindArray
	KindDocument
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindUndefined:
		return "undefined"
	case KindBool:
		return "bool"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindDouble:
		return "double"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindObjectID:
		return "objectId"
	case KindDateTime:
		return "date"
	case KindRegex:
		return "regex"
	case KindBinary:
		return "binData"
	case KindTimestamp:
		return "timestamp"
	case KindMinKey:
		return "minKey"
	case KindMaxKey:
		return "maxKey"
	case KindArray:
		return "array"
	case KindDocument:
		return "document"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Value is an immutable literal value.
// The zero *Value (nil) reads as Null.
type Value struct {
	kind Kind

	// Scalar payloads (only one valid based on kind)
	boolVal  bool
	intVal   int64  // int32, int64, date millis
	floatVal float64
	strVal   string // text, decimal, objectId hex, regex pattern
	flags    string // regex flags as written
	binVal   []byte
	subtype  byte
	ts       TimestampValue

	// Container payloads
	items   []*Value
	members []Member

	// Source location for values produced by the parser
	pos Position
}

// Member is a key-value pair of a document.
type Member struct {
	Key   string
	Value *Value
}

// M creates a Member for use in Document construction.
func M(key string, value *Value) Member {
	return Member{Key: key, Value: value}
}

// TimestampValue is the payload of a Timestamp.
type TimestampValue struct {
	T uint32 // seconds since epoch
	I uint32 // ordinal within the second
}

// Position represents a source location.
type Position struct {
	Offset int // byte offset, 0-based
	Line   int // 1-based
	Column int // 1-based, in bytes
}

// String returns position as "line:column".
func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// ============================================================
// Constructors
// ============================================================

// Null creates a null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Undefined creates an undefined value. It is distinct from Null.
func Undefined() *Value {
	return &Value{kind: KindUndefined}
}

// Bool creates a boolean value.
func Bool(v bool) *Value {
	return &Value{kind: KindBool, boolVal: v}
}

// Int32 creates a 32-bit integer value.
func Int32(v int32) *Value {
	return &Value{kind: KindInt32, intVal: int64(v)}
}

// Int64 creates a 64-bit integer value.
func Int64(v int64) *Value {
	return &Value{kind: KindInt64, intVal: v}
}

// Double creates a 64-bit float value. NaN and infinities are allowed.
func Double(v float64) *Value {
	return &Value{kind: KindDouble, floatVal: v}
}

// Decimal creates a decimal value from its textual form.
// The text is validated and stored in canonical form.
func Decimal(s string) (*Value, error) {
	d, err := ParseDecimal128(s)
	if err != nil {
		return nil, err
	}

	return &Value{kind: KindDecimal, strVal: d.String()}, nil
}

// Text creates a string value.
func Text(v string) *Value {
	return &Value{kind: KindText, strVal: v}
}

// ObjectID creates an object identifier from 24 hex characters.
// Upper case digits are accepted and normalized to lower case.
func ObjectID(hex string) (*Value, error) {
	if err := checkObjectID(hex); err != nil {
		return nil, errors.Wrap(err, "objectId")
	}

	return &Value{kind: KindObjectID, strVal: strings.ToLower(hex)}, nil
}

// DateTime creates a date value from milliseconds since the Unix epoch.
func DateTime(ms int64) *Value {
	return &Value{kind: KindDateTime, intVal: ms}
}

// Time creates a date value, truncating t to milliseconds.
func Time(t time.Time) *Value {
	return DateTime(t.UnixMilli())
}

// Regex creates a regular expression value.
// Flags must be from the legal set (see RegexFlags); their order is kept as given.
func Regex(pattern, flags string) (*Value, error) {
	if err := checkRegexFlags(flags); err != nil {
		return nil, err
	}

	return &Value{kind: KindRegex, strVal: pattern, flags: flags}, nil
}

// Binary creates a binary value. The data is copied.
func Binary(subtype byte, data []byte) *Value {
	b := make([]byte, len(data))
	copy(b, data)

	return &Value{kind: KindBinary, subtype: subtype, binVal: b}
}

// Timestamp creates an internal replication timestamp.
func Timestamp(t, i uint32) *Value {
	return &Value{kind: KindTimestamp, ts: TimestampValue{T: t, I: i}}
}

// MinKey creates the lower ordering sentinel.
func MinKey() *Value {
	return &Value{kind: KindMinKey}
}

// MaxKey creates the upper ordering sentinel.
func MaxKey() *Value {
	return &Value{kind: KindMaxKey}
}

// Array creates an array value. Nil items are stored as Null.
func Array(items ...*Value) *Value {
	list := make([]*Value, len(items))
	for i, it := range items {
		if it == nil {
			it = Null()
		}
		list[i] = it
	}

	return &Value{kind: KindArray, items: list}
}

// Document creates a document value keeping member order.
// A repeated key overwrites the earlier value at the earlier position.
func Document(members ...Member) *Value {
	var b docBuilder
	for _, m := range members {
		b.set(m.Key, m.Value)
	}

	return b.value()
}

// docBuilder accumulates members applying the duplicate key policy.
type docBuilder struct {
	members []Member
	index   map[string]int
}

func (b *docBuilder) set(key string, v *Value) {
	if v == nil {
		v = Null()
	}

	if i, ok := b.lookup(key); ok {
		b.members[i].Value = v
		return
	}

	if b.index != nil {
		b.index[key] = len(b.members)
	} else if len(b.members) >= 8 {
		b.index = make(map[string]int, 2*len(b.members))
		for i, m := range b.members {
			b.index[m.Key] = i
		}
		b.index[key] = len(b.members)
	}

	b.members = append(b.members, Member{Key: key, Value: v})
}

func (b *docBuilder) lookup(key string) (int, bool) {
	if b.index != nil {
		i, ok := b.index[key]
		return i, ok
	}

	for i, m := range b.members {
		if m.Key == key {
			return i, true
		}
	}

	return 0, false
}

func (b *docBuilder) value() *Value {
	members := b.members
	if members == nil {
		members = []Member{}
	}

	return &Value{kind: KindDocument, members: members}
}

// ============================================================
// Accessors
// ============================================================

// Kind returns the value variant.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull returns true if this is a null value.
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

func (v *Value) expect(k Kind) error {
	if v.Kind() != k {
		return errors.New("shelldata: expected %s, got %s", k, v.Kind())
	}
	return nil
}

// AsBool returns the boolean value.
func (v *Value) AsBool() (bool, error) {
	if err := v.expect(KindBool); err != nil {
		return false, err
	}
	return v.boolVal, nil
}

// AsInt32 returns the 32-bit integer value.
func (v *Value) AsInt32() (int32, error) {
	if err := v.expect(KindInt32); err != nil {
		return 0, err
	}
	return int32(v.intVal), nil
}

// AsInt64 returns the 64-bit integer value.
func (v *Value) AsInt64() (int64, error) {
	if err := v.expect(KindInt64); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsDouble returns the float value.
func (v *Value) AsDouble() (float64, error) {
	if err := v.expect(KindDouble); err != nil {
		return 0, err
	}
	return v.floatVal, nil
}

// AsDecimal returns the canonical decimal string.
func (v *Value) AsDecimal() (string, error) {
	if err := v.expect(KindDecimal); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsText returns the string value.
func (v *Value) AsText() (string, error) {
	if err := v.expect(KindText); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsObjectID returns the lower case hex identifier.
func (v *Value) AsObjectID() (string, error) {
	if err := v.expect(KindObjectID); err != nil {
		return "", err
	}
	return v.strVal, nil
}

// AsDateTime returns milliseconds since the Unix epoch.
func (v *Value) AsDateTime() (int64, error) {
	if err := v.expect(KindDateTime); err != nil {
		return 0, err
	}
	return v.intVal, nil
}

// AsTime returns the date as UTC time.
func (v *Value) AsTime() (time.Time, error) {
	ms, err := v.AsDateTime()
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

// AsRegex returns the pattern and the flags as written.
func (v *Value) AsRegex() (pattern, flags string, err error) {
	if err := v.expect(KindRegex); err != nil {
		return "", "", err
	}
	return v.strVal, v.flags, nil
}

// AsBinary returns the subtype and a copy of the payload.
func (v *Value) AsBinary() (byte, []byte, error) {
	if err := v.expect(KindBinary); err != nil {
		return 0, nil, err
	}

	b := make([]byte, len(v.binVal))
	copy(b, v.binVal)

	return v.subtype, b, nil
}

// AsTimestamp returns the timestamp payload.
func (v *Value) AsTimestamp() (TimestampValue, error) {
	if err := v.expect(KindTimestamp); err != nil {
		return TimestampValue{}, err
	}
	return v.ts, nil
}

// Items returns the array elements. The slice must not be modified.
func (v *Value) Items() ([]*Value, error) {
	if err := v.expect(KindArray); err != nil {
		return nil, err
	}
	return v.items, nil
}

// Members returns the document members in order. The slice must not be modified.
func (v *Value) Members() ([]Member, error) {
	if err := v.expect(KindDocument); err != nil {
		return nil, err
	}
	return v.members, nil
}

// Len returns the length of an array or document.
func (v *Value) Len() int {
	switch v.Kind() {
	case KindArray:
		return len(v.items)
	case KindDocument:
		return len(v.members)
	default:
		return 0
	}
}

// Get returns a document member value by key, or nil.
func (v *Value) Get(key string) *Value {
	if v.Kind() != KindDocument {
		return nil
	}

	for _, m := range v.members {
		if m.Key == key {
			return m.Value
		}
	}

	return nil
}

// Index returns the i-th element of an array.
func (v *Value) Index(i int) (*Value, error) {
	if v.Kind() != KindArray {
		return nil, errors.New("shelldata: not an array")
	}
	if i < 0 || i >= len(v.items) {
		return nil, errors.New("shelldata: index %d out of bounds (len=%d)", i, len(v.items))
	}
	return v.items[i], nil
}

// Pos returns the source position of a parsed value.
func (v *Value) Pos() Position {
	if v == nil {
		return Position{}
	}
	return v.pos
}

// With returns a copy of document v with key set to val.
// An existing key keeps its position.
func (v *Value) With(key string, val *Value) *Value {
	var b docBuilder
	if v.Kind() == KindDocument {
		b.members = make([]Member, 0, len(v.members)+1)
		for _, m := range v.members {
			b.set(m.Key, m.Value)
		}
	}

	b.set(key, val)

	return b.value()
}

// String returns the compact literal text of v.
func (v *Value) String() string {
	return Serialize(v, CompactOptions())
}

// ============================================================
// Numeric Helpers
// ============================================================

// IsNumeric returns true for int32, int64, double and decimal values.
func (v *Value) IsNumeric() bool {
	switch v.Kind() {
	case KindInt32, KindInt64, KindDouble, KindDecimal:
		return true
	default:
		return false
	}
}

// Number returns an int32, int64 or double value as float64.
func (v *Value) Number() (float64, bool) {
	switch v.Kind() {
	case KindInt32, KindInt64:
		return float64(v.intVal), true
	case KindDouble:
		return v.floatVal, true
	default:
		return 0, false
	}
}

func checkObjectID(hex string) error {
	if len(hex) != 24 {
		return errors.New("expected 24 hex characters, got %d", len(hex))
	}

	for i := 0; i < len(hex); i++ {
		if hexDigit(hex[i]) < 0 {
			return errors.New("invalid hex character %q at %d", hex[i], i)
		}
	}

	return nil
}

func hexDigit(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c - 'a' + 10)
	case c >= 'A' && c <= 'F':
		return int(c - 'A' + 10)
	default:
		return -1
	}
}
