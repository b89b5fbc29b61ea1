package shelldata

import (
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"tlog.app/go/errors"
)

// ============================================================
// Extended JSON Bridge
// ============================================================
//
// Transport responses arrive as Extended JSON. The bridge converts them to
// Values and back so the rest of the package never speaks a wire format.

// ExtJSONMode selects the Extended JSON flavor.
type ExtJSONMode uint8

const (
	// Canonical wraps every typed number and date so no type information is lost.
	Canonical ExtJSONMode = iota

	// Relaxed writes finite numbers and recent dates as plain JSON.
	Relaxed
)

// ToExtJSON converts a value to Extended JSON. Document member order is kept.
func ToExtJSON(v *Value, mode ExtJSONMode) []byte {
	w := &jsonWriter{mode: mode}
	w.value(v)
	return []byte(w.sb.String())
}

type jsonWriter struct {
	sb   strings.Builder
	mode ExtJSONMode
}

func (w *jsonWriter) value(v *Value) {
	relaxed := w.mode == Relaxed

	switch v.Kind() {
	case KindNull:
		w.sb.WriteString("null")
	case KindUndefined:
		w.sb.WriteString(`{"$undefined":true}`)
	case KindBool:
		w.sb.WriteString(strconv.FormatBool(v.boolVal))
	case KindInt32:
		if relaxed {
			w.sb.WriteString(strconv.FormatInt(v.intVal, 10))
		} else {
			w.wrapString("$numberInt", strconv.FormatInt(v.intVal, 10))
		}
	case KindInt64:
		if relaxed {
			w.sb.WriteString(strconv.FormatInt(v.intVal, 10))
		} else {
			w.wrapString("$numberLong", strconv.FormatInt(v.intVal, 10))
		}
	case KindDouble:
		f := v.floatVal
		if relaxed && !math.IsNaN(f) && !math.IsInf(f, 0) {
			w.sb.WriteString(formatDouble(f))
		} else {
			w.wrapString("$numberDouble", formatDouble(f))
		}
	case KindDecimal:
		w.wrapString("$numberDecimal", v.strVal)
	case KindText:
		writeJSONString(&w.sb, v.strVal)
	case KindObjectID:
		w.wrapString("$oid", v.strVal)
	case KindDateTime:
		if s, ok := formatDate(v.intVal); ok && relaxed && v.intVal >= 0 {
			w.wrapString("$date", s)
		} else {
			w.sb.WriteString(`{"$date":`)
			w.wrapString("$numberLong", strconv.FormatInt(v.intVal, 10))
			w.sb.WriteByte('}')
		}
	case KindRegex:
		w.sb.WriteString(`{"$regularExpression":{"pattern":`)
		writeJSONString(&w.sb, v.strVal)
		w.sb.WriteString(`,"options":`)
		writeJSONString(&w.sb, canonicalFlags(v.flags))
		w.sb.WriteString(`}}`)
	case KindBinary:
		w.sb.WriteString(`{"$binary":{"base64":`)
		writeJSONString(&w.sb, base64.StdEncoding.EncodeToString(v.binVal))
		w.sb.WriteString(`,"subType":`)
		writeJSONString(&w.sb, fmt.Sprintf("%02x", v.subtype))
		w.sb.WriteString(`}}`)
	case KindTimestamp:
		w.sb.WriteString(`{"$timestamp":{"t":`)
		w.sb.WriteString(strconv.FormatUint(uint64(v.ts.T), 10))
		w.sb.WriteString(`,"i":`)
		w.sb.WriteString(strconv.FormatUint(uint64(v.ts.I), 10))
		w.sb.WriteString(`}}`)
	case KindMinKey:
		w.sb.WriteString(`{"$minKey":1}`)
	case KindMaxKey:
		w.sb.WriteString(`{"$maxKey":1}`)
	case KindArray:
		w.sb.WriteByte('[')
		for i, it := range v.items {
			if i > 0 {
				w.sb.WriteByte(',')
			}
			w.value(it)
		}
		w.sb.WriteByte(']')
	case KindDocument:
		w.sb.WriteByte('{')
		for i, m := range v.members {
			if i > 0 {
				w.sb.WriteByte(',')
			}
			writeJSONString(&w.sb, m.Key)
			w.sb.WriteByte(':')
			w.value(m.Value)
		}
		w.sb.WriteByte('}')
	}
}

func (w *jsonWriter) wrapString(key, val string) {
	w.sb.WriteString(`{"`)
	w.sb.WriteString(key)
	w.sb.WriteString(`":`)
	writeJSONString(&w.sb, val)
	w.sb.WriteByte('}')
}

// writeJSONString writes s as a JSON string. Invalid UTF-8 becomes U+FFFD.
func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')

	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		i += size

		switch {
		case r == utf8.RuneError && size == 1:
			b.WriteString("\ufffd")
		case r == '"':
			b.WriteString(`\"`)
		case r == '\\':
			b.WriteString(`\\`)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\r':
			b.WriteString(`\r`)
		case r == '\t':
			b.WriteString(`\t`)
		case r < 0x20:
			b.WriteString(`\u00`)
			b.WriteByte(upperHex[r>>4])
			b.WriteByte(upperHex[r&0xf])
		default:
			b.WriteRune(r)
		}
	}

	b.WriteByte('"')
}

// FromExtJSON parses canonical or relaxed Extended JSON into a value.
// Type wrappers such as {"$oid": "..."} become typed values; other documents stay documents.
func FromExtJSON(data []byte) (*Value, error) {
	v, err := Parse(string(data))
	if err != nil {
		return nil, err
	}

	return ConvertExtJSON(v)
}

// ConvertExtJSON replaces the type wrapper documents inside an already
// parsed value with the typed values they stand for.
func ConvertExtJSON(v *Value) (*Value, error) {
	switch v.Kind() {
	case KindArray:
		items := make([]*Value, len(v.items))

		for i, it := range v.items {
			x, err := ConvertExtJSON(it)
			if err != nil {
				return nil, errors.Wrap(err, "[%d]", i)
			}

			items[i] = x
		}

		return Array(items...), nil
	case KindDocument:
	default:
		return v, nil
	}

	if x, ok, err := unwrapExtJSON(v); ok || err != nil {
		return x, err
	}

	var b docBuilder

	for _, m := range v.members {
		x, err := ConvertExtJSON(m.Value)
		if err != nil {
			return nil, errors.Wrap(err, "%s", m.Key)
		}

		b.set(m.Key, x)
	}

	return b.value(), nil
}

// unwrapExtJSON converts a type wrapper document.
// It returns ok == false for documents that are not wrappers.
func unwrapExtJSON(d *Value) (v *Value, ok bool, err error) {
	if len(d.members) != 1 {
		return nil, false, nil
	}

	key, arg := d.members[0].Key, d.members[0].Value
	if !strings.HasPrefix(key, "$") {
		return nil, false, nil
	}

	str, isStr := arg.strVal, arg.Kind() == KindText
	bad := func() (*Value, bool, error) {
		return nil, true, errors.New("%s: unexpected %s payload", key, arg.Kind())
	}

	switch key {
	case "$oid":
		if !isStr {
			return bad()
		}

		v, err = ObjectID(str)
	case "$numberInt":
		if !isStr {
			return bad()
		}

		var n int64
		n, err = strconv.ParseInt(str, 10, 32)
		v = Int32(int32(n))
	case "$numberLong":
		if !isStr {
			return bad()
		}

		var n int64
		n, err = strconv.ParseInt(str, 10, 64)
		v = Int64(n)
	case "$numberDouble":
		if !isStr {
			return bad()
		}

		v, err = extDouble(str)
	case "$numberDecimal":
		if !isStr {
			return bad()
		}

		v, err = Decimal(str)
	case "$date":
		v, err = extDate(arg)
	case "$regularExpression":
		if arg.Kind() != KindDocument || arg.Len() != 2 {
			return bad()
		}

		v, err = extRegex(arg.Get("pattern"), arg.Get("options"))
	case "$binary":
		if arg.Kind() != KindDocument || arg.Len() != 2 {
			return bad()
		}

		v, err = extBinary(arg.Get("base64"), arg.Get("subType"))
	case "$timestamp":
		t, i := arg.Get("t"), arg.Get("i")
		if arg.Kind() != KindDocument || arg.Len() != 2 || t == nil || i == nil {
			return bad()
		}

		v, err = extTimestamp(t, i)
	case "$minKey":
		v = MinKey()
	case "$maxKey":
		v = MaxKey()
	case "$undefined":
		v = Undefined()
	default:
		return nil, false, nil
	}

	if err != nil {
		return nil, true, errors.Wrap(err, "%s", key)
	}

	return v, true, nil
}

func extDouble(s string) (*Value, error) {
	switch s {
	case "NaN":
		return Double(math.NaN()), nil
	case "Infinity":
		return Double(math.Inf(1)), nil
	case "-Infinity":
		return Double(math.Inf(-1)), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}

	return Double(f), nil
}

func extDate(arg *Value) (*Value, error) {
	switch arg.Kind() {
	case KindText:
		ms, err := parseISODate(arg.strVal)
		if err != nil {
			return nil, err
		}

		return DateTime(ms), nil
	case KindInt32, KindInt64:
		return DateTime(arg.intVal), nil
	case KindDocument:
		s, err := arg.Get("$numberLong").AsText()
		if err != nil || arg.Len() != 1 {
			return nil, errors.New("expected {\"$numberLong\": \"...\"}")
		}

		ms, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, err
		}

		return DateTime(ms), nil
	}

	return nil, errors.New("unexpected %s payload", arg.Kind())
}

func extRegex(pattern, options *Value) (*Value, error) {
	p, err := pattern.AsText()
	if err != nil {
		return nil, errors.Wrap(err, "pattern")
	}

	o, err := options.AsText()
	if err != nil {
		return nil, errors.Wrap(err, "options")
	}

	return Regex(p, o)
}

func extBinary(data, subtype *Value) (*Value, error) {
	s, err := data.AsText()
	if err != nil {
		return nil, errors.Wrap(err, "base64")
	}

	st, err := subtype.AsText()
	if err != nil {
		return nil, errors.Wrap(err, "subType")
	}

	sub, err := strconv.ParseUint(st, 16, 8)
	if err != nil {
		return nil, errors.Wrap(err, "subType")
	}

	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Wrap(err, "base64")
	}

	return &Value{kind: KindBinary, subtype: byte(sub), binVal: b}, nil
}

func extTimestamp(t, i *Value) (*Value, error) {
	tv, ok := uint32Value(t)
	if !ok {
		return nil, errors.New("t: expected unsigned 32-bit integer")
	}

	iv, ok := uint32Value(i)
	if !ok {
		return nil, errors.New("i: expected unsigned 32-bit integer")
	}

	return Timestamp(tv, iv), nil
}

func uint32Value(v *Value) (uint32, bool) {
	switch v.Kind() {
	case KindInt32, KindInt64:
		if v.intVal < 0 || v.intVal > math.MaxUint32 {
			return 0, false
		}

		return uint32(v.intVal), true
	}

	return 0, false
}
