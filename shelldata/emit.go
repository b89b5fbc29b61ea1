package shelldata

import (
	"encoding/base64"
	"strconv"
	"strings"
)

// EmitOptions configures the serializer.
type EmitOptions struct {
	// Pretty emits one member or element per line.
	Pretty bool

	// IndentWidth is the number of spaces per nesting level in pretty mode.
	IndentWidth int
}

// CompactOptions returns options for output without optional whitespace.
func CompactOptions() EmitOptions {
	return EmitOptions{}
}

// PrettyOptions returns options for indented, human-readable output.
func PrettyOptions() EmitOptions {
	return EmitOptions{Pretty: true, IndentWidth: 2}
}

// Serialize converts a value to literal text.
// The output is deterministic and parses back to an equal value.
func Serialize(v *Value, opts EmitOptions) string {
	e := &emitter{opts: opts}
	e.emit(v, 0)
	return e.sb.String()
}

type emitter struct {
	sb   strings.Builder
	opts EmitOptions
}

func (e *emitter) emit(v *Value, depth int) {
	switch v.Kind() {
	case KindNull:
		e.sb.WriteString("null")
	case KindUndefined:
		e.sb.WriteString("undefined")
	case KindBool:
		if v.boolVal {
			e.sb.WriteString("true")
		} else {
			e.sb.WriteString("false")
		}
	case KindInt32:
		e.sb.WriteString(strconv.FormatInt(v.intVal, 10))
	case KindInt64:
		n := strconv.FormatInt(v.intVal, 10)
		if v.intVal > maxSafeInteger || v.intVal < -maxSafeInteger {
			n = quoteString(n)
		}
		e.call("NumberLong", n)
	case KindDouble:
		e.sb.WriteString(formatDouble(v.floatVal))
	case KindDecimal:
		e.call("NumberDecimal", quoteString(v.strVal))
	case KindText:
		e.sb.WriteString(quoteString(v.strVal))
	case KindObjectID:
		e.call("ObjectId", quoteString(v.strVal))
	case KindDateTime:
		if s, ok := formatDate(v.intVal); ok {
			e.call("ISODate", quoteString(s))
		} else {
			e.call("Date", strconv.FormatInt(v.intVal, 10))
		}
	case KindRegex:
		e.emitRegex(v.strVal, canonicalFlags(v.flags))
	case KindBinary:
		e.call("BinData", strconv.Itoa(int(v.subtype)), quoteString(base64.StdEncoding.EncodeToString(v.binVal)))
	case KindTimestamp:
		e.call("Timestamp", strconv.FormatUint(uint64(v.ts.T), 10), strconv.FormatUint(uint64(v.ts.I), 10))
	case KindMinKey:
		e.call("MinKey")
	case KindMaxKey:
		e.call("MaxKey")
	case KindArray:
		e.emitArray(v, depth)
	case KindDocument:
		e.emitDocument(v, depth)
	}
}

// call writes a constructor call with preformatted arguments.
func (e *emitter) call(name string, args ...string) {
	e.sb.WriteString(name)
	e.sb.WriteByte('(')

	for i, a := range args {
		if i > 0 {
			e.sb.WriteByte(',')
			if e.opts.Pretty {
				e.sb.WriteByte(' ')
			}
		}

		e.sb.WriteString(a)
	}

	e.sb.WriteByte(')')
}

func (e *emitter) emitRegex(pattern, flags string) {
	if !regexIsBare(pattern) {
		if flags == "" {
			e.call("RegExp", quoteString(pattern))
		} else {
			e.call("RegExp", quoteString(pattern), quoteString(flags))
		}

		return
	}

	e.sb.WriteByte('/')
	e.sb.WriteString(escapeRegex(pattern))
	e.sb.WriteByte('/')
	e.sb.WriteString(flags)
}

func (e *emitter) emitArray(v *Value, depth int) {
	if len(v.items) == 0 {
		e.sb.WriteString("[]")
		return
	}

	e.sb.WriteByte('[')

	for i, item := range v.items {
		if i > 0 {
			e.sb.WriteByte(',')
		}

		e.newline(depth + 1)
		e.emit(item, depth+1)
	}

	e.newline(depth)
	e.sb.WriteByte(']')
}

func (e *emitter) emitDocument(v *Value, depth int) {
	if len(v.members) == 0 {
		e.sb.WriteString("{}")
		return
	}

	e.sb.WriteByte('{')

	for i, m := range v.members {
		if i > 0 {
			e.sb.WriteByte(',')
		}

		e.newline(depth + 1)

		if isBareKey(m.Key) {
			e.sb.WriteString(m.Key)
		} else {
			e.sb.WriteString(quoteString(m.Key))
		}

		e.sb.WriteByte(':')
		if e.opts.Pretty {
			e.sb.WriteByte(' ')
		}

		e.emit(m.Value, depth+1)
	}

	e.newline(depth)
	e.sb.WriteByte('}')
}

func (e *emitter) newline(depth int) {
	if !e.opts.Pretty {
		return
	}

	e.sb.WriteByte('\n')

	if w := e.opts.IndentWidth; w > 0 {
		e.sb.WriteString(strings.Repeat(" ", depth*w))
	}
}
