package shelldata

import (
	"bytes"
	"cmp"
	"math"
	"math/big"
	"strings"
)

// Equal reports whether a and b are structurally equal:
// same variant and same payload, document member order included.
//
// Doubles compare by value except that NaN equals NaN and -0.0 differs from 0.0.
// Regex flags compare in canonical order. Source positions are ignored.
func Equal(a, b *Value) bool {
	if a.Kind() != b.Kind() {
		return false
	}

	switch a.Kind() {
	case KindNull, KindUndefined, KindMinKey, KindMaxKey:
		return true
	case KindBool:
		return a.boolVal == b.boolVal
	case KindInt32, KindInt64, KindDateTime:
		return a.intVal == b.intVal
	case KindDouble:
		return equalDouble(a.floatVal, b.floatVal)
	case KindDecimal, KindText, KindObjectID:
		return a.strVal == b.strVal
	case KindRegex:
		return a.strVal == b.strVal && canonicalFlags(a.flags) == canonicalFlags(b.flags)
	case KindBinary:
		return a.subtype == b.subtype && bytes.Equal(a.binVal, b.binVal)
	case KindTimestamp:
		return a.ts == b.ts
	case KindArray:
		if len(a.items) != len(b.items) {
			return false
		}

		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}

		return true
	case KindDocument:
		if len(a.members) != len(b.members) {
			return false
		}

		for i := range a.members {
			if a.members[i].Key != b.members[i].Key || !Equal(a.members[i].Value, b.members[i].Value) {
				return false
			}
		}

		return true
	}

	return false
}

func equalDouble(x, y float64) bool {
	if math.IsNaN(x) || math.IsNaN(y) {
		return math.IsNaN(x) && math.IsNaN(y)
	}

	return x == y && math.Signbit(x) == math.Signbit(y)
}

// Compare orders two values the way the database sorts mixed-type fields.
// It returns -1, 0 or +1.
//
// Variants rank MinKey, Undefined and Null, numbers, Text, Document, Array,
// Binary, ObjectRef, Bool, DateTime, Timestamp, Regex, MaxKey.
// Numbers compare by value across Int32, Int64, Double and Decimal; NaN is lowest.
func Compare(a, b *Value) int {
	if r := cmp.Compare(kindRank(a.Kind()), kindRank(b.Kind())); r != 0 {
		return r
	}

	switch a.Kind() {
	case KindInt32, KindInt64, KindDouble, KindDecimal:
		return compareNumeric(a.numeric(), b.numeric())
	case KindNull, KindUndefined:
		// undefined sorts just before null
		return cmp.Compare(boolRank(a.Kind() == KindNull), boolRank(b.Kind() == KindNull))
	case KindBool:
		return cmp.Compare(boolRank(a.boolVal), boolRank(b.boolVal))
	case KindDateTime:
		return cmp.Compare(a.intVal, b.intVal)
	case KindText, KindObjectID:
		return strings.Compare(a.strVal, b.strVal)
	case KindRegex:
		if r := strings.Compare(a.strVal, b.strVal); r != 0 {
			return r
		}

		return strings.Compare(canonicalFlags(a.flags), canonicalFlags(b.flags))
	case KindBinary:
		if r := cmp.Compare(len(a.binVal), len(b.binVal)); r != 0 {
			return r
		}
		if r := cmp.Compare(a.subtype, b.subtype); r != 0 {
			return r
		}

		return bytes.Compare(a.binVal, b.binVal)
	case KindTimestamp:
		if r := cmp.Compare(a.ts.T, b.ts.T); r != 0 {
			return r
		}

		return cmp.Compare(a.ts.I, b.ts.I)
	case KindArray:
		for i := 0; i < len(a.items) && i < len(b.items); i++ {
			if r := Compare(a.items[i], b.items[i]); r != 0 {
				return r
			}
		}

		return cmp.Compare(len(a.items), len(b.items))
	case KindDocument:
		for i := 0; i < len(a.members) && i < len(b.members); i++ {
			x, y := a.members[i], b.members[i]

			if r := strings.Compare(x.Key, y.Key); r != 0 {
				return r
			}
			if r := Compare(x.Value, y.Value); r != 0 {
				return r
			}
		}

		return cmp.Compare(len(a.members), len(b.members))
	}

	return 0
}

func kindRank(k Kind) int {
	switch k {
	case KindMinKey:
		return 0
	case KindUndefined, KindNull:
		return 1
	case KindInt32, KindInt64, KindDouble, KindDecimal:
		return 2
	case KindText:
		return 3
	case KindDocument:
		return 4
	case KindArray:
		return 5
	case KindBinary:
		return 6
	case KindObjectID:
		return 7
	case KindBool:
		return 8
	case KindDateTime:
		return 9
	case KindTimestamp:
		return 10
	case KindRegex:
		return 11
	case KindMaxKey:
		return 12
	default:
		return 13
	}
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// numeric is a number widened for cross-variant comparison.
type numeric struct {
	nan bool
	inf int // -1, 0 or +1
	rat *big.Rat
}

func (v *Value) numeric() numeric {
	switch v.Kind() {
	case KindInt32, KindInt64:
		return numeric{rat: new(big.Rat).SetInt64(v.intVal)}
	case KindDouble:
		f := v.floatVal

		switch {
		case math.IsNaN(f):
			return numeric{nan: true}
		case math.IsInf(f, 1):
			return numeric{inf: 1}
		case math.IsInf(f, -1):
			return numeric{inf: -1}
		}

		return numeric{rat: new(big.Rat).SetFloat64(f)}
	case KindDecimal:
		d, err := ParseDecimal128(v.strVal)
		if err != nil {
			return numeric{nan: true}
		}

		return d.numeric()
	}

	return numeric{nan: true}
}

func compareNumeric(a, b numeric) int {
	switch {
	case a.nan && b.nan:
		return 0
	case a.nan:
		return -1
	case b.nan:
		return 1
	}

	if a.inf != 0 || b.inf != 0 {
		return cmp.Compare(a.inf, b.inf)
	}

	return a.rat.Cmp(b.rat)
}
