package shelldata

import (
	"math/big"
	"strconv"
	"strings"

	"tlog.app/go/errors"
)

// Decimal128 limits.
const (
	decimalMaxDigits = 34
	decimalMaxExp    = 6111
	decimalMinExp    = -6176
)

// Decimal128 parse errors
var (
	ErrDecimalSyntax   = errors.New("invalid decimal format")
	ErrDecimalInexact  = errors.New("decimal needs more than 34 significant digits")
	ErrDecimalOverflow = errors.New("decimal exponent out of range")
)

type decimalSpecial uint8

const (
	decimalFinite decimalSpecial = iota
	decimalNaN
	decimalInf
)

// Decimal128 is a parsed 128-bit decimal: value = (-1)^Neg * coefficient * 10^Exp.
//
// It is used to validate decimal literals and to derive their canonical text;
// the Value model stores only the canonical string.
type Decimal128 struct {
	Neg  bool
	Coef string // significant digits without leading zeros, "0" for zero
	Exp  int

	special decimalSpecial
}

// ParseDecimal128 parses a decimal string.
// Examples: "123.45", "-0.0001234", "1.5E+10", "NaN", "-Infinity".
func ParseDecimal128(s string) (Decimal128, error) {
	var d Decimal128

	body := s
	if strings.HasPrefix(body, "-") {
		d.Neg = true
		body = body[1:]
	} else if strings.HasPrefix(body, "+") {
		body = body[1:]
	}

	switch strings.ToLower(body) {
	case "nan":
		if body != s {
			return Decimal128{}, errors.Wrap(ErrDecimalSyntax, "%q", s)
		}
		return Decimal128{special: decimalNaN}, nil
	case "inf", "infinity":
		d.special = decimalInf
		return d, nil
	}

	mant := body
	exp := 0

	if i := strings.IndexAny(body, "eE"); i >= 0 {
		mant = body[:i]

		e, err := strconv.Atoi(body[i+1:])
		if err != nil {
			return Decimal128{}, errors.Wrap(ErrDecimalSyntax, "%q", s)
		}
		exp = e
	}

	intPart, fracPart := mant, ""
	if i := strings.IndexByte(mant, '.'); i >= 0 {
		intPart, fracPart = mant[:i], mant[i+1:]
	}

	if intPart == "" && fracPart == "" || !allDigits(intPart) || !allDigits(fracPart) {
		return Decimal128{}, errors.Wrap(ErrDecimalSyntax, "%q", s)
	}

	// Scale is the number of fractional digits
	exp -= len(fracPart)

	coef := strings.TrimLeft(intPart+fracPart, "0")
	if coef == "" {
		coef = "0"
	}

	// Drop trailing zeros only when the coefficient does not fit.
	for len(coef) > decimalMaxDigits && strings.HasSuffix(coef, "0") {
		coef = coef[:len(coef)-1]
		exp++
	}

	if len(coef) > decimalMaxDigits {
		return Decimal128{}, errors.Wrap(ErrDecimalInexact, "%q", s)
	}

	// Clamp the exponent into range where that is exact.
	for exp > decimalMaxExp && coef != "0" && len(coef) < decimalMaxDigits {
		coef += "0"
		exp--
	}

	for exp < decimalMinExp && strings.HasSuffix(coef, "0") && coef != "0" {
		coef = coef[:len(coef)-1]
		exp++
	}

	if coef == "0" {
		exp = max(decimalMinExp, min(exp, decimalMaxExp))
	}

	if exp > decimalMaxExp || exp < decimalMinExp {
		return Decimal128{}, errors.Wrap(ErrDecimalOverflow, "%q", s)
	}

	d.Coef = coef
	d.Exp = exp

	return d, nil
}

// IsNaN returns true for NaN.
func (d Decimal128) IsNaN() bool { return d.special == decimalNaN }

// IsInf returns true for positive or negative infinity.
func (d Decimal128) IsInf() bool { return d.special == decimalInf }

// String returns the canonical scientific string representation.
// Trailing zeros of the coefficient are significant and kept.
func (d Decimal128) String() string {
	sign := ""
	if d.Neg {
		sign = "-"
	}

	switch d.special {
	case decimalNaN:
		return "NaN"
	case decimalInf:
		return sign + "Infinity"
	}

	digits := d.Coef
	if digits == "" {
		digits = "0"
	}

	adjusted := d.Exp + len(digits) - 1

	if d.Exp <= 0 && adjusted >= -6 {
		if d.Exp == 0 {
			return sign + digits
		}

		frac := -d.Exp
		if len(digits) > frac {
			return sign + digits[:len(digits)-frac] + "." + digits[len(digits)-frac:]
		}

		return sign + "0." + strings.Repeat("0", frac-len(digits)) + digits
	}

	var b strings.Builder
	b.WriteString(sign)
	b.WriteByte(digits[0])
	if len(digits) > 1 {
		b.WriteByte('.')
		b.WriteString(digits[1:])
	}
	b.WriteByte('E')
	if adjusted >= 0 {
		b.WriteByte('+')
	}
	b.WriteString(strconv.Itoa(adjusted))

	return b.String()
}

// Rat returns the exact value. It returns false for NaN and infinities.
func (d Decimal128) Rat() (*big.Rat, bool) {
	if d.special != decimalFinite {
		return nil, false
	}

	coef, ok := new(big.Int).SetString(d.Coef, 10)
	if !ok {
		coef = new(big.Int)
	}

	if d.Neg {
		coef.Neg(coef)
	}

	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs(d.Exp))), nil)

	r := new(big.Rat).SetInt(coef)
	if d.Exp >= 0 {
		return r.Mul(r, new(big.Rat).SetInt(scale)), true
	}

	return r.Quo(r, new(big.Rat).SetInt(scale)), true
}

// Cmp compares two decimals numerically. NaN sorts below everything.
// Returns -1 if d < other, 0 if d == other, 1 if d > other.
func (d Decimal128) Cmp(other Decimal128) int {
	return compareNumeric(d.numeric(), other.numeric())
}

func (d Decimal128) numeric() numeric {
	switch d.special {
	case decimalNaN:
		return numeric{nan: true}
	case decimalInf:
		if d.Neg {
			return numeric{inf: -1}
		}
		return numeric{inf: 1}
	}

	r, _ := d.Rat()

	return numeric{rat: r}
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
