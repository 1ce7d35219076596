package summary

import (
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// IsCanonicalInt reports whether s is a base-10 integer literal that renders
// back to exactly s.
//
// Leading zeros, a leading '+', surrounding whitespace, "-0" and fractional
// forms all fail the round trip. Integers are not bounded to 64 bits: values
// that overflow int64 are checked with math/big.
func IsCanonicalInt(s string) bool {
	i, err := strconv.ParseInt(s, 10, 64)
	if err == nil {
		return strconv.FormatInt(i, 10) == s
	}
	if !errors.Is(err, strconv.ErrRange) {
		return false
	}

	n, ok := new(big.Int).SetString(s, 10)
	return ok && n.String() == s
}

// IsCanonicalFloat reports whether s parses as a float64 and FormatFloat
// renders the parsed value back to exactly s.
func IsCanonicalFloat(s string) bool {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return false
	}
	return FormatFloat(f) == s
}

// FormatFloat is the canonical float rendering used for float classification.
//
// Rules:
//   - the shortest digit string that parses back to the same float64;
//   - positional notation while the decimal point sits within
//     (-4, 16] places of the first significant digit, otherwise scientific
//     notation "d[.ddd]e±XX" with at least two exponent digits;
//   - integral positional values keep a trailing ".0";
//   - special values render as "inf", "-inf" and "nan".
//
// Examples: 1.5 → "1.5", 1 → "1.0", 1e-5 → "1e-05", 1e16 → "1e+16",
// 1e15 → "1000000000000000.0".
func FormatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	// Shortest round-trip digits in scientific form, e.g. "-1.25e+03".
	s := strconv.FormatFloat(f, 'e', -1, 64)

	var b strings.Builder
	if s[0] == '-' {
		b.WriteByte('-')
		s = s[1:]
	}

	mant, expText, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expText)
	digits := strings.Replace(mant, ".", "", 1)

	// decpt is the decimal point position: value = 0.<digits> * 10^decpt.
	decpt := exp + 1

	if decpt <= -4 || decpt > 16 {
		b.WriteByte(digits[0])
		if len(digits) > 1 {
			b.WriteByte('.')
			b.WriteString(digits[1:])
		}
		b.WriteByte('e')
		if exp < 0 {
			b.WriteByte('-')
			exp = -exp
		} else {
			b.WriteByte('+')
		}
		if exp < 10 {
			b.WriteByte('0')
		}
		b.WriteString(strconv.Itoa(exp))
		return b.String()
	}

	switch {
	case decpt <= 0:
		b.WriteString("0.")
		b.WriteString(strings.Repeat("0", -decpt))
		b.WriteString(digits)
	case decpt >= len(digits):
		b.WriteString(digits)
		b.WriteString(strings.Repeat("0", decpt-len(digits)))
		b.WriteString(".0")
	default:
		b.WriteString(digits[:decpt])
		b.WriteByte('.')
		b.WriteString(digits[decpt:])
	}
	return b.String()
}
