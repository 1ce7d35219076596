// Package summary folds a stream of raw column values into a running Field
// summary.
//
// The fold is pure: Merge never mutates its prior state and always returns a
// fresh Field, so a column's summary can be rebuilt at any point as
//
//	Fold(values) == Merge(...Merge(Merge(nil, v1), v2)..., vn)
//
// Memory per column is constant: two retained strings and three flags.
package summary

import "unicode/utf8"

// Field is the aggregate state for one column.
//
// A Field only exists once the first value has been merged; there is no
// meaningful zero value, which is why Merge takes a *Field and treats nil as
// "no values seen yet".
type Field struct {
	// HasEmpties is true once any merged value was the empty string.
	HasEmpties bool `json:"has_empties" yaml:"has_empties"`

	// IsInt is true while every merged value is a canonical base-10 integer.
	IsInt bool `json:"is_int" yaml:"is_int"`

	// IsFloat is true while every merged value round-trips through FormatFloat.
	IsFloat bool `json:"is_float" yaml:"is_float"`

	// ShortestValue is the first value seen with the minimum length.
	ShortestValue string `json:"shortest_value" yaml:"shortest_value"`

	// LongestValue is the first value seen with the maximum length.
	LongestValue string `json:"longest_value" yaml:"longest_value"`
}

// Merge folds value into prior and returns the new summary.
//
// prior == nil means value is the first one seen for the column. The flags are
// strict conjunctions over the full history: once IsInt or IsFloat drops to
// false it stays false, and the (comparatively expensive) parse is skipped.
// Length ties keep the earlier value.
func Merge(prior *Field, value string) Field {
	if prior == nil {
		return Field{
			HasEmpties:    value == "",
			IsInt:         IsCanonicalInt(value),
			IsFloat:       IsCanonicalFloat(value),
			ShortestValue: value,
			LongestValue:  value,
		}
	}

	next := Field{
		HasEmpties:    prior.HasEmpties || value == "",
		IsInt:         prior.IsInt && IsCanonicalInt(value),
		IsFloat:       prior.IsFloat && IsCanonicalFloat(value),
		ShortestValue: prior.ShortestValue,
		LongestValue:  prior.LongestValue,
	}

	n := length(value)
	if n < length(prior.ShortestValue) {
		next.ShortestValue = value
	}
	if n > length(prior.LongestValue) {
		next.LongestValue = value
	}
	return next
}

// Fold merges values in order starting from no prior state.
// It returns nil when values is empty.
func Fold(values []string) *Field {
	var cur *Field
	for _, v := range values {
		f := Merge(cur, v)
		cur = &f
	}
	return cur
}

// Width is the suggested textual column width: the length of LongestValue.
func (f Field) Width() int {
	return length(f.LongestValue)
}

// length counts characters, not bytes, so multi-byte values size the same
// way a VARCHAR(n) column would.
func length(s string) int {
	return utf8.RuneCountInString(s)
}
