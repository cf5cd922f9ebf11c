package dataset

import (
	"math"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	valueMissing valueKind = iota
	valueNumber
	valueText
)

// Value is a single table cell: missing, a number, or text.
type Value struct {
	kind valueKind
	num  float64
	text string
}

// naMarkers are the spellings treated as a missing value when parsing text.
var naMarkers = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"-NaN": {},
	"-nan": {},
	"null": {},
	"NULL": {},
	"None": {},
	"<NA>": {},
	"#N/A": {},
}

// Missing returns the missing value.
func Missing() Value { return Value{} }

// Number wraps a float. NaN is kept as a number (an invalid marker), not as missing.
func Number(f float64) Value { return Value{kind: valueNumber, num: f} }

// Text wraps a string verbatim.
func Text(s string) Value { return Value{kind: valueText, text: s} }

// IsNA reports whether s is one of the recognised missing-value spellings.
func IsNA(s string) bool {
	_, ok := naMarkers[strings.TrimSpace(s)]
	return ok
}

// ParseValue interprets a raw text cell: NA markers become missing, parseable
// numbers become numbers, anything else is text. Spellings that parse to NaN
// or an infinity ("NAN", "inf", "+Infinity") are missing too.
func ParseValue(s string) Value {
	raw := strings.TrimSpace(s)
	if IsNA(raw) {
		return Missing()
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return Finite(f)
	}
	return Text(s)
}

// Finite wraps f as a number, or returns missing when f is NaN or infinite.
func Finite(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Missing()
	}
	return Number(f)
}

func (v Value) IsMissing() bool { return v.kind == valueMissing }
func (v Value) IsNumber() bool { return v.kind == valueNumber }
func (v Value) IsText() bool { return v.kind == valueText }

// Float returns the numeric value and whether the cell holds a number.
func (v Value) Float() (float64, bool) {
	if v.kind != valueNumber {
		return math.NaN(), false
	}
	return v.num, true
}

// String renders the value the way it would appear in a CSV cell.
func (v Value) String() string {
	switch v.kind {
	case valueNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case valueText:
		return v.text
	default:
		return ""
	}
}

// Equal compares two values; NaN numbers compare equal to each other.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case valueNumber:
		if math.IsNaN(v.num) && math.IsNaN(o.num) {
			return true
		}
		return v.num == o.num
	case valueText:
		return v.text == o.text
	default:
		return true
	}
}
