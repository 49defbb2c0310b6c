package paramdiff

import (
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
)

// Value is one comparable field value: either text (compared
// case-sensitively) or a number (compared exactly, never with a float
// epsilon, since these are categorical parameter values rather than
// computed floats).
type Value struct {
	text string
	num  *decimal.Decimal
}

// Text wraps a string value.
func Text(s string) Value { return Value{text: s} }

// Int wraps an integer value.
func Int(v int64) Value {
	d := decimal.NewFromInt(v)
	return Value{num: &d}
}

// Float wraps a float value with exact decimal semantics.
func Float(v float64) Value {
	d := decimal.NewFromFloat(v)
	return Value{num: &d}
}

// Equal compares two values. Numbers compare by exact decimal equality;
// text compares case-sensitively. A number never equals a text value.
func (v Value) Equal(o Value) bool {
	if (v.num == nil) != (o.num == nil) {
		return false
	}
	if v.num != nil {
		return v.num.Equal(*o.num)
	}
	return v.text == o.text
}

// String renders the value for the difference report.
func (v Value) String() string {
	if v.num != nil {
		return v.num.String()
	}
	return v.text
}

// Key builds a natural-identity key from its parts, NFC-normalizing each
// part. Legacy desktop exports carry mixed Unicode normal forms for the
// same boundary or species name; normalizing at the key boundary keeps
// equal names aligned.
func Key(parts ...string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "/"
		}
		out += norm.NFC.String(p)
	}
	return out
}
