package types

import (
	"strings"

	"github.com/cockroachdb/apd/v3"
	"github.com/pkg/errors"
)

// AmountScale is the number of fractional digits every Amount carries.
const AmountScale = 4

// amountContext is shared by all Amount arithmetic. 34 digits of precision leaves
// 30 integer digits at scale 4, so add/sub never rounds in practice; any
// condition that would lose digits is reported as an error instead.
var amountContext = apd.Context{
	Precision:   34,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Traps:       apd.DefaultTraps | apd.Inexact | apd.Rounded,
	Rounding:    apd.RoundHalfEven,
}

// quantizeContext rounds input values to AmountScale without trapping.
var quantizeContext = apd.Context{
	Precision:   34,
	MaxExponent: apd.MaxExponent,
	MinExponent: apd.MinExponent,
	Traps:       apd.DefaultTraps,
	Rounding:    apd.RoundHalfEven,
}

// Amount is a signed fixed-point decimal with AmountScale fractional digits.
// Amounts are immutable: every operation returns a fresh value.
type Amount struct {
	d apd.Decimal
}

// Zero returns the zero Amount.
func Zero() Amount {
	var a Amount
	a.d.SetFinite(0, -AmountScale)
	return a
}

// NewAmount builds an Amount from coefficient * 10^exponent, e.g. NewAmount(15, -1) is 1.5.
func NewAmount(coeff int64, exponent int32) Amount {
	a, err := fromDecimal(apd.New(coeff, exponent))
	if err != nil {
		// only reachable for exponents far outside any ledger value
		panic(err)
	}
	return a
}

// ParseAmount parses a decimal string. Values with more than AmountScale
// fractional digits are rounded half-to-even.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, errors.New("amount is empty")
	}

	d, _, err := apd.NewFromString(s)
	if err != nil {
		return Amount{}, errors.Wrapf(err, "invalid amount %q", s)
	}
	if d.Form != apd.Finite {
		return Amount{}, errors.Errorf("amount %q is not a finite number", s)
	}

	return fromDecimal(d)
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

func fromDecimal(d *apd.Decimal) (Amount, error) {
	var a Amount
	if _, err := quantizeContext.Quantize(&a.d, d, -AmountScale); err != nil {
		return Amount{}, errors.Wrapf(err, "amount %s out of range", d.String())
	}
	// keep zero unsigned so it never prints as -0.0000
	if a.d.IsZero() {
		a.d.Negative = false
	}
	return a, nil
}

// Add returns a + b.
func (a Amount) Add(b Amount) (Amount, error) {
	var out Amount
	if _, err := amountContext.Add(&out.d, &a.d, &b.d); err != nil {
		return Amount{}, errors.Wrapf(err, "add %s + %s", a, b)
	}
	return fromDecimal(&out.d)
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) (Amount, error) {
	var out Amount
	if _, err := amountContext.Sub(&out.d, &a.d, &b.d); err != nil {
		return Amount{}, errors.Wrapf(err, "sub %s - %s", a, b)
	}
	return fromDecimal(&out.d)
}

// Cmp compares a and b and returns -1, 0 or 1.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(&b.d)
}

// Sign returns -1, 0 or 1 depending on the sign of a.
func (a Amount) Sign() int {
	return a.d.Sign()
}

func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// Equal reports whether a and b hold the same value.
func (a Amount) Equal(b Amount) bool {
	return a.Cmp(b) == 0
}

// String formats the amount with exactly AmountScale fractional digits.
func (a Amount) String() string {
	var q apd.Decimal
	if _, err := quantizeContext.Quantize(&q, &a.d, -AmountScale); err != nil {
		return a.d.Text('f')
	}
	if q.IsZero() {
		q.Negative = false
	}
	return q.Text('f')
}
