package pricing

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

var (
	// ErrInvalidAmount means a price string could not be parsed as a decimal
	ErrInvalidAmount = errors.New("invalid decimal amount")
)

// parse converts a decimal string into an exact rational. String equality is
// deliberately not used anywhere: "20", "20.0" and "20.00" are the same
// price, and a formatting difference must never abort a fulfillment.
func parse(amount string) (*big.Rat, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, ErrInvalidAmount
	}

	r, ok := new(big.Rat).SetString(trimmed)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if r.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative amount %q", ErrInvalidAmount, amount)
	}
	return r, nil
}

// Equal reports whether two decimal amount strings denote the same value
func Equal(a, b string) (bool, error) {
	ra, err := parse(a)
	if err != nil {
		return false, err
	}
	rb, err := parse(b)
	if err != nil {
		return false, err
	}
	return ra.Cmp(rb) == 0, nil
}

// IsFree reports whether an amount string denotes exactly zero
func IsFree(amount string) (bool, error) {
	r, err := parse(amount)
	if err != nil {
		return false, err
	}
	return r.Sign() == 0, nil
}

// FromMinorUnits converts an amount in minor currency units (e.g. cents, as
// reported by the payment provider) to a decimal string: 2000 -> "20.00"
func FromMinorUnits(minor int64) string {
	if minor < 0 {
		minor = 0
	}
	return fmt.Sprintf("%d.%02d", minor/100, minor%100)
}

// ToMinorUnits converts a decimal amount string to minor currency units for
// the payment provider: "20.00" -> 2000. Fails if the amount has sub-cent
// precision.
func ToMinorUnits(amount string) (int64, error) {
	r, err := parse(amount)
	if err != nil {
		return 0, err
	}

	cents := new(big.Rat).Mul(r, big.NewRat(100, 1))
	if !cents.IsInt() {
		return 0, fmt.Errorf("%w: %q has sub-cent precision", ErrInvalidAmount, amount)
	}
	if !cents.Num().IsInt64() {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, amount)
	}
	return cents.Num().Int64(), nil
}
