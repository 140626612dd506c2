package blockchain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Amount is a fixed-point quantity in minor units. One whole unit is
// MinorUnitsPerUnit minor units.
type Amount int64

const (
	MinorUnitsPerUnit Amount = 1_000_000
	amountDecimals           = 6

	// MaxAmount bounds parsed amounts in either sign. Blocks carry the value
	// as a float64 of whole units, and below this bound every minor unit
	// survives Float64 followed by AmountFromFloat.
	MaxAmount Amount = 1 << 50
)

var ErrInvalidAmount = errors.New("invalid amount")

// NewAmount returns an amount of whole units
func NewAmount(units int64) Amount {
	return Amount(units) * MinorUnitsPerUnit
}

// ParseAmount parses a decimal string such as "10", "-2.5" or "0.000001"
// without going through floating point.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidAmount)
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" && (!hasDot || frac == "") {
		return 0, fmt.Errorf("%w: no digits", ErrInvalidAmount)
	}
	if len(frac) > amountDecimals {
		return 0, fmt.Errorf("%w: more than %d decimal places", ErrInvalidAmount, amountDecimals)
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	var units uint64
	if whole != "" {
		var err error
		units, err = strconv.ParseUint(whole, 10, 63)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
		}
	}
	if units > uint64(math.MaxInt64/MinorUnitsPerUnit) {
		return 0, fmt.Errorf("%w: out of range", ErrInvalidAmount)
	}

	var minor uint64
	if frac != "" {
		padded := frac + strings.Repeat("0", amountDecimals-len(frac))
		minor, _ = strconv.ParseUint(padded, 10, 64)
	}

	total := int64(units)*int64(MinorUnitsPerUnit) + int64(minor)
	if total < 0 || total > int64(MaxAmount) {
		return 0, fmt.Errorf("%w: magnitude above %s", ErrInvalidAmount, MaxAmount)
	}
	if negative {
		total = -total
	}
	return Amount(total), nil
}

// AmountFromFloat converts a whole-unit float to the nearest minor unit
func AmountFromFloat(f float64) (Amount, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, f)
	}
	minor := math.Round(f * float64(MinorUnitsPerUnit))
	if minor >= math.MaxInt64 || minor < math.MinInt64 {
		return 0, fmt.Errorf("%w: %v out of range", ErrInvalidAmount, f)
	}
	return Amount(minor), nil
}

// Float64 returns the amount in whole units
func (a Amount) Float64() float64 {
	return float64(a) / float64(MinorUnitsPerUnit)
}

func (a Amount) String() string {
	sign := ""
	magnitude := uint64(a)
	if a < 0 {
		sign = "-"
		magnitude = uint64(-(a + 1)) + 1
	}
	per := uint64(MinorUnitsPerUnit)
	whole, frac := magnitude/per, magnitude%per
	if frac == 0 {
		return sign + strconv.FormatUint(whole, 10)
	}
	fracStr := fmt.Sprintf("%0*d", amountDecimals, frac)
	return sign + strconv.FormatUint(whole, 10) + "." + strings.TrimRight(fracStr, "0")
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts a decimal string or a plain decimal number
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	text := string(data)
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &text); err != nil {
			return err
		}
	}
	parsed, err := ParseAmount(text)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
