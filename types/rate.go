package types

import (
	"fmt"
	"strconv"
	"strings"
)

// RateScale is the fixed-point denominator for Rate values: four decimal
// places, so Rate(5000000) means 500.0000 units per USD.
const RateScale = 10000

// Rate is a foreign-exchange rate expressed as units of a quote currency
// per one US dollar, stored as a fixed-point integer with four decimal
// places. Integer-only arithmetic keeps conversions exact.
type Rate int64

// NewRate builds a Rate from a whole-unit value: NewRate(500) = 500.0000.
func NewRate(unitsPerUSD int64) Rate {
	return Rate(unitsPerUSD * RateScale)
}

// ParseRate parses a decimal string with up to four fractional digits,
// e.g. "500", "1023.50", "987.1234".
func ParseRate(s string) (Rate, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("rate: parse %q: empty string", s)
	}

	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > 4 {
		return 0, fmt.Errorf("rate: parse %q: more than 4 decimal places", s)
	}
	for len(fracPart) < 4 {
		fracPart += "0"
	}

	whole, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rate: parse %q: %w", s, err)
	}
	frac, err := strconv.ParseInt(fracPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("rate: parse %q: %w", s, err)
	}

	v := whole*RateScale + frac
	if neg {
		v = -v
	}
	return Rate(v), nil
}

// IsPositive reports whether the rate is usable for conversion.
func (r Rate) IsPositive() bool { return r > 0 }

// ToUSD converts an amount in the quote currency to its USD equivalent,
// rounding half away from zero. Panics if the rate is not positive;
// callers must check IsPositive first.
func (r Rate) ToUSD(amount Money) Money {
	if r <= 0 {
		panic(fmt.Sprintf("rate: conversion with non-positive rate %d", r))
	}

	num := amount.Amount * RateScale
	q := num / int64(r)
	rem := num % int64(r)
	half := int64(r) / 2
	switch {
	case rem > 0 && rem >= half+int64(r)%2:
		q++
	case rem < 0 && -rem >= half+int64(r)%2:
		q--
	}
	return USD(q)
}

// String renders the rate with four decimal places: "500.0000".
func (r Rate) String() string {
	v := int64(r)
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d.%04d", v/RateScale, v%RateScale)
	if neg {
		return "-" + s
	}
	return s
}
