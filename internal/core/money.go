// Package core provides the college savings projection engine.
//
// This file contains the parser for monetary amounts typed into the form,
// which may carry currency symbols and thousands separators.
package core

import (
	"strconv"
	"strings"
	"unicode"
)

// ParseAmount converts a formatted amount to a number.
//
// It strips a leading currency symbol ($, €, £), surrounding whitespace and
// comma thousands separators. Separators must group exactly three digits.
// The result is never negative. Returns ErrInvalidMonetaryInput on failure.
//
// Examples:
//   ParseAmount("$35,000")  -> 35000, nil
//   ParseAmount("1,234.56") -> 1234.56, nil
//   ParseAmount("60000")    -> 60000, nil
//   ParseAmount("3,50")     -> 0, ErrInvalidMonetaryInput
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£")
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMonetaryInput
	}

	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if hasFrac && (fracPart == "" || !allDigits(fracPart)) {
		return 0, ErrInvalidMonetaryInput
	}
	if intPart == "" {
		intPart = "0"
	}

	if strings.Contains(intPart, ",") {
		groups := strings.Split(intPart, ",")
		if len(groups[0]) == 0 || len(groups[0]) > 3 {
			return 0, ErrInvalidMonetaryInput
		}
		for _, g := range groups[1:] {
			if len(g) != 3 {
				return 0, ErrInvalidMonetaryInput
			}
		}
		intPart = strings.Join(groups, "")
	}
	if !allDigits(intPart) {
		return 0, ErrInvalidMonetaryInput
	}

	num := intPart
	if hasFrac {
		num += "." + fracPart
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, ErrInvalidMonetaryInput
	}
	return v, nil
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
