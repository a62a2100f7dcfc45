// Package format renders projection figures for display.
package format

import (
	"math"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// Currency formats an amount as whole dollars with thousands separators,
// e.g. "$58,278" or "-$1,200".
func Currency(v float64) string {
	r := math.Round(v)
	if r == 0 {
		// avoid "-$0"
		r = 0
	}
	if r < 0 {
		return printer.Sprintf("-$%.0f", -r)
	}
	return printer.Sprintf("$%.0f", r)
}

// CurrencyCents formats an amount with two decimals, e.g. "$121.28".
func CurrencyCents(v float64) string {
	r := math.Round(v*100) / 100
	if r == 0 {
		r = 0
	}
	if r < 0 {
		return printer.Sprintf("-$%.2f", -r)
	}
	return printer.Sprintf("$%.2f", r)
}

// Percent formats a fraction as a percentage, e.g. 0.075 -> "7.5%".
func Percent(fraction float64) string {
	pct := math.Round(fraction*10000) / 100
	return strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

// Age formats a fractional age in years with one decimal.
func Age(years float64) string {
	return printer.Sprintf("%.1f", years)
}
