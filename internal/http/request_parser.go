// Package http provides HTTP server and handler implementations.
//
// This file turns form posts, chart query strings and JSON bodies into engine
// input. Text amounts go through core.ParseAmount; the engine never sees text.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"collegesave/internal/core"
)

// maxBodyBytes bounds form and JSON bodies.
const maxBodyBytes = 64 << 10

// inputField describes one calculator field.
type inputField struct {
	Name    string
	Label   string
	Default string
	Step    string
	Money   bool
	set     func(*core.Input, float64)
	get     func(core.Input) float64
}

// inputFields lists the form fields in display order, with the defaults the
// calculator opens with.
var inputFields = []inputField{
	{Name: "current_age", Label: "Child's current age", Default: "5.0", Step: "0.1",
		set: func(in *core.Input, v float64) { in.CurrentAge = v },
		get: func(in core.Input) float64 { return in.CurrentAge }},
	{Name: "college_start_age", Label: "Age when starting college", Default: "18", Step: "1",
		set: func(in *core.Input, v float64) { in.CollegeStartAge = v },
		get: func(in core.Input) float64 { return in.CollegeStartAge }},
	{Name: "annual_cost", Label: "Annual college cost", Default: "35000", Money: true,
		set: func(in *core.Input, v float64) { in.AnnualCost = v },
		get: func(in core.Input) float64 { return in.AnnualCost }},
	{Name: "college_inflation_rate", Label: "College cost inflation (% per year)", Default: "4.0", Step: "0.1",
		set: func(in *core.Input, v float64) { in.CollegeInflationRate = v },
		get: func(in core.Input) float64 { return in.CollegeInflationRate }},
	{Name: "years_of_college", Label: "Years of college", Default: "4", Step: "1",
		set: func(in *core.Input, v float64) { in.YearsOfCollege = v },
		get: func(in core.Input) float64 { return in.YearsOfCollege }},
	{Name: "already_saved", Label: "Amount already saved", Default: "60000", Money: true,
		set: func(in *core.Input, v float64) { in.AlreadySaved = v },
		get: func(in core.Input) float64 { return in.AlreadySaved }},
	{Name: "rate_of_return", Label: "Expected rate of return (% per year)", Default: "7.0", Step: "0.1",
		set: func(in *core.Input, v float64) { in.RateOfReturn = v },
		get: func(in core.Input) float64 { return in.RateOfReturn }},
	{Name: "percent_to_cover", Label: "Share of cost to cover (%)", Default: "75.0", Step: "1",
		set: func(in *core.Input, v float64) { in.PercentToCover = v },
		get: func(in core.Input) float64 { return in.PercentToCover }},
}

// DefaultFormValues returns the values the calculator form opens with.
func DefaultFormValues() url.Values {
	v := make(url.Values, len(inputFields))
	for _, f := range inputFields {
		v.Set(f.Name, f.Default)
	}
	return v
}

// ParseInputValues reads every calculator field from form or query values.
// It stops at the first field that is missing or unreadable; monetary fields
// then fail with core.ErrInvalidMonetaryInput and the rest with
// core.ErrInvalidInput.
func ParseInputValues(values url.Values) (core.Input, error) {
	var in core.Input
	for _, f := range inputFields {
		raw := strings.TrimSpace(sanitizeInput(values.Get(f.Name)))
		v, err := parseField(f, raw)
		if err != nil {
			return core.Input{}, err
		}
		f.set(&in, v)
	}
	return in, nil
}

func parseField(f inputField, raw string) (float64, error) {
	if raw == "" {
		return 0, &core.ValidationError{Field: f.Name, Err: core.ErrInvalidInput, Msg: "required"}
	}
	if f.Money {
		v, err := core.ParseAmount(raw)
		if err != nil {
			return 0, &core.ValidationError{Field: f.Name, Err: err, Msg: fmt.Sprintf("%q", raw)}
		}
		return v, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &core.ValidationError{Field: f.Name, Err: core.ErrInvalidInput, Msg: fmt.Sprintf("%q is not a number", raw)}
	}
	return v, nil
}

// InputQuery encodes an input as the query string understood by
// ParseInputValues, used for chart image links.
func InputQuery(in core.Input) url.Values {
	v := make(url.Values, len(inputFields))
	for _, f := range inputFields {
		v.Set(f.Name, strconv.FormatFloat(f.get(in), 'f', -1, 64))
	}
	return v
}

// includeSeriesKey is the one optional member of a projection request body.
const includeSeriesKey = "include_series"

var errRequestBody = errors.New("invalid request body")

// DecodeProjectionRequest reads a JSON projection request. Every input field
// is required. Unknown fields and trailing data are rejected so typos in field
// names do not silently become zeros.
func DecodeProjectionRequest(body io.Reader) (core.Input, bool, error) {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))

	var members map[string]json.RawMessage
	if err := dec.Decode(&members); err != nil {
		return core.Input{}, false, bodyError(err.Error())
	}
	if dec.More() {
		return core.Input{}, false, bodyError(errRequestBody.Error())
	}

	known := map[string]bool{includeSeriesKey: true}
	for _, f := range inputFields {
		known[f.Name] = true
	}
	for name := range members {
		if !known[name] {
			return core.Input{}, false, bodyError(fmt.Sprintf("unknown field %q", name))
		}
	}

	var in core.Input
	for _, f := range inputFields {
		raw, ok := members[f.Name]
		if !ok || string(raw) == "null" {
			return core.Input{}, false, &core.ValidationError{Field: f.Name, Err: core.ErrInvalidInput, Msg: "required"}
		}
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return core.Input{}, false, &core.ValidationError{Field: f.Name, Err: core.ErrInvalidInput, Msg: "must be a number"}
		}
		f.set(&in, v)
	}

	var includeSeries bool
	if raw, ok := members[includeSeriesKey]; ok {
		if err := json.Unmarshal(raw, &includeSeries); err != nil {
			return core.Input{}, false, &core.ValidationError{Field: includeSeriesKey, Err: core.ErrInvalidInput, Msg: "must be a boolean"}
		}
	}
	return in, includeSeries, nil
}

func bodyError(msg string) *core.ValidationError {
	return &core.ValidationError{Field: "body", Err: core.ErrInvalidInput, Msg: msg}
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
