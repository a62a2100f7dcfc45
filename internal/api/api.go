// Package api defines the wire representation of projections shared by the
// HTTP JSON endpoint and the AMQP worker.
package api

import (
	"errors"

	"collegesave/internal/core"
	"collegesave/internal/format"
)

// ProjectionResponse is a projection as returned to remote callers.
// Numeric fields are raw values; the *Display fields are formatted for people.
type ProjectionResponse struct {
	YearsUntilCollege   float64 `json:"years_until_college"`
	MonthsUntilCollege  int     `json:"months_until_college"`
	MonthlyRateOfReturn float64 `json:"monthly_rate_of_return"`
	FutureCostPerYear   float64 `json:"future_cost_per_year"`
	TotalFutureCost     float64 `json:"total_future_cost"`
	AmountToCover       float64 `json:"amount_to_cover"`
	MonthlySavings      float64 `json:"monthly_savings"`

	MonthlySavingsDisplay    string `json:"monthly_savings_display"`
	TotalFutureCostDisplay   string `json:"total_future_cost_display"`
	FutureCostPerYearDisplay string `json:"future_cost_per_year_display"`

	Series []core.Point `json:"series,omitempty"`
}

// ErrorResponse describes a rejected calculation.
type ErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

// FromProjection converts an engine result. The series is included only when
// requested since it holds one row per month.
func FromProjection(p core.Projection, includeSeries bool) ProjectionResponse {
	resp := ProjectionResponse{
		YearsUntilCollege:        p.YearsUntilCollege,
		MonthsUntilCollege:       p.MonthsUntilCollege,
		MonthlyRateOfReturn:      p.MonthlyRateOfReturn,
		FutureCostPerYear:        p.FutureCostPerYear,
		TotalFutureCost:          p.TotalFutureCost,
		AmountToCover:            p.AmountToCover,
		MonthlySavings:           p.MonthlySavings,
		MonthlySavingsDisplay:    format.Currency(p.MonthlySavings),
		TotalFutureCostDisplay:   format.Currency(p.TotalFutureCost),
		FutureCostPerYearDisplay: format.Currency(p.FutureCostPerYear),
	}
	if includeSeries {
		resp.Series = p.Series
	}
	return resp
}

// FromError converts an engine or parsing error.
func FromError(err error) ErrorResponse {
	resp := ErrorResponse{Error: core.ErrorKind(err), Message: err.Error()}
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		resp.Field = ve.Field
	}
	return resp
}
