package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// MaxHorizonYears bounds the distance between the current age and the college
// start age so the monthly simulation stays small.
const MaxHorizonYears = 100

type (
	// Input is one savings plan as entered by the user. Rates and the coverage
	// share are percentages (7 means 7%).
	Input struct {
		CurrentAge           float64 `json:"current_age"`
		CollegeStartAge      float64 `json:"college_start_age"`
		AnnualCost           float64 `json:"annual_cost"`
		CollegeInflationRate float64 `json:"college_inflation_rate"`
		YearsOfCollege       float64 `json:"years_of_college"`
		AlreadySaved         float64 `json:"already_saved"`
		RateOfReturn         float64 `json:"rate_of_return"`
		PercentToCover       float64 `json:"percent_to_cover"`
	}

	// ValidatedInput is an Input that passed Validate. Rates and the coverage
	// share are decimal fractions (0.07 means 7%).
	ValidatedInput struct {
		CurrentAge           float64
		CollegeStartAge      float64
		AnnualCost           float64
		CollegeInflationRate float64
		YearsOfCollege       float64
		AlreadySaved         float64
		RateOfReturn         float64
		PercentToCover       float64
	}

	// Point is one monthly sample of the projected savings balance.
	Point struct {
		Month         int     `json:"month"`
		Age           float64 `json:"age"`
		Contributions float64 `json:"contributions"`
		Earnings      float64 `json:"earnings"`
		Balance       float64 `json:"balance"`
	}

	// Projection is the result of a single calculation.
	Projection struct {
		YearsUntilCollege   float64
		MonthsUntilCollege  int
		MonthlyRateOfReturn float64
		FutureCostPerYear   float64
		TotalFutureCost     float64
		AmountToCover       float64
		// MonthlySavings may be negative: existing savings alone already
		// outgrow the amount to cover.
		MonthlySavings float64
		Series         []Point
	}
)

var (
	ErrInvalidAgeRange        = errors.New("college start age must be greater than current age")
	ErrInvalidCoveragePercent = errors.New("percentage to cover must be between 0 and 100")
	ErrInvalidMonetaryInput   = errors.New("invalid monetary amount")
	ErrInvalidInput           = errors.New("invalid input")
	ErrHorizonTooLong         = errors.New("savings horizon too long")
)

// ValidationError reports which field failed and why. Err is one of the
// sentinel errors above.
type ValidationError struct {
	Field string
	Err   error
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Msg == "" {
		return e.Field + ": " + e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error() + " (" + e.Msg + ")"
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Kind returns a stable machine-readable name for the error category.
func (e *ValidationError) Kind() string {
	return ErrorKind(e.Err)
}

// ErrorKind maps an error to the name used by the HTTP and AMQP shells.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAgeRange):
		return "invalid_age_range"
	case errors.Is(err, ErrInvalidCoveragePercent):
		return "invalid_coverage_percent"
	case errors.Is(err, ErrInvalidMonetaryInput):
		return "invalid_monetary_input"
	case errors.Is(err, ErrHorizonTooLong):
		return "horizon_too_long"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal_error"
	}
}

func invalid(field string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Err: err, Msg: fmt.Sprintf(format, args...)}
}

// Validate checks the input and converts every percentage to a fraction.
func (in Input) Validate() (ValidatedInput, error) {
	fields := []struct {
		name string
		v    float64
	}{
		{"current_age", in.CurrentAge},
		{"college_start_age", in.CollegeStartAge},
		{"annual_cost", in.AnnualCost},
		{"college_inflation_rate", in.CollegeInflationRate},
		{"years_of_college", in.YearsOfCollege},
		{"already_saved", in.AlreadySaved},
		{"rate_of_return", in.RateOfReturn},
		{"percent_to_cover", in.PercentToCover},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return ValidatedInput{}, invalid(f.name, ErrInvalidInput, "must be a finite number")
		}
	}

	if in.CollegeStartAge <= in.CurrentAge {
		return ValidatedInput{}, invalid("college_start_age", ErrInvalidAgeRange, "%g <= %g", in.CollegeStartAge, in.CurrentAge)
	}
	if in.CollegeStartAge-in.CurrentAge > MaxHorizonYears {
		return ValidatedInput{}, invalid("college_start_age", ErrHorizonTooLong, "at most %d years ahead", MaxHorizonYears)
	}
	if in.PercentToCover < 0 || in.PercentToCover > 100 {
		return ValidatedInput{}, invalid("percent_to_cover", ErrInvalidCoveragePercent, "got %g", in.PercentToCover)
	}

	if in.CurrentAge < 0 {
		return ValidatedInput{}, invalid("current_age", ErrInvalidInput, "must not be negative")
	}
	if in.AnnualCost < 0 {
		return ValidatedInput{}, invalid("annual_cost", ErrInvalidInput, "must not be negative")
	}
	if in.AlreadySaved < 0 {
		return ValidatedInput{}, invalid("already_saved", ErrInvalidInput, "must not be negative")
	}
	if in.YearsOfCollege <= 0 {
		return ValidatedInput{}, invalid("years_of_college", ErrInvalidInput, "must be positive")
	}
	// (1+r) is raised to fractional powers; it has to stay positive.
	if in.CollegeInflationRate <= -100 {
		return ValidatedInput{}, invalid("college_inflation_rate", ErrInvalidInput, "must be above -100%%")
	}
	if in.RateOfReturn <= -100 {
		return ValidatedInput{}, invalid("rate_of_return", ErrInvalidInput, "must be above -100%%")
	}

	return ValidatedInput{
		CurrentAge:           in.CurrentAge,
		CollegeStartAge:      in.CollegeStartAge,
		AnnualCost:           in.AnnualCost,
		CollegeInflationRate: in.CollegeInflationRate / 100,
		YearsOfCollege:       in.YearsOfCollege,
		AlreadySaved:         in.AlreadySaved,
		RateOfReturn:         in.RateOfReturn / 100,
		PercentToCover:       in.PercentToCover / 100,
	}, nil
}

// Key returns a canonical string for the input, suitable as a cache key.
func (in Input) Key() string {
	parts := []float64{
		in.CurrentAge, in.CollegeStartAge, in.AnnualCost, in.CollegeInflationRate,
		in.YearsOfCollege, in.AlreadySaved, in.RateOfReturn, in.PercentToCover,
	}
	var b strings.Builder
	for i, p := range parts {
		if i > 0 {
			b.WriteByte('|')
		}
		b.WriteString(strconv.FormatFloat(p, 'g', -1, 64))
	}
	return b.String()
}
