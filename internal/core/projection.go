package core

import "math"

// Calculate validates the input and projects it. Inputs whose projection
// overflows float64 are rejected with ErrInvalidInput.
func Calculate(in Input) (Projection, error) {
	v, err := in.Validate()
	if err != nil {
		return Projection{}, err
	}
	p := Project(v)
	if err := p.checkFinite(); err != nil {
		return Projection{}, err
	}
	return p, nil
}

func (p Projection) checkFinite() error {
	finite := func(vs ...float64) bool {
		for _, v := range vs {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
		return true
	}
	if !finite(p.FutureCostPerYear, p.TotalFutureCost, p.AmountToCover) {
		return invalid("annual_cost", ErrInvalidInput, "future college cost is too large to compute")
	}
	last := p.Final()
	if !finite(p.MonthlySavings, last.Contributions, last.Earnings, last.Balance) {
		return invalid("rate_of_return", ErrInvalidInput, "projected savings are too large to compute")
	}
	return nil
}

// Project computes the level monthly contribution needed to reach the covered
// share of the college cost and simulates the balance month by month.
//
// The total cost multiplies the first college year's inflated cost by the
// number of years; later years are not inflated further.
//
// With a zero rate of return the already saved amount is not subtracted from
// the target, so MonthlySavings*MonthsUntilCollege equals AmountToCover.
//
// A horizon shorter than one month has no monthly periods. The payment is then
// a single immediate deposit (one period) and the series holds only the
// starting point.
func Project(v ValidatedInput) Projection {
	years := v.CollegeStartAge - v.CurrentAge
	futureCostPerYear := v.AnnualCost * math.Pow(1+v.CollegeInflationRate, years)
	totalFutureCost := futureCostPerYear * v.YearsOfCollege
	amountToCover := totalFutureCost * v.PercentToCover

	months := int(math.Floor(years * 12))
	monthlyRate := math.Pow(1+v.RateOfReturn, 1.0/12) - 1

	periods := max(months, 1)
	var payment float64
	if v.RateOfReturn == 0 {
		payment = amountToCover / float64(periods)
	} else {
		shortfall := amountToCover - v.AlreadySaved*math.Pow(1+v.RateOfReturn, years)
		payment = shortfall / annuityFactor(monthlyRate, periods)
	}

	return Projection{
		YearsUntilCollege:   years,
		MonthsUntilCollege:  months,
		MonthlyRateOfReturn: monthlyRate,
		FutureCostPerYear:   futureCostPerYear,
		TotalFutureCost:     totalFutureCost,
		AmountToCover:       amountToCover,
		MonthlySavings:      payment,
		Series:              simulate(v.CurrentAge, v.AlreadySaved, monthlyRate, payment, months),
	}
}

// annuityFactor is the future value of n unit payments at periodic rate r.
func annuityFactor(r float64, n int) float64 {
	if r == 0 {
		return float64(n)
	}
	return (math.Pow(1+r, float64(n)) - 1) / r
}

func simulate(age, saved, rate, payment float64, months int) []Point {
	series := make([]Point, 0, months+1)
	contributions, earnings, balance := saved, 0.0, saved
	series = append(series, Point{Age: age, Contributions: contributions, Balance: balance})

	for month := 1; month <= months; month++ {
		period := balance * rate
		earnings += period
		balance += period + payment
		contributions += payment
		series = append(series, Point{
			Month:         month,
			Age:           age + float64(month)/12,
			Contributions: contributions,
			Earnings:      earnings,
			Balance:       balance,
		})
	}
	return series
}

// Final returns the last point of the series.
func (p Projection) Final() Point {
	if len(p.Series) == 0 {
		return Point{}
	}
	return p.Series[len(p.Series)-1]
}

// Yearly returns the starting point plus one point per completed year of the
// series and the final point, for compact tables.
func (p Projection) Yearly() []Point {
	var out []Point
	for i, pt := range p.Series {
		if i%12 == 0 || i == len(p.Series)-1 {
			out = append(out, pt)
		}
	}
	return out
}
