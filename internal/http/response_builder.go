// Package http provides HTTP server and handler implementations.
//
// This file builds responses: JSON bodies for the API, page views for the
// calculator templates, and the mapping from engine errors to status codes.
package http

import (
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"net/url"

	"collegesave/internal/api"
	"collegesave/internal/chart"
	"collegesave/internal/core"
	"collegesave/internal/format"
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
}

// NewResponse creates a new response builder with default 200 status.
func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the response body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.statusCode = http.StatusInternalServerError
		data = []byte(`{"error":"internal_error","message":"encoding failed"}`)
	}
	b.headers["Content-Type"] = "application/json"
	b.body = append(data, '\n')
	return b
}

// BodyHTML sets the response body as HTML content.
func (b *ResponseBuilder) BodyHTML(html string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/html; charset=utf-8"
	b.body = []byte(html)
	return b
}

// Write sends the built response to the http.ResponseWriter.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse creates an HTML error fragment. The message is escaped.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().
		Status(statusCode).
		BodyHTML(`<div class="error">` + template.HTMLEscapeString(message) + `</div>`)
}

// APIError creates the JSON body for a rejected API request.
func APIError(err error) *ResponseBuilder {
	return NewResponse().Status(statusFor(err)).JSON(api.FromError(err))
}

// statusFor maps engine and parsing errors to HTTP status codes. Anything
// that is not a validation failure is a server fault.
func statusFor(err error) int {
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// field is one form input as rendered by index.html.
type field struct {
	Name  string
	Label string
	Value string
	Step  string
	Money bool
}

// row is one line of the yearly projection table.
type row struct {
	Age           string
	Contributions string
	Earnings      string
	Balance       string
}

// resultsView is the data of the results partial.
type resultsView struct {
	MonthlySavings      string
	MonthlySavingsExact string
	RateOfReturn        string
	InflationRate       string
	Coverage            string
	FutureCostPerYear string
	TotalFutureCost   string
	AmountToCover     string
	Months            int
	Surplus           bool
	ChartURL          string
	Rows              []row
}

// pageView is the data of index.html.
type pageView struct {
	Fields     []field
	Error      string
	ErrorField string
	Results    *resultsView
}

// newPageView pairs every calculator field with the value to show in it.
func newPageView(values url.Values) pageView {
	pv := pageView{Fields: make([]field, 0, len(inputFields))}
	for _, f := range inputFields {
		v := values.Get(f.Name)
		if _, ok := values[f.Name]; !ok {
			v = f.Default
		}
		pv.Fields = append(pv.Fields, field{Name: f.Name, Label: f.Label, Value: v, Step: f.Step, Money: f.Money})
	}
	return pv
}

// withError records a rejected submission on the page.
func (pv pageView) withError(err error) pageView {
	pv.Error = err.Error()
	var ve *core.ValidationError
	if errors.As(err, &ve) {
		pv.ErrorField = ve.Field
	}
	return pv
}

// newResultsView formats a projection for display.
func newResultsView(in core.Input, p core.Projection) *resultsView {
	rv := &resultsView{
		MonthlySavings:      format.Currency(p.MonthlySavings),
		MonthlySavingsExact: format.CurrencyCents(p.MonthlySavings),
		RateOfReturn:        format.Percent(in.RateOfReturn / 100),
		InflationRate:       format.Percent(in.CollegeInflationRate / 100),
		Coverage:            format.Percent(in.PercentToCover / 100),
		FutureCostPerYear:   format.Currency(p.FutureCostPerYear),
		TotalFutureCost:     format.Currency(p.TotalFutureCost),
		AmountToCover:       format.Currency(p.AmountToCover),
		Months:              p.MonthsUntilCollege,
		Surplus:             p.MonthlySavings < 0,
	}
	// A horizon under one month has nothing to plot.
	if len(p.Series) > 1 {
		rv.ChartURL = chartURL(in, chart.PNG)
	}
	for _, pt := range p.Yearly() {
		rv.Rows = append(rv.Rows, row{
			Age:           format.Age(pt.Age),
			Contributions: format.Currency(pt.Contributions),
			Earnings:      format.Currency(pt.Earnings),
			Balance:       format.Currency(pt.Balance),
		})
	}
	return rv
}

func chartURL(in core.Input, f chart.Format) string {
	q := InputQuery(in)
	if f != chart.PNG {
		q.Set("format", string(f))
	}
	return "/chart.png?" + q.Encode()
}
