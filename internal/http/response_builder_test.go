package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"collegesave/internal/core"
)

func TestResponseBuilderJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	NewResponse().Status(http.StatusCreated).Header("X-Test", "1").JSON(map[string]int{"a": 1}).Write(rr)

	if rr.Code != http.StatusCreated {
		t.Errorf("status = %d", rr.Code)
	}
	if rr.Header().Get("Content-Type") != "application/json" || rr.Header().Get("X-Test") != "1" {
		t.Errorf("headers = %v", rr.Header())
	}
	if strings.TrimSpace(rr.Body.String()) != `{"a":1}` {
		t.Errorf("body = %q", rr.Body.String())
	}
}

func TestErrorResponseEscapes(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorResponse(http.StatusUnprocessableEntity, `<script>alert(1)</script>`).Write(rr)
	if strings.Contains(rr.Body.String(), "<script>") {
		t.Errorf("message not escaped: %s", rr.Body.String())
	}
	if rr.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d", rr.Code)
	}
}

func TestAPIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		wantKind string
	}{
		{
			name:     "validation",
			err:      &core.ValidationError{Field: "percent_to_cover", Err: core.ErrInvalidCoveragePercent},
			status:   http.StatusUnprocessableEntity,
			wantKind: "invalid_coverage_percent",
		},
		{
			name:     "internal",
			err:      errors.New("boom"),
			status:   http.StatusInternalServerError,
			wantKind: "internal_error",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			APIError(tt.err).Write(rr)
			if rr.Code != tt.status {
				t.Errorf("status = %d, want %d", rr.Code, tt.status)
			}
			var body map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != tt.wantKind {
				t.Errorf("error = %q, want %q", body["error"], tt.wantKind)
			}
		})
	}
}

func TestNewPageView(t *testing.T) {
	pv := newPageView(url.Values{"annual_cost": {"$40,000"}})
	if len(pv.Fields) != len(inputFields) {
		t.Fatalf("fields = %d", len(pv.Fields))
	}
	for _, f := range pv.Fields {
		switch f.Name {
		case "annual_cost":
			if f.Value != "$40,000" || !f.Money {
				t.Errorf("annual_cost field = %+v", f)
			}
		case "current_age":
			if f.Value != "5.0" {
				t.Errorf("current_age default = %q", f.Value)
			}
		}
	}

	pv = pv.withError(&core.ValidationError{Field: "annual_cost", Err: core.ErrInvalidMonetaryInput})
	if pv.ErrorField != "annual_cost" || pv.Error == "" {
		t.Errorf("withError = %+v", pv)
	}
}

func TestNewResultsView(t *testing.T) {
	in, err := ParseInputValues(DefaultFormValues())
	if err != nil {
		t.Fatal(err)
	}
	p, err := core.Calculate(in)
	if err != nil {
		t.Fatal(err)
	}

	rv := newResultsView(in, p)
	if rv.MonthlySavings != "$121" || rv.TotalFutureCost != "$233,110" || rv.FutureCostPerYear != "$58,278" {
		t.Errorf("headline = %+v", rv)
	}
	if rv.MonthlySavingsExact != "$121.28" {
		t.Errorf("MonthlySavingsExact = %q", rv.MonthlySavingsExact)
	}
	if rv.RateOfReturn != "7%" || rv.InflationRate != "4%" || rv.Coverage != "75%" {
		t.Errorf("assumptions = %q %q %q", rv.RateOfReturn, rv.InflationRate, rv.Coverage)
	}
	// Ages 5..18 sampled yearly: 14 rows.
	if len(rv.Rows) != 14 {
		t.Errorf("rows = %d, want 14", len(rv.Rows))
	}
	if !strings.HasPrefix(rv.ChartURL, "/chart.png?") || !strings.Contains(rv.ChartURL, "annual_cost=35000") {
		t.Errorf("ChartURL = %q", rv.ChartURL)
	}
	if rv.Surplus {
		t.Error("Surplus set for a positive payment")
	}

	// Under one month to go leaves nothing to chart.
	in.CollegeStartAge = in.CurrentAge + 0.05
	p, err = core.Calculate(in)
	if err != nil {
		t.Fatal(err)
	}
	if rv := newResultsView(in, p); rv.ChartURL != "" {
		t.Errorf("ChartURL = %q for a single-point series", rv.ChartURL)
	}
}
