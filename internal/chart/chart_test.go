package chart

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	gochart "github.com/wcharczuk/go-chart/v2"

	"collegesave/internal/core"
)

func projection(t *testing.T, in core.Input) core.Projection {
	t.Helper()
	p, err := core.Calculate(in)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	return p
}

func defaultInput() core.Input {
	return core.Input{CurrentAge: 5, CollegeStartAge: 18, AnnualCost: 35000, CollegeInflationRate: 4, YearsOfCollege: 4, AlreadySaved: 60000, RateOfReturn: 7, PercentToCover: 75}
}

func TestRenderPNG(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, projection(t, defaultInput()), DefaultOptions()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")) {
		t.Fatalf("output is not a PNG")
	}
}

func TestRenderSVG(t *testing.T) {
	var buf bytes.Buffer
	opts := Options{Width: 600, Height: 400, Format: SVG}
	if err := Render(&buf, projection(t, defaultInput()), opts); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "<svg") {
		t.Fatalf("output is not an SVG")
	}
}

func TestRenderAllZero(t *testing.T) {
	in := defaultInput()
	in.AlreadySaved = 0
	in.PercentToCover = 0
	var buf bytes.Buffer
	if err := Render(&buf, projection(t, in), DefaultOptions()); err != nil {
		t.Fatalf("Render with flat series: %v", err)
	}
}

func TestBuildSingletonSeries(t *testing.T) {
	in := defaultInput()
	in.CollegeStartAge = in.CurrentAge + 0.01
	_, err := Build(projection(t, in), DefaultOptions())
	if !errors.Is(err, ErrNotEnoughPoints) {
		t.Fatalf("expected ErrNotEnoughPoints, got %v", err)
	}
}

func TestBuildStacksSeries(t *testing.T) {
	p := projection(t, defaultInput())
	graph, err := Build(p, DefaultOptions())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(graph.Series) != 2 {
		t.Fatalf("expected 2 series, got %d", len(graph.Series))
	}
	if graph.Title != Title(p) || !strings.Contains(graph.Title, "per month needed") {
		t.Fatalf("unexpected title %q", graph.Title)
	}
}

func TestBuildKeepsEarningsBandVisible(t *testing.T) {
	cases := []struct {
		name     string
		rate     float64
		wantBand string
	}{
		{"gains", 7, "Earnings"},
		{"losses", -5, "Losses"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := defaultInput()
			in.RateOfReturn = tc.rate
			p := projection(t, in)
			graph, err := Build(p, DefaultOptions())
			if err != nil {
				t.Fatalf("Build: %v", err)
			}
			back := graph.Series[0].(gochart.ContinuousSeries)
			front := graph.Series[1].(gochart.ContinuousSeries)
			if back.Name != tc.wantBand {
				t.Errorf("band name = %q, want %q", back.Name, tc.wantBand)
			}
			last := len(p.Series) - 1
			if back.YValues[last] <= front.YValues[last] {
				t.Errorf("band hidden: back %v <= front %v", back.YValues[last], front.YValues[last])
			}
			for i := range back.YValues {
				if back.YValues[i] < front.YValues[i] {
					t.Fatalf("point %d: back %v below front %v", i, back.YValues[i], front.YValues[i])
				}
			}
		})
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": PNG, "png": PNG, "svg": SVG} {
		got, err := ParseFormat(in)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Fatalf("expected error for gif")
	}
	if SVG.ContentType() != "image/svg+xml" || PNG.ContentType() != "image/png" {
		t.Fatalf("unexpected content types")
	}
}
