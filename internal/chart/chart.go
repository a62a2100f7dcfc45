// Package chart draws the projected savings growth of a core.Projection.
//
// The chart stacks contributions and investment earnings against the child's
// age. It consumes a finished projection and never calls back into the engine.
package chart

import (
	"errors"
	"fmt"
	"io"
	"math"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"collegesave/internal/core"
	"collegesave/internal/format"
)

// Format selects the output encoding.
type Format string

const (
	PNG Format = "png"
	SVG Format = "svg"
)

var ErrNotEnoughPoints = errors.New("chart needs at least two points")

var (
	contributionsColor = drawing.Color{R: 31, G: 119, B: 180, A: 255}
	earningsColor      = drawing.Color{R: 255, G: 127, B: 14, A: 255}
)

// Options controls chart size and encoding.
type Options struct {
	Width  int
	Height int
	Format Format
}

// DefaultOptions matches the layout of the calculator page.
func DefaultOptions() Options {
	return Options{Width: 900, Height: 600, Format: PNG}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == SVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// ParseFormat maps a query value to a Format, defaulting to PNG.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "", "png":
		return PNG, nil
	case "svg":
		return SVG, nil
	default:
		return "", fmt.Errorf("unsupported chart format %q", s)
	}
}

// Title is the headline shown above the chart.
func Title(p core.Projection) string {
	return "Projected College Savings: " + format.Currency(p.MonthlySavings) + " per month needed"
}

// Build assembles the go-chart definition for the projection.
func Build(p core.Projection, opts Options) (*gochart.Chart, error) {
	if len(p.Series) < 2 {
		return nil, ErrNotEnoughPoints
	}

	// The band between contributions and the balance is the earnings. The
	// upper edge is painted first so the lower area never hides the band,
	// whichever sign the earnings have.
	ages := make([]float64, len(p.Series))
	upper := make([]float64, len(p.Series))
	lower := make([]float64, len(p.Series))
	lo, hi := 0.0, 0.0
	for i, pt := range p.Series {
		total := pt.Contributions + pt.Earnings
		ages[i] = pt.Age
		upper[i] = math.Max(pt.Contributions, total)
		lower[i] = math.Min(pt.Contributions, total)
		lo = math.Min(lo, lower[i])
		hi = math.Max(hi, upper[i])
	}
	if hi == lo {
		hi = lo + 1
	}
	band := "Earnings"
	if p.Final().Earnings < 0 {
		band = "Losses"
	}

	money := func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return format.Currency(f)
		}
		return ""
	}
	age := func(v interface{}) string {
		if f, ok := v.(float64); ok {
			return format.Age(f)
		}
		return ""
	}

	graph := &gochart.Chart{
		Title:      Title(p),
		Width:      opts.Width,
		Height:     opts.Height,
		Background: gochart.Style{Padding: gochart.Box{Top: 60, Left: 50, Right: 50, Bottom: 40}},
		XAxis: gochart.XAxis{
			Name:           "Child Age",
			ValueFormatter: age,
		},
		YAxis: gochart.YAxis{
			Name:           "Amount ($)",
			ValueFormatter: money,
			Range:          &gochart.ContinuousRange{Min: lo, Max: hi},
		},
		Series: []gochart.Series{
			gochart.ContinuousSeries{
				Name:    band,
				XValues: ages,
				YValues: upper,
				Style: gochart.Style{
					StrokeColor: earningsColor,
					FillColor:   earningsColor.WithAlpha(160),
					StrokeWidth: 1,
				},
			},
			gochart.ContinuousSeries{
				Name:    "Contributions",
				XValues: ages,
				YValues: lower,
				Style: gochart.Style{
					StrokeColor: contributionsColor,
					FillColor:   contributionsColor.WithAlpha(200),
					StrokeWidth: 1,
				},
			},
		},
	}
	graph.Elements = []gochart.Renderable{gochart.LegendThin(graph)}
	return graph, nil
}

// Render writes the chart for p to w.
func Render(w io.Writer, p core.Projection, opts Options) error {
	if opts.Width <= 0 || opts.Height <= 0 {
		d := DefaultOptions()
		opts.Width, opts.Height = d.Width, d.Height
	}
	graph, err := Build(p, opts)
	if err != nil {
		return err
	}

	provider := gochart.PNG
	if opts.Format == SVG {
		provider = gochart.SVG
	}
	if err := graph.Render(provider, w); err != nil {
		return fmt.Errorf("render %s chart: %w", opts.Format, err)
	}
	return nil
}
