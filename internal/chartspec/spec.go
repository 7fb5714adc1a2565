// Package chartspec turns chart data into declarative chart specifications.
// Nothing here draws; see internal/chart for rasterization.
package chartspec

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"zencalcs-assistant/internal/models"
)

var (
	ErrUnsupportedType = errors.New("unsupported chart type")
	ErrNoData          = errors.New("chart has no data")
)

type LegendPosition string

const (
	LegendNone  LegendPosition = "none"
	LegendTop   LegendPosition = "top"
	LegendRight LegendPosition = "right"
)

// Series is one dataset of a chart.
type Series struct {
	Name   string
	Values []float64
	Color  color.RGBA
	Fill   bool
	Dashed bool
}

// Spec is a complete, renderer-independent chart description.
type Spec struct {
	Type   models.ChartType
	Title  string
	Labels []string
	Series []Series
	// SliceColors colours individual values of bar and pie charts.
	SliceColors []color.RGBA
	Format      models.ValueFormat
	BeginAtZero bool
	Legend      LegendPosition
}

// NamedSeries is the input of MultiLine.
type NamedSeries struct {
	Name   string
	Values []float64
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// Line builds a filled single-series line chart.
func Line(labels []string, values []float64, title, label string, format models.ValueFormat) Spec {
	return Spec{
		Type:   models.ChartLine,
		Title:  orDefault(title, "Chart"),
		Labels: labels,
		Series: []Series{{
			Name:   orDefault(label, "Value"),
			Values: values,
			Color:  Primary,
			Fill:   true,
		}},
		Format:      format,
		BeginAtZero: true,
		Legend:      LegendTop,
	}
}

// Bar builds a comparison chart with one palette colour per bar.
func Bar(labels []string, values []float64, title, label string, format models.ValueFormat) Spec {
	colors := make([]color.RGBA, len(values))
	for i := range values {
		colors[i] = ColorAt(i)
	}
	return Spec{
		Type:   models.ChartBar,
		Title:  orDefault(title, "Comparison"),
		Labels: labels,
		Series: []Series{{
			Name:   orDefault(label, "Value"),
			Values: values,
			Color:  Primary,
		}},
		SliceColors: colors,
		Format:      format,
		BeginAtZero: true,
		Legend:      LegendNone,
	}
}

// Pie builds a pie or doughnut chart; any other type becomes a doughnut.
func Pie(chartType models.ChartType, labels []string, values []float64, title string) Spec {
	if chartType != models.ChartPie {
		chartType = models.ChartDoughnut
	}
	colors := make([]color.RGBA, len(values))
	for i := range values {
		colors[i] = ColorAt(i)
	}
	return Spec{
		Type:        chartType,
		Title:       orDefault(title, "Distribution"),
		Labels:      labels,
		Series:      []Series{{Values: values}},
		SliceColors: colors,
		Format:      models.FormatNumber,
		Legend:      LegendRight,
	}
}

// MultiLine overlays scenario series on shared labels. Series after the
// first are dashed.
func MultiLine(labels []string, series []NamedSeries) Spec {
	out := make([]Series, len(series))
	for i, s := range series {
		out[i] = Series{
			Name:   s.Name,
			Values: s.Values,
			Color:  scenarioCycle[i%len(scenarioCycle)],
			Dashed: i > 0,
		}
	}
	return Spec{
		Type:        models.ChartLine,
		Title:       "Scenario Comparison",
		Labels:      labels,
		Series:      out,
		Format:      models.FormatCurrency,
		BeginAtZero: false,
		Legend:      LegendTop,
	}
}

// FromChart converts a report visualization into a renderable Spec.
func FromChart(c models.ChartSpec) (Spec, error) {
	if len(c.Data.Values) == 0 {
		return Spec{}, ErrNoData
	}
	format := c.Data.Format
	if format == "" {
		format = models.FormatNumber
	}

	labels := c.Data.Labels
	if len(labels) < len(c.Data.Values) {
		labels = append(append([]string(nil), labels...), make([]string, len(c.Data.Values)-len(labels))...)
	}

	switch c.Type {
	case models.ChartLine:
		return Line(labels, c.Data.Values, c.Title, "", format), nil
	case models.ChartBar:
		return Bar(labels, c.Data.Values, c.Title, "", format), nil
	case models.ChartPie, models.ChartDoughnut:
		s := Pie(c.Type, labels, c.Data.Values, c.Title)
		s.Format = format
		return s, nil
	default:
		return Spec{}, fmt.Errorf("%w: %q", ErrUnsupportedType, c.Type)
	}
}

// ValueRange returns the extent of all series, widened to include zero when
// BeginAtZero is set. A flat range is widened by one unit.
func (s Spec) ValueRange() (lo, hi float64) {
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, series := range s.Series {
		for _, v := range series.Values {
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 1
	}
	if s.BeginAtZero {
		lo = math.Min(lo, 0)
		hi = math.Max(hi, 0)
	}
	if hi == lo {
		hi = lo + 1
	}
	return lo, hi
}

// FormatValue renders an axis tick or data label: "$1,234", "12%" or "1,234".
func FormatValue(v float64, format models.ValueFormat) string {
	switch format {
	case models.FormatCurrency:
		if v < 0 {
			return "-$" + groupThousands(-v)
		}
		return "$" + groupThousands(v)
	case models.FormatPercent:
		return groupThousands(v) + "%"
	default:
		return groupThousands(v)
	}
}

// groupThousands formats with comma grouping and at most two decimals.
func groupThousands(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}
