// Package chart rasterizes chart specifications to PNG.
package chart

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/color"
	"image/png"
	"math"

	"zencalcs-assistant/internal/chartspec"
	"zencalcs-assistant/internal/models"
)

const (
	DefaultWidth  = 800
	DefaultHeight = 400

	titleScale   = 2
	titleTop     = 10
	titleSpacing = 20
	legendHeight = 22
	tickCount    = 5
)

var ErrInvalidSize = errors.New("chart size must be positive")

// Renderer draws charts onto a fresh surface per call and returns the PNG
// once encoding has finished.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

func (r *Renderer) Render(ctx context.Context, spec chartspec.Spec, width, height int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if !hasValues(spec) {
		return nil, chartspec.ErrNoData
	}

	s := newSurface(width, height)
	top := s.drawTitle(spec.Title)

	var err error
	switch spec.Type {
	case models.ChartLine:
		err = s.drawLine(spec, top)
	case models.ChartBar:
		err = s.drawBar(spec, top)
	case models.ChartPie, models.ChartDoughnut:
		err = s.drawPie(spec, top)
	default:
		err = fmt.Errorf("%w: %q", chartspec.ErrUnsupportedType, spec.Type)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, s.img); err != nil {
		return nil, fmt.Errorf("encode chart: %w", err)
	}
	return buf.Bytes(), nil
}

func hasValues(spec chartspec.Spec) bool {
	for _, series := range spec.Series {
		if len(series.Values) > 0 {
			return true
		}
	}
	return false
}

// drawTitle returns the y where the chart body starts.
func (s *surface) drawTitle(title string) float32 {
	if title == "" {
		return titleTop
	}
	s.textCentered(s.width()/2, titleTop, title, chartspec.Primary, titleScale)
	return titleTop + lineHeight()*titleScale + titleSpacing
}

// plotArea is the rectangle inside the axes.
type plotArea struct {
	left, top, right, bottom float32
	lo, hi                   float64
}

func (p plotArea) y(v float64) float32 {
	return p.bottom - float32((v-p.lo)/(p.hi-p.lo))*(p.bottom-p.top)
}

func (s *surface) axes(spec chartspec.Spec, top float32) plotArea {
	lo, hi := spec.ValueRange()

	labelWidth := float32(0)
	for i := 0; i <= tickCount; i++ {
		v := lo + (hi-lo)*float64(i)/tickCount
		if w := textWidth(chartspec.FormatValue(v, spec.Format)); w > labelWidth {
			labelWidth = w
		}
	}

	p := plotArea{
		left:   labelWidth + 20,
		top:    top + 5,
		right:  s.width() - 20,
		bottom: s.height() - lineHeight() - 15,
		lo:     lo,
		hi:     hi,
	}

	for i := 0; i <= tickCount; i++ {
		v := lo + (hi-lo)*float64(i)/tickCount
		y := p.y(v)
		s.segment(point{p.left, y}, point{p.right, y}, 1, chartspec.Border)
		s.textRight(p.left-8, y-lineHeight()/2, chartspec.FormatValue(v, spec.Format), chartspec.TextSecondary)
	}
	return p
}

// xLabels draws category labels under the plot, skipping some when they
// would overlap.
func (s *surface) xLabels(p plotArea, labels []string, xs []float32) {
	if len(xs) == 0 {
		return
	}
	widest := float32(0)
	for _, l := range labels {
		if w := textWidth(l); w > widest {
			widest = w
		}
	}
	step := 1
	if len(xs) > 1 {
		slot := (p.right - p.left) / float32(len(xs))
		if widest+6 > slot {
			step = int(math.Ceil(float64((widest + 6) / slot)))
		}
	}
	for i := 0; i < len(xs) && i < len(labels); i += step {
		s.textCentered(xs[i], p.bottom+6, labels[i], chartspec.TextSecondary, 1)
	}
}

func (s *surface) legend(series []chartspec.Series, top float32) float32 {
	total := float32(0)
	for _, sr := range series {
		total += 14 + 6 + textWidth(sr.Name) + 16
	}
	x := (s.width() - total) / 2
	for _, sr := range series {
		s.fillRect(x, top+2, x+14, top+12, sr.Color)
		s.text(x+20, top, sr.Name, chartspec.TextPrimary, 1)
		x += 14 + 6 + textWidth(sr.Name) + 16
	}
	return top + legendHeight
}

func (s *surface) drawLine(spec chartspec.Spec, top float32) error {
	if spec.Legend == chartspec.LegendTop {
		top = s.legend(spec.Series, top)
	}
	p := s.axes(spec, top)

	n := 0
	for _, sr := range spec.Series {
		if len(sr.Values) > n {
			n = len(sr.Values)
		}
	}
	xs := make([]float32, n)
	for i := range xs {
		if n == 1 {
			xs[i] = (p.left + p.right) / 2
			continue
		}
		xs[i] = p.left + float32(i)*(p.right-p.left)/float32(n-1)
	}

	for _, sr := range spec.Series {
		pts := make([]point, len(sr.Values))
		for i, v := range sr.Values {
			pts[i] = point{xs[i], p.y(v)}
		}
		if sr.Fill && len(pts) > 1 {
			base := p.y(math.Max(p.lo, math.Min(0, p.hi)))
			area := append(append([]point(nil), pts...), point{pts[len(pts)-1].x, base}, point{pts[0].x, base})
			s.fillPolygon(area, withAlpha(sr.Color, 0x20))
		}
		dash := float32(0)
		if sr.Dashed {
			dash = 5
		}
		s.polyline(pts, 3, sr.Color, dash)
		for _, pt := range pts {
			s.fillCircle(pt.x, pt.y, 6, color.White)
			s.fillCircle(pt.x, pt.y, 4, sr.Color)
		}
	}

	s.xLabels(p, spec.Labels, xs)
	return nil
}

func (s *surface) drawBar(spec chartspec.Spec, top float32) error {
	p := s.axes(spec, top)
	values := spec.Series[0].Values

	band := (p.right - p.left) / float32(len(values))
	barWidth := float32(math.Min(40, float64(band)*0.8))
	base := p.y(math.Max(p.lo, math.Min(0, p.hi)))

	xs := make([]float32, len(values))
	for i, v := range values {
		cx := p.left + band*(float32(i)+0.5)
		xs[i] = cx
		c := spec.Series[0].Color
		if i < len(spec.SliceColors) {
			c = spec.SliceColors[i]
		}
		y := p.y(v)
		y0, y1 := y, base
		if y0 > y1 {
			y0, y1 = y1, y0
		}
		s.fillRect(cx-barWidth/2, y0, cx+barWidth/2, y1, c)
	}

	s.xLabels(p, spec.Labels, xs)
	return nil
}

func (s *surface) drawPie(spec chartspec.Spec, top float32) error {
	values := spec.Series[0].Values
	total := 0.0
	for _, v := range values {
		if v > 0 {
			total += v
		}
	}
	if total <= 0 {
		return fmt.Errorf("%w: pie needs a positive total", chartspec.ErrNoData)
	}

	legendWidth := float32(0)
	if spec.Legend == chartspec.LegendRight {
		for _, l := range spec.Labels {
			if w := textWidth(l) + 30; w > legendWidth {
				legendWidth = w
			}
		}
	}

	area := s.width() - legendWidth - 40
	radius := float32(math.Min(float64(area), float64(s.height()-top-20))) / 2
	cx := (s.width() - legendWidth) / 2
	cy := top + (s.height()-top)/2 - 5

	angle := -math.Pi / 2
	for i, v := range values {
		if v <= 0 {
			continue
		}
		sweep := 2 * math.Pi * v / total
		s.fillPolygon(wedge(cx, cy, radius, angle, angle+sweep), sliceColor(spec, i))
		angle += sweep
	}

	// slice separators
	angle = -math.Pi / 2
	for _, v := range values {
		if v <= 0 {
			continue
		}
		edge := point{cx + radius*float32(math.Cos(angle)), cy + radius*float32(math.Sin(angle))}
		s.segment(point{cx, cy}, edge, 3, color.White)
		angle += 2 * math.Pi * v / total
	}

	if spec.Type == models.ChartDoughnut {
		s.fillCircle(cx, cy, radius*0.5, color.White)
	}

	if legendWidth > 0 {
		x := s.width() - legendWidth - 10
		y := cy - float32(len(spec.Labels))*lineHeight()
		for i, l := range spec.Labels {
			s.fillCircle(x+6, y+lineHeight()/2, 5, sliceColor(spec, i))
			s.text(x+18, y, l, chartspec.TextPrimary, 1)
			y += lineHeight() * 2
		}
	}
	return nil
}

func sliceColor(spec chartspec.Spec, i int) color.RGBA {
	if i < len(spec.SliceColors) {
		return spec.SliceColors[i]
	}
	return chartspec.ColorAt(i)
}

func wedge(cx, cy, r float32, from, to float64) []point {
	steps := int(math.Ceil((to - from) / (math.Pi / 48)))
	if steps < 2 {
		steps = 2
	}
	pts := []point{{cx, cy}}
	for i := 0; i <= steps; i++ {
		a := from + (to-from)*float64(i)/float64(steps)
		pts = append(pts, point{cx + r*float32(math.Cos(a)), cy + r*float32(math.Sin(a))})
	}
	return pts
}

// withAlpha returns c as non-premultiplied with the given alpha.
func withAlpha(c color.RGBA, a uint8) color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: a}
}
