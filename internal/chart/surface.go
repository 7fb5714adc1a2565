package chart

import (
	"image"
	"image/color"
	stddraw "image/draw"
	"math"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

type point struct {
	x, y float32
}

// surface is a single-use drawing target. One surface backs exactly one
// Render call.
type surface struct {
	img *image.RGBA
	z   *vector.Rasterizer
}

func newSurface(width, height int) *surface {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	stddraw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, stddraw.Src)
	z := vector.NewRasterizer(width, height)
	z.DrawOp = stddraw.Over
	return &surface{img: img, z: z}
}

func (s *surface) width() float32  { return float32(s.img.Bounds().Dx()) }
func (s *surface) height() float32 { return float32(s.img.Bounds().Dy()) }

func (s *surface) fillPolygon(pts []point, c color.Color) {
	if len(pts) < 3 {
		return
	}
	b := s.img.Bounds()
	s.z.Reset(b.Dx(), b.Dy())
	s.z.DrawOp = stddraw.Over
	s.z.MoveTo(pts[0].x, pts[0].y)
	for _, p := range pts[1:] {
		s.z.LineTo(p.x, p.y)
	}
	s.z.ClosePath()
	s.z.Draw(s.img, b, image.NewUniform(c), image.Point{})
}

func (s *surface) fillRect(x0, y0, x1, y1 float32, c color.Color) {
	s.fillPolygon([]point{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}}, c)
}

func circlePoints(cx, cy, r float32) []point {
	const segments = 32
	pts := make([]point, segments)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / segments
		pts[i] = point{cx + r*float32(math.Cos(a)), cy + r*float32(math.Sin(a))}
	}
	return pts
}

func (s *surface) fillCircle(cx, cy, r float32, c color.Color) {
	s.fillPolygon(circlePoints(cx, cy, r), c)
}

// segment strokes a straight line of the given width with round joins.
func (s *surface) segment(a, b point, width float32, c color.Color) {
	dx, dy := b.x-a.x, b.y-a.y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	nx, ny := -dy/length*width/2, dx/length*width/2
	s.fillPolygon([]point{
		{a.x + nx, a.y + ny},
		{b.x + nx, b.y + ny},
		{b.x - nx, b.y - ny},
		{a.x - nx, a.y - ny},
	}, c)
	if width > 1.5 {
		s.fillCircle(a.x, a.y, width/2, c)
		s.fillCircle(b.x, b.y, width/2, c)
	}
}

// polyline strokes pts, optionally dashed with equal dash and gap lengths.
func (s *surface) polyline(pts []point, width float32, c color.Color, dash float32) {
	for i := 1; i < len(pts); i++ {
		if dash <= 0 {
			s.segment(pts[i-1], pts[i], width, c)
			continue
		}
		s.dashed(pts[i-1], pts[i], width, c, dash)
	}
}

func (s *surface) dashed(a, b point, width float32, c color.Color, dash float32) {
	dx, dy := b.x-a.x, b.y-a.y
	length := float32(math.Hypot(float64(dx), float64(dy)))
	for pos := float32(0); pos < length; pos += 2 * dash {
		end := pos + dash
		if end > length {
			end = length
		}
		s.segment(
			point{a.x + dx*pos/length, a.y + dy*pos/length},
			point{a.x + dx*end/length, a.y + dy*end/length},
			width, c,
		)
	}
}

var face = basicfont.Face7x13

func textWidth(text string) float32 {
	return float32(font.MeasureString(face, text).Ceil())
}

// text draws s with its top-left corner at x, y, enlarged by scale.
func (s *surface) text(x, y float32, str string, c color.Color, scale float32) {
	if str == "" {
		return
	}
	metrics := face.Metrics()
	w := font.MeasureString(face, str).Ceil()
	h := (metrics.Ascent + metrics.Descent).Ceil()

	if scale <= 1 {
		d := font.Drawer{
			Dst:  s.img,
			Src:  image.NewUniform(c),
			Face: face,
			Dot:  fixed.P(int(x), int(y)+metrics.Ascent.Ceil()),
		}
		d.DrawString(str)
		return
	}

	glyphs := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{Dst: glyphs, Src: image.NewUniform(c), Face: face, Dot: fixed.P(0, metrics.Ascent.Ceil())}
	d.DrawString(str)

	dst := image.Rect(int(x), int(y), int(x+float32(w)*scale), int(y+float32(h)*scale))
	draw.BiLinear.Scale(s.img, dst, glyphs, glyphs.Bounds(), draw.Over, nil)
}

func (s *surface) textCentered(cx, y float32, str string, c color.Color, scale float32) {
	s.text(cx-textWidth(str)*scale/2, y, str, c, scale)
}

func (s *surface) textRight(rx, y float32, str string, c color.Color) {
	s.text(rx-textWidth(str), y, str, c, 1)
}

func lineHeight() float32 {
	m := face.Metrics()
	return float32((m.Ascent + m.Descent).Ceil())
}
