package chartspec

import (
	"fmt"
	"image/color"
)

// Brand palette shared by charts and the PDF renderer.
var (
	Primary         = MustHex("#2C5F6F")
	Secondary       = MustHex("#1E40AF")
	Success         = MustHex("#6B9080")
	Warning         = MustHex("#F59E0B")
	Error           = MustHex("#EF4444")
	TextPrimary     = MustHex("#2D3748")
	TextSecondary   = MustHex("#6B7280")
	Border          = MustHex("#E5E7EB")
	BackgroundLight = MustHex("#F8F9FA")
	White           = color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}
)

// seriesCycle is the order bar and pie slices take their colours in.
var seriesCycle = []color.RGBA{Primary, Secondary, Success, Warning, Error}

// scenarioCycle is the order multi-line scenario series are coloured in.
var scenarioCycle = []color.RGBA{Success, Primary, Warning, Error, Secondary}

// ColorAt returns the i-th palette colour, cycling.
func ColorAt(i int) color.RGBA {
	return seriesCycle[i%len(seriesCycle)]
}

// ParseHex parses "#RRGGBB".
func ParseHex(s string) (color.RGBA, error) {
	var c color.RGBA
	if len(s) != 7 || s[0] != '#' {
		return c, fmt.Errorf("invalid colour %q", s)
	}
	if _, err := fmt.Sscanf(s[1:], "%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		return c, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	c.A = 0xFF
	return c, nil
}

func MustHex(s string) color.RGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Tint mixes c with white; alpha 0 is white and 1 is c.
func Tint(c color.RGBA, alpha float64) color.RGBA {
	mix := func(v uint8) uint8 {
		return uint8(float64(v)*alpha + 255*(1-alpha) + 0.5)
	}
	return color.RGBA{R: mix(c.R), G: mix(c.G), B: mix(c.B), A: 0xFF}
}
