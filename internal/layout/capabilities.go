package layout

import (
	"context"
	"errors"
	"image/color"
	"strings"
	"unicode/utf8"

	"zencalcs-assistant/internal/chartspec"
)

// ErrCapabilityMissing aborts a layout when a required collaborator is absent.
var ErrCapabilityMissing = errors.New("required rendering capability missing")

// TextMeasurer wraps text to a width for a given font.
type TextMeasurer interface {
	SplitText(text string, font Font, width float64) []string
	TextWidth(text string, font Font) float64
}

// ChartRenderer rasterizes a chart to PNG. Returning is the completion
// signal; implementations must not hand back a partially drawn image.
type ChartRenderer interface {
	Render(ctx context.Context, spec chartspec.Spec, width, height int) ([]byte, error)
}

type TableTheme string

const (
	ThemeStriped TableTheme = "striped"
	ThemeGrid    TableTheme = "grid"
)

// Table is tabular content handed to a TableRenderer.
type Table struct {
	Head     []string
	Rows     [][]string
	Theme    TableTheme
	HeadFill color.RGBA
	// Weights are relative column widths; equal when empty.
	Weights []float64
}

// TableRenderer draws a table starting at startY on the canvas' current
// page, adding pages as needed, and returns the Y just below the last row.
type TableRenderer interface {
	RenderTable(c *Canvas, t Table, startY float64) (float64, error)
}

// ptToMM converts a font size in points to millimetres.
const ptToMM = 25.4 / 72

// ApproxMeasurer estimates glyph widths as half an em. It suits tests and
// renderers without font metrics.
type ApproxMeasurer struct{}

func (ApproxMeasurer) TextWidth(text string, font Font) float64 {
	return float64(utf8.RuneCountInString(text)) * font.Size * ptToMM * 0.5
}

func (m ApproxMeasurer) SplitText(text string, font Font, width float64) []string {
	return WrapText(text, width, func(s string) float64 { return m.TextWidth(s, font) })
}

// WrapText greedily breaks text on spaces so each line fits width. Words
// wider than a line are split by rune. Empty text yields one empty line.
func WrapText(text string, width float64, measure func(string) float64) []string {
	var lines []string
	for _, paragraph := range strings.Split(text, "\n") {
		words := strings.Fields(paragraph)
		if len(words) == 0 {
			lines = append(lines, "")
			continue
		}
		current := ""
		for _, word := range words {
			candidate := word
			if current != "" {
				candidate = current + " " + word
			}
			if measure(candidate) <= width {
				current = candidate
				continue
			}
			if current != "" {
				lines = append(lines, current)
			}
			current = word
			for measure(current) > width && utf8.RuneCountInString(current) > 1 {
				head, rest := splitToWidth(current, width, measure)
				lines = append(lines, head)
				current = rest
			}
		}
		lines = append(lines, current)
	}
	return lines
}

func splitToWidth(word string, width float64, measure func(string) float64) (string, string) {
	runes := []rune(word)
	n := 1
	for n < len(runes) && measure(string(runes[:n+1])) <= width {
		n++
	}
	return string(runes[:n]), string(runes[n:])
}
