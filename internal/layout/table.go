package layout

import (
	"fmt"
	"image/color"

	"zencalcs-assistant/internal/chartspec"
)

const (
	tableHeadFontSize = 10
	tableBodyFontSize = 9
	tableCellPadding  = 1.8
	tableLineHeight   = 4.2
)

// GridTableRenderer paginates tables row by row and repeats the header row on
// every page it spills onto.
type GridTableRenderer struct {
	Measurer TextMeasurer
}

func NewGridTableRenderer(m TextMeasurer) *GridTableRenderer {
	return &GridTableRenderer{Measurer: m}
}

func (r *GridTableRenderer) RenderTable(c *Canvas, t Table, startY float64) (float64, error) {
	if r.Measurer == nil {
		return startY, fmt.Errorf("%w: table text measurer", ErrCapabilityMissing)
	}
	if len(t.Head) == 0 {
		return startY, fmt.Errorf("table has no columns")
	}

	g := c.Geometry()
	widths := columnWidths(t, g.ContentWidth())
	headFont := Font{Size: tableHeadFontSize, Style: Bold}
	bodyFont := Font{Size: tableBodyFontSize}

	headLines := r.wrapRow(t.Head, widths, headFont)
	headHeight := rowHeight(headLines)

	rows := make([][][]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = r.wrapRow(row, widths, bodyFont)
	}

	y := startY
	drawHead := func() {
		r.drawRow(c, headLines, widths, y, headHeight, headFont, t.HeadFill, chartspec.White, t.Theme)
		y += headHeight
	}
	newPage := func() {
		c.AddPage()
		y = g.Margin
		drawHead()
	}

	// rows taller than this are split across pages
	capacity := g.Limit() - g.Margin - headHeight
	oneLine := tableLineHeight + 2*tableCellPadding

	// the header never sits alone at the bottom of a page
	first := headHeight
	if len(rows) > 0 {
		h := rowHeight(rows[0])
		if h > capacity {
			h = oneLine
		}
		first += h
	}
	if y+first > g.Limit() {
		c.AddPage()
		y = g.Margin
	}
	drawHead()

	for i, lines := range rows {
		fill := chartspec.White
		if t.Theme == ThemeStriped && i%2 == 1 {
			fill = chartspec.BackgroundLight
		}

		h := rowHeight(lines)
		if h <= capacity {
			if y+h > g.Limit() {
				newPage()
			}
			r.drawRow(c, lines, widths, y, h, bodyFont, fill, chartspec.TextPrimary, t.Theme)
			y += h
			continue
		}

		for off, fresh := 0, false; ; {
			n := int((g.Limit() - y - 2*tableCellPadding) / tableLineHeight)
			if n < 1 && !fresh {
				newPage()
				fresh = true
				continue
			}
			n = max(n, 1)
			chunk, more := sliceLines(lines, off, n)
			ch := rowHeight(chunk)
			r.drawRow(c, chunk, widths, y, ch, bodyFont, fill, chartspec.TextPrimary, t.Theme)
			y += ch
			off += n
			if !more {
				break
			}
			newPage()
			fresh = true
		}
	}
	return y, nil
}

// sliceLines takes lines [off, off+n) of every cell and reports whether any
// cell has lines beyond them.
func sliceLines(cells [][]string, off, n int) ([][]string, bool) {
	out := make([][]string, len(cells))
	more := false
	for i, lines := range cells {
		lo, hi := min(off, len(lines)), min(off+n, len(lines))
		out[i] = lines[lo:hi]
		more = more || len(lines) > off+n
	}
	return out, more
}

func (r *GridTableRenderer) wrapRow(cells []string, widths []float64, font Font) [][]string {
	out := make([][]string, len(widths))
	for i := range widths {
		text := ""
		if i < len(cells) {
			text = cells[i]
		}
		out[i] = r.Measurer.SplitText(text, font, widths[i]-2*tableCellPadding)
	}
	return out
}

func (r *GridTableRenderer) drawRow(c *Canvas, cells [][]string, widths []float64, y, h float64, font Font, fill, textColor color.RGBA, theme TableTheme) {
	x := c.Geometry().Margin
	for i, lines := range cells {
		style := Fill
		if theme == ThemeGrid {
			style = FillStroke
		}
		c.Draw(Rect{X: x, Y: y, W: widths[i], H: h, Style: style, Fill: fill, Stroke: chartspec.Border})
		for j, line := range lines {
			if line == "" {
				continue
			}
			c.Draw(Text{
				X:     x + tableCellPadding,
				Y:     y + tableCellPadding + float64(j)*tableLineHeight + tableLineHeight*0.75,
				Text:  line,
				Font:  font,
				Color: textColor,
				Align: AlignLeft,
			})
		}
		x += widths[i]
	}
}

func rowHeight(cells [][]string) float64 {
	maxLines := 1
	for _, lines := range cells {
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	return float64(maxLines)*tableLineHeight + 2*tableCellPadding
}

func columnWidths(t Table, total float64) []float64 {
	n := len(t.Head)
	weights := t.Weights
	if len(weights) != n {
		weights = make([]float64, n)
		for i := range weights {
			weights[i] = 1
		}
	}
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	widths := make([]float64, n)
	for i, w := range weights {
		widths[i] = total * w / sum
	}
	return widths
}
