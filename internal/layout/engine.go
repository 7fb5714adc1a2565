package layout

import (
	"context"
	"fmt"
	"image/color"
	"strings"
	"time"

	"zencalcs-assistant/internal/chartspec"
	"zencalcs-assistant/internal/common/logger"
	"zencalcs-assistant/internal/models"
)

const (
	headingReserve     = 15
	textLineReserve    = 6
	textLineAdvance    = 5
	keyResultBoxHeight = 25
	primaryBoxHeight   = 20
	chartImageHeight   = 70
	chartWidthRatio    = 0.9
	insightBoxHeight   = 12
	recommendReserve   = 8
	sectionReserve     = 30
	methodologyReserve = 40
	footerOffset       = 10

	// a chart block is its heading plus the image; it never splits
	chartReserve = 12 + chartImageHeight + 3

	chartPlaceholder = "Chart visualization could not be generated."
	dateLayout       = "January 2, 2006"
)

// Config is the fixed presentation of a report.
type Config struct {
	Geometry    Geometry
	Brand       string
	Attribution string
	ChartWidth  int // px
	ChartHeight int // px
}

func DefaultConfig() Config {
	return Config{
		Geometry:    A4(),
		Brand:       "ZenCalcs",
		Attribution: "Generated by ZenCalcs AI Assistant",
		ChartWidth:  800,
		ChartHeight: 400,
	}
}

// Engine lays reports out. It is safe for concurrent use; each Layout call
// owns its own cursor and canvas.
type Engine struct {
	config   Config
	measurer TextMeasurer
	tables   TableRenderer
	charts   ChartRenderer
	logger   logger.Logger
	now      func() time.Time
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func NewEngine(cfg Config, measurer TextMeasurer, tables TableRenderer, charts ChartRenderer, opts ...Option) *Engine {
	e := &Engine{
		config:   cfg,
		measurer: measurer,
		tables:   tables,
		charts:   charts,
		logger:   logger.NewNoOpLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Layout places data on pages in the fixed section order. A chart that fails
// to render is replaced by placeholder text; any other failure aborts.
func (e *Engine) Layout(ctx context.Context, data models.ReportData) (*Document, error) {
	if e.measurer == nil {
		return nil, fmt.Errorf("%w: text measurer", ErrCapabilityMissing)
	}
	if e.tables == nil {
		return nil, fmt.Errorf("%w: table renderer", ErrCapabilityMissing)
	}
	if e.charts == nil && len(data.Visualizations) > 0 {
		return nil, fmt.Errorf("%w: chart renderer", ErrCapabilityMissing)
	}

	now := e.now()
	r := &run{
		engine: e,
		ctx:    ctx,
		g:      e.config.Geometry,
		canvas: NewCanvas(e.config.Geometry),
		data:   data,
		date:   now.Format(dateLayout),
		doc: &Document{
			Geometry:    e.config.Geometry,
			Title:       titleOf(data),
			GeneratedAt: now,
		},
	}

	steps := []func() error{
		r.header,
		r.executiveSummary,
		r.inputs,
		r.methodology,
		r.results,
		r.visualizations,
		r.scenarios,
		r.insights,
		r.recommendations,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	r.footer()

	r.doc.Pages = r.canvas.Pages()
	return r.doc, nil
}

func titleOf(data models.ReportData) string {
	if strings.TrimSpace(data.ReportTitle) == "" {
		return "Calculation Report"
	}
	return data.ReportTitle
}

// run is the state of one Layout call.
type run struct {
	engine *Engine
	ctx    context.Context
	g      Geometry
	canvas *Canvas
	cursor Cursor
	data   models.ReportData
	doc    *Document
	date   string
}

// reserve starts a new page when h no longer fits below the cursor.
func (r *run) reserve(h float64) {
	if r.cursor.Y+h > r.g.Limit() {
		r.cursor.Page = r.canvas.AddPage()
		r.cursor.Y = r.g.Margin
	}
	r.doc.Reservations = append(r.doc.Reservations, Reservation{Page: r.cursor.Page, Top: r.cursor.Y, Height: h})
}

func (r *run) text(x float64, s string, font Font, c color.RGBA) {
	r.canvas.Draw(Text{X: x, Y: r.cursor.Y, Text: s, Font: font, Color: c, Align: AlignLeft})
}

func (r *run) heading(s string, level int) {
	r.reserve(headingReserve)
	if level == 1 {
		r.text(r.g.Margin, s, Font{Size: 16, Style: Bold}, chartspec.Primary)
		r.cursor.Y += 8
		r.canvas.Draw(Line{
			X1: r.g.Margin, Y1: r.cursor.Y - 2,
			X2: r.g.Width - r.g.Margin, Y2: r.cursor.Y - 2,
			Color: chartspec.Border, Width: 0.5,
		})
		r.cursor.Y += 4
		return
	}
	r.text(r.g.Margin, s, Font{Size: 12, Style: Bold}, chartspec.Secondary)
	r.cursor.Y += 6
}

// paragraph wraps s and reserves each line on its own, so long text may
// continue on the next page.
func (r *run) paragraph(s string, indent float64, font Font, c color.RGBA) {
	for _, line := range r.engine.measurer.SplitText(s, font, r.g.ContentWidth()-indent) {
		r.reserve(textLineReserve)
		r.text(r.g.Margin+indent, line, font, c)
		r.cursor.Y += textLineAdvance
	}
}

func (r *run) table(t Table) error {
	endY, err := r.engine.tables.RenderTable(r.canvas, t, r.cursor.Y)
	if err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	r.cursor = Cursor{Y: endY + 10, Page: r.canvas.PageIndex()}
	return nil
}

func (r *run) header() error {
	g := r.g
	r.canvas.Draw(Rect{X: 0, Y: 0, W: g.Width, H: g.HeaderHeight, Style: Fill, Fill: chartspec.Primary})
	r.canvas.Draw(Text{X: g.Margin, Y: 15, Text: r.engine.config.Brand, Font: Font{Size: 24, Style: Bold}, Color: chartspec.White, Align: AlignLeft})
	r.canvas.Draw(Text{X: g.Margin, Y: 28, Text: r.doc.Title, Font: Font{Size: 18, Style: Bold}, Color: chartspec.White, Align: AlignLeft})
	r.canvas.Draw(Text{X: g.Width - g.Margin, Y: 15, Text: "Generated: " + r.date, Font: Font{Size: 10}, Color: chartspec.White, Align: AlignRight})
	r.cursor = Cursor{Y: g.HeaderHeight + 10}
	return nil
}

func (r *run) executiveSummary() error {
	s := r.data.ExecutiveSummary
	if s.KeyResult == "" && len(s.QuickFacts) == 0 && s.BottomLine == "" {
		return nil
	}
	r.heading("Executive Summary", 1)

	r.reserve(keyResultBoxHeight)
	r.canvas.Draw(Rect{X: r.g.Margin, Y: r.cursor.Y, W: r.g.ContentWidth(), H: keyResultBoxHeight, Style: Fill, Fill: chartspec.BackgroundLight, Radius: 3})
	r.canvas.Draw(Text{X: r.g.Margin + 5, Y: r.cursor.Y + 7, Text: "Key Result:", Font: Font{Size: 11}, Color: chartspec.TextSecondary, Align: AlignLeft})
	key := s.KeyResult
	if key == "" {
		key = "See details below"
	}
	r.canvas.Draw(Text{X: r.g.Margin + 5, Y: r.cursor.Y + 15, Text: key, Font: Font{Size: 16, Style: Bold}, Color: chartspec.Primary, Align: AlignLeft})
	r.cursor.Y += keyResultBoxHeight + 5

	if len(s.QuickFacts) > 0 {
		r.reserve(textLineReserve)
		r.text(r.g.Margin, "Quick Facts:", Font{Size: 11, Style: Bold}, chartspec.TextSecondary)
		r.cursor.Y += 6
		for _, fact := range s.QuickFacts {
			r.paragraph("• "+fact, 5, Font{Size: 10}, chartspec.TextPrimary)
		}
		r.cursor.Y += 3
	}

	if s.BottomLine != "" {
		r.paragraph(s.BottomLine, 0, Font{Size: 10, Style: Italic}, chartspec.TextPrimary)
	}
	r.cursor.Y += 8
	return nil
}

func (r *run) inputs() error {
	if len(r.data.Inputs) == 0 {
		return nil
	}
	r.reserve(sectionReserve)
	r.heading("Input Parameters", 1)

	rows := make([][]string, len(r.data.Inputs))
	for i, in := range r.data.Inputs {
		value := in.Value
		if in.Unit != "" {
			value += " " + in.Unit
		}
		rows[i] = []string{in.Parameter, value, in.Description}
	}
	return r.table(Table{
		Head:     []string{"Parameter", "Value", "Description"},
		Rows:     rows,
		Theme:    ThemeStriped,
		HeadFill: chartspec.Primary,
		Weights:  []float64{3, 2.5, 4.5},
	})
}

func (r *run) methodology() error {
	m := r.data.Methodology
	if m.Formula == "" && len(m.Assumptions) == 0 && len(m.Limitations) == 0 {
		return nil
	}
	r.reserve(methodologyReserve)
	r.heading("Calculation Methodology", 1)

	if m.Formula != "" {
		r.heading("Formula Used:", 2)
		r.paragraph(m.Formula, 0, Font{Size: 10}, chartspec.TextPrimary)
		r.cursor.Y += 3
	}
	if len(m.Assumptions) > 0 {
		r.heading("Key Assumptions:", 2)
		for _, a := range m.Assumptions {
			r.paragraph("• "+a, 3, Font{Size: 10}, chartspec.TextPrimary)
		}
		r.cursor.Y += 3
	}
	if len(m.Limitations) > 0 {
		r.heading("Limitations:", 2)
		for _, l := range m.Limitations {
			r.paragraph("• "+l, 3, Font{Size: 10}, chartspec.TextSecondary)
		}
		r.cursor.Y += 5
	}
	return nil
}

func (r *run) results() error {
	res := r.data.Results
	r.reserve(sectionReserve)
	r.heading("Results", 1)

	value := res.Primary.Value
	if strings.TrimSpace(value) == "" {
		value = models.FallbackResult
	}
	label := res.Primary.Description
	if label == "" {
		label = "Primary Result:"
	}

	r.reserve(primaryBoxHeight)
	r.canvas.Draw(Rect{X: r.g.Margin, Y: r.cursor.Y, W: r.g.ContentWidth(), H: primaryBoxHeight, Style: Fill, Fill: lighten(chartspec.Success, 40), Radius: 3})
	r.canvas.Draw(Text{X: r.g.Margin + 5, Y: r.cursor.Y + 7, Text: label, Font: Font{Size: 11}, Color: chartspec.TextSecondary, Align: AlignLeft})
	r.canvas.Draw(Text{X: r.g.Margin + 5, Y: r.cursor.Y + 15, Text: value, Font: Font{Size: 14, Style: Bold}, Color: chartspec.Success, Align: AlignLeft})
	r.cursor.Y += primaryBoxHeight + 5

	if len(res.Breakdown) == 0 {
		return nil
	}
	rows := make([][]string, len(res.Breakdown))
	for i, b := range res.Breakdown {
		rows[i] = []string{b.Label, b.Value, b.Percentage}
	}
	return r.table(Table{
		Head:     []string{"Component", "Value", "Percentage"},
		Rows:     rows,
		Theme:    ThemeGrid,
		HeadFill: chartspec.Secondary,
	})
}

// visualizations renders charts one at a time in order. Each chart gets a
// fresh surface inside the renderer and is fully encoded before the next.
func (r *run) visualizations() error {
	for _, viz := range r.data.Visualizations {
		r.reserve(chartReserve)
		title := viz.Title
		if title == "" {
			title = "Visualization"
		}
		r.heading(title, 1)

		png, err := r.renderChart(viz)
		if err != nil {
			r.doc.ChartFailures++
			r.doc.FailedCharts = append(r.doc.FailedCharts, string(viz.Type))
			r.engine.logger.Warn("chart replaced by placeholder", map[string]interface{}{
				"chartType": viz.Type,
				"title":     title,
				"error":     err.Error(),
			})
			r.paragraph(chartPlaceholder, 0, Font{Size: 10}, chartspec.TextPrimary)
			r.cursor.Y += 5
			continue
		}

		w := r.g.ContentWidth() * chartWidthRatio
		r.reserve(chartImageHeight)
		r.canvas.Draw(Image{
			X:    r.g.Margin + (r.g.ContentWidth()-w)/2,
			Y:    r.cursor.Y,
			W:    w,
			H:    chartImageHeight,
			Name: fmt.Sprintf("chart-%d-%d", r.cursor.Page, len(r.doc.Reservations)),
			PNG:  png,
		})
		r.cursor.Y += chartImageHeight + 10
	}
	return nil
}

func (r *run) renderChart(viz models.ChartSpec) ([]byte, error) {
	spec, err := chartspec.FromChart(viz)
	if err != nil {
		return nil, err
	}
	return r.engine.charts.Render(r.ctx, spec, r.engine.config.ChartWidth, r.engine.config.ChartHeight)
}

func (r *run) scenarios() error {
	if len(r.data.Scenarios) < 2 {
		return nil
	}
	r.reserve(methodologyReserve)
	r.heading("Scenario Comparison", 1)

	rows := make([][]string, len(r.data.Scenarios))
	for i, s := range r.data.Scenarios {
		desc := ""
		if s.UserQuestion != "" {
			desc = truncate(s.UserQuestion, 50) + "..."
		}
		rows[i] = []string{s.Name, s.Result, desc}
	}
	return r.table(Table{
		Head:     []string{"Scenario", "Result", "Description"},
		Rows:     rows,
		Theme:    ThemeStriped,
		HeadFill: chartspec.Primary,
		Weights:  []float64{2, 2, 6},
	})
}

func (r *run) insights() error {
	if len(r.data.Insights) == 0 {
		return nil
	}
	r.reserve(sectionReserve)
	r.heading("Key Insights", 1)

	font := Font{Size: 10}
	for i, insight := range r.data.Insights {
		lines := r.engine.measurer.SplitText(insight, font, r.g.ContentWidth()-15)
		if len(lines) == 0 {
			lines = []string{""}
		}
		// long insights continue in further boxes; only the first is numbered
		for first := true; len(lines) > 0; first = false {
			n := boxLines(r.g.Limit() - r.cursor.Y)
			if n == 0 {
				n = boxLines(r.g.Limit() - r.g.Margin)
			}
			n = min(n, len(lines))
			h := insightBoxHeight + float64(n-1)*textLineAdvance

			r.reserve(h)
			r.canvas.Draw(Rect{X: r.g.Margin, Y: r.cursor.Y, W: r.g.ContentWidth(), H: h, Style: Fill, Fill: chartspec.BackgroundLight, Radius: 2})
			if first {
				r.canvas.Draw(Text{X: r.g.Margin + 3, Y: r.cursor.Y + 7, Text: fmt.Sprintf("%d.", i+1), Font: Font{Size: 10, Style: Bold}, Color: chartspec.Primary, Align: AlignLeft})
			}
			for j, line := range lines[:n] {
				r.canvas.Draw(Text{X: r.g.Margin + 8, Y: r.cursor.Y + 7 + float64(j)*textLineAdvance, Text: line, Font: font, Color: chartspec.TextPrimary, Align: AlignLeft})
			}
			lines = lines[n:]
			r.cursor.Y += h + 2
		}
	}
	r.cursor.Y += 5
	return nil
}

// boxLines is how many text lines an insight box fits into space mm; zero
// when not even a one-line box fits.
func boxLines(space float64) int {
	if space < insightBoxHeight {
		return 0
	}
	return int((space-insightBoxHeight)/textLineAdvance) + 1
}

func (r *run) recommendations() error {
	if len(r.data.Recommendations) == 0 {
		return nil
	}
	r.reserve(sectionReserve)
	r.heading("Recommendations", 1)

	font := Font{Size: 10}
	for _, rec := range r.data.Recommendations {
		lines := r.engine.measurer.SplitText(rec, font, r.g.ContentWidth()-10)
		if len(lines) == 0 {
			lines = []string{""}
		}
		for j, line := range lines {
			if j == 0 {
				r.reserve(recommendReserve)
				r.canvas.Draw(Mark{X: r.g.Margin, Y: r.cursor.Y, Kind: MarkCheck, Size: 10, Color: chartspec.Success})
			} else {
				r.reserve(textLineReserve)
			}
			r.text(r.g.Margin+5, line, font, chartspec.TextPrimary)
			r.cursor.Y += textLineAdvance
		}
		r.cursor.Y++
	}
	r.cursor.Y += 5
	return nil
}

// footer stamps every page once all content is placed.
func (r *run) footer() {
	total := r.canvas.PageCount()
	y := r.g.Height - footerOffset
	font := Font{Size: 8}
	for i := 0; i < total; i++ {
		r.canvas.DrawOn(i, Text{X: r.g.Width / 2, Y: y, Text: fmt.Sprintf("Page %d of %d", i+1, total), Font: font, Color: chartspec.TextSecondary, Align: AlignCenter, Tag: "footer.page"})
		r.canvas.DrawOn(i, Text{X: r.g.Margin, Y: y, Text: r.engine.config.Attribution, Font: font, Color: chartspec.TextSecondary, Align: AlignLeft, Tag: "footer.attribution"})
		r.canvas.DrawOn(i, Text{X: r.g.Width - r.g.Margin, Y: y, Text: r.date, Font: font, Color: chartspec.TextSecondary, Align: AlignRight, Tag: "footer.date"})
	}
}

func lighten(c color.RGBA, by uint8) color.RGBA {
	add := func(v uint8) uint8 {
		if int(v)+int(by) > 255 {
			return 255
		}
		return v + by
	}
	return color.RGBA{R: add(c.R), G: add(c.G), B: add(c.B), A: c.A}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
