// Package layout flows ReportData onto fixed-size pages as a stream of draw
// operations. It owns the vertical cursor and page breaks; text measurement,
// tables and chart rasterization are supplied by the caller.
package layout

import (
	"image/color"
	"time"
)

// Geometry is the page size and margins, in millimetres.
type Geometry struct {
	Width        float64
	Height       float64
	Margin       float64
	HeaderHeight float64
	BottomMargin float64
}

// A4 is the default portrait page with 20mm margins.
func A4() Geometry {
	return Geometry{Width: 210, Height: 297, Margin: 20, HeaderHeight: 40, BottomMargin: 20}
}

func (g Geometry) ContentWidth() float64 {
	return g.Width - 2*g.Margin
}

// Limit is the lowest Y a block may reach.
func (g Geometry) Limit() float64 {
	return g.Height - g.BottomMargin
}

// Cursor is the current write position. Page is zero-based.
type Cursor struct {
	Y    float64
	Page int
}

type FontStyle string

const (
	Regular    FontStyle = ""
	Bold       FontStyle = "B"
	Italic     FontStyle = "I"
	BoldItalic FontStyle = "BI"
)

type Font struct {
	Size  float64 // points
	Style FontStyle
}

type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Op is one draw operation. The concrete types are Text, Rect, Line, Image
// and Mark.
type Op interface {
	isOp()
}

// Text draws one line with its baseline at Y. X is the anchor given by Align.
type Text struct {
	X, Y  float64
	Text  string
	Font  Font
	Color color.RGBA
	Align Align
	// Tag names structural text such as "footer.page".
	Tag string
}

type RectStyle string

const (
	Fill       RectStyle = "F"
	Stroke     RectStyle = "D"
	FillStroke RectStyle = "FD"
)

type Rect struct {
	X, Y, W, H float64
	Style      RectStyle
	Fill       color.RGBA
	Stroke     color.RGBA
	Radius     float64
}

type Line struct {
	X1, Y1, X2, Y2 float64
	Color          color.RGBA
	Width          float64
}

// Image places PNG bytes in the box X, Y, W, H.
type Image struct {
	X, Y, W, H float64
	Name       string
	PNG        []byte
}

type MarkKind string

const MarkCheck MarkKind = "check"

// Mark is a glyph outside the text fonts, drawn with its baseline at Y.
type Mark struct {
	X, Y  float64
	Kind  MarkKind
	Size  float64
	Color color.RGBA
}

func (Text) isOp()  {}
func (Rect) isOp()  {}
func (Line) isOp()  {}
func (Image) isOp() {}
func (Mark) isOp()  {}

type Page struct {
	Index int
	Ops   []Op
}

// Reservation records one space check made while laying out a document.
type Reservation struct {
	Page   int
	Top    float64
	Height float64
}

// Document is a laid-out report.
type Document struct {
	Geometry     Geometry
	Title        string
	GeneratedAt  time.Time
	Pages        []Page
	Reservations []Reservation
	// ChartFailures counts charts replaced by a placeholder.
	ChartFailures int
	FailedCharts  []string
}

func (d *Document) PageCount() int {
	return len(d.Pages)
}

// Canvas collects ops page by page. Table renderers draw through it and may
// add pages.
type Canvas struct {
	geometry Geometry
	pages    []Page
}

// NewCanvas returns a canvas holding one empty page.
func NewCanvas(g Geometry) *Canvas {
	return &Canvas{geometry: g, pages: []Page{{Index: 0}}}
}

func (c *Canvas) Geometry() Geometry {
	return c.geometry
}

// AddPage appends a page, makes it current and returns its index.
func (c *Canvas) AddPage() int {
	idx := len(c.pages)
	c.pages = append(c.pages, Page{Index: idx})
	return idx
}

// PageIndex is the zero-based index of the current page.
func (c *Canvas) PageIndex() int {
	return len(c.pages) - 1
}

func (c *Canvas) PageCount() int {
	return len(c.pages)
}

// Draw appends op to the current page.
func (c *Canvas) Draw(op Op) {
	c.DrawOn(c.PageIndex(), op)
}

// DrawOn appends op to an earlier page.
func (c *Canvas) DrawOn(page int, op Op) {
	c.pages[page].Ops = append(c.pages[page].Ops, op)
}

func (c *Canvas) Pages() []Page {
	return c.pages
}
