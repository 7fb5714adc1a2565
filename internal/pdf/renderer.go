// Package pdf writes laid-out documents as PDF using fpdf core fonts.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"

	"github.com/go-pdf/fpdf"

	"zencalcs-assistant/internal/layout"
)

const (
	fontFamily  = "Helvetica"
	symbolFont  = "ZapfDingbats"
	checkGlyph  = "4"
	imageFormat = "PNG"
)

var ErrEmptyDocument = errors.New("document has no pages")

// Renderer turns a layout.Document into PDF bytes.
type Renderer struct {
	creator string
}

func NewRenderer(creator string) *Renderer {
	return &Renderer{creator: creator}
}

func (r *Renderer) Render(doc *layout.Document) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, ErrEmptyDocument
	}

	g := doc.Geometry
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: g.Width, Ht: g.Height},
	})
	pdf.SetMargins(g.Margin, g.Margin, g.Margin)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetTitle(doc.Title, true)
	pdf.SetCreator(r.creator, true)
	if !doc.GeneratedAt.IsZero() {
		pdf.SetCreationDate(doc.GeneratedAt)
		pdf.SetModificationDate(doc.GeneratedAt)
	}
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range doc.Pages {
		pdf.AddPage()
		for _, op := range page.Ops {
			if err := r.draw(pdf, tr, op); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) draw(pdf *fpdf.Fpdf, tr func(string) string, op layout.Op) error {
	switch o := op.(type) {
	case layout.Text:
		pdf.SetFont(fontFamily, string(o.Font.Style), o.Font.Size)
		setText(pdf, o.Color)
		s := tr(o.Text)
		x := o.X
		switch o.Align {
		case layout.AlignCenter:
			x -= pdf.GetStringWidth(s) / 2
		case layout.AlignRight:
			x -= pdf.GetStringWidth(s)
		}
		pdf.Text(x, o.Y, s)

	case layout.Rect:
		setFill(pdf, o.Fill)
		setDraw(pdf, o.Stroke)
		pdf.SetLineWidth(0.1)
		if o.Radius > 0 {
			pdf.RoundedRect(o.X, o.Y, o.W, o.H, o.Radius, "1234", string(o.Style))
		} else {
			pdf.Rect(o.X, o.Y, o.W, o.H, string(o.Style))
		}

	case layout.Line:
		setDraw(pdf, o.Color)
		pdf.SetLineWidth(o.Width)
		pdf.Line(o.X1, o.Y1, o.X2, o.Y2)

	case layout.Image:
		opts := fpdf.ImageOptions{ImageType: imageFormat}
		pdf.RegisterImageOptionsReader(o.Name, opts, bytes.NewReader(o.PNG))
		if pdf.Err() {
			return fmt.Errorf("embed image %s: %w", o.Name, pdf.Error())
		}
		pdf.ImageOptions(o.Name, o.X, o.Y, o.W, o.H, false, opts, 0, "")

	case layout.Mark:
		pdf.SetFont(symbolFont, "", o.Size)
		setText(pdf, o.Color)
		pdf.Text(o.X, o.Y, checkGlyph)

	default:
		return fmt.Errorf("unsupported draw op %T", op)
	}
	return nil
}

func setText(pdf *fpdf.Fpdf, c color.RGBA) {
	pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
}

func setFill(pdf *fpdf.Fpdf, c color.RGBA) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}

func setDraw(pdf *fpdf.Fpdf, c color.RGBA) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}
