package pdf

import (
	"sync"

	"github.com/go-pdf/fpdf"

	"zencalcs-assistant/internal/layout"
)

// Measurer wraps text using the core font metrics the renderer draws with.
type Measurer struct {
	mu  sync.Mutex
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func NewMeasurer() *Measurer {
	pdf := fpdf.New("P", "mm", "A4", "")
	return &Measurer{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (m *Measurer) TextWidth(text string, font layout.Font) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.width(text, font)
}

func (m *Measurer) width(text string, font layout.Font) float64 {
	m.pdf.SetFont(fontFamily, string(font.Style), font.Size)
	return m.pdf.GetStringWidth(m.tr(text))
}

// SplitText returns lines of the original text, not the translated form.
func (m *Measurer) SplitText(text string, font layout.Font, width float64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return layout.WrapText(text, width, func(s string) float64 { return m.width(s, font) })
}
