package layout

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zencalcs-assistant/internal/chartspec"
)

func headRows(page Page) int {
	n := 0
	for _, op := range page.Ops {
		if t, ok := op.(Text); ok && t.Text == "Parameter" {
			n++
		}
	}
	return n
}

func TestGridTableRenderer_Paginates(t *testing.T) {
	c := NewCanvas(A4())
	rows := make([][]string, 80)
	for i := range rows {
		rows[i] = []string{fmt.Sprintf("p%d", i), "1", ""}
	}

	endY, err := NewGridTableRenderer(ApproxMeasurer{}).RenderTable(c, Table{
		Head:     []string{"Parameter", "Value", "Description"},
		Rows:     rows,
		Theme:    ThemeStriped,
		HeadFill: chartspec.Primary,
	}, 200)
	require.NoError(t, err)

	require.Greater(t, c.PageCount(), 1)
	for _, p := range c.Pages() {
		assert.Equal(t, 1, headRows(p), "header repeats once per page")
		for _, op := range p.Ops {
			if r, ok := op.(Rect); ok {
				assert.LessOrEqual(t, r.Y+r.H, A4().Limit())
			}
		}
	}
	assert.Greater(t, endY, A4().Margin)
	assert.LessOrEqual(t, endY, A4().Limit())
}

func TestGridTableRenderer_KeepsHeaderWithFirstRow(t *testing.T) {
	c := NewCanvas(A4())
	_, err := NewGridTableRenderer(ApproxMeasurer{}).RenderTable(c, Table{
		Head: []string{"Parameter", "Value"},
		Rows: [][]string{{"a", "1"}},
	}, A4().Limit()-5)
	require.NoError(t, err)

	assert.Equal(t, 2, c.PageCount())
	assert.Equal(t, 0, headRows(c.Pages()[0]))
	assert.Equal(t, 1, headRows(c.Pages()[1]))
}

func TestGridTableRenderer_SplitsRowTallerThanPage(t *testing.T) {
	c := NewCanvas(A4())
	long := strings.Repeat("word ", 2000)

	endY, err := NewGridTableRenderer(ApproxMeasurer{}).RenderTable(c, Table{
		Head:  []string{"Parameter", "Value", "Description"},
		Rows:  [][]string{{"Loan", "$300,000", long}, {"Rate", "4.5%", "annual"}},
		Theme: ThemeStriped,
	}, 50)
	require.NoError(t, err)

	limit := A4().Limit()
	require.Greater(t, c.PageCount(), 2)
	assert.LessOrEqual(t, endY, limit)

	words := 0
	for i, p := range c.Pages() {
		assert.Equal(t, 1, headRows(p), "page %d", i)
		body := 0
		for _, op := range p.Ops {
			switch o := op.(type) {
			case Rect:
				assert.LessOrEqual(t, o.Y+o.H, limit, "page %d", i)
			case Text:
				assert.LessOrEqual(t, o.Y, limit)
				words += strings.Count(o.Text, "word")
				if o.Text != "Parameter" && o.Text != "Value" && o.Text != "Description" {
					body++
				}
			}
		}
		assert.Positive(t, body, "page %d holds only the header", i)
	}
	assert.Equal(t, 2000, words)
}

func TestGridTableRenderer_GridThemeStrokes(t *testing.T) {
	c := NewCanvas(A4())
	_, err := NewGridTableRenderer(ApproxMeasurer{}).RenderTable(c, Table{
		Head:  []string{"Component", "Value", "Percentage"},
		Rows:  [][]string{{"Interest", "$10", "5%"}},
		Theme: ThemeGrid,
	}, 50)
	require.NoError(t, err)

	for _, op := range c.Pages()[0].Ops {
		if r, ok := op.(Rect); ok {
			assert.Equal(t, FillStroke, r.Style)
		}
	}
}

func TestGridTableRenderer_Errors(t *testing.T) {
	_, err := (&GridTableRenderer{}).RenderTable(NewCanvas(A4()), Table{Head: []string{"a"}}, 50)
	assert.ErrorIs(t, err, ErrCapabilityMissing)

	_, err = NewGridTableRenderer(ApproxMeasurer{}).RenderTable(NewCanvas(A4()), Table{}, 50)
	assert.Error(t, err)
}

func TestWrapText(t *testing.T) {
	measure := func(s string) float64 { return float64(len(s)) }

	assert.Equal(t, []string{"hello", "world"}, WrapText("hello world", 7, measure))
	assert.Equal(t, []string{"hello world"}, WrapText("hello world", 20, measure))
	assert.Equal(t, []string{""}, WrapText("", 10, measure))
	assert.Equal(t, []string{"abc", "def", "g"}, WrapText("abcdefg", 3, measure))
	assert.Equal(t, []string{"one", "two"}, WrapText("one\ntwo", 20, measure))
}
