package chartspec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zencalcs-assistant/internal/models"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		value  float64
		format models.ValueFormat
		want   string
	}{
		{1234, models.FormatCurrency, "$1,234"},
		{1234567.891, models.FormatCurrency, "$1,234,567.89"},
		{-250, models.FormatCurrency, "-$250"},
		{12.5, models.FormatPercent, "12.5%"},
		{999, models.FormatNumber, "999"},
		{1000, models.FormatNumber, "1,000"},
		{0, models.FormatNumber, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.value, tt.format))
		})
	}
}

func TestBar_CyclesPalette(t *testing.T) {
	spec := Bar([]string{"a", "b", "c", "d", "e", "f"}, []float64{1, 2, 3, 4, 5, 6}, "", "", models.FormatCurrency)

	assert.Equal(t, models.ChartBar, spec.Type)
	assert.Equal(t, "Comparison", spec.Title)
	require.Len(t, spec.SliceColors, 6)
	assert.Equal(t, Primary, spec.SliceColors[0])
	assert.Equal(t, Error, spec.SliceColors[4])
	assert.Equal(t, Primary, spec.SliceColors[5])
	assert.Equal(t, LegendNone, spec.Legend)
}

func TestPie_DefaultsToDoughnut(t *testing.T) {
	spec := Pie("", []string{"rent", "food"}, []float64{60, 40}, "")
	assert.Equal(t, models.ChartDoughnut, spec.Type)
	assert.Equal(t, "Distribution", spec.Title)

	spec = Pie(models.ChartPie, []string{"rent"}, []float64{1}, "Budget")
	assert.Equal(t, models.ChartPie, spec.Type)
	assert.Equal(t, "Budget", spec.Title)
}

func TestMultiLine(t *testing.T) {
	spec := MultiLine([]string{"Y1", "Y2"}, []NamedSeries{
		{Name: "Base", Values: []float64{100, 110}},
		{Name: "Aggressive", Values: []float64{100, 130}},
	})

	assert.Equal(t, "Scenario Comparison", spec.Title)
	require.Len(t, spec.Series, 2)
	assert.Equal(t, Success, spec.Series[0].Color)
	assert.False(t, spec.Series[0].Dashed)
	assert.True(t, spec.Series[1].Dashed)
	assert.False(t, spec.BeginAtZero)
}

func TestFromChart(t *testing.T) {
	t.Run("line", func(t *testing.T) {
		spec, err := FromChart(models.ChartSpec{
			Type:  models.ChartLine,
			Title: "Progress Over Time",
			Data:  models.ChartData{Labels: []string{"Step 1", "Step 2"}, Values: []float64{1, 2}, Format: models.FormatCurrency},
		})
		require.NoError(t, err)
		assert.Equal(t, "Progress Over Time", spec.Title)
		assert.True(t, spec.Series[0].Fill)
		assert.Equal(t, models.FormatCurrency, spec.Format)
	})

	t.Run("pads missing labels", func(t *testing.T) {
		spec, err := FromChart(models.ChartSpec{Type: models.ChartBar, Data: models.ChartData{Values: []float64{1, 2, 3}}})
		require.NoError(t, err)
		assert.Len(t, spec.Labels, 3)
		assert.Equal(t, models.FormatNumber, spec.Format)
	})

	t.Run("empty data", func(t *testing.T) {
		_, err := FromChart(models.ChartSpec{Type: models.ChartBar})
		assert.ErrorIs(t, err, ErrNoData)
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := FromChart(models.ChartSpec{Type: "radar", Data: models.ChartData{Values: []float64{1}}})
		assert.ErrorIs(t, err, ErrUnsupportedType)
	})
}

func TestValueRange(t *testing.T) {
	lo, hi := Line(nil, []float64{5, 10}, "", "", models.FormatNumber).ValueRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 10.0, hi)

	s := MultiLine(nil, []NamedSeries{{Values: []float64{5, 10}}})
	lo, hi = s.ValueRange()
	assert.Equal(t, 5.0, lo)
	assert.Equal(t, 10.0, hi)

	lo, hi = Spec{}.ValueRange()
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestParseHex(t *testing.T) {
	c, err := ParseHex("#2C5F6F")
	require.NoError(t, err)
	assert.Equal(t, uint8(0x2C), c.R)
	assert.Equal(t, uint8(0x6F), c.B)

	_, err = ParseHex("2C5F6F")
	assert.Error(t, err)

	assert.Equal(t, White, Tint(Primary, 0))
}
