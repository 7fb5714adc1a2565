// internal/models/report.go
package models

import (
	"encoding/json"
	"strconv"
	"strings"
)

const (
	// MaxReportInputs caps the input parameters carried into a report.
	MaxReportInputs = 10
	// FallbackResult stands in when no numeric result could be extracted.
	FallbackResult = "Calculation completed"
)

type CalculationType string

const (
	CalculationFinancial CalculationType = "Financial"
	CalculationHealth    CalculationType = "Health"
	CalculationFitness   CalculationType = "Fitness"
)

type ChartType string

const (
	ChartLine     ChartType = "line"
	ChartBar      ChartType = "bar"
	ChartPie      ChartType = "pie"
	ChartDoughnut ChartType = "doughnut"
)

type ValueFormat string

const (
	FormatCurrency ValueFormat = "currency"
	FormatPercent  ValueFormat = "percent"
	FormatNumber   ValueFormat = "number"
)

// ChartData is the data-shaping part of a chart description.
type ChartData struct {
	Labels []string    `json:"labels"`
	Values []float64   `json:"values"`
	Format ValueFormat `json:"format,omitempty"`
}

func (c *ChartData) UnmarshalJSON(data []byte) error {
	type alias ChartData
	aux := struct {
		*alias
		Labels []json.RawMessage `json:"labels"`
	}{alias: (*alias)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	c.Labels = make([]string, len(aux.Labels))
	for i, l := range aux.Labels {
		c.Labels[i] = lenientString(l)
	}
	return nil
}

// ChartSpec describes one visualization requested for a report.
type ChartSpec struct {
	Type  ChartType `json:"type"`
	Title string    `json:"title"`
	Data  ChartData `json:"data"`
}

type InputParameter struct {
	Parameter   string `json:"parameter"`
	Value       string `json:"value"`
	Unit        string `json:"unit"`
	Description string `json:"description,omitempty"`
}

func (p *InputParameter) UnmarshalJSON(data []byte) error {
	type alias InputParameter
	aux := struct {
		*alias
		Value json.RawMessage `json:"value"`
	}{alias: (*alias)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.Value = lenientString(aux.Value)
	return nil
}

type Scenario struct {
	Name         string           `json:"name"`
	Inputs       []InputParameter `json:"inputs"`
	Result       string           `json:"result"`
	Analysis     string           `json:"analysis"`
	UserQuestion string           `json:"userQuestion"`
}

func (s *Scenario) UnmarshalJSON(data []byte) error {
	type alias Scenario
	aux := struct {
		*alias
		Result json.RawMessage `json:"result"`
	}{alias: (*alias)(s)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	s.Result = lenientString(aux.Result)
	return nil
}

type ExecutiveSummary struct {
	KeyResult  string   `json:"keyResult"`
	QuickFacts []string `json:"quickFacts"`
	BottomLine string   `json:"bottomLine"`
}

func (e *ExecutiveSummary) UnmarshalJSON(data []byte) error {
	type alias ExecutiveSummary
	aux := struct {
		*alias
		KeyResult json.RawMessage `json:"keyResult"`
	}{alias: (*alias)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.KeyResult = lenientString(aux.KeyResult)
	return nil
}

type Methodology struct {
	Formula     string   `json:"formula"`
	Assumptions []string `json:"assumptions"`
	Limitations []string `json:"limitations"`
}

type PrimaryResult struct {
	Value       string `json:"value"`
	Description string `json:"description"`
}

func (r *PrimaryResult) UnmarshalJSON(data []byte) error {
	type alias PrimaryResult
	aux := struct {
		*alias
		Value json.RawMessage `json:"value"`
	}{alias: (*alias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	r.Value = lenientString(aux.Value)
	return nil
}

type BreakdownRow struct {
	Label      string `json:"label"`
	Value      string `json:"value"`
	Percentage string `json:"percentage,omitempty"`
}

func (b *BreakdownRow) UnmarshalJSON(data []byte) error {
	type alias BreakdownRow
	aux := struct {
		*alias
		Value      json.RawMessage `json:"value"`
		Percentage json.RawMessage `json:"percentage"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.Value = lenientString(aux.Value)
	b.Percentage = lenientString(aux.Percentage)
	return nil
}

type Results struct {
	Primary   PrimaryResult  `json:"primary"`
	Breakdown []BreakdownRow `json:"breakdown"`
}

// ReportData is the structured content of a calculation report. Optional
// sections are empty slices; consumers check len() rather than nil-ness.
type ReportData struct {
	ReportTitle      string            `json:"reportTitle"`
	CalculationType  []CalculationType `json:"calculationType"`
	ExecutiveSummary ExecutiveSummary  `json:"executiveSummary"`
	Inputs           []InputParameter  `json:"inputs"`
	Methodology      Methodology       `json:"methodology"`
	Results          Results           `json:"results"`
	Scenarios        []Scenario        `json:"scenarios"`
	Visualizations   []ChartSpec       `json:"visualizations"`
	Insights         []string          `json:"insights"`
	Recommendations  []string          `json:"recommendations"`
}

// PrimaryType is the first calculation type, Financial when none is set.
func (d *ReportData) PrimaryType() CalculationType {
	if len(d.CalculationType) == 0 {
		return CalculationFinancial
	}
	return d.CalculationType[0]
}

// Normalize enforces the report invariants on data from any source.
func (d *ReportData) Normalize() {
	if len(d.CalculationType) == 0 {
		d.CalculationType = []CalculationType{CalculationFinancial}
	}
	if strings.TrimSpace(d.Results.Primary.Value) == "" {
		d.Results.Primary.Value = FallbackResult
	}
	if d.ReportTitle == "" {
		names := make([]string, len(d.CalculationType))
		for i, t := range d.CalculationType {
			names[i] = string(t)
		}
		d.ReportTitle = strings.Join(names, " & ") + " Calculation Report"
	}
	if d.ExecutiveSummary.KeyResult == "" {
		d.ExecutiveSummary.KeyResult = d.Results.Primary.Value
	}
	if len(d.Inputs) > MaxReportInputs {
		d.Inputs = d.Inputs[:MaxReportInputs]
	}

	// drop scenarios that never received a result
	kept := make([]Scenario, 0, len(d.Scenarios))
	for _, s := range d.Scenarios {
		if strings.TrimSpace(s.Result) != "" {
			kept = append(kept, s)
		}
	}
	d.Scenarios = kept
}

// lenientString accepts a JSON string, number or bool.
func lenientString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return strings.Trim(string(raw), `"`)
}
