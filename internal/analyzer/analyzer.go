// Package analyzer extracts a structured report from a raw chat transcript.
// It is a keyword and regex heuristic used when no remote analysis is
// available; it never fails and performs no I/O.
package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"zencalcs-assistant/internal/models"
)

const (
	// scenarioAnalysisLength is how much of the closing reply a scenario keeps.
	scenarioAnalysisLength = 150
	scenarioFallbackResult = "See analysis"
	quickFactCount         = 4
)

var (
	financialPattern = regexp.MustCompile(`save|saving|invest|loan|mortgage|interest|payment|dollar|money|\$|finance`)
	healthPattern    = regexp.MustCompile(`bmi|weight|height|body|calorie|calories|nutrition|diet|health`)
	fitnessPattern   = regexp.MustCompile(`workout|exercise|fitness|run|pace|walk|cardio|training`)
	whatIfPattern    = regexp.MustCompile(`what if|if i|suppose|alternatively|instead|compare|scenario`)

	// optional context word, optional dollar sign, then a number that starts with a digit
	numberPattern   = regexp.MustCompile(`(\w+[\s:]+)?(\$?\d[\d,]*\.?\d*)`)
	currencyPattern = regexp.MustCompile(`\$[\d,]+\.?\d*`)
	percentPattern  = regexp.MustCompile(`(\d+\.?\d*)%`)
	leadingNumber   = regexp.MustCompile(`[\d,]+\.?\d*`)
)

// accumulator is the state threaded through the fold over a transcript.
// open holds the what-if scenario awaiting its assistant reply.
type accumulator struct {
	types     []models.CalculationType
	inputs    []models.InputParameter
	results   []string
	scenarios []models.Scenario
	open      *models.Scenario
}

// Analyze builds ReportData from a transcript. Identical transcripts yield
// identical reports.
func Analyze(conversation []models.Message) models.ReportData {
	var acc accumulator
	for _, msg := range conversation {
		switch msg.Role {
		case models.RoleUser:
			acc = acc.userTurn(msg.Content)
		case models.RoleAssistant:
			acc = acc.assistantTurn(msg.Content)
		}
	}
	// a scenario still open at the end never received a reply and is dropped
	return acc.build(len(conversation))
}

func (a accumulator) hasType(t models.CalculationType) bool {
	for _, existing := range a.types {
		if existing == t {
			return true
		}
	}
	return false
}

func (a accumulator) addType(t models.CalculationType) accumulator {
	if !a.hasType(t) {
		a.types = append(a.types, t)
	}
	return a
}

func (a accumulator) userTurn(content string) accumulator {
	lower := strings.ToLower(content)

	// Financial is only voted for while no other category has claimed the transcript.
	if len(a.types) == 0 || a.hasType(models.CalculationFinancial) {
		if financialPattern.MatchString(lower) {
			a = a.addType(models.CalculationFinancial)
		}
	}
	if healthPattern.MatchString(lower) {
		a = a.addType(models.CalculationHealth)
	}
	if fitnessPattern.MatchString(lower) {
		a = a.addType(models.CalculationFitness)
	}

	if whatIfPattern.MatchString(lower) {
		// replaces any stub still waiting for a reply
		a.open = &models.Scenario{
			Name:         fmt.Sprintf("Scenario %d", len(a.scenarios)+1),
			Inputs:       []models.InputParameter{},
			UserQuestion: content,
		}
	}

	for _, m := range numberPattern.FindAllStringSubmatch(content, -1) {
		input := extractInput(m[1], m[2], content, lower)
		a.inputs = append(a.inputs, input)
		if a.open != nil {
			a.open.Inputs = append(a.open.Inputs, input)
		}
	}
	return a
}

// extractInput infers the unit from the whole message, not from the token.
func extractInput(context, value, content, lower string) models.InputParameter {
	unit := ""
	switch {
	case strings.Contains(value, "$"):
	case strings.Contains(lower, "month"):
		unit = "months"
	case strings.Contains(lower, "year"):
		unit = "years"
	case strings.Contains(lower, "percent") || strings.Contains(content, "%"):
		unit = "%"
	case strings.Contains(lower, "pound") || strings.Contains(lower, "lb"):
		unit = "lbs"
	case strings.Contains(lower, "dollar"):
		value = "$" + value
	}

	param := strings.TrimSpace(context)
	if param == "" {
		param = "Amount"
	}
	return models.InputParameter{Parameter: param, Value: value, Unit: unit}
}

func (a accumulator) assistantTurn(content string) accumulator {
	a.results = append(a.results, currencyPattern.FindAllString(content, -1)...)
	for _, m := range percentPattern.FindAllStringSubmatch(content, -1) {
		a.results = append(a.results, m[1]+"%")
	}

	if a.open != nil {
		closed := *a.open
		closed.Result = scenarioFallbackResult
		if n := len(a.results); n > 0 {
			closed.Result = a.results[n-1]
		}
		closed.Analysis = truncateRunes(content, scenarioAnalysisLength) + "..."
		a.scenarios = append(a.scenarios, closed)
		a.open = nil
	}
	return a
}

func (a accumulator) build(turns int) models.ReportData {
	types := a.types
	if len(types) == 0 {
		types = []models.CalculationType{models.CalculationFinancial}
	}

	finalResult := models.FallbackResult
	if n := len(a.results); n > 0 {
		finalResult = a.results[n-1]
	}

	typeNames := make([]string, len(types))
	for i, t := range types {
		typeNames[i] = string(t)
	}

	quickFacts := make([]string, 0, quickFactCount)
	for i := 0; i < len(a.inputs) && i < quickFactCount; i++ {
		quickFacts = append(quickFacts, quickFact(a.inputs[i]))
	}

	inputs := a.inputs
	if len(inputs) > models.MaxReportInputs {
		inputs = inputs[:models.MaxReportInputs]
	}
	if inputs == nil {
		inputs = []models.InputParameter{}
	}
	scenarios := a.scenarios
	if scenarios == nil {
		scenarios = []models.Scenario{}
	}

	return models.ReportData{
		ReportTitle:     strings.Join(typeNames, " & ") + " Calculation Report",
		CalculationType: types,
		ExecutiveSummary: models.ExecutiveSummary{
			KeyResult:  finalResult,
			QuickFacts: quickFacts,
			BottomLine: fmt.Sprintf("Your %s calculation is complete with a result of %s.", strings.ToLower(typeNames[0]), finalResult),
		},
		Inputs: inputs,
		Methodology: models.Methodology{
			Formula: "Custom calculation based on provided inputs",
			Assumptions: []string{
				"Standard calculation methods applied",
				"Values rounded to nearest appropriate decimal",
				"Results are estimates for planning purposes",
			},
			Limitations: []string{
				"Results are estimates and may vary",
				"Consult professionals for specific advice",
				"Individual circumstances may affect actual outcomes",
			},
		},
		Results: models.Results{
			Primary:   models.PrimaryResult{Value: finalResult, Description: "Final calculated result"},
			Breakdown: []models.BreakdownRow{},
		},
		Scenarios:       scenarios,
		Visualizations:  a.charts(),
		Insights:        a.insights(turns),
		Recommendations: a.recommendations(),
	}
}

func quickFact(in models.InputParameter) string {
	if in.Unit == "" {
		return fmt.Sprintf("%s: %s", in.Parameter, in.Value)
	}
	return fmt.Sprintf("%s: %s %s", in.Parameter, in.Value, in.Unit)
}

func (a accumulator) charts() []models.ChartSpec {
	charts := []models.ChartSpec{}

	if len(a.results) > 2 {
		var values []float64
		for _, r := range a.results {
			if v, ok := parseNumber(strings.NewReplacer("$", "", ",", "", "%", "").Replace(r)); ok {
				values = append(values, v)
			}
		}
		if len(values) > 2 {
			labels := make([]string, len(values))
			for i := range values {
				labels[i] = fmt.Sprintf("Step %d", i+1)
			}
			format := models.FormatNumber
			if strings.Contains(a.results[0], "$") {
				format = models.FormatCurrency
			}
			charts = append(charts, models.ChartSpec{
				Type:  models.ChartLine,
				Title: "Progress Over Time",
				Data:  models.ChartData{Labels: labels, Values: values, Format: format},
			})
		}
	}

	if len(a.scenarios) > 1 {
		labels := make([]string, len(a.scenarios))
		values := make([]float64, len(a.scenarios))
		for i, s := range a.scenarios {
			labels[i] = s.Name
			if m := leadingNumber.FindString(s.Result); m != "" {
				values[i], _ = parseNumber(strings.ReplaceAll(m, ",", ""))
			}
		}
		charts = append(charts, models.ChartSpec{
			Type:  models.ChartBar,
			Title: "Scenario Comparison",
			Data:  models.ChartData{Labels: labels, Values: values, Format: models.FormatCurrency},
		})
	}
	return charts
}

func (a accumulator) insights(turns int) []string {
	insights := []string{
		fmt.Sprintf("Processed %s calculation exchanges", strconv.FormatFloat(float64(turns)/2, 'f', -1, 64)),
		fmt.Sprintf("Analyzed %d input parameters", len(a.inputs)),
		fmt.Sprintf("Generated %d results", len(a.results)),
	}
	if len(a.scenarios) > 0 {
		insights = append(insights, fmt.Sprintf("Compared %d different scenarios", len(a.scenarios)))
	}
	return insights
}

func (a accumulator) recommendations() []string {
	recs := []string{
		"Review the detailed breakdown for accuracy",
		"Consider consulting a professional for personalized advice",
		"Save this report for your records",
	}
	if len(a.scenarios) > 1 {
		recs = append(recs, "Compare scenarios to make an informed decision")
	}
	return recs
}

// parseNumber reads the longest numeric prefix, like a lenient float parse.
func parseNumber(s string) (float64, bool) {
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot {
			seenDot = true
			end++
			continue
		}
		break
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
