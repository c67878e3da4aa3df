package plot

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"github.com/pivolan/eda_dashboard/aggregation"
	"github.com/pivolan/eda_dashboard/domain/models"
)

type Kind string

const (
	KindBar  Kind = "bar"
	KindPie  Kind = "pie"
	KindLine Kind = "line"
)

var Kinds = []Kind{KindBar, KindPie, KindLine}

func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindBar:
		return KindBar, nil
	case KindPie:
		return KindPie, nil
	case KindLine:
		return KindLine, nil
	}
	return "", fmt.Errorf("unknown chart kind %q", s)
}

const (
	chartHeight   = 500
	transparentBG = "rgba(0,0,0,0)"
	accentColor   = "#3B82F6"
	outlineColor  = "#1D4ED8"

	// more categories than this and bar tick labels are rotated
	maxFlatTicks     = 5
	rotatedTickAngle = -45
)

var piePalette = []string{
	"#3B82F6", "#10B981", "#F59E0B", "#EF4444",
	"#8B5CF6", "#F97316", "#06B6D4", "#84CC16",
}

var chartMargin = Margin{T: 50, B: 80, L: 60, R: 50}

type Line struct {
	Color string `json:"color"`
	Width int    `json:"width"`
}

type Marker struct {
	Color  string   `json:"color,omitempty"`
	Colors []string `json:"colors,omitempty"`
	Size   int      `json:"size,omitempty"`
	Line   *Line    `json:"line,omitempty"`
}

// Series is the data half of a Spec. Bar and line charts fill X and Y,
// pie charts fill Labels and Values.
type Series struct {
	Type          string        `json:"type"`
	Name          string        `json:"name,omitempty"`
	X             []interface{} `json:"x,omitempty"`
	Y             []interface{} `json:"y,omitempty"`
	Labels        []interface{} `json:"labels,omitempty"`
	Values        []interface{} `json:"values,omitempty"`
	Text          []string      `json:"text,omitempty"`
	Percents      []string      `json:"percents,omitempty"`
	TextPosition  string        `json:"textposition,omitempty"`
	TextInfo      string        `json:"textinfo,omitempty"`
	Mode          string        `json:"mode,omitempty"`
	Marker        Marker        `json:"marker"`
	Line          *Line         `json:"line,omitempty"`
	HoverTemplate string        `json:"hovertemplate,omitempty"`
}

type Axis struct {
	Title     string  `json:"title"`
	TickAngle float64 `json:"tickangle"`
}

type Margin struct {
	T int `json:"t"`
	B int `json:"b"`
	L int `json:"l"`
	R int `json:"r"`
}

type Layout struct {
	Title        string `json:"title"`
	Height       int    `json:"height"`
	Margin       Margin `json:"margin"`
	PlotBGColor  string `json:"plot_bgcolor"`
	PaperBGColor string `json:"paper_bgcolor"`
	XAxis        *Axis  `json:"xaxis,omitempty"`
	YAxis        *Axis  `json:"yaxis,omitempty"`
	ShowLegend   bool   `json:"showlegend"`
}

// Spec is a renderer-independent chart description. It is rebuilt from the
// aggregation result on every render and never stored.
type Spec struct {
	Kind   Kind   `json:"kind"`
	Series Series `json:"series"`
	Layout Layout `json:"layout"`
}

// Empty reports whether the spec has no data points.
func (s Spec) Empty() bool {
	if s.Kind == KindPie {
		return len(s.Series.Labels) == 0
	}
	return len(s.Series.X) == 0
}

// Title builds "<fn>(<continuous>) by <categorical>".
func Title(result models.AggregationResult, keys aggregation.Keys, fn models.AggregationFunction) string {
	return fmt.Sprintf("%s(%s) by %s", fn, result.ContinuousColumn(), keys.Group)
}

// Adapt turns a validated result into a chart of the given kind. keys must
// come from aggregation.Validate on the same result. An unknown kind is
// drawn as a bar chart. Zero categories give an empty but valid spec.
func Adapt(result models.AggregationResult, keys aggregation.Keys, kind Kind, fn models.AggregationFunction) Spec {
	groupValues, valueValues := aggregation.Columns(result, keys)
	categories := clone(groupValues)
	values := clone(valueValues)

	layout := Layout{
		Title:        Title(result, keys, fn),
		Height:       chartHeight,
		Margin:       chartMargin,
		PlotBGColor:  transparentBG,
		PaperBGColor: transparentBG,
	}

	switch kind {
	case KindPie:
		layout.ShowLegend = true
		return Spec{
			Kind: KindPie,
			Series: Series{
				Type:          "pie",
				Labels:        categories,
				Values:        values,
				Percents:      percents(values),
				Marker:        Marker{Colors: paletteFor(len(categories))},
				TextInfo:      "label+percent+value",
				TextPosition:  "auto",
				HoverTemplate: "<b>%{label}</b><br>Value: %{value}<br>Percentage: %{percent}<extra></extra>",
			},
			Layout: layout,
		}
	case KindLine:
		layout.XAxis = &Axis{Title: keys.Group}
		layout.YAxis = &Axis{Title: keys.Value}
		return Spec{
			Kind: KindLine,
			Series: Series{
				Type:          "scatter",
				Mode:          "lines+markers",
				X:             categories,
				Y:             values,
				Text:          valueTexts(values),
				Marker:        Marker{Color: accentColor, Size: 8},
				Line:          &Line{Color: accentColor, Width: 3},
				HoverTemplate: hoverTemplate(keys.Value),
			},
			Layout: layout,
		}
	default:
		layout.XAxis = &Axis{Title: keys.Group, TickAngle: tickAngle(len(categories))}
		layout.YAxis = &Axis{Title: keys.Value}
		return Spec{
			Kind: KindBar,
			Series: Series{
				Type:          "bar",
				X:             categories,
				Y:             values,
				Text:          valueTexts(values),
				TextPosition:  "outside",
				Marker:        Marker{Color: accentColor, Line: &Line{Color: outlineColor, Width: 2}},
				HoverTemplate: hoverTemplate(keys.Value),
			},
			Layout: layout,
		}
	}
}

// MissingValuesSpec charts missing value counts per column.
func MissingValuesSpec(cols []models.ColumnMeta) Spec {
	x := make([]interface{}, 0, len(cols))
	y := make([]interface{}, 0, len(cols))
	for _, c := range cols {
		x = append(x, c.Column)
		y = append(y, float64(c.Missing))
	}
	return Spec{
		Kind: KindBar,
		Series: Series{
			Type: "bar",
			Name: "Missing Values",
			X:    x,
			Y:    y,
			Marker: Marker{
				Color: "rgba(239, 68, 68, 0.7)",
				Line:  &Line{Color: "rgba(239, 68, 68, 1)", Width: 2},
			},
		},
		Layout: Layout{
			Title:        "Missing Values by Column",
			Height:       400,
			Margin:       Margin{T: 50, B: 50, L: 50, R: 50},
			PlotBGColor:  transparentBG,
			PaperBGColor: transparentBG,
			XAxis:        &Axis{Title: "Columns"},
			YAxis:        &Axis{Title: "Count of Missing Values"},
		},
	}
}

func tickAngle(categories int) float64 {
	if categories > maxFlatTicks {
		return rotatedTickAngle
	}
	return 0
}

func hoverTemplate(valueKey string) string {
	return "<b>%{x}</b><br>" + valueKey + ": %{y}<extra></extra>"
}

func paletteFor(n int) []string {
	colors := make([]string, n)
	for i := range colors {
		colors[i] = piePalette[i%len(piePalette)]
	}
	return colors
}

func valueTexts(values []interface{}) []string {
	texts := make([]string, len(values))
	for i, v := range values {
		texts[i] = FormatValue(v)
	}
	return texts
}

// FormatValue renders numbers with two decimals and anything else as is.
// Nulls render as an empty string.
func FormatValue(v interface{}) string {
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', 2, 64)
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// FormatLabel renders a category label.
func FormatLabel(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

func percents(values []interface{}) []string {
	var numeric []float64
	for _, v := range values {
		if f, ok := toFloat(v); ok {
			numeric = append(numeric, f)
		}
	}
	out := make([]string, len(values))
	total, err := stats.Sum(numeric)
	if err != nil || total == 0 {
		return out
	}
	for i, v := range values {
		if f, ok := toFloat(v); ok {
			out[i] = strconv.FormatFloat(f/total*100, 'f', 1, 64) + "%"
		}
	}
	return out
}

func toFloat(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	}
	return 0, false
}

func clone(in []interface{}) []interface{} {
	out := make([]interface{}, len(in))
	copy(out, in)
	return out
}
