package plot

import (
	"fmt"
	"math"
	"strings"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// categoryData is a spec flattened for go-chart: string labels and float
// values. Null or non-numeric values are drawn as 0 and keep their label.
type categoryData struct {
	xValues   []string
	yValues   []float64
	texts     []string
	colors    []drawing.Color
	nameGraph string
	nameX     string
	nameY     string
	rotate    bool
}

func newCategoryData(spec Spec) categoryData {
	xs, ys := spec.Series.X, spec.Series.Y
	if spec.Kind == KindPie {
		xs, ys = spec.Series.Labels, spec.Series.Values
	}
	d := categoryData{
		xValues:   make([]string, len(xs)),
		yValues:   make([]float64, len(ys)),
		texts:     make([]string, len(ys)),
		colors:    make([]drawing.Color, len(xs)),
		nameGraph: spec.Layout.Title,
	}
	for i, x := range xs {
		d.xValues[i] = FormatLabel(x)
	}
	for i, y := range ys {
		d.yValues[i], _ = toFloat(y)
		d.texts[i] = FormatValue(y)
	}

	accent := parseColor(spec.Series.Marker.Color)
	for i := range d.colors {
		d.colors[i] = accent
		if i < len(spec.Series.Marker.Colors) {
			d.colors[i] = parseColor(spec.Series.Marker.Colors[i])
		}
	}
	if spec.Layout.XAxis != nil {
		d.nameX = spec.Layout.XAxis.Title
		d.rotate = spec.Layout.XAxis.TickAngle != 0
	}
	if spec.Layout.YAxis != nil {
		d.nameY = spec.Layout.YAxis.Title
	}
	return d
}

func (d categoryData) GetNameGraph() string {
	return d.nameGraph
}
func (d categoryData) getNameYAxis() string {
	return d.nameY
}
func (d categoryData) getYValues() []float64 {
	return d.yValues
}

func (d categoryData) lenXValues() int {
	return len(d.xValues)
}

func (d categoryData) calculateChartDimensions(minBarWidth float64) (width, height int) {
	if d.lenXValues() <= 0 || minBarWidth <= 0 {
		return minChartWidth, 0
	}
	const (
		paddingY     = 100 // отступ для оси Y и подписей
		spacingRatio = 0.2 // соотношение отступа между столбцами к ширине столбца
	)
	barSpacing := minBarWidth * spacingRatio
	width = int((minBarWidth+barSpacing)*float64(d.lenXValues())) + 2*paddingY
	if width < minChartWidth {
		width = minChartWidth
	}
	return width, 0
}

func (d categoryData) generateBarValues() []chart.Value {
	bars := make([]chart.Value, 0, len(d.xValues))
	for i := range d.xValues {
		label := d.xValues[i]
		if d.texts[i] != "" {
			label = fmt.Sprintf("%s (%s)", label, d.texts[i])
		}
		bars = append(bars, chart.Value{
			Value: d.yValues[i],
			Label: label,
			Style: chart.Style{
				FillColor:   d.colors[i],
				StrokeColor: d.colors[i],
			},
		})
	}
	return bars
}

// generatePieValues labels every slice "<label> <percent> (<value>)".
func (d categoryData) generatePieValues(percents []string) []chart.Value {
	values := make([]chart.Value, 0, len(d.xValues))
	for i := range d.xValues {
		label := d.xValues[i]
		if i < len(percents) && percents[i] != "" {
			label += " " + percents[i]
		}
		if d.texts[i] != "" {
			label += " (" + d.texts[i] + ")"
		}
		values = append(values, chart.Value{
			Value: d.yValues[i],
			Label: label,
			Style: chart.Style{FillColor: d.colors[i]},
		})
	}
	return values
}

func (d categoryData) generateXTicks() []chart.Tick {
	ticks := make([]chart.Tick, len(d.xValues))
	for i, x := range d.xValues {
		ticks[i] = chart.Tick{Value: float64(i), Label: x}
	}
	return ticks
}

func (d categoryData) generateGrid() []chart.Tick {
	var ticks []chart.Tick
	max := findMaxValue(d.yValues)
	gridStep := calculateGridStep(max)
	if gridStep <= 0 {
		return nil
	}
	// последний тик не ниже максимума
	for i := 0.0; ; i += gridStep {
		ticks = append(ticks, chart.Tick{
			Value: i,
			Label: fmt.Sprintf("%.1f", i),
		})
		if i >= max {
			return ticks
		}
	}
}

// parseColor understands "#RRGGBB" and "rgba(r, g, b, a)".
func parseColor(s string) drawing.Color {
	s = strings.ReplaceAll(strings.TrimSpace(s), " ", "")
	if strings.HasPrefix(s, "#") {
		return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
	}
	var r, g, b uint8
	var a float64
	if _, err := fmt.Sscanf(s, "rgba(%d,%d,%d,%g)", &r, &g, &b, &a); err == nil {
		return drawing.Color{R: r, G: g, B: b, A: uint8(math.Round(a * 255))}
	}
	return drawing.ColorFromHex(strings.TrimPrefix(accentColor, "#"))
}
