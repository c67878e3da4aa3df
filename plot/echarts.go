package plot

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// two decimals for numbers, anything else as sent
const valueLabelFormatter = `function (p) {
	var v = Array.isArray(p.value) ? p.value[p.value.length - 1] : p.value;
	return typeof v === 'number' ? v.toFixed(2) : (v === null || v === undefined ? '' : v);
}`

// RenderHTML writes a standalone go-echarts page for the spec.
func RenderHTML(w io.Writer, spec Spec) error {
	switch spec.Kind {
	case KindPie:
		return newPieChart(spec).Render(w)
	case KindLine:
		return newLineChart(spec).Render(w)
	default:
		return newBarChart(spec).Render(w)
	}
}

func globalOptions(spec Spec) []charts.GlobalOpts {
	m := spec.Layout.Margin
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{
			Title: spec.Layout.Title,
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show: opts.Bool(true),
		}),
		charts.WithLegendOpts(opts.Legend{
			Show: opts.Bool(spec.Layout.ShowLegend),
			Top:  "bottom",
		}),
		charts.WithGridOpts(opts.Grid{
			Top:    fmt.Sprint(m.T),
			Bottom: fmt.Sprint(m.B),
			Left:   fmt.Sprint(m.L),
			Right:  fmt.Sprint(m.R),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: spec.Layout.Title,
			Width:     "100%",
			Height:    fmt.Sprintf("%dpx", spec.Layout.Height),
		}),
	}
}

func axisOptions(spec Spec) []charts.GlobalOpts {
	var x opts.XAxis
	var y opts.YAxis
	x.Type = "category"
	y.Type = "value"
	if a := spec.Layout.XAxis; a != nil {
		x.Name = a.Title
		if a.TickAngle != 0 {
			x.AxisLabel = &opts.AxisLabel{Rotate: 45}
		}
	}
	if a := spec.Layout.YAxis; a != nil {
		y.Name = a.Title
	}
	return []charts.GlobalOpts{charts.WithXAxisOpts(x), charts.WithYAxisOpts(y)}
}

func categoryLabels(values []interface{}) []string {
	labels := make([]string, len(values))
	for i, v := range values {
		labels[i] = FormatLabel(v)
	}
	return labels
}

// chartValue maps nulls to echarts' empty data marker.
func chartValue(v interface{}) interface{} {
	if v == nil {
		return "-"
	}
	return v
}

func seriesName(spec Spec) string {
	if spec.Series.Name != "" {
		return spec.Series.Name
	}
	if spec.Layout.YAxis != nil {
		return spec.Layout.YAxis.Title
	}
	return spec.Layout.Title
}

func newBarChart(spec Spec) *charts.Bar {
	bar := charts.NewBar()
	bar.SetGlobalOptions(globalOptions(spec)...)
	bar.SetGlobalOptions(axisOptions(spec)...)

	data := make([]opts.BarData, len(spec.Series.Y))
	for i, v := range spec.Series.Y {
		data[i] = opts.BarData{Value: chartValue(v)}
	}
	style := opts.ItemStyle{Color: spec.Series.Marker.Color}
	if l := spec.Series.Marker.Line; l != nil {
		style.BorderColor = l.Color
		style.BorderWidth = 2
	}
	bar.SetXAxis(categoryLabels(spec.Series.X)).
		AddSeries(seriesName(spec), data,
			charts.WithItemStyleOpts(style),
			charts.WithLabelOpts(opts.Label{
				Show:      opts.Bool(len(spec.Series.Text) > 0),
				Position:  "top",
				Formatter: string(opts.FuncOpts(valueLabelFormatter)),
			}),
		)
	return bar
}

func newLineChart(spec Spec) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(globalOptions(spec)...)
	line.SetGlobalOptions(axisOptions(spec)...)

	data := make([]opts.LineData, len(spec.Series.Y))
	for i, v := range spec.Series.Y {
		data[i] = opts.LineData{Value: chartValue(v)}
	}
	lineColor := spec.Series.Marker.Color
	if spec.Series.Line != nil {
		lineColor = spec.Series.Line.Color
	}
	line.SetXAxis(categoryLabels(spec.Series.X)).
		AddSeries(seriesName(spec), data,
			charts.WithLineChartOpts(opts.LineChart{
				ShowSymbol: opts.Bool(true),
			}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: spec.Series.Marker.Color}),
			charts.WithLineStyleOpts(opts.LineStyle{Color: lineColor, Width: 3}),
			charts.WithLabelOpts(opts.Label{
				Show:      opts.Bool(true),
				Position:  "top",
				Formatter: string(opts.FuncOpts(valueLabelFormatter)),
			}),
		)
	return line
}

func newPieChart(spec Spec) *charts.Pie {
	pie := charts.NewPie()
	pie.SetGlobalOptions(globalOptions(spec)...)

	data := make([]opts.PieData, len(spec.Series.Labels))
	for i, label := range spec.Series.Labels {
		d := opts.PieData{Name: FormatLabel(label)}
		if i < len(spec.Series.Values) {
			d.Value = chartValue(spec.Series.Values[i])
		}
		if i < len(spec.Series.Marker.Colors) {
			d.ItemStyle = &opts.ItemStyle{Color: spec.Series.Marker.Colors[i]}
		}
		data[i] = d
	}
	pie.AddSeries(seriesName(spec), data,
		charts.WithLabelOpts(opts.Label{
			Show:      opts.Bool(true),
			Formatter: "{b}: {d}% ({c})",
		}),
	)
	return pie
}
