package plot

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

const minChartWidth = 800

var ErrEmptyChart = errors.New("chart has no data points")

var transparent = drawing.Color{R: 255, G: 255, B: 255, A: 0}

// RenderPNG draws the spec with go-chart. Empty specs (and pies without a
// non-zero slice) are ErrEmptyChart, the caller decides whether to skip the image.
func RenderPNG(spec Spec) ([]byte, error) {
	if spec.Empty() {
		return nil, ErrEmptyChart
	}
	data := newCategoryData(spec)
	switch spec.Kind {
	case KindPie:
		return drawPlotPie(data, spec)
	case KindLine:
		return drawPlotLine(data, spec)
	default:
		return drawPlotBar(data, spec)
	}
}

func background(spec Spec, extraBottom int) chart.Style {
	m := spec.Layout.Margin
	return chart.Style{
		FillColor:   transparent,
		StrokeColor: drawing.ColorFromHex("efefef"),
		StrokeWidth: 1,
		Padding: chart.Box{
			Top:    m.T,
			Left:   m.L,
			Right:  m.R,
			Bottom: m.B + extraBottom,
		},
	}
}

func drawPlotBar(data categoryData, spec Spec) ([]byte, error) {
	barValues := data.generateBarValues()
	paddingX := 0
	rotation := 0.0
	if data.rotate {
		paddingX = customizePaddingXBottom(barValues)
		rotation = -spec.Layout.XAxis.TickAngle
	}
	width, _ := data.calculateChartDimensions(60)

	bar := chart.BarChart{}
	bar.Title = data.GetNameGraph()
	bar.Background = background(spec, paddingX)
	bar.Canvas = chart.Style{FillColor: transparent}
	bar.Height = spec.Layout.Height + paddingX
	bar.Width = width
	bar.BarWidth = 60
	bar.BarSpacing = 12
	bar.Bars = barValues
	bar.YAxis = chart.YAxis{
		Name: data.getNameYAxis(),
		Style: chart.Style{
			StrokeWidth: 2,
			StrokeColor: chart.ColorBlack,
		},
		GridMajorStyle: chart.Style{
			StrokeColor:     chart.ColorBlack,
			StrokeWidth:     1,
			DotWidth:        1,
			StrokeDashArray: []float64{5.0, 5.0}, // Пунктирная линия
		},
	}
	// свои тики только для неотрицательных значений
	minY, maxY := findMinValue(data.getYValues()), findMaxValue(data.getYValues())
	if minY >= 0 {
		if ticks := data.generateGrid(); len(ticks) > 1 {
			bar.YAxis.Ticks = ticks
			bar.YAxis.Range = &chart.ContinuousRange{Min: 0.0, Max: ticks[len(ticks)-1].Value}
		}
	}
	// go-chart не рисует нулевой диапазон (все значения 0 или null)
	if bar.YAxis.Range == nil && minY == maxY {
		bar.YAxis.Range = barRange(minY)
	}
	bar.XAxis = chart.Style{
		StrokeWidth:         2,
		StrokeColor:         chart.ColorBlack,
		TextRotationDegrees: rotation,
	}
	return render(bar)
}

func drawPlotPie(data categoryData, spec Spec) ([]byte, error) {
	nonZero := false
	for _, v := range data.getYValues() {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		return nil, ErrEmptyChart
	}
	pie := chart.PieChart{
		Title:      data.GetNameGraph(),
		Width:      minChartWidth,
		Height:     spec.Layout.Height,
		Background: background(spec, 0),
		Canvas:     chart.Style{FillColor: transparent},
		Values:     data.generatePieValues(spec.Series.Percents),
	}
	return render(pie)
}

func drawPlotLine(data categoryData, spec Spec) ([]byte, error) {
	xs := make([]float64, 0, data.lenXValues())
	ys := make([]float64, 0, data.lenXValues())
	for i, y := range spec.Series.Y {
		if _, ok := toFloat(y); !ok {
			continue
		}
		xs = append(xs, float64(i))
		ys = append(ys, data.yValues[i])
	}
	if len(xs) == 0 {
		return nil, ErrEmptyChart
	}

	color := parseColor(spec.Series.Marker.Color)
	width, _ := data.calculateChartDimensions(60)
	graph := chart.Chart{
		Title:      data.GetNameGraph(),
		Width:      width,
		Height:     spec.Layout.Height,
		Background: background(spec, 0),
		Canvas:     chart.Style{FillColor: transparent},
		XAxis: chart.XAxis{
			Name:  data.nameX,
			Ticks: data.generateXTicks(),
		},
		YAxis: chart.YAxis{
			Name: data.getNameYAxis(),
			ValueFormatter: func(v interface{}) string {
				if vf, isFloat := v.(float64); isFloat {
					return fmt.Sprintf("%.2f", vf)
				}
				return ""
			},
		},
		Series: []chart.Series{
			&chart.ContinuousSeries{
				Name:    data.getNameYAxis(),
				XValues: xs,
				YValues: ys,
				Style: chart.Style{
					StrokeColor: color,
					StrokeWidth: 3,
					DotColor:    color,
					DotWidth:    4,
				},
			},
		},
	}
	// одна точка по X или ровная линия по Y дают нулевой диапазон
	if len(xs) == 1 {
		graph.XAxis.Range = &chart.ContinuousRange{Min: xs[0] - 0.5, Max: xs[0] + 0.5}
	}
	if minY, maxY := findMinValue(ys), findMaxValue(ys); minY == maxY {
		graph.YAxis.Range = &chart.ContinuousRange{Min: minY - 1, Max: maxY + 1}
	}
	return render(graph)
}

// barRange keeps zero on the axis for a flat series.
func barRange(v float64) *chart.ContinuousRange {
	if v == 0 {
		return &chart.ContinuousRange{Min: 0, Max: 1}
	}
	return &chart.ContinuousRange{Min: math.Min(v, 0), Max: math.Max(v, 0)}
}

type pngRenderable interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

func render(c pngRenderable) ([]byte, error) {
	buffer := bytes.NewBuffer([]byte{})
	if err := c.Render(chart.PNG, buffer); err != nil {
		return nil, fmt.Errorf("error rendering chart: %w", err)
	}
	return buffer.Bytes(), nil
}

func calculateGridStep(maxValue float64) float64 {
	// Проверка на корректность входного значения
	if maxValue <= 0 {
		return 0
	}
	// Обработка очень маленьких чисел
	if maxValue < 1e-10 {
		return 1e-10
	}

	// Находим порядок величины максимального значения
	magnitude := math.Pow(10, math.Floor(math.Log10(maxValue)))
	// Нормализуем значение к диапазону [1, 10)
	normalized := maxValue / magnitude

	var step float64
	switch {
	case normalized <= 1:
		step = 0.2
	case normalized <= 2:
		step = 0.5
	case normalized <= 5:
		step = 1.0
	default:
		step = 2.0
	}
	finalStep := step * magnitude

	// Округляем большие шаги до "красивых" чисел
	if finalStep >= 1000 {
		return math.Round(finalStep/100) * 100
	}
	if finalStep >= 100 {
		return math.Round(finalStep/10) * 10
	}
	return finalStep
}

func findMaxValue(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	max := y[0]
	for _, v := range y {
		if v > max {
			max = v
		}
	}
	return max
}

func findMinValue(y []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	min := y[0]
	for _, v := range y {
		if v < min {
			min = v
		}
	}
	return min
}

func customizePaddingXBottom(values []chart.Value) int {
	count := 0
	for _, v := range values {
		if len(v.Label) > count {
			count = len(v.Label)
		}
	}
	return count * 6
}
