package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/montanaflynn/stats"
)

var ErrNoNumbers = errors.New("no numeric values")

// Stats describes the numeric part of an aggregated value column.
type Stats struct {
	Count  int
	Sum    float64
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	StdDev float64
	// nearest-rank percentiles keyed by percent
	Quantiles map[float64]float64
	IQR       float64
	// values outside [Q1 - 1.5*IQR, Q3 + 1.5*IQR]
	Outliers []float64
}

// Percents reported in Quantiles.
var QuantilePercents = []float64{1, 2.5, 10, 25, 75, 90, 97.5, 99}

// ValueSummary summarizes the numeric values, skipping nulls and anything
// that is not a number.
func ValueSummary(values []interface{}) (Stats, error) {
	data := make(stats.Float64Data, 0, len(values))
	for _, v := range values {
		if f, ok := v.(float64); ok {
			data = append(data, f)
		}
	}
	if len(data) == 0 {
		return Stats{}, ErrNoNumbers
	}

	var s Stats
	var err error
	s.Count = len(data)
	if s.Sum, err = data.Sum(); err != nil {
		return Stats{}, err
	}
	if s.Mean, err = data.Mean(); err != nil {
		return Stats{}, err
	}
	if s.Median, err = data.Median(); err != nil {
		return Stats{}, err
	}
	if s.Min, err = data.Min(); err != nil {
		return Stats{}, err
	}
	if s.Max, err = data.Max(); err != nil {
		return Stats{}, err
	}
	if s.StdDev, err = data.StandardDeviation(); err != nil {
		return Stats{}, err
	}

	s.Quantiles = make(map[float64]float64, len(QuantilePercents))
	for _, p := range QuantilePercents {
		q, err := data.PercentileNearestRank(p)
		if err != nil {
			return Stats{}, fmt.Errorf("percentile %v: %w", p, err)
		}
		s.Quantiles[p] = q
	}
	q1, q3 := s.Quantiles[25], s.Quantiles[75]
	s.IQR = q3 - q1
	s.Outliers = []float64{}
	for _, v := range data {
		if v < q1-1.5*s.IQR || v > q3+1.5*s.IQR {
			s.Outliers = append(s.Outliers, v)
		}
	}
	return s, nil
}

// StatsText форматирует статистику значений для вывода в Telegram
func StatsText(title string, s Stats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Статистика значений: %s\n\n", title)
	fmt.Fprintf(&b, "Количество: %d\nСумма: %.2f\nСреднее: %.2f\nМедиана: %.2f\nМинимум: %.2f\nМаксимум: %.2f\nСтанд. отклонение: %.2f\n\n",
		s.Count, s.Sum, s.Mean, s.Median, s.Min, s.Max, s.StdDev)
	b.WriteString("Квантили:\n")
	for _, p := range QuantilePercents {
		fmt.Fprintf(&b, "%v-й процентиль: %.2f\n", p, s.Quantiles[p])
	}
	fmt.Fprintf(&b, "\nМежквартильный размах (IQR): %.2f", s.IQR)
	if len(s.Outliers) > 0 {
		fmt.Fprintf(&b, "\nВыбросы: %.2f", s.Outliers)
	}
	return b.String()
}
