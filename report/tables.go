// Package report renders summaries and aggregation results as text tables
// and spreadsheets.
package report

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/pivolan/eda_dashboard/aggregation"
	"github.com/pivolan/eda_dashboard/domain/models"
	"github.com/pivolan/eda_dashboard/plot"
)

type Format int

const (
	FormatText Format = iota
	FormatMarkdown
)

func render(t table.Writer, format Format) string {
	style := table.StyleDefault
	// имена колонок показываем как есть, без upper case
	style.Format.Header = text.FormatDefault
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)
	if format == FormatMarkdown {
		return t.RenderMarkdown()
	}
	return t.Render()
}

// SummaryTable lists every column of the summary with its dtype, missing
// and unique counts.
func SummaryTable(summary *models.Summary, format Format) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("Total Rows: %d, Total Columns: %d", summary.NumRows, summary.NumColumns))
	t.AppendHeader(table.Row{"Column", "Data Type", "Missing Values", "Unique Values"})
	for _, c := range summary.Columns {
		t.AppendRow(table.Row{c.Column, c.Dtype, c.Missing, c.Unique})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	return render(t, format)
}

// AggregationTable renders a validated result as a two column table under
// the "<fn>(<continuous>) by <group>" title. A malformed result is an error.
func AggregationTable(result models.AggregationResult, fn models.AggregationFunction, format Format) (string, error) {
	keys, err := aggregation.Validate(result)
	if err != nil {
		return "", err
	}
	categories, values := aggregation.Columns(result, keys)

	t := table.NewWriter()
	t.AppendHeader(table.Row{keys.Group, keys.Value})
	for i := range categories {
		t.AppendRow(table.Row{plot.FormatLabel(categories[i]), plot.FormatLabel(values[i])})
	}
	if s, err := ValueSummary(values); err == nil {
		t.AppendFooter(table.Row{"mean", plot.FormatValue(s.Mean)})
	}
	// заголовок отдельной строкой, go-pretty переносит title по ширине узкой таблицы
	title := "Aggregation Results: " + plot.Title(result, keys, fn)
	return title + "\n" + render(t, format), nil
}
