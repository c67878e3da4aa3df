package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pivolan/eda_dashboard/config"
	"github.com/pivolan/eda_dashboard/plot"
	"github.com/pivolan/eda_dashboard/report"
	"github.com/pivolan/eda_dashboard/session"
	"github.com/pivolan/eda_dashboard/upload"
)

type aggregateOptions struct {
	Cat      string
	Con      string
	Func     string
	Kind     string
	Out      string
	Markdown bool
}

var aggOpts aggregateOptions

var aggregateCmd = &cobra.Command{
	Use:   "aggregate <file.csv>",
	Short: "Upload a CSV, print its summary and chart one aggregation",
	Long: `Uploads the file to the backend and prints the column summary. With --cat and --con
it also requests the aggregation, prints the result table and writes the chart to --out
(PNG, or HTML when the name ends in .html).`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		sess := newStore(cfg).GetOrCreate("cli")
		f := upload.File{Name: filepath.Base(args[0]), ContentType: upload.ContentTypeFor(args[0]), Data: data}
		return runAggregate(cmd.Context(), sess, f, aggOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := aggregateCmd.Flags()
	f.StringVar(&aggOpts.Cat, "cat", "", "categorical column to group by")
	f.StringVar(&aggOpts.Con, "con", "", "continuous column to aggregate")
	f.StringVar(&aggOpts.Func, "func", "", "aggregation function (default mean)")
	f.StringVar(&aggOpts.Kind, "kind", "bar", "chart kind: bar, pie or line")
	f.StringVarP(&aggOpts.Out, "out", "o", "", "chart file, named after the chart title when empty")
	f.BoolVar(&aggOpts.Markdown, "markdown", false, "print tables as markdown")
}

func runAggregate(ctx context.Context, sess *session.Session, f upload.File, opts aggregateOptions, out io.Writer) error {
	format := report.FormatText
	if opts.Markdown {
		format = report.FormatMarkdown
	}

	if err := handleFile(ctx, sess, f); err != nil {
		return errors.New(userMessage(sess, err))
	}
	v := sess.Current()
	fmt.Fprintln(out, v.UploadMessage)
	if v.Summary == nil {
		return errors.New(noSummaryText(v))
	}
	fmt.Fprintln(out, report.SummaryTable(v.Summary, format))

	if opts.Cat == "" && opts.Con == "" {
		c := sess.Candidates()
		fmt.Fprintf(out, "categorical: %s\nnumeric: %s\n", joinOrDash(c.Categorical), joinOrDash(c.Numeric))
		return nil
	}

	req, err := parseAggregation(opts.Cat, opts.Con, opts.Func)
	if err != nil {
		return err
	}
	kind, err := parseChartKind(opts.Kind)
	if err != nil {
		return err
	}
	if err := sess.Aggregate(ctx, req); err != nil {
		return errors.New(userMessage(sess, err))
	}

	v = sess.View(kind)
	if v.Error != "" {
		return errors.New(v.Error)
	}
	table, err := report.AggregationTable(*v.Result, v.Request.Function, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)

	if v.Chart.Empty() {
		fmt.Fprintln(out, "no data to chart")
		return nil
	}
	path := opts.Out
	if path == "" {
		path = plot.FileName(*v.Chart, "png")
	}
	renderer := plot.RendererFor(path)
	if !strings.HasSuffix(strings.ToLower(path), "."+renderer.Extension()) {
		path += "." + renderer.Extension()
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := renderer.Render(file, *v.Chart); err != nil {
		if errors.Is(err, plot.ErrEmptyChart) {
			file.Close()
			os.Remove(path)
			fmt.Fprintln(out, "no data to chart")
			return nil
		}
		return fmt.Errorf("render %s: %w", path, err)
	}
	fmt.Fprintf(out, "chart written to %s\n", path)
	return nil
}
