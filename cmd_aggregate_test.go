package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivolan/eda_dashboard/session"
	"github.com/pivolan/eda_dashboard/upload"
)

func cityFile() upload.File {
	return upload.File{Name: "city.csv", ContentType: "text/csv", Data: []byte(cityCSV)}
}

func TestRunAggregate(t *testing.T) {
	tests := []struct {
		name  string
		out   string
		check func(t *testing.T, b []byte)
	}{
		{"png", "chart.png", func(t *testing.T, b []byte) {
			_, err := png.Decode(bytes.NewReader(b))
			assert.NoError(t, err)
		}},
		{"html", "chart.html", func(t *testing.T, b []byte) {
			assert.Contains(t, string(b), "echarts")
		}},
		{"extension added", "chart", func(t *testing.T, b []byte) {
			assert.NotEmpty(t, b)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.out)
			opts := aggregateOptions{Cat: "city", Con: "sales", Func: "sum", Kind: "bar", Out: path}
			var out bytes.Buffer

			sess := session.New("cli", newStubBackend(), 0)
			require.NoError(t, runAggregate(context.Background(), sess, cityFile(), opts, &out))

			assert.Contains(t, out.String(), "Total Rows: 2, Total Columns: 2")
			assert.Contains(t, out.String(), "Aggregation Results: sum(sales) by city")

			if !strings.HasSuffix(path, ".png") && !strings.HasSuffix(path, ".html") {
				path += ".png"
			}
			b, err := os.ReadFile(path)
			require.NoError(t, err)
			tt.check(t, b)
		})
	}
}

func TestRunAggregateNoChartData(t *testing.T) {
	fb := newStubBackend()
	fb.result = `{"group_by":"city","aggregate":{"sales":"sum"},"data":{"city":["A","B"],"sales":[0,0]}}`
	path := filepath.Join(t.TempDir(), "pie.png")
	opts := aggregateOptions{Cat: "city", Con: "sales", Func: "sum", Kind: "pie", Out: path}
	var out bytes.Buffer

	require.NoError(t, runAggregate(context.Background(), session.New("cli", fb, 0), cityFile(), opts, &out))
	assert.Contains(t, out.String(), "no data to chart")
	assert.NoFileExists(t, path)
}

func TestRunAggregateListsColumns(t *testing.T) {
	fb := newStubBackend()
	var out bytes.Buffer
	require.NoError(t, runAggregate(context.Background(), session.New("cli", fb, 0), cityFile(), aggregateOptions{Kind: "bar"}, &out))

	assert.Contains(t, out.String(), "categorical: city")
	assert.Contains(t, out.String(), "numeric: sales")
	assert.Empty(t, fb.requests)
}

func TestRunAggregateErrors(t *testing.T) {
	opts := aggregateOptions{Cat: "city", Con: "sales", Out: filepath.Join(t.TempDir(), "c.png")}

	t.Run("rejected file", func(t *testing.T) {
		f := upload.File{Name: "a.png", ContentType: "image/png", Data: []byte("\x89PNG")}
		err := runAggregate(context.Background(), session.New("cli", newStubBackend(), 0), f, opts, &bytes.Buffer{})
		require.Error(t, err)
		assert.Equal(t, session.NoticeInvalidCSV, err.Error())
	})

	t.Run("malformed result", func(t *testing.T) {
		fb := newStubBackend()
		fb.result = `{"group_by":"city","aggregate":{},"data":{"city":["A"]}}`
		err := runAggregate(context.Background(), session.New("cli", fb, 0), cityFile(), opts, &bytes.Buffer{})
		require.Error(t, err)
		assert.Equal(t, "Error: Invalid data structure for visualization", err.Error())
	})

	t.Run("only one column", func(t *testing.T) {
		o := opts
		o.Con = ""
		err := runAggregate(context.Background(), session.New("cli", newStubBackend(), 0), cityFile(), o, &bytes.Buffer{})
		require.Error(t, err)
		assert.Equal(t, session.NoticeSelectColumns, err.Error())
	})
}
