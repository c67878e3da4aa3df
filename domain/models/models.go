package models

import (
	"errors"
	"fmt"
	"strings"
)

// ColumnMeta is one column of a backend summary.
type ColumnMeta struct {
	Column  string `json:"column"`
	Dtype   string `json:"dtype"`
	Missing int64  `json:"missing"`
	Unique  int64  `json:"unique"`
}

// Summary is what GET /summary/ returns. len(Columns) == NumColumns is the
// backend's promise, it is not checked here.
type Summary struct {
	NumRows    int64        `json:"num_rows"`
	NumColumns int64        `json:"num_columns"`
	Columns    []ColumnMeta `json:"columns"`
}

type UploadResponse struct {
	Message string   `json:"message"`
	Columns []string `json:"columns"`
}

// ErrorDetail is the body of every non-2xx backend response.
type ErrorDetail struct {
	Detail string `json:"detail"`
}

type AggregationFunction string

const (
	AggSum     AggregationFunction = "sum"
	AggMean    AggregationFunction = "mean"
	AggMin     AggregationFunction = "min"
	AggMax     AggregationFunction = "max"
	AggCount   AggregationFunction = "count"
	AggNUnique AggregationFunction = "n_unique"
	AggMedian  AggregationFunction = "median"
	AggStd     AggregationFunction = "std"
)

// DefaultAggregationFunction is preselected in every form.
const DefaultAggregationFunction = AggMean

// AggregationFunctions lists the functions in the order the forms show them.
var AggregationFunctions = []AggregationFunction{
	AggSum, AggMean, AggMin, AggMax, AggCount, AggNUnique, AggMedian, AggStd,
}

func ParseAggregationFunction(s string) (AggregationFunction, error) {
	s = strings.TrimSpace(s)
	for _, f := range AggregationFunctions {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown aggregation function %q", s)
}

var ErrColumnsNotSelected = errors.New("both categorical and continuous columns must be selected")

// AggregationRequest is one GET /aggregate/ call.
type AggregationRequest struct {
	CategoricalColumn string
	ContinuousColumn  string
	Function          AggregationFunction
}

// Validate reports whether the request may be sent to the backend.
func (r AggregationRequest) Validate() error {
	if r.CategoricalColumn == "" || r.ContinuousColumn == "" {
		return ErrColumnsNotSelected
	}
	if _, err := ParseAggregationFunction(string(r.Function)); err != nil {
		return err
	}
	return nil
}

// AggregateEntry is one key of the result's "aggregate" mapping.
type AggregateEntry struct {
	Column   string
	Function string
}

// DataColumn is one key of the result's "data" mapping. Values holds
// string, float64, bool or nil elements when IsArray is set.
type DataColumn struct {
	Name    string
	IsArray bool
	Values  []interface{}
}

// AggregationResult keeps "aggregate" and "data" in the order the backend
// sent their keys, see UnmarshalJSON.
type AggregationResult struct {
	GroupBy   string
	Aggregate []AggregateEntry
	Data      []DataColumn
}

// Lookup returns the data column with the given name.
func (r AggregationResult) Lookup(name string) (DataColumn, bool) {
	for _, c := range r.Data {
		if c.Name == name {
			return c, true
		}
	}
	return DataColumn{}, false
}

// ContinuousColumn is the single key of "aggregate", empty when there is none.
func (r AggregationResult) ContinuousColumn() string {
	if len(r.Aggregate) == 0 {
		return ""
	}
	return r.Aggregate[0].Column
}
