// Package columns decides which summary columns may be offered as the
// categorical and the continuous side of an aggregation.
package columns

import "github.com/pivolan/eda_dashboard/domain/models"

// Kind is the semantic role a backend dtype maps to.
type Kind int

const (
	KindUnclassified Kind = iota
	KindCategorical
	KindNumeric
)

func (k Kind) String() string {
	switch k {
	case KindCategorical:
		return "categorical"
	case KindNumeric:
		return "numeric"
	default:
		return "unclassified"
	}
}

// dtypeKinds is the full set of recognized backend dtypes. Anything else,
// booleans and dates included, is KindUnclassified and is never offered.
var dtypeKinds = map[string]Kind{
	"String":      KindCategorical,
	"Utf8":        KindCategorical,
	"Categorical": KindCategorical,
	"Int64":       KindNumeric,
	"Int32":       KindNumeric,
	"Int16":       KindNumeric,
	"Int8":        KindNumeric,
	"Float64":     KindNumeric,
	"Float32":     KindNumeric,
}

func KindOf(dtype string) Kind {
	return dtypeKinds[dtype]
}

type Candidates struct {
	Categorical []string `json:"categorical"`
	Numeric     []string `json:"numeric"`
}

// Classify splits summary columns by dtype, keeping the backend's column
// order. Without a summary every uploaded column is offered for both roles
// and the backend is left to reject a bad combination.
func Classify(summary *models.Summary, fallback []string) Candidates {
	if summary == nil {
		return Candidates{Categorical: fallback, Numeric: fallback}
	}
	c := Candidates{Categorical: []string{}, Numeric: []string{}}
	for _, col := range summary.Columns {
		switch KindOf(col.Dtype) {
		case KindCategorical:
			c.Categorical = append(c.Categorical, col.Column)
		case KindNumeric:
			c.Numeric = append(c.Numeric, col.Column)
		}
	}
	return c
}

// MissingColumns returns the columns that have at least one missing value.
func MissingColumns(summary *models.Summary) []models.ColumnMeta {
	if summary == nil {
		return nil
	}
	var out []models.ColumnMeta
	for _, col := range summary.Columns {
		if col.Missing > 0 {
			out = append(out, col)
		}
	}
	return out
}
