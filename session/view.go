package session

import (
	"github.com/pivolan/eda_dashboard/aggregation"
	"github.com/pivolan/eda_dashboard/columns"
	"github.com/pivolan/eda_dashboard/domain/models"
	"github.com/pivolan/eda_dashboard/plot"
)

// Row is one line of the aggregation table.
type Row struct {
	Category string `json:"category"`
	Value    string `json:"value"`
}

// View is a snapshot of everything a surface renders. Result data reaches
// the table and the chart only after validation; a malformed result shows
// up as Error and nothing else.
type View struct {
	SessionID     string                       `json:"session_id"`
	UploadState   UploadState                  `json:"upload_state"`
	UploadMessage string                       `json:"upload_message,omitempty"`
	FileName      string                       `json:"file_name,omitempty"`
	Columns       []string                     `json:"columns"`
	Summary       *models.Summary              `json:"summary,omitempty"`
	Missing       []models.ColumnMeta          `json:"missing,omitempty"`
	MissingChart  *plot.Spec                   `json:"missing_chart,omitempty"`
	Candidates    columns.Candidates           `json:"candidates"`
	Functions     []models.AggregationFunction `json:"functions"`
	Loading       bool                         `json:"loading"`
	Notice        string                       `json:"notice,omitempty"`

	Request models.AggregationRequest `json:"-"`
	Result  *models.AggregationResult `json:"result,omitempty"`
	Keys    *aggregation.Keys         `json:"keys,omitempty"`
	Title   string                    `json:"title,omitempty"`
	Rows    []Row                     `json:"rows,omitempty"`
	Error   string                    `json:"error,omitempty"`
	Chart   *plot.Spec                `json:"chart,omitempty"`

	ChartKind plot.Kind `json:"chart_kind"`
	ShowChart bool      `json:"show_chart"`
}

// HasResult reports whether there is a validated result to show.
func (v View) HasResult() bool {
	return v.Keys != nil
}

// View builds a snapshot drawing the chart as kind. The pending notice is
// included and cleared.
func (s *Session) View(kind plot.Kind) View {
	return s.view(kind, true)
}

// Peek is Current without consuming the notice. Chart and export requests
// use it so the page still shows the notice.
func (s *Session) Peek() View {
	return s.view(s.ChartKind(), false)
}

func (s *Session) view(kind plot.Kind, consume bool) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		SessionID:     s.ID,
		UploadState:   s.state,
		UploadMessage: s.uploadMessage,
		Columns:       append([]string{}, s.columns...),
		Summary:       s.summary,
		Candidates:    columns.Classify(s.summary, s.columns),
		Functions:     models.AggregationFunctions,
		Loading:       s.pending > 0,
		Notice:        s.notice,
		Request:       s.resultRequest,
		Result:        s.result,
		ChartKind:     kind,
		ShowChart:     s.showChart,
	}
	if consume {
		s.notice = ""
	}
	if s.file != nil {
		v.FileName = s.file.Name
	}
	if s.summary != nil {
		v.Missing = columns.MissingColumns(s.summary)
		if len(v.Missing) > 0 {
			spec := plot.MissingValuesSpec(v.Missing)
			v.MissingChart = &spec
		}
	}
	if s.result == nil {
		return v
	}

	keys, err := aggregation.Validate(*s.result)
	if err != nil {
		v.Error = "Error: " + err.Error()
		if m, ok := aggregation.AsMalformed(err); ok {
			v.Error = m.Message()
		}
		return v
	}
	v.Keys = &keys
	v.Title = plot.Title(*s.result, keys, s.resultRequest.Function)
	categories, values := aggregation.Columns(*s.result, keys)
	v.Rows = make([]Row, len(categories))
	for i := range categories {
		v.Rows[i] = Row{Category: plot.FormatLabel(categories[i]), Value: plot.FormatLabel(values[i])}
	}
	spec := plot.Adapt(*s.result, keys, kind, s.resultRequest.Function)
	v.Chart = &spec
	return v
}

// Current is View drawn with the session's chart kind.
func (s *Session) Current() View {
	return s.View(s.ChartKind())
}
