package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pivolan/eda_dashboard/domain/models"
	"github.com/pivolan/eda_dashboard/upload"
)

func TestUpload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload/", r.URL.Path)
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)
		assert.Equal(t, "sales.csv", header.Filename)
		assert.Equal(t, "text/csv", header.Header.Get("Content-Type"))
		assert.Equal(t, "city,sales\nA,1\n", string(data))
		w.Write([]byte(`{"message":"File uploaded successfully","columns":["city","sales"]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", time.Second)
	resp, err := c.Upload(context.Background(), upload.File{Name: "sales.csv", ContentType: "text/csv", Data: []byte("city,sales\nA,1\n")})
	require.NoError(t, err)
	assert.Equal(t, "File uploaded successfully", resp.Message)
	assert.Equal(t, []string{"city", "sales"}, resp.Columns)
}

func TestSummary(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/summary/", r.URL.Path)
		w.Write([]byte(`{"num_rows":2,"num_columns":2,"columns":[{"column":"city","dtype":"String","missing":0,"unique":2},{"column":"sales","dtype":"Float64","missing":1,"unique":1}]}`))
	}))
	defer srv.Close()

	s, err := NewClient(srv.URL, 0).Summary(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, s.NumRows)
	require.Len(t, s.Columns, 2)
	assert.Equal(t, models.ColumnMeta{Column: "sales", Dtype: "Float64", Missing: 1, Unique: 1}, s.Columns[1])
}

func TestAggregateQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/aggregate/", r.URL.Path)
		assert.Equal(t, "my city", r.URL.Query().Get("cat_col"))
		assert.Equal(t, "sales&tax", r.URL.Query().Get("con_col"))
		assert.Equal(t, "n_unique", r.URL.Query().Get("agg_func"))
		w.Write([]byte(`{"group_by":"my city","aggregate":{"sales&tax":"n_unique"},"data":{"my city":["A"],"sales&tax":[3]}}`))
	}))
	defer srv.Close()

	res, err := NewClient(srv.URL, 0).Aggregate(context.Background(), models.AggregationRequest{
		CategoricalColumn: "my city",
		ContinuousColumn:  "sales&tax",
		Function:          models.AggNUnique,
	})
	require.NoError(t, err)
	assert.Equal(t, "my city", res.GroupBy)
	assert.Equal(t, "sales&tax", res.ContinuousColumn())
}

func TestAggregateNeedsBothColumns(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Aggregate(context.Background(), models.AggregationRequest{CategoricalColumn: "city", Function: models.AggMean})
	assert.ErrorIs(t, err, models.ErrColumnsNotSelected)
	assert.False(t, called)
}

func TestRequestFailed(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantDetail  string
		wantMessage string
	}{
		{"detail verbatim", http.StatusBadRequest, `{"detail":"Column not found"}`, "Column not found", "Error performing aggregation: Column not found"},
		{"no detail", http.StatusInternalServerError, `oops`, "Aggregation failed", "Error performing aggregation: Aggregation failed"},
		{"validation list", http.StatusUnprocessableEntity, `{"detail":[{"msg":"bad"}]}`, "Aggregation failed", "Error performing aggregation: Aggregation failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, 0).Aggregate(context.Background(), models.AggregationRequest{CategoricalColumn: "a", ContinuousColumn: "b", Function: models.AggSum})
			var rf *RequestFailedError
			require.True(t, errors.As(err, &rf))
			assert.Equal(t, OpAggregate, rf.Op)
			assert.Equal(t, tt.status, rf.Status)
			assert.Equal(t, tt.wantDetail, rf.Detail)
			assert.Equal(t, tt.wantMessage, rf.Message())
		})
	}
}

func TestUploadFailedDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, 0).Upload(context.Background(), upload.File{Name: "a.csv", Data: []byte("a,b\n1,2\n")})
	var rf *RequestFailedError
	require.True(t, errors.As(err, &rf))
	assert.Equal(t, "Upload failed", rf.Message())
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second)
	_, err := c.Summary(context.Background())
	var ne *NetworkError
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "Network error occurred while fetching summary", ne.Message())

	_, err = c.Aggregate(context.Background(), models.AggregationRequest{CategoricalColumn: "a", ContinuousColumn: "b", Function: models.AggSum})
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "Network error occurred during aggregation", ne.Message())

	_, err = c.Upload(context.Background(), upload.File{Name: "a.csv", Data: []byte("x")})
	require.True(t, errors.As(err, &ne))
	assert.Equal(t, "Network error occurred", ne.Message())
}

func TestDefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("", 0).BaseURL())
}
