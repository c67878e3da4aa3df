// Package backend talks to the EDA backend over HTTP. It sends each request
// once: no retries and no de-duplication.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/pivolan/eda_dashboard/domain/models"
	"github.com/pivolan/eda_dashboard/upload"
)

const DefaultBaseURL = "http://localhost:8000"

type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the backend at baseURL. A zero timeout
// leaves requests bounded only by their context.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *Client) BaseURL() string { return c.baseURL }

// Upload posts the file as multipart field "file" to /upload/.
func (c *Client) Upload(ctx context.Context, f upload.File) (*models.UploadResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(f.Name)))
	contentType := f.ContentType
	if contentType == "" {
		contentType = upload.CSVContentType
	}
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if _, err := part.Write(f.Data); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/", &body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out models.UploadResponse
	if err := c.do(req, OpUpload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Summary fetches the column summary of the last uploaded file.
func (c *Client) Summary(ctx context.Context) (*models.Summary, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/summary/", nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	var out models.Summary
	if err := c.do(req, OpSummary, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Aggregate asks the backend to group the continuous column by the
// categorical one.
func (c *Client) Aggregate(ctx context.Context, r models.AggregationRequest) (*models.AggregationResult, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}
	q := url.Values{}
	q.Set("cat_col", r.CategoricalColumn)
	q.Set("con_col", r.ContinuousColumn)
	q.Set("agg_func", string(r.Function))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/aggregate/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	var out models.AggregationResult
	if err := c.do(req, OpAggregate, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(req *http.Request, op Op, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); errors.Is(ctxErr, context.Canceled) {
			return ctxErr
		}
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &RequestFailedError{Op: op, Status: resp.StatusCode, Detail: detail(op, body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func detail(op Op, body []byte) string {
	var d models.ErrorDetail
	if err := json.Unmarshal(body, &d); err != nil || d.Detail == "" {
		return defaultDetail(op)
	}
	return d.Detail
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}
