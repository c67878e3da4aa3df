// Package session keeps the per-user dashboard state: the selected file,
// the upload outcome, the summary, the last aggregation result and what the
// chart panel shows. Handlers of every surface go through a Session.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pivolan/eda_dashboard/backend"
	"github.com/pivolan/eda_dashboard/columns"
	"github.com/pivolan/eda_dashboard/domain/models"
	"github.com/pivolan/eda_dashboard/plot"
	"github.com/pivolan/eda_dashboard/upload"
)

// Backend is the part of backend.Client a session needs.
type Backend interface {
	Upload(ctx context.Context, f upload.File) (*models.UploadResponse, error)
	Summary(ctx context.Context) (*models.Summary, error)
	Aggregate(ctx context.Context, r models.AggregationRequest) (*models.AggregationResult, error)
}

type Session struct {
	ID string

	backend     Backend
	uploadLimit int64

	mu            sync.Mutex
	file          *upload.File
	state         UploadState
	uploadMessage string
	columns       []string
	summary       *models.Summary
	result        *models.AggregationResult
	resultRequest models.AggregationRequest
	notice        string
	pending       int
	// generation of the uploaded file, a summary is only kept for the file it was asked for
	generation uint64
	// newest aggregation token handed out
	issued    uint64
	chartKind plot.Kind
	showChart bool
	touched   time.Time
}

// New creates a session in the Idle state with a visible bar chart.
// uploadLimit caps the selected file size in bytes, 0 means no cap.
func New(id string, b Backend, uploadLimit int64) *Session {
	return &Session{
		ID:          id,
		backend:     b,
		uploadLimit: uploadLimit,
		chartKind:   plot.KindBar,
		showChart:   true,
		touched:     time.Now(),
	}
}

// SelectFile runs the pre-upload checks and keeps the file for Upload.
// A rejected file leaves the session as it was; no request is sent.
func (s *Session) SelectFile(f upload.File) error {
	prepared, err := upload.Prepare(f, s.uploadLimit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.touch()
	if err != nil {
		switch {
		case errors.Is(err, upload.ErrNoFile):
			s.notice = NoticeSelectFile
		case errors.Is(err, upload.ErrRejected):
			s.notice = NoticeInvalidCSV
		default:
			s.notice = err.Error()
		}
		log.Printf("session %s: file %q not selected: %v", s.ID, f.Name, err)
		return err
	}
	s.file = &prepared
	return nil
}

// Upload sends the selected file. On success the previous summary and
// result are cleared and the summary of the new file is fetched.
func (s *Session) Upload(ctx context.Context) error {
	s.mu.Lock()
	s.touch()
	if s.file == nil {
		s.notice = NoticeSelectFile
		s.mu.Unlock()
		return upload.ErrNoFile
	}
	if s.state == Uploading {
		s.mu.Unlock()
		return ErrUploadInFlight
	}
	s.state = Uploading
	s.uploadMessage = ""
	f := *s.file
	s.mu.Unlock()

	resp, err := s.backend.Upload(ctx, f)

	s.mu.Lock()
	if err != nil {
		s.state = UploadFailed
		s.uploadMessage = uploadFailureMessage(err)
		s.mu.Unlock()
		log.Printf("session %s: upload of %s failed: %v", s.ID, f.Name, err)
		return err
	}
	s.state = UploadSucceeded
	s.uploadMessage = resp.Message
	s.columns = append([]string(nil), resp.Columns...)
	s.summary = nil
	s.result = nil
	s.generation++
	// responses to requests made for the previous file are dropped
	s.issued++
	s.mu.Unlock()

	if err := s.FetchSummary(ctx); err != nil && !errors.Is(err, ErrStaleResponse) {
		log.Printf("session %s: summary after upload: %v", s.ID, err)
	}
	return nil
}

// FetchSummary asks the backend for the summary of the uploaded file.
// A failure keeps the previous summary and leaves a notice.
func (s *Session) FetchSummary(ctx context.Context) error {
	s.mu.Lock()
	s.pending++
	generation := s.generation
	s.mu.Unlock()

	summary, err := s.backend.Summary(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if generation != s.generation {
		log.Printf("session %s: dropping summary for an older upload", s.ID)
		return ErrStaleResponse
	}
	if err != nil {
		s.notice = failureNotice(err)
		log.Printf("session %s: summary failed: %v", s.ID, err)
		return err
	}
	s.summary = summary
	return nil
}

// Aggregate requests an aggregation. Only the response to the newest
// request is kept; older ones return ErrStaleResponse. A failure keeps the
// previous result and leaves a notice.
func (s *Session) Aggregate(ctx context.Context, req models.AggregationRequest) error {
	if req.Function == "" {
		req.Function = models.DefaultAggregationFunction
	}
	if err := req.Validate(); err != nil {
		s.mu.Lock()
		if errors.Is(err, models.ErrColumnsNotSelected) {
			s.notice = NoticeSelectColumns
		} else {
			s.notice = err.Error()
		}
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	s.touch()
	s.issued++
	token := s.issued
	s.pending++
	s.mu.Unlock()

	result, err := s.backend.Aggregate(ctx, req)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending--
	if token != s.issued {
		log.Printf("session %s: dropping aggregation response %d, newest request is %d", s.ID, token, s.issued)
		return ErrStaleResponse
	}
	if err != nil {
		s.notice = failureNotice(err)
		log.Printf("session %s: aggregation %s(%s) by %s failed: %v", s.ID, req.Function, req.ContinuousColumn, req.CategoricalColumn, err)
		return err
	}
	s.result = result
	s.resultRequest = req
	return nil
}

// Loading reports whether a summary or aggregation request is outstanding.
func (s *Session) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending > 0
}

// TakeNotice returns the pending notice and clears it.
func (s *Session) TakeNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.notice
	s.notice = ""
	return n
}

func (s *Session) State() UploadState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Summary() *models.Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Result returns the displayed aggregation result and the request it answers.
func (s *Session) Result() (*models.AggregationResult, models.AggregationRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.resultRequest
}

// Candidates lists the columns the aggregation form offers.
func (s *Session) Candidates() columns.Candidates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return columns.Classify(s.summary, s.columns)
}

func (s *Session) SetChartKind(k plot.Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chartKind = k
}

func (s *Session) ChartKind() plot.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.chartKind
}

// ToggleChart flips chart visibility and returns the new value.
func (s *Session) ToggleChart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.showChart = !s.showChart
	return s.showChart
}

func (s *Session) touch() {
	s.touched = time.Now()
}

func (s *Session) lastTouched() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

func uploadFailureMessage(err error) string {
	var rf *backend.RequestFailedError
	var ne *backend.NetworkError
	switch {
	case errors.As(err, &rf):
		return rf.Message()
	case errors.As(err, &ne):
		return ne.Message()
	}
	return "Upload failed"
}

func failureNotice(err error) string {
	var rf *backend.RequestFailedError
	var ne *backend.NetworkError
	switch {
	case errors.As(err, &rf):
		return rf.Message()
	case errors.As(err, &ne):
		return ne.Message()
	}
	return fmt.Sprintf("Request failed: %v", err)
}
