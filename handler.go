package main

import (
	"context"
	"errors"
	"strings"

	"github.com/pivolan/eda_dashboard/domain/models"
	"github.com/pivolan/eda_dashboard/plot"
	"github.com/pivolan/eda_dashboard/session"
	"github.com/pivolan/eda_dashboard/upload"
)

// handleFile runs the pre-upload checks on f and sends it to the backend.
// The summary is fetched by the session after a successful upload.
func handleFile(ctx context.Context, sess *session.Session, f upload.File) error {
	if err := sess.SelectFile(f); err != nil {
		return err
	}
	return sess.Upload(ctx)
}

// parseAggregation builds a request from user input. An empty function
// leaves the default to the session.
func parseAggregation(cat, con, fn string) (models.AggregationRequest, error) {
	req := models.AggregationRequest{
		CategoricalColumn: strings.TrimSpace(cat),
		ContinuousColumn:  strings.TrimSpace(con),
	}
	if strings.TrimSpace(fn) != "" {
		f, err := models.ParseAggregationFunction(fn)
		if err != nil {
			return req, err
		}
		req.Function = f
	}
	return req, nil
}

// parseChartKind returns the default kind for an empty string.
func parseChartKind(s string) (plot.Kind, error) {
	if strings.TrimSpace(s) == "" {
		return plot.KindBar, nil
	}
	return plot.ParseKind(s)
}

// userMessage turns a failed session call into the text shown to the user:
// the pending notice if there is one, otherwise the upload message.
func userMessage(sess *session.Session, err error) string {
	if errors.Is(err, session.ErrUploadInFlight) {
		return "Upload already in progress"
	}
	if notice := sess.TakeNotice(); notice != "" {
		return notice
	}
	if v := sess.Peek(); v.UploadState == session.UploadFailed && v.UploadMessage != "" {
		return v.UploadMessage
	}
	return err.Error()
}
