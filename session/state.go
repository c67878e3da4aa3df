package session

import (
	"errors"
	"fmt"
)

type UploadState int

const (
	Idle UploadState = iota
	Uploading
	UploadSucceeded
	UploadFailed
)

var stateNames = map[UploadState]string{
	Idle:            "idle",
	Uploading:       "uploading",
	UploadSucceeded: "success",
	UploadFailed:    "error",
}

func (s UploadState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s UploadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *UploadState) UnmarshalText(b []byte) error {
	for state, name := range stateNames {
		if name == string(b) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown upload state %q", b)
}

var (
	ErrUploadInFlight = errors.New("an upload is already in progress")
	// ErrStaleResponse is returned when a newer request overtook this one.
	// The response was dropped and nothing changed.
	ErrStaleResponse = errors.New("response superseded by a newer request")
)

// Notices shown for rejected user actions.
const (
	NoticeSelectFile    = "Please select a file first"
	NoticeInvalidCSV    = "Please select a valid CSV file"
	NoticeSelectColumns = "Please select both categorical and continuous columns"
)
