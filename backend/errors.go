package backend

import "fmt"

// Op names the backend call an error came from.
type Op string

const (
	OpUpload    Op = "upload"
	OpSummary   Op = "summary"
	OpAggregate Op = "aggregate"
)

// RequestFailedError is a non-2xx answer. Detail is the backend's "detail"
// text, or "<op> failed" when the body had none.
type RequestFailedError struct {
	Op     Op
	Status int
	Detail string
}

func (e *RequestFailedError) Error() string {
	return fmt.Sprintf("%s: backend returned %d: %s", e.Op, e.Status, e.Detail)
}

// Message is what the user is shown.
func (e *RequestFailedError) Message() string {
	switch e.Op {
	case OpSummary:
		return "Error fetching summary: " + e.Detail
	case OpAggregate:
		return "Error performing aggregation: " + e.Detail
	}
	return e.Detail
}

// NetworkError is a transport failure, the backend never answered.
type NetworkError struct {
	Op  Op
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

func (e *NetworkError) Message() string {
	switch e.Op {
	case OpSummary:
		return "Network error occurred while fetching summary"
	case OpAggregate:
		return "Network error occurred during aggregation"
	}
	return "Network error occurred"
}

func defaultDetail(op Op) string {
	switch op {
	case OpUpload:
		return "Upload failed"
	case OpSummary:
		return "Summary failed"
	}
	return "Aggregation failed"
}
