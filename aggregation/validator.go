// Package aggregation guards every consumer of an aggregation result: the
// table and all chart kinds read result data only through Validate.
package aggregation

import (
	"errors"
	"fmt"
	"log"

	"github.com/pivolan/eda_dashboard/domain/models"
)

type Reason string

const (
	MissingGroupKey Reason = "MissingGroupKey"
	MissingValueKey Reason = "MissingValueKey"
	NotArray        Reason = "NotArray"
	LengthMismatch  Reason = "LengthMismatch"
)

var (
	ErrMissingGroupKey = &MalformedResultError{Reason: MissingGroupKey}
	ErrMissingValueKey = &MalformedResultError{Reason: MissingValueKey}
	ErrNotArray        = &MalformedResultError{Reason: NotArray}
	ErrLengthMismatch  = &MalformedResultError{Reason: LengthMismatch}
)

// MalformedResultError says why a result cannot be rendered. Two errors
// with the same Reason match under errors.Is.
type MalformedResultError struct {
	Reason Reason
	Detail string
}

func (e *MalformedResultError) Error() string {
	if e.Detail == "" {
		return "malformed aggregation result: " + string(e.Reason)
	}
	return fmt.Sprintf("malformed aggregation result: %s: %s", e.Reason, e.Detail)
}

func (e *MalformedResultError) Is(target error) bool {
	t, ok := target.(*MalformedResultError)
	return ok && t.Reason == e.Reason
}

// Message is the inline text shown in place of the chart and the table.
func (e *MalformedResultError) Message() string {
	switch e.Reason {
	case MissingGroupKey, MissingValueKey:
		return "Error: Invalid data structure for visualization"
	case NotArray:
		return "Error: Invalid data format for visualization"
	case LengthMismatch:
		return "Error: Data length mismatch"
	}
	return "Error: " + string(e.Reason)
}

// Keys are the two data keys a validated result is indexed by.
type Keys struct {
	Group string `json:"group"`
	Value string `json:"value"`
}

// Validate checks the result shape and returns the keys to read it with.
// When data has more than one non-group key the first one in payload
// order wins; the backend is not known to send more, so this is logged
// rather than rejected.
func Validate(result models.AggregationResult) (Keys, error) {
	groupKey := result.GroupBy
	if groupKey == "" {
		return Keys{}, &MalformedResultError{Reason: MissingGroupKey}
	}

	valueKey := ""
	extra := 0
	for _, col := range result.Data {
		if col.Name == groupKey {
			continue
		}
		if valueKey == "" {
			valueKey = col.Name
			continue
		}
		extra++
	}
	if valueKey == "" {
		return Keys{}, &MalformedResultError{Reason: MissingValueKey, Detail: fmt.Sprintf("no data key besides %q", groupKey)}
	}
	if extra > 0 {
		log.Printf("aggregation result has %d extra data keys, using %q as value key", extra, valueKey)
	}

	group, ok := result.Lookup(groupKey)
	if !ok || !group.IsArray {
		return Keys{}, &MalformedResultError{Reason: NotArray, Detail: groupKey}
	}
	value, _ := result.Lookup(valueKey)
	if !value.IsArray {
		return Keys{}, &MalformedResultError{Reason: NotArray, Detail: valueKey}
	}

	if len(group.Values) != len(value.Values) {
		return Keys{}, &MalformedResultError{
			Reason: LengthMismatch,
			Detail: fmt.Sprintf("%s has %d values, %s has %d", groupKey, len(group.Values), valueKey, len(value.Values)),
		}
	}
	return Keys{Group: groupKey, Value: valueKey}, nil
}

// Columns returns the group and value sequences of a validated result.
func Columns(result models.AggregationResult, keys Keys) (categories, values []interface{}) {
	group, _ := result.Lookup(keys.Group)
	value, _ := result.Lookup(keys.Value)
	return group.Values, value.Values
}

// AsMalformed unwraps err into a MalformedResultError.
func AsMalformed(err error) (*MalformedResultError, bool) {
	var m *MalformedResultError
	if errors.As(err, &m) {
		return m, true
	}
	return nil, false
}
