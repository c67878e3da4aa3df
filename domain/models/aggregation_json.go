package models

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/tidwall/gjson"
)

// UnmarshalJSON walks the payload with gjson instead of decoding into maps
// so the key order of "aggregate" and "data" survives. Shape problems inside
// "data" are not errors here; the aggregation validator reports them.
func (r *AggregationResult) UnmarshalJSON(b []byte) error {
	if !gjson.ValidBytes(b) {
		return errors.New("aggregation result is not valid json")
	}
	root := gjson.ParseBytes(b)
	if !root.IsObject() {
		return errors.New("aggregation result is not a json object")
	}

	*r = AggregationResult{GroupBy: root.Get("group_by").String()}

	if agg := root.Get("aggregate"); agg.IsObject() {
		agg.ForEach(func(key, value gjson.Result) bool {
			r.Aggregate = append(r.Aggregate, AggregateEntry{Column: key.String(), Function: value.String()})
			return true
		})
	}

	if data := root.Get("data"); data.IsObject() {
		data.ForEach(func(key, value gjson.Result) bool {
			col := DataColumn{Name: key.String(), IsArray: value.IsArray()}
			if col.IsArray {
				elems := value.Array()
				col.Values = make([]interface{}, 0, len(elems))
				for _, e := range elems {
					col.Values = append(col.Values, primitive(e))
				}
			}
			r.Data = append(r.Data, col)
			return true
		})
	}
	return nil
}

func primitive(e gjson.Result) interface{} {
	switch e.Type {
	case gjson.Null:
		return nil
	case gjson.True, gjson.False:
		return e.Bool()
	case gjson.Number:
		return e.Float()
	case gjson.String:
		return e.Str
	default:
		// nested arrays and objects are kept as their raw text
		return e.Raw
	}
}

// MarshalJSON writes the backend shape back out, keys in stored order.
// Columns that were not arrays are written as null.
func (r AggregationResult) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"group_by":`)
	if err := writeJSON(&buf, r.GroupBy); err != nil {
		return nil, err
	}

	buf.WriteString(`,"aggregate":{`)
	for i, a := range r.Aggregate {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, a.Column); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		if err := writeJSON(&buf, a.Function); err != nil {
			return nil, err
		}
	}

	buf.WriteString(`},"data":{`)
	for i, c := range r.Data {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSON(&buf, c.Name); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		var v interface{}
		if c.IsArray {
			v = c.Values
			if c.Values == nil {
				v = []interface{}{}
			}
		}
		if err := writeJSON(&buf, v); err != nil {
			return nil, err
		}
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}
