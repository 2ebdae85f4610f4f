package core

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Value is a series element that may be undefined (no observation, no signal).
type Value struct {
	V     float64
	Valid bool
}

// Defined wraps v as a defined value.
func Defined(v float64) Value {
	return Value{V: v, Valid: true}
}

// Undefined returns the undefined value.
func Undefined() Value {
	return Value{}
}

// String renders undefined values as "-".
func (v Value) String() string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%g", v.V)
}

// MarshalJSON encodes undefined values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid || math.IsNaN(v.V) || math.IsInf(v.V, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v.V)
}

// UnmarshalJSON decodes null as undefined.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = Defined(f)
	return nil
}

// Series is a time-indexed numeric series (prices, returns or positions).
type Series struct {
	Name   string
	Index  []time.Time
	Values []float64
}

// NewSeries builds a series from parallel slices.
func NewSeries(name string, index []time.Time, values []float64) Series {
	return Series{Name: name, Index: index, Values: values}
}

// Len returns the number of observations.
func (s Series) Len() int {
	return len(s.Values)
}

// Validate checks that index and values line up and timestamps strictly increase.
func (s Series) Validate() error {
	if len(s.Index) != len(s.Values) {
		return Errorf(ErrInvalidInput, "series %q: %d timestamps for %d values", s.Name, len(s.Index), len(s.Values))
	}
	for i := 1; i < len(s.Index); i++ {
		if !s.Index[i].After(s.Index[i-1]) {
			return Errorf(ErrInvalidInput, "series %q: timestamp %d (%s) is not after %s",
				s.Name, i, s.Index[i].Format(time.RFC3339), s.Index[i-1].Format(time.RFC3339))
		}
	}
	return nil
}

// Last returns the final observation, ok is false for an empty series.
func (s Series) Last() (time.Time, float64, bool) {
	if len(s.Values) == 0 {
		return time.Time{}, 0, false
	}
	n := len(s.Values) - 1
	return s.Index[n], s.Values[n], true
}

// SignalSeries is a time-indexed series whose elements may be undefined.
type SignalSeries struct {
	Name   string
	Index  []time.Time
	Values []Value
}

// Len returns the number of elements.
func (s SignalSeries) Len() int {
	return len(s.Values)
}

// Defined counts the defined elements.
func (s SignalSeries) Defined() int {
	n := 0
	for _, v := range s.Values {
		if v.Valid {
			n++
		}
	}
	return n
}

// Last returns the final element.
func (s SignalSeries) Last() (Value, bool) {
	if len(s.Values) == 0 {
		return Value{}, false
	}
	return s.Values[len(s.Values)-1], true
}

// SameIndex reports whether two indexes hold the same timestamps in the same order.
func SameIndex(a, b []time.Time) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Frame is a matrix of aligned series: one row per timestamp, one column per asset.
type Frame struct {
	Index   []time.Time
	Columns []string
	Data    [][]float64
}

// NewFrame stacks series sharing an identical index into a frame.
func NewFrame(series ...Series) (Frame, error) {
	if len(series) == 0 {
		return Frame{}, Errorf(ErrInvalidInput, "frame needs at least one series")
	}
	index := series[0].Index
	columns := make([]string, len(series))
	for j, s := range series {
		if err := s.Validate(); err != nil {
			return Frame{}, err
		}
		if !SameIndex(index, s.Index) {
			return Frame{}, Errorf(ErrAlignment, "series %q does not share the index of %q", s.Name, series[0].Name)
		}
		columns[j] = s.Name
	}

	data := make([][]float64, len(index))
	for i := range index {
		row := make([]float64, len(series))
		for j, s := range series {
			row[j] = s.Values[i]
		}
		data[i] = row
	}

	return Frame{Index: index, Columns: columns, Data: data}, nil
}

// Rows returns the number of observations.
func (f Frame) Rows() int {
	return len(f.Data)
}

// Cols returns the number of assets.
func (f Frame) Cols() int {
	return len(f.Columns)
}

// Column extracts one asset as a series.
func (f Frame) Column(name string) (Series, bool) {
	for j, c := range f.Columns {
		if c != name {
			continue
		}
		values := make([]float64, len(f.Data))
		for i, row := range f.Data {
			values[i] = row[j]
		}
		return Series{Name: name, Index: f.Index, Values: values}, true
	}
	return Series{}, false
}

// DropFirst returns the frame without its first row.
func (f Frame) DropFirst() Frame {
	if len(f.Data) == 0 {
		return f
	}
	return Frame{Index: f.Index[1:], Columns: f.Columns, Data: f.Data[1:]}
}

// Finite reports whether every cell is a finite number.
func (f Frame) Finite() bool {
	for _, row := range f.Data {
		for _, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
