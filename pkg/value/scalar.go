// Package value implements the scalar sum type and the timestamped-value
// machinery (TimestampedValue / MultiVersionValue) that every archived row,
// column, position, and cell is built from.
package value

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Kind tags which variant a Scalar holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	KindTime
	// KindTuple holds an ordered list of Scalars, used as the merge key for a
	// composite primary key (spec §4.4, "a list of column names"). It never
	// appears as a cell value, only as a Row/ArchiveRow key.
	KindTuple
)

// Scalar is the tagged union of values a cell, key, name, or position can
// hold: null, boolean, integer, float, text, a wall-clock instant, or (for a
// composite key) a tuple of Scalars.
type Scalar struct {
	kind  Kind
	b     bool
	i     int64
	f     float64
	s     string
	t     time.Time
	tuple []Scalar
}

// Null is the null scalar.
var Null = Scalar{kind: KindNull}

func Bool(b bool) Scalar   { return Scalar{kind: KindBool, b: b} }
func Int(i int64) Scalar   { return Scalar{kind: KindInt, i: i} }
func Float(f float64) Scalar { return Scalar{kind: KindFloat, f: f} }
func Text(s string) Scalar { return Scalar{kind: KindText, s: s} }
func Time(t time.Time) Scalar { return Scalar{kind: KindTime, t: t} }

// Tuple builds a composite-key scalar from its component column values, in
// declared primary-key column order.
func Tuple(vals []Scalar) Scalar {
	cp := make([]Scalar, len(vals))
	copy(cp, vals)
	return Scalar{kind: KindTuple, tuple: cp}
}

func (s Scalar) Kind() Kind { return s.kind }
func (s Scalar) IsNull() bool { return s.kind == KindNull }

func (s Scalar) Bool() bool       { return s.b }
func (s Scalar) Int() int64       { return s.i }
func (s Scalar) Float() float64   { return s.f }
func (s Scalar) String() string   { return s.s }
func (s Scalar) Time() time.Time  { return s.t }
func (s Scalar) Tuple() []Scalar  { return s.tuple }

// Equal implements the scalar equality defined in spec §3: temporal values
// compare by wall-clock instant, floats compare bit-exact, and NaN is unequal
// to everything including itself.
func Equal(a, b Scalar) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInt:
		return a.i == b.i
	case KindFloat:
		if math.IsNaN(a.f) || math.IsNaN(b.f) {
			return false
		}
		return math.Float64bits(a.f) == math.Float64bits(b.f)
	case KindText:
		return a.s == b.s
	case KindTime:
		return a.t.Equal(b.t)
	case KindTuple:
		if len(a.tuple) != len(b.tuple) {
			return false
		}
		for i := range a.tuple {
			if !Equal(a.tuple[i], b.tuple[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// Less defines a total order over scalars used to sort document rows by key:
// null sorts before any non-null value; within a kind the natural order
// applies; across differing non-null kinds, Kind order breaks the tie so the
// order stays total and deterministic.
func Less(a, b Scalar) bool {
	if a.kind == KindNull && b.kind == KindNull {
		return false
	}
	if a.kind == KindNull {
		return true
	}
	if b.kind == KindNull {
		return false
	}
	if a.kind != b.kind {
		return a.kind < b.kind
	}
	switch a.kind {
	case KindBool:
		return !a.b && b.b
	case KindInt:
		return a.i < b.i
	case KindFloat:
		return a.f < b.f
	case KindText:
		return a.s < b.s
	case KindTime:
		return a.t.Before(b.t)
	case KindTuple:
		n := len(a.tuple)
		if len(b.tuple) < n {
			n = len(b.tuple)
		}
		for i := 0; i < n; i++ {
			if Equal(a.tuple[i], b.tuple[i]) {
				continue
			}
			return Less(a.tuple[i], b.tuple[i])
		}
		return len(a.tuple) < len(b.tuple)
	default:
		return false
	}
}

func (s Scalar) GoString() string {
	switch s.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", s.b)
	case KindInt:
		return fmt.Sprintf("%d", s.i)
	case KindFloat:
		return fmt.Sprintf("%v", s.f)
	case KindText:
		return fmt.Sprintf("%q", s.s)
	case KindTime:
		return s.t.Format(time.RFC3339Nano)
	case KindTuple:
		parts := make([]string, len(s.tuple))
		for i, v := range s.tuple {
			parts[i] = v.GoString()
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
	default:
		return "?"
	}
}
