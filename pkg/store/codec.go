// Package store defines the Serializer/Store interfaces for the persisted
// variant of an archive (spec §1: deliberately peripheral, but still given a
// concrete home here so the dependency surface named in SPEC_FULL.md §B is
// exercised) and the wire grammar of spec §6.
package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kasuganosora/historystore/pkg/timestamp"
	"github.com/kasuganosora/historystore/pkg/value"
)

// scalarWire is the tagged encoding of a value.Scalar. encoding/json alone
// cannot distinguish an int64 from a float64 that happens to be integral, or
// tell a date-time string from ordinary text, so every scalar is wrapped
// with its Kind to stay round-trip preserving (spec §6, grammar note).
type scalarWire struct {
	K int             `json:"k"`
	V json.RawMessage `json:"v,omitempty"`
}

func encodeScalar(s value.Scalar) (scalarWire, error) {
	w := scalarWire{K: int(s.Kind())}
	var raw []byte
	var err error
	switch s.Kind() {
	case value.KindNull:
		return w, nil
	case value.KindBool:
		raw, err = json.Marshal(s.Bool())
	case value.KindInt:
		raw, err = json.Marshal(s.Int())
	case value.KindFloat:
		raw, err = json.Marshal(s.Float())
	case value.KindText:
		raw, err = json.Marshal(s.String())
	case value.KindTime:
		raw, err = json.Marshal(s.Time().Format(time.RFC3339Nano))
	case value.KindTuple:
		elems := s.Tuple()
		wires := make([]scalarWire, len(elems))
		for i, e := range elems {
			ew, err := encodeScalar(e)
			if err != nil {
				return scalarWire{}, err
			}
			wires[i] = ew
		}
		raw, err = json.Marshal(wires)
	default:
		return scalarWire{}, fmt.Errorf("encode scalar: unknown kind %d: %w", s.Kind(), ErrSerialization)
	}
	if err != nil {
		return scalarWire{}, fmt.Errorf("encode scalar: %v: %w", err, ErrSerialization)
	}
	w.V = raw
	return w, nil
}

func decodeScalar(w scalarWire) (value.Scalar, error) {
	switch value.Kind(w.K) {
	case value.KindNull:
		return value.Null, nil
	case value.KindBool:
		var b bool
		if err := json.Unmarshal(w.V, &b); err != nil {
			return value.Scalar{}, fmt.Errorf("decode bool scalar: %v: %w", err, ErrSerialization)
		}
		return value.Bool(b), nil
	case value.KindInt:
		var i int64
		if err := json.Unmarshal(w.V, &i); err != nil {
			return value.Scalar{}, fmt.Errorf("decode int scalar: %v: %w", err, ErrSerialization)
		}
		return value.Int(i), nil
	case value.KindFloat:
		var f float64
		if err := json.Unmarshal(w.V, &f); err != nil {
			return value.Scalar{}, fmt.Errorf("decode float scalar: %v: %w", err, ErrSerialization)
		}
		return value.Float(f), nil
	case value.KindText:
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return value.Scalar{}, fmt.Errorf("decode text scalar: %v: %w", err, ErrSerialization)
		}
		return value.Text(s), nil
	case value.KindTime:
		var s string
		if err := json.Unmarshal(w.V, &s); err != nil {
			return value.Scalar{}, fmt.Errorf("decode time scalar: %v: %w", err, ErrSerialization)
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return value.Scalar{}, fmt.Errorf("decode time scalar: %v: %w", err, ErrSerialization)
		}
		return value.Time(t), nil
	case value.KindTuple:
		var wires []scalarWire
		if err := json.Unmarshal(w.V, &wires); err != nil {
			return value.Scalar{}, fmt.Errorf("decode tuple scalar: %v: %w", err, ErrSerialization)
		}
		elems := make([]value.Scalar, len(wires))
		for i, ew := range wires {
			e, err := decodeScalar(ew)
			if err != nil {
				return value.Scalar{}, err
			}
			elems[i] = e
		}
		return value.Tuple(elems), nil
	default:
		return value.Scalar{}, fmt.Errorf("decode scalar: unknown kind %d: %w", w.K, ErrSerialization)
	}
}

// timestampWire is TIMESTAMP ::= [ [int,int] (, [int,int])* ].
type timestampWire [][2]int64

func encodeTimestamp(t timestamp.Timestamp) timestampWire {
	ivs := t.Intervals()
	w := make(timestampWire, len(ivs))
	for i, iv := range ivs {
		w[i] = [2]int64{iv.Start, iv.End}
	}
	return w
}

func decodeTimestamp(w timestampWire) timestamp.Timestamp {
	ivs := make([]timestamp.Interval, len(w))
	for i, p := range w {
		ivs[i] = timestamp.Interval{Start: p[0], End: p[1]}
	}
	return timestamp.FromIntervals(ivs)
}

// tvWire is SINGLE-VALUE ::= { ("t": TIMESTAMP,)? "v": scalar }.
type tvWire struct {
	T timestampWire `json:"t,omitempty"`
	V scalarWire    `json:"v"`
}

// encodeMVV implements TV ::= SINGLE-VALUE | MULTI-VALUE: a singleton whose
// timestamp equals the parent's is encoded bare (t omitted); anything else
// becomes the MULTI-VALUE array form.
func encodeMVV(mv value.MultiVersionValue, parentTS timestamp.Timestamp) (json.RawMessage, error) {
	versions := mv.Versions()
	if len(versions) == 1 && versions[0].Timestamp.IsEqual(parentTS) {
		sv, err := encodeScalar(versions[0].Value)
		if err != nil {
			return nil, err
		}
		return json.Marshal(tvWire{V: sv})
	}
	out := make([]tvWire, len(versions))
	for i, tv := range versions {
		sv, err := encodeScalar(tv.Value)
		if err != nil {
			return nil, err
		}
		out[i] = tvWire{T: encodeTimestamp(tv.Timestamp), V: sv}
	}
	return json.Marshal(out)
}

func decodeMVV(raw json.RawMessage, parentTS timestamp.Timestamp) (value.MultiVersionValue, error) {
	if len(raw) == 0 {
		return value.MultiVersionValue{}, fmt.Errorf("decode multi-version value: empty: %w", ErrSerialization)
	}
	switch raw[0] {
	case '[':
		var wires []tvWire
		if err := json.Unmarshal(raw, &wires); err != nil {
			return value.MultiVersionValue{}, fmt.Errorf("decode multi-value: %v: %w", err, ErrSerialization)
		}
		if len(wires) == 0 {
			return value.MultiVersionValue{}, fmt.Errorf("decode multi-value: empty array: %w", ErrSerialization)
		}
		tvs := make([]value.TimestampedValue, len(wires))
		for i, w := range wires {
			s, err := decodeScalar(w.V)
			if err != nil {
				return value.MultiVersionValue{}, err
			}
			tvs[i] = value.TimestampedValue{Value: s, Timestamp: decodeTimestamp(w.T)}
		}
		return value.FromVersions(tvs), nil
	default:
		var w tvWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return value.MultiVersionValue{}, fmt.Errorf("decode single-value: %v: %w", err, ErrSerialization)
		}
		s, err := decodeScalar(w.V)
		if err != nil {
			return value.MultiVersionValue{}, err
		}
		ts := parentTS
		if len(w.T) > 0 {
			ts = decodeTimestamp(w.T)
		}
		return value.Single(s, ts), nil
	}
}

