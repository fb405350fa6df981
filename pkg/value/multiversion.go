package value

import "github.com/kasuganosora/historystore/pkg/timestamp"

// TimestampedValue binds a scalar to the timestamp over which it held that
// value.
type TimestampedValue struct {
	Value     Scalar
	Timestamp timestamp.Timestamp
}

// MultiVersionValue is a list of TimestampedValues whose timestamps are
// pairwise disjoint and whose union equals the timestamp of the enclosing
// row/column. A single-element MultiVersionValue is the common case (a value
// that has never changed) and is kept without allocation overhead beyond the
// one-element slice.
type MultiVersionValue struct {
	versions []TimestampedValue
}

// Single builds a MultiVersionValue holding one value over one timestamp.
func Single(v Scalar, t timestamp.Timestamp) MultiVersionValue {
	return MultiVersionValue{versions: []TimestampedValue{{Value: v, Timestamp: t}}}
}

// FromVersions builds a MultiVersionValue from a pre-built TimestampedValue
// list, trusting the caller (e.g. a deserializer) that it is already
// canonical rather than re-deriving it via Extend.
func FromVersions(versions []TimestampedValue) MultiVersionValue {
	return MultiVersionValue{versions: versions}
}

// Versions returns the ordered TimestampedValue list. Callers must not mutate
// it; all mutating operations on MultiVersionValue return a new value.
func (m MultiVersionValue) Versions() []TimestampedValue {
	return m.versions
}

// IsSingle reports whether the value has never changed across its lifetime.
func (m MultiVersionValue) IsSingle() bool {
	return len(m.versions) == 1
}

// Timestamp returns the union of all constituent timestamps.
func (m MultiVersionValue) Timestamp() timestamp.Timestamp {
	t := timestamp.Empty
	for _, tv := range m.versions {
		t = t.Union(tv.Timestamp)
	}
	return t
}

// At returns the scalar whose timestamp contains v, and true, or
// (Null, false) if no constituent covers v.
func (m MultiVersionValue) At(v int64) (Scalar, bool) {
	for _, tv := range m.versions {
		if tv.Timestamp.Contains(v) {
			return tv.Value, true
		}
	}
	return Null, false
}

// Extend is the hot path of the merge engine (spec §4.4): it appends version
// v to a MultiVersionValue given the new scalar x observed at v. If x equals
// the scalar of the last TimestampedValue, that TimestampedValue's timestamp
// is extended; otherwise a fresh singleton TimestampedValue [v,v] is started.
// The result is always canonical: no two adjacent TimestampedValues share an
// equal scalar.
func (m MultiVersionValue) Extend(x Scalar, v int64) MultiVersionValue {
	if len(m.versions) == 0 {
		return Single(x, timestamp.New(v))
	}
	last := m.versions[len(m.versions)-1]
	if Equal(last.Value, x) {
		out := make([]TimestampedValue, len(m.versions))
		copy(out, m.versions)
		out[len(out)-1].Timestamp = last.Timestamp.Append(v)
		return MultiVersionValue{versions: out}
	}
	out := make([]TimestampedValue, len(m.versions), len(m.versions)+1)
	copy(out, m.versions)
	out = append(out, TimestampedValue{Value: x, Timestamp: timestamp.New(v)})
	return MultiVersionValue{versions: out}
}

// Rollback truncates every constituent timestamp to versions <= v, dropping
// TimestampedValues that fall entirely above v.
func (m MultiVersionValue) Rollback(v int64) (MultiVersionValue, bool) {
	var out []TimestampedValue
	for _, tv := range m.versions {
		rt := tv.Timestamp.Rollback(v)
		if rt.IsEmpty() {
			continue
		}
		out = append(out, TimestampedValue{Value: tv.Value, Timestamp: rt})
	}
	if len(out) == 0 {
		return MultiVersionValue{}, false
	}
	return MultiVersionValue{versions: out}, true
}
