package value

import (
	"math"
	"testing"

	"github.com/kasuganosora/historystore/pkg/timestamp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEqualBitExactFloat(t *testing.T) {
	assert.True(t, Equal(Float(1.0), Float(1.0)))
	assert.False(t, Equal(Float(math.NaN()), Float(math.NaN())))
	assert.False(t, Equal(Float(0.0), Float(math.Copysign(0, -1))))
}

func TestLessNullsFirst(t *testing.T) {
	assert.True(t, Less(Null, Int(0)))
	assert.False(t, Less(Int(0), Null))
}

func TestExtendSameValueExtendsTimestamp(t *testing.T) {
	mv := Single(Int(32), timestamp.New(0))
	mv = mv.Extend(Int(32), 1)
	require.True(t, mv.IsSingle())
	ts := mv.Versions()[0].Timestamp
	assert.Equal(t, "[0-1]", ts.String())
}

func TestExtendDifferentValueStartsNewEntry(t *testing.T) {
	mv := Single(Int(32), timestamp.New(0))
	mv = mv.Extend(Int(33), 1)
	require.Len(t, mv.Versions(), 2)
	assert.Equal(t, "[1]", mv.Versions()[1].Timestamp.String())
}

func TestAtLooksUpCorrectVersion(t *testing.T) {
	mv := Single(Int(32), timestamp.New(0)).Extend(Int(33), 1).Extend(Int(32), 2)
	v, ok := mv.At(1)
	require.True(t, ok)
	assert.Equal(t, int64(33), v.Int())

	v, ok = mv.At(2)
	require.True(t, ok)
	assert.Equal(t, int64(32), v.Int())
}

func TestRollbackDropsHigherVersions(t *testing.T) {
	mv := Single(Int(1), timestamp.New(0)).Extend(Int(2), 1).Extend(Int(3), 2)
	rolled, ok := mv.Rollback(1)
	require.True(t, ok)
	assert.Len(t, rolled.Versions(), 2)
	_, found := rolled.At(2)
	assert.False(t, found)
}

func TestRollbackBelowFirstVersionDropsAll(t *testing.T) {
	mv := Single(Int(1), timestamp.New(0))
	_, ok := mv.Rollback(-1)
	assert.False(t, ok)
}

func TestTupleEqualAndLess(t *testing.T) {
	a := Tuple([]Scalar{Text("Eng"), Text("Alice")})
	b := Tuple([]Scalar{Text("Eng"), Text("Alice")})
	c := Tuple([]Scalar{Text("Eng"), Text("Bob")})

	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
	assert.True(t, Less(a, c))
	assert.False(t, Less(c, a))
	assert.Equal(t, KindTuple, a.Kind())
}

func TestTupleDifferingLengthShorterSortsFirst(t *testing.T) {
	short := Tuple([]Scalar{Text("Eng")})
	long := Tuple([]Scalar{Text("Eng"), Text("Alice")})
	assert.True(t, Less(short, long))
	assert.False(t, Equal(short, long))
}
