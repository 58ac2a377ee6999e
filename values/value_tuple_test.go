package values

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValueTuple_CompareElementwise(t *testing.T) {
	a := NewValueTuple(OfString("apple"), OfInt(1))
	b := NewValueTuple(OfString("apple"), OfInt(2))
	assert.Equal(t, -1, a.Compare(b))
	assert.Equal(t, 1, b.Compare(a))
	assert.Equal(t, 0, a.Compare(a))
}

func TestValueTuple_ShorterPrefixSortsFirst(t *testing.T) {
	short := NewValueTuple(OfInt(1))
	long := NewValueTuple(OfInt(1), OfInt(2))
	assert.Equal(t, -1, short.Compare(long))
}

func TestValueTuple_KeyDistinguishesKinds(t *testing.T) {
	intTuple := NewValueTuple(OfInt(1))
	strTuple := NewValueTuple(OfString("1"))
	assert.NotEqual(t, intTuple.Key(), strTuple.Key())
}

func TestValueTuple_KeyStableForEqualTuples(t *testing.T) {
	a := NewValueTuple(OfString("x"), OfInt(5))
	b := NewValueTuple(OfString("x"), OfInt(5))
	assert.Equal(t, a.Key(), b.Key())
}

func TestValueTuple_IndependentOfCallerSlice(t *testing.T) {
	vs := []Value{OfInt(1), OfInt(2)}
	tup := NewValueTuple(vs...)
	vs[0] = OfInt(99)
	assert.Equal(t, int64(1), tup.At(0).Int())
}
