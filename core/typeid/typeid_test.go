package typeid

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOfIsStablePerType(t *testing.T) {
	require.Equal(t, Of[int](), Of[int]())
	require.NotEqual(t, Of[int](), Of[string]())
}

func TestRegisterIsIdempotent(t *testing.T) {
	r := New()
	var calls int
	id := Of[int]()

	r.Register(id, func(any) { calls++ })
	r.Register(id, func(any) { calls += 100 }) // must not replace the first

	fn, ok := r.Lookup(id)
	require.True(t, ok)
	fn(nil)
	require.Equal(t, 1, calls)
}

func TestMustLookupPanicsOnUnknownID(t *testing.T) {
	r := New()
	require.Panics(t, func() { r.MustLookup(Of[int]()) })
}
