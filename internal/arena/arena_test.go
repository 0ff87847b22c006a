package arena

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodeSize(t *testing.T) {
	require.Equal(t, uintptr(nodeSize), unsafe.Sizeof(Node{}), "Node must stay exactly 64 bytes")
}

func TestAllocFreeRoundTrip(t *testing.T) {
	a := New(4)
	require.Equal(t, 4, a.Capacity())

	h1, err := a.Alloc()
	require.NoError(t, err)
	require.False(t, h1.IsNull())

	n, err := a.Get(h1)
	require.NoError(t, err)
	n.OrderID = 42

	got, err := a.Get(h1)
	require.NoError(t, err)
	assert.EqualValues(t, 42, got.OrderID)

	require.NoError(t, a.Free(h1))
	assert.Equal(t, 0, a.Live())
}

func TestExhaustion(t *testing.T) {
	a := New(2)
	_, err := a.Alloc()
	require.NoError(t, err)
	_, err = a.Alloc()
	require.NoError(t, err)

	_, err = a.Alloc()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestGenerationChangesOnFree(t *testing.T) {
	a := New(1)

	h1, err := a.Alloc()
	require.NoError(t, err)
	require.NoError(t, a.Free(h1))

	h2, err := a.Alloc()
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2, "P8: reallocating the same slot must yield an unequal handle")

	// The stale handle must now be rejected, not silently aliased onto
	// the new occupant.
	_, err = a.Get(h1)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestDoubleFreeRejected(t *testing.T) {
	a := New(1)
	h, err := a.Alloc()
	require.NoError(t, err)
	require.NoError(t, a.Free(h))

	err = a.Free(h)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestInvalidHandleOutOfRange(t *testing.T) {
	a := New(1)
	_, err := a.Get(Handle(9999999))
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestNullHandle(t *testing.T) {
	assert.True(t, NullHandle.IsNull())
	a := New(1)
	_, err := a.Get(NullHandle)
	assert.ErrorIs(t, err, ErrInvalidHandle)
}

func TestAllSlotsCycle(t *testing.T) {
	const n = 64
	a := New(n)
	handles := make([]Handle, 0, n)
	for i := 0; i < n; i++ {
		h, err := a.Alloc()
		require.NoError(t, err)
		handles = append(handles, h)
	}
	_, err := a.Alloc()
	assert.ErrorIs(t, err, ErrExhausted)

	for _, h := range handles {
		require.NoError(t, a.Free(h))
	}
	assert.Equal(t, 0, a.Live())

	for i := 0; i < n; i++ {
		_, err := a.Alloc()
		require.NoError(t, err)
	}
}
