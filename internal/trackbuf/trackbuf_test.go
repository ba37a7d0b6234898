package trackbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHasRefcountOne(t *testing.T) {
	b := New(4)
	assert.Equal(t, int32(1), b.RefCount())
}

func TestRetainReleaseBalanced(t *testing.T) {
	b := New(0)
	b.Retain()
	b.Retain()
	assert.Equal(t, int32(3), b.RefCount())
	b.Release()
	b.Release()
	assert.Equal(t, int32(1), b.RefCount())
	b.Release()
	assert.Equal(t, int32(0), b.RefCount())
}

func TestConcurrentRetainRelease(t *testing.T) {
	b := New(0)
	const n = 200
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			b.Retain()
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1+n), b.RefCount())

	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			b.Release()
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), b.RefCount())
}

func TestAddGrows(t *testing.T) {
	b := New(1)
	for i := 0; i < 10; i++ {
		b.Add(Detection{ID: uint32(i)})
	}
	assert.Equal(t, 10, b.Len())
	assert.GreaterOrEqual(t, b.Cap(), 10)
}

func TestClearPreservesCapacity(t *testing.T) {
	b := New(4)
	b.Add(Detection{ID: 1})
	b.Add(Detection{ID: 2})
	capBefore := b.Cap()
	b.Clear()
	assert.Equal(t, 0, b.Len())
	assert.Equal(t, capBefore, b.Cap())
}

func TestAllAliasesStorage(t *testing.T) {
	b := New(2)
	b.Add(Detection{ID: 42})
	items := b.All()
	require.Len(t, items, 1)
	assert.Equal(t, uint32(42), items[0].ID)
	items[0].ID = 43
	assert.Equal(t, uint32(43), b.At(0).ID)
}
