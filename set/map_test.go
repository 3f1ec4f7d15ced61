package set

import (
	"bytes"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nfterrors "github.com/tamirms/nfthash/errors"
)

func TestNewMapValidation(t *testing.T) {
	_, err := NewMap("", 0, 4, 4)
	assert.ErrorIs(t, err, nfterrors.ErrInvalidSetName)

	_, err = NewMap("m", 0, 0, 4)
	assert.ErrorIs(t, err, nfterrors.ErrInvalidWidth)

	_, err = NewMap("m", 0, 4, maxWidth+1)
	assert.ErrorIs(t, err, nfterrors.ErrInvalidWidth)

	m, err := NewMap("m", 3, 4, 8)
	require.NoError(t, err)
	assert.Equal(t, "m", m.Name())
	assert.Equal(t, uint32(3), m.ID())
	assert.Equal(t, 4, m.KeyLen())
	assert.Equal(t, 8, m.ValueLen())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, uint64(0), m.Generation())
}

func TestMapStagingIsInvisibleUntilCommit(t *testing.T) {
	m, err := NewMap("m", 0, 4, 4)
	require.NoError(t, err)

	require.NoError(t, m.Insert(key32(1), key32(100)))
	_, ok := m.Lookup(key32(1))
	assert.False(t, ok, "staged entry visible before commit")

	assert.Equal(t, uint64(1), m.Commit())
	v, ok := m.Lookup(key32(1))
	require.True(t, ok)
	assert.Equal(t, key32(100), v)

	assert.True(t, m.Delete(key32(1)))
	_, ok = m.Lookup(key32(1))
	assert.True(t, ok, "staged delete visible before commit")

	assert.Equal(t, uint64(2), m.Commit())
	_, ok = m.Lookup(key32(1))
	assert.False(t, ok)
}

func TestMapCommitWithoutChanges(t *testing.T) {
	m, err := NewMap("m", 0, 4, 4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), m.Commit())

	require.NoError(t, m.Insert(key32(1), key32(1)))
	m.Abort()
	assert.Equal(t, uint64(0), m.Commit())
	assert.Equal(t, 0, m.Len())
}

func TestMapInsertErrors(t *testing.T) {
	m, err := NewMap("m", 0, 4, 2)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Insert([]byte{1, 2, 3}, []byte{1, 2}), nfterrors.ErrKeyWidth)
	assert.ErrorIs(t, m.Insert(key32(1), []byte{1}), nfterrors.ErrValueWidth)

	require.NoError(t, m.Insert(key32(1), []byte{1, 2}))
	assert.ErrorIs(t, m.Insert(key32(1), []byte{3, 4}), nfterrors.ErrDuplicateKey)

	assert.False(t, m.Delete(key32(2)))
}

func TestMapInsertCopiesValue(t *testing.T) {
	m, err := NewMap("m", 0, 4, 4)
	require.NoError(t, err)

	val := key32(7)
	require.NoError(t, m.Insert(key32(1), val))
	m.Commit()
	val[0] = 0xff

	got, ok := m.Lookup(key32(1))
	require.True(t, ok)
	assert.Equal(t, key32(7), got)
}

func TestMapEntriesSorted(t *testing.T) {
	rng := newTestRNG(t)
	m, err := NewMap("m", 0, 4, 4)
	require.NoError(t, err)
	for _, e := range randomEntries(rng, 100, 4) {
		require.NoError(t, m.Insert(e.Key, e.Value))
	}
	m.Commit()

	entries := m.Entries()
	require.Len(t, entries, 100)
	for i := 1; i < len(entries); i++ {
		assert.Negative(t, bytes.Compare(entries[i-1].Key, entries[i].Key), "entry %d", i)
	}
}

// TestMapConcurrentReadersDuringCommit checks readers never see half a batch.
// Generations only grow here, so once the second key of a batch is visible
// the first must be too.
func TestMapConcurrentReadersDuringCommit(t *testing.T) {
	m, err := NewMap("m", 0, 4, 4)
	require.NoError(t, err)

	const batches = 200
	var wg sync.WaitGroup
	stop := make(chan struct{})
	torn := make(chan uint32, 1)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				for b := uint32(0); b < batches; b++ {
					_, okB := m.Lookup(key32(2*b + 1))
					_, okA := m.Lookup(key32(2 * b))
					if okB && !okA {
						select {
						case torn <- b:
						default:
						}
					}
				}
			}
		}()
	}

	for b := uint32(0); b < batches; b++ {
		require.NoError(t, m.Insert(key32(2*b), key32(b)))
		require.NoError(t, m.Insert(key32(2*b+1), key32(b)))
		m.Commit()
	}
	close(stop)
	wg.Wait()

	select {
	case b := <-torn:
		t.Fatalf("reader saw half of batch %d", b)
	default:
	}
	assert.Equal(t, 2*batches, m.Len())
	assert.Equal(t, uint64(batches), m.Generation())
}
