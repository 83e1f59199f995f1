package hash_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sediment/buffer"
	"sediment/disk"
	"sediment/disk/pages"
	"sediment/hash"
)

func int32Cmp(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func identityHash(key int32) uint32 { return uint32(key) }

func newTestPool(t *testing.T, poolSize int) buffer.Pool {
	t.Helper()
	path := filepath.Join(t.TempDir(), uuid.New().String()+".sediment")
	manager, err := disk.NewFileManager(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = manager.Shutdown(); _ = os.Remove(path) })

	scheduler := disk.NewScheduler(manager)
	t.Cleanup(scheduler.Shutdown)

	return buffer.NewBufferPoolManager(poolSize, manager, scheduler)
}

func newTestTable(t *testing.T, poolSize int, headerDepth, directoryDepth, bucketMaxSize uint32) *hash.ExtendibleHashTable[int32, int32] {
	t.Helper()
	pool := newTestPool(t, poolSize)
	table, err := hash.NewExtendibleHashTable[int32, int32](pool, hash.Config[int32, int32]{
		HeaderMaxDepth:    headerDepth,
		DirectoryMaxDepth: directoryDepth,
		BucketMaxSize:     bucketMaxSize,
		KeySerializer:     pages.Int32Serializer{},
		ValueSerializer:   pages.Int32Serializer{},
		Comparator:        int32Cmp,
		HashFunc:          identityHash,
	})
	require.NoError(t, err)
	return table
}

func TestExtendibleHashTable_InsertSplitsFullBucketAndContinues(t *testing.T) {
	table := newTestTable(t, 16, 2, 2, 2)

	for _, k := range []int32{0, 1, 2, 3, 4} {
		ok, err := table.Insert(k, k*10)
		require.NoError(t, err)
		require.True(t, ok, "insert(%d) should succeed", k)
	}

	for _, k := range []int32{0, 1, 2, 3, 4} {
		v, found, err := table.GetValue(k)
		require.NoError(t, err)
		require.True(t, found, "key %d should be present", k)
		assert.EqualValues(t, k*10, v)
	}
}

func TestExtendibleHashTable_InsertDuplicateKeyFails(t *testing.T) {
	table := newTestTable(t, 16, 2, 2, 2)

	ok, err := table.Insert(5, 50)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = table.Insert(5, 99)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtendibleHashTable_GetValueMissingKeyReturnsFalse(t *testing.T) {
	table := newTestTable(t, 16, 2, 2, 2)

	_, found, err := table.GetValue(42)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestExtendibleHashTable_InsertFailsWhenDirectoryCannotGrow(t *testing.T) {
	// directory_max_depth=0: a single bucket, never splittable.
	table := newTestTable(t, 16, 0, 0, 1)

	ok, err := table.Insert(10, 100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = table.Insert(20, 200)
	require.NoError(t, err)
	assert.False(t, ok, "a full bucket at max directory depth must fail instead of splitting")
}

func TestExtendibleHashTable_RemoveRoundTripsAndShrinks(t *testing.T) {
	table := newTestTable(t, 32, 3, 3, 2)

	keys := []int32{0, 1, 2, 3, 4, 5, 6, 7}
	for _, k := range keys {
		ok, err := table.Insert(k, k)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// remove in reverse order, re-checking the rest survive after each step
	for i := len(keys) - 1; i >= 0; i-- {
		removed := keys[i]
		ok, err := table.Remove(removed)
		require.NoError(t, err)
		require.True(t, ok)

		_, found, err := table.GetValue(removed)
		require.NoError(t, err)
		assert.False(t, found)

		for _, k := range keys[:i] {
			v, found, err := table.GetValue(k)
			require.NoError(t, err)
			require.True(t, found, "key %d should still be present after removing %d", k, removed)
			assert.EqualValues(t, k, v)
		}
	}

	// directory fully shrunk; the table still accepts fresh inserts
	ok, err := table.Insert(100, 1000)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestExtendibleHashTable_RemoveMissingKeyReturnsFalse(t *testing.T) {
	table := newTestTable(t, 16, 2, 2, 2)

	ok, err := table.Insert(1, 1)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = table.Remove(2)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExtendibleHashTable_RemoveOnEmptyTableReturnsFalse(t *testing.T) {
	table := newTestTable(t, 16, 2, 2, 2)

	ok, err := table.Remove(1)
	require.NoError(t, err)
	assert.False(t, ok)
}
