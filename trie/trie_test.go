package trie_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sediment/trie"
)

func TestTrie_PutThenGetRoundTrips(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "ab", 1)

	v, ok := trie.Get[int](t1, "ab")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTrie_GetOnEmptyTrieReturnsFalse(t *testing.T) {
	_, ok := trie.Get[int](trie.Trie{}, "ab")
	assert.False(t, ok)
}

func TestTrie_PutIsImmutable(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "ab", 1)

	_, ok := trie.Get[int](t0, "ab")
	assert.False(t, ok, "the original trie must be unaffected by Put")

	v, ok := trie.Get[int](t1, "ab")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTrie_PutRemoveGetReturnsNotFound(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "ab", 1)
	t2 := trie.Remove(t1, "ab")

	_, ok := trie.Get[int](t2, "ab")
	assert.False(t, ok)

	// t1 itself is untouched
	v, ok := trie.Get[int](t1, "ab")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTrie_RemoveMissingKeyReturnsSameTrie(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "ab", 1)
	t2 := trie.Remove(t1, "zz")

	v, ok := trie.Get[int](t2, "ab")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestTrie_GetWrongTypeReturnsFalse(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "ab", 1)

	_, ok := trie.Get[string](t1, "ab")
	assert.False(t, ok)
}

// TestTrie_SiblingPutKeepsEarlierSnapshots exercises scenario 6: t0 = Trie();
// t1 = t0.Put("ab", 1); t2 = t1.Put("ad", 2). t0.Get("ab") is none,
// t1.Get("ab") == 1, t2.Get("ab") == 1, t2.Get("ad") == 2. Whether t1 and
// t2 share the "ab" subtree is not observable through the exported API and
// is not checked here.
func TestTrie_SiblingPutKeepsEarlierSnapshots(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "ab", 1)
	t2 := trie.Put(t1, "ad", 2)

	_, ok := trie.Get[int](t0, "ab")
	assert.False(t, ok)

	v, ok := trie.Get[int](t1, "ab")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = trie.Get[int](t2, "ab")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = trie.Get[int](t2, "ad")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTrie_MultiplePutsBuildASharedPrefixTree(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "cat", 1)
	t2 := trie.Put(t1, "car", 2)
	t3 := trie.Put(t2, "care", 3)

	v, ok := trie.Get[int](t3, "cat")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = trie.Get[int](t3, "car")
	require.True(t, ok)
	assert.Equal(t, 2, v)

	v, ok = trie.Get[int](t3, "care")
	require.True(t, ok)
	assert.Equal(t, 3, v)

	_, ok = trie.Get[int](t3, "ca")
	assert.False(t, ok)
}

func TestTrie_RemovePrunesChildlessNodes(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "a", 1)
	t2 := trie.Remove(t1, "a")

	_, ok := trie.Get[int](t2, "a")
	assert.False(t, ok)

	// re-inserting a longer key under the pruned path still works
	t3 := trie.Put(t2, "ab", 2)
	v, ok := trie.Get[int](t3, "ab")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTrie_EmptyKeyBindsRootValue(t *testing.T) {
	t0 := trie.Trie{}
	t1 := trie.Put(t0, "", 7)

	v, ok := trie.Get[int](t1, "")
	require.True(t, ok)
	assert.Equal(t, 7, v)

	t2 := trie.Remove(t1, "")
	_, ok = trie.Get[int](t2, "")
	assert.False(t, ok)
}
