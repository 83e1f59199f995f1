package pages

import (
	"encoding/binary"
)

const (
	bucketSizeOffset    = 0
	bucketMaxSizeOffset = 4
	bucketEntriesOffset = 8
)

// Comparator returns -1/0/+1 for bucket key ordering.
type Comparator[K any] func(a, b K) int

// BucketPage is the leaf level of the hash table's page hierarchy: a sorted
// array of up to MaxSize (key, value) entries. It is a thin view over a
// frame's raw bytes parameterized by how K and V are serialized, since the
// page itself only persists size/maxSize/raw entry bytes.
//
// Layout (big-endian):
//
//	---------------------------------------------------------------
//	| Size (4) | MaxSize (4) | Entries[MaxSize] (KeySize+ValSize each) |
//	---------------------------------------------------------------
type BucketPage[K any, V any] struct {
	data    []byte
	keySer  Serializer[K]
	valSer  Serializer[V]
	cmp     Comparator[K]
	entSize int
}

// CastBucketPage reinterprets a frame's raw bytes as a BucketPage over K, V.
// keySer/valSer/cmp are supplied by the caller (the hash table) on every
// access since they describe Go types, not on-disk state.
func CastBucketPage[K any, V any](raw []byte, keySer Serializer[K], valSer Serializer[V], cmp Comparator[K]) BucketPage[K, V] {
	return BucketPage[K, V]{
		data:    raw,
		keySer:  keySer,
		valSer:  valSer,
		cmp:     cmp,
		entSize: keySer.Size() + valSer.Size(),
	}
}

// Init sets size 0 and records maxSize.
func (b BucketPage[K, V]) Init(maxSize uint32) {
	binary.BigEndian.PutUint32(b.data[bucketSizeOffset:], 0)
	binary.BigEndian.PutUint32(b.data[bucketMaxSizeOffset:], maxSize)
}

func (b BucketPage[K, V]) Size() uint32 {
	return binary.BigEndian.Uint32(b.data[bucketSizeOffset:])
}

func (b BucketPage[K, V]) setSize(n uint32) {
	binary.BigEndian.PutUint32(b.data[bucketSizeOffset:], n)
}

func (b BucketPage[K, V]) MaxSize() uint32 {
	return binary.BigEndian.Uint32(b.data[bucketMaxSizeOffset:])
}

func (b BucketPage[K, V]) IsFull() bool  { return b.Size() == b.MaxSize() }
func (b BucketPage[K, V]) IsEmpty() bool { return b.Size() == 0 }

func (b BucketPage[K, V]) slotOffset(i uint32) int {
	return bucketEntriesOffset + int(i)*b.entSize
}

// KeyAt returns the key at slot i. Precondition: i < Size().
func (b BucketPage[K, V]) KeyAt(i uint32) K {
	off := b.slotOffset(i)
	return b.keySer.Deserialize(b.data[off : off+b.keySer.Size()])
}

// ValueAt returns the value at slot i. Precondition: i < Size().
func (b BucketPage[K, V]) ValueAt(i uint32) V {
	off := b.slotOffset(i) + b.keySer.Size()
	return b.valSer.Deserialize(b.data[off : off+b.valSer.Size()])
}

// EntryAt returns the (key, value) pair at slot i.
func (b BucketPage[K, V]) EntryAt(i uint32) (K, V) {
	return b.KeyAt(i), b.ValueAt(i)
}

func (b BucketPage[K, V]) setEntryAt(i uint32, key K, value V) {
	off := b.slotOffset(i)
	b.keySer.Serialize(key, b.data[off:off+b.keySer.Size()])
	b.valSer.Serialize(value, b.data[off+b.keySer.Size():off+b.entSize])
}

// BinSearch returns the lowest index whose key is >= key.
func (b BucketPage[K, V]) BinSearch(key K) uint32 {
	lo, hi := uint32(0), b.Size()
	for lo < hi {
		mid := (lo + hi) / 2
		if b.cmp(b.KeyAt(mid), key) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}

// Lookup returns the value stored for key, if any.
func (b BucketPage[K, V]) Lookup(key K) (V, bool) {
	idx := b.BinSearch(key)
	if idx < b.Size() && b.cmp(b.KeyAt(idx), key) == 0 {
		return b.ValueAt(idx), true
	}
	var zero V
	return zero, false
}

// Insert adds (key, value) keeping the array sorted. Fails if the bucket is
// full or key is already present.
func (b BucketPage[K, V]) Insert(key K, value V) bool {
	if b.IsFull() {
		return false
	}
	idx := b.BinSearch(key)
	n := b.Size()
	if idx < n && b.cmp(b.KeyAt(idx), key) == 0 {
		return false
	}

	for i := n; i > idx; i-- {
		k, v := b.EntryAt(i - 1)
		b.setEntryAt(i, k, v)
	}
	b.setEntryAt(idx, key, value)
	b.setSize(n + 1)
	return true
}

// Remove deletes the entry for key. Fails if key is absent.
func (b BucketPage[K, V]) Remove(key K) bool {
	idx := b.BinSearch(key)
	n := b.Size()
	if idx >= n || b.cmp(b.KeyAt(idx), key) != 0 {
		return false
	}

	for i := idx; i < n-1; i++ {
		k, v := b.EntryAt(i + 1)
		b.setEntryAt(i, k, v)
	}
	b.setSize(n - 1)
	return true
}
