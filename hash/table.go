// Package hash implements a disk-resident extendible hash table: a header
// page fans out to directory pages, which fan out to bucket pages, all
// addressed and pinned through a buffer pool.
package hash

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"sediment/buffer"
	"sediment/common"
	"sediment/disk/pages"
)

// Config bundles the fixed parameters and the per-type codecs an
// ExtendibleHashTable needs. HashFunc is optional; when nil the table
// hashes the key's serialized bytes with xxhash.
type Config[K any, V any] struct {
	HeaderMaxDepth    uint32
	DirectoryMaxDepth uint32
	BucketMaxSize     uint32
	KeySerializer     pages.Serializer[K]
	ValueSerializer   pages.Serializer[V]
	Comparator        pages.Comparator[K]
	HashFunc          func(key K) uint32
}

// ExtendibleHashTable is a disk-backed hash table over a buffer pool. All
// three page levels are reached through write or read guards. GetValue drops
// each guard before fetching the next level, so it pins at most one page at
// a time; Insert and Remove keep the directory's write guard while they
// work on its buckets.
type ExtendibleHashTable[K any, V any] struct {
	pool           buffer.Pool
	headerPageID   int32
	directoryDepth uint32
	bucketMaxSize  uint32
	keySer         pages.Serializer[K]
	valSer         pages.Serializer[V]
	cmp            pages.Comparator[K]
	hashFn         func(K) uint32
}

// NewExtendibleHashTable allocates the table's header page and returns the
// table rooted on it.
func NewExtendibleHashTable[K any, V any](pool buffer.Pool, cfg Config[K, V]) (*ExtendibleHashTable[K, V], error) {
	guard, err := pool.NewPageGuarded()
	if err != nil {
		return nil, fmt.Errorf("hash: allocate header page: %w", err)
	}
	headerPageID := guard.PageID()
	wg := guard.UpgradeWrite()
	header := buffer.AsMutW(wg, pages.CastHeaderPage)
	header.Init(cfg.HeaderMaxDepth)
	wg.Drop()

	hashFn := cfg.HashFunc
	if hashFn == nil {
		keySer := cfg.KeySerializer
		hashFn = func(key K) uint32 {
			buf := make([]byte, keySer.Size())
			keySer.Serialize(key, buf)
			return uint32(xxhash.Sum64(buf))
		}
	}

	return &ExtendibleHashTable[K, V]{
		pool:           pool,
		headerPageID:   headerPageID,
		directoryDepth: cfg.DirectoryMaxDepth,
		bucketMaxSize:  cfg.BucketMaxSize,
		keySer:         cfg.KeySerializer,
		valSer:         cfg.ValueSerializer,
		cmp:            cfg.Comparator,
		hashFn:         hashFn,
	}, nil
}

func (t *ExtendibleHashTable[K, V]) hash(key K) uint32 { return t.hashFn(key) }

func (t *ExtendibleHashTable[K, V]) directoryCast(b []byte) pages.DirectoryPage {
	return pages.CastDirectoryPage(b)
}

func (t *ExtendibleHashTable[K, V]) bucketCast(b []byte) pages.BucketPage[K, V] {
	return pages.CastBucketPage[K, V](b, t.keySer, t.valSer, t.cmp)
}

// GetValue looks up key, walking header -> directory -> bucket under read
// guards, dropping each before fetching the next.
func (t *ExtendibleHashTable[K, V]) GetValue(key K) (V, bool, error) {
	var zero V
	h := t.hash(key)

	headerGuard, err := t.pool.FetchPageRead(t.headerPageID)
	if err != nil {
		return zero, false, fmt.Errorf("hash: GetValue: fetch header: %w", err)
	}
	header := buffer.AsRefR(headerGuard, pages.CastHeaderPage)
	dirPageID := header.GetDirectoryPageId(header.HashToDirectoryIndex(h))
	headerGuard.Drop()

	if dirPageID == common.InvalidPageID {
		return zero, false, nil
	}

	dirGuard, err := t.pool.FetchPageRead(dirPageID)
	if err != nil {
		return zero, false, fmt.Errorf("hash: GetValue: fetch directory: %w", err)
	}
	dir := buffer.AsRefR(dirGuard, t.directoryCast)
	bucketPageID := dir.GetBucketPageId(dir.HashToBucketIndex(h))
	dirGuard.Drop()

	if bucketPageID == common.InvalidPageID {
		return zero, false, nil
	}

	bucketGuard, err := t.pool.FetchPageRead(bucketPageID)
	if err != nil {
		return zero, false, fmt.Errorf("hash: GetValue: fetch bucket: %w", err)
	}
	bucket := buffer.AsRefR(bucketGuard, t.bucketCast)
	v, ok := bucket.Lookup(key)
	bucketGuard.Drop()
	return v, ok, nil
}

// Insert adds (key, value), growing the directory and splitting buckets as
// needed. Returns false (no error) when the directory would have to grow
// past DirectoryMaxDepth or the key is already present.
func (t *ExtendibleHashTable[K, V]) Insert(key K, value V) (bool, error) {
	h := t.hash(key)

	headerGuard, err := t.pool.FetchPageWrite(t.headerPageID)
	if err != nil {
		return false, fmt.Errorf("hash: Insert: fetch header: %w", err)
	}
	header := buffer.AsMutW(headerGuard, pages.CastHeaderPage)
	dirIdx := header.HashToDirectoryIndex(h)
	dirPageID := header.GetDirectoryPageId(dirIdx)

	if dirPageID == common.InvalidPageID {
		ok, err := t.insertToNewDirectory(header, dirIdx, h, key, value)
		headerGuard.Drop()
		return ok, err
	}
	headerGuard.Drop()

	dirGuard, err := t.pool.FetchPageWrite(dirPageID)
	if err != nil {
		return false, fmt.Errorf("hash: Insert: fetch directory: %w", err)
	}
	defer dirGuard.Drop()
	dir := buffer.AsMutW(dirGuard, t.directoryCast)

	bucketIdx := dir.HashToBucketIndex(h)
	if dir.GetBucketPageId(bucketIdx) == common.InvalidPageID {
		return t.insertToNewBucket(dir, bucketIdx, key, value)
	}

	for {
		bucketIdx = dir.HashToBucketIndex(h)
		bucketPageID := dir.GetBucketPageId(bucketIdx)

		bucketGuard, err := t.pool.FetchPageWrite(bucketPageID)
		if err != nil {
			return false, fmt.Errorf("hash: Insert: fetch bucket: %w", err)
		}
		bucket := buffer.AsMutW(bucketGuard, t.bucketCast)

		if !bucket.IsFull() {
			ok := bucket.Insert(key, value)
			bucketGuard.Drop()
			return ok, nil
		}

		ld := uint32(dir.GetLocalDepth(bucketIdx))
		gd := dir.GlobalDepth()
		if ld == gd {
			if gd >= t.directoryDepth {
				bucketGuard.Drop()
				return false, nil
			}
			dir.IncrGlobalDepth()
		} else if ld >= t.directoryDepth {
			bucketGuard.Drop()
			return false, nil
		}

		if err := t.splitBucket(dir, bucket, bucketPageID, bucketIdx); err != nil {
			bucketGuard.Drop()
			return false, err
		}
		bucketGuard.Drop()
	}
}

// insertToNewDirectory allocates a fresh directory for the header slot that
// had none, which in turn allocates the directory's first bucket.
func (t *ExtendibleHashTable[K, V]) insertToNewDirectory(header pages.HeaderPage, dirIdx uint32, h uint32, key K, value V) (bool, error) {
	guard, err := t.pool.NewPageGuarded()
	if err != nil {
		return false, fmt.Errorf("hash: insertToNewDirectory: allocate: %w", err)
	}
	dirPageID := guard.PageID()
	wg := guard.UpgradeWrite()
	defer wg.Drop()
	dir := buffer.AsMutW(wg, t.directoryCast)
	dir.Init(t.directoryDepth)
	header.SetDirectoryPageId(dirIdx, dirPageID)

	bucketIdx := dir.HashToBucketIndex(h)
	return t.insertToNewBucket(dir, bucketIdx, key, value)
}

// insertToNewBucket allocates a fresh bucket for a directory slot that had
// none, at local depth 0, and inserts the first entry.
func (t *ExtendibleHashTable[K, V]) insertToNewBucket(dir pages.DirectoryPage, bucketIdx uint32, key K, value V) (bool, error) {
	guard, err := t.pool.NewPageGuarded()
	if err != nil {
		return false, fmt.Errorf("hash: insertToNewBucket: allocate: %w", err)
	}
	bucketPageID := guard.PageID()
	wg := guard.UpgradeWrite()
	defer wg.Drop()
	bucket := buffer.AsMutW(wg, t.bucketCast)
	bucket.Init(t.bucketMaxSize)

	dir.SetBucketPageId(bucketIdx, bucketPageID)
	dir.SetLocalDepth(bucketIdx, 0)
	return bucket.Insert(key, value), nil
}

// splitBucket splits the full bucket at bucketIdx (page id oldBucketPageID)
// into itself and a freshly allocated sibling, rehashing entries by the
// newly significant bit and repointing every directory slot that pointed
// at the old bucket.
func (t *ExtendibleHashTable[K, V]) splitBucket(dir pages.DirectoryPage, bucket pages.BucketPage[K, V], oldBucketPageID int32, bucketIdx uint32) error {
	newLocalDepth := dir.GetLocalDepth(bucketIdx) + 1
	splitBit := uint32(1) << (newLocalDepth - 1)

	guard, err := t.pool.NewPageGuarded()
	if err != nil {
		return fmt.Errorf("hash: splitBucket: allocate sibling: %w", err)
	}
	newBucketPageID := guard.PageID()
	wg := guard.UpgradeWrite()
	defer wg.Drop()
	newBucket := buffer.AsMutW(wg, t.bucketCast)
	newBucket.Init(t.bucketMaxSize)

	type entry struct {
		key K
		val V
	}
	var moving []entry
	i := uint32(0)
	for i < bucket.Size() {
		k, v := bucket.EntryAt(i)
		if t.hash(k)&splitBit != 0 {
			moving = append(moving, entry{k, v})
			bucket.Remove(k)
			continue
		}
		i++
	}
	for _, e := range moving {
		if !newBucket.Insert(e.key, e.val) {
			return fmt.Errorf("hash: splitBucket: sibling rejected reinsert of a moved entry")
		}
	}

	n := dir.Size()
	for i := uint32(0); i < n; i++ {
		if dir.GetBucketPageId(i) == oldBucketPageID {
			dir.SetLocalDepth(i, newLocalDepth)
			if i&splitBit != 0 {
				dir.SetBucketPageId(i, newBucketPageID)
			}
		}
	}
	return nil
}

// Remove deletes key, merging emptied buckets with their split image while
// local depths match, then shrinking the directory while CanShrink holds.
func (t *ExtendibleHashTable[K, V]) Remove(key K) (bool, error) {
	h := t.hash(key)

	headerGuard, err := t.pool.FetchPageRead(t.headerPageID)
	if err != nil {
		return false, fmt.Errorf("hash: Remove: fetch header: %w", err)
	}
	header := buffer.AsRefR(headerGuard, pages.CastHeaderPage)
	dirPageID := header.GetDirectoryPageId(header.HashToDirectoryIndex(h))
	headerGuard.Drop()

	if dirPageID == common.InvalidPageID {
		return false, nil
	}

	dirGuard, err := t.pool.FetchPageWrite(dirPageID)
	if err != nil {
		return false, fmt.Errorf("hash: Remove: fetch directory: %w", err)
	}
	defer dirGuard.Drop()
	dir := buffer.AsMutW(dirGuard, t.directoryCast)

	bucketIdx := dir.HashToBucketIndex(h)
	bucketPageID := dir.GetBucketPageId(bucketIdx)
	if bucketPageID == common.InvalidPageID {
		return false, nil
	}

	bucketGuard, err := t.pool.FetchPageWrite(bucketPageID)
	if err != nil {
		return false, fmt.Errorf("hash: Remove: fetch bucket: %w", err)
	}
	bucket := buffer.AsMutW(bucketGuard, t.bucketCast)

	if !bucket.Remove(key) {
		bucketGuard.Drop()
		return false, nil
	}

	for bucket.IsEmpty() && dir.GetLocalDepth(bucketIdx) > 0 {
		ld := dir.GetLocalDepth(bucketIdx)
		siblingIdx := dir.GetSplitImageIndex(bucketIdx)
		if dir.GetLocalDepth(siblingIdx) != ld {
			break
		}

		siblingPageID := dir.GetBucketPageId(siblingIdx)
		newLocalDepth := ld - 1
		n := dir.Size()
		for i := uint32(0); i < n; i++ {
			pid := dir.GetBucketPageId(i)
			if pid == bucketPageID || pid == siblingPageID {
				dir.SetBucketPageId(i, siblingPageID)
				dir.SetLocalDepth(i, newLocalDepth)
			}
		}

		bucketGuard.Drop()
		t.pool.DeletePage(bucketPageID)

		bucketIdx = dir.HashToBucketIndex(h)
		bucketPageID = dir.GetBucketPageId(bucketIdx)
		bucketGuard, err = t.pool.FetchPageWrite(bucketPageID)
		if err != nil {
			return false, fmt.Errorf("hash: Remove: fetch merged bucket: %w", err)
		}
		bucket = buffer.AsMutW(bucketGuard, t.bucketCast)
	}
	bucketGuard.Drop()

	for dir.CanShrink() {
		dir.DecrGlobalDepth()
	}
	return true, nil
}
