package pages

import (
	"encoding/binary"

	"sediment/common"
)

// DirectoryPage is the middle level of the hash table's page hierarchy.
// Only the first 2^GlobalDepth() slots are live; the rest are leftover
// capacity for future growth up to MaxDepth.
//
// Layout (big-endian):
//
//	------------------------------------------------------------------------
//	| MaxDepth (4) | GlobalDepth (4) | LocalDepths[2^MaxDepth] (1 byte each)
//	| BucketPageIds[2^MaxDepth] (4 bytes each)                             |
//	------------------------------------------------------------------------
type DirectoryPage struct {
	data []byte
}

const (
	directoryMaxDepthOffset    = 0
	directoryGlobalDepthOffset = 4
	directoryLocalDepthsOffset = 8
)

// CastDirectoryPage reinterprets a frame's raw bytes as a DirectoryPage.
func CastDirectoryPage(raw []byte) DirectoryPage {
	return DirectoryPage{data: raw}
}

func (d DirectoryPage) bucketIdsOffset() int {
	return directoryLocalDepthsOffset + (1 << d.MaxDepth())
}

// Init sets maxDepth, global depth 0, and fills every slot with
// common.InvalidPageID / local depth 0.
func (d DirectoryPage) Init(maxDepth uint32) {
	binary.BigEndian.PutUint32(d.data[directoryMaxDepthOffset:], maxDepth)
	binary.BigEndian.PutUint32(d.data[directoryGlobalDepthOffset:], 0)
	n := 1 << maxDepth
	for i := 0; i < n; i++ {
		d.data[directoryLocalDepthsOffset+i] = 0
		d.SetBucketPageId(uint32(i), common.InvalidPageID)
	}
}

func (d DirectoryPage) MaxDepth() uint32 {
	return binary.BigEndian.Uint32(d.data[directoryMaxDepthOffset:])
}

func (d DirectoryPage) GlobalDepth() uint32 {
	return binary.BigEndian.Uint32(d.data[directoryGlobalDepthOffset:])
}

func (d DirectoryPage) setGlobalDepth(v uint32) {
	binary.BigEndian.PutUint32(d.data[directoryGlobalDepthOffset:], v)
}

// Size returns the number of live directory slots: 2^GlobalDepth.
func (d DirectoryPage) Size() uint32 {
	return 1 << d.GlobalDepth()
}

// MaxSize returns the total addressable slots: 2^MaxDepth.
func (d DirectoryPage) MaxSize() uint32 {
	return 1 << d.MaxDepth()
}

// HashToBucketIndex takes the low GlobalDepth bits of hash.
func (d DirectoryPage) HashToBucketIndex(hash uint32) uint32 {
	gd := d.GlobalDepth()
	if gd == 0 {
		return 0
	}
	return hash & ((1 << gd) - 1)
}

func (d DirectoryPage) GetBucketPageId(i uint32) int32 {
	off := d.bucketIdsOffset() + int(i)*4
	return int32(binary.BigEndian.Uint32(d.data[off:]))
}

func (d DirectoryPage) SetBucketPageId(i uint32, id int32) {
	off := d.bucketIdsOffset() + int(i)*4
	binary.BigEndian.PutUint32(d.data[off:], uint32(id))
}

func (d DirectoryPage) GetLocalDepth(i uint32) uint8 {
	return d.data[directoryLocalDepthsOffset+int(i)]
}

func (d DirectoryPage) SetLocalDepth(i uint32, depth uint8) {
	d.data[directoryLocalDepthsOffset+int(i)] = depth
}

func (d DirectoryPage) IncrLocalDepth(i uint32) {
	d.SetLocalDepth(i, d.GetLocalDepth(i)+1)
}

func (d DirectoryPage) DecrLocalDepth(i uint32) {
	d.SetLocalDepth(i, d.GetLocalDepth(i)-1)
}

// GetLocalDepthMask returns (1 << local_depth(i)) - 1.
func (d DirectoryPage) GetLocalDepthMask(i uint32) uint32 {
	return (1 << d.GetLocalDepth(i)) - 1
}

// GetSplitImageIndex returns the directory slot that was twinned with i at
// the last split of its bucket: i XOR (1 << (local_depth(i) - 1)).
// Precondition: GetLocalDepth(i) > 0.
func (d DirectoryPage) GetSplitImageIndex(i uint32) uint32 {
	ld := d.GetLocalDepth(i)
	return i ^ (1 << (ld - 1))
}

// IncrGlobalDepth doubles the live directory: for every live slot i, slot
// i | (1<<oldGlobalDepth) is set to the same bucket id and local depth as i.
// Precondition: GlobalDepth() < MaxDepth().
func (d DirectoryPage) IncrGlobalDepth() {
	oldGlobal := d.GlobalDepth()
	n := uint32(1) << oldGlobal
	for i := uint32(0); i < n; i++ {
		twin := i | n
		d.SetBucketPageId(twin, d.GetBucketPageId(i))
		d.SetLocalDepth(twin, d.GetLocalDepth(i))
	}
	d.setGlobalDepth(oldGlobal + 1)
}

// CanShrink reports whether every live local depth is strictly less than
// the global depth, i.e. DecrGlobalDepth would not orphan a bucket.
func (d DirectoryPage) CanShrink() bool {
	gd := d.GlobalDepth()
	n := d.Size()
	for i := uint32(0); i < n; i++ {
		if d.GetLocalDepth(i) >= uint8(gd) {
			return false
		}
	}
	return true
}

// DecrGlobalDepth halves the live directory. Precondition: CanShrink().
func (d DirectoryPage) DecrGlobalDepth() {
	d.setGlobalDepth(d.GlobalDepth() - 1)
}
