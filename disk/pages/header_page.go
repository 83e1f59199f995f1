package pages

import (
	"encoding/binary"

	"sediment/common"
)

// HeaderPage is the top level of the extendible hash table's three-level
// page hierarchy. It holds an array of directory page ids indexed by the
// high bits of the hash.
//
// Layout (big-endian):
//
//	-----------------------------------------------------------------
//	| MaxDepth (4) | DirectoryPageIds[2^MaxDepth] (4 bytes each) ... |
//	-----------------------------------------------------------------
type HeaderPage struct {
	data []byte
}

const headerMaxDepthOffset = 0
const headerDirectoryIDsOffset = 4

// CastHeaderPage reinterprets a frame's raw bytes as a HeaderPage.
func CastHeaderPage(raw []byte) HeaderPage {
	return HeaderPage{data: raw}
}

// Init sets maxDepth and fills every directory slot with common.InvalidPageID.
func (h HeaderPage) Init(maxDepth uint32) {
	binary.BigEndian.PutUint32(h.data[headerMaxDepthOffset:], maxDepth)
	n := 1 << maxDepth
	for i := 0; i < n; i++ {
		h.SetDirectoryPageId(uint32(i), common.InvalidPageID)
	}
}

func (h HeaderPage) MaxDepth() uint32 {
	return binary.BigEndian.Uint32(h.data[headerMaxDepthOffset:])
}

// HashToDirectoryIndex takes the high MaxDepth bits of hash.
func (h HeaderPage) HashToDirectoryIndex(hash uint32) uint32 {
	maxDepth := h.MaxDepth()
	if maxDepth == 0 {
		return 0
	}
	return hash >> (32 - maxDepth)
}

func (h HeaderPage) slotOffset(i uint32) int {
	return headerDirectoryIDsOffset + int(i)*4
}

func (h HeaderPage) GetDirectoryPageId(i uint32) int32 {
	off := h.slotOffset(i)
	return int32(binary.BigEndian.Uint32(h.data[off:]))
}

func (h HeaderPage) SetDirectoryPageId(i uint32, id int32) {
	off := h.slotOffset(i)
	binary.BigEndian.PutUint32(h.data[off:], uint32(id))
}

// MaxSize returns the number of directory slots the header can address.
func (h HeaderPage) MaxSize() uint32 {
	return 1 << h.MaxDepth()
}
