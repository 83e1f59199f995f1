package pages

import (
	"encoding/binary"
)

// Serializer converts a fixed-width value of type T to and from its
// on-disk byte representation. Size must return a constant independent of
// the value, since bucket pages lay out entries as a flat array of
// Size()-byte slots. Shaped after the btree key serializer interface:
// Serialize/Deserialize/Size.
type Serializer[T any] interface {
	Serialize(v T, dst []byte)
	Deserialize(src []byte) T
	Size() int
}

// Int32Serializer serializes int32 values big-endian, the layout used for
// page ids everywhere in the header/directory/bucket pages.
type Int32Serializer struct{}

func (Int32Serializer) Serialize(v int32, dst []byte) { binary.BigEndian.PutUint32(dst, uint32(v)) }
func (Int32Serializer) Deserialize(src []byte) int32   { return int32(binary.BigEndian.Uint32(src)) }
func (Int32Serializer) Size() int                      { return 4 }

// Uint64Serializer serializes uint64 values big-endian.
type Uint64Serializer struct{}

func (Uint64Serializer) Serialize(v uint64, dst []byte) { binary.BigEndian.PutUint64(dst, v) }
func (Uint64Serializer) Deserialize(src []byte) uint64  { return binary.BigEndian.Uint64(src) }
func (Uint64Serializer) Size() int                      { return 8 }

// FixedStringSerializer serializes strings into a fixed-width, NUL-padded
// slot.
type FixedStringSerializer struct {
	Len int
}

func (s FixedStringSerializer) Serialize(v string, dst []byte) {
	for i := range dst {
		dst[i] = 0
	}
	copy(dst, v)
}

func (s FixedStringSerializer) Deserialize(src []byte) string {
	end := len(src)
	for end > 0 && src[end-1] == 0 {
		end--
	}
	return string(src[:end])
}

func (s FixedStringSerializer) Size() int { return s.Len }
