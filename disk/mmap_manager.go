//go:build unix

package disk

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"sediment/common"
)

// growChunk is how many pages MMapManager extends the backing file by once
// the current mapping is exhausted.
const growChunk = 256

// MMapManager is an alternate Manager that memory-maps its backing file
// instead of calling ReadAt/WriteAt per page. Reads are plain memory copies;
// writes stay visible to other readers without a syscall, and are only
// forced to disk on Sync/Shutdown.
type MMapManager struct {
	mu         sync.Mutex
	file       *os.File
	data       []byte
	sizePages  int64
	nextPageID int32
}

var _ Manager = (*MMapManager)(nil)

// NewMMapManager opens (creating if necessary) path and maps it in.
func NewMMapManager(path string) (*MMapManager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("disk: open %q: %w", path, err)
	}

	m := &MMapManager{file: f}
	if err := m.growLocked(growChunk); err != nil {
		f.Close()
		return nil, err
	}
	return m, nil
}

// growLocked unmaps (if mapped) and remaps the file with at least
// minExtraPages additional pages of headroom. Caller must hold mu.
func (m *MMapManager) growLocked(minExtraPages int64) error {
	newSizePages := m.sizePages + minExtraPages
	newSize := newSizePages * int64(common.PageSize)

	if err := m.file.Truncate(newSize); err != nil {
		return fmt.Errorf("disk: truncate: %w", err)
	}

	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return fmt.Errorf("disk: munmap: %w", err)
		}
	}

	data, err := unix.Mmap(int(m.file.Fd()), 0, int(newSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("disk: mmap: %w", err)
	}

	m.data = data
	m.sizePages = newSizePages
	return nil
}

func (m *MMapManager) ensureLocked(pageID int32) error {
	for int64(pageID+1) > m.sizePages {
		if err := m.growLocked(growChunk); err != nil {
			return err
		}
	}
	return nil
}

func (m *MMapManager) ReadPage(pageID int32, dst []byte) error {
	if len(dst) != common.PageSize {
		return fmt.Errorf("disk: ReadPage dst must be %d bytes, got %d", common.PageSize, len(dst))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLocked(pageID); err != nil {
		return err
	}
	off := int64(pageID) * int64(common.PageSize)
	copy(dst, m.data[off:off+int64(common.PageSize)])
	return nil
}

func (m *MMapManager) WritePage(pageID int32, src []byte) error {
	if len(src) != common.PageSize {
		return fmt.Errorf("disk: WritePage src must be %d bytes, got %d", common.PageSize, len(src))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureLocked(pageID); err != nil {
		return err
	}
	off := int64(pageID) * int64(common.PageSize)
	copy(m.data[off:off+int64(common.PageSize)], src)
	return nil
}

func (m *MMapManager) AllocatePage() int32 {
	return atomic.AddInt32(&m.nextPageID, 1) - 1
}

func (m *MMapManager) DeallocatePage(int32) {}

// Sync forces the current mapping to disk.
func (m *MMapManager) Sync() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

func (m *MMapManager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data != nil {
		if err := unix.Msync(m.data, unix.MS_SYNC); err != nil {
			return fmt.Errorf("disk: msync: %w", err)
		}
		if err := unix.Munmap(m.data); err != nil {
			return fmt.Errorf("disk: munmap: %w", err)
		}
		m.data = nil
	}
	return m.file.Close()
}
