package buffer

import (
	"fmt"
	"sync"

	"sediment/common"
	"sediment/disk"
	"sediment/disk/pages"
)

// replacerK is the LRU-K constant used by every pool this package builds.
// A real deployment might want this configurable per pool; nothing in this
// module needs more than one value yet.
const replacerK = 2

// Pool is the contract the hash table builds on: fetch/allocate a
// page, release it, and get its bytes flushed to durable storage.
type Pool interface {
	NewPage() (*pages.RawPage, error)
	FetchPage(pageID int32) (*pages.RawPage, error)
	UnpinPage(pageID int32, isDirty bool) bool
	FlushPage(pageID int32) bool
	FlushAllPages()
	DeletePage(pageID int32) bool

	NewPageGuarded() (BasicGuard, error)
	FetchPageBasic(pageID int32) (BasicGuard, error)
	FetchPageRead(pageID int32) (ReadGuard, error)
	FetchPageWrite(pageID int32) (WriteGuard, error)
}

var _ Pool = (*BufferPoolManager)(nil)

// BufferPoolManager keeps poolSize frames backed by disk, evicting through
// an LRUKReplacer when the free list runs dry. Generalized from the
// teacher's BufferPool: same free-list/page-table/per-frame-latch/global-
// latch shape, with disk I/O routed through a disk.Scheduler instead of a
// direct, synchronous DiskManager call, and no WAL/log-sequencing.
type BufferPoolManager struct {
	poolSize int
	frames   []*pages.RawPage

	mu        sync.Mutex // protects pageTable, freeList, and the replacer
	pageTable map[int32]int
	freeList  []int
	replacer  Replacer

	manager   disk.Manager
	scheduler *disk.Scheduler
	opLocks   *common.KeyMutex[int32]
}

// NewBufferPoolManager builds a pool of poolSize frames over manager,
// scheduling I/O through scheduler.
func NewBufferPoolManager(poolSize int, manager disk.Manager, scheduler *disk.Scheduler) *BufferPoolManager {
	free := make([]int, poolSize)
	frames := make([]*pages.RawPage, poolSize)
	for i := 0; i < poolSize; i++ {
		free[i] = i
		frames[i] = pages.NewRawPage()
	}

	return &BufferPoolManager{
		poolSize:  poolSize,
		frames:    frames,
		pageTable: make(map[int32]int),
		freeList:  free,
		replacer:  NewLRUKReplacer(poolSize, replacerK),
		manager:   manager,
		scheduler: scheduler,
		opLocks:   &common.KeyMutex[int32]{},
	}
}

// pickFrame chooses a frame to hold a page, preferring the free list over
// eviction. If the chosen frame holds a dirty page it is flushed first and
// dropped from the page table. Returns -1 if no frame is available. Caller
// holds mu.
func (b *BufferPoolManager) pickFrame() int {
	if n := len(b.freeList); n > 0 {
		idx := b.freeList[n-1]
		b.freeList = b.freeList[:n-1]
		return idx
	}

	frameIdx, ok := b.replacer.Evict()
	if !ok {
		return -1
	}

	victim := b.frames[frameIdx]
	if victim.IsDirty() {
		future := b.scheduler.Schedule(disk.Request{IsWrite: true, PageID: victim.GetPageId(), Data: victim.GetData()})
		common.PanicIfErr(future.Wait())
		victim.SetClean()
	}
	delete(b.pageTable, victim.GetPageId())
	return frameIdx
}

func (b *BufferPoolManager) NewPage() (*pages.RawPage, error) {
	b.mu.Lock()
	frameIdx := b.pickFrame()
	if frameIdx < 0 {
		b.mu.Unlock()
		return nil, fmt.Errorf("buffer: no frame available")
	}

	pageID := b.manager.AllocatePage()
	page := b.frames[frameIdx]
	page.Reset(pageID)
	page.SetDirty()
	b.pageTable[pageID] = frameIdx
	b.replacer.RecordAccess(frameIdx, AccessUnknown)
	b.replacer.SetEvictable(frameIdx, false)
	b.mu.Unlock()

	return page, nil
}

func (b *BufferPoolManager) FetchPage(pageID int32) (*pages.RawPage, error) {
	release := b.opLocks.Lock(pageID)
	defer release()

	b.mu.Lock()
	if frameIdx, ok := b.pageTable[pageID]; ok {
		page := b.frames[frameIdx]
		page.IncrPinCount()
		b.replacer.RecordAccess(frameIdx, AccessUnknown)
		b.replacer.SetEvictable(frameIdx, false)
		b.mu.Unlock()
		return page, nil
	}

	frameIdx := b.pickFrame()
	if frameIdx < 0 {
		b.mu.Unlock()
		return nil, fmt.Errorf("buffer: no frame available")
	}
	b.pageTable[pageID] = frameIdx
	b.mu.Unlock()

	page := b.frames[frameIdx]
	future := b.scheduler.Schedule(disk.Request{IsWrite: false, PageID: pageID, Data: page.GetData()})
	if err := future.Wait(); err != nil {
		b.mu.Lock()
		delete(b.pageTable, pageID)
		b.freeList = append(b.freeList, frameIdx)
		b.mu.Unlock()
		return nil, fmt.Errorf("buffer: FetchPage(%d): %w", pageID, err)
	}

	b.mu.Lock()
	page.SetPageId(pageID)
	page.IncrPinCount() // frame's pin count is 0 here: fresh, or an evicted victim
	page.SetClean()
	b.replacer.RecordAccess(frameIdx, AccessUnknown)
	b.replacer.SetEvictable(frameIdx, false)
	b.mu.Unlock()

	return page, nil
}

func (b *BufferPoolManager) UnpinPage(pageID int32, isDirty bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameIdx, ok := b.pageTable[pageID]
	if !ok {
		return false
	}
	page := b.frames[frameIdx]
	if page.GetPinCount() <= 0 {
		return false
	}

	if isDirty {
		page.SetDirty()
	}
	page.DecrPinCount()
	if page.GetPinCount() == 0 {
		b.replacer.SetEvictable(frameIdx, true)
	}
	return true
}

func (b *BufferPoolManager) FlushPage(pageID int32) bool {
	b.mu.Lock()
	frameIdx, ok := b.pageTable[pageID]
	if !ok {
		b.mu.Unlock()
		return false
	}
	page := b.frames[frameIdx]
	b.mu.Unlock()

	future := b.scheduler.Schedule(disk.Request{IsWrite: true, PageID: pageID, Data: page.GetData()})
	common.PanicIfErr(future.Wait())
	page.SetClean()
	return true
}

func (b *BufferPoolManager) FlushAllPages() {
	b.mu.Lock()
	pageIDs := make([]int32, 0, len(b.pageTable))
	for pid := range b.pageTable {
		pageIDs = append(pageIDs, pid)
	}
	b.mu.Unlock()

	for _, pid := range pageIDs {
		b.FlushPage(pid)
	}
}

func (b *BufferPoolManager) DeletePage(pageID int32) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	frameIdx, ok := b.pageTable[pageID]
	if !ok {
		return true
	}

	page := b.frames[frameIdx]
	if page.GetPinCount() > 0 {
		return false
	}

	b.replacer.Remove(frameIdx)
	delete(b.pageTable, pageID)
	b.manager.DeallocatePage(pageID)
	page.Reset(common.InvalidPageID)
	page.DecrPinCount() // Reset leaves pin count 1; a freed frame owns no pin
	b.freeList = append(b.freeList, frameIdx)
	return true
}

// NewPageGuarded is NewPage wrapped in a BasicGuard.
func (b *BufferPoolManager) NewPageGuarded() (BasicGuard, error) {
	page, err := b.NewPage()
	if err != nil {
		return BasicGuard{}, err
	}
	return newBasicGuard(b, page, true), nil
}

// FetchPageBasic is FetchPage wrapped in a BasicGuard.
func (b *BufferPoolManager) FetchPageBasic(pageID int32) (BasicGuard, error) {
	page, err := b.FetchPage(pageID)
	if err != nil {
		return BasicGuard{}, err
	}
	return newBasicGuard(b, page, false), nil
}

// FetchPageRead fetches pageID and upgrades straight to a ReadGuard.
func (b *BufferPoolManager) FetchPageRead(pageID int32) (ReadGuard, error) {
	basic, err := b.FetchPageBasic(pageID)
	if err != nil {
		return ReadGuard{}, err
	}
	return basic.UpgradeRead(), nil
}

// FetchPageWrite fetches pageID and upgrades straight to a WriteGuard.
func (b *BufferPoolManager) FetchPageWrite(pageID int32) (WriteGuard, error) {
	basic, err := b.FetchPageBasic(pageID)
	if err != nil {
		return WriteGuard{}, err
	}
	return basic.UpgradeWrite(), nil
}
