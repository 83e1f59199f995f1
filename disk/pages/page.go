// Package pages defines the fixed-size frame (C1) and the typed views the
// extendible hash table reinterprets its bytes as (C5): header, directory,
// and bucket pages.
package pages

import (
	"sync"

	"sediment/common"
)

// IPage is the vocabulary the buffer pool and its guards use to manipulate a
// frame's content and metadata, independent of what the bytes mean.
type IPage interface {
	GetData() []byte
	GetPageId() int32
	GetPinCount() int32
	IsDirty() bool
	SetDirty()
	SetClean()

	WLatch()
	WUnlatch()
	RLatch()
	RUnLatch()

	IncrPinCount()
	DecrPinCount()
}

// RawPage is a frame: common.PageSize bytes plus the metadata the buffer
// pool needs to decide what to do with it. The buffer pool is oblivious to
// what the bytes mean; callers cast GetData() through Header/Directory/
// BucketPage to interpret it.
type RawPage struct {
	pageID   int32
	pinCount int32
	isDirty  bool
	rwLatch  sync.RWMutex
	data     []byte
}

var _ IPage = (*RawPage)(nil)

// NewRawPage allocates an empty frame holding common.InvalidPageID.
func NewRawPage() *RawPage {
	return &RawPage{
		pageID: common.InvalidPageID,
		data:   make([]byte, common.PageSize),
	}
}

// Reset reinitializes the frame for reuse with a new page id: zeroed data,
// pin count 1 (the caller that triggered the reset holds it), clean.
func (p *RawPage) Reset(pageID int32) {
	p.pageID = pageID
	p.pinCount = 1
	p.isDirty = false
	for i := range p.data {
		p.data[i] = 0
	}
}

func (p *RawPage) GetData() []byte    { return p.data }
func (p *RawPage) GetPageId() int32   { return p.pageID }
func (p *RawPage) SetPageId(id int32) { p.pageID = id }
func (p *RawPage) GetPinCount() int32 { return p.pinCount }
func (p *RawPage) IsDirty() bool      { return p.isDirty }
func (p *RawPage) SetDirty()          { p.isDirty = true }
func (p *RawPage) SetClean()          { p.isDirty = false }

func (p *RawPage) WLatch()   { p.rwLatch.Lock() }
func (p *RawPage) WUnlatch() { p.rwLatch.Unlock() }
func (p *RawPage) RLatch()   { p.rwLatch.RLock() }
func (p *RawPage) RUnLatch() { p.rwLatch.RUnlock() }

func (p *RawPage) IncrPinCount() { p.pinCount++ }
func (p *RawPage) DecrPinCount() { p.pinCount-- }
