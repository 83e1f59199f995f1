package buffer

import (
	"container/list"
	"fmt"
	"sync"
)

// LRUKReplacer implements the backward-k-distance eviction policy: frames
// with fewer than k recorded accesses ("the inf group") are always
// preferred as victims over frames with k or more ("the finite group"). The
// inf group is ordered by first access and the finite group by k-th most
// recent access, oldest first in both. A doubly linked list plus
// a map from frame id to its list element gives O(1) splicing, with a
// cached element marking the inf/finite boundary. container/list is the
// stdlib doubly-linked list; no example repo in the retrieved pack ships
// one of its own, so there is no third-party alternative to ground this
// data structure on (see DESIGN.md).
type LRUKReplacer struct {
	mu sync.Mutex

	k          int
	numFrames  int
	order      *list.List
	elems      map[int]*list.Element
	history    map[int][]uint64
	evictable  map[int]bool
	boundary   *list.Element // first element of the finite group, nil if none
	currTS     uint64
	evictCount int
}

var _ Replacer = (*LRUKReplacer)(nil)

// NewLRUKReplacer constructs a replacer tracking up to numFrames distinct
// frame ids, evicting by their k-th most recent access.
func NewLRUKReplacer(numFrames, k int) *LRUKReplacer {
	return &LRUKReplacer{
		k:         k,
		numFrames: numFrames,
		order:     list.New(),
		elems:     make(map[int]*list.Element),
		history:   make(map[int][]uint64),
		evictable: make(map[int]bool),
	}
}

func (r *LRUKReplacer) RecordAccess(frameID int, _ AccessType) {
	if frameID < 0 || frameID >= r.numFrames {
		panic(fmt.Sprintf("buffer: RecordAccess: frame id %d out of range [0,%d)", frameID, r.numFrames))
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.currTS++

	elem, tracked := r.elems[frameID]
	if !tracked {
		if r.boundary != nil {
			elem = r.order.InsertBefore(frameID, r.boundary)
		} else {
			elem = r.order.PushBack(frameID)
		}
		r.elems[frameID] = elem
		r.evictable[frameID] = false
	}

	hist := append(r.history[frameID], r.currTS)
	if len(hist) > r.k {
		hist = hist[len(hist)-r.k:]
	}
	r.history[frameID] = hist

	if len(hist) >= r.k {
		if elem == r.boundary {
			r.boundary = r.boundary.Next()
		}
		// Keep the finite group sorted by k-th most recent timestamp.
		mark := r.boundary
		for mark != nil && (mark == elem || r.history[mark.Value.(int)][0] < hist[0]) {
			mark = mark.Next()
		}
		if mark != nil {
			r.order.MoveBefore(elem, mark)
		} else {
			r.order.MoveToBack(elem)
		}
		if r.boundary == nil || r.boundary == mark {
			r.boundary = elem
		}
	}
}

func (r *LRUKReplacer) SetEvictable(frameID int, evictable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, tracked := r.elems[frameID]; !tracked {
		return
	}

	was := r.evictable[frameID]
	r.evictable[frameID] = evictable
	if evictable && !was {
		r.evictCount++
	} else if !evictable && was {
		r.evictCount--
	}
}

func (r *LRUKReplacer) Evict() (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for e := r.order.Front(); e != nil; e = e.Next() {
		frameID := e.Value.(int)
		if !r.evictable[frameID] {
			continue
		}
		r.forget(e, frameID)
		return frameID, true
	}
	return 0, false
}

func (r *LRUKReplacer) Remove(frameID int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	elem, tracked := r.elems[frameID]
	if !tracked {
		return
	}
	if !r.evictable[frameID] {
		panic(fmt.Sprintf("buffer: Remove: frame %d is not evictable", frameID))
	}
	r.forget(elem, frameID)
}

// forget removes frameID's bookkeeping. Caller holds mu.
func (r *LRUKReplacer) forget(elem *list.Element, frameID int) {
	if elem == r.boundary {
		r.boundary = r.boundary.Next()
	}
	r.order.Remove(elem)
	delete(r.elems, frameID)
	delete(r.history, frameID)
	delete(r.evictable, frameID)
	r.evictCount--
}

func (r *LRUKReplacer) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.evictCount
}
