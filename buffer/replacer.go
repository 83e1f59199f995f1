package buffer

// AccessType tags why a frame was touched. The LRU-K policy itself ignores
// it today, but RecordAccess threads it through for callers that may want
// policies sensitive to access kind later.
type AccessType int

const (
	AccessUnknown AccessType = iota
	AccessLookup
	AccessScan
	AccessIndex
)

// Replacer is the eviction-policy contract consumed by the buffer pool
// manager.
type Replacer interface {
	// RecordAccess stamps frameID with the current logical timestamp,
	// starting to track it if it is unseen. Panics if frameID is out of
	// range.
	RecordAccess(frameID int, accessType AccessType)

	// SetEvictable flips frameID's evictable flag, adjusting Size() by the
	// delta. No-op if frameID isn't tracked.
	SetEvictable(frameID int, evictable bool)

	// Evict returns the victim frame per the backward-k-distance policy and
	// forgets it, or ok=false if no frame is evictable.
	Evict() (frameID int, ok bool)

	// Remove forgets frameID. Panics if it is tracked but not evictable.
	// No-op if untracked.
	Remove(frameID int)

	// Size returns the number of currently evictable tracked frames.
	Size() int
}
