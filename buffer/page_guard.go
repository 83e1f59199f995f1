package buffer

import "sediment/disk/pages"

// BasicGuard owns a pin on a page and releases it exactly once. Go has no
// move semantics, so "move-only" is enforced by convention: Upgrade* and
// the zero value both leave the guard empty, and Drop on an empty guard is
// a no-op.
type BasicGuard struct {
	pool    Pool
	page    *pages.RawPage
	isDirty bool
}

func newBasicGuard(pool Pool, page *pages.RawPage, isDirty bool) BasicGuard {
	return BasicGuard{pool: pool, page: page, isDirty: isDirty}
}

// empty reports whether this guard has already been dropped or upgraded.
func (g BasicGuard) empty() bool { return g.page == nil }

// PageID returns the guarded page's id. Panics if the guard is empty.
func (g BasicGuard) PageID() int32 { return g.page.GetPageId() }

// AsRef reinterprets the frame's bytes as T via cast, without marking it
// dirty.
func AsRef[T any](g BasicGuard, cast func([]byte) T) T {
	return cast(g.page.GetData())
}

// AsMut reinterprets the frame's bytes as T via cast and marks the guard
// dirty, so Drop persists the mutation.
func AsMut[T any](g *BasicGuard, cast func([]byte) T) T {
	g.isDirty = true
	return cast(g.page.GetData())
}

// Drop releases the guard's pin. Safe to call on an empty guard.
func (g *BasicGuard) Drop() {
	if g.empty() {
		return
	}
	g.pool.UnpinPage(g.page.GetPageId(), g.isDirty)
	g.page = nil
}

// UpgradeRead acquires the frame's read latch and transfers ownership of
// the pin into a ReadGuard. g is emptied so its own Drop becomes a no-op.
func (g *BasicGuard) UpgradeRead() ReadGuard {
	g.page.RLatch()
	rg := ReadGuard{pool: g.pool, page: g.page}
	g.page = nil
	return rg
}

// UpgradeWrite acquires the frame's write latch and transfers ownership of
// the pin into a WriteGuard, which always flags the page dirty on drop. g
// is emptied so its own Drop becomes a no-op.
func (g *BasicGuard) UpgradeWrite() WriteGuard {
	g.page.WLatch()
	wg := WriteGuard{pool: g.pool, page: g.page}
	g.page = nil
	return wg
}

// ReadGuard holds a pin plus the frame's read latch.
type ReadGuard struct {
	pool Pool
	page *pages.RawPage
}

func (g ReadGuard) empty() bool   { return g.page == nil }
func (g ReadGuard) PageID() int32 { return g.page.GetPageId() }

// AsRefR reinterprets the frame's bytes as T via cast.
func AsRefR[T any](g ReadGuard, cast func([]byte) T) T {
	return cast(g.page.GetData())
}

// Drop releases the read latch then the pin. Safe to call on an empty guard.
func (g *ReadGuard) Drop() {
	if g.empty() {
		return
	}
	g.page.RUnLatch()
	g.pool.UnpinPage(g.page.GetPageId(), false)
	g.page = nil
}

// WriteGuard holds a pin plus the frame's write latch. Any access through
// it is assumed mutating, so Drop always marks the page dirty.
type WriteGuard struct {
	pool Pool
	page *pages.RawPage
}

func (g WriteGuard) empty() bool   { return g.page == nil }
func (g WriteGuard) PageID() int32 { return g.page.GetPageId() }

// AsMutW reinterprets the frame's bytes as T via cast.
func AsMutW[T any](g WriteGuard, cast func([]byte) T) T {
	return cast(g.page.GetData())
}

// Drop releases the write latch then the pin. Safe to call on an empty guard.
func (g *WriteGuard) Drop() {
	if g.empty() {
		return
	}
	g.page.WUnlatch()
	g.pool.UnpinPage(g.page.GetPageId(), true)
	g.page = nil
}
