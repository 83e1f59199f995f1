package disk

import (
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v3"
)

// Request is a single scheduled disk operation: a direction, a buffer, and
// the page it targets. Schedule attaches the completion promise.
type Request struct {
	IsWrite bool
	Data    []byte
	PageID  int32
}

// Future is the promise half of a scheduled request. Wait blocks until the
// worker has fulfilled it and returns whatever error the underlying Manager
// call produced.
type Future struct {
	done chan error
}

// Wait blocks until the request completes and returns its result. Wait may
// be called at most once.
func (f *Future) Wait() error {
	return <-f.done
}

type scheduled struct {
	req    Request
	future *Future
}

// Scheduler is the asynchronous front end for a Manager: callers enqueue
// Requests and get back a Future instead of blocking inline. Only one
// worker goroutine drains the queue, so requests against the same page id
// complete in submission order; requests against different page ids make no
// ordering guarantee relative to each other.
//
// pending is a concurrent map from request id to the request awaiting
// execution, keyed separately from the FIFO ordering channel so Schedule
// never contends with the worker goroutine over a single mutex.
type Scheduler struct {
	manager Manager
	order   chan uint64
	pending *xsync.MapOf[uint64, scheduled]
	nextID  uint64
	done    chan struct{}
}

// NewScheduler starts a worker goroutine over manager. Call Shutdown to stop it.
func NewScheduler(manager Manager) *Scheduler {
	s := &Scheduler{
		manager: manager,
		order:   make(chan uint64, 256),
		pending: xsync.NewMapOf[uint64, scheduled](),
		done:    make(chan struct{}),
	}
	go s.worker()
	return s
}

// Schedule enqueues req and returns a Future that resolves once it completes.
func (s *Scheduler) Schedule(req Request) *Future {
	future := &Future{done: make(chan error, 1)}
	id := atomic.AddUint64(&s.nextID, 1)
	s.pending.Store(id, scheduled{req: req, future: future})
	s.order <- id
	return future
}

func (s *Scheduler) resolve(id uint64) {
	item, ok := s.pending.LoadAndDelete(id)
	if !ok {
		return
	}
	item.future.done <- s.execute(item.req)
}

func (s *Scheduler) worker() {
	for {
		select {
		case id := <-s.order:
			s.resolve(id)
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) execute(req Request) error {
	if req.IsWrite {
		return s.manager.WritePage(req.PageID, req.Data)
	}
	return s.manager.ReadPage(req.PageID, req.Data)
}

// Shutdown stops the worker goroutine. Requests already queued are still
// drained before the scheduler exits; Schedule must not be called after
// Shutdown returns.
func (s *Scheduler) Shutdown() {
	for len(s.order) > 0 {
		s.resolve(<-s.order)
	}
	close(s.done)
}
