package events

import "sync"

// buffer is a thread-safe ring of pending events that doubles its
// capacity when full, so a slow broker briefly backs events up in memory
// instead of stalling the request path.
type buffer struct {
	mu     sync.Mutex
	cond   *sync.Cond
	buf    []EntryCommitted
	head   int
	tail   int
	count  int
	closed bool
}

func newBuffer(initialCapacity int) *buffer {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	b := &buffer{
		buf: make([]EntryCommitted, initialCapacity),
	}
	b.cond = sync.NewCond(&b.mu)
	return b
}

// send enqueues an event, growing if needed. Returns false once closed.
func (b *buffer) send(e EntryCommitted) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	if b.count == len(b.buf) {
		b.grow()
	}

	b.buf[b.tail] = e
	b.tail = (b.tail + 1) % len(b.buf)
	b.count++

	b.cond.Signal()
	return true
}

// receive blocks until an event is available or the buffer is closed and
// drained.
func (b *buffer) receive() (EntryCommitted, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for b.count == 0 && !b.closed {
		b.cond.Wait()
	}
	if b.count == 0 {
		return EntryCommitted{}, false
	}

	e := b.buf[b.head]
	b.buf[b.head] = EntryCommitted{}
	b.head = (b.head + 1) % len(b.buf)
	b.count--
	return e, true
}

// close stops accepting events; pending events remain receivable.
func (b *buffer) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.cond.Broadcast()
}

func (b *buffer) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// grow doubles capacity, preserving order. Caller holds mu.
func (b *buffer) grow() {
	next := make([]EntryCommitted, len(b.buf)*2)
	for i := 0; i < b.count; i++ {
		next[i] = b.buf[(b.head+i)%len(b.buf)]
	}
	b.buf = next
	b.head = 0
	b.tail = b.count
}
