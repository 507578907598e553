package core

import (
	"sync"
	"time"

	"github.com/sliink/liveplot/internal/model"
)

// Mailbox is a FIFO queue with a non-blocking Send. Any number of producers
// may send; a single consumer drains. Several mailboxes can share one wake
// channel so one goroutine can wait on all of them with a single select.
type Mailbox[T any] struct {
	items      []T
	capacity   int
	closed     bool
	wake       chan struct{}
	delivered  uint64
	dropped    uint64
	lastUpdate time.Time
	mutex      sync.Mutex
}

// NewWakeChannel creates a wake channel suitable for sharing between mailboxes
func NewWakeChannel() chan struct{} {
	return make(chan struct{}, 1)
}

// NewMailbox creates a mailbox. A capacity of zero or less means unbounded.
// A nil wake channel gives the mailbox its own.
func NewMailbox[T any](capacity int, wake chan struct{}) *Mailbox[T] {
	if capacity < 0 {
		capacity = 0
	}
	if wake == nil {
		wake = NewWakeChannel()
	}
	return &Mailbox[T]{
		capacity: capacity,
		wake:     wake,
	}
}

// Send enqueues an item without blocking
func (m *Mailbox[T]) Send(item T) error {
	m.mutex.Lock()
	if m.closed {
		m.dropped++
		m.mutex.Unlock()
		return ErrMailboxClosed
	}
	if m.capacity > 0 && len(m.items) >= m.capacity {
		m.dropped++
		m.mutex.Unlock()
		return ErrMailboxFull
	}
	m.items = append(m.items, item)
	m.delivered++
	m.lastUpdate = time.Now()
	m.mutex.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
	return nil
}

// Drain removes and returns every pending item in send order
func (m *Mailbox[T]) Drain() []T {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if len(m.items) == 0 {
		return nil
	}
	items := m.items
	m.items = nil
	return items
}

// Ready returns the wake channel signalled after each successful Send
func (m *Mailbox[T]) Ready() <-chan struct{} {
	return m.wake
}

// Len returns the number of pending items
func (m *Mailbox[T]) Len() int {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return len(m.items)
}

// Close rejects further sends and discards pending items.
// It returns false if the mailbox was already closed.
func (m *Mailbox[T]) Close() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	if m.closed {
		return false
	}
	m.closed = true
	m.items = nil
	m.lastUpdate = time.Now()
	return true
}

// Closed reports whether Close has been called
func (m *Mailbox[T]) Closed() bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.closed
}

// Status returns a snapshot of the mailbox counters
func (m *Mailbox[T]) Status() model.MailboxStatus {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return model.MailboxStatus{
		Pending:    len(m.items),
		Delivered:  m.delivered,
		Dropped:    m.dropped,
		Closed:     m.closed,
		LastUpdate: m.lastUpdate,
	}
}
