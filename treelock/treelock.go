package treelock

import (
	"sync"
)

// Mutex grants exclusive, non-reentrant access to the
// state of a single node.
//
// Unlike sync.Mutex, ownership is handed over directly
// to the oldest waiter on Unlock, so contenders are
// served strictly in arrival order and a releasing
// goroutine can never barge back in front of them.
//
// The zero value is an unlocked Mutex. A Mutex must not
// be copied after first use.
type Mutex struct {
	mtx     sync.Mutex
	held    bool
	waiters []chan struct{}
}

// Lock blocks until the caller holds the mutex.
func (m *Mutex) Lock() {
	m.mtx.Lock()
	if !m.held {
		m.held = true
		m.mtx.Unlock()
		return
	}
	waitCh := make(chan struct{})
	m.waiters = append(m.waiters, waitCh)
	m.mtx.Unlock()

	// The mutex stays held while it is handed over, so
	// being woken up means we are the holder now.
	<-waitCh
}

// TryLock acquires the mutex only if it is free and
// nobody is queued for it.
func (m *Mutex) TryLock() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if m.held {
		return false
	}
	m.held = true
	return true
}

// Unlock releases the mutex, handing it to the oldest
// waiter if there is one.
//
// Unlocking a free mutex is a programming error and
// panics.
func (m *Mutex) Unlock() {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if !m.held {
		panic("unlock of unlocked node")
	}
	if len(m.waiters) == 0 {
		m.held = false
		return
	}
	next := m.waiters[0]
	m.waiters[0] = nil
	m.waiters = m.waiters[1:]
	close(next)
}

// Waiters returns the number of goroutines queued for
// the mutex.
func (m *Mutex) Waiters() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return len(m.waiters)
}

// Do runs fn while holding the mutex.
func (m *Mutex) Do(fn func()) {
	m.Lock()
	defer m.Unlock()
	fn()
}
