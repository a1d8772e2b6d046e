package hierlock

import (
	"fmt"

	"github.com/hierlock/hierlock/log"
	"github.com/hierlock/hierlock/treelock"
)

type option struct {
	log log.Log
}

func newOption() *option {
	return &option{
		log: log.NoLog{},
	}
}

// Option is the options that could be passed to
// NewManager and NewDispatcher.
type Option func(*option)

// WithLog sets the logger of the manager. Records are
// only generated for the topics the logger enables.
func WithLog(value log.Log) Option {
	return func(o *option) {
		if value == nil {
			value = log.NoLog{}
		}
		o.log = value
	}
}

// Options is used to aggregate a bundle of options.
func Options(opts ...Option) Option {
	return func(o *option) {
		for _, opt := range opts {
			opt(o)
		}
	}
}

type slot struct {
	mtx treelock.Mutex
	st  lockState
}

// Manager owns the lock state of every node of a tree.
//
// All methods are safe for concurrent use. Each method
// runs to completion and reports whether it was granted;
// a denied request leaves no trace in the state.
type Manager struct {
	tree   *treelock.Tree
	slots  []slot
	locked *lockedSet
	log    log.Log
}

// NewManager creates a manager with every node of the
// tree unlocked.
func NewManager(tree *treelock.Tree, opts ...Option) *Manager {
	option := newOption()
	Options(opts...)(option)
	return &Manager{
		tree:   tree,
		slots:  make([]slot, tree.Len()),
		locked: newLockedSet(),
		log:    option.log,
	}
}

// Tree returns the tree the manager was created for.
func (m *Manager) Tree() *treelock.Tree {
	return m.tree
}

func (m *Manager) slot(n *treelock.Node) *slot {
	return &m.slots[n.Index()]
}

// with runs fn on the state of n while holding the
// node's serializer.
func (m *Manager) with(n *treelock.Node, fn func(*lockState)) {
	s := m.slot(n)
	s.mtx.Lock()
	defer s.mtx.Unlock()
	fn(&s.st)
}

// State returns a snapshot of the lock state of n.
func (m *Manager) State(n *treelock.Node) LockState {
	var result LockState
	m.with(n, func(st *lockState) {
		result = st.snapshot()
	})
	return result
}

// Locked returns the currently locked nodes in level
// order.
func (m *Manager) Locked() []*treelock.Node {
	return m.locked.snapshot()
}

// Lock locks n for owner. It fails if n is locked, or if
// any ancestor or descendant of n is locked.
func (m *Manager) Lock(n *treelock.Node, owner Owner) bool {
	cookie := m.call("Lock", n, owner)
	result := m.lock(n, owner)
	m.ret("Lock", cookie, n, result)
	return result
}

// Unlock releases the lock owner holds on n.
func (m *Manager) Unlock(n *treelock.Node, owner Owner) bool {
	cookie := m.call("Unlock", n, owner)
	result := m.unlock(n, owner)
	m.ret("Unlock", cookie, n, result)
	return result
}

// Upgrade replaces the locks owner holds on descendants
// of n with a single lock on n.
//
// It fails if n is locked, if an ancestor of n is
// locked, if no descendant of n is locked, or if any
// locked descendant belongs to another owner. In the
// last case the descendants stay locked.
func (m *Manager) Upgrade(n *treelock.Node, owner Owner) bool {
	cookie := m.call("Upgrade", n, owner)
	result := m.upgrade(n, owner)
	m.ret("Upgrade", cookie, n, result)
	return result
}

func (m *Manager) lock(n *treelock.Node, owner Owner) bool {
	var reason string
	m.with(n, func(st *lockState) {
		switch {
		case st.busy():
			reason = "node already locked"
		case st.ancestors > 0:
			reason = "ancestor locked"
		case st.descendants > 0:
			reason = "descendant locked"
		default:
			st.phase = phaseAcquiring
			st.owner = owner
		}
	})
	if reason != "" {
		m.deny("lock", n, owner, reason)
		return false
	}
	m.locked.add(n)
	if !m.raise(n) {
		return false
	}
	m.propagateDown(n, 1)
	m.commit(n)
	return true
}

func (m *Manager) unlock(n *treelock.Node, owner Owner) bool {
	var reason string
	m.with(n, func(st *lockState) {
		switch {
		case st.phase != phaseHeld:
			reason = "node not locked"
		case st.owner != owner:
			reason = "node locked by another requester"
		default:
			st.phase = phaseReleasing
		}
	})
	if reason != "" {
		m.deny("unlock", n, owner, reason)
		return false
	}
	m.release(n)
	return true
}

func (m *Manager) upgrade(n *treelock.Node, owner Owner) bool {
	var reason string
	m.with(n, func(st *lockState) {
		switch {
		case st.busy():
			reason = "node already locked"
		case st.ancestors > 0:
			reason = "ancestor locked"
		case st.descendants == 0:
			reason = "no locked descendant"
		default:
			st.phase = phaseAcquiring
			st.owner = owner
		}
	})
	if reason != "" {
		m.deny("upgrade", n, owner, reason)
		return false
	}
	m.locked.add(n)

	// Reserving n keeps new locks out of its subtree, so
	// the snapshot holds every lock that has to go.
	var victims []*treelock.Node
	for _, d := range m.locked.snapshot() {
		if !n.IsAncestorOf(d) {
			continue
		}
		var st LockState
		var held bool
		m.with(d, func(s *lockState) {
			st = s.snapshot()
			held = s.phase == phaseHeld
		})
		if !held || st.Owner != owner {
			m.denyf("upgrade", n, owner,
				"descendant %q locked by requester %d", d.Name(), st.Owner)
			m.abandon(n)
			return false
		}
		victims = append(victims, d)
	}

	if !m.raise(n) {
		return false
	}
	for _, d := range victims {
		m.releaseOwned(d, owner)
	}
	m.propagateDown(n, 1)
	m.commit(n)
	return true
}

// raise increments the descendant counter of every
// ancestor of the reserved node n. If a concurrent
// request has reserved an ancestor in the meantime, the
// increments are undone, n is abandoned and false is
// returned.
func (m *Manager) raise(n *treelock.Node) bool {
	blocker := m.propagateUp(n, 1)
	if blocker == nil {
		return true
	}
	if m.log.Enabled(log.TopicError) {
		m.log.Logf(log.TopicError,
			"%q rolled back: ancestor %q locked concurrently",
			n.Name(), blocker.Name())
	}
	m.abandon(n)
	return false
}

// releaseOwned releases d on behalf of an upgrade, unless
// its owner released it concurrently.
func (m *Manager) releaseOwned(d *treelock.Node, owner Owner) {
	owned := false
	m.with(d, func(st *lockState) {
		if st.phase == phaseHeld && st.owner == owner {
			st.phase = phaseReleasing
			owned = true
		}
	})
	if owned {
		m.release(d)
	}
}

// release runs the counter walks of an unlock for the
// releasing node n and frees it.
func (m *Manager) release(n *treelock.Node) {
	m.propagateUp(n, -1)
	m.propagateDown(n, -1)
	m.abandon(n)
}

// abandon frees n without touching any counter.
func (m *Manager) abandon(n *treelock.Node) {
	m.locked.remove(n)
	m.with(n, func(st *lockState) {
		st.phase = phaseFree
		st.owner = 0
	})
}

func (m *Manager) commit(n *treelock.Node) {
	m.with(n, func(st *lockState) {
		st.phase = phaseHeld
	})
}

// propagateUp adds delta to the descendant counter of
// each ancestor of n, nearest first, holding one
// ancestor at a time.
//
// When delta is positive and an ancestor is found busy,
// the walk stops, the ancestors already visited are
// restored and the busy ancestor is returned.
func (m *Manager) propagateUp(n *treelock.Node, delta int) *treelock.Node {
	trace := m.log.Enabled(log.TopicTrace)
	for a := n.Parent(); a != nil; a = a.Parent() {
		blocked := false
		m.with(a, func(st *lockState) {
			if delta > 0 && st.busy() {
				blocked = true
				return
			}
			st.descendants += delta
			if st.descendants < 0 {
				panic("negative descendant count")
			}
		})
		if blocked {
			for b := n.Parent(); b != a; b = b.Parent() {
				m.with(b, func(st *lockState) {
					st.descendants -= delta
				})
			}
			return a
		}
		if trace {
			m.log.Logf(log.TopicTrace,
				"descendants of %q %+d for %q", a.Name(), delta, n.Name())
		}
	}
	return nil
}

// propagateDown adds delta to the ancestor counter of
// every strict descendant of n.
func (m *Manager) propagateDown(n *treelock.Node, delta int) {
	trace := m.log.Enabled(log.TopicTrace)
	treelock.Walk(n, func(d *treelock.Node) bool {
		if d == n {
			return true
		}
		m.with(d, func(st *lockState) {
			st.ancestors += delta
			if st.ancestors < 0 {
				panic("negative ancestor count")
			}
		})
		return true
	})
	if trace {
		m.log.Logf(log.TopicTrace,
			"ancestors below %q %+d", n.Name(), delta)
	}
}

func (m *Manager) call(name string, n *treelock.Node, owner Owner) string {
	if !m.log.Enabled(log.TopicCall) {
		return ""
	}
	return m.log.Call(name, log.M{
		"node":  n.Name(),
		"owner": owner,
	})
}

func (m *Manager) ret(name, cookie string, n *treelock.Node, granted bool) {
	if !m.log.Enabled(log.TopicCall) {
		return
	}
	m.log.Return(name, cookie, log.M{
		"granted": granted,
		"state":   m.State(n),
	})
}

func (m *Manager) deny(op string, n *treelock.Node, owner Owner, reason string) {
	if !m.log.Enabled(log.TopicVerdict) {
		return
	}
	m.log.Logf(log.TopicVerdict, "%s %q by %d denied: %s", op, n.Name(), owner, reason)
}

func (m *Manager) denyf(op string, n *treelock.Node, owner Owner, format string, args ...any) {
	if !m.log.Enabled(log.TopicVerdict) {
		return
	}
	m.deny(op, n, owner, fmt.Sprintf(format, args...))
}
