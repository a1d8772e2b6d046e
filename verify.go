package hierlock

import (
	"fmt"

	"github.com/hierlock/hierlock/treelock"
)

// InvariantError describes the first inconsistency found
// by Verify.
type InvariantError struct {
	Node string
	Msg  string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated at node %q: %s", e.Node, e.Msg)
}

// Verify checks the lock state of every node against the
// locks actually held in the tree:
//
//   - the ancestor counter equals the number of locked
//     strict ancestors,
//   - the descendant counter equals the number of locked
//     strict descendants,
//   - a locked node has no locked ancestor or descendant,
//   - a node is in the locked set iff it is locked.
//
// The result is only meaningful while no operation is in
// flight.
func (m *Manager) Verify() error {
	nodes := m.tree.Nodes()
	states := make([]lockState, len(nodes))
	for _, n := range nodes {
		m.with(n, func(st *lockState) {
			states[n.Index()] = *st
		})
	}

	// Level order lists parents before their children, so
	// one forward pass counts ancestors and one backward
	// pass counts descendants.
	ancestors := make([]int, len(nodes))
	descendants := make([]int, len(nodes))
	locked := func(n *treelock.Node) int {
		if states[n.Index()].busy() {
			return 1
		}
		return 0
	}
	for _, n := range nodes {
		if p := n.Parent(); p != nil {
			ancestors[n.Index()] = ancestors[p.Index()] + locked(p)
		}
	}
	for i := len(nodes) - 1; i >= 0; i-- {
		n := nodes[i]
		if p := n.Parent(); p != nil {
			descendants[p.Index()] += descendants[i] + locked(n)
		}
	}

	for _, n := range nodes {
		st := states[n.Index()]
		fail := func(format string, args ...any) error {
			return &InvariantError{
				Node: n.Name(),
				Msg:  fmt.Sprintf(format, args...),
			}
		}
		switch st.phase {
		case phaseFree, phaseHeld:
		default:
			return fail("operation in flight (%s)", st.phase)
		}
		if st.ancestors != ancestors[n.Index()] {
			return fail("ancestor count %d, %d ancestors locked",
				st.ancestors, ancestors[n.Index()])
		}
		if st.descendants != descendants[n.Index()] {
			return fail("descendant count %d, %d descendants locked",
				st.descendants, descendants[n.Index()])
		}
		if st.busy() && (st.ancestors > 0 || st.descendants > 0) {
			return fail("locked with %d locked ancestors and %d locked descendants",
				st.ancestors, st.descendants)
		}
		if !st.busy() && st.owner != 0 {
			return fail("unlocked but owned by %d", st.owner)
		}
		if inSet := m.locked.contains(n); inSet != st.busy() {
			return fail("locked %v but locked set membership %v", st.busy(), inSet)
		}
	}
	return nil
}
