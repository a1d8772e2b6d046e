package hierlock

import (
	"sort"
	"sync"

	"github.com/hierlock/hierlock/treelock"
)

// lockedSet tracks the nodes that are currently locked,
// so that upgrade can find locked descendants without
// scanning the whole subtree.
type lockedSet struct {
	mtx   sync.Mutex
	nodes map[*treelock.Node]struct{}
}

func newLockedSet() *lockedSet {
	return &lockedSet{
		nodes: make(map[*treelock.Node]struct{}),
	}
}

func (s *lockedSet) add(n *treelock.Node) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.nodes[n] = struct{}{}
}

func (s *lockedSet) remove(n *treelock.Node) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	delete(s.nodes, n)
}

func (s *lockedSet) contains(n *treelock.Node) bool {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	_, ok := s.nodes[n]
	return ok
}

// snapshot returns the members in level order. The
// result is a copy and is not affected by later
// changes to the set.
func (s *lockedSet) snapshot() []*treelock.Node {
	s.mtx.Lock()
	result := make([]*treelock.Node, 0, len(s.nodes))
	for n := range s.nodes {
		result = append(result, n)
	}
	s.mtx.Unlock()
	sort.Slice(result, func(i, j int) bool {
		return result[i].Index() < result[j].Index()
	})
	return result
}
