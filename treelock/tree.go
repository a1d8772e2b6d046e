package treelock

import (
	"github.com/pkg/errors"
)

var (
	// ErrNotFound is returned by Lookup when no node
	// carries the requested name.
	ErrNotFound = errors.New("node not found")

	// ErrDuplicateName is returned by Build when a name
	// appears more than once in the input.
	ErrDuplicateName = errors.New("duplicate node name")

	// ErrEmptyTree is returned by Build without names.
	ErrEmptyTree = errors.New("tree has no nodes")

	// ErrInvalidFanout is returned by Build when more
	// than one name is given but no node may have
	// children.
	ErrInvalidFanout = errors.New("invalid children per node")
)

// Node is a single named resource in the tree.
//
// The parent pointer is nil for the root. Nodes are
// immutable once the tree has been built.
type Node struct {
	name     string
	index    int
	depth    int
	parent   *Node // back-reference, not owned
	children []*Node
}

// Name returns the unique name of the node.
func (n *Node) Name() string {
	return n.name
}

// Index returns the level-order position of the node,
// the root being 0. Indices are dense in [0, Len()).
func (n *Node) Index() int {
	return n.index
}

// Depth returns the number of strict ancestors.
func (n *Node) Depth() int {
	return n.depth
}

// Parent returns the parent of the node, or nil for
// the root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Children returns a copy of the ordered children.
func (n *Node) Children() []*Node {
	result := make([]*Node, len(n.children))
	copy(result, n.children)
	return result
}

// IsAncestorOf reports whether n is a strict ancestor
// of other.
func (n *Node) IsAncestorOf(other *Node) bool {
	if other == nil || other.depth <= n.depth {
		return false
	}
	for cur := other.parent; cur != nil; cur = cur.parent {
		if cur == n {
			return true
		}
		if cur.depth <= n.depth {
			return false
		}
	}
	return false
}

func (n *Node) String() string {
	return n.name
}

// Tree is the registry of all nodes, indexed by name.
type Tree struct {
	nodes  []*Node
	byName map[string]*Node
}

// Build creates the tree from the ordered names.
//
// The first name is the root. Children are assigned in
// level order: parents are taken from a queue and each
// one receives up to maxChildren of the following names
// before the next parent is taken.
func Build(names []string, maxChildren int) (*Tree, error) {
	if len(names) == 0 {
		return nil, ErrEmptyTree
	}
	if len(names) > 1 && maxChildren < 1 {
		return nil, errors.Wrapf(ErrInvalidFanout,
			"%d nodes with at most %d children", len(names), maxChildren)
	}
	t := &Tree{
		nodes:  make([]*Node, 0, len(names)),
		byName: make(map[string]*Node, len(names)),
	}
	root, err := t.add(names[0], nil)
	if err != nil {
		return nil, err
	}
	queue := []*Node{root}
	next := 1
	for len(queue) > 0 && next < len(names) {
		parent := queue[0]
		queue = queue[1:]
		for i := 0; i < maxChildren && next < len(names); i++ {
			child, err := t.add(names[next], parent)
			if err != nil {
				return nil, err
			}
			queue = append(queue, child)
			next++
		}
	}
	return t, nil
}

func (t *Tree) add(name string, parent *Node) (*Node, error) {
	if _, ok := t.byName[name]; ok {
		return nil, errors.Wrapf(ErrDuplicateName, "name %q", name)
	}
	n := &Node{
		name:   name,
		index:  len(t.nodes),
		parent: parent,
	}
	if parent != nil {
		n.depth = parent.depth + 1
		parent.children = append(parent.children, n)
	}
	t.nodes = append(t.nodes, n)
	t.byName[name] = n
	return n, nil
}

// Lookup resolves a name to its node.
func (t *Tree) Lookup(name string) (*Node, error) {
	n, ok := t.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "name %q", name)
	}
	return n, nil
}

// Root returns the root node.
func (t *Tree) Root() *Node {
	return t.nodes[0]
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Nodes returns all nodes in level order.
func (t *Tree) Nodes() []*Node {
	result := make([]*Node, len(t.nodes))
	copy(result, t.nodes)
	return result
}

// Walk visits the subtree rooted at n in pre-order,
// n included. Returning false from fn prunes the
// children of the visited node.
//
// The walk uses an explicit stack so that deep trees
// do not grow the goroutine stack.
func Walk(n *Node, fn func(*Node) bool) {
	stack := []*Node{n}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur) {
			continue
		}
		for i := len(cur.children) - 1; i >= 0; i-- {
			stack = append(stack, cur.children[i])
		}
	}
}
