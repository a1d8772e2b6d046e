package hierlock

import (
	"github.com/pkg/errors"

	"github.com/hierlock/hierlock/treelock"
)

var (
	// ErrUnknownOperation is returned for an operation
	// kind other than lock, unlock or upgrade.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrNotFound is returned by Dispatch for a name that
	// is not in the tree.
	ErrNotFound = treelock.ErrNotFound
)

// Kind is the type of an operation. The values match the
// type codes of the operation stream.
type Kind int

const (
	KindLock Kind = 1 + iota
	KindUnlock
	KindUpgrade
)

// Kinds lists every valid kind.
var Kinds = []Kind{KindLock, KindUnlock, KindUpgrade}

func (k Kind) String() string {
	switch k {
	case KindLock:
		return "lock"
	case KindUnlock:
		return "unlock"
	case KindUpgrade:
		return "upgrade"
	}
	return "unknown"
}

// ParseKind validates an operation type code.
func ParseKind(code int) (Kind, error) {
	k := Kind(code)
	switch k {
	case KindLock, KindUnlock, KindUpgrade:
		return k, nil
	}
	return 0, errors.Wrapf(ErrUnknownOperation, "type %d", code)
}

// Operation is a single request against a resolved node.
type Operation struct {
	Kind  Kind
	Node  *treelock.Node
	Owner Owner
}

// Apply runs the operation and reports whether it was
// granted. Denial is not an error.
func (m *Manager) Apply(op Operation) (bool, error) {
	if op.Node == nil {
		return false, errors.Errorf("%s without node", op.Kind)
	}
	switch op.Kind {
	case KindLock:
		return m.Lock(op.Node, op.Owner), nil
	case KindUnlock:
		return m.Unlock(op.Node, op.Owner), nil
	case KindUpgrade:
		return m.Upgrade(op.Node, op.Owner), nil
	}
	return false, errors.Wrapf(ErrUnknownOperation, "type %d", int(op.Kind))
}

// Dispatcher resolves node names and forwards the
// operations to the manager.
type Dispatcher struct {
	tree    *treelock.Tree
	manager *Manager
}

// NewDispatcher creates a dispatcher and the manager of
// the tree.
func NewDispatcher(tree *treelock.Tree, opts ...Option) *Dispatcher {
	return &Dispatcher{
		tree:    tree,
		manager: NewManager(tree, opts...),
	}
}

// Manager returns the manager operations are sent to.
func (d *Dispatcher) Manager() *Manager {
	return d.manager
}

// Resolve turns a request into an Operation.
func (d *Dispatcher) Resolve(kind Kind, name string, owner Owner) (Operation, error) {
	n, err := d.tree.Lookup(name)
	if err != nil {
		return Operation{}, err
	}
	return Operation{Kind: kind, Node: n, Owner: owner}, nil
}

// Dispatch resolves name and applies the operation.
func (d *Dispatcher) Dispatch(kind Kind, name string, owner Owner) (bool, error) {
	op, err := d.Resolve(kind, name, owner)
	if err != nil {
		return false, errors.Wrapf(err, "%s", kind)
	}
	return d.manager.Apply(op)
}
