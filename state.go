package hierlock

// Owner identifies the requester of an operation.
type Owner int

type phase uint8

const (
	phaseFree phase = iota

	// phaseAcquiring marks a node reserved by an in-flight
	// lock or upgrade whose counter walks have not yet
	// finished.
	phaseAcquiring

	phaseHeld

	// phaseReleasing marks a node whose unlock is
	// propagating.
	phaseReleasing
)

var phaseNames = [...]string{"free", "acquiring", "held", "releasing"}

func (p phase) String() string {
	return phaseNames[p]
}

// lockState is the mutable per-node state. It must only
// be accessed while holding the mutex of its slot.
type lockState struct {
	phase       phase
	owner       Owner
	ancestors   int
	descendants int
}

// busy reports whether the node counts as locked for the
// exclusivity rule.
func (s *lockState) busy() bool {
	return s.phase != phaseFree
}

func (s *lockState) snapshot() LockState {
	return LockState{
		Locked:           s.busy(),
		Owner:            s.owner,
		AncestorLocked:   s.ancestors,
		DescendantLocked: s.descendants,
	}
}

// LockState is a point in time copy of the lock state of
// a node.
type LockState struct {
	Locked bool
	Owner  Owner

	// AncestorLocked is the number of locked strict
	// ancestors.
	AncestorLocked int

	// DescendantLocked is the number of locked strict
	// descendants.
	DescendantLocked int
}

func (s LockState) Fields() map[string]any {
	return map[string]any{
		"locked":      s.Locked,
		"owner":       s.Owner,
		"ancestors":   s.AncestorLocked,
		"descendants": s.DescendantLocked,
	}
}

var _ DebugStruct = LockState{}
