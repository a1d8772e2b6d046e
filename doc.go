// Package hierlock manages exclusive locks over a fixed
// tree of named resources.
//
// A node may be locked by a requester only while none of
// its ancestors and none of its descendants are locked.
// Upgrade replaces all locks a requester holds below a
// node with a single lock on the node itself.
//
// Every node carries the number of locked ancestors and
// locked descendants, so the exclusivity check is
// constant time. Keeping the counters right is the job
// of the Manager: it walks ancestors one at a time, each
// under its own treelock.Mutex, and never holds more
// than one node at once. Operations on disjoint parts of
// the tree therefore proceed independently.
//
// Basic usage:
//
//	tree, err := treelock.Build([]string{"A", "B", "C"}, 2)
//	d := hierlock.NewDispatcher(tree)
//	ok, err := d.Dispatch(hierlock.KindLock, "B", 5)   // true
//	ok, err = d.Dispatch(hierlock.KindLock, "A", 9)    // false
package hierlock
