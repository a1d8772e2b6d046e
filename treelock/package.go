// Package treelock holds the static resource tree and
// the per-node access primitive used to mutate state
// attached to the nodes.
//
// The tree is built once from an ordered list of names
// and never changes shape afterwards, so it may be read
// from any number of goroutines without locking. Every
// node owns its children; the parent pointer is only a
// back-reference for walking upwards.
//
// Mutex is the node access serializer. It grants one
// holder at a time and hands the node over to waiters
// in the order they arrived.
package treelock
