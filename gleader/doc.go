// Package gleader picks block proposers from VRF outputs, weighted by stake.
//
// A [Selector] is built once per epoch from the committee's ordered
// (VRF public key, stake) pairs and is read-only afterwards,
// so it is safe for concurrent use without locking.
//
// The candidate order is part of the epoch's public state:
// every node must build its Selector from the same ordering
// for [Selector.SelectLeader] to agree across the network.
package gleader
