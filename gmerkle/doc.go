// Package gmerkle builds a binary Merkle tree over an ordered list of hashes,
// such as the receipt hashes of a block,
// and produces inclusion proofs for individual leaves.
//
// Leaf and interior nodes are hashed with distinct one-byte prefixes
// so an interior node can never be presented as a leaf.
// When a level has an odd number of nodes, the last node is promoted
// to the next level unchanged rather than being paired with a copy of itself;
// duplicating the last node would let two different leaf lists share a root.
//
// The root of an empty tree is the zero [Hash],
// so an empty block still has a well-defined commitment.
package gmerkle
