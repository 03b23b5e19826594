// Copyright 2017-2018 The nox developers

package merkle

import (
	"github.com/zenoproject/zeno/common/hash"
	"github.com/zenoproject/zeno/core/types"
)

// nextPowerOfTwo returns the next highest power of two from a given number if
// it is not already a power of two. This is a helper function used during the
// calculation of a merkle tree.
func nextPowerOfTwo(n int) int {
	// Return the number if it's already a power of 2.
	if n&(n-1) == 0 {
		return n
	}

	// Figure out and return the next power of two.
	exponent := uint(0)
	for n != 0 {
		n >>= 1
		exponent++
	}
	return 1 << exponent
}

// HashMerkleBranches takes two hashes, treated as the left and right tree
// nodes, and returns the hash of their concatenation. This is a helper
// function used to aid in the generation of a merkle tree.
func HashMerkleBranches(left *hash.Hash, right *hash.Hash) *hash.Hash {
	// Concatenate the left and right nodes.
	var h [hash.HashSize * 2]byte
	copy(h[:hash.HashSize], left[:])
	copy(h[hash.HashSize:], right[:])

	newHash := hash.DoubleHashH(h[:])
	return &newHash
}

// BuildMerkleTreeStore creates a merkle tree from a slice of leaf hashes,
// stores it using a linear array, and returns a slice of the backing array.
// A linear array was chosen as opposed to an actual tree structure since it
// uses about half as much memory. The following describes a merkle tree and
// how it is stored in a linear array.
//
// A merkle tree is a tree in which every non-leaf node is the hash of its
// children nodes. A diagram depicting how this works for transactions where
// h(x) is the double hash follows:
//
//	         root = h1234 = h(h12 + h34)
//	        /                           \
//	  h12 = h(h1 + h2)            h34 = h(h3 + h4)
//	   /            \              /            \
//	h1 = h(tx1)  h2 = h(tx2)  h3 = h(tx3)  h4 = h(tx4)
//
// The above stored as a linear array is as follows:
//
//	[h1 h2 h3 h4 h12 h34 root]
//
// As the above shows, the merkle root is always the last element in the
// array. The number of inputs is not always a power of two which results in
// a balanced tree structure as above. In that case, parent nodes with no
// children are also zero and parent nodes with only a single left node are
// calculated by concatenating the left node with itself before hashing.
func BuildMerkleTreeStore(leaves []*hash.Hash) []*hash.Hash {
	if len(leaves) == 0 {
		return []*hash.Hash{&hash.ZeroHash}
	}

	// Calculate how many entries are required to hold the binary merkle
	// tree as a linear array and create an array of that size.
	nextPoT := nextPowerOfTwo(len(leaves))
	arraySize := nextPoT*2 - 1
	merkles := make([]*hash.Hash, arraySize)

	copy(merkles, leaves)

	// Start the array offset after the last leaf and calculate the
	// remaining levels.
	offset := nextPoT
	for i := 0; i < arraySize-1; i += 2 {
		switch {
		// When there is no left child node, the parent is nil too.
		case merkles[i] == nil:
			merkles[offset] = nil

		// When there is no right child, the parent is generated by
		// hashing the concatenation of the left child with itself.
		case merkles[i+1] == nil:
			newHash := HashMerkleBranches(merkles[i], merkles[i])
			merkles[offset] = newHash

		// The normal case sets the parent node to the hash of the
		// concatenation of the left and right children.
		default:
			newHash := HashMerkleBranches(merkles[i], merkles[i+1])
			merkles[offset] = newHash
		}
		offset++
	}

	return merkles
}

// BlockMerkleLeaves returns the merkle leaves of a block body: the hash of
// every transaction followed by the hash of every certificate, in block
// order.
func BlockMerkleLeaves(txs []*types.Transaction, certs []*types.Certificate) []*hash.Hash {
	leaves := make([]*hash.Hash, 0, len(txs)+len(certs))
	for _, tx := range txs {
		h := tx.TxHash()
		leaves = append(leaves, &h)
	}
	for _, cert := range certs {
		h := cert.CertHash()
		leaves = append(leaves, &h)
	}
	return leaves
}

// CalcBlockMerkleRoot computes the merkle root committing to the block's
// transactions and certificates.
func CalcBlockMerkleRoot(txs []*types.Transaction, certs []*types.Certificate) hash.Hash {
	merkles := BuildMerkleTreeStore(BlockMerkleLeaves(txs, certs))
	return *merkles[len(merkles)-1]
}
