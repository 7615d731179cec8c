package trees

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
)

// Depth of both commitment trees.
const Depth = 32

// emptyLeaf marks an unused leaf position.
var emptyLeaf = common.BigToHash(common.Big2)

// emptyRoots[i] is the root of an empty subtree of height i.
var emptyRoots = func() [Depth + 1]common.Hash {
	var roots [Depth + 1]common.Hash
	roots[0] = emptyLeaf
	for i := 0; i < Depth; i++ {
		roots[i+1] = hashNode(i, roots[i], roots[i])
	}
	return roots
}()

// hashNode combines two children at the given level. The level is part of the
// preimage so nodes from different levels never collide.
func hashNode(level int, left, right common.Hash) common.Hash {
	d := sha3.NewLegacyKeccak256()
	d.Write([]byte{byte(level)})
	d.Write(left[:])
	d.Write(right[:])

	var h common.Hash
	d.Sum(h[:0])
	return h
}

// merkleRoot computes the root of a depth 32 tree whose leftmost positions
// hold leaves and whose remaining positions are empty.
func merkleRoot(leaves []common.Hash) (common.Hash, error) {
	if uint64(len(leaves)) > 1<<Depth {
		return common.Hash{}, fmt.Errorf("%d leaves do not fit a tree of depth %d", len(leaves), Depth)
	}
	if len(leaves) == 0 {
		return emptyRoots[Depth], nil
	}

	nodes := make([]common.Hash, len(leaves))
	copy(nodes, leaves)

	for level := 0; level < Depth; level++ {
		next := make([]common.Hash, (len(nodes)+1)/2)
		for i := range next {
			right := emptyRoots[level]
			if 2*i+1 < len(nodes) {
				right = nodes[2*i+1]
			}
			next[i] = hashNode(level, nodes[2*i], right)
		}
		nodes = next
	}

	return nodes[0], nil
}
