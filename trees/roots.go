package trees

import (
	"bytes"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

var ErrDuplicateNullifier = errors.New("nullifier revealed twice")

// LeafSource exposes the synchronized ledger slice to the root computations.
type LeafSource interface {
	Nullifiers() ([]common.Hash, error)
	Commitments() ([]common.Hash, error)
}

// Aggregator computes both election roots over a synchronized slice.
type Aggregator struct{}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) NullifierRoot(src LeafSource) (common.Hash, error) {
	return ComputeNullifierRoot(src)
}

func (a *Aggregator) CommitmentRoot(src LeafSource) (common.Hash, error) {
	return ComputeCommitmentRoot(src)
}

// ComputeCommitmentRoot returns the root of the tree of note commitments in
// chain order.
func ComputeCommitmentRoot(src LeafSource) (common.Hash, error) {
	cmxs, err := src.Commitments()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to load note commitments")
	}

	root, err := merkleRoot(cmxs)
	if err != nil {
		return common.Hash{}, errors.WithStack(err)
	}
	return root, nil
}

// ComputeNullifierRoot returns the root of the tree of nullifier exclusion
// ranges: the gaps between the sorted spent nullifiers. A nullifier that is
// not in the set falls inside exactly one range, which is what a voter proves
// to show their note was unspent at the start of the election.
func ComputeNullifierRoot(src LeafSource) (common.Hash, error) {
	nfs, err := src.Nullifiers()
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "failed to load nullifiers")
	}

	ranges, err := ExclusionRanges(nfs)
	if err != nil {
		return common.Hash{}, err
	}

	leaves := make([]common.Hash, len(ranges))
	for i, r := range ranges {
		leaves[i] = r.Leaf()
	}

	root, err := merkleRoot(leaves)
	if err != nil {
		return common.Hash{}, errors.WithStack(err)
	}
	return root, nil
}

// Range is an inclusive interval of the nullifier space.
type Range struct {
	Start common.Hash
	End   common.Hash
}

func (r Range) Leaf() common.Hash {
	return crypto.Keccak256Hash(r.Start[:], r.End[:])
}

// ExclusionRanges returns the maximal intervals containing no spent
// nullifier, in ascending order.
func ExclusionRanges(nfs []common.Hash) ([]Range, error) {
	sorted := make([]common.Hash, len(nfs))
	copy(sorted, nfs)
	sort.Slice(sorted, func(i, j int) bool { return bytes.Compare(sorted[i][:], sorted[j][:]) < 0 })

	var (
		ranges []Range
		cursor = new(uint256.Int)
		top    = new(uint256.Int).SetAllOne()
		one    = uint256.NewInt(1)
	)

	for i, h := range sorted {
		if i > 0 && sorted[i-1] == h {
			return nil, errors.Wrapf(ErrDuplicateNullifier, "%s", h.Hex())
		}

		nf := new(uint256.Int).SetBytes32(h[:])
		if nf.Gt(cursor) {
			end := new(uint256.Int).Sub(nf, one)
			ranges = append(ranges, Range{Start: cursor.Bytes32(), End: end.Bytes32()})
		}
		if nf.Eq(top) {
			return ranges, nil
		}
		cursor = new(uint256.Int).Add(nf, one)
	}

	return append(ranges, Range{Start: cursor.Bytes32(), End: top.Bytes32()}), nil
}
