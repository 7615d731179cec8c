package trees

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	nfs  []common.Hash
	cmxs []common.Hash
	err  error
}

func (f *fakeSource) Nullifiers() ([]common.Hash, error)  { return f.nfs, f.err }
func (f *fakeSource) Commitments() ([]common.Hash, error) { return f.cmxs, f.err }

func hashes(prefix string, n int) []common.Hash {
	out := make([]common.Hash, n)
	for i := range out {
		out[i] = crypto.Keccak256Hash([]byte(prefix), []byte{byte(i)})
	}
	return out
}

func TestMerkleRootEmpty(t *testing.T) {
	root, err := merkleRoot(nil)
	require.NoError(t, err)
	assert.Equal(t, emptyRoots[Depth], root)
	assert.NotEqual(t, common.Hash{}, root)
}

func TestMerkleRootSingleLeafMatchesManualFold(t *testing.T) {
	leaf := crypto.Keccak256Hash([]byte("leaf"))

	expected := leaf
	for level := 0; level < Depth; level++ {
		expected = hashNode(level, expected, emptyRoots[level])
	}

	root, err := merkleRoot([]common.Hash{leaf})
	require.NoError(t, err)
	assert.Equal(t, expected, root)
}

func TestMerkleRootOrderSensitive(t *testing.T) {
	leaves := hashes("cmx", 3)
	root, err := merkleRoot(leaves)
	require.NoError(t, err)

	swapped := []common.Hash{leaves[1], leaves[0], leaves[2]}
	other, err := merkleRoot(swapped)
	require.NoError(t, err)

	assert.NotEqual(t, root, other)
}

func TestCommitmentRoot(t *testing.T) {
	src := &fakeSource{cmxs: hashes("cmx", 5)}

	a, err := ComputeCommitmentRoot(src)
	require.NoError(t, err)
	b, err := NewAggregator().CommitmentRoot(src)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, common.Hash{}, a)

	src.cmxs = append(src.cmxs, crypto.Keccak256Hash([]byte("extra")))
	c, err := ComputeCommitmentRoot(src)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestNullifierRootOrderIndependent(t *testing.T) {
	nfs := hashes("nf", 6)
	reversed := make([]common.Hash, len(nfs))
	for i := range nfs {
		reversed[len(nfs)-1-i] = nfs[i]
	}

	a, err := ComputeNullifierRoot(&fakeSource{nfs: nfs})
	require.NoError(t, err)
	b, err := NewAggregator().NullifierRoot(&fakeSource{nfs: reversed})
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, common.Hash{}, a)
}

func TestNullifierRootDuplicate(t *testing.T) {
	nfs := hashes("nf", 3)
	nfs = append(nfs, nfs[1])

	_, err := ComputeNullifierRoot(&fakeSource{nfs: nfs})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDuplicateNullifier))
}

func TestRootsSurfaceSourceErrors(t *testing.T) {
	src := &fakeSource{err: errors.New("store closed")}

	_, err := ComputeNullifierRoot(src)
	assert.Error(t, err)
	_, err = ComputeCommitmentRoot(src)
	assert.Error(t, err)
}

func TestExclusionRanges(t *testing.T) {
	zero := common.Hash{}
	top := common.HexToHash("0xffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffff")

	t.Run("no nullifiers", func(t *testing.T) {
		ranges, err := ExclusionRanges(nil)
		require.NoError(t, err)
		assert.Equal(t, []Range{{Start: zero, End: top}}, ranges)
	})

	t.Run("interior", func(t *testing.T) {
		ranges, err := ExclusionRanges([]common.Hash{common.HexToHash("0x20"), common.HexToHash("0x10")})
		require.NoError(t, err)
		assert.Equal(t, []Range{
			{Start: zero, End: common.HexToHash("0x0f")},
			{Start: common.HexToHash("0x11"), End: common.HexToHash("0x1f")},
			{Start: common.HexToHash("0x21"), End: top},
		}, ranges)
	})

	t.Run("adjacent", func(t *testing.T) {
		ranges, err := ExclusionRanges([]common.Hash{common.HexToHash("0x01"), common.HexToHash("0x02")})
		require.NoError(t, err)
		assert.Equal(t, []Range{
			{Start: zero, End: zero},
			{Start: common.HexToHash("0x03"), End: top},
		}, ranges)
	})

	t.Run("bounds", func(t *testing.T) {
		ranges, err := ExclusionRanges([]common.Hash{zero, top})
		require.NoError(t, err)
		assert.Equal(t, []Range{
			{Start: common.HexToHash("0x01"), End: common.HexToHash("0xfffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffffe")},
		}, ranges)
	})
}
