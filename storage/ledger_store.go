package storage

import (
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"vote-admin/models"
)

var (
	ErrSchemaMissing = errors.New("ledger schema has not been created")
	ErrSchemaExists  = errors.New("ledger schema already created")
)

// LedgerStore holds the synchronized ledger slice of a single bootstrap.
// It lives in memory only and is dropped once the roots are computed.
type LedgerStore struct {
	mu     sync.RWMutex
	blocks map[uint32]*models.CompactBlock
}

func NewLedgerStore() *LedgerStore {
	return &LedgerStore{}
}

// CreateSchema prepares the store for writes.
func (s *LedgerStore) CreateSchema() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blocks != nil {
		return ErrSchemaExists
	}
	s.blocks = make(map[uint32]*models.CompactBlock)
	return nil
}

func (s *LedgerStore) PutBlock(block *models.CompactBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.blocks == nil {
		return ErrSchemaMissing
	}
	if block == nil {
		return errors.New("cannot store nil block")
	}

	if existing, ok := s.blocks[block.Height]; ok && existing.Hash != block.Hash {
		return fmt.Errorf("conflicting block at height %d: %s != %s",
			block.Height, existing.Hash.Hex(), block.Hash.Hex())
	}
	s.blocks[block.Height] = block
	return nil
}

// Len returns the number of stored blocks.
func (s *LedgerStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blocks)
}

// Blocks returns the stored blocks ordered by height.
func (s *LedgerStore) Blocks() []*models.CompactBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedBlocks()
}

func (s *LedgerStore) sortedBlocks() []*models.CompactBlock {
	blocks := make([]*models.CompactBlock, 0, len(s.blocks))
	for _, b := range s.blocks {
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Height < blocks[j].Height })
	return blocks
}

// Verify checks that the store holds exactly the heights [start, end) and
// that they form a linked chain.
func (s *LedgerStore) Verify(start, end uint32) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.blocks == nil {
		return ErrSchemaMissing
	}
	if end <= start {
		return fmt.Errorf("invalid height range [%d, %d)", start, end)
	}

	blocks := s.sortedBlocks()
	if want := int(end - start); len(blocks) != want {
		return fmt.Errorf("store holds %d blocks, expected %d for [%d, %d)", len(blocks), want, start, end)
	}
	if blocks[0].Height != start {
		return fmt.Errorf("store starts at height %d, expected %d", blocks[0].Height, start)
	}

	return models.ValidateChain(blocks)
}

// Nullifiers returns every nullifier revealed in the stored slice.
func (s *LedgerStore) Nullifiers() ([]common.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.blocks == nil {
		return nil, ErrSchemaMissing
	}

	var nfs []common.Hash
	for _, b := range s.sortedBlocks() {
		for _, a := range b.Actions {
			nfs = append(nfs, a.Nullifier)
		}
	}
	return nfs, nil
}

// Commitments returns every note commitment in chain order.
func (s *LedgerStore) Commitments() ([]common.Hash, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.blocks == nil {
		return nil, ErrSchemaMissing
	}

	var cmxs []common.Hash
	for _, b := range s.sortedBlocks() {
		for _, a := range b.Actions {
			cmxs = append(cmxs, a.Cmx)
		}
	}
	return cmxs, nil
}

// Close discards the stored slice.
func (s *LedgerStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks = nil
}
