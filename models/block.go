package models

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Action is the part of a shielded action an election cares about: the
// nullifier it spends and the note commitment it creates.
type Action struct {
	Nullifier common.Hash `json:"nf"`
	Cmx       common.Hash `json:"cmx"`
}

// CompactBlock is a block of the ledger slice reduced to its shielded actions.
type CompactBlock struct {
	Height   uint32      `json:"height"`
	Hash     common.Hash `json:"hash"`
	PrevHash common.Hash `json:"prev_hash"`
	Actions  []Action    `json:"actions"`
}

// ValidateChain checks that blocks cover consecutive heights and that every
// block links to the hash of its predecessor.
func ValidateChain(blocks []*CompactBlock) error {
	for i := 1; i < len(blocks); i++ {
		current := blocks[i]
		previous := blocks[i-1]

		if current.Height != previous.Height+1 {
			return fmt.Errorf("block %d follows block %d: height gap", current.Height, previous.Height)
		}

		if current.PrevHash != previous.Hash {
			return fmt.Errorf("block %d has invalid previous hash link: expected %s, got %s",
				current.Height, previous.Hash.Hex(), current.PrevHash.Hex())
		}
	}

	return nil
}
