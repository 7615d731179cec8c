package ledger

import (
	"context"

	"vote-admin/models"
)

// BlockSource fetches compact blocks from a ledger node.
type BlockSource interface {
	GetBlock(ctx context.Context, height uint32) (*models.CompactBlock, error)
}

// Store receives synchronized blocks.
type Store interface {
	PutBlock(block *models.CompactBlock) error
}

// DefaultEndpoint is used when no ledger endpoint is configured.
const DefaultEndpoint = "https://zec.rocks"
