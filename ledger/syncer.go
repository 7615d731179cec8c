package ledger

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"vote-admin/models"
)

var ErrEmptyRange = errors.New("election height range is empty")

// Syncer copies the election's height range from a BlockSource into a Store.
type Syncer struct {
	source BlockSource
}

func NewSyncer(source BlockSource) *Syncer {
	return &Syncer{source: source}
}

// Sync fetches and stores every block in [StartHeight, EndHeight) in height
// order, calling onHeight after each block is stored. The first error aborts
// the sync; nothing is retried.
func (s *Syncer) Sync(ctx context.Context, store Store, election *models.Election, onHeight func(height uint32)) error {
	start, end := election.StartHeight, election.EndHeight
	if end <= start {
		return errors.Wrapf(ErrEmptyRange, "[%d, %d)", start, end)
	}

	began := time.Now()
	actions := 0

	for h := start; h < end; h++ {
		if err := ctx.Err(); err != nil {
			return errors.WithStack(err)
		}

		block, err := s.source.GetBlock(ctx, h)
		if err != nil {
			return errors.Wrapf(err, "failed to fetch block %d", h)
		}
		if block.Height != h {
			return errors.Errorf("source returned block %d for height %d", block.Height, h)
		}

		if err := store.PutBlock(block); err != nil {
			return errors.Wrapf(err, "failed to store block %d", h)
		}
		actions += len(block.Actions)

		if onHeight != nil {
			onHeight(h)
		}
	}

	log.WithFields(log.Fields{
		"election": election.ID,
		"start":    start,
		"end":      end,
		"actions":  actions,
		"elapsed":  time.Since(began).String(),
	}).Debug("Synchronized ledger range")

	return nil
}
