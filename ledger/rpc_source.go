package ledger

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"vote-admin/models"
)

// Verbosity 2 asks the node for decoded transactions, including their
// orchard actions.
const getBlockVerbosity = 2

var ErrBlockNotFound = errors.New("block not found")

type rpcAction struct {
	Nullifier string `json:"nullifier"`
	Cmx       string `json:"cmx"`
}

type rpcOrchardBundle struct {
	Actions []rpcAction `json:"actions"`
}

type rpcTransaction struct {
	Txid    string            `json:"txid"`
	Orchard *rpcOrchardBundle `json:"orchard,omitempty"`
}

type rpcBlock struct {
	Hash              string           `json:"hash"`
	Height            uint32           `json:"height"`
	PreviousBlockHash string           `json:"previousblockhash"`
	Tx                []rpcTransaction `json:"tx"`
}

// RPCSource reads blocks from a node's JSON-RPC interface.
type RPCSource struct {
	client  *rpc.Client
	timeout time.Duration
}

// DialRPCSource connects to the node at endpoint. A zero timeout leaves
// per-call deadlines to the caller's context.
func DialRPCSource(ctx context.Context, endpoint string, timeout time.Duration) (*RPCSource, error) {
	client, err := rpc.DialContext(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial ledger node %s", endpoint)
	}
	return NewRPCSource(client, timeout), nil
}

func NewRPCSource(client *rpc.Client, timeout time.Duration) *RPCSource {
	return &RPCSource{client: client, timeout: timeout}
}

func (s *RPCSource) GetBlock(ctx context.Context, height uint32) (*models.CompactBlock, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	var raw *rpcBlock
	err := s.client.CallContext(ctx, &raw, "getblock", strconv.FormatUint(uint64(height), 10), getBlockVerbosity)
	if err != nil {
		return nil, errors.Wrapf(err, "getblock %d", height)
	}
	if raw == nil {
		return nil, errors.Wrapf(ErrBlockNotFound, "height %d", height)
	}
	if raw.Height != height {
		return nil, errors.Errorf("node returned block %d for height %d", raw.Height, height)
	}

	return raw.compact()
}

func (s *RPCSource) Close() {
	s.client.Close()
}

func (b *rpcBlock) compact() (*models.CompactBlock, error) {
	hash, err := parseHash(b.Hash)
	if err != nil {
		return nil, errors.Wrapf(err, "block %d hash", b.Height)
	}

	block := &models.CompactBlock{
		Height: b.Height,
		Hash:   hash,
	}

	// The genesis block has no parent.
	if b.PreviousBlockHash != "" {
		if block.PrevHash, err = parseHash(b.PreviousBlockHash); err != nil {
			return nil, errors.Wrapf(err, "block %d previous hash", b.Height)
		}
	}

	for _, tx := range b.Tx {
		if tx.Orchard == nil {
			continue
		}
		for i, a := range tx.Orchard.Actions {
			nf, err := parseHash(a.Nullifier)
			if err != nil {
				return nil, errors.Wrapf(err, "tx %s action %d nullifier", tx.Txid, i)
			}
			cmx, err := parseHash(a.Cmx)
			if err != nil {
				return nil, errors.Wrapf(err, "tx %s action %d cmx", tx.Txid, i)
			}
			block.Actions = append(block.Actions, models.Action{Nullifier: nf, Cmx: cmx})
		}
	}

	return block, nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode("0x" + strings.TrimPrefix(s, "0x"))
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, errors.Errorf("expected %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}
