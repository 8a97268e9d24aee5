package grpcsrv

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/astria/sequencer/pkg/mempool"
	"github.com/astria/sequencer/pkg/sequencer"
)

// Server implements sequencerServiceServer: the mempool submission/status
// service and the optimistic block stream named in spec §6. It holds no
// state of its own beyond references to the components that already own
// it — the mempool for admission, and the Broadcaster for the stream.
type Server struct {
	mempool     *mempool.Mempool
	broadcaster *Broadcaster
}

// NewServer constructs a Server. broadcaster may be nil when
// no_optimistic_blocks disables the stream; StreamOptimisticBlocks then
// fails every call rather than hanging forever on an empty feed.
func NewServer(mp *mempool.Mempool, broadcaster *Broadcaster) *Server {
	return &Server{mempool: mp, broadcaster: broadcaster}
}

func statusResponse(status mempool.TxStatus) (string, string, int64) {
	switch status.Kind {
	case mempool.StatusPending:
		return "pending", "", 0
	case mempool.StatusParked:
		return "parked", "", 0
	case mempool.StatusRemoved:
		return "removed", status.Reason, 0
	case mempool.StatusExecuted:
		return "executed", "", status.Height
	default:
		return "unknown", "", 0
	}
}

// SubmitTx decodes and admits a wire-encoded transaction, reporting the
// same four-state admission result spec §4.7's mempool.Insert returns.
func (s *Server) SubmitTx(_ context.Context, req *SubmitTxRequest) (*SubmitTxResponse, error) {
	tx, err := sequencer.DecodeTransaction(req.TxBytes)
	if err != nil {
		return nil, fmt.Errorf("grpcsrv: submit tx: decode: %w", err)
	}
	hash := tx.Hash()

	status, err := s.mempool.Insert(tx)
	if err != nil {
		return nil, fmt.Errorf("grpcsrv: submit tx: insert: %w", err)
	}
	kind, reason, height := statusResponse(status)
	return &SubmitTxResponse{Status: kind, Hash: hex.EncodeToString(hash[:]), Reason: reason, Height: height}, nil
}

// TxStatus reports a previously submitted transaction's current mempool
// disposition by hash.
func (s *Server) TxStatus(_ context.Context, req *TxStatusRequest) (*TxStatusResponse, error) {
	raw, err := hex.DecodeString(req.Hash)
	if err != nil || len(raw) != 32 {
		return nil, fmt.Errorf("grpcsrv: tx status: hash must be 32 hex-encoded bytes")
	}
	var hash [32]byte
	copy(hash[:], raw)

	kind, reason, height := statusResponse(s.mempool.Status(hash))
	return &TxStatusResponse{Status: kind, Reason: reason, Height: height}, nil
}

// StreamOptimisticBlocks forwards every block the Broadcaster publishes
// until the client disconnects (spec §6: best-effort, not
// guaranteed-delivery). It exits as soon as the stream's context is done,
// which is also what unblocks a caller sitting on a disabled (nil)
// broadcaster's feed — there isn't one, so this returns immediately.
func (s *Server) StreamOptimisticBlocks(_ *StreamOptimisticBlocksRequest, stream optimisticBlockStream) error {
	if s.broadcaster == nil {
		return fmt.Errorf("grpcsrv: optimistic block stream is disabled")
	}

	_, feed, cancel := s.broadcaster.Subscribe()
	defer cancel()

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case block, ok := <-feed:
			if !ok {
				return nil
			}
			if err := stream.Send(&block); err != nil {
				return err
			}
		}
	}
}
