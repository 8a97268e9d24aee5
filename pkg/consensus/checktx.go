package consensus

import (
	"context"
	"fmt"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/astria/sequencer/pkg/mempool"
	"github.com/astria/sequencer/pkg/sequencer"
)

// CheckTx implements spec §4.7 Insert: decode the transaction and hand it to
// the mempool, which runs the full stateless + stateful admission check
// against the latest committed snapshot. Both CometBFT's "new transaction"
// and "recheck" call types route here — Insert already treats a
// known-removed or known-executed hash as a fast no-op, so a recheck of an
// already-pending transaction is simply a harmless repeat of the same
// admission check.
func (app *App) CheckTx(_ context.Context, req *abci.RequestCheckTx) (*abci.ResponseCheckTx, error) {
	tx, err := sequencer.DecodeTransaction(req.Tx)
	if err != nil {
		return &abci.ResponseCheckTx{Code: 1, Log: fmt.Sprintf("decode: %v", err)}, nil
	}

	status, err := app.mempool.Insert(tx)
	if err != nil {
		return &abci.ResponseCheckTx{Code: 1, Log: err.Error()}, nil
	}

	switch status.Kind {
	case mempool.StatusPending, mempool.StatusParked:
		return &abci.ResponseCheckTx{Code: 0}, nil
	case mempool.StatusExecuted:
		return &abci.ResponseCheckTx{Code: 2, Log: fmt.Sprintf("already executed at height %d", status.Height)}, nil
	case mempool.StatusRemoved:
		return &abci.ResponseCheckTx{Code: 3, Log: status.Reason}, nil
	default:
		return &abci.ResponseCheckTx{Code: 1, Log: "unknown mempool status"}, nil
	}
}
