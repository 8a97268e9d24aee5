package consensus

import (
	"context"

	abci "github.com/cometbft/cometbft/abci/types"
)

// State-sync is out of scope (spec Non-goal); these stubs mirror the
// teacher's own ABCI snapshot RPCs, which ABCI requires every application
// to implement even when state-sync is never offered.

func (app *App) ListSnapshots(_ context.Context, _ *abci.RequestListSnapshots) (*abci.ResponseListSnapshots, error) {
	return &abci.ResponseListSnapshots{}, nil
}

func (app *App) OfferSnapshot(_ context.Context, _ *abci.RequestOfferSnapshot) (*abci.ResponseOfferSnapshot, error) {
	return &abci.ResponseOfferSnapshot{Result: abci.ResponseOfferSnapshot_ABORT}, nil
}

func (app *App) LoadSnapshotChunk(_ context.Context, _ *abci.RequestLoadSnapshotChunk) (*abci.ResponseLoadSnapshotChunk, error) {
	return &abci.ResponseLoadSnapshotChunk{}, nil
}

func (app *App) ApplySnapshotChunk(_ context.Context, _ *abci.RequestApplySnapshotChunk) (*abci.ResponseApplySnapshotChunk, error) {
	return &abci.ResponseApplySnapshotChunk{Result: abci.ResponseApplySnapshotChunk_ABORT}, nil
}
