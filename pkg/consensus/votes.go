package consensus

import (
	"context"
	"fmt"
	"time"

	abci "github.com/cometbft/cometbft/abci/types"

	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/pricefeed"
	"github.com/astria/sequencer/pkg/store"
)

// MaxVoteExtensionBytes bounds a vote extension's wire size (spec §4.5
// VerifyVoteExtension: "syntactic checks only — size bound"). Sized well
// above what even a few hundred registered pairs would encode to.
const MaxVoteExtensionBytes = 64 << 10

// ExtendVote implements spec §4.5: call the sidecar with a bounded timeout,
// falling back to an empty extension (and counting the failure) rather than
// failing the call outright — a validator that can't reach its sidecar
// still has to vote.
func (app *App) ExtendVote(ctx context.Context, req *abci.RequestExtendVote) (*abci.ResponseExtendVote, error) {
	app.mu.Lock()
	priceClient := app.priceClient
	enabled := app.priceFeedEnabled
	app.mu.Unlock()

	if !enabled || priceClient == nil {
		return &abci.ResponseExtendVote{VoteExtension: nil}, nil
	}

	snap := app.store.CommittedSnapshot()
	pairs, err := pricefeed.RegisteredPairs(store.Begin(snap))
	if err != nil || len(pairs) == 0 {
		return &abci.ResponseExtendVote{VoteExtension: nil}, nil
	}

	prices, err := priceClient.Prices(ctx, pairs)
	if err != nil {
		app.recordVoteExtensionFailure()
		return &abci.ResponseExtendVote{VoteExtension: nil}, nil
	}

	ve := pricefeed.BuildVoteExtension(prices)
	return &abci.ResponseExtendVote{VoteExtension: ve.Encode()}, nil
}

func (app *App) recordVoteExtensionFailure() {
	app.mu.Lock()
	app.lastVoteExtensionFailures++
	app.mu.Unlock()
}

// VoteExtensionFailures reports how many ExtendVote calls have fallen back
// to an empty extension since process start, surfaced for operator metrics.
func (app *App) VoteExtensionFailures() uint64 {
	app.mu.Lock()
	defer app.mu.Unlock()
	return app.lastVoteExtensionFailures
}

// VerifyVoteExtension implements spec §4.5: syntactic checks only — size
// bound, decode succeeds, each pair id registered, no duplicate ids. An
// empty extension (the ExtendVote fallback) always passes trivially.
func (app *App) VerifyVoteExtension(_ context.Context, req *abci.RequestVerifyVoteExtension) (*abci.ResponseVerifyVoteExtension, error) {
	reject := &abci.ResponseVerifyVoteExtension{Status: abci.ResponseVerifyVoteExtension_REJECT}
	accept := &abci.ResponseVerifyVoteExtension{Status: abci.ResponseVerifyVoteExtension_ACCEPT}

	if len(req.VoteExtension) == 0 {
		return accept, nil
	}
	if len(req.VoteExtension) > MaxVoteExtensionBytes {
		return reject, nil
	}

	ve, err := pricefeed.DecodeVoteExtension(req.VoteExtension)
	if err != nil {
		return reject, nil
	}

	snap := app.store.CommittedSnapshot()
	registered, err := pricefeed.RegisteredPairs(store.Begin(snap))
	if err != nil {
		return reject, nil
	}
	registeredSet := make(map[uint64]bool, len(registered))
	for _, id := range registered {
		registeredSet[uint64(id)] = true
	}

	seen := make(map[uint64]bool, len(ve.Prices))
	for _, p := range ve.Prices {
		if seen[uint64(p.ID)] {
			return reject, nil
		}
		seen[uint64(p.ID)] = true
		if !registeredSet[uint64(p.ID)] {
			return reject, nil
		}
	}

	return accept, nil
}

// validateExtendedCommitInfo performs ProcessProposal's structural checks
// on an embedded extended_commit_info (spec §4.5: "signatures present for
// ≥2/3 stake, each vote extension parses, currency-pair-id mapping
// consistent"). Per-signature cryptographic verification is CometBFT's own
// responsibility before ProcessProposal is even invoked (see DESIGN.md); this
// checks the structural half that only the application can judge — that the
// embedded stake total actually reaches 2/3 and that every carried
// extension is a well-formed, registered-pairs-only VoteExtension.
func validateExtendedCommitInfo(ov *store.Overlay, eci extendedCommitInfo) error {
	if len(eci.Votes) == 0 {
		// An empty Votes list represents "threshold not reached at H-1";
		// that is a valid (if unhelpful) block, not a malformed one.
		return nil
	}

	registered, err := pricefeed.RegisteredPairs(ov)
	if err != nil {
		return fmt.Errorf("consensus: validate extended_commit_info: %w", err)
	}
	registeredSet := make(map[uint64]bool, len(registered))
	for _, id := range registered {
		registeredSet[uint64(id)] = true
	}

	var total, contributing int64
	for _, v := range eci.Votes {
		total += v.Power
		if len(v.Extension) == 0 {
			continue
		}
		ve, err := pricefeed.DecodeVoteExtension(v.Extension)
		if err != nil {
			return fmt.Errorf("consensus: validate extended_commit_info: decode vote extension: %w", err)
		}
		seen := make(map[uint64]bool, len(ve.Prices))
		for _, p := range ve.Prices {
			if seen[uint64(p.ID)] {
				return fmt.Errorf("consensus: validate extended_commit_info: duplicate pair id %d", p.ID)
			}
			seen[uint64(p.ID)] = true
			if !registeredSet[uint64(p.ID)] {
				return fmt.Errorf("consensus: validate extended_commit_info: unregistered pair id %d", p.ID)
			}
		}
		contributing += v.Power
	}
	if total == 0 || contributing*3 < total*2 {
		return serrors.New(serrors.KindConsensusInvariant, "extended_commit_info: contributing power below 2/3 threshold")
	}
	return nil
}

// extendVoteTimeout resolves a configured sidecar timeout in milliseconds,
// falling back to 500ms for a non-positive value. Nothing in this module
// calls it: cmd/sequenced converts price_feed_client_timeout_ms itself when
// wiring pricefeed.NewHTTPClient.
func extendVoteTimeout(ms int64) time.Duration {
	if ms <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(ms) * time.Millisecond
}
