package dbarchive

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"
)

// RollupTransactions mirrors pkg/consensus.RollupTransactions without
// importing it: a plain, JSON-serializable shape is all the archive needs,
// and the two packages independently agreeing on field names keeps
// pkg/dbarchive free of a dependency on the consensus package it is
// itself wired from (cmd/sequenced converts between the two at the
// SetArchiveSink callback boundary).
type RollupTransactions struct {
	Order []string            `json:"order"`
	ByID  map[string][][]byte `json:"by_id"`
}

// ArchivedBlock is one finalized block's archival record: enough to serve
// the block-query path (spec §1) and its per-rollup inclusion proofs
// (spec §6, §8 invariants 4/5) without replaying state from the committed
// KV store, which only ever holds the latest height's data.
type ArchivedBlock struct {
	Height             int64
	AppHash            []byte
	TxHashes           [][]byte
	RollupTransactions RollupTransactions
	FullTxs            [][]byte
}

// RecordBlock archives a finalized block. Called from the consensus
// driver's Commit path when archival is enabled; a failure here never
// aborts consensus, it's logged and the node carries on (archival is a
// read-side convenience, not a safety property).
func (c *Client) RecordBlock(ctx context.Context, height int64, appHash []byte, txHashes [][]byte, rollupTxs RollupTransactions, fullTxs [][]byte) error {
	flatTxHashes := make(pq.ByteaArray, len(txHashes))
	for i, h := range txHashes {
		flatTxHashes[i] = h
	}
	flatFullTxs := make(pq.ByteaArray, len(fullTxs))
	for i, tx := range fullTxs {
		flatFullTxs[i] = tx
	}
	rollupJSON, err := json.Marshal(rollupTxs)
	if err != nil {
		return fmt.Errorf("dbarchive: record block %d: encode rollup transactions: %w", height, err)
	}

	_, err = c.db.ExecContext(ctx,
		`INSERT INTO blocks (height, app_hash, tx_hashes, rollup_transactions, full_txs)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (height) DO UPDATE SET
		   app_hash = EXCLUDED.app_hash,
		   tx_hashes = EXCLUDED.tx_hashes,
		   rollup_transactions = EXCLUDED.rollup_transactions,
		   full_txs = EXCLUDED.full_txs`,
		height, appHash, flatTxHashes, rollupJSON, flatFullTxs)
	if err != nil {
		return fmt.Errorf("dbarchive: record block %d: %w", height, err)
	}
	return nil
}

// BlockByHeight fetches a previously archived block, or (nil, nil) if no
// block was ever recorded at that height.
func (c *Client) BlockByHeight(ctx context.Context, height int64) (*ArchivedBlock, error) {
	var appHash []byte
	var txHashes pq.ByteaArray
	var fullTxs pq.ByteaArray
	var rollupJSON []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT app_hash, tx_hashes, rollup_transactions, full_txs FROM blocks WHERE height = $1`, height,
	).Scan(&appHash, &txHashes, &rollupJSON, &fullTxs)
	if err != nil {
		if err.Error() == "sql: no rows in result set" {
			return nil, nil
		}
		return nil, fmt.Errorf("dbarchive: block at height %d: %w", height, err)
	}

	var rollupTxs RollupTransactions
	if len(rollupJSON) > 0 {
		if err := json.Unmarshal(rollupJSON, &rollupTxs); err != nil {
			return nil, fmt.Errorf("dbarchive: block at height %d: decode rollup transactions: %w", height, err)
		}
	}

	out := &ArchivedBlock{
		Height:             height,
		AppHash:            appHash,
		TxHashes:           make([][]byte, len(txHashes)),
		RollupTransactions: rollupTxs,
		FullTxs:            make([][]byte, len(fullTxs)),
	}
	copy(out.TxHashes, txHashes)
	copy(out.FullTxs, fullTxs)
	return out, nil
}
