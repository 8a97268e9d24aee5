package consensus

import (
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/astria/sequencer/pkg/actions"
	"github.com/astria/sequencer/pkg/merkle"
	"github.com/astria/sequencer/pkg/sequencer"
)

// rollupAccumulator collects every RollupDataSubmission payload and Deposit
// produced while executing a block's actions, grouped by destination
// rollup, in execution order (spec §4.5: "accumulate per-rollup data into a
// sorted map keyed by rollup_id"; spec §6 invariants 4/5 on the two block
// data commitments).
type rollupAccumulator struct {
	byRollup map[sequencer.RollupID][][]byte
}

func newRollupAccumulator() *rollupAccumulator {
	return &rollupAccumulator{byRollup: make(map[sequencer.RollupID][][]byte)}
}

// add records one action's rollup-bound side effects, preserving the order
// they were produced in within the block.
func (a *rollupAccumulator) add(result actions.Result) {
	for _, sub := range result.RollupSubmissions {
		a.byRollup[sub.RollupID] = append(a.byRollup[sub.RollupID], sub.Data)
	}
	for _, d := range result.Deposits {
		a.byRollup[d.RollupID] = append(a.byRollup[d.RollupID], d.Encode())
	}
}

// sortedRollupIDs returns every rollup with at least one accumulated entry,
// ascending by unsigned byte-lexicographic comparison (spec §4.5 tie-break
// rule).
func (a *rollupAccumulator) sortedRollupIDs() []sequencer.RollupID {
	ids := make([]sequencer.RollupID, 0, len(a.byRollup))
	for id := range a.byRollup {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Less(ids[j]) })
	return ids
}

// RollupTransactions is one block's rollup-keyed raw entry data, in the
// sorted order blockDataRoots committed to (spec §6: "rollup_transactions:
// ordered map rollup_id -> {transactions[], ...}"). Rollup ids are
// hex-encoded since sequencer.RollupID has no native string form and this
// shape is both the archive's persisted record and the query surface's
// response body. Kept deliberately independent of any live
// rollupAccumulator: it carries everything blockDataRoots, ProveRollupID,
// and ProveRollupTransactions need to recompute roots and proofs, so it
// survives long after the block that produced it is gone.
type RollupTransactions struct {
	Order []string            // hex rollup ids, ascending by raw bytes
	ByID  map[string][][]byte // hex rollup id -> that rollup's ordered entries
}

// transactions snapshots the accumulator's contents into the persisted,
// order-preserving shape pkg/dbarchive stores and pkg/queryhttp serves.
func (a *rollupAccumulator) transactions() RollupTransactions {
	ids := a.sortedRollupIDs()
	rt := RollupTransactions{
		Order: make([]string, 0, len(ids)),
		ByID:  make(map[string][][]byte, len(ids)),
	}
	for _, id := range ids {
		key := hex.EncodeToString(id.Bytes())
		rt.Order = append(rt.Order, key)
		rt.ByID[key] = a.byRollup[id]
	}
	return rt
}

// blockDataRoots computes rollup_transactions_root and rollup_ids_root
// (spec §4.5, §6). rollup_transactions_root's leaves are, per sorted
// rollup id, `rollup_id || root(that rollup's ordered entries)` — a leaf
// that commits to the full ordered list without the tree itself growing
// unbounded per rollup. rollup_ids_root's leaves are bare rollup-id bytes,
// letting a rollup prove its own inclusion in the block without revealing
// any other rollup's data.
func (a *rollupAccumulator) blockDataRoots() (transactionsRoot, idsRoot [32]byte) {
	return RollupTransactionsRoot(a.transactions()), RollupIDsRoot(a.transactions())
}

// rollupLeaves rebuilds the two outer trees' leaf lists from rt, in rt's
// own stored order, so RollupTransactionsRoot, RollupIDsRoot,
// ProveRollupTransactions, and ProveRollupID all derive from one place
// rather than risking the leaf construction drifting apart between them.
func rollupLeaves(rt RollupTransactions) (txLeaves, idLeaves [][]byte, err error) {
	txLeaves = make([][]byte, 0, len(rt.Order))
	idLeaves = make([][]byte, 0, len(rt.Order))
	for _, key := range rt.Order {
		idBytes, decErr := hex.DecodeString(key)
		if decErr != nil {
			return nil, nil, fmt.Errorf("consensus: rollup transactions: decode rollup id %q: %w", key, decErr)
		}
		entryRoot := merkle.New(rt.ByID[key]).Root()
		leaf := make([]byte, 0, len(idBytes)+32)
		leaf = append(leaf, idBytes...)
		leaf = append(leaf, entryRoot[:]...)
		txLeaves = append(txLeaves, leaf)
		idLeaves = append(idLeaves, idBytes)
	}
	return txLeaves, idLeaves, nil
}

// RollupTransactionsRoot recomputes rollup_transactions_root from rt,
// matching blockDataRoots' construction exactly (spec §6 invariant 4).
func RollupTransactionsRoot(rt RollupTransactions) [32]byte {
	txLeaves, _, err := rollupLeaves(rt)
	if err != nil || len(txLeaves) == 0 {
		return merkle.EmptyRoot()
	}
	return merkle.New(txLeaves).Root()
}

// RollupIDsRoot recomputes rollup_ids_root from rt (spec §6 invariant 5).
func RollupIDsRoot(rt RollupTransactions) [32]byte {
	_, idLeaves, err := rollupLeaves(rt)
	if err != nil || len(idLeaves) == 0 {
		return merkle.EmptyRoot()
	}
	return merkle.New(idLeaves).Root()
}

// indexOf reports key's position in rt.Order, or -1.
func indexOf(rt RollupTransactions, key string) int {
	for i, k := range rt.Order {
		if k == key {
			return i
		}
	}
	return -1
}

// ProveRollupTransactions builds the inclusion proof that rollupID's entry
// — the leaf `rollup_id || root(entries_for_rollupID)` — sits inside
// rollup_transactions_root, the proof a rollup node needs to check its own
// transactions against the committed block (spec §8 invariant 4: "the
// pair (transactions_for_R, proof) verifies against
// rollup_transactions_root(H)"). Returns an error if rollupID has no
// entries in this block.
func ProveRollupTransactions(rt RollupTransactions, rollupID sequencer.RollupID) (*merkle.InclusionProof, error) {
	key := hex.EncodeToString(rollupID.Bytes())
	idx := indexOf(rt, key)
	if idx < 0 {
		return nil, fmt.Errorf("consensus: rollup %s has no transactions in this block", key)
	}
	txLeaves, _, err := rollupLeaves(rt)
	if err != nil {
		return nil, err
	}
	return merkle.New(txLeaves).Prove(idx)
}

// ProveRollupID builds the inclusion proof that rollupID itself is a
// member of rollup_ids_root (spec §8 invariant 5).
func ProveRollupID(rt RollupTransactions, rollupID sequencer.RollupID) (*merkle.InclusionProof, error) {
	key := hex.EncodeToString(rollupID.Bytes())
	idx := indexOf(rt, key)
	if idx < 0 {
		return nil, fmt.Errorf("consensus: rollup %s has no transactions in this block", key)
	}
	_, idLeaves, err := rollupLeaves(rt)
	if err != nil {
		return nil, err
	}
	return merkle.New(idLeaves).Prove(idx)
}

// DataHash reconstructs a block's data_hash: the root of a Merkle tree over
// the block's full, ordered transaction list (commitments, optional
// extended_commit_info, then user transactions) exactly as CometBFT's own
// block Data.Hash computes it, using the same RFC-6962 domain-separated
// leaf/inner hashing pkg/merkle already implements (spec §6: "header...
// data_hash").
func DataHash(fullTxs [][]byte) [32]byte {
	if len(fullTxs) == 0 {
		return merkle.EmptyRoot()
	}
	return merkle.New(fullTxs).Root()
}

// ProveDataHash builds the inclusion proof that fullTxs[index] sits inside
// data_hash — used for both rollup_transactions_proof (index 0) and
// rollup_ids_proof (index 1), and for extended_commit_info_proof when that
// entry is present (spec §6, §8 invariants 4/5).
func ProveDataHash(fullTxs [][]byte, index int) (*merkle.InclusionProof, error) {
	if len(fullTxs) == 0 {
		return nil, merkle.ErrEmptyLeaves
	}
	return merkle.New(fullTxs).Prove(index)
}
