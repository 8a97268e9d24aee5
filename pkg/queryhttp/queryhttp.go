// Package queryhttp exposes spec §6's named query endpoints over plain
// HTTP+JSON, for operators and block explorers that would rather not speak
// ABCI's Query RPC directly. Every handler here is a thin adapter over
// pkg/consensus.App.QueryPath, which already returns the exact JSON bytes
// ABCI's own Query method hands back — this package's only job is HTTP
// routing and request/response framing.
package queryhttp

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/astria/sequencer/pkg/consensus"
	"github.com/astria/sequencer/pkg/dbarchive"
	"github.com/astria/sequencer/pkg/merkle"
	"github.com/astria/sequencer/pkg/sequencer"
)

// Handlers serves spec §6's query endpoints against a single App instance.
// archive is nil on a node with no archive database configured, in which
// case HandleBlock always reports 404 rather than panicking.
type Handlers struct {
	app     *consensus.App
	archive *dbarchive.Client
}

// NewHandlers constructs Handlers bound to app, with no block archive.
func NewHandlers(app *consensus.App) *Handlers {
	return &Handlers{app: app}
}

// WithArchive attaches a block archive client, enabling HandleBlock.
func (h *Handlers) WithArchive(archive *dbarchive.Client) *Handlers {
	h.archive = archive
	return h
}

// RegisterRoutes wires every named endpoint onto mux, using the same
// prefix-trim routing style for path-suffix arguments the rest of this
// codebase's HTTP handlers use.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/accounts/balance/", h.HandleBalance)
	mux.HandleFunc("/accounts/nonce/", h.HandleNonce)
	mux.HandleFunc("/asset/denom/", h.HandleAssetDenom)
	mux.HandleFunc("/asset/allowed_fee_assets", h.HandleAllowedFeeAssets)
	mux.HandleFunc("/bridge/account_info/", h.HandleBridgeAccountInfo)
	mux.HandleFunc("/bridge/account_last_tx_hash/", h.HandleBridgeLastTxHash)
	mux.HandleFunc("/transaction/fee", h.HandleTransactionFee)
	mux.HandleFunc("/upgrades", h.HandleUpgrades)
	mux.HandleFunc("/validators", h.HandleValidators)
	mux.HandleFunc("/block/", h.HandleBlock)
}

// inclusionProofResponse is merkle.InclusionProof's JSON shape: siblings
// hex-encoded for the same reason every other hash in this package is.
type inclusionProofResponse struct {
	Index      int      `json:"index"`
	Siblings   []string `json:"siblings"`
	TotalLeafs int      `json:"total_leafs"`
}

func toProofResponse(p *merkle.InclusionProof) *inclusionProofResponse {
	if p == nil {
		return nil
	}
	siblings := make([]string, len(p.Siblings))
	for i, s := range p.Siblings {
		siblings[i] = hex.EncodeToString(s[:])
	}
	return &inclusionProofResponse{Index: p.Index, Siblings: siblings, TotalLeafs: p.TotalLeafs}
}

// rollupTransactionsEntry is one rollup's slot in blockResponse's
// rollup_transactions map (spec §6: "ordered map rollup_id ->
// {transactions[], inclusion_proof_into_rollup_transactions_root}").
type rollupTransactionsEntry struct {
	Transactions                   []string                 `json:"transactions"`
	InclusionProofIntoRollupTxRoot *inclusionProofResponse  `json:"inclusion_proof_into_rollup_transactions_root"`
}

// blockResponse is HandleBlock's JSON shape: hex-encoded so a []byte field
// doesn't collapse to base64 against the hex-everywhere convention the rest
// of this package's query responses already use for hashes.
type blockResponse struct {
	Height                 int64                              `json:"height"`
	AppHash                string                             `json:"app_hash"`
	TxHashes               []string                           `json:"tx_hashes"`
	RollupTransactionsRoot string                             `json:"rollup_transactions_root"`
	RollupIDsRoot          string                             `json:"rollup_ids_root"`
	DataHash               string                             `json:"data_hash"`
	RollupTransactions     map[string]rollupTransactionsEntry `json:"rollup_transactions"`
	RollupTransactionsProof *inclusionProofResponse           `json:"rollup_transactions_proof,omitempty"`
	RollupIDsProof         *inclusionProofResponse            `json:"rollup_ids_proof,omitempty"`
}

// HandleBlock serves an archived block by height (spec §1: "historical
// query... required for block serving"), including spec §6's
// rollup_transactions map and the inclusion proofs that let a rollup node
// verify its own data against the block's data_hash without trusting this
// endpoint (spec §8 invariants 4/5). Returns 404 both when no archive is
// configured and when the height was never recorded — a caller can't
// distinguish "this node doesn't archive" from "this block doesn't exist"
// from this endpoint alone, which is fine since neither case has a block to
// return.
func (h *Handlers) HandleBlock(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSONError(w, "block archive not configured", http.StatusNotFound)
		return
	}
	height, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/block/"), 10, 64)
	if err != nil {
		writeJSONError(w, "height must be an integer", http.StatusBadRequest)
		return
	}
	block, err := h.archive.BlockByHeight(r.Context(), height)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if block == nil {
		writeJSONError(w, "block not found", http.StatusNotFound)
		return
	}

	rt := consensus.RollupTransactions{Order: block.RollupTransactions.Order, ByID: block.RollupTransactions.ByID}

	resp := blockResponse{
		Height:                 block.Height,
		AppHash:                hex.EncodeToString(block.AppHash),
		RollupTransactionsRoot: hex.EncodeToString(rootBytes(consensus.RollupTransactionsRoot(rt))),
		RollupIDsRoot:          hex.EncodeToString(rootBytes(consensus.RollupIDsRoot(rt))),
		DataHash:               hex.EncodeToString(rootBytes(consensus.DataHash(block.FullTxs))),
		RollupTransactions:     make(map[string]rollupTransactionsEntry, len(rt.Order)),
	}
	for _, th := range block.TxHashes {
		resp.TxHashes = append(resp.TxHashes, hex.EncodeToString(th))
	}

	for _, key := range rt.Order {
		idBytes, err := hex.DecodeString(key)
		if err != nil {
			writeJSONError(w, fmt.Sprintf("archived rollup id %q: %v", key, err), http.StatusInternalServerError)
			return
		}
		rollupID, err := sequencer.RollupIDFromBytes(idBytes)
		if err != nil {
			writeJSONError(w, fmt.Sprintf("archived rollup id %q: %v", key, err), http.StatusInternalServerError)
			return
		}
		proof, err := consensus.ProveRollupTransactions(rt, rollupID)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		entries := make([]string, len(rt.ByID[key]))
		for i, e := range rt.ByID[key] {
			entries[i] = hex.EncodeToString(e)
		}
		resp.RollupTransactions[key] = rollupTransactionsEntry{
			Transactions:                    entries,
			InclusionProofIntoRollupTxRoot: toProofResponse(proof),
		}
	}

	if len(block.FullTxs) >= 2 {
		txProof, err := consensus.ProveDataHash(block.FullTxs, 0)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		idsProof, err := consensus.ProveDataHash(block.FullTxs, 1)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}
		resp.RollupTransactionsProof = toProofResponse(txProof)
		resp.RollupIDsProof = toProofResponse(idsProof)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func rootBytes(root [32]byte) []byte { return root[:] }

func (h *Handlers) HandleBalance(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimPrefix(r.URL.Path, "/accounts/balance/")
	h.serveQuery(w, "accounts/balance/"+addr, nil)
}

func (h *Handlers) HandleNonce(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimPrefix(r.URL.Path, "/accounts/nonce/")
	h.serveQuery(w, "accounts/nonce/"+addr, nil)
}

func (h *Handlers) HandleAssetDenom(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/asset/denom/")
	h.serveQuery(w, "asset/denom/"+id, nil)
}

func (h *Handlers) HandleAllowedFeeAssets(w http.ResponseWriter, _ *http.Request) {
	h.serveQuery(w, "asset/allowed_fee_assets", nil)
}

func (h *Handlers) HandleBridgeAccountInfo(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimPrefix(r.URL.Path, "/bridge/account_info/")
	h.serveQuery(w, "bridge/account_info/"+addr, nil)
}

func (h *Handlers) HandleBridgeLastTxHash(w http.ResponseWriter, r *http.Request) {
	addr := strings.TrimPrefix(r.URL.Path, "/bridge/account_last_tx_hash/")
	h.serveQuery(w, "bridge/account_last_tx_hash/"+addr, nil)
}

// transactionFeeRequest carries the wire-encoded transaction body as hex,
// since QueryPath's underlying helper decodes the same binary form
// pkg/sequencer.TransactionBody.Encode produces, not a JSON rendering of
// one.
type transactionFeeRequest struct {
	TxBody string `json:"tx_body"`
}

func (h *Handlers) HandleTransactionFee(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req transactionFeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	body, err := hex.DecodeString(req.TxBody)
	if err != nil {
		writeJSONError(w, "tx_body must be hex-encoded", http.StatusBadRequest)
		return
	}
	h.serveQuery(w, "transaction/fee", body)
}

func (h *Handlers) HandleUpgrades(w http.ResponseWriter, _ *http.Request) {
	h.serveQuery(w, "upgrades", nil)
}

// HandleValidators serves spec §6 `validators`: the active validator set,
// with names gated on the Aspen upgrade (spec scenario S5).
func (h *Handlers) HandleValidators(w http.ResponseWriter, _ *http.Request) {
	h.serveQuery(w, "validators", nil)
}

// serveQuery runs path through App.QueryPath and writes its JSON result
// straight through, or a JSON error object on failure. QueryPath's errors
// are always "not found" or "bad argument" in practice (spec §6 endpoints
// have no other failure mode against committed state), so every error
// here maps to 400 rather than trying to distinguish failure kinds.
func (h *Handlers) serveQuery(w http.ResponseWriter, path string, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	value, _, err := h.app.QueryPath(path, data)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Write(value)
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
