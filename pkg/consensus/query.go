package consensus

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"

	"github.com/astria/sequencer/pkg/checkedtx"
	"github.com/astria/sequencer/pkg/config"
	"github.com/astria/sequencer/pkg/crypto"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
	"github.com/astria/sequencer/pkg/upgrade"
)

// queryReader is the subset of Snapshot/Overlay the query surface needs.
// Every query here reads committed state only (a Snapshot), never an
// in-flight overlay; the helpers take this narrower interface rather than
// the concrete snapshot type. pkg/queryhttp reaches them only through
// QueryPath.
type queryReader interface {
	Get(key []byte) ([]byte, error)
	IteratePrefix(prefix []byte, fn func(key, value []byte) error) error
}

// Info implements spec §6: the consensus driver's startup handshake, using
// Store.AppHash (recomputed, not cached — see pkg/store's own doc comment)
// so a restarted node always reports state it can prove.
func (app *App) Info(_ context.Context, _ *abci.RequestInfo) (*abci.ResponseInfo, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	appHash, err := app.store.AppHash()
	if err != nil {
		return nil, fmt.Errorf("consensus: info: app hash: %w", err)
	}
	return &abci.ResponseInfo{
		Data:             "astria-sequencer",
		Version:          "0.1.0",
		AppVersion:       1,
		LastBlockHeight:  app.store.Height(),
		LastBlockAppHash: appHash[:],
	}, nil
}

// InitChain implements spec §4.8 "InitChain: apply genesis state" — the
// one-time application of the configured Genesis to height 0's overlay.
func (app *App) InitChain(_ context.Context, req *abci.RequestInitChain) (*abci.ResponseInitChain, error) {
	app.mu.Lock()
	defer app.mu.Unlock()

	if app.genesis == nil {
		return nil, fmt.Errorf("consensus: init chain: no genesis configured")
	}

	ov := app.store.Begin()
	defer app.store.Discard(ov)

	gen := *app.genesis
	if gen.ChainID == "" {
		gen.ChainID = req.ChainId
	}
	if err := config.ApplyGenesis(ov, gen); err != nil {
		return nil, fmt.Errorf("consensus: init chain: apply genesis: %w", err)
	}

	valUpdates := validatorUpdatesFrom(ov)

	if _, _, err := app.store.Commit(ov); err != nil {
		return nil, fmt.Errorf("consensus: init chain: commit: %w", err)
	}

	return &abci.ResponseInitChain{Validators: valUpdates}, nil
}

// Query implements spec §6's named endpoints over ABCI's generic
// path/data Query RPC, for clients that talk directly to the consensus
// driver rather than pkg/queryhttp.
func (app *App) Query(_ context.Context, req *abci.RequestQuery) (*abci.ResponseQuery, error) {
	value, height, err := app.QueryPath(req.Path, req.Data)
	if err != nil {
		return &abci.ResponseQuery{Code: 1, Log: err.Error()}, nil
	}
	return &abci.ResponseQuery{Code: 0, Value: value, Height: height}, nil
}

// QueryPath runs the same dispatch Query does, against the same named
// endpoints (spec §6), for callers that aren't going through ABCI at all —
// pkg/queryhttp's HTTP handlers call this directly rather than
// constructing an abci.RequestQuery just to unwrap its response again.
func (app *App) QueryPath(path string, data []byte) (value []byte, height int64, err error) {
	snap := app.store.CommittedSnapshot()
	parts := strings.Split(strings.Trim(path, "/"), "/")

	arg := func() []byte {
		if len(parts) == 3 {
			return []byte(parts[2])
		}
		return data
	}

	switch {
	case path == "upgrades":
		value, err = queryUpgrades(snap, app.upgrades)
	case len(parts) >= 2 && parts[0] == "accounts" && parts[1] == "balance":
		value, err = queryBalance(snap, arg())
	case len(parts) >= 2 && parts[0] == "accounts" && parts[1] == "nonce":
		value, err = queryNonce(snap, arg())
	case len(parts) >= 2 && parts[0] == "asset" && parts[1] == "denom":
		value, err = queryAssetDenom(snap, arg())
	case path == "asset/allowed_fee_assets":
		value, err = queryAllowedFeeAssets(snap)
	case len(parts) >= 2 && parts[0] == "bridge" && parts[1] == "account_info":
		value, err = queryBridgeAccountInfo(snap, arg())
	case len(parts) >= 2 && parts[0] == "bridge" && parts[1] == "account_last_tx_hash":
		value, err = queryBridgeLastTxHash(snap, arg())
	case path == "transaction/fee":
		value, err = queryTransactionFee(snap, app.feeSchedules, data)
	case path == "validators":
		value, err = queryValidators(snap)
	default:
		return nil, 0, fmt.Errorf("unknown query path %q", path)
	}
	if err != nil {
		return nil, 0, err
	}
	return value, snap.Height, nil
}

type balanceEntry struct {
	Asset  string `json:"asset"`
	Amount string `json:"amount"`
}

// queryBalance implements spec §6 `accounts/balance/{address}`: the
// ordered list of (asset, amount) the account holds. Denoms are resolved
// back from the asset registry so the response is human-readable rather
// than bare 32-byte asset ids.
func queryBalance(r queryReader, addrArg []byte) ([]byte, error) {
	addr, err := resolveAddressArg(addrArg)
	if err != nil {
		return nil, err
	}
	var entries []balanceEntry
	err = r.IteratePrefix(store.BalancePrefix(addr.Bytes()), func(key, value []byte) error {
		assetID, err := store.AssetIDFromBalanceKey(key)
		if err != nil {
			return err
		}
		bal, err := store.DecodeBalance(value)
		if err != nil {
			return err
		}
		denom, err := resolveDenom(r, assetID)
		if err != nil {
			return err
		}
		entries = append(entries, balanceEntry{Asset: denom, Amount: bal.String()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(entries)
}

// queryNonce implements spec §6 `accounts/nonce/{address}`.
func queryNonce(r queryReader, addrArg []byte) ([]byte, error) {
	addr, err := resolveAddressArg(addrArg)
	if err != nil {
		return nil, err
	}
	raw, err := r.Get(store.NonceKey(addr.Bytes()))
	if err != nil {
		return nil, err
	}
	nonce, err := store.DecodeNonce(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(nonce)
}

// queryAssetDenom implements spec §6 `asset/denom/{id}`.
func queryAssetDenom(r queryReader, idArg []byte) ([]byte, error) {
	idBytes, err := hex.DecodeString(string(idArg))
	if err != nil {
		idBytes = idArg
	}
	id, err := sequencer.AssetIDFromBytes(idBytes)
	if err != nil {
		return nil, fmt.Errorf("asset id: %w", err)
	}
	denom, err := resolveDenom(r, id)
	if err != nil {
		return nil, err
	}
	return json.Marshal(denom)
}

// queryAllowedFeeAssets implements spec §6 `asset/allowed_fee_assets`.
func queryAllowedFeeAssets(r queryReader) ([]byte, error) {
	var denoms []string
	prefix := store.FeeAssetPrefix()
	err := r.IteratePrefix(prefix, func(key, _ []byte) error {
		id, err := sequencer.AssetIDFromBytes(key[len(prefix):])
		if err != nil {
			return err
		}
		denom, err := resolveDenom(r, id)
		if err != nil {
			return err
		}
		denoms = append(denoms, denom)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(denoms)
}

type bridgeAccountInfo struct {
	RollupID   string `json:"rollup_id"`
	Asset      string `json:"asset"`
	Sudo       string `json:"sudo"`
	Withdrawer string `json:"withdrawer"`
}

// queryBridgeAccountInfo implements spec §6 `bridge/account_info/{address}`.
func queryBridgeAccountInfo(r queryReader, addrArg []byte) ([]byte, error) {
	addr, err := resolveAddressArg(addrArg)
	if err != nil {
		return nil, err
	}
	raw, err := r.Get(store.BridgeAccountKey(addr.Bytes()))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no bridge account at %s", addr)
	}
	acct, err := sequencer.DecodeBridgeAccount(raw)
	if err != nil {
		return nil, err
	}
	return json.Marshal(bridgeAccountInfo{
		RollupID:   hex.EncodeToString(acct.RollupID.Bytes()),
		Asset:      string(acct.Asset),
		Sudo:       acct.Sudo.String(),
		Withdrawer: acct.Withdrawer.String(),
	})
}

// queryBridgeLastTxHash implements spec §6
// `bridge/account_last_tx_hash/{address}`.
func queryBridgeLastTxHash(r queryReader, addrArg []byte) ([]byte, error) {
	addr, err := resolveAddressArg(addrArg)
	if err != nil {
		return nil, err
	}
	raw, err := r.Get(store.BridgeLastTxKey(addr.Bytes()))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("no recorded transaction for bridge account %s", addr)
	}
	return json.Marshal(hex.EncodeToString(raw))
}

// queryTransactionFee implements spec §6 `transaction/fee` (body in
// request): the per-action fees a transaction body would incur, computed
// without executing it.
func queryTransactionFee(_ queryReader, feeSchedules checkedtx.FeeScheduleLookup, body []byte) ([]byte, error) {
	txBody, err := sequencer.DecodeTransactionBody(body)
	if err != nil {
		return nil, fmt.Errorf("decode transaction body: %w", err)
	}
	totals := make(map[sequencer.Denom]sequencer.Uint128)
	order := make([]sequencer.Denom, 0)
	for _, a := range txBody.Actions {
		denom, fee, err := feeSchedules.FeeFor(a)
		if err != nil {
			return nil, err
		}
		if fee.IsZero() {
			continue
		}
		if _, ok := totals[denom]; !ok {
			order = append(order, denom)
		}
		sum, err := totals[denom].CheckedAdd(fee)
		if err != nil {
			return nil, fmt.Errorf("transaction fee: %w", err)
		}
		totals[denom] = sum
	}
	result := make([]balanceEntry, 0, len(order))
	for _, denom := range order {
		result = append(result, balanceEntry{Asset: string(denom), Amount: totals[denom].String()})
	}
	return json.Marshal(result)
}

type validatorEntry struct {
	VerificationKey string `json:"verification_key"`
	Power           uint64 `json:"power"`
	Name            string `json:"name,omitempty"`
}

// queryValidators implements spec §6 `validators`: the active validator
// set, with Name surfaced only once the Aspen upgrade has activated (spec
// §4.4, §4.8, scenario S5) — before that height, a name accepted by
// ValidatorUpdate is persisted (see pkg/actions.execValidatorUpdate) but
// this endpoint omits it entirely rather than returning an empty string,
// so a client can't tell "no name set" from "not surfaced yet" by
// accident.
func queryValidators(r queryReader) ([]byte, error) {
	aspenApplied, err := upgrade.IsApplied(r, upgrade.AspenName)
	if err != nil {
		return nil, err
	}

	var entries []validatorEntry
	err = r.IteratePrefix(store.ValidatorPrefix(), func(_, value []byte) error {
		entry, err := sequencer.DecodeValidatorSetEntry(value)
		if err != nil {
			return err
		}
		ve := validatorEntry{
			VerificationKey: hex.EncodeToString(entry.VerificationKey),
			Power:           entry.Power,
		}
		if aspenApplied {
			ve.Name = entry.Name
		}
		entries = append(entries, ve)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return json.Marshal(entries)
}

type upgradesResponse struct {
	Applied   []string `json:"applied"`
	Scheduled []string `json:"scheduled"`
}

// queryUpgrades implements spec §6 `upgrades`: every upgrade the scheduler
// declares, split into those already recorded applied in r and those still
// pending.
func queryUpgrades(r queryReader, scheduler *upgrade.Scheduler) ([]byte, error) {
	resp := upgradesResponse{}
	for _, u := range scheduler.Declared() {
		applied, err := upgrade.IsApplied(r, u.Name)
		if err != nil {
			return nil, err
		}
		if applied {
			resp.Applied = append(resp.Applied, u.Name)
		} else {
			resp.Scheduled = append(resp.Scheduled, u.Name)
		}
	}
	return json.Marshal(resp)
}

func resolveAddressArg(b []byte) (crypto.Address, error) {
	if len(b) == 20 {
		return crypto.AddressFromBytes(b)
	}
	return crypto.ParseAddress(string(b))
}

func resolveDenom(r queryReader, id sequencer.AssetID) (string, error) {
	raw, err := r.Get(store.AssetDenomKey(id))
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", fmt.Errorf("unknown asset id %x", id.Bytes())
	}
	return string(raw), nil
}
