package config

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/astria/sequencer/pkg/crypto"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

// Genesis is the chain's on-disk genesis file: the one-time state every
// node's InitChain must apply identically (spec §4.8 "InitChain: apply
// genesis state"). Addresses are bech32 strings and verification keys are
// hex so the file is hand-editable; ApplyGenesis is what turns them into
// the store's binary keys.
type Genesis struct {
	ChainID       string                `yaml:"chain_id"`
	Sudo          string                `yaml:"sudo"`
	IbcSudo       string                `yaml:"ibc_sudo"`
	FeeCollector  string                `yaml:"fee_collector"`
	Assets        []GenesisAsset        `yaml:"assets"`
	FeeAssets     []string              `yaml:"fee_assets"`
	FeeSchedules  []GenesisFeeSchedule  `yaml:"fee_schedules"`
	Allocations   []GenesisAllocation   `yaml:"allocations"`
	Validators    []GenesisValidator    `yaml:"validators"`
	CurrencyPairs []GenesisCurrencyPair `yaml:"currency_pairs"`
	IbcRelayers   []string              `yaml:"ibc_relayers"`
}

type GenesisAsset struct {
	Denom string `yaml:"denom"`
}

// GenesisFeeSchedule keys by the action kind's String() form ("Transfer",
// "RollupDataSubmission", ...) rather than its numeric tag, so the file
// stays readable without whoever edits it needing to memorize ActionKind's
// wire values.
type GenesisFeeSchedule struct {
	Action     string `yaml:"action"`
	Base       uint64 `yaml:"base"`
	Multiplier uint64 `yaml:"multiplier"`
}

type GenesisAllocation struct {
	Address string `yaml:"address"`
	Denom   string `yaml:"denom"`
	Amount  uint64 `yaml:"amount"`
}

type GenesisValidator struct {
	VerificationKey string `yaml:"verification_key"`
	Power           uint64 `yaml:"power"`
	Name            string `yaml:"name"`
}

type GenesisCurrencyPair struct {
	Base     string `yaml:"base"`
	Quote    string `yaml:"quote"`
	Decimals uint8  `yaml:"decimals"`
}

// LoadGenesis reads and parses a genesis.yaml. There are no defaults:
// every field here is chain-critical, so an omission should surface as a
// parse or apply error rather than silently falling back to something
// plausible.
func LoadGenesis(path string) (*Genesis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read genesis %s: %w", path, err)
	}
	gen := &Genesis{}
	if err := yaml.Unmarshal(data, gen); err != nil {
		return nil, fmt.Errorf("config: parse genesis %s: %w", path, err)
	}
	return gen, nil
}

var actionKindByName = map[string]sequencer.ActionKind{
	"Transfer":             sequencer.KindTransfer,
	"RollupDataSubmission": sequencer.KindRollupDataSubmission,
	"BridgeLock":           sequencer.KindBridgeLock,
	"BridgeUnlock":         sequencer.KindBridgeUnlock,
	"BridgeTransfer":       sequencer.KindBridgeTransfer,
	"BridgeSudoChange":     sequencer.KindBridgeSudoChange,
	"InitBridgeAccount":    sequencer.KindInitBridgeAccount,
	"Ics20Withdrawal":      sequencer.KindIcs20Withdrawal,
	"IbcRelay":             sequencer.KindIbcRelay,
	"ValidatorUpdate":      sequencer.KindValidatorUpdate,
	"SudoAddressChange":    sequencer.KindSudoAddressChange,
	"IbcRelayerChange":     sequencer.KindIbcRelayerChange,
	"FeeAssetChange":       sequencer.KindFeeAssetChange,
	"FeeChange":            sequencer.KindFeeChange,
	"IbcSudoChange":        sequencer.KindIbcSudoChange,
	"CurrencyPairsChange":  sequencer.KindCurrencyPairsChange,
	"MarketsChange":        sequencer.KindMarketsChange,
	"RecoverIbcClient":     sequencer.KindRecoverIbcClient,
}

// ApplyGenesis writes every piece of genesis-declared state into ov: the
// chain's two privileged addresses and fee collector, the asset registry,
// the fee-asset allow list, per-kind fee schedules, initial balances
// (nonces start implicitly at zero, so only balances are written), the
// initial validator set, the initial IBC relayer allow list, and the
// initial currency pair registry with its next-id counter (spec §4.8).
func ApplyGenesis(ov *store.Overlay, gen Genesis) error {
	sudo, err := crypto.ParseAddress(gen.Sudo)
	if err != nil {
		return fmt.Errorf("config: genesis sudo address: %w", err)
	}
	ibcSudo, err := crypto.ParseAddress(gen.IbcSudo)
	if err != nil {
		return fmt.Errorf("config: genesis ibc_sudo address: %w", err)
	}
	feeCollector, err := crypto.ParseAddress(gen.FeeCollector)
	if err != nil {
		return fmt.Errorf("config: genesis fee_collector address: %w", err)
	}
	if err := ov.Put(store.ChainSudoKey(), sudo.Bytes()); err != nil {
		return err
	}
	if err := ov.Put(store.ChainIbcSudoKey(), ibcSudo.Bytes()); err != nil {
		return err
	}
	if err := ov.Put(store.ChainFeeCollectorKey(), feeCollector.Bytes()); err != nil {
		return err
	}

	for _, a := range gen.Assets {
		denom := sequencer.Denom(a.Denom)
		if err := ov.Put(store.AssetDenomKey(denom.ID()), []byte(a.Denom)); err != nil {
			return fmt.Errorf("config: genesis asset %q: %w", a.Denom, err)
		}
	}

	for _, denomStr := range gen.FeeAssets {
		id := sequencer.Denom(denomStr).ID()
		if err := ov.Put(store.FeeAssetKey(id), []byte{1}); err != nil {
			return fmt.Errorf("config: genesis fee asset %q: %w", denomStr, err)
		}
	}

	for _, fs := range gen.FeeSchedules {
		kind, ok := actionKindByName[fs.Action]
		if !ok {
			return fmt.Errorf("config: genesis fee schedule: unknown action %q", fs.Action)
		}
		schedule := sequencer.FeeSchedule{
			Base:       sequencer.NewUint128FromUint64(fs.Base),
			Multiplier: sequencer.NewUint128FromUint64(fs.Multiplier),
		}
		if err := ov.Put(store.FeeScheduleKey(kind), schedule.Encode()); err != nil {
			return fmt.Errorf("config: genesis fee schedule %q: %w", fs.Action, err)
		}
	}

	for _, alloc := range gen.Allocations {
		addr, err := crypto.ParseAddress(alloc.Address)
		if err != nil {
			return fmt.Errorf("config: genesis allocation address %q: %w", alloc.Address, err)
		}
		assetID := sequencer.Denom(alloc.Denom).ID()
		bal := sequencer.NewUint128FromUint64(alloc.Amount)
		if err := ov.Put(store.BalanceKey(addr.Bytes(), assetID), store.EncodeBalance(bal)); err != nil {
			return fmt.Errorf("config: genesis allocation %q: %w", alloc.Address, err)
		}
	}

	for _, v := range gen.Validators {
		keyBytes, err := hex.DecodeString(v.VerificationKey)
		if err != nil {
			return fmt.Errorf("config: genesis validator key %q: %w", v.VerificationKey, err)
		}
		entry := sequencer.ValidatorSetEntry{VerificationKey: keyBytes, Power: v.Power, Name: v.Name}
		if err := ov.Put(store.ValidatorKey(keyBytes), entry.Encode()); err != nil {
			return fmt.Errorf("config: genesis validator %q: %w", v.Name, err)
		}
	}

	for _, relayer := range gen.IbcRelayers {
		addr, err := crypto.ParseAddress(relayer)
		if err != nil {
			return fmt.Errorf("config: genesis ibc relayer %q: %w", relayer, err)
		}
		if err := ov.Put(store.IBCRelayerKey(addr.Bytes()), []byte{1}); err != nil {
			return fmt.Errorf("config: genesis ibc relayer %q: %w", relayer, err)
		}
	}

	for i, cp := range gen.CurrencyPairs {
		id := sequencer.CurrencyPairID(i)
		pair := sequencer.CurrencyPair{Base: cp.Base, Quote: cp.Quote, Decimals: cp.Decimals}
		if err := ov.Put(store.CurrencyPairKey(id), pair.Encode()); err != nil {
			return fmt.Errorf("config: genesis currency pair %s/%s: %w", cp.Base, cp.Quote, err)
		}
	}
	if len(gen.CurrencyPairs) > 0 {
		if err := ov.Put(store.CurrencyPairNextIDKey(), store.EncodeUint64(uint64(len(gen.CurrencyPairs)))); err != nil {
			return fmt.Errorf("config: genesis currency pair next id: %w", err)
		}
	}

	return nil
}
