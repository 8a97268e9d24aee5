package actions

import (
	"fmt"

	"github.com/astria/sequencer/pkg/crypto"
	serrors "github.com/astria/sequencer/pkg/errors"
	"github.com/astria/sequencer/pkg/sequencer"
	"github.com/astria/sequencer/pkg/store"
)

func getBalance(ov *store.Overlay, addr []byte, assetID sequencer.AssetID) (sequencer.Uint128, error) {
	raw, err := ov.Get(store.BalanceKey(addr, assetID))
	if err != nil {
		return sequencer.Uint128{}, serrors.Wrap(serrors.KindStoreIO, "read balance", err)
	}
	bal, err := store.DecodeBalance(raw)
	if err != nil {
		return sequencer.Uint128{}, serrors.Wrap(serrors.KindStoreIO, "decode balance", err)
	}
	return bal, nil
}

func putBalance(ov *store.Overlay, addr []byte, assetID sequencer.AssetID, bal sequencer.Uint128) error {
	if err := ov.Put(store.BalanceKey(addr, assetID), store.EncodeBalance(bal)); err != nil {
		return serrors.Wrap(serrors.KindStoreIO, "write balance", err)
	}
	return nil
}

// debit subtracts amount from addr's balance of assetID, failing with
// KindInsufficientBalance rather than the generic store error this would
// otherwise surface as, since it is the one arithmetic failure every
// fee-paying and transfer-like action can hit.
func debit(ov *store.Overlay, addr []byte, assetID sequencer.AssetID, amount sequencer.Uint128) error {
	bal, err := getBalance(ov, addr, assetID)
	if err != nil {
		return err
	}
	newBal, err := bal.CheckedSub(amount)
	if err != nil {
		return serrors.New(serrors.KindInsufficientBalance,
			fmt.Sprintf("balance %s insufficient for debit of %s", bal, amount))
	}
	return putBalance(ov, addr, assetID, newBal)
}

func credit(ov *store.Overlay, addr []byte, assetID sequencer.AssetID, amount sequencer.Uint128) error {
	bal, err := getBalance(ov, addr, assetID)
	if err != nil {
		return err
	}
	newBal, err := bal.CheckedAdd(amount)
	if err != nil {
		return serrors.Wrap(serrors.KindConsensusInvariant, "credit overflow", err)
	}
	return putBalance(ov, addr, assetID, newBal)
}

// requireKnownAsset enforces that denom was registered in genesis or by a
// prior action (spec §4.4 Transfer: "Fails with ... UnknownAsset").
func requireKnownAsset(ov *store.Overlay, denom sequencer.Denom) error {
	known, err := ov.Has(store.AssetDenomKey(denom.ID()))
	if err != nil {
		return serrors.Wrap(serrors.KindStoreIO, "check asset registry", err)
	}
	if !known {
		return serrors.New(serrors.KindUnknownAsset, fmt.Sprintf("asset %q is not registered", denom))
	}
	return nil
}

func getNonce(ov *store.Overlay, addr []byte) (uint32, error) {
	raw, err := ov.Get(store.NonceKey(addr))
	if err != nil {
		return 0, serrors.Wrap(serrors.KindStoreIO, "read nonce", err)
	}
	nonce, err := store.DecodeNonce(raw)
	if err != nil {
		return 0, serrors.Wrap(serrors.KindStoreIO, "decode nonce", err)
	}
	return nonce, nil
}

// incrementNonce advances addr's nonce by one; called exactly once per
// executed transaction (spec §4.3), never per action.
func incrementNonce(ov *store.Overlay, addr []byte) error {
	nonce, err := getNonce(ov, addr)
	if err != nil {
		return err
	}
	return ov.Put(store.NonceKey(addr), store.EncodeNonce(nonce+1))
}

func getBridgeAccount(ov *store.Overlay, addr []byte) (sequencer.BridgeAccount, bool, error) {
	raw, err := ov.Get(store.BridgeAccountKey(addr))
	if err != nil {
		return sequencer.BridgeAccount{}, false, serrors.Wrap(serrors.KindStoreIO, "read bridge account", err)
	}
	if raw == nil {
		return sequencer.BridgeAccount{}, false, nil
	}
	acct, err := sequencer.DecodeBridgeAccount(raw)
	if err != nil {
		return sequencer.BridgeAccount{}, false, serrors.Wrap(serrors.KindStoreIO, "decode bridge account", err)
	}
	return acct, true, nil
}

func putBridgeAccount(ov *store.Overlay, addr []byte, acct sequencer.BridgeAccount) error {
	if err := ov.Put(store.BridgeAccountKey(addr), acct.Encode()); err != nil {
		return serrors.Wrap(serrors.KindStoreIO, "write bridge account", err)
	}
	return nil
}

func getChainAddress(ov *store.Overlay, key []byte, what string) (crypto.Address, error) {
	raw, err := ov.Get(key)
	if err != nil {
		return crypto.Address{}, serrors.Wrap(serrors.KindStoreIO, "read "+what, err)
	}
	if raw == nil {
		return crypto.Address{}, serrors.New(serrors.KindConsensusInvariant, what+" is not set")
	}
	return crypto.AddressFromBytes(raw)
}

func putChainAddress(ov *store.Overlay, key []byte, addr crypto.Address) error {
	if err := ov.Put(key, addr.Bytes()); err != nil {
		return serrors.Wrap(serrors.KindStoreIO, "write chain address", err)
	}
	return nil
}

func getChainSudo(ov *store.Overlay) (crypto.Address, error) {
	return getChainAddress(ov, store.ChainSudoKey(), "chain sudo address")
}

func getChainIbcSudo(ov *store.Overlay) (crypto.Address, error) {
	return getChainAddress(ov, store.ChainIbcSudoKey(), "chain ibc sudo address")
}

func getFeeCollector(ov *store.Overlay) (crypto.Address, error) {
	return getChainAddress(ov, store.ChainFeeCollectorKey(), "chain fee collector address")
}

// requireSudo enforces that signer is the current chain sudo address; every
// BundledSudo/UnbundledSudo action shares this single authorization rule
// (spec §4.3: "privileged actions signed by the sudo key").
func requireSudo(ov *store.Overlay, signer crypto.Address) error {
	sudo, err := getChainSudo(ov)
	if err != nil {
		return err
	}
	if !signer.Equal(sudo) {
		return serrors.New(serrors.KindActionPermission, "signer is not the chain sudo address")
	}
	return nil
}

// requireIbcSudo enforces that signer is the current chain ibc_sudo
// address; RecoverIbcClient is the one sudo-group action authorized by
// this address rather than the chain sudo address (see
// execRecoverIbcClient).
func requireIbcSudo(ov *store.Overlay, signer crypto.Address) error {
	ibcSudo, err := getChainIbcSudo(ov)
	if err != nil {
		return err
	}
	if !signer.Equal(ibcSudo) {
		return serrors.New(serrors.KindActionPermission, "signer is not the chain ibc_sudo address")
	}
	return nil
}
