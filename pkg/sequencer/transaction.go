package sequencer

import (
	"crypto/sha256"
	"fmt"

	"github.com/astria/sequencer/pkg/codec"
	"github.com/astria/sequencer/pkg/crypto"
)

// Params carries the fields every TransactionBody must agree on with the
// chain it targets (spec §6: "TransactionBody { params { nonce, chain_id
// }, actions[] }").
type Params struct {
	Nonce   uint32
	ChainID string
}

// TransactionBody is the signed payload: the exact bytes produced by
// Encode are what the Ed25519 signature covers.
type TransactionBody struct {
	Params  Params
	Actions []Action
}

// Encode produces the canonical body_bytes signed by the sender.
func (b TransactionBody) Encode() []byte {
	w := codec.NewWriter(256)
	w.Uint32(b.Params.Nonce)
	w.String(b.Params.ChainID)
	w.Uint32(uint32(len(b.Actions)))
	for _, a := range b.Actions {
		w.BytesField(EncodeAction(a))
	}
	return w.Bytes()
}

// DecodeTransactionBody reverses Encode.
func DecodeTransactionBody(data []byte) (TransactionBody, error) {
	r := codec.NewReader(data)
	nonce, err := r.Uint32()
	if err != nil {
		return TransactionBody{}, err
	}
	chainID, err := r.String()
	if err != nil {
		return TransactionBody{}, err
	}
	n, err := r.Uint32()
	if err != nil {
		return TransactionBody{}, err
	}
	actions := make([]Action, 0, n)
	for i := uint32(0); i < n; i++ {
		raw, err := r.BytesField()
		if err != nil {
			return TransactionBody{}, err
		}
		a, err := DecodeAction(raw)
		if err != nil {
			return TransactionBody{}, err
		}
		actions = append(actions, a)
	}
	if !r.Done() {
		return TransactionBody{}, errTrailingBytes("TransactionBody")
	}
	return TransactionBody{Params: Params{Nonce: nonce, ChainID: chainID}, Actions: actions}, nil
}

// Group returns the single group every action in the body must share. It
// returns an error if the body has no actions, if the actions span more
// than one group, or if an Unbundled group carries more than one action.
func (b TransactionBody) Group() (Group, error) {
	if len(b.Actions) == 0 {
		return 0, fmt.Errorf("sequencer: transaction body has no actions")
	}
	g := GroupOf(b.Actions[0].Kind())
	for _, a := range b.Actions[1:] {
		if GroupOf(a.Kind()) != g {
			return 0, fmt.Errorf("sequencer: actions span multiple groups (%s and %s)", g, GroupOf(a.Kind()))
		}
	}
	if g.singlePerTx() && len(b.Actions) != 1 {
		return 0, fmt.Errorf("sequencer: group %s permits exactly one action per transaction, got %d", g, len(b.Actions))
	}
	return g, nil
}

// Transaction is the outer signed envelope (spec §6: "protobuf-encoded
// Transaction { signature, verification_key, body_bytes }"). The wire
// encoding here is the module's own canonical codec rather than protobuf
// (see DESIGN.md); the field set and signing semantics are unchanged.
type Transaction struct {
	BodyBytes       []byte
	VerificationKey []byte
	Signature       []byte
}

// NewSignedTransaction signs body with key and wraps the result.
func NewSignedTransaction(body TransactionBody, key *crypto.SigningKey) Transaction {
	bodyBytes := body.Encode()
	return Transaction{
		BodyBytes:       bodyBytes,
		VerificationKey: key.PublicKey(),
		Signature:       key.Sign(bodyBytes),
	}
}

// Encode produces the outer wire bytes; Hash is SHA-256 of this encoding
// (spec §6: "Transaction hash is SHA-256 of the outer Transaction
// encoding").
func (t Transaction) Encode() []byte {
	w := codec.NewWriter(len(t.BodyBytes) + 128)
	w.BytesField(t.Signature)
	w.BytesField(t.VerificationKey)
	w.BytesField(t.BodyBytes)
	return w.Bytes()
}

func DecodeTransaction(data []byte) (Transaction, error) {
	r := codec.NewReader(data)
	sig, err := r.BytesField()
	if err != nil {
		return Transaction{}, err
	}
	key, err := r.BytesField()
	if err != nil {
		return Transaction{}, err
	}
	body, err := r.BytesField()
	if err != nil {
		return Transaction{}, err
	}
	if !r.Done() {
		return Transaction{}, errTrailingBytes("Transaction")
	}
	return Transaction{BodyBytes: body, VerificationKey: key, Signature: sig}, nil
}

// Hash is SHA-256 of the outer Transaction encoding.
func (t Transaction) Hash() [32]byte { return sha256.Sum256(t.Encode()) }

// VerifySignature checks the Ed25519 signature over BodyBytes.
func (t Transaction) VerifySignature() bool {
	return crypto.VerifySignature(t.VerificationKey, t.BodyBytes, t.Signature)
}

// SignerAddress derives the sending account's address from VerificationKey.
func (t Transaction) SignerAddress() crypto.Address {
	return crypto.AddressFromVerificationKey(t.VerificationKey)
}

// Body decodes BodyBytes; callers that only need the signer/hash should
// avoid calling this until the signature has already been checked.
func (t Transaction) Body() (TransactionBody, error) {
	return DecodeTransactionBody(t.BodyBytes)
}
