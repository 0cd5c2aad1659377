package runtime

import (
	"crypto/ed25519"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/park285/ledger-chess/internal/account"
)

// Message is the signed part of a transaction.
type Message struct {
	Program     account.Address `cbor:"program" json:"program"`
	Payer       account.Address `cbor:"payer" json:"payer"`
	Instruction []byte          `cbor:"ix" json:"instruction"`
	Nonce       uint64          `cbor:"nonce" json:"nonce"`
}

// Bytes is the canonical encoding that signatures cover.
func (m Message) Bytes() ([]byte, error) { return account.Marshal(m) }

type Signature struct {
	Signer account.Address `cbor:"signer" json:"signer"`
	Sig    []byte          `cbor:"sig" json:"sig"`
}

// Transaction invokes one program instruction on behalf of its signers.
type Transaction struct {
	Message    Message     `cbor:"message" json:"message"`
	Signatures []Signature `cbor:"signatures" json:"signatures"`
}

// NewTransaction encodes ix and wraps it in an unsigned transaction.
func NewTransaction(program, payer account.Address, ix any, nonce uint64) (*Transaction, error) {
	data, err := account.Marshal(ix)
	if err != nil {
		return nil, fmt.Errorf("encode instruction: %w", err)
	}
	return &Transaction{Message: Message{Program: program, Payer: payer, Instruction: data, Nonce: nonce}}, nil
}

// Sign appends a signature by key over the message.
func (t *Transaction) Sign(key ed25519.PrivateKey) error {
	msg, err := t.Message.Bytes()
	if err != nil {
		return err
	}
	t.Signatures = append(t.Signatures, Signature{Signer: PublicAddress(key), Sig: ed25519.Sign(key, msg)})
	return nil
}

// ID is the base58 first signature, or empty when unsigned.
func (t *Transaction) ID() string {
	if len(t.Signatures) == 0 {
		return ""
	}
	return base58.Encode(t.Signatures[0].Sig)
}

// verify checks every signature and returns the set of signers.
func (t *Transaction) verify() (map[account.Address]struct{}, error) {
	msg, err := t.Message.Bytes()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	signers := make(map[account.Address]struct{}, len(t.Signatures))
	for _, s := range t.Signatures {
		if len(s.Sig) != ed25519.SignatureSize || !ed25519.Verify(ed25519.PublicKey(s.Signer[:]), msg, s.Sig) {
			return nil, fmt.Errorf("%w: signer %s", ErrBadSignature, s.Signer)
		}
		signers[s.Signer] = struct{}{}
	}
	if _, ok := signers[t.Message.Payer]; !ok {
		return nil, fmt.Errorf("%w: payer %s", ErrMissingSignature, t.Message.Payer)
	}
	return signers, nil
}

// PublicAddress is the wallet address of key.
func PublicAddress(key ed25519.PrivateKey) account.Address {
	var a account.Address
	copy(a[:], key.Public().(ed25519.PublicKey))
	return a
}
