package account

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
	"github.com/zeebo/blake3"
)

// Address identifies a ledger record. Wallet addresses are ed25519 public
// keys; record addresses are derived from seeds and the owning program.
type Address [32]byte

var ErrBadAddress = errors.New("invalid address")

func (a Address) String() string { return base58.Encode(a[:]) }

func (a Address) IsZero() bool { return a == Address{} }

func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Address) UnmarshalText(b []byte) error {
	out, err := ParseAddress(string(b))
	if err != nil {
		return err
	}
	*a = out
	return nil
}

// ParseAddress decodes a base58 address.
func ParseAddress(s string) (Address, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("%w: %v", ErrBadAddress, err)
	}
	if len(raw) != len(Address{}) {
		return Address{}, fmt.Errorf("%w: %d bytes", ErrBadAddress, len(raw))
	}
	var a Address
	copy(a[:], raw)
	return a, nil
}

// MustParseAddress is for constants and tests.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

const derivationDomain = "ledger-chess.derived-address.v1"

// Derive computes the record address for seeds under program. Seeds are
// length-prefixed so ("ab","c") and ("a","bc") never collide.
func Derive(program Address, seeds ...[]byte) Address {
	h := blake3.New()
	_, _ = h.Write([]byte(derivationDomain))
	var lenBuf [binary.MaxVarintLen64]byte
	for _, s := range seeds {
		n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
		_, _ = h.Write(lenBuf[:n])
		_, _ = h.Write(s)
	}
	_, _ = h.Write(program[:])
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// ProgramID names a program by hashing a stable label.
func ProgramID(label string) Address {
	return Address(blake3.Sum256([]byte("ledger-chess.program." + label)))
}

var (
	userSeed         = []byte("user")
	gameSeed         = []byte("game")
	sessionTokenSeed = []byte("session_token")
)

// UserAddress is the one User record a wallet may own under program.
func UserAddress(program, owner Address) Address {
	return Derive(program, userSeed, owner[:])
}

// GameAddress is the sequence-th game created by user. The sequence is the
// user's games counter at creation time, big-endian.
func GameAddress(program, user Address, sequence uint64) Address {
	var seq [8]byte
	binary.BigEndian.PutUint64(seq[:], sequence)
	return Derive(program, gameSeed, user[:], seq[:])
}

// SessionTokenAddress locates the delegation that lets signer act for
// authority against target.
func SessionTokenAddress(sessionProgram, target, signer, authority Address) Address {
	return Derive(sessionProgram, sessionTokenSeed, target[:], signer[:], authority[:])
}

// Labels for the two programs a node hosts when no explicit IDs are configured.
const (
	ChessProgramLabel   = "chess"
	SessionProgramLabel = "session"
)
