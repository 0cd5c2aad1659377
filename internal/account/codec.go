package account

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// Kind is the one-byte discriminator in front of every encoded record.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindUser
	KindGame
	KindSessionToken
)

func (k Kind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindGame:
		return "game"
	case KindSessionToken:
		return "session_token"
	}
	return "unknown"
}

var ErrWrongKind = errors.New("account data has unexpected kind")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	// Core deterministic encoding: equal records encode to equal bytes, and
	// transaction signatures cover these bytes.
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("account: cbor encoder: " + err.Error())
	}
	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("account: cbor decoder: " + err.Error())
	}
}

// KindOf reads the discriminator without decoding the body.
func KindOf(data []byte) Kind {
	if len(data) == 0 {
		return KindUnknown
	}
	return Kind(data[0])
}

func encode(k Kind, v any) ([]byte, error) {
	body, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", k, err)
	}
	return append([]byte{byte(k)}, body...), nil
}

func decode(data []byte, k Kind, v any) error {
	if got := KindOf(data); got != k {
		return fmt.Errorf("%w: want %s, got %s", ErrWrongKind, k, got)
	}
	if err := decMode.Unmarshal(data[1:], v); err != nil {
		return fmt.Errorf("decode %s: %w", k, err)
	}
	return nil
}

func EncodeUser(u *User) ([]byte, error) { return encode(KindUser, u) }

func DecodeUser(data []byte) (*User, error) {
	var u User
	if err := decode(data, KindUser, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func EncodeGame(g *Game) ([]byte, error) { return encode(KindGame, g) }

func DecodeGame(data []byte) (*Game, error) {
	var g Game
	if err := decode(data, KindGame, &g); err != nil {
		return nil, err
	}
	if g.Moves == nil {
		g.Moves = []string{}
	}
	return &g, nil
}

func EncodeSessionToken(t *SessionToken) ([]byte, error) { return encode(KindSessionToken, t) }

func DecodeSessionToken(data []byte) (*SessionToken, error) {
	var t SessionToken
	if err := decode(data, KindSessionToken, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Marshal and Unmarshal expose the record encoding for other wire payloads.
func Marshal(v any) ([]byte, error) { return encMode.Marshal(v) }

func Unmarshal(data []byte, v any) error { return decMode.Unmarshal(data, v) }
