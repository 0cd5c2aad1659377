package chess

import (
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sq(t *testing.T, s string) Square {
	t.Helper()
	out, err := ParseSquare(s)
	require.NoError(t, err)
	return out
}

func fen(t *testing.T, s string) Position {
	t.Helper()
	pos, err := ParseFEN(s)
	require.NoError(t, err)
	return pos
}

func play(t *testing.T, pos Position, moves ...string) Result {
	t.Helper()
	var res Result
	for _, m := range moves {
		promo := NoKind
		if len(m) == 5 {
			promo = map[byte]PieceKind{'q': Queen, 'r': Rook, 'b': Bishop, 'n': Knight}[m[4]]
		}
		var err error
		res, err = AttemptMove(pos, pos.Turn(), sq(t, m[:2]), sq(t, m[2:4]), promo)
		require.NoError(t, err, "move %s", m)
		pos = res.Position
	}
	return res
}

// field returns FEN field i: 0 placement, 1 turn, 2 castling, 3 en passant.
func field(pos Position, i int) string { return strings.Fields(pos.FEN())[i] }

func TestStartingPosition(t *testing.T) {
	pos := StartingPosition()
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1", pos.FEN())
	assert.Equal(t, White, pos.Turn())
	assert.Equal(t, pos.FEN(), Position{}.FEN(), "zero value is the starting position")

	term, err := Evaluate(pos)
	require.NoError(t, err)
	assert.Equal(t, NotTerminal, term)
}

func TestSquareMapping(t *testing.T) {
	for _, name := range []string{"a1", "a8", "e2", "h8", "d5"} {
		s := sq(t, name)
		assert.Equal(t, name, s.String())
		assert.Equal(t, name, s.lib().String())
	}
	_, err := ParseSquare("i9")
	require.ErrorIs(t, err, ErrOutOfBounds)
}

func TestAttemptMove_FoolsMateLeavesInputUntouched(t *testing.T) {
	start := StartingPosition()
	before := start.FEN()

	res := play(t, start, "f2f3", "e7e5", "g2g4", "d8h4")
	assert.Equal(t, before, start.FEN())
	assert.Equal(t, Checkmate, res.Terminal)
	assert.True(t, res.Check)
	assert.True(t, res.Terminal.Decisive())
	assert.Equal(t, "d8h4", res.Move.UCI())

	_, err := AttemptMove(start, White, sq(t, "e2"), sq(t, "e5"), NoKind)
	require.ErrorIs(t, err, ErrIllegalMove)
	assert.Equal(t, before, start.FEN())
}

func TestAttemptMove_HarnessOpening(t *testing.T) {
	pos := StartingPosition()
	res, err := AttemptMove(pos, White, Square{File: 0, Rank: 6}, Square{File: 0, Rank: 5}, NoKind)
	require.NoError(t, err)
	assert.Equal(t, Black, res.Position.Turn())
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/8/P7/1PPPPPPP/RNBQKBNR", field(res.Position, 0))
	assert.Equal(t, "-", field(res.Position, 3))

	res, err = AttemptMove(res.Position, Black, Square{File: 0, Rank: 1}, Square{File: 0, Rank: 3}, NoKind)
	require.NoError(t, err)
	assert.Equal(t, "rnbqkbnr/1ppppppp/8/p7/8/P7/1PPPPPPP/RNBQKBNR w KQkq a6 0 2", res.Position.FEN())
	assert.Equal(t, NotTerminal, res.Terminal)
	assert.False(t, res.Capture)
}

func TestAttemptMove_Rejections(t *testing.T) {
	start := StartingPosition()
	cases := []struct {
		name     string
		pos      Position
		side     Color
		from, to Square
		want     error
	}{
		{"from off board", start, White, Square{File: 8, Rank: 6}, Square{File: 0, Rank: 5}, ErrOutOfBounds},
		{"to off board", start, White, Square{File: 0, Rank: 6}, Square{File: 0, Rank: -1}, ErrOutOfBounds},
		{"empty square", start, White, Square{File: 0, Rank: 4}, Square{File: 0, Rank: 3}, ErrIllegalMove},
		{"opponent piece", start, White, Square{File: 0, Rank: 1}, Square{File: 0, Rank: 2}, ErrIllegalMove},
		{"side not on move", start, Black, Square{File: 0, Rank: 1}, Square{File: 0, Rank: 2}, ErrIllegalMove},
		{"pawn triple step", start, White, Square{File: 0, Rank: 6}, Square{File: 0, Rank: 3}, ErrIllegalMove},
		{"bishop blocked", start, White, Square{File: 2, Rank: 7}, Square{File: 4, Rank: 5}, ErrIllegalMove},
		{"knight shape", start, White, Square{File: 1, Rank: 7}, Square{File: 1, Rank: 5}, ErrIllegalMove},
		{"pinned bishop", fen(t, "4k3/4r3/8/8/8/8/4B3/4K3 w - - 0 1"), White, sq(t, "e2"), sq(t, "d3"), ErrIllegalMove},
		{"king into check", fen(t, "4k3/8/8/8/8/8/3r4/4K3 w - - 0 1"), White, sq(t, "e1"), sq(t, "d1"), ErrIllegalMove},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.pos.FEN()
			_, err := AttemptMove(tc.pos, tc.side, tc.from, tc.to, NoKind)
			require.ErrorIs(t, err, tc.want)
			assert.Equal(t, before, tc.pos.FEN(), "input position must not change")
		})
	}
}

func TestAttemptMove_Castling(t *testing.T) {
	pos := fen(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")
	res := play(t, pos, "e1g1")
	assert.Equal(t, "r3k2r/8/8/8/8/8/8/R4RK1", field(res.Position, 0))
	assert.Equal(t, "kq", field(res.Position, 2))

	res = play(t, pos, "e1c1", "e8g8")
	assert.Equal(t, "r4rk1/8/8/8/8/8/8/2KR3R", field(res.Position, 0))
	assert.Equal(t, "-", field(res.Position, 2))

	through := fen(t, "r3k2r/8/8/8/8/8/5r2/R3K2R w KQkq - 0 1")
	_, err := AttemptMove(through, White, sq(t, "e1"), sq(t, "g1"), NoKind)
	require.ErrorIs(t, err, ErrIllegalMove, "castling through an attacked square")
	play(t, through, "e1c1")

	inCheck := fen(t, "r3k2r/8/8/8/8/8/4r3/R3K2R w KQkq - 0 1")
	_, err = AttemptMove(inCheck, White, sq(t, "e1"), sq(t, "c1"), NoKind)
	require.ErrorIs(t, err, ErrIllegalMove, "castling out of check")

	moved := play(t, pos, "h1h2", "a8a7", "h2h1", "a7a8")
	_, err = AttemptMove(moved.Position, White, sq(t, "e1"), sq(t, "g1"), NoKind)
	require.ErrorIs(t, err, ErrIllegalMove, "rook has moved")
}

func TestAttemptMove_EnPassant(t *testing.T) {
	pos := fen(t, "4k3/8/8/3pP3/8/8/8/4K3 w - d6 0 1")
	res := play(t, pos, "e5d6")
	assert.True(t, res.Capture)
	assert.Equal(t, "4k3/8/3P4/8/8/8/8/4K3", field(res.Position, 0))

	stale := fen(t, "4k3/8/8/3pP3/8/8/8/4K3 w - - 0 1")
	_, err := AttemptMove(stale, White, sq(t, "e5"), sq(t, "d6"), NoKind)
	require.ErrorIs(t, err, ErrIllegalMove)
}

func TestAttemptMove_Promotion(t *testing.T) {
	pos := fen(t, "8/P6k/8/8/8/8/8/K7 w - - 0 1")
	res := play(t, pos, "a7a8")
	assert.Equal(t, "Q7/7k/8/8/8/8/8/K7", field(res.Position, 0))
	assert.Equal(t, Queen, res.Move.Promotion)
	assert.Equal(t, "a7a8q", res.Move.UCI())

	res = play(t, pos, "a7a8n")
	assert.Equal(t, "N7/7k/8/8/8/8/8/K7", field(res.Position, 0))
	assert.Equal(t, "a7a8n", res.Move.UCI())

	for _, bad := range []PieceKind{King, Pawn} {
		_, err := AttemptMove(pos, White, sq(t, "a7"), sq(t, "a8"), bad)
		require.ErrorIs(t, err, ErrIllegalMove, "promote to %s", bad)
	}

	res = play(t, StartingPosition(), "e2e4")
	assert.Equal(t, NoKind, res.Move.Promotion, "promotion ignored off the last rank")
}

func TestAttemptMove_Draws(t *testing.T) {
	res := play(t, fen(t, "k7/8/8/1Q6/8/8/8/7K w - - 0 1"), "b5b6")
	assert.Equal(t, Stalemate, res.Terminal)
	assert.False(t, res.Check)
	assert.False(t, res.Terminal.Decisive())

	res = play(t, fen(t, "4k3/8/8/8/8/8/3p4/4K3 w - - 0 1"), "e1d2")
	assert.Equal(t, InsufficientMaterial, res.Terminal)
	assert.True(t, res.Capture)

	res = play(t, fen(t, "4k3/8/8/8/8/8/R7/4K3 w - - 149 100"), "a2a3")
	assert.Equal(t, SeventyFiveMoveRule, res.Terminal)
}

func TestAttemptMove_Deterministic(t *testing.T) {
	pos := fen(t, "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1")
	a, errA := AttemptMove(pos, White, sq(t, "e5"), sq(t, "f7"), NoKind)
	b, errB := AttemptMove(pos, White, sq(t, "e5"), sq(t, "f7"), NoKind)
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
	assert.True(t, a.Capture)
}

func TestParseFENRoundTrip(t *testing.T) {
	for _, s := range []string{
		"rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1",
		"r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1",
		"8/8/8/8/8/8/8/K6k b - - 12 40",
	} {
		assert.Equal(t, s, fen(t, s).FEN())
	}
	_, err := ParseFEN("8/8/8 w - -")
	assert.Error(t, err)
}

func TestPositionCBOR(t *testing.T) {
	pos := play(t, StartingPosition(), "e2e4").Position
	raw, err := cbor.Marshal(pos)
	require.NoError(t, err)

	var back Position
	require.NoError(t, cbor.Unmarshal(raw, &back))
	assert.Equal(t, pos.FEN(), back.FEN())
	assert.Equal(t, Black, back.Turn())

	assert.Error(t, cbor.Unmarshal([]byte{0x43, 'b', 'a', 'd'}, &back))
}
