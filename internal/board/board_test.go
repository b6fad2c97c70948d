package board

import (
	"math/rand"
	"testing"

	"github.com/danmuck/squares/internal/testutil/testlog"
	"github.com/stretchr/testify/require"
)

// surround draws the top, bottom and left edges of cell (x,y), one move per turn.
func surround(t *testing.T, b *Board, x, y int) {
	t.Helper()
	require.Equal(t, Ok, b.Move(b.Turn(), x, y, false))
	require.Equal(t, Ok, b.Move(b.Turn(), x, y+1, false))
	require.Equal(t, Ok, b.Move(b.Turn(), x, y, true))
}

func TestFirstMovePassesTurn(t *testing.T) {
	testlog.Start(t)
	b := New(DefaultSize, true)
	require.Equal(t, 1, b.Turn())

	require.Equal(t, Ok, b.Move(1, 0, 0, false))
	require.True(t, b.TopEdge(0, 0))
	require.Equal(t, 2, b.Turn())
	require.Zero(t, b.Score(1))
	require.Zero(t, b.Score(2))
}

func TestPlayer2FirstStartsWithPlayer2(t *testing.T) {
	testlog.Start(t)
	b := New(DefaultSize, false)
	require.Equal(t, 2, b.Turn())
	require.Equal(t, Illegal, b.Move(1, 0, 0, false))
	require.Equal(t, Ok, b.Move(2, 0, 0, false))
}

func TestCompletingSquareKeepsTurn(t *testing.T) {
	testlog.Start(t)
	b := New(DefaultSize, true)
	// three edges: p1, p2, p1 -> player 2 to move; hand turn back to p1.
	surround(t, b, 3, 3)
	require.Equal(t, Ok, b.Move(2, 0, 0, false))
	require.Equal(t, 1, b.Turn())

	require.Equal(t, OkAgain, b.Move(1, 4, 3, true))
	require.Equal(t, 1, b.Owner(3, 3))
	require.Equal(t, 1, b.Score(1))
	require.Equal(t, 1, b.Turn())
}

func TestSharedEdgeCompletesTwoSquaresOnce(t *testing.T) {
	testlog.Start(t)
	b := New(DefaultSize, true)
	moves := []struct {
		x, y   int
		isLeft bool
	}{
		{0, 0, false}, {1, 0, false}, // tops
		{0, 1, false}, {1, 1, false}, // bottoms
		{0, 0, true}, {2, 0, true}, // outer sides
	}
	for _, m := range moves {
		require.Equal(t, Ok, b.Move(b.Turn(), m.x, m.y, m.isLeft))
	}
	mover := b.Turn()

	res := b.Move(mover, 1, 0, true)
	require.Equal(t, OkAgain, res)
	require.Equal(t, mover, b.Owner(0, 0))
	require.Equal(t, mover, b.Owner(1, 0))
	require.Equal(t, 2, b.Score(mover))
	require.Equal(t, mover, b.Turn())
}

func TestIllegalMoves(t *testing.T) {
	testlog.Start(t)
	b := New(DefaultSize, true)

	require.Equal(t, Illegal, b.Move(0, 0, 0, false))
	require.Equal(t, Illegal, b.Move(3, 0, 0, false))
	require.Equal(t, Illegal, b.Move(2, 0, 0, false), "out of turn")
	require.Equal(t, Illegal, b.Move(1, -1, 0, false))
	require.Equal(t, Illegal, b.Move(1, DefaultSize, 0, false), "top edge x bound")
	require.Equal(t, Illegal, b.Move(1, 0, DefaultSize+1, false), "top edge y bound")
	require.Equal(t, Illegal, b.Move(1, 0, DefaultSize, true), "left edge y bound")
	require.Equal(t, Illegal, b.Move(1, DefaultSize+1, 0, true), "left edge x bound")

	require.Equal(t, Ok, b.Move(1, DefaultSize, 0, true), "right border")
	require.Equal(t, Ok, b.Move(2, 0, DefaultSize, false), "bottom border")
	require.Equal(t, Illegal, b.Move(1, DefaultSize, 0, true), "already drawn")
	require.Equal(t, 1, b.Turn(), "illegal move leaves turn")
}

func TestCanWinNow(t *testing.T) {
	testlog.Start(t)
	b := New(2, true)
	require.False(t, b.CanWinNow(1))

	// 2x2 board: a win needs 3 of the 4 cells.
	b.score[0] = 3
	require.True(t, b.CanWinNow(1))
	require.False(t, b.CanWinNow(2))

	b.turn = 2
	require.False(t, b.CanWinNow(1), "opponent's turn")
	b.score[0] = 2
	b.turn = 1
	require.False(t, b.CanWinNow(1), "tie still reachable")
	require.False(t, b.CanWinNow(7))
}

func TestWinnerTieBreak(t *testing.T) {
	testlog.Start(t)
	b := New(DefaultSize, true)
	b.score = [2]int{32, 32}
	require.True(t, b.IsComplete())
	require.Equal(t, 2, b.Winner(), "player 2 moved second")

	b = New(DefaultSize, false)
	b.score = [2]int{32, 32}
	require.Equal(t, 1, b.Winner(), "player 1 moved second")

	b.score = [2]int{40, 24}
	require.Equal(t, 1, b.Winner())
	b.score = [2]int{20, 30}
	require.Equal(t, 0, b.Winner(), "incomplete")
}

func TestRandomPlayInvariants(t *testing.T) {
	testlog.Start(t)
	rng := rand.New(rand.NewSource(7))
	for game := 0; game < 20; game++ {
		b := New(DefaultSize, game%2 == 0)
		owners := make(map[[2]int]int)
		for !b.IsComplete() {
			x := rng.Intn(DefaultSize + 1)
			y := rng.Intn(DefaultSize + 1)
			isLeft := rng.Intn(2) == 0
			wasSet := b.LeftEdge(x, y)
			if !isLeft {
				wasSet = b.TopEdge(x, y)
			}
			before := b.Score(1) + b.Score(2)
			res := b.Move(b.Turn(), x, y, isLeft)
			if wasSet {
				require.Equal(t, Illegal, res, "edge set twice")
			}
			after := b.Score(1) + b.Score(2)
			switch res {
			case OkAgain:
				require.Greater(t, after, before)
			default:
				require.Equal(t, before, after)
			}
			require.LessOrEqual(t, after, DefaultSize*DefaultSize)

			for cx := 0; cx < DefaultSize; cx++ {
				for cy := 0; cy < DefaultSize; cy++ {
					o := b.Owner(cx, cy)
					if prev, ok := owners[[2]int{cx, cy}]; ok {
						require.Equal(t, prev, o, "square reassigned")
					} else if o != 0 {
						owners[[2]int{cx, cy}] = o
					}
				}
			}
		}
		count := [3]int{}
		for _, o := range owners {
			count[o]++
		}
		require.Equal(t, b.Score(1), count[1])
		require.Equal(t, b.Score(2), count[2])
		require.NotZero(t, b.Winner())
	}
}
