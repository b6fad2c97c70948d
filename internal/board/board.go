package board

// DefaultSize is the board width and height used on the wire.
const DefaultSize = 8

// MoveResult is the outcome of one Move call.
type MoveResult int

const (
	Illegal MoveResult = iota
	Ok
	OkAgain
)

func (r MoveResult) String() string {
	switch r {
	case Illegal:
		return "illegal"
	case Ok:
		return "ok"
	case OkAgain:
		return "ok_again"
	default:
		return "unknown"
	}
}

// Board holds the state of one game: the drawn edges, square owners,
// per-player scores and whose turn it is. Players are numbered 1 and 2.
//
// A Board is not safe for concurrent use; the game controller only touches it
// from its owner goroutine.
type Board struct {
	size         int
	player1First bool
	turn         int
	score        [2]int

	// top[x][y] is the top edge of cell (x,y); y == size is the bottom border.
	top [][]bool
	// left[x][y] is the left edge of cell (x,y); x == size is the right border.
	left   [][]bool
	square [][]int
}

// New returns an empty board. player1First selects who holds the first turn.
func New(size int, player1First bool) *Board {
	if size < 1 {
		size = DefaultSize
	}
	b := &Board{
		size:         size,
		player1First: player1First,
		turn:         2,
		top:          grid[bool](size, size+1),
		left:         grid[bool](size+1, size),
		square:       grid[int](size, size),
	}
	if player1First {
		b.turn = 1
	}
	return b
}

func grid[T any](w, h int) [][]T {
	out := make([][]T, w)
	for x := range out {
		out[x] = make([]T, h)
	}
	return out
}

func (b *Board) Size() int {
	return b.size
}

// Turn returns the player whose move it is.
func (b *Board) Turn() int {
	return b.turn
}

// Player1First reports who held the first turn of this game.
func (b *Board) Player1First() bool {
	return b.player1First
}

// Score returns the number of squares owned by player, or 0 for an unknown player.
func (b *Board) Score(player int) int {
	if !validPlayer(player) {
		return 0
	}
	return b.score[player-1]
}

func (b *Board) TopEdge(x, y int) bool {
	if x < 0 || x >= b.size || y < 0 || y > b.size {
		return false
	}
	return b.top[x][y]
}

func (b *Board) LeftEdge(x, y int) bool {
	if x < 0 || x > b.size || y < 0 || y >= b.size {
		return false
	}
	return b.left[x][y]
}

// Owner returns 0 for an unclaimed square, otherwise the owning player.
func (b *Board) Owner(x, y int) int {
	if x < 0 || x >= b.size || y < 0 || y >= b.size {
		return 0
	}
	return b.square[x][y]
}

// Move draws one edge on behalf of player. It is safe against arbitrary
// input: anything out of range, out of turn or already drawn is Illegal and
// leaves the board untouched.
func (b *Board) Move(player, x, y int, isLeft bool) MoveResult {
	if !validPlayer(player) || player != b.turn {
		return Illegal
	}

	completed := 0
	if isLeft {
		if x < 0 || x > b.size || y < 0 || y >= b.size || b.left[x][y] {
			return Illegal
		}
		b.left[x][y] = true
		if x > 0 && b.claim(player, x-1, y) {
			completed++
		}
		if x < b.size && b.claim(player, x, y) {
			completed++
		}
	} else {
		if x < 0 || x >= b.size || y < 0 || y > b.size || b.top[x][y] {
			return Illegal
		}
		b.top[x][y] = true
		if y > 0 && b.claim(player, x, y-1) {
			completed++
		}
		if y < b.size && b.claim(player, x, y) {
			completed++
		}
	}

	if completed > 0 {
		return OkAgain
	}
	b.turn = 3 - b.turn
	return Ok
}

// claim assigns cell (x,y) to player when all four of its edges are drawn.
func (b *Board) claim(player, x, y int) bool {
	if b.square[x][y] != 0 {
		return false
	}
	if !b.top[x][y] || !b.top[x][y+1] || !b.left[x][y] || !b.left[x+1][y] {
		return false
	}
	b.square[x][y] = player
	b.score[player-1]++
	return true
}

// CanWinNow reports whether player may claim victory immediately: it must be
// their turn and the opponent must be unable to tie even with every
// remaining square.
func (b *Board) CanWinNow(player int) bool {
	if !validPlayer(player) || b.turn != player {
		return false
	}
	return 2*b.score[player-1] > b.size*b.size
}

// IsComplete reports whether every square has an owner.
func (b *Board) IsComplete() bool {
	return b.score[0]+b.score[1] == b.size*b.size
}

// Winner returns the winner of a complete board, or 0 while play continues.
// Equal scores go to the player who moved second.
func (b *Board) Winner() int {
	if !b.IsComplete() {
		return 0
	}
	switch {
	case b.score[0] > b.score[1]:
		return 1
	case b.score[1] > b.score[0]:
		return 2
	case b.player1First:
		return 2
	default:
		return 1
	}
}

func validPlayer(player int) bool {
	return player == 1 || player == 2
}
