package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/danmuck/squares/internal/board"
	"github.com/danmuck/squares/internal/game"
)

var errQuit = errors.New("quit")

type commandKind int

const (
	cmdHelp commandKind = iota
	cmdStart
	cmdMove
	cmdWin
	cmdSurrender
	cmdSay
	cmdBoard
	cmdScore
	cmdQuit
)

type command struct {
	kind   commandKind
	x, y   int
	isLeft bool
	text   string
}

const helpText = `commands:
  start                 request a new game
  move <x> <y> top|left draw an edge
  win                   claim the game early
  surrender             give up the current game
  say <text>            chat with your opponent
  board                 show the board
  score                 show the match score
  quit                  leave`

func parseCommand(line string) (command, error) {
	line = strings.TrimSpace(line)
	verb, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(verb) {
	case "", "help", "?":
		return command{kind: cmdHelp}, nil
	case "start", "play":
		return command{kind: cmdStart}, nil
	case "win":
		return command{kind: cmdWin}, nil
	case "surrender":
		return command{kind: cmdSurrender}, nil
	case "board":
		return command{kind: cmdBoard}, nil
	case "score":
		return command{kind: cmdScore}, nil
	case "quit", "exit":
		return command{kind: cmdQuit}, nil
	case "say":
		return command{kind: cmdSay, text: rest}, nil
	case "move", "m":
		fields := strings.Fields(rest)
		if len(fields) != 3 {
			return command{}, fmt.Errorf("usage: move <x> <y> top|left")
		}
		x, err := strconv.Atoi(fields[0])
		if err != nil {
			return command{}, fmt.Errorf("invalid x %q", fields[0])
		}
		y, err := strconv.Atoi(fields[1])
		if err != nil {
			return command{}, fmt.Errorf("invalid y %q", fields[1])
		}
		switch strings.ToLower(fields[2]) {
		case "top", "t":
			return command{kind: cmdMove, x: x, y: y}, nil
		case "left", "l":
			return command{kind: cmdMove, x: x, y: y, isLeft: true}, nil
		default:
			return command{}, fmt.Errorf("edge must be top or left, got %q", fields[2])
		}
	default:
		return command{}, fmt.Errorf("unknown command %q (try help)", verb)
	}
}

// session is the slice of game.Controller the console drives.
type session interface {
	StartGame() error
	Move(x, y int, isLeft bool) (bool, error)
	Win() (bool, error)
	Surrender() error
	Chat(text string) (bool, error)
	Close() error
	Snapshot() game.Snapshot
}

// console is the terminal Presentation. Callbacks and apply run on the
// session owner goroutine; printf may also be used from the input goroutine.
type console struct {
	mu  sync.Mutex
	out io.Writer

	names [2]string
	board *board.Board
}

func newConsole(out io.Writer) *console {
	return &console{out: out}
}

func (c *console) printf(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// apply runs one command against s. It returns errQuit after closing.
func (c *console) apply(s session, cmd command) error {
	switch cmd.kind {
	case cmdHelp:
		c.printf("%s\n", helpText)
	case cmdStart:
		if err := s.StartGame(); err != nil {
			return err
		}
		// a pending peer request starts the game inside StartGame
		if !s.Snapshot().Playing {
			c.printf("waiting for %s to start\n", c.opponent(s))
		}
	case cmdMove:
		ok, err := s.Move(cmd.x, cmd.y, cmd.isLeft)
		if err != nil {
			return err
		}
		if !ok {
			c.printf("illegal move\n")
		}
	case cmdWin:
		ok, err := s.Win()
		if err != nil {
			return err
		}
		if !ok {
			c.printf("you cannot win yet\n")
		}
	case cmdSurrender:
		return s.Surrender()
	case cmdSay:
		ok, err := s.Chat(cmd.text)
		if err != nil {
			return err
		}
		if !ok {
			c.printf("message too long\n")
		}
	case cmdBoard:
		if c.board == nil {
			c.printf("no game in progress\n")
			return nil
		}
		c.printf("%s", renderBoard(c.board))
	case cmdScore:
		snap := s.Snapshot()
		c.printf("%s %d : %d %s\n", snap.Names[0], snap.Score[0], snap.Score[1], snap.Names[1])
	case cmdQuit:
		_ = s.Close()
		return errQuit
	}
	return nil
}

func (c *console) opponent(s session) string {
	snap := s.Snapshot()
	if snap.Player == 1 {
		return snap.Names[1]
	}
	return snap.Names[0]
}

func (c *console) OnConnected(player1, player2 string) {
	c.names = [2]string{player1, player2}
	c.printf("connected: %s (player 1) vs %s (player 2)\n", player1, player2)
}

func (c *console) OnClosed() {
	c.board = nil
	c.printf("connection closed\n")
}

func (c *console) OnError(err error) {
	c.printf("error: %v\n", err)
}

func (c *console) OnChat(text string) {
	c.printf("> %s\n", text)
}

func (c *console) OnPlayRequested() {
	c.printf("opponent wants to play, type start\n")
}

func (c *console) OnGameStart(b *board.Board, yourMove bool) {
	c.board = b
	c.printf("game started\n%s%s", renderBoard(b), turnLine(yourMove))
}

func (c *console) OnMoveApplied(b *board.Board, yourMove bool) {
	c.board = b
	c.printf("%s%s", renderBoard(b), turnLine(yourMove))
}

func (c *console) OnGameEnd(youWon, premature bool, score0, score1 uint32) {
	c.board = nil
	result := "you lost"
	if youWon {
		result = "you won"
	}
	if premature {
		result += " (early)"
	}
	c.printf("%s; match %s %d : %d %s\n", result, c.names[0], score0, score1, c.names[1])
}

func turnLine(yourMove bool) string {
	if yourMove {
		return "your move\n"
	}
	return "waiting for opponent\n"
}

// renderBoard draws dots as '+', drawn edges as '---' and '|', and claimed
// squares by owner number.
func renderBoard(b *board.Board) string {
	n := b.Size()
	var sb strings.Builder
	sb.WriteString("   ")
	for x := 0; x < n; x++ {
		fmt.Fprintf(&sb, "%-4d", x)
	}
	sb.WriteString("\n")
	for y := 0; y <= n; y++ {
		fmt.Fprintf(&sb, "%2d ", y)
		for x := 0; x < n; x++ {
			sb.WriteString("+")
			if b.TopEdge(x, y) {
				sb.WriteString("---")
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString("+\n")
		if y == n {
			break
		}
		sb.WriteString("   ")
		for x := 0; x <= n; x++ {
			if b.LeftEdge(x, y) {
				sb.WriteString("|")
			} else {
				sb.WriteString(" ")
			}
			if x == n {
				break
			}
			if owner := b.Owner(x, y); owner != 0 {
				fmt.Fprintf(&sb, " %d ", owner)
			} else {
				sb.WriteString("   ")
			}
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "squares: %d - %d\n", b.Score(1), b.Score(2))
	return sb.String()
}
