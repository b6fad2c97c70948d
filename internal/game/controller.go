package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"

	"github.com/danmuck/squares/internal/board"
	"github.com/danmuck/squares/internal/observability"
	"github.com/danmuck/squares/internal/protocol"
	"github.com/danmuck/squares/internal/protocol/dispatch"
	"github.com/danmuck/squares/internal/protocol/frame"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Name   string
	Master bool
	// Rand decides the first mover when Master is set. nil uses the
	// package-level source.
	Rand   *rand.Rand
	Logger *zerolog.Logger
}

// Controller runs one peer session. Session state is owned by the goroutine
// executing Run; the Presentation API (StartGame, Move, Win, Surrender,
// Chat, Close and the accessors) must be called from a Presentation
// callback or through Invoke.
type Controller struct {
	id   uuid.UUID
	log  zerolog.Logger
	out  Presentation
	tr   *frame.Transport
	disp *dispatch.Dispatcher

	master       protocol.MasterStatus
	localName    string
	playerNum    int
	names        [2]string
	score        [2]uint32
	state        State
	player1First bool
	board        *board.Board
}

// Open validates the local name, announces it to the peer and returns a
// controller waiting for the peer's Init. An invalid name leaves conn
// untouched; once the Init send fails conn has already been closed.
func Open(conn net.Conn, out Presentation, cfg Config) (*Controller, error) {
	if out == nil {
		return nil, errors.New("game: presentation is required")
	}
	if !protocol.ValidString(cfg.Name, protocol.MaxNameBytes) {
		return nil, fmt.Errorf("%w: must be utf-8 and at most %d bytes", ErrInvalidName, protocol.MaxNameBytes)
	}

	c := &Controller{
		id:           uuid.New(),
		out:          out,
		master:       chooseMaster(cfg),
		localName:    cfg.Name,
		state:        StateAwaitingInit,
		player1First: true,
	}
	base := log.Logger
	if cfg.Logger != nil {
		base = *cfg.Logger
	}
	c.log = base.With().Str("session", c.id.String()).Str("local", cfg.Name).Logger()

	c.tr = frame.Open(conn, frame.WithLogger(c.log))
	c.disp = dispatch.New(c.tr.Events(), engine{c: c})

	if err := c.send(protocol.Init{Version: protocol.Version, MasterStatus: c.master, Name: cfg.Name}); err != nil {
		_ = c.tr.Close()
		return nil, err
	}
	observability.SessionOpened()
	c.log.Info().Str("master", c.master.String()).Msg("session opened")
	return c, nil
}

func chooseMaster(cfg Config) protocol.MasterStatus {
	if !cfg.Master {
		return protocol.NotMaster
	}
	var flip int
	if cfg.Rand != nil {
		flip = cfg.Rand.IntN(2)
	} else {
		flip = rand.IntN(2)
	}
	if flip == 0 {
		return protocol.MeFirst
	}
	return protocol.YouFirst
}

// Run drives the session until the connection ends or ctx is cancelled.
// A session still open when Run returns is closed as if Close was called.
func (c *Controller) Run(ctx context.Context) error {
	err := c.disp.Run(ctx)
	if errors.Is(err, dispatch.ErrAlreadyRunning) {
		return err
	}
	_ = c.Close()
	return err
}

// Invoke runs fn on the owner goroutine. Returns dispatch.ErrStopped once
// Run has returned.
func (c *Controller) Invoke(ctx context.Context, fn func()) error {
	return c.disp.Invoke(ctx, fn)
}

// Done is closed once the connection has been torn down.
func (c *Controller) Done() <-chan struct{} {
	return c.tr.Done()
}

func (c *Controller) SessionID() string {
	return c.id.String()
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) IsPlaying() bool {
	return c.state == StatePlaying
}

// PlayerName returns the name of player 1 or 2, empty before the handshake.
func (c *Controller) PlayerName(n int) string {
	if n != 1 && n != 2 {
		return ""
	}
	return c.names[n-1]
}

// LocalPlayer is 1 or 2 once connected, 0 before.
func (c *Controller) LocalPlayer() int {
	return c.playerNum
}

func (c *Controller) Snapshot() Snapshot {
	s := Snapshot{
		SessionID:    c.id.String(),
		State:        c.state.String(),
		Master:       c.master.String(),
		Player:       c.playerNum,
		Names:        c.names,
		Score:        c.score,
		Player1First: c.player1First,
		Playing:      c.state == StatePlaying,
	}
	if c.state == StatePlaying && c.board != nil {
		s.YourMove = c.board.Turn() == c.playerNum
		s.BoardScore = [2]int{c.board.Score(1), c.board.Score(2)}
	}
	return s
}

// StartGame requests a new game. The game begins once both sides have sent
// Play.
func (c *Controller) StartGame() error {
	if err := c.usable(); err != nil {
		return err
	}
	if (c.state != StateReady && c.state != StateReadyPeerRequestedPlay) || c.board != nil {
		return fmt.Errorf("%w: start game in %s", ErrInvalidState, c.state)
	}
	c.board = board.New(board.DefaultSize, c.player1First)
	if err := c.send(protocol.Play{Player1First: c.player1First, Score0: c.score[0], Score1: c.score[1]}); err != nil {
		return c.abort(err)
	}
	if c.state == StateReadyPeerRequestedPlay {
		c.beginGame()
	}
	return nil
}

// Move plays the local edge. It reports false without sending anything when
// the move is illegal.
func (c *Controller) Move(x, y int, isLeft bool) (bool, error) {
	if err := c.playing("move"); err != nil {
		return false, err
	}
	if c.board.Move(c.playerNum, x, y, isLeft) == board.Illegal {
		return false, nil
	}
	if err := c.send(protocol.Move{IsLeft: isLeft, X: uint32(x), Y: uint32(y)}); err != nil {
		return false, c.abort(err)
	}
	c.out.OnMoveApplied(c.board, c.board.Turn() == c.playerNum)
	c.checkComplete()
	return true, nil
}

// Win claims the game early. It reports false when the local player cannot
// win yet.
func (c *Controller) Win() (bool, error) {
	if err := c.playing("win"); err != nil {
		return false, err
	}
	if !c.board.CanWinNow(c.playerNum) {
		return false, nil
	}
	if err := c.send(protocol.Win{}); err != nil {
		return false, c.abort(err)
	}
	c.endGame(true, true)
	return true, nil
}

func (c *Controller) Surrender() error {
	if err := c.playing("surrender"); err != nil {
		return err
	}
	if err := c.send(protocol.Surrender{}); err != nil {
		return c.abort(err)
	}
	c.endGame(false, true)
	return nil
}

// Chat reports false when text is not valid utf-8 or is too long to send.
func (c *Controller) Chat(text string) (bool, error) {
	if err := c.usable(); err != nil {
		return false, err
	}
	if c.state == StateAwaitingInit {
		return false, fmt.Errorf("%w: chat before handshake", ErrInvalidState)
	}
	if !protocol.ValidString(text, protocol.MaxChatBytes) {
		return false, nil
	}
	if err := c.send(protocol.Chat{Text: text}); err != nil {
		return false, c.abort(err)
	}
	return true, nil
}

// Close ends the session. A live game is surrendered first.
func (c *Controller) Close() error {
	if c.state == StateClosed {
		return nil
	}
	if c.state == StatePlaying {
		if err := c.send(protocol.Surrender{}); err != nil {
			c.log.Debug().Err(err).Msg("surrender on close failed")
		}
		c.endGame(false, true)
	}
	c.log.Info().Msg("session closed locally")
	c.finish()
	return nil
}

func (c *Controller) usable() error {
	if c.state == StateClosed {
		return ErrClosed
	}
	return nil
}

func (c *Controller) playing(op string) error {
	if err := c.usable(); err != nil {
		return err
	}
	if c.state != StatePlaying {
		return fmt.Errorf("%w: %s in %s", ErrInvalidState, op, c.state)
	}
	return nil
}

func (c *Controller) send(msg protocol.Message) error {
	payload, err := protocol.Encode(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFraming, err)
	}
	if err := c.tr.Send(payload); err != nil {
		return classify(err)
	}
	observability.RecordMessage("out", msg.Type().String())
	c.log.Debug().Str("type", msg.Type().String()).Msg("sent")
	return nil
}

func (c *Controller) beginGame() {
	c.state = StatePlaying
	yourMove := c.board.Turn() == c.playerNum
	c.log.Info().Bool("player1_first", c.player1First).Bool("your_move", yourMove).Msg("game started")
	c.out.OnGameStart(c.board, yourMove)
}

// checkComplete runs after OnMoveApplied, which may already have ended the
// game or closed the session.
func (c *Controller) checkComplete() {
	if c.state != StatePlaying || c.board == nil || !c.board.IsComplete() {
		return
	}
	c.endGame(c.board.Winner() == c.playerNum, false)
}

func (c *Controller) endGame(youWon, premature bool) {
	winner := c.playerNum
	if !youWon {
		winner = 3 - c.playerNum
	}
	c.score[winner-1]++
	c.board = nil
	c.state = StateReady
	c.player1First = !c.player1First

	observability.RecordGame(youWon, premature)
	c.log.Info().
		Bool("won", youWon).
		Bool("premature", premature).
		Uint32("score0", c.score[0]).
		Uint32("score1", c.score[1]).
		Msg("game ended")
	c.out.OnGameEnd(youWon, premature, c.score[0], c.score[1])
}

// abort fails the session from a local call and returns the error to the
// caller.
func (c *Controller) abort(err error) error {
	err = classify(err)
	c.fail(err)
	return err
}

// fail is the fatal path: tell the peer when it broke the protocol, report,
// then close.
func (c *Controller) fail(err error) {
	if c.state == StateClosed {
		return
	}
	err = classify(err)
	kind := errorKind(err)
	observability.RecordSessionError(kind)
	c.log.Error().Err(err).Str("kind", kind).Str("state", c.state.String()).Msg("session failed")

	if repliesWithError(err) {
		if sendErr := c.send(protocol.Error{}); sendErr != nil {
			c.log.Debug().Err(sendErr).Msg("error reply failed")
		}
	}
	c.board = nil
	c.out.OnError(err)
	c.finish()
}

func (c *Controller) finish() {
	c.state = StateClosed
	c.board = nil
	_ = c.tr.Close()
	observability.SessionClosed()
	c.out.OnClosed()
}
