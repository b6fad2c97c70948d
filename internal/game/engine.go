package game

import (
	"fmt"

	"github.com/danmuck/squares/internal/board"
	"github.com/danmuck/squares/internal/observability"
	"github.com/danmuck/squares/internal/protocol"
)

// engine adapts the controller to dispatch.Handler without exporting the
// handler methods on Controller.
type engine struct {
	c *Controller
}

func (e engine) HandleFrame(payload []byte) error {
	c := e.c
	if c.state == StateClosed || len(payload) == 0 {
		return nil
	}
	if err := c.receive(payload); err != nil {
		c.fail(err)
		return err
	}
	return nil
}

func (e engine) HandleError(err error) {
	e.c.fail(err)
}

func (e engine) HandleClosed() error {
	c := e.c
	if c.state == StateClosed {
		return nil
	}
	c.log.Info().Str("state", c.state.String()).Msg("peer closed connection")
	c.finish()
	return nil
}

func (c *Controller) receive(payload []byte) error {
	msg, err := protocol.Decode(payload)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFraming, err)
	}
	observability.RecordMessage("in", msg.Type().String())
	c.log.Debug().Str("type", msg.Type().String()).Str("state", c.state.String()).Msg("received")

	switch m := msg.(type) {
	case protocol.Init:
		return c.onInit(m)
	case protocol.Error:
		return fmt.Errorf("%w: peer reported an error", ErrPeerAborted)
	case protocol.Play:
		return c.onPlay(m)
	case protocol.Move:
		return c.onMove(m)
	case protocol.Win:
		return c.onWin()
	case protocol.Surrender:
		c.onSurrender()
		return nil
	case protocol.Chat:
		return c.onChat(m)
	default:
		return fmt.Errorf("%w: unhandled message %s", ErrProtocol, msg.Type())
	}
}

func (c *Controller) onInit(m protocol.Init) error {
	if c.state != StateAwaitingInit {
		return unexpected(m, c.state)
	}
	if m.Version != protocol.Version {
		return fmt.Errorf("%w: protocol version mismatch: local %d, peer %d", ErrProtocol, protocol.Version, m.Version)
	}
	if c.master.IsMaster() == m.MasterStatus.IsMaster() {
		return fmt.Errorf("%w: failed to select master computer", ErrProtocol)
	}

	localFirst := c.master == protocol.MeFirst || m.MasterStatus == protocol.YouFirst
	if localFirst {
		c.playerNum = 1
		c.names = [2]string{c.localName, m.Name}
	} else {
		c.playerNum = 2
		c.names = [2]string{m.Name, c.localName}
	}
	c.player1First = true
	c.state = StateReady
	c.log = c.log.With().Str("peer", m.Name).Int("player", c.playerNum).Logger()
	c.log.Info().Msg("handshake complete")
	c.out.OnConnected(c.names[0], c.names[1])
	return nil
}

func (c *Controller) onPlay(m protocol.Play) error {
	if c.state != StateReady {
		return unexpected(m, c.state)
	}
	if m.Player1First != c.player1First || m.Score0 != c.score[0] || m.Score1 != c.score[1] {
		return fmt.Errorf("%w: play mismatch: peer (%t, %d, %d), local (%t, %d, %d)",
			ErrProtocol, m.Player1First, m.Score0, m.Score1, c.player1First, c.score[0], c.score[1])
	}
	if c.board != nil {
		c.beginGame()
		return nil
	}
	c.state = StateReadyPeerRequestedPlay
	if l, ok := c.out.(PlayRequestListener); ok {
		l.OnPlayRequested()
	}
	return nil
}

func (c *Controller) onMove(m protocol.Move) error {
	if c.state != StatePlaying {
		return unexpected(m, c.state)
	}
	if c.board.Move(c.remotePlayer(), int(m.X), int(m.Y), m.IsLeft) == board.Illegal {
		return fmt.Errorf("%w: illegal move from peer (x=%d y=%d left=%t)", ErrProtocol, m.X, m.Y, m.IsLeft)
	}
	c.out.OnMoveApplied(c.board, c.board.Turn() == c.playerNum)
	c.checkComplete()
	return nil
}

func (c *Controller) onWin() error {
	if c.state != StatePlaying {
		return unexpected(protocol.Win{}, c.state)
	}
	if !c.board.CanWinNow(c.remotePlayer()) {
		return fmt.Errorf("%w: invalid win claim", ErrProtocol)
	}
	c.endGame(false, true)
	return nil
}

// onSurrender ignores a surrender that crossed a local game end or close.
func (c *Controller) onSurrender() {
	if c.state != StatePlaying {
		c.log.Debug().Str("state", c.state.String()).Msg("ignoring surrender outside game")
		return
	}
	c.endGame(true, true)
}

func (c *Controller) onChat(m protocol.Chat) error {
	if c.state == StateAwaitingInit {
		return unexpected(m, c.state)
	}
	c.out.OnChat(m.Text)
	return nil
}

func (c *Controller) remotePlayer() int {
	return 3 - c.playerNum
}

func unexpected(msg protocol.Message, state State) error {
	return fmt.Errorf("%w: unexpected %s in %s", ErrProtocol, msg.Type(), state)
}
