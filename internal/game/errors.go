package game

import (
	"errors"
	"fmt"

	"github.com/danmuck/squares/internal/protocol/dispatch"
	"github.com/danmuck/squares/internal/protocol/frame"
)

var (
	ErrTransport    = errors.New("game: transport error")
	ErrFraming      = errors.New("game: framing error")
	ErrProtocol     = errors.New("game: protocol error")
	ErrPeerAborted  = errors.New("game: peer aborted session")
	ErrInvalidState = errors.New("game: invalid state for call")
	ErrInvalidName  = errors.New("game: invalid player name")
	ErrClosed       = errors.New("game: session closed")
)

// classify maps a failure onto one of the fatal session error kinds.
func classify(err error) error {
	switch {
	case errors.Is(err, ErrTransport),
		errors.Is(err, ErrFraming),
		errors.Is(err, ErrProtocol),
		errors.Is(err, ErrPeerAborted):
		return err
	case errors.Is(err, frame.ErrFrameTooLarge), errors.Is(err, frame.ErrBufferOverflow):
		return fmt.Errorf("%w: %w", ErrFraming, err)
	case errors.Is(err, dispatch.ErrHandlerPanic):
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	default:
		return fmt.Errorf("%w: %w", ErrTransport, err)
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrFraming):
		return "framing"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrPeerAborted):
		return "peer_aborted"
	default:
		return "transport"
	}
}

// repliesWithError reports whether the peer should be told about err.
func repliesWithError(err error) bool {
	return errors.Is(err, ErrProtocol) || errors.Is(err, ErrFraming)
}
