package game

import "github.com/danmuck/squares/internal/board"

// Presentation receives session callbacks. Every callback runs on the
// controller's owner goroutine; boards passed in must not be mutated and
// must not be read from other goroutines while a game is live.
type Presentation interface {
	OnConnected(player1, player2 string)
	OnClosed()
	OnError(err error)
	OnChat(text string)
	OnGameStart(b *board.Board, yourMove bool)
	OnMoveApplied(b *board.Board, yourMove bool)
	OnGameEnd(youWon, premature bool, score0, score1 uint32)
}

// PlayRequestListener is optionally implemented by a Presentation that
// wants to know when the peer asked for a new game.
type PlayRequestListener interface {
	OnPlayRequested()
}
