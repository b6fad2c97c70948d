package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/danmuck/squares/internal/board"
	"github.com/danmuck/squares/internal/protocol"
	"github.com/danmuck/squares/internal/protocol/frame"
	"github.com/danmuck/squares/internal/testutil/nettest"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 3 * time.Second

// recorder is a Presentation that turns callbacks into comparable strings.
type recorder struct {
	events chan string

	mu        sync.Mutex
	errs      []error
	lastBoard *board.Board
	ends      int
	onMove    func()
}

func newRecorder() *recorder {
	return &recorder{events: make(chan string, 4096)}
}

func (r *recorder) push(ev string) {
	r.events <- ev
}

func (r *recorder) OnConnected(player1, player2 string) {
	r.push("connected:" + player1 + "," + player2)
}

func (r *recorder) OnClosed() { r.push("closed") }

func (r *recorder) OnError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err)
	r.mu.Unlock()
	r.push("error")
}

func (r *recorder) OnChat(text string) { r.push("chat:" + text) }

func (r *recorder) OnGameStart(b *board.Board, yourMove bool) {
	r.setBoard(b)
	r.push(fmt.Sprintf("start:%t", yourMove))
}

func (r *recorder) OnMoveApplied(b *board.Board, yourMove bool) {
	r.setBoard(b)
	r.push(fmt.Sprintf("move:%t", yourMove))

	r.mu.Lock()
	hook := r.onMove
	r.onMove = nil
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
}

// afterNextMove runs fn on the owner goroutine inside the next OnMoveApplied.
func (r *recorder) afterNextMove(fn func()) {
	r.mu.Lock()
	r.onMove = fn
	r.mu.Unlock()
}

func (r *recorder) OnGameEnd(youWon, premature bool, score0, score1 uint32) {
	r.mu.Lock()
	r.ends++
	r.mu.Unlock()
	r.push(fmt.Sprintf("end:%t,%t,%d,%d", youWon, premature, score0, score1))
}

func (r *recorder) OnPlayRequested() { r.push("play-requested") }

func (r *recorder) setBoard(b *board.Board) {
	r.mu.Lock()
	r.lastBoard = b
	r.mu.Unlock()
}

func (r *recorder) endCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ends
}

func (r *recorder) firstError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[0]
}

func (r *recorder) board() *board.Board {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastBoard
}

func (r *recorder) expect(t *testing.T, want ...string) {
	t.Helper()
	for _, w := range want {
		select {
		case got := <-r.events:
			require.Equal(t, w, got)
		case <-time.After(waitTimeout):
			t.Fatalf("timed out waiting for %q", w)
		}
	}
}

// waitFor drains events until one starts with prefix and returns it.
func (r *recorder) waitFor(t *testing.T, prefix string) string {
	t.Helper()
	deadline := time.After(waitTimeout)
	for {
		select {
		case got := <-r.events:
			if strings.HasPrefix(got, prefix) {
				return got
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %q", prefix)
			return ""
		}
	}
}

func (r *recorder) expectQuiet(t *testing.T) {
	t.Helper()
	select {
	case got := <-r.events:
		t.Fatalf("unexpected event %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

// rawPeer scripts the remote side byte for byte.
type rawPeer struct {
	t    *testing.T
	conn net.Conn
}

func (p *rawPeer) send(msg protocol.Message) {
	p.t.Helper()
	payload, err := protocol.Encode(msg)
	require.NoError(p.t, err)
	p.sendRaw(payload)
}

func (p *rawPeer) sendRaw(payload []byte) {
	p.t.Helper()
	buf, err := frame.AppendFrame(nil, payload)
	require.NoError(p.t, err)
	_, err = p.conn.Write(buf)
	require.NoError(p.t, err)
}

func (p *rawPeer) expect() protocol.Message {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(waitTimeout)))
	var size [1]byte
	_, err := io.ReadFull(p.conn, size[:])
	require.NoError(p.t, err)
	payload := make([]byte, size[0])
	_, err = io.ReadFull(p.conn, payload)
	require.NoError(p.t, err)
	msg, err := protocol.Decode(payload)
	require.NoError(p.t, err)
	return msg
}

// expectHangup asserts the controller closed the connection without sending
// anything else.
func (p *rawPeer) expectHangup() {
	p.t.Helper()
	require.NoError(p.t, p.conn.SetReadDeadline(time.Now().Add(waitTimeout)))
	n, err := p.conn.Read(make([]byte, 1))
	require.Zero(p.t, n)
	require.Error(p.t, err)
	var netErr net.Error
	if errors.As(err, &netErr) {
		require.False(p.t, netErr.Timeout(), "connection still open")
	}
}

type harness struct {
	ctrl *Controller
	peer *rawPeer
	rec  *recorder
	done chan error
}

func openHarness(t *testing.T, master bool) *harness {
	t.Helper()
	local, remote := nettest.Pair(t)
	rec := newRecorder()
	ctrl, err := Open(local, rec, Config{
		Name:   "alice",
		Master: master,
		Rand:   rand.New(rand.NewPCG(1, 2)),
	})
	require.NoError(t, err)

	h := &harness{ctrl: ctrl, peer: &rawPeer{t: t, conn: remote}, rec: rec, done: make(chan error, 1)}
	go func() {
		h.done <- ctrl.Run(context.Background())
	}()
	t.Cleanup(func() {
		_ = ctrl.Invoke(context.Background(), func() { _ = ctrl.Close() })
		select {
		case <-h.done:
		case <-time.After(waitTimeout):
			t.Errorf("controller did not stop")
		}
	})

	init, ok := h.peer.expect().(protocol.Init)
	require.True(t, ok, "first message must be init")
	require.Equal(t, protocol.Version, init.Version)
	require.Equal(t, "alice", init.Name)
	require.Equal(t, master, init.MasterStatus.IsMaster())
	return h
}

// connect completes the handshake with the local side moving first.
func (h *harness) connect(t *testing.T) {
	t.Helper()
	h.peer.send(protocol.Init{Version: protocol.Version, MasterStatus: protocol.YouFirst, Name: "bob"})
	h.rec.expect(t, "connected:alice,bob")
}

func (h *harness) invoke(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, h.ctrl.Invoke(context.Background(), fn))
}

// startGame runs the Play exchange with the peer asking first.
func (h *harness) startGame(t *testing.T, player1First bool, score0, score1 uint32) {
	t.Helper()
	play := protocol.Play{Player1First: player1First, Score0: score0, Score1: score1}
	h.peer.send(play)
	h.rec.expect(t, "play-requested")

	var err error
	h.invoke(t, func() { err = h.ctrl.StartGame() })
	require.NoError(t, err)
	require.Equal(t, play, h.peer.expect())
	h.rec.expect(t, fmt.Sprintf("start:%t", player1First))
}

func (h *harness) peerMove(t *testing.T, e edge, want string) {
	t.Helper()
	h.peer.send(protocol.Move{IsLeft: e.isLeft, X: uint32(e.x), Y: uint32(e.y)})
	h.rec.expect(t, want)
}

func (h *harness) localMove(t *testing.T, e edge, want string) {
	t.Helper()
	var ok bool
	var err error
	h.invoke(t, func() { ok, err = h.ctrl.Move(e.x, e.y, e.isLeft) })
	require.NoError(t, err)
	require.True(t, ok, "move %+v rejected", e)
	require.Equal(t, protocol.Move{IsLeft: e.isLeft, X: uint32(e.x), Y: uint32(e.y)}, h.peer.expect())
	h.rec.expect(t, want)
}

// exchange plays edges that close no square, alternating sides, and reports
// whether the peer moves next.
func (h *harness) exchange(t *testing.T, edges []edge, peerTurn bool) bool {
	t.Helper()
	for _, e := range edges {
		if peerTurn {
			h.peerMove(t, e, "move:true")
		} else {
			h.localMove(t, e, "move:false")
		}
		peerTurn = !peerTurn
	}
	return peerTurn
}

// stripes is every left edge plus the even top rows, minus except. Playing
// them closes no square.
func stripes(n int, except ...edge) []edge {
	var edges []edge
	for x := 0; x <= n; x++ {
		for y := 0; y < n; y++ {
			e := edge{x: x, y: y, isLeft: true}
			if !slices.Contains(except, e) {
				edges = append(edges, e)
			}
		}
	}
	for y := 0; y <= n; y += 2 {
		for x := 0; x < n; x++ {
			edges = append(edges, edge{x: x, y: y})
		}
	}
	return edges
}

// oddRows is the top edges on odd rows for columns [fromX, toX). Once the
// stripes are down each one closes the squares above and below it.
func oddRows(n, fromX, toX int) []edge {
	var edges []edge
	for y := 1; y < n; y += 2 {
		for x := fromX; x < toX; x++ {
			edges = append(edges, edge{x: x, y: y})
		}
	}
	return edges
}

func (h *harness) waitStopped(t *testing.T) {
	t.Helper()
	select {
	case err := <-h.done:
		require.NoError(t, err)
		h.done <- err
	case <-time.After(waitTimeout):
		t.Fatalf("controller did not stop")
	}
}
