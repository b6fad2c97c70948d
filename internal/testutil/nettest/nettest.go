// Package nettest provides loopback TCP connections for transport tests.
package nettest

import (
	"net"
	"testing"
)

// Pair dials a fresh loopback listener and returns both ends. Both are
// closed when the test finishes.
func Pair(t testing.TB) (local, peer net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen loopback: %v", err)
	}
	defer ln.Close()

	type result struct {
		conn net.Conn
		err  error
	}
	accepted := make(chan result, 1)
	go func() {
		conn, err := ln.Accept()
		accepted <- result{conn: conn, err: err}
	}()

	local, err = net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial loopback: %v", err)
	}
	res := <-accepted
	if res.err != nil {
		_ = local.Close()
		t.Fatalf("accept loopback: %v", res.err)
	}
	t.Cleanup(func() {
		_ = local.Close()
		_ = res.conn.Close()
	})
	return local, res.conn
}
