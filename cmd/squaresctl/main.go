package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/squares/internal/config"
	"github.com/danmuck/squares/internal/game"
	"github.com/danmuck/squares/internal/logging"
	"github.com/danmuck/squares/internal/observability"
	"github.com/danmuck/squares/internal/protocol/dispatch"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	cfg, err := resolveConfig(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "squaresctl: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "squaresctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.PeerConfig, in io.Reader, out io.Writer) error {
	if !logging.SetLevel(cfg.LogLevel) {
		log.Warn().Str("log_level", cfg.LogLevel).Msg("unknown log level ignored")
	}

	conn, err := establish(ctx, cfg)
	if err != nil {
		return err
	}

	term := newConsole(out)
	ctrl, err := game.Open(conn, term, game.Config{Name: cfg.Name, Master: cfg.IsHost()})
	if err != nil {
		_ = conn.Close()
		return err
	}
	log.Info().Str("session", ctrl.SessionID()).Str("peer_addr", conn.RemoteAddr().String()).Msg("connected")

	if cfg.Status.Enabled {
		status, err := startStatus(cfg, ctrl)
		if err != nil {
			_ = ctrl.Close()
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = status.Shutdown(shutdownCtx)
		}()
	}

	term.printf("%s\n", helpText)
	go readCommands(ctx, in, ctrl, term)

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// establish listens for one opponent in host mode or dials in connect mode.
func establish(ctx context.Context, cfg config.PeerConfig) (net.Conn, error) {
	if !cfg.IsHost() {
		return dial(ctx, cfg)
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr())
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", cfg.ListenAddr(), err)
	}
	defer ln.Close()
	log.Info().Str("addr", ln.Addr().String()).Msg("waiting for opponent")

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	conn, err := ln.Accept()
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("accept: %w", err)
	}
	return conn, nil
}

// dial retries the first connection with backoff so either peer may start
// first.
func dial(ctx context.Context, cfg config.PeerConfig) (net.Conn, error) {
	var d net.Dialer
	var lastErr error
	for attempt := 1; attempt <= cfg.Connect.Attempts; attempt++ {
		if delay := cfg.Connect.RetryDelay(attempt); delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		conn, err := d.DialContext(ctx, "tcp", cfg.DialAddr())
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		log.Debug().Err(err).Int("attempt", attempt).Str("addr", cfg.DialAddr()).Msg("connect failed")
	}
	return nil, fmt.Errorf("connect %s: %w", cfg.DialAddr(), lastErr)
}

func startStatus(cfg config.PeerConfig, ctrl *game.Controller) (*observability.StatusServer, error) {
	ln, err := net.Listen("tcp", cfg.Status.Addr)
	if err != nil {
		return nil, fmt.Errorf("status listen %s: %w", cfg.Status.Addr, err)
	}
	srv := observability.NewStatusServer(observability.StatusConfig{
		Peer:        cfg.Name,
		Session:     ctrl.SessionID(),
		CorsOrigins: cfg.Status.CorsOrigins,
		Source: func(ctx context.Context) (any, error) {
			var snap game.Snapshot
			if err := ctrl.Invoke(ctx, func() { snap = ctrl.Snapshot() }); err != nil {
				return nil, err
			}
			return snap, nil
		},
	})
	go func() {
		if err := srv.Serve(ln); err != nil {
			log.Error().Err(err).Msg("status server stopped")
		}
	}()
	return srv, nil
}

// readCommands feeds terminal lines to the session until quit, end of input
// or the session stops.
func readCommands(ctx context.Context, in io.Reader, ctrl *game.Controller, term *console) {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		cmd, err := parseCommand(scanner.Text())
		if err != nil {
			term.printf("%v\n", err)
			continue
		}
		var applyErr error
		if err := ctrl.Invoke(ctx, func() { applyErr = term.apply(ctrl, cmd) }); err != nil {
			if !errors.Is(err, dispatch.ErrStopped) {
				log.Debug().Err(err).Msg("command dropped")
			}
			return
		}
		if errors.Is(applyErr, errQuit) {
			return
		}
		if applyErr != nil {
			term.printf("%v\n", applyErr)
		}
	}
	_ = ctrl.Invoke(ctx, func() { _ = ctrl.Close() })
}
