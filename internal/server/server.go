// Package server exposes the router over TCP, one JSON object per line in
// each direction.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"net"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sourcegraph/conc"

	"github.com/coreman2200/edged/internal/protocol"
)

const maxLine = 1 << 20

type Server struct {
	router *protocol.Router
	log    zerolog.Logger

	mu     sync.Mutex
	ln     net.Listener
	conns  map[net.Conn]struct{}
	closed bool
	wg     conc.WaitGroup
}

func New(router *protocol.Router, log zerolog.Logger) *Server {
	return &Server{
		router: router,
		log:    log,
		conns:  map[net.Conn]struct{}{},
	}
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is done or Close is called.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("line server listening")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = s.Close()
		case <-done:
		}
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		if !s.spawn(conn) {
			_ = conn.Close()
			return nil
		}
	}
}

// ServeConn answers request lines on conn until EOF or a blank line.
func (s *Server) ServeConn(conn net.Conn) {
	defer conn.Close()
	log := s.log.With().Str("client", conn.RemoteAddr().String()).Logger()
	log.Debug().Msg("client connected")

	sc := bufio.NewScanner(conn)
	sc.Buffer(make([]byte, 0, 4096), maxLine)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			break
		}
		resp := append(s.router.HandleLine(line), '\r', '\n')
		if _, err := conn.Write(resp); err != nil {
			log.Debug().Err(err).Msg("write response")
			return
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, net.ErrClosed) {
		log.Debug().Err(err).Msg("read request")
	}
	log.Debug().Msg("client disconnected")
}

// Close stops accepting, drops open connections and waits for their
// goroutines.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	var err error
	if s.ln != nil {
		err = s.ln.Close()
	}
	for c := range s.conns {
		_ = c.Close()
	}
	s.mu.Unlock()

	if r := s.wg.WaitAndRecover(); r != nil {
		s.log.Error().Str("panic", r.String()).Msg("connection handler panicked")
	}
	return err
}

// spawn starts a handler for c unless the server is closing. Handlers are
// only added under s.mu so Close never waits on a group that still grows.
func (s *Server) spawn(c net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[c] = struct{}{}
	s.wg.Go(func() {
		defer s.untrack(c)
		s.ServeConn(c)
	})
	return true
}

func (s *Server) untrack(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}
