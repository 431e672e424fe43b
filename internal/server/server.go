// Package server implements the TCP front-end over internal/engine's
// Store: an accept loop handing each connection to its own goroutine, and
// a per-connection loop that decodes requests and writes responses in
// arrival order, per internal/protocol.
package server

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/jassi-singh/aethercask/internal/engine"
	"github.com/jassi-singh/aethercask/internal/kverrors"
	"github.com/jassi-singh/aethercask/internal/protocol"
)

// Server accepts connections and dispatches requests to a Store.
type Server struct {
	addr  string
	store *engine.Store
	ln    net.Listener
}

// New validates engineTag and returns a Server bound to store. Only "kvs"
// is accepted: "sled" is a recognized CLI value per the original wire
// protocol's engine selector, but no embedded third-party engine backs it
// in this repo (see DESIGN.md).
func New(addr, engineTag string, store *engine.Store) (*Server, error) {
	if engineTag != "kvs" {
		return nil, fmt.Errorf("%w: unsupported engine %q", kverrors.ErrConfig, engineTag)
	}
	return &Server{addr: addr, store: store}, nil
}

// ListenAndServe binds addr and runs the accept loop until the listener is
// closed. Each accepted connection is served in its own goroutine.
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("server: failed to listen on %s: %w", s.addr, err)
	}
	s.ln = ln
	slog.Info("server: listening", "addr", s.addr)

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("server: accept failed: %w", err)
		}
		go s.handleConn(conn)
	}
}

// Close stops accepting new connections. In-flight connections finish on
// their own.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	peer := conn.RemoteAddr()

	for {
		payload, err := protocol.ReadFrame(conn)
		if err != nil {
			if !errors.Is(err, io.EOF) {
				slog.Debug("server: connection closed", "peer", peer, "error", err)
			}
			return
		}

		req, err := protocol.DecodeRequest(payload)
		if err != nil {
			slog.Warn("server: malformed request", "peer", peer, "error", err)
			return
		}

		resp := s.dispatch(req)
		respPayload := protocol.EncodeResponse(resp)
		if err := protocol.WriteFrame(conn, respPayload); err != nil {
			slog.Warn("server: failed to write response", "peer", peer, "error", err)
			return
		}
	}
}

func (s *Server) dispatch(req protocol.Request) protocol.Response {
	switch req.Kind {
	case protocol.KindGet:
		value, found, err := s.store.Get(string(req.Key))
		if err != nil {
			return protocol.Response{Ok: false, Err: err.Error()}
		}
		return protocol.Response{Ok: true, Found: found, Value: value}

	case protocol.KindSet:
		if err := s.store.Set(string(req.Key), req.Value); err != nil {
			return protocol.Response{Ok: false, Err: err.Error()}
		}
		return protocol.Response{Ok: true}

	case protocol.KindRemove:
		if err := s.store.Remove(string(req.Key)); err != nil {
			return protocol.Response{Ok: false, Err: err.Error()}
		}
		return protocol.Response{Ok: true}

	default:
		return protocol.Response{Ok: false, Err: fmt.Sprintf("unknown request kind %d", req.Kind)}
	}
}
