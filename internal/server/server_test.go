package server

import (
	"net"
	"testing"

	"github.com/jassi-singh/aethercask/internal/config"
	"github.com/jassi-singh/aethercask/internal/engine"
	"github.com/jassi-singh/aethercask/internal/protocol"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*Server, net.Addr) {
	t.Helper()
	cfg := config.Default(t.TempDir())
	store, err := engine.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	srv, err := New("127.0.0.1:0", "kvs", store)
	require.NoError(t, err)

	ln, err := net.Listen("tcp", srv.addr)
	require.NoError(t, err)
	srv.ln = ln
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.handleConn(conn)
		}
	}()
	t.Cleanup(func() { srv.Close() })

	return srv, ln.Addr()
}

func roundTrip(t *testing.T, conn net.Conn, req protocol.Request) protocol.Response {
	t.Helper()
	require.NoError(t, protocol.WriteFrame(conn, protocol.EncodeRequest(req)))
	payload, err := protocol.ReadFrame(conn)
	require.NoError(t, err)
	resp, err := protocol.DecodeResponse(payload)
	require.NoError(t, err)
	return resp
}

func TestServer_SetGetRemove(t *testing.T) {
	_, addr := newTestServer(t)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.Request{Kind: protocol.KindSet, Key: []byte("k"), Value: []byte("v")})
	require.True(t, resp.Ok)

	resp = roundTrip(t, conn, protocol.Request{Kind: protocol.KindGet, Key: []byte("k")})
	require.True(t, resp.Ok)
	require.True(t, resp.Found)
	require.Equal(t, "v", string(resp.Value))

	resp = roundTrip(t, conn, protocol.Request{Kind: protocol.KindRemove, Key: []byte("k")})
	require.True(t, resp.Ok)

	resp = roundTrip(t, conn, protocol.Request{Kind: protocol.KindGet, Key: []byte("k")})
	require.True(t, resp.Ok)
	require.False(t, resp.Found)
}

func TestServer_GetMissingKey(t *testing.T) {
	_, addr := newTestServer(t)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.Request{Kind: protocol.KindGet, Key: []byte("nope")})
	require.True(t, resp.Ok)
	require.False(t, resp.Found)
}

func TestServer_RemoveMissingKeyReturnsErr(t *testing.T) {
	_, addr := newTestServer(t)

	conn, err := net.Dial("tcp", addr.String())
	require.NoError(t, err)
	defer conn.Close()

	resp := roundTrip(t, conn, protocol.Request{Kind: protocol.KindRemove, Key: []byte("nope")})
	require.False(t, resp.Ok)
	require.NotEmpty(t, resp.Err)
}

func TestNew_RejectsSledEngine(t *testing.T) {
	cfg := config.Default(t.TempDir())
	store, err := engine.Open(cfg)
	require.NoError(t, err)
	defer store.Close()

	_, err = New("127.0.0.1:0", "sled", store)
	require.Error(t, err)
}
