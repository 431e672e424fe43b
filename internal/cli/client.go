// Package cli implements the client side of the wire protocol: a thin
// request/response Client plus an interactive Shell built on it, with both
// a liner-backed REPL and a plain-scanner fallback for piped input.
package cli

import (
	"fmt"
	"net"

	"github.com/jassi-singh/aethercask/internal/kverrors"
	"github.com/jassi-singh/aethercask/internal/protocol"
)

// Client is a connection to an aethercask-server, issuing one request at a
// time and waiting for its matching response — the server already
// guarantees in-order responses, so no request pipelining is attempted.
type Client struct {
	conn net.Conn
}

// Dial connects to addr.
func Dial(addr string) (*Client, error) {
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("cli: failed to connect to %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) roundTrip(req protocol.Request) (protocol.Response, error) {
	if err := protocol.WriteFrame(c.conn, protocol.EncodeRequest(req)); err != nil {
		return protocol.Response{}, fmt.Errorf("cli: failed to send request: %w", err)
	}
	payload, err := protocol.ReadFrame(c.conn)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("cli: failed to read response: %w", err)
	}
	resp, err := protocol.DecodeResponse(payload)
	if err != nil {
		return protocol.Response{}, fmt.Errorf("cli: failed to decode response: %w", err)
	}
	return resp, nil
}

// Get fetches key. found is false when the server reports no mapping.
func (c *Client) Get(key string) (value string, found bool, err error) {
	resp, err := c.roundTrip(protocol.Request{Kind: protocol.KindGet, Key: []byte(key)})
	if err != nil {
		return "", false, err
	}
	if !resp.Ok {
		return "", false, &kverrors.ServerError{Message: resp.Err}
	}
	return string(resp.Value), resp.Found, nil
}

// Set stores key -> value.
func (c *Client) Set(key, value string) error {
	resp, err := c.roundTrip(protocol.Request{Kind: protocol.KindSet, Key: []byte(key), Value: []byte(value)})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return &kverrors.ServerError{Message: resp.Err}
	}
	return nil
}

// Remove deletes key. Returns an error if the key has no mapping.
func (c *Client) Remove(key string) error {
	resp, err := c.roundTrip(protocol.Request{Kind: protocol.KindRemove, Key: []byte(key)})
	if err != nil {
		return err
	}
	if !resp.Ok {
		return &kverrors.ServerError{Message: resp.Err}
	}
	return nil
}
