// Package protocol implements the wire format shared by aethercask-server
// and aethercask-client: an 8-byte big-endian length prefix around a
// binary, tag-first payload, mirroring the big-endian, reflection-free
// codec style internal/format uses for on-disk records.
package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Kind identifies the operation a Request carries.
type Kind uint8

const (
	KindGet    Kind = 0
	KindSet    Kind = 1
	KindRemove Kind = 2
)

// Request is one client call. Value is only meaningful for KindSet.
type Request struct {
	Kind  Kind
	Key   []byte
	Value []byte
}

// Response is the server's reply. Ok false means Err carries the message;
// Ok true means Found/Value describe the result of a Get (Set and Remove
// report success with Found=false, Value=nil).
type Response struct {
	Ok    bool
	Found bool
	Value []byte
	Err   string
}

// WriteFrame writes an 8-byte big-endian length prefix followed by payload.
func WriteFrame(w io.Writer, payload []byte) error {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(payload)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return fmt.Errorf("protocol: failed to write frame length: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("protocol: failed to write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed payload.
func ReadFrame(r io.Reader) ([]byte, error) {
	var lenBuf [8]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint64(lenBuf[:])
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("protocol: failed to read frame payload of %d bytes: %w", n, err)
	}
	return payload, nil
}

// putBytes appends a big-endian uint64 length prefix followed by data.
func putBytes(buf []byte, data []byte) []byte {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(data)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, data...)
}

// takeBytes reads a length-prefixed byte string from the front of data,
// returning it and the number of bytes consumed.
func takeBytes(data []byte) ([]byte, int, error) {
	if len(data) < 8 {
		return nil, 0, fmt.Errorf("protocol: truncated length prefix")
	}
	n := binary.BigEndian.Uint64(data[:8])
	if uint64(len(data)-8) < n {
		return nil, 0, fmt.Errorf("protocol: truncated field, want %d bytes, have %d", n, len(data)-8)
	}
	return data[8 : 8+n], 8 + int(n), nil
}

// EncodeRequest serializes a Request payload: kind(1) [key] [value].
// Value is only present for KindSet.
func EncodeRequest(req Request) []byte {
	buf := make([]byte, 0, 1+8+len(req.Key)+8+len(req.Value))
	buf = append(buf, byte(req.Kind))
	buf = putBytes(buf, req.Key)
	if req.Kind == KindSet {
		buf = putBytes(buf, req.Value)
	}
	return buf
}

// DecodeRequest parses a Request payload produced by EncodeRequest.
func DecodeRequest(data []byte) (Request, error) {
	if len(data) < 1 {
		return Request{}, fmt.Errorf("protocol: empty request payload")
	}
	kind := Kind(data[0])
	rest := data[1:]

	key, n, err := takeBytes(rest)
	if err != nil {
		return Request{}, fmt.Errorf("protocol: failed to decode request key: %w", err)
	}
	rest = rest[n:]

	req := Request{Kind: kind, Key: key}
	if kind == KindSet {
		value, _, err := takeBytes(rest)
		if err != nil {
			return Request{}, fmt.Errorf("protocol: failed to decode request value: %w", err)
		}
		req.Value = value
	}
	return req, nil
}

// EncodeResponse serializes a Response payload: ok(1) [payload].
// ok=1 payload is a presence byte followed by a length-prefixed value
// (Get's Option<value>); ok=0 payload is the UTF-8 error string.
func EncodeResponse(resp Response) []byte {
	if !resp.Ok {
		buf := make([]byte, 0, 1+8+len(resp.Err))
		buf = append(buf, 0)
		buf = putBytes(buf, []byte(resp.Err))
		return buf
	}

	buf := make([]byte, 0, 1+1+8+len(resp.Value))
	buf = append(buf, 1)
	if resp.Found {
		buf = append(buf, 1)
		buf = putBytes(buf, resp.Value)
	} else {
		buf = append(buf, 0)
	}
	return buf
}

// DecodeResponse parses a Response payload produced by EncodeResponse.
func DecodeResponse(data []byte) (Response, error) {
	if len(data) < 1 {
		return Response{}, fmt.Errorf("protocol: empty response payload")
	}
	ok := data[0] == 1
	rest := data[1:]

	if !ok {
		msg, _, err := takeBytes(rest)
		if err != nil {
			return Response{}, fmt.Errorf("protocol: failed to decode error message: %w", err)
		}
		return Response{Ok: false, Err: string(msg)}, nil
	}

	if len(rest) < 1 {
		return Response{}, fmt.Errorf("protocol: truncated response presence byte")
	}
	found := rest[0] == 1
	if !found {
		return Response{Ok: true, Found: false}, nil
	}
	value, _, err := takeBytes(rest[1:])
	if err != nil {
		return Response{}, fmt.Errorf("protocol: failed to decode response value: %w", err)
	}
	return Response{Ok: true, Found: true, Value: value}, nil
}
