// Package kverrors defines the sentinel error taxonomy shared by the
// storage engine, the wire protocol, and the CLI front-ends.
package kverrors

import (
	"errors"
	"fmt"
)

var (
	// ErrKeyNotFound is returned only by Remove on a key that has no
	// mapping. Get reports a missing key by returning ok=false instead.
	ErrKeyNotFound = errors.New("key not found")

	// ErrCodec marks a record that failed to decode: unknown tag,
	// truncated tail, invalid lengths, or a CRC mismatch.
	ErrCodec = errors.New("record codec error")

	// ErrTruncatedTail wraps ErrCodec and marks specifically a record
	// whose bytes ran out before a complete record could be read — as
	// opposed to a decodable-length record that fails its CRC check.
	// Replay tolerates this on the active generation and treats it as
	// fatal on a sealed one.
	ErrTruncatedTail = fmt.Errorf("%w: truncated tail", ErrCodec)

	// ErrConfig marks a configuration problem detected at open time,
	// such as an engine-tag mismatch or an unparseable generation file name.
	ErrConfig = errors.New("store configuration error")
)

// ServerError wraps a message sent back from the remote end of the wire
// protocol. It intentionally carries no wrapped error since the original
// error never crosses the connection.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string { return e.Message }
