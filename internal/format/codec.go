// Package format provides encoding and decoding functionality for key-value
// log records. Records are stored in a binary, CRC32-checked format that can
// be decoded purely from its own bytes, without a separate index.
package format

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/jassi-singh/aethercask/internal/kverrors"
)

// Tag identifies the kind of record stored at a given log offset.
type Tag uint8

const (
	// TagTombstone marks a key as having no mapping as of this record's offset.
	TagTombstone Tag = 0x00
	// TagPut asserts that key maps to value as of this record's offset.
	TagPut Tag = 0x01
)

// Header layout, all multi-byte integers big-endian:
//
//	[0:4]   CRC32 (IEEE) of everything from offset 4 onward
//	[4]     tag: 0x01 Put, 0x00 Tombstone
//	[5:13]  key length
//	Put only:
//	[13:21] value length
//	[HeaderSize:] key bytes, then value bytes (Put) or just key bytes (Tombstone)
const (
	crcSize      = 4
	tagSize      = 1
	lenFieldSize = 8

	putHeaderSize       = crcSize + tagSize + lenFieldSize + lenFieldSize // 21
	tombstoneHeaderSize = crcSize + tagSize + lenFieldSize                // 13

	// MinHeaderSize is the smallest prefix that must be read before the tag
	// byte (and therefore the rest of the header shape) is known.
	MinHeaderSize = crcSize + tagSize + lenFieldSize
)

// Record is a decoded log entry. Value is nil for tombstones.
type Record struct {
	Tag   Tag
	Key   []byte
	Value []byte
}

// IsTombstone reports whether this record marks a deletion.
func (r *Record) IsTombstone() bool { return r.Tag == TagTombstone }

// HeaderSize returns the on-disk header size for the given tag.
func HeaderSize(tag Tag) int {
	if tag == TagPut {
		return putHeaderSize
	}
	return tombstoneHeaderSize
}

// EncodePut serializes a Put record.
func EncodePut(key, value []byte) []byte {
	buf := make([]byte, putHeaderSize+len(key)+len(value))
	buf[crcSize] = byte(TagPut)
	binary.BigEndian.PutUint64(buf[crcSize+tagSize:], uint64(len(key)))
	binary.BigEndian.PutUint64(buf[crcSize+tagSize+lenFieldSize:], uint64(len(value)))
	copy(buf[putHeaderSize:], key)
	copy(buf[putHeaderSize+len(key):], value)
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(buf[crcSize:]))
	return buf
}

// EncodeTombstone serializes a Tombstone record.
func EncodeTombstone(key []byte) []byte {
	buf := make([]byte, tombstoneHeaderSize+len(key))
	buf[crcSize] = byte(TagTombstone)
	binary.BigEndian.PutUint64(buf[crcSize+tagSize:], uint64(len(key)))
	copy(buf[tombstoneHeaderSize:], key)
	binary.BigEndian.PutUint32(buf, crc32.ChecksumIEEE(buf[crcSize:]))
	return buf
}

// Decode reads one record from the front of data. It returns the decoded
// record and the number of bytes consumed. Any error is wrapped in
// kverrors.ErrCodec, including a truncated tail (not enough bytes yet to
// hold the full record).
func Decode(data []byte) (*Record, int, error) {
	if len(data) < MinHeaderSize {
		return nil, 0, fmt.Errorf("%w, got %d bytes", kverrors.ErrTruncatedTail, len(data))
	}

	wantCRC := binary.BigEndian.Uint32(data[0:crcSize])
	tag := Tag(data[crcSize])
	keyLen := binary.BigEndian.Uint64(data[crcSize+tagSize : crcSize+tagSize+lenFieldSize])

	var headerSize, valLen uint64
	switch tag {
	case TagPut:
		if len(data) < putHeaderSize {
			return nil, 0, fmt.Errorf("%w, got %d bytes", kverrors.ErrTruncatedTail, len(data))
		}
		valLen = binary.BigEndian.Uint64(data[crcSize+tagSize+lenFieldSize : putHeaderSize])
		headerSize = putHeaderSize
	case TagTombstone:
		headerSize = tombstoneHeaderSize
	default:
		return nil, 0, fmt.Errorf("%w: unknown tag 0x%02x", kverrors.ErrCodec, byte(tag))
	}

	total := headerSize + keyLen + valLen
	if uint64(len(data)) < total {
		return nil, 0, fmt.Errorf("%w: need %d bytes, have %d", kverrors.ErrTruncatedTail, total, len(data))
	}

	gotCRC := crc32.ChecksumIEEE(data[crcSize:total])
	if gotCRC != wantCRC {
		return nil, 0, fmt.Errorf("%w: crc mismatch: calculated %d, expected %d", kverrors.ErrCodec, gotCRC, wantCRC)
	}

	key := make([]byte, keyLen)
	copy(key, data[headerSize:headerSize+keyLen])

	record := &Record{Tag: tag, Key: key}
	if tag == TagPut {
		value := make([]byte, valLen)
		copy(value, data[headerSize+keyLen:total])
		record.Value = value
	}

	return record, int(total), nil
}
