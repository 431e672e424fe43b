// Package format provides unit tests for record encoding and decoding.
package format

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jassi-singh/aethercask/internal/kverrors"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		encode func() []byte
		want   Record
	}{
		{
			name:   "normal put",
			encode: func() []byte { return EncodePut([]byte("key"), []byte("value")) },
			want:   Record{Tag: TagPut, Key: []byte("key"), Value: []byte("value")},
		},
		{
			name:   "tombstone",
			encode: func() []byte { return EncodeTombstone([]byte("key")) },
			want:   Record{Tag: TagTombstone, Key: []byte("key")},
		},
		{
			name:   "empty key",
			encode: func() []byte { return EncodePut([]byte{}, []byte("value")) },
			want:   Record{Tag: TagPut, Key: []byte{}, Value: []byte("value")},
		},
		{
			name:   "empty value",
			encode: func() []byte { return EncodePut([]byte("key"), []byte{}) },
			want:   Record{Tag: TagPut, Key: []byte("key"), Value: []byte{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := tt.encode()
			require.NotEmpty(t, data)

			record, consumed, err := Decode(data)
			require.NoError(t, err)
			require.Equal(t, len(data), consumed)
			if diff := cmp.Diff(tt.want, *record); diff != "" {
				t.Errorf("decoded record mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecode_TruncatedTail(t *testing.T) {
	data := EncodePut([]byte("key"), []byte("value"))

	for _, n := range []int{0, 1, MinHeaderSize - 1, len(data) - 1} {
		_, _, err := Decode(data[:n])
		require.Error(t, err)
		require.True(t, errors.Is(err, kverrors.ErrTruncatedTail))
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	data := EncodePut([]byte("key"), []byte("value"))
	data[crcSize] = 0x7F // corrupt the tag byte

	_, _, err := Decode(data)
	require.Error(t, err)
}

func TestDecode_CRCMismatch(t *testing.T) {
	data := EncodePut([]byte("key"), []byte("value"))
	data[0] ^= 0xFF

	_, _, err := Decode(data)
	require.Error(t, err)
	require.True(t, errors.Is(err, kverrors.ErrCodec))
}

func TestDecode_TrailingBytesIgnored(t *testing.T) {
	data := EncodePut([]byte("key"), []byte("value"))
	data = append(data, EncodeTombstone([]byte("next"))...)

	record, consumed, err := Decode(data)
	require.NoError(t, err)
	require.Equal(t, putHeaderSize+len("key")+len("value"), consumed)
	require.Equal(t, "key", string(record.Key))
}

func TestHeaderSize(t *testing.T) {
	require.Equal(t, 21, HeaderSize(TagPut))
	require.Equal(t, 13, HeaderSize(TagTombstone))
}
