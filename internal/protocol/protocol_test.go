package protocol

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRequestRoundTrip(t *testing.T) {
	tests := []Request{
		{Kind: KindGet, Key: []byte("foo")},
		{Kind: KindSet, Key: []byte("foo"), Value: []byte("bar")},
		{Kind: KindSet, Key: []byte("foo"), Value: []byte{}},
		{Kind: KindRemove, Key: []byte("foo")},
	}

	for _, req := range tests {
		data := EncodeRequest(req)
		got, err := DecodeRequest(data)
		require.NoError(t, err)
		require.Equal(t, req.Kind, got.Kind)
		require.Equal(t, req.Key, got.Key)
		if req.Kind == KindSet {
			require.Equal(t, req.Value, got.Value)
		}
	}
}

func TestResponseRoundTrip(t *testing.T) {
	tests := []Response{
		{Ok: true, Found: true, Value: []byte("bar")},
		{Ok: true, Found: false},
		{Ok: false, Err: "key not found"},
	}

	for _, resp := range tests {
		data := EncodeResponse(resp)
		got, err := DecodeResponse(data)
		require.NoError(t, err)
		require.Equal(t, resp.Ok, got.Ok)
		require.Equal(t, resp.Found, got.Found)
		require.Equal(t, resp.Value, got.Value)
		require.Equal(t, resp.Err, got.Err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello world")

	require.NoError(t, WriteFrame(&buf, payload))
	got, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestFrameMultipleMessages(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFrame(&buf, []byte("first")))
	require.NoError(t, WriteFrame(&buf, []byte("second")))

	first, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, "first", string(first))

	second, err := ReadFrame(&buf)
	require.NoError(t, err)
	require.Equal(t, "second", string(second))
}
