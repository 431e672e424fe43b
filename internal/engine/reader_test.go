package engine

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReaderPool_OpenReadAtDrop(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(genPath(dir, 0), []byte("hello world"), 0o644))

	p := newReaderPool()
	require.NoError(t, p.Open(dir, 0))

	buf, err := p.ReadAt(LogPos{Gen: 0, Offset: 6, Length: 5})
	require.NoError(t, err)
	require.Equal(t, "world", string(buf))

	require.NoError(t, p.Drop(0))
	_, err = p.ReadAt(LogPos{Gen: 0, Offset: 0, Length: 5})
	require.Error(t, err)
	require.True(t, errors.Is(err, errReaderNotOpen))
}

// TestReaderPool_ReadAtUnknownGeneration exercises the same retriable-error
// path for a generation that was never opened at all, not just one that was
// later dropped.
func TestReaderPool_ReadAtUnknownGeneration(t *testing.T) {
	p := newReaderPool()
	_, err := p.ReadAt(LogPos{Gen: 7, Offset: 0, Length: 1})
	require.Error(t, err)
	require.True(t, errors.Is(err, errReaderNotOpen))
}
