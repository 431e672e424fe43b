package engine

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestKeyDir_InsertGetDelete(t *testing.T) {
	d := NewKeyDir()

	_, ok := d.Get("k")
	require.False(t, ok)

	prev, existed := d.Insert("k", LogPos{Gen: 0, Offset: 0, Length: 10})
	require.False(t, existed)
	require.Zero(t, prev)

	pos, ok := d.Get("k")
	require.True(t, ok)
	require.Equal(t, LogPos{Gen: 0, Offset: 0, Length: 10}, pos)

	prev, existed = d.Insert("k", LogPos{Gen: 1, Offset: 5, Length: 20})
	require.True(t, existed)
	require.Equal(t, LogPos{Gen: 0, Offset: 0, Length: 10}, prev)

	deleted, existed := d.Delete("k")
	require.True(t, existed)
	require.Equal(t, LogPos{Gen: 1, Offset: 5, Length: 20}, deleted)

	_, ok = d.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, d.Len())
}

// TestKeyDir_CompareAndSwap exercises the compaction CAS contract from
// spec.md §4.6 step 3: a concurrent writer replacing the entry after the
// Compactor read the old LogPos but before it installs the relocated one
// must make the swap lose.
func TestKeyDir_CompareAndSwap(t *testing.T) {
	d := NewKeyDir()
	old := LogPos{Gen: 0, Offset: 0, Length: 10}
	d.Insert("k", old)

	newer := LogPos{Gen: 0, Offset: 10, Length: 10}
	d.Insert("k", newer) // a concurrent Set wins before compaction relocates

	relocated := LogPos{Gen: 1, Offset: 0, Length: 10}
	require.False(t, d.CompareAndSwap("k", old, relocated), "CAS must lose against the newer entry")

	pos, ok := d.Get("k")
	require.True(t, ok)
	require.Equal(t, newer, pos)

	require.True(t, d.CompareAndSwap("k", newer, relocated))
	pos, ok = d.Get("k")
	require.True(t, ok)
	require.Equal(t, relocated, pos)
}

func TestKeyDir_SnapshotLoadRoundTrip(t *testing.T) {
	d := NewKeyDir()
	d.Insert("a", LogPos{Gen: 0, Offset: 0, Length: 5})
	d.Insert("b", LogPos{Gen: 1, Offset: 5, Length: 7})

	snap := d.Snapshot()

	d2 := NewKeyDir()
	d2.Load(snap)

	if diff := cmp.Diff(snap, d2.Snapshot()); diff != "" {
		t.Errorf("KeyDir snapshot mismatch after Load (-want +got):\n%s", diff)
	}
}
