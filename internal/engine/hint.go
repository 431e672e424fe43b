package engine

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	"gopkg.in/yaml.v2"
)

const hintFileName = "keydir"

// hintEntry is the YAML-friendly mirror of LogPos: struct tags keep the
// on-disk hint format stable even if LogPos's Go field names ever change.
type hintEntry struct {
	Gen    uint64 `yaml:"gen"`
	Offset int64  `yaml:"offset"`
	Length int64  `yaml:"length"`
}

// hintFile is the serialized shape of the (KeyDir, DeadBytes) pair written
// to <dir>/keydir. It is a recovery cache, never a source of truth: a
// missing or corrupt hint file always falls back to a full replay.
type hintFile struct {
	Entries   map[string]hintEntry `yaml:"entries"`
	DeadBytes map[uint64]int64     `yaml:"dead_bytes"`
}

func hintPath(dir string) string {
	return filepath.Join(dir, hintFileName)
}

// loadHint attempts to read and decode the hint file. ok is false whenever
// the file cannot be read (absent or any other I/O failure) or fails to
// decode cleanly, in which case the caller must fall back to replay;
// loadHint never returns an error.
func loadHint(dir string) (keydirEntries map[string]LogPos, dead map[uint64]int64, ok bool) {
	raw, err := os.ReadFile(hintPath(dir))
	if err != nil {
		return nil, nil, false
	}

	var hf hintFile
	if err := yaml.Unmarshal(raw, &hf); err != nil {
		return nil, nil, false
	}

	entries := make(map[string]LogPos, len(hf.Entries))
	for k, e := range hf.Entries {
		entries[k] = LogPos{Gen: e.Gen, Offset: e.Offset, Length: e.Length}
	}
	return entries, hf.DeadBytes, true
}

// saveHint serializes keydir and dead to YAML and writes it to <dir>/keydir
// via an atomic write-then-rename, so a crash mid-write never leaves a torn
// file that loadHint would need to detect as corrupt.
func saveHint(dir string, keydir *KeyDir, dead *deadBytes) error {
	snapshot := keydir.Snapshot()
	entries := make(map[string]hintEntry, len(snapshot))
	for k, pos := range snapshot {
		entries[k] = hintEntry{Gen: pos.Gen, Offset: pos.Offset, Length: pos.Length}
	}

	hf := hintFile{Entries: entries, DeadBytes: dead.Snapshot()}
	raw, err := yaml.Marshal(hf)
	if err != nil {
		return fmt.Errorf("engine: failed to marshal hint file: %w", err)
	}

	if err := atomic.WriteFile(hintPath(dir), bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("engine: failed to write hint file: %w", err)
	}
	return nil
}
