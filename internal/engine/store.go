// Package engine implements the crash-safe, append-only key-value storage
// core: generation files, the in-memory KeyDir index, the single Writer, a
// pool of positioned Readers, and a background Compactor.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jassi-singh/aethercask/internal/config"
	"github.com/jassi-singh/aethercask/internal/format"
	"github.com/jassi-singh/aethercask/internal/kverrors"
)

const sentinelFileName = "engine"

// Store is the embedded key-value façade: Open, Get, Set, Remove, Close.
// It owns every other type in this package; of those, only LogPos and
// KeyDir are exported as well.
type Store struct {
	dir string
	cfg *config.Config

	keydir    *KeyDir
	deadBytes *deadBytes
	writer    *writer
	readers   *readerPool
	compactor *compactor
}

// Open prepares dir for use as a store: writes or checks the engine
// sentinel, enumerates generations, adopts a clean hint file or replays
// from scratch, then opens the active generation for append and starts the
// Compactor.
func Open(cfg *config.Config) (*Store, error) {
	dir := cfg.DATA_DIR
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: failed to create store directory %s: %w", dir, err)
	}
	if err := checkOrWriteSentinel(dir, cfg.ENGINE); err != nil {
		return nil, err
	}

	gens, err := listGenerations(dir)
	if err != nil {
		return nil, err
	}
	activeGen := gens[len(gens)-1]

	readers := newReaderPool()
	for _, gen := range gens {
		if err := readers.Open(dir, gen); err != nil {
			return nil, err
		}
	}

	keydir := NewKeyDir()
	dead := newDeadBytes()
	if err := bootstrap(dir, gens, activeGen, keydir, dead); err != nil {
		return nil, err
	}

	w, err := newWriter(dir, activeGen, readers, cfg.MAX_FILE_SIZE)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dir:       dir,
		cfg:       cfg,
		keydir:    keydir,
		deadBytes: dead,
		writer:    w,
		readers:   readers,
	}
	s.compactor = newCompactor(s, cfg.COMPACTION_QUEUE_SIZE)
	s.compactor.Start()

	for _, gen := range gens {
		if gen != activeGen {
			s.evaluateCompaction(gen)
		}
	}

	slog.Info("engine: store opened", "dir", dir, "active_gen", activeGen, "keys", keydir.Len())
	return s, nil
}

// checkOrWriteSentinel writes the engine sentinel file if the directory is
// new, or verifies a pre-existing one matches engineTag. A mismatch is a
// fatal configuration error: the directory was created by a different
// storage engine and must not be reopened as this one.
func checkOrWriteSentinel(dir, engineTag string) error {
	path := filepath.Join(dir, sentinelFileName)
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("engine: failed to read sentinel file: %w", err)
		}
		if err := os.WriteFile(path, []byte(engineTag), 0o644); err != nil {
			return fmt.Errorf("engine: failed to write sentinel file: %w", err)
		}
		return nil
	}

	if string(raw) != engineTag {
		return fmt.Errorf("%w: store directory %s was created by engine %q, got %q", kverrors.ErrConfig, dir, raw, engineTag)
	}
	return nil
}

// bootstrap populates keydir and dead either from a clean hint file (which
// is then deleted) or, on a missing/corrupt/undeletable one, by replaying
// every generation in ascending order.
// Only the active (highest-numbered) generation tolerates a truncated tail.
func bootstrap(dir string, gens []uint64, activeGen uint64, keydir *KeyDir, dead *deadBytes) error {
	if entries, counts, ok := loadHint(dir); ok {
		// the hint only describes the logs as of the last clean Close;
		// removing it means a crash before the next Close forces a replay
		if err := os.Remove(hintPath(dir)); err == nil {
			keydir.Load(entries)
			dead.Load(counts)
			slog.Info("engine: adopted hint file", "keys", keydir.Len())
			return nil
		}
	}

	slog.Info("engine: no usable hint file, replaying generations", "count", len(gens))
	for _, gen := range gens {
		if err := replayGeneration(dir, gen, keydir, dead, gen == activeGen); err != nil {
			return err
		}
	}
	return nil
}

// Get looks up key and returns its value and whether it was found.
//
// The generation a LogPos points into can be compacted away between the
// KeyDir lookup and the positioned read: the Compactor may have already
// relocated the key, dropped the reader, and unlinked the file. The
// Reader pool reports that race via errReaderNotOpen; Get responds by
// re-reading KeyDir and retrying once against whatever LogPos is current
// now, per spec.md §4.5, rather than surfacing a spurious error for a key
// that is in fact still live.
func (s *Store) Get(key string) ([]byte, bool, error) {
	pos, ok := s.keydir.Get(key)
	if !ok {
		return nil, false, nil
	}

	value, found, err := s.readAt(key, pos)
	if err == nil || !errors.Is(err, errReaderNotOpen) {
		return value, found, err
	}

	pos, ok = s.keydir.Get(key)
	if !ok {
		return nil, false, nil
	}
	return s.readAt(key, pos)
}

// readAt reads and decodes the record at pos, verifying it is a live Put
// for key.
func (s *Store) readAt(key string, pos LogPos) ([]byte, bool, error) {
	raw, err := s.readers.ReadAt(pos)
	if err != nil {
		return nil, false, err
	}
	record, _, err := format.Decode(raw)
	if err != nil {
		return nil, false, err
	}
	if record.IsTombstone() || string(record.Key) != key {
		return nil, false, fmt.Errorf("engine: keydir inconsistency for key %q at %+v", key, pos)
	}
	return record.Value, true, nil
}

// Set durably appends a Put record and publishes it to the KeyDir. Any
// previously live copy of key becomes dead weight in its own generation.
func (s *Store) Set(key string, value []byte) error {
	data := format.EncodePut([]byte(key), value)
	newPos, rotatedFrom, rotated, err := s.writer.Append(data)
	if err != nil {
		return err
	}
	if rotated {
		s.evaluateCompaction(rotatedFrom)
	}

	if prev, existed := s.keydir.Insert(key, newPos); existed {
		if s.deadBytes.Add(prev.Gen, prev.Length) >= s.cfg.COMPACTION_THRESHOLD {
			s.compactor.Enqueue(prev.Gen)
		}
	}
	return nil
}

// Remove deletes key. It fails with kverrors.ErrKeyNotFound if key has no
// current mapping.
func (s *Store) Remove(key string) error {
	prev, existed := s.keydir.Delete(key)
	if !existed {
		return kverrors.ErrKeyNotFound
	}

	data := format.EncodeTombstone([]byte(key))
	tombPos, rotatedFrom, rotated, err := s.writer.Append(data)
	if err != nil {
		return err
	}
	if rotated {
		s.evaluateCompaction(rotatedFrom)
	}

	if s.deadBytes.Add(prev.Gen, prev.Length) >= s.cfg.COMPACTION_THRESHOLD {
		s.compactor.Enqueue(prev.Gen)
	}
	if s.deadBytes.Add(tombPos.Gen, tombPos.Length) >= s.cfg.COMPACTION_THRESHOLD {
		s.compactor.Enqueue(tombPos.Gen)
	}
	return nil
}

// evaluateCompaction enqueues gen for compaction if its dead-byte count has
// already crossed the threshold — used right after a rotation seals gen,
// since a generation can be born over-threshold from replay bookkeeping or
// from compaction relocations landing in it.
func (s *Store) evaluateCompaction(gen uint64) {
	if gen == s.writer.ActiveGen() {
		return
	}
	if s.deadBytes.Get(gen) >= s.cfg.COMPACTION_THRESHOLD {
		s.compactor.Enqueue(gen)
	}
}

// Close flushes the Writer, waits for any in-flight compaction work unit to
// finish, writes a best-effort hint file, and releases all Reader handles.
func (s *Store) Close() error {
	s.compactor.Close()

	if err := s.writer.Close(); err != nil {
		return err
	}

	if err := saveHint(s.dir, s.keydir, s.deadBytes); err != nil {
		slog.Warn("engine: failed to write hint file", "error", err)
	}

	return s.readers.CloseAll()
}
