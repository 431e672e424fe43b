package engine

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/jassi-singh/aethercask/internal/format"
)

// compactor is a dedicated worker fed by a bounded queue of generation
// numbers, so set/remove never stalls synchronously on reclamation. At most
// one work unit runs at a time and the active generation is never
// compacted.
type compactor struct {
	store *Store

	queue chan uint64
	wg    sync.WaitGroup

	mu       sync.Mutex
	inFlight map[uint64]bool
}

func newCompactor(store *Store, queueSize int) *compactor {
	return &compactor{
		store:    store,
		queue:    make(chan uint64, queueSize),
		inFlight: make(map[uint64]bool),
	}
}

// Start launches the worker goroutine.
func (c *compactor) Start() {
	c.wg.Add(1)
	go c.run()
}

func (c *compactor) run() {
	defer c.wg.Done()
	for gen := range c.queue {
		if err := c.compact(gen); err != nil {
			slog.Error("compactor: compaction failed", "gen", gen, "error", err)
		}
	}
}

// Enqueue requests compaction of gen. Non-blocking: if the queue is full or
// gen is already queued/running, the request is dropped — the same
// generation will be re-enqueued the next time a dead-byte increment
// crosses the threshold, so no work is permanently lost.
func (c *compactor) Enqueue(gen uint64) {
	c.mu.Lock()
	if c.inFlight[gen] {
		c.mu.Unlock()
		return
	}
	c.inFlight[gen] = true
	c.mu.Unlock()

	select {
	case c.queue <- gen:
	default:
		c.mu.Lock()
		delete(c.inFlight, gen)
		c.mu.Unlock()
		slog.Warn("compactor: queue full, dropping compaction request", "gen", gen)
	}
}

// Close drains the queue (letting any in-flight work unit finish) and waits
// for the worker to exit.
func (c *compactor) Close() {
	close(c.queue)
	c.wg.Wait()
}

// compact performs one work unit: copy gen's live records forward, forward
// any tombstone still needed to prevent resurrection, then delete gen.
func (c *compactor) compact(gen uint64) error {
	defer func() {
		c.mu.Lock()
		delete(c.inFlight, gen)
		c.mu.Unlock()
	}()

	s := c.store
	if gen == s.writer.ActiveGen() {
		return nil // never compact the active generation
	}
	if s.deadBytes.Get(gen) < s.cfg.COMPACTION_THRESHOLD {
		return nil // threshold no longer crossed (e.g. already compacted)
	}

	slog.Info("compactor: compacting generation", "gen", gen)

	live := liveEntriesForGen(s.keydir, gen)
	for key, oldPos := range live {
		if err := c.relocatePut(key, oldPos); err != nil {
			return fmt.Errorf("engine: failed to relocate key during compaction of generation %d: %w", gen, err)
		}
	}

	if err := c.forwardNeededTombstones(gen); err != nil {
		return fmt.Errorf("engine: failed to forward tombstones during compaction of generation %d: %w", gen, err)
	}

	if err := s.readers.Drop(gen); err != nil {
		return fmt.Errorf("engine: failed to drop reader for generation %d: %w", gen, err)
	}
	if err := os.Remove(genPath(s.dir, gen)); err != nil {
		return fmt.Errorf("engine: failed to remove generation %d: %w", gen, err)
	}
	s.deadBytes.Clear(gen)

	slog.Info("compactor: compaction complete", "gen", gen)
	return nil
}

func liveEntriesForGen(dir *KeyDir, gen uint64) map[string]LogPos {
	out := make(map[string]LogPos)
	for key, pos := range dir.Snapshot() {
		if pos.Gen == gen {
			out[key] = pos
		}
	}
	return out
}

// relocatePut copies the Put at oldPos to the current active generation and
// installs it in the KeyDir with compare-and-swap: if a concurrent Set or
// Remove has already replaced the entry, the freshly written copy is
// already dead and its space is accounted as such in the new generation.
func (c *compactor) relocatePut(key string, oldPos LogPos) error {
	s := c.store
	raw, err := s.readers.ReadAt(oldPos)
	if err != nil {
		return err
	}
	record, _, err := format.Decode(raw)
	if err != nil {
		return err
	}
	if record.IsTombstone() {
		return fmt.Errorf("engine: expected Put at live LogPos for key %q, got tombstone", key)
	}

	data := format.EncodePut(record.Key, record.Value)
	newPos, rotatedFrom, rotated, err := s.writer.Append(data)
	if err != nil {
		return err
	}
	if rotated {
		s.evaluateCompaction(rotatedFrom)
	}

	if !s.keydir.CompareAndSwap(key, oldPos, newPos) {
		s.deadBytes.Add(newPos.Gen, newPos.Length)
	}
	return nil
}

// forwardNeededTombstones re-scans gen for Tombstone records and copies
// forward only those whose key might still be resurrected by a stale Put
// sitting in an earlier, not-yet-compacted generation. If gen is the oldest
// generation remaining on disk, no earlier generation can hold a stale
// reference, so every tombstone in it is safe to drop.
func (c *compactor) forwardNeededTombstones(gen uint64) error {
	s := c.store

	gens, err := listGenerations(s.dir)
	if err != nil {
		return err
	}
	hasEarlier := false
	for _, g := range gens {
		if g < gen {
			hasEarlier = true
			break
		}
	}
	if !hasEarlier {
		return nil
	}

	records, _, err := scanGenerationFile(genPath(s.dir, gen), gen)
	if err != nil {
		return err
	}

	for _, r := range records {
		if !r.record.IsTombstone() {
			continue
		}
		key := string(r.record.Key)
		if _, live := s.keydir.Get(key); live {
			// a newer write already superseded this tombstone
			continue
		}
		data := format.EncodeTombstone(r.record.Key)
		newPos, rotatedFrom, rotated, err := s.writer.Append(data)
		if err != nil {
			return err
		}
		if rotated {
			s.evaluateCompaction(rotatedFrom)
		}
		// the forwarded tombstone is not referenced by any live KeyDir
		// entry; it is dead weight the instant it lands, kept only so a
		// from-scratch replay still sees the deletion.
		s.deadBytes.Add(newPos.Gen, newPos.Length)
	}
	return nil
}
