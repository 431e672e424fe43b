package engine

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
)

// writer owns the active generation counter, the single append handle for
// the active file, and the current write offset. It holds exclusive
// authority to mutate writerPos and to rotate generations; KeyDir and
// DeadBytes are published/updated by its callers (Store) once an append is
// durable, per the release-ordering requirement in the durability invariant.
type writer struct {
	dir         string
	maxFileSize int64

	mu        sync.Mutex // serializes append+rotate; guards file and writerPos
	activeGen atomic.Uint64
	file      *os.File
	writerPos int64

	readers *readerPool
}

// newWriter opens (creating if necessary) the active generation for append
// and seeks to its current end-of-file, so writerPos resumes where the
// previous process left off.
func newWriter(dir string, activeGen uint64, readers *readerPool, maxFileSize int64) (*writer, error) {
	f, err := os.OpenFile(genPath(dir, activeGen), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to open active generation %d for append: %w", activeGen, err)
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("engine: failed to stat active generation %d: %w", activeGen, err)
	}

	w := &writer{
		dir:         dir,
		maxFileSize: maxFileSize,
		file:        f,
		writerPos:   stat.Size(),
		readers:     readers,
	}
	w.activeGen.Store(activeGen)
	return w, nil
}

// ActiveGen returns the current active generation number.
func (w *writer) ActiveGen() uint64 { return w.activeGen.Load() }

// Append writes data at the current write offset, fsyncs it, and returns
// its LogPos. If the write would exceed maxFileSize, the active generation
// is rotated first. rotated reports whether a rotation occurred, so the
// caller can enqueue the now-sealed generation for compaction evaluation.
func (w *writer) Append(data []byte) (pos LogPos, rotatedFrom uint64, rotated bool, err error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.writerPos+int64(len(data)) > w.maxFileSize {
		sealedGen := w.activeGen.Load()
		if err := w.rotateLocked(); err != nil {
			return LogPos{}, 0, false, err
		}
		rotatedFrom, rotated = sealedGen, true
	}

	gen := w.activeGen.Load()
	offset := w.writerPos

	n, err := w.file.Write(data)
	if err != nil {
		return LogPos{}, rotatedFrom, rotated, fmt.Errorf("engine: failed to append to generation %d: %w", gen, err)
	}
	if n != len(data) {
		return LogPos{}, rotatedFrom, rotated, fmt.Errorf("engine: short append to generation %d: wrote %d of %d bytes", gen, n, len(data))
	}
	if err := w.file.Sync(); err != nil {
		return LogPos{}, rotatedFrom, rotated, fmt.Errorf("engine: failed to sync generation %d: %w", gen, err)
	}

	w.writerPos += int64(n)
	return LogPos{Gen: gen, Offset: offset, Length: int64(n)}, rotatedFrom, rotated, nil
}

// rotateLocked seals the current active generation, opens the next one for
// append, and publishes a read handle for it to the Reader pool. Callers
// must hold w.mu.
func (w *writer) rotateLocked() error {
	nextGen := w.activeGen.Load() + 1
	f, err := os.OpenFile(genPath(w.dir, nextGen), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("engine: failed to create generation %d: %w", nextGen, err)
	}
	if err := w.readers.Open(w.dir, nextGen); err != nil {
		f.Close()
		return err
	}

	prevGen := w.activeGen.Load()
	if err := w.file.Close(); err != nil {
		slog.Warn("writer: failed to close sealed generation", "gen", prevGen, "error", err)
	}

	w.file = f
	w.writerPos = 0
	w.activeGen.Store(nextGen)
	slog.Info("writer: rotated active generation", "sealed_gen", prevGen, "active_gen", nextGen)
	return nil
}

// Close flushes and closes the active append handle. The caller must not
// have any in-flight Append call.
func (w *writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("engine: failed to sync generation %d on close: %w", w.activeGen.Load(), err)
	}
	return w.file.Close()
}
