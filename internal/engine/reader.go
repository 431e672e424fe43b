package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
)

// errReaderNotOpen marks a ReadAt call that targeted a generation with no
// open handle, or one whose handle was closed out from under it — both
// signs that the Compactor dropped the generation between the caller's
// KeyDir lookup and this read. Store.Get treats it as retriable: per
// spec.md §4.5, such a read "must either have completed or be retried
// against the KeyDir's current mapping."
var errReaderNotOpen = errors.New("engine: reader not open for generation")

// readerPool holds one read-only file handle per generation and performs
// positioned reads without mutating any shared handle offset, so it
// tolerates concurrent appends by the Writer to the active generation and
// concurrent ReadAt calls from any number of goroutines.
type readerPool struct {
	mu      sync.RWMutex
	handles map[uint64]*os.File
}

func newReaderPool() *readerPool {
	return &readerPool{handles: make(map[uint64]*os.File)}
}

// Open adds a read-only handle for gen, opening the file if not already
// tracked. Called on recovery and on Writer rotation.
func (p *readerPool) Open(dir string, gen uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.handles[gen]; ok {
		return nil
	}
	f, err := os.Open(genPath(dir, gen))
	if err != nil {
		return fmt.Errorf("engine: failed to open generation %d for reading: %w", gen, err)
	}
	p.handles[gen] = f
	return nil
}

// ReadAt performs a positioned read of pos.Length bytes from generation
// pos.Gen at pos.Offset.
func (p *readerPool) ReadAt(pos LogPos) ([]byte, error) {
	p.mu.RLock()
	f, ok := p.handles[pos.Gen]
	p.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %d", errReaderNotOpen, pos.Gen)
	}

	buf := make([]byte, pos.Length)
	if _, err := f.ReadAt(buf, pos.Offset); err != nil {
		if errors.Is(err, fs.ErrClosed) {
			return nil, fmt.Errorf("%w %d: %w", errReaderNotOpen, pos.Gen, err)
		}
		return nil, fmt.Errorf("engine: failed to read generation %d at offset %d: %w", pos.Gen, pos.Offset, err)
	}
	return buf, nil
}

// Drop closes and removes the handle for gen. Called by the Compactor just
// before it unlinks <gen>.log.
func (p *readerPool) Drop(gen uint64) error {
	p.mu.Lock()
	f, ok := p.handles[gen]
	delete(p.handles, gen)
	p.mu.Unlock()
	if !ok {
		return nil
	}
	return f.Close()
}

// CloseAll closes every tracked handle, used during Store.Close.
func (p *readerPool) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var firstErr error
	for gen, f := range p.handles {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("engine: failed to close generation %d: %w", gen, err)
		}
	}
	p.handles = make(map[uint64]*os.File)
	return firstErr
}
