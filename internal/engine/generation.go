package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/jassi-singh/aethercask/internal/kverrors"
)

const logExt = ".log"

// genPath returns the path of the generation file for gen under dir.
func genPath(dir string, gen uint64) string {
	return filepath.Join(dir, strconv.FormatUint(gen, 10)+logExt)
}

// listGenerations enumerates *.log files in dir, parses their stems as
// unsigned integers, and returns them sorted ascending. If dir has no log
// file, it returns []uint64{0} so the caller creates generation 0.
func listGenerations(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to read store directory %s: %w", dir, err)
	}

	var gens []uint64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), logExt) {
			continue
		}
		stem := strings.TrimSuffix(e.Name(), logExt)
		gen, err := strconv.ParseUint(stem, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: unparseable generation file name %q: %v", kverrors.ErrConfig, e.Name(), err)
		}
		gens = append(gens, gen)
	}

	sort.Slice(gens, func(i, j int) bool { return gens[i] < gens[j] })
	if len(gens) == 0 {
		gens = []uint64{0}
	}
	return gens, nil
}
