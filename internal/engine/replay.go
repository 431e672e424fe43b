package engine

import (
	"errors"
	"fmt"
	"os"

	"github.com/jassi-singh/aethercask/internal/format"
	"github.com/jassi-singh/aethercask/internal/kverrors"
)

// recordAt pairs a decoded record with the LogPos it occupied on disk, so
// callers can both inspect the record and publish its position into the
// KeyDir without re-deriving the offset.
type recordAt struct {
	record *format.Record
	pos    LogPos
}

// scanGenerationFile reads <gen>.log front to back, decoding one record at a
// time. It returns every record successfully decoded and whether the file's
// tail was truncated (an incomplete final record, the expected shape of a
// process that crashed mid-append). Any other decode error — a CRC mismatch
// or unknown tag — is always fatal and returned as err, since it indicates
// corruption rather than an interrupted write.
func scanGenerationFile(path string, gen uint64) ([]recordAt, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("engine: failed to read %s: %w", path, err)
	}

	var records []recordAt
	var offset int64
	for int64(len(data)) > offset {
		record, n, err := format.Decode(data[offset:])
		if err != nil {
			if errors.Is(err, kverrors.ErrTruncatedTail) {
				return records, true, nil
			}
			return records, false, fmt.Errorf("engine: corrupt record in %s at offset %d: %w", path, offset, err)
		}
		records = append(records, recordAt{
			record: record,
			pos:    LogPos{Gen: gen, Offset: offset, Length: int64(n)},
		})
		offset += int64(n)
	}
	return records, false, nil
}

// replayGeneration scans gen's file and applies every record to keydir and
// deadBytes in file order, so a later record always overwrites an earlier
// one's KeyDir entry and the earlier one's bytes are immediately counted as
// dead. allowTruncatedTail must be true only for the active (highest-
// numbered) generation, whose truncated tail is cut off the file so the
// next append starts at the end of the last complete record; a truncated
// tail on any sealed generation is reported as an error, since a sealed
// file is never appended to again and should never have been left
// incomplete.
func replayGeneration(dir string, gen uint64, keydir *KeyDir, dead *deadBytes, allowTruncatedTail bool) error {
	path := genPath(dir, gen)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("engine: failed to read %s: %w", path, err)
	}

	var offset int64
	for int64(len(data)) > offset {
		record, n, err := format.Decode(data[offset:])
		if err != nil {
			if errors.Is(err, kverrors.ErrTruncatedTail) && allowTruncatedTail {
				// cut the partial record off so the Writer resumes right
				// after the last complete one
				if err := os.Truncate(path, offset); err != nil {
					return fmt.Errorf("engine: failed to truncate partial tail of generation %d at offset %d: %w", gen, offset, err)
				}
				break
			}
			return fmt.Errorf("engine: corrupt record in generation %d at offset %d: %w", gen, offset, err)
		}

		pos := LogPos{Gen: gen, Offset: offset, Length: int64(n)}
		key := string(record.Key)
		if prev, existed := keydir.Insert(key, pos); existed {
			dead.Add(prev.Gen, prev.Length)
		}
		if record.IsTombstone() {
			// the tombstone itself occupies space but maps to no live value;
			// drop it from the KeyDir immediately and count its own bytes as
			// dead too, matching the weight a later compaction pass would
			// assign it.
			keydir.Delete(key)
			dead.Add(gen, pos.Length)
		}

		offset += int64(n)
	}
	return nil
}
