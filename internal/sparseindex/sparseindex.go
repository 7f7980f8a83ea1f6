// Package sparseindex implements the engine's sparse in-memory index: a
// sorted table of (key, segment offset, segment slot) entries that narrows
// a read down to a small byte range within a single segment, rather than
// resolving it directly. The index samples every S-th record written
// (S configured via pkg/options.SparseOffset) instead of recording every
// key, trading a short in-segment scan for a much smaller memory footprint
// than a dense hash index would need.
//
// The index is rebuilt wholesale after every merge: compaction changes
// which segment a key lives in and at what offset, so patching entries in
// place would be more delicate than simply replacing the table.
package sparseindex

import (
	"sort"
	"sync"
	"sync/atomic"

	stdErrors "errors"

	pkgerrors "github.com/ignitekv/ignitekv/pkg/errors"
	"go.uber.org/zap"
)

// ErrClosed is returned by every operation once the index has been closed.
var ErrClosed = stdErrors.New("operation failed: cannot access closed sparse index")

// Entry is a single sampled sparse index record: the key a segment scan
// should start from, the byte offset of that key's record within the
// segment, and which segment slot (position in the engine's active segment
// list) it belongs to.
type Entry struct {
	Key       string
	Offset    int64
	SegmentID int
}

// Index is the sorted, sampled key table the engine consults before falling
// back to a segment scan. It never answers a read directly: Floor only
// narrows the search to a starting point within one segment.
type Index struct {
	log     *zap.SugaredLogger
	mu      sync.RWMutex
	entries []Entry // sorted ascending by Key
	every   int     // sample every `every`-th record; 1 means dense
	closed  atomic.Bool
}

// Config configures a new Index.
type Config struct {
	SampleEvery int // sample cadence; values < 1 are treated as 1 (dense).
	Logger      *zap.SugaredLogger
}

// New creates an empty Index.
func New(config *Config) (*Index, error) {
	if config == nil || config.Logger == nil {
		return nil, pkgerrors.NewValidationError(
			nil, pkgerrors.ErrorCodeInvalidInput, "sparse index configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	every := config.SampleEvery
	if every < 1 {
		every = 1
	}

	return &Index{log: config.Logger, every: every}, nil
}

// Rebuild replaces the index wholesale with a new set of sampled entries,
// in the order samples were produced during a segment write or merge pass.
// Entries must already be in ascending key order; Rebuild does not sort
// them, but it does verify the ordering holds, since a Floor query's binary
// search silently returns wrong answers over an unsorted slice rather than
// failing loudly.
func (idx *Index) Rebuild(entries []Entry) error {
	if idx.closed.Load() {
		return ErrClosed
	}

	for i := 1; i < len(entries); i++ {
		if entries[i].Key < entries[i-1].Key {
			return pkgerrors.NewIndexCorruptionError("Rebuild", len(entries), nil).
				WithDetail("outOfOrderAt", i).
				WithDetail("previousKey", entries[i-1].Key).
				WithDetail("key", entries[i].Key)
		}
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.entries = entries
	idx.log.Infow("rebuilt sparse index", "entries", len(entries))
	return nil
}

// ShouldSample reports whether the record at the given zero-based position
// should be added to the index, per the configured sample cadence. The
// engine passes a position counted across the whole merge output, not
// restarted per segment, so position 0 (the first merged record) is always
// sampled but a later output segment gets an entry only if one of its
// records falls on the cadence.
func (idx *Index) ShouldSample(position int) bool {
	return position%idx.every == 0
}

// Floor returns the sampled entry with the greatest key less than or equal
// to key, which is where a segment scan for key should begin. ok is false
// if the index is empty or every sampled key is greater than key.
func (idx *Index) Floor(key string) (Entry, bool, error) {
	if idx.closed.Load() {
		return Entry{}, false, ErrClosed
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.entries) == 0 {
		return Entry{}, false, nil
	}

	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].Key > key
	})
	if i == 0 {
		return Entry{}, false, nil
	}
	return idx.entries[i-1], true, nil
}

// Close marks the index closed and releases its entries.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.log.Infow("closing sparse index")
	idx.entries = nil
	return nil
}
