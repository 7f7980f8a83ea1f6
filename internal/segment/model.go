package segment

import (
	"os"

	"go.uber.org/zap"
)

// Segment represents a single append-only, sort-ordered file of records. A
// Segment is logically immutable once it stops being written to: the engine
// never rewrites a record in place, only appends, seals, and eventually
// replaces the whole file via a merge pass.
type Segment struct {
	file      *os.File // the underlying file handle; named or anonymous temp.
	path      string   // backing file's path, whether named or OS-assigned temp.
	persisted bool     // true if the file should survive Close (named segment).

	size        int    // number of records written so far.
	hasPrevious bool   // whether previousKey is meaningful yet.
	previousKey string // last key written, for the non-decreasing invariant.
	createdAt   int64  // strictly monotonic creation timestamp, used as merge recency.

	log *zap.SugaredLogger
}

// Size returns the number of records written to the segment so far.
func (s *Segment) Size() int {
	return s.size
}

// CreatedAt returns the segment's monotonic creation timestamp.
func (s *Segment) CreatedAt() int64 {
	return s.createdAt
}

// Path returns the segment's backing file path. For a Temp segment this is
// the OS-assigned temp file path, not a name meaningful to callers.
func (s *Segment) Path() string {
	return s.path
}
