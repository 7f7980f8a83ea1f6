// Package segment implements the sorted-segment engine: append-only,
// sort-ordered files of records plus the read/seek/search primitives the
// merger and the query path build on.
//
// A Segment wraps a single *os.File. Writes are sequential and enforce the
// non-decreasing key invariant; reads and searches are position-based and,
// where the spec requires it, restore the file's prior position on every
// exit path so that interleaved operations on the same segment compose
// correctly.
package segment

import (
	"bufio"
	"io"
	"os"

	pkgerrors "github.com/ignitekv/ignitekv/pkg/errors"
	"github.com/ignitekv/ignitekv/internal/record"
	"go.uber.org/zap"
)

// Open wraps an already-open file handle as a fresh segment: size 0, no
// previous key, a newly stamped monotonic creation timestamp. persisted
// marks whether the file should survive Close.
func Open(file *os.File, persisted bool, log *zap.SugaredLogger) *Segment {
	return &Segment{
		file:      file,
		path:      file.Name(),
		persisted: persisted,
		createdAt: NextTimestamp(),
		log:       log,
	}
}

// Temp opens a fresh segment backed by an anonymous OS temp file. The file
// is removed when the segment is closed.
func Temp(log *zap.SugaredLogger) (*Segment, error) {
	file, err := os.CreateTemp("", "ignitekv-segment-*.seg")
	if err != nil {
		return nil, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to create temp segment file")
	}
	return Open(file, false, log), nil
}

// OpenPath opens (creating if absent) a named, persistent segment file at
// path. This is the path-based convenience the engine uses when
// options.PersistData is true, mirroring the teacher's openSegmentFile.
func OpenPath(path string, log *zap.SugaredLogger) (*Segment, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, pkgerrors.ClassifyFileOpenError(err, path, path)
	}
	return Open(file, true, log), nil
}

// Write appends record to the segment, enforcing that its key is not less
// than the previously written key. Returns the pre-write offset.
func (s *Segment) Write(r record.Record) (int64, error) {
	if s.hasPrevious && r.Key < s.previousKey {
		return 0, pkgerrors.NewUnsortedWriteError(s.previousKey, r.Key).
			WithDetail("segmentPath", s.path)
	}

	offset, err := s.Tell()
	if err != nil {
		return 0, err
	}

	buf, err := record.Encode(r)
	if err != nil {
		return 0, err
	}

	if _, err := s.file.Write(buf); err != nil {
		return 0, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to write record").
			WithFileName(s.path).WithOffset(int(offset))
	}

	s.size++
	s.previousKey = r.Key
	s.hasPrevious = true
	return offset, nil
}

// Seek moves the segment's read/write position to an absolute byte offset.
func (s *Segment) Seek(offset int64) error {
	if _, err := s.file.Seek(offset, io.SeekStart); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to seek segment").
			WithFileName(s.path).WithOffset(int(offset))
	}
	return nil
}

// Reset moves the segment's position back to the start of the file.
func (s *Segment) Reset() error {
	return s.Seek(0)
}

// Tell returns the segment's current byte position.
func (s *Segment) Tell() (int64, error) {
	offset, err := s.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to read segment position").
			WithFileName(s.path)
	}
	return offset, nil
}

// Read returns an iterator over every record from the current position to
// EOF. The iterator advances the segment's position as it consumes the
// underlying file; callers that need the prior position restored (as for
// search operations) must save and restore it themselves, exactly as
// SearchFrom/At/Peek do internally.
func (s *Segment) Read() *Iterator {
	return newIterator(s, s.file)
}

// ReadFromStart resets the segment to offset 0 and returns an iterator over
// every record in the file.
func (s *Segment) ReadFromStart() (*Iterator, error) {
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s.Read(), nil
}

// At returns the value of the single record beginning at offset, restoring
// the segment's prior position before returning.
func (s *Segment) At(offset int64) (string, bool, error) {
	prior, err := s.Tell()
	if err != nil {
		return "", false, err
	}
	defer s.Seek(prior) //nolint:errcheck // best-effort position restore; the read result already determined below

	if err := s.Seek(offset); err != nil {
		return "", false, err
	}

	it := s.Read()
	r, ok, err := it.Next()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return r.Value, true, nil
}

// Peek returns the next record from the current position without consuming
// it: the segment's position is restored after the read. Supplements the
// spec's named operation set with the original source's sst.rs peek(),
// which the merger's heap-seeding step relies on conceptually (see
// SPEC_FULL.md §12.5).
func (s *Segment) Peek() (record.Record, bool, error) {
	prior, err := s.Tell()
	if err != nil {
		return record.Record{}, false, err
	}
	defer s.Seek(prior) //nolint:errcheck

	it := s.Read()
	return it.Next()
}

// SearchFrom seeks to offset, then scans forward for the first record whose
// key is greater than or equal to key. If that record's key equals key its
// value is returned; otherwise the key is absent from this segment at or
// after offset. The segment's prior position is restored on every exit
// path, including when a decode error terminates the search early.
func (s *Segment) SearchFrom(key string, offset int64) (string, bool, error) {
	prior, err := s.Tell()
	if err != nil {
		return "", false, err
	}
	defer s.Seek(prior) //nolint:errcheck

	if err := s.Seek(offset); err != nil {
		return "", false, err
	}

	it := s.Read()
	for {
		r, ok, err := it.Next()
		if err != nil {
			return "", false, err
		}
		if !ok {
			return "", false, nil
		}
		if r.Key < key {
			continue
		}
		if r.Key == key {
			return r.Value, true, nil
		}
		return "", false, nil
	}
}

// SearchFromStart is equivalent to SearchFrom(key, 0).
func (s *Segment) SearchFromStart(key string) (string, bool, error) {
	return s.SearchFrom(key, 0)
}

// Close releases the segment's file handle. Anonymous (non-persisted)
// segments are removed from disk; persisted segments are left in place, so
// that a named segment still present in the engine's live list at shutdown
// survives to the next restart.
func (s *Segment) Close() error {
	path := s.file.Name()
	if err := s.file.Close(); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to close segment").WithFileName(path)
	}
	if !s.persisted {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to remove temp segment").WithFileName(path)
		}
	}
	return nil
}

// Commit promotes a segment from its in-flight working name to finalPath by
// renaming the backing file. Output segments are minted under a temporary
// name (see engine.newSegment) so that a crash before Commit runs leaves the
// working file discoverable, and cleanable, under that temporary name rather
// than looking like a fully-written, committed segment. A no-op for
// anonymous (non-persisted) segments, which are never promoted to a
// committed name, and for a segment already at finalPath.
func (s *Segment) Commit(finalPath string) error {
	if !s.persisted || s.path == finalPath {
		return nil
	}
	if err := os.Rename(s.path, finalPath); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to commit segment").
			WithFileName(s.path).WithPath(finalPath)
	}
	s.path = finalPath
	return nil
}

// Destroy closes the segment and removes its backing file unconditionally,
// including named, persisted segments. Callers use this when a segment has
// been superseded by a merge pass and its content now lives entirely in the
// merge's output segments, as opposed to Close, which a surviving segment
// goes through at ordinary engine shutdown.
func (s *Segment) Destroy() error {
	path := s.path
	if err := s.file.Close(); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to close superseded segment").WithFileName(path)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to remove superseded segment").WithFileName(path)
	}
	return nil
}

// bufSize matches bufio's own default; kept explicit since segment scans are
// the hottest read path in the engine.
const bufSize = 4096

func newBufReader(r io.Reader) *bufio.Reader {
	return bufio.NewReaderSize(r, bufSize)
}
