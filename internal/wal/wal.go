// Package wal implements the engine's write-ahead log: a plain append-only
// file in the same line format as a segment, with no sort constraint and no
// framing or checksumming of its own — replay trusts the record codec's own
// DecodeError to surface corruption.
package wal

import (
	"bufio"
	"os"

	"github.com/ignitekv/ignitekv/internal/record"
	pkgerrors "github.com/ignitekv/ignitekv/pkg/errors"
	"go.uber.org/zap"
)

// WAL is an append-only log of records, written in write order (which may
// include duplicate keys and tombstones).
type WAL struct {
	file   *os.File
	writer *bufio.Writer
	path   string
	log    *zap.SugaredLogger
}

// Open creates (if absent) and opens path for appending, ready to accept new
// records. The handle is opened read-write, but Replay does not use it:
// Replay opens its own read handle on the path.
func Open(path string, log *zap.SugaredLogger) (*WAL, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		return nil, pkgerrors.ClassifyFileOpenError(err, path, path)
	}

	return &WAL{
		file:   file,
		writer: bufio.NewWriter(file),
		path:   path,
		log:    log,
	}, nil
}

// Path returns the WAL's backing file path.
func (w *WAL) Path() string {
	return w.path
}

// Append writes r to the end of the log and flushes it to the OS.
func (w *WAL) Append(r record.Record) error {
	buf, err := record.Encode(r)
	if err != nil {
		return err
	}
	if _, err := w.writer.Write(buf); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to append WAL entry").WithFileName(w.path)
	}
	if err := w.writer.Flush(); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to flush WAL").WithFileName(w.path)
	}
	return nil
}

// Close flushes and closes the WAL's file handle. It does not remove the
// file: the WAL outlives the engine that wrote it, for crash recovery.
func (w *WAL) Close() error {
	if err := w.writer.Flush(); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to flush WAL on close").WithFileName(w.path)
	}
	if err := w.file.Close(); err != nil {
		return pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to close WAL").WithFileName(w.path)
	}
	return nil
}

// Replay reads every record from path in order, oldest first. A missing
// file replays as an empty log, matching how a first-run engine with a
// configured but not-yet-created WAL path behaves.
func Replay(path string) ([]record.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, pkgerrors.ClassifyFileOpenError(err, path, path)
	}
	defer file.Close()

	var records []record.Record
	scanner := bufio.NewScanner(file)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()
		if line == "" {
			continue
		}
		r, err := record.DecodeLine(line, lineNumber)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := scanner.Err(); err != nil {
		return nil, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to read WAL").WithFileName(path)
	}
	return records, nil
}
