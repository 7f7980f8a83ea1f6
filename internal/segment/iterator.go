package segment

import (
	"bufio"
	"errors"
	"io"

	pkgerrors "github.com/ignitekv/ignitekv/pkg/errors"
	"github.com/ignitekv/ignitekv/internal/record"
)

// Iterator reads records sequentially off a segment's file handle starting
// at whatever position the file was at when the iterator was created. It
// does not buffer beyond a single bufio.Reader window and does not restore
// position itself; callers that need restoration (At, Peek, SearchFrom) save
// and seek back to the prior offset around the iterator's lifetime.
type Iterator struct {
	segment *Segment
	reader  *bufio.Reader
	line    int
	done    bool
}

func newIterator(s *Segment, r io.Reader) *Iterator {
	return &Iterator{segment: s, reader: newBufReader(r)}
}

// Next returns the next record, or ok=false once the segment is exhausted.
func (it *Iterator) Next() (record.Record, bool, error) {
	if it.done {
		return record.Record{}, false, nil
	}

	raw, err := it.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		it.done = true
		return record.Record{}, false, pkgerrors.NewStorageError(err, pkgerrors.ErrorCodeIO, "failed to read segment").
			WithFileName(it.segment.path)
	}

	line := record.TrimNewline(raw)
	if line == "" {
		it.done = true
		return record.Record{}, false, nil
	}

	it.line++
	if errors.Is(err, io.EOF) {
		it.done = true
	}

	r, decErr := record.DecodeLine(line, it.line)
	if decErr != nil {
		return record.Record{}, false, decErr
	}
	return r, true, nil
}
