// Package merge implements the engine's k-way merge pass: combining a
// generation of sorted segments into a new generation with duplicate keys
// resolved in favor of the most recently written value.
//
// This package has no counterpart in the teacher repo, whose internal/
// compaction package was referenced but never implemented; its shape is
// instead grounded on the rollover/seal pattern of a merge pass over an
// append-only segment log and the output-segment sealing used by a
// multi-generation LSM compactor.
package merge

import (
	"container/heap"

	"github.com/ignitekv/ignitekv/internal/record"
	"github.com/ignitekv/ignitekv/internal/segment"
	"go.uber.org/zap"
)

// Source is a single input segment to a merge pass, carrying the
// information needed to break ties between segments holding the same key.
type Source struct {
	Segment   *segment.Segment
	Timestamp int64
	Index     int // position in the engine's oldest-first segment list
}

// EmitFunc is invoked once per record written to an output segment, with the
// output segment's index in the result slice, the byte offset the record
// was written at, and the record's key. The engine uses this to build the
// new generation's sparse index without a second pass over the output.
type EmitFunc func(outputSegmentIndex int, offset int64, key string)

// NewOutputSegment creates a fresh segment to receive merged output.
// Exposed so Run's caller (the engine) can supply however it wants output
// segments backed: an anonymous segment.Temp, or a named file under a
// working name that the engine renames via Commit once the pass succeeds.
type NewOutputSegment func() (*segment.Segment, error)

// Run performs one k-way merge pass over sources (oldest first) and returns
// the resulting segments in order, each holding at most targetSize records
// (the last may hold fewer). emit is called once per output record; newOut
// mints each output segment as it's needed.
func Run(sources []Source, targetSize int, newOut NewOutputSegment, emit EmitFunc, log *zap.SugaredLogger) ([]*segment.Segment, error) {
	h := &entryHeap{}
	heap.Init(h)

	iterators := make([]*segment.Iterator, len(sources))
	for i, src := range sources {
		it, err := src.Segment.ReadFromStart()
		if err != nil {
			return nil, err
		}
		iterators[i] = it

		r, ok, err := it.Next()
		if err != nil {
			return nil, err
		}
		if ok {
			heap.Push(h, entry{key: r.Key, value: r.Value, timestamp: src.Timestamp, source: i})
		}
	}

	var (
		outputs           []*segment.Segment
		current           *segment.Segment
		outputIndex       = -1
		havePreviousKey   bool
		previousEmittedKey string
	)

	seal := func() error {
		if current == nil {
			return nil
		}
		if current.Size() > 0 {
			outputs = append(outputs, current)
		} else {
			if err := current.Close(); err != nil {
				return err
			}
		}
		current = nil
		return nil
	}

	ensureOutput := func() error {
		if current != nil && current.Size() < targetSize {
			return nil
		}
		if err := seal(); err != nil {
			return err
		}
		seg, err := newOut()
		if err != nil {
			return err
		}
		current = seg
		outputIndex++
		return nil
	}

	for h.Len() > 0 {
		e := heap.Pop(h).(entry)

		// Advance the source this entry came from.
		next, ok, err := iterators[e.source].Next()
		if err != nil {
			return nil, err
		}
		if ok {
			heap.Push(h, entry{key: next.Key, value: next.Value, timestamp: sources[e.source].Timestamp, source: e.source})
		}

		if havePreviousKey && e.key == previousEmittedKey {
			// An older version of a key already emitted by the newest
			// source; the newest-first tie-break guarantees this.
			continue
		}

		if err := ensureOutput(); err != nil {
			return nil, err
		}

		offset, err := current.Write(record.Record{Key: e.key, Value: e.value})
		if err != nil {
			return nil, err
		}
		if emit != nil {
			emit(outputIndex, offset, e.key)
		}

		previousEmittedKey = e.key
		havePreviousKey = true
	}

	if err := seal(); err != nil {
		return nil, err
	}

	if log != nil {
		log.Infow("merge pass complete", "inputSegments", len(sources), "outputSegments", len(outputs))
	}
	return outputs, nil
}

// entry is a single meta-entry in the merge heap: a candidate record from
// one source segment, tagged with that segment's recency timestamp.
type entry struct {
	key       string
	value     string
	timestamp int64
	source    int
}

// entryHeap orders entries by key ascending, breaking ties by timestamp
// descending so the newest version of a duplicated key is always popped
// first.
type entryHeap []entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].key != h[j].key {
		return h[i].key < h[j].key
	}
	return h[i].timestamp > h[j].timestamp
}

func (h entryHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(entry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
