package merge

import (
	"testing"

	"github.com/ignitekv/ignitekv/internal/record"
	"github.com/ignitekv/ignitekv/internal/segment"
	"github.com/ignitekv/ignitekv/pkg/logger"
)

func writeSegment(t *testing.T, entries ...record.Record) (*segment.Segment, int64) {
	t.Helper()
	s, err := segment.Temp(logger.Noop())
	if err != nil {
		t.Fatalf("Temp() returned error: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	for _, r := range entries {
		if _, err := s.Write(r); err != nil {
			t.Fatalf("write(%+v) failed: %v", r, err)
		}
	}
	return s, s.CreatedAt()
}

func TestRunResolvesDuplicatesToNewest(t *testing.T) {
	older, oldTs := writeSegment(t, record.Record{Key: "a", Value: "old-a"}, record.Record{Key: "b", Value: "old-b"})
	newer, newTs := writeSegment(t, record.Record{Key: "a", Value: "new-a"}, record.Record{Key: "c", Value: "new-c"})

	sources := []Source{
		{Segment: older, Timestamp: oldTs, Index: 0},
		{Segment: newer, Timestamp: newTs, Index: 1},
	}

	var emitted []string
	out, err := Run(sources, 100, func() (*segment.Segment, error) { return segment.Temp(logger.Noop()) }, func(_ int, _ int64, key string) {
		emitted = append(emitted, key)
	}, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	t.Cleanup(func() {
		for _, s := range out {
			_ = s.Close()
		}
	})

	if len(out) != 1 {
		t.Fatalf("want 1 output segment, got %d", len(out))
	}

	it, err := out[0].ReadFromStart()
	if err != nil {
		t.Fatalf("ReadFromStart failed: %v", err)
	}
	var got []record.Record
	for {
		r, ok, err := it.Next()
		if err != nil {
			t.Fatalf("Next() returned error: %v", err)
		}
		if !ok {
			break
		}
		got = append(got, r)
	}

	want := []record.Record{{Key: "a", Value: "new-a"}, {Key: "b", Value: "old-b"}, {Key: "c", Value: "new-c"}}
	if len(got) != len(want) {
		t.Fatalf("want %d records, got %+v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("record %d: want %+v, got %+v", i, want[i], got[i])
		}
	}

	wantEmitted := []string{"a", "b", "c"}
	if len(emitted) != len(wantEmitted) {
		t.Fatalf("want %d emit callbacks, got %d: %v", len(wantEmitted), len(emitted), emitted)
	}
	for i := range wantEmitted {
		if emitted[i] != wantEmitted[i] {
			t.Fatalf("emit %d: want %q, got %q", i, wantEmitted[i], emitted[i])
		}
	}
}

func TestRunRollsOverAtTargetSize(t *testing.T) {
	s, ts := writeSegment(t,
		record.Record{Key: "a", Value: "1"},
		record.Record{Key: "b", Value: "2"},
		record.Record{Key: "c", Value: "3"},
		record.Record{Key: "d", Value: "4"},
		record.Record{Key: "e", Value: "5"},
	)

	out, err := Run([]Source{{Segment: s, Timestamp: ts, Index: 0}}, 2, func() (*segment.Segment, error) { return segment.Temp(logger.Noop()) }, nil, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	t.Cleanup(func() {
		for _, o := range out {
			_ = o.Close()
		}
	})

	if len(out) != 3 {
		t.Fatalf("want 3 output segments (2,2,1), got %d", len(out))
	}
	wantSizes := []int{2, 2, 1}
	for i, o := range out {
		if o.Size() != wantSizes[i] {
			t.Fatalf("output segment %d: want size %d, got %d", i, wantSizes[i], o.Size())
		}
	}
}

func TestRunOnSingleEmptySource(t *testing.T) {
	s, ts := writeSegment(t)
	out, err := Run([]Source{{Segment: s, Timestamp: ts, Index: 0}}, 10, func() (*segment.Segment, error) { return segment.Temp(logger.Noop()) }, nil, nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("want 0 output segments for empty input, got %d", len(out))
	}
}
