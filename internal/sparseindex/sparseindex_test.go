package sparseindex

import (
	"testing"

	"github.com/ignitekv/ignitekv/pkg/logger"
)

func mustNew(t *testing.T, every int) *Index {
	t.Helper()
	idx, err := New(&Config{SampleEvery: every, Logger: logger.Noop()})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	return idx
}

func TestFloorOnEmptyIndex(t *testing.T) {
	idx := mustNew(t, 4)
	_, ok, err := idx.Floor("a")
	if err != nil {
		t.Fatalf("Floor returned error: %v", err)
	}
	if ok {
		t.Fatalf("expected no floor entry for an empty index")
	}
}

func TestFloorFindsGreatestKeyLessOrEqual(t *testing.T) {
	idx := mustNew(t, 1)
	entries := []Entry{
		{Key: "b", Offset: 10, SegmentID: 0},
		{Key: "d", Offset: 20, SegmentID: 0},
		{Key: "f", Offset: 30, SegmentID: 1},
	}
	if err := idx.Rebuild(entries); err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}

	cases := []struct {
		key       string
		wantFound bool
		wantEntry Entry
	}{
		{"a", false, Entry{}},
		{"b", true, entries[0]},
		{"c", true, entries[0]},
		{"d", true, entries[1]},
		{"e", true, entries[1]},
		{"f", true, entries[2]},
		{"z", true, entries[2]},
	}

	for _, tc := range cases {
		got, ok, err := idx.Floor(tc.key)
		if err != nil {
			t.Fatalf("Floor(%q) returned error: %v", tc.key, err)
		}
		if ok != tc.wantFound {
			t.Fatalf("Floor(%q) ok = %v, want %v", tc.key, ok, tc.wantFound)
		}
		if ok && got != tc.wantEntry {
			t.Fatalf("Floor(%q) = %+v, want %+v", tc.key, got, tc.wantEntry)
		}
	}
}

func TestShouldSampleCadence(t *testing.T) {
	idx := mustNew(t, 3)
	want := map[int]bool{0: true, 1: false, 2: false, 3: true, 4: false, 6: true}
	for pos, expect := range want {
		if got := idx.ShouldSample(pos); got != expect {
			t.Fatalf("ShouldSample(%d) = %v, want %v", pos, got, expect)
		}
	}
}

func TestRebuildReplacesEntries(t *testing.T) {
	idx := mustNew(t, 1)
	if err := idx.Rebuild([]Entry{{Key: "a", Offset: 0, SegmentID: 0}}); err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}
	if err := idx.Rebuild([]Entry{{Key: "z", Offset: 5, SegmentID: 1}}); err != nil {
		t.Fatalf("Rebuild returned error: %v", err)
	}

	if _, ok, _ := idx.Floor("a"); ok {
		t.Fatalf("expected old entry 'a' to be gone after Rebuild")
	}
	got, ok, err := idx.Floor("z")
	if err != nil || !ok || got.Offset != 5 {
		t.Fatalf("Floor(z) = (%+v, %v, %v), want the replaced entry", got, ok, err)
	}
}

func TestRebuildRejectsOutOfOrderEntries(t *testing.T) {
	idx := mustNew(t, 1)
	err := idx.Rebuild([]Entry{
		{Key: "b", Offset: 0, SegmentID: 0},
		{Key: "a", Offset: 5, SegmentID: 0},
	})
	if err == nil {
		t.Fatalf("expected an error for out-of-order entries")
	}
}

func TestOperationsFailAfterClose(t *testing.T) {
	idx := mustNew(t, 1)
	if err := idx.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if err := idx.Close(); err != ErrClosed {
		t.Fatalf("second Close() should return ErrClosed, got %v", err)
	}
	if _, _, err := idx.Floor("a"); err != ErrClosed {
		t.Fatalf("Floor() after close should return ErrClosed, got %v", err)
	}
	if err := idx.Rebuild(nil); err != ErrClosed {
		t.Fatalf("Rebuild() after close should return ErrClosed, got %v", err)
	}
}
