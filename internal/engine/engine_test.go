package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ignitekv/ignitekv/internal/sparseindex"
	"github.com/ignitekv/ignitekv/pkg/logger"
	"github.com/ignitekv/ignitekv/pkg/options"
)

func newTestEngine(t *testing.T, opts ...options.OptionFunc) *Engine {
	t.Helper()
	built, err := options.Build(opts...)
	if err != nil {
		t.Fatalf("options.Build returned error: %v", err)
	}
	e, err := New(context.Background(), &Config{Options: &built, Logger: logger.Noop()})
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func TestWriteReadRoundTrip(t *testing.T) {
	e := newTestEngine(t, options.WithInMemoryCapacity(4), options.WithSegmentSize(4))

	if err := e.Write("a", "1"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	v, err := e.Read("a")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if v == nil || *v != "1" {
		t.Fatalf("want (1), got %v", v)
	}
}

func TestReadMissingKeyReturnsNil(t *testing.T) {
	e := newTestEngine(t)
	v, err := e.Read("missing")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if v != nil {
		t.Fatalf("want nil for missing key, got %v", *v)
	}
}

func TestDeleteThenReadReturnsNil(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Write("a", "1"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := e.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	v, err := e.Read("a")
	if err != nil {
		t.Fatalf("Read returned error: %v", err)
	}
	if v != nil {
		t.Fatalf("want nil after delete, got %v", *v)
	}
}

func TestContainsReflectsDeletes(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Write("a", "1"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	ok, err := e.Contains("a")
	if err != nil || !ok {
		t.Fatalf("Contains(a) = (%v, %v), want (true, nil)", ok, err)
	}

	if err := e.Delete("a"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	ok, err = e.Contains("a")
	if err != nil || ok {
		t.Fatalf("Contains(a) after delete = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestOverwriteDoesNotTriggerFlushAtCapacity(t *testing.T) {
	e := newTestEngine(t, options.WithInMemoryCapacity(2), options.WithSegmentSize(2))

	if err := e.Write("a", "1"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := e.Write("b", "2"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// Memtable is now at capacity (2/2 distinct keys). Overwriting an
	// existing key must not trigger a flush.
	if err := e.Write("a", "1-updated"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(e.segments) != 0 {
		t.Fatalf("overwrite of an existing key at capacity should not flush, got %d segments", len(e.segments))
	}

	v, err := e.Read("a")
	if err != nil || v == nil || *v != "1-updated" {
		t.Fatalf("Read(a) = (%v, %v), want (1-updated, nil)", v, err)
	}
}

func TestFlushTriggersOnNewKeyAtCapacity(t *testing.T) {
	e := newTestEngine(t, options.WithInMemoryCapacity(2), options.WithSegmentSize(2))

	if err := e.Write("a", "1"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := e.Write("b", "2"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// A new key while at capacity must flush first.
	if err := e.Write("c", "3"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	if len(e.segments) == 0 {
		t.Fatalf("expected a flush to have produced at least one segment")
	}

	for _, k := range []string{"a", "b", "c"} {
		v, err := e.Read(k)
		if err != nil {
			t.Fatalf("Read(%q) returned error: %v", k, err)
		}
		if v == nil {
			t.Fatalf("Read(%q) = nil, want a value", k)
		}
	}
}

func TestRecoverFromReplaysWAL(t *testing.T) {
	dir := t.TempDir()
	walPath := filepath.Join(dir, "wal.log")

	e1 := newTestEngine(t, options.WithInMemoryCapacity(100), options.WithSegmentSize(100), options.WithWALPath(walPath))
	for _, kv := range []struct{ k, v string }{{"a", "1"}, {"b", "2"}, {"a", "3"}} {
		if err := e1.Write(kv.k, kv.v); err != nil {
			t.Fatalf("Write(%q, %q) failed: %v", kv.k, kv.v, err)
		}
	}
	if err := e1.Delete("b"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	e2 := newTestEngine(t, options.WithInMemoryCapacity(100), options.WithSegmentSize(100))
	if err := e2.RecoverFrom(walPath); err != nil {
		t.Fatalf("RecoverFrom failed: %v", err)
	}

	for _, k := range []string{"a", "b"} {
		v1, err1 := e1.Read(k)
		v2, err2 := e2.Read(k)
		if err1 != nil || err2 != nil {
			t.Fatalf("Read(%q) errors: e1=%v e2=%v", k, err1, err2)
		}
		if (v1 == nil) != (v2 == nil) || (v1 != nil && *v1 != *v2) {
			t.Fatalf("Read(%q) mismatch after recovery: e1=%v e2=%v", k, v1, v2)
		}
	}

	// The recovered engine adopted the log as its active WAL: further writes
	// should append rather than error.
	if err := e2.Write("c", "4"); err != nil {
		t.Fatalf("Write after recovery failed: %v", err)
	}
}

func TestReadSurfacesErrorForOutOfRangeSparseEntry(t *testing.T) {
	e := newTestEngine(t)
	// A sparse entry pointing past the end of the live segment list can
	// never arise from a correct flush/merge cycle, but Read must surface
	// it as an index-consistency error rather than silently reporting the
	// key as absent.
	if err := e.sparse.Rebuild([]sparseindex.Entry{{Key: "a", Offset: 0, SegmentID: 5}}); err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if _, err := e.Read("a"); err == nil {
		t.Fatalf("expected an error for an out-of-range sparse index entry")
	}
}

func TestMergeRemovesSupersededPersistedSegments(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t,
		options.WithInMemoryCapacity(2),
		options.WithSegmentSize(2),
		options.WithPersistData(true),
		options.WithDataDir(dir),
	)

	// a, b fill the memtable to capacity; c is a new key written while at
	// capacity, so it triggers the first flush+merge.
	for _, kv := range []struct{ k, v string }{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		if err := e.Write(kv.k, kv.v); err != nil {
			t.Fatalf("Write(%q, %q) failed: %v", kv.k, kv.v, err)
		}
	}
	if len(e.segments) != 1 {
		t.Fatalf("expected 1 segment after first flush, got %d", len(e.segments))
	}
	firstGenPath := e.segments[0].Path()

	// d fills the memtable again (now holding just c); e is a new key
	// written while at capacity, triggering a second flush+merge that
	// folds the first generation's segment into a new one.
	for _, kv := range []struct{ k, v string }{{"d", "4"}, {"e", "5"}} {
		if err := e.Write(kv.k, kv.v); err != nil {
			t.Fatalf("Write(%q, %q) failed: %v", kv.k, kv.v, err)
		}
	}

	if _, err := os.Stat(firstGenPath); !os.IsNotExist(err) {
		t.Fatalf("expected superseded segment %s to be removed, stat err: %v", firstGenPath, err)
	}
}

func TestPersistentModeResumesSegmentIDsAfterRestart(t *testing.T) {
	dir := t.TempDir()

	e1 := newTestEngine(t,
		options.WithInMemoryCapacity(2),
		options.WithSegmentSize(2),
		options.WithPersistData(true),
		options.WithDataDir(dir),
	)
	for _, kv := range []struct{ k, v string }{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		if err := e1.Write(kv.k, kv.v); err != nil {
			t.Fatalf("Write(%q, %q) failed: %v", kv.k, kv.v, err)
		}
	}
	firstRunHighest := e1.nextSegmentID
	if firstRunHighest == 0 {
		t.Fatalf("expected at least one segment to have been minted")
	}
	if err := e1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	e2 := newTestEngine(t,
		options.WithInMemoryCapacity(2),
		options.WithSegmentSize(2),
		options.WithPersistData(true),
		options.WithDataDir(dir),
	)
	if e2.nextSegmentID != firstRunHighest {
		t.Fatalf("expected reopened engine to resume from segment id %d, got %d", firstRunHighest, e2.nextSegmentID)
	}

	if err := e2.Write("d", "4"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := e2.Write("e", "5"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	// d and e fill the fresh memtable to capacity; f is a new key written
	// while at capacity, so it triggers the flush that mints a new segment.
	if err := e2.Write("f", "6"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if e2.nextSegmentID <= firstRunHighest {
		t.Fatalf("expected a newly minted segment id greater than %d, got %d", firstRunHighest, e2.nextSegmentID)
	}
}

func TestReconcileOrphansRemovesStrayTempSegments(t *testing.T) {
	dir := t.TempDir()
	segDir := filepath.Join(dir, "segments")
	if err := os.MkdirAll(segDir, 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}

	// Simulate a process that crashed mid-merge: a merge output segment that
	// was minted but never committed to its final name.
	orphanPath := filepath.Join(segDir, "segment_00001_1.seg.tmp")
	if err := os.WriteFile(orphanPath, []byte("partial"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	// A committed segment from the same crashed run must survive
	// reconciliation untouched; only the *.seg.tmp suffix marks an orphan.
	keptPath := filepath.Join(segDir, "segment_00002_2.seg")
	if err := os.WriteFile(keptPath, []byte("committed"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	newTestEngine(t, options.WithPersistData(true), options.WithDataDir(dir))

	if _, err := os.Stat(orphanPath); !os.IsNotExist(err) {
		t.Fatalf("expected orphaned temp segment %s to be removed, stat err: %v", orphanPath, err)
	}
	if _, err := os.Stat(keptPath); err != nil {
		t.Fatalf("expected committed segment %s to survive reconciliation, stat err: %v", keptPath, err)
	}
}

func TestMergeOutputSegmentsAreCommittedToFinalNames(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t,
		options.WithInMemoryCapacity(2),
		options.WithSegmentSize(2),
		options.WithPersistData(true),
		options.WithDataDir(dir),
	)

	for _, kv := range []struct{ k, v string }{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		if err := e.Write(kv.k, kv.v); err != nil {
			t.Fatalf("Write(%q, %q) failed: %v", kv.k, kv.v, err)
		}
	}

	for _, seg := range e.segments {
		if strings.HasSuffix(seg.Path(), tempSegSuffix) {
			t.Fatalf("expected live segment %s to have been committed off its .tmp name", seg.Path())
		}
		if _, err := os.Stat(seg.Path()); err != nil {
			t.Fatalf("committed segment %s missing on disk: %v", seg.Path(), err)
		}
	}
}

func TestPersistentModeWritesNamedSegments(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t,
		options.WithInMemoryCapacity(2),
		options.WithSegmentSize(2),
		options.WithPersistData(true),
		options.WithDataDir(dir),
	)

	for _, kv := range []struct{ k, v string }{{"a", "1"}, {"b", "2"}, {"c", "3"}} {
		if err := e.Write(kv.k, kv.v); err != nil {
			t.Fatalf("Write(%q, %q) failed: %v", kv.k, kv.v, err)
		}
	}

	if len(e.segments) == 0 {
		t.Fatalf("expected persisted segments after a flush")
	}
	for _, seg := range e.segments {
		if seg.Path() == "" {
			t.Fatalf("persisted segment has no backing path")
		}
	}
}
