package options

import (
	"testing"

	pkgerrors "github.com/ignitekv/ignitekv/pkg/errors"
)

func TestBuildDefaults(t *testing.T) {
	opts, err := Build()
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	if opts.InMemoryCapacity != DefaultInMemoryCapacity {
		t.Fatalf("want InMemoryCapacity=%d, got %d", DefaultInMemoryCapacity, opts.InMemoryCapacity)
	}
	if opts.SegmentSize != DefaultSegmentSize {
		t.Fatalf("want SegmentSize=%d, got %d", DefaultSegmentSize, opts.SegmentSize)
	}
	if opts.SparseOffset != DefaultSparseOffset {
		t.Fatalf("want SparseOffset=%d, got %d", DefaultSparseOffset, opts.SparseOffset)
	}
}

func TestBuildOverrides(t *testing.T) {
	opts, err := Build(
		WithInMemoryCapacity(3),
		WithSegmentSize(100),
		WithSparseOffset(2),
		WithPersistData(true),
		WithDataDir("/tmp/ignitekv-test"),
	)
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	if opts.InMemoryCapacity != 3 || opts.SegmentSize != 100 || opts.SparseOffset != 2 {
		t.Fatalf("unexpected overridden options: %+v", opts)
	}
	if !opts.PersistData {
		t.Fatalf("expected PersistData=true")
	}
	if opts.DataDir != "/tmp/ignitekv-test" {
		t.Fatalf("unexpected DataDir: %q", opts.DataDir)
	}
}

func TestBuildRejectsSegmentSizeBelowCapacity(t *testing.T) {
	_, err := Build(WithInMemoryCapacity(10), WithSegmentSize(5))
	if err == nil {
		t.Fatalf("expected ConfigError for segmentSize < inMemoryCapacity")
	}
	if !pkgerrors.IsValidationError(err) {
		t.Fatalf("expected a ValidationError, got %T: %v", err, err)
	}
}

func TestWithWALPathTrims(t *testing.T) {
	opts, err := Build(WithWALPath("  /tmp/wal.log  "))
	if err != nil {
		t.Fatalf("Build() returned error: %v", err)
	}
	if opts.WALPath != "/tmp/wal.log" {
		t.Fatalf("expected trimmed WAL path, got %q", opts.WALPath)
	}
}
