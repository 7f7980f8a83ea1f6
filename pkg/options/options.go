// Package options provides data structures and functions for configuring an
// ignitekv engine. It defines the five recognized builder options: memtable
// capacity, target segment size, sparse index offset, whether segments
// persist to named files, and an optional write-ahead log path.
package options

import (
	"strings"

	pkgerrors "github.com/ignitekv/ignitekv/pkg/errors"
)

// Options defines the configuration parameters for an ignitekv engine.
type Options struct {
	// InMemoryCapacity (M) bounds the memtable's distinct-key count. Reaching
	// this bound on a write to a new key triggers a flush.
	//
	// Default: 500
	InMemoryCapacity int `json:"inMemoryCapacity"`

	// SegmentSize (T) bounds the number of records an output segment holds
	// after a merge pass. Must be greater than or equal to InMemoryCapacity.
	//
	// Default: 1500
	SegmentSize int `json:"segmentSize"`

	// SparseOffset (S) controls sparse index density: every Sth record in
	// merged order is indexed.
	//
	// Default: 35
	SparseOffset int `json:"sparseOffset"`

	// PersistData selects whether segments are backed by named files under
	// DataDir (true) or by anonymous, auto-removed temp files (false).
	//
	// Default: false
	PersistData bool `json:"persistData"`

	// DataDir is the base directory segment files are stored under when
	// PersistData is true. Ignored otherwise. The WAL location is set only
	// by WALPath and does not depend on DataDir.
	DataDir string `json:"dataDir"`

	// WALPath, if non-empty, names a write-ahead log file to open (creating
	// it if absent) and append every write to.
	//
	// Default: "" (no WAL)
	WALPath string `json:"walPath"`
}

// OptionFunc is a function type that modifies an engine's configuration
// during construction.
type OptionFunc func(*Options)

// WithInMemoryCapacity sets the memtable's distinct-key capacity.
func WithInMemoryCapacity(capacity int) OptionFunc {
	return func(o *Options) {
		if capacity > 0 {
			o.InMemoryCapacity = capacity
		}
	}
}

// WithSegmentSize sets the maximum number of records an output segment holds
// after a merge pass.
func WithSegmentSize(size int) OptionFunc {
	return func(o *Options) {
		if size > 0 {
			o.SegmentSize = size
		}
	}
}

// WithSparseOffset sets how densely the sparse index samples merged records.
func WithSparseOffset(offset int) OptionFunc {
	return func(o *Options) {
		if offset > 0 {
			o.SparseOffset = offset
		}
	}
}

// WithPersistData selects named, persistent segment files over anonymous
// temp files.
func WithPersistData(persist bool) OptionFunc {
	return func(o *Options) {
		o.PersistData = persist
	}
}

// WithDataDir sets the base directory persisted segment files live under.
func WithDataDir(dir string) OptionFunc {
	return func(o *Options) {
		dir = strings.TrimSpace(dir)
		if dir != "" {
			o.DataDir = dir
		}
	}
}

// WithWALPath enables crash recovery by naming a write-ahead log file.
func WithWALPath(path string) OptionFunc {
	return func(o *Options) {
		path = strings.TrimSpace(path)
		if path != "" {
			o.WALPath = path
		}
	}
}

// Build applies opts over the default configuration and validates the
// result, returning a ConfigError if the combination is invalid.
//
// Unlike the teacher's WithSegmentSize/WithCompactInterval, which silently
// drop out-of-range values, an invalid SegmentSize < InMemoryCapacity is a
// construction-time fatal error here, matching the error handling design's
// requirement that this specific misconfiguration always surface.
func Build(opts ...OptionFunc) (Options, error) {
	built := NewDefaultOptions()
	for _, opt := range opts {
		opt(&built)
	}

	if built.SegmentSize < built.InMemoryCapacity {
		return Options{}, pkgerrors.NewConfigurationValidationError(
			"segmentSize",
			"segmentSize must be greater than or equal to inMemoryCapacity",
		).WithProvided(built.SegmentSize).WithExpected(built.InMemoryCapacity)
	}

	return built, nil
}
