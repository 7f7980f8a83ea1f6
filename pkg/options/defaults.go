package options

const (
	// DefaultInMemoryCapacity is the default memtable distinct-key capacity (M).
	DefaultInMemoryCapacity = 500

	// DefaultSegmentSize is the default target segment size (T).
	DefaultSegmentSize = 1500

	// DefaultSparseOffset is the default sparse index sampling interval (S).
	DefaultSparseOffset = 35

	// DefaultPersistData is the default persistence mode: anonymous temp files.
	DefaultPersistData = false

	// DefaultDataDir is used when PersistData is true and no directory was given.
	DefaultDataDir = "/var/lib/ignitekv"
)

// defaultOptions holds the baseline configuration for an ignitekv engine.
var defaultOptions = Options{
	InMemoryCapacity: DefaultInMemoryCapacity,
	SegmentSize:      DefaultSegmentSize,
	SparseOffset:     DefaultSparseOffset,
	PersistData:      DefaultPersistData,
	DataDir:          DefaultDataDir,
}

// NewDefaultOptions returns a copy of the default configuration.
func NewDefaultOptions() Options {
	return defaultOptions
}
