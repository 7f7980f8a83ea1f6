// Package ignite is the public entry point for the ignitekv embedded
// key/value store: an LSM-backed engine combining a bounded in-memory
// memtable with an on-disk, sorted segment cascade that's periodically
// merged and compacted.
package ignite

import (
	"context"

	"github.com/ignitekv/ignitekv/internal/engine"
	"github.com/ignitekv/ignitekv/pkg/logger"
	"github.com/ignitekv/ignitekv/pkg/options"
)

// Instance represents an instance of the ignitekv key/value data store. It
// encapsulates the core engine responsible for data handling and the
// configuration options for this specific database instance.
//
// Instance is the primary entry point for interacting with the store,
// providing methods for setting, getting, deleting, and recovering
// key-value pairs.
type Instance struct {
	engine  *engine.Engine
	options *options.Options
}

// NewInstance creates and initializes a new ignitekv instance, applying any
// supplied options over the defaults.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	built, err := options.Build(opts...)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &built})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &built}, nil
}

// Set stores a key-value pair in the database. If the key already exists,
// its value is updated. The write is durable if the instance was configured
// with a WAL path.
func (i *Instance) Set(ctx context.Context, key, value string) error {
	return i.engine.Write(key, value)
}

// Get retrieves the value associated with the given key. The second return
// value is false if the key is absent or was deleted.
func (i *Instance) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := i.engine.Read(key)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// Contains reports whether key currently resolves to a value.
func (i *Instance) Contains(ctx context.Context, key string) (bool, error) {
	return i.engine.Contains(key)
}

// Delete removes a key-value pair from the database by writing the
// tombstone sentinel; the stale record is physically removed during a later
// merge pass.
func (i *Instance) Delete(ctx context.Context, key string) error {
	return i.engine.Delete(key)
}

// RecoverFrom replays logPath into this instance, clearing its current
// segment state, and adopts logPath as the instance's active WAL.
func (i *Instance) RecoverFrom(ctx context.Context, logPath string) error {
	return i.engine.RecoverFrom(logPath)
}

// Close gracefully shuts down the instance, releasing all associated
// resources.
func (i *Instance) Close(ctx context.Context) error {
	return i.engine.Close()
}
