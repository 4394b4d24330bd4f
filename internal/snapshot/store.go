// Package snapshot owns the process-wide "current configuration"
// reference. Reload builds and validates a new snapshot off to the side
// and swaps the pointer atomically; in-flight evaluations keep the
// snapshot they captured at entry, and a rejected snapshot leaves the
// active one untouched. Single writer, many lock-free readers.
package snapshot

import (
	"sync/atomic"

	"traffic-director/internal/common/logging"
	"traffic-director/internal/rules"
)

// Store holds the current snapshot reference.
type Store struct {
	current atomic.Pointer[rules.Snapshot]
	logger  logging.Logger
}

// NewStore creates an empty store. A nil logger falls back to the
// global logger.
func NewStore(logger logging.Logger) *Store {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Store{logger: logger}
}

// Current returns the active snapshot, or nil before the first
// successful load.
func (s *Store) Current() *rules.Snapshot {
	return s.current.Load()
}

// Swap publishes snap as the current snapshot.
func (s *Store) Swap(snap *rules.Snapshot) {
	old := s.current.Swap(snap)
	fields := []logging.Field{
		{Key: "version", Value: snap.Version},
		{Key: "rules", Value: len(snap.Rules())},
		{Key: "clusters", Value: snap.ClusterCount()},
	}
	if old != nil {
		fields = append(fields, logging.Field{Key: "replaced", Value: old.Version})
	}
	s.logger.Info("configuration snapshot published", fields...)
}

// Reload reads, validates and publishes the snapshot at path. On any
// error the previously active snapshot stays in effect and the error is
// surfaced to the operator.
func (s *Store) Reload(path string) error {
	snap, err := LoadFile(path)
	if err != nil {
		s.logger.Error("configuration reload rejected", err,
			logging.Field{Key: "path", Value: path},
		)
		return err
	}
	s.Swap(snap)
	return nil
}
