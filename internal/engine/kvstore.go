// Package engine implements an embedded, log-structured key-value store:
// a directory of append-only segment files, an in-memory index mapping
// each live key to the exact byte range of its latest Set command, and
// online compaction that reclaims space from overwritten or removed
// records without losing durable data across a crash.
package engine

import (
	"fmt"

	"go.uber.org/zap"
)

// compactionThreshold is the uncompacted-byte watermark past which a
// set/remove triggers a compaction cycle before returning.
const compactionThreshold = 1_048_576

// Config holds the store's tunables. The zero value is valid: Open fills
// in defaults for every unset field.
type Config struct {
	// Logger receives structured events for segment rollover, compaction,
	// and stale-segment cleanup. Defaults to a no-op logger.
	Logger *zap.Logger
	// CompactionThreshold is the uncompacted-byte count past which a
	// write triggers compaction. Defaults to 1MiB.
	CompactionThreshold uint64
}

func (c *Config) setDefaults() {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.CompactionThreshold == 0 {
		c.CompactionThreshold = compactionThreshold
	}
}

// KVStore is the public facade: set/get/remove against string keys and
// values, backed by a LogManager and an in-memory Index. It is not
// internally synchronized — concurrent use from multiple goroutines must
// be serialized by the caller.
type KVStore struct {
	log    *LogManager
	index  *Index
	logger *zap.Logger

	threshold        uint64
	uncompactedBytes uint64
}

// Open loads an existing store directory, or creates an empty one, and
// replays every segment to rebuild the in-memory index before returning.
func Open(path string, cfg Config) (*KVStore, error) {
	cfg.setDefaults()

	uncompacted, idx, lm, err := openLogManager(path, cfg.Logger)
	if err != nil {
		return nil, err
	}

	return &KVStore{
		log:              lm,
		index:            idx,
		logger:           cfg.Logger,
		threshold:        cfg.CompactionThreshold,
		uncompactedBytes: uncompacted,
	}, nil
}

// Set asserts that key now maps to value. If key had a prior mapping,
// its pointer's byte length is added to the uncompacted-byte count, and a
// compaction runs if that pushes the count past the threshold.
func (s *KVStore) Set(key, value string) error {
	ptr, err := s.log.append(NewSetCommand(key, value))
	if err != nil {
		return err
	}

	prev, existed := s.index.insert(key, ptr)
	if existed {
		s.uncompactedBytes += prev.Length
		if s.uncompactedBytes > s.threshold {
			return s.compact()
		}
	}
	return nil
}

// Get returns the value currently mapped to key. The second return value
// is false if key has no mapping; it is never true alongside a non-nil
// error.
func (s *KVStore) Get(key string) (string, bool, error) {
	ptr, ok := s.index.lookup(key)
	if !ok {
		return "", false, nil
	}
	return s.log.getValue(ptr)
}

// Remove asserts that key has no mapping. It fails with ErrKeyNotFound if
// key was already absent.
func (s *KVStore) Remove(key string) error {
	prev, existed := s.index.lookup(key)
	if !existed {
		return newError(KeyNotFound, fmt.Errorf("key %q not found", key))
	}

	if _, err := s.log.append(NewRemoveCommand(key)); err != nil {
		return err
	}
	s.index.remove(key)
	s.uncompactedBytes += prev.Length

	if s.uncompactedBytes > s.threshold {
		return s.compact()
	}
	return nil
}

// compact rewrites every live record into a fresh commit segment and
// discards the segments it superseded. The index is updated to point at
// the commit segment before the old segments are unlinked, so a crash
// between those two steps still replays correctly: the commit segment,
// written at a later sequence number, overrides the stale copies replay
// also finds in the older segments.
func (s *KVStore) compact() error {
	commitSeq, commitWriter, err := s.log.prepareCommit()
	if err != nil {
		return err
	}

	var offset uint64
	for _, key := range s.index.sortedKeys() {
		ptr, ok := s.index.lookup(key)
		if !ok {
			continue
		}
		n, err := s.log.stageToCommitFile(commitWriter, ptr)
		if err != nil {
			return err
		}
		s.index.replace(key, LogPointer{SegmentID: commitSeq, Offset: offset, Length: n})
		offset += n
	}

	if err := commitWriter.close(); err != nil {
		return err
	}

	if err := s.log.removeStaleLogs(commitSeq); err != nil {
		return err
	}

	s.logger.Info("compaction complete",
		zap.Uint64("commit_segment", commitSeq),
		zap.Int("live_keys", s.index.len()),
		zap.Uint64("bytes_reclaimed", s.uncompactedBytes),
	)
	s.uncompactedBytes = 0
	return nil
}

// Close releases every file descriptor the store holds. It does not
// flush anything that append hasn't already flushed durably.
func (s *KVStore) Close() error {
	return s.log.Close()
}
