package engine

import (
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// LogManager owns the set of open segment readers (one per segment,
// including the active one), the single active writer, and the current
// sequence number. It never deserializes application semantics beyond
// what append/get need — the key-aware bookkeeping lives in KVStore.
type LogManager struct {
	dir    string
	logger *zap.Logger

	readers map[uint64]*segmentReader
	writer  *segmentWriter
	seq     uint64
}

// openLogManager discovers existing segments under dir, replays them in
// ascending order to rebuild the index, and opens a fresh active segment
// numbered one past the highest existing sequence (or 1 if dir was
// empty). It returns the uncompacted-byte count and index produced by
// replay alongside the ready-to-use manager.
func openLogManager(dir string, logger *zap.Logger) (uint64, *Index, *LogManager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, nil, nil, newError(OpenFile, err)
	}

	seqs, err := discoverSegments(dir)
	if err != nil {
		return 0, nil, nil, err
	}

	lm := &LogManager{
		dir:     dir,
		logger:  logger,
		readers: make(map[uint64]*segmentReader, len(seqs)),
	}

	// Opening each segment's read handle is independent I/O, so fan it
	// out; the replay pass below stays strictly sequential since
	// uncompacted-byte accounting depends on processing segments in
	// ascending sequence order.
	var mu sync.Mutex
	g := new(errgroup.Group)
	for _, seq := range seqs {
		seq := seq
		g.Go(func() error {
			f, err := os.Open(segmentPath(dir, seq))
			if err != nil {
				return newError(OpenFile, err)
			}
			r := newSegmentReader(f)
			mu.Lock()
			lm.readers[seq] = r
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, nil, nil, err
	}

	idx := newIndex()
	var uncompacted uint64
	for _, seq := range seqs {
		if err := replaySegment(lm.readers[seq], seq, idx, &uncompacted); err != nil {
			return 0, nil, nil, err
		}
	}

	nextSeq := uint64(1)
	if len(seqs) > 0 {
		nextSeq = seqs[len(seqs)-1] + 1
	}
	if _, err := lm.newLogFile(nextSeq); err != nil {
		return 0, nil, nil, err
	}

	logger.Debug("log manager opened",
		zap.String("dir", dir),
		zap.Int("segments", len(seqs)),
		zap.Uint64("active_segment", nextSeq),
		zap.Uint64("uncompacted_bytes", uncompacted),
	)

	return uncompacted, idx, lm, nil
}

// append serializes cmd, writes it to the active segment, and returns a
// pointer to exactly those bytes.
func (lm *LogManager) append(cmd Command) (LogPointer, error) {
	b := encodeCommand(cmd)
	offset, length, err := lm.writer.append(b)
	if err != nil {
		return LogPointer{}, err
	}
	return LogPointer{SegmentID: lm.seq, Offset: offset, Length: length}, nil
}

// get decodes and returns the command at ptr.
func (lm *LogManager) get(ptr LogPointer) (Command, error) {
	r, ok := lm.readers[ptr.SegmentID]
	if !ok {
		return Command{}, newError(ReadFromLog, os.ErrNotExist)
	}
	if err := r.seek(int64(ptr.Offset)); err != nil {
		return Command{}, err
	}
	raw, err := r.readFull(int(ptr.Length))
	if err != nil {
		return Command{}, err
	}
	cmd, _, err := decodeCommand(raw)
	if err != nil {
		return Command{}, newError(ReadFromLog, err)
	}
	return cmd, nil
}

// getValue reads the command at ptr and, if it is a Set, returns its
// value. Any other command found at that offset is a structural
// violation of the pointer's invariant, and is treated as "no value"
// rather than an error.
func (lm *LogManager) getValue(ptr LogPointer) (string, bool, error) {
	cmd, err := lm.get(ptr)
	if err != nil {
		return "", false, err
	}
	if !cmd.Set {
		return "", false, nil
	}
	return cmd.Value, true, nil
}

// openSegmentPair opens (creating if needed) both a writer and a
// read-only reader for segment seq, without installing either on lm.
func (lm *LogManager) openSegmentPair(seq uint64) (*segmentWriter, *segmentReader, error) {
	wf, err := os.OpenFile(segmentPath(lm.dir, seq), os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, newError(OpenFile, err)
	}
	w, err := newSegmentWriter(wf)
	if err != nil {
		return nil, nil, err
	}

	rf, err := os.Open(segmentPath(lm.dir, seq))
	if err != nil {
		return nil, nil, newError(OpenFile, err)
	}
	r := newSegmentReader(rf)

	return w, r, nil
}

// newLogFile opens segment seq as both writer and reader, installs the
// reader, and makes the writer the active one. The caller receives the
// writer.
func (lm *LogManager) newLogFile(seq uint64) (*segmentWriter, error) {
	w, r, err := lm.openSegmentPair(seq)
	if err != nil {
		return nil, err
	}
	lm.readers[seq] = r
	lm.writer = w
	lm.seq = seq
	lm.logger.Debug("segment rollover", zap.Uint64("active_segment", seq))
	return w, nil
}

// prepareCommit allocates two sequence numbers ahead of the current one:
// commitSeq for the compaction output, and commitSeq+1 for the writes
// that follow compaction. It installs the fresh active writer at
// commitSeq+1 and hands the caller the commit segment's writer separately
// so staged records never interleave with ordinary appends.
func (lm *LogManager) prepareCommit() (uint64, *segmentWriter, error) {
	commitSeq := lm.seq + 1
	futureSeq := lm.seq + 2

	commitWriter, commitReader, err := lm.openSegmentPair(commitSeq)
	if err != nil {
		return 0, nil, err
	}
	lm.readers[commitSeq] = commitReader

	prevWriter := lm.writer
	if _, err := lm.newLogFile(futureSeq); err != nil {
		return 0, nil, err
	}
	if err := prevWriter.close(); err != nil {
		return 0, nil, err
	}

	return commitSeq, commitWriter, nil
}

// stageToCommitFile copies ptr.Length bytes verbatim from ptr's segment
// at ptr.Offset into commitWriter, with no deserialization, preserving
// the original on-disk encoding.
func (lm *LogManager) stageToCommitFile(commitWriter *segmentWriter, ptr LogPointer) (uint64, error) {
	r, ok := lm.readers[ptr.SegmentID]
	if !ok {
		return 0, newError(ReadFromLog, os.ErrNotExist)
	}
	if err := r.seek(int64(ptr.Offset)); err != nil {
		return 0, err
	}
	raw, err := r.readFull(int(ptr.Length))
	if err != nil {
		return 0, err
	}
	_, n, err := commitWriter.append(raw)
	if err != nil {
		return 0, err
	}
	return n, nil
}

// removeStaleLogs closes and unlinks every segment strictly older than
// commitSeq. Every reader is attempted even if one fails to close or
// unlink, and the resulting errors (if any) are combined rather than
// abandoning the rest of the cleanup at the first failure.
func (lm *LogManager) removeStaleLogs(commitSeq uint64) error {
	var errs error
	for seq, r := range lm.readers {
		if seq >= commitSeq {
			continue
		}
		if err := r.close(); err != nil {
			errs = multierr.Append(errs, err)
		}
		if err := os.Remove(segmentPath(lm.dir, seq)); err != nil {
			errs = multierr.Append(errs, newError(Io, err))
		} else {
			lm.logger.Debug("removed stale segment", zap.Uint64("segment", seq))
		}
		delete(lm.readers, seq)
	}
	if errs != nil {
		lm.logger.Warn("errors removing stale segments", zap.Uint64("commit_segment", commitSeq), zap.Error(errs))
	}
	return errs
}

// Close flushes and closes the active writer and every open segment
// reader, aggregating failures instead of stopping at the first one so a
// bad segment can't leak every other file descriptor the manager holds.
func (lm *LogManager) Close() error {
	var errs error
	if lm.writer != nil {
		if err := lm.writer.close(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	for _, r := range lm.readers {
		if err := r.close(); err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}
