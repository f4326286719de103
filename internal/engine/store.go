package engine

import (
	"bufio"
	"io"
	"os"
)

// segmentWriter is the single buffered writer for a segment's active
// window. It tracks the segment's current length so append can hand back
// the exact offset a record was written at without a stat() round trip.
type segmentWriter struct {
	f    *os.File
	w    *bufio.Writer
	size uint64
}

func newSegmentWriter(f *os.File) (*segmentWriter, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, newError(OpenFile, err)
	}
	return &segmentWriter{
		f:    f,
		w:    bufio.NewWriter(f),
		size: uint64(fi.Size()),
	}, nil
}

// append writes b at the current end of the segment, flushes so the bytes
// are visible to any reader (including a reader on a different handle to
// the same file), and returns the offset it was written at and its
// length.
func (w *segmentWriter) append(b []byte) (offset, length uint64, err error) {
	offset = w.size
	n, err := w.w.Write(b)
	if err != nil {
		return 0, 0, newError(AppendToLog, err)
	}
	if err := w.w.Flush(); err != nil {
		return 0, 0, newError(AppendToLog, err)
	}
	w.size += uint64(n)
	return offset, uint64(n), nil
}

func (w *segmentWriter) flush() error {
	if err := w.w.Flush(); err != nil {
		return newError(Io, err)
	}
	return nil
}

func (w *segmentWriter) close() error {
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.f.Close(); err != nil {
		return newError(Io, err)
	}
	return nil
}

// segmentReader is a read-only, absolute-seek buffered reader over a
// segment. It never shares state with the active writer: seeking resets
// the bufio.Reader's internal buffer so a stale buffered read can never
// leak bytes from before the seek.
type segmentReader struct {
	f  *os.File
	r  *bufio.Reader
	at int64
}

func newSegmentReader(f *os.File) *segmentReader {
	return &segmentReader{f: f, r: bufio.NewReader(f)}
}

func (r *segmentReader) seek(offset int64) error {
	if offset == r.at {
		return nil
	}
	if _, err := r.f.Seek(offset, io.SeekStart); err != nil {
		return newError(Io, err)
	}
	r.r.Reset(r.f)
	r.at = offset
	return nil
}

// readFull reads exactly n bytes starting at the reader's current
// position and advances it by n.
func (r *segmentReader) readFull(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r.r, buf)
	r.at += int64(read)
	if err != nil {
		return nil, newError(ReadFromLog, err)
	}
	return buf, nil
}

// readAll reads every remaining byte from the reader's current position
// to end of file, used by replay to load an entire segment once instead
// of decoding off a live stream.
func (r *segmentReader) readAll() ([]byte, error) {
	data, err := io.ReadAll(r.r)
	if err != nil {
		return nil, newError(Io, err)
	}
	r.at += int64(len(data))
	return data, nil
}

func (r *segmentReader) close() error {
	if err := r.f.Close(); err != nil {
		return newError(Io, err)
	}
	return nil
}
