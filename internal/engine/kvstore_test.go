package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, dir string, cfg Config) *KVStore {
	t.Helper()
	s, err := Open(dir, cfg)
	require.NoError(t, err)
	return s
}

// S1 — basic.
func TestBasicSetGet(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Config{})
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))

	v, ok, err := s.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	v, ok, err = s.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)

	_, ok, err = s.Get("c")
	require.NoError(t, err)
	require.False(t, ok)
}

// S2 — overwrite & remove.
func TestOverwriteAndRemove(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Config{})
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Set("k", "v1"))
	require.NoError(t, s.Set("k", "v2"))

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v2", v)

	require.NoError(t, s.Remove("k"))
	_, ok, err = s.Get("k")
	require.NoError(t, err)
	require.False(t, ok)

	err = s.Remove("k")
	require.True(t, errors.Is(err, ErrKeyNotFound))
}

// S3 — reopen.
func TestReopenPersistsData(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Config{})
	require.NoError(t, s.Set("x", "y"))
	require.NoError(t, s.Close())

	s2 := openTestStore(t, dir, Config{})
	t.Cleanup(func() { _ = s2.Close() })
	v, ok, err := s2.Get("x")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "y", v)
}

// S4 — large key/value, including across a reopen.
func TestLargeValueRoundTripsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	big := strings.Repeat("A", 10_000)

	s := openTestStore(t, dir, Config{})
	require.NoError(t, s.Set("k", big))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big, v)
	require.NoError(t, s.Close())

	s2 := openTestStore(t, dir, Config{})
	t.Cleanup(func() { _ = s2.Close() })
	v, ok, err = s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, big, v)
}

// S5 — compaction trigger: enough overwrites of one key must eventually
// drop stale segments, while always reporting the last written value.
func TestCompactionTriggersAndPreservesLatestValue(t *testing.T) {
	dir := t.TempDir()
	// A tiny threshold makes compaction deterministic and fast in a test
	// without needing 100k iterations.
	s := openTestStore(t, dir, Config{CompactionThreshold: 256})
	t.Cleanup(func() { _ = s.Close() })

	const iterations = 500
	prevBytes := int64(-1)
	sawShrink := false
	for i := 0; i < iterations; i++ {
		require.NoError(t, s.Set("k", fmt.Sprintf("value-%d", i)))

		var totalBytes int64
		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		for _, e := range entries {
			info, err := e.Info()
			require.NoError(t, err)
			totalBytes += info.Size()
		}
		if prevBytes >= 0 && totalBytes < prevBytes {
			sawShrink = true
		}
		prevBytes = totalBytes
	}
	require.True(t, sawShrink, "expected total on-disk segment bytes to shrink at least once as compaction removed stale segments")

	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fmt.Sprintf("value-%d", iterations-1), v)

	require.NoError(t, s.Close())
	s2 := openTestStore(t, dir, Config{CompactionThreshold: 256})
	t.Cleanup(func() { _ = s2.Close() })
	v, ok, err = s2.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, fmt.Sprintf("value-%d", iterations-1), v)
}

// S6 — torn tail: truncating the newest segment by a byte must drop only
// the truncated record, leave everything before it intact, and leave the
// store writable afterward.
func TestTornTailIsTolerated(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Config{})
	require.NoError(t, s.Set("a", "1"))
	require.NoError(t, s.Set("b", "2"))
	require.NoError(t, s.Close())

	seqs, err := discoverSegments(dir)
	require.NoError(t, err)
	newest := seqs[len(seqs)-1]
	path := segmentPath(dir, newest)
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-1))

	s2 := openTestStore(t, dir, Config{})
	t.Cleanup(func() { _ = s2.Close() })

	v, ok, err := s2.Get("a")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1", v)

	_, ok, err = s2.Get("b")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s2.Set("b", "2"))
	v, ok, err = s2.Get("b")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "2", v)
}

func TestAbsentGet(t *testing.T) {
	dir := t.TempDir()
	s := openTestStore(t, dir, Config{})
	t.Cleanup(func() { _ = s.Close() })

	_, ok, err := s.Get("never-set")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOpenCreatesDirectoryIfAbsent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "store")
	s, err := Open(dir, Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
