package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const segmentExt = ".log"

// segmentPath returns the path of the segment file for the given
// sequence number under dir.
func segmentPath(dir string, seq uint64) string {
	return filepath.Join(dir, fmt.Sprintf("%d%s", seq, segmentExt))
}

// discoverSegments lists dir and returns the sequence numbers of every
// valid segment file, sorted ascending. Entries that aren't regular
// ".log" files, or whose stem doesn't parse as a base-10 uint64, are
// silently skipped: they aren't segments this store wrote.
func discoverSegments(dir string) ([]uint64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, newError(Io, err)
	}

	var seqs []uint64
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if filepath.Ext(name) != segmentExt {
			continue
		}
		stem := strings.TrimSuffix(name, segmentExt)
		seq, err := strconv.ParseUint(stem, 10, 64)
		if err != nil {
			continue
		}
		seqs = append(seqs, seq)
	}

	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	return seqs, nil
}
