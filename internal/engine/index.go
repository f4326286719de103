package engine

import "sort"

// LogPointer locates the exact byte range of a single serialized Set
// command: segment SegmentID, starting at Offset, Length bytes long.
type LogPointer struct {
	SegmentID uint64
	Offset    uint64
	Length    uint64
}

// Index is the in-memory mapping from a live key to the LogPointer of its
// most recent Set command. A key is present iff its last durable command
// was a Set.
//
// Iteration order isn't part of the external contract, but compaction
// needs a deterministic order to produce reproducible commit-file byte
// layouts, so sortedKeys walks keys lexicographically rather than relying
// on Go's randomized map iteration.
type Index struct {
	entries map[string]LogPointer
}

func newIndex() *Index {
	return &Index{entries: make(map[string]LogPointer)}
}

func (ix *Index) lookup(key string) (LogPointer, bool) {
	ptr, ok := ix.entries[key]
	return ptr, ok
}

// insert installs ptr for key and reports the pointer it replaced, if any.
func (ix *Index) insert(key string, ptr LogPointer) (LogPointer, bool) {
	prev, existed := ix.entries[key]
	ix.entries[key] = ptr
	return prev, existed
}

// remove deletes key's entry and reports the pointer it removed, if any.
func (ix *Index) remove(key string) (LogPointer, bool) {
	prev, existed := ix.entries[key]
	delete(ix.entries, key)
	return prev, existed
}

// replace overwrites key's pointer in place without regard for what it
// replaced. Used only by compaction, which relocates every live key's
// pointer to the new commit segment and must not perturb the
// uncompacted-byte accounting that insert/remove maintain for ordinary
// writes.
func (ix *Index) replace(key string, ptr LogPointer) {
	ix.entries[key] = ptr
}

func (ix *Index) len() int {
	return len(ix.entries)
}

// sortedKeys returns every live key in ascending lexical order.
func (ix *Index) sortedKeys() []string {
	keys := make([]string, 0, len(ix.entries))
	for k := range ix.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// replaySegment decodes every command in segment seq from its reader in
// order, installing Set pointers and deleting Remove'd keys in idx, and
// accumulating the byte length of any pointer a later command displaced
// into uncompacted. A decode failure — whether a clean end of segment or
// a torn trailing record left by a crash mid-append — stops replay of
// this segment without error: forward-only replay treats both the same
// way, since spec requires a torn tail be tolerated as if the interrupted
// command had never been appended.
func replaySegment(r *segmentReader, seq uint64, idx *Index, uncompacted *uint64) error {
	if err := r.seek(0); err != nil {
		return err
	}
	data, err := r.readAll()
	if err != nil {
		return err
	}

	var offset uint64
	for {
		cmd, n, err := decodeCommand(data)
		if err != nil {
			break
		}

		length := uint64(n)
		if cmd.Set {
			ptr := LogPointer{SegmentID: seq, Offset: offset, Length: length}
			if prev, existed := idx.insert(cmd.Key, ptr); existed {
				*uncompacted += prev.Length
			}
		} else {
			if prev, existed := idx.remove(cmd.Key); existed {
				*uncompacted += prev.Length
			}
		}

		data = data[n:]
		offset += length
	}
	return nil
}
