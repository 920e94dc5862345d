package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// snapshotVersion is bumped whenever the snapshot layout changes.
const snapshotVersion = 1

// ErrSnapshotVersion is returned by Load for a snapshot written by an
// incompatible version.
var ErrSnapshotVersion = errors.New("unsupported cache snapshot version")

type snapshot struct {
	Version int
	// Entries are ordered from most to least recently used.
	Entries []snapshotEntry
}

type snapshotEntry struct {
	Key         Key
	Data        []byte
	RawLen      int
	Compressed  bool
	AccessCount int64
}

// Save writes all entries to path. The file is replaced atomically.
func (c *LRU) Save(path string) error {
	c.mu.RLock()

	snap := snapshot{Version: snapshotVersion, Entries: make([]snapshotEntry, 0, len(c.entries))}

	for entry := c.head; entry != nil; entry = entry.next {
		snap.Entries = append(snap.Entries, snapshotEntry{
			Key:         entry.key,
			Data:        entry.data,
			RawLen:      entry.rawLen,
			Compressed:  entry.compressed,
			AccessCount: entry.accessCount,
		})
	}

	c.mu.RUnlock()

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create cache snapshot: %w", err)
	}

	tmpName := tmp.Name()

	encErr := gob.NewEncoder(tmp).Encode(snap)
	closeErr := tmp.Close()

	if err := errors.Join(encErr, closeErr); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("write cache snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)

		return fmt.Errorf("replace cache snapshot: %w", err)
	}

	return nil
}

// Load adds the entries of the snapshot at path, most recently used first,
// until the size budget is reached. Keys already present are kept.
func (c *LRU) Load(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open cache snapshot: %w", err)
	}
	defer file.Close()

	var snap snapshot

	if err := gob.NewDecoder(file).Decode(&snap); err != nil {
		return fmt.Errorf("decode cache snapshot %s: %w", path, err)
	}

	if snap.Version != snapshotVersion {
		return fmt.Errorf("%w: %d", ErrSnapshotVersion, snap.Version)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, se := range snap.Entries {
		if _, ok := c.entries[se.Key]; ok {
			continue
		}

		entry := &lruEntry{
			key:         se.Key,
			data:        se.Data,
			rawLen:      se.RawLen,
			compressed:  se.Compressed,
			size:        int64(len(se.Data)),
			accessCount: se.AccessCount,
		}

		if c.currentSize+entry.size > c.maxSize {
			break
		}

		c.entries[entry.key] = entry
		c.currentSize += entry.size
		c.addToBack(entry)
	}

	return nil
}

func (c *LRU) addToBack(entry *lruEntry) {
	entry.next = nil
	entry.prev = c.tail

	if c.tail != nil {
		c.tail.next = entry
	}

	c.tail = entry

	if c.head == nil {
		c.head = entry
	}
}
