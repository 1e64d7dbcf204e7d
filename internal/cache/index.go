package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// index maps asset identifiers to their stored blob
type index map[string]Entry

// loadIndex reads the persisted index. A missing or unreadable file yields an
// empty index.
func loadIndex(path string) index {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.Errorf("Failed to read cache index %s: %v", path, err)
		}
		return index{}
	}

	var items index
	if err := json.Unmarshal(data, &items); err != nil {
		logrus.Errorf("Failed to parse cache index %s, starting empty: %v", path, err)
		return index{}
	}
	if items == nil {
		items = index{}
	}
	return items
}

// save writes the whole index to path through a temporary file and rename
func (idx index) save(path string) error {
	data, err := json.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary index file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

// prune drops entries whose blob is gone, e.g. after an interrupted clear
func (idx index) prune(blobs *BlobStore) int {
	removed := 0
	for key, entry := range idx {
		if !blobs.Exists(entry.Filename) {
			delete(idx, key)
			removed++
		}
	}
	return removed
}

func ensureParent(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0755)
}
