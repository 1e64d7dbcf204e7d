package cache

import (
	"fmt"
	"net/http"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

const (
	// IndexFileName is the JSON index kept next to the blob directory
	IndexFileName = "ARDemoCache.json"
	// BlobDirName holds the downloaded files
	BlobDirName = "savedFiles"
)

// FileCache implements Provider with a JSON index and a blob directory
type FileCache struct {
	mu        sync.Mutex
	indexPath string
	blobs     *BlobStore
	items     index
}

// NewFile opens the cache stored under folder, creating the blob directory
// when needed. An error means the cache cannot be used at all.
func NewFile(folder string) (*FileCache, error) {
	indexPath := filepath.Join(folder, IndexFileName)
	if err := ensureParent(indexPath); err != nil {
		return nil, fmt.Errorf("failed to create cache folder: %w", err)
	}

	blobs := NewBlobStore(filepath.Join(folder, BlobDirName))
	if err := blobs.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize blob directory: %w", err)
	}

	items := loadIndex(indexPath)
	if removed := items.prune(blobs); removed > 0 {
		logrus.Warnf("Dropped %d cache entries with missing files", removed)
		if err := items.save(indexPath); err != nil {
			logrus.Errorf("Failed to write cache index: %v", err)
		}
	}

	return &FileCache{
		indexPath: indexPath,
		blobs:     blobs,
		items:     items,
	}, nil
}

// HeaderValues returns the If-None-Match header for key
func (c *FileCache) HeaderValues(key string) map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return headerValues(nil)
	}
	return headerValues(entry.ETag)
}

// CachedItem returns the blob path stored for key
func (c *FileCache) CachedItem(key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.items[key]
	if !ok {
		return "", ErrCachedItemNotFound
	}
	return c.blobs.Path(entry.Filename), nil
}

// Store moves downloadedFile into the blob directory and records it for key
func (c *FileCache) Store(downloadedFile, key string, headers http.Header) (string, error) {
	etag, ok := etagFrom(headers)
	if !ok {
		return "", ErrUnableToStore
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	filename, err := c.blobs.Put(downloadedFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnableToStore, err)
	}

	if previous, ok := c.items[key]; ok && previous.Filename != filename {
		if err := c.blobs.Remove(previous.Filename); err != nil {
			logrus.Warnf("Failed to remove superseded blob %s: %v", previous.Filename, err)
		}
	}

	c.items[key] = Entry{Filename: filename, ETag: &etag}
	if err := c.items.save(c.indexPath); err != nil {
		logrus.Errorf("Failed to write cache index: %v", err)
	}

	logrus.Debugf("Cached %s as %s (etag %s)", key, filename, etag)
	return c.blobs.Path(filename), nil
}

// Clear empties the blob directory, then the index. When the directory cannot
// be replaced the cache is left untouched and the error returned.
func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.blobs.Reset(); err != nil {
		logrus.Errorf("Failed to clear cache directory: %v", err)
		return err
	}

	c.items = index{}
	if err := c.items.save(c.indexPath); err != nil {
		// Stale entries left on disk are pruned on the next load since their
		// blobs are gone.
		logrus.Errorf("Failed to write empty cache index: %v", err)
		return err
	}
	return nil
}

// Len returns the number of cached items
func (c *FileCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// Dir returns the blob directory
func (c *FileCache) Dir() string {
	return c.blobs.Dir()
}
