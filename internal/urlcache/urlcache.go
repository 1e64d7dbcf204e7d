// Package urlcache remembers the distinct deep links opened for each demo, so
// they can be listed and replayed later. It is unrelated to the asset cache.
package urlcache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// List is an append-only, deduplicated list of URLs persisted as a JSON array
type List struct {
	mu    sync.Mutex
	path  string
	items []*url.URL
}

// Open loads the list stored at path. A missing or unreadable file yields an
// empty list; the file is not read again afterwards.
func Open(path string) *List {
	return &List{
		path:  path,
		items: read(path),
	}
}

func read(path string) []*url.URL {
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logrus.Errorf("Failed to read URL list %s: %v", path, err)
		}
		return nil
	}

	var raw []string
	if err := json.Unmarshal(data, &raw); err != nil {
		logrus.Errorf("Failed to parse URL list %s: %v", path, err)
		return nil
	}

	items := make([]*url.URL, 0, len(raw))
	for _, s := range raw {
		u, err := url.Parse(s)
		if err != nil {
			logrus.Warnf("Skipping invalid URL %q in %s: %v", s, path, err)
			continue
		}
		items = append(items, u)
	}
	return items
}

// Path returns the backing file
func (l *List) Path() string {
	return l.path
}

// Items returns a copy of the list in insertion order
func (l *List) Items() []*url.URL {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]*url.URL, len(l.items))
	for i, u := range l.items {
		copied := *u
		items[i] = &copied
	}
	return items
}

// Store appends u unless an equal URL is already present. nil is ignored.
func (l *List) Store(u *url.URL) {
	if u == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	s := u.String()
	for _, existing := range l.items {
		if existing.String() == s {
			return
		}
	}

	copied := *u
	l.items = append(l.items, &copied)
	if err := l.write(); err != nil {
		logrus.Errorf("Failed to write URL list %s: %v", l.path, err)
	}
}

// Clear empties the list and persists it
func (l *List) Clear() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := l.items
	l.items = nil
	if err := l.write(); err != nil {
		l.items = previous
		return err
	}
	return nil
}

func (l *List) write() error {
	raw := make([]string, 0, len(l.items))
	for _, u := range l.items {
		raw = append(raw, u.String())
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("encoding URL list: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating URL list directory: %w", err)
	}
	return os.WriteFile(l.path, data, 0644)
}
