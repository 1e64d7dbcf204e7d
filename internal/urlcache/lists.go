package urlcache

import (
	"path/filepath"
	"sort"
	"strings"
)

// Lists holds one independent List per demo
type Lists struct {
	lists map[string]*List
}

// FileName returns the file backing a demo's list, e.g. ARDemoMugURLCache.json
func FileName(demo string) string {
	name := strings.ToLower(demo)
	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}
	return "ARDemo" + name + "URLCache.json"
}

// OpenLists opens a list under folder for each demo
func OpenLists(folder string, demos ...string) *Lists {
	lists := make(map[string]*List, len(demos))
	for _, demo := range demos {
		lists[demo] = Open(filepath.Join(folder, FileName(demo)))
	}
	return &Lists{lists: lists}
}

// Get returns the list kept for demo
func (l *Lists) Get(demo string) (*List, bool) {
	list, ok := l.lists[demo]
	return list, ok
}

// Demos returns the demos with a list, sorted
func (l *Lists) Demos() []string {
	demos := make([]string, 0, len(l.lists))
	for demo := range l.lists {
		demos = append(demos, demo)
	}
	sort.Strings(demos)
	return demos
}
