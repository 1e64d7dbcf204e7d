// Package contenttest provides an in-process delivery API for tests.
package contenttest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/mux"
)

const apiPrefix = "/content/published/api/v1.1"

type native struct {
	filename string
	body     []byte
	etag     string
}

// Server serves items and native renditions for a single channel token.
// Renditions answer If-None-Match with 304 when the ETag matches.
type Server struct {
	*httptest.Server
	Token string

	mu          sync.Mutex
	items       map[string]json.RawMessage
	itemTypes   map[string]string
	order       []string
	natives     map[string]native
	downloads   map[string]int
	notModified map[string]int
	expanded    map[string]int
}

// New starts a server accepting token
func New(token string) *Server {
	s := &Server{
		Token:       token,
		items:       make(map[string]json.RawMessage),
		itemTypes:   make(map[string]string),
		natives:     make(map[string]native),
		downloads:   make(map[string]int),
		notModified: make(map[string]int),
		expanded:    make(map[string]int),
	}

	r := mux.NewRouter()
	api := r.PathPrefix(apiPrefix).Subrouter()
	api.Use(s.checkToken)
	api.HandleFunc("/items", s.listItems).Methods(http.MethodGet)
	api.HandleFunc("/items/{id}", s.readItem).Methods(http.MethodGet)
	api.HandleFunc("/assets/{id}/native", s.downloadNative).Methods(http.MethodGet)

	s.Server = httptest.NewServer(r)
	return s
}

// BaseURL returns the server URL as a *url.URL
func (s *Server) BaseURL() *url.URL {
	u, _ := url.Parse(s.URL)
	return u
}

// AddItem registers an item. item is encoded as JSON and must carry "id"
// and "type".
func (s *Server) AddItem(item any) {
	data, err := json.Marshal(item)
	if err != nil {
		panic(err)
	}
	var head struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil || head.ID == "" {
		panic(fmt.Sprintf("contenttest: item without id: %s", data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[head.ID]; !ok {
		s.order = append(s.order, head.ID)
	}
	s.items[head.ID] = data
	s.itemTypes[head.ID] = head.Type
}

// SetNative registers the native rendition of id. An empty etag omits the
// ETag header.
func (s *Server) SetNative(id, filename, body, etag string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.natives[id] = native{filename: filename, body: []byte(body), etag: etag}
}

// Downloads returns how many times id was sent with a 200
func (s *Server) Downloads(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.downloads[id]
}

// NotModified returns how many times id was answered with a 304
func (s *Server) NotModified(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notModified[id]
}

// Expanded returns how many times id was read with expand=all
func (s *Server) Expanded(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expanded[id]
}

func (s *Server) checkToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("channelToken") != s.Token {
			http.Error(w, "invalid channel token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) readItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	data, ok := s.items[id]
	if ok && r.URL.Query().Get("expand") == "all" {
		s.expanded[id]++
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

// listItems supports queries of the form (type eq "X")
func (s *Server) listItems(w http.ResponseWriter, r *http.Request) {
	wantType := ""
	if q := r.URL.Query().Get("q"); q != "" {
		_, rest, ok := strings.Cut(q, `type eq "`)
		if !ok {
			http.Error(w, "unsupported query", http.StatusBadRequest)
			return
		}
		wantType, _, _ = strings.Cut(rest, `"`)
	}
	limit := 100
	if l := r.URL.Query().Get("limit"); l != "" {
		if _, err := fmt.Sscanf(l, "%d", &limit); err != nil || limit <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
	}

	s.mu.Lock()
	var items []json.RawMessage
	for _, id := range s.order {
		if wantType != "" && s.itemTypes[id] != wantType {
			continue
		}
		items = append(items, s.items[id])
	}
	s.mu.Unlock()

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	if items == nil {
		items = []json.RawMessage{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"items":   items,
		"hasMore": hasMore,
		"count":   len(items),
	})
}

func (s *Server) downloadNative(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	n, ok := s.natives[id]
	notModified := ok && n.etag != "" && r.Header.Get("If-None-Match") == n.etag
	if notModified {
		s.notModified[id]++
	} else if ok {
		s.downloads[id]++
	}
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if n.etag != "" {
		w.Header().Set("ETag", n.etag)
	}
	if notModified {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", n.filename))
	_, _ = w.Write(n.body)
}
